package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tg "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/velikanov/teleshop/internal/bot"
	"github.com/velikanov/teleshop/internal/httpapi"
	"github.com/velikanov/teleshop/internal/orders"
	"github.com/velikanov/teleshop/internal/session"
	"github.com/velikanov/teleshop/internal/store"
	"github.com/velikanov/teleshop/internal/warmup"
	"github.com/velikanov/teleshop/pkg/cache"
	"github.com/velikanov/teleshop/pkg/logging"
)

func main() {
	// Configuration from environment
	port := getEnv("PORT", "5000")
	redisURL := getEnv("REDIS_URL", "localhost:6379")
	dbPath := getEnv("DATABASE_PATH", "teleshop.db")
	token := os.Getenv("TELEGRAM_TOKEN")
	webAppURL := getEnv("WEB_APP_URL", "http://localhost:3000")
	jwtSecret := getEnv("JWT_SECRET", "dev-secret-change-me")
	qrDir := getEnv("QR_CODE_DIR", "static/qrcodes")
	corsOrigins := getEnv("CORS_ORIGINS", "")
	logLevel := getEnv("LOG_LEVEL", "info")

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(logLevel),
		Pretty: os.Getenv("LOG_PRETTY") == "true",
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Cache store: Redis when reachable, in-memory fallback otherwise.
	// The storefront must come up even when Redis is down.
	var cacheStore cache.Store
	redisClient := redis.NewClient(&redis.Options{Addr: redisURL})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", redisURL).Msg("Redis unreachable, using in-memory cache")
		memStore := cache.NewMemoryStore()
		defer memStore.Close()
		cacheStore = memStore
	} else {
		log.Info().Str("addr", redisURL).Msg("Connected to Redis")
		cacheStore = cache.NewRedisStore(redisClient)
		defer redisClient.Close()
	}
	cacheManager := cache.NewManager(cacheStore)

	db, err := store.Open(dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", dbPath).Msg("Could not open database")
	}
	defer db.Close()

	products := store.NewProductRepository(db)
	types := store.NewTypeRepository(db)
	users := store.NewUserRepository(db)
	ordersRepo := store.NewOrderRepository(db)

	sessions := session.NewMemoryStore()
	logger := log.Logger

	orderService := orders.NewService(ordersRepo, cacheManager, qrDir, webAppURL, logger)

	// Telegram bot is optional so the REST API can run standalone.
	var (
		orchestrator *orders.Orchestrator
		tgClient     *tg.Bot
	)
	if token == "" {
		log.Warn().Msg("TELEGRAM_TOKEN not set, bot disabled")
	} else {
		var handler *bot.Handler
		tgClient, err = tg.New(token, tg.WithDefaultHandler(func(ctx context.Context, _ *tg.Bot, upd *models.Update) {
			if neutral, ok := bot.FromTelegramUpdate(upd); ok {
				handler.Handle(ctx, neutral)
			}
		}))
		if err != nil {
			log.Fatal().Err(err).Msg("Could not create Telegram bot")
		}
		gateway := bot.NewGateway(tgClient)
		gateway.SetLogger(logger)
		orchestrator = orders.NewOrchestrator(orderService, sessions, users, gateway, logger)
		handler = bot.NewHandler(sessions, gateway, orchestrator, webAppURL, logger)

		go tgClient.Start(ctx)
		log.Info().Str("web_app_url", webAppURL).Msg("Telegram bot started")
	}

	server := httpapi.NewServer(httpapi.Config{
		Products:     products,
		Types:        types,
		Users:        users,
		Orders:       orderService,
		Orchestrator: orchestrator,
		Cache:        cacheManager,
		JWTSecret:    jwtSecret,
		CORSOrigins:  splitOrigins(corsOrigins),
		Logger:       logger,
	})

	go warmCache(ctx, port)

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("HTTP server started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown failed")
	}
}

// warmCache pre-populates the hot listings through the public API so the
// entries match what live traffic would produce.
func warmCache(ctx context.Context, port string) {
	base := "http://localhost:" + port
	get := func(path string) warmup.Task {
		return warmup.Task{
			Name: path,
			Run: func(ctx context.Context) error {
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path, nil)
				if err != nil {
					return err
				}
				resp, err := http.DefaultClient.Do(req)
				if err != nil {
					return err
				}
				return resp.Body.Close()
			},
		}
	}

	// Give the HTTP server a moment to start listening.
	select {
	case <-ctx.Done():
		return
	case <-time.After(time.Second):
	}

	warmer := warmup.NewWarmer(warmup.DefaultConfig(), log.Logger)
	warmer.Run(ctx, []warmup.Task{
		get("/api/product?page=1"),
		get("/api/product?page=2"),
		get("/api/product/type"),
	})
}

func splitOrigins(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
