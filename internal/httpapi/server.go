// Package httpapi exposes the REST surface consumed by the web app:
// product, type and order resources with read-through caching, user
// authentication and the cart-submission endpoint driving the bot
// confirmation flow.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/velikanov/teleshop/internal/orders"
	"github.com/velikanov/teleshop/internal/store"
	"github.com/velikanov/teleshop/pkg/cache"
)

// Cache TTLs per resource. Single-product detail lives longer than
// listings because it changes less often.
const (
	listTTL          = time.Hour
	productDetailTTL = 2 * time.Hour
)

// Config carries the server dependencies and settings.
type Config struct {
	Products     *store.ProductRepository
	Types        *store.TypeRepository
	Users        *store.UserRepository
	Orders       *orders.Service
	Orchestrator *orders.Orchestrator
	Cache        *cache.Manager
	JWTSecret    string
	CORSOrigins  []string
	Logger       zerolog.Logger
}

// Server is the HTTP API.
type Server struct {
	products     *store.ProductRepository
	types        *store.TypeRepository
	users        *store.UserRepository
	orders       *orders.Service
	orchestrator *orders.Orchestrator
	cache        *cache.Manager
	jwtSecret    []byte
	corsOrigins  []string
	logger       zerolog.Logger
}

// NewServer creates a Server from its dependencies.
func NewServer(cfg Config) *Server {
	if cfg.Cache == nil {
		panic("httpapi: cache manager must not be nil")
	}
	return &Server{
		products:     cfg.Products,
		types:        cfg.Types,
		users:        cfg.Users,
		orders:       cfg.Orders,
		orchestrator: cfg.Orchestrator,
		cache:        cfg.Cache,
		jwtSecret:    []byte(cfg.JWTSecret),
		corsOrigins:  cfg.CORSOrigins,
		logger:       cfg.Logger.With().Str("component", "http").Logger(),
	}
}

// Router builds the gin engine with all routes and middleware mounted.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(requestIDMiddleware())
	r.Use(recoveryMiddleware(s.logger))
	r.Use(loggingMiddleware(s.logger))
	r.Use(metricsMiddleware())

	corsConfig := cors.DefaultConfig()
	if len(s.corsOrigins) > 0 {
		corsConfig.AllowOrigins = s.corsOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowCredentials = len(s.corsOrigins) > 0
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", "X-Request-ID")
	r.Use(cors.New(corsConfig))

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/web-data", s.handleWebData)

	api := r.Group("/api")
	{
		product := api.Group("/product")
		{
			// "/type" is nested under "/product" the way the web app
			// expects it; register it before the ":id" wildcard.
			typ := product.Group("/type")
			{
				typ.GET("", s.handleTypeList)
				typ.POST("", s.authRequired(), s.adminOnly(), s.handleTypeCreate)
				typ.PUT("/:id", s.authRequired(), s.adminOnly(), s.handleTypeUpdate)
				typ.DELETE("/:id", s.authRequired(), s.adminOnly(), s.handleTypeDelete)
			}

			product.GET("", s.handleProductList)
			product.GET("/:id", s.handleProductGet)
			product.POST("", s.authRequired(), s.adminOnly(), s.handleProductCreate)
			product.PUT("/:id", s.authRequired(), s.adminOnly(), s.handleProductUpdate)
			product.DELETE("/:id", s.authRequired(), s.adminOnly(), s.handleProductDelete)
		}

		order := api.Group("/order")
		{
			order.GET("", s.authOptional(), s.handleOrderList)
			order.GET("/:id", s.handleOrderGet)
			order.POST("", s.handleOrderCreate)
			order.PUT("/:id/status", s.authRequired(), s.adminOnly(), s.handleOrderUpdateStatus)
		}

		user := api.Group("/user")
		{
			user.POST("/register", s.handleUserRegister)
			user.POST("/login", s.handleUserLogin)
			user.GET("/auth", s.authRequired(), s.handleUserAuth)
		}
	}

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK", "message": "Server is running"})
}
