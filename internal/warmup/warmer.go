// Package warmup pre-populates the cache with the first pages of the
// product and type listings at startup, so the first storefront visitors
// hit warm entries instead of racing each other into the database.
package warmup

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Task is one cache-population unit. Tasks go through the same
// read-through path as live requests, so a warmed entry is byte-identical
// to one populated by traffic.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Config holds warmer configuration.
type Config struct {
	// MaxConcurrency is the number of parallel warmup workers.
	MaxConcurrency int
	// Timeout per task.
	Timeout time.Duration
}

// DefaultConfig returns a conservative configuration: warmup competes
// with live traffic for database connections.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        10 * time.Second,
	}
}

// Warmer runs warmup tasks through a small worker pool.
type Warmer struct {
	config Config
	logger zerolog.Logger
}

// NewWarmer creates a Warmer.
func NewWarmer(config Config, logger zerolog.Logger) *Warmer {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &Warmer{
		config: config,
		logger: logger.With().Str("component", "warmup").Logger(),
	}
}

// Run executes all tasks and returns the number that succeeded. Failures
// are logged and skipped; warmup is an optimization, never a startup
// blocker.
func (w *Warmer) Run(ctx context.Context, tasks []Task) int {
	if len(tasks) == 0 {
		return 0
	}
	start := time.Now()

	queue := make(chan Task, len(tasks))
	for _, task := range tasks {
		queue <- task
	}
	close(queue)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < w.config.MaxConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range queue {
				select {
				case <-ctx.Done():
					return
				default:
				}

				taskCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
				err := task.Run(taskCtx)
				cancel()

				if err != nil {
					w.logger.Warn().
						Err(err).
						Str("task", task.Name).
						Msg("Warmup task failed")
					continue
				}
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	w.logger.Info().
		Int("succeeded", succeeded).
		Int("total", len(tasks)).
		Dur("duration", time.Since(start)).
		Msg("Cache warmup complete")
	return succeeded
}
