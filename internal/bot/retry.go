package bot

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

// RetryConfig holds the configuration for send retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// retryConfigForErrorClass returns the retry configuration for an error class.
func retryConfigForErrorClass(class ErrorClass) RetryConfig {
	switch class {
	case ErrorClassFlood:
		// Telegram flood control asks for longer waits.
		return RetryConfig{
			MaxAttempts:       3,
			InitialBackoff:    3 * time.Second,
			MaxBackoff:        30 * time.Second,
			BackoffMultiplier: 2.0,
		}
	default:
		return DefaultRetryConfig()
	}
}

// retryWithBackoff executes a Telegram API call with exponential backoff.
// Client errors and context cancellation return immediately; flood and
// network errors are retried with jitter to avoid synchronized resends.
func retryWithBackoff(ctx context.Context, kind string, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}

	class := classifySendError(err)
	if !shouldRetry(class) {
		return err
	}

	config := retryConfigForErrorClass(class)
	backoff := config.InitialBackoff
	lastErr := err

	for attempt := 2; attempt <= config.MaxAttempts; attempt++ {
		botSendRetries.Inc()

		// ±20% jitter
		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))

		log.Debug().
			Str("kind", kind).
			Str("error_class", string(class)).
			Int("attempt", attempt).
			Dur("backoff", jitter).
			Msg("Retrying bot send after backoff")

		select {
		case <-ctx.Done():
			return fmt.Errorf("send cancelled: %w", ctx.Err())
		case <-time.After(jitter):
		}

		if err := fn(); err == nil {
			log.Info().
				Str("kind", kind).
				Int("attempt", attempt).
				Msg("Bot send succeeded after retry")
			return nil
		} else {
			lastErr = err
			class = classifySendError(err)
			if !shouldRetry(class) {
				return err
			}
		}

		backoff = time.Duration(float64(backoff) * config.BackoffMultiplier)
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}

	return fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, config.MaxAttempts, lastErr)
}
