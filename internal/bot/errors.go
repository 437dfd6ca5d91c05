package bot

import (
	"context"
	"errors"
	"strings"
)

// ErrRetryExhausted is returned when all send retry attempts are exhausted.
var ErrRetryExhausted = errors.New("retry attempts exhausted")

// ErrorClass represents a classification of Telegram API errors.
type ErrorClass string

const (
	// ErrorClassClient represents errors that will not succeed on retry
	// (bad request, blocked bot, unknown chat).
	ErrorClassClient ErrorClass = "client"

	// ErrorClassFlood represents Telegram flood control (429).
	ErrorClassFlood ErrorClass = "flood"

	// ErrorClassNetwork represents network/timeout/server errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassCancelled represents context cancellation.
	ErrorClassCancelled ErrorClass = "cancelled"
)

// classifySendError buckets a Telegram API error for retry decisions.
// The Bot API reports most failures as string descriptions, so the
// classification matches on the well-known phrases.
func classifySendError(err error) ErrorClass {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassCancelled
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "too many requests"):
		return ErrorClassFlood
	case strings.Contains(msg, "bad request"),
		strings.Contains(msg, "forbidden"),
		strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "chat not found"),
		strings.Contains(msg, "query is too old"):
		return ErrorClassClient
	default:
		return ErrorClassNetwork
	}
}

// shouldRetry determines if an error class is worth another attempt.
func shouldRetry(class ErrorClass) bool {
	switch class {
	case ErrorClassFlood, ErrorClassNetwork:
		return true
	default:
		return false
	}
}
