package bot

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestClassifySendError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"context canceled", context.Canceled, ErrorClassCancelled},
		{"deadline exceeded", context.DeadlineExceeded, ErrorClassCancelled},
		{"wrapped cancellation", fmt.Errorf("send: %w", context.Canceled), ErrorClassCancelled},
		{"flood control", errors.New("Too Many Requests: retry after 5"), ErrorClassFlood},
		{"bad request", errors.New("Bad Request: message text is empty"), ErrorClassClient},
		{"blocked bot", errors.New("Forbidden: bot was blocked by the user"), ErrorClassClient},
		{"unknown chat", errors.New("Bad Request: chat not found"), ErrorClassClient},
		{"stale callback", errors.New("Bad Request: query is too old and response timeout expired"), ErrorClassClient},
		{"connection reset", errors.New("read tcp: connection reset by peer"), ErrorClassNetwork},
		{"server error", errors.New("Internal Server Error"), ErrorClassNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifySendError(tt.err); got != tt.want {
				t.Errorf("classifySendError(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		class ErrorClass
		want  bool
	}{
		{ErrorClassFlood, true},
		{ErrorClassNetwork, true},
		{ErrorClassClient, false},
		{ErrorClassCancelled, false},
	}
	for _, tt := range tests {
		if got := shouldRetry(tt.class); got != tt.want {
			t.Errorf("shouldRetry(%q) = %v, want %v", tt.class, got, tt.want)
		}
	}
}

func TestRetryWithBackoff_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), "test", func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryWithBackoff_ClientErrorNotRetried(t *testing.T) {
	calls := 0
	sendErr := errors.New("Bad Request: chat not found")
	err := retryWithBackoff(context.Background(), "test", func() error {
		calls++
		return sendErr
	})
	if !errors.Is(err, sendErr) {
		t.Errorf("err = %v, want the original send error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryWithBackoff_NetworkErrorRetried(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), "test", func() error {
		calls++
		if calls < 2 {
			return errors.New("connection reset by peer")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRetryWithBackoff_Exhaustion(t *testing.T) {
	if testing.Short() {
		t.Skip("waits out two backoff windows")
	}
	calls := 0
	err := retryWithBackoff(context.Background(), "test", func() error {
		calls++
		return errors.New("connection reset by peer")
	})
	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("err = %v, want ErrRetryExhausted", err)
	}
	if calls != DefaultRetryConfig().MaxAttempts {
		t.Errorf("calls = %d, want %d", calls, DefaultRetryConfig().MaxAttempts)
	}
}

func TestRetryWithBackoff_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	err := retryWithBackoff(ctx, "test", func() error {
		calls++
		return errors.New("connection reset by peer")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
