package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMiss indicates the requested key was not found in the store.
	ErrMiss = errors.New("cache miss")
)

// Store is the key-value backend behind the cache manager.
//
// Implementations must treat an absent key as ErrMiss, not as an error
// condition: the manager relies on that distinction for its metrics and
// the callers fall through to the database either way.
type Store interface {
	// Get returns the raw bytes stored under key, or ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores data under key with the given TTL.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a single key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// DeleteByPrefix removes every key starting with "prefix:" and
	// returns the number of keys removed.
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}
