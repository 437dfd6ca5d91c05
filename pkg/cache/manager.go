package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Manager is the read-through cache wrapper used by the resource handlers.
//
// The cache is an optimization layer, never a consistency boundary: every
// method degrades gracefully. A store outage, a corrupted payload or a
// payload that no longer decodes into the caller's type are all reported
// as misses, and write failures only cost the next reader a database trip.
// No single-flight de-duplication is performed; two concurrent identical
// misses both query the database and both populate, which is accepted.
type Manager struct {
	store  Store
	logger zerolog.Logger
}

// NewManager creates a cache manager over the given store.
func NewManager(store Store) *Manager {
	if store == nil {
		panic("cache store cannot be nil")
	}
	return &Manager{
		store:  store,
		logger: log.With().Str("component", "cache").Logger(),
	}
}

// SetLogger replaces the manager logger.
func (m *Manager) SetLogger(logger zerolog.Logger) {
	m.logger = logger.With().Str("component", "cache").Logger()
}

// Lookup attempts to decode the cached value for key into dest.
// It returns false on a miss, an expired entry, a store error or a payload
// that fails to decode; callers fall through to the database in every case.
func (m *Manager) Lookup(ctx context.Context, key *Key, dest any) bool {
	cacheKey := key.String()

	data, err := m.store.Get(ctx, cacheKey)
	if err != nil {
		if err == ErrMiss {
			cacheMisses.WithLabelValues(key.Prefix).Inc()
			return false
		}
		cacheErrors.WithLabelValues("get").Inc()
		m.logger.Warn().Err(err).Str("key", cacheKey).Msg("Cache get failed, treating as miss")
		return false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		cacheErrors.WithLabelValues("decode").Inc()
		m.logger.Warn().Err(err).Str("key", cacheKey).Msg("Corrupted cache entry, treating as miss")
		return false
	}

	if entry.IsExpired() {
		// best effort; the store's own TTL removes it eventually
		_ = m.store.Delete(ctx, cacheKey)
		cacheMisses.WithLabelValues(key.Prefix).Inc()
		return false
	}

	if err := json.Unmarshal(entry.Payload, dest); err != nil {
		cacheErrors.WithLabelValues("decode").Inc()
		m.logger.Warn().Err(err).Str("key", cacheKey).Msg("Cache payload does not decode, treating as miss")
		return false
	}

	cacheHits.WithLabelValues(key.Prefix).Inc()
	m.logger.Debug().Str("key", cacheKey).Msg("Cache hit")
	return true
}

// Store serializes value and caches it under key with the given TTL.
// Returns false when the write failed; failures are logged and swallowed,
// the surrounding request must still succeed from the source of truth.
func (m *Manager) Store(ctx context.Context, key *Key, ttl time.Duration, value any) bool {
	if ttl <= 0 {
		return false
	}
	cacheKey := key.String()

	payload, err := json.Marshal(value)
	if err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		m.logger.Warn().Err(err).Str("key", cacheKey).Msg("Cache value does not serialize")
		return false
	}

	entry := NewEntry(payload, ttl)
	data, err := json.Marshal(entry)
	if err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		m.logger.Warn().Err(err).Str("key", cacheKey).Msg("Cache entry does not serialize")
		return false
	}

	if err := m.store.Set(ctx, cacheKey, data, ttl); err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		m.logger.Warn().Err(err).Str("key", cacheKey).Msg("Cache set failed")
		return false
	}

	m.logger.Debug().Str("key", cacheKey).Dur("ttl", ttl).Msg("Cached")
	return true
}

// Invalidate synchronously removes every entry under the resource prefix.
// Mutating handlers call this after the write commits and before the HTTP
// response is sent, so a read issued after a successful write never sees
// stale cached data. Store failures are logged and swallowed.
func (m *Manager) Invalidate(ctx context.Context, prefix string) {
	deleted, err := m.store.DeleteByPrefix(ctx, prefix)
	if err != nil {
		cacheErrors.WithLabelValues("invalidate").Inc()
		m.logger.Warn().Err(err).Str("prefix", prefix).Msg("Cache invalidation failed")
		return
	}

	cacheInvalidations.WithLabelValues(prefix).Inc()
	m.logger.Debug().Str("prefix", prefix).Int("keys", deleted).Msg("Cache invalidated")
}
