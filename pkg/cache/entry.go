// Package cache provides the read-through cache layer for storefront
// queries with a Redis backend and TTL-based expiry.
package cache

import (
	"encoding/json"
	"time"
)

// Entry represents a cached query result.
//
// The payload is stored together with its expiry so that a read after the
// TTL has elapsed is a miss even when the backing store's own expiry lags
// (the in-memory store sweeps periodically, Redis may serve a key a moment
// past its TTL under load).
type Entry struct {
	// Payload is the JSON-serialized query result.
	Payload json.RawMessage `json:"payload"`

	// CachedAt is when the entry was written.
	CachedAt time.Time `json:"cached_at"`

	// Expires is when the entry becomes stale.
	Expires time.Time `json:"expires"`
}

// NewEntry creates an entry expiring ttl from now.
func NewEntry(payload []byte, ttl time.Duration) *Entry {
	now := time.Now()
	return &Entry{
		Payload:  payload,
		CachedAt: now,
		Expires:  now.Add(ttl),
	}
}

// IsExpired returns true if the entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
