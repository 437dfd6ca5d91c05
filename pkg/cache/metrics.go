package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheHits tracks cache hits by resource prefix.
	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teleshop_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"prefix"},
	)

	// cacheMisses tracks cache misses by resource prefix.
	cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teleshop_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"prefix"},
	)

	// cacheInvalidations tracks prefix invalidations triggered by writes.
	cacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teleshop_cache_invalidations_total",
			Help: "Total number of prefix-wide cache invalidations",
		},
		[]string{"prefix"},
	)

	// cacheErrors tracks cache operation errors.
	cacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teleshop_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "decode", "invalidate"
	)
)
