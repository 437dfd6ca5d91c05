// Package cache provides read-through caching for storefront queries.
//
// The cache manager implements the storefront caching policy:
//
// - Deterministic cache keys built from resource, operation and parameters
// - TTL-based expiry (entries past their TTL are never returned)
// - Coarse prefix-wide invalidation on every resource write
// - Graceful degradation: cache failures never fail the request
// - Prometheus metrics for observability
//
// # Basic Usage
//
//	// Create Redis store and manager
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//	manager := cache.NewManager(cache.NewRedisStore(redisClient))
//
//	// Build a key from the query parameters
//	key := cache.NewKey("products", "getAll").
//		WithInt("page", 1).
//		WithInt("limit", 8)
//
//	// Read through
//	var page ProductPage
//	if manager.Lookup(ctx, key, &page) {
//		return page, nil // cache hit
//	}
//	page, err := repo.List(ctx, filter) // source of truth
//	if err != nil {
//		return ProductPage{}, err
//	}
//	manager.Store(ctx, key, time.Hour, page)
//
// # Invalidation
//
// Writes invalidate the whole resource prefix before the response is sent:
//
//	if err := repo.Create(ctx, p); err != nil {
//		return err
//	}
//	manager.Invalidate(ctx, "products")
//
// This is deliberately coarse. It trades hit rate after writes for a simple
// consistency model: a client that reads after a successful write never
// observes stale cached data.
//
// # Metrics
//
// The cache manager exports Prometheus metrics:
//
//   - teleshop_cache_hits_total{prefix} - Cache hits
//   - teleshop_cache_misses_total{prefix} - Cache misses
//   - teleshop_cache_invalidations_total{prefix} - Prefix invalidations
//   - teleshop_cache_errors_total{operation} - Cache operation errors
package cache
