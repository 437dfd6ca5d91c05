// Package metrics documents the Prometheus metrics exported by teleshop.
// Metrics are defined in their owning packages (pkg/cache, internal/bot,
// internal/httpapi) to keep them next to the code that drives them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the service.
// All metrics are automatically registered via promauto in their packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - teleshop_cache_hits_total{prefix} (Counter): Cache hits by resource prefix
//   - teleshop_cache_misses_total{prefix} (Counter): Cache misses by resource prefix
//   - teleshop_cache_invalidations_total{prefix} (Counter): Prefix-wide invalidations
//   - teleshop_cache_errors_total{operation} (Counter): Cache operation errors
//
// Bot Metrics (internal/bot):
//   - teleshop_bot_sends_total{kind, status} (Counter): Outbound bot API calls
//   - teleshop_bot_send_retries_total (Counter): Bot send retry attempts
//   - teleshop_bot_active_chats (Gauge): Chats with an in-flight handler
//
// HTTP Metrics (internal/httpapi):
//   - teleshop_http_requests_total{method, path, status} (Counter)
//   - teleshop_http_request_duration_seconds{method, path} (Histogram)
//
// Example Prometheus Queries:
//
//   # Cache hit rate per resource
//   sum by (prefix) (rate(teleshop_cache_hits_total[5m])) /
//   (sum by (prefix) (rate(teleshop_cache_hits_total[5m]))
//    + sum by (prefix) (rate(teleshop_cache_misses_total[5m])))
//
//   # Bot delivery failures
//   rate(teleshop_bot_sends_total{status="error"}[5m])
//
//   # P95 API latency
//   histogram_quantile(0.95, rate(teleshop_http_request_duration_seconds_bucket[5m]))
