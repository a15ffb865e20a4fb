// Package metrics documents the Prometheus metrics of catalog-scroll and
// serves them. The metrics themselves are defined next to the code that
// records them (catalog, cache, ratelimit, pagination) and registered via
// promauto, which keeps this package free of import cycles.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the registerer all packages use through promauto.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the source Handler serves from.
var Gatherer = prometheus.DefaultGatherer

// Metrics Documentation
//
// Request Metrics (pkg/catalog):
//   - catalog_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - catalog_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - catalog_errors_total{class} (Counter): Errors by class (network, decode, client, server, rate_limit)
//
// Cache Metrics (pkg/cache):
//   - catalog_cache_hits_total{layer="redis"} (Counter): Cache hits
//   - catalog_cache_stale_hits_total (Counter): Stale pages returned for revalidation
//   - catalog_cache_misses_total (Counter): Cache misses
//   - catalog_cache_size_bytes{layer="redis"} (Gauge): Bytes stored by the last write
//   - catalog_304_responses_total (Counter): 304 Not Modified responses
//   - catalog_conditional_requests_total (Counter): Requests sent with If-None-Match/If-Modified-Since
//   - catalog_cache_errors_total{operation} (Counter): Cache operation errors
//
// Rate Limit Metrics (pkg/ratelimit):
//   - catalog_rate_limit_remaining (Gauge): Requests remaining in the current window
//   - catalog_rate_limit_blocks_total (Counter): Requests blocked below the critical threshold
//   - catalog_rate_limit_throttles_total (Counter): Requests delayed below the warning threshold
//
// Loader Metrics (pkg/pagination):
//   - catalog_loader_loads_total{outcome} (Counter): Load calls by outcome (skipped, appended, exhausted, failed, discarded)
//   - catalog_loader_items_appended_total (Counter): Items appended to item lists
//   - catalog_loader_fetch_errors_total{class} (Counter): Failed page fetches by error class
//   - catalog_loader_fetch_duration_seconds (Histogram): Page fetch duration seen by the loader
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(catalog_cache_hits_total[5m])) /
//   (sum(rate(catalog_cache_hits_total[5m])) + sum(rate(catalog_cache_misses_total[5m])))
//
//   # Share of loads that were suppressed by the in-flight gate
//   rate(catalog_loader_loads_total{outcome="skipped"}[5m]) / rate(catalog_loader_loads_total[5m])
//
//   # Failed pages by class
//   sum by (class) (rate(catalog_loader_fetch_errors_total[5m]))
//
//   # P95 Page Latency
//   histogram_quantile(0.95, rate(catalog_loader_fetch_duration_seconds_bucket[5m]))
