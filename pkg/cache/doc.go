// Package cache provides a Redis-backed response cache for catalog pages.
//
// The catalog answers GET /products?limit=N&skip=M with a page of items.
// Pages are cached under a deterministic key built from the endpoint and
// the sorted query string, and revalidated with conditional requests:
//
//   - ETag support (If-None-Match)
//   - Last-Modified support (If-Modified-Since)
//   - TTL from the Expires or Cache-Control max-age header, DefaultTTL otherwise
//   - Prometheus metrics for observability
//
// A page is fresh until it expires and is then served without a request.
// Stale pages with a validator stay in Redis for the revalidate window
// (DefaultRevalidateWindow) so a 304 can renew them.
//
// # Basic Usage
//
//	manager := cache.NewManager(redis.NewClient(&redis.Options{Addr: "localhost:6379"}))
//
//	key := cache.CacheKey{
//		Endpoint:    "/products",
//		QueryParams: url.Values{"limit": {"10"}, "skip": {"20"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the catalog, then:
//		entry, _ = cache.ResponseToEntry(resp)
//		_ = manager.Set(ctx, key, entry)
//	}
//
// # Conditional Requests
//
//	if entry.IsExpired() && cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//		// a 304 answer means entry.Data is still current:
//		_ = manager.UpdateTTL(ctx, key, cache.ExpiresFromHeaders(resp.Header))
//	}
//
// # Metrics
//
//   - catalog_cache_hits_total{layer="redis"}
//   - catalog_cache_stale_hits_total
//   - catalog_cache_misses_total
//   - catalog_cache_size_bytes{layer="redis"}
//   - catalog_304_responses_total
//   - catalog_conditional_requests_total
//   - catalog_cache_errors_total{operation}
package cache
