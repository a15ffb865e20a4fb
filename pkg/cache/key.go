package cache

import (
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every cache key in Redis.
const KeyPrefix = "catalog"

// CacheKey identifies a cached catalog response.
type CacheKey struct {
	// Endpoint is the request path (e.g. "/products")
	Endpoint string

	// QueryParams are the query parameters (e.g. limit=10, skip=20)
	QueryParams url.Values
}

// String generates a deterministic cache key string.
//
// Example:
//
//	catalog:products:limit=10:skip=20
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	if endpoint := strings.Trim(k.Endpoint, "/"); endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.QueryParams) > 0 {
		names := make([]string, 0, len(k.QueryParams))
		for name := range k.QueryParams {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, name+"="+k.QueryParams.Get(name))
		}
	}

	return strings.Join(parts, ":")
}

// KeyFromURL builds the CacheKey for a request URL.
func KeyFromURL(u *url.URL) CacheKey {
	return CacheKey{
		Endpoint:    u.Path,
		QueryParams: u.Query(),
	}
}
