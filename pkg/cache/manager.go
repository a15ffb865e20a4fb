package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the page is not cached, or went stale without a
	// validator to revalidate it with.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the stored page could not be decoded.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// DefaultRevalidateWindow is how long a page with a validator stays in Redis
// after it went stale.
const DefaultRevalidateWindow = 10 * time.Minute

// Manager stores catalog pages in Redis.
//
// A page is fresh until its Expires time and is served without asking the
// catalog. After that it is stale: pages carrying an ETag or Last-Modified
// are kept for the revalidate window so a conditional request can renew them
// with a 304. Pages without a validator leave Redis as soon as they expire.
type Manager struct {
	redis  *redis.Client
	window time.Duration
}

// NewManager creates a page cache on redisClient using DefaultRevalidateWindow.
func NewManager(redisClient *redis.Client) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Manager{
		redis:  redisClient,
		window: DefaultRevalidateWindow,
	}
}

// SetRevalidateWindow changes how long stale pages are kept. Zero drops pages
// on expiry.
func (m *Manager) SetRevalidateWindow(d time.Duration) {
	if d < 0 {
		d = 0
	}
	m.window = d
}

// RevalidateWindow returns how long stale pages are kept.
func (m *Manager) RevalidateWindow() time.Duration {
	return m.window
}

// Get returns the cached page for key, fresh or stale. Callers check
// IsExpired to tell the two apart.
func (m *Manager) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	entry, err := m.load(ctx, key, "get")
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			CacheMisses.Inc()
		}
		return nil, err
	}

	if !entry.IsExpired() {
		CacheHits.WithLabelValues("redis").Inc()
		return entry, nil
	}

	if !ShouldMakeConditionalRequest(entry) {
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	StaleHits.Inc()
	return entry, nil
}

// Set stores a page. Fresh pages live in Redis for their remaining freshness
// plus the revalidate window when they carry a validator. A page that is
// already stale is only stored if it can be revalidated.
func (m *Manager) Set(ctx context.Context, key CacheKey, entry *CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := m.storageTTL(entry)
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheSize.WithLabelValues("redis").Add(float64(len(data)))
	return nil
}

// Delete removes a cached page.
func (m *Manager) Delete(ctx context.Context, key CacheKey) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// UpdateTTL renews a cached page after the catalog answered 304 Not
// Modified. Stale pages are renewed too.
func (m *Manager) UpdateTTL(ctx context.Context, key CacheKey, newExpires time.Time) error {
	entry, err := m.load(ctx, key, "update")
	if err != nil {
		return err
	}

	entry.Expires = newExpires
	return m.Set(ctx, key, entry)
}

func (m *Manager) storageTTL(entry *CacheEntry) time.Duration {
	ttl := entry.TTL()
	if ShouldMakeConditionalRequest(entry) {
		ttl += m.window
	}
	return ttl
}

func (m *Manager) load(ctx context.Context, key CacheKey, op string) (*CacheEntry, error) {
	data, err := m.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues(op).Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues(op).Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return &entry, nil
}
