package cache

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// setupTestRedis starts an in-memory Redis for the test.
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
	})

	return client, mr
}

func pageKey(skip string) CacheKey {
	return CacheKey{
		Endpoint:    "/products",
		QueryParams: url.Values{"limit": {"10"}, "skip": {skip}},
	}
}

func TestNewManager_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewManager should panic with nil redis client")
		}
	}()
	NewManager(nil)
}

func TestManager_SetAndGet(t *testing.T) {
	client, mr := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	entry := &CacheEntry{
		Data:         []byte(`{"products":[{"id":1}]}`),
		ETag:         `W/"abc123"`,
		Expires:      time.Now().Add(5 * time.Minute),
		LastModified: time.Now().Add(-1 * time.Hour),
		StatusCode:   200,
		Headers:      http.Header{"Content-Type": []string{"application/json"}},
		CachedAt:     time.Now(),
	}

	if err := manager.Set(ctx, pageKey("0"), entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if !mr.Exists("catalog:products:limit=10:skip=0") {
		t.Fatal("expected key catalog:products:limit=10:skip=0 in redis")
	}
	// validator present: freshness plus the revalidate window
	if ttl := mr.TTL("catalog:products:limit=10:skip=0"); ttl <= 5*time.Minute-time.Second || ttl > 5*time.Minute+DefaultRevalidateWindow {
		t.Errorf("redis TTL = %v, want about 5m + %v", ttl, DefaultRevalidateWindow)
	}

	got, err := manager.Get(ctx, pageKey("0"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got.Data) != string(entry.Data) {
		t.Errorf("Data = %s, want %s", got.Data, entry.Data)
	}
	if got.ETag != entry.ETag {
		t.Errorf("ETag = %s, want %s", got.ETag, entry.ETag)
	}
	if got.StatusCode != entry.StatusCode {
		t.Errorf("StatusCode = %d, want %d", got.StatusCode, entry.StatusCode)
	}
}

func TestManager_Get_CacheMiss(t *testing.T) {
	client, _ := setupTestRedis(t)
	manager := NewManager(client)

	_, err := manager.Get(context.Background(), pageKey("90"))
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestManager_Get_InvalidEntry(t *testing.T) {
	client, mr := setupTestRedis(t)
	manager := NewManager(client)

	if err := mr.Set(pageKey("0").String(), "not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := manager.Get(context.Background(), pageKey("0"))
	if !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Expected ErrInvalidEntry, got %v", err)
	}
}

func TestManager_Set_ExpiredEntryNotStored(t *testing.T) {
	client, mr := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	entry := &CacheEntry{
		Data:    []byte(`{"products":[]}`),
		Expires: time.Now().Add(-1 * time.Hour),
	}

	if err := manager.Set(ctx, pageKey("0"), entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if mr.Exists(pageKey("0").String()) {
		t.Error("expired entry should not be written to redis")
	}

	if _, err := manager.Get(ctx, pageKey("0")); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss for expired entry, got %v", err)
	}
}

func TestManager_StoredTTL(t *testing.T) {
	tests := []struct {
		name    string
		etag    string
		expires time.Duration
		window  time.Duration
		wantMin time.Duration
		wantMax time.Duration
		stored  bool
	}{
		{"fresh without validator", "", 5 * time.Minute, DefaultRevalidateWindow, 4 * time.Minute, 5 * time.Minute, true},
		{"fresh with validator", `W/"p0"`, 5 * time.Minute, time.Minute, 5 * time.Minute, 6 * time.Minute, true},
		{"stale with validator", `W/"p0"`, -time.Minute, 2 * time.Minute, time.Minute, 2 * time.Minute, true},
		{"stale without validator", "", -time.Minute, DefaultRevalidateWindow, 0, 0, false},
		{"stale with validator, no window", `W/"p0"`, -time.Minute, 0, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, mr := setupTestRedis(t)
			manager := NewManager(client)
			manager.SetRevalidateWindow(tt.window)

			entry := &CacheEntry{
				Data:    []byte(`{"products":[]}`),
				ETag:    tt.etag,
				Expires: time.Now().Add(tt.expires),
			}
			if err := manager.Set(context.Background(), pageKey("0"), entry); err != nil {
				t.Fatalf("Set failed: %v", err)
			}

			key := pageKey("0").String()
			if got := mr.Exists(key); got != tt.stored {
				t.Fatalf("stored = %v, want %v", got, tt.stored)
			}
			if !tt.stored {
				return
			}
			if ttl := mr.TTL(key); ttl < tt.wantMin || ttl > tt.wantMax {
				t.Errorf("redis TTL = %v, want [%v, %v]", ttl, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestManager_Get_StaleEntryKeptForRevalidation(t *testing.T) {
	client, _ := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	entry := &CacheEntry{
		Data:    []byte(`{"products":[{"id":11}]}`),
		ETag:    `W/"products-10-10"`,
		Expires: time.Now().Add(-30 * time.Second),
	}
	if err := manager.Set(ctx, pageKey("10"), entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := manager.Get(ctx, pageKey("10"))
	if err != nil {
		t.Fatalf("Get on stale entry = %v, want the entry", err)
	}
	if !got.IsExpired() {
		t.Error("stale entry reported as fresh")
	}
	if got.ETag != entry.ETag {
		t.Errorf("ETag = %s, want %s", got.ETag, entry.ETag)
	}

	// 304 renews it
	renewed := time.Now().Add(time.Minute)
	if err := manager.UpdateTTL(ctx, pageKey("10"), renewed); err != nil {
		t.Fatalf("UpdateTTL on stale entry failed: %v", err)
	}
	got, err = manager.Get(ctx, pageKey("10"))
	if err != nil {
		t.Fatalf("Get after UpdateTTL failed: %v", err)
	}
	if got.IsExpired() {
		t.Error("entry still stale after UpdateTTL")
	}
	if string(got.Data) != string(entry.Data) {
		t.Errorf("Data = %s, want %s", got.Data, entry.Data)
	}
}

func TestManager_Delete(t *testing.T) {
	client, _ := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	entry := &CacheEntry{
		Data:    []byte(`{"products":[]}`),
		Expires: time.Now().Add(5 * time.Minute),
	}

	if err := manager.Set(ctx, pageKey("10"), entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := manager.Delete(ctx, pageKey("10")); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := manager.Get(ctx, pageKey("10")); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss after Delete, got %v", err)
	}
}

func TestManager_UpdateTTL(t *testing.T) {
	client, _ := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	entry := &CacheEntry{
		Data:    []byte(`{"products":[]}`),
		Expires: time.Now().Add(5 * time.Minute),
	}
	if err := manager.Set(ctx, pageKey("0"), entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	newExpires := time.Now().Add(10 * time.Minute)
	if err := manager.UpdateTTL(ctx, pageKey("0"), newExpires); err != nil {
		t.Fatalf("UpdateTTL failed: %v", err)
	}

	got, err := manager.Get(ctx, pageKey("0"))
	if err != nil {
		t.Fatalf("Get after UpdateTTL failed: %v", err)
	}
	if diff := got.Expires.Sub(newExpires); diff < -time.Second || diff > time.Second {
		t.Errorf("Expires = %v, want %v (diff: %v)", got.Expires, newExpires, diff)
	}
}

func TestManager_UpdateTTL_Missing(t *testing.T) {
	client, _ := setupTestRedis(t)
	manager := NewManager(client)

	err := manager.UpdateTTL(context.Background(), pageKey("0"), time.Now().Add(time.Minute))
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("UpdateTTL on missing key = %v, want ErrCacheMiss", err)
	}
}

func TestManager_Set_NilEntry(t *testing.T) {
	client, _ := setupTestRedis(t)
	manager := NewManager(client)

	if err := manager.Set(context.Background(), pageKey("0"), nil); err == nil {
		t.Error("Set with nil entry should return error")
	}
}

func TestManager_RedisDown(t *testing.T) {
	client, mr := setupTestRedis(t)
	manager := NewManager(client)
	mr.Close()

	_, err := manager.Get(context.Background(), pageKey("0"))
	if err == nil || errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get with redis down = %v, want a redis error", err)
	}
}
