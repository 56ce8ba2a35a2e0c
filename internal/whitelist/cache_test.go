package whitelist

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestCacheFetchIDsCachesLoaderResult(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	calls := 0
	loader := func(context.Context) ([]string, error) {
		calls++
		return []string{"76561198000000001"}, nil
	}

	for i := 0; i < 3; i++ {
		ids, err := cache.FetchIDs(ctx, "ADMIN", false, loader)
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if len(ids) != 1 || ids[0] != "76561198000000001" {
			t.Fatalf("unexpected ids: %v", ids)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one loader call, got %d", calls)
	}
}

func TestCacheForceRefreshBypassesCachedValue(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	calls := 0
	loader := func(context.Context) ([]string, error) {
		calls++
		return []string{"76561198000000001"}, nil
	}
	if _, err := cache.FetchIDs(ctx, "ADMIN", false, loader); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if _, err := cache.FetchIDs(ctx, "ADMIN", true, loader); err != nil {
		t.Fatalf("force fetch: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected loader to run again under force, got %d calls", calls)
	}
}

func TestCacheBumpInvalidates(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	value := []string{"76561198000000001"}
	calls := 0
	loader := func(context.Context) ([]string, error) {
		calls++
		return value, nil
	}
	if _, err := cache.FetchIDs(ctx, "ALL", false, loader); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if err := cache.Bump(ctx, "ALL"); err != nil {
		t.Fatalf("bump: %v", err)
	}
	value = []string{"76561198000000001", "76561198000000002"}
	ids, err := cache.FetchIDs(ctx, "ALL", false, loader)
	if err != nil {
		t.Fatalf("fetch after bump: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected refreshed listing, got %v", ids)
	}
	if calls != 2 {
		t.Fatalf("expected 2 loader calls, got %d", calls)
	}
}

func TestCacheEntriesExpire(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	calls := 0
	loader := func(context.Context) ([]string, error) {
		calls++
		return []string{"76561198000000001"}, nil
	}
	if _, err := cache.FetchIDs(ctx, "CAS", false, loader); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := cache.FetchIDs(ctx, "CAS", false, loader); err != nil {
		t.Fatalf("fetch after expiry: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected reload after TTL, got %d calls", calls)
	}
}

func TestNilCachePassesThrough(t *testing.T) {
	var cache *Cache
	ids, err := cache.FetchIDs(context.Background(), "ADMIN", false, func(context.Context) ([]string, error) {
		return []string{"76561198000000001"}, nil
	})
	if err != nil {
		t.Fatalf("nil cache fetch: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("unexpected ids: %v", ids)
	}
	if err := cache.Bump(context.Background(), "ADMIN"); err != nil {
		t.Fatalf("nil cache bump: %v", err)
	}
}
