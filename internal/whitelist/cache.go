package whitelist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL bounds how stale a cached role listing may get before
// the next read goes back to the backend.
const DefaultCacheTTL = 300 * time.Second

// Cache is a write-through role-listing cache with an explicit TTL and
// explicit invalidation. Invalidation works by bumping a per-role version
// key so stale entries simply age out under their TTL. A nil Cache (redis
// not configured) is valid and passes every read straight to the loader.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache wraps client with the given TTL. ttl <= 0 selects the default.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) versionKey(role string) string {
	return "rosterd:wl:ver:" + role
}

// version returns the current cache version for role, initialising it on
// first use.
func (c *Cache) version(ctx context.Context, role string) (int64, error) {
	ver, err := c.client.Get(ctx, c.versionKey(role)).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, c.versionKey(role), 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// FetchIDs returns the cached identifier list for role, populating it via
// loader on a miss. force bypasses the cached value and refreshes it.
func (c *Cache) FetchIDs(ctx context.Context, role string, force bool, loader func(context.Context) ([]string, error)) ([]string, error) {
	if loader == nil {
		return nil, errors.New("whitelist: cache loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	ver, err := c.version(ctx, role)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("rosterd:wl:role:%s:%d", role, ver)
	if !force {
		payload, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			var ids []string
			if err := json.Unmarshal(payload, &ids); err == nil {
				return ids, nil
			}
		} else if err != redis.Nil {
			return nil, err
		}
	}
	ids, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// Bump invalidates role's cached listing by incrementing its version.
func (c *Cache) Bump(ctx context.Context, role string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, c.versionKey(role)).Err()
}
