package rediscache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/featurekit/pkg/featurestore"
)

// Cache implements featurestore.Cache over a Redis client. One feature-map
// envelope is stored per key; TTLs are enforced by Redis key expiry.
type Cache struct {
	db redis.UniversalClient
}

// New creates a Redis-backed feature cache.
func New(client redis.UniversalClient) *Cache {
	return &Cache{db: client}
}

// Get returns the payload for a key, or featurestore.ErrCacheMiss when the
// key is absent or expired.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.db.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, featurestore.ErrCacheMiss
	}
	if err != nil {
		return nil, errors.Join(featurestore.ErrCacheUnavailable, err)
	}
	return val, nil
}

// Set stores a payload with an expiry. Zero TTL means no expiry.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.db.Set(ctx, key, value, ttl).Err(); err != nil {
		return errors.Join(featurestore.ErrCacheUnavailable, err)
	}
	return nil
}

// MGet fetches many keys in one round trip, omitting absent ones.
func (c *Cache) MGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	if len(keys) == 0 {
		return map[string][]byte{}, nil
	}

	vals, err := c.db.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Join(featurestore.ErrCacheUnavailable, err)
	}

	result := make(map[string][]byte, len(keys))
	for i, val := range vals {
		// MGET returns nil for absent keys and strings for present ones.
		if s, ok := val.(string); ok {
			result[keys[i]] = []byte(s)
		}
	}
	return result, nil
}

// Delete removes a key. Deleting an absent key is a no-op.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.db.Del(ctx, key).Err(); err != nil {
		return errors.Join(featurestore.ErrCacheUnavailable, err)
	}
	return nil
}

// Ping probes cache connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.db.Ping(ctx).Err(); err != nil {
		return errors.Join(featurestore.ErrCacheUnavailable, err)
	}
	return nil
}
