package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores entries in Redis so multiple processes (or a server
// and its workers) share one result cache. Expiry is delegated to Redis
// key TTLs.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache creates a Redis-backed cache on an existing client. The
// cache takes ownership of the client; Close closes it.
func NewRedisCache(rdb *redis.Client) Cache {
	return &RedisCache{rdb: rdb}
}

// Get retrieves a value. An absent key reports a miss, not an error.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores a value with the given ttl. A ttl of 0 stores it without
// expiry.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

// Delete removes a value. An absent key is not an error.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

// Ensure RedisCache implements Cache.
var _ Cache = (*RedisCache)(nil)
