package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

// GetCached reads a cached value. Returns ErrCacheMiss when absent.
func (c *Client) GetCached(ctx context.Context, key string) ([]byte, error) {
	val, err := c.rdb.Get(ctx, c.prefixKey("cache:"+key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return val, err
}

// SetCached stores a value with a TTL.
func (c *Client) SetCached(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, c.prefixKey("cache:"+key), value, ttl).Err()
}

// InvalidateCached drops a cached value.
func (c *Client) InvalidateCached(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, c.prefixKey("cache:"+key)).Err()
}
