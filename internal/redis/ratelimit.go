package redis

import (
	"context"
	"errors"
	"time"
)

var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// SimpleRateLimit is a fixed window rate limiter. Used to keep misbehaving
// webhook senders from hammering the ingestion endpoint; accuracy at window
// boundaries is not a concern there.
func (c *Client) SimpleRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	prefixedKey := c.prefixKey("ratelimit:" + key)

	count, err := c.rdb.Incr(ctx, prefixedKey).Result()
	if err != nil {
		return false, err
	}

	// Set expiry on first request
	if count == 1 {
		c.rdb.Expire(ctx, prefixedKey, window)
	}

	return count <= limit, nil
}
