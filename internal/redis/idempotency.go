package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrKeyExists = errors.New("idempotency key already exists")

// API-level idempotency for CreatePayment. A client retrying with the same
// Idempotency-Key header gets the cached response instead of a second
// transaction. This is separate from the webhook idempotency ledger, which
// lives in Postgres next to the mutation it guards.

// MarkIdempotencyComplete stores the response so duplicate requests can be
// answered without re-running the operation.
func (c *Client) MarkIdempotencyComplete(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	prefixedKey := c.prefixKey("idempotency:" + key)

	return c.rdb.Set(ctx, prefixedKey, response, ttl).Err()
}

// MarkIdempotencyFailed clears the key so the client may retry.
func (c *Client) MarkIdempotencyFailed(ctx context.Context, key string) error {
	prefixedKey := c.prefixKey("idempotency:" + key)

	return c.rdb.Del(ctx, prefixedKey).Err()
}

// CheckAndSetIdempotency claims the key for this request, or returns the
// cached response if a previous request already completed. Returns
// ErrKeyExists while the first request is still in flight.
func (c *Client) CheckAndSetIdempotency(ctx context.Context, key string, ttl time.Duration) ([]byte, error) {
	prefixedKey := c.prefixKey("idempotency:" + key)

	set, err := c.rdb.SetNX(ctx, prefixedKey, "pending", ttl).Result()
	if err != nil {
		return nil, err
	}

	if set {
		return nil, nil
	}

	val, err := c.rdb.Get(ctx, prefixedKey).Result()
	if errors.Is(err, redis.Nil) {
		// Key expired between SetNX and Get, treat as still in flight.
		return nil, ErrKeyExists
	}
	if err != nil {
		return nil, err
	}

	if val == "pending" {
		return nil, ErrKeyExists
	}

	return []byte(val), nil
}
