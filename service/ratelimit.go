package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisRateLimiter counts wagers per account in fixed windows backed by Redis.
// The counter key carries the window bucket, so old buckets expire on their
// own and no cleanup pass is needed.
type redisRateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRedisRateLimiter creates a rate limiter over the given Redis client
func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration) RateLimiter {
	return &redisRateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Allow reports whether the account may place another wager right now.
// Errors are returned for the caller to decide; intake fails open on them.
func (l *redisRateLimiter) Allow(ctx context.Context, accountID int64) (bool, error) {
	bucket := time.Now().Unix() / int64(l.window.Seconds())
	key := fmt.Sprintf("wager_rl:%d:%d", bucket, accountID)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return true, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return true, fmt.Errorf("failed to set rate limit expiry: %w", err)
		}
	}

	return count <= int64(l.limit), nil
}
