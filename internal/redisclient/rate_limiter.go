package redisclient

import (
	"context"
	"time"
)

// RateLimiter is a fixed-window counter shared by every API instance.
type RateLimiter struct {
	client  *Client
	prefix  string
	limit   int
	window  time.Duration
	timeout time.Duration
}

func NewRateLimiter(client *Client, limit int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}

	return &RateLimiter{
		client:  client,
		prefix:  "discoveria:ratelimit:",
		limit:   limit,
		window:  window,
		timeout: 250 * time.Millisecond,
	}
}

// Allow counts one hit for key. It returns the time left in the window when the key is over its limit.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	if rl.limit <= 0 {
		return true, 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, rl.timeout)
	defer cancel()

	redisKey := rl.prefix + key

	counter, err := rl.client.redisdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return true, 0, err
	}

	if counter == 1 {
		if err := rl.client.redisdb.Expire(ctx, redisKey, rl.window).Err(); err != nil {
			return true, 0, err
		}
	}

	if int(counter) <= rl.limit {
		return true, 0, nil
	}

	ttl, err := rl.client.redisdb.TTL(ctx, redisKey).Result()
	if err != nil || ttl <= 0 {
		ttl = rl.window
	}
	return false, ttl, nil
}
