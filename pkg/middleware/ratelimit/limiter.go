package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit"

// fixedWindowScript increments the window counter and sets its expiration on first use.
var fixedWindowScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
	redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return current
`)

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// LimiterFunc adapts a function to the Limiter interface.
type LimiterFunc func(ctx context.Context, key string) (bool, error)

func (f LimiterFunc) Allow(ctx context.Context, key string) (bool, error) {
	return f(ctx, key)
}

// RedisLimiter is a fixed window limiter shared by every instance through redis.
type RedisLimiter struct {
	client redis.Scripter
	class  string
	limit  int64
	window time.Duration
	now    func() time.Time
}

// LimiterOption configures a RedisLimiter.
type LimiterOption func(*RedisLimiter)

// WithClock replaces the time source used to pick the current window.
func WithClock(now func() time.Time) LimiterOption {
	return func(l *RedisLimiter) {
		l.now = now
	}
}

// NewRedisLimiter allows limit requests per window for each key of the given class.
func NewRedisLimiter(client redis.Scripter, class string, limit int, window time.Duration, opts ...LimiterOption) *RedisLimiter {
	if window < time.Second {
		window = time.Second
	}

	l := &RedisLimiter{
		client: client,
		class:  class,
		limit:  int64(limit),
		window: window,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

func (l *RedisLimiter) windowKey(key string) string {
	window := l.now().Unix() / int64(l.window/time.Second)
	return fmt.Sprintf("%s:%s:%s:%d", keyPrefix, l.class, key, window)
}

// Allow counts the request in the current window and reports whether it fits the limit.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	const op = "ratelimit.RedisLimiter.Allow"

	count, err := fixedWindowScript.Run(ctx, l.client, []string{l.windowKey(key)}, int64(l.window/time.Second)).Int64()
	if err != nil {
		return false, fmt.Errorf("%s: failed to count request: %w", op, err)
	}

	return count <= l.limit, nil
}
