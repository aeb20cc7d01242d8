// Package redis implements the read-through cache of short code to original URL mappings.
// The cache is never a source of truth: every backend failure is logged and reported to
// callers as a miss or a no-op.
package redis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "url:"

	opGet        = "get"
	opSet        = "set"
	opInvalidate = "invalidate"

	resultHit   = "hit"
	resultMiss  = "miss"
	resultOK    = "ok"
	resultError = "error"
)

// cacheKey returns the redis key under which the short code mapping is stored.
func cacheKey(shortCode string) string {
	return keyPrefix + shortCode
}

// Option configures a URLCache.
type Option func(*URLCache)

// WithRegisterer registers the cache operation counter with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *URLCache) {
		c.registerer = reg
	}
}

// URLCache stores original URLs in redis keyed by short code.
type URLCache struct {
	client     redis.Cmdable
	logger     *slog.Logger
	registerer prometheus.Registerer
	operations *prometheus.CounterVec
}

// NewURLCache creates a new instance of URLCache.
func NewURLCache(client redis.Cmdable, logger *slog.Logger, opts ...Option) *URLCache {
	c := &URLCache{
		client: client,
		logger: logger,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "url_shortener",
			Name:      "cache_operations_total",
			Help:      "Number of URL cache operations by operation and result.",
		}, []string{"operation", "result"}),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.registerer != nil {
		c.registerer.MustRegister(c.operations)
	}

	return c
}

// Get returns the cached original URL for the short code.
// The second result is false when the entry is absent or the cache is unavailable.
func (c *URLCache) Get(ctx context.Context, shortCode string) (string, bool) {
	const op = "adapter.cache.redis.URLCache.Get"

	url, err := c.client.Get(ctx, cacheKey(shortCode)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.operations.WithLabelValues(opGet, resultMiss).Inc()
			return "", false
		}

		c.operations.WithLabelValues(opGet, resultError).Inc()
		c.logger.Warn("cache get failed",
			slog.String("op", op),
			slog.String("short_code", shortCode),
			slog.Any("err", err),
		)
		return "", false
	}

	c.operations.WithLabelValues(opGet, resultHit).Inc()
	return url, true
}

// Set stores the mapping for ttl. A non-positive ttl stores the entry without expiration.
func (c *URLCache) Set(ctx context.Context, shortCode, originalURL string, ttl time.Duration) {
	const op = "adapter.cache.redis.URLCache.Set"

	if ttl < 0 {
		ttl = 0
	}

	if err := c.client.Set(ctx, cacheKey(shortCode), originalURL, ttl).Err(); err != nil {
		c.operations.WithLabelValues(opSet, resultError).Inc()
		c.logger.Warn("cache set failed",
			slog.String("op", op),
			slog.String("short_code", shortCode),
			slog.Any("err", err),
		)
		return
	}

	c.operations.WithLabelValues(opSet, resultOK).Inc()
}

// Invalidate removes the mapping. Removing an absent entry is a no-op.
func (c *URLCache) Invalidate(ctx context.Context, shortCode string) {
	const op = "adapter.cache.redis.URLCache.Invalidate"

	if err := c.client.Del(ctx, cacheKey(shortCode)).Err(); err != nil {
		c.operations.WithLabelValues(opInvalidate, resultError).Inc()
		c.logger.Warn("cache invalidate failed",
			slog.String("op", op),
			slog.String("short_code", shortCode),
			slog.Any("err", err),
		)
		return
	}

	c.operations.WithLabelValues(opInvalidate, resultOK).Inc()
}
