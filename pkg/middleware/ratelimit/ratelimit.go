// Package ratelimit limits requests per client IP.
// Limiter failures let the request through so an unavailable redis never blocks traffic.
package ratelimit

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/render"
	"github.com/vadimbarashkov/shortlink/pkg/middleware"
)

const defaultTimeout = 100 * time.Millisecond

type limitedResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Option configures the rate limiting middleware.
type Option func(*config)

type config struct {
	timeout    time.Duration
	retryAfter time.Duration
	keyFunc    func(r *http.Request) string
}

// WithTimeout bounds the time spent asking the limiter.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetryAfter sets the Retry-After header value sent with rejected requests.
func WithRetryAfter(d time.Duration) Option {
	return func(c *config) {
		c.retryAfter = d
	}
}

// WithKeyFunc replaces the client IP key.
func WithKeyFunc(fn func(r *http.Request) string) Option {
	return func(c *config) {
		c.keyFunc = fn
	}
}

// ClientIP returns the request remote address without its port.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// New creates a middleware that rejects requests over the limit with 429.
func New(limiter Limiter, logger *slog.Logger, opts ...Option) middleware.Middleware {
	const op = "middleware.ratelimit.New"

	cfg := &config{
		timeout:    defaultTimeout,
		retryAfter: time.Minute,
		keyFunc:    ClientIP,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), cfg.timeout)
			defer cancel()

			allowed, err := limiter.Allow(ctx, cfg.keyFunc(r))
			if err != nil {
				logger.Warn("rate limiter unavailable, request allowed",
					slog.String("op", op),
					slog.Any("err", err),
				)
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(cfg.retryAfter/time.Second)))
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, limitedResponse{
					Status:  "error",
					Error:   "rate_limit_exceeded",
					Message: "Too many requests. Try again later.",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
