// Package http provides the HTTP delivery layer for the URL shortener service.
// This package contains the HTTP handlers and related types used for processing
// incoming requests, validating input, and formatting responses.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/vadimbarashkov/shortlink/pkg/middleware/ratelimit"
	"github.com/vadimbarashkov/shortlink/pkg/middleware/recoverer"
)

// RouterOption configures optional router features.
type RouterOption func(*routerOptions)

type routerOptions struct {
	baseURL        string
	writeLimiter   ratelimit.Limiter
	readLimiter    ratelimit.Limiter
	retryAfter     time.Duration
	metricsHandler http.Handler
	docsPath       string
}

// WithBaseURL sets the public base URL used to build short URLs.
func WithBaseURL(baseURL string) RouterOption {
	return func(o *routerOptions) {
		o.baseURL = baseURL
	}
}

// WithRateLimiters limits mutating routes with write and reading routes with read.
func WithRateLimiters(write, read ratelimit.Limiter) RouterOption {
	return func(o *routerOptions) {
		o.writeLimiter = write
		o.readLimiter = read
	}
}

// WithRetryAfter sets the Retry-After hint sent with rate limited responses, usually the limiter window.
func WithRetryAfter(d time.Duration) RouterOption {
	return func(o *routerOptions) {
		o.retryAfter = d
	}
}

// WithMetricsHandler exposes h on /metrics.
func WithMetricsHandler(h http.Handler) RouterOption {
	return func(o *routerOptions) {
		o.metricsHandler = h
	}
}

// WithDocsPath sets the file served on /docs/swagger.yml.
func WithDocsPath(path string) RouterOption {
	return func(o *routerOptions) {
		o.docsPath = path
	}
}

func limitWith(limiter ratelimit.Limiter, logger *httplog.Logger, retryAfter time.Duration) func(http.Handler) http.Handler {
	if limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}

	var opts []ratelimit.Option
	if retryAfter > 0 {
		opts = append(opts, ratelimit.WithRetryAfter(retryAfter))
	}
	return ratelimit.New(limiter, logger.Logger, opts...)
}

// NewRouter initializes and returns a new Chi router configured with middleware and routes for the URL shortener API.
func NewRouter(logger *httplog.Logger, urlUseCase urlUseCase, analyticsUseCase analyticsUseCase, opts ...RouterOption) *chi.Mux {
	o := &routerOptions{
		docsPath: "./docs/swagger.yml",
	}
	for _, opt := range opts {
		opt(o)
	}

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"POST", "GET", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(recoverer.New(logger.Logger))

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, o.docsPath)
	})

	if o.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", o.metricsHandler)
	}

	writeLimit := limitWith(o.writeLimiter, logger, o.retryAfter)
	readLimit := limitWith(o.readLimiter, logger, o.retryAfter)

	h := newURLHandler(urlUseCase, analyticsUseCase, validator.New(), o.baseURL)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", handlePing)

		r.With(writeLimit).Post("/shorten", h.shortenURL)

		r.Route("/url/{shortCode}", func(r chi.Router) {
			r.With(readLimit).Get("/", h.getURL)
			r.With(writeLimit).Delete("/", h.deleteURL)
		})

		r.With(readLimit).Get("/analytics/{shortCode}", h.getAnalytics)
	})

	r.With(readLimit).Get("/{shortCode}", h.redirect)

	return r
}
