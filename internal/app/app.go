// Package app wires the service dependencies and runs the HTTP server until the context is done.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/vadimbarashkov/shortlink/internal/config"
	"github.com/vadimbarashkov/shortlink/internal/usecase"
	"github.com/vadimbarashkov/shortlink/pkg/middleware/ratelimit"
	"github.com/vadimbarashkov/shortlink/pkg/postgres"
	"golang.org/x/sync/errgroup"

	cacheredis "github.com/vadimbarashkov/shortlink/internal/adapter/cache/redis"
	delivery "github.com/vadimbarashkov/shortlink/internal/adapter/delivery/http"
	repository "github.com/vadimbarashkov/shortlink/internal/adapter/repository/postgres"
	pkgredis "github.com/vadimbarashkov/shortlink/pkg/redis"
)

// NewLogger creates the service logger: JSON in prod, human readable text otherwise.
func NewLogger(cfg *config.Config) *httplog.Logger {
	opts := httplog.Options{
		LogLevel:         slog.LevelInfo,
		Concise:          true,
		MessageFieldName: "message",
	}

	if cfg.Env == config.EnvProd {
		opts.JSON = true
		opts.Concise = false
	} else {
		opts.LogLevel = slog.LevelDebug
	}

	return httplog.NewLogger("url-shortener", opts)
}

func Run(ctx context.Context, cfg *config.Config, logger *httplog.Logger) error {
	const op = "app.Run"

	db, err := postgres.New(
		ctx,
		cfg.Postgres.DSN(),
		postgres.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
		postgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
		postgres.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
		postgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(cfg.MigrationsPath, cfg.Postgres.DSN()); err != nil {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	rdb, err := pkgredis.New(
		ctx,
		cfg.Redis.Addr(),
		pkgredis.WithPassword(cfg.Redis.Password),
		pkgredis.WithDB(cfg.Redis.DB),
		pkgredis.WithDialTimeout(cfg.Redis.DialTimeout),
		pkgredis.WithReadTimeout(cfg.Redis.ReadTimeout),
		pkgredis.WithWriteTimeout(cfg.Redis.WriteTimeout),
		pkgredis.WithPoolSize(cfg.Redis.PoolSize),
	)
	if err != nil {
		logger.Warn("redis is unavailable, serving from the database only", slog.Any("err", err))
	}
	defer rdb.Close()

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        newHandler(cfg, db, rdb, logger),
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error

		logger.Info("starting http server", slog.String("addr", server.Addr), slog.String("env", cfg.Env))

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		logger.Info("http server stopped")

		return nil
	})

	return g.Wait()
}

// newHandler builds the router with every adapter and use case attached.
func newHandler(cfg *config.Config, db *sqlx.DB, rdb *redis.Client, logger *httplog.Logger) http.Handler {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db.DB, "postgres"),
	)

	urlRepo := repository.NewURLRepository(db)
	urlCache := cacheredis.NewURLCache(rdb, logger.Logger, cacheredis.WithRegisterer(registry))

	urlUseCase := usecase.NewURLUseCase(urlRepo, urlCache,
		usecase.WithCacheTTL(cfg.Cache.TTL),
		usecase.WithLogger(logger.Logger),
		usecase.WithRegisterer(registry),
	)
	analyticsUseCase := usecase.NewAnalyticsUseCase(urlRepo)

	routerOpts := []delivery.RouterOption{
		delivery.WithBaseURL(cfg.BaseURL),
		delivery.WithDocsPath(cfg.DocsPath),
		delivery.WithMetricsHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
	}
	if cfg.RateLimit.Enabled {
		routerOpts = append(routerOpts, delivery.WithRateLimiters(
			ratelimit.NewRedisLimiter(rdb, "write", cfg.RateLimit.Write, cfg.RateLimit.Window),
			ratelimit.NewRedisLimiter(rdb, "read", cfg.RateLimit.Read, cfg.RateLimit.Window),
		), delivery.WithRetryAfter(cfg.RateLimit.Window))
	}

	return delivery.NewRouter(logger, urlUseCase, analyticsUseCase, routerOpts...)
}
