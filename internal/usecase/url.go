package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/pkg/base62"
)

// DefaultCacheTTL is how long resolved URLs stay in the cache unless WithCacheTTL overrides it.
const DefaultCacheTTL = time.Hour

const (
	outcomeHit      = "hit"
	outcomeMiss     = "miss"
	outcomeNotFound = "not_found"
	outcomeExpired  = "expired"
)

// URLOption configures a URLUseCase.
type URLOption func(*URLUseCase)

// WithCacheTTL sets how long resolved URLs stay in the cache.
func WithCacheTTL(ttl time.Duration) URLOption {
	return func(uc *URLUseCase) {
		if ttl > 0 {
			uc.cacheTTL = ttl
		}
	}
}

// WithLogger sets the logger for failures that are not returned to the caller.
func WithLogger(logger *slog.Logger) URLOption {
	return func(uc *URLUseCase) {
		uc.logger = logger
	}
}

// WithClock replaces the time source used for expiry checks and click timestamps.
func WithClock(now func() time.Time) URLOption {
	return func(uc *URLUseCase) {
		uc.now = now
	}
}

// WithRegisterer registers the resolution outcome counter with reg.
func WithRegisterer(reg prometheus.Registerer) URLOption {
	return func(uc *URLUseCase) {
		uc.registerer = reg
	}
}

// URLUseCase resolves short codes cache-aside: the cache is probed first and the
// durable store is the fallback and the source of truth.
type URLUseCase struct {
	urlRepo     urlRepository
	cache       urlCache
	cacheTTL    time.Duration
	logger      *slog.Logger
	now         func() time.Time
	registerer  prometheus.Registerer
	resolutions *prometheus.CounterVec
}

// NewURLUseCase creates a new instance of URLUseCase.
func NewURLUseCase(urlRepo urlRepository, cache urlCache, opts ...URLOption) *URLUseCase {
	uc := &URLUseCase{
		urlRepo:  urlRepo,
		cache:    cache,
		cacheTTL: DefaultCacheTTL,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "url_shortener",
			Name:      "resolutions_total",
			Help:      "Number of short code resolutions by outcome.",
		}, []string{"outcome"}),
	}

	for _, opt := range opts {
		opt(uc)
	}

	if uc.registerer != nil {
		uc.registerer.MustRegister(uc.resolutions)
	}

	return uc
}

// ShortenURL stores the original URL, derives its short code from the allocated id
// and writes the mapping through to the cache.
func (uc *URLUseCase) ShortenURL(ctx context.Context, originalURL string, expiresAt *time.Time) (*entity.URL, error) {
	const op = "usecase.URLUseCase.ShortenURL"

	url, err := uc.urlRepo.Insert(ctx, originalURL, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to insert url: %w", op, err)
	}

	url, err = uc.urlRepo.FinalizeCode(ctx, url.ID, base62.Encode(uint64(url.ID)))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to finalize short code: %w", op, err)
	}

	// An already expired URL must reach the store on its first resolution to be deactivated.
	if !url.IsExpired(uc.now()) {
		uc.cache.Set(ctx, url.ShortCode, url.OriginalURL, uc.cacheTTL)
	}

	return url, nil
}

// ResolveShortCode returns the original URL for the short code and records the click.
func (uc *URLUseCase) ResolveShortCode(ctx context.Context, shortCode string, click entity.Click) (string, error) {
	const op = "usecase.URLUseCase.ResolveShortCode"

	if !base62.IsValid(shortCode) {
		uc.resolutions.WithLabelValues(outcomeNotFound).Inc()
		return "", fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	if click.ClickedAt.IsZero() {
		click.ClickedAt = uc.now().UTC()
	}

	if originalURL, ok := uc.cache.Get(ctx, shortCode); ok {
		uc.resolutions.WithLabelValues(outcomeHit).Inc()
		uc.attributeClick(ctx, shortCode, click)
		return originalURL, nil
	}

	url, err := uc.urlRepo.FindActive(ctx, shortCode)
	if err != nil {
		if errors.Is(err, entity.ErrURLNotFound) {
			uc.resolutions.WithLabelValues(outcomeNotFound).Inc()
		}
		return "", fmt.Errorf("%s: failed to find url: %w", op, err)
	}

	if url.IsExpired(uc.now()) {
		if err := uc.urlRepo.Deactivate(ctx, url.ID); err != nil && !errors.Is(err, entity.ErrURLNotFound) {
			return "", fmt.Errorf("%s: failed to deactivate expired url: %w", op, err)
		}
		uc.cache.Invalidate(ctx, shortCode)

		uc.resolutions.WithLabelValues(outcomeExpired).Inc()
		return "", fmt.Errorf("%s: %w", op, entity.ErrURLExpired)
	}

	uc.cache.Set(ctx, shortCode, url.OriginalURL, uc.cacheTTL)

	if err := uc.urlRepo.RecordClick(ctx, url.ID, click); err != nil {
		return "", fmt.Errorf("%s: failed to record click: %w", op, err)
	}

	uc.resolutions.WithLabelValues(outcomeMiss).Inc()
	return url.OriginalURL, nil
}

// attributeClick records a click served from the cache. The redirect has already been
// decided, so failures are only logged.
func (uc *URLUseCase) attributeClick(ctx context.Context, shortCode string, click entity.Click) {
	const op = "usecase.URLUseCase.attributeClick"

	url, err := uc.urlRepo.FindActive(ctx, shortCode)
	if err != nil {
		if !errors.Is(err, entity.ErrURLNotFound) {
			uc.logger.Error("failed to find url for click",
				slog.String("op", op),
				slog.String("short_code", shortCode),
				slog.Any("err", err),
			)
		}
		return
	}

	if err := uc.urlRepo.RecordClick(ctx, url.ID, click); err != nil && !errors.Is(err, entity.ErrURLNotFound) {
		uc.logger.Error("failed to record click",
			slog.String("op", op),
			slog.String("short_code", shortCode),
			slog.Any("err", err),
		)
	}
}

// GetURL returns the active URL with the given short code.
func (uc *URLUseCase) GetURL(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.GetURL"

	if !base62.IsValid(shortCode) {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	url, err := uc.urlRepo.FindActive(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url: %w", op, err)
	}

	return url, nil
}

// DeleteURL deactivates the URL and then drops its cache entry.
func (uc *URLUseCase) DeleteURL(ctx context.Context, shortCode string) error {
	const op = "usecase.URLUseCase.DeleteURL"

	if !base62.IsValid(shortCode) {
		return fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	url, err := uc.urlRepo.FindActive(ctx, shortCode)
	if err != nil {
		return fmt.Errorf("%s: failed to find url: %w", op, err)
	}

	if err := uc.urlRepo.Deactivate(ctx, url.ID); err != nil {
		return fmt.Errorf("%s: failed to deactivate url: %w", op, err)
	}

	uc.cache.Invalidate(ctx, shortCode)

	return nil
}
