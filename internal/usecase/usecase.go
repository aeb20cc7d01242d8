// Package usecase implements the URL shortener business logic: creating short codes,
// resolving them through the cache with a durable store fallback, deleting URLs and
// aggregating click analytics.
package usecase

import (
	"context"
	"time"

	"github.com/vadimbarashkov/shortlink/internal/entity"
)

type urlRepository interface {
	Insert(ctx context.Context, originalURL string, expiresAt *time.Time) (*entity.URL, error)
	FinalizeCode(ctx context.Context, id int64, shortCode string) (*entity.URL, error)
	FindActive(ctx context.Context, shortCode string) (*entity.URL, error)
	Deactivate(ctx context.Context, id int64) error
	RecordClick(ctx context.Context, urlID int64, click entity.Click) error
}

type clickRepository interface {
	FindActive(ctx context.Context, shortCode string) (*entity.URL, error)
	ListClicks(ctx context.Context, urlID int64, limit, offset int) ([]entity.Click, int64, error)
	DailyClicks(ctx context.Context, urlID int64, days int) ([]entity.DailyClicks, error)
}

type urlCache interface {
	Get(ctx context.Context, shortCode string) (string, bool)
	Set(ctx context.Context, shortCode, originalURL string, ttl time.Duration)
	Invalidate(ctx context.Context, shortCode string)
}
