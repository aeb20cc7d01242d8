package usecase

import (
	"context"
	"fmt"
	"math"

	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/pkg/base62"
)

const (
	// DefaultPage is used when the requested page is below 1.
	DefaultPage = 1
	// DefaultPerPage is used when the requested page size is below 1.
	DefaultPerPage = 20
	// MaxPerPage caps the page size.
	MaxPerPage = 100
	// MaxPage caps the page number so the click offset always fits in an int.
	MaxPage = math.MaxInt / MaxPerPage
	// DailyClicksDays is the number of days in the daily rollup.
	DailyClicksDays = 30
)

// AnalyticsUseCase builds read-only click statistics from the durable store.
type AnalyticsUseCase struct {
	clickRepo clickRepository
}

// NewAnalyticsUseCase creates a new instance of AnalyticsUseCase.
func NewAnalyticsUseCase(clickRepo clickRepository) *AnalyticsUseCase {
	return &AnalyticsUseCase{
		clickRepo: clickRepo,
	}
}

// normalizePage clamps the requested page and page size to the supported range.
func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if page > MaxPage {
		page = MaxPage
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

// GetURLAnalytics returns the click total, the daily rollup of the last days with clicks
// and one page of the newest clicks for the active URL.
func (uc *AnalyticsUseCase) GetURLAnalytics(ctx context.Context, shortCode string, page, perPage int) (*entity.URLAnalytics, error) {
	const op = "usecase.AnalyticsUseCase.GetURLAnalytics"

	if !base62.IsValid(shortCode) {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	url, err := uc.clickRepo.FindActive(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to find url: %w", op, err)
	}

	daily, err := uc.clickRepo.DailyClicks(ctx, url.ID, DailyClicksDays)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get daily clicks: %w", op, err)
	}

	page, perPage = normalizePage(page, perPage)

	clicks, total, err := uc.clickRepo.ListClicks(ctx, url.ID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list clicks: %w", op, err)
	}

	return &entity.URLAnalytics{
		URL:          url,
		TotalClicks:  url.ClickCount,
		DailyClicks:  daily,
		RecentClicks: clicks,
		Pagination: entity.Pagination{
			Page:    page,
			PerPage: perPage,
			Total:   total,
			Pages:   int((total + int64(perPage) - 1) / int64(perPage)),
		},
	}, nil
}
