package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

type MockURLRepository struct {
	mock.Mock
}

func NewMockURLRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockURLRepository {
	m := new(MockURLRepository)
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockURLRepository) Insert(ctx context.Context, originalURL string, expiresAt *time.Time) (*entity.URL, error) {
	args := m.Called(ctx, originalURL, expiresAt)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (m *MockURLRepository) FinalizeCode(ctx context.Context, id int64, shortCode string) (*entity.URL, error) {
	args := m.Called(ctx, id, shortCode)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (m *MockURLRepository) FindActive(ctx context.Context, shortCode string) (*entity.URL, error) {
	args := m.Called(ctx, shortCode)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (m *MockURLRepository) Deactivate(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockURLRepository) RecordClick(ctx context.Context, urlID int64, click entity.Click) error {
	args := m.Called(ctx, urlID, click)
	return args.Error(0)
}

func (m *MockURLRepository) ListClicks(ctx context.Context, urlID int64, limit, offset int) ([]entity.Click, int64, error) {
	args := m.Called(ctx, urlID, limit, offset)
	clicks, _ := args.Get(0).([]entity.Click)
	return clicks, args.Get(1).(int64), args.Error(2)
}

func (m *MockURLRepository) DailyClicks(ctx context.Context, urlID int64, days int) ([]entity.DailyClicks, error) {
	args := m.Called(ctx, urlID, days)
	daily, _ := args.Get(0).([]entity.DailyClicks)
	return daily, args.Error(1)
}

type MockURLCache struct {
	mock.Mock
}

func NewMockURLCache(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockURLCache {
	m := new(MockURLCache)
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockURLCache) Get(ctx context.Context, shortCode string) (string, bool) {
	args := m.Called(ctx, shortCode)
	return args.String(0), args.Bool(1)
}

func (m *MockURLCache) Set(ctx context.Context, shortCode, originalURL string, ttl time.Duration) {
	m.Called(ctx, shortCode, originalURL, ttl)
}

func (m *MockURLCache) Invalidate(ctx context.Context, shortCode string) {
	m.Called(ctx, shortCode)
}
