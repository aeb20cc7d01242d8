package http

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

type MockURLUseCase struct {
	mock.Mock
}

func NewMockURLUseCase(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockURLUseCase {
	m := new(MockURLUseCase)
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockURLUseCase) ShortenURL(ctx context.Context, originalURL string, expiresAt *time.Time) (*entity.URL, error) {
	args := m.Called(ctx, originalURL, expiresAt)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (m *MockURLUseCase) ResolveShortCode(ctx context.Context, shortCode string, click entity.Click) (string, error) {
	args := m.Called(ctx, shortCode, click)
	return args.String(0), args.Error(1)
}

func (m *MockURLUseCase) GetURL(ctx context.Context, shortCode string) (*entity.URL, error) {
	args := m.Called(ctx, shortCode)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (m *MockURLUseCase) DeleteURL(ctx context.Context, shortCode string) error {
	args := m.Called(ctx, shortCode)
	return args.Error(0)
}

type MockAnalyticsUseCase struct {
	mock.Mock
}

func NewMockAnalyticsUseCase(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockAnalyticsUseCase {
	m := new(MockAnalyticsUseCase)
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockAnalyticsUseCase) GetURLAnalytics(ctx context.Context, shortCode string, page, perPage int) (*entity.URLAnalytics, error) {
	args := m.Called(ctx, shortCode, page, perPage)
	analytics, _ := args.Get(0).(*entity.URLAnalytics)
	return analytics, args.Error(1)
}
