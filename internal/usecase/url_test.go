package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

type URLUseCaseTestSuite struct {
	suite.Suite
	errUnknown  error
	ctx         context.Context
	now         time.Time
	noExpiry    *time.Time
	urlRepoMock *MockURLRepository
	cacheMock   *MockURLCache
	uc          *URLUseCase
}

func (suite *URLUseCaseTestSuite) SetupSuite() {
	suite.errUnknown = errors.New("unknown error")
	suite.ctx = context.Background()
	suite.now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func (suite *URLUseCaseTestSuite) SetupSubTest() {
	suite.urlRepoMock = NewMockURLRepository(suite.T())
	suite.cacheMock = NewMockURLCache(suite.T())
	suite.uc = NewURLUseCase(suite.urlRepoMock, suite.cacheMock,
		WithCacheTTL(time.Hour),
		WithClock(func() time.Time { return suite.now }),
		WithRegisterer(prometheus.NewRegistry()),
	)
}

func (suite *URLUseCaseTestSuite) activeURL(id int64, shortCode string) *entity.URL {
	return &entity.URL{
		ID:          id,
		ShortCode:   shortCode,
		OriginalURL: "https://example.com/a",
		CreatedAt:   suite.now.Add(-time.Hour),
		IsActive:    true,
	}
}

func (suite *URLUseCaseTestSuite) resolutions(outcome string) float64 {
	return testutil.ToFloat64(suite.uc.resolutions.WithLabelValues(outcome))
}

func (suite *URLUseCaseTestSuite) TestShortenURL() {
	suite.Run("insert error", func() {
		suite.urlRepoMock.
			On("Insert", suite.ctx, "https://example.com/a", suite.noExpiry).
			Once().
			Return(nil, suite.errUnknown)

		url, err := suite.uc.ShortenURL(suite.ctx, "https://example.com/a", nil)

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(url)
	})

	suite.Run("finalize error", func() {
		suite.urlRepoMock.
			On("Insert", suite.ctx, "https://example.com/a", suite.noExpiry).
			Once().
			Return(suite.activeURL(1000, ""), nil)
		suite.urlRepoMock.
			On("FinalizeCode", suite.ctx, int64(1000), "g8").
			Once().
			Return(nil, suite.errUnknown)

		url, err := suite.uc.ShortenURL(suite.ctx, "https://example.com/a", nil)

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(url)
	})

	suite.Run("short code exists", func() {
		suite.urlRepoMock.
			On("Insert", suite.ctx, "https://example.com/a", suite.noExpiry).
			Once().
			Return(suite.activeURL(1, ""), nil)
		suite.urlRepoMock.
			On("FinalizeCode", suite.ctx, int64(1), "1").
			Once().
			Return(nil, entity.ErrShortCodeExists)

		url, err := suite.uc.ShortenURL(suite.ctx, "https://example.com/a", nil)

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrShortCodeExists)
		suite.Nil(url)
	})

	suite.Run("success", func() {
		suite.urlRepoMock.
			On("Insert", suite.ctx, "https://example.com/a", suite.noExpiry).
			Once().
			Return(suite.activeURL(1000, ""), nil)
		suite.urlRepoMock.
			On("FinalizeCode", suite.ctx, int64(1000), "g8").
			Once().
			Return(suite.activeURL(1000, "g8"), nil)
		suite.cacheMock.
			On("Set", suite.ctx, "g8", "https://example.com/a", time.Hour).
			Once()

		url, err := suite.uc.ShortenURL(suite.ctx, "https://example.com/a", nil)

		suite.NoError(err)
		suite.Require().NotNil(url)
		suite.Equal("g8", url.ShortCode)
		suite.Equal(int64(1000), url.ID)
	})

	suite.Run("already expired is not cached", func() {
		expiresAt := suite.now.Add(-time.Minute)
		created := suite.activeURL(7, "7")
		created.ExpiresAt = &expiresAt

		suite.urlRepoMock.
			On("Insert", suite.ctx, "https://example.com/a", &expiresAt).
			Once().
			Return(suite.activeURL(7, ""), nil)
		suite.urlRepoMock.
			On("FinalizeCode", suite.ctx, int64(7), "7").
			Once().
			Return(created, nil)

		url, err := suite.uc.ShortenURL(suite.ctx, "https://example.com/a", &expiresAt)

		suite.NoError(err)
		suite.Require().NotNil(url)
		suite.Equal("7", url.ShortCode)
		suite.cacheMock.AssertNotCalled(suite.T(), "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func (suite *URLUseCaseTestSuite) TestResolveShortCode() {
	click := entity.Click{IPAddress: "203.0.113.7", UserAgent: "curl/8.0", Referer: "https://ref.example.com"}
	recorded := click
	recorded.ClickedAt = suite.now

	suite.Run("invalid short code", func() {
		url, err := suite.uc.ResolveShortCode(suite.ctx, "ab-c", click)

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.Empty(url)
		suite.Equal(float64(1), suite.resolutions(outcomeNotFound))
	})

	suite.Run("cache hit", func() {
		suite.cacheMock.On("Get", suite.ctx, "abc").Once().Return("https://example.com/a", true)
		suite.urlRepoMock.On("FindActive", suite.ctx, "abc").Once().Return(suite.activeURL(39134, "abc"), nil)
		suite.urlRepoMock.On("RecordClick", suite.ctx, int64(39134), recorded).Once().Return(nil)

		url, err := suite.uc.ResolveShortCode(suite.ctx, "abc", click)

		suite.NoError(err)
		suite.Equal("https://example.com/a", url)
		suite.Equal(float64(1), suite.resolutions(outcomeHit))
	})

	suite.Run("cache hit keeps the given click time", func() {
		clickedAt := suite.now.Add(-time.Second)
		withTime := click
		withTime.ClickedAt = clickedAt

		suite.cacheMock.On("Get", suite.ctx, "abc").Once().Return("https://example.com/a", true)
		suite.urlRepoMock.On("FindActive", suite.ctx, "abc").Once().Return(suite.activeURL(39134, "abc"), nil)
		suite.urlRepoMock.On("RecordClick", suite.ctx, int64(39134), withTime).Once().Return(nil)

		_, err := suite.uc.ResolveShortCode(suite.ctx, "abc", withTime)

		suite.NoError(err)
	})

	suite.Run("cache hit after deactivation skips the click", func() {
		suite.cacheMock.On("Get", suite.ctx, "abc").Once().Return("https://example.com/a", true)
		suite.urlRepoMock.On("FindActive", suite.ctx, "abc").Once().Return(nil, entity.ErrURLNotFound)

		url, err := suite.uc.ResolveShortCode(suite.ctx, "abc", click)

		suite.NoError(err)
		suite.Equal("https://example.com/a", url)
		suite.urlRepoMock.AssertNotCalled(suite.T(), "RecordClick", mock.Anything, mock.Anything, mock.Anything)
	})

	suite.Run("cache hit with store error still resolves", func() {
		suite.cacheMock.On("Get", suite.ctx, "abc").Once().Return("https://example.com/a", true)
		suite.urlRepoMock.On("FindActive", suite.ctx, "abc").Once().Return(suite.activeURL(39134, "abc"), nil)
		suite.urlRepoMock.On("RecordClick", suite.ctx, int64(39134), recorded).Once().Return(suite.errUnknown)

		url, err := suite.uc.ResolveShortCode(suite.ctx, "abc", click)

		suite.NoError(err)
		suite.Equal("https://example.com/a", url)
	})

	suite.Run("cache miss url not found", func() {
		suite.cacheMock.On("Get", suite.ctx, "abc").Once().Return("", false)
		suite.urlRepoMock.On("FindActive", suite.ctx, "abc").Once().Return(nil, entity.ErrURLNotFound)

		url, err := suite.uc.ResolveShortCode(suite.ctx, "abc", click)

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.Empty(url)
		suite.Equal(float64(1), suite.resolutions(outcomeNotFound))
	})

	suite.Run("cache miss store error", func() {
		suite.cacheMock.On("Get", suite.ctx, "abc").Once().Return("", false)
		suite.urlRepoMock.On("FindActive", suite.ctx, "abc").Once().Return(nil, suite.errUnknown)

		url, err := suite.uc.ResolveShortCode(suite.ctx, "abc", click)

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.NotErrorIs(err, entity.ErrURLNotFound)
		suite.Empty(url)
	})

	suite.Run("cache miss expired url", func() {
		expired := suite.activeURL(39134, "abc")
		expiresAt := suite.now.Add(-time.Second)
		expired.ExpiresAt = &expiresAt

		suite.cacheMock.On("Get", suite.ctx, "abc").Once().Return("", false)
		suite.urlRepoMock.On("FindActive", suite.ctx, "abc").Once().Return(expired, nil)
		deactivate := suite.urlRepoMock.On("Deactivate", suite.ctx, int64(39134)).Once().Return(nil)
		invalidate := suite.cacheMock.On("Invalidate", suite.ctx, "abc").Once()
		mock.InOrder(deactivate, invalidate)

		url, err := suite.uc.ResolveShortCode(suite.ctx, "abc", click)

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrURLExpired)
		suite.NotErrorIs(err, entity.ErrURLNotFound)
		suite.Empty(url)
		suite.urlRepoMock.AssertNotCalled(suite.T(), "RecordClick", mock.Anything, mock.Anything, mock.Anything)
		suite.Equal(float64(1), suite.resolutions(outcomeExpired))
	})

	suite.Run("cache miss expired url deactivated concurrently", func() {
		expired := suite.activeURL(39134, "abc")
		expiresAt := suite.now.Add(-time.Second)
		expired.ExpiresAt = &expiresAt

		suite.cacheMock.On("Get", suite.ctx, "abc").Once().Return("", false)
		suite.urlRepoMock.On("FindActive", suite.ctx, "abc").Once().Return(expired, nil)
		suite.urlRepoMock.On("Deactivate", suite.ctx, int64(39134)).Once().Return(entity.ErrURLNotFound)
		suite.cacheMock.On("Invalidate", suite.ctx, "abc").Once()

		_, err := suite.uc.ResolveShortCode(suite.ctx, "abc", click)

		suite.ErrorIs(err, entity.ErrURLExpired)
	})

	suite.Run("cache miss expired url deactivate error", func() {
		expired := suite.activeURL(39134, "abc")
		expiresAt := suite.now.Add(-time.Second)
		expired.ExpiresAt = &expiresAt

		suite.cacheMock.On("Get", suite.ctx, "abc").Once().Return("", false)
		suite.urlRepoMock.On("FindActive", suite.ctx, "abc").Once().Return(expired, nil)
		suite.urlRepoMock.On("Deactivate", suite.ctx, int64(39134)).Once().Return(suite.errUnknown)

		_, err := suite.uc.ResolveShortCode(suite.ctx, "abc", click)

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.cacheMock.AssertNotCalled(suite.T(), "Invalidate", mock.Anything, mock.Anything)
	})

	suite.Run("cache miss populates cache and records click", func() {
		expiresAt := suite.now.Add(time.Hour)
		active := suite.activeURL(39134, "abc")
		active.ExpiresAt = &expiresAt

		suite.cacheMock.On("Get", suite.ctx, "abc").Once().Return("", false)
		suite.urlRepoMock.On("FindActive", suite.ctx, "abc").Once().Return(active, nil)
		set := suite.cacheMock.On("Set", suite.ctx, "abc", "https://example.com/a", time.Hour).Once()
		record := suite.urlRepoMock.On("RecordClick", suite.ctx, int64(39134), recorded).Once().Return(nil)
		mock.InOrder(set, record)

		url, err := suite.uc.ResolveShortCode(suite.ctx, "abc", click)

		suite.NoError(err)
		suite.Equal("https://example.com/a", url)
		suite.Equal(float64(1), suite.resolutions(outcomeMiss))
	})

	suite.Run("cache miss record click error", func() {
		suite.cacheMock.On("Get", suite.ctx, "abc").Once().Return("", false)
		suite.urlRepoMock.On("FindActive", suite.ctx, "abc").Once().Return(suite.activeURL(39134, "abc"), nil)
		suite.cacheMock.On("Set", suite.ctx, "abc", "https://example.com/a", time.Hour).Once()
		suite.urlRepoMock.On("RecordClick", suite.ctx, int64(39134), recorded).Once().Return(suite.errUnknown)

		url, err := suite.uc.ResolveShortCode(suite.ctx, "abc", click)

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Empty(url)
	})
}

func (suite *URLUseCaseTestSuite) TestGetURL() {
	suite.Run("invalid short code", func() {
		url, err := suite.uc.GetURL(suite.ctx, "")

		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.Nil(url)
	})

	suite.Run("url not found", func() {
		suite.urlRepoMock.On("FindActive", suite.ctx, "abc").Once().Return(nil, entity.ErrURLNotFound)

		url, err := suite.uc.GetURL(suite.ctx, "abc")

		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.Nil(url)
	})

	suite.Run("success", func() {
		expected := suite.activeURL(39134, "abc")
		expected.ClickCount = 2
		suite.urlRepoMock.On("FindActive", suite.ctx, "abc").Once().Return(expected, nil)

		url, err := suite.uc.GetURL(suite.ctx, "abc")

		suite.NoError(err)
		suite.Equal(expected, url)
	})
}

func (suite *URLUseCaseTestSuite) TestDeleteURL() {
	suite.Run("invalid short code", func() {
		err := suite.uc.DeleteURL(suite.ctx, "a b")

		suite.ErrorIs(err, entity.ErrURLNotFound)
	})

	suite.Run("url not found", func() {
		suite.urlRepoMock.On("FindActive", suite.ctx, "abc").Once().Return(nil, entity.ErrURLNotFound)

		err := suite.uc.DeleteURL(suite.ctx, "abc")

		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.cacheMock.AssertNotCalled(suite.T(), "Invalidate", mock.Anything, mock.Anything)
	})

	suite.Run("deactivate error", func() {
		suite.urlRepoMock.On("FindActive", suite.ctx, "abc").Once().Return(suite.activeURL(39134, "abc"), nil)
		suite.urlRepoMock.On("Deactivate", suite.ctx, int64(39134)).Once().Return(suite.errUnknown)

		err := suite.uc.DeleteURL(suite.ctx, "abc")

		suite.ErrorIs(err, suite.errUnknown)
		suite.cacheMock.AssertNotCalled(suite.T(), "Invalidate", mock.Anything, mock.Anything)
	})

	suite.Run("success", func() {
		suite.urlRepoMock.On("FindActive", suite.ctx, "abc").Once().Return(suite.activeURL(39134, "abc"), nil)
		deactivate := suite.urlRepoMock.On("Deactivate", suite.ctx, int64(39134)).Once().Return(nil)
		invalidate := suite.cacheMock.On("Invalidate", suite.ctx, "abc").Once()
		mock.InOrder(deactivate, invalidate)

		err := suite.uc.DeleteURL(suite.ctx, "abc")

		suite.NoError(err)
	})
}

func TestURLUseCase(t *testing.T) {
	suite.Run(t, new(URLUseCaseTestSuite))
}
