package http

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

const statusError = "error"

// shortenRequest represents the structure for a request to shorten a URL.
type shortenRequest struct {
	URL       string  `json:"url" validate:"required,max=2048,http_url"`
	ExpiresAt *string `json:"expires_at"`
}

// expiresAtLayouts are the accepted expires_at formats; timestamps without an offset are UTC.
var expiresAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseExpiresAt parses an ISO-8601 timestamp and returns it in UTC.
func parseExpiresAt(value string) (time.Time, error) {
	for _, layout := range expiresAtLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New("invalid expires_at")
}

// urlView represents a shortened URL in responses.
type urlView struct {
	ID          int64      `json:"id"`
	ShortCode   string     `json:"short_code"`
	ShortURL    string     `json:"short_url"`
	OriginalURL string     `json:"original_url"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
	IsActive    bool       `json:"is_active"`
	ClickCount  int64      `json:"click_count"`
}

// toURLView converts an entity.URL to a urlView.
func toURLView(url *entity.URL, baseURL string) urlView {
	return urlView{
		ID:          url.ID,
		ShortCode:   url.ShortCode,
		ShortURL:    baseURL + "/" + url.ShortCode,
		OriginalURL: url.OriginalURL,
		CreatedAt:   url.CreatedAt,
		ExpiresAt:   url.ExpiresAt,
		IsActive:    url.IsActive,
		ClickCount:  url.ClickCount,
	}
}

type shortenResponse struct {
	Message string  `json:"message"`
	Data    urlView `json:"data"`
}

type urlResponse struct {
	Data urlView `json:"data"`
}

type dailyClicksView struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type clickView struct {
	ID        int64     `json:"id"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	Referer   string    `json:"referer"`
	ClickedAt time.Time `json:"clicked_at"`
}

type paginationView struct {
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
	Pages   int   `json:"pages"`
}

type analyticsView struct {
	URL          urlView           `json:"url"`
	TotalClicks  int64             `json:"total_clicks"`
	DailyClicks  []dailyClicksView `json:"daily_clicks"`
	RecentClicks []clickView       `json:"recent_clicks"`
	Pagination   paginationView    `json:"pagination"`
}

type analyticsResponse struct {
	Data analyticsView `json:"data"`
}

// toAnalyticsResponse converts an entity.URLAnalytics to an analyticsResponse.
func toAnalyticsResponse(analytics *entity.URLAnalytics, baseURL string) analyticsResponse {
	daily := make([]dailyClicksView, 0, len(analytics.DailyClicks))
	for _, d := range analytics.DailyClicks {
		daily = append(daily, dailyClicksView{
			Date:  d.Date.Format(time.DateOnly),
			Count: d.Count,
		})
	}

	clicks := make([]clickView, 0, len(analytics.RecentClicks))
	for _, c := range analytics.RecentClicks {
		clicks = append(clicks, clickView{
			ID:        c.ID,
			IPAddress: c.IPAddress,
			UserAgent: c.UserAgent,
			Referer:   c.Referer,
			ClickedAt: c.ClickedAt,
		})
	}

	return analyticsResponse{
		Data: analyticsView{
			URL:          toURLView(analytics.URL, baseURL),
			TotalClicks:  analytics.TotalClicks,
			DailyClicks:  daily,
			RecentClicks: clicks,
			Pagination: paginationView{
				Page:    analytics.Pagination.Page,
				PerPage: analytics.Pagination.PerPage,
				Total:   analytics.Pagination.Total,
				Pages:   analytics.Pagination.Pages,
			},
		},
	}
}

// validationError represents an individual validation error.
type validationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// errorResponse represents a structured error response.
// Error is a stable machine-readable reason, Message is meant for people.
type errorResponse struct {
	Status  string            `json:"status"`
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Errors  []validationError `json:"errors,omitempty"`
}

// Predefined error responses for common scenarios.
var (
	emptyRequestBodyResponse = errorResponse{
		Status:  statusError,
		Error:   "empty_request_body",
		Message: "Request body must be JSON.",
	}

	invalidRequestBodyResponse = errorResponse{
		Status:  statusError,
		Error:   "invalid_request_body",
		Message: "Request body must be a JSON object.",
	}

	urlNotFoundResponse = errorResponse{
		Status:  statusError,
		Error:   "url_not_found",
		Message: "Short URL not found.",
	}

	urlExpiredResponse = errorResponse{
		Status:  statusError,
		Error:   "url_expired",
		Message: "This short URL has expired.",
	}

	serverErrorResponse = errorResponse{
		Status:  statusError,
		Error:   "server_error",
		Message: "Internal server error.",
	}
)

// messageForTag returns a user-friendly message based on the validation tag.
func messageForTag(tag string) string {
	switch tag {
	case "required":
		return "this field is required"
	case "max":
		return "url exceeds maximum length of 2048 characters"
	case "http_url":
		return "url must be an absolute http:// or https:// url"
	default:
		return "invalid value"
	}
}

// getValidationErrors processes validation errors and returns a list of validationError.
func getValidationErrors(err error) []validationError {
	var validationErrs []validationError

	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		for _, e := range errs {
			validationErrs = append(validationErrs, validationError{
				Field:   e.Field(),
				Message: messageForTag(e.Tag()),
			})
		}
	}

	return validationErrs
}

// validationErrorResponse constructs an errorResponse for the given field errors.
func validationErrorResponse(errs []validationError) errorResponse {
	return errorResponse{
		Status:  statusError,
		Error:   "validation_error",
		Message: "validation error",
		Errors:  errs,
	}
}
