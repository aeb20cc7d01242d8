package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/pkg/middleware/ratelimit"
)

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "pong")
}

type urlUseCase interface {
	ShortenURL(ctx context.Context, originalURL string, expiresAt *time.Time) (*entity.URL, error)
	ResolveShortCode(ctx context.Context, shortCode string, click entity.Click) (string, error)
	GetURL(ctx context.Context, shortCode string) (*entity.URL, error)
	DeleteURL(ctx context.Context, shortCode string) error
}

type analyticsUseCase interface {
	GetURLAnalytics(ctx context.Context, shortCode string, page, perPage int) (*entity.URLAnalytics, error)
}

type urlHandler struct {
	urlUseCase       urlUseCase
	analyticsUseCase analyticsUseCase
	validate         *validator.Validate
	baseURL          string
}

func newURLHandler(urlUseCase urlUseCase, analyticsUseCase analyticsUseCase, validate *validator.Validate, baseURL string) *urlHandler {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &urlHandler{
		urlUseCase:       urlUseCase,
		analyticsUseCase: analyticsUseCase,
		validate:         validate,
		baseURL:          strings.TrimRight(baseURL, "/"),
	}
}

// shortBase returns the configured base URL or the one the request was made to.
func (h *urlHandler) shortBase(r *http.Request) string {
	if h.baseURL != "" {
		return h.baseURL
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// renderUseCaseError maps use case errors to responses; unknown errors are logged with the request.
func renderUseCaseError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, entity.ErrURLNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, urlNotFoundResponse)
	case errors.Is(err, entity.ErrURLExpired):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, urlExpiredResponse)
	default:
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, serverErrorResponse)
	}
}

func (h *urlHandler) shortenURL(w http.ResponseWriter, r *http.Request) {
	var req shortenRequest

	if err := render.DecodeJSON(r.Body, &req); err != nil {
		if errors.Is(err, io.EOF) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, emptyRequestBodyResponse)
			return
		}

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidRequestBodyResponse)
		return
	}

	req.URL = strings.TrimSpace(req.URL)

	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, validationErrorResponse(getValidationErrors(err)))
		return
	}

	var expiresAt *time.Time
	if req.ExpiresAt != nil && *req.ExpiresAt != "" {
		t, err := parseExpiresAt(*req.ExpiresAt)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, validationErrorResponse([]validationError{{
				Field:   "expires_at",
				Message: "expires_at must be a valid ISO-8601 datetime",
			}}))
			return
		}
		expiresAt = &t
	}

	url, err := h.urlUseCase.ShortenURL(r.Context(), req.URL, expiresAt)
	if err != nil {
		renderUseCaseError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, shortenResponse{
		Message: "URL shortened successfully",
		Data:    toURLView(url, h.shortBase(r)),
	})
}

func (h *urlHandler) getURL(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	url, err := h.urlUseCase.GetURL(r.Context(), shortCode)
	if err != nil {
		renderUseCaseError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, urlResponse{Data: toURLView(url, h.shortBase(r))})
}

func (h *urlHandler) redirect(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	click := entity.Click{
		IPAddress: ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
	}

	originalURL, err := h.urlUseCase.ResolveShortCode(r.Context(), shortCode, click)
	if err != nil {
		renderUseCaseError(w, r, err)
		return
	}

	http.Redirect(w, r, originalURL, http.StatusFound)
}

// queryInt returns the integer query parameter or zero when it is absent or malformed.
func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}

func (h *urlHandler) getAnalytics(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	analytics, err := h.analyticsUseCase.GetURLAnalytics(r.Context(), shortCode, queryInt(r, "page"), queryInt(r, "per_page"))
	if err != nil {
		renderUseCaseError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toAnalyticsResponse(analytics, h.shortBase(r)))
}

func (h *urlHandler) deleteURL(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	if err := h.urlUseCase.DeleteURL(r.Context(), shortCode); err != nil {
		renderUseCaseError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
