// Package postgres implements the durable store for shortened URLs and their click logs.
// It is the source of truth for every URL record: ids are allocated by the database,
// mutations commit atomically and records are only ever soft-deleted.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

const uniqueViolationErrCode = "23505"

// isUniqueViolationError checks if the given error is a PostgreSQL unique violation error.
func isUniqueViolationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationErrCode
}

const urlColumns = `id, short_code, original_url, created_at, expires_at, is_active, click_count`

// urlRecord represents a row of the urls table.
type urlRecord struct {
	ID          int64          `db:"id"`
	ShortCode   sql.NullString `db:"short_code"`
	OriginalURL string         `db:"original_url"`
	CreatedAt   time.Time      `db:"created_at"`
	ExpiresAt   sql.NullTime   `db:"expires_at"`
	IsActive    bool           `db:"is_active"`
	ClickCount  int64          `db:"click_count"`
}

// toURL converts a urlRecord to an entity.URL.
func (r *urlRecord) toURL() *entity.URL {
	url := &entity.URL{
		ID:          r.ID,
		ShortCode:   r.ShortCode.String,
		OriginalURL: r.OriginalURL,
		URLStats: entity.URLStats{
			ClickCount: r.ClickCount,
		},
		CreatedAt: r.CreatedAt.UTC(),
		IsActive:  r.IsActive,
	}

	if r.ExpiresAt.Valid {
		expiresAt := r.ExpiresAt.Time.UTC()
		url.ExpiresAt = &expiresAt
	}

	return url
}

// clickRecord represents a row of the click_logs table.
type clickRecord struct {
	ID        int64     `db:"id"`
	URLID     int64     `db:"url_id"`
	IPAddress string    `db:"ip_address"`
	UserAgent string    `db:"user_agent"`
	Referer   string    `db:"referer"`
	ClickedAt time.Time `db:"clicked_at"`
}

// toClick converts a clickRecord to an entity.Click.
func (r *clickRecord) toClick() entity.Click {
	return entity.Click{
		ID:        r.ID,
		URLID:     r.URLID,
		IPAddress: r.IPAddress,
		UserAgent: r.UserAgent,
		Referer:   r.Referer,
		ClickedAt: r.ClickedAt.UTC(),
	}
}

// dailyClicksRecord represents one row of the daily clicks rollup.
type dailyClicksRecord struct {
	Day    time.Time `db:"day"`
	Clicks int64     `db:"clicks"`
}

// URLRepository provides access to the urls and click_logs tables.
type URLRepository struct {
	db *sqlx.DB
}

// NewURLRepository creates a new instance of URLRepository.
func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{
		db: db,
	}
}

// Insert allocates a new id and stores the original URL without a short code.
// The record stays invisible to FindActive until FinalizeCode assigns its code.
func (r *URLRepository) Insert(ctx context.Context, originalURL string, expiresAt *time.Time) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.Insert"

	var expires sql.NullTime
	if expiresAt != nil {
		expires = sql.NullTime{Time: expiresAt.UTC(), Valid: true}
	}

	rec := new(urlRecord)
	query := `INSERT INTO urls (original_url, expires_at)
		VALUES ($1, $2)
		RETURNING ` + urlColumns

	if err := r.db.GetContext(ctx, rec, query, originalURL, expires); err != nil {
		return nil, fmt.Errorf("%s: failed to insert url: %w", op, err)
	}

	return rec.toURL(), nil
}

// FinalizeCode assigns the short code to the URL with the given id.
// Repeating the call with the same code is a no-op; a different code is never accepted.
func (r *URLRepository) FinalizeCode(ctx context.Context, id int64, shortCode string) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.FinalizeCode"

	rec := new(urlRecord)
	query := `UPDATE urls
		SET short_code = $2
		WHERE id = $1 AND (short_code IS NULL OR short_code = $2)
		RETURNING ` + urlColumns

	err := r.db.GetContext(ctx, rec, query, id, shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to finalize short code: %w", op, err)
	}

	return rec.toURL(), nil
}

// FindActive retrieves an active URL by its short code.
func (r *URLRepository) FindActive(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.FindActive"

	rec := new(urlRecord)
	query := `SELECT ` + urlColumns + `
		FROM urls
		WHERE short_code = $1 AND is_active = TRUE`

	err := r.db.GetContext(ctx, rec, query, shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to retrieve url: %w", op, err)
	}

	return rec.toURL(), nil
}

// Deactivate marks an active URL as inactive.
func (r *URLRepository) Deactivate(ctx context.Context, id int64) error {
	const op = "adapter.repository.postgres.URLRepository.Deactivate"

	query := `UPDATE urls
		SET is_active = FALSE
		WHERE id = $1 AND is_active = TRUE`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%s: failed to deactivate url: %w", op, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	return nil
}

// RecordClick appends a click log and increments the URL click counter in one transaction.
func (r *URLRepository) RecordClick(ctx context.Context, urlID int64, click entity.Click) (err error) {
	const op = "adapter.repository.postgres.URLRepository.RecordClick"

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	insertQuery := `INSERT INTO click_logs (url_id, ip_address, user_agent, referer, clicked_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err = tx.ExecContext(ctx, insertQuery, urlID, click.IPAddress, click.UserAgent, click.Referer, click.ClickedAt.UTC())
	if err != nil {
		return fmt.Errorf("%s: failed to insert click log: %w", op, err)
	}

	updateQuery := `UPDATE urls
		SET click_count = click_count + 1
		WHERE id = $1`

	res, err := tx.ExecContext(ctx, updateQuery, urlID)
	if err != nil {
		return fmt.Errorf("%s: failed to increment click count: %w", op, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	return nil
}

// ListClicks returns a newest-first slice of click logs for the URL and the total number of logs.
func (r *URLRepository) ListClicks(ctx context.Context, urlID int64, limit, offset int) ([]entity.Click, int64, error) {
	const op = "adapter.repository.postgres.URLRepository.ListClicks"

	var total int64
	countQuery := `SELECT COUNT(*) FROM click_logs WHERE url_id = $1`

	if err := r.db.GetContext(ctx, &total, countQuery, urlID); err != nil {
		return nil, 0, fmt.Errorf("%s: failed to count click logs: %w", op, err)
	}

	var recs []clickRecord
	query := `SELECT id, url_id, ip_address, user_agent, referer, clicked_at
		FROM click_logs
		WHERE url_id = $1
		ORDER BY clicked_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	if err := r.db.SelectContext(ctx, &recs, query, urlID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("%s: failed to list click logs: %w", op, err)
	}

	clicks := make([]entity.Click, 0, len(recs))
	for i := range recs {
		clicks = append(clicks, recs[i].toClick())
	}

	return clicks, total, nil
}

// DailyClicks returns per-day click counts for the URL, newest day first, limited to days entries.
func (r *URLRepository) DailyClicks(ctx context.Context, urlID int64, days int) ([]entity.DailyClicks, error) {
	const op = "adapter.repository.postgres.URLRepository.DailyClicks"

	var recs []dailyClicksRecord
	query := `SELECT DATE(clicked_at AT TIME ZONE 'UTC') AS day, COUNT(*) AS clicks
		FROM click_logs
		WHERE url_id = $1
		GROUP BY day
		ORDER BY day DESC
		LIMIT $2`

	if err := r.db.SelectContext(ctx, &recs, query, urlID, days); err != nil {
		return nil, fmt.Errorf("%s: failed to aggregate daily clicks: %w", op, err)
	}

	daily := make([]entity.DailyClicks, 0, len(recs))
	for _, rec := range recs {
		daily = append(daily, entity.DailyClicks{
			Date:  time.Date(rec.Day.Year(), rec.Day.Month(), rec.Day.Day(), 0, 0, 0, 0, time.UTC),
			Count: rec.Clicks,
		})
	}

	return daily, nil
}
