// Package entity defines the entities and errors used in the application.
// It includes the URL struct, which represents a shortened URL, the Click struct,
// which records a single resolution of a short code, and the analytics views built
// on top of them.
package entity

import (
	"errors"
	"time"
)

var (
	// ErrShortCodeExists is returned when attempting to assign a short code that already belongs to another URL.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrURLNotFound is returned when a URL with the specified short code cannot be found or is inactive.
	ErrURLNotFound = errors.New("url not found")
	// ErrURLExpired is returned when a URL exists but its expiration time has passed.
	ErrURLExpired = errors.New("url expired")
)

// URL represents a shortened URL.
type URL struct {
	ID          int64      // ID is the unique identifier of the URL in the database.
	ShortCode   string     // ShortCode is derived from ID and never changes once assigned.
	OriginalURL string     // OriginalURL is the full URL that the short code resolves to.
	URLStats               // URLStats contains statistics about the URL.
	CreatedAt   time.Time  // CreatedAt is the timestamp when the URL was created.
	ExpiresAt   *time.Time // ExpiresAt is the optional expiration timestamp, nil means never.
	IsActive    bool       // IsActive is false once the URL was deleted or found expired.
}

// URLStats contains statistics related to a shortened URL.
type URLStats struct {
	ClickCount int64 // ClickCount is the denormalized number of successful resolutions.
}

// IsExpired reports whether the URL has an expiration time before now.
func (u *URL) IsExpired(now time.Time) bool {
	return u.ExpiresAt != nil && u.ExpiresAt.Before(now)
}
