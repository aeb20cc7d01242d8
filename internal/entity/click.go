package entity

import "time"

// Click records a single successful resolution of a short code.
// IPAddress, UserAgent and Referer come straight from the request and are stored verbatim.
type Click struct {
	ID        int64
	URLID     int64
	IPAddress string
	UserAgent string
	Referer   string
	ClickedAt time.Time
}

// DailyClicks is the number of clicks a URL received on a single UTC day.
type DailyClicks struct {
	Date  time.Time
	Count int64
}

// Pagination describes a page of a larger result set.
type Pagination struct {
	Page    int
	PerPage int
	Total   int64
	Pages   int
}

// URLAnalytics aggregates click statistics for a single URL.
type URLAnalytics struct {
	URL          *URL
	TotalClicks  int64
	DailyClicks  []DailyClicks
	RecentClicks []Click
	Pagination   Pagination
}
