package query

import "math"

const (
	DefaultLimit = 20
	MaxLimit     = 100
	// MaxPageNumber bounds page numbers so offsets stay in range.
	MaxPageNumber = 1_000_000
)

// Page is a 1-based page window.
type Page struct {
	Number int `json:"page"`
	Limit  int `json:"limit"`
}

// NewPage clamps number and limit into range; limit falls back to defaultLimit
// and never exceeds maxLimit.
func NewPage(number, limit, defaultLimit, maxLimit int) Page {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	if number < 1 {
		number = 1
	}
	if number > MaxPageNumber {
		number = MaxPageNumber
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return Page{Number: number, Limit: limit}
}

// Normalized returns p clamped with the package defaults.
func (p Page) Normalized() Page {
	return NewPage(p.Number, p.Limit, DefaultLimit, MaxLimit)
}

// Offset is the number of rows skipped before this page. It saturates at
// math.MaxInt instead of overflowing.
func (p Page) Offset() int {
	if p.Number <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Number-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Number - 1) * p.Limit
}

// Window returns the [lo, hi) slice bounds of this page within n items.
func (p Page) Window(n int) (lo, hi int) {
	if n < 0 {
		n = 0
	}
	lo = p.Offset()
	if lo > n {
		lo = n
	}
	hi = n
	if p.Limit >= 0 && p.Limit < n-lo {
		hi = lo + p.Limit
	}
	return lo, hi
}

// TotalPages is ceil(total / limit).
func TotalPages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
