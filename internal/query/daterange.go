package query

import (
	"fmt"
	"strings"
	"time"

	"civicboard/internal/models"
)

// Date range tags accepted by Filter.DateRange.
const (
	RangeToday       = "today"
	RangeTomorrow    = "tomorrow"
	RangeThisWeek    = "this_week"
	RangeThisWeekend = "this_weekend"
	RangeNextWeek    = "next_week"
	RangeThisMonth   = "this_month"
	RangeNextMonth   = "next_month"
)

// ResolveDateRange returns the half-open [start, end) window for tag relative
// to now. Weeks start on Monday. Unknown tags are rejected.
func ResolveDateRange(tag string, now time.Time) (start, end time.Time, err error) {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	daysSinceMonday := (int(today.Weekday()) + 6) % 7
	monday := today.AddDate(0, 0, -daysSinceMonday)
	nextMonday := monday.AddDate(0, 0, 7)
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)

	switch strings.ToLower(strings.TrimSpace(tag)) {
	case RangeToday:
		return today, today.AddDate(0, 0, 1), nil
	case RangeTomorrow:
		return today.AddDate(0, 0, 1), today.AddDate(0, 0, 2), nil
	case RangeThisWeek:
		return monday, nextMonday, nil
	case RangeThisWeekend:
		return monday.AddDate(0, 0, 5), nextMonday, nil
	case RangeNextWeek:
		return nextMonday, nextMonday.AddDate(0, 0, 7), nil
	case RangeThisMonth:
		return firstOfMonth, firstOfMonth.AddDate(0, 1, 0), nil
	case RangeNextMonth:
		return firstOfMonth.AddDate(0, 1, 0), firstOfMonth.AddDate(0, 2, 0), nil
	default:
		return time.Time{}, time.Time{}, models.NewValidationError(fmt.Sprintf("unknown date range %q", tag))
	}
}
