// ABOUTME: Time helpers for sync timestamps and article date filters
// ABOUTME: Formats last-sync times and resolves date filters like today, week, or YYYY-MM-DD

package timeutil

import (
	"errors"
	"time"
)

// StartOfDay returns midnight of the day containing t, in t's location
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartOfToday returns midnight (00:00:00) of the current day in local time
func StartOfToday() time.Time {
	return StartOfDay(time.Now())
}

// StartOfWeek returns midnight of the most recent Sunday in local time
func StartOfWeek() time.Time {
	today := StartOfToday()
	return today.AddDate(0, 0, -int(today.Weekday()))
}

// ParsePeriod converts a period name into the earliest publication time it admits.
// Supported values: "today", "yesterday", "week", "month"
func ParsePeriod(period string) (time.Time, bool) {
	switch period {
	case "today":
		return StartOfToday(), true
	case "yesterday":
		return StartOfToday().AddDate(0, 0, -1), true
	case "week":
		return StartOfWeek(), true
	case "month":
		now := time.Now()
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), true
	default:
		return time.Time{}, false
	}
}

// ErrBadDate is returned by ParseSince for unrecognized input.
var ErrBadDate = errors.New("cannot parse date: use yesterday, week, month, today, or YYYY-MM-DD format")

// ParseSince resolves a date filter: a period name, a YYYY-MM-DD date or an
// RFC 3339 timestamp.
func ParseSince(s string) (time.Time, error) {
	if t, ok := ParsePeriod(s); ok {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, ErrBadDate
}

// FormatLastSync renders a sync time relative to now: only the clock time when
// it falls on the same day, the full date and time otherwise.
func FormatLastSync(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	t = t.In(now.Location())
	if StartOfDay(t).Equal(StartOfDay(now)) {
		return t.Format("3:04 PM")
	}
	return t.Format("1/2/2006 3:04 PM")
}
