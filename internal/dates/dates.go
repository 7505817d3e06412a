// Package dates holds the calendar arithmetic used by the streak and
// aggregation code. All day keys are calendar dates in UTC formatted as
// YYYY-MM-DD; arithmetic is done at midday UTC so DST transitions and
// leap seconds can never shift a key across a date boundary.
package dates

import (
	"errors"
	"fmt"
	"time"
)

const dayKeyLayout = "2006-01-02"

// ErrInvalidDateKey is returned for strings that do not parse as a
// YYYY-MM-DD calendar date. Callers treat it as "no data for that day".
var ErrInvalidDateKey = errors.New("invalid date key")

// DayKey normalizes an instant to its UTC calendar date. The time of day
// is pinned to midday before the date is extracted, never truncated from
// a local timestamp.
func DayKey(t time.Time) string {
	u := t.UTC()
	midday := time.Date(u.Year(), u.Month(), u.Day(), 12, 0, 0, 0, time.UTC)
	return midday.Format(dayKeyLayout)
}

// ParseDayKey parses a YYYY-MM-DD key into its midday-UTC instant.
func ParseDayKey(key string) (time.Time, error) {
	t, err := time.ParseInLocation(dayKeyLayout, key, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateKey, key)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, time.UTC), nil
}

// AddDays shifts a day key by delta calendar days. Delta may be negative.
func AddDays(key string, delta int) (string, error) {
	t, err := ParseDayKey(key)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, delta).Format(dayKeyLayout), nil
}

// DayDiff returns the signed number of calendar days from a to b, so
// DayDiff("2024-01-01", "2024-01-03") == 2.
func DayDiff(a, b string) (int, error) {
	ta, err := ParseDayKey(a)
	if err != nil {
		return 0, err
	}
	tb, err := ParseDayKey(b)
	if err != nil {
		return 0, err
	}
	// Both instants sit at midday UTC, so the division is exact.
	return int(tb.Sub(ta) / (24 * time.Hour)), nil
}
