// Package timeutil provides UTC time helpers. All persisted timestamps and
// broadcast payloads use UTC with ISO-8601 formatting; conversion to the
// viewer's timezone is a client concern.
package timeutil

import (
	"fmt"
	"time"
)

// Now returns the current time in UTC.
func Now() time.Time {
	return time.Now().UTC()
}

// ToUTC converts a time to UTC.
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// ISO8601 formats a time as an ISO-8601 / RFC 3339 string in UTC.
func ISO8601(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseISO8601 parses an ISO-8601 / RFC 3339 string.
func ParseISO8601(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("timeutil: parse %q: %w", s, err)
	}
	return t.UTC(), nil
}

// StartOfDay returns the start of the day (00:00:00) in UTC.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysAgo returns the UTC time the given number of days before now.
func DaysAgo(days int) time.Time {
	return Now().AddDate(0, 0, -days)
}

// Since returns a short human description of the elapsed time, e.g. "3m" or
// "2h". Used in log output and notification bodies.
func Since(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
