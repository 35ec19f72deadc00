package util

import (
	"fmt"
	"strconv"
	"time"
)

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds or milliseconds.
// Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return FromUnix(ts), true
	}
	return time.Time{}, false
}

// FromUnix accepts seconds or milliseconds since epoch.
func FromUnix(ts int64) time.Time {
	if ts > 1e11 { // ms
		return time.UnixMilli(ts).UTC()
	}
	return time.Unix(ts, 0).UTC()
}

// TruncateHour returns t in UTC, truncated to the start of its hour.
func TruncateHour(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

// TrailingWindow returns the half-open range [now-d, now).
func TrailingWindow(now time.Time, d time.Duration) (time.Time, time.Time) {
	end := now.UTC()
	return end.Add(-d), end
}

// HourLabel formats the UTC hour of t zero-padded, "05:00" rather than "5:00".
func HourLabel(t time.Time) string {
	return fmt.Sprintf("%02d:00", t.UTC().Hour())
}
