package repository

import (
	"time"

	"SolPulse/pkg/util"
)

// DefaultWindow is the trailing scoring window.
const DefaultWindow = 24 * time.Hour

// Window is the half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// TrailingWindow returns the window of length d ending at now.
func TrailingWindow(now time.Time, d time.Duration) Window {
	if d <= 0 {
		d = DefaultWindow
	}
	start, end := util.TrailingWindow(now, d)
	return Window{Start: start, End: end}
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// TruncateHour normalizes a sample timestamp to its UTC hour bucket.
func TruncateHour(t time.Time) time.Time {
	return util.TruncateHour(t)
}
