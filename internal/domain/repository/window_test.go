package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrailingWindow(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	w := TrailingWindow(now, 0)

	assert.Equal(t, now.Add(-24*time.Hour), w.Start)
	assert.Equal(t, now, w.End)
	assert.True(t, w.Contains(w.Start))
	assert.False(t, w.Contains(w.End))
	assert.False(t, w.Contains(w.Start.Add(-time.Nanosecond)))
}

func TestTruncateHour(t *testing.T) {
	loc := time.FixedZone("X", 2*3600)
	in := time.Date(2024, 3, 1, 14, 59, 59, 0, loc)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), TruncateHour(in))
}
