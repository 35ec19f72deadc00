package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterBurstAndRefill(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(2, 0.5, WithClock(func() time.Time { return now }))

	assert.True(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("1.2.3.4"))
	assert.False(t, l.Allow("1.2.3.4"))
	// other keys have their own bucket
	assert.True(t, l.Allow("5.6.7.8"))

	now = now.Add(time.Second)
	assert.False(t, l.Allow("1.2.3.4"))
	now = now.Add(time.Second)
	assert.True(t, l.Allow("1.2.3.4"))
}

func TestLimiterPrune(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(1, 1, WithClock(func() time.Time { return now }))

	l.Allow("a")
	l.Allow("b")
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, 0, l.Prune())

	now = now.Add(2 * time.Second)
	assert.Equal(t, 2, l.Prune())
	assert.Equal(t, 0, l.Len())
}
