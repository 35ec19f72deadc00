package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"SolPulse/internal/services/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRankings(e *fakeEngine, now *time.Time) *Rankings {
	u := NewRankings(e, clockedCache(now), 5*time.Minute, 24*time.Hour, nil, nil)
	u.now = func() time.Time { return *now }
	return u
}

func TestTopMemeCachesFreshResult(t *testing.T) {
	now := t0
	e := &fakeEngine{out: ranked("a", "b", "c")}
	u := newRankings(e, &now)

	first, err := u.TopMeme(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, []string{"a", "b"}, addressesOf(first.Rankings))
	assert.Equal(t, t0, first.LastUpdated)

	second, err := u.TopMeme(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, []string{"a", "b"}, addressesOf(second.Rankings))
	assert.Equal(t, 1, e.callCount())

	// expired after the ranking TTL
	now = now.Add(6 * time.Minute)
	third, err := u.TopMeme(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Equal(t, 2, e.callCount())
}

func TestTopMemeLimitResolution(t *testing.T) {
	now := t0
	e := &fakeEngine{out: ranked("a")}
	u := newRankings(e, &now)

	assert.Equal(t, 50, u.Limit(0))
	assert.Equal(t, 50, u.Limit(-3))
	assert.Equal(t, 7, u.Limit(7))
	assert.Equal(t, 100, u.Limit(500))

	_, err := u.TopMeme(context.Background(), 500)
	require.NoError(t, err)
	assert.Equal(t, 100, e.lastN)
	assert.Equal(t, 100, e.lastLimit)
}

func TestTopMemeServesStaleOnStoreFailure(t *testing.T) {
	now := t0
	e := &fakeEngine{out: ranked("a", "b")}
	u := newRankings(e, &now)

	_, err := u.TopMeme(context.Background(), 10)
	require.NoError(t, err)

	now = now.Add(10 * time.Minute)
	e.err = fmt.Errorf("%w: %w", scoring.ErrMetricsStoreUnavailable, errors.New("dial tcp: refused"))

	resp, err := u.TopMeme(context.Background(), 10)
	require.NoError(t, err)
	assert.True(t, resp.Stale)
	assert.True(t, resp.Cached)
	assert.Equal(t, t0, resp.LastUpdated)
	assert.Equal(t, []string{"a", "b"}, addressesOf(resp.Rankings))
}

func TestTopMemeUnavailableWithoutStaleCopy(t *testing.T) {
	now := t0
	e := &fakeEngine{err: fmt.Errorf("%w: %w", scoring.ErrMetricsStoreUnavailable, errors.New("timeout"))}
	u := newRankings(e, &now)

	_, err := u.TopMeme(context.Background(), 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRankingsUnavailable)
	assert.ErrorIs(t, err, scoring.ErrMetricsStoreUnavailable)
}

func TestTopMemeOtherErrorsAreNotMaskedByStale(t *testing.T) {
	now := t0
	e := &fakeEngine{out: ranked("a")}
	u := newRankings(e, &now)
	_, err := u.TopMeme(context.Background(), 10)
	require.NoError(t, err)

	now = now.Add(10 * time.Minute)
	e.err = context.DeadlineExceeded
	_, err = u.TopMeme(context.Background(), 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrRankingsUnavailable)
}

func TestPrimeReplacesFreshEntries(t *testing.T) {
	now := t0
	e := &fakeEngine{out: ranked("old")}
	u := newRankings(e, &now)

	_, err := u.TopMeme(context.Background(), 5)
	require.NoError(t, err)
	_, err = u.TopMeme(context.Background(), 50)
	require.NoError(t, err)
	require.Equal(t, 2, e.callCount())

	snapAt := t0.Add(time.Minute)
	u.Prime(context.Background(), snapshotOf(snapAt, "new1", "new2"))

	// the default limit is served from the primed snapshot
	resp, err := u.TopMeme(context.Background(), 50)
	require.NoError(t, err)
	assert.True(t, resp.Cached)
	assert.Equal(t, snapAt, resp.LastUpdated)
	assert.Equal(t, []string{"new1", "new2"}, addressesOf(resp.Rankings))

	// other limits were invalidated and recompute
	e.out = ranked("new1")
	resp, err = u.TopMeme(context.Background(), 5)
	require.NoError(t, err)
	assert.False(t, resp.Cached)
	assert.Equal(t, 3, e.callCount())
}
