package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"SolPulse/internal/domain/models"
	domrepo "SolPulse/internal/domain/repository"
	"SolPulse/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(addr string, hour time.Time, vol float64, buyers, holders int64) models.TokenMetricSample {
	return models.TokenMetricSample{
		TokenAddress: addr,
		Hour:         hour,
		TxCount:      buyers * 2,
		TxVolumeUSD:  vol,
		UniqueBuyers: buyers,
		Holders:      holders,
		LiquidityUSD: 1000,
	}
}

func newTokens(t *testing.T, store TokenStore, now *time.Time) *Tokens {
	t.Helper()
	u := NewTokens(store, clockedCache(now), 5*time.Minute, 24*time.Hour, nil, nil)
	u.now = func() time.Time { return *now }
	return u
}

func seededStore(t *testing.T) *repository.MemoryStore {
	t.Helper()
	s := repository.NewMemoryStore()
	require.NoError(t, s.SaveSamples(context.Background(), []models.TokenMetricSample{
		sample("bonk", t0.Add(-3*time.Hour), 100, 4, 100),
		sample("bonk", t0.Add(-2*time.Hour), 400, 6, 110),
		sample("bonk", t0.Add(-1*time.Hour), 200, 5, 120),
		// outside the window
		sample("bonk", t0.Add(-25*time.Hour), 9999, 50, 10),
		sample("wif", t0.Add(-1*time.Hour), 50, 1, 10),
	}))
	require.NoError(t, s.SaveMetadata(context.Background(), models.TokenMetadata{TokenAddress: "bonk", Symbol: "BONK", Name: "Bonk"}))
	return s
}

func TestClockBuildsAndCaches(t *testing.T) {
	now := t0
	store := seededStore(t)
	u := newTokens(t, store, &now)

	tc, err := u.Clock(context.Background(), "bonk")
	require.NoError(t, err)
	assert.Equal(t, "bonk", tc.TokenAddress)
	require.Len(t, tc.HourlyData, 3)
	assert.Equal(t, "09:00", tc.HourlyData[0].HourLabel)
	assert.Equal(t, "10:00", tc.PeakHour)
	assert.InDelta(t, 700, tc.TotalVolume24h, 1e-9)
	assert.Equal(t, int64(15), tc.TotalUniqueBuyers24h)
	assert.Equal(t, int64(30), tc.TotalTransactions24h)

	// a new sample is not visible until the cached clock is dropped
	require.NoError(t, store.SaveSamples(context.Background(), []models.TokenMetricSample{
		sample("bonk", t0.Add(-4*time.Hour), 1000, 1, 90),
	}))
	cached, err := u.Clock(context.Background(), "bonk")
	require.NoError(t, err)
	assert.Len(t, cached.HourlyData, 3)

	u.InvalidateClock(context.Background(), "bonk")
	fresh, err := u.Clock(context.Background(), "bonk")
	require.NoError(t, err)
	assert.Len(t, fresh.HourlyData, 4)
	assert.Equal(t, "08:00", fresh.PeakHour)
}

func TestClockUnknownToken(t *testing.T) {
	now := t0
	u := newTokens(t, seededStore(t), &now)

	_, err := u.Clock(context.Background(), "nope")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)
}

func TestDetails(t *testing.T) {
	now := t0
	u := newTokens(t, seededStore(t), &now)

	d, err := u.Details(context.Background(), "bonk")
	require.NoError(t, err)
	assert.Equal(t, "BONK", d.Token.Symbol)
	assert.InDelta(t, 700, d.Metrics.Volume24h, 1e-9)
	assert.Equal(t, int64(15), d.Metrics.UniqueBuyers24h)
	assert.Equal(t, int64(120), d.Metrics.Holders)
	assert.InDelta(t, 20, d.Metrics.HoldersGrowth24h, 1e-9)
	assert.InDelta(t, 1000, d.Metrics.LiquidityUSD, 1e-9)
	assert.Equal(t, "10:00", d.PeakHour)
}

func TestDetailsWithoutMetadata(t *testing.T) {
	now := t0
	u := newTokens(t, seededStore(t), &now)

	d, err := u.Details(context.Background(), "wif")
	require.NoError(t, err)
	assert.Equal(t, models.TokenMetadata{TokenAddress: "wif"}, d.Token)
	assert.InDelta(t, 50, d.Metrics.Volume24h, 1e-9)
}

func TestDetailsOutsideWindow(t *testing.T) {
	now := t0.Add(48 * time.Hour)
	u := newTokens(t, seededStore(t), &now)

	_, err := u.Details(context.Background(), "bonk")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)
}

type failingMetadata struct {
	*repository.MemoryStore
}

func (failingMetadata) GetMetadata(context.Context, []string) (map[string]models.TokenMetadata, error) {
	return nil, errors.New("metadata db down")
}

func TestDetailsMetadataFailureIsNotFatal(t *testing.T) {
	now := t0
	u := newTokens(t, failingMetadata{seededStore(t)}, &now)

	d, err := u.Details(context.Background(), "bonk")
	require.NoError(t, err)
	assert.Equal(t, "bonk", d.Token.TokenAddress)
	assert.Empty(t, d.Token.Symbol)
}
