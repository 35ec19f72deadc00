package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SolPulse/internal/domain/models"
	domrepo "SolPulse/internal/domain/repository"
	"SolPulse/internal/services/clock"
	"SolPulse/internal/services/scoring"
	"SolPulse/pkg/cache"
	applogger "SolPulse/pkg/logger"
)

const (
	tokenClockCache  = "token_clock"
	tokenClockPrefix = "token:clock"
)

// TokenStore is the storage surface per-token views read from.
type TokenStore interface {
	domrepo.TokenSampleReader
	domrepo.MetadataLookup
}

// Tokens serves per-token views over the trailing window.
type Tokens struct {
	store    TokenStore
	cache    cache.Service
	clockTTL time.Duration
	window   time.Duration
	metrics  domrepo.Metrics
	l        *applogger.Logger
	now      func() time.Time
}

func NewTokens(store TokenStore, c cache.Service, clockTTL, window time.Duration, metrics domrepo.Metrics, l *applogger.Logger) *Tokens {
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &Tokens{store: store, cache: c, clockTTL: clockTTL, window: window, metrics: metrics, l: l, now: time.Now}
}

// Clock returns the hourly histogram of address, ErrNotFound without samples.
func (u *Tokens) Clock(ctx context.Context, address string) (models.TokenClock, error) {
	tc, hit, err := cache.Remember(ctx, u.cache, clockKey(address), u.clockTTL, func(ctx context.Context) (models.TokenClock, error) {
		samples, err := u.samples(ctx, address, domrepo.TrailingWindow(u.now(), u.window))
		if err != nil {
			return models.TokenClock{}, err
		}
		tc, err := clock.BuildTokenClock(address, samples)
		if errors.Is(err, clock.ErrNoData) {
			return models.TokenClock{}, fmt.Errorf("token %s: %w", address, domrepo.ErrNotFound)
		}
		return tc, err
	})
	u.metrics.RecordCacheRequest(tokenClockCache, hit)
	return tc, err
}

// Details combines metadata with the 24h aggregate. A token with no samples
// in the window is reported as ErrNotFound.
func (u *Tokens) Details(ctx context.Context, address string) (models.TokenDetails, error) {
	w := domrepo.TrailingWindow(u.now(), u.window)
	samples, err := u.samples(ctx, address, w)
	if err != nil {
		return models.TokenDetails{}, err
	}
	aggs := scoring.Aggregate(samples, w)
	if len(aggs) == 0 {
		return models.TokenDetails{}, fmt.Errorf("token %s: %w", address, domrepo.ErrNotFound)
	}
	agg := aggs[0]

	meta := models.TokenMetadata{TokenAddress: address}
	found, err := u.store.GetMetadata(ctx, []string{address})
	if err != nil {
		u.l.Warn("token metadata unavailable", applogger.String("token", address), applogger.Error(err))
	} else if m, ok := found[address]; ok {
		meta = m
	}

	return models.TokenDetails{
		Token: meta,
		Metrics: models.TokenMetrics{
			Volume24h:            agg.Volume24h,
			UniqueBuyers24h:      agg.Buyers24h,
			Holders:              agg.HoldersCurrent,
			HoldersGrowth24h:     agg.HoldersGrowthPct,
			LiquidityUSD:         agg.LiquidityAvg,
			TotalTransactions24h: agg.Transactions24h,
		},
		PeakHour: clock.PeakHour(agg.Samples),
	}, nil
}

// InvalidateClock drops the cached clocks of the given tokens.
func (u *Tokens) InvalidateClock(ctx context.Context, addresses ...string) {
	if len(addresses) == 0 {
		return
	}
	keys := make([]string, len(addresses))
	for i, a := range addresses {
		keys[i] = clockKey(a)
	}
	if err := u.cache.Delete(ctx, keys...); err != nil {
		u.l.Warn("failed to invalidate token clocks", applogger.Int("tokens", len(keys)), applogger.Error(err))
	}
}

func (u *Tokens) samples(ctx context.Context, address string, w domrepo.Window) ([]models.TokenMetricSample, error) {
	samples, err := u.store.GetTokenSamples(ctx, address, w.Start, w.End)
	if err != nil {
		u.metrics.RecordError("store_read")
		return nil, fmt.Errorf("get token samples: %w", err)
	}
	return samples, nil
}

func clockKey(address string) string {
	return cache.GenerateKey(tokenClockPrefix, address)
}
