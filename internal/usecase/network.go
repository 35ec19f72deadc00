package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SolPulse/internal/domain/models"
	domrepo "SolPulse/internal/domain/repository"
	"SolPulse/internal/services/clock"
	"SolPulse/pkg/cache"
	applogger "SolPulse/pkg/logger"
)

const (
	networkPulseCache = "network_pulse"
	networkPulseKey   = "network:pulse"
)

// Network serves chain-wide activity views.
type Network struct {
	store   domrepo.NetworkStatsReader
	cache   cache.Service
	ttl     time.Duration
	window  time.Duration
	metrics domrepo.Metrics
	l       *applogger.Logger
	now     func() time.Time
}

func NewNetwork(store domrepo.NetworkStatsReader, c cache.Service, ttl, window time.Duration, metrics domrepo.Metrics, l *applogger.Logger) *Network {
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &Network{store: store, cache: c, ttl: ttl, window: window, metrics: metrics, l: l, now: time.Now}
}

// Pulse returns the hourly network activity of the trailing window, cached
// for the configured TTL. An empty window is ErrNotFound.
func (u *Network) Pulse(ctx context.Context) (models.NetworkPulse, error) {
	p, hit, err := cache.Remember(ctx, u.cache, networkPulseKey, u.ttl, func(ctx context.Context) (models.NetworkPulse, error) {
		w := domrepo.TrailingWindow(u.now(), u.window)
		stats, err := u.store.GetNetworkStats(ctx, w.Start, w.End)
		if err != nil {
			u.metrics.RecordError("store_read")
			return models.NetworkPulse{}, fmt.Errorf("get network stats: %w", err)
		}
		p, err := clock.BuildNetworkPulse(stats)
		if errors.Is(err, clock.ErrNoData) {
			return models.NetworkPulse{}, fmt.Errorf("network pulse: %w", domrepo.ErrNotFound)
		}
		return p, err
	})
	u.metrics.RecordCacheRequest(networkPulseCache, hit)
	return p, err
}

// Stats describes the most recent stored hour. It is read through on every
// call.
func (u *Network) Stats(ctx context.Context) (models.NetworkStats, error) {
	latest, err := u.store.LatestNetworkStat(ctx)
	if err != nil {
		if !errors.Is(err, domrepo.ErrNotFound) {
			u.metrics.RecordError("store_read")
		}
		return models.NetworkStats{}, fmt.Errorf("latest network stat: %w", err)
	}
	return clock.CurrentNetworkStats(latest), nil
}

// InvalidatePulse drops the cached pulse so the next read sees new stats.
func (u *Network) InvalidatePulse(ctx context.Context) {
	if err := u.cache.Delete(ctx, networkPulseKey); err != nil {
		u.l.Warn("failed to invalidate network pulse", applogger.Error(err))
	}
}
