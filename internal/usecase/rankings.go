package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SolPulse/internal/domain/models"
	domrepo "SolPulse/internal/domain/repository"
	"SolPulse/internal/services/scoring"
	"SolPulse/pkg/cache"
	applogger "SolPulse/pkg/logger"
)

const (
	topMemeCache     = "top_meme"
	topMemePrefix    = "top-meme"
	topMemeLastGood  = "top-meme:last-good"
	topMemeFreshKeys = "top-meme:[0-9]*"
)

// ErrRankingsUnavailable means neither a fresh nor a stale ranking exists.
var ErrRankingsUnavailable = errors.New("rankings unavailable")

// TopNCalculator is the slice of the scoring engine the use cases need.
type TopNCalculator interface {
	CalculateTopNCapped(ctx context.Context, n, limit int) ([]models.ScoredToken, error)
	OutputSize() int
	MaxOutput() int
}

var _ TopNCalculator = (*scoring.Engine)(nil)

type cachedRanking struct {
	Rankings    []models.ScoredToken `json:"rankings"`
	LastUpdated time.Time            `json:"last_updated"`
}

// Rankings serves top-N requests cache-aside. When the metrics store is down
// it falls back to the last good ranking for the same limit.
type Rankings struct {
	engine   TopNCalculator
	cache    cache.Service
	ttl      time.Duration
	staleTTL time.Duration
	metrics  domrepo.Metrics
	l        *applogger.Logger
	now      func() time.Time
}

func NewRankings(engine TopNCalculator, c cache.Service, ttl, staleTTL time.Duration, metrics domrepo.Metrics, l *applogger.Logger) *Rankings {
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &Rankings{engine: engine, cache: c, ttl: ttl, staleTTL: staleTTL, metrics: metrics, l: l, now: time.Now}
}

// Limit resolves a requested limit: <= 0 selects the default output size,
// anything above the server cap is clamped.
func (u *Rankings) Limit(requested int) int {
	if requested <= 0 {
		requested = u.engine.OutputSize()
	}
	if max := u.engine.MaxOutput(); requested > max {
		requested = max
	}
	return requested
}

func (u *Rankings) TopMeme(ctx context.Context, limit int) (models.TopMemeResponse, error) {
	limit = u.Limit(limit)
	key := cache.GenerateKeyWithParams(topMemePrefix, limit)

	var hit cachedRanking
	if err := u.cache.Get(ctx, key, &hit); err == nil {
		u.metrics.RecordCacheRequest(topMemeCache, true)
		return models.TopMemeResponse{Rankings: hit.Rankings, LastUpdated: hit.LastUpdated, Cached: true}, nil
	}
	u.metrics.RecordCacheRequest(topMemeCache, false)

	start := time.Now()
	ranked, err := u.engine.CalculateTopNCapped(ctx, limit, limit)
	u.metrics.RecordLatency("top_meme_compute", time.Since(start).Seconds())
	if err != nil {
		return u.stale(ctx, limit, err)
	}

	entry := cachedRanking{Rankings: ranked, LastUpdated: u.now().UTC()}
	u.store(ctx, limit, entry)
	return models.TopMemeResponse{Rankings: entry.Rankings, LastUpdated: entry.LastUpdated}, nil
}

// Prime drops every fresh top-N entry and caches the snapshot under the
// default limit. Snapshots are computed with the default output size.
func (u *Rankings) Prime(ctx context.Context, snap models.RankingSnapshot) {
	if err := u.cache.DeleteByPattern(ctx, topMemeFreshKeys); err != nil {
		u.l.Warn("failed to invalidate top-meme cache", applogger.Error(err))
	}
	limit := u.engine.OutputSize()
	rankings := snap.Rankings
	if len(rankings) > limit {
		rankings = rankings[:limit]
	}
	u.store(ctx, limit, cachedRanking{Rankings: rankings, LastUpdated: snap.RankingTime.UTC()})
}

func (u *Rankings) store(ctx context.Context, limit int, entry cachedRanking) {
	fresh := cache.GenerateKeyWithParams(topMemePrefix, limit)
	if err := u.cache.Set(ctx, fresh, entry, u.ttl); err != nil {
		u.l.Warn("failed to cache ranking", applogger.String("key", fresh), applogger.Error(err))
	}
	lastGood := cache.GenerateKeyWithParams(topMemeLastGood, limit)
	if err := u.cache.Set(ctx, lastGood, entry, u.staleTTL); err != nil {
		u.l.Warn("failed to cache last good ranking", applogger.String("key", lastGood), applogger.Error(err))
	}
}

func (u *Rankings) stale(ctx context.Context, limit int, cause error) (models.TopMemeResponse, error) {
	if !errors.Is(cause, scoring.ErrMetricsStoreUnavailable) {
		return models.TopMemeResponse{}, fmt.Errorf("calculate rankings: %w", cause)
	}
	var last cachedRanking
	if err := u.cache.Get(ctx, cache.GenerateKeyWithParams(topMemeLastGood, limit), &last); err != nil {
		u.l.Error("rankings unavailable and no stale copy", applogger.Int("limit", limit), applogger.Error(cause))
		return models.TopMemeResponse{}, fmt.Errorf("%w: %w", ErrRankingsUnavailable, cause)
	}
	u.l.Warn("serving stale rankings",
		applogger.Int("limit", limit),
		applogger.Time("last_updated", last.LastUpdated),
		applogger.Error(cause),
	)
	return models.TopMemeResponse{Rankings: last.Rankings, LastUpdated: last.LastUpdated, Cached: true, Stale: true}, nil
}
