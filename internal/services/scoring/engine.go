// Package scoring ranks tokens by a weighted blend of normalized 24h metrics.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SolPulse/internal/domain/models"
	"SolPulse/internal/domain/repository"
	"SolPulse/internal/services/clock"
	"SolPulse/pkg/logger"

	"github.com/shopspring/decimal"
)

const (
	DefaultOutputSize = 50
	DefaultMaxOutput  = 100
)

// ErrMetricsStoreUnavailable wraps any failure to read samples for a run.
var ErrMetricsStoreUnavailable = errors.New("metrics store unavailable")

// Engine runs the aggregate, normalize, score, rank pipeline on demand.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	reader     repository.SampleReader
	metadata   repository.MetadataLookup
	weights    Weights
	window     time.Duration
	poolSize   int
	outputSize int
	maxOutput  int
	now        func() time.Time
	logger     *logger.Logger
	metrics    repository.Metrics
}

type EngineOption func(*Engine)

func WithMetadata(m repository.MetadataLookup) EngineOption {
	return func(e *Engine) { e.metadata = m }
}

func WithWeights(w Weights) EngineOption {
	return func(e *Engine) { e.weights = w }
}

func WithWindow(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.window = d
		}
	}
}

// WithCandidatePoolSize bounds the tokens entering normalization; 0 is unlimited.
func WithCandidatePoolSize(n int) EngineOption {
	return func(e *Engine) {
		if n >= 0 {
			e.poolSize = n
		}
	}
}

func WithOutputSize(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.outputSize = n
		}
	}
}

func WithMaxOutput(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxOutput = n
		}
	}
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func WithLogger(l *logger.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithMetrics(m repository.Metrics) EngineOption {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

func NewEngine(reader repository.SampleReader, opts ...EngineOption) *Engine {
	e := &Engine{
		reader:     reader,
		weights:    DefaultWeights(),
		window:     repository.DefaultWindow,
		outputSize: DefaultOutputSize,
		maxOutput:  DefaultMaxOutput,
		now:        time.Now,
		logger:     logger.Nop(),
		metrics:    repository.NopMetrics{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.outputSize > e.maxOutput {
		e.outputSize = e.maxOutput
	}
	return e
}

// OutputSize is the default n for callers that have no explicit limit.
func (e *Engine) OutputSize() int { return e.outputSize }

// MaxOutput is the server-side cap on n.
func (e *Engine) MaxOutput() int { return e.maxOutput }

// CalculateTopN returns the n highest scoring tokens of the trailing window,
// with n clamped to [0, MaxOutput].
func (e *Engine) CalculateTopN(ctx context.Context, n int) ([]models.ScoredToken, error) {
	return e.CalculateTopNCapped(ctx, n, e.maxOutput)
}

// CalculateTopNCapped is CalculateTopN with n clamped to [0, limit] and limit
// clamped to [0, MaxOutput]. A zero n or limit returns an empty list without
// reading the store.
func (e *Engine) CalculateTopNCapped(ctx context.Context, n, limit int) ([]models.ScoredToken, error) {
	start := time.Now()
	limit = clampInt(limit, 0, e.maxOutput)
	n = clampInt(n, 0, limit)
	if n == 0 {
		return []models.ScoredToken{}, nil
	}

	w := repository.TrailingWindow(e.now(), e.window)
	samples, err := e.reader.GetSamples(ctx, w.Start, w.End)
	if err != nil {
		e.metrics.RecordError("store_read")
		e.metrics.RecordRankingRun("error", 0, time.Since(start).Seconds())
		e.logger.Error("failed to read samples",
			logger.Time("window_start", w.Start),
			logger.Time("window_end", w.End),
			logger.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrMetricsStoreUnavailable, err)
	}

	aggs := SelectCandidates(Aggregate(samples, w), e.poolSize)
	if len(aggs) == 0 {
		e.metrics.RecordRankingRun("empty", 0, time.Since(start).Seconds())
		return []models.ScoredToken{}, nil
	}
	e.attachMetadata(ctx, aggs)

	samplesByToken := make(map[string][]models.TokenMetricSample, len(aggs))
	for _, a := range aggs {
		samplesByToken[a.TokenAddress] = a.Samples
	}

	ranked := Rank(Score(aggs, e.weights), n)
	out := make([]models.ScoredToken, len(ranked))
	for i, t := range ranked {
		hist := samplesByToken[t.TokenAddress]
		t.PeakHour = clock.PeakHour(hist)
		t.MemeClock = clock.MemeClock(hist)
		out[i] = roundForDisplay(t)
	}

	elapsed := time.Since(start)
	e.metrics.RecordRankingRun("ok", len(aggs), elapsed.Seconds())
	e.logger.Debug("ranking computed",
		logger.Int("samples", len(samples)),
		logger.Int("candidates", len(aggs)),
		logger.Int("ranked", len(out)),
		logger.Duration("duration_ms", elapsed),
	)
	return out, nil
}

func (e *Engine) attachMetadata(ctx context.Context, aggs []models.TokenAggregate) {
	if e.metadata == nil {
		return
	}
	addrs := make([]string, len(aggs))
	for i, a := range aggs {
		addrs[i] = a.TokenAddress
	}
	meta, err := e.metadata.GetMetadata(ctx, addrs)
	if err != nil {
		e.metrics.RecordError("metadata_read")
		e.logger.Warn("token metadata unavailable, ranking without display fields",
			logger.Int("tokens", len(addrs)),
			logger.Error(err),
		)
		return
	}
	AttachMetadata(aggs, meta)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func roundForDisplay(t models.ScoredToken) models.ScoredToken {
	t.Score = round2(t.Score)
	t.Volume24h = round2(t.Volume24h)
	t.LiquidityUSD = round2(t.LiquidityUSD)
	t.HoldersGrowthPct = round2(t.HoldersGrowthPct)
	t.EngagementScore = round2(t.EngagementScore)
	return t
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
