package repository

import (
	"context"
	"errors"
	"time"

	"SolPulse/internal/domain/models"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SampleReader returns every hourly sample with windowStart <= hour < windowEnd.
type SampleReader interface {
	GetSamples(ctx context.Context, windowStart, windowEnd time.Time) ([]models.TokenMetricSample, error)
}

// SampleWriter upserts samples on (token_address, hour).
type SampleWriter interface {
	SaveSamples(ctx context.Context, samples []models.TokenMetricSample) error
}

// TokenSampleReader returns one token's samples in the window, oldest first.
type TokenSampleReader interface {
	GetTokenSamples(ctx context.Context, address string, windowStart, windowEnd time.Time) ([]models.TokenMetricSample, error)
}

// MetadataLookup returns metadata for the known addresses; unknown ones are absent from the map.
type MetadataLookup interface {
	GetMetadata(ctx context.Context, addresses []string) (map[string]models.TokenMetadata, error)
}

type MetadataWriter interface {
	SaveMetadata(ctx context.Context, meta models.TokenMetadata) error
}

type RankingSink interface {
	SaveRanking(ctx context.Context, snapshot models.RankingSnapshot) error
}

// RankingReader returns the newest persisted snapshot or ErrNotFound.
type RankingReader interface {
	LatestRanking(ctx context.Context) (models.RankingSnapshot, error)
}

// NetworkStatsReader reads chain-wide hourly stats. GetNetworkStats returns
// windowStart <= hour < windowEnd, oldest first; LatestNetworkStat returns
// ErrNotFound on an empty table.
type NetworkStatsReader interface {
	GetNetworkStats(ctx context.Context, windowStart, windowEnd time.Time) ([]models.NetworkHourlyStat, error)
	LatestNetworkStat(ctx context.Context) (models.NetworkHourlyStat, error)
}

// NetworkStatsWriter upserts stats on hour.
type NetworkStatsWriter interface {
	SaveNetworkStats(ctx context.Context, stats []models.NetworkHourlyStat) error
}

// Store is the full storage surface selected by storage.driver.
type Store interface {
	SampleReader
	SampleWriter
	TokenSampleReader
	MetadataLookup
	MetadataWriter
	RankingSink
	RankingReader
	NetworkStatsReader
	NetworkStatsWriter
	Health(ctx context.Context) error
	Close() error
}

type Metrics interface {
	RecordRankingRun(result string, candidates int, seconds float64)
	RecordSamplesIngested(result string, n int)
	RecordCacheRequest(cache string, hit bool)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}

// NopMetrics discards every observation.
type NopMetrics struct{}

func (NopMetrics) RecordRankingRun(string, int, float64) {}
func (NopMetrics) RecordSamplesIngested(string, int)     {}
func (NopMetrics) RecordCacheRequest(string, bool)       {}
func (NopMetrics) RecordError(string)                    {}
func (NopMetrics) RecordLatency(string, float64)         {}
