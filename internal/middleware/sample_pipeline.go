package middleware

import (
	"context"
	"sync"
	"time"

	"SolPulse/internal/domain/models"
	domrepo "SolPulse/internal/domain/repository"
)

type sampleKey struct {
	address string
	hour    int64
}

// SamplePipeline sits between the feed consumer and storage. It skips
// samples identical to one already written, so redelivered messages do not
// rewrite the same rows. Only successfully written samples are remembered.
type SamplePipeline struct {
	next      domrepo.SampleWriter
	metrics   domrepo.Metrics
	retention time.Duration
	now       func() time.Time

	mu   sync.Mutex
	seen map[sampleKey]models.TokenMetricSample
}

type PipelineOption func(*SamplePipeline)

// WithRetention sets how long written samples are remembered, measured
// from the sample hour.
func WithRetention(d time.Duration) PipelineOption {
	return func(p *SamplePipeline) {
		if d > 0 {
			p.retention = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *SamplePipeline) { p.now = now }
}

func NewSamplePipeline(next domrepo.SampleWriter, metrics domrepo.Metrics, opts ...PipelineOption) *SamplePipeline {
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	p := &SamplePipeline{
		next:      next,
		metrics:   metrics,
		retention: domrepo.DefaultWindow + time.Hour,
		now:       time.Now,
		seen:      make(map[sampleKey]models.TokenMetricSample),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ domrepo.SampleWriter = (*SamplePipeline)(nil)

func (p *SamplePipeline) SaveSamples(ctx context.Context, samples []models.TokenMetricSample) error {
	fresh := p.changed(samples)
	if skipped := len(samples) - len(fresh); skipped > 0 {
		p.metrics.RecordSamplesIngested("duplicate", skipped)
	}
	if len(fresh) == 0 {
		return nil
	}

	start := time.Now()
	if err := p.next.SaveSamples(ctx, fresh); err != nil {
		p.metrics.RecordError("pipeline_write")
		return err
	}
	p.metrics.RecordLatency("pipeline_write", time.Since(start).Seconds())
	p.remember(fresh)
	return nil
}

// Len is the number of remembered samples.
func (p *SamplePipeline) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.seen)
}

func (p *SamplePipeline) changed(samples []models.TokenMetricSample) []models.TokenMetricSample {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.TokenMetricSample, 0, len(samples))
	for _, s := range samples {
		prev, ok := p.seen[keyOf(s)]
		if ok && sameSample(prev, s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (p *SamplePipeline) remember(samples []models.TokenMetricSample) {
	cutoff := p.now().Add(-p.retention)
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range samples {
		if s.Hour.Before(cutoff) {
			continue
		}
		p.seen[keyOf(s)] = s
	}
	for k, s := range p.seen {
		if s.Hour.Before(cutoff) {
			delete(p.seen, k)
		}
	}
}

func keyOf(s models.TokenMetricSample) sampleKey {
	return sampleKey{address: s.TokenAddress, hour: domrepo.TruncateHour(s.Hour).Unix()}
}

func sameSample(a, b models.TokenMetricSample) bool {
	return a.TokenAddress == b.TokenAddress &&
		a.Hour.Equal(b.Hour) &&
		a.TxCount == b.TxCount &&
		a.TxVolumeUSD == b.TxVolumeUSD &&
		a.UniqueBuyers == b.UniqueBuyers &&
		a.Holders == b.Holders &&
		a.LiquidityUSD == b.LiquidityUSD
}
