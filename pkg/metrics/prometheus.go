package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "solpulse"

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	rankingRuns     *prometheus.CounterVec
	rankingDuration prometheus.Histogram
	candidates      prometheus.Gauge
	samplesIngested *prometheus.CounterVec
	cacheRequests   *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

var (
	defaultOnce     sync.Once
	defaultRecorder *Recorder
)

// New returns the process-wide recorder registered on the default registry.
func New() *Recorder {
	defaultOnce.Do(func() {
		defaultRecorder = NewWithRegisterer(prometheus.DefaultRegisterer)
	})
	return defaultRecorder
}

// NewWithRegisterer creates a recorder whose collectors live on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		rankingRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ranking_runs_total",
				Help:      "Total number of scoring runs by result",
			},
			[]string{"result"},
		),
		rankingDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ranking_duration_seconds",
				Help:      "Duration of a full scoring run",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
		),
		candidates: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ranking_candidates",
				Help:      "Tokens in the candidate pool of the last scoring run",
			},
		),
		samplesIngested: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "samples_ingested_total",
				Help:      "Hourly metric samples received from the feed by result",
			},
			[]string{"result"},
		),
		cacheRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_requests_total",
				Help:      "Cache lookups by cache name and result",
			},
			[]string{"cache", "result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordRankingRun records one scoring run.
func (r *Recorder) RecordRankingRun(result string, candidates int, seconds float64) {
	r.rankingRuns.WithLabelValues(result).Inc()
	r.rankingDuration.Observe(seconds)
	if result == "ok" {
		r.candidates.Set(float64(candidates))
	}
}

// RecordSamplesIngested counts n samples with the given result label.
func (r *Recorder) RecordSamplesIngested(result string, n int) {
	r.samplesIngested.WithLabelValues(result).Add(float64(n))
}

// RecordCacheRequest counts a cache lookup; hit selects the result label.
func (r *Recorder) RecordCacheRequest(cache string, hit bool) {
	r.cacheRequests.WithLabelValues(cache, strconv.FormatBool(hit)).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
