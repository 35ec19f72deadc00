package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"SolPulse/internal/domain/models"
	domrepo "SolPulse/internal/domain/repository"
	pkgkafka "SolPulse/pkg/kafka"
	applogger "SolPulse/pkg/logger"
	"SolPulse/pkg/util"

	"github.com/go-playground/validator/v10"
)

// ClockInvalidator drops cached per-token views after new samples land.
type ClockInvalidator interface {
	InvalidateClock(ctx context.Context, addresses ...string)
}

// KafkaSamplesHandler consumes hourly stats messages and writes them to storage.
// Malformed and invalid messages are dropped; store failures are returned so
// the consumer retries and finally dead-letters.
type KafkaSamplesHandler struct {
	topic    string
	samples  domrepo.SampleWriter
	metadata domrepo.MetadataWriter
	clocks   ClockInvalidator
	metrics  domrepo.Metrics
	validate *validator.Validate
	l        *applogger.Logger
}

func NewKafkaSamplesHandler(topic string, samples domrepo.SampleWriter, metadata domrepo.MetadataWriter, clocks ClockInvalidator, metrics domrepo.Metrics, l *applogger.Logger) *KafkaSamplesHandler {
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &KafkaSamplesHandler{
		topic:    topic,
		samples:  samples,
		metadata: metadata,
		clocks:   clocks,
		metrics:  metrics,
		validate: validator.New(),
		l:        l,
	}
}

var _ pkgkafka.MessageHandler = (*KafkaSamplesHandler)(nil)

func (h *KafkaSamplesHandler) Topic() string { return h.topic }

// incoming message schema: one sample, or {"token": {...}, "samples": [...]}
func (h *KafkaSamplesHandler) Handle(ctx context.Context, b []byte) error {
	env, err := decodeEnvelope(b)
	if err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		h.metrics.RecordSamplesIngested("malformed", 1)
		h.l.Warn("dropping malformed samples message", applogger.String("topic", h.topic), applogger.Error(err))
		return nil
	}

	if err := h.check(env); err != nil {
		h.metrics.RecordSamplesIngested("invalid", len(env.Samples))
		h.l.Warn("dropping invalid samples message", applogger.String("topic", h.topic), applogger.Error(err))
		return nil
	}

	if env.Token != nil && h.metadata != nil {
		if err := h.metadata.SaveMetadata(ctx, *env.Token); err != nil {
			return h.storeFailure("consumer_metadata", err)
		}
	}

	if len(env.Samples) == 0 {
		return nil
	}
	start := time.Now()
	err = h.samples.SaveSamples(ctx, env.Samples)
	h.metrics.RecordLatency("store_samples_seconds", time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, domrepo.ErrInvalidInput) {
			h.metrics.RecordSamplesIngested("invalid", len(env.Samples))
			h.l.Warn("store rejected samples", applogger.Error(err))
			return nil
		}
		return h.storeFailure("consumer_store", err)
	}
	h.metrics.RecordSamplesIngested("ok", len(env.Samples))
	// approximate feed lag from the newest hour bucket
	h.metrics.RecordLatency("ingest_lag_seconds", time.Since(newestHour(env.Samples)).Seconds())

	if h.clocks != nil {
		h.clocks.InvalidateClock(ctx, addresses(env.Samples)...)
	}
	return nil
}

func (h *KafkaSamplesHandler) check(env models.SampleEnvelope) error {
	if env.Token != nil {
		if err := h.validate.Struct(env.Token); err != nil {
			return fmt.Errorf("token: %w", err)
		}
	}
	for i := range env.Samples {
		env.Samples[i].Hour = domrepo.TruncateHour(env.Samples[i].Hour)
		if err := h.validate.Struct(env.Samples[i]); err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
	}
	return nil
}

func (h *KafkaSamplesHandler) storeFailure(kind string, err error) error {
	h.metrics.RecordError(kind)
	h.l.Error("failed to persist samples", applogger.String("topic", h.topic), applogger.Error(err))
	return err
}

// wireSample is a sample as it appears on the feed. The hour is either an
// RFC3339 string or unix seconds or milliseconds.
type wireSample struct {
	TokenAddress string          `json:"token_address"`
	Hour         json.RawMessage `json:"hour"`
	TxCount      int64           `json:"tx_count"`
	TxVolumeUSD  float64         `json:"tx_volume_usd"`
	UniqueBuyers int64           `json:"unique_buyers"`
	Holders      int64           `json:"holders"`
	LiquidityUSD float64         `json:"liquidity_usd"`
}

type wireEnvelope struct {
	wireSample
	Token   *models.TokenMetadata `json:"token"`
	Samples []wireSample          `json:"samples"`
}

func (w wireSample) sample() (models.TokenMetricSample, error) {
	hour, err := parseHour(w.Hour)
	if err != nil {
		return models.TokenMetricSample{}, err
	}
	return models.TokenMetricSample{
		TokenAddress: w.TokenAddress,
		Hour:         hour,
		TxCount:      w.TxCount,
		TxVolumeUSD:  w.TxVolumeUSD,
		UniqueBuyers: w.UniqueBuyers,
		Holders:      w.Holders,
		LiquidityUSD: w.LiquidityUSD,
	}, nil
}

// parseHour leaves a missing hour zero for validation to reject.
func parseHour(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, nil
	}
	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, err
		}
	}
	t, ok := util.ParseTime(s)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid hour %s", raw)
	}
	return t.UTC(), nil
}

func decodeEnvelope(b []byte) (models.SampleEnvelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal(b, &w); err != nil {
		return models.SampleEnvelope{}, err
	}
	if w.Token == nil && w.Samples == nil {
		if w.TokenAddress == "" {
			return models.SampleEnvelope{}, errors.New("neither a sample nor an envelope")
		}
		s, err := w.wireSample.sample()
		if err != nil {
			return models.SampleEnvelope{}, err
		}
		return models.SampleEnvelope{Samples: []models.TokenMetricSample{s}}, nil
	}

	env := models.SampleEnvelope{Token: w.Token, Samples: make([]models.TokenMetricSample, 0, len(w.Samples))}
	for i, ws := range w.Samples {
		s, err := ws.sample()
		if err != nil {
			return models.SampleEnvelope{}, fmt.Errorf("sample %d: %w", i, err)
		}
		if s.TokenAddress == "" && env.Token != nil {
			s.TokenAddress = env.Token.TokenAddress
		}
		env.Samples = append(env.Samples, s)
	}
	return env, nil
}

func addresses(samples []models.TokenMetricSample) []string {
	seen := make(map[string]struct{}, len(samples))
	out := make([]string, 0, len(samples))
	for _, s := range samples {
		if _, ok := seen[s.TokenAddress]; ok {
			continue
		}
		seen[s.TokenAddress] = struct{}{}
		out = append(out, s.TokenAddress)
	}
	return out
}

func newestHour(samples []models.TokenMetricSample) time.Time {
	var newest time.Time
	for _, s := range samples {
		if s.Hour.After(newest) {
			newest = s.Hour
		}
	}
	return newest
}
