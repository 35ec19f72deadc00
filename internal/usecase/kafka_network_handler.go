package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"SolPulse/internal/domain/models"
	domrepo "SolPulse/internal/domain/repository"
	pkgkafka "SolPulse/pkg/kafka"
	applogger "SolPulse/pkg/logger"
)

// PulseInvalidator drops the cached network pulse after new stats land.
type PulseInvalidator interface {
	InvalidatePulse(ctx context.Context)
}

// KafkaNetworkHandler consumes chain-wide hourly stats. Like the samples
// handler it drops what it cannot decode or store as valid and returns store
// failures for retry.
type KafkaNetworkHandler struct {
	topic   string
	stats   domrepo.NetworkStatsWriter
	pulse   PulseInvalidator
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewKafkaNetworkHandler(topic string, stats domrepo.NetworkStatsWriter, pulse PulseInvalidator, metrics domrepo.Metrics, l *applogger.Logger) *KafkaNetworkHandler {
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &KafkaNetworkHandler{topic: topic, stats: stats, pulse: pulse, metrics: metrics, l: l}
}

var _ pkgkafka.MessageHandler = (*KafkaNetworkHandler)(nil)

func (h *KafkaNetworkHandler) Topic() string { return h.topic }

// incoming message schema: one hourly stat, or {"stats": [...]}
func (h *KafkaNetworkHandler) Handle(ctx context.Context, b []byte) error {
	stats, err := decodeNetworkStats(b)
	if err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		h.l.Warn("dropping malformed network message", applogger.String("topic", h.topic), applogger.Error(err))
		return nil
	}
	if len(stats) == 0 {
		return nil
	}

	if err := h.stats.SaveNetworkStats(ctx, stats); err != nil {
		if errors.Is(err, domrepo.ErrInvalidInput) {
			h.l.Warn("store rejected network stats", applogger.Error(err))
			return nil
		}
		h.metrics.RecordError("consumer_store")
		h.l.Error("failed to persist network stats", applogger.String("topic", h.topic), applogger.Error(err))
		return err
	}
	if h.pulse != nil {
		h.pulse.InvalidatePulse(ctx)
	}
	return nil
}

type wireNetworkStat struct {
	Hour              json.RawMessage `json:"hour"`
	TotalTransactions int64           `json:"total_transactions"`
	TotalBlocks       int64           `json:"total_blocks"`
	UniqueWallets     int64           `json:"unique_wallets"`
	AvgCUPerBlock     float64         `json:"avg_cu_per_block"`
}

type wireNetworkEnvelope struct {
	wireNetworkStat
	Stats []wireNetworkStat `json:"stats"`
}

func (w wireNetworkStat) stat() (models.NetworkHourlyStat, error) {
	hour, err := parseHour(w.Hour)
	if err != nil {
		return models.NetworkHourlyStat{}, err
	}
	return models.NetworkHourlyStat{
		Hour:              hour,
		TotalTransactions: w.TotalTransactions,
		TotalBlocks:       w.TotalBlocks,
		UniqueWallets:     w.UniqueWallets,
		AvgCUPerBlock:     w.AvgCUPerBlock,
	}, nil
}

func decodeNetworkStats(b []byte) ([]models.NetworkHourlyStat, error) {
	var w wireNetworkEnvelope
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, err
	}
	if w.Stats == nil {
		if len(w.Hour) == 0 {
			return nil, errors.New("neither a stat nor an envelope")
		}
		st, err := w.wireNetworkStat.stat()
		if err != nil {
			return nil, err
		}
		return []models.NetworkHourlyStat{st}, nil
	}

	out := make([]models.NetworkHourlyStat, 0, len(w.Stats))
	for i, ws := range w.Stats {
		st, err := ws.stat()
		if err != nil {
			return nil, fmt.Errorf("stat %d: %w", i, err)
		}
		out = append(out, st)
	}
	return out, nil
}
