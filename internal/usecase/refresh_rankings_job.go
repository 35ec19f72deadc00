package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"SolPulse/internal/domain/models"
	applogger "SolPulse/pkg/logger"
	"SolPulse/pkg/queue"
)

const RefreshRankingsType = "rankings.refresh"

type RefreshRankingsPayload struct {
	Reason string `json:"reason"`
}

// RefreshRankingsJob runs a snapshot for every queued refresh request.
type RefreshRankingsJob struct {
	snap Snapshotter
	l    *applogger.Logger
}

func NewRefreshRankingsJob(snap Snapshotter, l *applogger.Logger) *RefreshRankingsJob {
	if l == nil {
		l = applogger.Nop()
	}
	return &RefreshRankingsJob{snap: snap, l: l}
}

var _ queue.Job = (*RefreshRankingsJob)(nil)

func (j *RefreshRankingsJob) Name() string { return "refresh-rankings" }

func (j *RefreshRankingsJob) Type() string { return RefreshRankingsType }

func (j *RefreshRankingsJob) Handle(ctx context.Context, payload json.RawMessage) error {
	p, err := queue.ParsePayload[RefreshRankingsPayload](payload)
	if err != nil {
		return err
	}
	snap, ran, err := j.snap.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("refresh rankings: %w", err)
	}
	if ran {
		j.l.Info("rankings refreshed",
			applogger.String("reason", p.Reason),
			applogger.Int("tokens", len(snap.Rankings)),
		)
	}
	return nil
}

// Refresher requests a snapshot: queued when a publisher is configured,
// inline otherwise.
type Refresher struct {
	publisher queue.Publisher
	snap      Snapshotter
}

func NewRefresher(publisher queue.Publisher, snap Snapshotter) *Refresher {
	return &Refresher{publisher: publisher, snap: snap}
}

func (r *Refresher) Refresh(ctx context.Context, reason string) (models.RefreshResponse, error) {
	if r.publisher != nil {
		if err := r.publisher.PublishMessage(ctx, RefreshRankingsType, RefreshRankingsPayload{Reason: reason}); err != nil {
			return models.RefreshResponse{}, fmt.Errorf("enqueue refresh: %w", err)
		}
		return models.RefreshResponse{Queued: true}, nil
	}
	snap, ran, err := r.snap.Snapshot(ctx)
	if err != nil {
		return models.RefreshResponse{}, err
	}
	if !ran {
		return models.RefreshResponse{}, nil
	}
	at := snap.RankingTime
	return models.RefreshResponse{SnapshotAt: &at, Tokens: len(snap.Rankings)}, nil
}
