package usecase

import (
	"context"
	"fmt"
	"time"

	"SolPulse/internal/domain/models"
	applogger "SolPulse/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Snapshotter is what a scheduler tick or a refresh job runs.
type Snapshotter interface {
	Snapshot(ctx context.Context) (models.RankingSnapshot, bool, error)
}

// SnapshotScheduler runs the snapshotter on a cron spec with a seconds field.
type SnapshotScheduler struct {
	cron    *cron.Cron
	spec    string
	timeout time.Duration
	snap    Snapshotter
	l       *applogger.Logger
}

func NewSnapshotScheduler(snap Snapshotter, spec string, timeout time.Duration, l *applogger.Logger) (*SnapshotScheduler, error) {
	if l == nil {
		l = applogger.Nop()
	}
	cl := cronLogger{l: l}
	s := &SnapshotScheduler{
		cron:    cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		spec:    spec,
		timeout: timeout,
		snap:    snap,
		l:       l,
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("schedule snapshots %q: %w", spec, err)
	}
	return s, nil
}

func (s *SnapshotScheduler) tick() {
	// keep each run bounded
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, _, err := s.snap.Snapshot(ctx); err != nil {
		s.l.Error("scheduled snapshot failed", applogger.String("spec", s.spec), applogger.Error(err))
	}
}

func (s *SnapshotScheduler) Start() {
	s.cron.Start()
	s.l.Info("snapshot scheduler started", applogger.String("spec", s.spec))
}

// Stop waits for a running tick to finish or ctx to expire.
func (s *SnapshotScheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts the application logger to cron.Logger.
type cronLogger struct {
	l *applogger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append(kvFields(keysAndValues), applogger.Error(err))...)
}

func kvFields(kv []interface{}) []applogger.Field {
	fields := make([]applogger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, applogger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return fields
}
