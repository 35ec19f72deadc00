package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"SolPulse/internal/domain/models"
	domrepo "SolPulse/internal/domain/repository"
	"SolPulse/pkg/cache"
	applogger "SolPulse/pkg/logger"

	"github.com/alitto/pond/v2"
)

const snapshotLockKey = "lock:ranking-snapshot"

// NamedSink labels a RankingSink in logs.
type NamedSink struct {
	Name string
	Sink domrepo.RankingSink
}

// RankingSnapshotter computes a snapshot and fans it out to every sink.
// A cache lock keeps concurrent instances from writing the same tick twice.
type RankingSnapshotter struct {
	engine   TopNCalculator
	sinks    []NamedSink
	locker   cache.Service
	rankings *Rankings
	pool     pond.Pool
	lockTTL  time.Duration
	metrics  domrepo.Metrics
	l        *applogger.Logger
	now      func() time.Time
}

func NewRankingSnapshotter(engine TopNCalculator, sinks []NamedSink, locker cache.Service, rankings *Rankings, metrics domrepo.Metrics, l *applogger.Logger) *RankingSnapshotter {
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	workers := len(sinks)
	if workers < 1 {
		workers = 1
	}
	return &RankingSnapshotter{
		engine:   engine,
		sinks:    sinks,
		locker:   locker,
		rankings: rankings,
		pool:     pond.NewPool(workers, pond.WithQueueSize(workers*4)),
		lockTTL:  time.Minute,
		metrics:  metrics,
		l:        l,
		now:      time.Now,
	}
}

// Snapshot runs one tick. It returns ok=false when another instance holds
// the lock. Sink failures are joined into the error after every sink ran.
func (s *RankingSnapshotter) Snapshot(ctx context.Context) (snap models.RankingSnapshot, ok bool, err error) {
	if s.locker != nil {
		locked, err := s.locker.TryLock(ctx, snapshotLockKey, s.lockTTL)
		if err != nil {
			s.l.Warn("snapshot lock unavailable, running unlocked", applogger.Error(err))
		} else if !locked {
			s.l.Debug("snapshot already running elsewhere")
			return models.RankingSnapshot{}, false, nil
		} else {
			defer func() {
				if err := s.locker.Unlock(context.WithoutCancel(ctx), snapshotLockKey); err != nil {
					s.l.Warn("failed to release snapshot lock", applogger.Error(err))
				}
			}()
		}
	}

	start := time.Now()
	n := s.engine.OutputSize()
	ranked, err := s.engine.CalculateTopNCapped(ctx, n, n)
	if err != nil {
		return models.RankingSnapshot{}, true, fmt.Errorf("calculate snapshot: %w", err)
	}
	snap = models.RankingSnapshot{RankingTime: s.now().UTC().Truncate(time.Second), Rankings: ranked}

	if err := s.fanOut(ctx, snap); err != nil {
		return snap, true, err
	}
	if s.rankings != nil {
		s.rankings.Prime(ctx, snap)
	}
	s.l.Info("ranking snapshot stored",
		applogger.Time("ranking_time", snap.RankingTime),
		applogger.Int("tokens", len(ranked)),
		applogger.Int("sinks", len(s.sinks)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return snap, true, nil
}

func (s *RankingSnapshotter) fanOut(ctx context.Context, snap models.RankingSnapshot) error {
	var (
		mu   sync.Mutex
		errs []error
	)
	group := s.pool.NewGroup()
	for _, ns := range s.sinks {
		ns := ns
		group.Submit(func() {
			if err := ns.Sink.SaveRanking(ctx, snap); err != nil {
				s.metrics.RecordError("snapshot_sink")
				s.l.Error("ranking sink failed", applogger.String("sink", ns.Name), applogger.Error(err))
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", ns.Name, err))
				mu.Unlock()
			}
		})
	}
	if err := group.Wait(); err != nil && !errors.Is(err, pond.ErrGroupStopped) {
		return err
	}
	return errors.Join(errs...)
}

// Close waits for in-flight sink writes.
func (s *RankingSnapshotter) Close() {
	s.pool.StopAndWait()
}
