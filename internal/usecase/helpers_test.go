package usecase

import (
	"context"
	"sync"
	"time"

	"SolPulse/internal/domain/models"
	"SolPulse/pkg/cache"
)

var t0 = time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC)

type fakeEngine struct {
	mu        sync.Mutex
	out       []models.ScoredToken
	err       error
	calls     int
	lastN     int
	lastLimit int
}

func (f *fakeEngine) CalculateTopNCapped(_ context.Context, n, limit int) ([]models.ScoredToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastN, f.lastLimit = n, limit
	if f.err != nil {
		return nil, f.err
	}
	if n > len(f.out) {
		n = len(f.out)
	}
	return append([]models.ScoredToken(nil), f.out[:n]...), nil
}

func (f *fakeEngine) OutputSize() int { return 50 }

func (f *fakeEngine) MaxOutput() int { return 100 }

func (f *fakeEngine) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func ranked(addrs ...string) []models.ScoredToken {
	out := make([]models.ScoredToken, len(addrs))
	for i, a := range addrs {
		out[i] = models.ScoredToken{Rank: i + 1, TokenAddress: a, Score: float64(100 - i)}
	}
	return out
}

// clockedCache is a memory cache whose expiry follows *now.
func clockedCache(now *time.Time) *cache.MemoryCache {
	return cache.NewMemoryCache(
		cache.WithMemoryCleanup(0),
		cache.WithMemoryClock(func() time.Time { return *now }),
	)
}

func addressesOf(tokens []models.ScoredToken) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.TokenAddress
	}
	return out
}

func snapshotOf(at time.Time, addrs ...string) models.RankingSnapshot {
	return models.RankingSnapshot{RankingTime: at, Rankings: ranked(addrs...)}
}
