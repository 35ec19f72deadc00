package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"SolPulse/internal/domain/models"
	domrepo "SolPulse/internal/domain/repository"
)

type sampleKey struct {
	address string
	hour    int64
}

// MemoryStore keeps samples, metadata and snapshots in process memory.
// Reads return copies.
type MemoryStore struct {
	mu        sync.RWMutex
	samples   map[sampleKey]models.TokenMetricSample
	metadata  map[string]models.TokenMetadata
	network   map[int64]models.NetworkHourlyStat
	snapshots []models.RankingSnapshot
	maxSnaps  int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		samples:  make(map[sampleKey]models.TokenMetricSample),
		metadata: make(map[string]models.TokenMetadata),
		network:  make(map[int64]models.NetworkHourlyStat),
		maxSnaps: 288,
	}
}

var _ domrepo.Store = (*MemoryStore)(nil)

func (s *MemoryStore) SaveSamples(_ context.Context, samples []models.TokenMetricSample) error {
	clean, err := normalizeSamples(samples)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sm := range clean {
		s.samples[sampleKey{address: sm.TokenAddress, hour: sm.Hour.Unix()}] = sm
	}
	return nil
}

// GetSamples returns samples ordered by hour, then token address, the same
// order the SQL stores use.
func (s *MemoryStore) GetSamples(_ context.Context, start, end time.Time) ([]models.TokenMetricSample, error) {
	w := domrepo.Window{Start: start, End: end}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.TokenMetricSample, 0)
	for _, sm := range s.samples {
		if w.Contains(sm.Hour) {
			out = append(out, sm)
		}
	}
	sortByHourAddress(out)
	return out, nil
}

func (s *MemoryStore) GetTokenSamples(_ context.Context, address string, start, end time.Time) ([]models.TokenMetricSample, error) {
	w := domrepo.Window{Start: start, End: end}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.TokenMetricSample, 0)
	for k, sm := range s.samples {
		if k.address == address && w.Contains(sm.Hour) {
			out = append(out, sm)
		}
	}
	sortByHourAddress(out)
	return out, nil
}

func (s *MemoryStore) SaveMetadata(_ context.Context, meta models.TokenMetadata) error {
	if err := validateMetadata(meta); err != nil {
		return err
	}
	s.mu.Lock()
	s.metadata[meta.TokenAddress] = meta
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) GetMetadata(_ context.Context, addresses []string) (map[string]models.TokenMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.TokenMetadata, len(addresses))
	for _, a := range addresses {
		if m, ok := s.metadata[a]; ok {
			out[a] = m
		}
	}
	return out, nil
}

// SaveRanking keeps the most recent snapshots only.
func (s *MemoryStore) SaveRanking(_ context.Context, snap models.RankingSnapshot) error {
	cp := models.RankingSnapshot{
		RankingTime: snap.RankingTime,
		Rankings:    append([]models.ScoredToken(nil), snap.Rankings...),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, cp)
	if len(s.snapshots) > s.maxSnaps {
		s.snapshots = s.snapshots[len(s.snapshots)-s.maxSnaps:]
	}
	return nil
}

// LatestRanking returns the newest saved snapshot.
func (s *MemoryStore) LatestRanking(_ context.Context) (models.RankingSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.snapshots) == 0 {
		return models.RankingSnapshot{}, domrepo.ErrNotFound
	}
	last := s.snapshots[len(s.snapshots)-1]
	last.Rankings = append([]models.ScoredToken(nil), last.Rankings...)
	return last, nil
}

func (s *MemoryStore) SaveNetworkStats(_ context.Context, stats []models.NetworkHourlyStat) error {
	clean, err := normalizeNetworkStats(stats)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range clean {
		s.network[st.Hour.Unix()] = st
	}
	return nil
}

func (s *MemoryStore) GetNetworkStats(_ context.Context, start, end time.Time) ([]models.NetworkHourlyStat, error) {
	w := domrepo.Window{Start: start, End: end}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.NetworkHourlyStat, 0)
	for _, st := range s.network {
		if w.Contains(st.Hour) {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hour.Before(out[j].Hour) })
	return out, nil
}

func (s *MemoryStore) LatestNetworkStat(_ context.Context) (models.NetworkHourlyStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		latest models.NetworkHourlyStat
		found  bool
	)
	for _, st := range s.network {
		if !found || st.Hour.After(latest.Hour) {
			latest, found = st, true
		}
	}
	if !found {
		return models.NetworkHourlyStat{}, domrepo.ErrNotFound
	}
	return latest, nil
}

func sortByHourAddress(samples []models.TokenMetricSample) {
	sort.Slice(samples, func(i, j int) bool {
		if !samples[i].Hour.Equal(samples[j].Hour) {
			return samples[i].Hour.Before(samples[j].Hour)
		}
		return samples[i].TokenAddress < samples[j].TokenAddress
	})
}

func (s *MemoryStore) Health(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
