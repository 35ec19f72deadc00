package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"SolPulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	samples []models.TokenMetricSample
	err     error
	calls   int
	start   time.Time
	end     time.Time
}

func (f *fakeReader) GetSamples(_ context.Context, start, end time.Time) ([]models.TokenMetricSample, error) {
	f.calls++
	f.start, f.end = start, end
	if f.err != nil {
		return nil, f.err
	}
	return f.samples, nil
}

type fakeMetadata struct {
	meta map[string]models.TokenMetadata
	err  error
	got  []string
}

func (f *fakeMetadata) GetMetadata(_ context.Context, addrs []string) (map[string]models.TokenMetadata, error) {
	f.got = addrs
	return f.meta, f.err
}

func exampleSamples() []models.TokenMetricSample {
	return []models.TokenMetricSample{
		hourly("C", 2, 10000, 500, 100, 5000),
		hourly("B", 2, 10000, 5000, 100, 50000),
		hourly("A", 2, 100000, 500, 100, 50000),
	}
}

func newTestEngine(r *fakeReader, opts ...EngineOption) *Engine {
	return NewEngine(r, append([]EngineOption{WithClock(func() time.Time { return now })}, opts...)...)
}

func TestEngineRanksExample(t *testing.T) {
	r := &fakeReader{samples: exampleSamples()}
	got, err := newTestEngine(r).CalculateTopN(context.Background(), 50)
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, "A", got[0].TokenAddress)
	assert.Equal(t, "B", got[1].TokenAddress)
	assert.Equal(t, "C", got[2].TokenAddress)
	assert.Equal(t, 1, r.calls)
	assert.Equal(t, now.Add(-24*time.Hour), r.start)
	assert.Equal(t, now, r.end)

	a := got[0]
	assert.Equal(t, 1, a.Rank)
	assert.Equal(t, a.Score, round2(a.Score))
	assert.Equal(t, "10:00", a.PeakHour)
	require.Len(t, a.MemeClock, 24)
	assert.Equal(t, 100, a.MemeClock[23])
}

func TestEngineDeterministic(t *testing.T) {
	r := &fakeReader{samples: exampleSamples()}
	e := newTestEngine(r)

	first, err := e.CalculateTopN(context.Background(), 10)
	require.NoError(t, err)
	second, err := e.CalculateTopN(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEngineEmptyInput(t *testing.T) {
	got, err := newTestEngine(&fakeReader{}).CalculateTopN(context.Background(), 50)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestEngineIgnoresSamplesOutsideWindow(t *testing.T) {
	r := &fakeReader{samples: []models.TokenMetricSample{
		hourly("old", 25, 1e9, 1e6, 10, 10),
		hourly("new", 1, 10, 1, 10, 10),
	}}
	got, err := newTestEngine(r).CalculateTopN(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].TokenAddress)
	// single token pool is degenerate on every metric
	assert.InDelta(t, 0.35*50+0.20*50+0.15*50+0.10*Engagement(10, 1), got[0].Score, 0.01)
}

func TestEngineStoreFailure(t *testing.T) {
	cause := errors.New("connection refused")
	got, err := newTestEngine(&fakeReader{err: cause}).CalculateTopN(context.Background(), 50)

	require.Error(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrMetricsStoreUnavailable)
	assert.ErrorIs(t, err, cause)
}

func TestEngineTruncation(t *testing.T) {
	var samples []models.TokenMetricSample
	for i := 0; i < 20; i++ {
		samples = append(samples, hourly(string(rune('a'+i)), 1, float64(100*(i+1)), int64(i+1), 10, 10))
	}
	r := &fakeReader{samples: samples}

	tests := []struct {
		name string
		opts []EngineOption
		n    int
		want int
	}{
		{"n below pool", nil, 5, 5},
		{"n zero", []EngineOption{WithOutputSize(7)}, 0, 0},
		{"n negative", nil, -3, 0},
		{"n capped by max output", []EngineOption{WithMaxOutput(3)}, 50, 3},
		{"pool bounds output", []EngineOption{WithCandidatePoolSize(4)}, 50, 4},
		{"n above candidates", nil, 100, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newTestEngine(r, tt.opts...).CalculateTopN(context.Background(), tt.n)
			require.NoError(t, err)
			require.Len(t, got, tt.want)
			for i, tok := range got {
				assert.Equal(t, i+1, tok.Rank)
			}
		})
	}
}

func TestEngineCappedZero(t *testing.T) {
	r := &fakeReader{samples: exampleSamples()}
	got, err := newTestEngine(r).CalculateTopNCapped(context.Background(), 0, 100)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, r.calls)
}

func TestEngineCappedClamping(t *testing.T) {
	tests := []struct {
		name     string
		opts     []EngineOption
		n, limit int
		want     int
	}{
		{"zero cap", nil, 2, 0, 0},
		{"negative cap", nil, 2, -1, 0},
		{"negative n", nil, -3, 10, 0},
		{"cap below n", nil, 3, 2, 2},
		{"cap above max output", []EngineOption{WithMaxOutput(1)}, 3, 50, 1},
		{"pool below n and cap", nil, 10, 10, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeReader{samples: exampleSamples()}
			got, err := newTestEngine(r, tt.opts...).CalculateTopNCapped(context.Background(), tt.n, tt.limit)
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Len(t, got, tt.want)
			if tt.want == 0 {
				assert.Zero(t, r.calls)
			}
		})
	}
}

func TestEngineCandidatePoolKeepsHighestVolume(t *testing.T) {
	r := &fakeReader{samples: exampleSamples()}
	got, err := newTestEngine(r, WithCandidatePoolSize(1)).CalculateTopN(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].TokenAddress)
}

func TestEngineMetadata(t *testing.T) {
	r := &fakeReader{samples: exampleSamples()}
	md := &fakeMetadata{meta: map[string]models.TokenMetadata{
		"A": {TokenAddress: "A", Symbol: "AAA", Name: "Alpha"},
	}}
	got, err := newTestEngine(r, WithMetadata(md)).CalculateTopN(context.Background(), 50)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"A", "B", "C"}, md.got)
	assert.Equal(t, "AAA", got[0].Symbol)
	assert.Empty(t, got[1].Symbol)
}

func TestEngineMetadataFailureIsNotFatal(t *testing.T) {
	r := &fakeReader{samples: exampleSamples()}
	md := &fakeMetadata{err: errors.New("timeout")}
	got, err := newTestEngine(r, WithMetadata(md)).CalculateTopN(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Empty(t, got[0].Symbol)
}

func TestNewEngineClampsOutputToMax(t *testing.T) {
	e := NewEngine(&fakeReader{}, WithOutputSize(80), WithMaxOutput(20))
	assert.Equal(t, 20, e.OutputSize())
	assert.Equal(t, 20, e.MaxOutput())
}
