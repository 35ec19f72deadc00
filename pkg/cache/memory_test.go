package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type entry struct {
	Rank  int     `json:"rank"`
	Score float64 `json:"score"`
}

func newMemory(t *testing.T, opts ...MemoryOption) (*MemoryCache, *fakeClock) {
	t.Helper()
	clk := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	opts = append([]MemoryOption{WithMemoryClock(clk.Now), WithMemoryCleanup(0)}, opts...)
	mc := NewMemoryCache(opts...)
	t.Cleanup(func() { _ = mc.Close() })
	return mc, clk
}

func TestMemoryCacheRoundTripsStructs(t *testing.T) {
	mc, _ := newMemory(t)
	ctx := context.Background()

	in := []entry{{Rank: 1, Score: 71.25}, {Rank: 2, Score: 40}}
	require.NoError(t, mc.Set(ctx, "top-meme:2", in, time.Minute))

	var out []entry
	require.NoError(t, mc.Get(ctx, "top-meme:2", &out))
	assert.Equal(t, in, out)
}

func TestMemoryCacheMissAndExpiry(t *testing.T) {
	mc, clk := newMemory(t)
	ctx := context.Background()

	var s string
	assert.True(t, errors.Is(mc.Get(ctx, "absent", &s), ErrCacheMiss))

	require.NoError(t, mc.Set(ctx, "k", "v", time.Minute))
	clk.Advance(59 * time.Second)
	require.NoError(t, mc.Get(ctx, "k", &s))
	assert.Equal(t, "v", s)

	clk.Advance(time.Second)
	assert.ErrorIs(t, mc.Get(ctx, "k", &s), ErrCacheMiss)
	assert.Equal(t, 0, mc.Len())
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	mc, clk := newMemory(t, WithMemoryMaxSize(2))
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "a", 1, time.Hour))
	clk.Advance(time.Second)
	require.NoError(t, mc.Set(ctx, "b", 2, time.Hour))
	clk.Advance(time.Second)

	var v int
	require.NoError(t, mc.Get(ctx, "a", &v))
	clk.Advance(time.Second)

	require.NoError(t, mc.Set(ctx, "c", 3, time.Hour))
	assert.Equal(t, 2, mc.Len())
	assert.NoError(t, mc.Get(ctx, "a", &v))
	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "c", &v))
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	mc, _ := newMemory(t)
	ctx := context.Background()

	for _, k := range []string{"top-meme:10", "top-meme:50", "token:clock:abc"} {
		require.NoError(t, mc.Set(ctx, k, k, time.Hour))
	}
	require.NoError(t, mc.DeleteByPattern(ctx, BuildPattern("top-meme:")))

	var s string
	assert.ErrorIs(t, mc.Get(ctx, "top-meme:10", &s), ErrCacheMiss)
	assert.ErrorIs(t, mc.Get(ctx, "top-meme:50", &s), ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "token:clock:abc", &s))

	assert.Error(t, mc.DeleteByPattern(ctx, "["))
}

func TestMemoryCacheTryLock(t *testing.T) {
	mc, clk := newMemory(t)
	ctx := context.Background()

	ok, err := mc.TryLock(ctx, "lock:ranking-snapshot", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mc.TryLock(ctx, "lock:ranking-snapshot", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	clk.Advance(time.Minute)
	ok, _ = mc.TryLock(ctx, "lock:ranking-snapshot", time.Minute)
	assert.True(t, ok, "expired lock is reclaimable")

	require.NoError(t, mc.Unlock(ctx, "lock:ranking-snapshot"))
	ok, _ = mc.TryLock(ctx, "lock:ranking-snapshot", time.Minute)
	assert.True(t, ok)
}

func TestRemember(t *testing.T) {
	mc, _ := newMemory(t)
	ctx := context.Background()
	calls := 0
	load := func(context.Context) ([]entry, error) {
		calls++
		return []entry{{Rank: 1, Score: 9.5}}, nil
	}

	v, cached, err := Remember(ctx, mc, "token:clock:x", time.Minute, load)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Len(t, v, 1)

	v, cached, err = Remember(ctx, mc, "token:clock:x", time.Minute, load)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 9.5, v[0].Score)
	assert.Equal(t, 1, calls)

	boom := errors.New("boom")
	_, _, err = Remember(ctx, mc, "token:clock:y", time.Minute, func(context.Context) ([]entry, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestGenerateKeyWithParams(t *testing.T) {
	assert.Equal(t, "top-meme:50", GenerateKeyWithParams("top-meme", 50))
	assert.Equal(t, "top-meme:last-good:50", GenerateKeyWithParams("top-meme", "last-good", 50))
	assert.Equal(t, "token:clock:abc", GenerateKey("token:clock", "abc"))
}
