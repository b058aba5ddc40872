package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routeopt/internal/model"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestMemory(max int) (*Memory, *clock) {
	clk := &clock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	m := NewMemory(Options{DefaultTTL: time.Minute, MaxEntries: max})
	m.now = clk.now
	return m, clk
}

func TestMemoryGetSetExpire(t *testing.T) {
	ctx := context.Background()
	m, clk := newTestMemory(10)

	_, err := m.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, m.Set(ctx, "a", []byte("one"), 0))
	got, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), got)

	clk.t = clk.t.Add(61 * time.Second)
	_, err = m.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrMiss)
	assert.Zero(t, m.Len())

	hits, misses := m.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(2), misses)
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory(10)
	v := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", v, 0))
	v[0] = 'z'
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestMemoryEvictsSoonestExpiry(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory(2)
	require.NoError(t, m.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, m.Set(ctx, "long", []byte("2"), time.Hour))
	require.NoError(t, m.Set(ctx, "new", []byte("3"), time.Hour))

	assert.Equal(t, 2, m.Len())
	_, err := m.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrMiss)
	_, err = m.Get(ctx, "long")
	assert.NoError(t, err)
}

func TestMemoryClosed(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory(2)
	require.NoError(t, m.Close())
	assert.ErrorIs(t, m.Set(ctx, "k", nil, 0), ErrClosed)
	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRouteCache(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory(10)
	rc := NewRouteCache(m, time.Minute)

	res := model.RouteResult{StrategyUsed: model.StrategySolver, TotalDistanceKm: 12.5, PackageCount: 3}
	require.NoError(t, rc.Set(ctx, "k", res))
	got, err := rc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, res.StrategyUsed, got.StrategyUsed)
	assert.Equal(t, 12.5, got.TotalDistanceKm)

	require.NoError(t, m.Set(ctx, "bad", []byte("{"), 0))
	_, err = rc.Get(ctx, "bad")
	assert.ErrorIs(t, err, ErrMiss)
	assert.Equal(t, 1, m.Len())
}

func TestNewBackends(t *testing.T) {
	c, err := New(context.Background(), Options{Backend: BackendNone})
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = New(context.Background(), Options{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)

	_, err = New(context.Background(), Options{Backend: "memcached"})
	assert.Error(t, err)

	_, err = New(context.Background(), Options{Backend: BackendRedis, RedisURL: "not a url"})
	assert.Error(t, err)
}

func TestRedisRoundTrip(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set, skipping Redis tests")
	}
	ctx := context.Background()
	r, err := NewRedis(ctx, Options{RedisURL: url, DefaultTTL: time.Minute, KeyPrefix: "routeopt-test:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	require.NoError(t, r.Set(ctx, "k", []byte("v"), 0))
	got, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
	require.NoError(t, r.Delete(ctx, "k"))
	_, err = r.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRouteKey(t *testing.T) {
	depot := model.DefaultDepot()
	w := model.TimeWindow{Start: 600, End: 660}
	a := model.Package{ID: "a", Location: model.Coordinate{Lat: 41.01, Lng: 28.97}, Type: model.Express}
	b := model.Package{ID: "b", Location: model.Coordinate{Lat: 41.02, Lng: 28.98}, Type: model.Scheduled, Window: &w}

	k := RouteKey("t1", depot, []model.Package{a, b}, "x")
	assert.Equal(t, k, RouteKey("t1", depot, []model.Package{a, b}, "x"))
	assert.Len(t, k, len("route:")+64)

	assert.NotEqual(t, k, RouteKey("t1", depot, []model.Package{b, a}, "x"))
	assert.NotEqual(t, k, RouteKey("t2", depot, []model.Package{a, b}, "x"))
	assert.NotEqual(t, k, RouteKey("t1", depot, []model.Package{a, b}, "y"))

	w2 := model.TimeWindow{Start: 600, End: 690}
	b2 := b
	b2.Window = &w2
	assert.NotEqual(t, k, RouteKey("t1", depot, []model.Package{a, b2}, "x"))
}
