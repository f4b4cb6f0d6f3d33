package revalidate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/cellarcache"
	"github.com/unkn0wn-root/cellarcache/store/memory"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type failHooks struct {
	cellarcache.NopHooks
	mu   sync.Mutex
	keys []string
}

func (h *failHooks) RevalidateFailed(key string, _ error) {
	h.mu.Lock()
	h.keys = append(h.keys, key)
	h.mu.Unlock()
}

func setup(t *testing.T, hooks cellarcache.Hooks) (*cellarcache.Cache, *clock) {
	t.Helper()
	clk := &clock{t: time.UnixMilli(1_700_000_000_000)}
	c, err := cellarcache.New(cellarcache.Options{
		Store: memory.New(memory.Config{}),
		Now:   clk.Now,
		Hooks: hooks,
	})
	require.NoError(t, err)
	return c, clk
}

func counting(v string, err error) (Fetch[string], *atomic.Int32) {
	var n atomic.Int32
	return func(context.Context) (string, error) {
		n.Add(1)
		return v, err
	}, &n
}

func TestFreshServesWithoutFetch(t *testing.T) {
	ctx := context.Background()
	c, _ := setup(t, nil)
	r := New[string](c, Options[string]{TTL: time.Second})

	cellarcache.Set(ctx, c, "user:me", "cached", time.Second)
	fetch, n := counting("remote", nil)

	res, err := r.Get(ctx, "user:me", fetch)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, "cached", res.Data)
	r.Wait()
	assert.Zero(t, n.Load())
}

func TestMissFetchesAndWrites(t *testing.T) {
	ctx := context.Background()
	c, _ := setup(t, nil)
	r := New[string](c, Options[string]{})
	fetch, n := counting("remote", nil)

	res, err := r.Get(ctx, "user:me", fetch)
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, "remote", res.Data)
	assert.EqualValues(t, 1, n.Load())

	again := cellarcache.Get[string](ctx, c, "user:me")
	assert.True(t, again.Fresh())
	assert.Equal(t, "remote", again.Data)
}

func TestMissFetchFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	c, _ := setup(t, nil)
	r := New[string](c, Options[string]{})
	boom := errors.New("offline")
	fetch, _ := counting("", boom)

	_, err := r.Get(ctx, "user:me", fetch)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "user:me", fe.Key)
	assert.ErrorIs(t, err, boom)
}

func TestAgingServesCachedAndRefreshesInBackground(t *testing.T) {
	ctx := context.Background()
	c, clk := setup(t, nil)

	var revalidated atomic.Value
	r := New[string](c, Options[string]{
		TTL:           time.Second,
		OnRevalidated: func(_ string, v string) { revalidated.Store(v) },
	})
	cellarcache.Set(ctx, c, "cards:p1", "old", time.Second)
	clk.Advance(600 * time.Millisecond)

	fetch, n := counting("new", nil)
	res, err := r.Get(ctx, "cards:p1", fetch)
	require.NoError(t, err)
	assert.Equal(t, "old", res.Data)
	assert.True(t, res.NeedsRevalidate)
	assert.False(t, res.IsStale)

	r.Wait()
	assert.EqualValues(t, 1, n.Load())
	assert.Equal(t, "new", revalidated.Load())
	assert.False(t, r.InFlight("cards:p1"))

	after := cellarcache.Get[string](ctx, c, "cards:p1")
	assert.True(t, after.Fresh())
	assert.Equal(t, "new", after.Data)
}

func TestBackgroundRevalidationGatedPerKey(t *testing.T) {
	ctx := context.Background()
	c, clk := setup(t, nil)
	r := New[string](c, Options[string]{TTL: time.Second})
	cellarcache.Set(ctx, c, "cards:p1", "old", time.Second)
	clk.Advance(2 * time.Second) // stale

	release := make(chan struct{})
	var n atomic.Int32
	fetch := func(context.Context) (string, error) {
		n.Add(1)
		<-release
		return "new", nil
	}

	for i := 0; i < 10; i++ {
		res, err := r.Get(ctx, "cards:p1", fetch)
		require.NoError(t, err)
		assert.True(t, res.IsStale)
	}
	assert.True(t, r.InFlight("cards:p1"))
	close(release)
	r.Close()

	assert.EqualValues(t, 1, n.Load())
}

func TestBackgroundFailureKeepsEntryAndReports(t *testing.T) {
	ctx := context.Background()
	hooks := &failHooks{}
	c, clk := setup(t, hooks)
	r := New[string](c, Options[string]{})
	cellarcache.Set(ctx, c, "cards:p1", "old", time.Second)
	clk.Advance(700 * time.Millisecond)

	fetch, _ := counting("", errors.New("503"))
	_, err := r.Get(ctx, "cards:p1", fetch)
	require.NoError(t, err)
	r.Wait()

	assert.Equal(t, []string{"cellar:cards:p1"}, hooks.keys)
	kept := cellarcache.Get[string](ctx, c, "cards:p1")
	assert.True(t, kept.FromCache)
	assert.Equal(t, "old", kept.Data)
}

func TestBackgroundOutlivesCallerContext(t *testing.T) {
	c, clk := setup(t, nil)
	r := New[string](c, Options[string]{})
	cellarcache.Set(context.Background(), c, "cards:p1", "old", time.Second)
	clk.Advance(700 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	fetch := func(fctx context.Context) (string, error) {
		cancel()
		if err := fctx.Err(); err != nil {
			return "", err
		}
		return "new", nil
	}
	_, err := r.Get(ctx, "cards:p1", fetch)
	require.NoError(t, err)
	r.Wait()

	assert.Equal(t, "new", cellarcache.Get[string](context.Background(), c, "cards:p1").Data)
}

func TestRefreshFallsBackToStale(t *testing.T) {
	ctx := context.Background()
	c, _ := setup(t, nil)
	r := New[string](c, Options[string]{})
	cellarcache.Set(ctx, c, "user:me", "cached", time.Hour)

	fetch, n := counting("", errors.New("offline"))
	res, err := r.Refresh(ctx, "user:me", fetch)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n.Load())
	assert.True(t, res.FromCache)
	assert.True(t, res.IsStale)
	assert.Equal(t, "cached", res.Data)

	ok, _ := counting("remote", nil)
	res, err = r.Refresh(ctx, "user:me", ok)
	require.NoError(t, err)
	assert.Equal(t, "remote", res.Data)
}

func TestCloseStopsBackgroundWork(t *testing.T) {
	ctx := context.Background()
	c, clk := setup(t, nil)
	r := New[string](c, Options[string]{})
	cellarcache.Set(ctx, c, "cards:p1", "old", time.Second)
	clk.Advance(700 * time.Millisecond)
	r.Close()

	fetch, n := counting("new", nil)
	res, err := r.Get(ctx, "cards:p1", fetch)
	require.NoError(t, err)
	assert.Equal(t, "old", res.Data)
	assert.Zero(t, n.Load())
}
