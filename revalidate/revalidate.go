// Package revalidate serves cached values immediately and refreshes them in
// the background once they age (stale-while-revalidate).
package revalidate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/unkn0wn-root/cellarcache"
)

// DefaultTimeout bounds a background revalidation.
const DefaultTimeout = 30 * time.Second

// Fetch loads the authoritative value, typically over the network.
type Fetch[T any] func(ctx context.Context) (T, error)

// FetchError is returned when a fetch failed and nothing was cached to fall
// back on.
type FetchError struct {
	Key string
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("revalidate: fetch %q: %v", e.Key, e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

type Options[T any] struct {
	// TTL for values written after a fetch. 0 => the key's category TTL.
	TTL time.Duration
	// Timeout for background fetches. 0 => DefaultTimeout.
	Timeout time.Duration
	// OnRevalidated is called after a background fetch refreshed key.
	OnRevalidated func(key string, v T)
}

// Controller is safe for concurrent use. At most one fetch per key runs at a
// time; callers arriving while it runs share its result.
type Controller[T any] struct {
	c    *cellarcache.Cache
	opts Options[T]

	sf singleflight.Group

	mu       sync.Mutex
	inflight map[string]struct{}
	closed   bool
	wg       sync.WaitGroup
}

// New returns a Controller reading and writing through c.
func New[T any](c *cellarcache.Cache, opts Options[T]) *Controller[T] {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Controller[T]{c: c, opts: opts, inflight: make(map[string]struct{})}
}

// Get returns the cached value for key when there is one. Aging and stale
// values are returned as they are while a background fetch refreshes them.
// A miss fetches synchronously.
func (r *Controller[T]) Get(ctx context.Context, key string, fetch Fetch[T]) (cellarcache.Result[T], error) {
	res := cellarcache.Get[T](ctx, r.c, key)
	if !res.FromCache {
		return r.load(ctx, key, fetch, res)
	}
	if res.NeedsRevalidate {
		r.background(ctx, key, fetch)
	}
	return res, nil
}

// Refresh fetches key synchronously regardless of freshness. On failure any
// cached entry is served with IsStale set.
func (r *Controller[T]) Refresh(ctx context.Context, key string, fetch Fetch[T]) (cellarcache.Result[T], error) {
	return r.load(ctx, key, fetch, cellarcache.Get[T](ctx, r.c, key))
}

// InFlight reports whether a background revalidation of key is running.
func (r *Controller[T]) InFlight(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.inflight[key]
	return ok
}

// Wait blocks until every background revalidation has finished.
func (r *Controller[T]) Wait() { r.wg.Wait() }

// Close stops new background work and waits for the running one.
// Synchronous fetches from Get and Refresh keep working.
func (r *Controller[T]) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Controller[T]) load(ctx context.Context, key string, fetch Fetch[T], cached cellarcache.Result[T]) (cellarcache.Result[T], error) {
	v, err := r.fetch(ctx, key, fetch)
	if err == nil {
		return cellarcache.Result[T]{Data: v}, nil
	}
	if cached.FromCache {
		r.c.Logger().Warn("revalidate: serving stale entry after fetch failure", cellarcache.Fields{"key": key, "err": err})
		cached.IsStale = true
		cached.NeedsRevalidate = true
		return cached, nil
	}
	return cellarcache.Result[T]{}, &FetchError{Key: key, Err: err}
}

// fetch runs the deduplicated fetch and writes the result to the cache.
func (r *Controller[T]) fetch(ctx context.Context, key string, fetch Fetch[T]) (T, error) {
	v, err, _ := r.sf.Do(key, func() (any, error) {
		d, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		cellarcache.Set(ctx, r.c, key, d, r.opts.TTL)
		return d, nil
	})
	d, _ := v.(T)
	return d, err
}

func (r *Controller[T]) background(ctx context.Context, key string, fetch Fetch[T]) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if _, busy := r.inflight[key]; busy {
		r.mu.Unlock()
		return
	}
	r.inflight[key] = struct{}{}
	r.wg.Add(1)
	r.mu.Unlock()

	// outlives the caller's request but keeps its values
	bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.Timeout)
	go func() {
		defer r.wg.Done()
		defer cancel()
		defer func() {
			r.mu.Lock()
			delete(r.inflight, key)
			r.mu.Unlock()
		}()

		v, err := r.fetch(bctx, key, fetch)
		if err != nil {
			r.c.Logger().Warn("revalidate: background fetch failed", cellarcache.Fields{"key": key, "err": err})
			r.c.Hooks().RevalidateFailed(r.c.StorageKey(key), err)
			return
		}
		r.c.Logger().Debug("revalidate: refreshed", cellarcache.Fields{"key": key})
		if r.opts.OnRevalidated != nil {
			r.opts.OnRevalidated(key, v)
		}
	}()
}
