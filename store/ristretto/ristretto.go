package ristretto

import (
	"context"
	"errors"
	"strings"
	"sync"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/cellarcache/store"
)

// Store adapts Ristretto to the synchronous Store contract.
// Ristretto cannot enumerate keys, so the adapter keeps its own key index and
// prunes entries Ristretto has evicted lazily during Keys.
// Writes wait for Ristretto's buffers; a write the admission policy refused is
// reported as store.ErrQuotaExceeded.
type Store struct {
	c *rc.Cache

	mu    sync.Mutex
	index map[string]struct{}
}

var _ store.Store = (*Store)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64 // total value bytes
	BufferItems int64
	Metrics     bool
}

func New(cfg Config) (*Store, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Store{c: c, index: make(map[string]struct{})}, nil
}

func (p *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		p.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

func (p *Store) Set(_ context.Context, key string, value []byte) error {
	cp := append([]byte(nil), value...)
	if !p.c.Set(key, cp, int64(len(cp))) {
		return store.ErrQuotaExceeded
	}
	p.c.Wait()
	if _, ok := p.c.Get(key); !ok {
		return store.ErrQuotaExceeded
	}
	p.mu.Lock()
	p.index[key] = struct{}{}
	p.mu.Unlock()
	return nil
}

func (p *Store) Remove(_ context.Context, key string) error {
	p.c.Del(key)
	p.c.Wait()
	p.mu.Lock()
	delete(p.index, key)
	p.mu.Unlock()
	return nil
}

func (p *Store) Keys(_ context.Context, prefix string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for k := range p.index {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if _, ok := p.c.Get(k); !ok {
			delete(p.index, k)
			continue
		}
		out = append(out, k)
	}
	return out, nil
}

func (p *Store) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Metrics exposes Ristretto's counters (not part of store.Store).
func (p *Store) Metrics() *rc.Metrics { return p.c.Metrics }
