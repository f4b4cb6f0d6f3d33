// Package memory provides the in-process Store used when no durable store is
// available. An optional byte quota mimics the space limit of a browser-style
// origin store.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/unkn0wn-root/cellarcache/store"
)

type Store struct {
	mu     sync.RWMutex
	m      map[string][]byte
	used   int64
	quota  int64
	closed bool
}

var _ store.Store = (*Store)(nil)

type Config struct {
	// QuotaBytes limits the sum of key and value lengths; 0 = unlimited.
	QuotaBytes int64
}

func New(cfg Config) *Store {
	return &Store{m: make(map[string][]byte), quota: cfg.QuotaBytes}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, store.ErrClosed
	}
	v, ok := s.m[key]
	if !ok {
		return nil, false, nil
	}
	return cloneBytes(v), true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	used := s.used + int64(len(key)+len(value))
	if old, ok := s.m[key]; ok {
		used -= int64(len(key) + len(old))
	}
	if s.quota > 0 && used > s.quota {
		return store.ErrQuotaExceeded
	}
	s.m[key] = cloneBytes(value)
	s.used = used
	return nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	if old, ok := s.m[key]; ok {
		s.used -= int64(len(key) + len(old))
		delete(s.m, key)
	}
	return nil
}

func (s *Store) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, store.ErrClosed
	}
	out := make([]string, 0, len(s.m))
	for k := range s.m {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

// Used reports the bytes currently counted against the quota.
func (s *Store) Used() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.used
}

func (s *Store) Close(_ context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.m = nil
	s.used = 0
	s.mu.Unlock()
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
