package bigcache

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/unkn0wn-root/cellarcache/store"
)

func newTestStore(t *testing.T, cfg Config) *Store {
	t.Helper()
	if cfg.Shards == 0 {
		cfg.Shards = 4
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestRoundTripKeysRemove(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Config{})

	for _, k := range []string{"cellar:cards:1", "cellar:cards:2", "cellar:user:me"} {
		if err := s.Set(ctx, k, []byte(k)); err != nil {
			t.Fatal(err)
		}
	}
	v, ok, err := s.Get(ctx, "cellar:cards:1")
	if err != nil || !ok || string(v) != "cellar:cards:1" {
		t.Fatalf("Get: ok=%v err=%v v=%q", ok, err, v)
	}

	keys, err := s.Keys(ctx, "cellar:cards:")
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[1] != "cellar:cards:2" {
		t.Fatalf("unexpected keys %v", keys)
	}

	if err := s.Remove(ctx, "cellar:cards:1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove(ctx, "cellar:cards:1"); err != nil {
		t.Fatalf("removing a missing key should not fail: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "cellar:cards:1"); ok {
		t.Fatal("expected miss after remove")
	}
}

func TestOversizeEntryIsQuotaError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Config{Shards: 1, HardMaxCacheSizeMB: 1, MaxEntrySize: 64})

	big := bytes.Repeat([]byte("x"), 2<<20)
	if err := s.Set(ctx, "big", big); !errors.Is(err, store.ErrQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
}
