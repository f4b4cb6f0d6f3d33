package ristretto

import (
	"context"
	"sort"
	"testing"
)

func TestInvalidConfig(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for zero config")
	}
}

func TestRoundTripAndIndex(t *testing.T) {
	ctx := context.Background()
	s, err := New(Config{NumCounters: 1000, MaxCost: 1 << 20, BufferItems: 64})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close(ctx)

	for _, k := range []string{"cellar:cards:1", "cellar:cards:2", "cellar:user:me"} {
		if err := s.Set(ctx, k, []byte("value")); err != nil {
			t.Fatalf("Set %s: %v", k, err)
		}
	}
	v, ok, err := s.Get(ctx, "cellar:user:me")
	if err != nil || !ok || string(v) != "value" {
		t.Fatalf("Get: ok=%v err=%v v=%q", ok, err, v)
	}

	keys, _ := s.Keys(ctx, "cellar:cards:")
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "cellar:cards:1" {
		t.Fatalf("unexpected keys %v", keys)
	}

	_ = s.Remove(ctx, "cellar:cards:1")
	keys, _ = s.Keys(ctx, "cellar:")
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys after remove, got %v", keys)
	}
}
