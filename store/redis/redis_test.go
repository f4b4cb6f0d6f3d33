package redis

import (
	"context"
	"os"
	"sort"
	"testing"

	goredis "github.com/redis/go-redis/v9"
)

func TestNewRequiresClient(t *testing.T) {
	if _, err := New(Config{}); err != ErrNilClient {
		t.Fatalf("expected ErrNilClient, got %v", err)
	}
}

func TestEscapeGlob(t *testing.T) {
	got := escapeGlob(`cellar:cards:{"q":"a*b?"}[x]`)
	want := `cellar:cards:{"q":"a\*b\?"}\[x\]`
	if got != want {
		t.Fatalf("escapeGlob=%q want %q", got, want)
	}
}

// TestRoundTrip runs against a live server when CELLAR_TEST_REDIS_ADDR is set.
func TestRoundTrip(t *testing.T) {
	addr := os.Getenv("CELLAR_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CELLAR_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	s, err := New(Config{Client: rdb, CloseClient: true})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close(ctx)

	prefix := "cellartest:" + t.Name() + ":"
	for _, k := range []string{"a", "b"} {
		if err := s.Set(ctx, prefix+k, []byte(k)); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = s.Remove(ctx, prefix+k) })
	}

	v, ok, err := s.Get(ctx, prefix+"a")
	if err != nil || !ok || string(v) != "a" {
		t.Fatalf("Get: ok=%v err=%v v=%q", ok, err, v)
	}
	keys, err := s.Keys(ctx, prefix)
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != prefix+"a" {
		t.Fatalf("unexpected keys %v", keys)
	}
	if err := s.Remove(ctx, prefix+"a"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get(ctx, prefix+"a"); ok {
		t.Fatal("expected miss after remove")
	}
}
