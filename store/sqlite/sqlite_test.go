package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"testing"

	"github.com/unkn0wn-root/cellarcache/store"
)

func openTestStore(t *testing.T, quota int64) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := Open(Config{Path: path, QuotaBytes: quota})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s, path
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(Config{Path: "  "}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestRoundTripAndPersistence(t *testing.T) {
	ctx := context.Background()
	s, path := openTestStore(t, 0)

	if err := s.Set(ctx, "cellar:cards:1", []byte(`{"a":1}`)); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "cellar:cards:1", []byte(`{"a":2}`)); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(ctx); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(Config{Path: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close(ctx)

	got, ok, err := reopened.Get(ctx, "cellar:cards:1")
	if err != nil || !ok || string(got) != `{"a":2}` {
		t.Fatalf("Get after reopen: ok=%v err=%v got=%q", ok, err, got)
	}
	if _, ok, err := reopened.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("expected clean miss, ok=%v err=%v", ok, err)
	}
}

func TestKeysPrefixAndRemove(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t, 0)

	for _, k := range []string{"cellar:cards:a", "cellar:cards:b", "cellar:user:me", "cellarx:cards:a"} {
		if err := s.Set(ctx, k, []byte("v")); err != nil {
			t.Fatal(err)
		}
	}
	keys, err := s.Keys(ctx, "cellar:cards:")
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "cellar:cards:a" || keys[1] != "cellar:cards:b" {
		t.Fatalf("unexpected keys %v", keys)
	}

	if err := s.Remove(ctx, "cellar:cards:a"); err != nil {
		t.Fatal(err)
	}
	keys, _ = s.Keys(ctx, "cellar:")
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys after remove, got %v", keys)
	}
}

func TestQuota(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t, 20)

	if err := s.Set(ctx, "k1", []byte("0123456789")); err != nil { // 12 bytes
		t.Fatal(err)
	}
	if err := s.Set(ctx, "k2", []byte("0123456789")); !errors.Is(err, store.ErrQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
	if err := s.Set(ctx, "k1", []byte("012345678901234567")); err != nil { // overwrite, 20 bytes
		t.Fatalf("overwrite within quota: %v", err)
	}
}
