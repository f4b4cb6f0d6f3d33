package asynchook

import (
	"sync"
	"testing"

	"github.com/unkn0wn-root/cellarcache"
)

type countHooks struct {
	cellarcache.NopHooks
	mu    sync.Mutex
	heals int
	block chan struct{}
}

func (c *countHooks) SelfHeal(string, string) {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	c.heals++
	c.mu.Unlock()
}

func TestEventsDeliveredBeforeClose(t *testing.T) {
	inner := &countHooks{}
	h := New(inner, 2, 16)
	for i := 0; i < 10; i++ {
		h.SelfHeal("k", "corrupt")
	}
	h.Close()
	if inner.heals != 10 {
		t.Fatalf("heals=%d want 10", inner.heals)
	}
	h.SelfHeal("k", "corrupt") // after close: dropped, no panic
	if h.Dropped() != 1 {
		t.Fatalf("dropped=%d want 1", h.Dropped())
	}
}

func TestFullQueueDrops(t *testing.T) {
	inner := &countHooks{block: make(chan struct{})}
	h := New(inner, 1, 1)

	// one event may be held by the worker, one fits the queue; the rest drop
	for i := 0; i < 10; i++ {
		h.SelfHeal("k", "corrupt")
	}
	if h.Dropped() < 8 {
		t.Fatalf("dropped=%d want >= 8", h.Dropped())
	}
	close(inner.block)
	h.Close()
}
