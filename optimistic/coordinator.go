package optimistic

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/unkn0wn-root/cellarcache"
)

// DefaultMaxAge is the age after which Cleanup(0) discards a pending update.
const DefaultMaxAge = 30 * time.Second

// Options tune a Coordinator. The zero value registers and rolls back without
// any background sweep.
type Options struct {
	// MaxAge used by the background sweep. 0 => DefaultMaxAge.
	MaxAge time.Duration
	// SweepInterval > 0 starts a goroutine calling Cleanup(MaxAge) on that
	// period until Close.
	SweepInterval time.Duration

	// Called outside the lock, after the fact.
	OnRollback func(id string)
	OnExpired  func(id string)

	Logger cellarcache.Logger // if nil, NopLogger is used
	Now    func() time.Time   // nil => time.Now
}

type pending struct {
	rollback func()
	at       time.Time
	seq      uint64
}

// Coordinator sequences registration, invocation and expiry of rollback
// closures. It never looks at the state the closures restore.
type Coordinator struct {
	mu      sync.Mutex
	entries map[string]*pending
	seq     uint64

	opts Options
	log  cellarcache.Logger
	now  func() time.Time

	stop      context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// MutationID scopes a pending update to one operation on an entity, e.g.
// MutationID("abc", "rate"), so different operations on the same entity do
// not overwrite each other's rollback.
func MutationID(id, op string) string {
	return id + ":" + op
}

// NewCoordinator returns an empty Coordinator. A positive SweepInterval starts
// the background cleanup, which runs until Close.
func NewCoordinator(opts Options) *Coordinator {
	c := &Coordinator{
		entries: make(map[string]*pending),
		opts:    opts,
		log:     opts.Logger,
		now:     opts.Now,
	}
	if c.log == nil {
		c.log = cellarcache.NopLogger{}
	}
	if c.now == nil {
		c.now = time.Now
	}
	if opts.SweepInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		c.stop = cancel
		c.done = make(chan struct{})
		go c.sweep(ctx, opts.SweepInterval)
	}
	return c
}

// Add registers rollback under id. Re-adding an id replaces its closure and
// timestamp but keeps its original position for RollbackAll.
func (c *Coordinator) Add(id string, rollback func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.entries[id]; ok {
		p.rollback = rollback
		p.at = c.now()
		return
	}
	c.seq++
	c.entries[id] = &pending{rollback: rollback, at: c.now(), seq: c.seq}
}

// Remove discards id without running its rollback (the mutation succeeded).
func (c *Coordinator) Remove(id string) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}

// Rollback runs and discards id's rollback. It reports whether id was pending.
func (c *Coordinator) Rollback(id string) bool {
	c.mu.Lock()
	p, ok := c.entries[id]
	delete(c.entries, id)
	c.mu.Unlock()
	if !ok {
		return false
	}
	c.run(id, p)
	return true
}

// RollbackAll runs and discards every pending rollback in insertion order.
func (c *Coordinator) RollbackAll() int {
	c.mu.Lock()
	ids := c.orderedLocked()
	ps := make([]*pending, len(ids))
	for i, id := range ids {
		ps[i] = c.entries[id]
	}
	clear(c.entries)
	c.mu.Unlock()

	for i, id := range ids {
		c.run(id, ps[i])
	}
	return len(ids)
}

func (c *Coordinator) Has(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[id]
	return ok
}

func (c *Coordinator) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Cleanup discards, without running, every entry older than maxAge
// (0 => DefaultMaxAge). It returns the number discarded.
func (c *Coordinator) Cleanup(maxAge time.Duration) int {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	now := c.now()

	c.mu.Lock()
	var expired []string
	for id, p := range c.entries {
		if now.Sub(p.at) > maxAge {
			expired = append(expired, id)
			delete(c.entries, id)
		}
	}
	c.mu.Unlock()

	if len(expired) == 0 {
		return 0
	}
	sort.Strings(expired)
	c.log.Debug("optimistic: discarded abandoned updates", cellarcache.Fields{"count": len(expired)})
	if c.opts.OnExpired != nil {
		for _, id := range expired {
			c.opts.OnExpired(id)
		}
	}
	return len(expired)
}

// Close stops the background sweep. Pending entries are kept.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		if c.stop != nil {
			c.stop()
			<-c.done
		}
	})
}

func (c *Coordinator) orderedLocked() []string {
	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return c.entries[ids[i]].seq < c.entries[ids[j]].seq
	})
	return ids
}

func (c *Coordinator) run(id string, p *pending) {
	if p.rollback != nil {
		p.rollback()
	}
	c.log.Debug("optimistic: rolled back", cellarcache.Fields{"id": id})
	if c.opts.OnRollback != nil {
		c.opts.OnRollback(id)
	}
}

func (c *Coordinator) sweep(ctx context.Context, every time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Cleanup(c.opts.MaxAge)
		}
	}
}
