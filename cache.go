package cellarcache

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/unkn0wn-root/cellarcache/codec"
	"github.com/unkn0wn-root/cellarcache/internal/wire"
	"github.com/unkn0wn-root/cellarcache/store"
	"github.com/unkn0wn-root/cellarcache/store/memory"
)

// Cache is the engine: entry encoding, freshness, size accounting, eviction
// and namespace-scoped clearing. Storage failures never reach the caller;
// reads degrade to a miss and writes are best-effort.
type Cache struct {
	ns         string
	prefix     string
	store      store.Store
	codec      codec.Codec
	log        Logger
	hooks      Hooks
	version    string
	defaultTTL time.Duration
	ttls       map[string]time.Duration
	maxSize    int64
	now        func() time.Time

	// serializes size check + write and clears so eviction sees a stable view
	mu        sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// Stats is a diagnostic snapshot of the namespace.
type Stats struct {
	Bytes   int64
	SizeKB  float64
	Entries int
	Version string
}

type sizedEntry struct {
	key       string
	size      int64
	timestamp int64
}

func newCache(opts Options) (*Cache, error) {
	if strings.Contains(opts.Namespace, ":") {
		return nil, ErrInvalidNamespace
	}
	if opts.MaxSize < 0 {
		return nil, ErrInvalidMaxSize
	}

	c := &Cache{
		ns:    coalesce(opts.Namespace, defaultNamespace),
		store: opts.Store,
		codec: opts.Codec,
		now:   opts.Now,
	}
	c.prefix = c.ns + ":"

	// defaults
	if c.store == nil {
		c.store = memory.New(memory.Config{})
	}
	if c.codec == nil {
		c.codec = codec.JSON{}
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	c.version = coalesce(opts.Version, CurrentVersion)
	c.defaultTTL = coalesce(opts.DefaultTTL, defaultTTL)
	c.maxSize = coalesce(opts.MaxSize, int64(defaultMaxSize))

	c.ttls = DefaultTTLs()
	if opts.TTLs != nil {
		c.ttls = make(map[string]time.Duration, len(opts.TTLs))
		for k, v := range opts.TTLs {
			c.ttls[k] = v
		}
	}
	return c, nil
}

func (c *Cache) Namespace() string { return c.ns }
func (c *Cache) Version() string   { return c.version }
func (c *Cache) Logger() Logger    { return c.log }
func (c *Cache) Hooks() Hooks      { return c.hooks }

// StorageKey returns the full store key for a namespace-relative key.
func (c *Cache) StorageKey(key string) string { return c.storageKey(key) }

// TTL returns the configured TTL for a category, or DefaultTTL.
func (c *Cache) TTL(category string) time.Duration {
	if ttl, ok := c.ttls[category]; ok && ttl > 0 {
		return ttl
	}
	return c.defaultTTL
}

// Close closes the underlying store. Safe to call multiple times.
func (c *Cache) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		c.closeErr = c.store.Close(ctx)
	})
	return c.closeErr
}

// Get reads key (namespace-relative, see Key). Missing, unreadable and
// wrong-version entries all yield an empty Result; the latter two are purged.
func Get[T any](ctx context.Context, c *Cache, key string) Result[T] {
	var res Result[T]
	sk := c.storageKey(key)
	raw, ok, err := c.store.Get(ctx, sk)
	if err != nil {
		c.storeError("get", sk, err)
		return res
	}
	if !ok {
		return res
	}
	h, err := wire.DecodeHeader(c.codec, raw)
	if err != nil {
		c.purge(ctx, sk, "corrupt")
		return res
	}
	if h.Version != c.version {
		c.purge(ctx, sk, "version_mismatch")
		return res
	}
	e, err := wire.Decode[T](c.codec, raw)
	if err != nil {
		c.purge(ctx, sk, "value_decode")
		return res
	}
	return classify(e.Data, h, c.now())
}

// Set writes data under key with ttl (<= 0 => the category's TTL).
// The write is best-effort: on failure the cache evicts and retries once,
// then gives up silently.
func Set[T any](ctx context.Context, c *Cache, key string, data T, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.TTL(category(key))
	}
	sk := c.storageKey(key)
	raw, err := wire.Encode(c.codec, wire.NewEntry(sk, data, c.now(), ttl, c.version))
	if err != nil {
		c.storeError("encode", sk, err)
		return
	}
	c.write(ctx, sk, raw)
}

// Update replaces the data of an existing entry and keeps its write time and
// TTL, so the entry ages as if it had not been touched. It reports false and
// writes nothing when key holds no readable entry of the current version.
func Update[T any](ctx context.Context, c *Cache, key string, data T) bool {
	sk := c.storageKey(key)
	raw, ok, err := c.store.Get(ctx, sk)
	if err != nil {
		c.storeError("get", sk, err)
		return false
	}
	if !ok {
		return false
	}
	h, err := wire.DecodeHeader(c.codec, raw)
	if err != nil || h.Version != c.version {
		return false
	}
	raw, err = wire.Encode(c.codec, wire.Entry[T]{
		Data:      data,
		Timestamp: h.Timestamp,
		TTL:       h.TTL,
		Key:       sk,
		Version:   c.version,
	})
	if err != nil {
		c.storeError("encode", sk, err)
		return false
	}
	c.write(ctx, sk, raw)
	return true
}

// write stores raw under sk within the size budget.
func (c *Cache) write(ctx context.Context, sk string, raw []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.checkSizeLocked(ctx, sk, int64(len(raw)))
	err := c.store.Set(ctx, sk, raw)
	if err == nil {
		return
	}
	c.storeError("set", sk, err)
	c.evictForWriteLocked(ctx, sk)
	if err := c.store.Set(ctx, sk, raw); err != nil {
		c.log.Error("cache write dropped", Fields{"key": sk, "bytes": len(raw), "err": err})
		c.hooks.StoreError("set", sk, err)
	}
}

// Remove deletes one key.
func (c *Cache) Remove(ctx context.Context, key string) {
	sk := c.storageKey(key)
	if err := c.store.Remove(ctx, sk); err != nil {
		c.storeError("remove", sk, err)
	}
}

// Clear removes every entry in the namespace.
func (c *Cache) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.removePrefixLocked(ctx, c.prefix)
	c.log.Debug("cache cleared", Fields{"ns": c.ns, "removed": n})
}

// ClearByType removes every entry of one category.
func (c *Cache) ClearByType(ctx context.Context, category string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.removePrefixLocked(ctx, c.prefix+category+":")
	c.log.Debug("cache category cleared", Fields{"ns": c.ns, "category": category, "removed": n})
}

// Invalidate drops the whole namespace. Entries of other versions would be
// purged lazily on read anyway; this reclaims their space at once.
func (c *Cache) Invalidate(ctx context.Context) {
	c.Clear(ctx)
}

// Stats reports size and entry count for the namespace.
func (c *Cache) Stats(ctx context.Context) Stats {
	entries, total := c.scan(ctx, "")
	return Stats{
		Bytes:   total,
		SizeKB:  float64(total) / 1024,
		Entries: len(entries),
		Version: c.version,
	}
}

func (c *Cache) storageKey(key string) string {
	// isolate by namespace
	return c.prefix + key
}

func (c *Cache) purge(ctx context.Context, sk, reason string) {
	if err := c.store.Remove(ctx, sk); err != nil {
		c.storeError("remove", sk, err)
		return
	}
	c.log.Debug("purged unreadable entry", Fields{"key": sk, "reason": reason})
	c.hooks.SelfHeal(sk, reason)
}

func (c *Cache) storeError(op, sk string, err error) {
	lvl := c.log.Warn
	if errors.Is(err, context.Canceled) {
		lvl = c.log.Debug
	}
	lvl("cache store error", Fields{"op": op, "key": sk, "err": &StorageError{Op: op, Key: sk, Err: err}})
	c.hooks.StoreError(op, sk, err)
}

// scan lists the namespace with serialized sizes and write timestamps.
// skip is excluded (the key about to be overwritten). Entries whose header
// cannot be read get timestamp 0 so they are evicted first.
func (c *Cache) scan(ctx context.Context, skip string) ([]sizedEntry, int64) {
	keys, err := c.store.Keys(ctx, c.prefix)
	if err != nil {
		c.storeError("keys", c.prefix, err)
		return nil, 0
	}
	out := make([]sizedEntry, 0, len(keys))
	var total int64
	for _, k := range keys {
		if k == skip {
			continue
		}
		raw, ok, err := c.store.Get(ctx, k)
		if err != nil || !ok {
			continue
		}
		e := sizedEntry{key: k, size: int64(len(raw))}
		if h, err := wire.DecodeHeader(c.codec, raw); err == nil {
			e.timestamp = h.Timestamp
		}
		out = append(out, e)
		total += e.size
	}
	return out, total
}

// checkSizeLocked evicts oldest-first down to 70% of MaxSize when the
// namespace plus the incoming entry would exceed MaxSize.
func (c *Cache) checkSizeLocked(ctx context.Context, sk string, incoming int64) {
	entries, total := c.scan(ctx, sk)
	total += incoming
	if total <= c.maxSize {
		return
	}
	target := int64(float64(c.maxSize) * evictTargetFactor)
	c.evictOldestLocked(ctx, entries, total, target, "size")
}

// evictForWriteLocked runs after the store refused a write. The store's own
// quota may sit below MaxSize, so the target is 70% of current usage.
func (c *Cache) evictForWriteLocked(ctx context.Context, sk string) {
	entries, total := c.scan(ctx, sk)
	target := int64(float64(min(total, c.maxSize)) * evictTargetFactor)
	c.evictOldestLocked(ctx, entries, total, target, "quota")
}

func (c *Cache) evictOldestLocked(ctx context.Context, entries []sizedEntry, total, target int64, reason string) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].timestamp != entries[j].timestamp {
			return entries[i].timestamp < entries[j].timestamp
		}
		return entries[i].key < entries[j].key
	})

	var (
		removed int
		freed   int64
	)
	for _, e := range entries {
		if total <= target {
			break
		}
		if err := c.store.Remove(ctx, e.key); err != nil {
			c.storeError("remove", e.key, err)
			continue
		}
		total -= e.size
		freed += e.size
		removed++
	}
	if removed > 0 {
		c.log.Info("cache evicted oldest entries", Fields{"removed": removed, "freed": freed, "reason": reason})
		c.hooks.Evicted(removed, freed, reason)
	}
}

func (c *Cache) removePrefixLocked(ctx context.Context, prefix string) int {
	keys, err := c.store.Keys(ctx, prefix)
	if err != nil {
		c.storeError("keys", prefix, err)
		return 0
	}
	n := 0
	for _, k := range keys {
		if err := c.store.Remove(ctx, k); err != nil {
			c.storeError("remove", k, err)
			continue
		}
		n++
	}
	return n
}
