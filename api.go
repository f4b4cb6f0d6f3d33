package cellarcache

import (
	"time"

	"github.com/unkn0wn-root/cellarcache/codec"
	"github.com/unkn0wn-root/cellarcache/store"
)

// Categories used by the catalog client. Any other category name works too; it
// falls back to DefaultTTL unless listed in Options.TTLs.
const (
	CategoryCards     = "cards"     // list pages, keyed by query
	CategoryCard      = "card"      // single entry detail
	CategoryFavorites = "favorites" // the user's favorites
	CategoryUser      = "user"      // profile
	CategoryComments  = "comments"  // comments per card
)

// DefaultTTLs returns a fresh copy of the per-category TTLs.
func DefaultTTLs() map[string]time.Duration {
	return map[string]time.Duration{
		CategoryCards:     5 * time.Minute,
		CategoryCard:      10 * time.Minute,
		CategoryFavorites: 2 * time.Minute,
		CategoryUser:      time.Hour,
		CategoryComments:  5 * time.Minute,
	}
}

// Options tune the cache. The zero value is usable: it yields an in-memory
// cache under the "cellar" namespace with JSON entries.
type Options struct {
	Namespace string      // key prefix owned by the cache; "" => "cellar"
	Store     store.Store // nil => in-memory store
	Codec     codec.Codec // nil => codec.JSON

	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used

	// Version is the schema version stamped on every entry. Entries written
	// under another version read as misses and are purged. "" => CurrentVersion.
	Version string

	DefaultTTL time.Duration            // 0 => 5m
	TTLs       map[string]time.Duration // per category; nil => DefaultTTLs()
	MaxSize    int64                    // byte budget over serialized entries; 0 => 5 MiB

	Now func() time.Time // clock; nil => time.Now
}

// New returns a Cache configured by opts. It fails only on invalid options.
func New(opts Options) (*Cache, error) {
	return newCache(opts)
}
