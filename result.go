package cellarcache

import (
	"time"

	"github.com/unkn0wn-root/cellarcache/internal/wire"
)

// Result is what a cache read yields. It is computed at read time and never
// stored.
//
//	age <  ttl/2        fresh
//	ttl/2 <= age < ttl  aging: NeedsRevalidate
//	age >= ttl          stale: IsStale and NeedsRevalidate, Data still set
type Result[T any] struct {
	Data            T
	FromCache       bool
	IsStale         bool
	NeedsRevalidate bool
	Age             time.Duration
}

// Fresh reports a hit that needs no revalidation.
func (r Result[T]) Fresh() bool { return r.FromCache && !r.NeedsRevalidate }

func classify[T any](data T, h wire.Header, now time.Time) Result[T] {
	age := h.Age(now)
	ttl := h.TTLDuration()
	return Result[T]{
		Data:            data,
		FromCache:       true,
		IsStale:         age >= ttl,
		NeedsRevalidate: age >= ttl/2,
		Age:             age,
	}
}
