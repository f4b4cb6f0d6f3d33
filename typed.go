package cellarcache

import (
	"context"
	"time"
)

// Typed binds a category (and its TTL) to a value type so call sites never
// build keys by hand.
//
//	cards := cellarcache.NewTyped[[]catalog.Card](c, cellarcache.CategoryCards, 0)
//	cards.Set(ctx, query, page)
//	res := cards.Get(ctx, query)
type Typed[T any] struct {
	c        *Cache
	category string
	ttl      time.Duration
}

// NewTyped returns a facade for category. ttl <= 0 takes the category's
// configured TTL.
func NewTyped[T any](c *Cache, category string, ttl time.Duration) *Typed[T] {
	if ttl <= 0 {
		ttl = c.TTL(category)
	}
	return &Typed[T]{c: c, category: category, ttl: ttl}
}

func (t *Typed[T]) Cache() *Cache      { return t.c }
func (t *Typed[T]) Category() string   { return t.category }
func (t *Typed[T]) TTL() time.Duration { return t.ttl }
func (t *Typed[T]) Key(id any) string  { return Key(t.category, id) }

func (t *Typed[T]) Get(ctx context.Context, id any) Result[T] {
	return Get[T](ctx, t.c, t.Key(id))
}

func (t *Typed[T]) Set(ctx context.Context, id any, v T) {
	Set(ctx, t.c, t.Key(id), v, t.ttl)
}

// Update rewrites an existing entry without refreshing its age.
func (t *Typed[T]) Update(ctx context.Context, id any, v T) bool {
	return Update(ctx, t.c, t.Key(id), v)
}

func (t *Typed[T]) Remove(ctx context.Context, id any) {
	t.c.Remove(ctx, t.Key(id))
}

// Clear removes every entry of the category.
func (t *Typed[T]) Clear(ctx context.Context) {
	t.c.ClearByType(ctx, t.category)
}
