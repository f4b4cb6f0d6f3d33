// Package cellarcache implements the client-side cache of the wine catalog:
// a durable, TTL-governed key-value cache with stale-while-revalidate
// classification, size-bounded oldest-first eviction and schema-version
// invalidation. Storage failures never surface to callers; a broken or full
// store degrades to cache misses.
//
// Components:
//   - Store: synchronous byte store (memory, SQLite, Redis, BigCache, Ristretto).
//   - Codec: (de)serializes the entry envelope (JSON by default).
//   - Cache: this package's engine. Get/Set are package functions because
//     they are generic over the cached type.
//   - Typed[T]: a category-scoped facade with its own TTL.
//
// Keys:
//
//	<ns>:<category>:<identifier>
//
// identifier is a literal string or the canonical JSON of a query value.
//
// Freshness is derived on read from the entry's age:
//
//	res := cellarcache.Get[[]Card](ctx, c, cellarcache.Key("cards", query))
//	switch {
//	case !res.FromCache:       // miss: fetch and Set
//	case res.NeedsRevalidate:  // serve res.Data, refresh in the background
//	default:                   // fresh
//	}
package cellarcache
