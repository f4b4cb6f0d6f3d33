package cellarcache

import "time"

// CurrentVersion is the schema version of entries written by this release.
// Bump it when a cached type changes shape.
const CurrentVersion = "1.0.0"

const (
	defaultNamespace  = "cellar"
	defaultTTL        = 5 * time.Minute
	defaultMaxSize    = 5 << 20
	evictTargetFactor = 0.7
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
