package cellarcache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths.
type Hooks interface {
	// An entry was deleted by the cache on read.
	// reason ∈ {"corrupt", "version_mismatch", "value_decode"}
	SelfHeal(storageKey, reason string)

	// The store failed an operation; the cache degraded to a miss or dropped
	// the write. op ∈ {"get", "set", "remove", "keys", "encode"}
	StoreError(op, storageKey string, err error)

	// Entries were evicted to respect the size budget.
	// reason ∈ {"size", "quota"}
	Evicted(count int, freedBytes int64, reason string)

	// A background revalidation fetch failed; the cached value was kept.
	RevalidateFailed(storageKey string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) SelfHeal(string, string)          {}
func (NopHooks) StoreError(string, string, error) {}
func (NopHooks) Evicted(int, int64, string)       {}
func (NopHooks) RevalidateFailed(string, error)   {}
