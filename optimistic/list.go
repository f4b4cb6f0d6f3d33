package optimistic

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
)

// MutationError is returned by List.Mutate after the speculative change for
// ID has been rolled back. It unwraps to the mutation's own error.
type MutationError struct {
	ID  string
	Err error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("optimistic: mutation on %q failed: %v", e.ID, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// undo is what an id looked like before its first speculative change.
type undo[T any] struct {
	prev    T
	existed bool
	seq     uint64
}

// List is an ordered collection with speculative mutations.
//
// Every id gets its own undo record on its first mutation since it was last
// settled. A failed Mutate restores only that id, so independent mutations in
// flight at the same time never roll each other back. A restored item goes
// back after its nearest predecessor in the order the list had when the
// first open record was taken, whatever order the failures arrive in.
type List[T any] struct {
	mu       sync.Mutex
	idOf     func(T) string
	items    []T
	undo     map[string]*undo[T]
	order    []string // ids before the oldest open record; nil when settled
	loading  map[string]int
	seq      uint64
	onChange func([]T)
}

// NewList returns a list over items; idOf yields each item's unique id.
func NewList[T any](idOf func(T) string, items []T) *List[T] {
	return &List[T]{
		idOf:    idOf,
		items:   append([]T(nil), items...),
		undo:    make(map[string]*undo[T]),
		loading: make(map[string]int),
	}
}

// OnChange registers fn to receive a copy of the items after every change.
// fn runs outside the list's lock.
func (l *List[T]) OnChange(fn func(items []T)) {
	l.mu.Lock()
	l.onChange = fn
	l.mu.Unlock()
}

// AddOptimistic appends item, or replaces the item with the same id in place.
func (l *List[T]) AddOptimistic(item T) {
	l.mu.Lock()
	id := l.idOf(item)
	l.captureLocked(id)
	if i := l.indexLocked(id); i >= 0 {
		l.items[i] = item
	} else {
		l.items = append(l.items, item)
	}
	l.changedLocked()
}

// RemoveOptimistic drops id. It reports whether id was present.
func (l *List[T]) RemoveOptimistic(id string) bool {
	l.mu.Lock()
	i := l.indexLocked(id)
	if i < 0 {
		l.mu.Unlock()
		return false
	}
	l.captureLocked(id)
	l.items = append(l.items[:i:i], l.items[i+1:]...)
	l.changedLocked()
	return true
}

// UpdateOptimistic replaces id's item with patch(item). It reports whether id
// was present.
func (l *List[T]) UpdateOptimistic(id string, patch func(T) T) bool {
	l.mu.Lock()
	i := l.indexLocked(id)
	if i < 0 {
		l.mu.Unlock()
		return false
	}
	l.captureLocked(id)
	l.items[i] = patch(l.items[i])
	l.changedLocked()
	return true
}

// Replace stores a confirmed value for an existing item without opening an
// undo record. It reports whether the item was present.
func (l *List[T]) Replace(item T) bool {
	l.mu.Lock()
	i := l.indexLocked(l.idOf(item))
	if i < 0 {
		l.mu.Unlock()
		return false
	}
	l.items[i] = item
	l.changedLocked()
	return true
}

// Mutate marks id loading and runs fn. On success the id's undo record is
// dropped once no other mutation on id is in flight, then onSuccess runs. On
// failure id is restored to its pre-mutation state and a *MutationError is
// returned. A panic in fn restores id the same way before it propagates.
func (l *List[T]) Mutate(ctx context.Context, id string, fn func(context.Context) error, onSuccess func()) error {
	l.mu.Lock()
	l.loading[id]++
	l.changedLocked()

	settled := false
	defer func() {
		if settled {
			return
		}
		l.mu.Lock()
		l.doneLocked(id)
		l.restoreLocked(id)
		l.changedLocked()
	}()
	err := fn(ctx)
	settled = true

	l.mu.Lock()
	l.doneLocked(id)
	if err != nil {
		l.restoreLocked(id)
		l.changedLocked()
		return &MutationError{ID: id, Err: err}
	}
	if l.loading[id] == 0 {
		l.dropLocked(id)
	}
	l.changedLocked()
	if onSuccess != nil {
		onSuccess()
	}
	return nil
}

// Rollback restores every id with an open undo record, newest first.
// It returns the number of ids restored.
func (l *List[T]) Rollback() int {
	l.mu.Lock()
	ids := make([]string, 0, len(l.undo))
	for id := range l.undo {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return l.undo[ids[i]].seq > l.undo[ids[j]].seq })
	for _, id := range ids {
		l.restoreLocked(id)
	}
	if len(ids) == 0 {
		l.mu.Unlock()
		return 0
	}
	l.changedLocked()
	return len(ids)
}

// Reset replaces the collection and drops every undo record, e.g. after a
// trusted refresh from the server. Loading flags are kept.
func (l *List[T]) Reset(items []T) {
	l.mu.Lock()
	l.items = append([]T(nil), items...)
	clear(l.undo)
	l.order = nil
	l.changedLocked()
}

// Items returns a copy of the collection.
func (l *List[T]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]T(nil), l.items...)
}

// Get returns id's current item.
func (l *List[T]) Get(id string) (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.indexLocked(id); i >= 0 {
		return l.items[i], true
	}
	var zero T
	return zero, false
}

// IsLoading reports whether a Mutate on id is in flight.
func (l *List[T]) IsLoading(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading[id] > 0
}

// Pending lists ids with unsettled speculative changes, oldest first.
func (l *List[T]) Pending() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, 0, len(l.undo))
	for id := range l.undo {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return l.undo[ids[i]].seq < l.undo[ids[j]].seq })
	return ids
}

func (l *List[T]) indexLocked(id string) int {
	for i, it := range l.items {
		if l.idOf(it) == id {
			return i
		}
	}
	return -1
}

// captureLocked records id's current state unless a record is already open.
func (l *List[T]) captureLocked(id string) {
	if _, ok := l.undo[id]; ok {
		return
	}
	if len(l.undo) == 0 {
		l.order = make([]string, len(l.items))
		for i, it := range l.items {
			l.order[i] = l.idOf(it)
		}
	}
	l.seq++
	u := &undo[T]{seq: l.seq}
	if i := l.indexLocked(id); i >= 0 {
		u.prev = l.items[i]
		u.existed = true
		if !slices.Contains(l.order, id) {
			l.placeLocked(id, i)
		}
	}
	l.undo[id] = u
}

// placeLocked adds id, currently at index i, to the baseline order right
// after the nearest preceding item that is already part of it.
func (l *List[T]) placeLocked(id string, i int) {
	at := 0
	for j := i - 1; j >= 0; j-- {
		if k := slices.Index(l.order, l.idOf(l.items[j])); k >= 0 {
			at = k + 1
			break
		}
	}
	l.order = slices.Insert(l.order, at, id)
}

func (l *List[T]) restoreLocked(id string) {
	u, ok := l.undo[id]
	if !ok {
		return
	}
	if i := l.indexLocked(id); i >= 0 {
		l.items = slices.Delete(l.items, i, i+1)
	}
	if u.existed {
		l.items = slices.Insert(l.items, l.insertAtLocked(id), u.prev)
	}
	l.dropLocked(id)
}

// insertAtLocked is the index just after id's nearest baseline predecessor
// still in the list, or 0 when none is.
func (l *List[T]) insertAtLocked(id string) int {
	k := slices.Index(l.order, id)
	for j := k - 1; j >= 0; j-- {
		if i := l.indexLocked(l.order[j]); i >= 0 {
			return i + 1
		}
	}
	return 0
}

func (l *List[T]) dropLocked(id string) {
	delete(l.undo, id)
	if len(l.undo) == 0 {
		l.order = nil
	}
}

func (l *List[T]) doneLocked(id string) {
	if l.loading[id]--; l.loading[id] <= 0 {
		delete(l.loading, id)
	}
}

// changedLocked releases the lock and notifies the OnChange callback.
func (l *List[T]) changedLocked() {
	fn := l.onChange
	var snap []T
	if fn != nil {
		snap = append([]T(nil), l.items...)
	}
	l.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}
