package ecs

import "sync"

// Bag is the Go rendition of the original's threaded<T>: a buffer that any
// number of producers can push to concurrently and that is drained on the
// coordinator goroutine. Go gives goroutines no stable thread-local storage,
// so unlike the C++ source (one buffer per OS thread) a Bag is a single
// mutex-guarded slice; contention is limited to the append itself, not to
// the caller's surrounding work, so one lock per bag is sufficient.
type Bag[T any] struct {
	mu    sync.Mutex
	items []T
}

// Push appends a single item. Safe for concurrent use by any number of
// producers.
func (b *Bag[T]) Push(item T) {
	b.mu.Lock()
	b.items = append(b.items, item)
	b.mu.Unlock()
}

// Drain removes and returns every buffered item, resetting the bag to empty.
// Intended to be called only by the coordinator during commit.
func (b *Bag[T]) Drain() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) == 0 {
		return nil
	}
	out := b.items
	b.items = nil
	return out
}

// Len reports the number of currently buffered items.
func (b *Bag[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Snapshot returns a copy of the currently buffered items without draining
// them, for preconditions that must see pending-but-uncommitted state (e.g.
// rejecting a new add that overlaps one already queued).
func (b *Bag[T]) Snapshot() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) == 0 {
		return nil
	}
	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}
