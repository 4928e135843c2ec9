package ecs

import (
	"fmt"
	"reflect"
	"sort"
	"unsafe"
)

// addSource is either a plain value or a per-entity initializer function,
// mirroring the original's AddSource::Value(T)/AddSource::Init(fn).
type addSource[T any] struct {
	value T
	init  func(Entity) T
}

type addRecord[T any] struct {
	rng EntityRange
	src addSource[T]
}

// ComponentPool is the per-component-type container described in §4.2: the
// canonical entity set, packed component values, deferred add/remove
// buffers, and dirty flags. All public mutators except Clear are buffered;
// apart from Clear, the only place ranges/data change is ProcessChanges.
type ComponentPool[T any] struct {
	kind      Kind
	immutable bool
	id        TypeID
	name      string

	ranges []EntityRange
	data   []T

	deferredAdds    Bag[addRecord[T]]
	deferredRemoves Bag[EntityRange]

	dataAdded   bool
	dataRemoved bool
}

func newComponentPool[T any]() *ComponentPool[T] {
	kind, immutable := kindOf[T]()
	t := reflect.TypeOf((*T)(nil)).Elem()
	return &ComponentPool[T]{
		kind:      kind,
		immutable: immutable,
		id:        typeIDOf(t),
		name:      t.String(),
	}
}

func (p *ComponentPool[T]) typeID() TypeID { return p.id }

// Unbound reports whether this pool's values are stored as a single shared
// slot rather than one-per-entity (Tag/Shared kinds). A system must not
// offset the base pointer returned for an unbound pool's values per entity.
func (p *ComponentPool[T]) Unbound() bool { return p.kind.unbound() }

// ElemSize returns sizeof(T), used by System to advance a base pointer per
// entity offset.
func (p *ComponentPool[T]) ElemSize() uintptr {
	var zero T
	return unsafe.Sizeof(zero)
}

// dataBasePointer returns a pointer to the first element covering r (or the
// single shared slot for an unbound pool). Panics (via DataSlice) if r is
// not held by the pool or an unbound pool has no shared instance, neither of
// which happens for a range produced by IntersectRanges against this pool's
// own Entities().
func (p *ComponentPool[T]) dataBasePointer(r EntityRange) unsafe.Pointer {
	slice := p.DataSlice(r)
	if len(slice) == 0 {
		return nil
	}
	return unsafe.Pointer(&slice[0])
}

// Kind reports the component kind this pool was instantiated for.
func (p *ComponentPool[T]) Kind() Kind { return p.kind }

// ReadOnly reports whether values of T are always read-only regardless of
// how a system binds them (Tag and Immutable components).
func (p *ComponentPool[T]) ReadOnly() bool {
	return p.immutable || p.kind == KindTag
}

// Add enqueues an add of value for every entity in rng onto the pool's add
// bag. Precondition P1: rng must not overlap the pool's current ranges.
// Violations panic immediately at enqueue time rather than waiting for
// commit, since the range is already known to be bad.
func (p *ComponentPool[T]) Add(rng EntityRange, value T) {
	p.assertNotHeld(rng, "add")
	p.deferredAdds.Push(addRecord[T]{rng: rng, src: addSource[T]{value: value}})
}

// AddInit enqueues an add computed per-entity by initFn.
func (p *ComponentPool[T]) AddInit(rng EntityRange, initFn func(Entity) T) {
	p.assertNotHeld(rng, "add")
	p.deferredAdds.Push(addRecord[T]{rng: rng, src: addSource[T]{init: initFn}})
}

// AddOne is shorthand for Add(NewEntityRange(id), value).
func (p *ComponentPool[T]) AddOne(id Entity, value T) {
	p.Add(NewEntityRange(id), value)
}

// Remove enqueues a remove of rng onto the pool's remove bag. Precondition:
// rng must currently be held by the pool and not already queued for
// removal.
func (p *ComponentPool[T]) Remove(rng EntityRange) {
	if !p.holds(rng) {
		panic(fmt.Sprintf("ecs: remove of %v from pool %s: entity range not held", rng, p.name))
	}
	p.deferredRemoves.Push(rng)
}

// RemoveOne is shorthand for Remove(NewEntityRange(id)).
func (p *ComponentPool[T]) RemoveOne(id Entity) {
	p.Remove(NewEntityRange(id))
}

// Get returns a pointer to the stored value for id. Panics if id is not
// currently held by the pool (§4.2, §7: reading an absent entity is a
// programmer error).
func (p *ComponentPool[T]) Get(id Entity) *T {
	if p.kind.unbound() {
		if !p.holdsOne(id) {
			panic(fmt.Sprintf("ecs: entity %d does not hold component %s", id, p.name))
		}
		if len(p.data) == 0 {
			panic(fmt.Sprintf("ecs: pool %s has holders but no shared instance", p.name))
		}
		return &p.data[0]
	}
	idx, ok := p.flatIndexOf(id)
	if !ok {
		panic(fmt.Sprintf("ecs: entity %d does not hold component %s", id, p.name))
	}
	return &p.data[idx]
}

// DataSlice returns the packed values covering r, which must be entirely
// contained within a single one of the pool's current ranges (true of every
// range produced by IntersectRanges against this pool's Entities()). For
// unbound (Tag/Shared) kinds it always returns the single shared slot.
func (p *ComponentPool[T]) DataSlice(r EntityRange) []T {
	if p.kind.unbound() {
		if len(p.data) == 0 {
			panic(fmt.Sprintf("ecs: pool %s has no shared instance", p.name))
		}
		return p.data[:1]
	}
	start, ok := p.flatIndexOf(r.First)
	if !ok {
		panic(fmt.Sprintf("ecs: range %v not held by pool %s", r, p.name))
	}
	return p.data[start : start+r.Count()]
}

// Entities returns the pool's canonical entity set.
func (p *ComponentPool[T]) Entities() []EntityRange { return p.ranges }

// NumEntities returns the number of distinct entities currently holding T.
func (p *ComponentPool[T]) NumEntities() int {
	n := 0
	for _, r := range p.ranges {
		n += r.Count()
	}
	return n
}

// NumComponents returns len(data): the number of stored values (for
// Tag/Shared kinds, 0 until the first add is committed and 1 from then on,
// even after every holder has been removed).
func (p *ComponentPool[T]) NumComponents() int { return len(p.data) }

func (p *ComponentPool[T]) IsDataAdded() bool    { return p.dataAdded }
func (p *ComponentPool[T]) IsDataRemoved() bool  { return p.dataRemoved }
func (p *ComponentPool[T]) IsDataModified() bool { return p.dataAdded || p.dataRemoved }

// ClearFlags resets the dirty flags. Called by the scheduler once every
// group has run for the cycle.
func (p *ComponentPool[T]) ClearFlags() {
	p.dataAdded = false
	p.dataRemoved = false
}

// Clear wipes the pool's entity set and data unconditionally, discarding any
// buffered mutations.
func (p *ComponentPool[T]) Clear() {
	p.ranges = nil
	p.data = nil
	p.deferredAdds.Drain()
	p.deferredRemoves.Drain()
	p.dataAdded = false
	p.dataRemoved = false
}

// ProcessChanges drains the deferred buffers and applies them: removes
// first, then adds, per §4.2.
func (p *ComponentPool[T]) ProcessChanges() {
	p.processRemoves()
	p.processAdds()
}

func (p *ComponentPool[T]) processRemoves() {
	if p.kind == KindTransient {
		removed := p.deferredRemoves.Drain()
		_ = removed // Transient wipes unconditionally; queued removes are moot.
		if len(p.ranges) > 0 {
			p.ranges = nil
			p.data = nil
			p.dataRemoved = true
		}
		return
	}

	removes := p.deferredRemoves.Drain()
	if len(removes) == 0 {
		return
	}
	sortRanges(removes)
	assertNoOverlap(removes, "process_remove_components")

	if !p.kind.unbound() {
		removedMask := make([]bool, len(p.data))
		for _, rr := range removes {
			idx, ok := p.flatIndexOf(rr.First)
			if !ok {
				panic(fmt.Sprintf("ecs: remove of %v from pool %s: range not held", rr, p.name))
			}
			for i := 0; i < rr.Count(); i++ {
				removedMask[idx+i] = true
			}
		}
		writePos := 0
		for i, v := range p.data {
			if removedMask[i] {
				continue
			}
			p.data[writePos] = v
			writePos++
		}
		var zero T
		for i := writePos; i < len(p.data); i++ {
			p.data[i] = zero
		}
		p.data = p.data[:writePos]
	}

	working := append([]EntityRange(nil), p.ranges...)
	for _, rr := range removes {
		idx := -1
		for i, cur := range working {
			if cur.ContainsRange(rr) {
				idx = i
				break
			}
		}
		if idx == -1 {
			panic(fmt.Sprintf("ecs: remove of %v from pool %s: not contained in any single range", rr, p.name))
		}
		left, hasLeft, right, hasRight := Remove(working[idx], rr)
		replacement := make([]EntityRange, 0, 2)
		if hasLeft {
			replacement = append(replacement, left)
		}
		if hasRight {
			replacement = append(replacement, right)
		}
		tail := append([]EntityRange(nil), working[idx+1:]...)
		working = append(working[:idx], append(replacement, tail...)...)
	}
	p.ranges = working
	p.dataRemoved = true
}

type poolSegment[T any] struct {
	rng    EntityRange
	values []T
}

func (p *ComponentPool[T]) processAdds() {
	raw := p.deferredAdds.Drain()
	if len(raw) == 0 {
		return
	}
	sort.Slice(raw, func(i, j int) bool { return raw[i].rng.First < raw[j].rng.First })
	addedRanges := make([]EntityRange, len(raw))
	for i, rec := range raw {
		addedRanges[i] = rec.rng
	}
	assertNoOverlap(addedRanges, "process_add_components")

	if p.kind.unbound() {
		if len(p.data) == 0 {
			first := raw[0]
			if first.src.init != nil {
				p.data = append(p.data, first.src.init(first.rng.First))
			} else {
				p.data = append(p.data, first.src.value)
			}
		}
		for _, rec := range raw {
			p.ranges = mergeRangeIntoList(p.ranges, rec.rng)
		}
		p.dataAdded = true
		return
	}

	existing := p.existingSegments()
	incoming := make([]poolSegment[T], len(raw))
	for i, rec := range raw {
		incoming[i] = poolSegment[T]{rng: rec.rng, values: materialize(rec)}
	}

	combined := append(existing, incoming...)
	sort.Slice(combined, func(i, j int) bool { return combined[i].rng.First < combined[j].rng.First })

	var mergedRanges []EntityRange
	var mergedData []T
	for _, seg := range combined {
		if n := len(mergedRanges); n > 0 && mergedRanges[n-1].CanMerge(seg.rng) {
			mergedRanges[n-1] = Merge(mergedRanges[n-1], seg.rng)
		} else {
			mergedRanges = append(mergedRanges, seg.rng)
		}
		mergedData = append(mergedData, seg.values...)
	}
	p.ranges = mergedRanges
	p.data = mergedData
	p.dataAdded = true
}

func materialize[T any](rec addRecord[T]) []T {
	values := make([]T, rec.rng.Count())
	if rec.src.init != nil {
		for i := range values {
			values[i] = rec.src.init(rec.rng.First + Entity(i))
		}
		return values
	}
	for i := range values {
		values[i] = rec.src.value
	}
	return values
}

// existingSegments splits the pool's current ranges/data into segments,
// each carrying the slice of data it owns, so processAdds can merge them
// with newly materialized segments uniformly.
func (p *ComponentPool[T]) existingSegments() []poolSegment[T] {
	segs := make([]poolSegment[T], len(p.ranges))
	offset := 0
	for i, r := range p.ranges {
		count := r.Count()
		segs[i] = poolSegment[T]{rng: r, values: p.data[offset : offset+count]}
		offset += count
	}
	return segs
}

func (p *ComponentPool[T]) flatIndexOf(id Entity) (int, bool) {
	offset := 0
	for _, r := range p.ranges {
		if r.Contains(id) {
			return offset + r.Offset(id), true
		}
		offset += r.Count()
	}
	return 0, false
}

// holds reports whether rng is fully contained in the pool's current
// ranges (used for the Remove precondition).
func (p *ComponentPool[T]) holds(rng EntityRange) bool {
	for _, r := range p.ranges {
		if r.ContainsRange(rng) {
			return true
		}
	}
	return false
}

func (p *ComponentPool[T]) holdsOne(id Entity) bool {
	for _, r := range p.ranges {
		if r.Contains(id) {
			return true
		}
	}
	return false
}

// assertNotHeld enforces invariant P1 at enqueue time: rng must not overlap
// the pool's current ranges nor any range already pending in the add bag.
// This mirrors the original's eager Expects(!has_entity(range));
// Expects(!is_queued_add(range)) pair, checked at Add/AddInit call time
// rather than deferred to commit.
func (p *ComponentPool[T]) assertNotHeld(rng EntityRange, op string) {
	for _, r := range p.ranges {
		if r.Overlaps(rng) {
			panic(fmt.Sprintf("ecs: %s %v to pool %s: overlaps existing range %v", op, rng, p.name, r))
		}
	}
	for _, pending := range p.deferredAdds.Snapshot() {
		if pending.rng.Overlaps(rng) {
			panic(fmt.Sprintf("ecs: %s %v to pool %s: overlaps range %v already queued for add", op, rng, p.name, pending.rng))
		}
	}
}

// mergeRangeIntoList inserts rng into a canonical list, merging with
// adjacent/overlapping neighbors, and returns the new canonical list.
func mergeRangeIntoList(ranges []EntityRange, rng EntityRange) []EntityRange {
	ranges = append(ranges, rng)
	sortRanges(ranges)
	return CombineErase(ranges, canMergeMerger)
}
