package ecs

import "fmt"

// Entity is an opaque integral identity. It carries no data of its own;
// every value attached to it lives in a ComponentPool.
type Entity uint64

// EntityRange is a closed interval [First,Last] over entity ids. It is a
// pure value type: every operation below returns a new value (or, for
// Remove, two) rather than mutating its receiver.
type EntityRange struct {
	First Entity
	Last  Entity
}

// NewEntityRange builds the single-entity range [id,id].
func NewEntityRange(id Entity) EntityRange {
	return EntityRange{First: id, Last: id}
}

// Count returns the number of entities covered by r.
func (r EntityRange) Count() int {
	return int(r.Last-r.First) + 1
}

// Contains reports whether id falls within r.
func (r EntityRange) Contains(id Entity) bool {
	return id >= r.First && id <= r.Last
}

// ContainsRange reports whether r fully contains other.
func (r EntityRange) ContainsRange(other EntityRange) bool {
	return other.First >= r.First && other.Last <= r.Last
}

// Overlaps reports whether r and other share at least one entity.
func (r EntityRange) Overlaps(other EntityRange) bool {
	return r.First <= other.Last && other.First <= r.Last
}

// CanMerge reports whether r and other are adjacent or overlapping, i.e.
// whether Merge(r, other) is well defined.
func (r EntityRange) CanMerge(other EntityRange) bool {
	if r.Overlaps(other) {
		return true
	}
	if r.Last < other.First {
		return other.First-r.Last == 1
	}
	return r.First-other.Last == 1
}

// Equals reports value equality.
func (r EntityRange) Equals(other EntityRange) bool {
	return r.First == other.First && r.Last == other.Last
}

// Less implements the range total order: a < b iff a.Last < b.First.
func (r EntityRange) Less(other EntityRange) bool {
	return r.Last < other.First
}

// Offset returns id's position relative to r.First. The caller must ensure
// r.Contains(id).
func (r EntityRange) Offset(id Entity) int {
	return int(id - r.First)
}

// Merge combines two mergeable ranges into their span. Panics if the ranges
// cannot merge (precondition a.CanMerge(b), invariant P1/R1 enforcement).
func Merge(a, b EntityRange) EntityRange {
	if !a.CanMerge(b) {
		panic(fmt.Sprintf("ecs: cannot merge non-adjacent ranges %v and %v", a, b))
	}
	first := a.First
	if b.First < first {
		first = b.First
	}
	last := a.Last
	if b.Last > last {
		last = b.Last
	}
	return EntityRange{First: first, Last: last}
}

// Intersect returns the overlap of two overlapping ranges. Panics if they do
// not overlap.
func Intersect(a, b EntityRange) EntityRange {
	if !a.Overlaps(b) {
		panic(fmt.Sprintf("ecs: cannot intersect non-overlapping ranges %v and %v", a, b))
	}
	first := a.First
	if b.First > first {
		first = b.First
	}
	last := a.Last
	if b.Last < last {
		last = b.Last
	}
	return EntityRange{First: first, Last: last}
}

// Remove splits outer by removing inner from it. Panics unless
// outer.ContainsRange(inner). Returns up to two surviving fragments;
// hasLeft/hasRight report whether the corresponding fragment is non-empty.
func Remove(outer, inner EntityRange) (left EntityRange, hasLeft bool, right EntityRange, hasRight bool) {
	if !outer.ContainsRange(inner) {
		panic(fmt.Sprintf("ecs: range %v does not contain %v", outer, inner))
	}
	if inner.First > outer.First {
		left = EntityRange{First: outer.First, Last: inner.First - 1}
		hasLeft = true
	}
	if inner.Last < outer.Last {
		right = EntityRange{First: inner.Last + 1, Last: outer.Last}
		hasRight = true
	}
	return
}

func (r EntityRange) String() string {
	return fmt.Sprintf("[%d,%d]", r.First, r.Last)
}
