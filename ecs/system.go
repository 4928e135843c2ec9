package ecs

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unsafe"

	"golang.org/x/sync/errgroup"
)

// ExecutionPolicy controls whether a system's inner loop over its matched
// entities runs sequentially or split across goroutines.
type ExecutionPolicy int

const (
	Parallel ExecutionPolicy = iota
	Sequential
)

// UpdateMode controls whether a system participates in the scheduler's
// periodic automatic tick (Scheduler.Run) or only runs when RunSystems is
// invoked explicitly.
type UpdateMode int

const (
	Automatic UpdateMode = iota
	Manual
)

// iSystem is the type-erased view of System[T] the scheduler operates on:
// every generic System[T] instantiation satisfies it regardless of T.
type iSystem interface {
	Name() string
	Group() int
	IsManual() bool
	IsEnabled() bool
	TypeIDs() []TypeID
	WritesTo(TypeID) bool
	DependsOn(other iSystem) bool
	BuildArgsIfNeeded()
	Run()
}

// DependsOn implements §4.5: A depends on B iff some component type T is
// referenced by both and at least one of them writes T. A writer of T
// always introduces a dependency, even if A itself only reads T, since A
// must not observe T before B's write has landed.
func DependsOn(a, b iSystem) bool {
	bTypes := b.TypeIDs()
	for _, t := range a.TypeIDs() {
		found := false
		for _, bt := range bTypes {
			if bt == t {
				found = true
				break
			}
		}
		if !found {
			continue
		}
		if b.WritesTo(t) {
			return true
		}
		if a.WritesTo(t) {
			return true
		}
	}
	return false
}

type fieldSpec struct {
	structIndex int
	compType    reflect.Type
	pool        erasedPool
	readOnly    bool
}

type argGroup struct {
	rng      EntityRange
	basePtrs []unsafe.Pointer
}

// System binds a user function to a signature described by T's fields (the
// same reflect-over-a-struct technique the teacher's View[T] uses for query
// signatures, generalized to also carry read/write and dependency
// information). T's first field may be of type Entity; every other field
// must be a pointer to a component type, optionally tagged `ecs:"readonly"`.
type System[T any] struct {
	name    string
	group   int
	policy  ExecutionPolicy
	mode    UpdateMode
	enabled bool

	fn func(*T)

	entityFieldIndex int
	fields           []fieldSpec

	sortFieldIndex int
	sortLess       func(a, b unsafe.Pointer) bool

	args         []argGroup
	forceRebuild bool
}

// SystemOption configures a System[T] at construction time.
type SystemOption[T any] func(*System[T])

// WithGroup assigns the system to group n (default 0). Groups run in
// ascending order; systems in different groups never run concurrently.
func WithGroup[T any](n int) SystemOption[T] {
	return func(s *System[T]) { s.group = n }
}

// NotParallel forces sequential inner-loop iteration (default is Parallel).
func NotParallel[T any]() SystemOption[T] {
	return func(s *System[T]) { s.policy = Sequential }
}

// ManualUpdate excludes the system from the scheduler's automatic tick
// (Scheduler.Run); it still runs whenever RunSystems is invoked explicitly.
func ManualUpdate[T any]() SystemOption[T] {
	return func(s *System[T]) { s.mode = Manual }
}

// SortBy supplies a sort predicate over one of T's component fields of type
// C. Iteration within each matched range visits entities in the order
// induced by sorting that field's current values with less.
func SortBy[T any, C any](less func(a, b C) bool) SystemOption[T] {
	return func(s *System[T]) {
		ct := reflect.TypeOf((*C)(nil)).Elem()
		idx := -1
		for i, f := range s.fields {
			if f.compType == ct {
				idx = i
				break
			}
		}
		if idx == -1 {
			panic("ecs: sort predicate component type " + ct.String() + " is not part of the system's signature")
		}
		s.sortFieldIndex = idx
		s.sortLess = func(a, b unsafe.Pointer) bool {
			return less(*(*C)(a), *(*C)(b))
		}
	}
}

// NewSystem constructs a system bound to fn, reflecting over T's fields to
// derive its signature against the pools already registered in reg.
func NewSystem[T any](reg *TypeRegistry, name string, fn func(*T), opts ...SystemOption[T]) *System[T] {
	s := &System[T]{
		name:             name,
		fn:               fn,
		enabled:          true,
		entityFieldIndex: -1,
		sortFieldIndex:   -1,
	}

	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() != reflect.Struct {
		panic("ecs: system signature type must be a struct")
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Type == reflect.TypeOf(Entity(0)) {
			if i != 0 {
				panic("ecs: system " + name + ": entity id field must be first")
			}
			s.entityFieldIndex = i
			continue
		}
		if f.Type.Kind() != reflect.Pointer {
			panic("ecs: system " + name + ": field " + f.Name + " must be a pointer to a component type")
		}
		compType := f.Type.Elem()
		pool, ok := reg.byType[compType]
		if !ok {
			panic("ecs: system " + name + ": component type " + compType.String() + " is not registered")
		}
		readOnly := f.Tag.Get("ecs") == "readonly" || pool.ReadOnly()
		s.fields = append(s.fields, fieldSpec{structIndex: i, compType: compType, pool: pool, readOnly: readOnly})
	}
	if s.entityFieldIndex == -1 && len(s.fields) == 0 {
		panic("ecs: system " + name + ": signature references neither a component nor an entity id")
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *System[T]) Name() string  { return s.name }
func (s *System[T]) Group() int    { return s.group }
func (s *System[T]) IsManual() bool { return s.mode == Manual }
func (s *System[T]) IsEnabled() bool { return s.enabled }
func (s *System[T]) Enable()       { s.enabled = true }
func (s *System[T]) Disable()      { s.enabled = false }
func (s *System[T]) ForceRebuild() { s.forceRebuild = true }

// TypeIDs returns the set of component types this system references.
func (s *System[T]) TypeIDs() []TypeID {
	ids := make([]TypeID, len(s.fields))
	for i, f := range s.fields {
		ids[i] = f.pool.typeID()
	}
	return ids
}

func (s *System[T]) readOnlyFor(id TypeID) (readOnly, found bool) {
	for _, f := range s.fields {
		if f.pool.typeID() == id {
			return f.readOnly, true
		}
	}
	return false, false
}

// WritesTo reports whether this system writes the component type with the
// given id.
func (s *System[T]) WritesTo(id TypeID) bool {
	ro, found := s.readOnlyFor(id)
	return found && !ro
}

// WritesAny reports whether this system writes to any referenced type.
func (s *System[T]) WritesAny() bool {
	for _, f := range s.fields {
		if !f.readOnly {
			return true
		}
	}
	return false
}

// DependsOn reports whether s and other conflict on some component type (see
// the package-level DependsOn). The result is the same in either call
// direction; the scheduler runs a conflicting pair in registration order.
func (s *System[T]) DependsOn(other iSystem) bool {
	return DependsOn(s, other)
}

// GetSignature renders a human-readable description of the system's
// parameter list, for diagnostics.
func (s *System[T]) GetSignature() string {
	var parts []string
	if s.entityFieldIndex >= 0 {
		parts = append(parts, "Entity")
	}
	for _, f := range s.fields {
		prefix := "rw "
		if f.readOnly {
			prefix = "ro "
		}
		parts = append(parts, prefix+f.compType.String())
	}
	return fmt.Sprintf("%s(%s)", s.name, strings.Join(parts, ", "))
}

// needsRebuild reports whether any referenced pool has been modified since
// the last build, or a rebuild was explicitly requested.
func (s *System[T]) needsRebuild() bool {
	if s.forceRebuild {
		return true
	}
	for _, f := range s.fields {
		if f.pool.IsDataModified() {
			return true
		}
	}
	return false
}

// BuildArgsIfNeeded rebuilds the system's per-range argument view
// (intersection of entity sets across its referenced component types) when
// required (§4.4's rebuild trigger).
func (s *System[T]) BuildArgsIfNeeded() {
	if !s.needsRebuild() {
		return
	}
	s.buildArgs()
}

func (s *System[T]) buildArgs() {
	s.forceRebuild = false
	if len(s.fields) == 0 {
		s.args = nil
		return
	}
	ranges := s.fields[0].pool.Entities()
	for _, f := range s.fields[1:] {
		ranges = IntersectRanges(ranges, f.pool.Entities())
	}
	args := make([]argGroup, len(ranges))
	for i, r := range ranges {
		ptrs := make([]unsafe.Pointer, len(s.fields))
		for j, f := range s.fields {
			ptrs[j] = f.pool.dataBasePointer(r)
		}
		args[i] = argGroup{rng: r, basePtrs: ptrs}
	}
	s.args = args
}

// Run executes fn once per matching entity, honoring the configured
// execution policy and sort predicate.
func (s *System[T]) Run() {
	if s.policy == Sequential || len(s.args) <= 1 {
		for _, grp := range s.args {
			s.runGroup(grp)
		}
		return
	}
	var g errgroup.Group
	for _, grp := range s.args {
		grp := grp
		g.Go(func() error {
			s.runGroup(grp)
			return nil
		})
	}
	_ = g.Wait()
}

// Update runs the system, but is a no-op when disabled.
func (s *System[T]) Update() {
	if !s.enabled {
		return
	}
	s.Run()
}

func (s *System[T]) runGroup(grp argGroup) {
	entities := s.orderedEntities(grp)
	for _, e := range entities {
		offset := grp.rng.Offset(e)
		var instance T
		v := reflect.ValueOf(&instance).Elem()
		if s.entityFieldIndex >= 0 {
			v.Field(s.entityFieldIndex).Set(reflect.ValueOf(e))
		}
		for j, f := range s.fields {
			ptr := grp.basePtrs[j]
			if !f.pool.Unbound() {
				ptr = unsafe.Pointer(uintptr(ptr) + uintptr(offset)*f.pool.ElemSize())
			}
			v.Field(f.structIndex).Set(reflect.NewAt(f.compType, ptr))
		}
		s.fn(&instance)
	}
}

// orderedEntities returns grp's entities in iteration order: ascending by
// id, unless a sort predicate was supplied, in which case the order is
// induced by sorting the predicate's component field's current values
// within this range (§4.4).
func (s *System[T]) orderedEntities(grp argGroup) []Entity {
	ids := make([]Entity, grp.rng.Count())
	for i := range ids {
		ids[i] = grp.rng.First + Entity(i)
	}
	if s.sortFieldIndex < 0 {
		return ids
	}
	f := s.fields[s.sortFieldIndex]
	base := grp.basePtrs[s.sortFieldIndex]
	valueAt := func(e Entity) unsafe.Pointer {
		if f.pool.Unbound() {
			return base
		}
		return unsafe.Pointer(uintptr(base) + uintptr(grp.rng.Offset(e))*f.pool.ElemSize())
	}
	sort.SliceStable(ids, func(i, j int) bool {
		return s.sortLess(valueAt(ids[i]), valueAt(ids[j]))
	})
	return ids
}
