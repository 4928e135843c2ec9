package ecs

import (
	"reflect"
	"unsafe"

	"github.com/cespare/xxhash/v2"
	"github.com/kamstrup/intmap"
)

// TypeID is a process-wide-stable, 64-bit identifier derived from a
// component type's name (§6). It need not be portable across runs, only
// stable and distinct within one process invocation.
type TypeID uint64

// typeIDOf hashes a reflect.Type's name with xxhash, the same 64-bit hash
// the rest of the pack reaches for whenever a stable hash of a string key is
// needed (see zeusync-zeusync), rather than hand-rolling FNV the way the
// teacher's hashTypesToUint32 did for its 32-bit archetype ids.
func typeIDOf(t reflect.Type) TypeID {
	return TypeID(xxhash.Sum64String(t.String()))
}

// erasedPool is the type-erased handle the registry stores per component
// type: lifecycle-only operations, no typed accessors. Typed operations
// require a downcast via PoolFor, keyed by reflect.Type.
type erasedPool interface {
	ProcessChanges()
	ClearFlags()
	IsDataModified() bool
	NumEntities() int
	NumComponents() int
	Entities() []EntityRange
	ReadOnly() bool
	Unbound() bool
	ElemSize() uintptr
	typeID() TypeID
	dataBasePointer(r EntityRange) unsafe.Pointer
}

// TypeRegistry maps component type identity to its (lazily instantiated)
// pool. The registry owns every pool it creates; pools live for the
// registry's lifetime.
type TypeRegistry struct {
	byType map[reflect.Type]erasedPool
	byID   *intmap.Map[TypeID, erasedPool]
}

// NewTypeRegistry creates an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		byType: make(map[reflect.Type]erasedPool),
		byID:   intmap.New[TypeID, erasedPool](64),
	}
}

// PoolFor returns the ComponentPool for T, instantiating it on first use.
func PoolFor[T any](r *TypeRegistry) *ComponentPool[T] {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if existing, ok := r.byType[t]; ok {
		return existing.(*ComponentPool[T])
	}
	pool := newComponentPool[T]()
	r.byType[t] = pool
	r.byID.Put(pool.typeID(), pool)
	return pool
}

// poolByID looks up an already-instantiated pool by its TypeID. Returns nil
// if no pool with that id has been instantiated yet.
func (r *TypeRegistry) poolByID(id TypeID) erasedPool {
	pool, ok := r.byID.Get(id)
	if !ok {
		return nil
	}
	return pool
}

// commitChanges drains and applies every instantiated pool's deferred
// buffers, in map iteration order (the order is unobservable: every pool's
// buffers are independent and no pool sees another's in-flight state).
func (r *TypeRegistry) commitChanges() {
	for _, pool := range r.byType {
		pool.ProcessChanges()
	}
}

// clearFlags clears every pool's dirty flags. Called once after every
// group has finished running (§4.6 step 2).
func (r *TypeRegistry) clearFlags() {
	for _, pool := range r.byType {
		pool.ClearFlags()
	}
}
