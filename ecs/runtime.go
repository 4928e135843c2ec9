package ecs

import "fmt"

// Runtime is the minimal facade described in §4.7: it owns a TypeRegistry
// and a Scheduler and forwards every call into one or the other. It is an
// explicitly owned, explicitly passed object rather than process-wide
// global state (§9's "global mutable state" note).
type Runtime struct {
	registry   *TypeRegistry
	scheduler  *Scheduler
	nextEntity Entity
}

// NewRuntime creates an empty runtime.
func NewRuntime() *Runtime {
	reg := NewTypeRegistry()
	return &Runtime{
		registry:  reg,
		scheduler: NewScheduler(reg),
	}
}

// Registry exposes the underlying TypeRegistry for direct pool access
// (PoolFor) when a caller needs it outside the generic facade functions
// below.
func (rt *Runtime) Registry() *TypeRegistry { return rt.registry }

// Scheduler exposes the underlying Scheduler, e.g. to call Run for a
// periodic automatic tick loop.
func (rt *Runtime) Scheduler() *Scheduler { return rt.scheduler }

// NewEntity allocates and returns the next unused entity id. Entity ids are
// never reused within a runtime's lifetime.
func (rt *Runtime) NewEntity() Entity {
	rt.nextEntity++
	return rt.nextEntity
}

// RegisterComponentType eagerly instantiates T's pool, inspecting its kind
// markers (Tag/Shared/Transient/Immutable). Must be called for every
// component type referenced by a system's signature before that system is
// registered, mirroring the teacher's RegisterComponent[T] call pattern.
func RegisterComponentType[T any](rt *Runtime) {
	PoolFor[T](rt.registry)
}

// AddComponent enqueues an add of value for a single entity.
func AddComponent[T any](rt *Runtime, id Entity, value T) {
	PoolFor[T](rt.registry).AddOne(id, value)
}

// AddComponentRange enqueues an add of value for every entity in rng.
func AddComponentRange[T any](rt *Runtime, rng EntityRange, value T) {
	PoolFor[T](rt.registry).Add(rng, value)
}

// AddComponentInit enqueues an add for every entity in rng, computed
// per-entity by initFn.
func AddComponentInit[T any](rt *Runtime, rng EntityRange, initFn func(Entity) T) {
	PoolFor[T](rt.registry).AddInit(rng, initFn)
}

// RemoveComponent enqueues a remove of T for a single entity. Panics if T
// is Transient (transient pools are cleared automatically; explicit removal
// makes no sense).
func RemoveComponent[T any](rt *Runtime, id Entity) {
	pool := PoolFor[T](rt.registry)
	if pool.Kind() == KindTransient {
		panic(fmt.Sprintf("ecs: cannot explicitly remove transient component %s", pool.name))
	}
	pool.RemoveOne(id)
}

// GetComponent returns a pointer to id's current value of T. Panics if id
// does not hold T.
func GetComponent[T any](rt *Runtime, id Entity) *T {
	return PoolFor[T](rt.registry).Get(id)
}

// HasComponent reports whether id currently holds T.
func HasComponent[T any](rt *Runtime, id Entity) bool {
	return PoolFor[T](rt.registry).holdsOne(id)
}

// GetSharedComponent returns the single shared instance of a Shared
// component type T. Panics if no entity has ever held T.
func GetSharedComponent[T any](rt *Runtime) *T {
	pool := PoolFor[T](rt.registry)
	if len(pool.data) == 0 {
		panic(fmt.Sprintf("ecs: no shared instance of %s exists yet", pool.name))
	}
	return &pool.data[0]
}

// GetEntityCount returns the number of entities currently holding T.
func GetEntityCount[T any](rt *Runtime) int {
	return PoolFor[T](rt.registry).NumEntities()
}

// GetComponentCount returns the number of stored values of T.
func GetComponentCount[T any](rt *Runtime) int {
	return PoolFor[T](rt.registry).NumComponents()
}

// MakeSystem constructs a system bound to fn and registers it with the
// runtime's scheduler.
func MakeSystem[T any](rt *Runtime, name string, fn func(*T), opts ...SystemOption[T]) *System[T] {
	sys := NewSystem[T](rt.registry, name, fn, opts...)
	rt.scheduler.Register(sys)
	return sys
}

// CommitChanges drains every pool's deferred buffers and applies them
// (§4.6's phase II).
func (rt *Runtime) CommitChanges() {
	rt.registry.commitChanges()
}

// RunSystems executes every enabled system once, honoring groups and the
// dependency DAG (§4.6's phase III). Calling RunSystems without a prior
// CommitChanges is legal; it simply uses the already-applied state.
func (rt *Runtime) RunSystems() {
	rt.scheduler.RunSystems()
}

// UpdateSystems is CommitChanges followed by RunSystems.
func (rt *Runtime) UpdateSystems() {
	rt.CommitChanges()
	rt.RunSystems()
}
