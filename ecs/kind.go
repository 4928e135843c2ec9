package ecs

import "reflect"

// Tag marks a component type as a zero-size presence marker: pools hold at
// most one shared sentinel value for it, and it is always read-only when
// bound into a system.
type Tag interface {
	IsTag()
}

// Shared marks a component type as holding a single instance shared by every
// entity that has it. Writing a Shared component serializes with any reader
// of that type, exactly as for an Ordinary component.
type Shared interface {
	IsShared()
}

// Transient marks a component type whose pool is wiped entirely at the start
// of every commit, before any deferred removes/adds are applied.
type Transient interface {
	IsTransient()
}

// Immutable marks a component type as read-only even when a system binds it
// through a mutable pointer field.
type Immutable interface {
	IsImmutable()
}

// Kind classifies a component type's storage/remove/read-write behavior.
type Kind uint8

const (
	KindOrdinary Kind = iota
	KindTag
	KindShared
	KindTransient
)

// unbound reports whether values of this kind are stored as a single
// instance rather than one-per-entity (§4.2: "Shared/Tag kinds, data holds
// at most one instance").
func (k Kind) unbound() bool {
	return k == KindTag || k == KindShared
}

var (
	tagType       = reflect.TypeOf((*Tag)(nil)).Elem()
	sharedType    = reflect.TypeOf((*Shared)(nil)).Elem()
	transientType = reflect.TypeOf((*Transient)(nil)).Elem()
	immutableType = reflect.TypeOf((*Immutable)(nil)).Elem()
)

// kindOf inspects T's method set (and *T's) for the marker interfaces above.
// A Tag type must carry no payload bytes (mirroring the original's
// static_assert(!(is_tagged_v<T> && sizeof(T) > 1))); this is checked via
// reflect.Type.Size and panics on violation rather than being left as an
// undocumented contract.
func kindOf[T any]() (Kind, bool) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	ptr := reflect.PointerTo(t)
	implements := func(iface reflect.Type) bool {
		return t.Implements(iface) || ptr.Implements(iface)
	}
	immutable := implements(immutableType)
	switch {
	case implements(tagType):
		if t.Size() > 0 {
			panic("ecs: tag component " + t.String() + " must not carry payload bytes")
		}
		return KindTag, immutable
	case implements(sharedType):
		return KindShared, immutable
	case implements(transientType):
		return KindTransient, immutable
	default:
		return KindOrdinary, immutable
	}
}
