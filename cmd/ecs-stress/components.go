package main

// Position, Velocity and Health are ordinary components: one value per
// entity, only ever removed when explicitly requested.
type Position struct{ X, Y float64 }
type Velocity struct{ X, Y float64 }
type Health struct{ Current, Max int }

// Marked is a Tag component: a zero-size presence marker.
type Marked struct{}

func (Marked) IsTag() {}

// FrameStats is a Shared component: every entity that holds it observes the
// same single instance.
type FrameStats struct{ FrameIndex int64 }

func (FrameStats) IsShared() {}

// Damage is a Transient component: any damage recorded during a cycle is
// wiped automatically at the start of the next commit, whether or not a
// system consumed it.
type Damage struct{ Amount int }

func (Damage) IsTransient() {}
