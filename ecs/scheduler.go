package ecs

import (
	"context"
	"log"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Scheduler owns every registered system in insertion order, partitioned by
// group, and drives the update cycle (§4.6). Wave execution within a group
// is a channel-fed, atomic-indegree DAG walk adapted from the same pattern
// other_examples/Argus-Labs-world-engine__scheduler.go uses for concurrent
// system execution.
type Scheduler struct {
	registry *TypeRegistry
	systems  []iSystem
}

// NewScheduler creates a scheduler that commits/clears flags against reg.
func NewScheduler(reg *TypeRegistry) *Scheduler {
	return &Scheduler{registry: reg}
}

// Register adds a system to the scheduler in insertion order. Insertion
// order is what breaks dependency ties within a group: when building a
// group's graph, a system is only checked with DependsOn against systems
// registered earlier (§4.5).
func (s *Scheduler) Register(sys iSystem) {
	s.systems = append(s.systems, sys)
}

// RunSystems executes every enabled system (manual or automatic) once,
// honoring groups and the dependency DAG, then clears every pool's dirty
// flags. This is the explicit invocation §4.4 refers to when it says manual
// systems "run only when invoked explicitly."
func (s *Scheduler) RunSystems() {
	for _, gid := range s.groupsInOrder() {
		s.runGroup(s.enabledSystemsInGroup(gid, false))
	}
	s.registry.clearFlags()
}

// Run ticks only automatic (non-manual) systems at the given interval,
// committing changes before each tick, until ctx is cancelled. This is the
// scheduler's periodic driver, analogous to the teacher's
// Scheduler.Run(ctx, interval) loop.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.registry.commitChanges()
			for _, gid := range s.groupsInOrder() {
				s.runGroup(s.enabledSystemsInGroup(gid, true))
			}
			s.registry.clearFlags()
		}
	}
}

func (s *Scheduler) groupsInOrder() []int {
	seen := make(map[int]bool)
	var groups []int
	for _, sys := range s.systems {
		if !seen[sys.Group()] {
			seen[sys.Group()] = true
			groups = append(groups, sys.Group())
		}
	}
	sort.Ints(groups)
	return groups
}

func (s *Scheduler) enabledSystemsInGroup(gid int, automaticOnly bool) []iSystem {
	var out []iSystem
	for _, sys := range s.systems {
		if sys.Group() != gid || !sys.IsEnabled() {
			continue
		}
		if automaticOnly && sys.IsManual() {
			continue
		}
		out = append(out, sys)
	}
	return out
}

// runGroup executes systems (all from one group, in insertion order)
// honoring the dependency DAG: a system becomes runnable once every system
// it depends on has completed, and runnable systems execute concurrently.
func (s *Scheduler) runGroup(systems []iSystem) {
	if len(systems) == 0 {
		return
	}
	for _, sys := range systems {
		sys.BuildArgsIfNeeded()
	}
	warnAntiDependencies(systems)

	n := len(systems)
	graph := make([][]int, n)
	indegree := make([]atomic.Int32, n)
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			if systems[i].DependsOn(systems[j]) {
				graph[j] = append(graph[j], i)
				indegree[i].Add(1)
			}
		}
	}

	executionQueue := make(chan int, n)
	defer close(executionQueue)
	for i := 0; i < n; i++ {
		if indegree[i].Load() == 0 {
			executionQueue <- i
		}
	}

	var g errgroup.Group
	for range systems {
		idx := <-executionQueue
		g.Go(func() error {
			systems[idx].Run()
			for _, dependent := range graph[idx] {
				if indegree[dependent].Add(-1) == 0 {
					executionQueue <- dependent
				}
			}
			return nil
		})
	}
	_ = g.Wait()
}

// warnAntiDependencies surfaces the open question from §9: two systems in
// the same group that both write the same component type. The DAG orders
// such a pair by registration order; this is a diagnostic, not one of §7's
// abort conditions, since the DAG itself remains well-formed.
func warnAntiDependencies(systems []iSystem) {
	for i := 0; i < len(systems); i++ {
		for j := i + 1; j < len(systems); j++ {
			for _, t := range systems[i].TypeIDs() {
				if !systems[i].WritesTo(t) {
					continue
				}
				if systems[j].WritesTo(t) {
					log.Printf("ecs: systems %q and %q both write component %d in the same group; they run in registration order", systems[i].Name(), systems[j].Name(), t)
				}
			}
		}
	}
}
