package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/plus3/ecsruntime/ecs"
)

// Fixed component/system counts for this demo driver: unlike the archetype
// stress test this replaces, a pool-based engine's cost is dominated by
// entity count and dependency-graph width, not by how many distinct
// component types exist, so the driver exercises a small fixed dependency
// chain (mirroring the scheduler example) at a large, configurable entity
// count instead.
const (
	componentCount = 6
	systemCount    = 5
)

type moveArgs struct {
	Pos *Position
	Vel *Velocity `ecs:"readonly"`
}

type damageArgs struct {
	Health *Health
	Dmg    *Damage `ecs:"readonly"`
}

type capArgs struct {
	Health *Health
}

type markArgs struct {
	Entity ecs.Entity
	Health *Health `ecs:"readonly"`
}

type reportArgs struct {
	Entity ecs.Entity
	Stats  *FrameStats `ecs:"readonly"`
	Mark   *Marked     `ecs:"readonly"`
}

func main() {
	duration := flag.Duration("duration", 10*time.Second, "The total duration the test should run for.")
	entityCount := flag.Int("entities", 10000, "The initial number of entities to create.")
	gcPauseMetrics := flag.Bool("gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	flag.Parse()

	log.Println("Starting ECS stress test...")

	rt := ecs.NewRuntime()
	ecs.RegisterComponentType[Position](rt)
	ecs.RegisterComponentType[Velocity](rt)
	ecs.RegisterComponentType[Health](rt)
	ecs.RegisterComponentType[Marked](rt)
	ecs.RegisterComponentType[FrameStats](rt)
	ecs.RegisterComponentType[Damage](rt)

	log.Printf("Populating storage with %d entities...\n", *entityCount)
	first := rt.NewEntity()
	for i := 1; i < *entityCount; i++ {
		rt.NewEntity()
	}
	all := ecs.EntityRange{First: first, Last: first + ecs.Entity(*entityCount) - 1}

	ecs.AddComponentInit(rt, all, func(id ecs.Entity) Position {
		return Position{X: float64(id), Y: 0}
	})
	ecs.AddComponentRange(rt, all, Velocity{X: 1, Y: 0.5})
	ecs.AddComponentRange(rt, all, Health{Current: 100, Max: 100})
	ecs.AddComponentRange(rt, all, FrameStats{FrameIndex: 0})
	if *entityCount >= 5 {
		ecs.AddComponentRange(rt, ecs.EntityRange{First: first, Last: first + 4}, Damage{Amount: 30})
	}
	rt.CommitChanges()
	log.Println("Population complete.")

	ecs.MakeSystem(rt, "Move", func(a *moveArgs) {
		a.Pos.X += a.Vel.X
		a.Pos.Y += a.Vel.Y
	})

	ecs.MakeSystem(rt, "ApplyDamage", func(a *damageArgs) {
		a.Health.Current -= a.Dmg.Amount
		if a.Health.Current < 0 {
			a.Health.Current = 0
		}
	})

	ecs.MakeSystem(rt, "CapHealth", func(a *capArgs) {
		if a.Health.Current > a.Health.Max {
			a.Health.Current = a.Health.Max
		}
	}, ecs.WithGroup[capArgs](1))

	ecs.MakeSystem(rt, "MarkLowHealth", func(a *markArgs) {
		if a.Health.Current < 20 && !ecs.HasComponent[Marked](rt, a.Entity) {
			ecs.AddComponent(rt, a.Entity, Marked{})
		}
	}, ecs.WithGroup[markArgs](1))

	ecs.MakeSystem(rt, "ReportFrame", func(a *reportArgs) {
		_ = a
	}, ecs.WithGroup[reportArgs](2), ecs.ManualUpdate[reportArgs]())

	report := &Report{
		Duration:       *duration,
		Entities:       *entityCount,
		Components:     componentCount,
		Systems:        systemCount,
		GCPauseMetrics: *gcPauseMetrics,
		UpdateTime: Stats{
			Samples: make([]time.Duration, 0),
		},
	}

	runtime.ReadMemStats(&report.MemStatsStart)

	log.Printf("Running simulation for %s...\n", *duration)
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	startTime := time.Now()
	var totalUpdates int64

Loop:
	for {
		select {
		case <-ctx.Done():
			break Loop
		default:
			updateStart := time.Now()
			rt.UpdateSystems()
			updateDuration := time.Since(updateStart)

			report.UpdateTime.Samples = append(report.UpdateTime.Samples, updateDuration)
			totalUpdates++
		}
	}

	report.TotalTime = time.Since(startTime)
	report.TotalUpdates = totalUpdates
	report.UpdateTime.Finalize()
	runtime.ReadMemStats(&report.MemStatsEnd)

	log.Println("Simulation finished.")

	fmt.Println("\n\n--- Stress Test Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		log.Fatalf("Failed to generate report: %v", err)
	}
	fmt.Println("--- End of Report ---")

	log.Println("Stress test complete.")
}
