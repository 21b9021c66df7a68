package main

import (
	"math/rand/v2"
	"slices"

	"github.com/plus3/rewind/ecs"
)

type Position struct{ X, Y float64 }

type Velocity struct{ X, Y float64 }

type Health struct{ Current, Max int }

type Lifetime struct{ Frames int }

type Trail struct{ Points []Position }

type Counters struct {
	Spawned   int
	Destroyed int
}

const (
	KindPosition ecs.Kind = iota
	KindVelocity
	KindHealth
	KindLifetime
	KindTrail
)

const trailLength = 8

var (
	PositionType = ecs.NewComponentType[Position](KindPosition, "position")
	VelocityType = ecs.NewComponentType[Velocity](KindVelocity, "velocity")
	HealthType   = ecs.NewComponentType[Health](KindHealth, "health")
	LifetimeType = ecs.NewComponentType[Lifetime](KindLifetime, "lifetime")
	TrailType    = ecs.NewComponentType(KindTrail, "trail", ecs.WithClone(func(t Trail) Trail {
		return Trail{Points: slices.Clone(t.Points)}
	}))
)

func newRegistry() *ecs.ComponentRegistry {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent(registry, PositionType)
	ecs.RegisterComponent(registry, VelocityType)
	ecs.RegisterComponent(registry, HealthType)
	ecs.RegisterComponent(registry, LifetimeType)
	ecs.RegisterComponent(registry, TrailType)
	return registry
}

// spawnRandomEntity creates an entity with a random subset of the kinds.
func spawnRandomEntity(store *ecs.Store[Counters], rng *rand.Rand) error {
	e := store.Create()
	if _, err := ecs.Add(store, e, PositionType, Position{X: rng.Float64() * 1000, Y: rng.Float64() * 1000}); err != nil {
		return err
	}
	if rng.IntN(2) == 0 {
		if _, err := ecs.Add(store, e, VelocityType, Velocity{X: rng.Float64() - 0.5, Y: rng.Float64() - 0.5}); err != nil {
			return err
		}
	}
	if rng.IntN(3) == 0 {
		if _, err := ecs.Add(store, e, HealthType, Health{Current: 100, Max: 100}); err != nil {
			return err
		}
	}
	if rng.IntN(4) == 0 {
		if _, err := ecs.Add(store, e, LifetimeType, Lifetime{Frames: 30 + rng.IntN(300)}); err != nil {
			return err
		}
	}
	if rng.IntN(8) == 0 {
		if _, err := ecs.Add(store, e, TrailType, Trail{}); err != nil {
			return err
		}
	}
	store.UpdateState(func(c *Counters) { c.Spawned++ })
	return nil
}
