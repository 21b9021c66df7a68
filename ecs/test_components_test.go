package ecs_test

import (
	"slices"

	"github.com/plus3/rewind/ecs"
)

// Common test component types
type Position struct {
	X, Y float64
}

type Velocity struct {
	X, Y float64
}

type Health struct {
	Current int
	Max     int
}

type Name string

type Inventory struct {
	Items []string
}

type Frozen struct{}

type GameScore struct {
	Left, Right int
}

type Ledger struct {
	Events []string
}

const (
	KindPosition ecs.Kind = iota
	KindVelocity
	KindHealth
	KindName
	KindInventory
	KindFrozen
	KindUnregistered
)

var (
	PositionType  = ecs.NewComponentType[Position](KindPosition, "position")
	VelocityType  = ecs.NewComponentType[Velocity](KindVelocity, "velocity")
	HealthType    = ecs.NewComponentType[Health](KindHealth, "health")
	NameType      = ecs.NewComponentType[Name](KindName, "name")
	InventoryType = ecs.NewComponentType(KindInventory, "inventory", ecs.WithClone(func(inv Inventory) Inventory {
		return Inventory{Items: slices.Clone(inv.Items)}
	}))
	FrozenType       = ecs.NewComponentType[Frozen](KindFrozen, "frozen")
	UnregisteredType = ecs.NewComponentType[Position](KindUnregistered, "unregistered")
)

func newTestRegistry() *ecs.ComponentRegistry {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent(registry, PositionType)
	ecs.RegisterComponent(registry, VelocityType)
	ecs.RegisterComponent(registry, HealthType)
	ecs.RegisterComponent(registry, NameType)
	ecs.RegisterComponent(registry, InventoryType)
	ecs.RegisterComponent(registry, FrozenType)
	return registry
}

func newTestStore() *ecs.Store[GameScore] {
	return ecs.New(newTestRegistry(), GameScore{})
}

func cloneLedger(l Ledger) Ledger {
	return Ledger{Events: slices.Clone(l.Events)}
}
