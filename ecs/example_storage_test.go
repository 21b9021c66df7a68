package ecs_test

import (
	"errors"
	"fmt"

	"github.com/plus3/rewind/ecs"
)

// ExampleStore demonstrates the basic API for managing entities and components.
// Every kind is bound to its Go type once, through a ComponentType, and the
// store keeps one table per kind.
func ExampleStore() {
	store := ecs.New(newTestRegistry(), GameScore{})

	player := store.Create()
	ecs.Add(store, player, PositionType, Position{X: 10, Y: 20})
	ecs.Add(store, player, HealthType, Health{Current: 100, Max: 100})

	pos, _ := ecs.Get(store, player, PositionType)
	fmt.Printf("Player spawned at (%.0f, %.0f)\n", pos.X, pos.Y)

	pos, _ = ecs.Patch(store, player, PositionType, func(p *Position) {
		p.X = 15
		p.Y = 25
	})
	fmt.Printf("Player moved to (%.0f, %.0f)\n", pos.X, pos.Y)

	store.Destroy(player)
	_, err := ecs.Get(store, player, PositionType)
	fmt.Println("Player deleted:", errors.Is(err, ecs.ErrEntityNotFound))

	// Output:
	// Player spawned at (10, 20)
	// Player moved to (15, 25)
	// Player deleted: true
}

// ExampleStore_Find shows how to select every entity holding a set of kinds.
func ExampleStore_Find() {
	store := ecs.New(newTestRegistry(), GameScore{})

	for i := range 4 {
		e := store.Create()
		ecs.Add(store, e, PositionType, Position{X: float64(i)})
		if i%2 == 1 {
			ecs.Add(store, e, VelocityType, Velocity{X: 1})
		}
	}

	moving, _ := store.Find(PositionType, VelocityType)
	for _, e := range moving {
		pos, _ := ecs.Get(store, e, PositionType)
		fmt.Printf("entity %d at x=%.0f\n", e, pos.X)
	}

	// Output:
	// entity 2 at x=1
	// entity 4 at x=3
}
