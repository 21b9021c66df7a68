package ecs_test

import (
	"fmt"

	"github.com/plus3/rewind/ecs"
)

type CleanupSystem struct{}

func (s *CleanupSystem) Execute(frame *ecs.UpdateFrame[GameScore]) error {
	ents, err := frame.Store.Find(HealthType)
	if err != nil {
		return err
	}
	deadCount := 0
	for _, e := range ents {
		h, err := ecs.Get(frame.Store, e, HealthType)
		if err != nil {
			return err
		}
		if h.Current <= 0 {
			frame.Commands.Destroy(e)
			deadCount++
		}
	}
	if deadCount > 0 {
		fmt.Printf("Queued %d dead entities for deletion\n", deadCount)
	}
	return nil
}

// ExampleCommands demonstrates using command buffers to defer structural
// changes. Every system of a step sees the same entity set; the scheduler
// applies the queued commands once all of them have run.
func ExampleCommands() {
	store := ecs.New(newTestRegistry(), GameScore{})

	for _, hp := range []int{0, 50, 100} {
		e := store.Create()
		ecs.Add(store, e, HealthType, Health{Current: hp, Max: 100})
	}

	scheduler := ecs.NewScheduler(store)
	scheduler.Register(&CleanupSystem{})

	scheduler.Once(1.0)
	fmt.Printf("Remaining entities: %d\n", store.Len())

	// Output:
	// Queued 1 dead entities for deletion
	// Remaining entities: 2
}
