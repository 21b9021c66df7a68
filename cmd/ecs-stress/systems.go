package main

import (
	"math/rand/v2"

	"github.com/plus3/rewind/ecs"
)

type MoveSystem struct{}

func (s *MoveSystem) Execute(frame *ecs.UpdateFrame[Counters]) error {
	ents, err := frame.Store.Find(PositionType, VelocityType)
	if err != nil {
		return err
	}
	for _, e := range ents {
		vel, err := ecs.Get(frame.Store, e, VelocityType)
		if err != nil {
			return err
		}
		if _, err := ecs.Patch(frame.Store, e, PositionType, func(p *Position) {
			p.X += vel.X * frame.DeltaTime
			p.Y += vel.Y * frame.DeltaTime
		}); err != nil {
			return err
		}
	}
	return nil
}

type TrailSystem struct{}

func (s *TrailSystem) Execute(frame *ecs.UpdateFrame[Counters]) error {
	ents, err := frame.Store.Find(PositionType, TrailType)
	if err != nil {
		return err
	}
	for _, e := range ents {
		pos, err := ecs.Get(frame.Store, e, PositionType)
		if err != nil {
			return err
		}
		if _, err := ecs.Patch(frame.Store, e, TrailType, func(t *Trail) {
			t.Points = append(t.Points, pos)
			if len(t.Points) > trailLength {
				t.Points = t.Points[len(t.Points)-trailLength:]
			}
		}); err != nil {
			return err
		}
	}
	return nil
}

// LifetimeSystem counts lifetimes down and replaces every expired entity
// with a fresh one, so the population stays stable.
type LifetimeSystem struct {
	rng *rand.Rand
}

func (s *LifetimeSystem) Execute(frame *ecs.UpdateFrame[Counters]) error {
	ents, err := frame.Store.Find(LifetimeType)
	if err != nil {
		return err
	}
	for _, e := range ents {
		lt, err := ecs.Patch(frame.Store, e, LifetimeType, func(l *Lifetime) { l.Frames-- })
		if err != nil {
			return err
		}
		if lt.Frames > 0 {
			continue
		}
		frame.Commands.Destroy(e)
		frame.Commands.Defer(func() error {
			frame.Store.UpdateState(func(c *Counters) { c.Destroyed++ })
			return spawnRandomEntity(frame.Store, s.rng)
		})
	}
	return nil
}
