package ecs

import "github.com/rotisserie/eris"

// Commands buffers structural changes requested while systems run.
// They are applied after every system of the step has executed, so systems
// of one step all observe the same entity set.
type Commands struct {
	destroys []Entity
	defers   []deferCommand
}

func newCommands() *Commands {
	return &Commands{}
}

type deferCommand struct {
	fn func() error
}

// Destroy queues the destruction of an entity.
func (c *Commands) Destroy(entity Entity) {
	c.destroys = append(c.destroys, entity)
}

// Defer queues a function to run after the queued destroys.
func (c *Commands) Defer(fn func() error) {
	c.defers = append(c.defers, deferCommand{fn: fn})
}

// Pending returns the number of queued commands.
func (c *Commands) Pending() int {
	return len(c.destroys) + len(c.defers)
}

// Flush applies all queued commands to target, resetting the buffer state.
// Deferred functions run in the order they were queued; the first error
// stops the flush and is returned. The buffer is reset either way.
func (c *Commands) Flush(target Components) error {
	defer c.reset()

	w := target.world()
	for _, e := range c.destroys {
		w.destroy(e)
	}

	for i, df := range c.defers {
		if err := df.fn(); err != nil {
			return eris.Wrapf(err, "deferred command %d", i)
		}
	}
	return nil
}

func (c *Commands) reset() {
	c.destroys = c.destroys[:0]
	c.defers = c.defers[:0]
}
