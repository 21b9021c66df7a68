package ecs_test

import (
	"fmt"
	"testing"

	"github.com/plus3/rewind/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIsMonotonic(t *testing.T) {
	store := newTestStore()

	prev := store.Create()
	assert.False(t, prev.IsZero())
	for range 100 {
		next := store.Create()
		assert.Greater(t, next, prev)
		prev = next
	}
	assert.Equal(t, 101, store.Len())
}

func TestCreateNeverReusesDestroyed(t *testing.T) {
	store := newTestStore()

	a := store.Create()
	b := store.Create()
	store.Destroy(a, b)

	c := store.Create()
	assert.Greater(t, c, b)
	assert.False(t, store.Alive(a))
	assert.True(t, store.Alive(c))
}

func TestAddGet(t *testing.T) {
	store := newTestStore()
	e := store.Create()

	stored, err := ecs.Add(store, e, PositionType, Position{X: 3, Y: 4})
	require.NoError(t, err)
	assert.Equal(t, Position{X: 3, Y: 4}, stored)

	pos, err := ecs.Get(store, e, PositionType)
	require.NoError(t, err)
	assert.Equal(t, Position{X: 3, Y: 4}, pos)

	_, err = ecs.Add(store, e, NameType, Name("Test Entity"))
	require.NoError(t, err)

	name, err := ecs.Get(store, e, NameType)
	require.NoError(t, err)
	assert.Equal(t, Name("Test Entity"), name)
}

func TestAddOverwrites(t *testing.T) {
	store := newTestStore()
	e := store.Create()

	_, err := ecs.Add(store, e, HealthType, Health{Current: 10, Max: 100})
	require.NoError(t, err)
	_, err = ecs.Add(store, e, HealthType, Health{Current: 50, Max: 100})
	require.NoError(t, err)

	h, err := ecs.Get(store, e, HealthType)
	require.NoError(t, err)
	assert.Equal(t, 50, h.Current)
}

func TestGetErrors(t *testing.T) {
	store := newTestStore()

	t.Run("never created", func(t *testing.T) {
		_, err := ecs.Get(store, ecs.Entity(999), PositionType)
		assert.ErrorIs(t, err, ecs.ErrEntityNotFound)
	})

	t.Run("destroyed", func(t *testing.T) {
		e := store.Create()
		_, err := ecs.Add(store, e, PositionType, Position{})
		require.NoError(t, err)
		store.Destroy(e)

		_, err = ecs.Get(store, e, PositionType)
		assert.ErrorIs(t, err, ecs.ErrEntityNotFound)
	})

	t.Run("missing component", func(t *testing.T) {
		e := store.Create()
		_, err := ecs.Get(store, e, VelocityType)
		assert.ErrorIs(t, err, ecs.ErrComponentNotFound)
		assert.NotErrorIs(t, err, ecs.ErrEntityNotFound)
	})

	t.Run("unregistered kind", func(t *testing.T) {
		e := store.Create()
		_, err := ecs.Get(store, e, UnregisteredType)
		assert.ErrorIs(t, err, ecs.ErrKindNotRegistered)
	})
}

func TestAddToDeadEntity(t *testing.T) {
	store := newTestStore()

	_, err := ecs.Add(store, ecs.Entity(42), PositionType, Position{X: 1})
	assert.ErrorIs(t, err, ecs.ErrEntityNotFound)

	ents, err := store.Find(PositionType)
	require.NoError(t, err)
	assert.Empty(t, ents)
}

func TestReplace(t *testing.T) {
	store := newTestStore()
	e := store.Create()

	require.NoError(t, ecs.Replace(store, e, VelocityType, Velocity{X: 1}))
	require.NoError(t, ecs.Replace(store, e, VelocityType, Velocity{X: 2}))

	vel, err := ecs.Get(store, e, VelocityType)
	require.NoError(t, err)
	assert.Equal(t, Velocity{X: 2}, vel)

	err = ecs.Replace(store, ecs.Entity(1000), VelocityType, Velocity{})
	assert.ErrorIs(t, err, ecs.ErrEntityNotFound)
}

func TestHasRemove(t *testing.T) {
	store := newTestStore()
	e := store.Create()

	assert.False(t, ecs.Has(store, e, PositionType))
	_, err := ecs.Add(store, e, PositionType, Position{})
	require.NoError(t, err)
	assert.True(t, ecs.Has(store, e, PositionType))

	ecs.Remove(store, e, PositionType)
	assert.False(t, ecs.Has(store, e, PositionType))
	assert.True(t, store.Alive(e))

	// removing again is a no-op
	ecs.Remove(store, e, PositionType)
	ecs.Remove(store, ecs.Entity(12345), PositionType)
	assert.False(t, ecs.Has(store, e, UnregisteredType))
}

func TestDestroyRemovesEveryComponent(t *testing.T) {
	store := newTestStore()
	e := store.Create()
	other := store.Create()

	_, err := ecs.Add(store, e, PositionType, Position{X: 1})
	require.NoError(t, err)
	_, err = ecs.Add(store, e, VelocityType, Velocity{X: 1})
	require.NoError(t, err)
	_, err = ecs.Add(store, e, HealthType, Health{Current: 1, Max: 1})
	require.NoError(t, err)
	_, err = ecs.Add(store, other, PositionType, Position{X: 2})
	require.NoError(t, err)

	store.Destroy(e)

	assert.False(t, store.Alive(e))
	for _, kinds := range [][]ecs.Kinded{{PositionType}, {VelocityType}, {HealthType}} {
		ents, err := store.Find(kinds...)
		require.NoError(t, err)
		assert.NotContains(t, ents, e)
	}
	assert.False(t, store.HasAny(e, PositionType, VelocityType, HealthType))

	pos, err := ecs.Get(store, other, PositionType)
	require.NoError(t, err)
	assert.Equal(t, Position{X: 2}, pos)
}

func TestDestroyIsNoOpForUnknown(t *testing.T) {
	store := newTestStore()
	e := store.Create()

	store.Destroy(ecs.Entity(77))
	store.Destroy(e)
	store.Destroy(e)

	assert.Equal(t, 0, store.Len())
	assert.Empty(t, store.Entities())
}

func TestFind(t *testing.T) {
	store := newTestStore()

	both := make([]ecs.Entity, 0)
	for i := range 20 {
		e := store.Create()
		_, err := ecs.Add(store, e, PositionType, Position{X: float64(i)})
		require.NoError(t, err)
		if i%3 == 0 {
			_, err = ecs.Add(store, e, VelocityType, Velocity{X: 1})
			require.NoError(t, err)
			both = append(both, e)
		}
	}

	ents, err := store.Find(PositionType, VelocityType)
	require.NoError(t, err)
	assert.Equal(t, both, ents)

	ents, err = store.Find(VelocityType, PositionType)
	require.NoError(t, err)
	assert.Equal(t, both, ents)

	ents, err = store.Find(PositionType)
	require.NoError(t, err)
	assert.Len(t, ents, 20)
}

func TestFindPaddles(t *testing.T) {
	store := newTestStore()

	left := store.Create()
	right := store.Create()
	ball := store.Create()
	for _, e := range []ecs.Entity{left, right, ball} {
		_, err := ecs.Add(store, e, PositionType, Position{})
		require.NoError(t, err)
	}
	_, err := ecs.Add(store, left, NameType, Name("paddle"))
	require.NoError(t, err)
	_, err = ecs.Add(store, right, NameType, Name("paddle"))
	require.NoError(t, err)

	ents, err := store.Find(PositionType, NameType)
	require.NoError(t, err)
	assert.ElementsMatch(t, []ecs.Entity{left, right}, ents)
}

func TestFindEmptyAndInvalid(t *testing.T) {
	store := newTestStore()
	e := store.Create()
	_, err := ecs.Add(store, e, PositionType, Position{})
	require.NoError(t, err)

	ents, err := store.Find(PositionType, FrozenType)
	require.NoError(t, err)
	assert.NotNil(t, ents)
	assert.Empty(t, ents)

	_, err = store.Find()
	assert.ErrorIs(t, err, ecs.ErrInvalidQuery)

	_, err = store.Find(UnregisteredType)
	assert.ErrorIs(t, err, ecs.ErrKindNotRegistered)
}

func TestHasAllHasAny(t *testing.T) {
	store := newTestStore()
	e := store.Create()
	_, err := ecs.Add(store, e, PositionType, Position{})
	require.NoError(t, err)
	_, err = ecs.Add(store, e, FrozenType, Frozen{})
	require.NoError(t, err)

	assert.True(t, store.HasAll(e, PositionType, FrozenType))
	assert.False(t, store.HasAll(e, PositionType, VelocityType))
	assert.True(t, store.HasAny(e, VelocityType, FrozenType))
	assert.False(t, store.HasAny(e, VelocityType, HealthType))
	assert.True(t, store.HasAll(e))
	assert.False(t, store.HasAny(e))
}

func TestPatch(t *testing.T) {
	store := newTestStore()
	e := store.Create()
	_, err := ecs.Add(store, e, PositionType, Position{X: 100, Y: 100})
	require.NoError(t, err)
	_, err = ecs.Add(store, e, VelocityType, Velocity{X: 5, Y: 0})
	require.NoError(t, err)

	dt := 1.0
	for range 3 {
		vel, err := ecs.Get(store, e, VelocityType)
		require.NoError(t, err)
		_, err = ecs.Patch(store, e, PositionType, func(p *Position) {
			p.X += vel.X * dt
			p.Y += vel.Y * dt
		})
		require.NoError(t, err)
	}

	pos, err := ecs.Get(store, e, PositionType)
	require.NoError(t, err)
	assert.Equal(t, Position{X: 115, Y: 100}, pos)
}

func TestPatchDoesNotAliasPreviousValue(t *testing.T) {
	store := newTestStore()
	e := store.Create()
	_, err := ecs.Add(store, e, InventoryType, Inventory{Items: []string{"sword"}})
	require.NoError(t, err)

	before, err := ecs.Get(store, e, InventoryType)
	require.NoError(t, err)

	after, err := ecs.Patch(store, e, InventoryType, func(inv *Inventory) {
		inv.Items[0] = "shield"
		inv.Items = append(inv.Items, "potion")
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"sword"}, before.Items)
	assert.Equal(t, []string{"shield", "potion"}, after.Items)
}

func TestPatchErrors(t *testing.T) {
	store := newTestStore()
	e := store.Create()

	called := false
	_, err := ecs.Patch(store, e, PositionType, func(*Position) { called = true })
	assert.ErrorIs(t, err, ecs.ErrComponentNotFound)

	_, err = ecs.Patch(store, ecs.Entity(500), PositionType, func(*Position) { called = true })
	assert.ErrorIs(t, err, ecs.ErrEntityNotFound)
	assert.False(t, called)
}

func TestState(t *testing.T) {
	store := ecs.New(newTestRegistry(), Ledger{}, ecs.WithStateClone(cloneLedger))

	first := store.UpdateState(func(l *Ledger) {
		l.Events = append(l.Events, "kickoff")
	})
	second := store.UpdateState(func(l *Ledger) {
		l.Events[0] = "restart"
		l.Events = append(l.Events, "goal")
	})

	assert.Equal(t, []string{"kickoff"}, first.Events)
	assert.Equal(t, []string{"restart", "goal"}, second.Events)
	assert.Equal(t, second, store.State())

	store.ReplaceState(Ledger{})
	assert.Empty(t, store.State().Events)
}

func TestRegisterDuplicateKindPanics(t *testing.T) {
	registry := newTestRegistry()
	assert.Panics(t, func() {
		ecs.RegisterComponent(registry, ecs.NewComponentType[Health](KindPosition, "other"))
	})
}

func TestRegistry(t *testing.T) {
	registry := newTestRegistry()

	assert.Equal(t, []ecs.Kind{KindPosition, KindVelocity, KindHealth, KindName, KindInventory, KindFrozen}, registry.Kinds())
	assert.True(t, registry.Registered(KindHealth))
	assert.False(t, registry.Registered(KindUnregistered))
	assert.Equal(t, "velocity", registry.Name(KindVelocity))
	assert.Equal(t, fmt.Sprintf("kind(%d)", KindUnregistered), registry.Name(KindUnregistered))
}

func TestManyEntitiesAcrossBlocks(t *testing.T) {
	store := newTestStore()

	ents := make([]ecs.Entity, 500)
	for i := range ents {
		ents[i] = store.Create()
		_, err := ecs.Add(store, ents[i], HealthType, Health{Current: i, Max: 500})
		require.NoError(t, err)
	}
	// punch holes, then refill them
	for i := 0; i < len(ents); i += 2 {
		store.Destroy(ents[i])
	}
	for range 100 {
		e := store.Create()
		_, err := ecs.Add(store, e, HealthType, Health{Current: -1})
		require.NoError(t, err)
	}

	for i := 1; i < len(ents); i += 2 {
		h, err := ecs.Get(store, ents[i], HealthType)
		require.NoError(t, err)
		assert.Equal(t, i, h.Current)
	}

	found, err := store.Find(HealthType)
	require.NoError(t, err)
	assert.Len(t, found, 350)
	assert.IsIncreasing(t, found)
}

func TestEntitiesStaySortedAcrossDestroyBatches(t *testing.T) {
	store := newTestStore()

	live := make(map[ecs.Entity]bool)
	for round := range 5 {
		for range 200 {
			live[store.Create()] = true
		}
		n := 0
		for _, e := range store.Entities() {
			if n%(round+2) == 0 {
				store.Destroy(e)
				delete(live, e)
			}
			n++
		}
		// destroy twice; the second must not count
		for e := range live {
			store.Destroy(e)
			delete(live, e)
			store.Destroy(e)
			break
		}

		ents := store.Entities()
		assert.Len(t, ents, len(live))
		assert.Equal(t, len(live), store.Len())
		assert.IsIncreasing(t, ents)
		for _, e := range ents {
			assert.True(t, live[e])
		}
		assert.Len(t, store.Snapshot().Entities(), len(live))
	}
}
