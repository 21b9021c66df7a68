package ecs

import (
	"slices"

	"github.com/kamstrup/intmap"
	"github.com/rotisserie/eris"
)

// Snapshot is an immutable capture of a Store: its top-level state and, for
// every live entity, the full list of component values it held.
//
// A Snapshot shares no mutable data with the store that produced it, nor
// with any store it is restored into.
type Snapshot[S any] struct {
	state    S
	entities []EntitySnapshot
}

// EntitySnapshot is one entity inside a Snapshot.
type EntitySnapshot struct {
	entity     Entity
	components []ComponentValue
}

// ComponentValue is one captured component value together with its kind.
type ComponentValue struct {
	kind  Kind
	value any
}

// NewComponentValue wraps v as a value of kind. The caller hands ownership of
// v to the returned value.
func NewComponentValue(kind Kind, v any) ComponentValue {
	return ComponentValue{kind: kind, value: v}
}

// Kind returns the kind of the captured value.
func (cv ComponentValue) Kind() Kind {
	return cv.kind
}

// Value returns the captured value. It must be treated as read-only.
func (cv ComponentValue) Value() any {
	return cv.value
}

// NewEntitySnapshot builds the capture of one entity. Components are sorted
// by kind.
func NewEntitySnapshot(e Entity, components ...ComponentValue) EntitySnapshot {
	comps := slices.Clone(components)
	slices.SortStableFunc(comps, func(a, b ComponentValue) int {
		return int(a.kind) - int(b.kind)
	})
	return EntitySnapshot{entity: e, components: comps}
}

// Entity returns the captured entity.
func (es EntitySnapshot) Entity() Entity {
	return es.entity
}

// Components returns the captured values in ascending kind order.
func (es EntitySnapshot) Components() []ComponentValue {
	return slices.Clone(es.components)
}

// NewSnapshot assembles a snapshot from decoded parts, e.g. one received from
// a peer. Entities are sorted by identifier. The caller hands ownership of
// state and every component value to the snapshot.
func NewSnapshot[S any](state S, entities ...EntitySnapshot) *Snapshot[S] {
	ents := slices.Clone(entities)
	slices.SortStableFunc(ents, func(a, b EntitySnapshot) int {
		switch {
		case a.entity < b.entity:
			return -1
		case a.entity > b.entity:
			return 1
		}
		return 0
	})
	return &Snapshot[S]{state: state, entities: ents}
}

// State returns the captured top-level state. It must be treated as
// read-only.
func (s *Snapshot[S]) State() S {
	return s.state
}

// Entities returns the captured entities in ascending order.
func (s *Snapshot[S]) Entities() []EntitySnapshot {
	return slices.Clone(s.entities)
}

// Len returns the number of captured entities.
func (s *Snapshot[S]) Len() int {
	return len(s.entities)
}

// Captured returns a copy of the value of kind ct that e held when snap was
// taken.
func Captured[T any, S any](snap *Snapshot[S], e Entity, ct ComponentType[T]) (T, bool) {
	var zero T
	idx, found := slices.BinarySearchFunc(snap.entities, e, func(es EntitySnapshot, target Entity) int {
		switch {
		case es.entity < target:
			return -1
		case es.entity > target:
			return 1
		}
		return 0
	})
	if !found {
		return zero, false
	}
	for _, cv := range snap.entities[idx].components {
		if cv.kind != ct.kind {
			continue
		}
		switch v := cv.value.(type) {
		case T:
			return ct.copy(v), true
		case *T:
			if v == nil {
				return zero, false
			}
			return ct.copy(*v), true
		}
		return zero, false
	}
	return zero, false
}

// Snapshot captures the whole store. Every value is copied, so later
// mutation of the store is never visible through the snapshot. Taking a
// snapshot does not change the store.
func (s *Store[S]) Snapshot() *Snapshot[S] {
	w := s.w
	order := w.liveOrder()
	snap := &Snapshot[S]{
		state:    s.cloneState(s.state),
		entities: make([]EntitySnapshot, 0, len(order)),
	}

	for _, e := range order {
		var comps []ComponentValue
		for _, kind := range w.active {
			if v, ok := w.tables[kind].Capture(e); ok {
				comps = append(comps, ComponentValue{kind: kind, value: v})
			}
		}
		snap.entities = append(snap.entities, EntitySnapshot{entity: e, components: comps})
	}

	return snap
}

// Restore replaces the live entity set, every table and the top-level state
// with copies of the content of snap. The snapshot itself is left untouched
// and may be restored again later.
//
// The entity allocator is never rewound: identifiers issued before the
// restore, or present in snap, are never issued again.
//
// Restore either succeeds completely or leaves the store unchanged.
func (s *Store[S]) Restore(snap *Snapshot[S]) error {
	if snap == nil {
		return eris.Wrap(ErrSnapshotMismatch, "restore nil snapshot")
	}

	w := s.w
	next := &world{
		registry: w.registry,
		alloc:    w.alloc,
		live:     intmap.New[Entity, struct{}](max(len(snap.entities), 256)),
		order:    make([]Entity, 0, len(snap.entities)),
	}

	for _, es := range snap.entities {
		if es.entity.IsZero() {
			return eris.Wrap(ErrSnapshotMismatch, "snapshot holds the zero entity")
		}
		if _, dup := next.live.Get(es.entity); dup {
			return eris.Wrapf(ErrSnapshotMismatch, "entity %d captured twice", es.entity)
		}
		next.live.Put(es.entity, struct{}{})
		next.order = append(next.order, es.entity)
		next.alloc.observe(es.entity)

		for _, cv := range es.components {
			tbl, err := next.ensure(cv.kind)
			if err != nil {
				return eris.Wrapf(ErrSnapshotMismatch, "entity %d: %v", es.entity, err)
			}
			if !tbl.Load(es.entity, cv.value) {
				return eris.Wrapf(ErrSnapshotMismatch, "entity %d: value %T does not fit %s",
					es.entity, cv.value, w.registry.Name(cv.kind))
			}
		}
	}
	slices.Sort(next.order)

	s.w = next
	s.state = s.cloneState(snap.state)
	return nil
}
