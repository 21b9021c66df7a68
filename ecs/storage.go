package ecs

import (
	"slices"

	"github.com/kamstrup/intmap"
	"github.com/rotisserie/eris"
)

// Store owns every live entity, one table per component kind and a single
// top-level state record of type S.
//
// A Store has exactly one owner at a time and performs no locking.
// Components and the state are treated as immutable values: readers get a
// view they must not modify, writers go through Add, Replace, Patch and
// UpdateState, which always install a fresh value.
type Store[S any] struct {
	w          *world
	state      S
	cloneState func(S) S
}

// StoreOption configures a Store.
type StoreOption[S any] func(*Store[S])

// WithStateClone sets the function used to copy the top-level state.
// State records holding slices, maps or pointers need one.
func WithStateClone[S any](clone func(S) S) StoreOption[S] {
	return func(s *Store[S]) {
		s.cloneState = clone
	}
}

// New creates a store for the kinds of registry with the given initial
// top-level state.
func New[S any](registry *ComponentRegistry, state S, opts ...StoreOption[S]) *Store[S] {
	s := &Store[S]{
		w:          newWorld(registry),
		cloneState: copyValue[S],
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = s.cloneState(state)
	return s
}

// Components is implemented by *Store. It gives the typed accessors (Add,
// Get, Patch, ...) access to the component tables.
type Components interface {
	world() *world
}

func (s *Store[S]) world() *world {
	return s.w
}

// Registry returns the registry this store was built from.
func (s *Store[S]) Registry() *ComponentRegistry {
	return s.w.registry
}

// Create issues a new entity and registers it as live.
func (s *Store[S]) Create() Entity {
	e := s.w.alloc.create()
	s.w.live.Put(e, struct{}{})
	// identifiers only grow, so appending keeps order sorted
	s.w.order = append(s.w.order, e)
	return e
}

// Destroy removes each entity from the live set and from every table.
// Unknown or already destroyed entities are ignored.
func (s *Store[S]) Destroy(entities ...Entity) {
	for _, e := range entities {
		s.w.destroy(e)
	}
}

// Alive reports whether e is live.
func (s *Store[S]) Alive(e Entity) bool {
	return s.w.alive(e)
}

// Len returns the number of live entities.
func (s *Store[S]) Len() int {
	return s.w.live.Len()
}

// Entities returns every live entity in ascending order.
func (s *Store[S]) Entities() []Entity {
	return slices.Clone(s.w.liveOrder())
}

// Find returns every entity holding a value for all of kinds.
// The result is in ascending entity order. Callers should treat it as a set;
// the order is only guaranteed to be the same for the same store state.
func (s *Store[S]) Find(kinds ...Kinded) ([]Entity, error) {
	if len(kinds) == 0 {
		return nil, eris.Wrap(ErrInvalidQuery, "find")
	}

	tables := make([]iComponentTable, 0, len(kinds))
	empty := false
	for _, k := range kinds {
		tbl, err := s.w.lookup(k.Kind())
		if err != nil {
			return nil, err
		}
		if tbl == nil || tbl.Len() == 0 {
			empty = true
			continue
		}
		tables = append(tables, tbl)
	}
	if empty {
		return []Entity{}, nil
	}

	// seed from the smallest table, filter by the rest
	seed := 0
	for i, tbl := range tables {
		if tbl.Len() < tables[seed].Len() {
			seed = i
		}
	}

	result := make([]Entity, 0, tables[seed].Len())
	for e := range tables[seed].Entities() {
		if holdsAll(tables, e) {
			result = append(result, e)
		}
	}
	slices.Sort(result)
	return result, nil
}

// HasAll reports whether e holds a value for every one of kinds.
func (s *Store[S]) HasAll(e Entity, kinds ...Kinded) bool {
	for _, k := range kinds {
		tbl, err := s.w.lookup(k.Kind())
		if err != nil || tbl == nil || !tbl.Has(e) {
			return false
		}
	}
	return true
}

// HasAny reports whether e holds a value for at least one of kinds.
func (s *Store[S]) HasAny(e Entity, kinds ...Kinded) bool {
	for _, k := range kinds {
		tbl, err := s.w.lookup(k.Kind())
		if err == nil && tbl != nil && tbl.Has(e) {
			return true
		}
	}
	return false
}

// State returns the top-level state. The result must be treated as read-only;
// use UpdateState or ReplaceState to change it.
func (s *Store[S]) State() S {
	return s.state
}

// UpdateState applies mutate to an independent copy of the top-level state
// and installs the copy. The previous value is never modified.
func (s *Store[S]) UpdateState(mutate func(state *S)) S {
	next := s.cloneState(s.state)
	mutate(&next)
	s.state = next
	return next
}

// ReplaceState installs a copy of state as the top-level state.
func (s *Store[S]) ReplaceState(state S) {
	s.state = s.cloneState(state)
}

func holdsAll(tables []iComponentTable, e Entity) bool {
	for _, tbl := range tables {
		if !tbl.Has(e) {
			return false
		}
	}
	return true
}

// world is the part of a Store that does not depend on the state type.
type world struct {
	registry *ComponentRegistry
	alloc    allocator
	live     *intmap.Map[Entity, struct{}]
	// ascending; may still hold destroyed entities, see liveOrder
	order  []Entity
	stale  int
	tables [MaxKinds]iComponentTable
	// kinds that have a table, ascending
	active []Kind
}

func newWorld(registry *ComponentRegistry) *world {
	return &world{
		registry: registry,
		live:     intmap.New[Entity, struct{}](256),
	}
}

// lookup returns the table for kind, or nil if the kind is registered but
// nothing has been stored under it yet.
func (w *world) lookup(kind Kind) (iComponentTable, error) {
	if tbl := w.tables[kind]; tbl != nil {
		return tbl, nil
	}
	if !w.registry.Registered(kind) {
		return nil, eris.Wrapf(ErrKindNotRegistered, "kind %d", kind)
	}
	return nil, nil
}

// ensure returns the table for kind, creating it on first use.
func (w *world) ensure(kind Kind) (iComponentTable, error) {
	if tbl := w.tables[kind]; tbl != nil {
		return tbl, nil
	}
	tbl, err := w.registry.newTable(kind)
	if err != nil {
		return nil, err
	}
	w.install(tbl)
	return tbl, nil
}

func (w *world) install(tbl iComponentTable) {
	kind := tbl.Kind()
	w.tables[kind] = tbl
	idx, found := slices.BinarySearch(w.active, kind)
	if !found {
		w.active = slices.Insert(w.active, idx, kind)
	}
}

func (w *world) alive(e Entity) bool {
	_, ok := w.live.Get(e)
	return ok
}

func (w *world) destroy(e Entity) {
	if !w.alive(e) {
		return
	}
	for _, kind := range w.active {
		w.tables[kind].Remove(e)
	}
	w.live.Del(e)
	w.stale++
}

// liveOrder returns the live entities in ascending order. Destroyed entities
// are dropped from order in one pass on the first read after a destroy, so a
// batch of destroys costs a single compaction.
func (w *world) liveOrder() []Entity {
	if w.stale > 0 {
		w.order = slices.DeleteFunc(w.order, func(e Entity) bool {
			return !w.alive(e)
		})
		w.stale = 0
	}
	return w.order
}

func (w *world) requireAlive(e Entity) error {
	if !w.alive(e) {
		return eris.Wrapf(ErrEntityNotFound, "entity %d", e)
	}
	return nil
}
