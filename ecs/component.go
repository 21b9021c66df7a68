package ecs

import "github.com/rotisserie/eris"

// tableOf resolves the typed table for ct, creating it on first use.
func tableOf[T any](w *world, ct ComponentType[T]) (*table[T], error) {
	tbl, err := w.ensure(ct.kind)
	if err != nil {
		return nil, err
	}
	typed, ok := tbl.(*table[T])
	if !ok {
		return nil, eris.Wrapf(ErrKindNotRegistered,
			"kind %d is registered as %q with a different type", ct.kind, w.registry.Name(ct.kind))
	}
	return typed, nil
}

// readTable resolves the typed table for ct without installing one. A nil
// table with a nil error means no entity has ever held the kind.
func readTable[T any](w *world, ct ComponentType[T]) (*table[T], error) {
	tbl, err := w.lookup(ct.kind)
	if err != nil || tbl == nil {
		return nil, err
	}
	typed, ok := tbl.(*table[T])
	if !ok {
		return nil, eris.Wrapf(ErrKindNotRegistered,
			"kind %d is registered as %q with a different type", ct.kind, w.registry.Name(ct.kind))
	}
	return typed, nil
}

// Add stores v under ct for the live entity e, overwriting any previous value
// of that kind, and returns the stored value.
func Add[T any](c Components, e Entity, ct ComponentType[T], v T) (T, error) {
	if err := put(c.world(), "add", e, ct, v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// Replace stores v under ct for e whether or not e held a value of that kind.
// e must be live.
func Replace[T any](c Components, e Entity, ct ComponentType[T], v T) error {
	return put(c.world(), "replace", e, ct, v)
}

func put[T any](w *world, op string, e Entity, ct ComponentType[T], v T) error {
	if err := w.requireAlive(e); err != nil {
		return eris.Wrapf(err, "%s %s", op, ct.name)
	}
	tbl, err := tableOf(w, ct)
	if err != nil {
		return err
	}
	tbl.Set(e, v)
	return nil
}

// Get returns the value of kind ct held by e.
// The value is a read-only view of the live table: modify it through Patch
// or Replace only.
func Get[T any](c Components, e Entity, ct ComponentType[T]) (T, error) {
	var zero T
	w := c.world()
	if err := w.requireAlive(e); err != nil {
		return zero, eris.Wrapf(err, "get %s", ct.name)
	}
	tbl, err := readTable(w, ct)
	if err != nil {
		return zero, err
	}
	if tbl == nil {
		return zero, eris.Wrapf(ErrComponentNotFound, "entity %d has no %s", e, ct.name)
	}
	v, ok := tbl.Get(e)
	if !ok {
		return zero, eris.Wrapf(ErrComponentNotFound, "entity %d has no %s", e, ct.name)
	}
	return v, nil
}

// Has reports whether e holds a value of kind ct.
func Has[T any](c Components, e Entity, ct ComponentType[T]) bool {
	tbl, err := c.world().lookup(ct.kind)
	if err != nil || tbl == nil {
		return false
	}
	return tbl.Has(e)
}

// Remove deletes the value of kind ct held by e. It does nothing if there is
// none.
func Remove[T any](c Components, e Entity, ct ComponentType[T]) {
	tbl, err := c.world().lookup(ct.kind)
	if err != nil || tbl == nil {
		return
	}
	tbl.Remove(e)
}

// Patch applies mutate to an independent working copy of e's value of kind
// ct, commits the copy and returns it. The value that was replaced, and any
// snapshot holding it, is never modified.
func Patch[T any](c Components, e Entity, ct ComponentType[T], mutate func(v *T)) (T, error) {
	current, err := Get(c, e, ct)
	if err != nil {
		return current, err
	}
	tbl, err := tableOf(c.world(), ct)
	if err != nil {
		return current, err
	}
	next := tbl.ct.copy(current)
	mutate(&next)
	tbl.Set(e, next)
	return next, nil
}
