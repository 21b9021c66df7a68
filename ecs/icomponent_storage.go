package ecs

import "iter"

// iComponentTable is the type-erased view of one per-kind table.
// The store uses it for work that spans every kind: destroy, snapshot and
// restore.
type iComponentTable interface {
	Kind() Kind
	Has(e Entity) bool
	Remove(e Entity)
	Len() int
	Entities() iter.Seq[Entity]
	// Capture returns an independent copy of the value held for e.
	Capture(e Entity) (any, bool)
	// Load stores an independent copy of v, which must be a T or *T.
	Load(e Entity, v any) bool
}
