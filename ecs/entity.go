package ecs

// Entity is an opaque handle to one logical game object.
// Identifiers are issued in strictly increasing order and never reused
// by the store that issued them. Zero is never issued.
type Entity uint64

// IsZero reports whether e is the zero handle.
func (e Entity) IsZero() bool {
	return e == 0
}

// allocator issues entity identifiers
type allocator struct {
	last Entity
}

func (a *allocator) create() Entity {
	a.last++
	return a.last
}

// observe makes sure e is never issued by a later create call.
// The counter only moves forward.
func (a *allocator) observe(e Entity) {
	if e > a.last {
		a.last = e
	}
}
