package ecs

// Kind is the tag identifying one component data shape.
// The set of kinds is closed: each one is bound to its Go type through a
// ComponentType and registered with a ComponentRegistry.
type Kind uint8

// MaxKinds is the number of distinct kinds a registry can hold.
const MaxKinds = 256

// Kinded is anything that names a component kind.
type Kinded interface {
	Kind() Kind
}

// ComponentType binds a Kind to the data shape T.
// Values of T are treated as immutable once stored; the clone function
// produces an independent copy whenever the store hands a value across the
// boundary between live tables and snapshots.
type ComponentType[T any] struct {
	kind  Kind
	name  string
	clone func(T) T
}

// ComponentOption configures a ComponentType.
type ComponentOption[T any] func(*ComponentType[T])

// WithClone sets the function used to copy values of T.
// Shapes holding slices, maps or pointers need one; plain structs are copied
// by assignment.
func WithClone[T any](clone func(T) T) ComponentOption[T] {
	return func(ct *ComponentType[T]) {
		ct.clone = clone
	}
}

// NewComponentType creates the binding between kind and T.
func NewComponentType[T any](kind Kind, name string, opts ...ComponentOption[T]) ComponentType[T] {
	ct := ComponentType[T]{
		kind:  kind,
		name:  name,
		clone: copyValue[T],
	}
	for _, opt := range opts {
		opt(&ct)
	}
	return ct
}

// Kind returns the tag of this component type.
func (ct ComponentType[T]) Kind() Kind {
	return ct.kind
}

// Name returns the human readable name of this component type.
func (ct ComponentType[T]) Name() string {
	return ct.name
}

func (ct ComponentType[T]) copy(v T) T {
	if ct.clone == nil {
		return v
	}
	return ct.clone(v)
}

func copyValue[T any](v T) T {
	return v
}
