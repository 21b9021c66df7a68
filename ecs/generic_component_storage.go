package ecs

import (
	"fmt"
	"iter"
	"slices"

	"github.com/kamstrup/intmap"
	"github.com/rotisserie/eris"
)

// ComponentRegistry holds the closed set of component kinds a Store can use.
// Each Store built from a registry shares its kind bindings; registering a
// kind after stores exist is allowed, the stores pick it up on first use.
type ComponentRegistry struct {
	entries [MaxKinds]*kindEntry
	kinds   []Kind
}

type kindEntry struct {
	name     string
	newTable func() iComponentTable
	decode   func(decode func(dst any) error) (any, error)
}

// NewComponentRegistry creates an empty registry.
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{}
}

// RegisterComponent binds ct's kind to T in the registry.
// Registering the same kind twice panics.
func RegisterComponent[T any](r *ComponentRegistry, ct ComponentType[T]) {
	if existing := r.entries[ct.kind]; existing != nil {
		panic(fmt.Sprintf("component kind %d already registered as %q", ct.kind, existing.name))
	}

	r.entries[ct.kind] = &kindEntry{
		name: ct.name,
		newTable: func() iComponentTable {
			return newTable(ct)
		},
		decode: func(decode func(dst any) error) (any, error) {
			var v T
			if err := decode(&v); err != nil {
				return nil, err
			}
			return v, nil
		},
	}

	idx, _ := slices.BinarySearch(r.kinds, ct.kind)
	r.kinds = slices.Insert(r.kinds, idx, ct.kind)
}

// Kinds returns every registered kind in ascending order.
func (r *ComponentRegistry) Kinds() []Kind {
	return slices.Clone(r.kinds)
}

// Registered reports whether kind has been registered.
func (r *ComponentRegistry) Registered(kind Kind) bool {
	return r.entries[kind] != nil
}

// Name returns the registered name of kind, or a placeholder if the kind is
// unknown.
func (r *ComponentRegistry) Name(kind Kind) string {
	if entry := r.entries[kind]; entry != nil {
		return entry.name
	}
	return fmt.Sprintf("kind(%d)", kind)
}

// DecodeComponent builds a value of kind's data shape. decode receives a
// pointer to a zero value and fills it, e.g. by unmarshaling into it.
func (r *ComponentRegistry) DecodeComponent(kind Kind, decode func(dst any) error) (ComponentValue, error) {
	entry := r.entries[kind]
	if entry == nil {
		return ComponentValue{}, eris.Wrapf(ErrKindNotRegistered, "kind %d", kind)
	}
	v, err := entry.decode(decode)
	if err != nil {
		return ComponentValue{}, eris.Wrapf(err, "decode %s", entry.name)
	}
	return ComponentValue{kind: kind, value: v}, nil
}

func (r *ComponentRegistry) newTable(kind Kind) (iComponentTable, error) {
	entry := r.entries[kind]
	if entry == nil {
		return nil, eris.Wrapf(ErrKindNotRegistered, "kind %d", kind)
	}
	return entry.newTable(), nil
}

const (
	tableBlockSize = 64
)

// table is the per-kind component table. Values live in fixed-size blocks;
// an intmap indexes each entity to its slot so every operation is O(1)
// amortized. A slot whose owner is zero is empty.
type table[T any] struct {
	ct        ComponentType[T]
	index     *intmap.Map[Entity, int]
	blocks    [][tableBlockSize]T
	owners    [][tableBlockSize]Entity
	freeSlots []int
	nextSlot  int
}

func newTable[T any](ct ComponentType[T]) *table[T] {
	return &table[T]{
		ct:    ct,
		index: intmap.New[Entity, int](64),
	}
}

func (t *table[T]) Kind() Kind {
	return t.ct.kind
}

// Set inserts or overwrites the value held for e.
func (t *table[T]) Set(e Entity, v T) {
	if slot, ok := t.index.Get(e); ok {
		t.blocks[slot/tableBlockSize][slot%tableBlockSize] = v
		return
	}

	var slot int
	if n := len(t.freeSlots); n > 0 {
		slot = t.freeSlots[n-1]
		t.freeSlots = t.freeSlots[:n-1]
	} else {
		slot = t.nextSlot
		t.nextSlot++
		if slot/tableBlockSize >= len(t.blocks) {
			t.blocks = append(t.blocks, [tableBlockSize]T{})
			t.owners = append(t.owners, [tableBlockSize]Entity{})
		}
	}

	t.blocks[slot/tableBlockSize][slot%tableBlockSize] = v
	t.owners[slot/tableBlockSize][slot%tableBlockSize] = e
	t.index.Put(e, slot)
}

// Get returns the value held for e.
func (t *table[T]) Get(e Entity) (T, bool) {
	slot, ok := t.index.Get(e)
	if !ok {
		var zero T
		return zero, false
	}
	return t.blocks[slot/tableBlockSize][slot%tableBlockSize], true
}

func (t *table[T]) Has(e Entity) bool {
	_, ok := t.index.Get(e)
	return ok
}

// Remove deletes the value held for e, if any.
func (t *table[T]) Remove(e Entity) {
	slot, ok := t.index.Get(e)
	if !ok {
		return
	}

	var zero T
	t.blocks[slot/tableBlockSize][slot%tableBlockSize] = zero
	t.owners[slot/tableBlockSize][slot%tableBlockSize] = 0
	t.freeSlots = append(t.freeSlots, slot)
	t.index.Del(e)
}

func (t *table[T]) Len() int {
	return t.index.Len()
}

// Entities yields the holders of this table in slot order.
func (t *table[T]) Entities() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for slot := 0; slot < t.nextSlot; slot++ {
			owner := t.owners[slot/tableBlockSize][slot%tableBlockSize]
			if owner == 0 {
				continue
			}
			if !yield(owner) {
				return
			}
		}
	}
}

func (t *table[T]) Capture(e Entity) (any, bool) {
	v, ok := t.Get(e)
	if !ok {
		return nil, false
	}
	return t.ct.copy(v), true
}

func (t *table[T]) Load(e Entity, v any) bool {
	switch val := v.(type) {
	case T:
		t.Set(e, t.ct.copy(val))
	case *T:
		if val == nil {
			return false
		}
		t.Set(e, t.ct.copy(*val))
	default:
		return false
	}
	return true
}
