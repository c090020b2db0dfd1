package resource

import (
	"fmt"
	"sync"

	"github.com/wippyai/qcvm-bridge/errors"
)

// Table maps handles to host values of mixed kinds and notifies observers
// of their lifecycle.
type Table struct {
	backend   *LocalBackend
	observers []Observer
	obsMu     sync.RWMutex
}

// NewTable creates a table with a LocalBackend.
func NewTable() *Table {
	return &Table{backend: NewLocalBackend()}
}

// Insert adds a value and returns its handle.
func (t *Table) Insert(kind Kind, value any) (Handle, error) {
	h, err := t.backend.Create(kind, value)
	if err != nil {
		return 0, errors.Wrap(errors.PhaseHost, errors.KindOutOfRange, err, fmt.Sprintf("insert %s", kind))
	}
	t.notify(Event{Type: EventCreated, Handle: h, Kind: kind, Value: value})
	return h, nil
}

// Get retrieves a value, requiring it to be of the given kind. Unknown,
// stale and foreign handles fail with an out-of-range error.
func (t *Table) Get(h Handle, kind Kind) (any, error) {
	value, actual, ok := t.backend.Get(h)
	if !ok {
		return nil, invalidHandle(h, kind, "not live")
	}
	if actual != kind {
		return nil, invalidHandle(h, kind, "refers to "+actual.String())
	}
	return value, nil
}

// Remove drops a resource of the given kind and returns its value.
func (t *Table) Remove(h Handle, kind Kind) (any, error) {
	if _, err := t.Get(h, kind); err != nil {
		return nil, err
	}
	value, _, ok := t.backend.Drop(h)
	if !ok {
		return nil, invalidHandle(h, kind, "not live")
	}
	if d, ok := value.(Dropper); ok {
		d.Drop()
	}
	t.notify(Event{Type: EventDropped, Handle: h, Kind: kind, Value: value})
	return value, nil
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Len returns the number of active resources.
func (t *Table) Len() int {
	return t.backend.Len()
}

// Count returns the number of active resources of one kind.
func (t *Table) Count(kind Kind) int {
	n := 0
	t.backend.Each(func(_ Handle, k Kind, _ any) bool {
		if k == kind {
			n++
		}
		return true
	})
	return n
}

// Clear drops all resources.
func (t *Table) Clear() {
	type item struct {
		h Handle
		k Kind
	}
	var items []item
	t.backend.Each(func(h Handle, k Kind, _ any) bool {
		items = append(items, item{h, k})
		return true
	})
	for _, it := range items {
		_, _ = t.Remove(it.h, it.k)
	}
}

// Close releases all resources and stops accepting inserts.
func (t *Table) Close() error {
	return t.backend.Close()
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}

func invalidHandle(h Handle, kind Kind, why string) error {
	return errors.New(errors.PhaseHost, errors.KindOutOfRange).
		Path(kind.String()).
		Value(int32(h)).
		Detail("handle %s %s", h, why).
		Build()
}

// TypedTable is a view of a Table restricted to one kind and value type.
type TypedTable[T any] struct {
	table *Table
	kind  Kind
}

// NewTypedTable creates a typed view over table.
func NewTypedTable[T any](table *Table, kind Kind) *TypedTable[T] {
	return &TypedTable[T]{table: table, kind: kind}
}

// Insert adds a value and returns its handle.
func (t *TypedTable[T]) Insert(value T) (Handle, error) {
	return t.table.Insert(t.kind, value)
}

// Get retrieves a value by handle.
func (t *TypedTable[T]) Get(h Handle) (T, error) {
	var zero T
	v, err := t.table.Get(h, t.kind)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, invalidHandle(h, t.kind, fmt.Sprintf("holds %T", v))
	}
	return out, nil
}

// Remove drops a value and returns it.
func (t *TypedTable[T]) Remove(h Handle) (T, error) {
	var zero T
	v, err := t.table.Remove(h, t.kind)
	if err != nil {
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}

// Len returns the number of live values of this kind.
func (t *TypedTable[T]) Len() int {
	return t.table.Count(t.kind)
}
