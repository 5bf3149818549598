package resource

import (
	"sync"
)

// Table maps slots to typed values and notifies observers about
// insertions and removals.
type Table struct {
	backend   Backend
	observers []Observer
	obsMu     sync.RWMutex
	closed    bool
	closeMu   sync.RWMutex
}

// NewTable creates a new table with a LocalBackend.
func NewTable() *Table {
	return &Table{
		backend: NewLocalBackend(),
	}
}

// Insert adds a value and returns its slot, or 0 once the table is closed.
func (t *Table) Insert(typeID uint32, value any) Slot {
	t.closeMu.RLock()
	if t.closed {
		t.closeMu.RUnlock()
		return 0
	}
	t.closeMu.RUnlock()

	slot, err := t.backend.Create(typeID, value)
	if err != nil {
		return 0
	}

	t.notify(Event{
		Type:   EventCreated,
		Slot:   slot,
		TypeID: typeID,
		Value:  value,
	})

	return slot
}

// Get retrieves a value by slot.
func (t *Table) Get(slot Slot) (any, bool) {
	return t.backend.Get(slot)
}

// GetTyped retrieves a value only if it was stored under typeID.
func (t *Table) GetTyped(slot Slot, typeID uint32) (any, bool) {
	actual, ok := t.backend.TypeID(slot)
	if !ok || actual != typeID {
		return nil, false
	}
	return t.backend.Get(slot)
}

// Remove drops a value and returns (value, true) if found.
func (t *Table) Remove(slot Slot) (any, bool) {
	typeID, _ := t.backend.TypeID(slot)
	value, ok := t.backend.Drop(slot)
	if !ok {
		return nil, false
	}

	if d, ok := value.(Dropper); ok {
		d.Drop()
	}

	t.notify(Event{
		Type:   EventDropped,
		Slot:   slot,
		TypeID: typeID,
		Value:  value,
	})

	return value, true
}

// RemoveTyped drops a value only if it was stored under typeID.
func (t *Table) RemoveTyped(slot Slot, typeID uint32) (any, bool) {
	actual, ok := t.backend.TypeID(slot)
	if !ok || actual != typeID {
		return nil, false
	}
	return t.Remove(slot)
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of live values.
func (t *Table) Len() int {
	return t.backend.Len()
}

// CountByType returns the number of live values per type ID.
func (t *Table) CountByType() map[uint32]int {
	counts := make(map[uint32]int)
	t.backend.Each(func(_ Slot, typeID uint32, _ any) bool {
		counts[typeID]++
		return true
	})
	return counts
}

// Close releases all values and stops accepting inserts.
func (t *Table) Close() error {
	t.closeMu.Lock()
	t.closed = true
	t.closeMu.Unlock()

	return t.backend.Close()
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}

// TypedTable is a typed view over a Table for a single type ID.
type TypedTable[T any] struct {
	table  *Table
	typeID uint32
}

// Typed returns a view of t restricted to values of type T stored under typeID.
func Typed[T any](t *Table, typeID uint32) TypedTable[T] {
	return TypedTable[T]{table: t, typeID: typeID}
}

// Insert adds a value and returns its slot.
func (tt TypedTable[T]) Insert(value T) Slot {
	return tt.table.Insert(tt.typeID, value)
}

// Get retrieves a value by slot.
func (tt TypedTable[T]) Get(slot Slot) (T, bool) {
	var zero T
	v, ok := tt.table.GetTyped(slot, tt.typeID)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}

// Remove drops a value and returns it.
func (tt TypedTable[T]) Remove(slot Slot) (T, bool) {
	var zero T
	v, ok := tt.table.RemoveTyped(slot, tt.typeID)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}
