package resource

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("resource backend closed")

// LocalBackend is an in-memory slot backend. Freed slots are reused.
type LocalBackend struct {
	entries  []entry
	freeList []Slot
	mu       sync.RWMutex
	closed   bool
}

type entry struct {
	value  any
	typeID uint32
	valid  bool
}

// NewLocalBackend creates a new in-memory backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{
		entries:  make([]entry, 0, 64),
		freeList: make([]Slot, 0, 16),
	}
}

// Create stores a value and returns a slot.
func (b *LocalBackend) Create(typeID uint32, value any) (Slot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}

	e := entry{
		typeID: typeID,
		value:  value,
		valid:  true,
	}

	if len(b.freeList) > 0 {
		slot := b.freeList[len(b.freeList)-1]
		b.freeList = b.freeList[:len(b.freeList)-1]
		b.entries[slot-1] = e
		return slot, nil
	}

	b.entries = append(b.entries, e)
	return Slot(len(b.entries)), nil
}

func (b *LocalBackend) lookup(slot Slot) (entry, bool) {
	if slot == 0 {
		return entry{}, false
	}
	idx := slot - 1
	if int(idx) >= len(b.entries) {
		return entry{}, false
	}
	e := b.entries[idx]
	return e, e.valid
}

// Get retrieves a value by slot.
func (b *LocalBackend) Get(slot Slot) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.lookup(slot)
	return e.value, ok
}

// TypeID returns the type ID for a slot.
func (b *LocalBackend) TypeID(slot Slot) (uint32, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.lookup(slot)
	return e.typeID, ok
}

// Drop removes a value. A second Drop of the same slot reports false.
func (b *LocalBackend) Drop(slot Slot) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.lookup(slot); !ok {
		return nil, false
	}

	e := &b.entries[slot-1]
	value := e.value
	e.valid = false
	e.value = nil
	b.freeList = append(b.freeList, slot)

	return value, true
}

// Close releases all values.
func (b *LocalBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for i := range b.entries {
		if b.entries[i].valid {
			if d, ok := b.entries[i].value.(Dropper); ok {
				d.Drop()
			}
			b.entries[i].valid = false
			b.entries[i].value = nil
		}
	}

	b.entries = nil
	b.freeList = nil
	return nil
}

// Len returns the number of live values.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, e := range b.entries {
		if e.valid {
			count++
		}
	}
	return count
}

// Each iterates over all live values until fn returns false.
func (b *LocalBackend) Each(fn func(Slot, uint32, any) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, e := range b.entries {
		if e.valid {
			if !fn(Slot(i+1), e.typeID, e.value) {
				break
			}
		}
	}
}
