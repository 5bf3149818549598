package resource

// Slot is an opaque reference to a value stored in a Table.
// Slot 0 is reserved and always invalid, so it doubles as the null pointer
// on the native side of the ABI.
type Slot uint32

// EventType identifies a table lifecycle notification.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

// Event represents a table lifecycle event.
type Event struct {
	Value  any
	Slot   Slot
	TypeID uint32
	Type   EventType
}

// Observer receives notifications about table lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }

// Backend provides the underlying storage mechanism for table values.
type Backend interface {
	// Create stores a value and returns its slot.
	Create(typeID uint32, value any) (Slot, error)

	// Get retrieves a value by slot.
	Get(slot Slot) (any, bool)

	// Drop removes a value and returns (value, true) if it was present.
	Drop(slot Slot) (any, bool)

	// TypeID returns the type the value was stored under.
	TypeID(slot Slot) (uint32, bool)

	// Len returns the number of live values.
	Len() int

	// Each visits live values until fn returns false.
	Each(fn func(Slot, uint32, any) bool)

	// Close releases all values held by the backend.
	Close() error
}

// Dropper is optionally implemented by stored values that need cleanup
// when they leave the table.
type Dropper interface {
	Drop()
}
