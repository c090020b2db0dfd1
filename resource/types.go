package resource

import "fmt"

// Handle is an opaque reference to a host value, small enough to live in a
// single VM slot. The low bits select a table entry and the high bits carry
// the entry's generation, so a handle outliving its value is detected rather
// than aliasing whatever reused the entry. Handle 0 is always invalid.
type Handle int32

const (
	indexBits = 20
	indexMask = 1<<indexBits - 1
	genBits   = 11
	genMask   = 1<<genBits - 1
	// MaxEntries bounds the number of simultaneously live handles per table.
	MaxEntries = indexMask
)

func makeHandle(index uint32, gen uint16) Handle {
	return Handle(int32(uint32(gen&genMask)<<indexBits | index&indexMask))
}

func (h Handle) index() uint32 {
	return uint32(h) & indexMask
}

func (h Handle) generation() uint16 {
	return uint16(uint32(h)>>indexBits) & genMask
}

func (h Handle) String() string {
	return fmt.Sprintf("%d@%d", h.index(), h.generation())
}

// Kind tags what a handle refers to so one table can hold several value
// types without a handle of one kind being accepted for another.
type Kind uint32

const (
	KindBoxEdicts Kind = iota + 1
	KindSurface
)

func (k Kind) String() string {
	switch k {
	case KindBoxEdicts:
		return "box_edicts"
	case KindSurface:
		return "surface"
	}
	return fmt.Sprintf("kind(%d)", uint32(k))
}

// EventType identifies a lifecycle notification.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

// Event represents a resource lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	Kind   Kind
	Type   EventType
}

// Observer receives notifications about resource lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnResourceEvent(e Event) {
	f(e)
}

// Dropper is optionally implemented by values that need cleanup when their
// handle is removed or the table is closed.
type Dropper interface {
	Drop()
}
