// Package timing drives virtual time for a co-simulation session. The owning
// context of a bridge is the event loop of an Engine: bus accesses, periodic
// synchronization ticks, and interrupt servicing all run inside it, one after
// another.
package timing

import (
	"github.com/rs/xid"
	"github.com/sarchlab/cosim/sim/hooking"
)

// VTimeInSec defines the time in the simulated space in the unit of second
type VTimeInSec = float64

// Units of virtual time.
const (
	Second      VTimeInSec = 1
	Millisecond VTimeInSec = 1e-3
	Microsecond VTimeInSec = 1e-6
	Nanosecond  VTimeInSec = 1e-9
)

// An Event is something going to happen in the future.
type Event interface {
	// Return the time that the event should happen
	Time() VTimeInSec

	// Returns the handler that can should handle the event
	Handler() Handler

	// IsSecondary tells if the event is a secondary event. Secondary event are
	// handled after all same-time primary events are handled.
	IsSecondary() bool
}

// HookPosBeforeEvent is a hook position that triggers before handling an event.
var HookPosBeforeEvent = &hooking.HookPos{Name: "BeforeEvent"}

// HookPosAfterEvent is a hook position that triggers after handling an event.
var HookPosAfterEvent = &hooking.HookPos{Name: "AfterEvent"}

// EventBase provides the basic fields and getters for other events
type EventBase struct {
	ID        string
	time      VTimeInSec
	handler   Handler
	secondary bool
}

// NewEventBase creates a new EventBase
func NewEventBase(t VTimeInSec, handler Handler) *EventBase {
	e := new(EventBase)
	e.ID = xid.New().String()
	e.time = t
	e.handler = handler
	e.secondary = false

	return e
}

// MakeEventBase creates an EventBase by value, for embedding.
func MakeEventBase(t VTimeInSec, handler Handler) EventBase {
	return EventBase{
		ID:      xid.New().String(),
		time:    t,
		handler: handler,
	}
}

// Time return the time that the event is going to happen
func (e EventBase) Time() VTimeInSec {
	return e.time
}

// Handler returns the handler to handle the event.
func (e EventBase) Handler() Handler {
	return e.handler
}

// IsSecondary returns true if the event is a secondary event.
func (e EventBase) IsSecondary() bool {
	return e.secondary
}

// A Handler defines a domain for the events.
//
// One event is always constraint to one Handler, which means the event can
// only be scheduled by one handler and can only directly modify that handler.
type Handler interface {
	Handle(e Event) error
}

// HandlerFunc adapts a function into a Handler.
type HandlerFunc func(e Event) error

// Handle calls f.
func (f HandlerFunc) Handle(e Event) error {
	return f(e)
}
