package timing

import (
	"sync"
)

// TickEvent is a generic event that almost all the component can use to
// update their status.
type TickEvent struct {
	EventBase
}

// MakeTickEvent creates a new TickEvent
func MakeTickEvent(handler Handler, time VTimeInSec) TickEvent {
	return TickEvent{EventBase: MakeEventBase(time, handler)}
}

// TickScheduler can help schedule tick events.
type TickScheduler struct {
	lock      sync.Mutex
	handler   Handler
	Freq      Freq
	Engine    EventScheduler
	secondary bool

	nextTickTime VTimeInSec
}

// NewTickScheduler creates a scheduler for tick events.
func NewTickScheduler(
	handler Handler,
	engine EventScheduler,
	freq Freq,
) *TickScheduler {
	ticker := new(TickScheduler)

	ticker.handler = handler
	ticker.Engine = engine
	ticker.Freq = freq
	ticker.nextTickTime = -1 // This will make sure the first tick is scheduled

	return ticker
}

// NewSecondaryTickScheduler creates a scheduler that always schedule secondary
// tick events.
func NewSecondaryTickScheduler(
	handler Handler,
	engine EventScheduler,
	freq Freq,
) *TickScheduler {
	ticker := NewTickScheduler(handler, engine, freq)
	ticker.secondary = true

	return ticker
}

// TickNow schedule a Tick event at the current time.
func (t *TickScheduler) TickNow() {
	t.lock.Lock()
	defer t.lock.Unlock()

	time := t.Now()
	if t.nextTickTime >= time {
		return
	}

	t.nextTickTime = t.Freq.ThisTick(time)
	t.schedule()
}

// TickLater will schedule a tick event at the cycle after the now time.
func (t *TickScheduler) TickLater() {
	t.lock.Lock()
	defer t.lock.Unlock()

	time := t.Freq.NextTick(t.Now())
	if t.nextTickTime >= time {
		return
	}

	t.nextTickTime = time
	t.schedule()
}

// NextTickTime returns the time of the latest tick scheduled, or -1 if no
// tick has ever been scheduled.
func (t *TickScheduler) NextTickTime() VTimeInSec {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.nextTickTime
}

func (t *TickScheduler) schedule() {
	tick := MakeTickEvent(t.handler, t.nextTickTime)
	tick.secondary = t.secondary

	t.Engine.Schedule(tick)
}

// Now returns the current time of the engine.
func (t *TickScheduler) Now() VTimeInSec {
	return t.Engine.Now()
}
