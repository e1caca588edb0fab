package rtl

import (
	"sync"
	"sync/atomic"
)

// A Relay carries interrupt levels from the goroutine that reads the
// transport to the context that owns the interrupt line. It holds at most one
// level: a report that arrives before the previous one is consumed replaces
// it. The relay also mirrors the last level reported, consumed or not.
type Relay struct {
	lock      sync.Mutex
	ch        chan uint32
	level     uint32
	reported  atomic.Uint64
	coalesced atomic.Uint64
}

// NewRelay creates an empty Relay.
func NewRelay() *Relay {
	return &Relay{ch: make(chan uint32, 1)}
}

// Report publishes level. It never blocks.
func (r *Relay) Report(level uint32) {
	r.lock.Lock()
	defer r.lock.Unlock()

	select {
	case <-r.ch:
		r.coalesced.Add(1)
	default:
	}

	// Only Report sends, under the lock, so the channel is empty here.
	r.ch <- level
	r.level = level
	r.reported.Add(1)
}

// Level returns the last level reported.
func (r *Relay) Level() uint32 {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.level
}

// Take consumes the waiting level, if any, and returns the last level
// reported. A report cannot slip in between the two.
func (r *Relay) Take() uint32 {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.drain()

	return r.level
}

// Clear drops the waiting level and sets the mirrored level back to 0.
func (r *Relay) Clear() {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.drain()
	r.level = 0
}

func (r *Relay) drain() {
	select {
	case <-r.ch:
	default:
	}
}

// C returns a channel that becomes ready when a level is waiting.
func (r *Relay) C() <-chan uint32 {
	return r.ch
}

// Poll takes the waiting level, if any, without blocking.
func (r *Relay) Poll() (uint32, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()

	select {
	case level := <-r.ch:
		return level, true
	default:
		return 0, false
	}
}

// Reported returns the number of reports received.
func (r *Relay) Reported() uint64 {
	return r.reported.Load()
}

// Coalesced returns the number of reports that were replaced before the
// owner consumed them.
func (r *Relay) Coalesced() uint64 {
	return r.coalesced.Load()
}
