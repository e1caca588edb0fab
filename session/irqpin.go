package session

import "sync"

// An IRQPin is the interrupt input of the emulated CPU that a bridge drives.
type IRQPin struct {
	lock     sync.Mutex
	level    uint32
	changes  uint64
	onChange func(level uint32)
}

// NewIRQPin creates a pin at level 0.
func NewIRQPin() *IRQPin {
	return &IRQPin{}
}

// OnChange sets a function called every time the level changes.
func (p *IRQPin) OnChange(f func(level uint32)) {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.onChange = f
}

// SetLevel drives the pin.
func (p *IRQPin) SetLevel(level uint32) {
	p.lock.Lock()
	changed := p.level != level
	p.level = level
	f := p.onChange
	if changed {
		p.changes++
	}
	p.lock.Unlock()

	if changed && f != nil {
		f(level)
	}
}

// Level returns the current level.
func (p *IRQPin) Level() uint32 {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.level
}

// Changes returns how many times the level changed.
func (p *IRQPin) Changes() uint64 {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.changes
}
