package rtl

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/sarchlab/cosim/sim/timing"
)

// Builder can build RTL bridges.
type Builder struct {
	engine       timing.EventScheduler
	base         uint64
	span         uint64
	syncInterval timing.VTimeInSec
	timeout      time.Duration
	irq          InterruptLine
	logger       *log.Logger
	relative     bool
	onShutdown   func()
}

// MakeBuilder returns a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		base:         0xE0000000,
		span:         0x01000000,
		syncInterval: 1000 * timing.Microsecond,
		timeout:      5 * time.Second,
	}
}

// WithEngine sets the engine that drives the time synchronizer. Without an
// engine the bridge has no synchronizer.
func (b Builder) WithEngine(engine timing.EventScheduler) Builder {
	b.engine = engine
	return b
}

// WithBase sets the first bus address of the register window.
func (b Builder) WithBase(base uint64) Builder {
	b.base = base
	return b
}

// WithSpan sets the size of the register window.
func (b Builder) WithSpan(span uint64) Builder {
	b.span = span
	return b
}

// WithSyncInterval sets the virtual time between two synchronizer ticks.
func (b Builder) WithSyncInterval(interval timing.VTimeInSec) Builder {
	b.syncInterval = interval
	return b
}

// WithTimeout sets how long Read, Write, and Reset wait for a reply. Zero
// waits forever.
func (b Builder) WithTimeout(timeout time.Duration) Builder {
	b.timeout = timeout
	return b
}

// WithInterruptLine sets the interrupt input the bridge drives.
func (b Builder) WithInterruptLine(irq InterruptLine) Builder {
	b.irq = irq
	return b
}

// WithLogger sets the logger that receives protocol diagnostics.
func (b Builder) WithLogger(logger *log.Logger) Builder {
	b.logger = logger
	return b
}

// WithRelativeAddressing sends offsets into the window instead of bus
// addresses.
func (b Builder) WithRelativeAddressing() Builder {
	b.relative = true
	return b
}

// WithShutdownHandler sets the function called after the bridge stops the RTL
// simulator through the control register.
func (b Builder) WithShutdownHandler(f func()) Builder {
	b.onShutdown = f
	return b
}

// Build creates a bridge that talks over conn and starts reading from it.
func (b Builder) Build(name string, conn io.ReadWriteCloser) *Comp {
	if b.span <= ControlRegisterOffset {
		log.Panicf("span 0x%X is too small for the control register", b.span)
	}

	c := &Comp{
		name:       name,
		conn:       conn,
		base:       b.base,
		span:       b.span,
		relative:   b.relative,
		timeout:    b.timeout,
		logger:     b.logger,
		irq:        b.irq,
		relay:      NewRelay(),
		onShutdown: shutdownHandler{f: b.onShutdown},
		slot:       make(chan struct{}, 1),
		dead:       make(chan struct{}),
		recvDone:   make(chan struct{}),
	}

	if c.logger == nil {
		c.logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	if c.irq == nil {
		c.irq = nopLine{}
	}

	if b.engine != nil {
		c.timeTeller = b.engine
		c.syncer = NewSynchronizer(
			name+".Synchronizer", b.engine, b.syncInterval, c)
		c.syncer.timeout = b.timeout
		c.syncer.logger = c.logger
	}

	go c.receive()

	return c
}
