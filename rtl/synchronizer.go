package rtl

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/sarchlab/cosim/sim/timing"
)

// A TimeAdvancer can move the RTL simulator's clock.
type TimeAdvancer interface {
	AdvanceTime(ctx context.Context, n uint64) error
}

// A Synchronizer advances the RTL simulator by one time unit every sync
// interval of virtual time, keeping the two simulators in lockstep.
type Synchronizer struct {
	*timing.TickScheduler

	name     string
	advancer TimeAdvancer
	timeout  time.Duration
	logger   *log.Logger

	lock    sync.Mutex
	running bool
	ticks   uint64
}

// NewSynchronizer creates a stopped Synchronizer that ticks every interval on
// engine.
func NewSynchronizer(
	name string,
	engine timing.EventScheduler,
	interval timing.VTimeInSec,
	advancer TimeAdvancer,
) *Synchronizer {
	if interval <= 0 {
		log.Panicf("sync interval must be positive, got %v", interval)
	}

	s := &Synchronizer{
		name:     name,
		advancer: advancer,
		logger:   log.Default(),
	}
	s.TickScheduler = timing.NewTickScheduler(
		s, engine, timing.FreqFromPeriod(interval))

	return s
}

// Name returns the name of the synchronizer.
func (s *Synchronizer) Name() string {
	return s.name
}

// Start arms the next tick. Starting a running synchronizer does not add a
// second tick.
func (s *Synchronizer) Start() {
	s.lock.Lock()
	s.running = true
	s.lock.Unlock()

	s.TickLater()
}

// Stop disarms the synchronizer. A tick that is already scheduled does
// nothing when it fires.
func (s *Synchronizer) Stop() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.running = false
}

// Running tells if the synchronizer is armed.
func (s *Synchronizer) Running() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.running
}

// Ticks returns the number of ticks handled while running.
func (s *Synchronizer) Ticks() uint64 {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.ticks
}

// Handle re-arms the next tick and then advances the RTL simulator. Losing
// the transport stops the synchronizer and is returned to the engine.
func (s *Synchronizer) Handle(_ timing.Event) error {
	s.lock.Lock()
	if !s.running {
		s.lock.Unlock()
		return nil
	}
	s.ticks++
	s.lock.Unlock()

	s.TickLater()

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	err := s.advancer.AdvanceTime(ctx, 1)
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrTransportLost) || errors.Is(err, ErrShutdown) {
		s.Stop()
		return err
	}

	s.logger.Printf("%s: %v", s.name, err)

	return nil
}
