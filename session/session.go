// Package session puts an emulated CPU, an RTL bridge, and a virtual-time
// event loop together. Several sessions can live in one process; nothing in
// them is global.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sarchlab/cosim/monitoring"
	"github.com/sarchlab/cosim/rtl"
	"github.com/sarchlab/cosim/sim/hooking"
	"github.com/sarchlab/cosim/sim/timing"
	"github.com/sarchlab/cosim/tracing"
)

// A Result is the outcome of one bus-script op.
type Result struct {
	Op       Op
	Value    uint64
	IRQLevel uint32
	Err      error
}

// A Session is one CPU-to-RTL co-simulation.
type Session struct {
	id           string
	name         string
	engine       *timing.SerialEngine
	bridge       *rtl.Comp
	pin          *IRQPin
	logger       *log.Logger
	timeout      time.Duration
	monitor      *monitoring.Monitor
	dbTracer     *tracing.DBTracer
	resetOnStart bool

	lock     sync.Mutex
	results  []Result
	stopped  bool
	progress *monitoring.ProgressBar
}

// ID returns the unique ID of the session.
func (s *Session) ID() string {
	return s.id
}

// Name returns the name of the session.
func (s *Session) Name() string {
	return s.name
}

// Engine returns the event loop that owns the bridge.
func (s *Session) Engine() *timing.SerialEngine {
	return s.engine
}

// Bridge returns the RTL bridge.
func (s *Session) Bridge() *rtl.Comp {
	return s.bridge
}

// IRQPin returns the interrupt input the bridge drives.
func (s *Session) IRQPin() *IRQPin {
	return s.pin
}

// Stopped tells if the RTL simulator was stopped through the control
// register.
func (s *Session) Stopped() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.stopped
}

// Results returns the outcome of every op played so far, in order.
func (s *Session) Results() []Result {
	s.lock.Lock()
	defer s.lock.Unlock()

	results := make([]Result, len(s.results))
	copy(results, s.results)

	return results
}

// Play schedules the ops of a bus script on the event loop. After the last
// op, the synchronizer is stopped so that Run can return.
func (s *Session) Play(ops []Op) {
	if s.monitor != nil {
		s.progress = s.monitor.CreateProgressBar(s.name, uint64(len(ops)))
	}

	end := s.engine.Now()
	for _, op := range ops {
		at := s.engine.Now() + op.At
		s.engine.Schedule(opEvent{
			EventBase: timing.MakeEventBase(at, s),
			op:        op,
		})

		if at > end {
			end = at
		}
	}

	s.engine.Schedule(endEvent{EventBase: timing.MakeEventBase(end, s)})
}

// Run resets the RTL simulator, unless the session was built not to, and
// then runs the event loop until the script ends, the simulator is stopped,
// or the transport is lost.
func (s *Session) Run(ctx context.Context) error {
	if s.resetOnStart {
		if err := s.bridge.ResetContext(ctx); err != nil {
			return fmt.Errorf("resetting RTL simulator: %w", err)
		}
	}

	stop := context.AfterFunc(ctx, s.engine.Stop)
	defer stop()

	err := s.engine.Run()
	s.bridge.ServiceInterrupts()

	if err != nil && s.Stopped() && errors.Is(err, rtl.ErrShutdown) {
		err = nil
	}

	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}

	return err
}

// Close shuts the bridge down and flushes the recorder, if any.
func (s *Session) Close() {
	s.bridge.Shutdown()

	if s.dbTracer != nil {
		s.dbTracer.Terminate()
	}

	if s.monitor != nil && s.progress != nil {
		s.monitor.CompleteProgressBar(s.progress)
	}
}

// Handle runs bus-script events.
func (s *Session) Handle(e timing.Event) error {
	switch e := e.(type) {
	case opEvent:
		return s.play(e.op)
	case endEvent:
		if syncer := s.bridge.Synchronizer(); syncer != nil {
			syncer.Stop()
		}

		return nil
	}

	log.Panicf("session cannot handle %T", e)

	return nil
}

func (s *Session) play(op Op) error {
	if s.Stopped() {
		return nil
	}

	if s.progress != nil {
		s.progress.IncrementInProgress(1)
		defer s.progress.MoveInProgressToFinished(1)
	}

	ctx, cancel := s.opContext()
	defer cancel()

	result := Result{Op: op}

	switch op.Kind {
	case OpRead:
		result.Value, result.Err = s.bridge.ReadContext(
			ctx, op.Address, op.Size)
	case OpWrite:
		result.Err = s.bridge.WriteContext(
			ctx, op.Address, op.Size, op.Value)
	case OpAdvance:
		result.Err = s.bridge.WriteContext(ctx, s.controlAddress(), 4, op.Value)
	case OpStop:
		result.Err = s.bridge.WriteContext(ctx, s.controlAddress(), 4, 0)
	case OpReset:
		result.Err = s.bridge.ResetContext(ctx)
	}

	result.IRQLevel = s.bridge.IRQLevel()

	s.lock.Lock()
	s.results = append(s.results, result)
	s.lock.Unlock()

	if result.Err != nil {
		s.logger.Printf("line %d, %s: %v", op.Line, op, result.Err)
	}

	if errors.Is(result.Err, rtl.ErrTransportLost) {
		return result.Err
	}

	return nil
}

func (s *Session) opContext() (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(context.Background())
	}

	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *Session) controlAddress() uint64 {
	return s.bridge.Base() + s.bridge.Span() - rtl.ControlRegisterOffset
}

func (s *Session) onShutdown() {
	s.lock.Lock()
	s.stopped = true
	s.lock.Unlock()

	s.engine.Stop()
}

type opEvent struct {
	timing.EventBase
	op Op
}

type endEvent struct {
	timing.EventBase
}

// interruptServicer applies reported interrupt levels after every event, so
// the interrupt pin only changes inside the event loop.
type interruptServicer struct {
	bridge *rtl.Comp
}

func (h *interruptServicer) Func(ctx hooking.HookCtx) {
	if ctx.Pos != timing.HookPosAfterEvent {
		return
	}

	h.bridge.ServiceInterrupts()
}
