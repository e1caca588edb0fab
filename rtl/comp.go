// Package rtl connects a CPU-side register window to an RTL simulator over a
// byte stream.
//
// Commands are text lines. Every reply is a 12-byte frame. At most one
// request is outstanding at any time; while it is, interrupt-level reports
// may arrive unsolicited and are delivered through a Relay.
package rtl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sarchlab/cosim/sim/hooking"
	"github.com/sarchlab/cosim/sim/timing"
)

// ControlRegisterOffset is the offset, from the end of the window, of the
// register that advances or stops the RTL simulator.
const ControlRegisterOffset = 0x10

// An InterruptLine is the CPU-side interrupt input the bridge drives.
type InterruptLine interface {
	SetLevel(level uint32)
}

type nopLine struct{}

func (nopLine) SetLevel(uint32) {}

// shutdownHandler keeps the callback out of the fields the monitor inspects,
// which cannot hold funcs.
type shutdownHandler struct {
	f func()
}

func (h shutdownHandler) call() {
	if h.f != nil {
		h.f()
	}
}

// Stats counts what the bridge has done so far.
type Stats struct {
	Requests   uint64
	Timeouts   uint64
	Violations uint64
	Discarded  uint64
	IRQReports uint64
}

type request struct {
	kind   TransactionKind
	reply  chan Frame
	accept func(Frame) bool
}

// Comp is the bridge between the CPU bus and the RTL simulator.
type Comp struct {
	hooking.HookableBase

	name       string
	conn       io.ReadWriteCloser
	base       uint64
	span       uint64
	relative   bool
	timeout    time.Duration
	logger     *log.Logger
	timeTeller timing.TimeTeller
	irq        InterruptLine
	relay      *Relay
	syncer     *Synchronizer
	onShutdown shutdownHandler

	stopping atomic.Bool

	slot      chan struct{}
	reqLock   sync.Mutex
	current   *request
	writeLock sync.Mutex

	dead      chan struct{}
	deadErr   error
	closeOnce sync.Once
	recvDone  chan struct{}

	requests   atomic.Uint64
	timeouts   atomic.Uint64
	violations atomic.Uint64
	discarded  atomic.Uint64
}

// Name returns the name of the bridge.
func (c *Comp) Name() string {
	return c.name
}

// Base returns the first bus address of the register window.
func (c *Comp) Base() uint64 {
	return c.base
}

// Span returns the size of the register window in bytes.
func (c *Comp) Span() uint64 {
	return c.span
}

// Relay returns the relay that carries interrupt reports to the owner.
func (c *Comp) Relay() *Relay {
	return c.relay
}

// Synchronizer returns the time synchronizer, or nil if the bridge was built
// without an engine.
func (c *Comp) Synchronizer() *Synchronizer {
	return c.syncer
}

// IRQLevel returns the last interrupt level reported by the simulator.
func (c *Comp) IRQLevel() uint32 {
	return c.relay.Level()
}

// Stats returns a snapshot of the bridge counters.
func (c *Comp) Stats() Stats {
	return Stats{
		Requests:   c.requests.Load(),
		Timeouts:   c.timeouts.Load(),
		Violations: c.violations.Load(),
		Discarded:  c.discarded.Load(),
		IRQReports: c.relay.Reported(),
	}
}

// Done returns a channel that is closed once the transport is gone.
func (c *Comp) Done() <-chan struct{} {
	return c.dead
}

// Err returns why the transport is gone, or nil while it is alive.
func (c *Comp) Err() error {
	select {
	case <-c.dead:
		return c.deadErr
	default:
		return nil
	}
}

// Read reads size bytes at the bus address addr.
func (c *Comp) Read(addr uint64, size int) (uint64, error) {
	ctx, cancel := c.defaultContext()
	defer cancel()

	return c.ReadContext(ctx, addr, size)
}

// ReadContext is Read with a caller-provided deadline.
func (c *Comp) ReadContext(
	ctx context.Context,
	addr uint64,
	size int,
) (uint64, error) {
	tx := newTransaction(TransactionRead, addr, size, 0)

	if err := c.checkAccess(addr, size); err != nil {
		return 0, c.finish(tx, err)
	}

	cmd, err := encodeRead(c.wireAddress(addr))
	if err != nil {
		return 0, c.finish(tx, err)
	}

	f, err := c.roundTrip(ctx, TransactionRead, cmd, nil)
	if err != nil {
		return 0, c.finish(tx, err)
	}

	v, ok := parseReadReply(f)
	if !ok {
		return 0, c.finish(tx, c.violation(f, "R=<value>"))
	}

	v >>= laneShift(addr)
	v &= sizeMask(size)
	tx.Value = v

	c.applyIRQ()

	return v, c.finish(tx, nil)
}

// Write writes the low size bytes of value to the bus address addr. Writing
// to the control register advances the RTL simulator by value, or stops it
// if value is zero.
func (c *Comp) Write(addr uint64, size int, value uint64) error {
	ctx, cancel := c.defaultContext()
	defer cancel()

	return c.WriteContext(ctx, addr, size, value)
}

// WriteContext is Write with a caller-provided deadline.
func (c *Comp) WriteContext(
	ctx context.Context,
	addr uint64,
	size int,
	value uint64,
) error {
	if err := c.checkAccess(addr, size); err != nil {
		tx := newTransaction(TransactionWrite, addr, size, value)
		return c.finish(tx, err)
	}

	if c.isControlRegister(addr) {
		if value == 0 {
			return c.stop(ctx)
		}

		return c.AdvanceTime(ctx, value)
	}

	tx := newTransaction(TransactionWrite, addr, size, value)

	data := (value & sizeMask(size)) << laneShift(addr)
	mask := uint8(1<<size-1) << (addr & 3)

	cmd, err := encodeWrite(c.wireAddress(addr), data, mask)
	if err != nil {
		return c.finish(tx, err)
	}

	f, err := c.roundTrip(ctx, TransactionWrite, cmd, nil)
	if err != nil {
		return c.finish(tx, err)
	}

	if !isWriteAck(f) {
		return c.finish(tx, c.violation(f, "W=OK"))
	}

	c.applyIRQ()

	return c.finish(tx, nil)
}

// AdvanceTime asks the RTL simulator to run n of its time units.
func (c *Comp) AdvanceTime(ctx context.Context, n uint64) error {
	tx := newTransaction(TransactionAdvance, 0, 0, n)

	cmd, err := encodeAdvance(n)
	if err != nil {
		return c.finish(tx, err)
	}

	f, err := c.roundTrip(ctx, TransactionAdvance, cmd, nil)
	if err != nil {
		return c.finish(tx, err)
	}

	if !isAdvanceAck(f) && !isWriteAck(f) {
		return c.finish(tx, c.violation(f, "T=<time>"))
	}

	c.applyIRQ()

	return c.finish(tx, nil)
}

// Reset deasserts the interrupt line, resets the RTL simulator and waits
// until it reports running. Frames other than the running acknowledgement
// that arrive meanwhile are discarded. The synchronizer is re-armed
// afterwards.
func (c *Comp) Reset() error {
	ctx, cancel := c.defaultContext()
	defer cancel()

	return c.ResetContext(ctx)
}

// ResetContext is Reset with a caller-provided deadline.
func (c *Comp) ResetContext(ctx context.Context) error {
	tx := newTransaction(TransactionReset, 0, 0, 0)

	c.relay.Clear()
	c.irq.SetLevel(0)

	_, err := c.roundTrip(ctx, TransactionReset, cmdReset, isRunning)
	if err != nil {
		return c.finish(tx, err)
	}

	if c.syncer != nil {
		c.syncer.Start()
	}

	return c.finish(tx, nil)
}

// ServiceInterrupts applies the latest reported interrupt level, if one is
// waiting. It must be called from the context that owns the interrupt line.
func (c *Comp) ServiceInterrupts() bool {
	level, ok := c.relay.Poll()
	if !ok {
		return false
	}

	c.irq.SetLevel(level)

	return true
}

// Shutdown closes the transport and waits for the receiver to finish. Later
// operations fail with ErrShutdown.
func (c *Comp) Shutdown() {
	if c.syncer != nil {
		c.syncer.Stop()
	}

	c.stopping.Store(true)
	c.fail(ErrShutdown)
	<-c.recvDone
}

func (c *Comp) stop(ctx context.Context) error {
	tx := newTransaction(TransactionStop, 0, 0, 0)

	if err := c.acquire(ctx); err != nil {
		return c.finish(tx, err)
	}

	c.stopping.Store(true)
	err := c.send(ctx, cmdStop)
	c.release()

	if c.syncer != nil {
		c.syncer.Stop()
	}

	c.onShutdown.call()

	return c.finish(tx, err)
}

func (c *Comp) defaultContext() (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(context.Background())
	}

	return context.WithTimeout(context.Background(), c.timeout)
}

func (c *Comp) checkAccess(addr uint64, size int) error {
	switch size {
	case 1, 2, 4:
	default:
		return fmt.Errorf("%w: size %d at 0x%X", ErrInvalidAccess, size, addr)
	}

	if addr < c.base || addr+uint64(size) > c.base+c.span {
		return fmt.Errorf("%w: 0x%X is outside [0x%X, 0x%X)",
			ErrInvalidAccess, addr, c.base, c.base+c.span)
	}

	if addr&3+uint64(size) > 4 {
		return fmt.Errorf("%w: %d bytes at 0x%X cross a word boundary",
			ErrInvalidAccess, size, addr)
	}

	return nil
}

func (c *Comp) isControlRegister(addr uint64) bool {
	return addr-c.base == c.span-ControlRegisterOffset
}

func (c *Comp) wireAddress(addr uint64) uint64 {
	if c.relative {
		return addr - c.base
	}

	return addr
}

func laneShift(addr uint64) uint64 {
	return (addr & 3) * 8
}

func sizeMask(size int) uint64 {
	return (uint64(1) << (8 * size)) - 1
}

func (c *Comp) applyIRQ() {
	c.irq.SetLevel(c.relay.Take())
}

func (c *Comp) acquire(ctx context.Context) error {
	select {
	case <-c.dead:
		return c.deadErr
	default:
	}

	select {
	case c.slot <- struct{}{}:
		return nil
	case <-c.dead:
		return c.deadErr
	case <-ctx.Done():
		c.timeouts.Add(1)
		return fmt.Errorf("%w: waiting for the outstanding request: %v",
			ErrTimeout, ctx.Err())
	}
}

func (c *Comp) release() {
	<-c.slot
}

// roundTrip sends cmd and waits for the reply that accept takes. A request
// that times out keeps the slot until its reply or the end of the transport,
// so that a late reply is never taken for the next request's.
func (c *Comp) roundTrip(
	ctx context.Context,
	kind TransactionKind,
	cmd []byte,
	accept func(Frame) bool,
) (Frame, error) {
	if err := c.acquire(ctx); err != nil {
		return Frame{}, err
	}

	req := &request{
		kind:   kind,
		reply:  make(chan Frame, 1),
		accept: accept,
	}

	c.reqLock.Lock()
	c.current = req
	c.reqLock.Unlock()

	c.requests.Add(1)

	if err := c.send(ctx, cmd); err != nil {
		c.reqLock.Lock()
		if c.current == req {
			c.current = nil
			c.release()
		}
		c.reqLock.Unlock()

		return Frame{}, err
	}

	select {
	case f := <-req.reply:
		return f, nil
	case <-c.dead:
		return Frame{}, c.deadErr
	case <-ctx.Done():
		c.timeouts.Add(1)
		c.logger.Printf("%s: no reply to %q: %v", c.name, trimCommand(cmd),
			ctx.Err())

		return Frame{}, fmt.Errorf("%w: %q: %v",
			ErrTimeout, trimCommand(cmd), ctx.Err())
	}
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

func (c *Comp) send(ctx context.Context, cmd []byte) error {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	if d, ok := c.conn.(writeDeadliner); ok {
		deadline, _ := ctx.Deadline()
		_ = d.SetWriteDeadline(deadline)
	}

	_, err := c.conn.Write(cmd)
	if err != nil {
		// A partial command leaves the stream unusable.
		return c.fail(fmt.Errorf("%w: write %q: %v",
			ErrTransportLost, trimCommand(cmd), err))
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosCommandSent,
		Item:   trimCommand(cmd),
	})

	return nil
}

func trimCommand(cmd []byte) string {
	n := len(cmd)
	for n > 0 && (cmd[n-1] == '\n' || cmd[n-1] == '\r') {
		n--
	}

	return string(cmd[:n])
}

// fail marks the transport as gone and closes it. The first reason wins.
func (c *Comp) fail(err error) error {
	c.closeOnce.Do(func() {
		c.deadErr = err
		close(c.dead)
		_ = c.conn.Close()

		if !errors.Is(err, ErrShutdown) {
			c.logger.Printf("%s: %v", c.name, err)
		}
	})

	return c.deadErr
}

func (c *Comp) receive() {
	defer close(c.recvDone)

	var f Frame

	for {
		_, err := io.ReadFull(c.conn, f[:])
		if err != nil {
			if c.stopping.Load() {
				c.fail(ErrShutdown)
				return
			}

			c.fail(fmt.Errorf("%w: read: %v", ErrTransportLost, err))

			return
		}

		c.InvokeHook(hooking.HookCtx{
			Domain: c,
			Pos:    HookPosFrameReceived,
			Item:   f,
		})

		if f.IsIRQReport() {
			c.handleIRQReport(f)
			continue
		}

		c.deliver(f)
	}
}

func (c *Comp) handleIRQReport(f Frame) {
	level, ok := parseIRQReport(f)
	if !ok {
		c.violation(f, "I=<level>")
		return
	}

	c.relay.Report(level)

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosIRQReport,
		Item:   level,
	})
}

func (c *Comp) deliver(f Frame) {
	c.reqLock.Lock()
	req := c.current

	if req == nil || (req.accept != nil && !req.accept(f)) {
		c.reqLock.Unlock()
		c.discard(f, req)

		return
	}

	c.current = nil
	c.reqLock.Unlock()

	req.reply <- f
	c.release()
}

func (c *Comp) discard(f Frame, req *request) {
	c.discarded.Add(1)

	if req == nil {
		c.logger.Printf("%s: discarding unexpected frame %q", c.name, f.String())
	} else {
		c.logger.Printf("%s: discarding frame %q while waiting for %s",
			c.name, f.String(), req.kind)
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosFrameDiscarded,
		Item:   f,
	})
}

func (c *Comp) violation(f Frame, expected string) error {
	c.violations.Add(1)
	c.logger.Printf("%s: unexpected reply %q, want %s",
		c.name, f.String(), expected)

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosProtocolViolation,
		Item:   Violation{Frame: f, Expected: expected},
	})

	return fmt.Errorf("%w: got %q, want %s",
		ErrProtocolViolation, f.String(), expected)
}

func (c *Comp) finish(tx *Transaction, err error) error {
	tx.Err = err
	tx.Latency = time.Since(tx.Start)

	// Timeouts, violations, and transport loss are logged where they happen.
	if errors.Is(err, ErrInvalidAccess) || errors.Is(err, ErrCommandTooLong) {
		c.logger.Printf("%s: %s ignored: %v", c.name, tx.Kind, err)
	}
	tx.IRQLevel = c.relay.Level()

	if c.timeTeller != nil {
		tx.VirtualTime = c.timeTeller.Now()
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosTransactionDone,
		Item:   tx,
	})

	return err
}
