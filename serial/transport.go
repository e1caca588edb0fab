package serial

import (
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/sarchlab/cosim/sim/hooking"
)

// Hook positions of the line transport.
var (
	// HookPosSymbolSent is triggered for every symbol handed to Emit. The
	// item is the Symbol; the detail is the number of bytes written.
	HookPosSymbolSent = &hooking.HookPos{Name: "Serial Symbol Sent"}

	// HookPosSymbolReceived is triggered for every symbol Receive returns.
	// The item is the Symbol.
	HookPosSymbolReceived = &hooking.HookPos{Name: "Serial Symbol Received"}

	// HookPosLineChange is triggered when the peer attaches or detaches. The
	// item is the new connected state.
	HookPosLineChange = &hooking.HookPos{Name: "Serial Line Change"}
)

// TransportStats counts what a line transport has done so far.
type TransportStats struct {
	Sent        uint64
	Dropped     uint64
	WriteErrors uint64
	Received    uint64
	ReadErrors  uint64
	LineChanges uint64
}

// A LineTransport moves UART symbols over an Endpoint. Emit and Receive are
// meant to be called from a single goroutine, the one that runs the UART.
type LineTransport struct {
	hooking.HookableBase

	name        string
	ep          Endpoint
	pollTimeout time.Duration
	backoff     time.Duration
	escaped     bool
	logger      *log.Logger

	connected atomic.Bool
	decoder   Decoder
	pending   []Symbol
	rbuf      [1]byte
	wbuf      []byte

	sent        atomic.Uint64
	dropped     atomic.Uint64
	writeErrors atomic.Uint64
	received    atomic.Uint64
	readErrors  atomic.Uint64
	lineChanges atomic.Uint64
}

// TransportBuilder can build line transports.
type TransportBuilder struct {
	pollTimeout time.Duration
	backoff     time.Duration
	escaped     bool
	logger      *log.Logger
}

// MakeTransportBuilder returns a builder with default parameters.
func MakeTransportBuilder() TransportBuilder {
	return TransportBuilder{
		pollTimeout: time.Microsecond,
		backoff:     time.Microsecond,
	}
}

// WithPollTimeout sets how long Receive waits for input.
func (b TransportBuilder) WithPollTimeout(d time.Duration) TransportBuilder {
	b.pollTimeout = d
	return b
}

// WithBackoff sets how long Receive sleeps while no peer is attached.
func (b TransportBuilder) WithBackoff(d time.Duration) TransportBuilder {
	b.backoff = d
	return b
}

// WithEscapedInput decodes inbound bytes with the same escape framing Emit
// uses, so that the peer can send line events.
func (b TransportBuilder) WithEscapedInput() TransportBuilder {
	b.escaped = true
	return b
}

// WithLogger sets the logger that receives write and read failures.
func (b TransportBuilder) WithLogger(logger *log.Logger) TransportBuilder {
	b.logger = logger
	return b
}

// Build creates a line transport over ep. The line starts out disconnected.
func (b TransportBuilder) Build(name string, ep Endpoint) *LineTransport {
	t := &LineTransport{
		name:        name,
		ep:          ep,
		pollTimeout: b.pollTimeout,
		backoff:     b.backoff,
		escaped:     b.escaped,
		logger:      b.logger,
	}

	if t.logger == nil {
		t.logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	return t
}

// Name returns the name of the transport.
func (t *LineTransport) Name() string {
	return t.name
}

// Endpoint returns the endpoint the transport uses.
func (t *LineTransport) Endpoint() Endpoint {
	return t.ep
}

// Connected tells if a peer was attached at the last Receive.
func (t *LineTransport) Connected() bool {
	return t.connected.Load()
}

// Stats returns a snapshot of the transport counters.
func (t *LineTransport) Stats() TransportStats {
	return TransportStats{
		Sent:        t.sent.Load(),
		Dropped:     t.dropped.Load(),
		WriteErrors: t.writeErrors.Load(),
		Received:    t.received.Load(),
		ReadErrors:  t.readErrors.Load(),
		LineChanges: t.lineChanges.Load(),
	}
}

// Emit sends one symbol. Symbols without a wire form are dropped. A failed
// or short write is logged and counted; the symbol is lost.
func (t *LineTransport) Emit(s Symbol) {
	t.wbuf = Encode(t.wbuf[:0], s)
	if len(t.wbuf) == 0 {
		t.dropped.Add(1)
		return
	}

	n, err := t.ep.Write(t.wbuf)
	if err != nil || n != len(t.wbuf) {
		t.writeErrors.Add(1)
		t.logger.Printf("%s: write %s: %d of %d bytes: %v",
			t.name, s, n, len(t.wbuf), err)

		return
	}

	t.sent.Add(1)

	t.InvokeHook(hooking.HookCtx{
		Domain: t,
		Pos:    HookPosSymbolSent,
		Item:   s,
		Detail: n,
	})
}

// EmitPinWord sends the symbol carried by an HDL transmit word.
func (t *LineTransport) EmitPinWord(w int) {
	s, ok := DecodePinWord(w)
	if !ok {
		return
	}

	t.Emit(s)
}

// Receive returns the next symbol, if one is available within the poll
// timeout. A peer attaching yields Idle and a peer detaching yields Break.
func (t *LineTransport) Receive() (Symbol, bool) {
	if len(t.pending) > 0 {
		s := t.pending[0]
		t.pending = t.pending[1:]

		return t.deliver(s), true
	}

	res, err := t.ep.Poll(t.pollTimeout)
	if err != nil {
		t.readErrors.Add(1)
		t.logger.Printf("%s: %v", t.name, err)

		return 0, false
	}

	now := !res.HungUp
	if now != t.connected.Load() {
		t.connected.Store(now)
		t.lineChanges.Add(1)
		t.InvokeHook(hooking.HookCtx{
			Domain: t,
			Pos:    HookPosLineChange,
			Item:   now,
		})

		if now {
			return t.deliver(Idle), true
		}

		return t.deliver(Break), true
	}

	if !now {
		time.Sleep(t.backoff)
		return 0, false
	}

	if !res.Readable {
		return 0, false
	}

	return t.readOne()
}

func (t *LineTransport) readOne() (Symbol, bool) {
	n, err := t.ep.Read(t.rbuf[:])
	if n != 1 {
		t.readErrors.Add(1)
		t.logger.Printf("%s: read: %v", t.name, err)

		return 0, false
	}

	if !t.escaped {
		return t.deliver(DataSymbol(t.rbuf[0])), true
	}

	symbols := t.decoder.Decode(t.rbuf[0])
	if len(symbols) == 0 {
		return 0, false
	}

	t.pending = append(t.pending, symbols[1:]...)

	return t.deliver(symbols[0]), true
}

func (t *LineTransport) deliver(s Symbol) Symbol {
	t.received.Add(1)

	t.InvokeHook(hooking.HookCtx{
		Domain: t,
		Pos:    HookPosSymbolReceived,
		Item:   s,
	})

	return s
}

// ReceivePinWord returns the next symbol as an HDL receive word.
func (t *LineTransport) ReceivePinWord() int {
	return EncodePinWord(t.Receive())
}

// Close closes the endpoint.
func (t *LineTransport) Close() error {
	return t.ep.Close()
}
