package rtl

import (
	"time"

	"github.com/rs/xid"
	"github.com/sarchlab/cosim/sim/hooking"
	"github.com/sarchlab/cosim/sim/timing"
)

// Hook positions of the bridge.
var (
	// HookPosCommandSent is triggered after a command is written. The item is
	// the command text.
	HookPosCommandSent = &hooking.HookPos{Name: "RTL Command Sent"}

	// HookPosFrameReceived is triggered for every frame read. The item is the
	// Frame.
	HookPosFrameReceived = &hooking.HookPos{Name: "RTL Frame Received"}

	// HookPosFrameDiscarded is triggered when a frame is dropped because no
	// request wants it. The item is the Frame.
	HookPosFrameDiscarded = &hooking.HookPos{Name: "RTL Frame Discarded"}

	// HookPosIRQReport is triggered for every interrupt report. The item is
	// the reported level.
	HookPosIRQReport = &hooking.HookPos{Name: "RTL IRQ Report"}

	// HookPosTransactionDone is triggered when an operation completes, with
	// or without error. The item is a *Transaction.
	HookPosTransactionDone = &hooking.HookPos{Name: "RTL Transaction Done"}

	// HookPosProtocolViolation is triggered when a reply cannot be
	// understood. The item is a Violation.
	HookPosProtocolViolation = &hooking.HookPos{Name: "RTL Protocol Violation"}
)

// TransactionKind names a bridge operation.
type TransactionKind string

// Kinds of bridge operations.
const (
	TransactionRead    TransactionKind = "read"
	TransactionWrite   TransactionKind = "write"
	TransactionAdvance TransactionKind = "advance"
	TransactionReset   TransactionKind = "reset"
	TransactionStop    TransactionKind = "stop"
)

// A Transaction records one bridge operation.
type Transaction struct {
	ID          string
	Kind        TransactionKind
	Address     uint64
	Size        int
	Value       uint64
	IRQLevel    uint32
	VirtualTime timing.VTimeInSec
	Start       time.Time
	Latency     time.Duration
	Err         error
}

func newTransaction(
	kind TransactionKind,
	addr uint64,
	size int,
	value uint64,
) *Transaction {
	return &Transaction{
		ID:      xid.New().String(),
		Kind:    kind,
		Address: addr,
		Size:    size,
		Value:   value,
		Start:   time.Now(),
	}
}

// A Violation describes a reply that did not match what was expected.
type Violation struct {
	Frame    Frame
	Expected string
}
