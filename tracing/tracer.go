// Package tracing collects what the bridge and the line transport do, through
// their hooks.
package tracing

import (
	"time"

	"github.com/sarchlab/cosim/rtl"
	"github.com/sarchlab/cosim/serial"
	"github.com/sarchlab/cosim/sim/hooking"
)

// NamedHookable represent something both have a name and can be hooked
type NamedHookable interface {
	Name() string
	hooking.Hookable
}

// A TransactionTracer collects completed bridge transactions.
type TransactionTracer interface {
	EndTransaction(domain string, tx *rtl.Transaction)
}

// Direction tells which way a symbol went.
type Direction string

// Directions of the serial line.
const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// A SymbolEvent is one symbol crossing the line transport.
type SymbolEvent struct {
	Domain    string
	Direction Direction
	Symbol    serial.Symbol
	Time      time.Time
}

// A SymbolTracer collects symbols crossing the line transport.
type SymbolTracer interface {
	TraceSymbol(event SymbolEvent)
}
