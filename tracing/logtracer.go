package tracing

import (
	"log"

	"github.com/sarchlab/cosim/rtl"
)

// LogTracer prints every transaction and symbol with a logger.
type LogTracer struct {
	*log.Logger
}

// NewLogTracer creates a tracer that prints to logger.
func NewLogTracer(logger *log.Logger) *LogTracer {
	return &LogTracer{Logger: logger}
}

// EndTransaction prints a completed transaction.
func (t *LogTracer) EndTransaction(domain string, tx *rtl.Transaction) {
	if tx.Err != nil {
		t.Printf("%s %s addr=0x%08X size=%d: %v",
			domain, tx.Kind, tx.Address, tx.Size, tx.Err)

		return
	}

	t.Printf("%s %s addr=0x%08X size=%d value=0x%X irq=%d (%v)",
		domain, tx.Kind, tx.Address, tx.Size, tx.Value, tx.IRQLevel,
		tx.Latency)
}

// TraceSymbol prints a symbol.
func (t *LogTracer) TraceSymbol(event SymbolEvent) {
	t.Printf("%s %s %s", event.Domain, event.Direction, event.Symbol)
}
