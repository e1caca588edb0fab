package tracing

import (
	"fmt"
	"reflect"
	"time"

	"github.com/sarchlab/cosim/rtl"
	"github.com/sarchlab/cosim/serial"
	"github.com/sarchlab/cosim/sim/hooking"
)

// CollectTrace lets the tracer collect traces from a domain. The tracer must
// implement TransactionTracer, SymbolTracer, or both.
func CollectTrace(domain NamedHookable, tracer any) {
	_, isTx := tracer.(TransactionTracer)
	_, isSym := tracer.(SymbolTracer)

	if !isTx && !isSym {
		panic(fmt.Sprintf("%s cannot trace anything", reflect.TypeOf(tracer)))
	}

	for _, hook := range domain.Hooks() {
		hook, ok := hook.(*traceHook)
		if ok && hook.t == tracer {
			panic(fmt.Sprintf(
				"domain %s already has tracer %s",
				domain.Name(), reflect.TypeOf(tracer)))
		}
	}

	h := traceHook{t: tracer, domain: domain.Name(), now: time.Now}
	domain.AcceptHook(&h)
}

// A traceHook forwards hook invocations to a tracer.
type traceHook struct {
	t      any
	domain string
	now    func() time.Time
}

// Func calls the tracer interfaces when the hook is triggered
func (h *traceHook) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case rtl.HookPosTransactionDone:
		if t, ok := h.t.(TransactionTracer); ok {
			t.EndTransaction(h.domain, ctx.Item.(*rtl.Transaction))
		}
	case serial.HookPosSymbolSent:
		h.traceSymbol(DirectionSent, ctx.Item.(serial.Symbol))
	case serial.HookPosSymbolReceived:
		h.traceSymbol(DirectionReceived, ctx.Item.(serial.Symbol))
	}
}

func (h *traceHook) traceSymbol(dir Direction, s serial.Symbol) {
	t, ok := h.t.(SymbolTracer)
	if !ok {
		return
	}

	t.TraceSymbol(SymbolEvent{
		Domain:    h.domain,
		Direction: dir,
		Symbol:    s,
		Time:      h.now(),
	})
}
