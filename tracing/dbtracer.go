package tracing

import (
	"sync"

	"github.com/sarchlab/cosim/datarecording"
	"github.com/sarchlab/cosim/rtl"
)

// Table names used by DBTracer.
const (
	TransactionTable = "rtl_transaction"
	SymbolTable      = "serial_symbol"
)

// TransactionEntry is how a bridge transaction is stored.
type TransactionEntry struct {
	ID          string
	Location    string
	Kind        string
	Address     uint64
	Size        int
	Value       uint64
	IRQLevel    uint32
	VirtualTime float64
	StartNs     int64
	LatencyNs   int64
	Error       string
}

// SymbolEntry is how a serial symbol is stored.
type SymbolEntry struct {
	Location  string
	Direction string
	Symbol    uint16
	Name      string
	TimeNs    int64
}

// DBTracer stores transactions and symbols into a data recorder.
type DBTracer struct {
	lock     sync.Mutex
	backend  datarecording.DataRecorder
	recorded int
}

// NewDBTracer creates a tracer that writes to backend. The tables are created
// right away.
func NewDBTracer(backend datarecording.DataRecorder) *DBTracer {
	t := &DBTracer{backend: backend}

	backend.CreateTable(TransactionTable, TransactionEntry{})
	backend.CreateTable(SymbolTable, SymbolEntry{})

	return t
}

// EndTransaction records a completed transaction.
func (t *DBTracer) EndTransaction(domain string, tx *rtl.Transaction) {
	entry := TransactionEntry{
		ID:          tx.ID,
		Location:    domain,
		Kind:        string(tx.Kind),
		Address:     tx.Address,
		Size:        tx.Size,
		Value:       tx.Value,
		IRQLevel:    tx.IRQLevel,
		VirtualTime: float64(tx.VirtualTime),
		StartNs:     tx.Start.UnixNano(),
		LatencyNs:   tx.Latency.Nanoseconds(),
	}

	if tx.Err != nil {
		entry.Error = tx.Err.Error()
	}

	t.insert(TransactionTable, entry)
}

// TraceSymbol records a symbol.
func (t *DBTracer) TraceSymbol(event SymbolEvent) {
	t.insert(SymbolTable, SymbolEntry{
		Location:  event.Domain,
		Direction: string(event.Direction),
		Symbol:    uint16(event.Symbol),
		Name:      event.Symbol.String(),
		TimeNs:    event.Time.UnixNano(),
	})
}

func (t *DBTracer) insert(table string, entry any) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.backend.InsertData(table, entry)
	t.recorded++
}

// Recorded returns the number of entries written.
func (t *DBTracer) Recorded() int {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.recorded
}

// Terminate flushes the backend.
func (t *DBTracer) Terminate() {
	t.backend.Flush()
}
