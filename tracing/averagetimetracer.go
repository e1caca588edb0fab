package tracing

import (
	"sync"
	"time"

	"github.com/sarchlab/cosim/rtl"
)

// TransactionFilter selects the transactions a tracer counts.
type TransactionFilter func(tx *rtl.Transaction) bool

// AverageTimeTracer keeps the average wall-clock latency of the transactions
// that pass its filter. Failed transactions are counted separately.
type AverageTimeTracer struct {
	filter TransactionFilter

	lock        sync.Mutex
	averageTime time.Duration
	maxTime     time.Duration
	count       uint64
	failed      uint64
}

// NewAverageTimeTracer creates a new AverageTimeTracer. A nil filter counts
// every transaction.
func NewAverageTimeTracer(filter TransactionFilter) *AverageTimeTracer {
	if filter == nil {
		filter = func(*rtl.Transaction) bool { return true }
	}

	return &AverageTimeTracer{filter: filter}
}

// KindFilter selects transactions of one kind.
func KindFilter(kind rtl.TransactionKind) TransactionFilter {
	return func(tx *rtl.Transaction) bool { return tx.Kind == kind }
}

// AverageTime returns the average latency so far.
func (t *AverageTimeTracer) AverageTime() time.Duration {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.averageTime
}

// MaxTime returns the longest latency so far.
func (t *AverageTimeTracer) MaxTime() time.Duration {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.maxTime
}

// TotalCount returns the number of successful transactions counted.
func (t *AverageTimeTracer) TotalCount() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.count
}

// FailedCount returns the number of failed transactions.
func (t *AverageTimeTracer) FailedCount() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.failed
}

// EndTransaction counts a completed transaction.
func (t *AverageTimeTracer) EndTransaction(_ string, tx *rtl.Transaction) {
	if !t.filter(tx) {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	if tx.Err != nil {
		t.failed++
		return
	}

	t.averageTime = time.Duration(
		(float64(t.averageTime)*float64(t.count) + float64(tx.Latency)) /
			float64(t.count+1))
	t.count++

	if tx.Latency > t.maxTime {
		t.maxTime = tx.Latency
	}
}
