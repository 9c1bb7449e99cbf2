package correlator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/npuflow/engine"
	"github.com/kbukum/npuflow/errors"
)

// Barrier waits for a window of callback completions. Complete is called
// from driver goroutines; Begin and Await from the submitting goroutine.
type Barrier struct {
	table     *Table
	target    atomic.Int64
	completed atomic.Int64
	done      chan struct{}

	mu    sync.Mutex
	fatal error
}

// NewBarrier creates a barrier for windows of up to capacity requests.
func NewBarrier(capacity int) (*Barrier, error) {
	table, err := NewTable(capacity)
	if err != nil {
		return nil, err
	}
	return &Barrier{table: table, done: make(chan struct{}, 1)}, nil
}

// Begin arms the barrier for n requests and clears the previous window.
func (b *Barrier) Begin(n int) error {
	if err := b.table.Reset(n); err != nil {
		return err
	}
	select {
	case <-b.done:
	default:
	}
	b.mu.Lock()
	b.fatal = nil
	b.mu.Unlock()
	b.completed.Store(0)
	b.target.Store(int64(n))
	if n == 0 {
		b.signal()
	}
	return nil
}

// Bind assigns req to slot. Call it before handing the request to the driver.
func (b *Barrier) Bind(slot int, req *Request) error {
	return b.table.Bind(slot, req)
}

// Complete records a driver completion. A mismatched completion is fatal for
// the window and releases Await immediately.
func (b *Barrier) Complete(slot int, out engine.Output, err error) error {
	if _, cerr := b.table.Complete(slot, out, err); cerr != nil {
		b.Fail(cerr)
		return cerr
	}
	if b.completed.Add(1) == b.target.Load() {
		b.signal()
	}
	return nil
}

// Fail marks the window failed and releases Await. The first error wins.
func (b *Barrier) Fail(err error) {
	b.mu.Lock()
	if b.fatal == nil {
		b.fatal = err
	}
	b.mu.Unlock()
	b.signal()
}

// Await blocks until every slot completed, the window failed, timeout
// elapsed (COMPLETION_TIMEOUT) or ctx is done. A timeout <= 0 waits on ctx
// alone.
func (b *Barrier) Await(ctx context.Context, timeout time.Duration) ([]Completion, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-b.done:
	case <-expired:
		return nil, errors.CompletionTimeout("barrier", b.table.Outstanding())
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	b.mu.Lock()
	fatal := b.fatal
	b.mu.Unlock()
	if fatal != nil {
		return nil, fatal
	}
	return b.table.Records()
}

// Outstanding counts bound requests that have not completed.
func (b *Barrier) Outstanding() int {
	return b.table.Outstanding()
}

// Request returns the request bound to slot, or nil.
func (b *Barrier) Request(slot int) *Request {
	return b.table.Request(slot)
}

func (b *Barrier) signal() {
	select {
	case b.done <- struct{}{}:
	default:
	}
}
