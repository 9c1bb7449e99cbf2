package correlator

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/npuflow/engine"
	"github.com/kbukum/npuflow/errors"
	"github.com/kbukum/npuflow/queue"
)

type ticket struct {
	slot   int
	handle engine.Handle
}

// Waiter completes a window of wait-style submissions with a fixed pool of
// workers, each blocking on one handle at a time.
type Waiter struct {
	eng     engine.WaitEngine
	table   *Table
	tickets *queue.Queue[ticket]
	workers int
	timeout time.Duration
}

// NewWaiter creates a waiter for windows of up to capacity requests served
// by workers goroutines. Each Wait is bounded by timeout when positive; a
// timeout <= 0 waits on the context alone.
func NewWaiter(eng engine.WaitEngine, workers, capacity int, timeout time.Duration) (*Waiter, error) {
	if eng == nil {
		return nil, errors.InvalidInput("engine", "is required")
	}
	if workers < 1 {
		return nil, errors.InvalidInput("workers", fmt.Sprintf("must be >= 1, got %d", workers))
	}
	table, err := NewTable(capacity)
	if err != nil {
		return nil, err
	}
	tickets, err := queue.New[ticket](capacity)
	if err != nil {
		return nil, err
	}
	return &Waiter{eng: eng, table: table, tickets: tickets, workers: workers, timeout: timeout}, nil
}

// Begin arms the waiter for n requests.
func (w *Waiter) Begin(n int) error {
	if err := w.table.Reset(n); err != nil {
		return err
	}
	w.tickets.Stop()
	w.tickets.Drain()
	return w.tickets.Reset()
}

// Track binds req to slot and queues its handle for Await.
func (w *Waiter) Track(ctx context.Context, slot int, req *Request, h engine.Handle) error {
	if err := w.table.Bind(slot, req); err != nil {
		return err
	}
	return w.tickets.Push(ctx, ticket{slot: slot, handle: h})
}

// Await waits on every tracked handle and returns the completions in slot
// order. All workers have exited when it returns. On failure, handles
// left unwaited are released when the engine is a HandleReleaser.
func (w *Waiter) Await(ctx context.Context) ([]Completion, error) {
	w.tickets.Stop()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < w.workers; i++ {
		g.Go(func() error {
			for {
				t, err := w.tickets.Pop(gctx)
				if stderrors.Is(err, queue.ErrEndOfStream) {
					return nil
				}
				if err != nil {
					return err
				}
				if err := w.wait(gctx, t); err != nil {
					return err
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		for _, t := range w.tickets.Drain() {
			w.release(t.handle)
		}
		return nil, err
	}
	return w.table.Records()
}

// release drops a handle that will not be waited on.
func (w *Waiter) release(h engine.Handle) {
	if r, ok := w.eng.(engine.HandleReleaser); ok {
		r.Release(h)
	}
}

func (w *Waiter) wait(ctx context.Context, t ticket) error {
	wctx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	out, err := w.eng.Wait(wctx, t.handle)
	if err != nil && wctx.Err() != nil {
		w.release(t.handle)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.CompletionTimeout("wait", w.table.Outstanding()).
			WithDetail("slot", t.slot)
	}
	_, cerr := w.table.Complete(t.slot, out, err)
	return cerr
}

// Outstanding counts tracked requests that have not completed.
func (w *Waiter) Outstanding() int {
	return w.table.Outstanding()
}

// Request returns the request bound to slot, or nil.
func (w *Waiter) Request(slot int) *Request {
	return w.table.Request(slot)
}
