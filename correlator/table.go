package correlator

import (
	"fmt"
	"sync"

	"github.com/kbukum/npuflow/engine"
	"github.com/kbukum/npuflow/errors"
)

type entry struct {
	req        *Request
	done       bool
	completion Completion
}

// Table maps window slots to requests. It is safe for concurrent use.
type Table struct {
	mu          sync.Mutex
	entries     []entry
	n           int
	outstanding int
}

// NewTable pre-allocates capacity slots.
func NewTable(capacity int) (*Table, error) {
	if capacity < 1 {
		return nil, errors.InvalidInput("capacity", fmt.Sprintf("must be >= 1, got %d", capacity))
	}
	return &Table{entries: make([]entry, capacity)}, nil
}

// Reset arms the first n slots for a new window and clears the rest.
func (t *Table) Reset(n int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n < 0 || n > len(t.entries) {
		return errors.AllocationFailure("slots", n, len(t.entries))
	}
	clear(t.entries)
	t.n = n
	t.outstanding = 0
	return nil
}

// Bind assigns req to slot and marks it Submitted.
func (t *Table) Bind(slot int, req *Request) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if slot < 0 || slot >= t.n {
		return errors.InvalidInput("slot", fmt.Sprintf("%d outside window of %d", slot, t.n))
	}
	if t.entries[slot].req != nil {
		return errors.InvalidState(fmt.Sprintf("slot %d already bound to request %d", slot, t.entries[slot].req.Index))
	}
	if err := req.advance(Submitted); err != nil {
		return err
	}
	t.entries[slot].req = req
	t.outstanding++
	return nil
}

// Complete records the result for slot. It fails with MISMATCHED_COMPLETION
// when the slot is out of range, unbound or already completed; the first
// completion is never overwritten.
func (t *Table) Complete(slot int, out engine.Output, err error) (Completion, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if slot < 0 || slot >= t.n {
		return Completion{}, errors.MismatchedCompletion(slot, fmt.Sprintf("outside window of %d", t.n))
	}
	e := &t.entries[slot]
	if e.req == nil {
		return Completion{}, errors.MismatchedCompletion(slot, "slot not bound")
	}
	if e.done {
		return Completion{}, errors.MismatchedCompletion(slot, fmt.Sprintf("request %d already completed", e.req.Index))
	}
	if advErr := e.req.advance(Completed); advErr != nil {
		return Completion{}, errors.MismatchedCompletion(slot, advErr.Error())
	}
	e.done = true
	e.completion = Completion{Index: e.req.Index, Output: out, Err: err}
	t.outstanding--
	return e.completion, nil
}

// Request returns the request bound to slot, or nil.
func (t *Table) Request(slot int) *Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	if slot < 0 || slot >= t.n {
		return nil
	}
	return t.entries[slot].req
}

// Records returns the completions in slot order. It fails with
// INCOMPLETE_BATCH naming the request indices (or slots, when unbound)
// that have not completed.
func (t *Table) Records() ([]Completion, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Completion, 0, t.n)
	var missing []int
	for slot := 0; slot < t.n; slot++ {
		e := t.entries[slot]
		switch {
		case e.done:
			out = append(out, e.completion)
		case e.req != nil:
			missing = append(missing, e.req.Index)
		default:
			missing = append(missing, slot)
		}
	}
	if len(missing) > 0 {
		return nil, errors.IncompleteBatch(t.n, missing)
	}
	return out, nil
}

// Outstanding counts slots that are bound but not completed.
func (t *Table) Outstanding() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.outstanding
}

// Len returns the number of armed slots.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.n
}

// Cap returns the number of pre-allocated slots.
func (t *Table) Cap() int {
	return len(t.entries)
}
