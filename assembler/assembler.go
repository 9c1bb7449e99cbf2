// Package assembler restores input order for results that arrive in any
// order. Each index in [0, n) is written exactly once.
package assembler

import (
	"fmt"
	"sync"

	"github.com/kbukum/npuflow/correlator"
	"github.com/kbukum/npuflow/errors"
)

// Assembler collects n results by index. It is safe for concurrent use.
type Assembler[R any] struct {
	mu      sync.Mutex
	results []R
	filled  []bool
	count   int
}

// New creates an assembler for n results.
func New[R any](n int) *Assembler[R] {
	if n < 0 {
		n = 0
	}
	return &Assembler[R]{
		results: make([]R, n),
		filled:  make([]bool, n),
	}
}

// Put stores the result for index. A second write to the same index is a
// DUPLICATE_COMPLETION; an index outside [0, n) is a MISMATCHED_COMPLETION.
func (a *Assembler[R]) Put(index int, r R) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if index < 0 || index >= len(a.results) {
		return errors.MismatchedCompletion(index, fmt.Sprintf("result index outside batch of %d", len(a.results)))
	}
	if a.filled[index] {
		return errors.DuplicateCompletion(index)
	}
	a.results[index] = r
	a.filled[index] = true
	a.count++
	return nil
}

// Count returns the number of results stored.
func (a *Assembler[R]) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

// Finalize returns the results in index order, or INCOMPLETE_BATCH naming
// the indices that were never written.
func (a *Assembler[R]) Finalize() ([]R, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.count < len(a.results) {
		missing := make([]int, 0, len(a.results)-a.count)
		for i, ok := range a.filled {
			if !ok {
				missing = append(missing, i)
			}
		}
		return nil, errors.IncompleteBatch(len(a.results), missing)
	}
	out := make([]R, len(a.results))
	copy(out, a.results)
	return out, nil
}

// Assemble puts decoded completion records into a fresh assembler of size n
// and finalizes it. A record carrying a driver error fails the batch.
func Assemble[R any](n int, records []correlator.Completion, decode func(correlator.Completion) (R, error)) ([]R, error) {
	a := New[R](n)
	for _, rec := range records {
		if rec.Err != nil {
			return nil, rec.Err
		}
		r, err := decode(rec)
		if err != nil {
			return nil, err
		}
		if err := a.Put(rec.Index, r); err != nil {
			return nil, err
		}
	}
	return a.Finalize()
}
