package queue

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/kbukum/npuflow/errors"
)

// ErrEndOfStream is returned by Pop once the queue is stopped and empty.
// It is normal termination, not a failure.
var ErrEndOfStream = stderrors.New("queue: end of stream")

// ErrQueueClosed is returned by Push on a stopped queue.
var ErrQueueClosed error = errors.QueueClosed()

// Queue is a bounded FIFO safe for any number of producers and consumers.
type Queue[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	items    []T
	head     int
	size     int
	stopped  bool
	capacity int
}

// New creates a queue holding at most capacity items. Capacity must be >= 1.
func New[T any](capacity int) (*Queue[T], error) {
	if capacity < 1 {
		return nil, errors.InvalidInput("capacity", fmt.Sprintf("must be >= 1, got %d", capacity))
	}
	q := &Queue[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q, nil
}

// MustNew is New for capacities known to be valid.
func MustNew[T any](capacity int) *Queue[T] {
	q, err := New[T](capacity)
	if err != nil {
		panic(err)
	}
	return q
}

// Push appends item, blocking while the queue is full. It fails with
// ErrQueueClosed if the queue is or becomes stopped, or with ctx.Err().
func (q *Queue[T]) Push(ctx context.Context, item T) error {
	stop := context.AfterFunc(ctx, q.wakeAll)
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for q.size == q.capacity && !q.stopped {
		if err := ctx.Err(); err != nil {
			return err
		}
		q.notFull.Wait()
	}
	if q.stopped {
		return ErrQueueClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	q.items[(q.head+q.size)%q.capacity] = item
	q.size++
	q.notEmpty.Signal()
	return nil
}

// Pop removes the oldest item, blocking while the queue is empty and open.
// It returns ErrEndOfStream once the queue is stopped and drained.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	var zero T
	stop := context.AfterFunc(ctx, q.wakeAll)
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for q.size == 0 && !q.stopped {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		q.notEmpty.Wait()
	}
	if q.size == 0 {
		return zero, ErrEndOfStream
	}

	item := q.items[q.head]
	q.items[q.head] = zero
	q.head = (q.head + 1) % q.capacity
	q.size--
	q.notFull.Signal()
	return item, nil
}

// Stop puts the queue in drain mode and wakes all waiters. Idempotent.
func (q *Queue[T]) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// Reset reopens the queue. It fails with INVALID_STATE while items are
// buffered; call Drain first to discard them.
func (q *Queue[T]) Reset() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.size != 0 {
		return errors.InvalidState(fmt.Sprintf("queue reset with %d buffered items", q.size))
	}
	q.stopped = false
	q.head = 0
	return nil
}

// Drain removes and returns every buffered item in FIFO order.
func (q *Queue[T]) Drain() []T {
	var zero T
	q.mu.Lock()
	out := make([]T, 0, q.size)
	for q.size > 0 {
		out = append(out, q.items[q.head])
		q.items[q.head] = zero
		q.head = (q.head + 1) % q.capacity
		q.size--
	}
	q.mu.Unlock()
	q.notFull.Broadcast()
	return out
}

// Len returns the number of buffered items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Cap returns the capacity.
func (q *Queue[T]) Cap() int {
	return q.capacity
}

// Stopped reports whether Stop was called since the last Reset.
func (q *Queue[T]) Stopped() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stopped
}

// wakeAll lets waiters re-check their context. The lock orders the
// broadcast after a waiter's ctx check.
func (q *Queue[T]) wakeAll() {
	q.mu.Lock()
	q.mu.Unlock() //nolint:staticcheck // empty critical section orders the broadcast
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}
