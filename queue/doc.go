// Package queue provides a bounded, blocking FIFO used to pass requests and
// completions between pipeline stages.
//
// A Queue has three observable states: open, stopped with items still
// buffered (drain mode) and stopped and empty (end of stream). Producers
// block while the queue is full; consumers block while it is empty. Stop
// wakes everyone: pending pushes fail with QUEUE_CLOSED, pops keep returning
// buffered items and then ErrEndOfStream. Reset reopens an empty queue for
// the next slice.
package queue
