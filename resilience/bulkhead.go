package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Common bulkhead errors.
var (
	ErrBulkheadFull    = errors.New("bulkhead is full")
	ErrBulkheadTimeout = errors.New("bulkhead wait timeout")
)

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	// Name identifies this bulkhead in logs.
	Name string
	// MaxConcurrent is the number of slots.
	MaxConcurrent int
	// MaxWait bounds Acquire. 0 waits until the context is done.
	MaxWait time.Duration
	// OnAcquire is called after a slot is taken, with the new in-use count.
	OnAcquire func(name string, inUse int)
	// OnRelease is called after a slot is returned, with the new in-use count.
	OnRelease func(name string, inUse int)
}

// Bulkhead is a counting semaphore that also records the highest number of
// slots ever held at once.
type Bulkhead struct {
	config BulkheadConfig
	sem    chan struct{}

	mu    sync.Mutex
	inUse int
	peak  int
}

// NewBulkhead creates a new bulkhead. MaxConcurrent below 1 is raised to 1.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 1
	}
	return &Bulkhead{
		config: config,
		sem:    make(chan struct{}, config.MaxConcurrent),
	}
}

// Acquire blocks until a slot is free, MaxWait elapses (ErrBulkheadTimeout)
// or ctx is done.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		b.acquired()
		return nil
	default:
	}

	var timeout <-chan time.Time
	if b.config.MaxWait > 0 {
		timer := time.NewTimer(b.config.MaxWait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case b.sem <- struct{}{}:
		b.acquired()
		return nil
	case <-timeout:
		return ErrBulkheadTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes a slot without blocking.
func (b *Bulkhead) TryAcquire() error {
	select {
	case b.sem <- struct{}{}:
		b.acquired()
		return nil
	default:
		return ErrBulkheadFull
	}
}

// Release returns a slot. It reports false when no slot was held.
// The receive and the decrement happen under mu so a waiter admitted by
// this release cannot count itself before the count drops.
func (b *Bulkhead) Release() bool {
	b.mu.Lock()
	select {
	case <-b.sem:
	default:
		b.mu.Unlock()
		return false
	}
	b.inUse--
	n := b.inUse
	b.mu.Unlock()

	if b.config.OnRelease != nil {
		b.config.OnRelease(b.config.Name, n)
	}
	return true
}

func (b *Bulkhead) acquired() {
	b.mu.Lock()
	b.inUse++
	n := b.inUse
	if n > b.peak {
		b.peak = n
	}
	b.mu.Unlock()

	if b.config.OnAcquire != nil {
		b.config.OnAcquire(b.config.Name, n)
	}
}

// Execute runs fn while holding a slot.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	if err := b.Acquire(ctx); err != nil {
		return err
	}
	defer b.Release()
	return fn()
}

// Available returns the number of free slots.
func (b *Bulkhead) Available() int {
	return b.config.MaxConcurrent - len(b.sem)
}

// InUse returns the number of slots currently held.
func (b *Bulkhead) InUse() int {
	return len(b.sem)
}

// Peak returns the highest InUse value observed since creation or ResetPeak.
func (b *Bulkhead) Peak() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.peak
}

// ResetPeak sets the high-water mark to the current usage.
func (b *Bulkhead) ResetPeak() {
	b.mu.Lock()
	b.peak = b.inUse
	b.mu.Unlock()
}

// MaxConcurrent returns the number of slots.
func (b *Bulkhead) MaxConcurrent() int {
	return b.config.MaxConcurrent
}

// Name returns the configured name.
func (b *Bulkhead) Name() string {
	return b.config.Name
}
