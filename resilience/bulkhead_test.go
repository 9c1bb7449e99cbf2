package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestBulkhead_PeakNeverExceedsLimit(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{Name: "window", MaxConcurrent: 3})

	var running, maxRunning atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := b.Execute(context.Background(), func() error {
				n := running.Add(1)
				for {
					m := maxRunning.Load()
					if n <= m || maxRunning.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				running.Add(-1)
				return nil
			})
			if err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		}()
	}
	wg.Wait()

	if maxRunning.Load() > 3 {
		t.Errorf("observed %d concurrent holders", maxRunning.Load())
	}
	if p := b.Peak(); p < 1 || p > 3 {
		t.Errorf("peak out of range: %d", p)
	}
	if b.InUse() != 0 || b.Available() != 3 {
		t.Errorf("expected all slots free, inUse=%d available=%d", b.InUse(), b.Available())
	}
}

func TestBulkhead_TryAcquireWhenFull(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1})
	if err := b.TryAcquire(); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := b.TryAcquire(); !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("expected ErrBulkheadFull, got %v", err)
	}
	b.Release()
}

func TestBulkhead_AcquireWaitsForRelease(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1})
	if err := b.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	acquired := make(chan struct{})
	go func() {
		if err := b.Acquire(context.Background()); err == nil {
			close(acquired)
		}
	}()

	select {
	case <-acquired:
		t.Fatal("acquired while the slot was held")
	case <-time.After(20 * time.Millisecond):
	}

	b.Release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter not admitted after release")
	}
	b.Release()
}

func TestBulkhead_TimesOutWaiting(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: 10 * time.Millisecond})
	_ = b.TryAcquire()
	defer b.Release()

	if err := b.Acquire(context.Background()); !errors.Is(err, ErrBulkheadTimeout) {
		t.Errorf("expected ErrBulkheadTimeout, got %v", err)
	}
}

func TestBulkhead_RespectsContext(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1})
	_ = b.TryAcquire()
	defer b.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := b.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestBulkhead_ReleaseWithoutAcquire(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 2})
	if b.Release() {
		t.Error("release of an unheld slot should report false")
	}
	if b.InUse() != 0 {
		t.Errorf("expected 0 in use, got %d", b.InUse())
	}
}

func TestBulkhead_CallbacksAndResetPeak(t *testing.T) {
	var acquires, releases []int
	b := NewBulkhead(BulkheadConfig{
		Name:          "window",
		MaxConcurrent: 2,
		OnAcquire:     func(_ string, n int) { acquires = append(acquires, n) },
		OnRelease:     func(_ string, n int) { releases = append(releases, n) },
	})

	_ = b.TryAcquire()
	_ = b.TryAcquire()
	b.Release()
	if b.Peak() != 2 {
		t.Errorf("expected peak 2, got %d", b.Peak())
	}
	b.ResetPeak()
	if b.Peak() != 1 {
		t.Errorf("expected peak reset to current usage 1, got %d", b.Peak())
	}
	b.Release()

	if len(acquires) != 2 || acquires[1] != 2 {
		t.Errorf("acquire callbacks = %v", acquires)
	}
	if len(releases) != 2 || releases[1] != 0 {
		t.Errorf("release callbacks = %v", releases)
	}
	if b.Name() != "window" || b.MaxConcurrent() != 2 {
		t.Errorf("unexpected name/limit %q/%d", b.Name(), b.MaxConcurrent())
	}
}
