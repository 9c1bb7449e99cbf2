// Package resilience provides the two flow-control primitives the scheduler
// builds on:
//   - Retry: re-runs an operation with exponential backoff while its error is
//     retryable (a full accelerator queue is the common case)
//   - Bulkhead: a counting admission window with a high-water mark
//
//	window := resilience.NewBulkhead(resilience.BulkheadConfig{Name: "window", MaxConcurrent: 3})
//	if err := window.Acquire(ctx); err != nil {
//	    return err
//	}
//	err := resilience.RetryFunc(ctx, cfg, func() error {
//	    return eng.SubmitAsync(ctx, payload, tag)
//	})
package resilience
