// Package sim is an in-process accelerator that implements both driver
// styles of package engine. It holds a bounded number of requests in flight,
// rejects further submissions with engine.ErrBusy, completes each request
// after a random latency and records the peak in-flight count.
//
// The CLI falls back to it when no hardware driver is linked; tests use it
// to check window bounds and out-of-order completion handling.
package sim
