// Package engine defines the accelerator driver contract the scheduler
// consumes, and the tensor model shared by drivers and decoders.
//
// Drivers come in two styles. A WaitEngine returns a Handle from Submit and
// blocks in Wait until that request finishes. A CallbackEngine accepts a Tag
// with each SubmitAsync and later invokes the registered CallbackFunc with
// the same Tag from a driver-owned goroutine.
package engine
