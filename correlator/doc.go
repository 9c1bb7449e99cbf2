// Package correlator pairs accelerator submissions with their completions.
//
// A Table holds one slot per request in the current window. The submitter
// binds a slot to a Request before handing the payload to the driver; the
// completion path resolves the slot back to the request index. Every slot
// completes exactly once: a completion for an unbound, out-of-range or
// already completed slot is a MISMATCHED_COMPLETION and fails the window.
//
// Two strategies wait for a window to finish:
//   - Barrier, for callback drivers: completions arrive on driver goroutines
//     and an atomic counter releases Await when the last one lands.
//   - Waiter, for wait drivers: a fixed pool of workers blocks on each
//     handle and completes the matching slot.
package correlator
