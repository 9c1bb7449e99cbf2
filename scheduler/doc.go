// Package scheduler runs batches of inputs through an accelerator and
// returns one decoded result per input, in input order.
//
// Two modes are available:
//
//   - windowed: the batch is cut into windows of Window requests. Each window
//     is submitted in full and the scheduler blocks until every request in
//     it completes, using a correlator.Barrier for callback drivers or a
//     correlator.Waiter for wait drivers. Consecutive windows never overlap.
//     Window 1 gives one-request-at-a-time execution.
//
//   - pipelined: the batch is cut into slices of QueueCapacity requests. Per
//     slice a producer, a submitter and a collector run concurrently,
//     connected by two bounded queues. The submitter holds at most Window
//     requests in flight; completions release the window as they arrive.
//     Requires a callback driver.
//
// Every completion callback carries an engine.Tag whose Epoch names the
// window or slice that issued it. Completions for an epoch that is no
// longer active are dropped and counted as stray.
//
// Any failure aborts the batch after every stage has been joined. No
// partial results are returned.
package scheduler
