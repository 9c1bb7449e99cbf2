// Package harness is the host-facing submitter: it loads a model into an
// accelerator engine, preprocesses input files and runs batches through
// the scheduler. A Submitter is also a component.Component, so the CLI and
// the HTTP server manage it through the bootstrap lifecycle.
package harness
