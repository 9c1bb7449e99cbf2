// Package errors provides the error taxonomy of the inference scheduler.
//
// Every failure that crosses a package boundary is an *AppError carrying a
// machine-readable code, a retryable flag and the HTTP status the harness
// server reports for it. Backpressure conditions (SUBMISSION_REJECTED) are
// the only retryable codes; everything else aborts the in-flight batch.
package errors
