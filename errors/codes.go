package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Scheduling errors
const (
	// ErrCodeAllocationFailure indicates a buffer or slot could not be allocated.
	ErrCodeAllocationFailure ErrorCode = "ALLOCATION_FAILURE"
	// ErrCodeSubmissionRejected indicates the accelerator queue was momentarily full.
	ErrCodeSubmissionRejected ErrorCode = "SUBMISSION_REJECTED"
	// ErrCodeCompletionTimeout indicates a completion did not arrive in time.
	ErrCodeCompletionTimeout ErrorCode = "COMPLETION_TIMEOUT"
	// ErrCodeMismatchedCompletion indicates a completion for an unknown or already filled slot.
	ErrCodeMismatchedCompletion ErrorCode = "MISMATCHED_COMPLETION"
	// ErrCodeStageFailure indicates a pipeline stage failed.
	ErrCodeStageFailure ErrorCode = "STAGE_FAILURE"
)

// Assembly and queue errors
const (
	// ErrCodeQueueClosed indicates a push to a stopped queue.
	ErrCodeQueueClosed ErrorCode = "QUEUE_CLOSED"
	// ErrCodeDuplicateCompletion indicates a result index was written twice.
	ErrCodeDuplicateCompletion ErrorCode = "DUPLICATE_COMPLETION"
	// ErrCodeIncompleteBatch indicates some indices never received a result.
	ErrCodeIncompleteBatch ErrorCode = "INCOMPLETE_BATCH"
)

// Caller errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeInvalidState indicates an operation is not valid in the current state.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"
	// ErrCodeNotInitialized indicates the harness has no loaded engine.
	ErrCodeNotInitialized ErrorCode = "NOT_INITIALIZED"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeSubmissionRejected:   true,
	ErrCodeAllocationFailure:    false,
	ErrCodeCompletionTimeout:    false,
	ErrCodeMismatchedCompletion: false,
	ErrCodeStageFailure:         false,
	ErrCodeInternal:             false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
