package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the status the harness server reports for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Constructors ---

// AllocationFailure creates an error for a buffer or slot that could not be allocated.
func AllocationFailure(what string, requested, available int) *AppError {
	return &AppError{
		Code:       ErrCodeAllocationFailure,
		Message:    fmt.Sprintf("cannot allocate %d %s (capacity %d)", requested, what, available),
		HTTPStatus: http.StatusInsufficientStorage,
		Details:    map[string]any{"resource": what, "requested": requested, "available": available},
	}
}

// SubmissionRejected creates a retryable error for a full accelerator queue.
func SubmissionRejected(index int) *AppError {
	return &AppError{
		Code:       ErrCodeSubmissionRejected,
		Message:    "accelerator queue is full",
		HTTPStatus: http.StatusServiceUnavailable,
		Retryable:  true,
		Details:    map[string]any{"index": index},
	}
}

// SubmissionExhausted creates the fatal form of SubmissionRejected once the
// retry budget is spent.
func SubmissionExhausted(index, attempts int, cause error) *AppError {
	return &AppError{
		Code:       ErrCodeSubmissionRejected,
		Message:    fmt.Sprintf("accelerator rejected request after %d attempts", attempts),
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]any{"index": index, "attempts": attempts},
		Cause:      cause,
	}
}

// CompletionTimeout creates an error for a completion that never arrived.
func CompletionTimeout(operation string, outstanding int) *AppError {
	return &AppError{
		Code:       ErrCodeCompletionTimeout,
		Message:    fmt.Sprintf("%s timed out with %d requests outstanding", operation, outstanding),
		HTTPStatus: http.StatusGatewayTimeout,
		Details:    map[string]any{"operation": operation, "outstanding": outstanding},
	}
}

// MismatchedCompletion creates an error for a completion that cannot be matched to a request.
func MismatchedCompletion(slot int, reason string) *AppError {
	return &AppError{
		Code:       ErrCodeMismatchedCompletion,
		Message:    fmt.Sprintf("completion for slot %d: %s", slot, reason),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"slot": slot},
	}
}

// StageFailure creates an error for a failed pipeline stage.
func StageFailure(stage string, cause error) *AppError {
	return &AppError{
		Code:       ErrCodeStageFailure,
		Message:    fmt.Sprintf("stage %s failed", stage),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"stage": stage},
		Cause:      cause,
	}
}

// QueueClosed creates an error for a push to a stopped queue.
func QueueClosed() *AppError {
	return &AppError{
		Code:       ErrCodeQueueClosed,
		Message:    "queue is stopped",
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// DuplicateCompletion creates an error for a result index written twice.
func DuplicateCompletion(index int) *AppError {
	return &AppError{
		Code:       ErrCodeDuplicateCompletion,
		Message:    fmt.Sprintf("result %d already written", index),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"index": index},
	}
}

// IncompleteBatch creates an error listing the indices that never received a result.
func IncompleteBatch(size int, missing []int) *AppError {
	shown := missing
	if len(shown) > 16 {
		shown = shown[:16]
	}
	parts := make([]string, len(shown))
	for i, m := range shown {
		parts[i] = fmt.Sprint(m)
	}
	msg := fmt.Sprintf("%d of %d results missing: [%s]", len(missing), size, strings.Join(parts, " "))
	if len(shown) < len(missing) {
		msg = strings.TrimSuffix(msg, "]") + " ...]"
	}
	return &AppError{
		Code:       ErrCodeIncompleteBatch,
		Message:    msg,
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"size": size, "missing": len(missing)},
	}
}

// InvalidInput creates an error for invalid caller input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code:       ErrCodeInvalidInput,
		Message:    fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// Validation creates an error for failed configuration or request validation.
func Validation(message string) *AppError {
	return &AppError{
		Code:       ErrCodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// InvalidState creates an error for an operation attempted in the wrong state.
func InvalidState(reason string) *AppError {
	return &AppError{
		Code:       ErrCodeInvalidState,
		Message:    reason,
		HTTPStatus: http.StatusConflict,
	}
}

// NotInitialized creates an error for use of the harness before Initialize.
func NotInitialized(what string) *AppError {
	return &AppError{
		Code:       ErrCodeNotInitialized,
		Message:    fmt.Sprintf("%s is not initialized", what),
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// Internal creates an error for an unexpected internal failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code:       ErrCodeInternal,
		Message:    "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// --- Inspection ---

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether any AppError in err's tree carries code. It
// follows AppError causes, wrapped errors and joined errors.
func HasCode(err error, code ErrorCode) bool {
	switch e := err.(type) {
	case nil:
		return false
	case *AppError:
		return e.Code == code || HasCode(e.Cause, code)
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if HasCode(inner, code) {
				return true
			}
		}
		return false
	case interface{ Unwrap() error }:
		return HasCode(e.Unwrap(), code)
	default:
		return false
	}
}

// IsRetryable reports whether err is an AppError marked retryable.
func IsRetryable(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Retryable
}
