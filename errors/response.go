package errors

// ErrorResponse is the error envelope of the HTTP API.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the code a client branches on plus the cause chain
// flattened to text, e.g. which stage aborted a batch.
type ErrorBody struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Cause     string         `json:"cause,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// ToResponse renders e for a client. Internal errors keep their cause out
// of the body.
func (e *AppError) ToResponse() ErrorResponse {
	body := ErrorBody{
		Code:      e.Code,
		Message:   e.Message,
		Retryable: e.Retryable,
		Details:   e.Details,
	}
	if e.Cause != nil && e.Code != ErrCodeInternal {
		body.Cause = e.Cause.Error()
	}
	return ErrorResponse{Error: body}
}
