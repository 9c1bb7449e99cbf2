package correlator

import (
	"fmt"
	"sync/atomic"

	"github.com/kbukum/npuflow/engine"
	"github.com/kbukum/npuflow/errors"
)

// Status is the lifecycle position of a Request.
type Status int32

const (
	Created Status = iota
	Submitted
	Completed
	Consumed
)

func (s Status) String() string {
	switch s {
	case Created:
		return "created"
	case Submitted:
		return "submitted"
	case Completed:
		return "completed"
	case Consumed:
		return "consumed"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

// Request is one input moving through the pipeline. Its status only moves
// forward one step at a time.
type Request struct {
	Index   int
	Payload []byte
	status  atomic.Int32
}

// NewRequest creates a request in the Created state.
func NewRequest(index int, payload []byte) *Request {
	return &Request{Index: index, Payload: payload}
}

// Status returns the current status.
func (r *Request) Status() Status {
	return Status(r.status.Load())
}

func (r *Request) advance(to Status) error {
	from := to - 1
	if !r.status.CompareAndSwap(int32(from), int32(to)) {
		return errors.InvalidState(fmt.Sprintf("request %d: cannot move from %s to %s", r.Index, r.Status(), to))
	}
	return nil
}

// Consume marks a completed request as delivered and releases its payload.
func (r *Request) Consume() error {
	if err := r.advance(Consumed); err != nil {
		return err
	}
	r.Payload = nil
	return nil
}

// Completion is the result of one request.
type Completion struct {
	Index  int
	Output engine.Output
	// Err is set when the driver failed this request.
	Err error
}
