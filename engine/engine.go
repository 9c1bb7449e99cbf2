package engine

import (
	"context"
	stderrors "errors"
)

// ErrBusy is returned by Submit or SubmitAsync when the driver's internal
// queue is full. The request was not accepted and may be resubmitted.
var ErrBusy = stderrors.New("engine: accelerator queue full")

// Handle identifies a request submitted to a WaitEngine.
type Handle uint64

// Tag is the callback context carried with each asynchronous submission.
// Epoch names the submission window that issued it; Slot is the request's
// position in that window.
type Tag struct {
	Epoch uint64
	Slot  int
}

// CallbackFunc receives one completion. err is non-nil when the driver
// failed the request; out is then undefined.
type CallbackFunc func(out Output, tag Tag, err error)

// Info describes a loaded model.
type Info struct {
	Name    string
	Model   string
	Input   TensorInfo
	Outputs []TensorInfo
}

// Engine is a loaded model on an accelerator.
type Engine interface {
	Info() Info
	Close() error
}

// WaitEngine is a driver with explicit per-request waits.
type WaitEngine interface {
	Engine
	Submit(ctx context.Context, input []byte) (Handle, error)
	Wait(ctx context.Context, h Handle) (Output, error)
}

// HandleReleaser is implemented by wait drivers that can forget a handle
// nobody will wait on. Release of an unknown handle is a no-op.
type HandleReleaser interface {
	Release(h Handle)
}

// CallbackEngine is a driver that reports completions through a callback.
// RegisterCallback must be called before the first SubmitAsync.
type CallbackEngine interface {
	Engine
	RegisterCallback(fn CallbackFunc)
	SubmitAsync(ctx context.Context, input []byte, tag Tag) error
}

// Opener loads a model file and returns a ready engine.
type Opener func(modelPath string) (Engine, error)
