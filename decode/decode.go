// Package decode turns raw accelerator output tensors into typed results.
package decode

import (
	"fmt"

	"github.com/kbukum/npuflow/engine"
	"github.com/kbukum/npuflow/errors"
)

// Decoder converts one request's output into a result. It is called once
// per completion, possibly from several goroutines.
type Decoder[R any] interface {
	Decode(out engine.Output, info []engine.TensorInfo) (R, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc[R any] func(out engine.Output, info []engine.TensorInfo) (R, error)

// Decode implements Decoder.
func (f DecoderFunc[R]) Decode(out engine.Output, info []engine.TensorInfo) (R, error) {
	return f(out, info)
}

// Result is the record the harness reports per input.
type Result struct {
	// ClassIndex is the predicted class, or -1 for detection outputs.
	ClassIndex int `json:"class_index"`
	// Probabilities holds the score vector when it was requested.
	Probabilities []float32 `json:"probabilities,omitempty"`
	// Detections holds flattened detection head values.
	Detections []float32 `json:"detections,omitempty"`
}

// Classification decodes a single classification head. A float32 tensor is
// reduced with argmax; a uint16 tensor already carries the class index.
type Classification struct {
	// Classes, when positive, bounds valid class indices.
	Classes int
	// KeepProbabilities copies the float32 score vector into the result.
	KeepProbabilities bool
}

// Decode implements Decoder.
func (c Classification) Decode(out engine.Output, _ []engine.TensorInfo) (Result, error) {
	if len(out) == 0 {
		return Result{}, errors.InvalidInput("output", "no tensors")
	}
	t := out[0]

	var res Result
	switch t.Info.Type {
	case engine.Float32:
		scores, err := t.Float32s()
		if err != nil {
			return Result{}, errors.InvalidInput("output", err.Error())
		}
		if len(scores) == 0 {
			return Result{}, errors.InvalidInput("output", "empty score vector")
		}
		res.ClassIndex = Argmax(scores)
		if c.KeepProbabilities {
			res.Probabilities = scores
		}
	case engine.UInt16:
		idx, err := t.Uint16s()
		if err != nil {
			return Result{}, errors.InvalidInput("output", err.Error())
		}
		if len(idx) == 0 {
			return Result{}, errors.InvalidInput("output", "empty index tensor")
		}
		res.ClassIndex = int(idx[0])
	default:
		return Result{}, errors.InvalidInput("output", fmt.Sprintf("unsupported classification type %s", t.Info.Type))
	}

	if c.Classes > 0 && res.ClassIndex >= c.Classes {
		return Result{}, errors.InvalidInput("output", fmt.Sprintf("class %d outside %d classes", res.ClassIndex, c.Classes))
	}
	return res, nil
}

// Argmax returns the index of the largest value; ties keep the first.
func Argmax(values []float32) int {
	best := 0
	for i, v := range values[1:] {
		if v > values[best] {
			best = i + 1
		}
	}
	return best
}

// Passthrough flattens every float32 output tensor into Detections for
// decoding outside the scheduler.
type Passthrough struct{}

// Decode implements Decoder.
func (Passthrough) Decode(out engine.Output, _ []engine.TensorInfo) (Result, error) {
	res := Result{ClassIndex: -1}
	for _, t := range out {
		values, err := t.Float32s()
		if err != nil {
			return Result{}, errors.InvalidInput("output", err.Error())
		}
		res.Detections = append(res.Detections, values...)
	}
	return res, nil
}

// For returns the decoder registered under name: "classification",
// "classification+probabilities" or "passthrough".
func For(name string, classes int) (Decoder[Result], error) {
	switch name {
	case "", "classification":
		return Classification{Classes: classes}, nil
	case "classification+probabilities":
		return Classification{Classes: classes, KeepProbabilities: true}, nil
	case "passthrough":
		return Passthrough{}, nil
	default:
		return nil, errors.InvalidInput("decoder", fmt.Sprintf("unknown decoder %q", name))
	}
}
