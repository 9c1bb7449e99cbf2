// Package preprocess prepares input buffers in the layout an accelerator
// expects.
package preprocess

import (
	"fmt"
	"os"

	"github.com/kbukum/npuflow/errors"
	"github.com/kbukum/npuflow/validation"
)

// Preprocessor turns an input file into a submission payload.
type Preprocessor interface {
	ToBytes(path string) ([]byte, error)
}

// Layout describes an interleaved image buffer whose rows may be padded.
type Layout struct {
	Width    int `yaml:"width" mapstructure:"width" validate:"min=1"`
	Height   int `yaml:"height" mapstructure:"height" validate:"min=1"`
	Channels int `yaml:"channels" mapstructure:"channels" validate:"min=1,max=4"`
	// Align is the row alignment in bytes. 0 or 1 means unpadded.
	Align int `yaml:"align" mapstructure:"align" validate:"min=0"`
}

// ApplyDefaults fills an empty layout with 224x224 RGB.
func (l *Layout) ApplyDefaults() {
	if l.Width == 0 {
		l.Width = 224
	}
	if l.Height == 0 {
		l.Height = 224
	}
	if l.Channels == 0 {
		l.Channels = 3
	}
}

// Validate validates the layout.
func (l *Layout) Validate() error {
	return validation.Validate(l)
}

// RowBytes is the unpadded row length.
func (l Layout) RowBytes() int {
	return l.Width * l.Channels
}

// RowStride is RowBytes rounded up to a multiple of Align.
func (l Layout) RowStride() int {
	row := l.RowBytes()
	if l.Align <= 1 {
		return row
	}
	return (row + l.Align - 1) / l.Align * l.Align
}

// FrameBytes is the unpadded frame size.
func (l Layout) FrameBytes() int {
	return l.RowBytes() * l.Height
}

// PackedBytes is the padded frame size.
func (l Layout) PackedBytes() int {
	return l.RowStride() * l.Height
}

// Pack copies an unpadded frame into a buffer with RowStride rows. Padding
// bytes are zero.
func (l Layout) Pack(frame []byte) ([]byte, error) {
	if len(frame) != l.FrameBytes() {
		return nil, errors.InvalidInput("frame", fmt.Sprintf("got %d bytes, layout needs %d", len(frame), l.FrameBytes()))
	}
	stride, row := l.RowStride(), l.RowBytes()
	if stride == row {
		out := make([]byte, len(frame))
		copy(out, frame)
		return out, nil
	}
	out := make([]byte, l.PackedBytes())
	for y := 0; y < l.Height; y++ {
		copy(out[y*stride:y*stride+row], frame[y*row:(y+1)*row])
	}
	return out, nil
}

// RawFrame reads files holding raw interleaved pixels.
type RawFrame struct {
	Layout Layout
	// SwapRB exchanges the first and third channel of every pixel.
	SwapRB bool
}

// ToBytes implements Preprocessor.
func (r RawFrame) ToBytes(path string) ([]byte, error) {
	frame, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.InvalidInput("path", err.Error()).WithCause(err)
	}
	if r.SwapRB && r.Layout.Channels >= 3 {
		c := r.Layout.Channels
		for i := 0; i+2 < len(frame); i += c {
			frame[i], frame[i+2] = frame[i+2], frame[i]
		}
	}
	return r.Layout.Pack(frame)
}
