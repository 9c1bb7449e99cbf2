package engine

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DataType is the element type of a tensor.
type DataType int

const (
	Float32 DataType = iota
	UInt8
	UInt16
	Int8
)

// Size returns the element width in bytes.
func (d DataType) Size() int {
	switch d {
	case Float32:
		return 4
	case UInt16:
		return 2
	default:
		return 1
	}
}

func (d DataType) String() string {
	switch d {
	case Float32:
		return "float32"
	case UInt8:
		return "uint8"
	case UInt16:
		return "uint16"
	case Int8:
		return "int8"
	default:
		return fmt.Sprintf("datatype(%d)", int(d))
	}
}

// ParseDataType is the inverse of DataType.String.
func ParseDataType(s string) (DataType, error) {
	for _, d := range []DataType{Float32, UInt8, UInt16, Int8} {
		if d.String() == s {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown data type %q", s)
}

// TensorInfo describes a model input or output.
type TensorInfo struct {
	Name  string
	Type  DataType
	Shape []int
}

// Elements returns the product of Shape.
func (t TensorInfo) Elements() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// ByteSize returns Elements times the element width.
func (t TensorInfo) ByteSize() int {
	return t.Elements() * t.Type.Size()
}

// Tensor is one output buffer. Data is little-endian.
type Tensor struct {
	Info TensorInfo
	Data []byte
}

// Output is the full set of output tensors for one request.
type Output []Tensor

// Float32s decodes a Float32 tensor.
func (t Tensor) Float32s() ([]float32, error) {
	if t.Info.Type != Float32 {
		return nil, fmt.Errorf("tensor %q is %s, not float32", t.Info.Name, t.Info.Type)
	}
	if len(t.Data)%4 != 0 {
		return nil, fmt.Errorf("tensor %q has %d bytes, not a multiple of 4", t.Info.Name, len(t.Data))
	}
	out := make([]float32, len(t.Data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(t.Data[i*4:]))
	}
	return out, nil
}

// Uint16s decodes a UInt16 tensor.
func (t Tensor) Uint16s() ([]uint16, error) {
	if t.Info.Type != UInt16 {
		return nil, fmt.Errorf("tensor %q is %s, not uint16", t.Info.Name, t.Info.Type)
	}
	if len(t.Data)%2 != 0 {
		return nil, fmt.Errorf("tensor %q has %d bytes, not a multiple of 2", t.Info.Name, len(t.Data))
	}
	out := make([]uint16, len(t.Data)/2)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(t.Data[i*2:])
	}
	return out, nil
}

// Float32Tensor encodes values as a Float32 tensor.
func Float32Tensor(name string, values []float32) Tensor {
	data := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	return Tensor{
		Info: TensorInfo{Name: name, Type: Float32, Shape: []int{len(values)}},
		Data: data,
	}
}

// Uint16Tensor encodes values as a UInt16 tensor.
func Uint16Tensor(name string, values []uint16) Tensor {
	data := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(data[i*2:], v)
	}
	return Tensor{
		Info: TensorInfo{Name: name, Type: UInt16, Shape: []int{len(values)}},
		Data: data,
	}
}
