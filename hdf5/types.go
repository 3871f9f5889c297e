package hdf5

import (
	"reflect"

	"github.com/robert-malhotra/go-lofar-dal/internal/dtype"
	"github.com/robert-malhotra/go-lofar-dal/internal/message"
)

// ComplexInt16 is a complex sample with 16-bit integer parts.
type ComplexInt16 = dtype.ComplexInt16

// ElementType is a dataset element type the library can create.
type ElementType int

const (
	InvalidType ElementType = iota
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
	Complex64
	Complex128
	ComplexInt16Type
)

var typeNames = [...]string{"invalid", "int8", "int16", "int32", "int64",
	"uint8", "uint16", "uint32", "uint64", "float32", "float64",
	"complex64", "complex128", "complex_int16"}

func (t ElementType) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return typeNames[0]
	}
	return typeNames[t]
}

// NewSlice returns a slice of n elements of t's Go type.
func (t ElementType) NewSlice(n int) any {
	switch t {
	case Int8:
		return make([]int8, n)
	case Int16:
		return make([]int16, n)
	case Int32:
		return make([]int32, n)
	case Int64:
		return make([]int64, n)
	case Uint8:
		return make([]uint8, n)
	case Uint16:
		return make([]uint16, n)
	case Uint32:
		return make([]uint32, n)
	case Uint64:
		return make([]uint64, n)
	case Float32:
		return make([]float32, n)
	case Float64:
		return make([]float64, n)
	case Complex64:
		return make([]complex64, n)
	case Complex128:
		return make([]complex128, n)
	case ComplexInt16Type:
		return make([]ComplexInt16, n)
	}
	return nil
}

// Size returns the stored size of one element in bytes.
func (t ElementType) Size() int {
	dt, err := t.datatype()
	if err != nil {
		return 0
	}
	return int(dt.Size)
}

func (t ElementType) datatype() (*message.Datatype, error) {
	return dtype.For(t.NewSlice(0))
}

// TypeOf returns the element type of slice v, or InvalidType.
func TypeOf(v any) ElementType {
	for t := Int8; t <= ComplexInt16Type; t++ {
		if reflect.TypeOf(t.NewSlice(0)) == reflect.TypeOf(v) {
			return t
		}
	}
	return InvalidType
}

// elementTypeOf classifies a stored datatype.
func elementTypeOf(dt *message.Datatype) ElementType {
	v, err := dtype.NewSlice(dt, 0)
	if err != nil {
		return InvalidType
	}
	t := TypeOf(v)
	if t == InvalidType {
		return t
	}
	// NewSlice widens odd sizes; only exact matches count.
	if want, _ := t.datatype(); want.Size != dt.Size {
		return InvalidType
	}
	return t
}
