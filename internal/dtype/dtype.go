package dtype

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-lofar-dal/internal/heap"
	"github.com/robert-malhotra/go-lofar-dal/internal/message"
)

// ErrUnsupported is returned for element types or conversions the package
// does not handle.
var ErrUnsupported = errors.New("unsupported datatype conversion")

// ComplexInt16 is a complex number with 16-bit integer parts, the raw
// sample type of LOFAR transient buffer boards.
type ComplexInt16 struct {
	Re, Im int16
}

// HeapReader resolves variable-length elements.
type HeapReader interface {
	Get(id heap.ID, n uint32) ([]byte, error)
}

// HeapWriter stores variable-length elements.
type HeapWriter interface {
	Put(p []byte) (heap.ID, error)
}

// number is the set of plain numeric element types.
type number interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

// For returns the datatype the library writes for elements of slice v.
func For(v any) (*message.Datatype, error) {
	switch v.(type) {
	case []int8:
		return message.NewFixed(1, true), nil
	case []int16:
		return message.NewFixed(2, true), nil
	case []int32:
		return message.NewFixed(4, true), nil
	case []int64:
		return message.NewFixed(8, true), nil
	case []uint8:
		return message.NewFixed(1, false), nil
	case []uint16:
		return message.NewFixed(2, false), nil
	case []uint32:
		return message.NewFixed(4, false), nil
	case []uint64:
		return message.NewFixed(8, false), nil
	case []float32:
		return message.NewFloat(4), nil
	case []float64:
		return message.NewFloat(8), nil
	case []bool:
		return message.NewFixed(4, true), nil
	case []string:
		return message.NewVarLenString(message.ASCII), nil
	case []complex64:
		return complexType(message.NewFloat(4)), nil
	case []complex128:
		return complexType(message.NewFloat(8)), nil
	case []ComplexInt16:
		return complexType(message.NewFixed(2, true)), nil
	}
	return nil, fmt.Errorf("%w: element type of %T", ErrUnsupported, v)
}

func complexType(part *message.Datatype) *message.Datatype {
	n := part.Size
	return message.NewCompound(int(2*n),
		message.Member{Name: "real", Offset: 0, Type: part},
		message.Member{Name: "imag", Offset: n, Type: part},
	)
}

// Len returns the length of a supported slice.
func Len(v any) (int, error) {
	switch s := v.(type) {
	case []int8:
		return len(s), nil
	case []int16:
		return len(s), nil
	case []int32:
		return len(s), nil
	case []int64:
		return len(s), nil
	case []uint8:
		return len(s), nil
	case []uint16:
		return len(s), nil
	case []uint32:
		return len(s), nil
	case []uint64:
		return len(s), nil
	case []float32:
		return len(s), nil
	case []float64:
		return len(s), nil
	case []bool:
		return len(s), nil
	case []string:
		return len(s), nil
	case []complex64:
		return len(s), nil
	case []complex128:
		return len(s), nil
	case []ComplexInt16:
		return len(s), nil
	}
	return 0, fmt.Errorf("%w: %T", ErrUnsupported, v)
}

// NewSlice returns a slice of n elements of the Go type that holds dt
// without loss.
func NewSlice(dt *message.Datatype, n int) (any, error) {
	switch dt.Class {
	case message.ClassString:
		return make([]string, n), nil
	case message.ClassVarLen:
		if dt.VarLenString {
			return make([]string, n), nil
		}
	case message.ClassFixed:
		return newInt(dt, n), nil
	case message.ClassEnum:
		if dt.Base != nil && dt.Base.Class == message.ClassFixed {
			return newInt(dt.Base, n), nil
		}
	case message.ClassFloat:
		if dt.Size == 4 {
			return make([]float32, n), nil
		}
		return make([]float64, n), nil
	case message.ClassCompound:
		re, _, err := complexParts(dt)
		if err != nil {
			return nil, err
		}
		switch {
		case re.Type.Class == message.ClassFloat && re.Type.Size == 4:
			return make([]complex64, n), nil
		case re.Type.Class == message.ClassFixed && re.Type.Size <= 2 && re.Type.Signed:
			return make([]ComplexInt16, n), nil
		}
		return make([]complex128, n), nil
	}
	return nil, fmt.Errorf("%w: no Go type for %s", ErrUnsupported, dt)
}

func newInt(dt *message.Datatype, n int) any {
	switch {
	case dt.Size == 1 && dt.Signed:
		return make([]int8, n)
	case dt.Size == 1:
		return make([]uint8, n)
	case dt.Size == 2 && dt.Signed:
		return make([]int16, n)
	case dt.Size == 2:
		return make([]uint16, n)
	case dt.Size <= 4 && dt.Signed:
		return make([]int32, n)
	case dt.Size <= 4:
		return make([]uint32, n)
	case dt.Signed:
		return make([]int64, n)
	}
	return make([]uint64, n)
}

// IsComplex reports whether dt is a two-member compound of numeric parts.
func IsComplex(dt *message.Datatype) bool {
	_, _, err := complexParts(dt)
	return err == nil
}

// complexParts locates the real and imaginary members of dt.
func complexParts(dt *message.Datatype) (re, im message.Member, err error) {
	if dt.Class != message.ClassCompound || len(dt.Members) != 2 {
		return re, im, fmt.Errorf("%w: %s is not a complex type", ErrUnsupported, dt)
	}
	var okRe, okIm bool
	for _, name := range []string{"real", "r", "re"} {
		if re, okRe = dt.Member(name); okRe {
			break
		}
	}
	for _, name := range []string{"imag", "imaginary", "i", "im"} {
		if im, okIm = dt.Member(name); okIm {
			break
		}
	}
	if !okRe || !okIm {
		re, im = dt.Members[0], dt.Members[1]
	}
	if !re.Type.IsNumeric() || !im.Type.IsNumeric() {
		return re, im, fmt.Errorf("%w: %s has non-numeric parts", ErrUnsupported, dt)
	}
	return re, im, nil
}

func byteOrder(dt *message.Datatype) binary.ByteOrder {
	if dt.Order == message.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}
