package dtype

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	bin "github.com/robert-malhotra/go-lofar-dal/internal/binary"
	"github.com/robert-malhotra/go-lofar-dal/internal/heap"
	"github.com/robert-malhotra/go-lofar-dal/internal/message"
)

type kind uint8

const (
	kindInt kind = iota
	kindUint
	kindFloat
)

// scalar holds one numeric element without losing integer precision.
type scalar struct {
	k kind
	i int64
	u uint64
	f float64
}

func (s scalar) float() float64 {
	switch s.k {
	case kindInt:
		return float64(s.i)
	case kindUint:
		return float64(s.u)
	}
	return s.f
}

func readScalar(dt *message.Datatype, p []byte) (scalar, error) {
	switch dt.Class {
	case message.ClassEnum:
		return readScalar(dt.Base, p)
	case message.ClassFixed:
		if dt.Size == 0 || dt.Size > 8 {
			break
		}
		v := bin.DecodeUint(p[:dt.Size], byteOrder(dt))
		if dt.Signed {
			shift := 64 - 8*dt.Size
			return scalar{k: kindInt, i: int64(v<<shift) >> shift}, nil
		}
		return scalar{k: kindUint, u: v}, nil
	case message.ClassFloat:
		switch dt.Size {
		case 4:
			return scalar{k: kindFloat, f: float64(math.Float32frombits(byteOrder(dt).Uint32(p)))}, nil
		case 8:
			return scalar{k: kindFloat, f: math.Float64frombits(byteOrder(dt).Uint64(p))}, nil
		}
	}
	return scalar{}, fmt.Errorf("%w: cannot read %s as a number", ErrUnsupported, dt)
}

func writeScalar(dt *message.Datatype, p []byte, s scalar) error {
	switch dt.Class {
	case message.ClassEnum:
		return writeScalar(dt.Base, p, s)
	case message.ClassFixed:
		if dt.Size == 0 || dt.Size > 8 {
			break
		}
		var v uint64
		if dt.Signed {
			v = uint64(clampInt(s, int(dt.Size)))
		} else {
			v = clampUint(s, int(dt.Size))
		}
		putUint(p[:dt.Size], v, byteOrder(dt))
		return nil
	case message.ClassFloat:
		switch dt.Size {
		case 4:
			byteOrder(dt).PutUint32(p, math.Float32bits(float32(s.float())))
			return nil
		case 8:
			byteOrder(dt).PutUint64(p, math.Float64bits(s.float()))
			return nil
		}
	}
	return fmt.Errorf("%w: cannot write a number as %s", ErrUnsupported, dt)
}

func clampInt(s scalar, size int) int64 {
	hi := int64(1)<<(8*size-1) - 1
	lo := -hi - 1
	switch s.k {
	case kindInt:
		return min(max(s.i, lo), hi)
	case kindUint:
		if s.u > uint64(hi) {
			return hi
		}
		return int64(s.u)
	}
	switch {
	case math.IsNaN(s.f):
		return 0
	case s.f <= float64(lo):
		return lo
	case s.f >= float64(hi):
		return hi
	}
	return int64(s.f)
}

func clampUint(s scalar, size int) uint64 {
	hi := uint64(math.MaxUint64)
	if size < 8 {
		hi = uint64(1)<<(8*size) - 1
	}
	switch s.k {
	case kindInt:
		if s.i < 0 {
			return 0
		}
		return min(uint64(s.i), hi)
	case kindUint:
		return min(s.u, hi)
	}
	switch {
	case math.IsNaN(s.f) || s.f <= 0:
		return 0
	case s.f >= float64(hi):
		return hi
	}
	return uint64(s.f)
}

func putUint(p []byte, v uint64, o binary.ByteOrder) {
	n := len(p)
	for i := 0; i < n; i++ {
		b := byte(v >> (8 * i))
		if o == binary.BigEndian {
			p[n-1-i] = b
		} else {
			p[i] = b
		}
	}
}

func limits[T number]() (lo, hi T, isInt bool) {
	var z T
	switch any(z).(type) {
	case int8:
		return any(int8(math.MinInt8)).(T), any(int8(math.MaxInt8)).(T), true
	case int16:
		return any(int16(math.MinInt16)).(T), any(int16(math.MaxInt16)).(T), true
	case int32:
		return any(int32(math.MinInt32)).(T), any(int32(math.MaxInt32)).(T), true
	case int64:
		return any(int64(math.MinInt64)).(T), any(int64(math.MaxInt64)).(T), true
	case uint8:
		return 0, any(uint8(math.MaxUint8)).(T), true
	case uint16:
		return 0, any(uint16(math.MaxUint16)).(T), true
	case uint32:
		return 0, any(uint32(math.MaxUint32)).(T), true
	case uint64:
		return 0, any(uint64(math.MaxUint64)).(T), true
	}
	return 0, 0, false
}

// converter returns a function turning scalars into T, clamping to T's
// range when T is an integer type.
func converter[T number]() func(scalar) T {
	lo, hi, isInt := limits[T]()
	flo, fhi := float64(lo), float64(hi)
	return func(s scalar) T {
		if !isInt {
			return T(s.float())
		}
		switch s.k {
		case kindInt:
			if float64(s.i) >= flo && float64(s.i) <= fhi {
				return T(s.i)
			}
		case kindUint:
			if float64(s.u) <= fhi {
				return T(s.u)
			}
		}
		f := s.float()
		switch {
		case math.IsNaN(f):
			return 0
		case f <= flo:
			return lo
		case f >= fhi:
			return hi
		}
		return T(f)
	}
}

func scalarOf(v any) scalar {
	switch x := v.(type) {
	case int8:
		return scalar{k: kindInt, i: int64(x)}
	case int16:
		return scalar{k: kindInt, i: int64(x)}
	case int32:
		return scalar{k: kindInt, i: int64(x)}
	case int64:
		return scalar{k: kindInt, i: x}
	case uint8:
		return scalar{k: kindUint, u: uint64(x)}
	case uint16:
		return scalar{k: kindUint, u: uint64(x)}
	case uint32:
		return scalar{k: kindUint, u: uint64(x)}
	case uint64:
		return scalar{k: kindUint, u: x}
	case float32:
		return scalar{k: kindFloat, f: float64(x)}
	case float64:
		return scalar{k: kindFloat, f: x}
	case bool:
		if x {
			return scalar{k: kindInt, i: 1}
		}
		return scalar{k: kindInt}
	}
	return scalar{k: kindFloat, f: math.NaN()}
}

// Decode converts len(dst) elements of type dt from data into dst, a slice
// of a supported element type. hr resolves variable-length strings and may
// be nil for other types.
func Decode(dt *message.Datatype, data []byte, dst any, hr HeapReader, cfg bin.Config) error {
	n, err := Len(dst)
	if err != nil {
		return err
	}
	if need := n * int(dt.Size); len(data) < need {
		return fmt.Errorf("decoding %d elements of %s: have %d bytes, need %d", n, dt, len(data), need)
	}
	switch d := dst.(type) {
	case []int8:
		return decodeNumbers(dt, data, d)
	case []int16:
		return decodeNumbers(dt, data, d)
	case []int32:
		return decodeNumbers(dt, data, d)
	case []int64:
		return decodeNumbers(dt, data, d)
	case []uint8:
		return decodeNumbers(dt, data, d)
	case []uint16:
		return decodeNumbers(dt, data, d)
	case []uint32:
		return decodeNumbers(dt, data, d)
	case []uint64:
		return decodeNumbers(dt, data, d)
	case []float32:
		return decodeNumbers(dt, data, d)
	case []float64:
		return decodeNumbers(dt, data, d)
	case []bool:
		for i := range d {
			s, err := readScalar(dt, data[i*int(dt.Size):])
			if err != nil {
				return err
			}
			d[i] = s.float() != 0
		}
		return nil
	case []string:
		return decodeStrings(dt, data, d, hr, cfg)
	case []complex64:
		return decodeComplex(dt, data, d, func(re, im scalar) complex64 {
			return complex(float32(re.float()), float32(im.float()))
		})
	case []complex128:
		return decodeComplex(dt, data, d, func(re, im scalar) complex128 {
			return complex(re.float(), im.float())
		})
	case []ComplexInt16:
		conv := converter[int16]()
		return decodeComplex(dt, data, d, func(re, im scalar) ComplexInt16 {
			return ComplexInt16{Re: conv(re), Im: conv(im)}
		})
	}
	return fmt.Errorf("%w: %T", ErrUnsupported, dst)
}

func decodeNumbers[T number](dt *message.Datatype, data []byte, dst []T) error {
	if !dt.IsNumeric() {
		return fmt.Errorf("%w: %s into %T", ErrUnsupported, dt, dst)
	}
	conv := converter[T]()
	size := int(dt.Size)
	for i := range dst {
		s, err := readScalar(dt, data[i*size:])
		if err != nil {
			return err
		}
		dst[i] = conv(s)
	}
	return nil
}

func decodeComplex[T any](dt *message.Datatype, data []byte, dst []T, mk func(re, im scalar) T) error {
	re, im, err := complexParts(dt)
	if err != nil {
		return err
	}
	size := int(dt.Size)
	for i := range dst {
		p := data[i*size:]
		r, err := readScalar(re.Type, p[re.Offset:])
		if err != nil {
			return err
		}
		m, err := readScalar(im.Type, p[im.Offset:])
		if err != nil {
			return err
		}
		dst[i] = mk(r, m)
	}
	return nil
}

func decodeStrings(dt *message.Datatype, data []byte, dst []string, hr HeapReader, cfg bin.Config) error {
	size := int(dt.Size)
	switch {
	case dt.Class == message.ClassString:
		for i := range dst {
			dst[i] = trimString(data[i*size:(i+1)*size], dt.Pad)
		}
		return nil
	case dt.Class == message.ClassVarLen && dt.VarLenString:
		if hr == nil {
			return fmt.Errorf("%w: variable-length strings need a heap", ErrUnsupported)
		}
		for i := range dst {
			n, id, err := heap.DecodeVarLen(data[i*size:], cfg)
			if err != nil {
				return err
			}
			p, err := hr.Get(id, n)
			if err != nil {
				return err
			}
			dst[i] = trimString(p, dt.Pad)
		}
		return nil
	}
	return fmt.Errorf("%w: %s into []string", ErrUnsupported, dt)
}

func trimString(p []byte, pad message.Padding) string {
	if pad == message.SpacePad {
		return strings.TrimRight(string(p), " ")
	}
	for i, c := range p {
		if c == 0 {
			return string(p[:i])
		}
	}
	return string(p)
}

// Encode converts src, a slice of a supported element type, into elements
// of type dt. hw stores variable-length strings and may be nil for other
// types.
func Encode(dt *message.Datatype, src any, hw HeapWriter, cfg bin.Config) ([]byte, error) {
	n, err := Len(src)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n*int(dt.Size))
	switch s := src.(type) {
	case []int8:
		err = encodeNumbers(dt, out, s)
	case []int16:
		err = encodeNumbers(dt, out, s)
	case []int32:
		err = encodeNumbers(dt, out, s)
	case []int64:
		err = encodeNumbers(dt, out, s)
	case []uint8:
		err = encodeNumbers(dt, out, s)
	case []uint16:
		err = encodeNumbers(dt, out, s)
	case []uint32:
		err = encodeNumbers(dt, out, s)
	case []uint64:
		err = encodeNumbers(dt, out, s)
	case []float32:
		err = encodeNumbers(dt, out, s)
	case []float64:
		err = encodeNumbers(dt, out, s)
	case []bool:
		err = encodeNumbers(dt, out, s)
	case []string:
		err = encodeStrings(dt, out, s, hw, cfg)
	case []complex64:
		err = encodeComplex(dt, out, s, func(v complex64) (scalar, scalar) {
			return scalarOf(real(v)), scalarOf(imag(v))
		})
	case []complex128:
		err = encodeComplex(dt, out, s, func(v complex128) (scalar, scalar) {
			return scalarOf(real(v)), scalarOf(imag(v))
		})
	case []ComplexInt16:
		err = encodeComplex(dt, out, s, func(v ComplexInt16) (scalar, scalar) {
			return scalarOf(v.Re), scalarOf(v.Im)
		})
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func encodeNumbers[T number | bool](dt *message.Datatype, out []byte, src []T) error {
	if !dt.IsNumeric() {
		return fmt.Errorf("%w: %T into %s", ErrUnsupported, src, dt)
	}
	size := int(dt.Size)
	for i, v := range src {
		if err := writeScalar(dt, out[i*size:], scalarOf(v)); err != nil {
			return err
		}
	}
	return nil
}

func encodeComplex[T any](dt *message.Datatype, out []byte, src []T, parts func(T) (scalar, scalar)) error {
	re, im, err := complexParts(dt)
	if err != nil {
		return err
	}
	size := int(dt.Size)
	for i, v := range src {
		r, m := parts(v)
		p := out[i*size:]
		if err := writeScalar(re.Type, p[re.Offset:], r); err != nil {
			return err
		}
		if err := writeScalar(im.Type, p[im.Offset:], m); err != nil {
			return err
		}
	}
	return nil
}

func encodeStrings(dt *message.Datatype, out []byte, src []string, hw HeapWriter, cfg bin.Config) error {
	size := int(dt.Size)
	switch {
	case dt.Class == message.ClassString:
		for i, s := range src {
			p := out[i*size : (i+1)*size]
			n := copy(p, s)
			if dt.Pad == message.SpacePad {
				for j := n; j < size; j++ {
					p[j] = ' '
				}
			}
		}
		return nil
	case dt.Class == message.ClassVarLen && dt.VarLenString:
		if hw == nil {
			return fmt.Errorf("%w: variable-length strings need a heap", ErrUnsupported)
		}
		b := bin.NewBuffer(cfg)
		for _, s := range src {
			id, err := hw.Put([]byte(s))
			if err != nil {
				return err
			}
			heap.PutVarLen(b, uint32(len(s)), id)
		}
		copy(out, b.Bytes())
		return nil
	}
	return fmt.Errorf("%w: []string into %s", ErrUnsupported, dt)
}
