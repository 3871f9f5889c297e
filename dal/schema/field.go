package schema

import (
	"fmt"
	"math"
)

// Type is the host type an attribute is written with.
type Type string

const (
	Int16   Type = "int16"
	Int32   Type = "int32"
	Int64   Type = "int64"
	Uint16  Type = "uint16"
	Uint32  Type = "uint32"
	Uint64  Type = "uint64"
	Float32 Type = "float32"
	Float64 Type = "float64"
	String  Type = "string"
	Bool    Type = "bool"
)

// Field is one attribute of a schema.
type Field struct {
	Name    string `yaml:"name"`
	Type    Type   `yaml:"type"`
	Vector  bool   `yaml:"vector"`
	Default any    `yaml:"default"`
}

// Value returns the default as a typed slice: []int32 for an int32 field,
// []string for a string field and so on. Scalars give one element.
func (f Field) Value() (any, error) {
	var items []any
	if f.Vector {
		list, ok := f.Default.([]any)
		if !ok && f.Default != nil {
			return nil, fmt.Errorf("vector default %v is not a list", f.Default)
		}
		items = list
	} else {
		if _, isList := f.Default.([]any); isList {
			return nil, fmt.Errorf("scalar default %v is a list", f.Default)
		}
		items = []any{f.Default}
	}

	switch f.Type {
	case Int16:
		return convert(items, intOf[int16](math.MinInt16, math.MaxInt16))
	case Int32:
		return convert(items, intOf[int32](math.MinInt32, math.MaxInt32))
	case Int64:
		return convert(items, intOf[int64](math.MinInt64, math.MaxInt64))
	case Uint16:
		return convert(items, intOf[uint16](0, math.MaxUint16))
	case Uint32:
		return convert(items, intOf[uint32](0, math.MaxUint32))
	case Uint64:
		return convert(items, intOf[uint64](0, math.MaxInt64))
	case Float32:
		return convert(items, floatOf[float32])
	case Float64:
		return convert(items, floatOf[float64])
	case String:
		return convert(items, func(v any) (string, error) {
			s, ok := v.(string)
			if !ok {
				return "", fmt.Errorf("%v is not a string", v)
			}
			return s, nil
		})
	case Bool:
		return convert(items, func(v any) (bool, error) {
			b, ok := v.(bool)
			if !ok {
				return false, fmt.Errorf("%v is not a bool", v)
			}
			return b, nil
		})
	}
	return nil, fmt.Errorf("unknown type %q", f.Type)
}

func convert[T any](items []any, fn func(any) (T, error)) ([]T, error) {
	out := make([]T, len(items))
	for i, v := range items {
		x, err := fn(v)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

func intOf[T int16 | int32 | int64 | uint16 | uint32 | uint64](lo, hi int64) func(any) (T, error) {
	return func(v any) (T, error) {
		var n int64
		switch x := v.(type) {
		case int:
			n = int64(x)
		case int64:
			n = x
		default:
			return 0, fmt.Errorf("%v is not an integer", v)
		}
		if n < lo || n > hi {
			return 0, fmt.Errorf("%d out of range", n)
		}
		return T(n), nil
	}
}

func floatOf[T float32 | float64](v any) (T, error) {
	switch x := v.(type) {
	case int:
		return T(x), nil
	case int64:
		return T(x), nil
	case float64:
		return T(x), nil
	}
	return 0, fmt.Errorf("%v is not a number", v)
}
