package dal

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/robert-malhotra/go-lofar-dal/dal/schema"
)

// Attribute records are structs whose fields map to attributes through a
// `dal:"NAME"` tag. Field types are the Value types and slices of them.
// The option ",optional" makes ReadRecord leave the field untouched when
// the attribute is absent.

type recordField struct {
	name     string
	optional bool
	index    int
}

func recordFields(opName string, v any) (reflect.Value, []recordField, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, nil, op{name: opName}.fail(ErrMismatch.New(fmt.Sprintf("%T is not a struct pointer", v)))
	}
	rv = rv.Elem()
	var fields []recordField
	for i := 0; i < rv.NumField(); i++ {
		sf := rv.Type().Field(i)
		tag, ok := sf.Tag.Lookup("dal")
		if !ok || tag == "-" || !sf.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		fields = append(fields, recordField{name: name, optional: opts == "optional", index: i})
	}
	return rv, fields, nil
}

// WriteRecord writes the tagged fields of the struct v points to as
// attributes of loc, in field order.
func WriteRecord(loc Location, v any) error {
	rv, fields, err := recordFields("write record", v)
	if err != nil {
		return err
	}
	for _, f := range fields {
		if err := writeField(loc, f.name, rv.Field(f.index)); err != nil {
			return err
		}
	}
	return nil
}

// ReadRecord fills the tagged fields of the struct v points to from the
// attributes of loc.
func ReadRecord(loc Location, v any) error {
	rv, fields, err := recordFields("read record", v)
	if err != nil {
		return err
	}
	for _, f := range fields {
		if f.optional && !HasAttribute(loc, f.name) {
			continue
		}
		if err := readField(loc, f.name, rv.Field(f.index)); err != nil {
			return err
		}
	}
	return nil
}

// RecordDefaults fills the tagged fields of the struct v points to with the
// defaults of kind. Fields the schema does not name are left alone.
func RecordDefaults(kind schema.Kind, v any) error {
	s, err := schema.Lookup(kind)
	if err != nil {
		return op{name: "record defaults"}.fail(ErrNotFound.Wrap(err, "schema kind "+string(kind)))
	}
	rv, fields, err := recordFields("record defaults", v)
	if err != nil {
		return err
	}
	for _, f := range fields {
		sf, ok := s.Field(f.name)
		if !ok {
			continue
		}
		def, err := sf.Value()
		if err != nil {
			return op{name: "record defaults", attr: f.name}.fail(ErrMismatch.Wrap(err, f.name))
		}
		dv, fv := reflect.ValueOf(def), rv.Field(f.index)
		switch {
		case dv.Type() == fv.Type():
			fv.Set(dv)
		case dv.Len() == 1 && dv.Index(0).Type() == fv.Type():
			fv.Set(dv.Index(0))
		default:
			return op{name: "record defaults", attr: f.name}.fail(ErrMismatch.New(fmt.Sprintf("%s default %v into %s", f.name, def, fv.Type())))
		}
	}
	return nil
}

func writeField(loc Location, name string, fv reflect.Value) error {
	switch x := fv.Interface().(type) {
	case int16:
		return SetAttribute(loc, name, x)
	case int32:
		return SetAttribute(loc, name, x)
	case int64:
		return SetAttribute(loc, name, x)
	case uint16:
		return SetAttribute(loc, name, x)
	case uint32:
		return SetAttribute(loc, name, x)
	case uint64:
		return SetAttribute(loc, name, x)
	case float32:
		return SetAttribute(loc, name, x)
	case float64:
		return SetAttribute(loc, name, x)
	case string:
		return SetAttribute(loc, name, x)
	case bool:
		return SetAttribute(loc, name, x)
	case []int16:
		return SetAttributeVector(loc, name, x)
	case []int32:
		return SetAttributeVector(loc, name, x)
	case []int64:
		return SetAttributeVector(loc, name, x)
	case []uint16:
		return SetAttributeVector(loc, name, x)
	case []uint32:
		return SetAttributeVector(loc, name, x)
	case []uint64:
		return SetAttributeVector(loc, name, x)
	case []float32:
		return SetAttributeVector(loc, name, x)
	case []float64:
		return SetAttributeVector(loc, name, x)
	case []string:
		return SetAttributeVector(loc, name, x)
	case []bool:
		return SetAttributeVector(loc, name, x)
	}
	return op{name: "write record", path: loc.Path(), attr: name}.
		fail(ErrMismatch.New(fmt.Sprintf("field type %s", fv.Type())))
}

func readField(loc Location, name string, fv reflect.Value) error {
	switch p := fv.Addr().Interface().(type) {
	case *int16:
		return readScalar(loc, name, p)
	case *int32:
		return readScalar(loc, name, p)
	case *int64:
		return readScalar(loc, name, p)
	case *uint16:
		return readScalar(loc, name, p)
	case *uint32:
		return readScalar(loc, name, p)
	case *uint64:
		return readScalar(loc, name, p)
	case *float32:
		return readScalar(loc, name, p)
	case *float64:
		return readScalar(loc, name, p)
	case *string:
		return readScalar(loc, name, p)
	case *bool:
		return readScalar(loc, name, p)
	case *[]int16:
		return readVector(loc, name, p)
	case *[]int32:
		return readVector(loc, name, p)
	case *[]int64:
		return readVector(loc, name, p)
	case *[]uint16:
		return readVector(loc, name, p)
	case *[]uint32:
		return readVector(loc, name, p)
	case *[]uint64:
		return readVector(loc, name, p)
	case *[]float32:
		return readVector(loc, name, p)
	case *[]float64:
		return readVector(loc, name, p)
	case *[]string:
		return readVector(loc, name, p)
	case *[]bool:
		return readVector(loc, name, p)
	}
	return op{name: "read record", path: loc.Path(), attr: name}.
		fail(ErrMismatch.New(fmt.Sprintf("field type %s", fv.Type())))
}

func readScalar[T Value](loc Location, name string, p *T) error {
	v, err := GetAttribute[T](loc, name)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func readVector[T Value](loc Location, name string, p *[]T) error {
	vs, err := GetAttributeVector[T](loc, name)
	if err != nil {
		return err
	}
	*p = vs
	return nil
}
