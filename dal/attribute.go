package dal

import (
	"github.com/robert-malhotra/go-lofar-dal/hdf5"
)

// Value is the set of host types attributes are read and written as.
// Booleans are stored as 32-bit integers.
type Value interface {
	int16 | int32 | int64 | uint16 | uint32 | uint64 | float32 | float64 | string | bool
}

// GetAttribute reads a single-valued attribute. Numeric values convert
// between numeric types; strings only read as strings. An attribute
// holding more or fewer than one element fails with ErrMismatch.
func GetAttribute[T Value](loc Location, name string) (T, error) {
	var zero T
	a, err := attribute(loc, name)
	if err != nil {
		return zero, err
	}
	if n := a.Len(); n != 1 {
		return zero, op{name: "get attribute", path: loc.Path(), attr: name}.
			fail(ErrMismatch.New(name + " is not a single value"))
	}
	vs, err := readAttribute[T](loc, a)
	if err != nil {
		return zero, err
	}
	return vs[0], nil
}

// GetAttributeVector reads an attribute as a slice with one element per
// stored value.
func GetAttributeVector[T Value](loc Location, name string) ([]T, error) {
	a, err := attribute(loc, name)
	if err != nil {
		return nil, err
	}
	return readAttribute[T](loc, a)
}

// SetAttribute writes a single value, replacing any existing attribute.
func SetAttribute[T Value](loc Location, name string, v T) error {
	return setAttr(loc, "set attribute", name, []T{v})
}

// SetAttributeVector writes a vector attribute. The stored type and length
// follow vs, replacing any existing attribute of that name.
func SetAttributeVector[T Value](loc Location, name string, vs []T) error {
	if vs == nil {
		vs = []T{}
	}
	return setAttr(loc, "set attribute", name, vs)
}

// HasAttribute reports whether loc carries an attribute called name.
func HasAttribute(loc Location, name string) bool {
	obj, _, err := loc.target()
	if err != nil {
		return false
	}
	_, err = obj.Attr(name)
	return err == nil
}

// DeleteAttribute removes an attribute.
func DeleteAttribute(loc Location, name string) error {
	obj, _, err := loc.target()
	if err != nil {
		return err
	}
	if err := obj.DeleteAttr(name); err != nil {
		return op{name: "delete attribute", path: loc.Path(), attr: name}.wrap(err)
	}
	return nil
}

// AttributeNames lists the attributes of loc in storage order.
func AttributeNames(loc Location) ([]string, error) {
	obj, _, err := loc.target()
	if err != nil {
		return nil, err
	}
	names, err := obj.AttrNames()
	if err != nil {
		return nil, op{name: "list attributes", path: loc.Path()}.wrap(err)
	}
	return names, nil
}

func attribute(loc Location, name string) (*hdf5.Attribute, error) {
	obj, _, err := loc.target()
	if err != nil {
		return nil, err
	}
	a, err := obj.Attr(name)
	if err != nil {
		return nil, op{name: "get attribute", path: loc.Path(), attr: name}.wrap(err)
	}
	return a, nil
}

func readAttribute[T Value](loc Location, a *hdf5.Attribute) ([]T, error) {
	o := op{name: "get attribute", path: loc.Path(), attr: a.Name()}
	vs := make([]T, a.Len())
	if _, wantString := any(vs).([]string); wantString != a.IsString() {
		return nil, o.fail(ErrMismatch.New(a.Name() + " holds " + a.TypeName()))
	}
	if err := a.Read(vs); err != nil {
		return nil, o.wrap(err)
	}
	return vs, nil
}

// setAttr writes v, a typed slice, as attribute name of loc.
func setAttr(loc Location, opName, name string, v any) error {
	obj, _, err := loc.target()
	if err != nil {
		return err
	}
	if err := obj.SetAttr(name, v); err != nil {
		return op{name: opName, path: loc.Path(), attr: name}.wrap(err)
	}
	return nil
}
