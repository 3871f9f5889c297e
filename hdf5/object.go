package hdf5

import (
	"fmt"
	"path"

	"github.com/robert-malhotra/go-lofar-dal/internal/dtype"
	"github.com/robert-malhotra/go-lofar-dal/internal/message"
	"github.com/robert-malhotra/go-lofar-dal/internal/object"
)

// ObjectType is the kind of object a link points at.
type ObjectType int

const (
	ObjectUnknown ObjectType = iota
	ObjectGroup
	ObjectDataset
)

func (t ObjectType) String() string {
	switch t {
	case ObjectGroup:
		return "group"
	case ObjectDataset:
		return "dataset"
	}
	return "unknown"
}

func objectTypeOf(h *object.Header) ObjectType {
	switch {
	case h.IsDataset():
		return ObjectDataset
	case h.IsGroup():
		return ObjectGroup
	}
	return ObjectUnknown
}

// node is the part shared by groups and datasets: a path, a header
// address and the attributes stored in that header.
type node struct {
	file *File
	path string
	addr uint64
}

// File returns the file the object belongs to.
func (o *node) File() *File { return o.file }

// Path returns the absolute path the object was opened by.
func (o *node) Path() string { return o.path }

// Name returns the last component of the path.
func (o *node) Name() string {
	if o.path == "/" {
		return "/"
	}
	return path.Base(o.path)
}

// Address returns the object header address, which identifies the object
// within its file.
func (o *node) Address() uint64 { return o.addr }

// Attr returns the attribute called name.
func (o *node) Attr(name string) (*Attribute, error) {
	o.file.mu.Lock()
	defer o.file.mu.Unlock()
	if err := o.file.check(false); err != nil {
		return nil, err
	}
	h, err := o.file.header(o.addr)
	if err != nil {
		return nil, err
	}
	m := h.Attribute(name)
	if m == nil {
		return nil, fmt.Errorf("%w: attribute %q of %s", ErrNotFound, name, o.path)
	}
	return o.file.newAttribute(m)
}

// Attrs returns all attributes in storage order.
func (o *node) Attrs() ([]*Attribute, error) {
	o.file.mu.Lock()
	defer o.file.mu.Unlock()
	if err := o.file.check(false); err != nil {
		return nil, err
	}
	h, err := o.file.header(o.addr)
	if err != nil {
		return nil, err
	}
	var out []*Attribute
	for _, m := range h.Attributes() {
		a, err := o.file.newAttribute(m)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// AttrNames returns the attribute names in storage order.
func (o *node) AttrNames() ([]string, error) {
	o.file.mu.Lock()
	defer o.file.mu.Unlock()
	if err := o.file.check(false); err != nil {
		return nil, err
	}
	h, err := o.file.header(o.addr)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, m := range h.Attributes() {
		names = append(names, m.Name)
	}
	return names, nil
}

// HasAttr reports whether the attribute exists.
func (o *node) HasAttr(name string) bool {
	_, err := o.Attr(name)
	return err == nil
}

// SetAttr creates or replaces the attribute called name. value is a scalar
// or a slice of a supported element type; scalars are stored as a
// one-element array. The stored type and shape follow the new value.
func (o *node) SetAttr(name string, value any) error {
	o.file.mu.Lock()
	defer o.file.mu.Unlock()
	if err := o.file.check(true); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("%w: empty attribute name", ErrInvalidPath)
	}
	vs := asSlice(value)
	dt, err := dtype.For(vs)
	if err != nil {
		return fmt.Errorf("%w: attribute %q: %v", ErrType, name, err)
	}
	n, _ := dtype.Len(vs)
	data, err := dtype.Encode(dt, vs, o.file.heap, o.file.cfg)
	if err != nil {
		return fmt.Errorf("attribute %q: %w", name, err)
	}

	h, err := o.file.header(o.addr)
	if err != nil {
		return err
	}
	h.SetAttribute(&message.Attribute{
		Name:      name,
		Charset:   message.ASCII,
		Datatype:  dt,
		Dataspace: message.NewSimple([]uint64{uint64(n)}, nil),
		Data:      data,
	})
	return o.file.writeHeader(h)
}

// DeleteAttr removes the attribute called name.
func (o *node) DeleteAttr(name string) error {
	o.file.mu.Lock()
	defer o.file.mu.Unlock()
	if err := o.file.check(true); err != nil {
		return err
	}
	h, err := o.file.header(o.addr)
	if err != nil {
		return err
	}
	if !h.RemoveAttribute(name) {
		return fmt.Errorf("%w: attribute %q of %s", ErrNotFound, name, o.path)
	}
	return o.file.writeHeader(h)
}

// asSlice wraps scalars in a one-element slice.
func asSlice(v any) any {
	switch x := v.(type) {
	case int:
		return []int64{int64(x)}
	case uint:
		return []uint64{uint64(x)}
	case []int:
		out := make([]int64, len(x))
		for i, e := range x {
			out[i] = int64(e)
		}
		return out
	case int8:
		return []int8{x}
	case int16:
		return []int16{x}
	case int32:
		return []int32{x}
	case int64:
		return []int64{x}
	case uint8:
		return []uint8{x}
	case uint16:
		return []uint16{x}
	case uint32:
		return []uint32{x}
	case uint64:
		return []uint64{x}
	case float32:
		return []float32{x}
	case float64:
		return []float64{x}
	case bool:
		return []bool{x}
	case string:
		return []string{x}
	case complex64:
		return []complex64{x}
	case complex128:
		return []complex128{x}
	case dtype.ComplexInt16:
		return []dtype.ComplexInt16{x}
	}
	return v
}
