package hdf5

import (
	"fmt"

	bin "github.com/robert-malhotra/go-lofar-dal/internal/binary"
	"github.com/robert-malhotra/go-lofar-dal/internal/dtype"
	"github.com/robert-malhotra/go-lofar-dal/internal/heap"
	"github.com/robert-malhotra/go-lofar-dal/internal/message"
)

// Attribute is a decoded attribute. Variable-length strings are resolved
// when the attribute is loaded, so an Attribute stays readable after its
// file is closed.
type Attribute struct {
	msg  *message.Attribute
	data []byte
	heap map[heap.ID][]byte
	cfg  bin.Config
}

// newAttribute snapshots m together with the heap objects it references.
// It must be called with f.mu held.
func (f *File) newAttribute(m *message.Attribute) (*Attribute, error) {
	a := &Attribute{msg: m, data: m.Data, cfg: f.cfg}
	if !needsHeap(m.Datatype) {
		return a, nil
	}
	a.heap = make(map[heap.ID][]byte)
	hr := heap.NewReader(f.reader())
	size := int(m.Datatype.Size)
	for off := 0; off+size <= len(m.Data); off += size {
		n, id, err := heap.DecodeVarLen(m.Data[off:], f.cfg)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", m.Name, err)
		}
		p, err := hr.Get(id, n)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", m.Name, err)
		}
		a.heap[id] = p
	}
	return a, nil
}

func needsHeap(dt *message.Datatype) bool {
	return dt != nil && dt.Class == message.ClassVarLen && dt.VarLenString
}

// Get implements the heap lookup used while decoding.
func (a *Attribute) Get(id heap.ID, n uint32) ([]byte, error) {
	if n == 0 || id.IsNil() {
		return nil, nil
	}
	p, ok := a.heap[id]
	if !ok || uint32(len(p)) < n {
		return nil, fmt.Errorf("attribute %q: heap object %d missing", a.msg.Name, id.Index)
	}
	return p[:n], nil
}

// Name returns the attribute name.
func (a *Attribute) Name() string { return a.msg.Name }

// Shape returns the dimensions of the value; nil for a scalar.
func (a *Attribute) Shape() []uint64 {
	if a.msg.Dataspace == nil {
		return nil
	}
	return a.msg.Dataspace.Dims
}

// Len returns the number of stored elements.
func (a *Attribute) Len() int {
	if a.msg.Dataspace == nil {
		return 1
	}
	return int(a.msg.Dataspace.NumElements())
}

// IsScalar reports whether the value has a scalar dataspace.
func (a *Attribute) IsScalar() bool {
	return a.msg.Dataspace == nil || a.msg.Dataspace.Space == message.SpaceScalar
}

// IsString reports whether the stored elements are strings.
func (a *Attribute) IsString() bool { return a.msg.Datatype.IsString() }

// TypeName describes the stored datatype.
func (a *Attribute) TypeName() string { return a.msg.Datatype.String() }

// Read decodes the value into dst, a slice of Len elements. Numeric values
// convert between numeric element types.
func (a *Attribute) Read(dst any) error {
	n, err := dtype.Len(dst)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrType, err)
	}
	if n != a.Len() {
		return fmt.Errorf("%w: attribute %q holds %d elements, buffer %d", ErrShape, a.Name(), a.Len(), n)
	}
	if err := dtype.Decode(a.msg.Datatype, a.data, dst, a, a.cfg); err != nil {
		return fmt.Errorf("%w: attribute %q: %v", ErrType, a.Name(), err)
	}
	return nil
}

// Value decodes the value into a slice of the Go type matching the stored
// datatype.
func (a *Attribute) Value() (any, error) {
	dst, err := dtype.NewSlice(a.msg.Datatype, a.Len())
	if err != nil {
		return nil, fmt.Errorf("%w: attribute %q: %v", ErrUnsupported, a.Name(), err)
	}
	if err := a.Read(dst); err != nil {
		return nil, err
	}
	return dst, nil
}
