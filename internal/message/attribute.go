package message

import (
	"fmt"

	bin "github.com/robert-malhotra/go-lofar-dal/internal/binary"
)

// Attribute is the attribute message: a named, typed, shaped value stored
// in the header of the object it describes.
type Attribute struct {
	Name      string
	Charset   Charset
	Datatype  *Datatype
	Dataspace *Dataspace
	Data      []byte
}

func (m *Attribute) Type() Type { return TypeAttribute }

func decodeAttribute(r *bin.Reader, total int) (*Attribute, error) {
	head, err := r.Bytes(2)
	if err != nil {
		return nil, err
	}
	version := head[0]
	if version < 1 || version > 3 {
		return nil, fmt.Errorf("attribute version %d", version)
	}
	if version == 2 || version == 3 {
		if head[1]&0x03 != 0 {
			return nil, fmt.Errorf("shared attribute datatypes are not supported")
		}
	}
	nameSize, err := r.Uint16()
	if err != nil {
		return nil, err
	}
	dtSize, err := r.Uint16()
	if err != nil {
		return nil, err
	}
	dsSize, err := r.Uint16()
	if err != nil {
		return nil, err
	}
	m := &Attribute{}
	if version == 3 {
		cs, err := r.Uint8()
		if err != nil {
			return nil, err
		}
		m.Charset = Charset(cs)
	}

	pad := func(n uint16) int64 {
		if version == 1 {
			return int64((n + 7) &^ 7)
		}
		return int64(n)
	}

	pos := r.Pos()
	name, err := r.Bytes(int(nameSize))
	if err != nil {
		return nil, err
	}
	m.Name = trimNul(name)
	pos += pad(nameSize)

	if m.Datatype, err = DecodeDatatype(r.At(pos)); err != nil {
		return nil, fmt.Errorf("attribute %q: %w", m.Name, err)
	}
	pos += pad(dtSize)

	if m.Dataspace, err = decodeDataspace(r.At(pos)); err != nil {
		return nil, fmt.Errorf("attribute %q: %w", m.Name, err)
	}
	pos += pad(dsSize)

	n := int(m.Dataspace.NumElements() * uint64(m.Datatype.Size))
	if int(pos)+n > total {
		return nil, fmt.Errorf("attribute %q: data overruns message", m.Name)
	}
	if m.Data, err = r.At(pos).Bytes(n); err != nil {
		return nil, err
	}
	return m, nil
}

// Encode writes a version 3 attribute message.
func (m *Attribute) Encode(b *bin.Buffer) error {
	dt := bin.NewBuffer(b.Config())
	if err := m.Datatype.Encode(dt); err != nil {
		return fmt.Errorf("attribute %q: %w", m.Name, err)
	}
	ds := bin.NewBuffer(b.Config())
	if err := m.Dataspace.Encode(ds); err != nil {
		return err
	}
	b.PutUint8(3)
	b.PutUint8(0)
	b.PutUint16(uint16(len(m.Name) + 1))
	b.PutUint16(uint16(dt.Len()))
	b.PutUint16(uint16(ds.Len()))
	b.PutUint8(uint8(m.Charset))
	b.PutString(m.Name)
	b.PutUint8(0)
	b.PutBytes(dt.Bytes())
	b.PutBytes(ds.Bytes())
	b.PutBytes(m.Data)
	return nil
}
