package message

import (
	"fmt"

	bin "github.com/robert-malhotra/go-lofar-dal/internal/binary"
)

// AllocTime is when raw data storage is allocated.
type AllocTime uint8

const (
	AllocEarly       AllocTime = 1
	AllocLate        AllocTime = 2
	AllocIncremental AllocTime = 3
)

// FillValue is the fill value message. A nil Value with Undefined unset
// means the library default, all zero bytes.
type FillValue struct {
	Alloc     AllocTime
	WriteTime uint8
	Undefined bool
	Value     []byte
}

func (m *FillValue) Type() Type { return TypeFillValue }

// NewFillValue returns the fill value message written for new datasets:
// default zero fill, written only if set.
func NewFillValue(alloc AllocTime) *FillValue {
	return &FillValue{Alloc: alloc, WriteTime: 2}
}

func decodeFillValue(r *bin.Reader) (*FillValue, error) {
	version, err := r.Uint8()
	if err != nil {
		return nil, err
	}
	m := &FillValue{}
	switch version {
	case 1, 2:
		p, err := r.Bytes(3)
		if err != nil {
			return nil, err
		}
		m.Alloc, m.WriteTime = AllocTime(p[0]), p[1]
		if version == 1 || p[2] != 0 {
			n, err := r.Uint32()
			if err != nil {
				return nil, err
			}
			if n > 0 {
				m.Value, err = r.Bytes(int(n))
				return m, err
			}
		}
	case 3:
		flags, err := r.Uint8()
		if err != nil {
			return nil, err
		}
		m.Alloc = AllocTime(flags & 0x03)
		m.WriteTime = (flags >> 2) & 0x03
		m.Undefined = flags&0x10 != 0
		if flags&0x20 != 0 {
			n, err := r.Uint32()
			if err != nil {
				return nil, err
			}
			m.Value, err = r.Bytes(int(n))
			return m, err
		}
	default:
		return nil, fmt.Errorf("fill value version %d", version)
	}
	return m, nil
}

// Encode writes a version 3 fill value message.
func (m *FillValue) Encode(b *bin.Buffer) error {
	flags := uint8(m.Alloc) | m.WriteTime<<2
	if m.Undefined {
		flags |= 0x10
	}
	if m.Value != nil {
		flags |= 0x20
	}
	b.PutUint8(3)
	b.PutUint8(flags)
	if m.Value != nil {
		b.PutUint32(uint32(len(m.Value)))
		b.PutBytes(m.Value)
	}
	return nil
}

func decodeFillValueOld(r *bin.Reader) (*FillValue, error) {
	n, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	m := &FillValue{Alloc: AllocLate}
	if n > 0 {
		m.Value, err = r.Bytes(int(n))
	}
	return m, err
}
