package message

import (
	"fmt"

	bin "github.com/robert-malhotra/go-lofar-dal/internal/binary"
)

// Registered HDF5 filter identifiers.
const (
	FilterDeflate     uint16 = 1
	FilterShuffle     uint16 = 2
	FilterFletcher32  uint16 = 3
	FilterSZIP        uint16 = 4
	FilterNBit        uint16 = 5
	FilterScaleOffset uint16 = 6
)

// FilterOptional marks a filter whose failure leaves a chunk unfiltered.
const FilterOptional uint16 = 0x01

// Filter is one stage of a filter pipeline.
type Filter struct {
	ID     uint16
	Flags  uint16
	Name   string
	Params []uint32
}

// Optional reports whether the filter may be skipped.
func (f Filter) Optional() bool { return f.Flags&FilterOptional != 0 }

// FilterPipeline is the filter pipeline message.
type FilterPipeline struct {
	Filters []Filter
}

func (m *FilterPipeline) Type() Type { return TypeFilterPipeline }

func decodeFilterPipeline(r *bin.Reader) (*FilterPipeline, error) {
	head, err := r.Bytes(2)
	if err != nil {
		return nil, err
	}
	version, n := head[0], int(head[1])
	if version == 1 {
		r.Skip(6)
	} else if version != 2 {
		return nil, fmt.Errorf("filter pipeline version %d", version)
	}
	m := &FilterPipeline{}
	for i := 0; i < n; i++ {
		var f Filter
		if f.ID, err = r.Uint16(); err != nil {
			return nil, err
		}
		var nameLen uint16
		if version == 1 || f.ID >= 256 {
			if nameLen, err = r.Uint16(); err != nil {
				return nil, err
			}
		}
		if f.Flags, err = r.Uint16(); err != nil {
			return nil, err
		}
		nv, err := r.Uint16()
		if err != nil {
			return nil, err
		}
		if nameLen > 0 {
			if version == 1 {
				nameLen = (nameLen + 7) &^ 7
			}
			name, err := r.Bytes(int(nameLen))
			if err != nil {
				return nil, err
			}
			f.Name = trimNul(name)
		}
		for j := 0; j < int(nv); j++ {
			v, err := r.Uint32()
			if err != nil {
				return nil, err
			}
			f.Params = append(f.Params, v)
		}
		if version == 1 && nv%2 == 1 {
			r.Skip(4)
		}
		m.Filters = append(m.Filters, f)
	}
	return m, nil
}

// Encode writes a version 2 pipeline. Only registered filters (id < 256)
// are written, so names are never stored.
func (m *FilterPipeline) Encode(b *bin.Buffer) error {
	b.PutUint8(2)
	b.PutUint8(uint8(len(m.Filters)))
	for _, f := range m.Filters {
		if f.ID >= 256 {
			return fmt.Errorf("cannot encode unregistered filter %d", f.ID)
		}
		b.PutUint16(f.ID)
		b.PutUint16(f.Flags)
		b.PutUint16(uint16(len(f.Params)))
		for _, v := range f.Params {
			b.PutUint32(v)
		}
	}
	return nil
}
