package message

import (
	"fmt"

	bin "github.com/robert-malhotra/go-lofar-dal/internal/binary"
)

// LayoutClass is the raw data storage class.
type LayoutClass uint8

const (
	LayoutCompact    LayoutClass = 0
	LayoutContiguous LayoutClass = 1
	LayoutChunked    LayoutClass = 2
	LayoutVirtual    LayoutClass = 3
)

func (c LayoutClass) String() string {
	switch c {
	case LayoutCompact:
		return "compact"
	case LayoutContiguous:
		return "contiguous"
	case LayoutChunked:
		return "chunked"
	case LayoutVirtual:
		return "virtual"
	}
	return fmt.Sprintf("layout(%d)", uint8(c))
}

// ChunkIndex identifies how a version 4 layout indexes its chunks. Version
// 1-3 layouts always use a v1 B-tree.
type ChunkIndex uint8

const (
	IndexBTreeV1    ChunkIndex = 0
	IndexSingle     ChunkIndex = 1
	IndexImplicit   ChunkIndex = 2
	IndexFixedArray ChunkIndex = 3
	IndexExtensible ChunkIndex = 4
	IndexBTreeV2    ChunkIndex = 5
)

// Layout is the data layout message.
type Layout struct {
	Version uint8
	Class   LayoutClass

	// Address is the contiguous data address or the chunk index address.
	Address uint64
	// Size is the contiguous data size.
	Size uint64
	// CompactData holds compact raw data.
	CompactData []byte

	// Chunk is the chunk shape in elements, without the trailing element
	// size dimension.
	Chunk    []uint32
	ElemSize uint32

	Index ChunkIndex
	// SingleChunkSize and SingleChunkMask describe a filtered single chunk.
	SingleChunkSize uint64
	SingleChunkMask uint32
}

func (m *Layout) Type() Type { return TypeLayout }

// NewChunkedLayout returns a version 3 chunked layout with no chunks yet.
func NewChunkedLayout(chunk []uint64, elemSize int) *Layout {
	c := make([]uint32, len(chunk))
	for i, v := range chunk {
		c[i] = uint32(v)
	}
	return &Layout{Version: 3, Class: LayoutChunked, Address: bin.Undefined, Chunk: c,
		ElemSize: uint32(elemSize)}
}

// NewContiguousLayout returns a version 3 contiguous layout.
func NewContiguousLayout(addr, size uint64) *Layout {
	return &Layout{Version: 3, Class: LayoutContiguous, Address: addr, Size: size}
}

// ChunkShape returns the chunk shape as uint64s.
func (m *Layout) ChunkShape() []uint64 {
	out := make([]uint64, len(m.Chunk))
	for i, v := range m.Chunk {
		out[i] = uint64(v)
	}
	return out
}

func decodeLayout(r *bin.Reader, total int) (*Layout, error) {
	version, err := r.Uint8()
	if err != nil {
		return nil, err
	}
	switch version {
	case 1, 2:
		return decodeLayoutV1(r, version)
	case 3, 4:
		return decodeLayoutV3(r, version, total)
	}
	return nil, fmt.Errorf("layout version %d", version)
}

func decodeLayoutV1(r *bin.Reader, version uint8) (*Layout, error) {
	head, err := r.Bytes(7)
	if err != nil {
		return nil, err
	}
	m := &Layout{Version: version, Class: LayoutClass(head[1])}
	nd := int(head[0])
	if m.Class != LayoutCompact {
		if m.Address, err = r.Offset(); err != nil {
			return nil, err
		}
	}
	dims := make([]uint32, nd)
	for i := range dims {
		if dims[i], err = r.Uint32(); err != nil {
			return nil, err
		}
	}
	switch m.Class {
	case LayoutChunked:
		if nd > 0 {
			m.Chunk, m.ElemSize = dims[:nd-1], dims[nd-1]
		}
	case LayoutCompact:
		n, err := r.Uint32()
		if err != nil {
			return nil, err
		}
		if m.CompactData, err = r.Bytes(int(n)); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func decodeLayoutV3(r *bin.Reader, version uint8, total int) (*Layout, error) {
	class, err := r.Uint8()
	if err != nil {
		return nil, err
	}
	m := &Layout{Version: version, Class: LayoutClass(class)}
	switch m.Class {
	case LayoutCompact:
		n, err := r.Uint16()
		if err != nil {
			return nil, err
		}
		m.CompactData, err = r.Bytes(int(n))
		return m, err
	case LayoutContiguous:
		if m.Address, err = r.Offset(); err != nil {
			return nil, err
		}
		m.Size, err = r.Length()
		return m, err
	case LayoutChunked:
		if version == 3 {
			return m, m.decodeChunkedV3(r)
		}
		return m, m.decodeChunkedV4(r)
	}
	return nil, fmt.Errorf("unsupported layout class %s", m.Class)
}

func (m *Layout) decodeChunkedV3(r *bin.Reader) error {
	nd, err := r.Uint8()
	if err != nil {
		return err
	}
	if m.Address, err = r.Offset(); err != nil {
		return err
	}
	dims := make([]uint32, nd)
	for i := range dims {
		if dims[i], err = r.Uint32(); err != nil {
			return err
		}
	}
	if nd > 0 {
		m.Chunk, m.ElemSize = dims[:nd-1], dims[nd-1]
	}
	return nil
}

func (m *Layout) decodeChunkedV4(r *bin.Reader) error {
	head, err := r.Bytes(3)
	if err != nil {
		return err
	}
	flags, nd, width := head[0], int(head[1]), int(head[2])
	dims := make([]uint32, nd)
	for i := range dims {
		v, err := r.UintN(width)
		if err != nil {
			return err
		}
		dims[i] = uint32(v)
	}
	if nd > 0 {
		m.Chunk, m.ElemSize = dims[:nd-1], dims[nd-1]
	}
	idx, err := r.Uint8()
	if err != nil {
		return err
	}
	m.Index = ChunkIndex(idx)
	switch m.Index {
	case IndexSingle:
		if flags&0x02 != 0 {
			if m.SingleChunkSize, err = r.Length(); err != nil {
				return err
			}
			if m.SingleChunkMask, err = r.Uint32(); err != nil {
				return err
			}
		}
	case IndexImplicit:
	case IndexFixedArray:
		r.Skip(1)
	case IndexExtensible:
		r.Skip(5)
	case IndexBTreeV2:
		r.Skip(6)
	default:
		return fmt.Errorf("unknown chunk index type %d", idx)
	}
	m.Address, err = r.Offset()
	return err
}

// Encode writes a version 3 layout message.
func (m *Layout) Encode(b *bin.Buffer) error {
	if m.Version != 3 {
		return fmt.Errorf("layout messages are written as version 3, have %d", m.Version)
	}
	b.PutUint8(3)
	b.PutUint8(uint8(m.Class))
	switch m.Class {
	case LayoutCompact:
		b.PutUint16(uint16(len(m.CompactData)))
		b.PutBytes(m.CompactData)
	case LayoutContiguous:
		b.PutOffset(m.Address)
		b.PutLength(m.Size)
	case LayoutChunked:
		b.PutUint8(uint8(len(m.Chunk) + 1))
		b.PutOffset(m.Address)
		for _, d := range m.Chunk {
			b.PutUint32(d)
		}
		b.PutUint32(m.ElemSize)
	default:
		return fmt.Errorf("cannot encode %s layout", m.Class)
	}
	return nil
}
