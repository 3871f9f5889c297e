package message

import (
	"fmt"

	bin "github.com/robert-malhotra/go-lofar-dal/internal/binary"
)

// Unlimited marks an axis that may grow without bound.
const Unlimited = bin.Undefined

// SpaceType distinguishes scalar, simple and null dataspaces.
type SpaceType uint8

const (
	SpaceScalar SpaceType = 0
	SpaceSimple SpaceType = 1
	SpaceNull   SpaceType = 2
)

// Dataspace is the dataspace message: the current and maximum extent of a
// dataset or attribute.
type Dataspace struct {
	Space   SpaceType
	Dims    []uint64
	MaxDims []uint64
}

func (m *Dataspace) Type() Type { return TypeDataspace }

// NewSimple returns a simple dataspace. A nil maxDims means the maximum
// extent equals the current one.
func NewSimple(dims, maxDims []uint64) *Dataspace {
	return &Dataspace{Space: SpaceSimple, Dims: append([]uint64(nil), dims...),
		MaxDims: append([]uint64(nil), maxDims...)}
}

// Rank is the number of dimensions.
func (m *Dataspace) Rank() int { return len(m.Dims) }

// NumElements is the number of elements in the current extent.
func (m *Dataspace) NumElements() uint64 {
	switch m.Space {
	case SpaceScalar:
		return 1
	case SpaceNull:
		return 0
	}
	n := uint64(1)
	for _, d := range m.Dims {
		n *= d
	}
	return n
}

// Max returns the maximum extent, defaulting to the current one.
func (m *Dataspace) Max() []uint64 {
	if len(m.MaxDims) == len(m.Dims) {
		return m.MaxDims
	}
	return m.Dims
}

func decodeDataspace(r *bin.Reader) (*Dataspace, error) {
	head, err := r.Bytes(4)
	if err != nil {
		return nil, err
	}
	version, rank, flags := head[0], int(head[1]), head[2]
	m := &Dataspace{Space: SpaceSimple}
	switch version {
	case 1:
		r.Skip(4)
		if rank == 0 {
			m.Space = SpaceScalar
		}
	case 2:
		m.Space = SpaceType(head[3])
	default:
		return nil, fmt.Errorf("dataspace version %d", version)
	}

	for i := 0; i < rank; i++ {
		d, err := r.Length()
		if err != nil {
			return nil, err
		}
		m.Dims = append(m.Dims, d)
	}
	if flags&0x01 != 0 {
		for i := 0; i < rank; i++ {
			d, err := r.Length()
			if err != nil {
				return nil, err
			}
			m.MaxDims = append(m.MaxDims, d)
		}
	}
	return m, nil
}

// Encode writes a version 2 dataspace message. Maximum dimensions are
// written only when they differ from the current extent.
func (m *Dataspace) Encode(b *bin.Buffer) error {
	hasMax := false
	if len(m.MaxDims) == len(m.Dims) {
		for i := range m.Dims {
			if m.MaxDims[i] != m.Dims[i] {
				hasMax = true
			}
		}
	}
	var flags uint8
	if hasMax {
		flags = 1
	}
	b.PutUint8(2)
	b.PutUint8(uint8(len(m.Dims)))
	b.PutUint8(flags)
	b.PutUint8(uint8(m.Space))
	for _, d := range m.Dims {
		b.PutLength(d)
	}
	if hasMax {
		for _, d := range m.MaxDims {
			b.PutLength(d)
		}
	}
	return nil
}
