package filter

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	bin "github.com/robert-malhotra/go-lofar-dal/internal/binary"
	"github.com/robert-malhotra/go-lofar-dal/internal/message"
)

// ErrUnsupported is returned for a required filter this package lacks.
var ErrUnsupported = errors.New("unsupported filter")

// Filter transforms chunk bytes.
type Filter interface {
	ID() uint16
	Encode(p []byte) ([]byte, error)
	Decode(p []byte) ([]byte, error)
}

var names = map[uint16]string{
	message.FilterDeflate:     "deflate",
	message.FilterShuffle:     "shuffle",
	message.FilterFletcher32:  "fletcher32",
	message.FilterSZIP:        "szip",
	message.FilterNBit:        "nbit",
	message.FilterScaleOffset: "scaleoffset",
}

// Name returns the conventional name of filter id.
func Name(id uint16) string {
	if n, ok := names[id]; ok {
		return n
	}
	return fmt.Sprintf("filter-%d", id)
}

// New builds the filter described by f, or returns nil for an optional
// filter this package does not implement.
func New(f message.Filter, elemSize int) (Filter, error) {
	switch f.ID {
	case message.FilterDeflate:
		level := 6
		if len(f.Params) > 0 {
			level = int(f.Params[0])
		}
		return Deflate{Level: level}, nil
	case message.FilterShuffle:
		size := elemSize
		if len(f.Params) > 0 && f.Params[0] > 0 {
			size = int(f.Params[0])
		}
		return Shuffle{ElemSize: size}, nil
	case message.FilterFletcher32:
		return Fletcher32{}, nil
	}
	if f.Optional() {
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %s (id %d)", ErrUnsupported, Name(f.ID), f.ID)
}

// Deflate is zlib compression at a fixed level.
type Deflate struct{ Level int }

func (Deflate) ID() uint16 { return message.FilterDeflate }

func (f Deflate) Encode(p []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, f.Level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(p); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (Deflate) Decode(p []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(p))
	if err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	return out, nil
}

// Shuffle groups byte k of every element together. Trailing bytes that do
// not form a whole element are left in place.
type Shuffle struct{ ElemSize int }

func (Shuffle) ID() uint16 { return message.FilterShuffle }

func (f Shuffle) Encode(p []byte) ([]byte, error) {
	n := f.elements(p)
	if n == 0 {
		return p, nil
	}
	out := make([]byte, len(p))
	for i := 0; i < n; i++ {
		for j := 0; j < f.ElemSize; j++ {
			out[j*n+i] = p[i*f.ElemSize+j]
		}
	}
	copy(out[n*f.ElemSize:], p[n*f.ElemSize:])
	return out, nil
}

func (f Shuffle) Decode(p []byte) ([]byte, error) {
	n := f.elements(p)
	if n == 0 {
		return p, nil
	}
	out := make([]byte, len(p))
	for i := 0; i < n; i++ {
		for j := 0; j < f.ElemSize; j++ {
			out[i*f.ElemSize+j] = p[j*n+i]
		}
	}
	copy(out[n*f.ElemSize:], p[n*f.ElemSize:])
	return out, nil
}

func (f Shuffle) elements(p []byte) int {
	if f.ElemSize <= 1 {
		return 0
	}
	return len(p) / f.ElemSize
}

// Fletcher32 appends the HDF5 Fletcher-32 checksum of the chunk.
type Fletcher32 struct{}

func (Fletcher32) ID() uint16 { return message.FilterFletcher32 }

func (Fletcher32) Encode(p []byte) ([]byte, error) {
	out := make([]byte, len(p), len(p)+4)
	copy(out, p)
	return binary.LittleEndian.AppendUint32(out, bin.Fletcher32(p)), nil
}

func (Fletcher32) Decode(p []byte) ([]byte, error) {
	if len(p) < 4 {
		return nil, errors.New("fletcher32: chunk shorter than its checksum")
	}
	data := p[:len(p)-4]
	stored := binary.LittleEndian.Uint32(p[len(p)-4:])
	if sum := bin.Fletcher32(data); sum != stored {
		return nil, fmt.Errorf("fletcher32: checksum mismatch (stored %#08x, computed %#08x)", stored, sum)
	}
	return data, nil
}
