package layout

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/robert-malhotra/go-lofar-dal/internal/alloc"
	bin "github.com/robert-malhotra/go-lofar-dal/internal/binary"
	"github.com/robert-malhotra/go-lofar-dal/internal/btree"
	"github.com/robert-malhotra/go-lofar-dal/internal/filter"
)

// ChunkIndex locates stored chunks by their logical offset.
type ChunkIndex interface {
	Get(offset []uint64) (*btree.Chunk, bool)
}

// WritableIndex is a chunk index that records new chunk locations.
type WritableIndex interface {
	ChunkIndex
	Put(c btree.Chunk)
}

// Chunked is chunked storage.
type Chunked struct {
	r     io.ReaderAt
	w     io.WriterAt
	a     *alloc.Allocator
	index ChunkIndex
	pipe  *filter.Pipeline
	chunk []uint64
	p     Params
}

// NewChunked returns a store over chunks of the given shape. w and a may be
// nil for read-only access; pipe may be nil when no filters apply.
func NewChunked(r io.ReaderAt, w io.WriterAt, a *alloc.Allocator, index ChunkIndex, pipe *filter.Pipeline, chunk []uint64, p Params) *Chunked {
	return &Chunked{r: r, w: w, a: a, index: index, pipe: pipe, chunk: chunk, p: p}
}

// ChunkBytes returns the unfiltered size of one chunk.
func (c *Chunked) ChunkBytes() uint64 {
	n := uint64(c.p.ElemSize)
	for _, d := range c.chunk {
		n *= d
	}
	return n
}

type chunkBuf struct {
	offset []uint64
	data   []byte
	stored *btree.Chunk
	dirty  bool
}

// segment is the part of a run that falls into one chunk.
type segment struct {
	chunk []uint64 // chunk offset; only valid during the callback
	at    uint64   // byte offset within the chunk
	pos   uint64   // byte offset within the packed buffer
	n     uint64   // bytes
}

func (c *Chunked) segments(runs []Run, fn func(s segment) error) error {
	rank := len(c.chunk)
	es := uint64(c.p.ElemSize)
	co := make([]uint64, rank)
	var pos uint64
	for _, r := range runs {
		if len(r.Start) != rank {
			return fmt.Errorf("run has rank %d, chunks have rank %d", len(r.Start), rank)
		}
		x, end := r.Start[rank-1], r.Start[rank-1]+r.Len
		for x < end {
			var at uint64
			for d := 0; d < rank; d++ {
				v := r.Start[d]
				if d == rank-1 {
					v = x
				}
				co[d] = v / c.chunk[d] * c.chunk[d]
				at = at*c.chunk[d] + v - co[d]
			}
			n := min(end, co[rank-1]+c.chunk[rank-1]) - x
			if err := fn(segment{chunk: co, at: at * es, pos: pos, n: n * es}); err != nil {
				return err
			}
			pos += n * es
			x += n
		}
	}
	return nil
}

func chunkKey(off []uint64) string {
	b := make([]byte, 8*len(off))
	for i, v := range off {
		binary.LittleEndian.PutUint64(b[8*i:], v)
	}
	return string(b)
}

func (c *Chunked) load(cache map[string]*chunkBuf, off []uint64) (*chunkBuf, error) {
	key := chunkKey(off)
	if cb, ok := cache[key]; ok {
		return cb, nil
	}
	size := c.ChunkBytes()
	cb := &chunkBuf{offset: slices.Clone(off)}
	stored, ok := c.index.Get(off)
	if ok && stored.Address != bin.Undefined {
		raw := make([]byte, stored.Size)
		if _, err := c.r.ReadAt(raw, int64(stored.Address)); err != nil {
			return nil, fmt.Errorf("reading chunk %v: %w", off, err)
		}
		data := raw
		if c.pipe != nil {
			var err error
			if data, err = c.pipe.Decode(raw, stored.FilterMask); err != nil {
				return nil, fmt.Errorf("chunk %v: %w", off, err)
			}
		}
		if uint64(len(data)) < size {
			return nil, fmt.Errorf("chunk %v decodes to %d bytes, want %d", off, len(data), size)
		}
		cb.data, cb.stored = data[:size], stored
	} else {
		cb.data = make([]byte, size)
		fill(cb.data, c.p.Fill)
	}
	cache[key] = cb
	return cb, nil
}

func (c *Chunked) Read(runs []Run, dst []byte) error {
	if err := checkBuffer(runs, dst, c.p.ElemSize); err != nil {
		return err
	}
	cache := make(map[string]*chunkBuf)
	return c.segments(runs, func(s segment) error {
		cb, err := c.load(cache, s.chunk)
		if err != nil {
			return err
		}
		copy(dst[s.pos:s.pos+s.n], cb.data[s.at:s.at+s.n])
		return nil
	})
}

func (c *Chunked) Write(runs []Run, src []byte) error {
	index, ok := c.index.(WritableIndex)
	if !ok || c.w == nil || c.a == nil {
		return ErrReadOnly
	}
	if err := checkBuffer(runs, src, c.p.ElemSize); err != nil {
		return err
	}
	cache := make(map[string]*chunkBuf)
	err := c.segments(runs, func(s segment) error {
		cb, err := c.load(cache, s.chunk)
		if err != nil {
			return err
		}
		copy(cb.data[s.at:s.at+s.n], src[s.pos:s.pos+s.n])
		cb.dirty = true
		return nil
	})
	if err != nil {
		return err
	}

	var dirty []*chunkBuf
	for _, cb := range cache {
		if cb.dirty {
			dirty = append(dirty, cb)
		}
	}
	slices.SortFunc(dirty, func(x, y *chunkBuf) int { return slices.Compare(x.offset, y.offset) })
	for _, cb := range dirty {
		if err := c.store(index, cb); err != nil {
			return err
		}
	}
	return nil
}

// store filters one chunk and writes it, reusing its old space if the
// encoded bytes fit.
func (c *Chunked) store(index WritableIndex, cb *chunkBuf) error {
	enc, mask := cb.data, uint32(0)
	if c.pipe != nil {
		var err error
		if enc, mask, err = c.pipe.Encode(cb.data); err != nil {
			return fmt.Errorf("chunk %v: %w", cb.offset, err)
		}
	}
	size := uint64(len(enc))
	if size > math.MaxUint32 {
		return fmt.Errorf("chunk %v encodes to %d bytes", cb.offset, size)
	}

	var addr uint64
	switch old := cb.stored; {
	case old == nil || old.Address == bin.Undefined:
		addr = c.a.Alloc(size)
	case size <= uint64(old.Size):
		addr = old.Address
		if size < uint64(old.Size) {
			c.a.Free(addr+size, uint64(old.Size)-size)
		}
	default:
		c.a.Free(old.Address, uint64(old.Size))
		addr = c.a.Alloc(size)
	}
	if _, err := c.w.WriteAt(enc, int64(addr)); err != nil {
		return fmt.Errorf("writing chunk %v: %w", cb.offset, err)
	}
	index.Put(btree.Chunk{Offset: cb.offset, Size: uint32(size), FilterMask: mask, Address: addr})
	return nil
}
