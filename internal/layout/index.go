package layout

import (
	"github.com/robert-malhotra/go-lofar-dal/internal/btree"
)

// SingleIndex is the version 4 index of a dataset stored as one chunk.
type SingleIndex struct {
	chunk btree.Chunk
}

// NewSingleIndex returns the index of the single chunk at addr.
func NewSingleIndex(addr uint64, size uint32, mask uint32, rank int) *SingleIndex {
	return &SingleIndex{chunk: btree.Chunk{
		Offset:     make([]uint64, rank),
		Size:       size,
		FilterMask: mask,
		Address:    addr,
	}}
}

func (ix *SingleIndex) Get(offset []uint64) (*btree.Chunk, bool) {
	for _, v := range offset {
		if v != 0 {
			return nil, false
		}
	}
	return &ix.chunk, true
}

// ImplicitIndex is the version 4 index of unfiltered chunks laid out back
// to back in row-major chunk order.
type ImplicitIndex struct {
	addr  uint64
	dims  []uint64
	chunk []uint64
	size  uint32
}

// NewImplicitIndex returns the index for chunks starting at addr. dims is the
// extent the chunk grid was sized for.
func NewImplicitIndex(addr uint64, dims, chunk []uint64, chunkBytes uint32) *ImplicitIndex {
	return &ImplicitIndex{addr: addr, dims: dims, chunk: chunk, size: chunkBytes}
}

func (ix *ImplicitIndex) Get(offset []uint64) (*btree.Chunk, bool) {
	var n uint64
	for d := range ix.chunk {
		per := (ix.dims[d] + ix.chunk[d] - 1) / ix.chunk[d]
		i := offset[d] / ix.chunk[d]
		if i >= per {
			return nil, false
		}
		n = n*per + i
	}
	return &btree.Chunk{
		Offset:  offset,
		Size:    ix.size,
		Address: ix.addr + n*uint64(ix.size),
	}, true
}
