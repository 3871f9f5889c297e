package btree

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
	"slices"

	bin "github.com/robert-malhotra/go-lofar-dal/internal/binary"
)

// ErrChecksum is returned when a checksummed index structure does not match
// its stored checksum.
var ErrChecksum = errors.New("chunk index checksum mismatch")

// Client IDs of fixed and extensible arrays, and record types of version 2
// B-trees, that index dataset chunks.
const (
	clientChunks         = 0
	clientFilteredChunks = 1

	recordChunks         = 10
	recordFilteredChunks = 11

	maxBlock = 64 << 20
)

// load adds a chunk read from the file without marking the index dirty.
func (ix *Index) load(c Chunk) {
	ix.tree.ReplaceOrInsert(&c)
}

// block reads n bytes at addr followed by their checksum and returns a reader
// over the n bytes positioned after the signature. An empty sig skips the
// signature check, as for array data block pages.
func block(r *bin.Reader, addr uint64, n int, sig string) (*bin.Reader, error) {
	if addr == bin.Undefined {
		return nil, fmt.Errorf("%s block at undefined address", sig)
	}
	if n < len(sig) || n > maxBlock {
		return nil, fmt.Errorf("%s block at %#x: size %d", sig, addr, n)
	}
	raw, err := r.At(int64(addr)).Bytes(n + 4)
	if err != nil {
		return nil, err
	}
	if string(raw[:len(sig)]) != sig {
		return nil, fmt.Errorf("block at %#x: bad signature %q, want %s", addr, raw[:len(sig)], sig)
	}
	if got, want := bin.Lookup3(raw[:n]), binary.LittleEndian.Uint32(raw[n:]); got != want {
		return nil, fmt.Errorf("%w: %s at %#x", ErrChecksum, sig, addr)
	}
	return bin.NewReader(bytes.NewReader(raw[:n]), r.Config()).At(int64(len(sig))), nil
}

// version reads a structure version byte, which must be zero.
func version(r *bin.Reader, what string) error {
	v, err := r.Uint8()
	if err != nil {
		return err
	}
	if v != 0 {
		return fmt.Errorf("%s version %d", what, v)
	}
	return nil
}

// encSize is the number of bytes HDF5 uses to store counts up to n.
func encSize(n uint64) int {
	if n == 0 {
		return 1
	}
	return (bits.Len64(n)-1)/8 + 1
}

// entryFormat is how a chunk address is stored in an array element or
// B-tree record. Filtered chunks also carry their stored size and filter
// mask.
type entryFormat struct {
	filtered   bool
	sizeLen    int
	chunkBytes uint32
}

func newEntryFormat(filtered bool, entrySize, offsetSize int, chunkBytes uint32) (entryFormat, error) {
	ef := entryFormat{filtered: filtered, chunkBytes: chunkBytes}
	if !filtered {
		if entrySize != offsetSize {
			return ef, fmt.Errorf("chunk entry of %d bytes, want %d", entrySize, offsetSize)
		}
		return ef, nil
	}
	ef.sizeLen = entrySize - offsetSize - 4
	if ef.sizeLen < 1 || ef.sizeLen > 8 {
		return ef, fmt.Errorf("filtered chunk entry of %d bytes", entrySize)
	}
	return ef, nil
}

func (ef entryFormat) read(r *bin.Reader) (Chunk, error) {
	var c Chunk
	var err error
	if c.Address, err = r.Offset(); err != nil {
		return c, err
	}
	if !ef.filtered {
		c.Size = ef.chunkBytes
		return c, nil
	}
	size, err := r.UintN(ef.sizeLen)
	if err != nil {
		return c, err
	}
	c.Size = uint32(size)
	c.FilterMask, err = r.Uint32()
	return c, err
}

// grid numbers the chunks of a dataset in row-major order over its maximum
// extent. Extensible arrays put the unlimited axis first.
type grid struct {
	chunk []uint64
	order []int
	down  []uint64
}

// newGrid lays out chunks over dims. A first axis >= 0 is moved to the front
// and may be unlimited.
func newGrid(dims, chunk []uint64, first int) (grid, error) {
	if len(dims) != len(chunk) {
		return grid{}, fmt.Errorf("chunk rank %d, dataset rank %d", len(chunk), len(dims))
	}
	order := make([]int, 0, len(dims))
	if first >= 0 {
		order = append(order, first)
	}
	for d := range dims {
		if d != first {
			order = append(order, d)
		}
	}
	g := grid{chunk: slices.Clone(chunk), order: order, down: make([]uint64, len(order))}
	n := uint64(1)
	for i := len(order) - 1; i >= 0; i-- {
		g.down[i] = n
		ax := order[i]
		if ax == first {
			continue
		}
		if chunk[ax] == 0 || dims[ax] == bin.Undefined {
			return grid{}, fmt.Errorf("axis %d: extent %d, chunk %d", ax, dims[ax], chunk[ax])
		}
		n *= max((dims[ax]+chunk[ax]-1)/chunk[ax], 1)
	}
	return g, nil
}

// offset returns the logical offset of chunk number n.
func (g grid) offset(n uint64) []uint64 {
	off := make([]uint64, len(g.order))
	for i, ax := range g.order {
		off[ax] = n / g.down[i] * g.chunk[ax]
		n %= g.down[i]
	}
	return off
}

// loadEntries reads n array elements numbered from first. Unallocated
// chunks have an undefined address and are skipped.
func (ix *Index) loadEntries(r *bin.Reader, ef entryFormat, g grid, first, n uint64) error {
	for i := uint64(0); i < n; i++ {
		c, err := ef.read(r)
		if err != nil {
			return err
		}
		if c.Address == bin.Undefined {
			continue
		}
		c.Offset = g.offset(first + i)
		ix.load(c)
	}
	return nil
}
