package btree

import (
	"fmt"

	bin "github.com/robert-malhotra/go-lofar-dal/internal/binary"
)

// v2Header is the header of a version 2 B-tree ("BTHD") and the node
// geometry derived from it.
type v2Header struct {
	typ        uint8
	nodeSize   uint32
	recordSize int
	depth      int
	root       uint64
	rootRecs   int
	total      uint64

	nrecSize int   // width of a child's record count
	cumSize  []int // width of a child's total record count, by depth
}

// v2 nodes start with a signature, version and type and end with a checksum.
const v2NodePrefix = 4 + 1 + 1 + 4

func readV2Header(r *bin.Reader, addr uint64) (*v2Header, error) {
	hr, err := block(r, addr, 4+1+1+4+2+2+1+1+r.OffsetSize()+2+r.LengthSize(), "BTHD")
	if err != nil {
		return nil, err
	}
	if err := version(hr, "v2 B-tree header"); err != nil {
		return nil, err
	}
	h := &v2Header{}
	if h.typ, err = hr.Uint8(); err != nil {
		return nil, err
	}
	if h.nodeSize, err = hr.Uint32(); err != nil {
		return nil, err
	}
	rs, err := hr.Uint16()
	if err != nil {
		return nil, err
	}
	depth, err := hr.Uint16()
	if err != nil {
		return nil, err
	}
	h.recordSize, h.depth = int(rs), int(depth)
	hr.Skip(2) // split and merge percentages
	if h.root, err = hr.Offset(); err != nil {
		return nil, err
	}
	n, err := hr.Uint16()
	if err != nil {
		return nil, err
	}
	h.rootRecs = int(n)
	if h.total, err = hr.Length(); err != nil {
		return nil, err
	}
	if h.depth > maxDepth {
		return nil, fmt.Errorf("v2 B-tree at %#x: depth %d", addr, h.depth)
	}
	if h.recordSize == 0 {
		return nil, fmt.Errorf("v2 B-tree at %#x: zero record size", addr)
	}

	leafMax := (int(h.nodeSize) - v2NodePrefix) / h.recordSize
	if leafMax <= 0 {
		return nil, fmt.Errorf("v2 B-tree at %#x: node size %d holds no records", addr, h.nodeSize)
	}
	h.nrecSize = encSize(uint64(leafMax))
	h.cumSize = make([]int, h.depth+1)
	cum := uint64(leafMax)
	for d := 1; d <= h.depth; d++ {
		ptr := h.pointerSize(r.OffsetSize(), d)
		maxRecs := (int(h.nodeSize) - v2NodePrefix - ptr) / (h.recordSize + ptr)
		if maxRecs <= 0 {
			return nil, fmt.Errorf("v2 B-tree at %#x: node size %d too small for depth %d", addr, h.nodeSize, h.depth)
		}
		cum = uint64(maxRecs+1)*cum + uint64(maxRecs)
		h.cumSize[d] = encSize(cum)
	}
	return h, nil
}

// pointerSize is the width of a child pointer in an internal node at depth d.
func (h *v2Header) pointerSize(offsetSize, d int) int {
	n := offsetSize + h.nrecSize
	if d > 1 {
		n += h.cumSize[d-1]
	}
	return n
}

// ReadV2Index loads a chunk index stored as a version 2 B-tree, as written
// for datasets with more than one unlimited axis. Version 2 trees are only
// read; the index is never dirty after loading.
func ReadV2Index(r *bin.Reader, addr uint64, chunk []uint64, chunkBytes uint32) (*Index, error) {
	ix := NewIndex(chunk)
	if addr == bin.Undefined {
		return ix, nil
	}
	h, err := readV2Header(r, addr)
	if err != nil {
		return nil, err
	}
	if h.typ != recordChunks && h.typ != recordFilteredChunks {
		return nil, fmt.Errorf("v2 B-tree at %#x: record type %d is not a chunk index", addr, h.typ)
	}
	ef, err := newEntryFormat(h.typ == recordFilteredChunks, h.recordSize-8*len(chunk), r.OffsetSize(), chunkBytes)
	if err != nil {
		return nil, fmt.Errorf("v2 B-tree at %#x: %w", addr, err)
	}
	if h.total == 0 || h.root == bin.Undefined {
		return ix, nil
	}
	if err := ix.readV2Node(r, h, ef, h.root, h.rootRecs, h.depth); err != nil {
		return nil, err
	}
	return ix, nil
}

func (ix *Index) readV2Node(r *bin.Reader, h *v2Header, ef entryFormat, addr uint64, nrec, depth int) error {
	sig, size, ptr := "BTLF", 6+nrec*h.recordSize, 0
	if depth > 0 {
		sig = "BTIN"
		ptr = h.pointerSize(r.OffsetSize(), depth)
		size += (nrec + 1) * ptr
	}
	nr, err := block(r, addr, size, sig)
	if err != nil {
		return err
	}
	if err := version(nr, "v2 B-tree node"); err != nil {
		return err
	}
	if typ, err := nr.Uint8(); err != nil {
		return err
	} else if typ != h.typ {
		return fmt.Errorf("v2 B-tree node at %#x: record type %d, header says %d", addr, typ, h.typ)
	}
	for i := 0; i < nrec; i++ {
		if err := ix.readV2Record(nr, ef); err != nil {
			return err
		}
	}
	if depth == 0 {
		return nil
	}
	for i := 0; i <= nrec; i++ {
		child, err := nr.Offset()
		if err != nil {
			return err
		}
		n, err := nr.UintN(h.nrecSize)
		if err != nil {
			return err
		}
		if depth > 1 {
			nr.Skip(int64(h.cumSize[depth-1]))
		}
		if err := ix.readV2Node(r, h, ef, child, int(n), depth-1); err != nil {
			return err
		}
	}
	return nil
}

// readV2Record reads one chunk record: the entry followed by the scaled
// chunk coordinates.
func (ix *Index) readV2Record(r *bin.Reader, ef entryFormat) error {
	c, err := ef.read(r)
	if err != nil {
		return err
	}
	c.Offset = make([]uint64, ix.rank)
	for d := range c.Offset {
		s, err := r.Uint64()
		if err != nil {
			return err
		}
		c.Offset[d] = s * ix.chunk[d]
	}
	if c.Address != bin.Undefined {
		ix.load(c)
	}
	return nil
}
