package btree

import (
	"fmt"
	"math/bits"

	bin "github.com/robert-malhotra/go-lofar-dal/internal/binary"
)

// earray is the geometry of an extensible array, derived from its header.
type earray struct {
	arrayHeader
	maxBits     uint8
	idxElmts    uint64
	dblkMin     uint64
	sblkMinPtrs uint64
	pageN       uint64
	offsetLen   int // width of block offsets
	sblks       []sblkInfo
}

// sblkInfo describes the data blocks reached through super block u.
type sblkInfo struct {
	ndblks    uint64
	dblkN     uint64 // elements per data block
	startIdx  uint64
	startDblk uint64
}

func isPow2(n uint64) bool { return n != 0 && n&(n-1) == 0 }

func (ea *earray) init() error {
	if !isPow2(ea.dblkMin) || !isPow2(ea.sblkMinPtrs) {
		return fmt.Errorf("block minimums %d and %d are not powers of two", ea.dblkMin, ea.sblkMinPtrs)
	}
	minBits := bits.TrailingZeros64(ea.dblkMin)
	if int(ea.maxBits) < minBits || ea.maxBits > 64 {
		return fmt.Errorf("%d element bits with data blocks of %d", ea.maxBits, ea.dblkMin)
	}
	ea.offsetLen = (int(ea.maxBits) + 7) / 8
	var idx, dblk uint64
	for u := 0; u < 1+int(ea.maxBits)-minBits; u++ {
		s := sblkInfo{
			ndblks:    1 << (u / 2),
			dblkN:     ea.dblkMin << ((u + 1) / 2),
			startIdx:  idx,
			startDblk: dblk,
		}
		ea.sblks = append(ea.sblks, s)
		idx += s.ndblks * s.dblkN
		dblk += s.ndblks
	}
	return nil
}

// ReadExtensibleArrayIndex loads a chunk index stored as an extensible
// array, as written for datasets with one unlimited axis. dims is the
// maximum extent; its single unlimited axis is numbered first. Extensible
// arrays are only read; the index is never dirty after loading.
func ReadExtensibleArrayIndex(r *bin.Reader, addr uint64, dims, chunk []uint64, chunkBytes uint32) (*Index, error) {
	ix := NewIndex(chunk)
	if addr == bin.Undefined {
		return ix, nil
	}
	unlim := -1
	for d, n := range dims {
		if n == bin.Undefined {
			if unlim >= 0 {
				return nil, fmt.Errorf("extensible array at %#x: more than one unlimited axis", addr)
			}
			unlim = d
		}
	}
	if unlim < 0 {
		return nil, fmt.Errorf("extensible array at %#x: no unlimited axis", addr)
	}

	osz, lsz := r.OffsetSize(), r.LengthSize()
	hr, err := block(r, addr, 4+1+1+1+1+1+1+1+1+6*lsz+osz, "EAHD")
	if err != nil {
		return nil, err
	}
	if err := version(hr, "extensible array header"); err != nil {
		return nil, err
	}
	raw, err := hr.Bytes(7)
	if err != nil {
		return nil, err
	}
	ea := &earray{
		arrayHeader: arrayHeader{client: raw[0], entrySize: int(raw[1])},
		maxBits:     raw[2],
		idxElmts:    uint64(raw[3]),
		dblkMin:     uint64(raw[4]),
		sblkMinPtrs: uint64(raw[5]),
	}
	if raw[6] >= 32 {
		return nil, fmt.Errorf("extensible array at %#x: %d page bits", addr, raw[6])
	}
	ea.pageN = 1 << raw[6]
	hr.Skip(int64(6 * lsz)) // statistics
	iblk, err := hr.Offset()
	if err != nil {
		return nil, err
	}
	if err := ea.init(); err != nil {
		return nil, fmt.Errorf("extensible array at %#x: %w", addr, err)
	}
	ef, err := ea.format(osz, chunkBytes)
	if err != nil {
		return nil, fmt.Errorf("extensible array at %#x: %w", addr, err)
	}
	g, err := newGrid(dims, chunk, unlim)
	if err != nil {
		return nil, fmt.Errorf("extensible array at %#x: %w", addr, err)
	}
	if iblk == bin.Undefined {
		return ix, nil
	}
	if err := ix.readEAIndexBlock(r, ea, ef, g, iblk); err != nil {
		return nil, fmt.Errorf("extensible array at %#x: %w", addr, err)
	}
	return ix, nil
}

func (ix *Index) readEAIndexBlock(r *bin.Reader, ea *earray, ef entryFormat, g grid, addr uint64) error {
	osz := r.OffsetSize()
	// The first 2*log2(sblkMinPtrs) super blocks have their data blocks
	// listed directly in the index block.
	direct := 2 * bits.TrailingZeros64(ea.sblkMinPtrs)
	ndblk := int(2 * (ea.sblkMinPtrs - 1))
	nsblk := max(len(ea.sblks)-direct, 0)
	ir, err := block(r, addr, 4+1+1+osz+int(ea.idxElmts)*ea.entrySize+(ndblk+nsblk)*osz, "EAIB")
	if err != nil {
		return err
	}
	if err := arrayBlockPrefix(ir, "extensible array index block", 0); err != nil {
		return err
	}
	if err := ix.loadEntries(ir, ef, g, 0, ea.idxElmts); err != nil {
		return err
	}
	u := 0
	for j := 0; j < ndblk; j++ {
		da, err := ir.Offset()
		if err != nil {
			return err
		}
		for u+1 < min(direct, len(ea.sblks)) && uint64(j) >= ea.sblks[u+1].startDblk {
			u++
		}
		if da == bin.Undefined {
			continue
		}
		s := ea.sblks[u]
		base := ea.idxElmts + s.startIdx + (uint64(j)-s.startDblk)*s.dblkN
		if err := ix.readEADataBlock(r, ea, ef, g, da, base, s.dblkN, nil); err != nil {
			return err
		}
	}
	for k := 0; k < nsblk; k++ {
		sa, err := ir.Offset()
		if err != nil {
			return err
		}
		if sa == bin.Undefined {
			continue
		}
		if err := ix.readEASuperBlock(r, ea, ef, g, sa, ea.sblks[direct+k]); err != nil {
			return err
		}
	}
	return nil
}

func (ix *Index) readEASuperBlock(r *bin.Reader, ea *earray, ef entryFormat, g grid, addr uint64, s sblkInfo) error {
	osz := r.OffsetSize()
	maskLen := 0
	if s.dblkN > ea.pageN {
		maskLen = int((s.dblkN/ea.pageN + 7) / 8)
	}
	sr, err := block(r, addr, 4+1+1+osz+ea.offsetLen+int(s.ndblks)*(maskLen+osz), "EASB")
	if err != nil {
		return err
	}
	if err := arrayBlockPrefix(sr, "extensible array super block", ea.offsetLen); err != nil {
		return err
	}
	masks, err := sr.Bytes(int(s.ndblks) * maskLen)
	if err != nil {
		return err
	}
	for k := uint64(0); k < s.ndblks; k++ {
		da, err := sr.Offset()
		if err != nil {
			return err
		}
		if da == bin.Undefined {
			continue
		}
		var mask []byte
		if maskLen > 0 {
			mask = masks[int(k)*maskLen : int(k+1)*maskLen]
		}
		base := ea.idxElmts + s.startIdx + k*s.dblkN
		if err := ix.readEADataBlock(r, ea, ef, g, da, base, s.dblkN, mask); err != nil {
			return err
		}
	}
	return nil
}

// readEADataBlock reads the n elements of the data block at addr, numbered
// from base. Blocks larger than a page are split into pages; a nil mask
// reads them all.
func (ix *Index) readEADataBlock(r *bin.Reader, ea *earray, ef entryFormat, g grid, addr, base, n uint64, mask []byte) error {
	prefix := 4 + 1 + 1 + r.OffsetSize() + ea.offsetLen
	if n <= ea.pageN {
		dr, err := block(r, addr, prefix+int(n)*ea.entrySize, "EADB")
		if err != nil {
			return err
		}
		if err := arrayBlockPrefix(dr, "extensible array data block", ea.offsetLen); err != nil {
			return err
		}
		return ix.loadEntries(dr, ef, g, base, n)
	}
	dr, err := block(r, addr, prefix, "EADB")
	if err != nil {
		return err
	}
	if err := arrayBlockPrefix(dr, "extensible array data block", ea.offsetLen); err != nil {
		return err
	}
	return ix.loadPages(r, ef, g, addr+uint64(prefix+4), mask, base, n, ea.pageN, ea.entrySize)
}
