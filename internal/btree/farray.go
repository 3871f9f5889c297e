package btree

import (
	"fmt"

	bin "github.com/robert-malhotra/go-lofar-dal/internal/binary"
)

// arrayHeader is the part of fixed and extensible array headers that
// describes their elements.
type arrayHeader struct {
	client    uint8
	entrySize int
}

func (ah arrayHeader) format(offsetSize int, chunkBytes uint32) (entryFormat, error) {
	switch ah.client {
	case clientChunks, clientFilteredChunks:
	default:
		return entryFormat{}, fmt.Errorf("array client %d is not a chunk index", ah.client)
	}
	return newEntryFormat(ah.client == clientFilteredChunks, ah.entrySize, offsetSize, chunkBytes)
}

// ReadFixedArrayIndex loads a chunk index stored as a fixed array, as
// written for datasets with a fixed maximum extent. dims is that extent.
// Fixed arrays are only read; the index is never dirty after loading.
func ReadFixedArrayIndex(r *bin.Reader, addr uint64, dims, chunk []uint64, chunkBytes uint32) (*Index, error) {
	ix := NewIndex(chunk)
	if addr == bin.Undefined {
		return ix, nil
	}
	osz := r.OffsetSize()
	hr, err := block(r, addr, 4+1+1+1+1+r.LengthSize()+osz, "FAHD")
	if err != nil {
		return nil, err
	}
	if err := version(hr, "fixed array header"); err != nil {
		return nil, err
	}
	var ah arrayHeader
	if ah.client, err = hr.Uint8(); err != nil {
		return nil, err
	}
	es, err := hr.Uint8()
	if err != nil {
		return nil, err
	}
	ah.entrySize = int(es)
	pageBits, err := hr.Uint8()
	if err != nil {
		return nil, err
	}
	n, err := hr.Length()
	if err != nil {
		return nil, err
	}
	dblk, err := hr.Offset()
	if err != nil {
		return nil, err
	}
	ef, err := ah.format(osz, chunkBytes)
	if err != nil {
		return nil, fmt.Errorf("fixed array at %#x: %w", addr, err)
	}
	g, err := newGrid(dims, chunk, -1)
	if err != nil {
		return nil, fmt.Errorf("fixed array at %#x: %w", addr, err)
	}
	if dblk == bin.Undefined || n == 0 || n == bin.Undefined {
		return ix, nil
	}
	if pageBits >= 32 {
		return nil, fmt.Errorf("fixed array at %#x: %d page bits", addr, pageBits)
	}

	prefix := 4 + 1 + 1 + osz
	pageN := uint64(1) << pageBits
	if n <= pageN {
		dr, err := block(r, dblk, prefix+int(n)*ah.entrySize, "FADB")
		if err != nil {
			return nil, err
		}
		if err := arrayBlockPrefix(dr, "fixed array data block", 0); err != nil {
			return nil, err
		}
		return ix, ix.loadEntries(dr, ef, g, 0, n)
	}

	npages := (n + pageN - 1) / pageN
	maskLen := int((npages + 7) / 8)
	dr, err := block(r, dblk, prefix+maskLen, "FADB")
	if err != nil {
		return nil, err
	}
	if err := arrayBlockPrefix(dr, "fixed array data block", 0); err != nil {
		return nil, err
	}
	mask, err := dr.Bytes(maskLen)
	if err != nil {
		return nil, err
	}
	first := dblk + uint64(prefix+maskLen+4)
	if err := ix.loadPages(r, ef, g, first, mask, 0, n, pageN, ah.entrySize); err != nil {
		return nil, fmt.Errorf("fixed array at %#x: %w", addr, err)
	}
	return ix, nil
}

// arrayBlockPrefix checks the version of an array block and skips its
// client ID, owning header address and block offset.
func arrayBlockPrefix(r *bin.Reader, what string, offsetLen int) error {
	if err := version(r, what); err != nil {
		return err
	}
	r.Skip(int64(1 + r.OffsetSize() + offsetLen))
	return nil
}

// loadPages reads the n elements of a paged data block numbered from base.
// Pages follow one another from addr, each with its own checksum. Pages
// whose bit in mask is clear were never written and are skipped.
func (ix *Index) loadPages(r *bin.Reader, ef entryFormat, g grid, addr uint64, mask []byte, base, n, pageN uint64, entrySize int) error {
	stride := pageN*uint64(entrySize) + 4
	for p := uint64(0); p*pageN < n; p++ {
		if mask != nil && mask[p/8]&(0x80>>(p%8)) == 0 {
			continue
		}
		cnt := min(pageN, n-p*pageN)
		pr, err := block(r, addr+p*stride, int(cnt)*entrySize, "")
		if err != nil {
			return fmt.Errorf("page %d: %w", p, err)
		}
		if err := ix.loadEntries(pr, ef, g, base+p*pageN, cnt); err != nil {
			return err
		}
	}
	return nil
}
