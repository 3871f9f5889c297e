package layout

import (
	"fmt"
	"io"

	bin "github.com/robert-malhotra/go-lofar-dal/internal/binary"
)

// Contiguous is storage in one block of the file.
type Contiguous struct {
	r    io.ReaderAt
	w    io.WriterAt
	addr uint64
	p    Params
}

// NewContiguous returns a store for the block at addr. w may be nil for a
// read-only file. An undefined address reads as the fill value.
func NewContiguous(r io.ReaderAt, w io.WriterAt, addr uint64, p Params) *Contiguous {
	return &Contiguous{r: r, w: w, addr: addr, p: p}
}

// extents merges runs into file byte ranges, each paired with its position
// in the packed buffer.
func (c *Contiguous) extents(runs []Run) [][3]uint64 {
	es := uint64(c.p.ElemSize)
	var out [][3]uint64 // file offset, buffer offset, length
	var pos uint64
	for _, r := range runs {
		off := c.addr + linear(r.Start, c.p.Dims)*es
		n := r.Len * es
		if k := len(out) - 1; k >= 0 && out[k][0]+out[k][2] == off && out[k][1]+out[k][2] == pos {
			out[k][2] += n
		} else {
			out = append(out, [3]uint64{off, pos, n})
		}
		pos += n
	}
	return out
}

func (c *Contiguous) Read(runs []Run, dst []byte) error {
	if err := checkBuffer(runs, dst, c.p.ElemSize); err != nil {
		return err
	}
	if c.addr == bin.Undefined {
		fill(dst, c.p.Fill)
		return nil
	}
	for _, e := range c.extents(runs) {
		if _, err := c.r.ReadAt(dst[e[1]:e[1]+e[2]], int64(e[0])); err != nil {
			return fmt.Errorf("reading %d bytes at %d: %w", e[2], e[0], err)
		}
	}
	return nil
}

func (c *Contiguous) Write(runs []Run, src []byte) error {
	if c.w == nil {
		return ErrReadOnly
	}
	if c.addr == bin.Undefined {
		return ErrNotAllocated
	}
	if err := checkBuffer(runs, src, c.p.ElemSize); err != nil {
		return err
	}
	for _, e := range c.extents(runs) {
		if _, err := c.w.WriteAt(src[e[1]:e[1]+e[2]], int64(e[0])); err != nil {
			return fmt.Errorf("writing %d bytes at %d: %w", e[2], e[0], err)
		}
	}
	return nil
}

// Compact is storage inside the object header.
type Compact struct {
	data []byte
	p    Params
}

// NewCompact returns a read-only store over compact data.
func NewCompact(data []byte, p Params) *Compact {
	return &Compact{data: data, p: p}
}

func (c *Compact) Read(runs []Run, dst []byte) error {
	if err := checkBuffer(runs, dst, c.p.ElemSize); err != nil {
		return err
	}
	es := uint64(c.p.ElemSize)
	var pos uint64
	for _, r := range runs {
		off := linear(r.Start, c.p.Dims) * es
		n := r.Len * es
		if off+n > uint64(len(c.data)) {
			return fmt.Errorf("compact data holds %d bytes, need %d", len(c.data), off+n)
		}
		copy(dst[pos:pos+n], c.data[off:])
		pos += n
	}
	return nil
}

func (c *Compact) Write([]Run, []byte) error { return ErrReadOnly }
