package btree

import (
	"bytes"
	"errors"
	"slices"
	"testing"

	bin "github.com/robert-malhotra/go-lofar-dal/internal/binary"
)

// image lays out checksummed index structures one after another, children
// before the blocks that point at them.
type image struct{ b *bin.Buffer }

func newImage() *image {
	b := bin.NewBuffer(bin.DefaultConfig())
	b.PutZeros(16)
	return &image{b}
}

// add appends the block written by fn and its checksum and returns its
// address.
func (im *image) add(fn func(b *bin.Buffer)) uint64 {
	addr := im.b.Len()
	fn(im.b)
	im.b.PutChecksum(addr)
	return uint64(addr)
}

func (im *image) reader() *bin.Reader {
	return bin.NewReader(bytes.NewReader(im.b.Bytes()), bin.DefaultConfig())
}

func wantChunk(t *testing.T, ix *Index, off []uint64, addr uint64, size uint32) {
	t.Helper()
	c, ok := ix.Get(off)
	if !ok {
		t.Errorf("Get(%v) missed", off)
		return
	}
	if c.Address != addr || c.Size != size {
		t.Errorf("Get(%v) = %+v, want address %d size %d", off, c, addr, size)
	}
}

func TestGridOffset(t *testing.T) {
	tests := []struct {
		dims, chunk []uint64
		first       int
		n           uint64
		want        []uint64
	}{
		{[]uint64{10, 8}, []uint64{5, 4}, -1, 3, []uint64{5, 4}},
		{[]uint64{10, 8}, []uint64{5, 4}, -1, 1, []uint64{0, 4}},
		{[]uint64{9}, []uint64{4}, -1, 2, []uint64{8}},
		{[]uint64{bin.Undefined, 6}, []uint64{2, 3}, 0, 3, []uint64{2, 3}},
		{[]uint64{6, bin.Undefined}, []uint64{3, 2}, 1, 5, []uint64{3, 4}},
	}
	for _, tt := range tests {
		g, err := newGrid(tt.dims, tt.chunk, tt.first)
		if err != nil {
			t.Fatalf("newGrid(%v, %v): %v", tt.dims, tt.chunk, err)
		}
		if got := g.offset(tt.n); !slices.Equal(got, tt.want) {
			t.Errorf("grid %v/%v offset(%d) = %v, want %v", tt.dims, tt.chunk, tt.n, got, tt.want)
		}
	}
	if _, err := newGrid([]uint64{bin.Undefined}, []uint64{4}, -1); err == nil {
		t.Error("unlimited axis outside the first position should fail")
	}
}

func TestEncSize(t *testing.T) {
	tests := []struct {
		n    uint64
		want int
	}{
		{0, 1}, {1, 1}, {255, 1}, {256, 2}, {314, 2}, {1 << 16, 3},
	}
	for _, tt := range tests {
		if got := encSize(tt.n); got != tt.want {
			t.Errorf("encSize(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

// fixedArray builds a 2x2 chunk grid with one unallocated chunk and returns
// the image, the header address and the data block address.
func fixedArray() (*image, uint64, uint64) {
	im := newImage()
	dblk := im.add(func(b *bin.Buffer) {
		b.PutString("FADB")
		b.PutUint8(0)
		b.PutUint8(clientChunks)
		b.PutOffset(0)
		for _, a := range []uint64{1000, bin.Undefined, 3000, 4000} {
			b.PutOffset(a)
		}
	})
	hdr := im.add(func(b *bin.Buffer) {
		b.PutString("FAHD")
		b.PutUint8(0)
		b.PutUint8(clientChunks)
		b.PutUint8(8)
		b.PutUint8(10)
		b.PutLength(4)
		b.PutOffset(dblk)
	})
	return im, hdr, dblk
}

func TestReadFixedArrayIndex(t *testing.T) {
	im, hdr, _ := fixedArray()
	ix, err := ReadFixedArrayIndex(im.reader(), hdr, []uint64{10, 8}, []uint64{5, 4}, 160)
	if err != nil {
		t.Fatalf("ReadFixedArrayIndex: %v", err)
	}
	if ix.Len() != 3 {
		t.Fatalf("Len = %d, want 3", ix.Len())
	}
	wantChunk(t, ix, []uint64{0, 0}, 1000, 160)
	wantChunk(t, ix, []uint64{5, 0}, 3000, 160)
	wantChunk(t, ix, []uint64{5, 4}, 4000, 160)
	if _, ok := ix.Get([]uint64{0, 4}); ok {
		t.Error("unallocated chunk should miss")
	}
	if ix.Dirty() {
		t.Error("a loaded index should not be dirty")
	}
}

func TestReadFixedArrayIndexChecksum(t *testing.T) {
	im, hdr, dblk := fixedArray()
	im.b.Bytes()[dblk+20] ^= 0xff
	_, err := ReadFixedArrayIndex(im.reader(), hdr, []uint64{10, 8}, []uint64{5, 4}, 160)
	if !errors.Is(err, ErrChecksum) {
		t.Fatalf("err = %v, want ErrChecksum", err)
	}
}

func TestReadFixedArrayIndexPaged(t *testing.T) {
	const entrySize = 8 + 2 + 4
	entry := func(b *bin.Buffer, i uint64) {
		b.PutOffset(100 * (i + 1))
		b.PutUintN(50+i, 2)
		b.PutUint32(uint32(i % 2))
	}

	// 10 filtered chunks in pages of 4; the middle page was never written.
	im := newImage()
	dblk := im.add(func(b *bin.Buffer) {
		b.PutString("FADB")
		b.PutUint8(0)
		b.PutUint8(clientFilteredChunks)
		b.PutOffset(0)
		b.PutUint8(0xa0)
	})
	im.add(func(b *bin.Buffer) {
		for i := uint64(0); i < 4; i++ {
			entry(b, i)
		}
	})
	im.b.PutZeros(4*entrySize + 4)
	im.add(func(b *bin.Buffer) {
		for i := uint64(8); i < 10; i++ {
			entry(b, i)
		}
	})
	hdr := im.add(func(b *bin.Buffer) {
		b.PutString("FAHD")
		b.PutUint8(0)
		b.PutUint8(clientFilteredChunks)
		b.PutUint8(entrySize)
		b.PutUint8(2)
		b.PutLength(10)
		b.PutOffset(dblk)
	})

	ix, err := ReadFixedArrayIndex(im.reader(), hdr, []uint64{10}, []uint64{1}, 8)
	if err != nil {
		t.Fatalf("ReadFixedArrayIndex: %v", err)
	}
	if ix.Len() != 6 {
		t.Fatalf("Len = %d, want 6", ix.Len())
	}
	wantChunk(t, ix, []uint64{0}, 100, 50)
	wantChunk(t, ix, []uint64{9}, 1000, 59)
	if c, ok := ix.Get([]uint64{3}); !ok || c.FilterMask != 1 {
		t.Errorf("Get(3) = %+v, %v", c, ok)
	}
	if _, ok := ix.Get([]uint64{5}); ok {
		t.Error("chunk in an unwritten page should miss")
	}
}

func TestReadV2Index(t *testing.T) {
	const recordSize = 8 + 2*8
	record := func(b *bin.Buffer, addr, s0, s1 uint64) {
		b.PutOffset(addr)
		b.PutUint64(s0)
		b.PutUint64(s1)
	}
	leaf := func(im *image, recs ...[3]uint64) uint64 {
		return im.add(func(b *bin.Buffer) {
			b.PutString("BTLF")
			b.PutUint8(0)
			b.PutUint8(recordChunks)
			for _, r := range recs {
				record(b, r[0], r[1], r[2])
			}
		})
	}

	im := newImage()
	left := leaf(im, [3]uint64{100, 0, 0}, [3]uint64{200, 0, 1})
	right := leaf(im, [3]uint64{500, 2, 0})
	root := im.add(func(b *bin.Buffer) {
		b.PutString("BTIN")
		b.PutUint8(0)
		b.PutUint8(recordChunks)
		record(b, 300, 1, 0)
		b.PutOffset(left)
		b.PutUint8(2)
		b.PutOffset(right)
		b.PutUint8(1)
	})
	hdr := im.add(func(b *bin.Buffer) {
		b.PutString("BTHD")
		b.PutUint8(0)
		b.PutUint8(recordChunks)
		b.PutUint32(512)
		b.PutUint16(recordSize)
		b.PutUint16(1)
		b.PutUint8(100)
		b.PutUint8(40)
		b.PutOffset(root)
		b.PutUint16(1)
		b.PutLength(4)
	})

	ix, err := ReadV2Index(im.reader(), hdr, []uint64{4, 4}, 64)
	if err != nil {
		t.Fatalf("ReadV2Index: %v", err)
	}
	if ix.Len() != 4 {
		t.Fatalf("Len = %d, want 4", ix.Len())
	}
	wantChunk(t, ix, []uint64{0, 4}, 200, 64)
	wantChunk(t, ix, []uint64{4, 0}, 300, 64)
	wantChunk(t, ix, []uint64{8, 0}, 500, 64)
}

func TestReadV2IndexFiltered(t *testing.T) {
	im := newImage()
	root := im.add(func(b *bin.Buffer) {
		b.PutString("BTLF")
		b.PutUint8(0)
		b.PutUint8(recordFilteredChunks)
		b.PutOffset(700)
		b.PutUint32(33)
		b.PutUint32(2)
		b.PutUint64(3)
	})
	hdr := im.add(func(b *bin.Buffer) {
		b.PutString("BTHD")
		b.PutUint8(0)
		b.PutUint8(recordFilteredChunks)
		b.PutUint32(512)
		b.PutUint16(8 + 4 + 4 + 8)
		b.PutUint16(0)
		b.PutUint8(100)
		b.PutUint8(40)
		b.PutOffset(root)
		b.PutUint16(1)
		b.PutLength(1)
	})

	ix, err := ReadV2Index(im.reader(), hdr, []uint64{10}, 80)
	if err != nil {
		t.Fatalf("ReadV2Index: %v", err)
	}
	c, ok := ix.Get([]uint64{30})
	if !ok || c.Address != 700 || c.Size != 33 || c.FilterMask != 2 {
		t.Fatalf("Get(30) = %+v, %v", c, ok)
	}
}

func TestReadV2IndexWrongType(t *testing.T) {
	im := newImage()
	hdr := im.add(func(b *bin.Buffer) {
		b.PutString("BTHD")
		b.PutUint8(0)
		b.PutUint8(5) // link name records
		b.PutUint32(512)
		b.PutUint16(11)
		b.PutUint16(0)
		b.PutUint8(100)
		b.PutUint8(40)
		b.PutOffset(bin.Undefined)
		b.PutUint16(0)
		b.PutLength(0)
	})
	if _, err := ReadV2Index(im.reader(), hdr, []uint64{10}, 80); err == nil {
		t.Fatal("a link name B-tree should not load as a chunk index")
	}
}

func TestReadExtensibleArrayIndex(t *testing.T) {
	// Two elements in the index block, then data blocks of 2 and 4
	// elements, then super blocks holding pairs of 4-element data blocks.
	dims, chunk := []uint64{bin.Undefined, 6}, []uint64{2, 3}
	dataBlock := func(im *image, offset uint64, addrs ...uint64) uint64 {
		return im.add(func(b *bin.Buffer) {
			b.PutString("EADB")
			b.PutUint8(0)
			b.PutUint8(clientChunks)
			b.PutOffset(0)
			b.PutUintN(offset, 2)
			for _, a := range addrs {
				b.PutOffset(a)
			}
		})
	}

	im := newImage()
	d0 := dataBlock(im, 2, 1200, 1300)
	d3 := dataBlock(im, 12, 2200, bin.Undefined, bin.Undefined, bin.Undefined)
	sblk := im.add(func(b *bin.Buffer) {
		b.PutString("EASB")
		b.PutUint8(0)
		b.PutUint8(clientChunks)
		b.PutOffset(0)
		b.PutUintN(8, 2)
		b.PutOffset(bin.Undefined)
		b.PutOffset(d3)
	})
	iblk := im.add(func(b *bin.Buffer) {
		b.PutString("EAIB")
		b.PutUint8(0)
		b.PutUint8(clientChunks)
		b.PutOffset(0)
		b.PutOffset(1000)
		b.PutOffset(bin.Undefined)
		b.PutOffset(d0)
		b.PutOffset(bin.Undefined)
		b.PutOffset(sblk)
		for i := 0; i < 7; i++ {
			b.PutOffset(bin.Undefined)
		}
	})
	hdr := im.add(func(b *bin.Buffer) {
		b.PutString("EAHD")
		b.PutUint8(0)
		b.PutUint8(clientChunks)
		b.PutUint8(8)  // element size
		b.PutUint8(10) // max element bits
		b.PutUint8(2)  // index block elements
		b.PutUint8(2)  // data block minimum
		b.PutUint8(2)  // super block minimum pointers
		b.PutUint8(10) // page bits
		for i := 0; i < 6; i++ {
			b.PutLength(0)
		}
		b.PutOffset(iblk)
	})

	ix, err := ReadExtensibleArrayIndex(im.reader(), hdr, dims, chunk, 48)
	if err != nil {
		t.Fatalf("ReadExtensibleArrayIndex: %v", err)
	}
	if ix.Len() != 4 {
		t.Fatalf("Len = %d, want 4", ix.Len())
	}
	wantChunk(t, ix, []uint64{0, 0}, 1000, 48)
	wantChunk(t, ix, []uint64{2, 0}, 1200, 48)
	wantChunk(t, ix, []uint64{2, 3}, 1300, 48)
	wantChunk(t, ix, []uint64{12, 0}, 2200, 48)
	if _, ok := ix.Get([]uint64{0, 3}); ok {
		t.Error("unallocated chunk should miss")
	}

	if _, err := ReadExtensibleArrayIndex(im.reader(), hdr, []uint64{10, 6}, chunk, 48); err == nil {
		t.Error("an extent without an unlimited axis should fail")
	}
}

func TestReadIndexUndefined(t *testing.T) {
	r := newImage().reader()
	for name, read := range map[string]func() (*Index, error){
		"fixed":      func() (*Index, error) { return ReadFixedArrayIndex(r, bin.Undefined, []uint64{4}, []uint64{2}, 8) },
		"extensible": func() (*Index, error) { return ReadExtensibleArrayIndex(r, bin.Undefined, []uint64{4}, []uint64{2}, 8) },
		"v2":         func() (*Index, error) { return ReadV2Index(r, bin.Undefined, []uint64{2}, 8) },
	} {
		ix, err := read()
		if err != nil || ix.Len() != 0 {
			t.Errorf("%s: index %v, err %v", name, ix, err)
		}
	}
}
