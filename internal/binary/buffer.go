package binary

import "encoding/binary"

// Buffer accumulates an encoded structure in memory. Structures are built
// whole and then written with a single WriteAt so checksums can be computed
// over the final bytes.
type Buffer struct {
	b   []byte
	cfg Config
}

// NewBuffer returns an empty buffer using cfg for offsets and lengths.
func NewBuffer(cfg Config) *Buffer {
	return &Buffer{cfg: cfg}
}

func (b *Buffer) Config() Config { return b.cfg }

func (b *Buffer) Len() int { return len(b.b) }

// Bytes returns the encoded bytes. The slice aliases the buffer.
func (b *Buffer) Bytes() []byte { return b.b }

// Reset empties the buffer, keeping its capacity.
func (b *Buffer) Reset() { b.b = b.b[:0] }

func (b *Buffer) PutBytes(p []byte) { b.b = append(b.b, p...) }

func (b *Buffer) PutString(s string) { b.b = append(b.b, s...) }

func (b *Buffer) PutUint8(v uint8) { b.b = append(b.b, v) }

func (b *Buffer) PutUint16(v uint16) {
	var tmp [2]byte
	b.cfg.ByteOrder.PutUint16(tmp[:], v)
	b.b = append(b.b, tmp[:]...)
}

func (b *Buffer) PutUint32(v uint32) {
	var tmp [4]byte
	b.cfg.ByteOrder.PutUint32(tmp[:], v)
	b.b = append(b.b, tmp[:]...)
}

func (b *Buffer) PutUint64(v uint64) {
	var tmp [8]byte
	b.cfg.ByteOrder.PutUint64(tmp[:], v)
	b.b = append(b.b, tmp[:]...)
}

// PutUintN appends the low n bytes of v.
func (b *Buffer) PutUintN(v uint64, n int) {
	var tmp [8]byte
	if b.cfg.ByteOrder == binary.BigEndian {
		binary.BigEndian.PutUint64(tmp[:], v)
		b.b = append(b.b, tmp[8-n:]...)
		return
	}
	binary.LittleEndian.PutUint64(tmp[:], v)
	b.b = append(b.b, tmp[:n]...)
}

// PutOffset appends a file address; Undefined is written as all ones.
func (b *Buffer) PutOffset(v uint64) {
	if v == Undefined {
		v = UndefinedFor(b.cfg.OffsetSize)
	}
	b.PutUintN(v, b.cfg.OffsetSize)
}

func (b *Buffer) PutLength(v uint64) {
	if v == Undefined {
		v = UndefinedFor(b.cfg.LengthSize)
	}
	b.PutUintN(v, b.cfg.LengthSize)
}

// PutZeros appends n zero bytes.
func (b *Buffer) PutZeros(n int) {
	for ; n > 0; n-- {
		b.b = append(b.b, 0)
	}
}

// PadTo appends zeros until the length is a multiple of n.
func (b *Buffer) PadTo(n int) {
	if n > 1 && len(b.b)%n != 0 {
		b.PutZeros(n - len(b.b)%n)
	}
}

// PutChecksum appends the lookup3 checksum of everything from start.
func (b *Buffer) PutChecksum(start int) {
	b.PutUint32(Lookup3(b.b[start:]))
}

// SetUint16At overwrites two bytes at pos.
func (b *Buffer) SetUint16At(pos int, v uint16) {
	b.cfg.ByteOrder.PutUint16(b.b[pos:], v)
}
