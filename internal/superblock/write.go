package superblock

import (
	"io"

	bin "github.com/robert-malhotra/go-lofar-dal/internal/binary"
)

// Size is the encoded size of a version 3 superblock with 8-byte offsets.
const Size = 12 + 4*8 + 4

// New returns the superblock written into freshly created files.
func New() *Superblock {
	return &Superblock{
		Version:          3,
		OffsetSize:       8,
		LengthSize:       8,
		ExtensionAddress: bin.Undefined,
	}
}

// Encode serializes a version 2 or 3 superblock with its checksum.
func (sb *Superblock) Encode() []byte {
	b := bin.NewBuffer(sb.Config())
	b.PutBytes(Signature)
	b.PutUint8(sb.Version)
	b.PutUint8(sb.OffsetSize)
	b.PutUint8(sb.LengthSize)
	b.PutUint8(sb.Flags)
	b.PutOffset(sb.BaseAddress)
	b.PutOffset(sb.ExtensionAddress)
	b.PutOffset(sb.EOF)
	b.PutOffset(sb.RootAddress)
	b.PutChecksum(0)
	return b.Bytes()
}

// WriteTo writes the superblock at its recorded offset.
func (sb *Superblock) WriteTo(w io.WriterAt) error {
	_, err := w.WriteAt(sb.Encode(), sb.Offset)
	return err
}
