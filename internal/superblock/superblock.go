package superblock

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	bin "github.com/robert-malhotra/go-lofar-dal/internal/binary"
)

// Signature is the 8-byte HDF5 format signature.
var Signature = []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}

var (
	ErrNotHDF5            = errors.New("not an HDF5 file")
	ErrUnsupportedVersion = errors.New("unsupported superblock version")
	ErrChecksum           = errors.New("superblock checksum mismatch")
)

// maxSearchOffset bounds the user-block search.
const maxSearchOffset = 1 << 20

// Superblock holds the decoded superblock fields this library uses.
type Superblock struct {
	Version    uint8
	OffsetSize uint8
	LengthSize uint8
	Flags      uint8

	// Offset is where the signature was found.
	Offset int64

	BaseAddress      uint64
	ExtensionAddress uint64
	EOF              uint64
	RootAddress      uint64

	// Classic (v0/v1) root symbol table entry scratch pad, when cached.
	RootBTreeAddress uint64
	RootHeapAddress  uint64
	GroupLeafK       uint16
	GroupInternalK   uint16
	ChunkK           uint16
}

// Config returns the binary configuration for the rest of the file.
func (sb *Superblock) Config() bin.Config {
	return bin.Config{
		ByteOrder:  binary.LittleEndian,
		OffsetSize: int(sb.OffsetSize),
		LengthSize: int(sb.LengthSize),
	}
}

// Writable reports whether this library can modify the file in place.
func (sb *Superblock) Writable() bool {
	return sb.Version >= 2 && sb.OffsetSize == 8 && sb.LengthSize == 8
}

// ChunkBTreeK is the half node width of v1 chunk B-trees in this file.
func (sb *Superblock) ChunkBTreeK() int {
	if sb.ChunkK != 0 {
		return int(sb.ChunkK)
	}
	return 32
}

// Read locates the signature and decodes the superblock that follows.
func Read(r io.ReaderAt) (*Superblock, error) {
	sig := make([]byte, 9)
	for off := int64(0); off <= maxSearchOffset; {
		if _, err := r.ReadAt(sig, off); err != nil {
			break
		}
		if bytes.Equal(sig[:8], Signature) {
			sb, err := decode(r, off, sig[8])
			if err != nil {
				return nil, err
			}
			sb.Offset = off
			return sb, nil
		}
		if off == 0 {
			off = 512
		} else {
			off *= 2
		}
	}
	return nil, ErrNotHDF5
}

func decode(r io.ReaderAt, off int64, version uint8) (*Superblock, error) {
	switch version {
	case 0, 1:
		return decodeClassic(r, off, version)
	case 2, 3:
		return decodeV2(r, off, version)
	}
	return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
}

func decodeClassic(r io.ReaderAt, off int64, version uint8) (*Superblock, error) {
	fixed := make([]byte, 16)
	if _, err := r.ReadAt(fixed, off+8); err != nil {
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	sb := &Superblock{
		Version:        version,
		OffsetSize:     fixed[5],
		LengthSize:     fixed[6],
		GroupLeafK:     binary.LittleEndian.Uint16(fixed[8:10]),
		GroupInternalK: binary.LittleEndian.Uint16(fixed[10:12]),
	}
	cfg := sb.Config()
	rd := bin.NewReader(r, cfg).At(off + 24)
	if version == 1 {
		k, err := rd.Uint16()
		if err != nil {
			return nil, err
		}
		sb.ChunkK = k
		rd.Skip(2)
	}

	var err error
	if sb.BaseAddress, err = rd.Offset(); err != nil {
		return nil, err
	}
	rd.Skip(int64(cfg.OffsetSize)) // free-space info
	if sb.EOF, err = rd.Offset(); err != nil {
		return nil, err
	}
	rd.Skip(int64(cfg.OffsetSize)) // driver info block

	// Root group symbol table entry.
	rd.Skip(int64(cfg.OffsetSize)) // link name offset
	if sb.RootAddress, err = rd.Offset(); err != nil {
		return nil, err
	}
	cacheType, err := rd.Uint32()
	if err != nil {
		return nil, err
	}
	rd.Skip(4)
	if cacheType == 1 {
		if sb.RootBTreeAddress, err = rd.Offset(); err != nil {
			return nil, err
		}
		if sb.RootHeapAddress, err = rd.Offset(); err != nil {
			return nil, err
		}
	}
	return sb, nil
}

func decodeV2(r io.ReaderAt, off int64, version uint8) (*Superblock, error) {
	head := make([]byte, 4)
	if _, err := r.ReadAt(head, off+8); err != nil {
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	sb := &Superblock{
		Version:    version,
		OffsetSize: head[1],
		LengthSize: head[2],
		Flags:      head[3],
	}
	size := 12 + 4*int(sb.OffsetSize)
	raw := make([]byte, size+4)
	if _, err := r.ReadAt(raw, off); err != nil {
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	if binary.LittleEndian.Uint32(raw[size:]) != bin.Lookup3(raw[:size]) {
		return nil, ErrChecksum
	}

	rd := bin.NewReader(bytes.NewReader(raw), sb.Config()).At(12)
	var err error
	if sb.BaseAddress, err = rd.Offset(); err != nil {
		return nil, err
	}
	if sb.ExtensionAddress, err = rd.Offset(); err != nil {
		return nil, err
	}
	if sb.EOF, err = rd.Offset(); err != nil {
		return nil, err
	}
	if sb.RootAddress, err = rd.Offset(); err != nil {
		return nil, err
	}
	return sb, nil
}
