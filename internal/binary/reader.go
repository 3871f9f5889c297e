// Package binary provides the little-endian primitives shared by the HDF5
// structure parsers and serializers: a positioned reader over io.ReaderAt,
// an append-only encoding buffer and the checksums HDF5 uses.
package binary

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Undefined is the "undefined address" sentinel for 8-byte offsets.
const Undefined = ^uint64(0)

// ErrShortRead is returned when the underlying source ends before the
// requested number of bytes.
var ErrShortRead = errors.New("short read")

// Config carries the sizes a file's superblock declares for addresses and
// lengths.
type Config struct {
	ByteOrder  binary.ByteOrder
	OffsetSize int
	LengthSize int
}

// DefaultConfig is the layout used for every file this library creates and
// for probing a superblock before its sizes are known.
func DefaultConfig() Config {
	return Config{ByteOrder: binary.LittleEndian, OffsetSize: 8, LengthSize: 8}
}

// UndefinedFor returns the all-ones sentinel for an n-byte field.
func UndefinedFor(n int) uint64 {
	if n >= 8 {
		return Undefined
	}
	return (uint64(1) << (8 * uint(n))) - 1
}

// Reader reads HDF5 fields sequentially from a position in an io.ReaderAt.
// Readers are cheap values; At and WithConfig derive new ones.
type Reader struct {
	src io.ReaderAt
	cfg Config
	pos int64
}

// NewReader returns a reader positioned at offset zero.
func NewReader(src io.ReaderAt, cfg Config) *Reader {
	return &Reader{src: src, cfg: cfg}
}

// At returns a reader on the same source positioned at off.
func (r *Reader) At(off int64) *Reader {
	return &Reader{src: r.src, cfg: r.cfg, pos: off}
}

// WithConfig returns a reader sharing the position but using cfg.
func (r *Reader) WithConfig(cfg Config) *Reader {
	return &Reader{src: r.src, cfg: cfg, pos: r.pos}
}

// Source exposes the underlying io.ReaderAt.
func (r *Reader) Source() io.ReaderAt { return r.src }

// Config returns the active field sizes.
func (r *Reader) Config() Config { return r.cfg }

func (r *Reader) Pos() int64 { return r.pos }

func (r *Reader) OffsetSize() int { return r.cfg.OffsetSize }

func (r *Reader) LengthSize() int { return r.cfg.LengthSize }

// Skip advances the position by n bytes.
func (r *Reader) Skip(n int64) { r.pos += n }

// Align rounds the position up to a multiple of n.
func (r *Reader) Align(n int64) {
	if n > 1 && r.pos%n != 0 {
		r.pos += n - r.pos%n
	}
}

// Bytes reads exactly n bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative read length %d", n)
	}
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	got, err := r.src.ReadAt(buf, r.pos)
	if got < n {
		if err == nil || err == io.EOF {
			err = ErrShortRead
		}
		return nil, fmt.Errorf("reading %d bytes at %d: %w", n, r.pos, err)
	}
	r.pos += int64(n)
	return buf, nil
}

func (r *Reader) Uint8() (uint8, error) {
	b, err := r.Bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) Uint16() (uint16, error) {
	b, err := r.Bytes(2)
	if err != nil {
		return 0, err
	}
	return r.cfg.ByteOrder.Uint16(b), nil
}

func (r *Reader) Uint32() (uint32, error) {
	b, err := r.Bytes(4)
	if err != nil {
		return 0, err
	}
	return r.cfg.ByteOrder.Uint32(b), nil
}

func (r *Reader) Uint64() (uint64, error) {
	b, err := r.Bytes(8)
	if err != nil {
		return 0, err
	}
	return r.cfg.ByteOrder.Uint64(b), nil
}

// UintN reads an n-byte unsigned integer, 1 <= n <= 8.
func (r *Reader) UintN(n int) (uint64, error) {
	b, err := r.Bytes(n)
	if err != nil {
		return 0, err
	}
	return DecodeUint(b, r.cfg.ByteOrder), nil
}

// Offset reads a file address.
func (r *Reader) Offset() (uint64, error) {
	v, err := r.UintN(r.cfg.OffsetSize)
	if err != nil {
		return 0, err
	}
	if v == UndefinedFor(r.cfg.OffsetSize) {
		return Undefined, nil
	}
	return v, nil
}

// Length reads a length field.
func (r *Reader) Length() (uint64, error) {
	v, err := r.UintN(r.cfg.LengthSize)
	if err != nil {
		return 0, err
	}
	if v == UndefinedFor(r.cfg.LengthSize) {
		return Undefined, nil
	}
	return v, nil
}

// DecodeUint decodes a 1..8 byte unsigned integer.
func DecodeUint(b []byte, order binary.ByteOrder) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(order.Uint16(b))
	case 4:
		return uint64(order.Uint32(b))
	case 8:
		return order.Uint64(b)
	}
	var v uint64
	if order == binary.BigEndian {
		for _, c := range b {
			v = v<<8 | uint64(c)
		}
		return v
	}
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
