package heap

import (
	"fmt"

	bin "github.com/robert-malhotra/go-lofar-dal/internal/binary"
)

// Local is a local heap, the name store of a classic group.
type Local struct {
	DataSize    uint64
	FreeOffset  uint64
	DataAddress uint64
	data        []byte
}

// ReadLocal reads the local heap at addr and its data segment.
func ReadLocal(r *bin.Reader, addr uint64) (*Local, error) {
	hr := r.At(int64(addr))
	sig, err := hr.Bytes(4)
	if err != nil {
		return nil, fmt.Errorf("local heap at %#x: %w", addr, err)
	}
	if string(sig) != "HEAP" {
		return nil, fmt.Errorf("local heap at %#x: bad signature %q", addr, sig)
	}
	version, err := hr.Uint8()
	if err != nil {
		return nil, err
	}
	if version != 0 {
		return nil, fmt.Errorf("local heap at %#x: unsupported version %d", addr, version)
	}
	hr.Skip(3)

	h := &Local{}
	if h.DataSize, err = hr.Length(); err != nil {
		return nil, err
	}
	if h.FreeOffset, err = hr.Length(); err != nil {
		return nil, err
	}
	if h.DataAddress, err = hr.Offset(); err != nil {
		return nil, err
	}
	if h.data, err = r.At(int64(h.DataAddress)).Bytes(int(h.DataSize)); err != nil {
		return nil, fmt.Errorf("local heap data at %#x: %w", h.DataAddress, err)
	}
	return h, nil
}

// String returns the NUL-terminated string at offset, or "" when offset is
// outside the data segment.
func (h *Local) String(offset uint64) string {
	if offset >= uint64(len(h.data)) {
		return ""
	}
	end := offset
	for end < uint64(len(h.data)) && h.data[end] != 0 {
		end++
	}
	return string(h.data[offset:end])
}
