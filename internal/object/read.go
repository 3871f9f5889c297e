package object

import (
	"fmt"

	bin "github.com/robert-malhotra/go-lofar-dal/internal/binary"
	"github.com/robert-malhotra/go-lofar-dal/internal/message"
)

/*
Version 2 object header ("OHDR"):

	signature(4) version(1) flags(1)
	[times(16) if flags&0x20] [phase change(4) if flags&0x10]
	chunk0 size(1<<(flags&3))
	messages: type(1) size(2) flags(1) [order(2) if flags&0x04] body
	checksum(4)

Continuation chunks are "OCHK", messages, checksum.

Version 1 object header:

	version(1) reserved(1) count(2) refcount(4) size(4) reserved(4)
	messages: type(2) size(2) flags(1) reserved(3) body, 8-byte aligned

Version 1 continuation blocks hold bare messages.
*/

const (
	signature     = "OHDR"
	contSignature = "OCHK"

	maxChunks = 1024
)

// Message flag bit marking a message stored in the shared message heap.
const msgShared = 0x02

// Read parses the object header at addr.
func Read(r *bin.Reader, addr uint64) (*Header, error) {
	if addr == bin.Undefined {
		return nil, fmt.Errorf("%w: undefined address", ErrInvalidHeader)
	}
	sig, err := r.At(int64(addr)).Bytes(4)
	if err != nil {
		return nil, fmt.Errorf("object header at %#x: %w", addr, err)
	}
	switch {
	case string(sig) == signature:
		return readV2(r, addr)
	case sig[0] == 1:
		return readV1(r, addr)
	}
	return nil, fmt.Errorf("%w at %#x", ErrInvalidHeader, addr)
}

func readV2(r *bin.Reader, addr uint64) (*Header, error) {
	rr := r.At(int64(addr) + 4)
	version, err := rr.Uint8()
	if err != nil {
		return nil, err
	}
	if version != 2 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	flags, err := rr.Uint8()
	if err != nil {
		return nil, err
	}
	var prefixLen int
	if flags&flagStoreTimes != 0 {
		prefixLen += 16
	}
	if flags&flagPhaseChange != 0 {
		prefixLen += 4
	}
	prefix, err := rr.Bytes(prefixLen)
	if err != nil {
		return nil, err
	}
	width := 1 << (flags & flagSizeMask)
	size, err := rr.UintN(width)
	if err != nil {
		return nil, err
	}
	head := uint64(6+prefixLen+width) + size
	raw, err := r.At(int64(addr)).Bytes(int(head + 4))
	if err != nil {
		return nil, fmt.Errorf("object header at %#x: %w", addr, err)
	}
	if err := verify(raw); err != nil {
		return nil, fmt.Errorf("object header at %#x: %w", addr, err)
	}

	h := &Header{
		Version:  2,
		Address:  addr,
		Flags:    flags,
		RefCount: 1,
		Chunks:   []Chunk{{Address: addr, Size: head + 4}},
		prefix:   prefix,
	}
	conts, err := h.parseV2(raw[head-size:head], r.Config())
	if err != nil {
		return nil, err
	}
	for len(conts) > 0 {
		c := conts[0]
		conts = conts[1:]
		if len(h.Chunks) >= maxChunks {
			return nil, fmt.Errorf("%w: too many continuation chunks", ErrInvalidHeader)
		}
		raw, err := r.At(int64(c.Address)).Bytes(int(c.Length))
		if err != nil {
			return nil, fmt.Errorf("continuation chunk at %#x: %w", c.Address, err)
		}
		if len(raw) < 8 || string(raw[:4]) != contSignature {
			return nil, fmt.Errorf("%w: bad continuation signature at %#x", ErrInvalidHeader, c.Address)
		}
		if err := verify(raw); err != nil {
			return nil, fmt.Errorf("continuation chunk at %#x: %w", c.Address, err)
		}
		h.Chunks = append(h.Chunks, Chunk{Address: c.Address, Size: c.Length})
		more, err := h.parseV2(raw[4:len(raw)-4], r.Config())
		if err != nil {
			return nil, err
		}
		conts = append(conts, more...)
	}
	return h, nil
}

func verify(raw []byte) error {
	n := len(raw) - 4
	want := bin.DecodeUint(raw[n:], bin.DefaultConfig().ByteOrder)
	if got := bin.Lookup3(raw[:n]); uint64(got) != want {
		return fmt.Errorf("%w: stored %#x, computed %#x", ErrChecksumMismatch, want, got)
	}
	return nil
}

func (h *Header) msgHeaderLen() int {
	if h.Version == 1 {
		return 8
	}
	if h.Flags&flagTrackOrder != 0 {
		return 6
	}
	return 4
}

func (h *Header) parseV2(data []byte, cfg bin.Config) ([]*message.Continuation, error) {
	var conts []*message.Continuation
	hl := h.msgHeaderLen()
	order := cfg.ByteOrder
	for p := 0; p+hl <= len(data); {
		typ := message.Type(data[p])
		size := int(order.Uint16(data[p+1:]))
		flags := data[p+3]
		var ord uint16
		if hl == 6 {
			ord = order.Uint16(data[p+4:])
		}
		p += hl
		if p+size > len(data) {
			return nil, fmt.Errorf("%w: message type %#x overruns its chunk", ErrInvalidHeader, uint16(typ))
		}
		c, err := h.addRaw(typ, flags, ord, data[p:p+size], cfg)
		if err != nil {
			return nil, err
		}
		if c != nil {
			conts = append(conts, c)
		}
		p += size
	}
	return conts, nil
}

func (h *Header) addRaw(typ message.Type, flags uint8, ord uint16, body []byte, cfg bin.Config) (*message.Continuation, error) {
	if typ == message.TypeNil {
		return nil, nil
	}
	var m message.Message
	if flags&msgShared != 0 {
		m = &message.Unknown{MsgType: typ, Data: append([]byte(nil), body...)}
	} else {
		var err error
		if m, err = message.Parse(typ, body, cfg); err != nil {
			return nil, fmt.Errorf("object header at %#x: %w", h.Address, err)
		}
	}
	if c, ok := m.(*message.Continuation); ok {
		return c, nil
	}
	h.Entries = append(h.Entries, Entry{Msg: m, Flags: flags, Order: ord})
	return nil, nil
}

func readV1(r *bin.Reader, addr uint64) (*Header, error) {
	rr := r.At(int64(addr))
	version, err := rr.Uint8()
	if err != nil {
		return nil, err
	}
	if version != 1 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	rr.Skip(1)
	if _, err := rr.Uint16(); err != nil {
		return nil, err
	}
	refs, err := rr.Uint32()
	if err != nil {
		return nil, err
	}
	size, err := rr.Uint32()
	if err != nil {
		return nil, err
	}
	h := &Header{
		Version:  1,
		Address:  addr,
		RefCount: refs,
		Chunks:   []Chunk{{Address: addr, Size: 16 + uint64(size)}},
	}
	pending := []*message.Continuation{{Address: addr + 16, Length: uint64(size)}}
	for len(pending) > 0 {
		c := pending[0]
		pending = pending[1:]
		if len(h.Chunks) >= maxChunks {
			return nil, fmt.Errorf("%w: too many continuation blocks", ErrInvalidHeader)
		}
		data, err := r.At(int64(c.Address)).Bytes(int(c.Length))
		if err != nil {
			return nil, fmt.Errorf("object header block at %#x: %w", c.Address, err)
		}
		if c.Address != addr+16 {
			h.Chunks = append(h.Chunks, Chunk{Address: c.Address, Size: c.Length})
		}
		more, err := h.parseV1(data, r.Config())
		if err != nil {
			return nil, err
		}
		pending = append(pending, more...)
	}
	return h, nil
}

func (h *Header) parseV1(data []byte, cfg bin.Config) ([]*message.Continuation, error) {
	var conts []*message.Continuation
	order := cfg.ByteOrder
	for p := 0; p+8 <= len(data); {
		typ := message.Type(order.Uint16(data[p:]))
		size := int(order.Uint16(data[p+2:]))
		flags := data[p+4]
		p += 8
		if p+size > len(data) {
			return nil, fmt.Errorf("%w: message type %#x overruns its block", ErrInvalidHeader, uint16(typ))
		}
		c, err := h.addRaw(typ, flags, 0, data[p:p+size], cfg)
		if err != nil {
			return nil, err
		}
		if c != nil {
			conts = append(conts, c)
		}
		p = (p + size + 7) &^ 7
	}
	return conts, nil
}
