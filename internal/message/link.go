package message

import (
	"bytes"
	"fmt"

	bin "github.com/robert-malhotra/go-lofar-dal/internal/binary"
)

// LinkType is the kind of a link.
type LinkType uint8

const (
	LinkHard     LinkType = 0
	LinkSoft     LinkType = 1
	LinkExternal LinkType = 64
)

// Link is a link message naming one child of a compact group.
type Link struct {
	Name     string
	Charset  Charset
	LinkType LinkType

	// HasOrder reports whether CreationOrder was stored.
	HasOrder      bool
	CreationOrder uint64

	Address    uint64
	SoftTarget string
	// ExternalFile and ExternalPath are decoded but never followed.
	ExternalFile string
	ExternalPath string
}

func (m *Link) Type() Type { return TypeLink }

func decodeLink(r *bin.Reader) (*Link, error) {
	head, err := r.Bytes(2)
	if err != nil {
		return nil, err
	}
	if head[0] != 1 {
		return nil, fmt.Errorf("link version %d", head[0])
	}
	flags := head[1]
	m := &Link{}
	if flags&0x08 != 0 {
		t, err := r.Uint8()
		if err != nil {
			return nil, err
		}
		m.LinkType = LinkType(t)
	}
	if flags&0x04 != 0 {
		m.HasOrder = true
		if m.CreationOrder, err = r.Uint64(); err != nil {
			return nil, err
		}
	}
	if flags&0x10 != 0 {
		cs, err := r.Uint8()
		if err != nil {
			return nil, err
		}
		m.Charset = Charset(cs)
	}
	nlen, err := r.UintN(1 << (flags & 0x03))
	if err != nil {
		return nil, err
	}
	name, err := r.Bytes(int(nlen))
	if err != nil {
		return nil, err
	}
	m.Name = string(name)

	switch m.LinkType {
	case LinkHard:
		m.Address, err = r.Offset()
	case LinkSoft:
		var n uint16
		if n, err = r.Uint16(); err == nil {
			var p []byte
			p, err = r.Bytes(int(n))
			m.SoftTarget = string(p)
		}
	case LinkExternal:
		var n uint16
		if n, err = r.Uint16(); err == nil {
			var p []byte
			if p, err = r.Bytes(int(n)); err == nil && len(p) > 1 {
				parts := bytes.SplitN(p[1:], []byte{0}, 3)
				m.ExternalFile = string(parts[0])
				if len(parts) > 1 {
					m.ExternalPath = string(parts[1])
				}
			}
		}
	default:
		err = fmt.Errorf("unsupported link type %d", m.LinkType)
	}
	return m, err
}

// Encode writes a hard or soft link, version 1.
func (m *Link) Encode(b *bin.Buffer) error {
	var flags uint8
	width := 1
	switch {
	case len(m.Name) > 0xffff:
		flags, width = 2, 4
	case len(m.Name) > 0xff:
		flags, width = 1, 2
	}
	if m.HasOrder {
		flags |= 0x04
	}
	if m.LinkType != LinkHard {
		flags |= 0x08
	}
	if m.Charset != ASCII {
		flags |= 0x10
	}
	b.PutUint8(1)
	b.PutUint8(flags)
	if m.LinkType != LinkHard {
		b.PutUint8(uint8(m.LinkType))
	}
	if m.HasOrder {
		b.PutUint64(m.CreationOrder)
	}
	if m.Charset != ASCII {
		b.PutUint8(uint8(m.Charset))
	}
	b.PutUintN(uint64(len(m.Name)), width)
	b.PutString(m.Name)
	switch m.LinkType {
	case LinkHard:
		b.PutOffset(m.Address)
	case LinkSoft:
		b.PutUint16(uint16(len(m.SoftTarget)))
		b.PutString(m.SoftTarget)
	default:
		return fmt.Errorf("cannot encode link type %d", m.LinkType)
	}
	return nil
}

// LinkInfo is the link info message of a new-style group.
type LinkInfo struct {
	TrackOrder bool
	IndexOrder bool
	// MaxCreationIndex is the creation order the next link receives.
	MaxCreationIndex uint64
	HeapAddress      uint64
	NameIndexAddress uint64
	OrderIndexAddr   uint64
}

func (m *LinkInfo) Type() Type { return TypeLinkInfo }

// NewLinkInfo returns link info for a compact group tracking creation order.
func NewLinkInfo() *LinkInfo {
	return &LinkInfo{TrackOrder: true, HeapAddress: bin.Undefined,
		NameIndexAddress: bin.Undefined, OrderIndexAddr: bin.Undefined}
}

// Dense reports whether links live in a fractal heap instead of messages.
func (m *LinkInfo) Dense() bool { return m.HeapAddress != bin.Undefined }

func decodeLinkInfo(r *bin.Reader) (*LinkInfo, error) {
	head, err := r.Bytes(2)
	if err != nil {
		return nil, err
	}
	m := &LinkInfo{TrackOrder: head[1]&0x01 != 0, IndexOrder: head[1]&0x02 != 0,
		OrderIndexAddr: bin.Undefined}
	if m.TrackOrder {
		if m.MaxCreationIndex, err = r.Uint64(); err != nil {
			return nil, err
		}
	}
	if m.HeapAddress, err = r.Offset(); err != nil {
		return nil, err
	}
	if m.NameIndexAddress, err = r.Offset(); err != nil {
		return nil, err
	}
	if m.IndexOrder {
		if m.OrderIndexAddr, err = r.Offset(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *LinkInfo) Encode(b *bin.Buffer) error {
	var flags uint8
	if m.TrackOrder {
		flags |= 0x01
	}
	if m.IndexOrder {
		flags |= 0x02
	}
	b.PutUint8(0)
	b.PutUint8(flags)
	if m.TrackOrder {
		b.PutUint64(m.MaxCreationIndex)
	}
	b.PutOffset(m.HeapAddress)
	b.PutOffset(m.NameIndexAddress)
	if m.IndexOrder {
		b.PutOffset(m.OrderIndexAddr)
	}
	return nil
}

// GroupInfo is the group info message. The library writes it with default
// values, which readers interpret as the HDF5 defaults.
type GroupInfo struct {
	MaxCompact, MinDense    uint16
	EstEntries, EstNameLen  uint16
	hasLimits, hasEstimates bool
}

func (m *GroupInfo) Type() Type { return TypeGroupInfo }

func decodeGroupInfo(r *bin.Reader) (*GroupInfo, error) {
	head, err := r.Bytes(2)
	if err != nil {
		return nil, err
	}
	m := &GroupInfo{hasLimits: head[1]&0x01 != 0, hasEstimates: head[1]&0x02 != 0}
	if m.hasLimits {
		if m.MaxCompact, err = r.Uint16(); err != nil {
			return nil, err
		}
		if m.MinDense, err = r.Uint16(); err != nil {
			return nil, err
		}
	}
	if m.hasEstimates {
		if m.EstEntries, err = r.Uint16(); err != nil {
			return nil, err
		}
		if m.EstNameLen, err = r.Uint16(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *GroupInfo) Encode(b *bin.Buffer) error {
	var flags uint8
	if m.hasLimits {
		flags |= 0x01
	}
	if m.hasEstimates {
		flags |= 0x02
	}
	b.PutUint8(0)
	b.PutUint8(flags)
	if m.hasLimits {
		b.PutUint16(m.MaxCompact)
		b.PutUint16(m.MinDense)
	}
	if m.hasEstimates {
		b.PutUint16(m.EstEntries)
		b.PutUint16(m.EstNameLen)
	}
	return nil
}
