package object

import (
	"errors"

	"github.com/robert-malhotra/go-lofar-dal/internal/message"
)

var (
	ErrInvalidHeader      = errors.New("invalid object header")
	ErrUnsupportedVersion = errors.New("unsupported object header version")
	ErrChecksumMismatch   = errors.New("object header checksum mismatch")
	ErrReadOnly           = errors.New("object header version cannot be rewritten")
)

// Header flag bits for version 2 headers.
const (
	flagSizeMask    = 0x03
	flagTrackOrder  = 0x04
	flagIndexOrder  = 0x08
	flagPhaseChange = 0x10
	flagStoreTimes  = 0x20
)

// Entry is one message of a header together with its message flags.
type Entry struct {
	Msg   message.Message
	Flags uint8
	Order uint16
}

// Chunk is a contiguous span of header bytes on disk, including any
// signature, prefix and checksum.
type Chunk struct {
	Address uint64
	Size    uint64
}

// Header is a parsed object header.
type Header struct {
	Version  uint8
	Address  uint64
	Flags    uint8
	RefCount uint32
	Entries  []Entry
	Chunks   []Chunk

	// prefix holds the optional times and phase change fields of a v2
	// header so a rewrite reproduces them.
	prefix []byte
}

// Message returns the first message of type typ, or nil.
func (h *Header) Message(typ message.Type) message.Message {
	for _, e := range h.Entries {
		if e.Msg.Type() == typ {
			return e.Msg
		}
	}
	return nil
}

// Messages returns all messages of type typ in storage order.
func (h *Header) Messages(typ message.Type) []message.Message {
	var out []message.Message
	for _, e := range h.Entries {
		if e.Msg.Type() == typ {
			out = append(out, e.Msg)
		}
	}
	return out
}

func (h *Header) Dataspace() *message.Dataspace {
	m, _ := h.Message(message.TypeDataspace).(*message.Dataspace)
	return m
}

func (h *Header) Datatype() *message.Datatype {
	m, _ := h.Message(message.TypeDatatype).(*message.Datatype)
	return m
}

func (h *Header) Layout() *message.Layout {
	m, _ := h.Message(message.TypeLayout).(*message.Layout)
	return m
}

func (h *Header) Filters() *message.FilterPipeline {
	m, _ := h.Message(message.TypeFilterPipeline).(*message.FilterPipeline)
	return m
}

// FillValue returns the fill value message, falling back to the old-style
// message found in classic files.
func (h *Header) FillValue() *message.FillValue {
	if m, ok := h.Message(message.TypeFillValue).(*message.FillValue); ok {
		return m
	}
	m, _ := h.Message(message.TypeFillValueOld).(*message.FillValue)
	return m
}

func (h *Header) LinkInfo() *message.LinkInfo {
	m, _ := h.Message(message.TypeLinkInfo).(*message.LinkInfo)
	return m
}

func (h *Header) SymbolTable() *message.SymbolTable {
	m, _ := h.Message(message.TypeSymbolTable).(*message.SymbolTable)
	return m
}

// IsGroup reports whether the header describes a group in either the
// compact-link or the symbol-table representation.
func (h *Header) IsGroup() bool {
	return h.LinkInfo() != nil || h.SymbolTable() != nil || (h.Layout() == nil && len(h.Links()) > 0)
}

// IsDataset reports whether the header carries a data layout.
func (h *Header) IsDataset() bool {
	return h.Layout() != nil
}

// Links returns the compact link messages.
func (h *Header) Links() []*message.Link {
	var out []*message.Link
	for _, e := range h.Entries {
		if l, ok := e.Msg.(*message.Link); ok {
			out = append(out, l)
		}
	}
	return out
}

// Link returns the link called name, or nil.
func (h *Header) Link(name string) *message.Link {
	for _, l := range h.Links() {
		if l.Name == name {
			return l
		}
	}
	return nil
}

// Attributes returns the compact attribute messages in storage order.
func (h *Header) Attributes() []*message.Attribute {
	var out []*message.Attribute
	for _, e := range h.Entries {
		if a, ok := e.Msg.(*message.Attribute); ok {
			out = append(out, a)
		}
	}
	return out
}

// Attribute returns the attribute called name, or nil.
func (h *Header) Attribute(name string) *message.Attribute {
	for _, a := range h.Attributes() {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Set replaces the first message of m's type, or appends m.
func (h *Header) Set(m message.Message) {
	for i, e := range h.Entries {
		if e.Msg.Type() == m.Type() {
			h.Entries[i].Msg = m
			return
		}
	}
	h.Add(m)
}

// Add appends m.
func (h *Header) Add(m message.Message) {
	var flags uint8
	if _, ok := m.(*message.Datatype); ok {
		flags = 0x01 // constant
	}
	h.Entries = append(h.Entries, Entry{Msg: m, Flags: flags})
}

// SetAttribute replaces the attribute with a's name in place, or appends a.
func (h *Header) SetAttribute(a *message.Attribute) {
	for i, e := range h.Entries {
		if old, ok := e.Msg.(*message.Attribute); ok && old.Name == a.Name {
			h.Entries[i].Msg = a
			return
		}
	}
	h.Add(a)
}

// RemoveAttribute drops the attribute called name and reports whether it
// existed.
func (h *Header) RemoveAttribute(name string) bool {
	return h.remove(func(m message.Message) bool {
		a, ok := m.(*message.Attribute)
		return ok && a.Name == name
	})
}

// RemoveLink drops the link called name and reports whether it existed.
func (h *Header) RemoveLink(name string) bool {
	return h.remove(func(m message.Message) bool {
		l, ok := m.(*message.Link)
		return ok && l.Name == name
	})
}

func (h *Header) remove(match func(message.Message) bool) bool {
	for i, e := range h.Entries {
		if match(e.Msg) {
			h.Entries = append(h.Entries[:i], h.Entries[i+1:]...)
			return true
		}
	}
	return false
}
