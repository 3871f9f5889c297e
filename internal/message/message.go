package message

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/robert-malhotra/go-lofar-dal/internal/binary"
)

// Type identifies a header message.
type Type uint16

const (
	TypeNil            Type = 0x00
	TypeDataspace      Type = 0x01
	TypeLinkInfo       Type = 0x02
	TypeDatatype       Type = 0x03
	TypeFillValueOld   Type = 0x04
	TypeFillValue      Type = 0x05
	TypeLink           Type = 0x06
	TypeExternalFiles  Type = 0x07
	TypeLayout         Type = 0x08
	TypeGroupInfo      Type = 0x0A
	TypeFilterPipeline Type = 0x0B
	TypeAttribute      Type = 0x0C
	TypeComment        Type = 0x0D
	TypeModTimeOld     Type = 0x0E
	TypeContinuation   Type = 0x10
	TypeSymbolTable    Type = 0x11
	TypeModTime        Type = 0x12
	TypeAttributeInfo  Type = 0x15
	TypeRefCount       Type = 0x16
)

// MaxSize is the largest message body an object header can hold.
const MaxSize = 0xFFFF

// ErrTooLarge is returned by Encode for bodies over MaxSize.
var ErrTooLarge = errors.New("message exceeds 65535 bytes")

// Message is a decoded header message.
type Message interface {
	Type() Type
}

// Encoder is implemented by messages the library writes.
type Encoder interface {
	Message
	Encode(b *bin.Buffer) error
}

// Parse decodes the body of a message of type typ.
func Parse(typ Type, data []byte, cfg bin.Config) (Message, error) {
	r := bin.NewReader(bytes.NewReader(data), cfg)
	var (
		m   Message
		err error
	)
	switch typ {
	case TypeDataspace:
		m, err = decodeDataspace(r)
	case TypeDatatype:
		m, err = DecodeDatatype(r)
	case TypeLayout:
		m, err = decodeLayout(r, len(data))
	case TypeFilterPipeline:
		m, err = decodeFilterPipeline(r)
	case TypeFillValue:
		m, err = decodeFillValue(r)
	case TypeFillValueOld:
		m, err = decodeFillValueOld(r)
	case TypeAttribute:
		m, err = decodeAttribute(r, len(data))
	case TypeLink:
		m, err = decodeLink(r)
	case TypeLinkInfo:
		m, err = decodeLinkInfo(r)
	case TypeGroupInfo:
		m, err = decodeGroupInfo(r)
	case TypeSymbolTable:
		m, err = decodeSymbolTable(r)
	case TypeContinuation:
		m, err = decodeContinuation(r)
	default:
		m = &Unknown{MsgType: typ, Data: append([]byte(nil), data...)}
	}
	if err != nil {
		return nil, fmt.Errorf("message type %#x: %w", uint16(typ), err)
	}
	return m, nil
}

// Encode serializes m into a fresh byte slice.
func Encode(m Message, cfg bin.Config) ([]byte, error) {
	enc, ok := m.(Encoder)
	if !ok {
		return nil, fmt.Errorf("message type %#x cannot be encoded", uint16(m.Type()))
	}
	b := bin.NewBuffer(cfg)
	if err := enc.Encode(b); err != nil {
		return nil, err
	}
	if b.Len() > MaxSize {
		return nil, fmt.Errorf("%w: type %#x is %d bytes", ErrTooLarge, uint16(m.Type()), b.Len())
	}
	return b.Bytes(), nil
}

// Unknown is a message kept as raw bytes.
type Unknown struct {
	MsgType Type
	Data    []byte
}

func (m *Unknown) Type() Type { return m.MsgType }

func (m *Unknown) Encode(b *bin.Buffer) error {
	b.PutBytes(m.Data)
	return nil
}

// Continuation points at the next chunk of an object header.
type Continuation struct {
	Address uint64
	Length  uint64
}

func (m *Continuation) Type() Type { return TypeContinuation }

func (m *Continuation) Encode(b *bin.Buffer) error {
	b.PutOffset(m.Address)
	b.PutLength(m.Length)
	return nil
}

func decodeContinuation(r *bin.Reader) (*Continuation, error) {
	addr, err := r.Offset()
	if err != nil {
		return nil, err
	}
	n, err := r.Length()
	if err != nil {
		return nil, err
	}
	return &Continuation{Address: addr, Length: n}, nil
}

// SymbolTable marks a classic group and locates its B-tree and local heap.
type SymbolTable struct {
	BTreeAddress uint64
	HeapAddress  uint64
}

func (m *SymbolTable) Type() Type { return TypeSymbolTable }

func decodeSymbolTable(r *bin.Reader) (*SymbolTable, error) {
	bt, err := r.Offset()
	if err != nil {
		return nil, err
	}
	hp, err := r.Offset()
	if err != nil {
		return nil, err
	}
	return &SymbolTable{BTreeAddress: bt, HeapAddress: hp}, nil
}

func cString(r *bin.Reader, max int) (string, error) {
	var out []byte
	for i := 0; max < 0 || i < max; i++ {
		c, err := r.Uint8()
		if err != nil {
			return "", err
		}
		if c == 0 {
			return string(out), nil
		}
		out = append(out, c)
	}
	return string(out), nil
}

func trimNul(p []byte) string {
	if i := bytes.IndexByte(p, 0); i >= 0 {
		p = p[:i]
	}
	return string(p)
}
