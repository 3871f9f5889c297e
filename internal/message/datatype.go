package message

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"strings"

	bin "github.com/robert-malhotra/go-lofar-dal/internal/binary"
)

// Class is a datatype class.
type Class uint8

const (
	ClassFixed     Class = 0
	ClassFloat     Class = 1
	ClassTime      Class = 2
	ClassString    Class = 3
	ClassBitfield  Class = 4
	ClassOpaque    Class = 5
	ClassCompound  Class = 6
	ClassReference Class = 7
	ClassEnum      Class = 8
	ClassVarLen    Class = 9
	ClassArray     Class = 10
)

var classNames = [...]string{"integer", "float", "time", "string", "bitfield",
	"opaque", "compound", "reference", "enum", "vlen", "array"}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// ByteOrder of fixed and floating point types.
type ByteOrder uint8

const (
	LittleEndian ByteOrder = 0
	BigEndian    ByteOrder = 1
)

// Padding is the string termination rule.
type Padding uint8

const (
	NullTerm Padding = 0
	NullPad  Padding = 1
	SpacePad Padding = 2
)

// Charset is the character set of strings and names.
type Charset uint8

const (
	ASCII Charset = 0
	UTF8  Charset = 1
)

// Member is one field of a compound type.
type Member struct {
	Name   string
	Offset uint32
	Type   *Datatype
}

// Datatype is the datatype message, also embedded in attribute messages
// and nested inside compound, array, enum and variable-length types.
type Datatype struct {
	Class   Class
	Version uint8
	Size    uint32

	Order     ByteOrder
	Signed    bool
	BitOffset uint16
	Precision uint16

	SignLoc  uint8
	ExpLoc   uint8
	ExpSize  uint8
	MantLoc  uint8
	MantSize uint8
	ExpBias  uint32
	Norm     uint8

	Pad     Padding
	Charset Charset

	Members []Member

	// Base is the element type of vlen, array and enum types.
	Base         *Datatype
	VarLenString bool
	Dims         []uint32

	EnumNames  []string
	EnumValues [][]byte

	// raw holds the exact encoding of a decoded type so rewrites of
	// foreign metadata are lossless.
	raw []byte
}

func (dt *Datatype) Type() Type { return TypeDatatype }

// NewFixed returns a little-endian integer type.
func NewFixed(size int, signed bool) *Datatype {
	return &Datatype{Class: ClassFixed, Version: 1, Size: uint32(size), Signed: signed,
		Precision: uint16(8 * size)}
}

// NewFloat returns a little-endian IEEE 754 type of 4 or 8 bytes.
func NewFloat(size int) *Datatype {
	dt := &Datatype{Class: ClassFloat, Version: 1, Size: uint32(size), Norm: 2,
		Precision: uint16(8 * size)}
	if size == 4 {
		dt.SignLoc, dt.ExpLoc, dt.ExpSize, dt.MantSize, dt.ExpBias = 31, 23, 8, 23, 127
	} else {
		dt.SignLoc, dt.ExpLoc, dt.ExpSize, dt.MantSize, dt.ExpBias = 63, 52, 11, 52, 1023
	}
	return dt
}

// NewVarLenString returns the variable-length C string type (H5T_C_S1
// with H5T_VARIABLE size).
func NewVarLenString(cs Charset) *Datatype {
	return &Datatype{Class: ClassVarLen, Version: 1, Size: 16, VarLenString: true,
		Pad: NullTerm, Charset: cs, Base: NewFixed(1, false)}
}

// NewFixedString returns a fixed-size string type.
func NewFixedString(size int, pad Padding, cs Charset) *Datatype {
	return &Datatype{Class: ClassString, Version: 1, Size: uint32(size), Pad: pad, Charset: cs}
}

// NewCompound returns a compound type of the given size.
func NewCompound(size int, members ...Member) *Datatype {
	return &Datatype{Class: ClassCompound, Version: 3, Size: uint32(size), Members: members}
}

// IsString reports fixed or variable-length strings.
func (dt *Datatype) IsString() bool {
	return dt.Class == ClassString || (dt.Class == ClassVarLen && dt.VarLenString)
}

// IsNumeric reports integer, float and enum types.
func (dt *Datatype) IsNumeric() bool {
	return dt.Class == ClassFixed || dt.Class == ClassFloat || dt.Class == ClassEnum
}

// Member returns the compound member with the given name.
func (dt *Datatype) Member(name string) (Member, bool) {
	for _, m := range dt.Members {
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}

// String renders a short description such as "int32" or
// "compound{real:float64,imag:float64}".
func (dt *Datatype) String() string {
	switch dt.Class {
	case ClassFixed:
		if dt.Signed {
			return fmt.Sprintf("int%d", 8*dt.Size)
		}
		return fmt.Sprintf("uint%d", 8*dt.Size)
	case ClassFloat:
		return fmt.Sprintf("float%d", 8*dt.Size)
	case ClassString:
		return fmt.Sprintf("string[%d]", dt.Size)
	case ClassVarLen:
		if dt.VarLenString {
			return "string"
		}
		return "vlen<" + dt.Base.String() + ">"
	case ClassCompound:
		parts := make([]string, len(dt.Members))
		for i, m := range dt.Members {
			parts[i] = m.Name + ":" + m.Type.String()
		}
		return "compound{" + strings.Join(parts, ",") + "}"
	case ClassEnum:
		return "enum<" + dt.Base.String() + ">"
	case ClassArray:
		return fmt.Sprintf("array%v<%s>", dt.Dims, dt.Base.String())
	}
	return dt.Class.String()
}

// DecodeDatatype reads one datatype encoding from r.
func DecodeDatatype(r *bin.Reader) (*Datatype, error) {
	start := r.Pos()
	head, err := r.Bytes(8)
	if err != nil {
		return nil, err
	}
	dt := &Datatype{
		Class:   Class(head[0] & 0x0f),
		Version: head[0] >> 4,
		Size:    binary.LittleEndian.Uint32(head[4:8]),
	}
	cb := uint32(head[1]) | uint32(head[2])<<8 | uint32(head[3])<<16

	switch dt.Class {
	case ClassFixed, ClassBitfield:
		dt.Order = ByteOrder(cb & 1)
		dt.Signed = cb&0x08 != 0
		if dt.BitOffset, err = r.Uint16(); err != nil {
			return nil, err
		}
		if dt.Precision, err = r.Uint16(); err != nil {
			return nil, err
		}
	case ClassFloat:
		err = dt.decodeFloat(r, cb)
	case ClassTime:
		dt.Order = ByteOrder(cb & 1)
		dt.Precision, err = r.Uint16()
	case ClassString:
		dt.Pad = Padding(cb & 0x0f)
		dt.Charset = Charset((cb >> 4) & 0x0f)
	case ClassOpaque:
		r.Skip(int64(cb & 0xff))
	case ClassReference:
	case ClassCompound:
		err = dt.decodeCompound(r, int(cb&0xffff))
	case ClassEnum:
		err = dt.decodeEnum(r, int(cb&0xffff))
	case ClassVarLen:
		dt.VarLenString = cb&0x0f == 1
		dt.Pad = Padding((cb >> 4) & 0x0f)
		dt.Charset = Charset((cb >> 8) & 0x0f)
		dt.Base, err = DecodeDatatype(r)
	case ClassArray:
		err = dt.decodeArray(r)
	default:
		return nil, fmt.Errorf("unknown datatype class %d", dt.Class)
	}
	if err != nil {
		return nil, fmt.Errorf("%s datatype: %w", dt.Class, err)
	}

	end := r.Pos()
	if dt.raw, err = r.At(start).Bytes(int(end - start)); err != nil {
		return nil, err
	}
	return dt, nil
}

func (dt *Datatype) decodeFloat(r *bin.Reader, cb uint32) error {
	dt.Order = ByteOrder(cb & 1)
	dt.Norm = uint8(cb>>4) & 0x03
	dt.SignLoc = uint8(cb >> 8)
	p, err := r.Bytes(12)
	if err != nil {
		return err
	}
	dt.BitOffset = binary.LittleEndian.Uint16(p[0:2])
	dt.Precision = binary.LittleEndian.Uint16(p[2:4])
	dt.ExpLoc, dt.ExpSize, dt.MantLoc, dt.MantSize = p[4], p[5], p[6], p[7]
	dt.ExpBias = binary.LittleEndian.Uint32(p[8:12])
	return nil
}

func (dt *Datatype) decodeCompound(r *bin.Reader, n int) error {
	for i := 0; i < n; i++ {
		var m Member
		var err error
		if dt.Version >= 3 {
			if m.Name, err = cString(r, -1); err != nil {
				return err
			}
			off, err := r.UintN(offsetWidth(dt.Size))
			if err != nil {
				return err
			}
			m.Offset = uint32(off)
		} else {
			if m.Name, err = paddedName(r); err != nil {
				return err
			}
			if m.Offset, err = r.Uint32(); err != nil {
				return err
			}
			if dt.Version == 1 {
				// dimensionality, reserved, permutation, reserved, 4 dims
				r.Skip(1 + 3 + 4 + 4 + 16)
			}
		}
		if m.Type, err = DecodeDatatype(r); err != nil {
			return fmt.Errorf("member %q: %w", m.Name, err)
		}
		dt.Members = append(dt.Members, m)
	}
	return nil
}

func (dt *Datatype) decodeEnum(r *bin.Reader, n int) error {
	base, err := DecodeDatatype(r)
	if err != nil {
		return err
	}
	dt.Base = base
	dt.Order, dt.Signed = base.Order, base.Signed
	for i := 0; i < n; i++ {
		var name string
		if dt.Version >= 3 {
			name, err = cString(r, -1)
		} else {
			name, err = paddedName(r)
		}
		if err != nil {
			return err
		}
		dt.EnumNames = append(dt.EnumNames, name)
	}
	for i := 0; i < n; i++ {
		v, err := r.Bytes(int(base.Size))
		if err != nil {
			return err
		}
		dt.EnumValues = append(dt.EnumValues, v)
	}
	return nil
}

func (dt *Datatype) decodeArray(r *bin.Reader) error {
	nd, err := r.Uint8()
	if err != nil {
		return err
	}
	if dt.Version < 3 {
		r.Skip(3)
	}
	for i := 0; i < int(nd); i++ {
		d, err := r.Uint32()
		if err != nil {
			return err
		}
		dt.Dims = append(dt.Dims, d)
	}
	if dt.Version < 3 {
		r.Skip(4 * int64(nd))
	}
	dt.Base, err = DecodeDatatype(r)
	return err
}

// paddedName reads a NUL-terminated name padded to a multiple of 8 bytes.
func paddedName(r *bin.Reader) (string, error) {
	s, err := cString(r, -1)
	if err != nil {
		return "", err
	}
	if n := (len(s) + 1) % 8; n != 0 {
		r.Skip(int64(8 - n))
	}
	return s, nil
}

// offsetWidth is the byte width of v3 compound member offsets.
func offsetWidth(size uint32) int {
	if size == 0 {
		return 1
	}
	return (bits.Len32(size)-1)/8 + 1
}

// Encode writes the datatype. Decoded types are written back verbatim.
func (dt *Datatype) Encode(b *bin.Buffer) error {
	if dt.raw != nil {
		b.PutBytes(dt.raw)
		return nil
	}
	var cb uint32
	switch dt.Class {
	case ClassFixed:
		cb = uint32(dt.Order)
		if dt.Signed {
			cb |= 0x08
		}
	case ClassFloat:
		cb = uint32(dt.Order) | uint32(dt.Norm)<<4 | uint32(dt.SignLoc)<<8
	case ClassString:
		cb = uint32(dt.Pad) | uint32(dt.Charset)<<4
	case ClassCompound:
		cb = uint32(len(dt.Members))
	case ClassVarLen:
		cb = uint32(dt.Pad)<<4 | uint32(dt.Charset)<<8
		if dt.VarLenString {
			cb |= 1
		}
	default:
		return fmt.Errorf("encoding %s datatypes is not supported", dt.Class)
	}

	b.PutUint8(uint8(dt.Class) | dt.Version<<4)
	b.PutUint8(uint8(cb))
	b.PutUint8(uint8(cb >> 8))
	b.PutUint8(uint8(cb >> 16))
	b.PutUint32(dt.Size)

	switch dt.Class {
	case ClassFixed:
		b.PutUint16(dt.BitOffset)
		b.PutUint16(dt.Precision)
	case ClassFloat:
		b.PutUint16(dt.BitOffset)
		b.PutUint16(dt.Precision)
		b.PutBytes([]byte{dt.ExpLoc, dt.ExpSize, dt.MantLoc, dt.MantSize})
		b.PutUint32(dt.ExpBias)
	case ClassCompound:
		if dt.Version != 3 {
			return fmt.Errorf("compound datatypes are written as version 3")
		}
		w := offsetWidth(dt.Size)
		for _, m := range dt.Members {
			b.PutString(m.Name)
			b.PutUint8(0)
			b.PutUintN(uint64(m.Offset), w)
			if err := m.Type.Encode(b); err != nil {
				return fmt.Errorf("member %q: %w", m.Name, err)
			}
		}
	case ClassVarLen:
		return dt.Base.Encode(b)
	}
	return nil
}
