package message

import (
	"bytes"
	"reflect"
	"testing"

	bin "github.com/robert-malhotra/go-lofar-dal/internal/binary"
)

func decodeType(t *testing.T, data []byte) *Datatype {
	t.Helper()
	dt, err := DecodeDatatype(bin.NewReader(bytes.NewReader(data), bin.DefaultConfig()))
	if err != nil {
		t.Fatalf("DecodeDatatype: %v", err)
	}
	return dt
}

// enumBytes encodes a version 3 uint8 enum {OFF=0, ON=1}.
func enumBytes(t *testing.T) []byte {
	t.Helper()
	b := bin.NewBuffer(bin.DefaultConfig())
	b.PutUint8(uint8(ClassEnum) | 3<<4)
	b.PutBytes([]byte{2, 0, 0})
	b.PutUint32(1)
	if err := NewFixed(1, false).Encode(b); err != nil {
		t.Fatal(err)
	}
	b.PutString("OFF\x00ON\x00")
	b.PutBytes([]byte{0, 1})
	return b.Bytes()
}

func TestDatatypeString(t *testing.T) {
	tests := []struct {
		dt   *Datatype
		want string
	}{
		{NewFixed(2, true), "int16"},
		{NewFixed(8, false), "uint64"},
		{NewFloat(4), "float32"},
		{NewFloat(8), "float64"},
		{NewFixedString(8, NullTerm, ASCII), "string[8]"},
		{NewVarLenString(UTF8), "string"},
		{&Datatype{Class: ClassVarLen, Base: NewFixed(4, true)}, "vlen<int32>"},
		{NewCompound(16,
			Member{Name: "real", Type: NewFloat(8)},
			Member{Name: "imag", Offset: 8, Type: NewFloat(8)}), "compound{real:float64,imag:float64}"},
		{&Datatype{Class: ClassArray, Dims: []uint32{3}, Base: NewFloat(4)}, "array[3]<float32>"},
		{&Datatype{Class: ClassEnum, Base: NewFixed(1, false)}, "enum<uint8>"},
		{&Datatype{Class: ClassOpaque}, "opaque"},
		{&Datatype{Class: Class(12)}, "class(12)"},
	}
	for _, tt := range tests {
		if got := tt.dt.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestDatatypePredicates(t *testing.T) {
	tests := []struct {
		dt              *Datatype
		isString, isNum bool
	}{
		{NewFixed(4, true), false, true},
		{NewFloat(8), false, true},
		{NewFixedString(4, NullPad, ASCII), true, false},
		{NewVarLenString(ASCII), true, false},
		{&Datatype{Class: ClassVarLen, Base: NewFixed(1, false)}, false, false},
		{&Datatype{Class: ClassEnum}, false, true},
		{NewCompound(8), false, false},
	}
	for _, tt := range tests {
		if tt.dt.IsString() != tt.isString || tt.dt.IsNumeric() != tt.isNum {
			t.Errorf("%s: IsString=%v IsNumeric=%v", tt.dt, tt.dt.IsString(), tt.dt.IsNumeric())
		}
	}
}

func TestCompoundMember(t *testing.T) {
	dt := NewCompound(4,
		Member{Name: "real", Type: NewFixed(2, true)},
		Member{Name: "imag", Offset: 2, Type: NewFixed(2, true)})
	m, ok := dt.Member("imag")
	if !ok || m.Offset != 2 {
		t.Errorf("Member(imag) = %+v, %v", m, ok)
	}
	if _, ok := dt.Member("re"); ok {
		t.Error("Member(re) should not exist")
	}
}

func TestDecodedDatatypeReencodesVerbatim(t *testing.T) {
	data := enumBytes(t)
	dt := decodeType(t, data)
	if dt.Class != ClassEnum || dt.Version != 3 || dt.Size != 1 {
		t.Fatalf("decoded %#v", dt)
	}
	if !reflect.DeepEqual(dt.EnumNames, []string{"OFF", "ON"}) {
		t.Errorf("EnumNames = %v", dt.EnumNames)
	}
	if !reflect.DeepEqual(dt.EnumValues, [][]byte{{0}, {1}}) {
		t.Errorf("EnumValues = %v", dt.EnumValues)
	}
	if !dt.IsNumeric() || dt.Signed {
		t.Errorf("enum of uint8 decoded as %#v", dt)
	}

	b := bin.NewBuffer(bin.DefaultConfig())
	if err := dt.Encode(b); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b.Bytes(), data) {
		t.Errorf("re-encoded % x\nwant         % x", b.Bytes(), data)
	}
}

func TestDecodeArrayDatatype(t *testing.T) {
	b := bin.NewBuffer(bin.DefaultConfig())
	b.PutUint8(uint8(ClassArray) | 3<<4)
	b.PutBytes([]byte{0, 0, 0})
	b.PutUint32(24)
	b.PutUint8(2)
	b.PutUint32(3)
	b.PutUint32(2)
	if err := NewFixed(4, true).Encode(b); err != nil {
		t.Fatal(err)
	}
	dt := decodeType(t, b.Bytes())
	if got := dt.String(); got != "array[3 2]<int32>" {
		t.Errorf("String() = %q", got)
	}
}

func TestDecodeOldCompound(t *testing.T) {
	// version 1 compound with one float64 member "x" at offset 0
	b := bin.NewBuffer(bin.DefaultConfig())
	b.PutUint8(uint8(ClassCompound) | 1<<4)
	b.PutBytes([]byte{1, 0, 0})
	b.PutUint32(8)
	b.PutString("x\x00")
	b.PutZeros(6)
	b.PutUint32(0)
	b.PutZeros(1 + 3 + 4 + 4 + 16)
	if err := NewFloat(8).Encode(b); err != nil {
		t.Fatal(err)
	}

	dt := decodeType(t, b.Bytes())
	if len(dt.Members) != 1 || dt.Members[0].Name != "x" || dt.Members[0].Type.String() != "float64" {
		t.Errorf("decoded %s", dt)
	}
}

func TestOffsetWidth(t *testing.T) {
	tests := []struct {
		size uint32
		want int
	}{
		{0, 1}, {1, 1}, {255, 1}, {256, 2}, {65535, 2}, {65536, 3}, {1 << 24, 4},
	}
	for _, tt := range tests {
		if got := offsetWidth(tt.size); got != tt.want {
			t.Errorf("offsetWidth(%d) = %d, want %d", tt.size, got, tt.want)
		}
	}
}
