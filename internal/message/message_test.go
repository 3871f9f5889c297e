package message

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	bin "github.com/robert-malhotra/go-lofar-dal/internal/binary"
)

// stripRaw drops the verbatim encodings kept by DecodeDatatype so decoded
// types compare equal to constructed ones.
func stripRaw(dt *Datatype) {
	if dt == nil {
		return
	}
	dt.raw = nil
	stripRaw(dt.Base)
	for i := range dt.Members {
		stripRaw(dt.Members[i].Type)
	}
}

func roundTrip(t *testing.T, m Message) Message {
	t.Helper()
	cfg := bin.DefaultConfig()
	data, err := Encode(m, cfg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Parse(m.Type(), data, cfg)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	switch x := got.(type) {
	case *Datatype:
		stripRaw(x)
	case *Attribute:
		stripRaw(x.Datatype)
	}
	return got
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{"scalar dataspace", &Dataspace{Space: SpaceScalar}},
		{"null dataspace", &Dataspace{Space: SpaceNull}},
		{"simple dataspace", NewSimple([]uint64{100}, nil)},
		{"2d dataspace", NewSimple([]uint64{10, 20}, nil)},
		{"unlimited dataspace", NewSimple([]uint64{0, 4}, []uint64{Unlimited, 4})},
		{"int32", NewFixed(4, true)},
		{"uint8", NewFixed(1, false)},
		{"float32", NewFloat(4)},
		{"float64", NewFloat(8)},
		{"fixed string", NewFixedString(16, NullPad, UTF8)},
		{"varlen string", NewVarLenString(ASCII)},
		{"complex128", NewCompound(16,
			Member{Name: "real", Offset: 0, Type: NewFloat(8)},
			Member{Name: "imag", Offset: 8, Type: NewFloat(8)})},
		{"complex int16", NewCompound(4,
			Member{Name: "real", Offset: 0, Type: NewFixed(2, true)},
			Member{Name: "imag", Offset: 2, Type: NewFixed(2, true)})},
		{"attribute", &Attribute{
			Name:      "NOF_STATIONS",
			Datatype:  NewFixed(4, true),
			Dataspace: NewSimple([]uint64{1}, nil),
			Data:      []byte{7, 0, 0, 0},
		}},
		{"utf8 attribute", &Attribute{
			Name:      "POSITION",
			Charset:   UTF8,
			Datatype:  NewFloat(8),
			Dataspace: NewSimple([]uint64{2}, nil),
			Data:      make([]byte, 16),
		}},
		{"default fill", NewFillValue(AllocIncremental)},
		{"fill with value", &FillValue{Alloc: AllocEarly, WriteTime: 1, Value: []byte{0xff, 0xfe}}},
		{"undefined fill", &FillValue{Alloc: AllocLate, Undefined: true}},
		{"empty pipeline", &FilterPipeline{}},
		{"pipeline", &FilterPipeline{Filters: []Filter{
			{ID: FilterShuffle, Params: []uint32{4}},
			{ID: FilterDeflate, Flags: FilterOptional, Params: []uint32{6}},
			{ID: FilterFletcher32},
		}}},
		{"chunked layout", NewChunkedLayout([]uint64{10, 20}, 8)},
		{"contiguous layout", NewContiguousLayout(2048, 400)},
		{"compact layout", &Layout{Version: 3, Class: LayoutCompact, CompactData: []byte{1, 2, 3}}},
		{"hard link", &Link{Name: "Station001", Address: 0x1234}},
		{"ordered link", &Link{Name: "BEAM_000", HasOrder: true, CreationOrder: 41, Address: 0x400}},
		{"soft link", &Link{Name: "latest", LinkType: LinkSoft, SoftTarget: "/SUB_ARRAY_POINTING_000"}},
		{"long utf8 link", &Link{Name: strings.Repeat("x", 300), Charset: UTF8, Address: 96}},
		{"link info", NewLinkInfo()},
		{"indexed link info", &LinkInfo{TrackOrder: true, IndexOrder: true, MaxCreationIndex: 12,
			HeapAddress: 0x800, NameIndexAddress: 0x900, OrderIndexAddr: 0xa00}},
		{"group info", &GroupInfo{}},
		{"group info limits", &GroupInfo{MaxCompact: 8, MinDense: 6, EstEntries: 4, EstNameLen: 16,
			hasLimits: true, hasEstimates: true}},
		{"continuation", &Continuation{Address: 0x1000, Length: 256}},
		{"unknown", &Unknown{MsgType: TypeComment, Data: []byte("hello\x00")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := roundTrip(t, tt.msg)
			if !reflect.DeepEqual(got, tt.msg) {
				t.Errorf("round trip\n got  %#v\n want %#v", got, tt.msg)
			}
		})
	}
}

func TestDataspaceDropsRedundantMax(t *testing.T) {
	got := roundTrip(t, NewSimple([]uint64{3, 4}, []uint64{3, 4})).(*Dataspace)
	if got.MaxDims != nil {
		t.Errorf("MaxDims = %v, want nil", got.MaxDims)
	}
	if !reflect.DeepEqual(got.Max(), []uint64{3, 4}) {
		t.Errorf("Max = %v", got.Max())
	}
	if got.NumElements() != 12 {
		t.Errorf("NumElements = %d", got.NumElements())
	}
}

func TestDataspaceVersion1(t *testing.T) {
	b := bin.NewBuffer(bin.DefaultConfig())
	b.PutBytes([]byte{1, 2, 1, 0, 0, 0, 0, 0})
	b.PutLength(5)
	b.PutLength(6)
	b.PutLength(Unlimited)
	b.PutLength(6)
	m, err := Parse(TypeDataspace, b.Bytes(), bin.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	want := &Dataspace{Space: SpaceSimple, Dims: []uint64{5, 6}, MaxDims: []uint64{Unlimited, 6}}
	if !reflect.DeepEqual(m, want) {
		t.Errorf("got %#v, want %#v", m, want)
	}

	m, err = Parse(TypeDataspace, []byte{1, 0, 0, 0, 0, 0, 0, 0}, bin.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if ds := m.(*Dataspace); ds.Space != SpaceScalar || ds.NumElements() != 1 {
		t.Errorf("rank 0 v1 dataspace = %#v", ds)
	}
}

func TestFillValueOlderVersions(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		data []byte
		want *FillValue
	}{
		{"old message", TypeFillValueOld, []byte{4, 0, 0, 0, 1, 2, 3, 4},
			&FillValue{Alloc: AllocLate, Value: []byte{1, 2, 3, 4}}},
		{"old message empty", TypeFillValueOld, []byte{0, 0, 0, 0},
			&FillValue{Alloc: AllocLate}},
		{"v2 defined", TypeFillValue, []byte{2, 2, 2, 1, 2, 0, 0, 0, 0xaa, 0xbb},
			&FillValue{Alloc: AllocLate, WriteTime: 2, Value: []byte{0xaa, 0xbb}}},
		{"v2 undefined", TypeFillValue, []byte{2, 1, 0, 0},
			&FillValue{Alloc: AllocEarly}},
		{"v1 zero size", TypeFillValue, []byte{1, 3, 2, 0, 0, 0, 0, 0},
			&FillValue{Alloc: AllocIncremental, WriteTime: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse(tt.typ, tt.data, bin.DefaultConfig())
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(m, tt.want) {
				t.Errorf("got %#v, want %#v", m, tt.want)
			}
		})
	}
}

func TestFilterPipelineVersion1(t *testing.T) {
	b := bin.NewBuffer(bin.DefaultConfig())
	b.PutBytes([]byte{1, 2, 0, 0, 0, 0, 0, 0})
	// deflate, named, one parameter plus padding
	b.PutUint16(FilterDeflate)
	b.PutUint16(8)
	b.PutUint16(0)
	b.PutUint16(1)
	b.PutString("deflate\x00")
	b.PutUint32(9)
	b.PutUint32(0)
	// unnamed shuffle with two parameters
	b.PutUint16(FilterShuffle)
	b.PutUint16(0)
	b.PutUint16(FilterOptional)
	b.PutUint16(2)
	b.PutUint32(4)
	b.PutUint32(1)

	m, err := Parse(TypeFilterPipeline, b.Bytes(), bin.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	want := &FilterPipeline{Filters: []Filter{
		{ID: FilterDeflate, Name: "deflate", Params: []uint32{9}},
		{ID: FilterShuffle, Flags: FilterOptional, Params: []uint32{4, 1}},
	}}
	if !reflect.DeepEqual(m, want) {
		t.Errorf("got %#v, want %#v", m, want)
	}
	if !want.Filters[1].Optional() || want.Filters[0].Optional() {
		t.Error("Optional reports the wrong filters")
	}
}

func TestLayoutVersion4(t *testing.T) {
	cfg := bin.DefaultConfig()
	tests := []struct {
		name  string
		build func(b *bin.Buffer)
		want  *Layout
	}{
		{
			name: "filtered single chunk",
			build: func(b *bin.Buffer) {
				b.PutBytes([]byte{4, byte(LayoutChunked), 0x02, 2, 2})
				b.PutUint16(16)
				b.PutUint16(4)
				b.PutUint8(uint8(IndexSingle))
				b.PutLength(100)
				b.PutUint32(0)
				b.PutOffset(0x800)
			},
			want: &Layout{Version: 4, Class: LayoutChunked, Chunk: []uint32{16}, ElemSize: 4,
				Index: IndexSingle, SingleChunkSize: 100, Address: 0x800},
		},
		{
			name: "implicit",
			build: func(b *bin.Buffer) {
				b.PutBytes([]byte{4, byte(LayoutChunked), 0, 3, 1, 8, 8, 2})
				b.PutUint8(uint8(IndexImplicit))
				b.PutOffset(0x1000)
			},
			want: &Layout{Version: 4, Class: LayoutChunked, Chunk: []uint32{8, 8}, ElemSize: 2,
				Index: IndexImplicit, Address: 0x1000},
		},
		{
			name: "fixed array",
			build: func(b *bin.Buffer) {
				b.PutBytes([]byte{4, byte(LayoutChunked), 0, 2, 1, 32, 8})
				b.PutUint8(uint8(IndexFixedArray))
				b.PutUint8(10)
				b.PutOffset(0x2000)
			},
			want: &Layout{Version: 4, Class: LayoutChunked, Chunk: []uint32{32}, ElemSize: 8,
				Index: IndexFixedArray, Address: 0x2000},
		},
		{
			name: "extensible array",
			build: func(b *bin.Buffer) {
				b.PutBytes([]byte{4, byte(LayoutChunked), 0, 2, 1, 32, 8})
				b.PutUint8(uint8(IndexExtensible))
				b.PutBytes([]byte{32, 4, 4, 16, 10})
				b.PutOffset(0x3000)
			},
			want: &Layout{Version: 4, Class: LayoutChunked, Chunk: []uint32{32}, ElemSize: 8,
				Index: IndexExtensible, Address: 0x3000},
		},
		{
			name: "v2 b-tree",
			build: func(b *bin.Buffer) {
				b.PutBytes([]byte{4, byte(LayoutChunked), 0, 3, 1, 16, 16, 4})
				b.PutUint8(uint8(IndexBTreeV2))
				b.PutUint32(2048)
				b.PutBytes([]byte{100, 40})
				b.PutOffset(0x4000)
			},
			want: &Layout{Version: 4, Class: LayoutChunked, Chunk: []uint32{16, 16}, ElemSize: 4,
				Index: IndexBTreeV2, Address: 0x4000},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bin.NewBuffer(cfg)
			tt.build(b)
			m, err := Parse(TypeLayout, b.Bytes(), cfg)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(m, tt.want) {
				t.Errorf("got %#v, want %#v", m, tt.want)
			}
		})
	}
}

func TestLayoutChunkShape(t *testing.T) {
	l := NewChunkedLayout([]uint64{1024, 16}, 8)
	if !reflect.DeepEqual(l.ChunkShape(), []uint64{1024, 16}) {
		t.Errorf("ChunkShape = %v", l.ChunkShape())
	}
	if l.Address != bin.Undefined {
		t.Errorf("new chunked layout has address %#x", l.Address)
	}
	if LayoutChunked.String() != "chunked" || LayoutClass(9).String() != "layout(9)" {
		t.Error("LayoutClass.String")
	}
}

func TestLinkInfoDense(t *testing.T) {
	if NewLinkInfo().Dense() {
		t.Error("new link info reports dense storage")
	}
	if !(&LinkInfo{HeapAddress: 0x100}).Dense() {
		t.Error("link info with a heap is not dense")
	}
}

func TestExternalLinkDecode(t *testing.T) {
	b := bin.NewBuffer(bin.DefaultConfig())
	b.PutUint8(1)
	b.PutUint8(0x08)
	b.PutUint8(uint8(LinkExternal))
	b.PutUint8(3)
	b.PutString("ext")
	target := "\x00other.h5\x00/data\x00"
	b.PutUint16(uint16(len(target)))
	b.PutString(target)

	m, err := Parse(TypeLink, b.Bytes(), bin.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	l := m.(*Link)
	if l.Name != "ext" || l.ExternalFile != "other.h5" || l.ExternalPath != "/data" {
		t.Errorf("external link decoded as %#v", l)
	}
	if _, err := Encode(l, bin.DefaultConfig()); err == nil {
		t.Error("external links should not be encodable")
	}
}

func TestSymbolTableDecode(t *testing.T) {
	b := bin.NewBuffer(bin.DefaultConfig())
	b.PutOffset(136)
	b.PutOffset(680)
	m, err := Parse(TypeSymbolTable, b.Bytes(), bin.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if want := (&SymbolTable{BTreeAddress: 136, HeapAddress: 680}); !reflect.DeepEqual(m, want) {
		t.Errorf("got %#v, want %#v", m, want)
	}
}

func TestUnknownCopiesData(t *testing.T) {
	data := []byte{1, 2, 3}
	m, err := Parse(TypeModTime, data, bin.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	data[0] = 9
	u := m.(*Unknown)
	if u.Type() != TypeModTime || !bytes.Equal(u.Data, []byte{1, 2, 3}) {
		t.Errorf("unknown message = %#v", u)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		data []byte
	}{
		{"dataspace version", TypeDataspace, []byte{9, 0, 0, 0}},
		{"dataspace truncated", TypeDataspace, []byte{2, 1, 0, 1, 4}},
		{"datatype class", TypeDatatype, []byte{0x1f, 0, 0, 0, 1, 0, 0, 0}},
		{"datatype truncated", TypeDatatype, []byte{0x10, 0, 0}},
		{"layout version", TypeLayout, []byte{7}},
		{"layout class", TypeLayout, []byte{3, 9}},
		{"chunk index", TypeLayout, []byte{4, 2, 0, 2, 1, 8, 4, 9}},
		{"attribute version", TypeAttribute, []byte{0, 0}},
		{"shared attribute type", TypeAttribute, []byte{3, 1, 0, 0, 0, 0, 0, 0}},
		{"fill value version", TypeFillValue, []byte{9}},
		{"filter pipeline version", TypeFilterPipeline, []byte{3, 0}},
		{"link version", TypeLink, []byte{2, 0}},
		{"link type", TypeLink, []byte{1, 0x08, 7, 1, 'a'}},
		{"continuation truncated", TypeContinuation, []byte{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.typ, tt.data, bin.DefaultConfig()); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestAttributeDataOverrun(t *testing.T) {
	data, err := Encode(&Attribute{
		Name:      "X",
		Datatype:  NewFixed(4, true),
		Dataspace: NewSimple([]uint64{4}, nil),
		Data:      make([]byte, 16),
	}, bin.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(TypeAttribute, data[:len(data)-1], bin.DefaultConfig()); err == nil {
		t.Error("expected an overrun error")
	}
}

func TestEncodeErrors(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{"layout version", &Layout{Version: 4, Class: LayoutChunked}},
		{"virtual layout", &Layout{Version: 3, Class: LayoutVirtual}},
		{"unregistered filter", &FilterPipeline{Filters: []Filter{{ID: 300}}}},
		{"enum", &Datatype{Class: ClassEnum, Version: 3, Size: 1}},
		{"compound version", &Datatype{Class: ClassCompound, Version: 2, Size: 8}},
		{"attribute with enum", &Attribute{Name: "E", Datatype: &Datatype{Class: ClassEnum},
			Dataspace: NewSimple([]uint64{1}, nil)}},
		{"symbol table", &SymbolTable{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Encode(tt.msg, bin.DefaultConfig()); err == nil {
				t.Error("expected an error")
			}
		})
	}

	_, err := Encode(&Unknown{MsgType: TypeComment, Data: make([]byte, MaxSize+1)}, bin.DefaultConfig())
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
}
