package object

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/robert-malhotra/go-lofar-dal/internal/alloc"
	bin "github.com/robert-malhotra/go-lofar-dal/internal/binary"
	"github.com/robert-malhotra/go-lofar-dal/internal/message"
)

type memFile struct{ b []byte }

func (m *memFile) ReadAt(p []byte, off int64) (int, error) {
	return bytes.NewReader(m.b).ReadAt(p, off)
}

func (m *memFile) WriteAt(p []byte, off int64) (int, error) {
	if end := int(off) + len(p); end > len(m.b) {
		m.b = append(m.b, make([]byte, end-len(m.b))...)
	}
	return copy(m.b[off:], p), nil
}

func int32Attr(name string, n int) *message.Attribute {
	return &message.Attribute{
		Name:      name,
		Datatype:  message.NewFixed(4, true),
		Dataspace: message.NewSimple([]uint64{uint64(n)}, nil),
		Data:      make([]byte, 4*n),
	}
}

func setup(t *testing.T, slack int, msgs ...message.Message) (*memFile, *alloc.Allocator, *Header) {
	t.Helper()
	f := &memFile{}
	a := alloc.New(48)
	h, err := Create(f, a, bin.DefaultConfig(), msgs, slack)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return f, a, h
}

func reread(t *testing.T, f *memFile, addr uint64) *Header {
	t.Helper()
	h, err := Read(bin.NewReader(f, bin.DefaultConfig()), addr)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	return h
}

func TestCreateAndRead(t *testing.T) {
	f, _, h := setup(t, 32,
		message.NewSimple([]uint64{10, 20}, []uint64{message.Unlimited, 20}),
		message.NewFloat(4),
		message.NewChunkedLayout([]uint64{5, 20}, 4),
	)
	if h.Address != 48 {
		t.Errorf("Address = %d, want 48", h.Address)
	}

	got := reread(t, f, h.Address)
	if got.Version != 2 || len(got.Chunks) != 1 {
		t.Fatalf("version %d with %d chunks", got.Version, len(got.Chunks))
	}
	space := got.Dataspace()
	if space == nil || space.Rank() != 2 || space.Dims[1] != 20 || space.Max()[0] != message.Unlimited {
		t.Fatalf("dataspace = %+v", space)
	}
	if dt := got.Datatype(); dt == nil || dt.Class != message.ClassFloat || dt.Size != 4 {
		t.Fatalf("datatype = %v", dt)
	}
	if !got.IsDataset() || got.IsGroup() {
		t.Error("header should describe a dataset")
	}
}

func TestFlushSpillsIntoContinuation(t *testing.T) {
	f, a, h := setup(t, 200, message.NewLinkInfo(), &message.GroupInfo{})
	for i := 0; i < 20; i++ {
		h.SetAttribute(int32Attr(fmt.Sprintf("ATTR_%02d", i), 25))
	}
	if err := h.Flush(f, a, bin.DefaultConfig()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	got := reread(t, f, h.Address)
	if len(got.Chunks) != 2 {
		t.Fatalf("chunks = %d, want 2", len(got.Chunks))
	}
	attrs := got.Attributes()
	if len(attrs) != 20 {
		t.Fatalf("attributes = %d, want 20", len(attrs))
	}
	for i, at := range attrs {
		if want := fmt.Sprintf("ATTR_%02d", i); at.Name != want {
			t.Errorf("attribute %d = %q, want %q", i, at.Name, want)
		}
	}
	if !got.IsGroup() {
		t.Error("header should describe a group")
	}

	for i := 1; i < 20; i++ {
		got.RemoveAttribute(fmt.Sprintf("ATTR_%02d", i))
	}
	if err := got.Flush(f, a, bin.DefaultConfig()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	again := reread(t, f, h.Address)
	if len(again.Chunks) != 1 || len(again.Attributes()) != 1 {
		t.Fatalf("after shrink: %d chunks, %d attributes", len(again.Chunks), len(again.Attributes()))
	}
	if len(a.FreeBlocks()) == 0 && a.EOF() != h.Chunks[0].Address+h.Chunks[0].Size {
		t.Error("continuation chunk was not released")
	}
}

func TestSetAttributeKeepsPosition(t *testing.T) {
	f, a, h := setup(t, 256)
	h.SetAttribute(int32Attr("A", 1))
	h.SetAttribute(int32Attr("B", 1))
	h.SetAttribute(int32Attr("A", 3))
	if err := h.Flush(f, a, bin.DefaultConfig()); err != nil {
		t.Fatal(err)
	}
	attrs := reread(t, f, h.Address).Attributes()
	if len(attrs) != 2 || attrs[0].Name != "A" || attrs[0].Dataspace.Dims[0] != 3 {
		t.Fatalf("attributes = %+v", attrs)
	}
}

func TestChecksumMismatch(t *testing.T) {
	f, _, h := setup(t, 16, message.NewLinkInfo())
	f.b[h.Address+10] ^= 0xFF
	_, err := Read(bin.NewReader(f, bin.DefaultConfig()), h.Address)
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("err = %v, want ErrChecksumMismatch", err)
	}
}

func TestFillGap(t *testing.T) {
	h := &Header{Version: 2}
	tests := []struct {
		name    string
		pad     int
		wantNil bool
	}{
		{"gap", 3, false},
		{"nil message", 4, true},
		{"large nil message", 100, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bin.NewBuffer(bin.DefaultConfig())
			if err := h.fill(b, tt.pad); err != nil {
				t.Fatal(err)
			}
			if b.Len() != tt.pad {
				t.Fatalf("len = %d, want %d", b.Len(), tt.pad)
			}
			// A NIL message header has a zero type byte and its size in
			// bytes 1-2.
			size := int(b.Bytes()[1]) | int(b.Bytes()[2])<<8
			if tt.wantNil && size != tt.pad-4 {
				t.Errorf("nil size = %d, want %d", size, tt.pad-4)
			}
		})
	}
}

func TestInvalidHeader(t *testing.T) {
	f := &memFile{b: make([]byte, 64)}
	copy(f.b, "JUNK")
	_, err := Read(bin.NewReader(f, bin.DefaultConfig()), 0)
	if !errors.Is(err, ErrInvalidHeader) {
		t.Fatalf("err = %v, want ErrInvalidHeader", err)
	}
}
