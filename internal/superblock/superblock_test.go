package superblock

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
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

func TestWriteReadV3(t *testing.T) {
	sb := New()
	sb.EOF = 4096
	sb.RootAddress = 48

	f := &memFile{}
	if err := sb.WriteTo(f); err != nil {
		t.Fatal(err)
	}
	if len(f.b) != Size {
		t.Fatalf("encoded %d bytes, want %d", len(f.b), Size)
	}

	got, err := Read(f)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Version != 3 || got.EOF != 4096 || got.RootAddress != 48 {
		t.Errorf("decoded %+v", got)
	}
	if !got.Writable() {
		t.Error("v3 superblock with 8-byte sizes should be writable")
	}
}

func TestChecksumMismatch(t *testing.T) {
	sb := New()
	sb.RootAddress = 48
	f := &memFile{b: sb.Encode()}
	f.b[20] ^= 0xff
	if _, err := Read(f); !errors.Is(err, ErrChecksum) {
		t.Fatalf("expected ErrChecksum, got %v", err)
	}
}

func TestUserBlockSearch(t *testing.T) {
	sb := New()
	sb.Offset = 512
	sb.RootAddress = 600
	f := &memFile{b: make([]byte, 512)}
	if err := sb.WriteTo(f); err != nil {
		t.Fatal(err)
	}
	got, err := Read(f)
	if err != nil {
		t.Fatal(err)
	}
	if got.Offset != 512 || got.RootAddress != 600 {
		t.Errorf("found superblock at %d root %d", got.Offset, got.RootAddress)
	}
}

func TestNotHDF5(t *testing.T) {
	if _, err := Read(&memFile{b: []byte("plain text, not hdf5 at all")}); !errors.Is(err, ErrNotHDF5) {
		t.Fatalf("expected ErrNotHDF5, got %v", err)
	}
}

func TestClassicRootScratchPad(t *testing.T) {
	b := append([]byte(nil), Signature...)
	b = append(b, 0, 0, 0, 0, 0, 8, 8, 0)
	b = binary.LittleEndian.AppendUint16(b, 4)
	b = binary.LittleEndian.AppendUint16(b, 16)
	b = binary.LittleEndian.AppendUint32(b, 0)
	for _, v := range []uint64{0, ^uint64(0), 2048, ^uint64(0)} {
		b = binary.LittleEndian.AppendUint64(b, v)
	}
	b = binary.LittleEndian.AppendUint64(b, 0)   // link name offset
	b = binary.LittleEndian.AppendUint64(b, 96)  // object header
	b = binary.LittleEndian.AppendUint32(b, 1)   // cache type
	b = binary.LittleEndian.AppendUint32(b, 0)   // reserved
	b = binary.LittleEndian.AppendUint64(b, 136) // B-tree
	b = binary.LittleEndian.AppendUint64(b, 680) // local heap

	sb, err := Read(&memFile{b: b})
	if err != nil {
		t.Fatal(err)
	}
	if sb.Version != 0 || sb.EOF != 2048 || sb.RootAddress != 96 {
		t.Errorf("decoded %+v", sb)
	}
	if sb.RootBTreeAddress != 136 || sb.RootHeapAddress != 680 {
		t.Errorf("scratch pad = %d/%d", sb.RootBTreeAddress, sb.RootHeapAddress)
	}
	if sb.Writable() {
		t.Error("classic superblock must not be writable")
	}
}
