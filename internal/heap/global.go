package heap

import (
	"fmt"
	"io"
	"sync"

	"github.com/robert-malhotra/go-lofar-dal/internal/alloc"
	bin "github.com/robert-malhotra/go-lofar-dal/internal/binary"
)

const (
	collectionSignature = "GCOL"

	// MinCollectionSize is the smallest collection the writer allocates.
	MinCollectionSize = 4096

	collectionHeader = 16 // signature, version, reserved, size
	objectHeader     = 16 // index, refcount, reserved, size
)

// ID locates one object in a global heap collection.
type ID struct {
	Collection uint64
	Index      uint32
}

// IsNil reports whether the ID refers to no object, as written for empty
// values.
func (id ID) IsNil() bool { return id.Collection == 0 && id.Index == 0 }

// VarLenSize is the encoded size of a variable-length element.
func VarLenSize(cfg bin.Config) int { return 4 + cfg.OffsetSize + 4 }

// DecodeVarLen decodes a variable-length element: the value length followed
// by the heap ID of its bytes.
func DecodeVarLen(p []byte, cfg bin.Config) (uint32, ID, error) {
	if len(p) < VarLenSize(cfg) {
		return 0, ID{}, fmt.Errorf("variable-length element: %d bytes, need %d", len(p), VarLenSize(cfg))
	}
	n := uint32(bin.DecodeUint(p[:4], cfg.ByteOrder))
	addr := bin.DecodeUint(p[4:4+cfg.OffsetSize], cfg.ByteOrder)
	idx := uint32(bin.DecodeUint(p[4+cfg.OffsetSize:8+cfg.OffsetSize], cfg.ByteOrder))
	return n, ID{Collection: addr, Index: idx}, nil
}

// PutVarLen appends a variable-length element.
func PutVarLen(b *bin.Buffer, n uint32, id ID) {
	b.PutUint32(n)
	b.PutOffset(id.Collection)
	b.PutUint32(id.Index)
}

// Collection is a decoded global heap collection.
type Collection struct {
	Address uint64
	Size    uint64
	objects map[uint32][]byte
}

// ReadCollection reads the collection at addr.
func ReadCollection(r *bin.Reader, addr uint64) (*Collection, error) {
	if addr == 0 || addr == bin.Undefined {
		return nil, fmt.Errorf("global heap: invalid collection address %#x", addr)
	}
	hr := r.At(int64(addr))
	sig, err := hr.Bytes(4)
	if err != nil {
		return nil, fmt.Errorf("global heap at %#x: %w", addr, err)
	}
	if string(sig) != collectionSignature {
		return nil, fmt.Errorf("global heap at %#x: bad signature %q", addr, sig)
	}
	version, err := hr.Uint8()
	if err != nil {
		return nil, err
	}
	if version != 1 {
		return nil, fmt.Errorf("global heap at %#x: unsupported version %d", addr, version)
	}
	hr.Skip(3)
	size, err := hr.Length()
	if err != nil {
		return nil, err
	}

	c := &Collection{Address: addr, Size: size, objects: make(map[uint32][]byte)}
	hdr := uint64(8 + r.LengthSize())
	end := int64(addr + size)
	for hr.Pos()+int64(hdr) <= end {
		index, err := hr.Uint16()
		if err != nil {
			return nil, err
		}
		if index == 0 {
			break
		}
		hr.Skip(6) // refcount, reserved
		n, err := hr.Length()
		if err != nil {
			return nil, err
		}
		if hr.Pos()+int64(n) > end {
			return nil, fmt.Errorf("global heap at %#x: object %d overruns the collection", addr, index)
		}
		data, err := hr.Bytes(int(n))
		if err != nil {
			return nil, err
		}
		c.objects[uint32(index)] = data
		hr.Skip(int64(pad8(int(n)) - int(n)))
	}
	return c, nil
}

// Object returns the bytes of object index.
func (c *Collection) Object(index uint32) ([]byte, bool) {
	p, ok := c.objects[index]
	return p, ok
}

// Reader resolves heap IDs, keeping every collection it has read.
type Reader struct {
	r    *bin.Reader
	cols map[uint64]*Collection
}

func NewReader(r *bin.Reader) *Reader {
	return &Reader{r: r, cols: make(map[uint64]*Collection)}
}

// Get returns the first n bytes of the object id refers to.
func (hr *Reader) Get(id ID, n uint32) ([]byte, error) {
	if n == 0 || id.IsNil() {
		return nil, nil
	}
	c, ok := hr.cols[id.Collection]
	if !ok {
		var err error
		if c, err = ReadCollection(hr.r, id.Collection); err != nil {
			return nil, err
		}
		hr.cols[id.Collection] = c
	}
	p, ok := c.Object(id.Index)
	if !ok {
		return nil, fmt.Errorf("global heap at %#x: no object %d", id.Collection, id.Index)
	}
	if uint64(n) > uint64(len(p)) {
		return nil, fmt.Errorf("global heap at %#x: object %d has %d bytes, want %d", id.Collection, id.Index, len(p), n)
	}
	return p[:n], nil
}

// Writer appends objects to a global heap collection, starting a new
// collection when the current one is full.
type Writer struct {
	mu  sync.Mutex
	w   io.WriterAt
	a   *alloc.Allocator
	cfg bin.Config

	cur  []byte // encoded current collection
	addr uint64
	used int // bytes before the free-space object
	next uint16
}

func NewWriter(w io.WriterAt, a *alloc.Allocator, cfg bin.Config) *Writer {
	return &Writer{w: w, a: a, cfg: cfg}
}

// Put stores p and returns its ID. Empty values get the nil ID.
func (hw *Writer) Put(p []byte) (ID, error) {
	if len(p) == 0 {
		return ID{}, nil
	}
	hw.mu.Lock()
	defer hw.mu.Unlock()

	need := objectHeader + pad8(len(p))
	if hw.cur == nil || !hw.fits(need) {
		hw.start(need)
	}

	b := bin.NewBuffer(hw.cfg)
	b.PutUint16(hw.next)
	b.PutUint16(0)
	b.PutUint32(0)
	b.PutLength(uint64(len(p)))
	b.PutBytes(p)
	b.PadTo(8)
	copy(hw.cur[hw.used:], b.Bytes())
	hw.used += need
	hw.putFree()

	id := ID{Collection: hw.addr, Index: uint32(hw.next)}
	hw.next++
	if _, err := hw.w.WriteAt(hw.cur, int64(hw.addr)); err != nil {
		return ID{}, fmt.Errorf("writing global heap at %#x: %w", hw.addr, err)
	}
	return id, nil
}

// fits reports whether an object of need bytes can be appended while
// leaving either no tail or a tail big enough for a free-space object.
func (hw *Writer) fits(need int) bool {
	if hw.next == 0xFFFF {
		return false
	}
	left := len(hw.cur) - hw.used - need
	return left == 0 || left >= objectHeader
}

func (hw *Writer) start(need int) {
	size := collectionHeader + need + objectHeader
	if size < MinCollectionSize {
		size = MinCollectionSize
	}
	size = pad8(size)
	hw.cur = make([]byte, size)
	hw.addr = hw.a.Alloc(uint64(size))
	hw.used = collectionHeader
	hw.next = 1

	b := bin.NewBuffer(hw.cfg)
	b.PutString(collectionSignature)
	b.PutUint8(1)
	b.PutZeros(3)
	b.PutLength(uint64(size))
	copy(hw.cur, b.Bytes())
}

// putFree writes the free-space object (index 0) describing the tail.
func (hw *Writer) putFree() {
	left := len(hw.cur) - hw.used
	if left < objectHeader {
		return
	}
	b := bin.NewBuffer(hw.cfg)
	b.PutUint16(0)
	b.PutUint16(0)
	b.PutUint32(0)
	b.PutLength(uint64(left))
	copy(hw.cur[hw.used:], b.Bytes())
}

func pad8(n int) int { return (n + 7) &^ 7 }
