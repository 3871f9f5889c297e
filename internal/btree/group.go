package btree

import (
	"fmt"

	bin "github.com/robert-malhotra/go-lofar-dal/internal/binary"
	"github.com/robert-malhotra/go-lofar-dal/internal/heap"
)

const (
	signature     = "TREE"
	snodSignature = "SNOD"

	nodeGroup = 0
	nodeChunk = 1

	maxDepth = 64
)

// GroupEntry is one member of a classic group.
type GroupEntry struct {
	Name    string
	Address uint64
	Soft    bool
	Target  string // soft link value
}

// Symbol table entry cache types.
const (
	cacheNone = 0
	cacheHard = 1
	cacheSoft = 2
)

// ReadGroup lists the members of the classic group whose B-tree is at addr
// and whose names live in names.
func ReadGroup(r *bin.Reader, addr uint64, names *heap.Local) ([]GroupEntry, error) {
	return readGroupNode(r, addr, names, 0)
}

type nodeHeader struct {
	level uint8
	used  uint16
	left  uint64
	right uint64
}

func readNodeHeader(r *bin.Reader, typ uint8) (nodeHeader, error) {
	var h nodeHeader
	start := r.Pos()
	sig, err := r.Bytes(4)
	if err != nil {
		return h, fmt.Errorf("B-tree node at %#x: %w", start, err)
	}
	if string(sig) != signature {
		return h, fmt.Errorf("B-tree node at %#x: bad signature %q", start, sig)
	}
	t, err := r.Uint8()
	if err != nil {
		return h, err
	}
	if t != typ {
		return h, fmt.Errorf("B-tree node at %#x: type %d, want %d", start, t, typ)
	}
	if h.level, err = r.Uint8(); err != nil {
		return h, err
	}
	if h.used, err = r.Uint16(); err != nil {
		return h, err
	}
	if h.left, err = r.Offset(); err != nil {
		return h, err
	}
	if h.right, err = r.Offset(); err != nil {
		return h, err
	}
	return h, nil
}

func readGroupNode(r *bin.Reader, addr uint64, names *heap.Local, depth int) ([]GroupEntry, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("group B-tree at %#x: too deep", addr)
	}
	nr := r.At(int64(addr))
	h, err := readNodeHeader(nr, nodeGroup)
	if err != nil {
		return nil, err
	}

	var out []GroupEntry
	for i := 0; i < int(h.used); i++ {
		if _, err := nr.Length(); err != nil { // key: heap offset of a name
			return nil, err
		}
		child, err := nr.Offset()
		if err != nil {
			return nil, err
		}
		var entries []GroupEntry
		if h.level == 0 {
			entries, err = readSymbolNode(r, child, names)
		} else {
			entries, err = readGroupNode(r, child, names, depth+1)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
	}
	return out, nil
}

func readSymbolNode(r *bin.Reader, addr uint64, names *heap.Local) ([]GroupEntry, error) {
	nr := r.At(int64(addr))
	sig, err := nr.Bytes(4)
	if err != nil {
		return nil, fmt.Errorf("symbol table node at %#x: %w", addr, err)
	}
	if string(sig) != snodSignature {
		return nil, fmt.Errorf("symbol table node at %#x: bad signature %q", addr, sig)
	}
	version, err := nr.Uint8()
	if err != nil {
		return nil, err
	}
	if version != 1 {
		return nil, fmt.Errorf("symbol table node at %#x: unsupported version %d", addr, version)
	}
	nr.Skip(1)
	n, err := nr.Uint16()
	if err != nil {
		return nil, err
	}

	out := make([]GroupEntry, 0, n)
	for i := 0; i < int(n); i++ {
		e, err := readSymbolEntry(nr, names)
		if err != nil {
			return nil, fmt.Errorf("symbol table node at %#x entry %d: %w", addr, i, err)
		}
		if e.Name != "" {
			out = append(out, e)
		}
	}
	return out, nil
}

func readSymbolEntry(r *bin.Reader, names *heap.Local) (GroupEntry, error) {
	var e GroupEntry
	nameOff, err := r.Offset()
	if err != nil {
		return e, err
	}
	if e.Address, err = r.Offset(); err != nil {
		return e, err
	}
	cache, err := r.Uint32()
	if err != nil {
		return e, err
	}
	r.Skip(4)
	scratch, err := r.Bytes(16)
	if err != nil {
		return e, err
	}
	e.Name = names.String(nameOff)
	if cache == cacheSoft {
		e.Soft = true
		e.Target = names.String(bin.DecodeUint(scratch[:4], r.Config().ByteOrder))
		e.Address = bin.Undefined
	}
	return e, nil
}
