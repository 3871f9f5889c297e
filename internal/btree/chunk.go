package btree

import (
	"fmt"
	"io"
	"slices"

	"github.com/google/btree"

	"github.com/robert-malhotra/go-lofar-dal/internal/alloc"
	bin "github.com/robert-malhotra/go-lofar-dal/internal/binary"
)

// DefaultK is the chunk B-tree rank HDF5 uses when the superblock does not
// say otherwise. Nodes hold at most 2K children.
const DefaultK = 32

// Chunk is one stored chunk of a dataset.
type Chunk struct {
	Offset     []uint64 // logical offset of the chunk's first element
	Size       uint32   // stored bytes, after filters
	FilterMask uint32
	Address    uint64
}

func chunkLess(a, b *Chunk) bool {
	return slices.Compare(a.Offset, b.Offset) < 0
}

// Index is the chunk index of one dataset.
type Index struct {
	rank  int
	chunk []uint64

	tree  *btree.BTreeG[*Chunk]
	nodes []uint64 // addresses of the on-disk nodes of the last written tree
	root  uint64
	dirty bool
}

// NewIndex returns an empty index for chunks of the given shape.
func NewIndex(chunk []uint64) *Index {
	return &Index{
		rank:  len(chunk),
		chunk: slices.Clone(chunk),
		tree:  btree.NewG[*Chunk](16, chunkLess),
		root:  bin.Undefined,
	}
}

// ReadIndex loads the chunk B-tree rooted at addr. An undefined address
// yields an empty index.
func ReadIndex(r *bin.Reader, addr uint64, chunk []uint64) (*Index, error) {
	ix := NewIndex(chunk)
	if addr == bin.Undefined {
		return ix, nil
	}
	if err := ix.readNode(r, addr, 0); err != nil {
		return nil, err
	}
	ix.root = addr
	return ix, nil
}

func (ix *Index) readNode(r *bin.Reader, addr uint64, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("chunk B-tree at %#x: too deep", addr)
	}
	ix.nodes = append(ix.nodes, addr)
	nr := r.At(int64(addr))
	h, err := readNodeHeader(nr, nodeChunk)
	if err != nil {
		return err
	}
	for i := 0; i < int(h.used); i++ {
		key, err := ix.readKey(nr)
		if err != nil {
			return err
		}
		child, err := nr.Offset()
		if err != nil {
			return err
		}
		if h.level > 0 {
			if err := ix.readNode(r, child, depth+1); err != nil {
				return err
			}
			continue
		}
		if child == bin.Undefined || key.Size == 0 {
			continue
		}
		key.Address = child
		ix.tree.ReplaceOrInsert(key)
	}
	return nil
}

func (ix *Index) readKey(r *bin.Reader) (*Chunk, error) {
	var c Chunk
	var err error
	if c.Size, err = r.Uint32(); err != nil {
		return nil, err
	}
	if c.FilterMask, err = r.Uint32(); err != nil {
		return nil, err
	}
	c.Offset = make([]uint64, ix.rank)
	for d := range c.Offset {
		if c.Offset[d], err = r.Uint64(); err != nil {
			return nil, err
		}
	}
	r.Skip(8) // element-size dimension, always zero
	return &c, nil
}

// Get returns the chunk starting at offset.
func (ix *Index) Get(offset []uint64) (*Chunk, bool) {
	return ix.tree.Get(&Chunk{Offset: offset})
}

// Put inserts or replaces a chunk entry.
func (ix *Index) Put(c Chunk) {
	c.Offset = slices.Clone(c.Offset)
	ix.tree.ReplaceOrInsert(&c)
	ix.dirty = true
}

func (ix *Index) Len() int { return ix.tree.Len() }

// Ascend calls fn for each chunk in key order until fn returns false.
func (ix *Index) Ascend(fn func(*Chunk) bool) { ix.tree.Ascend(fn) }

// Root is the address of the on-disk root node, or Undefined.
func (ix *Index) Root() uint64 { return ix.root }

// Dirty reports whether entries changed since the last Flush.
func (ix *Index) Dirty() bool { return ix.dirty }

func (ix *Index) keySize() int { return 8 + 8*(ix.rank+1) }

// NodeSize is the on-disk size of a node with rank k.
func (ix *Index) NodeSize(k int, cfg bin.Config) uint64 {
	head := 8 + 2*cfg.OffsetSize
	return uint64(head + (2*k+1)*ix.keySize() + 2*k*cfg.OffsetSize)
}

type node struct {
	level    uint8
	keys     []*Chunk // len(children)+1
	children []uint64
	addr     uint64
}

// Flush writes the index as a version 1 B-tree with nodes of rank k and
// returns the root address. Node addresses of the previous tree are reused
// before new space is allocated.
func (ix *Index) Flush(w io.WriterAt, a *alloc.Allocator, cfg bin.Config, k int) (uint64, error) {
	if k <= 0 {
		k = DefaultK
	}
	size := ix.NodeSize(k, cfg)
	free := ix.nodes
	ix.nodes = nil
	defer func() {
		for _, addr := range free {
			a.Free(addr, size)
		}
	}()

	if ix.tree.Len() == 0 {
		ix.root, ix.dirty = bin.Undefined, false
		return ix.root, nil
	}

	var entries []*Chunk
	ix.tree.Ascend(func(c *Chunk) bool {
		entries = append(entries, c)
		return true
	})

	// Leaves.
	var level []*node
	for _, part := range split(len(entries), 2*k) {
		n := &node{}
		for _, c := range entries[part[0]:part[1]] {
			n.keys = append(n.keys, c)
			n.children = append(n.children, c.Address)
		}
		n.keys = append(n.keys, ix.upperKey(entries[part[1]-1]))
		level = append(level, n)
	}
	levels := [][]*node{level}
	for depth := uint8(1); len(level) > 1; depth++ {
		var up []*node
		for _, part := range split(len(level), 2*k) {
			n := &node{level: depth}
			for _, child := range level[part[0]:part[1]] {
				n.keys = append(n.keys, child.keys[0])
			}
			n.keys = append(n.keys, level[part[1]-1].keys[len(level[part[1]-1].keys)-1])
			n.children = make([]uint64, 0, part[1]-part[0])
			up = append(up, n)
		}
		levels = append(levels, up)
		level = up
	}

	// Addresses are assigned root first, before encoding, so parents can
	// point at children and a rewrite keeps the root where it was.
	for li := len(levels) - 1; li >= 0; li-- {
		for _, n := range levels[li] {
			if len(free) > 0 {
				n.addr, free = free[0], free[1:]
			} else {
				n.addr = a.Alloc(size)
			}
			ix.nodes = append(ix.nodes, n.addr)
		}
	}
	for li := 1; li < len(levels); li++ {
		below := levels[li-1]
		i := 0
		for _, n := range levels[li] {
			for k := 0; k < len(n.keys)-1; k++ {
				n.children = append(n.children, below[i].addr)
				i++
			}
		}
	}

	b := bin.NewBuffer(cfg)
	for _, lv := range levels {
		for i, n := range lv {
			left, right := bin.Undefined, bin.Undefined
			if i > 0 {
				left = lv[i-1].addr
			}
			if i+1 < len(lv) {
				right = lv[i+1].addr
			}
			b.Reset()
			b.PutString(signature)
			b.PutUint8(nodeChunk)
			b.PutUint8(n.level)
			b.PutUint16(uint16(len(n.children)))
			b.PutOffset(left)
			b.PutOffset(right)
			for j, child := range n.children {
				ix.putKey(b, n.keys[j])
				b.PutOffset(child)
			}
			ix.putKey(b, n.keys[len(n.keys)-1])
			b.PutZeros(int(size) - b.Len())
			if _, err := w.WriteAt(b.Bytes(), int64(n.addr)); err != nil {
				return bin.Undefined, fmt.Errorf("writing chunk B-tree node at %#x: %w", n.addr, err)
			}
		}
	}

	ix.root = levels[len(levels)-1][0].addr
	ix.dirty = false
	return ix.root, nil
}

// upperKey is the key that closes the node whose last chunk is c: the
// offset one chunk past it.
func (ix *Index) upperKey(c *Chunk) *Chunk {
	off := make([]uint64, ix.rank)
	for d := range off {
		off[d] = c.Offset[d] + ix.chunk[d]
	}
	return &Chunk{Offset: off}
}

func (ix *Index) putKey(b *bin.Buffer, c *Chunk) {
	b.PutUint32(c.Size)
	b.PutUint32(c.FilterMask)
	for _, o := range c.Offset {
		b.PutUint64(o)
	}
	b.PutUint64(0)
}

// split divides n items into the fewest runs of at most limit items, with
// run lengths differing by at most one.
func split(n, limit int) [][2]int {
	parts := (n + limit - 1) / limit
	out := make([][2]int, 0, parts)
	start := 0
	for p := 0; p < parts; p++ {
		size := n / parts
		if p < n%parts {
			size++
		}
		out = append(out, [2]int{start, start + size})
		start += size
	}
	return out
}
