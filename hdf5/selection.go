package hdf5

import (
	"fmt"
	"slices"

	"github.com/robert-malhotra/go-lofar-dal/internal/layout"
)

// SelectOp combines a hyperslab with an existing selection.
type SelectOp int

const (
	SelectSet  SelectOp = iota // replace
	SelectOr                   // union
	SelectAnd                  // intersection
	SelectXor                  // symmetric difference
	SelectNotB                 // existing minus new
	SelectNotA                 // new minus existing
)

var opNames = [...]string{"set", "or", "and", "xor", "notb", "nota"}

func (op SelectOp) String() string {
	if op < 0 || int(op) >= len(opNames) {
		return fmt.Sprintf("SelectOp(%d)", int(op))
	}
	return opNames[op]
}

// ParseSelectOp maps an operator name as printed by String back to its
// value.
func ParseSelectOp(s string) (SelectOp, error) {
	for i, name := range opNames {
		if name == s {
			return SelectOp(i), nil
		}
	}
	return 0, fmt.Errorf("unknown selection operator %q", s)
}

// Hyperslab is a regular pattern of blocks: Count blocks of shape Block per
// axis, Stride elements apart, starting at Start. A nil Stride or Block
// means ones.
type Hyperslab struct {
	Start  []uint64
	Stride []uint64
	Count  []uint64
	Block  []uint64
}

// box is the half-open region [lo, hi).
type box struct {
	lo, hi []uint64
}

func (b box) empty() bool {
	for d := range b.lo {
		if b.lo[d] >= b.hi[d] {
			return true
		}
	}
	return false
}

func (b box) intersect(o box) (box, bool) {
	r := box{lo: make([]uint64, len(b.lo)), hi: make([]uint64, len(b.lo))}
	for d := range b.lo {
		r.lo[d] = max(b.lo[d], o.lo[d])
		r.hi[d] = min(b.hi[d], o.hi[d])
	}
	return r, !r.empty()
}

// subtract returns b minus o as disjoint boxes.
func (b box) subtract(o box) []box {
	if _, ok := b.intersect(o); !ok {
		return []box{b}
	}
	var out []box
	rest := box{lo: slices.Clone(b.lo), hi: slices.Clone(b.hi)}
	for d := range b.lo {
		if rest.lo[d] < o.lo[d] {
			p := box{lo: slices.Clone(rest.lo), hi: slices.Clone(rest.hi)}
			p.hi[d] = o.lo[d]
			out = append(out, p)
			rest.lo[d] = o.lo[d]
		}
		if rest.hi[d] > o.hi[d] {
			p := box{lo: slices.Clone(rest.lo), hi: slices.Clone(rest.hi)}
			p.lo[d] = o.hi[d]
			out = append(out, p)
			rest.hi[d] = o.hi[d]
		}
	}
	return out
}

func subtractAll(as, bs []box) []box {
	for _, b := range bs {
		var next []box
		for _, a := range as {
			next = append(next, a.subtract(b)...)
		}
		as = next
	}
	return as
}

func intersectAll(as, bs []box) []box {
	var out []box
	for _, a := range as {
		for _, b := range bs {
			if r, ok := a.intersect(b); ok {
				out = append(out, r)
			}
		}
	}
	return out
}

// boxes expands h into disjoint boxes. Axes whose blocks touch are merged
// into one interval.
func (h Hyperslab) boxes(rank int) ([]box, error) {
	if len(h.Start) != rank || len(h.Count) != rank ||
		(h.Stride != nil && len(h.Stride) != rank) || (h.Block != nil && len(h.Block) != rank) {
		return nil, fmt.Errorf("%w: hyperslab rank does not match %d", ErrShape, rank)
	}
	axes := make([][][2]uint64, rank)
	for d := 0; d < rank; d++ {
		stride, block := uint64(1), uint64(1)
		if h.Stride != nil {
			stride = h.Stride[d]
		}
		if h.Block != nil {
			block = h.Block[d]
		}
		count := h.Count[d]
		switch {
		case count == 0 || block == 0:
			return nil, nil
		case stride == 0:
			return nil, fmt.Errorf("%w: zero stride on axis %d", ErrShape, d)
		case count > 1 && stride < block:
			return nil, fmt.Errorf("%w: blocks overlap on axis %d", ErrShape, d)
		case stride == block:
			axes[d] = [][2]uint64{{h.Start[d], h.Start[d] + count*block}}
		default:
			for i := uint64(0); i < count; i++ {
				lo := h.Start[d] + i*stride
				axes[d] = append(axes[d], [2]uint64{lo, lo + block})
			}
		}
	}

	out := []box{{}}
	for d := 0; d < rank; d++ {
		var next []box
		for _, b := range out {
			for _, iv := range axes[d] {
				next = append(next, box{
					lo: append(slices.Clone(b.lo), iv[0]),
					hi: append(slices.Clone(b.hi), iv[1]),
				})
			}
		}
		out = next
	}
	return out, nil
}

// Selection is a set of elements of a dataspace built from hyperslabs.
// Elements are transferred in row-major order.
type Selection struct {
	rank  int
	boxes []box // disjoint
}

// NewSelection returns an empty selection of the given rank.
func NewSelection(rank int) *Selection {
	return &Selection{rank: rank}
}

// SelectBox returns the selection of the block [start, start+count).
func SelectBox(start, count []uint64) *Selection {
	s := NewSelection(len(start))
	s.Select(Hyperslab{Start: start, Count: count}, SelectSet)
	return s
}

// Rank returns the rank of the selection.
func (s *Selection) Rank() int { return s.rank }

// Select combines h into the selection.
func (s *Selection) Select(h Hyperslab, op SelectOp) error {
	b, err := h.boxes(s.rank)
	if err != nil {
		return err
	}
	switch op {
	case SelectSet:
		s.boxes = b
	case SelectOr:
		s.boxes = append(s.boxes, subtractAll(b, s.boxes)...)
	case SelectAnd:
		s.boxes = intersectAll(s.boxes, b)
	case SelectXor:
		s.boxes = append(subtractAll(s.boxes, b), subtractAll(b, s.boxes)...)
	case SelectNotB:
		s.boxes = subtractAll(s.boxes, b)
	case SelectNotA:
		s.boxes = subtractAll(b, s.boxes)
	default:
		return fmt.Errorf("unknown selection operator %d", int(op))
	}
	return nil
}

// Count returns the number of selected elements.
func (s *Selection) Count() uint64 {
	var n uint64
	for _, b := range s.boxes {
		c := uint64(1)
		for d := range b.lo {
			c *= b.hi[d] - b.lo[d]
		}
		n += c
	}
	return n
}

// Bounds returns the bounding box [lo, hi) of the selection. ok is false
// for an empty selection.
func (s *Selection) Bounds() (lo, hi []uint64, ok bool) {
	if len(s.boxes) == 0 {
		return nil, nil, false
	}
	lo, hi = slices.Clone(s.boxes[0].lo), slices.Clone(s.boxes[0].hi)
	for _, b := range s.boxes[1:] {
		for d := range lo {
			lo[d] = min(lo[d], b.lo[d])
			hi[d] = max(hi[d], b.hi[d])
		}
	}
	return lo, hi, true
}

// runs lists the selected elements as row-major runs, merging runs that
// continue each other.
func (s *Selection) runs() []layout.Run {
	var runs []layout.Run
	for _, b := range s.boxes {
		count := make([]uint64, len(b.lo))
		for d := range b.lo {
			count[d] = b.hi[d] - b.lo[d]
		}
		runs = append(runs, layout.BoxRuns(b.lo, count)...)
	}
	slices.SortFunc(runs, func(x, y layout.Run) int { return slices.Compare(x.Start, y.Start) })

	last := s.rank - 1
	var out []layout.Run
	for _, r := range runs {
		if k := len(out) - 1; k >= 0 && last >= 0 &&
			slices.Equal(out[k].Start[:last], r.Start[:last]) &&
			out[k].Start[last]+out[k].Len == r.Start[last] {
			out[k].Len += r.Len
			continue
		}
		out = append(out, r)
	}
	return out
}
