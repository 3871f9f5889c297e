package layout

import (
	"errors"
	"fmt"
)

var (
	// ErrReadOnly is returned when writing to a store that cannot be
	// modified.
	ErrReadOnly = errors.New("storage is read-only")
	// ErrNotAllocated is returned when writing to contiguous storage that
	// has no file space.
	ErrNotAllocated = errors.New("storage not allocated")
	// ErrBufferSize is returned when a buffer does not match the runs.
	ErrBufferSize = errors.New("buffer size does not match selection")
)

// Run is Len consecutive elements starting at Start, advancing along the
// last axis.
type Run struct {
	Start []uint64
	Len   uint64
}

// Store reads and writes runs of elements. The buffer holds the elements of
// all runs packed in order.
type Store interface {
	Read(runs []Run, dst []byte) error
	Write(runs []Run, src []byte) error
}

// Params are the properties shared by all stores.
type Params struct {
	Dims     []uint64 // current extent
	ElemSize int
	Fill     []byte // one element; nil means zeros
}

// Count returns the number of elements covered by runs.
func Count(runs []Run) uint64 {
	var n uint64
	for _, r := range runs {
		n += r.Len
	}
	return n
}

// BoxRuns returns the runs of the block [start, start+count) in row-major
// order. A zero count yields no runs. Rank 0 is a single element.
func BoxRuns(start, count []uint64) []Run {
	rank := len(start)
	if rank == 0 {
		return []Run{{Len: 1}}
	}
	total := uint64(1)
	for _, c := range count[:rank-1] {
		total *= c
	}
	if total == 0 || count[rank-1] == 0 {
		return nil
	}
	runs := make([]Run, 0, total)
	pos := make([]uint64, rank)
	copy(pos, start)
	for {
		runs = append(runs, Run{Start: append([]uint64(nil), pos...), Len: count[rank-1]})
		d := rank - 2
		for ; d >= 0; d-- {
			pos[d]++
			if pos[d] < start[d]+count[d] {
				break
			}
			pos[d] = start[d]
		}
		if d < 0 {
			return runs
		}
	}
}

// checkBuffer verifies that buf holds exactly the elements of runs.
func checkBuffer(runs []Run, buf []byte, elemSize int) error {
	if want := Count(runs) * uint64(elemSize); uint64(len(buf)) != want {
		return fmt.Errorf("%w: have %d bytes, need %d", ErrBufferSize, len(buf), want)
	}
	return nil
}

// linear returns the row-major element index of pos within dims.
func linear(pos, dims []uint64) uint64 {
	var idx uint64
	for d := range dims {
		idx = idx*dims[d] + pos[d]
	}
	return idx
}

// fill repeats the fill element over buf.
func fill(buf, elem []byte) {
	if len(elem) == 0 {
		clear(buf)
		return
	}
	for i := 0; i+len(elem) <= len(buf); i += len(elem) {
		copy(buf[i:], elem)
	}
}
