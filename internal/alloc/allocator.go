package alloc

import (
	"sort"
	"sync"
)

// Allocator hands out file space for metadata and raw data. New space is
// carved from the end of file; space returned with Free is reused first-fit
// for the rest of the session. Free space is not persisted, matching the
// HDF5 library's default file space strategy.
type Allocator struct {
	mu    sync.Mutex
	eof   uint64
	free  []Block
	stats Stats
}

// Block is a span of file space.
type Block struct {
	Addr uint64
	Size uint64
}

// Stats counts allocator activity for diagnostics.
type Stats struct {
	Allocations uint64
	Reused      uint64
	BytesAlloc  uint64
	BytesFreed  uint64
}

// New returns an allocator whose first allocation starts at eof.
func New(eof uint64) *Allocator {
	return &Allocator{eof: eof}
}

// Alloc reserves size bytes and returns the address.
func (a *Allocator) Alloc(size uint64) uint64 {
	return a.AllocAligned(size, 1)
}

// AllocAligned reserves size bytes at an address that is a multiple of
// align. Free blocks are only reused for unaligned requests.
func (a *Allocator) AllocAligned(size, align uint64) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.Allocations++
	a.stats.BytesAlloc += size
	if size == 0 {
		return a.eof
	}
	if align <= 1 {
		for i, blk := range a.free {
			if blk.Size < size {
				continue
			}
			addr := blk.Addr
			if blk.Size == size {
				a.free = append(a.free[:i], a.free[i+1:]...)
			} else {
				a.free[i] = Block{Addr: blk.Addr + size, Size: blk.Size - size}
			}
			a.stats.Reused++
			return addr
		}
	}
	if align > 1 && a.eof%align != 0 {
		pad := align - a.eof%align
		a.free = append(a.free, Block{Addr: a.eof, Size: pad})
		a.eof += pad
	}
	addr := a.eof
	a.eof += size
	return addr
}

// Free returns a block to the allocator. Adjacent free blocks are merged
// and a free block touching the end of file shrinks it.
func (a *Allocator) Free(addr, size uint64) {
	if size == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.BytesFreed += size
	a.free = append(a.free, Block{Addr: addr, Size: size})
	sort.Slice(a.free, func(i, j int) bool { return a.free[i].Addr < a.free[j].Addr })

	merged := a.free[:1]
	for _, blk := range a.free[1:] {
		last := &merged[len(merged)-1]
		if last.Addr+last.Size == blk.Addr {
			last.Size += blk.Size
			continue
		}
		merged = append(merged, blk)
	}
	a.free = merged

	if n := len(a.free); n > 0 {
		if tail := a.free[n-1]; tail.Addr+tail.Size == a.eof {
			a.eof = tail.Addr
			a.free = a.free[:n-1]
		}
	}
}

// EOF returns the current end-of-file address.
func (a *Allocator) EOF() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.eof
}

// FreeBlocks returns a copy of the free list in address order.
func (a *Allocator) FreeBlocks() []Block {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Block(nil), a.free...)
}

func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}
