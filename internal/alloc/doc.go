// Package alloc manages file space while a file is open for writing.
//
// Object headers, heap collections, B-tree nodes and raw chunks all receive
// their addresses from one [Allocator] per file. Allocation appends at the
// end of file unless a previously freed block is large enough:
//
//	a := alloc.New(sb.EOF)
//	addr := a.Alloc(512)
//	a.Free(addr, 512) // may be handed out again
//
// The free list lives only in memory; space freed in one session and not
// reused is left as a hole in the file.
package alloc
