// Package superblock reads and writes the HDF5 superblock, the structure at
// the start of every file that records address sizes, the logical end of
// file and the root group.
//
// Versions 0 and 1 (classic files) are read only; the root group is then
// described by a symbol table entry whose scratch pad caches the group's
// B-tree and local heap addresses. Versions 2 and 3 are read and written;
// every file this library creates carries a version 3 superblock with
// 8-byte offsets and lengths.
//
// The superblock is searched for at offsets 0, 512, 1024 and so on in
// powers of two, as user blocks may precede it.
package superblock
