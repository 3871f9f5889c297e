// Package btree reads and writes the version 1 B-trees ("TREE") used by
// classic groups and chunked datasets, and reads the chunk indexes of
// version 4 layouts.
//
// Group B-trees (node type 0) point at symbol table nodes ("SNOD") whose
// entries name members through the group's local heap. They are only read;
// see [ReadGroup].
//
// Chunk B-trees (node type 1) map the logical offset of each chunk to its
// address and stored size. [Index] keeps a dataset's chunk entries in an
// in-memory B-tree ordered like the on-disk keys and writes them back as a
// fresh version 1 tree on [Index.Flush], reusing the node addresses of the
// previous tree.
//
// Files written with the latest format index chunks with a version 2
// B-tree ([ReadV2Index]), a fixed array ([ReadFixedArrayIndex]) or an
// extensible array ([ReadExtensibleArrayIndex]). These load into the same
// [Index] but are never flushed.
package btree
