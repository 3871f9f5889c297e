// Package heap implements the two HDF5 heaps the library touches.
//
// A local heap ("HEAP") holds the member names of a classic symbol-table
// group. It is only read.
//
// A global heap collection ("GCOL") holds the bytes of variable-length
// values, such as variable-length string attributes. Each value is addressed
// by an [ID], the collection address plus an object index. [Writer] appends
// values to a shared collection of at least 4096 bytes and starts a new one
// when the current collection is full. [Reader] resolves IDs, reading each
// collection once.
//
// A variable-length element in an attribute or dataset is the value length
// followed by its ID; see [DecodeVarLen] and [PutVarLen].
package heap
