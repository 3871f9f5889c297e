// Package filter implements the HDF5 chunk filter pipeline in both
// directions.
//
// Supported filters:
//
//   - deflate (ID 1), zlib streams via klauspost/compress
//   - shuffle (ID 2), byte transposition by element size
//   - fletcher32 (ID 3), a trailing checksum verified on decode
//
// A [Pipeline] encodes a chunk through its filters in order and decodes in
// reverse. The per-chunk filter mask records optional filters that were
// skipped on encode, and Decode honours it.
package filter
