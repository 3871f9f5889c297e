// Package object reads and rewrites HDF5 object headers.
//
// Every group and dataset has an object header holding its metadata as a
// sequence of header messages. [Read] parses version 1 headers (classic
// files) and version 2 "OHDR" headers, following continuation chunks and
// dropping NIL padding. The result is a [Header] whose message list can be
// edited in memory and written back with [Header.Flush].
//
// # Stable addresses
//
// Links refer to objects by the address of their first header chunk, so a
// header is never moved once created. Flush packs messages into the first
// chunk and spills the remainder into a single "OCHK" continuation chunk,
// which is reused while it is big enough and re-allocated otherwise. Only
// version 2 headers can be flushed.
//
// # Usage
//
//	h, err := object.Read(r, addr)
//	space := h.Dataspace()
//	h.SetAttribute(attr)
//	err = h.Flush(w, allocator)
//
// # Errors
//
//   - [ErrInvalidHeader]: header signature or structure not recognized
//   - [ErrUnsupportedVersion]: header version not supported
//   - [ErrChecksumMismatch]: a version 2 chunk failed verification
//   - [ErrReadOnly]: Flush called on a version 1 header
package object
