// Package message decodes and encodes HDF5 object header messages.
//
// Every message type the library reads has a concrete struct implementing
// [Message]; types that are also written implement [Encoder]. Messages the
// library does not interpret are kept as [Unknown] so that rewriting an
// object header preserves them byte for byte.
//
// Encoders always emit the newest message versions the HDF5 1.8 library
// understands: dataspace v2, attribute v3, layout v3, link v1, fill value
// v3 and filter pipeline v2. Decoders also accept the older versions found
// in files written with the library defaults.
package message
