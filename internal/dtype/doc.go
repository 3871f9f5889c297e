// Package dtype converts between dataset or attribute bytes and Go slices.
//
// [Decode] fills a Go slice from file elements and [Encode] produces file
// elements from a slice. Numeric values convert between any integer and
// floating point file type the way HDF5 converts them (C casts, clamped to
// the destination range). Complex values are two-member compounds whose
// members are found by name ("real", "imag" or "imaginary", "r", "i") or by
// position. Strings may be fixed-size or variable-length; the latter need a
// global heap, supplied through [HeapReader] and [HeapWriter].
//
// [For] maps a Go slice type to the datatype the library writes for it.
package dtype
