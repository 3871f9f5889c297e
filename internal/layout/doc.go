// Package layout moves dataset elements between memory and the three HDF5
// raw data storage classes.
//
// # Storage Layouts
//
//   - Compact: data lives inside the object header. Read-only here, since the
//     library never creates compact datasets.
//   - Contiguous: one block in the file, addressed in row-major order.
//   - Chunked: fixed-shape chunks stored separately, each passed through the
//     dataset's filter pipeline and located through a chunk index.
//
// # Runs
//
// Every transfer is described as a list of [Run] values: stretches of
// consecutive elements along the fastest-varying axis. A selection of any
// shape reduces to runs, and the element buffer on the caller's side is the
// runs' elements packed back to back in list order. This keeps stores free of
// any knowledge about hyperslab algebra.
//
// # Chunk Updates
//
// A chunked write loads every touched chunk once, applies all runs that fall
// into it, then filters and stores it. Chunks that never existed start from
// the fill value. A rewritten chunk keeps its file space when the encoded
// bytes still fit and is moved otherwise.
package layout
