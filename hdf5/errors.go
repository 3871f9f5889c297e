// Package hdf5 is a pure Go reader and writer for the subset of HDF5 used
// by LOFAR data products.
package hdf5

import (
	"errors"

	"github.com/robert-malhotra/go-lofar-dal/internal/superblock"
)

// Common errors
var (
	ErrNotHDF5     = superblock.ErrNotHDF5
	ErrNotFound    = errors.New("object not found")
	ErrNotDataset  = errors.New("object is not a dataset")
	ErrNotGroup    = errors.New("object is not a group")
	ErrExists      = errors.New("object already exists")
	ErrUnsupported = errors.New("unsupported feature")
	ErrInvalidPath = errors.New("invalid path")
	ErrClosed      = errors.New("file is closed")
	ErrReadOnly    = errors.New("file is read-only")
	ErrLocked      = errors.New("file is locked by another writer")
	ErrLinkDepth   = errors.New("maximum link depth exceeded")
	ErrShape       = errors.New("shape mismatch")
	ErrType        = errors.New("type mismatch")
)

// MaxLinkDepth is the maximum number of soft links followed while resolving
// one path.
const MaxLinkDepth = 100
