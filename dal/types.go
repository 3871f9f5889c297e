package dal

import (
	"github.com/robert-malhotra/go-lofar-dal/hdf5"
)

// ElementType is the element type of an array.
type ElementType = hdf5.ElementType

// Element types accepted by CreateArray.
const (
	Int16            = hdf5.Int16
	Int32            = hdf5.Int32
	Int64            = hdf5.Int64
	Uint16           = hdf5.Uint16
	Uint32           = hdf5.Uint32
	Uint64           = hdf5.Uint64
	Float32          = hdf5.Float32
	Float64          = hdf5.Float64
	Complex64        = hdf5.Complex64
	Complex128       = hdf5.Complex128
	ComplexInt16Type = hdf5.ComplexInt16Type
)

// ComplexInt16 is a complex sample with 16-bit integer parts, stored as a
// compound of "real" and "imag" members.
type ComplexInt16 = hdf5.ComplexInt16

// Hyperslab describes a regular pattern of blocks; see hdf5.Hyperslab.
type Hyperslab = hdf5.Hyperslab

// SelectOp combines a hyperslab with the current selection.
type SelectOp = hdf5.SelectOp

const (
	SelectSet  = hdf5.SelectSet
	SelectOr   = hdf5.SelectOr
	SelectAnd  = hdf5.SelectAnd
	SelectXor  = hdf5.SelectXor
	SelectNotB = hdf5.SelectNotB
	SelectNotA = hdf5.SelectNotA
)

// Unlimited marks an axis without a maximum extent.
const Unlimited = hdf5.Unlimited

var creatable = map[ElementType]bool{
	Int16: true, Int32: true, Int64: true,
	Uint16: true, Uint32: true, Uint64: true,
	Float32: true, Float64: true,
	Complex64: true, Complex128: true, ComplexInt16Type: true,
}
