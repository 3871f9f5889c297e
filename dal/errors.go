// Package dal is the LOFAR Data Access Library: typed attributes, chunked
// extendible arrays with hyperslab selections, and schema-driven groups on
// top of the pure Go HDF5 engine in package hdf5.
//
// Every failure is logged through the package logger and returned as one
// of four error kinds; test for them with Kind.Is.
package dal

import (
	"errors"

	"github.com/sirupsen/logrus"
	goerrors "gopkg.in/src-d/go-errors.v1"

	"github.com/robert-malhotra/go-lofar-dal/hdf5"
)

var (
	// ErrInvalidHandle is returned by operations on an object that was
	// never opened or has been closed.
	ErrInvalidHandle = goerrors.NewKind("invalid handle: %s")
	// ErrNotFound is returned when an attribute or child object is absent.
	ErrNotFound = goerrors.NewKind("%s not found")
	// ErrLibrary is returned when the storage engine fails.
	ErrLibrary = goerrors.NewKind("%s failed")
	// ErrMismatch is returned when a shape or type does not match the
	// stored data.
	ErrMismatch = goerrors.NewKind("mismatch: %s")
)

// op describes a failing operation for the log and the error message.
type op struct {
	name string // operation
	path string // object path
	attr string // attribute or child name
}

func (o op) fields() logrus.Fields {
	f := logrus.Fields{"op": o.name, "path": o.path}
	if o.attr != "" {
		f["name"] = o.attr
	}
	return f
}

func (o op) subject() string {
	if o.attr == "" {
		return o.path
	}
	return o.path + ": " + o.attr
}

// fail logs err and returns it.
func (o op) fail(err *goerrors.Error) error {
	Logger().WithFields(o.fields()).Error(err.Error())
	return err
}

// wrap classifies an engine error and logs it.
func (o op) wrap(err error) error {
	var kind *goerrors.Kind
	switch {
	case errors.Is(err, hdf5.ErrClosed):
		kind = ErrInvalidHandle
	case errors.Is(err, hdf5.ErrNotFound):
		kind = ErrNotFound
	case errors.Is(err, hdf5.ErrShape), errors.Is(err, hdf5.ErrType),
		errors.Is(err, hdf5.ErrNotGroup), errors.Is(err, hdf5.ErrNotDataset):
		kind = ErrMismatch
	default:
		kind = ErrLibrary
	}
	if kind == ErrLibrary {
		return o.fail(kind.Wrap(err, o.name))
	}
	return o.fail(kind.Wrap(err, o.subject()))
}
