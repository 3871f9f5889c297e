package dal

import (
	"github.com/robert-malhotra/go-lofar-dal/hdf5"
)

// State is the lifecycle state of a handle. Handles move from StateOpen
// to StateClosed once and never back.
type State int

const (
	StateUnopened State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return "unopened"
}

// attrObject is what the engine offers for attribute access on groups and
// datasets alike.
type attrObject interface {
	Path() string
	Attr(name string) (*hdf5.Attribute, error)
	SetAttr(name string, value any) error
	DeleteAttr(name string) error
	AttrNames() ([]string, error)
}

// Location is an open object that carries attributes: a *File, *Group or
// *Array.
type Location interface {
	Path() string
	// target returns the attribute carrier and, for containers, the group
	// children are created in.
	target() (attrObject, *hdf5.Group, error)
}

// handle holds the state shared by all wrappers.
type handle struct {
	state State
	path  string
}

func (h *handle) check(opName string) error {
	if h.state != StateOpen {
		return op{name: opName, path: h.path}.fail(ErrInvalidHandle.New(h.path + " is " + h.state.String()))
	}
	return nil
}

// State reports the lifecycle state.
func (h *handle) State() State { return h.state }

// Path returns the absolute path of the object.
func (h *handle) Path() string { return h.path }
