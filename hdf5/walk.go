package hdf5

import (
	"errors"
	"path"
)

// ErrSkipGroup can be returned by a WalkFunc called for a group to skip
// the group's members.
var ErrSkipGroup = errors.New("skip this group")

// WalkFunc is called for every object reached by Walk. obj is a *Group or a
// *Dataset; when the object could not be opened obj is nil and err says
// why. Returning an error other than ErrSkipGroup stops the walk.
type WalkFunc func(path string, obj any, err error) error

// Walk visits g and everything below it, parents before children, members
// in name order.
func Walk(g *Group, fn WalkFunc) error {
	err := walkGroup(g, fn)
	if errors.Is(err, ErrSkipGroup) {
		return nil
	}
	return err
}

func walkGroup(g *Group, fn WalkFunc) error {
	if err := fn(g.Path(), g, nil); err != nil {
		return err
	}
	names, err := g.Members()
	if err != nil {
		return fn(g.Path(), nil, err)
	}
	for _, name := range names {
		p := path.Join(g.Path(), name)
		typ, err := g.ObjectType(name)
		if err != nil {
			if err := fn(p, nil, err); err != nil {
				return err
			}
			continue
		}
		switch typ {
		case ObjectGroup:
			child, err := g.OpenGroup(name)
			if err != nil {
				err = fn(p, nil, err)
			} else {
				err = walkGroup(child, fn)
			}
			if err != nil && !errors.Is(err, ErrSkipGroup) {
				return err
			}
		case ObjectDataset:
			ds, err := g.OpenDataset(name)
			if err != nil {
				err = fn(p, nil, err)
			} else {
				err = fn(p, ds, nil)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// Attr returns the attribute at an "/object/path@name" path.
func (f *File) Attr(attrPath string) (*Attribute, error) {
	objectPath, name, err := ParseAttrPath(attrPath)
	if err != nil {
		return nil, err
	}
	root := f.Root()
	typ, err := root.ObjectType(objectPath)
	if err != nil {
		return nil, err
	}
	if typ == ObjectDataset {
		ds, err := root.OpenDataset(objectPath)
		if err != nil {
			return nil, err
		}
		return ds.Attr(name)
	}
	g, err := root.OpenGroup(objectPath)
	if err != nil {
		return nil, err
	}
	return g.Attr(name)
}
