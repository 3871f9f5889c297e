package dal

import (
	"path"
	"sync"

	"github.com/robert-malhotra/go-lofar-dal/dal/schema"
	"github.com/robert-malhotra/go-lofar-dal/hdf5"
)

// ObjectType filters member enumeration.
type ObjectType int

const (
	AllObjects ObjectType = iota
	Groups
	Datasets
)

func (t ObjectType) matches(typ hdf5.ObjectType) bool {
	switch t {
	case Groups:
		return typ == hdf5.ObjectGroup
	case Datasets:
		return typ == hdf5.ObjectDataset
	}
	return true
}

// EmbeddedFunc opens or creates the children of a group of some kind. It
// runs right after the group is opened or created.
type EmbeddedFunc func(g *Group, create bool) error

var (
	hooksMu sync.RWMutex
	hooks   = make(map[schema.Kind]EmbeddedFunc)
)

// RegisterEmbedded installs the embedded hook of kind, replacing any
// earlier one. A nil fn removes the hook.
func RegisterEmbedded(kind schema.Kind, fn EmbeddedFunc) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if fn == nil {
		delete(hooks, kind)
		return
	}
	hooks[kind] = fn
}

func embeddedHook(kind schema.Kind) EmbeddedFunc {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return hooks[kind]
}

// Group is an open group of some schema kind.
type Group struct {
	handle
	g    *hdf5.Group
	kind schema.Kind
}

// OpenGroup opens the group name below parent. When it does not exist and
// create is set, the group is created and the defaults of kind are
// written; otherwise the call fails with ErrNotFound and changes nothing.
// The embedded hook of kind runs in both cases. An empty kind opens a
// plain group.
func OpenGroup(parent Location, name string, kind schema.Kind, create bool) (*Group, error) {
	o := op{name: "open group", path: parent.Path(), attr: name}
	_, pg, err := parent.target()
	if err != nil {
		return nil, err
	}
	if pg == nil {
		return nil, o.fail(ErrMismatch.New(parent.Path() + " cannot hold groups"))
	}

	if pg.Has(name) {
		hg, err := pg.OpenGroup(name)
		if err != nil {
			return nil, o.wrap(err)
		}
		g := newGroup(hg, kind)
		return g, populate(g, kind, false)
	}
	if !create {
		return nil, o.fail(ErrNotFound.New(o.subject()))
	}
	hg, err := pg.CreateGroup(name)
	if err != nil {
		o.name = "create group"
		return nil, o.wrap(err)
	}
	g := newGroup(hg, kind)
	return g, populate(g, kind, true)
}

func newGroup(g *hdf5.Group, kind schema.Kind) *Group {
	return &Group{handle: handle{state: StateOpen, path: g.Path()}, g: g, kind: kind}
}

// populate writes the defaults of kind to a newly created group and runs
// the embedded hook.
func populate(g *Group, kind schema.Kind, created bool) error {
	if kind == "" {
		return nil
	}
	g.kind = kind
	if created {
		if err := ApplySchema(g, kind); err != nil {
			return err
		}
	}
	if fn := embeddedHook(kind); fn != nil {
		return fn(g, created)
	}
	return nil
}

// ApplySchema writes every attribute of kind, in schema order, with its
// default value.
func ApplySchema(loc Location, kind schema.Kind) error {
	s, err := schema.Lookup(kind)
	if err != nil {
		return op{name: "apply schema", path: loc.Path()}.fail(ErrNotFound.Wrap(err, "schema kind "+string(kind)))
	}
	for _, f := range s.Fields {
		v, err := f.Value()
		if err != nil {
			return op{name: "apply schema", path: loc.Path(), attr: f.Name}.fail(ErrMismatch.Wrap(err, f.Name))
		}
		if err := setAttr(loc, "apply schema", f.Name, v); err != nil {
			return err
		}
	}
	return nil
}

// Name returns the last path component.
func (g *Group) Name() string { return path.Base(g.path) }

// Kind returns the schema kind the group was opened as.
func (g *Group) Kind() schema.Kind { return g.kind }

// Engine returns the underlying HDF5 group, or nil unless the group is
// open.
func (g *Group) Engine() *hdf5.Group {
	if g.state != StateOpen {
		return nil
	}
	return g.g
}

func (g *Group) target() (attrObject, *hdf5.Group, error) {
	if err := g.check("access group"); err != nil {
		return nil, nil, err
	}
	return g.g, g.g, nil
}

// Has reports whether a direct child called name exists.
func (g *Group) Has(name string) bool {
	return g.state == StateOpen && g.g.Has(name)
}

// MemberNames returns the names of the children of type t as a set.
func (g *Group) MemberNames(t ObjectType) (map[string]struct{}, error) {
	names, err := g.members(t, false)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set, nil
}

// MemberList returns the names of the children of type t in ascending
// order.
func (g *Group) MemberList(t ObjectType) ([]string, error) {
	return g.members(t, false)
}

// MemberListByCreation returns the names of the children of type t in the
// order their links were created.
func (g *Group) MemberListByCreation(t ObjectType) ([]string, error) {
	return g.members(t, true)
}

func (g *Group) members(t ObjectType, byCreation bool) ([]string, error) {
	if err := g.check("list members"); err != nil {
		return nil, err
	}
	list := g.g.Members
	if byCreation {
		list = g.g.MembersByCreation
	}
	names, err := list()
	if err != nil {
		return nil, op{name: "list members", path: g.path}.wrap(err)
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		if t != AllObjects {
			typ, err := g.g.ObjectType(name)
			if err != nil {
				return nil, op{name: "list members", path: g.path, attr: name}.wrap(err)
			}
			if !t.matches(typ) {
				continue
			}
		}
		out = append(out, name)
	}
	return out, nil
}

// Close releases the group. Closing twice is a no-op.
func (g *Group) Close() error {
	if g.state == StateOpen {
		g.state = StateClosed
		g.g = nil
	}
	return nil
}
