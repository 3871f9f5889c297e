package hdf5

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/robert-malhotra/go-lofar-dal/internal/btree"
	"github.com/robert-malhotra/go-lofar-dal/internal/heap"
	"github.com/robert-malhotra/go-lofar-dal/internal/message"
)

// Group is an HDF5 group.
type Group struct {
	node
}

// member is one link of a group.
type member struct {
	name     string
	addr     uint64
	soft     string // target of a soft link
	external bool
	order    uint64
	hasOrder bool
}

// members lists the links of the group at addr. It must be called with
// f.mu held.
func (f *File) members(addr uint64) ([]member, error) {
	h, err := f.header(addr)
	if err != nil {
		return nil, err
	}
	if st := h.SymbolTable(); st != nil {
		return f.symbolMembers(st)
	}
	if li := h.LinkInfo(); li != nil && li.Dense() {
		return nil, fmt.Errorf("%w: dense link storage at %#x", ErrUnsupported, addr)
	}
	var out []member
	for _, l := range h.Links() {
		m := member{name: l.Name, addr: l.Address, order: l.CreationOrder, hasOrder: l.HasOrder}
		switch l.LinkType {
		case message.LinkSoft:
			m.soft = l.SoftTarget
		case message.LinkExternal:
			m.external = true
		}
		out = append(out, m)
	}
	return out, nil
}

func (f *File) symbolMembers(st *message.SymbolTable) ([]member, error) {
	r := f.reader()
	names, err := heap.ReadLocal(r, st.HeapAddress)
	if err != nil {
		return nil, fmt.Errorf("group name heap: %w", err)
	}
	entries, err := btree.ReadGroup(r, st.BTreeAddress, names)
	if err != nil {
		return nil, fmt.Errorf("group B-tree: %w", err)
	}
	out := make([]member, len(entries))
	for i, e := range entries {
		out[i] = member{name: e.Name, addr: e.Address, soft: e.Target}
		if !e.Soft {
			out[i].soft = ""
		}
	}
	return out, nil
}

func findMember(ms []member, name string) (member, bool) {
	for _, m := range ms {
		if m.name == name {
			return m, true
		}
	}
	return member{}, false
}

// resolve walks p from the group at base and returns the target header
// address. depth counts soft links already followed.
func (f *File) resolve(base uint64, p string, depth int) (uint64, error) {
	addr := base
	if strings.HasPrefix(p, "/") {
		addr = f.sb.RootAddress
	}
	for _, name := range SplitPath(p) {
		if name == "." {
			continue
		}
		ms, err := f.members(addr)
		if err != nil {
			return 0, err
		}
		m, ok := findMember(ms, name)
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		switch {
		case m.external:
			return 0, fmt.Errorf("%w: external link %s", ErrUnsupported, name)
		case m.soft != "":
			if depth >= MaxLinkDepth {
				return 0, ErrLinkDepth
			}
			if addr, err = f.resolve(addr, m.soft, depth+1); err != nil {
				return 0, fmt.Errorf("soft link %s -> %s: %w", name, m.soft, err)
			}
		default:
			addr = m.addr
		}
	}
	return addr, nil
}

func (g *Group) childPath(p string) string {
	if strings.HasPrefix(p, "/") {
		return CleanPath(p)
	}
	return path.Join(g.path, p)
}

// open resolves p and checks the target's type. It must be called with
// f.mu held.
func (g *Group) open(p string) (uint64, ObjectType, error) {
	if err := g.file.check(false); err != nil {
		return 0, ObjectUnknown, err
	}
	addr, err := g.file.resolve(g.addr, p, 0)
	if err != nil {
		return 0, ObjectUnknown, err
	}
	h, err := g.file.header(addr)
	if err != nil {
		return 0, ObjectUnknown, err
	}
	return addr, objectTypeOf(h), nil
}

// OpenGroup opens a group by path, relative to g unless absolute. Soft
// links are followed.
func (g *Group) OpenGroup(p string) (*Group, error) {
	g.file.mu.Lock()
	defer g.file.mu.Unlock()
	addr, typ, err := g.open(p)
	if err != nil {
		return nil, err
	}
	if typ != ObjectGroup {
		return nil, fmt.Errorf("%w: %s", ErrNotGroup, g.childPath(p))
	}
	return &Group{node{file: g.file, path: g.childPath(p), addr: addr}}, nil
}

// OpenDataset opens a dataset by path, relative to g unless absolute.
func (g *Group) OpenDataset(p string) (*Dataset, error) {
	g.file.mu.Lock()
	defer g.file.mu.Unlock()
	addr, typ, err := g.open(p)
	if err != nil {
		return nil, err
	}
	if typ != ObjectDataset {
		return nil, fmt.Errorf("%w: %s", ErrNotDataset, g.childPath(p))
	}
	return &Dataset{node{file: g.file, path: g.childPath(p), addr: addr}}, nil
}

// ObjectType reports the type of the object name resolves to.
func (g *Group) ObjectType(name string) (ObjectType, error) {
	g.file.mu.Lock()
	defer g.file.mu.Unlock()
	_, typ, err := g.open(name)
	return typ, err
}

// Has reports whether a direct link called name exists.
func (g *Group) Has(name string) bool {
	g.file.mu.Lock()
	defer g.file.mu.Unlock()
	if g.file.check(false) != nil {
		return false
	}
	ms, err := g.file.members(g.addr)
	if err != nil {
		return false
	}
	_, ok := findMember(ms, name)
	return ok
}

// Members returns the link names in ascending order.
func (g *Group) Members() ([]string, error) {
	ms, err := g.linkList()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(ms))
	for i, m := range ms {
		names[i] = m.name
	}
	sort.Strings(names)
	return names, nil
}

// MembersByCreation returns the link names in creation order. Groups that
// do not track creation order list in name order.
func (g *Group) MembersByCreation() ([]string, error) {
	ms, err := g.linkList()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(ms, func(i, j int) bool {
		if ms[i].hasOrder && ms[j].hasOrder {
			return ms[i].order < ms[j].order
		}
		return ms[i].name < ms[j].name
	})
	names := make([]string, len(ms))
	for i, m := range ms {
		names[i] = m.name
	}
	return names, nil
}

func (g *Group) linkList() ([]member, error) {
	g.file.mu.Lock()
	defer g.file.mu.Unlock()
	if err := g.file.check(false); err != nil {
		return nil, err
	}
	return g.file.members(g.addr)
}

// CreateGroup creates a direct child group.
func (g *Group) CreateGroup(name string) (*Group, error) {
	g.file.mu.Lock()
	defer g.file.mu.Unlock()
	addr, err := g.link(name, groupMessages())
	if err != nil {
		return nil, err
	}
	return &Group{node{file: g.file, path: path.Join(g.path, name), addr: addr}}, nil
}

// link creates an object holding msgs and links it into g as name. It must
// be called with f.mu held.
func (g *Group) link(name string, msgs []message.Message) (uint64, error) {
	f := g.file
	if err := f.check(true); err != nil {
		return 0, err
	}
	if err := validName(name); err != nil {
		return 0, err
	}
	h, err := f.header(g.addr)
	if err != nil {
		return 0, err
	}
	li := h.LinkInfo()
	if li == nil {
		return 0, fmt.Errorf("%w: adding links to a symbol-table group", ErrUnsupported)
	}
	if li.Dense() {
		return 0, fmt.Errorf("%w: dense link storage in %s", ErrUnsupported, g.path)
	}
	if h.Link(name) != nil {
		return 0, fmt.Errorf("%w: %s", ErrExists, path.Join(g.path, name))
	}

	child, err := f.createHeader(msgs)
	if err != nil {
		return 0, err
	}
	h.Add(&message.Link{
		Name:          name,
		LinkType:      message.LinkHard,
		HasOrder:      li.TrackOrder,
		CreationOrder: li.MaxCreationIndex,
		Address:       child.Address,
	})
	if li.TrackOrder {
		li.MaxCreationIndex++
	}
	if err := f.writeHeader(h); err != nil {
		return 0, err
	}
	return child.Address, nil
}

func validName(name string) error {
	if name == "" || name == "." || strings.Contains(name, "/") {
		return fmt.Errorf("%w: %q is not a link name", ErrInvalidPath, name)
	}
	return nil
}
