package dal

import (
	"github.com/robert-malhotra/go-lofar-dal/dal/schema"
	"github.com/robert-malhotra/go-lofar-dal/hdf5"
)

// File is an open LOFAR data file. Its root group carries the product's
// root attributes and children.
type File struct {
	handle
	f    *hdf5.File
	name string
}

// FileOption configures Create and Open.
type FileOption func(*fileOptions)

type fileOptions struct {
	rootKind schema.Kind
	engine   []hdf5.Option
}

// WithRootKind writes the defaults of kind to the root group of a new file
// and runs the kind's embedded hook.
func WithRootKind(kind schema.Kind) FileOption {
	return func(o *fileOptions) {
		o.rootKind = kind
	}
}

// WithEngineOptions passes options through to the HDF5 engine.
func WithEngineOptions(opts ...hdf5.Option) FileOption {
	return func(o *fileOptions) {
		o.engine = append(o.engine, opts...)
	}
}

func collect(opts []FileOption) *fileOptions {
	o := &fileOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Create creates a file at path, truncating any existing one.
func Create(path string, opts ...FileOption) (*File, error) {
	o := collect(opts)
	f, err := hdf5.Create(path, o.engine...)
	if err != nil {
		return nil, op{name: "create file", path: path}.wrap(err)
	}
	file := newFile(f, path)
	if o.rootKind != "" {
		root := file.Root()
		if err := populate(root, o.rootKind, true); err != nil {
			f.Close()
			file.state = StateClosed
			return nil, err
		}
	}
	return file, nil
}

// Open opens an existing file read-only.
func Open(path string, opts ...FileOption) (*File, error) {
	o := collect(opts)
	f, err := hdf5.Open(path, o.engine...)
	if err != nil {
		return nil, op{name: "open file", path: path}.wrap(err)
	}
	return newFile(f, path), nil
}

// OpenReadWrite opens an existing file for modification.
func OpenReadWrite(path string, opts ...FileOption) (*File, error) {
	o := collect(opts)
	f, err := hdf5.OpenReadWrite(path, o.engine...)
	if err != nil {
		return nil, op{name: "open file", path: path}.wrap(err)
	}
	return newFile(f, path), nil
}

func newFile(f *hdf5.File, name string) *File {
	return &File{handle: handle{state: StateOpen, path: "/"}, f: f, name: name}
}

// Filename returns the path the file was opened with. Path returns "/",
// the location of the root group.
func (f *File) Filename() string { return f.name }

// Writable reports whether the file accepts modifications.
func (f *File) Writable() bool {
	return f.state == StateOpen && f.f.Writable()
}

// Engine returns the underlying HDF5 file, or nil unless the file is open.
func (f *File) Engine() *hdf5.File {
	if f.state != StateOpen {
		return nil
	}
	return f.f
}

// Root returns the root group. The group stays valid until the file is
// closed.
func (f *File) Root() *Group {
	if f.state != StateOpen {
		return &Group{handle: handle{state: f.state, path: "/"}}
	}
	return &Group{handle: handle{state: StateOpen, path: "/"}, g: f.f.Root()}
}

func (f *File) target() (attrObject, *hdf5.Group, error) {
	if err := f.check("access file"); err != nil {
		return nil, nil, err
	}
	g := f.f.Root()
	return g, g, nil
}

// Flush writes pending changes to disk.
func (f *File) Flush() error {
	if err := f.check("flush"); err != nil {
		return err
	}
	if err := f.f.Flush(); err != nil {
		return op{name: "flush", path: f.name}.wrap(err)
	}
	return nil
}

// Close flushes and closes the file. Closing a closed or unopened file is
// a no-op.
func (f *File) Close() error {
	if f.state != StateOpen {
		return nil
	}
	f.state = StateClosed
	if err := f.f.Close(); err != nil {
		return op{name: "close", path: f.name}.wrap(err)
	}
	return nil
}
