package hdf5

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
	"github.com/juju/fslock"

	"github.com/robert-malhotra/go-lofar-dal/internal/alloc"
	bin "github.com/robert-malhotra/go-lofar-dal/internal/binary"
	"github.com/robert-malhotra/go-lofar-dal/internal/btree"
	"github.com/robert-malhotra/go-lofar-dal/internal/heap"
	"github.com/robert-malhotra/go-lofar-dal/internal/message"
	"github.com/robert-malhotra/go-lofar-dal/internal/object"
	"github.com/robert-malhotra/go-lofar-dal/internal/superblock"
)

// File is an open HDF5 file. A File is safe for concurrent use; operations
// are serialized.
type File struct {
	mu   sync.Mutex
	path string
	opts *fileOptions

	file *os.File
	mm   mmap.MMap
	src  io.ReaderAt
	lock *fslock.Lock

	sb  *superblock.Superblock
	cfg bin.Config

	// Write state; nil for read-only files.
	alloc *alloc.Allocator
	heap  *heap.Writer

	indexes map[uint64]*btree.Index // chunk indexes by dataset header address

	closed bool
}

// Create creates a new file at path, truncating any existing one. The file
// is locked against other writers until Close.
func Create(path string, opts ...Option) (*File, error) {
	o := defaultFileOptions()
	for _, opt := range opts {
		opt(o)
	}
	lock, err := acquire(path)
	if err != nil {
		return nil, err
	}
	osf, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("creating file: %w", err)
	}

	sb := superblock.New()
	f := &File{
		path: path,
		opts: o,
		file: osf,
		src:  osf,
		lock: lock,
		sb:   sb,
		cfg:  sb.Config(),
	}
	f.startWriting(superblock.Size)

	root, err := object.Create(osf, f.alloc, f.cfg, groupMessages(), o.slack)
	if err != nil {
		f.abort()
		return nil, fmt.Errorf("writing root group: %w", err)
	}
	sb.RootAddress = root.Address
	if err := f.flush(); err != nil {
		f.abort()
		return nil, err
	}
	return f, nil
}

// Open opens an existing file read-only.
func Open(path string, opts ...Option) (*File, error) {
	o := defaultFileOptions()
	for _, opt := range opts {
		opt(o)
	}
	osf, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	f := &File{path: path, opts: o, file: osf, src: osf, indexes: make(map[uint64]*btree.Index)}
	if o.mmap {
		if f.mm, err = mmap.Map(osf, mmap.RDONLY, 0); err != nil {
			osf.Close()
			return nil, fmt.Errorf("mapping file: %w", err)
		}
		f.src = bytes.NewReader(f.mm)
	}
	if err := f.readSuperblock(); err != nil {
		f.abort()
		return nil, err
	}
	return f, nil
}

// OpenReadWrite opens an existing file for modification. Only files with a
// version 2 or 3 superblock and 8-byte addresses can be modified.
func OpenReadWrite(path string, opts ...Option) (*File, error) {
	o := defaultFileOptions()
	for _, opt := range opts {
		opt(o)
	}
	lock, err := acquire(path)
	if err != nil {
		return nil, err
	}
	osf, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("opening file: %w", err)
	}
	f := &File{path: path, opts: o, file: osf, src: osf, lock: lock}
	if err := f.readSuperblock(); err != nil {
		f.abort()
		return nil, err
	}
	if !f.sb.Writable() {
		f.abort()
		return nil, fmt.Errorf("%w: superblock version %d", ErrReadOnly, f.sb.Version)
	}
	f.startWriting(f.sb.EOF)
	return f, nil
}

func acquire(path string) (*fslock.Lock, error) {
	lock := fslock.New(path)
	if err := lock.TryLock(); err != nil {
		if errors.Is(err, fslock.ErrLocked) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	return lock, nil
}

func (f *File) readSuperblock() error {
	sb, err := superblock.Read(f.src)
	if err != nil {
		return fmt.Errorf("reading superblock: %w", err)
	}
	f.sb, f.cfg = sb, sb.Config()
	return nil
}

func (f *File) startWriting(eof uint64) {
	f.alloc = alloc.New(eof)
	f.heap = heap.NewWriter(f.file, f.alloc, f.cfg)
	if f.indexes == nil {
		f.indexes = make(map[uint64]*btree.Index)
	}
}

// abort releases everything without flushing.
func (f *File) abort() {
	f.closed = true
	if f.mm != nil {
		f.mm.Unmap()
	}
	f.file.Close()
	if f.lock != nil {
		f.lock.Unlock()
	}
}

// Close flushes a writable file and releases it. Calling Close again is a
// no-op.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	err := f.flush()
	f.abort()
	return err
}

// Flush writes pending chunk indexes and the superblock, then syncs the
// file to disk.
func (f *File) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	return f.flush()
}

func (f *File) flush() error {
	if !f.Writable() {
		return nil
	}
	for addr, ix := range f.indexes {
		if !ix.Dirty() {
			continue
		}
		root, err := ix.Flush(f.file, f.alloc, f.cfg, f.sb.ChunkBTreeK())
		if err != nil {
			return fmt.Errorf("writing chunk index of %#x: %w", addr, err)
		}
		h, err := f.header(addr)
		if err != nil {
			return err
		}
		if lay := h.Layout(); lay != nil && lay.Address != root {
			lay.Address = root
			if err := f.writeHeader(h); err != nil {
				return err
			}
		}
	}

	f.sb.EOF = f.alloc.EOF()
	if err := f.file.Truncate(int64(f.sb.EOF)); err != nil {
		return fmt.Errorf("resizing file: %w", err)
	}
	if err := f.sb.WriteTo(f.file); err != nil {
		return fmt.Errorf("writing superblock: %w", err)
	}
	return f.file.Sync()
}

// Path returns the file path.
func (f *File) Path() string { return f.path }

// Version returns the superblock version.
func (f *File) Version() int { return int(f.sb.Version) }

// Writable reports whether the file was opened for writing.
func (f *File) Writable() bool { return f.alloc != nil }

// Root returns the root group.
func (f *File) Root() *Group {
	return &Group{node{file: f, path: "/", addr: f.sb.RootAddress}}
}

// OpenGroup opens a group by absolute path.
func (f *File) OpenGroup(path string) (*Group, error) {
	return f.Root().OpenGroup(path)
}

// OpenDataset opens a dataset by absolute path.
func (f *File) OpenDataset(path string) (*Dataset, error) {
	return f.Root().OpenDataset(path)
}

// Size returns the end of allocated space, in bytes.
func (f *File) Size() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.alloc != nil {
		return f.alloc.EOF()
	}
	return f.sb.EOF
}

// check verifies the file can serve an operation. It must be called with
// f.mu held.
func (f *File) check(write bool) error {
	if f.closed {
		return ErrClosed
	}
	if write && !f.Writable() {
		return ErrReadOnly
	}
	return nil
}

func (f *File) reader() *bin.Reader {
	return bin.NewReader(f.src, f.cfg)
}

// writer returns the file as an io.WriterAt, or nil when read-only.
func (f *File) writer() io.WriterAt {
	if !f.Writable() {
		return nil
	}
	return f.file
}

func (f *File) header(addr uint64) (*object.Header, error) {
	h, err := object.Read(f.reader(), addr)
	if err != nil {
		return nil, fmt.Errorf("object header at %#x: %w", addr, err)
	}
	return h, nil
}

func (f *File) writeHeader(h *object.Header) error {
	if err := h.Flush(f.file, f.alloc, f.cfg); err != nil {
		if errors.Is(err, object.ErrReadOnly) {
			return fmt.Errorf("%w: %v", ErrReadOnly, err)
		}
		return fmt.Errorf("object header at %#x: %w", h.Address, err)
	}
	return nil
}

func (f *File) createHeader(msgs []message.Message) (*object.Header, error) {
	return object.Create(f.file, f.alloc, f.cfg, msgs, f.opts.slack)
}

// extend makes sure the file is at least size bytes long, so allocated but
// unwritten space reads back as zeros.
func (f *File) extend(size uint64) error {
	st, err := f.file.Stat()
	if err != nil {
		return err
	}
	if uint64(st.Size()) < size {
		return f.file.Truncate(int64(size))
	}
	return nil
}

// chunkIndex returns the cached chunk index of the dataset at addr. Version
// 1 B-trees can be written back; the indexes of version 4 layouts are read
// only.
func (f *File) chunkIndex(addr uint64, in *dsInfo) (*btree.Index, error) {
	if ix, ok := f.indexes[addr]; ok {
		return ix, nil
	}
	var ix *btree.Index
	var err error
	r, lay, chunk := f.reader(), in.lay, in.lay.ChunkShape()
	switch {
	case lay.Version < 4:
		ix, err = btree.ReadIndex(r, lay.Address, chunk)
	case lay.Index == message.IndexFixedArray:
		ix, err = btree.ReadFixedArrayIndex(r, lay.Address, in.space.Max(), chunk, uint32(in.chunkBytes()))
	case lay.Index == message.IndexExtensible:
		ix, err = btree.ReadExtensibleArrayIndex(r, lay.Address, in.space.Max(), chunk, uint32(in.chunkBytes()))
	case lay.Index == message.IndexBTreeV2:
		ix, err = btree.ReadV2Index(r, lay.Address, chunk, uint32(in.chunkBytes()))
	default:
		return nil, fmt.Errorf("%w: chunk index type %d", ErrUnsupported, lay.Index)
	}
	if err != nil {
		return nil, fmt.Errorf("chunk index: %w", err)
	}
	f.indexes[addr] = ix
	return ix, nil
}

func groupMessages() []message.Message {
	return []message.Message{message.NewLinkInfo(), &message.GroupInfo{}}
}
