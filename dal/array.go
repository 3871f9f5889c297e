package dal

import (
	"fmt"
	"io"
	"math/bits"
	"path"
	"reflect"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/robert-malhotra/go-lofar-dal/hdf5"
)

// MaxChunkBytes bounds the byte size of one chunk. The v1 B-tree chunk
// index stores chunk sizes in 32 bits.
const MaxChunkBytes = 1<<32 - 1

// ArrayOption configures CreateArray.
type ArrayOption func(*arrayOptions)

type arrayOptions struct {
	maxShape   []uint64
	deflate    int
	shuffle    bool
	fletcher32 bool
}

// WithMaxShape bounds a chunked array. By default every axis is unlimited.
func WithMaxShape(dims ...uint64) ArrayOption {
	return func(o *arrayOptions) { o.maxShape = dims }
}

// WithDeflate compresses the chunks of a chunked array at level 1-9.
func WithDeflate(level int) ArrayOption {
	return func(o *arrayOptions) { o.deflate = level }
}

// WithShuffle byte-shuffles chunks before compression.
func WithShuffle() ArrayOption {
	return func(o *arrayOptions) { o.shuffle = true }
}

// WithFletcher32 checksums every chunk.
func WithFletcher32() ArrayOption {
	return func(o *arrayOptions) { o.fletcher32 = true }
}

// AdjustChunkShape returns chunk, with its largest axis halved (rounding
// up) until a chunk of elemSize-byte elements is smaller than
// MaxChunkBytes. Ties go to the first axis.
func AdjustChunkShape(elemSize int, chunk []uint64) []uint64 {
	out := slices.Clone(chunk)
	for {
		if n, ok := chunkBytes(elemSize, out); ok && n < MaxChunkBytes {
			return out
		}
		i := 0
		for j, c := range out {
			if c > out[i] {
				i = j
			}
		}
		if len(out) == 0 || out[i] <= 1 {
			return out
		}
		out[i] = (out[i] + 1) / 2
	}
}

// chunkBytes multiplies out the chunk size; ok is false on overflow.
func chunkBytes(elemSize int, chunk []uint64) (n uint64, ok bool) {
	n = uint64(elemSize)
	for _, c := range chunk {
		hi, lo := bits.Mul64(n, c)
		if hi != 0 {
			return 0, false
		}
		n = lo
	}
	return n, true
}

// Array is an open n-dimensional dataset.
type Array struct {
	handle
	ds *hdf5.Dataset

	// Hyperslabs applied since the last SelectSet, and the selection they
	// build.
	slabs []Hyperslab
	ops   []SelectOp
	sel   *hdf5.Selection
}

// CreateArray creates the array name below loc. With a chunk shape the
// array is chunked and extendible; without one it is stored contiguously
// with a fixed extent.
func CreateArray(loc Location, name string, shape []uint64, t ElementType, chunk []uint64, opts ...ArrayOption) (*Array, error) {
	o := op{name: "create array", path: loc.Path(), attr: name}
	_, g, err := loc.target()
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, o.fail(ErrMismatch.New(loc.Path() + " cannot hold arrays"))
	}
	if !creatable[t] {
		return nil, o.fail(ErrMismatch.New("element type " + t.String()))
	}
	ao := &arrayOptions{}
	for _, opt := range opts {
		opt(ao)
	}

	var dopts []hdf5.DatasetOption
	switch {
	case len(chunk) > 0:
		if len(chunk) != len(shape) {
			return nil, o.fail(ErrMismatch.New(fmt.Sprintf("chunk %v for shape %v", chunk, shape)))
		}
		adjusted := AdjustChunkShape(t.Size(), chunk)
		if !slices.Equal(adjusted, chunk) {
			Logger().WithFields(logrus.Fields{"path": path.Join(loc.Path(), name), "from": chunk, "to": adjusted}).
				Warn("chunk shape adjusted to fit 32-bit chunk size")
		}
		maxShape := ao.maxShape
		if maxShape == nil {
			maxShape = make([]uint64, len(shape))
			for i := range maxShape {
				maxShape[i] = Unlimited
			}
		}
		dopts = append(dopts, hdf5.WithChunks(adjusted...), hdf5.WithMaxShape(maxShape...))
		if ao.shuffle {
			dopts = append(dopts, hdf5.WithShuffle())
		}
		if ao.deflate > 0 {
			dopts = append(dopts, hdf5.WithDeflate(ao.deflate))
		}
		if ao.fletcher32 {
			dopts = append(dopts, hdf5.WithFletcher32())
		}
	case ao.shuffle || ao.deflate > 0 || ao.fletcher32 || ao.maxShape != nil:
		return nil, o.fail(ErrMismatch.New("filters and maximum shapes need a chunk shape"))
	}

	ds, err := g.CreateDataset(name, shape, t, dopts...)
	if err != nil {
		return nil, o.wrap(err)
	}
	return newArray(ds), nil
}

// OpenArray opens the existing array name below loc.
func OpenArray(loc Location, name string) (*Array, error) {
	o := op{name: "open array", path: loc.Path(), attr: name}
	_, g, err := loc.target()
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, o.fail(ErrMismatch.New(loc.Path() + " cannot hold arrays"))
	}
	ds, err := g.OpenDataset(name)
	if err != nil {
		return nil, o.wrap(err)
	}
	return newArray(ds), nil
}

func newArray(ds *hdf5.Dataset) *Array {
	return &Array{handle: handle{state: StateOpen, path: ds.Path()}, ds: ds}
}

func (a *Array) target() (attrObject, *hdf5.Group, error) {
	if err := a.check("access array"); err != nil {
		return nil, nil, err
	}
	return a.ds, nil, nil
}

// Name returns the last path component.
func (a *Array) Name() string { return path.Base(a.path) }

// Engine returns the underlying HDF5 dataset, or nil unless the array is
// open.
func (a *Array) Engine() *hdf5.Dataset {
	if a.state != StateOpen {
		return nil
	}
	return a.ds
}

// Shape returns the current extent.
func (a *Array) Shape() []uint64 {
	if a.state != StateOpen {
		return nil
	}
	return a.ds.Shape()
}

// MaxShape returns the maximum extent; unbounded axes are Unlimited.
func (a *Array) MaxShape() []uint64 {
	if a.state != StateOpen {
		return nil
	}
	return a.ds.MaxShape()
}

// ChunkShape returns the chunk shape, or nil when the array is not
// chunked.
func (a *Array) ChunkShape() []uint64 {
	if a.state != StateOpen {
		return nil
	}
	return a.ds.ChunkShape()
}

// Rank returns the number of axes.
func (a *Array) Rank() int { return len(a.Shape()) }

// ElementType returns the stored element type.
func (a *Array) ElementType() ElementType {
	if a.state != StateOpen {
		return hdf5.InvalidType
	}
	return a.ds.ElementType()
}

// Extend grows the array to shape. Only chunked arrays can be extended.
func (a *Array) Extend(shape []uint64) error {
	if err := a.check("extend"); err != nil {
		return err
	}
	if err := a.ds.Extend(shape); err != nil {
		return op{name: "extend", path: a.path}.wrap(err)
	}
	return nil
}

// Write writes data, a slice of the element type, to a one-dimensional
// array starting at offset.
func (a *Array) Write(offset uint64, data any) error {
	if err := a.check("write"); err != nil {
		return err
	}
	n, err := a.oneDim("write", data)
	if err != nil {
		return err
	}
	return a.WriteRegion([]uint64{offset}, []uint64{uint64(n)}, data)
}

// WriteRegion writes data to the block [start, start+count).
func (a *Array) WriteRegion(start, count []uint64, data any) error {
	if err := a.check("write"); err != nil {
		return err
	}
	if err := a.ds.WriteRegion(start, count, data); err != nil {
		return op{name: "write", path: a.path}.wrap(err)
	}
	return nil
}

// Read reads n elements of a one-dimensional array starting at offset,
// returning a slice of the element type.
func (a *Array) Read(offset uint64, n int) (any, error) {
	if err := a.check("read"); err != nil {
		return nil, err
	}
	o := op{name: "read", path: a.path}
	if a.Rank() != 1 {
		return nil, o.fail(ErrMismatch.New(fmt.Sprintf("%s has rank %d", a.path, a.Rank())))
	}
	dst := a.ElementType().NewSlice(n)
	if dst == nil {
		return nil, o.fail(ErrMismatch.New(a.path + " has element type " + a.ds.TypeName()))
	}
	if err := a.ReadRegion([]uint64{offset}, []uint64{uint64(n)}, dst); err != nil {
		return nil, err
	}
	return dst, nil
}

// ReadRegion reads the block [start, start+count) into dst.
func (a *Array) ReadRegion(start, count []uint64, dst any) error {
	if err := a.check("read"); err != nil {
		return err
	}
	if err := a.ds.ReadRegion(start, count, dst); err != nil {
		return op{name: "read", path: a.path}.wrap(err)
	}
	return nil
}

func (a *Array) oneDim(opName string, data any) (int, error) {
	o := op{name: opName, path: a.path}
	if a.Rank() != 1 {
		return 0, o.fail(ErrMismatch.New(fmt.Sprintf("%s has rank %d", a.path, a.Rank())))
	}
	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Slice {
		return 0, o.fail(ErrMismatch.New(fmt.Sprintf("%T is not a slice", data)))
	}
	return v.Len(), nil
}

// SetHyperslab combines h into the current selection. SelectSet starts a
// new selection; the other operators extend it. With resize the array is
// extended so the selection fits.
func (a *Array) SetHyperslab(h Hyperslab, sop SelectOp, resize bool) error {
	if err := a.check("set hyperslab"); err != nil {
		return err
	}
	o := op{name: "set hyperslab", path: a.path}
	slabs, ops := slices.Clip(a.slabs), slices.Clip(a.ops)
	if sop == SelectSet {
		slabs, ops = nil, nil
	}
	slabs, ops = append(slabs, h), append(ops, sop)

	sel := hdf5.NewSelection(a.Rank())
	for i := range slabs {
		if err := sel.Select(slabs[i], ops[i]); err != nil {
			return o.wrap(err)
		}
	}
	if resize {
		if _, hi, ok := sel.Bounds(); ok {
			shape := a.Shape()
			grow := false
			for i := range shape {
				if hi[i] > shape[i] {
					shape[i], grow = hi[i], true
				}
			}
			if grow {
				if err := a.Extend(shape); err != nil {
					return err
				}
			}
		}
	}
	a.slabs, a.ops, a.sel = slabs, ops, sel
	return nil
}

// Hyperslabs returns the hyperslabs applied since the last SelectSet.
func (a *Array) Hyperslabs() []Hyperslab {
	return slices.Clone(a.slabs)
}

// SelectionCount returns the number of selected elements.
func (a *Array) SelectionCount() uint64 {
	if a.sel == nil {
		return 0
	}
	return a.sel.Count()
}

// WriteSelection writes data to the selected elements in row-major order.
func (a *Array) WriteSelection(data any) error {
	if err := a.selection("write selection"); err != nil {
		return err
	}
	if err := a.ds.WriteSelection(a.sel, data); err != nil {
		return op{name: "write selection", path: a.path}.wrap(err)
	}
	return nil
}

// ReadSelection reads the selected elements in row-major order into dst.
func (a *Array) ReadSelection(dst any) error {
	if err := a.selection("read selection"); err != nil {
		return err
	}
	if err := a.ds.ReadSelection(a.sel, dst); err != nil {
		return op{name: "read selection", path: a.path}.wrap(err)
	}
	return nil
}

func (a *Array) selection(opName string) error {
	if err := a.check(opName); err != nil {
		return err
	}
	if a.sel == nil {
		return op{name: opName, path: a.path}.fail(ErrMismatch.New("no hyperslab selected on " + a.path))
	}
	return nil
}

// Summary writes a description of the array to w.
func (a *Array) Summary(w io.Writer) {
	fmt.Fprintf(w, "[Array] %s\n", a.path)
	fmt.Fprintf(w, "-- State         = %s\n", a.state)
	if a.state != StateOpen {
		return
	}
	fmt.Fprintf(w, "-- Element type  = %s (%s)\n", a.ElementType(), a.ds.TypeName())
	fmt.Fprintf(w, "-- Shape         = %v\n", a.Shape())
	fmt.Fprintf(w, "-- Max. shape    = %s\n", formatDims(a.MaxShape()))
	if chunk := a.ChunkShape(); chunk != nil {
		fmt.Fprintf(w, "-- Chunk shape   = %v\n", chunk)
		if filters := a.ds.Filters(); len(filters) > 0 {
			fmt.Fprintf(w, "-- Filters       = %v\n", filters)
		}
	}
	fmt.Fprintf(w, "-- Storage size  = %s\n", humanize.IBytes(a.ds.StorageSize()))
	if len(a.slabs) > 0 {
		fmt.Fprintf(w, "-- Hyperslabs    = %d (%d elements)\n", len(a.slabs), a.SelectionCount())
	}
}

// formatDims prints a shape with unlimited axes as "inf".
func formatDims(dims []uint64) string {
	s := "["
	for i, d := range dims {
		if i > 0 {
			s += " "
		}
		if d == Unlimited {
			s += "inf"
		} else {
			s += fmt.Sprint(d)
		}
	}
	return s + "]"
}

// Close releases the array. Closing twice is a no-op.
func (a *Array) Close() error {
	if a.state == StateOpen {
		a.state = StateClosed
		a.ds, a.sel = nil, nil
		a.slabs, a.ops = nil, nil
	}
	return nil
}
