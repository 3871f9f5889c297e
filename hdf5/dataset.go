package hdf5

import (
	"fmt"
	"path"
	"slices"

	"github.com/cespare/xxhash/v2"

	bin "github.com/robert-malhotra/go-lofar-dal/internal/binary"
	"github.com/robert-malhotra/go-lofar-dal/internal/btree"
	"github.com/robert-malhotra/go-lofar-dal/internal/dtype"
	"github.com/robert-malhotra/go-lofar-dal/internal/filter"
	"github.com/robert-malhotra/go-lofar-dal/internal/heap"
	"github.com/robert-malhotra/go-lofar-dal/internal/layout"
	"github.com/robert-malhotra/go-lofar-dal/internal/message"
	"github.com/robert-malhotra/go-lofar-dal/internal/object"
)

// Unlimited marks an axis without a maximum extent.
const Unlimited = message.Unlimited

// maxChunkBytes is the largest chunk a v1 B-tree key can describe.
const maxChunkBytes = 1<<32 - 1

// Dataset is an HDF5 dataset. Its properties are read from the file on
// every call, so several handles to one dataset stay consistent.
type Dataset struct {
	node
}

// dsInfo is the decoded state of a dataset header.
type dsInfo struct {
	h       *object.Header
	space   *message.Dataspace
	dt      *message.Datatype
	lay     *message.Layout
	filters *message.FilterPipeline
	fill    *message.FillValue
}

// info reads the dataset header. It must be called with f.mu held.
func (d *Dataset) info() (*dsInfo, error) {
	if err := d.file.check(false); err != nil {
		return nil, err
	}
	h, err := d.file.header(d.addr)
	if err != nil {
		return nil, err
	}
	in := &dsInfo{
		h:       h,
		space:   h.Dataspace(),
		dt:      h.Datatype(),
		lay:     h.Layout(),
		filters: h.Filters(),
		fill:    h.FillValue(),
	}
	if in.space == nil || in.dt == nil || in.lay == nil {
		return nil, fmt.Errorf("%w: %s is missing dataset messages", ErrNotDataset, d.path)
	}
	return in, nil
}

// chunkBytes is the size of one chunk before filters.
func (in *dsInfo) chunkBytes() uint64 {
	n := uint64(in.dt.Size)
	for _, c := range in.lay.ChunkShape() {
		n *= c
	}
	return n
}

func (d *Dataset) withInfo(fn func(in *dsInfo) error) error {
	d.file.mu.Lock()
	defer d.file.mu.Unlock()
	in, err := d.info()
	if err != nil {
		return err
	}
	return fn(in)
}

// store builds the raw data store for the dataset. It must be called with
// f.mu held.
func (d *Dataset) store(in *dsInfo) (layout.Store, error) {
	f := d.file
	es := int(in.dt.Size)
	p := layout.Params{Dims: in.space.Dims, ElemSize: es}
	if in.fill != nil && len(in.fill.Value) == es {
		p.Fill = in.fill.Value
	}

	switch in.lay.Class {
	case message.LayoutCompact:
		return layout.NewCompact(in.lay.CompactData, p), nil
	case message.LayoutContiguous:
		return layout.NewContiguous(f.src, f.writer(), in.lay.Address, p), nil
	case message.LayoutChunked:
	default:
		return nil, fmt.Errorf("%w: %s layout", ErrUnsupported, in.lay.Class)
	}

	var pipe *filter.Pipeline
	if in.filters != nil && len(in.filters.Filters) > 0 {
		var err error
		if pipe, err = filter.NewPipeline(in.filters, es); err != nil {
			return nil, fmt.Errorf("%s: %w", d.path, err)
		}
	}
	chunk := in.lay.ChunkShape()
	chunkBytes := in.chunkBytes()

	var index layout.ChunkIndex
	switch {
	case in.lay.Version >= 4 && in.lay.Index == message.IndexSingle:
		size := chunkBytes
		if pipe != nil {
			size = in.lay.SingleChunkSize
		}
		index = layout.NewSingleIndex(in.lay.Address, uint32(size), in.lay.SingleChunkMask, len(chunk))
	case in.lay.Version >= 4 && in.lay.Index == message.IndexImplicit:
		dims := in.space.Max()
		if slices.Contains(dims, Unlimited) {
			dims = in.space.Dims
		}
		index = layout.NewImplicitIndex(in.lay.Address, dims, chunk, uint32(chunkBytes))
	default:
		ix, err := f.chunkIndex(d.addr, in)
		if err != nil {
			return nil, err
		}
		index = ix
	}
	w, a := f.writer(), f.alloc
	if in.lay.Version >= 4 {
		w, a = nil, nil
	}
	return layout.NewChunked(f.src, w, a, index, pipe, chunk, p), nil
}

// Shape returns the current extent, or nil if the dataset cannot be read.
func (d *Dataset) Shape() []uint64 {
	var dims []uint64
	d.withInfo(func(in *dsInfo) error {
		dims = slices.Clone(in.space.Dims)
		return nil
	})
	return dims
}

// MaxShape returns the maximum extent. Unbounded axes are Unlimited.
func (d *Dataset) MaxShape() []uint64 {
	var dims []uint64
	d.withInfo(func(in *dsInfo) error {
		dims = slices.Clone(in.space.Max())
		return nil
	})
	return dims
}

// ChunkShape returns the chunk shape, or nil for unchunked storage.
func (d *Dataset) ChunkShape() []uint64 {
	var chunk []uint64
	d.withInfo(func(in *dsInfo) error {
		if in.lay.Class == message.LayoutChunked {
			chunk = in.lay.ChunkShape()
		}
		return nil
	})
	return chunk
}

// ElementType classifies the stored element type. Types the library does
// not create report InvalidType but may still be read into any compatible
// slice.
func (d *Dataset) ElementType() ElementType {
	t := InvalidType
	d.withInfo(func(in *dsInfo) error {
		t = elementTypeOf(in.dt)
		return nil
	})
	return t
}

// TypeName describes the stored datatype.
func (d *Dataset) TypeName() string {
	var s string
	d.withInfo(func(in *dsInfo) error {
		s = in.dt.String()
		return nil
	})
	return s
}

// Filters returns the names of the filters applied to chunks.
func (d *Dataset) Filters() []string {
	var names []string
	d.withInfo(func(in *dsInfo) error {
		if in.filters == nil {
			return nil
		}
		for _, f := range in.filters.Filters {
			names = append(names, filter.Name(f.ID))
		}
		return nil
	})
	return names
}

// StorageSize returns the bytes of raw data stored in the file.
func (d *Dataset) StorageSize() uint64 {
	var n uint64
	d.withInfo(func(in *dsInfo) error {
		switch in.lay.Class {
		case message.LayoutCompact:
			n = uint64(len(in.lay.CompactData))
		case message.LayoutContiguous:
			if in.lay.Address != bin.Undefined {
				n = in.lay.Size
			}
		case message.LayoutChunked:
			if in.lay.Version >= 4 {
				switch in.lay.Index {
				case message.IndexSingle:
					if in.lay.Address != bin.Undefined {
						n = in.lay.SingleChunkSize
						if in.filters == nil || len(in.filters.Filters) == 0 {
							n = in.chunkBytes()
						}
					}
					return nil
				case message.IndexImplicit:
					return nil
				}
			}
			ix, err := d.file.chunkIndex(d.addr, in)
			if err != nil {
				return err
			}
			ix.Ascend(func(c *btree.Chunk) bool {
				n += uint64(c.Size)
				return true
			})
		}
		return nil
	})
	return n
}

// Extend changes the current extent. Axes may only grow, up to the maximum
// extent, and only chunked datasets can change shape.
func (d *Dataset) Extend(shape []uint64) error {
	d.file.mu.Lock()
	defer d.file.mu.Unlock()
	if err := d.file.check(true); err != nil {
		return err
	}
	in, err := d.info()
	if err != nil {
		return err
	}
	if in.lay.Class != message.LayoutChunked {
		return fmt.Errorf("%w: extending %s storage", ErrUnsupported, in.lay.Class)
	}
	if len(shape) != in.space.Rank() {
		return fmt.Errorf("%w: rank %d, dataset has rank %d", ErrShape, len(shape), in.space.Rank())
	}
	maxDims := in.space.Max()
	for i, n := range shape {
		if n < in.space.Dims[i] {
			return fmt.Errorf("%w: axis %d shrinks from %d to %d", ErrShape, i, in.space.Dims[i], n)
		}
		if maxDims[i] != Unlimited && n > maxDims[i] {
			return fmt.Errorf("%w: axis %d exceeds maximum %d", ErrShape, i, maxDims[i])
		}
	}
	if slices.Equal(shape, in.space.Dims) {
		return nil
	}
	in.h.Set(message.NewSimple(shape, maxDims))
	return d.file.writeHeader(in.h)
}

// ReadRegion reads the block [start, start+count) into dst, a slice with
// one element per selected point.
func (d *Dataset) ReadRegion(start, count []uint64, dst any) error {
	if len(start) != len(count) {
		return fmt.Errorf("%w: start and count ranks differ", ErrShape)
	}
	return d.ReadSelection(SelectBox(start, count), dst)
}

// WriteRegion writes src into the block [start, start+count).
func (d *Dataset) WriteRegion(start, count []uint64, src any) error {
	if len(start) != len(count) {
		return fmt.Errorf("%w: start and count ranks differ", ErrShape)
	}
	return d.WriteSelection(SelectBox(start, count), src)
}

// ReadSelection reads the selected elements, in row-major order, into dst.
func (d *Dataset) ReadSelection(sel *Selection, dst any) error {
	return d.withInfo(func(in *dsInfo) error {
		if err := d.checkLen(dst, sel); err != nil {
			return err
		}
		raw, err := d.readRaw(in, sel)
		if err != nil {
			return err
		}
		hr := heap.NewReader(d.file.reader())
		if err := dtype.Decode(in.dt, raw, dst, hr, d.file.cfg); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrType, d.path, err)
		}
		return nil
	})
}

// WriteSelection writes src to the selected elements in row-major order.
func (d *Dataset) WriteSelection(sel *Selection, src any) error {
	d.file.mu.Lock()
	defer d.file.mu.Unlock()
	if err := d.file.check(true); err != nil {
		return err
	}
	in, err := d.info()
	if err != nil {
		return err
	}
	if err := d.checkSelection(in, sel); err != nil {
		return err
	}
	if err := d.checkLen(src, sel); err != nil {
		return err
	}
	raw, err := dtype.Encode(in.dt, src, d.file.heap, d.file.cfg)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrType, d.path, err)
	}
	s, err := d.store(in)
	if err != nil {
		return err
	}
	if err := s.Write(sel.runs(), raw); err != nil {
		return fmt.Errorf("writing %s: %w", d.path, err)
	}
	return nil
}

// ReadAll reads the whole dataset into a slice of the Go type matching the
// stored datatype.
func (d *Dataset) ReadAll() (any, error) {
	var out any
	err := d.withInfo(func(in *dsInfo) error {
		sel := SelectBox(make([]uint64, in.space.Rank()), in.space.Dims)
		raw, err := d.readRaw(in, sel)
		if err != nil {
			return err
		}
		if out, err = dtype.NewSlice(in.dt, int(sel.Count())); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrUnsupported, d.path, err)
		}
		hr := heap.NewReader(d.file.reader())
		return dtype.Decode(in.dt, raw, out, hr, d.file.cfg)
	})
	return out, err
}

// Digest returns the xxhash64 of the dataset's raw element bytes in
// row-major order, read one slab along the first axis at a time.
func (d *Dataset) Digest() (uint64, error) {
	h := xxhash.New()
	err := d.withInfo(func(in *dsInfo) error {
		dims := in.space.Dims
		if len(dims) == 0 {
			raw, err := d.readRaw(in, SelectBox(nil, nil))
			if err != nil {
				return err
			}
			h.Write(raw)
			return nil
		}
		step := uint64(1)
		if chunk := in.lay.ChunkShape(); in.lay.Class == message.LayoutChunked && len(chunk) > 0 {
			step = chunk[0]
		}
		start := make([]uint64, len(dims))
		count := slices.Clone(dims)
		for start[0] = 0; start[0] < dims[0]; start[0] += step {
			count[0] = min(step, dims[0]-start[0])
			raw, err := d.readRaw(in, SelectBox(start, count))
			if err != nil {
				return err
			}
			h.Write(raw)
		}
		return nil
	})
	return h.Sum64(), err
}

func (d *Dataset) readRaw(in *dsInfo, sel *Selection) ([]byte, error) {
	if err := d.checkSelection(in, sel); err != nil {
		return nil, err
	}
	s, err := d.store(in)
	if err != nil {
		return nil, err
	}
	raw := make([]byte, sel.Count()*uint64(in.dt.Size))
	if err := s.Read(sel.runs(), raw); err != nil {
		return nil, fmt.Errorf("reading %s: %w", d.path, err)
	}
	return raw, nil
}

func (d *Dataset) checkSelection(in *dsInfo, sel *Selection) error {
	if sel.Rank() != in.space.Rank() {
		return fmt.Errorf("%w: selection rank %d, dataset rank %d", ErrShape, sel.Rank(), in.space.Rank())
	}
	_, hi, ok := sel.Bounds()
	if !ok {
		return nil
	}
	for i, h := range hi {
		if h > in.space.Dims[i] {
			return fmt.Errorf("%w: selection ends at %v, extent is %v", ErrShape, hi, in.space.Dims)
		}
	}
	return nil
}

func (d *Dataset) checkLen(buf any, sel *Selection) error {
	n, err := dtype.Len(buf)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrType, err)
	}
	if uint64(n) != sel.Count() {
		return fmt.Errorf("%w: buffer holds %d elements, selection %d", ErrShape, n, sel.Count())
	}
	return nil
}

// CreateDataset creates a dataset called name in g. Without WithChunks the
// data is stored contiguously and allocated immediately.
func (g *Group) CreateDataset(name string, shape []uint64, t ElementType, opts ...DatasetOption) (*Dataset, error) {
	o := &datasetOptions{}
	for _, opt := range opts {
		opt(o)
	}
	dt, err := t.datatype()
	if err != nil {
		return nil, fmt.Errorf("%w: element type %s", ErrType, t)
	}
	msgs, err := datasetMessages(shape, dt, o)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", name, err)
	}

	g.file.mu.Lock()
	defer g.file.mu.Unlock()
	if err := g.file.check(true); err != nil {
		return nil, err
	}
	if o.chunks == nil {
		size := uint64(dt.Size)
		for _, n := range shape {
			size *= n
		}
		addr := bin.Undefined
		if size > 0 {
			addr = g.file.alloc.Alloc(size)
			if err := g.file.extend(g.file.alloc.EOF()); err != nil {
				return nil, err
			}
		}
		msgs = append(msgs, message.NewContiguousLayout(addr, size))
	}
	addr, err := g.link(name, msgs)
	if err != nil {
		return nil, err
	}
	return &Dataset{node{file: g.file, path: path.Join(g.path, name), addr: addr}}, nil
}

// datasetMessages builds the header messages of a new dataset, leaving out
// the layout of contiguous storage.
func datasetMessages(shape []uint64, dt *message.Datatype, o *datasetOptions) ([]message.Message, error) {
	maxShape := o.maxShape
	if maxShape == nil {
		maxShape = shape
	}
	if len(maxShape) != len(shape) {
		return nil, fmt.Errorf("%w: max shape rank %d, shape rank %d", ErrShape, len(maxShape), len(shape))
	}
	for i := range shape {
		if maxShape[i] != Unlimited && maxShape[i] < shape[i] {
			return nil, fmt.Errorf("%w: axis %d exceeds its maximum", ErrShape, i)
		}
	}
	filtered := o.deflate > 0 || o.shuffle || o.fletcher32
	if o.chunks == nil {
		if !slices.Equal(maxShape, shape) || filtered {
			return nil, fmt.Errorf("%w: extendible or filtered datasets need chunks", ErrShape)
		}
		space := message.NewSimple(shape, nil)
		if len(shape) == 0 {
			space = &message.Dataspace{Space: message.SpaceScalar}
		}
		return []message.Message{
			space,
			dt,
			message.NewFillValue(message.AllocEarly),
		}, nil
	}

	if len(o.chunks) != len(shape) || len(shape) == 0 {
		return nil, fmt.Errorf("%w: chunk rank %d, shape rank %d", ErrShape, len(o.chunks), len(shape))
	}
	size := uint64(dt.Size)
	for _, c := range o.chunks {
		if c == 0 {
			return nil, fmt.Errorf("%w: zero chunk dimension", ErrShape)
		}
		size *= c
		if size > maxChunkBytes {
			return nil, fmt.Errorf("%w: chunks of %v exceed 4 GiB", ErrShape, o.chunks)
		}
	}
	msgs := []message.Message{
		message.NewSimple(shape, maxShape),
		dt,
		message.NewFillValue(message.AllocIncremental),
	}
	if filtered {
		var fp message.FilterPipeline
		if o.shuffle {
			fp.Filters = append(fp.Filters, message.Filter{ID: message.FilterShuffle, Params: []uint32{dt.Size}})
		}
		if o.deflate > 0 {
			fp.Filters = append(fp.Filters, message.Filter{ID: message.FilterDeflate, Params: []uint32{uint32(o.deflate)}})
		}
		if o.fletcher32 {
			fp.Filters = append(fp.Filters, message.Filter{ID: message.FilterFletcher32})
		}
		msgs = append(msgs, &fp)
	}
	return append(msgs, message.NewChunkedLayout(o.chunks, int(dt.Size))), nil
}
