package hdf5

// Option configures how a file is created or opened.
type Option func(*fileOptions)

type fileOptions struct {
	mmap  bool
	slack int
}

func defaultFileOptions() *fileOptions {
	return &fileOptions{slack: 256}
}

// WithMmap maps a read-only file into memory instead of issuing reads.
// It has no effect on writable files.
func WithMmap() Option {
	return func(o *fileOptions) {
		o.mmap = true
	}
}

// WithHeaderSlack sets the spare bytes reserved in new object headers, so
// attributes and links added later avoid continuation chunks.
func WithHeaderSlack(n int) Option {
	return func(o *fileOptions) {
		if n >= 0 {
			o.slack = n
		}
	}
}

// DatasetOption configures dataset creation.
type DatasetOption func(*datasetOptions)

type datasetOptions struct {
	chunks     []uint64
	maxShape   []uint64
	deflate    int // 0 = none
	shuffle    bool
	fletcher32 bool
}

// WithChunks stores the dataset in chunks of the given shape. Required for
// extendible datasets and filters.
func WithChunks(dims ...uint64) DatasetOption {
	return func(o *datasetOptions) {
		o.chunks = dims
	}
}

// WithMaxShape sets the maximum extent. Use Unlimited for an axis without
// bound.
func WithMaxShape(dims ...uint64) DatasetOption {
	return func(o *datasetOptions) {
		o.maxShape = dims
	}
}

// WithDeflate compresses chunks with zlib at the given level (1-9).
func WithDeflate(level int) DatasetOption {
	return func(o *datasetOptions) {
		if level >= 1 && level <= 9 {
			o.deflate = level
		}
	}
}

// WithShuffle enables the byte shuffle filter.
func WithShuffle() DatasetOption {
	return func(o *datasetOptions) {
		o.shuffle = true
	}
}

// WithFletcher32 adds a Fletcher32 checksum to every chunk.
func WithFletcher32() DatasetOption {
	return func(o *datasetOptions) {
		o.fletcher32 = true
	}
}
