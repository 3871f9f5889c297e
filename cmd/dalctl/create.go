package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/creasty/defaults"
	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-lofar-dal/dal"
	_ "github.com/robert-malhotra/go-lofar-dal/dal/bf" // Beam groups carry coordinates
	"github.com/robert-malhotra/go-lofar-dal/dal/common"
	"github.com/robert-malhotra/go-lofar-dal/dal/schema"
	"github.com/robert-malhotra/go-lofar-dal/hdf5"
)

// Skeleton describes a file to create:
//
//	root_kind = "CommonAttributes"
//
//	[attributes]
//	PROJECT_ID = "LC0_001"
//
//	[[group]]
//	path = "Station001"
//	kind = "TBBStation"
//
//	[[array]]
//	path  = "Station001/001000001"
//	type  = "int16"
//	shape = [1024]
//	kind  = "TBBDipole"
//
// Groups are created in order, with missing parents as plain groups.
type Skeleton struct {
	RootKind   string          `toml:"root_kind"`
	Attributes map[string]any  `toml:"attributes"`
	Groups     []SkeletonGroup `toml:"group"`
	Arrays     []SkeletonArray `toml:"array"`
}

type SkeletonGroup struct {
	Path       string         `toml:"path"`
	Kind       string         `toml:"kind"`
	Attributes map[string]any `toml:"attributes"`
}

type SkeletonArray struct {
	Path     string   `toml:"path"`
	Type     string   `toml:"type" default:"float32"`
	Shape    []uint64 `toml:"shape"`
	Chunk    []uint64 `toml:"chunk"`
	MaxShape []uint64 `toml:"max_shape"`
	// Contiguous stores the array without chunks; it cannot be extended.
	Contiguous bool           `toml:"contiguous"`
	Deflate    *int           `toml:"deflate"`
	Shuffle    bool           `toml:"shuffle"`
	Fletcher32 bool           `toml:"fletcher32"`
	Kind       string         `toml:"kind"`
	Attributes map[string]any `toml:"attributes"`
}

// LoadSkeleton reads a skeleton file.
func LoadSkeleton(p string) (*Skeleton, error) {
	sk := &Skeleton{}
	md, err := toml.DecodeFile(p, sk)
	if err != nil {
		return nil, fmt.Errorf("reading skeleton %s: %w", p, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("skeleton %s: unknown keys %v", p, undecoded)
	}
	if err := defaults.Set(sk); err != nil {
		return nil, fmt.Errorf("skeleton defaults: %w", err)
	}
	return sk, nil
}

func newCreateCmd(a *app) *cobra.Command {
	var (
		skeleton string
		force    bool
	)
	cmd := &cobra.Command{
		Use:   "create FILE",
		Short: "Create a file from a TOML skeleton",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sk, err := LoadSkeleton(skeleton)
			if err != nil {
				return err
			}
			if !force {
				if _, err := os.Stat(args[0]); err == nil {
					return fmt.Errorf("%s exists; use --force to replace it", args[0])
				} else if !errors.Is(err, fs.ErrNotExist) {
					return err
				}
			}
			if err := a.create(args[0], sk); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s: %d groups, %d arrays\n", args[0], len(sk.Groups), len(sk.Arrays))
			return nil
		},
	}
	cmd.Flags().StringVar(&skeleton, "skeleton", "", "TOML skeleton describing the file")
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing file")
	_ = cmd.MarkFlagRequired("skeleton")
	return cmd
}

func (a *app) create(filename string, sk *Skeleton) (err error) {
	var opts []dal.FileOption
	if sk.RootKind != "" {
		opts = append(opts, dal.WithRootKind(schema.Kind(sk.RootKind)))
	}
	f, err := dal.Create(filename, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if err := setAttributes(f, schema.Kind(sk.RootKind), sk.Attributes); err != nil {
		return err
	}
	for _, sg := range sk.Groups {
		g, err := openPath(f, sg.Path, schema.Kind(sg.Kind))
		if err != nil {
			return fmt.Errorf("group %s: %w", sg.Path, err)
		}
		err = setAttributes(g, schema.Kind(sg.Kind), sg.Attributes)
		g.Close()
		if err != nil {
			return err
		}
	}
	for _, sa := range sk.Arrays {
		if err := a.createArray(f, sa); err != nil {
			return fmt.Errorf("array %s: %w", sa.Path, err)
		}
	}
	return f.Flush()
}

func (a *app) createArray(f *dal.File, sa SkeletonArray) error {
	t, err := parseElementType(sa.Type)
	if err != nil {
		return err
	}
	var parent dal.Location = f
	if dir := path.Dir(strings.Trim(sa.Path, "/")); dir != "." {
		g, err := openPath(f, dir, "")
		if err != nil {
			return err
		}
		defer g.Close()
		parent = g
	}

	var (
		chunk []uint64
		opts  []dal.ArrayOption
	)
	if !sa.Contiguous {
		chunk = sa.Chunk
		if chunk == nil {
			chunk = a.defaultChunk(sa.Shape)
		}
		if sa.MaxShape != nil {
			opts = append(opts, dal.WithMaxShape(sa.MaxShape...))
		}
		level := a.cfg.Deflate
		if sa.Deflate != nil {
			level = *sa.Deflate
		}
		if sa.Shuffle {
			opts = append(opts, dal.WithShuffle())
		}
		if level > 0 {
			opts = append(opts, dal.WithDeflate(level))
		}
		if sa.Fletcher32 {
			opts = append(opts, dal.WithFletcher32())
		}
	}
	arr, err := dal.CreateArray(parent, path.Base(sa.Path), sa.Shape, t, chunk, opts...)
	if err != nil {
		return err
	}
	defer arr.Close()
	if sa.Kind != "" {
		if err := dal.ApplySchema(arr, schema.Kind(sa.Kind)); err != nil {
			return err
		}
	}
	return setAttributes(arr, schema.Kind(sa.Kind), sa.Attributes)
}

// defaultChunk chunks the first axis by the configured chunk length and
// keeps the other axes whole.
func (a *app) defaultChunk(shape []uint64) []uint64 {
	chunk := slices.Clone(shape)
	for i := range chunk {
		if chunk[i] == 0 {
			chunk[i] = 1
		}
	}
	if len(chunk) > 0 {
		chunk[0] = a.cfg.ChunkLength
		if shape[0] > 0 {
			chunk[0] = min(shape[0], a.cfg.ChunkLength)
		}
	}
	return chunk
}

// openPath opens or creates every group along p below root. Only the last
// one gets kind.
func openPath(root dal.Location, p string, kind schema.Kind) (*dal.Group, error) {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil, fmt.Errorf("empty group path")
	}
	parts := strings.Split(p, "/")
	loc := root
	var g *dal.Group
	for i, part := range parts {
		var k schema.Kind
		if i == len(parts)-1 {
			k = kind
		}
		next, err := dal.OpenGroup(loc, part, k, true)
		if err != nil {
			return nil, err
		}
		if g != nil {
			g.Close()
		}
		g, loc = next, next
	}
	return g, nil
}

func parseElementType(s string) (dal.ElementType, error) {
	for t := hdf5.Int8; t <= hdf5.ComplexInt16Type; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return hdf5.InvalidType, fmt.Errorf("unknown element type %q", s)
}

// setAttributes writes TOML values as attributes of loc. Attributes the
// schema of kind declares get its type; others are typed after the TOML
// value.
func setAttributes(loc dal.Location, kind schema.Kind, attrs map[string]any) error {
	var s *schema.Schema
	if kind != "" {
		var err error
		if s, err = schema.Lookup(kind); err != nil {
			return err
		}
	}
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v := attrs[name]
		f, ok := schema.Field{}, false
		if s != nil {
			f, ok = s.Field(name)
		}
		if !ok {
			var err error
			if f, err = inferField(name, v); err != nil {
				return err
			}
		}
		f.Default = tomlValue(v)
		typed, err := f.Value()
		if err != nil {
			return fmt.Errorf("attribute %s: %w", name, err)
		}
		if err := setTyped(loc, name, typed); err != nil {
			return err
		}
	}
	return nil
}

// tomlValue maps TOML datetimes to the LOFAR date layout and leaves the
// rest alone.
func tomlValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.UTC().Format(common.FileDateLayout)
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = tomlValue(x[i])
		}
		return out
	}
	return v
}

func inferField(name string, v any) (schema.Field, error) {
	f := schema.Field{Name: name}
	if list, ok := v.([]any); ok {
		f.Vector = true
		if len(list) == 0 {
			f.Type = schema.String
			return f, nil
		}
		v = list[0]
		for _, item := range list {
			if _, isFloat := item.(float64); isFloat {
				v = item
			}
		}
	}
	switch v.(type) {
	case int64:
		f.Type = schema.Int64
	case float64:
		f.Type = schema.Float64
	case string, time.Time:
		f.Type = schema.String
	case bool:
		f.Type = schema.Bool
	default:
		return f, fmt.Errorf("attribute %s: unsupported value %v (%T)", name, v, v)
	}
	return f, nil
}

func setTyped(loc dal.Location, name string, v any) error {
	switch x := v.(type) {
	case []int16:
		return dal.SetAttributeVector(loc, name, x)
	case []int32:
		return dal.SetAttributeVector(loc, name, x)
	case []int64:
		return dal.SetAttributeVector(loc, name, x)
	case []uint16:
		return dal.SetAttributeVector(loc, name, x)
	case []uint32:
		return dal.SetAttributeVector(loc, name, x)
	case []uint64:
		return dal.SetAttributeVector(loc, name, x)
	case []float32:
		return dal.SetAttributeVector(loc, name, x)
	case []float64:
		return dal.SetAttributeVector(loc, name, x)
	case []string:
		return dal.SetAttributeVector(loc, name, x)
	case []bool:
		return dal.SetAttributeVector(loc, name, x)
	}
	return fmt.Errorf("attribute %s: unsupported value type %T", name, v)
}
