package main

import (
	"context"
	"fmt"
	"io"
	"path"
	"reflect"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/robert-malhotra/go-lofar-dal/dal"
	"github.com/robert-malhotra/go-lofar-dal/hdf5"
)

type inspectOptions struct {
	json    bool
	noAttrs bool
}

type fileReport struct {
	File    string  `json:"file"`
	Size    uint64  `json:"size"`
	Version int     `json:"superblock_version"`
	Objects []*node `json:"objects,omitempty"`
	Error   string  `json:"error,omitempty"`
}

type node struct {
	Path       string      `json:"path"`
	Type       string      `json:"type"`
	DataType   string      `json:"datatype,omitempty"`
	Shape      []uint64    `json:"shape,omitempty"`
	MaxShape   []uint64    `json:"max_shape,omitempty"`
	Chunk      []uint64    `json:"chunk,omitempty"`
	Filters    []string    `json:"filters,omitempty"`
	Storage    uint64      `json:"storage,omitempty"`
	Attributes []attribute `json:"attributes,omitempty"`
	Error      string      `json:"error,omitempty"`
}

type attribute struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

type attrLister interface {
	Attrs() ([]*hdf5.Attribute, error)
}

func newInspectCmd(a *app) *cobra.Command {
	var opts inspectOptions
	cmd := &cobra.Command{
		Use:   "inspect FILE...",
		Short: "Print the groups, datasets and attributes of files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.inspect(cmd, args, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.json, "json", false, "print JSON")
	cmd.Flags().BoolVar(&opts.noAttrs, "no-attrs", false, "omit attributes")
	return cmd
}

func (a *app) inspect(cmd *cobra.Command, files []string, opts inspectOptions) error {
	reports := make([]*fileReport, len(files))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, name := range files {
		i, name := i, name
		g.Go(func() error {
			r, err := inspectFile(ctx, name, !opts.noAttrs)
			if err != nil {
				a.log.WithField("file", name).Debug(err)
				r.Error = err.Error()
			}
			reports[i] = r
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if opts.json {
		if err := a.writeJSON(w, reports); err != nil {
			return err
		}
	} else {
		for i, r := range reports {
			if i > 0 {
				fmt.Fprintln(w)
			}
			printReport(w, r)
		}
	}

	failed := 0
	for _, r := range reports {
		if r.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be inspected", failed, len(files))
	}
	return nil
}

// inspectFile walks one file. The report is never nil.
func inspectFile(ctx context.Context, name string, withAttrs bool) (*fileReport, error) {
	r := &fileReport{File: name}
	f, err := dal.Open(name)
	if err != nil {
		return r, err
	}
	defer f.Close()
	ef := f.Engine()
	r.Size, r.Version = ef.Size(), ef.Version()

	err = hdf5.Walk(ef.Root(), func(p string, obj any, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		n := &node{Path: p}
		r.Objects = append(r.Objects, n)
		if err != nil {
			n.Type, n.Error = "unknown", err.Error()
			return nil
		}
		switch o := obj.(type) {
		case *hdf5.Group:
			n.Type = hdf5.ObjectGroup.String()
		case *hdf5.Dataset:
			n.Type = hdf5.ObjectDataset.String()
			n.DataType = o.TypeName()
			n.Shape, n.MaxShape, n.Chunk = o.Shape(), o.MaxShape(), o.ChunkShape()
			n.Filters = o.Filters()
			n.Storage = o.StorageSize()
		}
		if l, ok := obj.(attrLister); ok && withAttrs {
			n.Attributes, err = attributes(l)
			if err != nil {
				n.Error = err.Error()
			}
		}
		return nil
	})
	return r, err
}

func attributes(obj attrLister) ([]attribute, error) {
	attrs, err := obj.Attrs()
	if err != nil {
		return nil, err
	}
	out := make([]attribute, 0, len(attrs))
	for _, at := range attrs {
		v, err := at.Value()
		if err != nil {
			v = "<" + err.Error() + ">"
		} else if at.Len() == 1 {
			v = reflect.ValueOf(v).Index(0).Interface()
		}
		out = append(out, attribute{Name: at.Name(), Type: at.TypeName(), Value: jsonValues(v)})
	}
	return out, nil
}

func printReport(w io.Writer, r *fileReport) {
	groupColor.Fprintf(w, "%s", r.File)
	if r.Error != "" && len(r.Objects) == 0 {
		errColor.Fprintf(w, "  %s\n", r.Error)
		return
	}
	faintColor.Fprintf(w, "  %s, superblock v%d\n", humanize.IBytes(r.Size), r.Version)
	for _, n := range r.Objects {
		depth := 0
		if n.Path != "/" {
			depth = strings.Count(n.Path, "/")
		}
		indent := strings.Repeat("  ", depth)
		name := path.Base(n.Path)
		switch n.Type {
		case "group":
			groupColor.Fprintf(w, "%s%s\n", indent, strings.TrimSuffix(name, "/")+"/")
		case "dataset":
			datasetColor.Fprintf(w, "%s%s", indent, name)
			faintColor.Fprintf(w, "  %s %v", n.DataType, n.Shape)
			if n.Chunk != nil {
				faintColor.Fprintf(w, " chunk %v", n.Chunk)
			}
			if len(n.Filters) > 0 {
				faintColor.Fprintf(w, " %s", strings.Join(n.Filters, "+"))
			}
			faintColor.Fprintf(w, " %s\n", humanize.IBytes(n.Storage))
		default:
			errColor.Fprintf(w, "%s%s\n", indent, name)
		}
		for _, at := range n.Attributes {
			attrColor.Fprintf(w, "%s  @%s", indent, at.Name)
			fmt.Fprintf(w, " = %s\n", formatValue(at.Value))
		}
		if n.Error != "" {
			errColor.Fprintf(w, "%s  ! %s\n", indent, n.Error)
		}
	}
	if r.Error != "" {
		errColor.Fprintf(w, "! %s\n", r.Error)
	}
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return fmt.Sprintf("%q", x)
	case []string:
		return fmt.Sprintf("%q", x)
	}
	return fmt.Sprint(v)
}
