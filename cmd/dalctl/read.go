package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-lofar-dal/dal"
)

type readOptions struct {
	slab   string
	digest bool
	json   bool
}

type readResult struct {
	Path     string   `json:"path"`
	Type     string   `json:"type"`
	Shape    []uint64 `json:"shape"`
	Selected uint64   `json:"selected"`
	Values   any      `json:"values,omitempty"`
	Digest   string   `json:"digest,omitempty"`
}

func newReadCmd(a *app) *cobra.Command {
	var opts readOptions
	cmd := &cobra.Command{
		Use:   "read FILE DATASET",
		Short: "Print the values of a dataset",
		Long: `Print the values of a dataset, or of a hyperslab selection of it.

A selection is written as one or more hyperslabs joined by '|' and an
operator:

  start=0,10 count=5,2 stride=2,1 | or start=20,0 count=1,4 block=1,2

The operators are set, or, and, xor, notb and nota.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.read(cmd, args[0], args[1], opts)
		},
	}
	cmd.Flags().StringVar(&opts.slab, "slab", "", "hyperslab selection expression")
	cmd.Flags().BoolVar(&opts.digest, "digest", false, "print the xxhash64 of the raw data instead of the values")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print JSON")
	cmd.MarkFlagsMutuallyExclusive("slab", "digest")
	return cmd
}

func (a *app) read(cmd *cobra.Command, filename, dataset string, opts readOptions) error {
	f, err := dal.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	arr, err := dal.OpenArray(f, dataset)
	if err != nil {
		return err
	}
	defer arr.Close()

	ds := arr.Engine()
	res := readResult{Path: arr.Path(), Type: ds.TypeName(), Shape: arr.Shape()}
	rowLen := 0
	switch {
	case opts.digest:
		sum, err := ds.Digest()
		if err != nil {
			return fmt.Errorf("digest of %s: %w", arr.Path(), err)
		}
		res.Digest = fmt.Sprintf("%016x", sum)
	case opts.slab != "":
		stages, err := parseSlab(opts.slab, arr.Rank())
		if err != nil {
			return err
		}
		for _, s := range stages {
			if err := arr.SetHyperslab(s.Slab, s.Op, false); err != nil {
				return err
			}
		}
		res.Selected = arr.SelectionCount()
		dst := arr.ElementType().NewSlice(int(res.Selected))
		if dst == nil {
			return fmt.Errorf("%s: selections of %s data are not supported", arr.Path(), ds.TypeName())
		}
		if err := arr.ReadSelection(dst); err != nil {
			return err
		}
		res.Values = dst
	default:
		vals, err := ds.ReadAll()
		if err != nil {
			return fmt.Errorf("reading %s: %w", arr.Path(), err)
		}
		res.Values = vals
		res.Selected = 1
		for _, d := range res.Shape {
			res.Selected *= d
		}
		if len(res.Shape) > 1 {
			rowLen = int(res.Shape[len(res.Shape)-1])
		}
	}

	w := cmd.OutOrStdout()
	if opts.json {
		res.Values = jsonValues(res.Values)
		return a.writeJSON(w, res)
	}
	if res.Digest != "" {
		fmt.Fprintf(w, "%s  %s\n", res.Digest, res.Path)
		return nil
	}
	faintColor.Fprintf(w, "# %s %s %v, %d selected\n", res.Path, res.Type, res.Shape, res.Selected)
	printRows(w, res.Values, rowLen)
	return nil
}
