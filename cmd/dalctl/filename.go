package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-lofar-dal/dal/common"
)

type filenameOptions struct {
	obsID string
	descr string
	typ   string
	ext   string
	dir   string
	parse bool
}

func newFilenameCmd(a *app) *cobra.Command {
	var opts filenameOptions
	cmd := &cobra.Command{
		Use:   "filename [NAME...]",
		Short: "Render a LOFAR file name, or take names apart with --parse",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if opts.parse {
				if len(args) == 0 {
					return fmt.Errorf("--parse needs at least one name")
				}
				for i, name := range args {
					fn, err := common.ParseFilename(name)
					if err != nil {
						return err
					}
					if i > 0 {
						fmt.Fprintln(w)
					}
					fn.Summary(w)
				}
				return nil
			}
			if len(args) > 0 {
				return fmt.Errorf("names are only accepted with --parse")
			}
			fn, err := opts.filename()
			if err != nil {
				return err
			}
			fmt.Fprintln(w, fn.Name(true))
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.obsID, "obsid", "", "observation ID")
	cmd.Flags().StringVar(&opts.descr, "descr", "", "optional description")
	cmd.Flags().StringVar(&opts.typ, "type", common.UV.String(), "file type")
	cmd.Flags().StringVar(&opts.ext, "ext", common.H5.String(), "file extension")
	cmd.Flags().StringVar(&opts.dir, "dir", "", "directory to prepend")
	cmd.Flags().BoolVar(&opts.parse, "parse", false, "parse the given names instead")
	return cmd
}

func (o filenameOptions) filename() (common.Filename, error) {
	if o.obsID == "" {
		return common.Filename{}, fmt.Errorf("--obsid is required")
	}
	fn := common.NewFilename(o.obsID)
	fn.Description, fn.Path = o.descr, o.dir
	var ok bool
	if fn.Type, ok = common.ParseFileType(o.typ); !ok {
		return fn, fmt.Errorf("unknown file type %q", o.typ)
	}
	if fn.Extension, ok = common.ParseExtension(o.ext); !ok {
		return fn, fmt.Errorf("unknown extension %q", o.ext)
	}
	return fn, nil
}
