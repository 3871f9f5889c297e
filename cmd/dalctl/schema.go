package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-lofar-dal/dal/schema"
)

func newSchemaCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "schema [KIND]",
		Short: "List the schema kinds, or the attributes of one kind",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if len(args) == 0 {
				var all []*schema.Schema
				for _, k := range schema.Kinds() {
					s, err := schema.Lookup(k)
					if err != nil {
						return err
					}
					all = append(all, s)
				}
				if asJSON {
					return a.writeJSON(w, all)
				}
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				for _, s := range all {
					groupColor.Fprintf(tw, "%s", s.Kind)
					fmt.Fprintf(tw, "\t%d attributes\t%s\n", len(s.Fields), s.Doc)
				}
				return tw.Flush()
			}

			s, err := schema.Lookup(schema.Kind(args[0]))
			if err != nil {
				return err
			}
			if asJSON {
				return a.writeJSON(w, s)
			}
			groupColor.Fprintf(w, "%s", s.Kind)
			faintColor.Fprintf(w, "  %s\n", s.Doc)
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			for _, f := range s.Fields {
				typ := string(f.Type)
				if f.Vector {
					typ = "[]" + typ
				}
				attrColor.Fprintf(tw, "%s", f.Name)
				fmt.Fprintf(tw, "\t%s\t%v\n", typ, f.Default)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
