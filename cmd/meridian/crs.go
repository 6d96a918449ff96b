package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jobrunner/meridian/internal/domain"
)

func newCRSCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "crs [SRID]",
		Short: "List known coordinate systems or print one as WKT",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openEngine(ctx, cmd, *cfgFile)
			if err != nil {
				return err
			}
			defer closeEngine(a)

			out := cmd.OutOrStdout()

			if len(args) == 1 {
				srid, err := strconv.Atoi(args[0])
				if err != nil {
					return &domain.ValidationError{Field: "srid", Value: args[0], Constraint: "integer", Message: "srid must be an integer"}
				}
				def, err := a.Registry.Definition(ctx, srid)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, def.System.WKT())
				return nil
			}

			defs, err := a.Registry.ListDefinitions(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SRID\tKIND\tNAME\tSOURCE")
			for _, d := range defs {
				source := d.Catalog
				if source == "" {
					source = d.Description
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", d.SRID, d.Kind(), d.Name, source)
			}
			return tw.Flush()
		},
	}
}
