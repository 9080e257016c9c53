package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/JonMunkholm/sheetmap/internal/core"
	"github.com/spf13/cobra"
)

func newCatalogsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalogs [key]",
		Short: "List catalogs, or the fields of one catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer tw.Flush()

			if len(args) == 0 {
				fmt.Fprintln(tw, "KEY\tGROUP\tLABEL\tFIELDS")
				for _, c := range core.AllCatalogs() {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", c.Key, c.Group, c.Label, c.Len())
				}
				return nil
			}

			c, err := core.LookupCatalog(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(tw, "#\tFIELD\tLABEL\tTYPE\tREQUIRED")
			for i, f := range c.Fields {
				req := ""
				if f.Required {
					req = "yes"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i, f.Name, f.DisplayLabel(), f.Type, req)
			}
			return nil
		},
	}
}
