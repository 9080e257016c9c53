package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/JonMunkholm/sheetmap/internal/core"
	"github.com/spf13/cobra"
)

func newSheetsCmd() *cobra.Command {
	var head int

	cmd := &cobra.Command{
		Use:   "sheets <workbook>",
		Short: "List the visible sheets of a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, err := openWorkbook(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SHEET\tROWS\tCOLUMNS")
			for _, s := range wb.Sheets() {
				rows, cols := s.Dimensions()
				fmt.Fprintf(tw, "%s\t%d\t%d\n", s.Name, rows, cols)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if head <= 0 {
				return nil
			}
			for _, s := range wb.Sheets() {
				fmt.Fprintf(out, "\n== %s ==\n", s.Name)
				for i, row := range s.Window(0, head) {
					cells := make([]string, len(row))
					for j, v := range row {
						cells[j] = core.Stringify(v)
					}
					fmt.Fprintf(out, "%d\t%s\n", i, strings.Join(cells, "\t"))
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&head, "head", 0, "also print the first N rows of each sheet")
	return cmd
}
