package main

import (
	"log/slog"
	"os"

	"github.com/JonMunkholm/sheetmap/internal/core"
	"github.com/JonMunkholm/sheetmap/internal/core/catalogs"
	"github.com/JonMunkholm/sheetmap/internal/logging"
	"github.com/JonMunkholm/sheetmap/internal/workbook"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	catalogDir string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "sheetmap",
		Short:         "Map spreadsheet cells to catalog fields and extract records",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Logs go to stderr so stdout stays clean for exports.
			slog.SetDefault(slog.New(logging.NewHandler(cmd.ErrOrStderr(), opts.logLevel, "text")))

			if opts.catalogDir == "" {
				return nil
			}
			n, err := catalogs.LoadDir(opts.catalogDir)
			if err != nil {
				return err
			}
			slog.Debug("catalog files loaded", "dir", opts.catalogDir, "count", n)
			return nil
		},
	}

	// A missing .env is fine; existing variables win.
	_ = godotenv.Load()

	root.PersistentFlags().StringVar(&opts.catalogDir, "catalogs", os.Getenv("CATALOG_DIR"), "directory of YAML catalogs to register")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(
		newCatalogsCmd(),
		newSheetsCmd(),
		newExtractCmd(),
	)
	return root
}

// openWorkbook loads a workbook file and drops hidden sheets.
func openWorkbook(path string) (*core.Workbook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	wb, err := workbook.Load(f)
	if err != nil {
		return nil, err
	}
	wb = wb.Visible()
	if len(wb.SheetNames()) == 0 {
		return nil, core.ErrNoSheets
	}
	return wb, nil
}
