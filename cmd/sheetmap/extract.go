package main

import (
	"fmt"
	"io"
	"os"

	"github.com/JonMunkholm/sheetmap/internal/core"
	"github.com/JonMunkholm/sheetmap/internal/workbook"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// mappingFile is a saved mapping as written to disk. JSON files decode
// through the same YAML decoder.
type mappingFile struct {
	Name       string `yaml:"name"`
	CatalogKey string `yaml:"catalogKey"`
	HeaderMode bool   `yaml:"headerMode"`
	Details    []struct {
		FieldName      string `yaml:"fieldName"`
		SheetName      string `yaml:"sheetName"`
		ColumnPosition int    `yaml:"columnPosition"`
		RowPosition    int    `yaml:"rowPosition"`
	} `yaml:"details"`
}

func readMappingFile(path string) (mappingFile, []core.MappingDetail, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return mappingFile{}, nil, err
	}

	var mf mappingFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return mappingFile{}, nil, fmt.Errorf("parse mapping %s: %w", path, err)
	}
	if len(mf.Details) == 0 {
		return mappingFile{}, nil, fmt.Errorf("mapping %s: %w", path, core.ErrNoBindings)
	}

	details := make([]core.MappingDetail, len(mf.Details))
	for i, d := range mf.Details {
		details[i] = core.MappingDetail{
			FieldName:      d.FieldName,
			SheetName:      d.SheetName,
			ColumnPosition: d.ColumnPosition,
			RowPosition:    d.RowPosition,
		}
	}
	return mf, details, nil
}

func newExtractCmd() *cobra.Command {
	var (
		catalogKey  string
		mappingPath string
		format      string
		output      string
	)

	cmd := &cobra.Command{
		Use:   "extract <workbook>",
		Short: "Extract records from a workbook with a saved mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := workbook.ParseFormat(format)
			if err != nil {
				return err
			}

			mf, details, err := readMappingFile(mappingPath)
			if err != nil {
				return err
			}
			if catalogKey == "" {
				catalogKey = mf.CatalogKey
			}
			c, err := core.LookupCatalog(catalogKey)
			if err != nil {
				return err
			}

			wb, err := openWorkbook(args[0])
			if err != nil {
				return err
			}

			result, err := core.ExtractDetails(wb, c, details)
			if err != nil {
				return fmt.Errorf("%s: %w", core.FormatUserError(err), err)
			}

			var out io.Writer = cmd.OutOrStdout()
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return err
				}
				defer file.Close()
				out = file
			}
			if err := workbook.Write(out, f, result, c); err != nil {
				return err
			}

			summary := core.BuildPreview(result, 0).Summary
			fmt.Fprintf(cmd.ErrOrStderr(), "%d records, %d with errors, %d failed cells\n",
				summary.TotalRows, summary.ErrorRows, summary.ErrorCells)
			return nil
		},
	}

	cmd.Flags().StringVar(&catalogKey, "catalog", "", "catalog key (defaults to the mapping's catalogKey)")
	cmd.Flags().StringVarP(&mappingPath, "mapping", "m", "", "mapping file (YAML or JSON)")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json, xlsx, csv")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	_ = cmd.MarkFlagRequired("mapping")
	return cmd
}
