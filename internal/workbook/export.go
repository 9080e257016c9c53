package workbook

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/sheetmap/internal/core"
	"github.com/xuri/excelize/v2"
)

// Format is an export file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ErrUnknownFormat is returned by ParseFormat.
var ErrUnknownFormat = errors.New("unknown export format")

// Sheet names used by WriteXLSX.
const (
	RecordsSheet = "Records"
	ErrorsSheet  = "Errors"
)

const errorFillColor = "#FDE2E1"

// ParseFormat parses a format name. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// ContentType returns the MIME type for HTTP downloads.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	default:
		return "application/json"
	}
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// Write encodes result in format f.
func Write(w io.Writer, f Format, result *core.ExtractionResult, c *core.Catalog) error {
	switch f {
	case FormatXLSX:
		return WriteXLSX(w, result, c)
	case FormatCSV:
		return WriteCSV(w, result, c)
	case FormatJSON:
		return WriteJSON(w, result)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
	}
}

// WriteJSON writes result as indented JSON.
func WriteJSON(w io.Writer, result *core.ExtractionResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// WriteCSV writes a header of field labels and one line per record.
func WriteCSV(w io.Writer, result *core.ExtractionResult, c *core.Catalog) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(headerLabels(result, c)); err != nil {
		return err
	}

	line := make([]string, len(result.Fields))
	for _, rec := range result.Records {
		for i, name := range result.Fields {
			line[i] = core.Stringify(rec[name])
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the records to a Records sheet with failed cells filled
// red, and the cell errors to an Errors sheet when there are any.
func WriteXLSX(w io.Writer, result *core.ExtractionResult, c *core.Catalog) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", RecordsSheet); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	errorStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{errorFillColor}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	header := make([]any, len(result.Fields))
	for i, label := range headerLabels(result, c) {
		header[i] = label
	}
	if err := f.SetSheetRow(RecordsSheet, "A1", &header); err != nil {
		return err
	}
	if len(header) > 0 {
		if err := f.SetRowStyle(RecordsSheet, 1, 1, headerStyle); err != nil {
			return err
		}
	}

	failed := make(map[[2]int]bool, len(result.Errors))
	for _, e := range result.Errors {
		failed[[2]int{e.Record, e.FieldIndex}] = true
	}

	for r, rec := range result.Records {
		for i, name := range result.Fields {
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(RecordsSheet, cell, rec[name]); err != nil {
				return err
			}
			if failed[[2]int{r, i}] {
				if err := f.SetCellStyle(RecordsSheet, cell, cell, errorStyle); err != nil {
					return err
				}
			}
		}
	}

	if len(result.Errors) > 0 {
		if err := writeErrorSheet(f, result, headerStyle); err != nil {
			return err
		}
	}

	_, err = f.WriteTo(w)
	return err
}

func writeErrorSheet(f *excelize.File, result *core.ExtractionResult, headerStyle int) error {
	if _, err := f.NewSheet(ErrorsSheet); err != nil {
		return err
	}

	header := []any{"Record", "Field", "Cell", "Message"}
	if err := f.SetSheetRow(ErrorsSheet, "A1", &header); err != nil {
		return err
	}
	if err := f.SetRowStyle(ErrorsSheet, 1, 1, headerStyle); err != nil {
		return err
	}

	for i, e := range result.Errors {
		row := []any{e.Record + 1, e.Field, e.Position.String(), e.Message}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ErrorsSheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// headerLabels returns display labels for result.Fields, falling back to the
// field name when the catalog does not know it.
func headerLabels(result *core.ExtractionResult, c *core.Catalog) []string {
	labels := make([]string, len(result.Fields))
	for i, name := range result.Fields {
		labels[i] = name
		if c == nil {
			continue
		}
		if f, ok := c.Field(name); ok {
			labels[i] = f.DisplayLabel()
		}
	}
	return labels
}
