// Package workbook converts uploaded spreadsheet files into the core workbook
// model and writes extraction results back out as files.
//
// XLSX files are read with excelize. Plain-text CSV uploads become a single
// sheet named after CSVSheetName. The format is sniffed from content, so
// callers never pass a file name.
package workbook

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/JonMunkholm/sheetmap/internal/core"
	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"
)

// CSVSheetName is the sheet name given to CSV uploads.
const CSVSheetName = "Sheet1"

// Options tunes Load. The zero value applies excelize defaults.
type Options struct {
	// UnzipSizeLimit caps the decompressed size of an xlsx package in bytes.
	UnzipSizeLimit int64
}

// Load reads an xlsx or CSV workbook with default options.
func Load(r io.Reader) (*core.Workbook, error) {
	return Options{}.Load(r)
}

// Loader returns a core.WorkbookLoader bound to o.
func (o Options) Loader() core.WorkbookLoader {
	return o.Load
}

// Load reads an xlsx or CSV workbook. Hidden sheets are kept and flagged;
// the service drops them.
func (o Options) Load(r io.Reader) (*core.Workbook, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", core.ErrInvalidWorkbook)
	}

	mt := mimetype.Detect(data)
	switch {
	case isKind(mt, "application/zip"):
		return o.loadXLSX(bytes.NewReader(data))
	case isKind(mt, "text/plain"):
		return loadCSV(bytes.NewReader(data))
	case isKind(mt, "application/x-ole-storage"):
		return nil, fmt.Errorf("%w: legacy .xls workbooks are not supported, save the file as .xlsx", core.ErrInvalidWorkbook)
	default:
		return nil, fmt.Errorf("%w: unsupported workbook file format %s", core.ErrInvalidWorkbook, mt.String())
	}
}

// isKind reports whether mt or one of its parents is kind.
func isKind(mt *mimetype.MIME, kind string) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is(kind) {
			return true
		}
	}
	return false
}

func (o Options) loadXLSX(r io.Reader) (*core.Workbook, error) {
	var opts []excelize.Options
	if o.UnzipSizeLimit > 0 {
		opts = append(opts, excelize.Options{UnzipSizeLimit: o.UnzipSizeLimit})
	}

	f, err := excelize.OpenReader(r, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidWorkbook, err)
	}
	defer f.Close()

	var sheets []*core.Sheet
	for _, name := range f.GetSheetList() {
		sheet, err := readSheet(f, name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		sheets = append(sheets, sheet)
	}

	if len(sheets) == 0 {
		return nil, core.ErrNoSheets
	}
	return core.NewWorkbook(sheets...), nil
}

// readSheet loads every cell of one sheet as a raw value.
func readSheet(f *excelize.File, name string) (*core.Sheet, error) {
	visible, err := f.GetSheetVisible(name)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	out := make([][]any, len(rows))
	for r, row := range rows {
		out[r] = make([]any, len(row))
		for c, text := range row {
			if text == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			typ, err := f.GetCellType(name, cell)
			if err != nil {
				return nil, err
			}
			out[r][c] = typedValue(typ, text)
		}
	}

	return &core.Sheet{Name: name, Hidden: !visible, Rows: out}, nil
}

// typedValue converts a raw cell string by its stored type. Cells without a
// type attribute are numeric in xlsx; anything that fails to parse stays text.
func typedValue(typ excelize.CellType, text string) any {
	switch typ {
	case excelize.CellTypeBool:
		switch strings.ToUpper(text) {
		case "1", "TRUE":
			return true
		case "0", "FALSE":
			return false
		}
		return text
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return f
		}
		return text
	default:
		return text
	}
}
