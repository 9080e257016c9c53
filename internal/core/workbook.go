package core

import "errors"

// Workbook errors reported by loaders and sheet lookups.
var (
	ErrInvalidWorkbook = errors.New("not a valid workbook")
	ErrNoSheets        = errors.New("workbook has no visible sheets")
	ErrSheetNotFound   = errors.New("sheet not found")
	ErrFileTooLarge    = errors.New("file too large")
)

// Workbook is an already-parsed spreadsheet held in memory.
// Cell values are string, float64, bool, time.Time or nil.
type Workbook struct {
	sheets []*Sheet
	byName map[string]*Sheet
}

// Sheet is one named grid of raw cell values, indexed [row][column].
// Rows may be ragged; missing cells read as nil.
type Sheet struct {
	Name   string  `json:"name"`
	Hidden bool    `json:"hidden"`
	Rows   [][]any `json:"rows"`
}

// NewWorkbook builds a workbook from sheets in display order.
// A later sheet with a duplicate name replaces the earlier lookup entry.
func NewWorkbook(sheets ...*Sheet) *Workbook {
	wb := &Workbook{
		sheets: make([]*Sheet, 0, len(sheets)),
		byName: make(map[string]*Sheet, len(sheets)),
	}
	for _, s := range sheets {
		if s == nil {
			continue
		}
		wb.sheets = append(wb.sheets, s)
		wb.byName[s.Name] = s
	}
	return wb
}

// SheetNames returns sheet names in display order.
func (wb *Workbook) SheetNames() []string {
	names := make([]string, len(wb.sheets))
	for i, s := range wb.sheets {
		names[i] = s.Name
	}
	return names
}

// Sheets returns the sheets in display order.
func (wb *Workbook) Sheets() []*Sheet {
	out := make([]*Sheet, len(wb.sheets))
	copy(out, wb.sheets)
	return out
}

// Sheet returns the named sheet.
func (wb *Workbook) Sheet(name string) (*Sheet, bool) {
	if wb == nil {
		return nil, false
	}
	s, ok := wb.byName[name]
	return s, ok
}

// Visible returns a workbook without hidden sheets.
func (wb *Workbook) Visible() *Workbook {
	var keep []*Sheet
	for _, s := range wb.sheets {
		if !s.Hidden {
			keep = append(keep, s)
		}
	}
	return NewWorkbook(keep...)
}

// Cell returns the raw value at pos, or nil when pos is outside the sheet.
func (wb *Workbook) Cell(pos CellPosition) any {
	s, ok := wb.Sheet(pos.Sheet)
	if !ok {
		return nil
	}
	return s.Cell(pos.Row, pos.Column)
}

// CellText returns the value at pos rendered as text.
func (wb *Workbook) CellText(pos CellPosition) string {
	return Stringify(wb.Cell(pos))
}

// Cell returns the raw value at (row, column), or nil when out of range.
func (s *Sheet) Cell(row, column int) any {
	if row < 0 || column < 0 || row >= len(s.Rows) {
		return nil
	}
	r := s.Rows[row]
	if column >= len(r) {
		return nil
	}
	return r[column]
}

// Dimensions returns the populated row count and the widest row.
func (s *Sheet) Dimensions() (rows, columns int) {
	for _, r := range s.Rows {
		if len(r) > columns {
			columns = len(r)
		}
	}
	return len(s.Rows), columns
}

// Window returns up to limit rows starting at offset, for paging a grid
// to a client. A non-positive limit returns everything after offset.
func (s *Sheet) Window(offset, limit int) [][]any {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(s.Rows) {
		return [][]any{}
	}
	end := len(s.Rows)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return s.Rows[offset:end]
}

// ReadColumn returns the raw values of one column from startRow downward.
// The slice is built fresh on every call. A missing sheet yields an empty
// sequence. Trailing empty cells are dropped, so a column without data past
// startRow has length zero.
func ReadColumn(wb *Workbook, sheet string, column, startRow int) []any {
	s, ok := wb.Sheet(sheet)
	if !ok || column < 0 {
		return []any{}
	}
	if startRow < 0 {
		startRow = 0
	}

	var out []any
	last := -1
	for row := startRow; row < len(s.Rows); row++ {
		v := s.Cell(row, column)
		out = append(out, v)
		if !IsEmpty(v) {
			last = len(out) - 1
		}
	}

	return append([]any{}, out[:last+1]...)
}
