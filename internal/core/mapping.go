package core

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Mapping invariant violations.
var (
	ErrFieldBound   = errors.New("field is already bound")
	ErrCatalogFull  = errors.New("every catalog field is already bound")
	ErrUnknownField = errors.New("field is not in the catalog")
	ErrBindingIndex = errors.New("binding index out of range")
	ErrInvalidRow   = errors.New("row must be zero or greater")
	ErrCellBound    = errors.New("cell is already bound")
)

// CellPosition identifies one cell. Column and Row are zero-based.
type CellPosition struct {
	Sheet  string `json:"sheet"`
	Column int    `json:"column"`
	Row    int    `json:"row"`
}

// ColumnName returns the spreadsheet column letters ("A", "B", ... "AA").
func (p CellPosition) ColumnName() string {
	return ColumnName(p.Column)
}

// A1 returns the cell reference in A1 notation, e.g. "C4".
func (p CellPosition) A1() string {
	ref, err := excelize.CoordinatesToCellName(p.Column+1, p.Row+1)
	if err != nil {
		return ""
	}
	return ref
}

func (p CellPosition) String() string {
	return fmt.Sprintf("%s!%s", p.Sheet, p.A1())
}

// ColumnName converts a zero-based column index to spreadsheet letters.
// Returns "" for negative or out-of-range indexes.
func ColumnName(index int) string {
	name, err := excelize.ColumnNumberToName(index + 1)
	if err != nil {
		return ""
	}
	return name
}

// FieldBinding assigns one catalog field to the first data cell of a column.
// Header is set when the binding was created from a header cell.
type FieldBinding struct {
	Field    string        `json:"field"`
	Position CellPosition  `json:"position"`
	Label    string        `json:"label,omitempty"`
	Header   *CellPosition `json:"header,omitempty"`
}

type columnKey struct {
	sheet  string
	column int
}

// Mapping is the ordered list of bindings the wizard builds.
//
// Lookups by field, by data cell, by header cell and by header column go
// through indexes that are rebuilt after every mutation, so the
// one-binding-per-field and one-binding-per-cell rules are checked in one
// place. A Mapping is not safe for concurrent use.
type Mapping struct {
	bindings []FieldBinding

	byField  map[string]int
	byCell   map[CellPosition]int
	byHeader map[CellPosition]int
	byColumn map[columnKey]int
}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	m := &Mapping{}
	m.reindex()
	return m
}

func (m *Mapping) reindex() {
	m.byField = make(map[string]int, len(m.bindings))
	m.byCell = make(map[CellPosition]int, len(m.bindings))
	m.byHeader = make(map[CellPosition]int)
	m.byColumn = make(map[columnKey]int)

	for i, b := range m.bindings {
		m.byField[b.Field] = i
		m.byCell[b.Position] = i
		if b.Header != nil {
			m.byHeader[*b.Header] = i
			m.byColumn[columnKey{b.Position.Sheet, b.Position.Column}] = i
		}
	}
}

// Len returns the number of bindings.
func (m *Mapping) Len() int {
	return len(m.bindings)
}

// Bindings returns a copy of the bindings in order.
func (m *Mapping) Bindings() []FieldBinding {
	out := make([]FieldBinding, len(m.bindings))
	copy(out, m.bindings)
	return out
}

// Binding returns the binding at index i.
func (m *Mapping) Binding(i int) (FieldBinding, bool) {
	if i < 0 || i >= len(m.bindings) {
		return FieldBinding{}, false
	}
	return m.bindings[i], true
}

// ByField returns the index of the binding that holds field.
func (m *Mapping) ByField(field string) (int, bool) {
	i, ok := m.byField[field]
	return i, ok
}

// At returns the index of the binding whose data cell is pos.
func (m *Mapping) At(pos CellPosition) (int, bool) {
	i, ok := m.byCell[pos]
	return i, ok
}

// HeaderAt returns the index of the binding created from header cell pos.
func (m *Mapping) HeaderAt(pos CellPosition) (int, bool) {
	i, ok := m.byHeader[pos]
	return i, ok
}

// ColumnBound reports whether a header-origin binding already reads the column.
func (m *Mapping) ColumnBound(sheet string, column int) bool {
	_, ok := m.byColumn[columnKey{sheet, column}]
	return ok
}

// NextUnmapped returns the first catalog field without a binding.
func (m *Mapping) NextUnmapped(c *Catalog) (Field, bool) {
	for _, f := range c.Fields {
		if _, bound := m.byField[f.Name]; !bound {
			return f, true
		}
	}
	return Field{}, false
}

// Sheets returns the distinct sheet names referenced by bindings, in order of
// first appearance.
func (m *Mapping) Sheets() []string {
	seen := make(map[string]bool)
	var out []string
	for _, b := range m.bindings {
		if !seen[b.Position.Sheet] {
			seen[b.Position.Sheet] = true
			out = append(out, b.Position.Sheet)
		}
	}
	return out
}

// HeaderCells returns the header cells currently selected, in binding order.
func (m *Mapping) HeaderCells() []CellPosition {
	var out []CellPosition
	for _, b := range m.bindings {
		if b.Header != nil {
			out = append(out, *b.Header)
		}
	}
	return out
}

// Clone returns a deep copy.
func (m *Mapping) Clone() *Mapping {
	c := &Mapping{bindings: make([]FieldBinding, len(m.bindings))}
	for i, b := range m.bindings {
		if b.Header != nil {
			h := *b.Header
			b.Header = &h
		}
		c.bindings[i] = b
	}
	c.reindex()
	return c
}

// Add appends a binding after checking it against the catalog and the
// existing bindings. Returns the new binding's index.
func (m *Mapping) Add(c *Catalog, b FieldBinding) (int, error) {
	if c.Index(b.Field) < 0 {
		return -1, fmt.Errorf("%w: %s", ErrUnknownField, b.Field)
	}
	if len(m.bindings) >= c.Len() {
		return -1, ErrCatalogFull
	}
	if _, ok := m.byField[b.Field]; ok {
		return -1, fmt.Errorf("%w: %s", ErrFieldBound, b.Field)
	}
	if b.Position.Row < 0 || b.Position.Column < 0 {
		return -1, ErrInvalidRow
	}
	if _, ok := m.byCell[b.Position]; ok {
		return -1, fmt.Errorf("%w: %s", ErrCellBound, b.Position)
	}
	if b.Header != nil && m.ColumnBound(b.Position.Sheet, b.Position.Column) {
		return -1, fmt.Errorf("%w: column %s of %s", ErrCellBound, b.Position.ColumnName(), b.Position.Sheet)
	}

	m.bindings = append(m.bindings, b)
	m.reindex()
	return len(m.bindings) - 1, nil
}

// Remove deletes the binding at index i, releasing its field.
func (m *Mapping) Remove(i int) (FieldBinding, error) {
	if i < 0 || i >= len(m.bindings) {
		return FieldBinding{}, ErrBindingIndex
	}
	removed := m.bindings[i]
	m.bindings = append(m.bindings[:i], m.bindings[i+1:]...)
	m.reindex()
	return removed, nil
}

// Reassign points binding i at another catalog field. The field it held
// before is released. Fails if the new field is held by another binding.
func (m *Mapping) Reassign(c *Catalog, i int, field string) error {
	if i < 0 || i >= len(m.bindings) {
		return ErrBindingIndex
	}
	if c.Index(field) < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	if j, ok := m.byField[field]; ok {
		if j == i {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrFieldBound, field)
	}

	m.bindings[i].Field = field
	m.reindex()
	return nil
}

// SetRow moves the start row of binding i.
func (m *Mapping) SetRow(i, row int) error {
	if i < 0 || i >= len(m.bindings) {
		return ErrBindingIndex
	}
	if row < 0 {
		return ErrInvalidRow
	}

	pos := m.bindings[i].Position
	pos.Row = row
	if j, ok := m.byCell[pos]; ok && j != i {
		return fmt.Errorf("%w: %s", ErrCellBound, pos)
	}

	m.bindings[i].Position = pos
	m.reindex()
	return nil
}

// SetAllRows moves every binding to the same start row. Nothing changes if
// two bindings would land on the same cell.
func (m *Mapping) SetAllRows(row int) error {
	if row < 0 {
		return ErrInvalidRow
	}

	seen := make(map[CellPosition]bool, len(m.bindings))
	for _, b := range m.bindings {
		pos := b.Position
		pos.Row = row
		if seen[pos] {
			return fmt.Errorf("%w: %s", ErrCellBound, pos)
		}
		seen[pos] = true
	}

	for i := range m.bindings {
		m.bindings[i].Position.Row = row
	}
	m.reindex()
	return nil
}

// Clear removes every binding.
func (m *Mapping) Clear() {
	m.bindings = nil
	m.reindex()
}

// Details converts the mapping into its persisted form. The display name is
// the binding label, or the field label when the binding has none.
func (m *Mapping) Details(c *Catalog) []MappingDetail {
	out := make([]MappingDetail, len(m.bindings))
	for i, b := range m.bindings {
		f, ok := c.Field(b.Field)
		if !ok {
			f = Field{Name: b.Field, Type: TypeString}
		}
		name := b.Label
		if name == "" {
			name = f.DisplayLabel()
		}
		out[i] = MappingDetail{
			FieldName:      b.Field,
			DisplayName:    name,
			ColumnPosition: b.Position.Column,
			RowPosition:    b.Position.Row,
			SheetName:      b.Position.Sheet,
			DataType:       f.Type,
			IsRequired:     f.Required,
		}
	}
	return out
}

// MappingFromDetails rebuilds a mapping from its persisted form, applying the
// same checks as Add.
func MappingFromDetails(c *Catalog, details []MappingDetail) (*Mapping, error) {
	m := NewMapping()
	for i, d := range details {
		b := FieldBinding{
			Field: d.FieldName,
			Position: CellPosition{
				Sheet:  d.SheetName,
				Column: d.ColumnPosition,
				Row:    d.RowPosition,
			},
			Label: d.DisplayName,
		}
		if _, err := m.Add(c, b); err != nil {
			return nil, fmt.Errorf("detail %d: %w", i, err)
		}
	}
	return m, nil
}
