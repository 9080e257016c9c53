package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DataType is the declared type of a catalog field.
// The numeric values are persisted with saved mappings and must not change.
type DataType int

const (
	TypeString DataType = iota
	TypeNumber
	TypeDate
	TypeBoolean
	TypeDecimal
)

// String returns the lowercase name used in catalog files and logs.
func (t DataType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeDate:
		return "date"
	case TypeBoolean:
		return "boolean"
	case TypeDecimal:
		return "decimal"
	default:
		return fmt.Sprintf("DataType(%d)", int(t))
	}
}

// Valid reports whether t is one of the known data types.
func (t DataType) Valid() bool {
	return t >= TypeString && t <= TypeDecimal
}

// ParseDataType converts a type name ("string", "number", "date", "boolean",
// "decimal", plus a few aliases) into a DataType.
func ParseDataType(s string) (DataType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "text", "":
		return TypeString, nil
	case "number", "numeric", "int", "integer", "float":
		return TypeNumber, nil
	case "date", "datetime":
		return TypeDate, nil
	case "boolean", "bool":
		return TypeBoolean, nil
	case "decimal":
		return TypeDecimal, nil
	default:
		return TypeString, fmt.Errorf("unknown data type %q", s)
	}
}

// Field is one entry of a catalog.
type Field struct {
	Name     string   `json:"fieldName" yaml:"name"`
	Label    string   `json:"displayLabel" yaml:"label"`
	Type     DataType `json:"type" yaml:"-"`
	Required bool     `json:"isRequired" yaml:"required"`
}

// DisplayLabel returns the label, falling back to the field name.
func (f Field) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// Catalog is the fixed, ordered list of fields a mapping targets.
type Catalog struct {
	Key    string  `json:"key"`   // Unique identifier: "salary"
	Group  string  `json:"group"` // Document family group: "HR"
	Label  string  `json:"label"` // Display name: "Monthly salary sheet"
	Fields []Field `json:"fields"`
}

// Len returns the number of fields in the catalog.
func (c *Catalog) Len() int {
	return len(c.Fields)
}

// Index returns the catalog position of the named field, or -1.
func (c *Catalog) Index(name string) int {
	for i, f := range c.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Field returns the named field.
func (c *Catalog) Field(name string) (Field, bool) {
	if i := c.Index(name); i >= 0 {
		return c.Fields[i], true
	}
	return Field{}, false
}

// RequiredFields returns the fields flagged as required, in catalog order.
func (c *Catalog) RequiredFields() []Field {
	var out []Field
	for _, f := range c.Fields {
		if f.Required {
			out = append(out, f)
		}
	}
	return out
}

// CellError describes one cell that failed coercion during extraction.
type CellError struct {
	Position   CellPosition `json:"position"`
	FieldIndex int          `json:"fieldIndex"` // Ordinal of the binding in the mapping
	Field      string       `json:"field"`
	Record     int          `json:"record"` // Index into ExtractionResult.Records
	Message    string       `json:"message"`
}

// Record is one extracted row: field name to typed value, or to the error
// message when the cell failed coercion.
type Record map[string]any

// ExtractionResult is the outcome of one extraction run.
type ExtractionResult struct {
	Succeeded bool        `json:"succeeded"`
	Fields    []string    `json:"fields"` // Column order of the records
	Records   []Record    `json:"records"`
	Errors    []CellError `json:"errors"`
}

// ErrorFieldIndexes returns the distinct binding indexes that produced errors,
// in first-seen order.
func (r *ExtractionResult) ErrorFieldIndexes() []int {
	seen := make(map[int]bool)
	var out []int
	for _, e := range r.Errors {
		if !seen[e.FieldIndex] {
			seen[e.FieldIndex] = true
			out = append(out, e.FieldIndex)
		}
	}
	return out
}

// ErrorAt returns the cell error recorded at pos, if any.
func (r *ExtractionResult) ErrorAt(pos CellPosition) (CellError, bool) {
	for _, e := range r.Errors {
		if e.Position == pos {
			return e, true
		}
	}
	return CellError{}, false
}

// MappingDetail is the persisted form of one binding.
type MappingDetail struct {
	FieldName      string   `json:"fieldName" validate:"required"`
	DisplayName    string   `json:"displayName"`
	ColumnPosition int      `json:"columnPosition" validate:"gte=0"`
	RowPosition    int      `json:"rowPosition" validate:"gte=0"`
	SheetName      string   `json:"sheetName" validate:"required"`
	DataType       DataType `json:"dataType"`
	IsRequired     bool     `json:"isRequired"`
}

// SavedMapping is a named, persisted mapping for one catalog.
type SavedMapping struct {
	ID               string          `json:"id"`
	Name             string          `json:"name" validate:"required,max=200"`
	CatalogKey       string          `json:"catalogKey" validate:"required"`
	Department       int             `json:"departmentId" validate:"oneof=0 1 2"`
	TemplateFileName string          `json:"templateFileName,omitempty"`
	HeaderMode       bool            `json:"headerMode"`
	Details          []MappingDetail `json:"details" validate:"required,min=1,dive"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// MappingMatch is a saved mapping scored against a workbook layout.
type MappingMatch struct {
	Mapping    SavedMapping `json:"mapping"`
	MatchScore float64      `json:"matchScore"`
}

// Departments a saved mapping can belong to. DepartmentAll marks a mapping
// shared by every department and, as a filter, disables department filtering.
const (
	DepartmentAll = iota
	DepartmentA
	DepartmentB
)

// MappingFilter narrows MappingStore.List. Zero fields match everything.
// A non-zero Department matches that department and DepartmentAll.
type MappingFilter struct {
	CatalogKey string
	Department int
}

// Matches reports whether m passes the filter.
func (f MappingFilter) Matches(m SavedMapping) bool {
	if f.CatalogKey != "" && m.CatalogKey != f.CatalogKey {
		return false
	}
	if f.Department != DepartmentAll && m.Department != f.Department && m.Department != DepartmentAll {
		return false
	}
	return true
}

// MappingStore persists saved mappings.
// Implementations return ErrMappingNotFound for unknown IDs and
// ErrDuplicateMapping when a name is already used within a catalog.
type MappingStore interface {
	Create(ctx context.Context, m SavedMapping) (SavedMapping, error)
	Get(ctx context.Context, id string) (SavedMapping, error)
	List(ctx context.Context, f MappingFilter) ([]SavedMapping, error)
	Update(ctx context.Context, m SavedMapping) (SavedMapping, error)
	Delete(ctx context.Context, id string) error
}
