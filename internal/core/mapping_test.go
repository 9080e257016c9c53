package core

import (
	"errors"
	"reflect"
	"testing"
)

func threeFieldCatalog() *Catalog {
	return &Catalog{
		Key: "triple",
		Fields: []Field{
			{Name: "first", Label: "First", Type: TypeString, Required: true},
			{Name: "second", Label: "Second", Type: TypeNumber},
			{Name: "third", Label: "Third", Type: TypeDate, Required: true},
		},
	}
}

func pos(sheet string, col, row int) CellPosition {
	return CellPosition{Sheet: sheet, Column: col, Row: row}
}

func TestCellPosition_Names(t *testing.T) {
	tests := []struct {
		pos      CellPosition
		wantCol  string
		wantA1   string
		wantText string
	}{
		{pos("S", 0, 0), "A", "A1", "S!A1"},
		{pos("S", 25, 9), "Z", "Z10", "S!Z10"},
		{pos("S", 26, 0), "AA", "AA1", "S!AA1"},
		{pos("Data", 701, 2), "ZZ", "ZZ3", "Data!ZZ3"},
	}
	for _, tt := range tests {
		if got := tt.pos.ColumnName(); got != tt.wantCol {
			t.Errorf("ColumnName(%d) = %q, want %q", tt.pos.Column, got, tt.wantCol)
		}
		if got := tt.pos.A1(); got != tt.wantA1 {
			t.Errorf("A1() = %q, want %q", got, tt.wantA1)
		}
		if got := tt.pos.String(); got != tt.wantText {
			t.Errorf("String() = %q, want %q", got, tt.wantText)
		}
	}

	if got := ColumnName(-1); got != "" {
		t.Errorf("ColumnName(-1) = %q, want empty", got)
	}
}

func TestMapping_AddEnforcesInvariants(t *testing.T) {
	c := threeFieldCatalog()
	m := NewMapping()

	if _, err := m.Add(c, FieldBinding{Field: "first", Position: pos("S", 0, 1)}); err != nil {
		t.Fatalf("Add(first): %v", err)
	}

	tests := []struct {
		name    string
		binding FieldBinding
		wantErr error
	}{
		{"same field twice", FieldBinding{Field: "first", Position: pos("S", 3, 1)}, ErrFieldBound},
		{"unknown field", FieldBinding{Field: "nope", Position: pos("S", 3, 1)}, ErrUnknownField},
		{"same cell", FieldBinding{Field: "second", Position: pos("S", 0, 1)}, ErrCellBound},
		{"negative row", FieldBinding{Field: "second", Position: pos("S", 0, -1)}, ErrInvalidRow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Add(c, tt.binding)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Add() error = %v, want %v", err, tt.wantErr)
			}
			if m.Len() != 1 {
				t.Errorf("Len() = %d, want 1", m.Len())
			}
		})
	}
}

func TestMapping_HeaderColumnExclusive(t *testing.T) {
	c := threeFieldCatalog()
	m := NewMapping()

	h1 := pos("S", 2, 0)
	if _, err := m.Add(c, FieldBinding{Field: "first", Position: pos("S", 2, 1), Header: &h1}); err != nil {
		t.Fatal(err)
	}
	h2 := pos("S", 2, 4)
	_, err := m.Add(c, FieldBinding{Field: "second", Position: pos("S", 2, 5), Header: &h2})
	if !errors.Is(err, ErrCellBound) {
		t.Errorf("second header in same column: error = %v, want ErrCellBound", err)
	}
	if !m.ColumnBound("S", 2) {
		t.Error("ColumnBound(S, 2) = false")
	}
	if m.ColumnBound("Other", 2) {
		t.Error("ColumnBound(Other, 2) = true")
	}
}

func TestMapping_Capacity(t *testing.T) {
	c := &Catalog{Key: "one", Fields: []Field{{Name: "only"}}}
	m := NewMapping()
	if _, err := m.Add(c, FieldBinding{Field: "only", Position: pos("S", 0, 0)}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Add(c, FieldBinding{Field: "only", Position: pos("S", 1, 0)}); !errors.Is(err, ErrCatalogFull) {
		t.Errorf("error = %v, want ErrCatalogFull", err)
	}
}

func TestMapping_ReassignReleasesOldField(t *testing.T) {
	c := threeFieldCatalog()
	m := NewMapping()
	m.Add(c, FieldBinding{Field: "first", Position: pos("S", 0, 1)})
	m.Add(c, FieldBinding{Field: "second", Position: pos("S", 1, 1)})

	if err := m.Reassign(c, 0, "second"); !errors.Is(err, ErrFieldBound) {
		t.Errorf("Reassign to bound field: error = %v, want ErrFieldBound", err)
	}
	if err := m.Reassign(c, 0, "third"); err != nil {
		t.Fatalf("Reassign(0, third): %v", err)
	}
	if _, ok := m.ByField("first"); ok {
		t.Error("first still bound after reassign")
	}
	if i, ok := m.ByField("third"); !ok || i != 0 {
		t.Errorf("ByField(third) = %d, %v; want 0, true", i, ok)
	}

	// The released field is available again.
	if err := m.Reassign(c, 1, "first"); err != nil {
		t.Errorf("Reassign(1, first): %v", err)
	}
	if err := m.Reassign(c, 0, "third"); err != nil {
		t.Errorf("Reassign to own field: %v", err)
	}
	if err := m.Reassign(c, 9, "first"); !errors.Is(err, ErrBindingIndex) {
		t.Errorf("bad index: error = %v, want ErrBindingIndex", err)
	}
	if err := m.Reassign(c, 0, "ghost"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("unknown field: error = %v, want ErrUnknownField", err)
	}
}

func TestMapping_SetRow(t *testing.T) {
	c := threeFieldCatalog()
	m := NewMapping()
	m.Add(c, FieldBinding{Field: "first", Position: pos("S", 0, 1)})
	m.Add(c, FieldBinding{Field: "second", Position: pos("S", 0, 3)})

	if err := m.SetRow(0, -1); !errors.Is(err, ErrInvalidRow) {
		t.Errorf("negative: error = %v, want ErrInvalidRow", err)
	}
	if err := m.SetRow(0, 3); !errors.Is(err, ErrCellBound) {
		t.Errorf("collision: error = %v, want ErrCellBound", err)
	}
	if err := m.SetRow(0, 7); err != nil {
		t.Fatalf("SetRow(0, 7): %v", err)
	}
	if _, ok := m.At(pos("S", 0, 7)); !ok {
		t.Error("At(S!A8) not found after SetRow")
	}
	if _, ok := m.At(pos("S", 0, 1)); ok {
		t.Error("old cell still indexed")
	}

	if err := m.SetAllRows(2); !errors.Is(err, ErrCellBound) {
		t.Errorf("SetAllRows collision: error = %v, want ErrCellBound", err)
	}
	if b, _ := m.Binding(0); b.Position.Row != 7 {
		t.Errorf("row after failed SetAllRows = %d, want 7", b.Position.Row)
	}
}

func TestMapping_SetAllRows(t *testing.T) {
	c := threeFieldCatalog()
	m := NewMapping()
	m.Add(c, FieldBinding{Field: "first", Position: pos("S", 0, 1)})
	m.Add(c, FieldBinding{Field: "second", Position: pos("T", 4, 6)})

	if err := m.SetAllRows(10); err != nil {
		t.Fatalf("SetAllRows: %v", err)
	}
	for _, b := range m.Bindings() {
		if b.Position.Row != 10 {
			t.Errorf("%s row = %d, want 10", b.Field, b.Position.Row)
		}
	}
}

func TestMapping_DerivedViews(t *testing.T) {
	c := threeFieldCatalog()
	m := NewMapping()

	h := pos("B", 0, 0)
	m.Add(c, FieldBinding{Field: "first", Position: pos("B", 0, 1), Header: &h})
	m.Add(c, FieldBinding{Field: "second", Position: pos("A", 0, 1)})
	m.Add(c, FieldBinding{Field: "third", Position: pos("B", 1, 1)})

	if got := m.Sheets(); !reflect.DeepEqual(got, []string{"B", "A"}) {
		t.Errorf("Sheets() = %v, want [B A]", got)
	}
	if got := m.HeaderCells(); !reflect.DeepEqual(got, []CellPosition{h}) {
		t.Errorf("HeaderCells() = %v", got)
	}

	m.Remove(1)
	if got := m.Sheets(); !reflect.DeepEqual(got, []string{"B"}) {
		t.Errorf("Sheets() after remove = %v, want [B]", got)
	}

	m.Clear()
	if m.Len() != 0 || len(m.Sheets()) != 0 || len(m.HeaderCells()) != 0 {
		t.Error("Clear left state behind")
	}
}

func TestMapping_NextUnmapped(t *testing.T) {
	c := threeFieldCatalog()
	m := NewMapping()

	f, ok := m.NextUnmapped(c)
	if !ok || f.Name != "first" {
		t.Fatalf("NextUnmapped() = %s, %v; want first", f.Name, ok)
	}

	m.Add(c, FieldBinding{Field: "second", Position: pos("S", 0, 0)})
	m.Add(c, FieldBinding{Field: "first", Position: pos("S", 1, 0)})
	if f, _ := m.NextUnmapped(c); f.Name != "third" {
		t.Errorf("NextUnmapped() = %s, want third", f.Name)
	}

	m.Add(c, FieldBinding{Field: "third", Position: pos("S", 2, 0)})
	if _, ok := m.NextUnmapped(c); ok {
		t.Error("NextUnmapped() ok on full mapping")
	}
}

func TestMapping_CloneIsIndependent(t *testing.T) {
	c := threeFieldCatalog()
	m := NewMapping()
	h := pos("S", 0, 0)
	m.Add(c, FieldBinding{Field: "first", Position: pos("S", 0, 1), Header: &h})

	clone := m.Clone()
	clone.SetRow(0, 9)
	clone.Bindings()[0].Header.Row = 99

	if b, _ := m.Binding(0); b.Position.Row != 1 || b.Header.Row != 0 {
		t.Errorf("original changed: %+v header %+v", b.Position, *b.Header)
	}
}

func TestMapping_DetailsRoundTrip(t *testing.T) {
	c := threeFieldCatalog()
	m := NewMapping()
	m.Add(c, FieldBinding{Field: "third", Position: pos("S", 2, 4), Label: "Start date"})
	m.Add(c, FieldBinding{Field: "first", Position: pos("S", 0, 4)})

	details := m.Details(c)
	want := []MappingDetail{
		{FieldName: "third", DisplayName: "Start date", ColumnPosition: 2, RowPosition: 4, SheetName: "S", DataType: TypeDate, IsRequired: true},
		{FieldName: "first", DisplayName: "First", ColumnPosition: 0, RowPosition: 4, SheetName: "S", DataType: TypeString, IsRequired: true},
	}
	if !reflect.DeepEqual(details, want) {
		t.Fatalf("Details() = %+v\nwant %+v", details, want)
	}

	rebuilt, err := MappingFromDetails(c, details)
	if err != nil {
		t.Fatalf("MappingFromDetails: %v", err)
	}
	if rebuilt.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", rebuilt.Len())
	}
	if b, _ := rebuilt.Binding(0); b.Field != "third" || b.Position != pos("S", 2, 4) {
		t.Errorf("Binding(0) = %+v", b)
	}
}

func TestMappingFromDetails_RejectsDuplicates(t *testing.T) {
	c := threeFieldCatalog()
	details := []MappingDetail{
		{FieldName: "first", SheetName: "S", ColumnPosition: 0, RowPosition: 1},
		{FieldName: "first", SheetName: "S", ColumnPosition: 1, RowPosition: 1},
	}
	if _, err := MappingFromDetails(c, details); !errors.Is(err, ErrFieldBound) {
		t.Errorf("error = %v, want ErrFieldBound", err)
	}
}
