package core_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/sheetmap/internal/core"
	"github.com/JonMunkholm/sheetmap/internal/store"
)

const peopleKey = "svc_people"

func registerPeople(t *testing.T) *core.Catalog {
	t.Helper()
	if c, ok := core.GetCatalog(peopleKey); ok {
		return c
	}
	core.RegisterCatalog(core.Catalog{
		Key:   peopleKey,
		Group: "Test",
		Label: "People",
		Fields: []core.Field{
			{Name: "name", Label: "Name", Type: core.TypeString, Required: true},
			{Name: "age", Label: "Age", Type: core.TypeNumber},
		},
	})
	c, _ := core.GetCatalog(peopleKey)
	return c
}

func peopleWorkbook() *core.Workbook {
	return core.NewWorkbook(
		&core.Sheet{Name: "Sheet1", Rows: [][]any{
			{"Name", "Age"},
			{"Alice", 30.0},
			{"Bob", "x"},
		}},
		&core.Sheet{Name: "Hidden", Hidden: true, Rows: [][]any{{"secret"}}},
	)
}

func fixedLoader(wb *core.Workbook) core.WorkbookLoader {
	return func(io.Reader) (*core.Workbook, error) { return wb, nil }
}

func newTestService(t *testing.T, cfg core.ServiceConfig) *core.Service {
	t.Helper()
	registerPeople(t)
	return core.NewService(store.NewMemoryStore(), fixedLoader(peopleWorkbook()), cfg)
}

func cell(col, row int) core.CellPosition {
	return core.CellPosition{Sheet: "Sheet1", Column: col, Row: row}
}

// configuredSession runs a header-mode session up to configure.
func configuredSession(t *testing.T, svc *core.Service) string {
	t.Helper()
	info, err := svc.StartSession(context.Background(), peopleKey, "people.xlsx", strings.NewReader(""))
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	if _, err := svc.ChooseMode(info.ID, true); err != nil {
		t.Fatalf("ChooseMode() error = %v", err)
	}
	for _, pos := range []core.CellPosition{cell(0, 0), cell(1, 0)} {
		res, err := svc.ClickCell(info.ID, pos)
		if err != nil {
			t.Fatalf("ClickCell(%s) error = %v", pos, err)
		}
		if res.Outcome != core.ClickAdded {
			t.Fatalf("ClickCell(%s) = %s, want added", pos, res.Outcome)
		}
	}
	if _, err := svc.ConfirmSelection(info.ID); err != nil {
		t.Fatalf("ConfirmSelection() error = %v", err)
	}
	got, err := svc.SetRowStart(info.ID, nil)
	if err != nil {
		t.Fatalf("SetRowStart() error = %v", err)
	}
	if got.Wizard.Step != core.StepConfigure {
		t.Fatalf("step = %s, want configure", got.Wizard.Step)
	}
	return info.ID
}

func TestService_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, core.ServiceConfig{})

	id := configuredSession(t, svc)

	info, err := svc.Session(id)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(info.Wizard.Sheets, ","); got != "Sheet1" {
		t.Errorf("Sheets = %s, hidden sheet should be dropped", got)
	}
	if len(info.Wizard.Bindings) != 2 || info.Wizard.Bindings[1].Label != "Age" {
		t.Errorf("Bindings = %+v", info.Wizard.Bindings)
	}

	preview, err := svc.Preview(id)
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if preview.Summary.TotalRows != 2 || preview.Summary.ErrorRows != 1 || preview.Summary.ErrorCells != 1 {
		t.Errorf("Summary = %+v", preview.Summary)
	}

	committed, err := svc.CommitSession(ctx, id, core.CommitOptions{Name: "  People v1 "})
	if err != nil {
		t.Fatalf("CommitSession() error = %v", err)
	}
	if committed.Wizard.Step != core.StepReady {
		t.Errorf("step = %s, want %s", committed.Wizard.Step, core.StepReady)
	}
	if committed.Saved == nil || committed.Saved.Name != "People v1" || committed.Saved.TemplateFileName != "people.xlsx" {
		t.Fatalf("Saved = %+v", committed.Saved)
	}

	result, c, err := svc.ExportSession(id)
	if err != nil {
		t.Fatalf("ExportSession() error = %v", err)
	}
	if c.Key != peopleKey || len(result.Records) != 2 {
		t.Errorf("ExportSession() = %d records for %s", len(result.Records), c.Key)
	}

	if err := svc.CloseSession(id); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Session(id); !errors.Is(err, core.ErrSessionNotFound) {
		t.Errorf("Session() after close error = %v", err)
	}
}

func TestService_CommitDuplicateKeepsConfigure(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, core.ServiceConfig{})

	first := configuredSession(t, svc)
	if _, err := svc.CommitSession(ctx, first, core.CommitOptions{Name: "Layout"}); err != nil {
		t.Fatal(err)
	}

	second := configuredSession(t, svc)
	_, err := svc.CommitSession(ctx, second, core.CommitOptions{Name: "Layout"})
	if !errors.Is(err, core.ErrDuplicateMapping) {
		t.Fatalf("CommitSession() error = %v, want ErrDuplicateMapping", err)
	}
	info, _ := svc.Session(second)
	if info.Wizard.Step != core.StepConfigure {
		t.Errorf("step = %s, want configure after failed commit", info.Wizard.Step)
	}

	// The same name is free in another department.
	dept := core.DepartmentA
	info, err = svc.CommitSession(ctx, second, core.CommitOptions{Name: "Layout", Department: &dept})
	if err != nil {
		t.Fatalf("CommitSession(department A) error = %v", err)
	}
	if info.Saved.Department != core.DepartmentA {
		t.Errorf("Department = %d, want %d", info.Saved.Department, core.DepartmentA)
	}
}

func TestService_EditSession(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, core.ServiceConfig{})

	saved, err := svc.SaveMapping(ctx, core.SavedMapping{
		Name:             "Payroll",
		CatalogKey:       peopleKey,
		Department:       core.DepartmentB,
		TemplateFileName: "march.xlsx",
		HeaderMode:       true,
		Details: []core.MappingDetail{
			{FieldName: "name", DisplayName: "Name", SheetName: "Sheet1", ColumnPosition: 0, RowPosition: 1},
			{FieldName: "age", DisplayName: "Age", SheetName: "Sheet1", ColumnPosition: 1, RowPosition: 1},
		},
	})
	if err != nil {
		t.Fatalf("SaveMapping() error = %v", err)
	}

	info, err := svc.EditSession(ctx, saved.ID, "april.xlsx", strings.NewReader(""))
	if err != nil {
		t.Fatalf("EditSession() error = %v", err)
	}
	if info.Wizard.Step != core.StepConfigure {
		t.Fatalf("step = %s, want configure", info.Wizard.Step)
	}
	if info.EditingID != saved.ID {
		t.Errorf("EditingID = %q, want %q", info.EditingID, saved.ID)
	}
	if info.Wizard.HeaderMode == nil || !*info.Wizard.HeaderMode {
		t.Errorf("HeaderMode = %v, want true", info.Wizard.HeaderMode)
	}
	if len(info.Wizard.Bindings) != 2 || info.Wizard.Bindings[1].Label != "Age" {
		t.Fatalf("Bindings = %+v", info.Wizard.Bindings)
	}

	// Move age down a row, then commit without a name.
	row := 2
	if _, err := svc.UpdateBinding(info.ID, 1, nil, &row); err != nil {
		t.Fatalf("UpdateBinding() error = %v", err)
	}
	committed, err := svc.CommitSession(ctx, info.ID, core.CommitOptions{})
	if err != nil {
		t.Fatalf("CommitSession() error = %v", err)
	}
	if committed.Wizard.Step != core.StepReady {
		t.Errorf("step = %s, want %s", committed.Wizard.Step, core.StepReady)
	}

	got, err := svc.GetMapping(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetMapping() error = %v", err)
	}
	if got.Name != "Payroll" || got.Department != core.DepartmentB || got.TemplateFileName != "march.xlsx" {
		t.Errorf("GetMapping() = %+v, stored attributes should be kept", got)
	}
	if got.Details[1].RowPosition != 2 {
		t.Errorf("age row = %d, want 2", got.Details[1].RowPosition)
	}
	if !got.CreatedAt.Equal(saved.CreatedAt) {
		t.Errorf("CreatedAt changed from %v to %v", saved.CreatedAt, got.CreatedAt)
	}

	list, _ := svc.ListMappings(ctx, core.MappingFilter{CatalogKey: peopleKey})
	if len(list) != 1 {
		t.Errorf("ListMappings() len = %d, edit must not create a mapping", len(list))
	}

	t.Run("rename and move department", func(t *testing.T) {
		info, err := svc.EditSession(ctx, saved.ID, "may.xlsx", strings.NewReader(""))
		if err != nil {
			t.Fatal(err)
		}
		dept := core.DepartmentAll
		committed, err := svc.CommitSession(ctx, info.ID, core.CommitOptions{Name: "Payroll v2", Department: &dept})
		if err != nil {
			t.Fatalf("CommitSession() error = %v", err)
		}
		if committed.Saved.ID != saved.ID || committed.Saved.Name != "Payroll v2" || committed.Saved.Department != core.DepartmentAll {
			t.Errorf("Saved = %+v", committed.Saved)
		}
	})

	t.Run("missing mapping", func(t *testing.T) {
		_, err := svc.EditSession(ctx, "missing", "x.xlsx", strings.NewReader(""))
		if !errors.Is(err, core.ErrMappingNotFound) {
			t.Errorf("EditSession() error = %v, want ErrMappingNotFound", err)
		}
	})
}

func TestService_InvalidStep(t *testing.T) {
	svc := newTestService(t, core.ServiceConfig{})
	info, err := svc.StartSession(context.Background(), peopleKey, "f.xlsx", strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.ClickCell(info.ID, cell(0, 0)); !errors.Is(err, core.ErrInvalidStep) {
		t.Errorf("ClickCell() in select_mode error = %v", err)
	}
	if _, err := svc.Preview(info.ID); !errors.Is(err, core.ErrInvalidStep) {
		t.Errorf("Preview() in select_mode error = %v", err)
	}
	if _, _, err := svc.ExportSession(info.ID); !errors.Is(err, core.ErrInvalidStep) {
		t.Errorf("ExportSession() in select_mode error = %v", err)
	}
}

func TestService_UpdateBinding(t *testing.T) {
	svc := newTestService(t, core.ServiceConfig{})
	id := configuredSession(t, svc)

	row := 2
	info, err := svc.UpdateBinding(id, 1, nil, &row)
	if err != nil {
		t.Fatalf("UpdateBinding() error = %v", err)
	}
	if info.Wizard.Bindings[1].Row != 2 {
		t.Errorf("Row = %d, want 2", info.Wizard.Bindings[1].Row)
	}

	field := "name"
	if _, err := svc.UpdateBinding(id, 1, &field, nil); !errors.Is(err, core.ErrFieldBound) {
		t.Errorf("UpdateBinding() to bound field error = %v", err)
	}
}

func TestService_SessionSheet(t *testing.T) {
	svc := newTestService(t, core.ServiceConfig{})
	info, err := svc.StartSession(context.Background(), peopleKey, "f.xlsx", strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}

	page, err := svc.SessionSheet(info.ID, "Sheet1", 1, 10)
	if err != nil {
		t.Fatalf("SessionSheet() error = %v", err)
	}
	if page.TotalRows != 3 || page.TotalColumns != 2 || len(page.Rows) != 2 {
		t.Errorf("page = %+v", page)
	}
	if strings.Join(page.Columns, "") != "AB" {
		t.Errorf("Columns = %v", page.Columns)
	}

	if _, err := svc.SessionSheet(info.ID, "Hidden", 0, 10); !errors.Is(err, core.ErrSheetNotFound) {
		t.Errorf("SessionSheet(Hidden) error = %v", err)
	}
}

func TestService_StartSessionErrors(t *testing.T) {
	registerPeople(t)
	ctx := context.Background()

	t.Run("unknown catalog", func(t *testing.T) {
		svc := newTestService(t, core.ServiceConfig{})
		_, err := svc.StartSession(ctx, "nope", "f.xlsx", strings.NewReader(""))
		if !errors.Is(err, core.ErrUnknownCatalog) {
			t.Errorf("error = %v, want ErrUnknownCatalog", err)
		}
	})

	t.Run("loader failure", func(t *testing.T) {
		load := func(io.Reader) (*core.Workbook, error) { return nil, core.ErrInvalidWorkbook }
		svc := core.NewService(store.NewMemoryStore(), load, core.ServiceConfig{})
		_, err := svc.StartSession(ctx, peopleKey, "f.xlsx", strings.NewReader(""))
		if !errors.Is(err, core.ErrInvalidWorkbook) {
			t.Errorf("error = %v, want ErrInvalidWorkbook", err)
		}
	})

	t.Run("only hidden sheets", func(t *testing.T) {
		wb := core.NewWorkbook(&core.Sheet{Name: "H", Hidden: true})
		svc := core.NewService(store.NewMemoryStore(), fixedLoader(wb), core.ServiceConfig{})
		_, err := svc.StartSession(ctx, peopleKey, "f.xlsx", strings.NewReader(""))
		if !errors.Is(err, core.ErrNoSheets) {
			t.Errorf("error = %v, want ErrNoSheets", err)
		}
	})

	t.Run("session limit", func(t *testing.T) {
		svc := newTestService(t, core.ServiceConfig{MaxSessions: 1})
		if _, err := svc.StartSession(ctx, peopleKey, "a.xlsx", strings.NewReader("")); err != nil {
			t.Fatal(err)
		}
		_, err := svc.StartSession(ctx, peopleKey, "b.xlsx", strings.NewReader(""))
		if !errors.Is(err, core.ErrTooManySessions) {
			t.Errorf("error = %v, want ErrTooManySessions", err)
		}
	})
}

func TestService_ExpireSessions(t *testing.T) {
	svc := newTestService(t, core.ServiceConfig{SessionTTL: time.Millisecond})
	if _, err := svc.StartSession(context.Background(), peopleKey, "f.xlsx", strings.NewReader("")); err != nil {
		t.Fatal(err)
	}

	time.Sleep(5 * time.Millisecond)
	if n := svc.ExpireSessions(); n != 1 {
		t.Errorf("ExpireSessions() = %d, want 1", n)
	}
	if svc.SessionCount() != 0 {
		t.Errorf("SessionCount() = %d, want 0", svc.SessionCount())
	}
}

func TestService_StartSessionReaperStops(t *testing.T) {
	svc := newTestService(t, core.ServiceConfig{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		svc.StartSessionReaper(ctx, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop after cancel")
	}
}

func TestService_SavedMappings(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, core.ServiceConfig{})
	wb := peopleWorkbook()

	details := []core.MappingDetail{
		{FieldName: "name", DisplayName: "Name", SheetName: "Sheet1", ColumnPosition: 0, RowPosition: 1},
		{FieldName: "age", DisplayName: "Age", SheetName: "Sheet1", ColumnPosition: 1, RowPosition: 1},
	}
	saved, err := svc.SaveMapping(ctx, core.SavedMapping{
		Name:       "Direct",
		CatalogKey: peopleKey,
		HeaderMode: true,
		Details:    details,
	})
	if err != nil {
		t.Fatalf("SaveMapping() error = %v", err)
	}
	if saved.Details[1].DataType != core.TypeNumber {
		t.Errorf("DataType = %s, want catalog type", saved.Details[1].DataType)
	}

	t.Run("validation", func(t *testing.T) {
		_, err := svc.SaveMapping(ctx, core.SavedMapping{Name: "", CatalogKey: peopleKey, Details: details})
		var inputErr *core.InputError
		if !errors.As(err, &inputErr) {
			t.Errorf("error = %v, want *InputError", err)
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		bad := []core.MappingDetail{{FieldName: "salary", SheetName: "Sheet1"}}
		_, err := svc.SaveMapping(ctx, core.SavedMapping{Name: "Bad", CatalogKey: peopleKey, Details: bad})
		if !errors.Is(err, core.ErrUnknownField) {
			t.Errorf("error = %v, want ErrUnknownField", err)
		}
	})

	t.Run("match", func(t *testing.T) {
		matches, err := svc.MatchMappings(ctx, peopleKey, core.DepartmentAll, wb)
		if err != nil {
			t.Fatal(err)
		}
		if len(matches) != 1 || matches[0].MatchScore != 1 {
			t.Errorf("MatchMappings() = %+v", matches)
		}

		other := core.NewWorkbook(&core.Sheet{Name: "Sheet1", Rows: [][]any{{"Vendor", "Total"}, {"x", 1.0}}})
		matches, _ = svc.MatchMappings(ctx, peopleKey, core.DepartmentAll, other)
		if len(matches) != 0 {
			t.Errorf("MatchMappings(other) = %+v, want none", matches)
		}
	})

	t.Run("match by department", func(t *testing.T) {
		scoped, err := svc.SaveMapping(ctx, core.SavedMapping{
			Name:       "Direct",
			CatalogKey: peopleKey,
			Department: core.DepartmentA,
			HeaderMode: true,
			Details:    details,
		})
		if err != nil {
			t.Fatalf("SaveMapping(department A) error = %v", err)
		}
		defer svc.DeleteMapping(ctx, scoped.ID)

		tests := []struct {
			department int
			want       int
		}{
			{department: core.DepartmentAll, want: 2},
			{department: core.DepartmentA, want: 2},
			{department: core.DepartmentB, want: 1},
		}
		for _, tt := range tests {
			matches, err := svc.MatchMappings(ctx, peopleKey, tt.department, wb)
			if err != nil {
				t.Fatal(err)
			}
			if len(matches) != tt.want {
				t.Errorf("MatchMappings(department %d) len = %d, want %d", tt.department, len(matches), tt.want)
			}
		}
	})

	t.Run("department out of range", func(t *testing.T) {
		_, err := svc.SaveMapping(ctx, core.SavedMapping{Name: "Bad", CatalogKey: peopleKey, Department: 7, Details: details})
		var inputErr *core.InputError
		if !errors.As(err, &inputErr) {
			t.Errorf("error = %v, want *InputError", err)
		}
	})

	t.Run("extract", func(t *testing.T) {
		result, m, err := svc.ExtractWithMapping(ctx, saved.ID, wb)
		if err != nil {
			t.Fatalf("ExtractWithMapping() error = %v", err)
		}
		if m.ID != saved.ID || len(result.Records) != 2 || len(result.Errors) != 1 {
			t.Errorf("result = %+v", result)
		}
	})

	t.Run("update and delete", func(t *testing.T) {
		updated, err := svc.UpdateMapping(ctx, saved.ID, core.SavedMapping{
			Name:       "Renamed",
			CatalogKey: "ignored",
			Details:    details[:1],
		})
		if err != nil {
			t.Fatalf("UpdateMapping() error = %v", err)
		}
		if updated.Name != "Renamed" || updated.CatalogKey != peopleKey || len(updated.Details) != 1 {
			t.Errorf("UpdateMapping() = %+v", updated)
		}

		list, _ := svc.ListMappings(ctx, core.MappingFilter{CatalogKey: peopleKey})
		if len(list) != 1 {
			t.Errorf("ListMappings() len = %d, want 1", len(list))
		}

		if err := svc.DeleteMapping(ctx, saved.ID); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.GetMapping(ctx, saved.ID); !errors.Is(err, core.ErrMappingNotFound) {
			t.Errorf("GetMapping() after delete error = %v", err)
		}
	})
}

func TestService_ExtractRequiresRequiredFields(t *testing.T) {
	registerPeople(t)
	c, _ := core.GetCatalog(peopleKey)
	details := []core.MappingDetail{{FieldName: "age", SheetName: "Sheet1", ColumnPosition: 1, RowPosition: 1}}

	_, err := core.ExtractDetails(peopleWorkbook(), c, details)
	var missing *core.MissingFieldsError
	if !errors.As(err, &missing) {
		t.Fatalf("ExtractDetails() error = %v, want *MissingFieldsError", err)
	}
	if len(missing.Fields) != 1 || missing.Fields[0].Name != "name" {
		t.Errorf("Fields = %+v", missing.Fields)
	}
}

func TestService_Catalogs(t *testing.T) {
	svc := newTestService(t, core.ServiceConfig{})

	if _, err := svc.Catalog(peopleKey); err != nil {
		t.Errorf("Catalog() error = %v", err)
	}
	groups := svc.ListCatalogsByGroup()
	found := false
	for _, c := range groups["Test"] {
		if c.Key == peopleKey {
			found = true
		}
	}
	if !found {
		t.Errorf("ListCatalogsByGroup()[Test] missing %s", peopleKey)
	}

	status := svc.LimiterStatus()
	if status.Active != 0 || status.MaxConcurrent != core.DefaultMaxConcurrentLoads {
		t.Errorf("LimiterStatus() = %+v", status)
	}
	if err := svc.WaitForLoads(context.Background()); err != nil {
		t.Errorf("WaitForLoads() error = %v", err)
	}
}
