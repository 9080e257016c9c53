package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "nil error returns empty", err: nil, wantCode: ""},
		{name: "field bound", err: ErrFieldBound, wantCode: "MAP001"},
		{name: "wrapped field bound", err: fmt.Errorf("reassign: %w", ErrFieldBound), wantCode: "MAP001"},
		{name: "catalog full", err: ErrCatalogFull, wantCode: "MAP002"},
		{name: "cell bound", err: fmt.Errorf("%w: S!A1", ErrCellBound), wantCode: "MAP006"},
		{name: "no bindings", err: ErrNoBindings, wantCode: "MAP007"},
		{name: "missing required", err: &MissingFieldsError{Fields: []Field{{Name: "a", Label: "Alpha"}}}, wantCode: "MAP008"},
		{name: "mapping not found", err: ErrMappingNotFound, wantCode: "MAP009"},
		{name: "duplicate mapping", err: ErrDuplicateMapping, wantCode: "MAP010"},
		{name: "input error", err: &InputError{Errors: []ValidationError{{Field: "Name", Message: "is required"}}}, wantCode: "MAP011"},
		{name: "invalid step", err: fmt.Errorf("%w: click in configure", ErrInvalidStep), wantCode: "WIZ001"},
		{name: "invalid workbook", err: ErrInvalidWorkbook, wantCode: "WB001"},
		{name: "zip text", err: errors.New("zip: not a valid zip file"), wantCode: "WB001"},
		{name: "session not found", err: ErrSessionNotFound, wantCode: "SES001"},
		{name: "unknown catalog", err: fmt.Errorf("%w: payroll", ErrUnknownCatalog), wantCode: "CAT001"},
		{name: "busy", err: ErrTooManyLoads, wantCode: "UPL002"},
		{name: "cancelled", err: fmt.Errorf("load: %w", context.Canceled), wantCode: "UPL004"},
		{name: "file too large", err: errors.New("file too large: 80MB"), wantCode: "FILE001"},
		{name: "wrapped file too large", err: fmt.Errorf("%w: 10 bytes", ErrFileTooLarge), wantCode: "FILE001"},
		{name: "case insensitive", err: errors.New("DUPLICATE KEY value"), wantCode: "DB001"},
		{name: "rate limit", err: errors.New("rate limit exceeded"), wantCode: "RATE001"},
		{name: "unknown error returns default", err: errors.New("some random internal error"), wantCode: "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestMapError_MissingFieldsNamesFields(t *testing.T) {
	err := fmt.Errorf("commit: %w", &MissingFieldsError{Fields: []Field{{Name: "a", Label: "Alpha"}, {Name: "b"}}})
	got := MapError(err)
	if !strings.HasSuffix(got.Message, ": Alpha, b") {
		t.Errorf("Message = %q, want field names listed", got.Message)
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrNoBindings)
	want := "No cells have been mapped yet (Code: MAP007). Select at least one cell"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error is not user facing", err: nil, want: false},
		{name: "known error is user facing", err: ErrCatalogFull, want: true},
		{name: "unknown error is not user facing", err: errors.New("random internal error xyz"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	if got := NewUserError(nil); got != nil {
		t.Errorf("NewUserError(nil) = %v, want nil", got)
	}

	techErr := fmt.Errorf("open session: %w", ErrSessionNotFound)
	userErr := NewUserError(techErr)
	if userErr.Error() != "Mapping session not found" {
		t.Errorf("Error() = %q", userErr.Error())
	}
	if !errors.Is(userErr, ErrSessionNotFound) {
		t.Error("Unwrap() should reach the sentinel")
	}
}
