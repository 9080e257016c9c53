package core

import (
	"errors"
	"math"
	"testing"
	"time"
)

// ----------------------------------------------------------------------------
// Empty input
// ----------------------------------------------------------------------------

func TestCoerce_EmptyIsNil(t *testing.T) {
	types := []DataType{TypeString, TypeNumber, TypeDate, TypeBoolean, TypeDecimal}
	inputs := []any{nil, "", "   ", "\t\n"}

	for _, typ := range types {
		for _, in := range inputs {
			got, err := Coerce(in, typ)
			if err != nil {
				t.Errorf("Coerce(%q, %s) error = %v, want nil", in, typ, err)
			}
			if got != nil {
				t.Errorf("Coerce(%q, %s) = %v, want nil", in, typ, got)
			}
		}
	}
}

// ----------------------------------------------------------------------------
// Number / Decimal
// ----------------------------------------------------------------------------

func TestCoerce_Number(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    float64
		wantErr string
	}{
		{name: "numeric string", input: "42", want: 42},
		{name: "padded string", input: "  42.5 ", want: 42.5},
		{name: "negative string", input: "-3.25", want: -3.25},
		{name: "exponent", input: "1e3", want: 1000},
		{name: "float", input: 30.0, want: 30},
		{name: "int", input: 7, want: 7},
		{name: "int64", input: int64(9), want: 9},
		{name: "bool true", input: true, want: 1},
		{name: "bool false", input: false, want: 0},
		{name: "letters", input: "abc", wantErr: `"abc" is not a number`},
		{name: "mixed", input: "12abc", wantErr: `"12abc" is not a number`},
		{name: "nan string", input: "NaN", wantErr: `"NaN" is not a number`},
		{name: "nan float", input: math.NaN(), wantErr: `"NaN" is not a number`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, typ := range []DataType{TypeNumber, TypeDecimal} {
				got, err := Coerce(tt.input, typ)
				if tt.wantErr != "" {
					if err == nil {
						t.Fatalf("Coerce(%v, %s) = %v, want error", tt.input, typ, got)
					}
					if err.Error() != tt.wantErr {
						t.Errorf("error = %q, want %q", err.Error(), tt.wantErr)
					}
					continue
				}
				if err != nil {
					t.Fatalf("Coerce(%v, %s) unexpected error: %v", tt.input, typ, err)
				}
				if got != tt.want {
					t.Errorf("Coerce(%v, %s) = %v, want %v", tt.input, typ, got, tt.want)
				}
			}
		})
	}
}

func TestCoerce_ErrorType(t *testing.T) {
	_, err := Coerce("x", TypeNumber)

	var ce *CoercionError
	if !errors.As(err, &ce) {
		t.Fatalf("error type = %T, want *CoercionError", err)
	}
	if ce.Type != TypeNumber {
		t.Errorf("Type = %s, want number", ce.Type)
	}
	if ce.Value != "x" {
		t.Errorf("Value = %v, want x", ce.Value)
	}
}

// ----------------------------------------------------------------------------
// Boolean
// ----------------------------------------------------------------------------

func TestCoerce_Boolean(t *testing.T) {
	tests := []struct {
		input   any
		want    bool
		wantErr bool
	}{
		{input: true, want: true},
		{input: false, want: false},
		{input: 1.0, want: true},
		{input: 0.0, want: false},
		{input: 1, want: true},
		{input: "1", want: true},
		{input: "true", want: true},
		{input: "0", want: false},
		{input: "false", want: false},
		{input: " true ", want: true},
		{input: "yes", wantErr: true},
		{input: "TRUE", wantErr: true},
		{input: 2.0, wantErr: true},
	}

	for _, tt := range tests {
		got, err := Coerce(tt.input, TypeBoolean)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Coerce(%v, boolean) = %v, want error", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Coerce(%v, boolean) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Coerce(%v, boolean) = %v, want %v", tt.input, got, tt.want)
		}
	}

	_, err := Coerce("maybe", TypeBoolean)
	if err == nil || err.Error() != `"maybe" is not a boolean` {
		t.Errorf("error = %v, want %q", err, `"maybe" is not a boolean`)
	}
}

// ----------------------------------------------------------------------------
// Date
// ----------------------------------------------------------------------------

func TestCoerce_Date(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    string
		wantErr bool
	}{
		{name: "serial early", input: 45.0, want: "1900-02-14T00:00:00.000Z"},
		{name: "serial one", input: 1.0, want: "1900-01-01T00:00:00.000Z"},
		{name: "serial fifty nine", input: 59.0, want: "1900-02-28T00:00:00.000Z"},
		{name: "serial after phantom leap day", input: 61.0, want: "1900-03-01T00:00:00.000Z"},
		{name: "serial modern", input: 45291.0, want: "2023-12-31T00:00:00.000Z"},
		{name: "serial int", input: 45291, want: "2023-12-31T00:00:00.000Z"},
		{name: "serial with time", input: 45291.5, want: "2023-12-31T12:00:00.000Z"},
		{name: "day first slash", input: "31/12/2023", want: "2023-12-31T00:00:00.000Z"},
		{name: "day first dash", input: "1-2-2024", want: "2024-02-01T00:00:00.000Z"},
		{name: "day first short", input: "14/02/1900", want: "1900-02-14T00:00:00.000Z"},
		{name: "iso date", input: "2023-12-31", want: "2023-12-31T00:00:00.000Z"},
		{name: "iso instant", input: "2023-12-31T08:30:00Z", want: "2023-12-31T08:30:00.000Z"},
		{name: "iso offset", input: "2023-12-31T08:30:00+02:00", want: "2023-12-31T06:30:00.000Z"},
		{name: "month name", input: "Dec 31, 2023", want: "2023-12-31T00:00:00.000Z"},
		{name: "month first fallback", input: "12/31/2023", want: "2023-12-31T00:00:00.000Z"},
		{name: "time value", input: time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC), want: "2024-05-06T07:08:09.000Z"},
		{name: "phantom leap day", input: 60.0, wantErr: true},
		{name: "zero serial", input: 0.0, wantErr: true},
		{name: "negative serial", input: -5.0, wantErr: true},
		{name: "beyond 9999", input: float64(MaxSerialDate + 1), wantErr: true},
		{name: "impossible day", input: "31/02/2023", wantErr: true},
		{name: "garbage", input: "not a date", wantErr: true},
		{name: "boolean", input: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.input, TypeDate)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Coerce(%v, date) = %v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Coerce(%v, date) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Coerce(%v, date) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCoerce_SerialMatchesDayFirst(t *testing.T) {
	serial, err := Coerce(45.0, TypeDate)
	if err != nil {
		t.Fatalf("serial: %v", err)
	}
	text, err := Coerce("14/02/1900", TypeDate)
	if err != nil {
		t.Fatalf("text: %v", err)
	}
	if serial != text {
		t.Errorf("serial 45 = %v, 14/02/1900 = %v", serial, text)
	}
}

func TestCoerce_DateMessage(t *testing.T) {
	_, err := Coerce("soon", TypeDate)
	if err == nil || err.Error() != `"soon" is not a valid date` {
		t.Errorf("error = %v, want %q", err, `"soon" is not a valid date`)
	}
}

// ----------------------------------------------------------------------------
// String
// ----------------------------------------------------------------------------

func TestCoerce_String(t *testing.T) {
	tests := []struct {
		input any
		want  string
	}{
		{input: "Alice", want: "Alice"},
		{input: " padded ", want: " padded "},
		{input: 30.0, want: "30"},
		{input: 12.5, want: "12.5"},
		{input: 42, want: "42"},
		{input: true, want: "true"},
	}

	for _, tt := range tests {
		got, err := Coerce(tt.input, TypeString)
		if err != nil {
			t.Errorf("Coerce(%v, string) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Coerce(%v, string) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCoerce_UnknownTypeFallsBackToString(t *testing.T) {
	got, err := Coerce(5.0, DataType(99))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "5" {
		t.Errorf("got %v, want 5", got)
	}
}

func TestSerialToTime(t *testing.T) {
	got, ok := SerialToTime(1.25)
	if !ok {
		t.Fatal("SerialToTime(1.25) not ok")
	}
	want := time.Date(1900, 1, 1, 6, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("SerialToTime(1.25) = %v, want %v", got, want)
	}

	if _, ok := SerialToTime(math.NaN()); ok {
		t.Error("SerialToTime(NaN) should fail")
	}
}

func TestIsEmpty(t *testing.T) {
	tests := []struct {
		input any
		want  bool
	}{
		{nil, true},
		{"", true},
		{"  ", true},
		{"x", false},
		{0.0, false},
		{false, false},
	}
	for _, tt := range tests {
		if got := IsEmpty(tt.input); got != tt.want {
			t.Errorf("IsEmpty(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
