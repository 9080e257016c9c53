package core

// convert.go turns raw workbook cell values into typed field values.
//
// Raw values arrive as whatever the workbook adapter produced: strings,
// float64 for numeric cells, bool for boolean cells, occasionally time.Time,
// or nil for blanks. Every declared DataType has one coercion rule:
//   - Empty input (nil, "" or whitespace) is never an error and yields nil
//   - Number and Decimal share one numeric parse
//   - Boolean accepts native booleans and the literals 1/0/"true"/"false"
//   - Date tries a spreadsheet serial, then D/M/YYYY, then generic layouts
//   - String stringifies and never fails
//
// Coerce never panics; failures come back as *CoercionError whose message is
// shown to the operator in place of the value.

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// DateOutputLayout is the ISO-8601 instant format of coerced dates.
const DateOutputLayout = "2006-01-02T15:04:05.000Z"

// MaxSerialDate is the serial number of 9999-12-31, the last day a
// spreadsheet can represent.
const MaxSerialDate = 2958465

// dmyRegex matches D/M/YYYY and DD-MM-YYYY style dates.
var dmyRegex = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{4})$`)

// genericDateLayouts are tried in order once the serial and day-first
// forms have been ruled out.
var genericDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	time.RFC1123,
	time.RFC1123Z,
}

var (
	serialBaseEarly = time.Date(1899, time.December, 31, 0, 0, 0, 0, time.UTC)
	serialBaseLate  = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)
)

// CoercionError reports a raw value that could not be converted to the
// declared type of its field.
type CoercionError struct {
	Value   any
	Type    DataType
	Message string
}

func (e *CoercionError) Error() string {
	return e.Message
}

func coercionFailure(raw any, t DataType, what string) *CoercionError {
	return &CoercionError{
		Value:   raw,
		Type:    t,
		Message: `"` + Stringify(raw) + `" is not ` + what,
	}
}

// IsEmpty reports whether a raw cell value counts as absent.
// Whitespace-only strings are empty.
func IsEmpty(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	default:
		return false
	}
}

// Coerce converts raw to the Go representation of t.
//
//	String          -> string
//	Number, Decimal -> float64
//	Boolean         -> bool
//	Date            -> string in DateOutputLayout
//
// Empty input always succeeds with nil.
func Coerce(raw any, t DataType) (val any, err error) {
	defer func() {
		if r := recover(); r != nil {
			val = nil
			err = &CoercionError{Value: raw, Type: t, Message: fmt.Sprint(r)}
		}
	}()

	if IsEmpty(raw) {
		return nil, nil
	}

	switch t {
	case TypeNumber, TypeDecimal:
		f, ok := toNumber(raw)
		if !ok {
			return nil, coercionFailure(raw, t, "a number")
		}
		return f, nil

	case TypeBoolean:
		b, ok := toBoolean(raw)
		if !ok {
			return nil, coercionFailure(raw, t, "a boolean")
		}
		return b, nil

	case TypeDate:
		d, ok := toDate(raw)
		if !ok {
			return nil, coercionFailure(raw, t, "a valid date")
		}
		return d.UTC().Format(DateOutputLayout), nil

	default:
		return Stringify(raw), nil
	}
}

// Stringify renders a raw cell value as text.
// Floats drop trailing zeros, booleans render as true/false.
func Stringify(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.UTC().Format(DateOutputLayout)
	}
	if s, err := cast.ToStringE(raw); err == nil {
		return s
	}
	return fmt.Sprint(raw)
}

func toNumber(raw any) (float64, bool) {
	var (
		f   float64
		err error
	)
	switch v := raw.(type) {
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		f, err = cast.ToFloat64E(strings.TrimSpace(v))
	default:
		f, err = cast.ToFloat64E(raw)
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toBoolean(raw any) (bool, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		switch strings.TrimSpace(v) {
		case "1", "true":
			return true, true
		case "0", "false":
			return false, true
		}
		return false, false
	}

	f, err := cast.ToFloat64E(raw)
	if err != nil {
		return false, false
	}
	switch f {
	case 1:
		return true, true
	case 0:
		return false, true
	}
	return false, false
}

func toDate(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case time.Time:
		return v, true
	case string:
		s := strings.TrimSpace(v)
		if t, ok := parseDayFirst(s); ok {
			return t, true
		}
		return parseGenericDate(s)
	case bool:
		return time.Time{}, false
	}

	f, err := cast.ToFloat64E(raw)
	if err != nil {
		return time.Time{}, false
	}
	return SerialToTime(f)
}

// SerialToTime converts a spreadsheet serial date (1900 date system) to a UTC
// time. The fractional part is the time of day.
//
// Serial 1 is 1900-01-01. Serial 60 is the fictitious 1900-02-29 and has no
// calendar date; serials from 61 on count from 1899-12-30 so that they line
// up with what spreadsheets display.
func SerialToTime(serial float64) (time.Time, bool) {
	if math.IsNaN(serial) || serial <= 0 || serial >= MaxSerialDate+1 {
		return time.Time{}, false
	}

	days := math.Floor(serial)
	if days == 60 {
		return time.Time{}, false
	}

	base := serialBaseLate
	if days < 60 {
		base = serialBaseEarly
	}

	ms := math.Round((serial - days) * 24 * 60 * 60 * 1000)
	return base.AddDate(0, 0, int(days)).Add(time.Duration(ms) * time.Millisecond), true
}

func parseDayFirst(s string) (time.Time, bool) {
	m := dmyRegex.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}

	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes 31/02 into March; reject that.
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

func parseGenericDate(s string) (time.Time, bool) {
	for _, layout := range genericDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
