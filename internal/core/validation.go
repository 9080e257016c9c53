package core

// validation.go holds the checks that run before extraction and before a
// mapping is saved.
//
// Two levels:
//  1. Mapping coverage: at least one binding, and every required catalog
//     field bound (ValidateMapping / ValidateRequired)
//  2. Input shape: struct tags on SavedMapping and MappingDetail checked with
//     go-playground/validator (ValidateInput)
//
// The extraction engine does not repeat these checks.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrNoBindings is returned when a mapping has nothing to extract.
var ErrNoBindings = errors.New("mapping has no bindings")

// MissingFieldsError lists required catalog fields that have no binding.
type MissingFieldsError struct {
	Fields []Field
}

func (e *MissingFieldsError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.DisplayLabel()
	}
	return fmt.Sprintf("required fields not mapped: %s", strings.Join(names, ", "))
}

// ValidateRequired reports every required field of c that m does not bind.
func ValidateRequired(m *Mapping, c *Catalog) error {
	var missing []Field
	for _, f := range c.RequiredFields() {
		if _, ok := m.ByField(f.Name); !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}
	return nil
}

// ValidateMapping checks that m can be handed to Extract.
func ValidateMapping(m *Mapping, c *Catalog) error {
	if m == nil || m.Len() == 0 {
		return ErrNoBindings
	}
	return ValidateRequired(m, c)
}

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string `json:"field"`           // Struct field path, e.g. Details[0].SheetName
	Value   string `json:"value,omitempty"` // The invalid value
	Message string `json:"message"`         // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// InputError collects the problems found by ValidateInput.
type InputError struct {
	Errors []ValidationError
}

func (e *InputError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Error()
	}
	return "invalid input: " + strings.Join(msgs, "; ")
}

var inputValidator = validator.New(validator.WithRequiredStructEnabled())

// ValidateInput checks v against its `validate` struct tags.
func ValidateInput(v any) error {
	err := inputValidator.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &InputError{Errors: make([]ValidationError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Errors = append(out.Errors, ValidationError{
			Field:   trimNamespace(fe.Namespace()),
			Value:   fmt.Sprint(fe.Value()),
			Message: tagMessage(fe),
		})
	}
	return out
}

// trimNamespace drops the leading struct name: SavedMapping.Name -> Name.
func trimNamespace(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be %s or greater", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}
