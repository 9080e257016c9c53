package core

// error_messages.go turns technical errors into messages an operator can act on.
//
// # Error Codes Reference
//
// Every message carries a code the operator can quote to support.
//
// # Mapping Errors (MAP001-MAP099)
//
//	MAP001 - Field already mapped           (ErrFieldBound)
//	MAP002 - All fields are already mapped  (ErrCatalogFull)
//	MAP003 - Unknown field                  (ErrUnknownField)
//	MAP004 - Mapping entry not found        (ErrBindingIndex)
//	MAP005 - Invalid row number             (ErrInvalidRow)
//	MAP006 - Cell or column already mapped  (ErrCellBound)
//	MAP007 - Nothing mapped yet             (ErrNoBindings)
//	MAP008 - Required fields not mapped     (*MissingFieldsError)
//	MAP009 - Saved mapping not found        (ErrMappingNotFound)
//	MAP010 - Saved mapping name taken       (ErrDuplicateMapping)
//	MAP011 - Invalid mapping data           (*InputError)
//
// # Wizard Errors (WIZ001-WIZ099)
//
//	WIZ001 - Action not available in this step (ErrInvalidStep)
//
// # Workbook Errors (WB001-WB099)
//
//	WB001 - File is not a readable workbook  (ErrInvalidWorkbook, "not a valid zip")
//	WB002 - Workbook has no visible sheets   (ErrNoSheets)
//	WB003 - Sheet not found                  (ErrSheetNotFound)
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large        (ErrFileTooLarge, "request body too large")
//	FILE004 - No file               ("no file provided")
//	FILE005 - Empty file            ("empty file")
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Session expired or unknown (ErrSessionNotFound)
//	SES002 - Too many open sessions     (ErrTooManySessions)
//
// # Catalog Errors (CAT001-CAT099)
//
//	CAT001 - Unknown catalog (ErrUnknownCatalog)
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key       ("duplicate key")
//	DB004 - Connection refused  ("connection refused")
//	DB006 - Timeout             ("timeout")
//
// # Load Errors (UPL001-UPL099)
//
//	UPL002 - System busy        (ErrTooManyLoads)
//	UPL004 - Request cancelled  (context.Canceled)
//	UPL005 - Request timeout    (context.DeadlineExceeded)
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests ("rate limit")
//
// # Default (ERR000)
//
//	ERR000 - An unexpected error occurred; check the logs for the technical error.
//
// # Matching
//
// Sentinel errors are matched first with errors.Is / errors.As, walking the
// wrap chain. Anything else falls back to case-insensitive substring patterns,
// first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

// sentinelMessage maps one sentinel error to its message.
type sentinelMessage struct {
	target error
	msg    UserMessage
}

var sentinelMessages = []sentinelMessage{
	{ErrFieldBound, UserMessage{"That field is already mapped to another cell", "Reassign or remove the other mapping first", "MAP001"}},
	{ErrCatalogFull, UserMessage{"Every field is already mapped", "Remove a mapping before adding another", "MAP002"}},
	{ErrUnknownField, UserMessage{"The field does not exist in this catalog", "Pick a field from the list", "MAP003"}},
	{ErrBindingIndex, UserMessage{"That mapping entry does not exist", "Refresh the page and try again", "MAP004"}},
	{ErrInvalidRow, UserMessage{"Row numbers must be zero or greater", "Enter a valid start row", "MAP005"}},
	{ErrCellBound, UserMessage{"That cell or column is already mapped", "Choose a different cell", "MAP006"}},
	{ErrNoBindings, UserMessage{"No cells have been mapped yet", "Select at least one cell", "MAP007"}},
	{ErrMappingNotFound, UserMessage{"Saved mapping not found", "It may have been deleted. Pick another mapping", "MAP009"}},
	{ErrDuplicateMapping, UserMessage{"A mapping with this name already exists for this catalog", "Choose a different name", "MAP010"}},
	{ErrInvalidStep, UserMessage{"That action is not available in the current step", "Follow the wizard steps in order", "WIZ001"}},
	{ErrInvalidWorkbook, UserMessage{"The file is not a readable workbook", "Upload an .xlsx file", "WB001"}},
	{ErrNoSheets, UserMessage{"The workbook has no visible sheets", "Unhide a sheet and upload again", "WB002"}},
	{ErrSheetNotFound, UserMessage{"Sheet not found in the workbook", "Check the sheet name", "WB003"}},
	{ErrFileTooLarge, UserMessage{"File exceeds the maximum upload size", "Remove unused sheets or split the workbook", "FILE001"}},
	{ErrSessionNotFound, UserMessage{"Mapping session not found", "The session may have expired. Upload the workbook again", "SES001"}},
	{ErrTooManySessions, UserMessage{"Too many mapping sessions are open", "Close an existing session or try again later", "SES002"}},
	{ErrUnknownCatalog, UserMessage{"Unknown catalog", "Pick a catalog from the list", "CAT001"}},
	{ErrTooManyLoads, UserMessage{"The system is busy processing other workbooks", "Please wait a moment and try again", "UPL002"}},
	{context.Canceled, UserMessage{"Request was cancelled", "Please try again", "UPL004"}},
	{context.DeadlineExceeded, UserMessage{"Request timed out", "Try a smaller file or try again later", "UPL005"}},
}

var (
	missingFieldsMessage = UserMessage{"Required fields are not mapped", "Map every required field before continuing", "MAP008"}
	inputErrorMessage    = UserMessage{"The mapping data is invalid", "Check the highlighted values and try again", "MAP011"}
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns cover errors that arrive from libraries as plain text.
// Patterns are lowercase; more specific patterns come first.
var errorPatterns = []errorPattern{
	{"not a valid zip", UserMessage{"The file is not a readable workbook", "Upload an .xlsx file", "WB001"}},
	{"unsupported workbook file format", UserMessage{"The file is not a readable workbook", "Upload an .xlsx file", "WB001"}},
	{"file too large", UserMessage{"File exceeds the maximum upload size", "Remove unused sheets or split the workbook", "FILE001"}},
	{"request body too large", UserMessage{"File exceeds the maximum upload size", "Remove unused sheets or split the workbook", "FILE001"}},
	{"no file provided", UserMessage{"No file was selected", "Please select a workbook to upload", "FILE004"}},
	{"empty file", UserMessage{"The uploaded file is empty", "Please upload a workbook with data", "FILE005"}},
	{"duplicate key", UserMessage{"A record with this key already exists", "Choose a different name", "DB001"}},
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}},
	{"timeout", UserMessage{"Operation timed out", "Please try again later", "DB006"}},
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	msg := MapError(fmt.Errorf("click: %w", ErrFieldBound))
//	// msg.Code == "MAP001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.target) {
			return sm.msg
		}
	}

	var missing *MissingFieldsError
	if errors.As(err, &missing) {
		msg := missingFieldsMessage
		msg.Message = fmt.Sprintf("%s: %s", msg.Message, strings.TrimPrefix(missing.Error(), "required fields not mapped: "))
		return msg
	}
	var input *InputError
	if errors.As(err, &input) {
		return inputErrorMessage
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
