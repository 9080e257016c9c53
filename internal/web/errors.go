package web

// errors.go turns service errors into JSON responses.
//
// Every error is logged with its technical detail and the request id, then
// mapped through core.MapError so the client receives a message, a suggested
// action and a stable code. The HTTP status comes from statusFor.

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JonMunkholm/sheetmap/internal/core"
	"github.com/JonMunkholm/sheetmap/internal/logging"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Action  string                 `json:"action,omitempty"`
	Code    string                 `json:"code"`
	Details []core.ValidationError `json:"details,omitempty"`
}

var errNoFile = errors.New("no file provided")

// respondError logs err and writes the mapped user message with the status
// chosen by statusFor.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	log := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if status >= http.StatusInternalServerError {
		log.Error("request error", attrs...)
	} else {
		log.Warn("request rejected", attrs...)
	}

	resp := ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}
	var input *core.InputError
	if errors.As(err, &input) {
		resp.Details = input.Errors
	}

	writeJSONStatus(w, status, resp)
}

// statusFor picks the HTTP status for a service error.
func statusFor(err error) int {
	var (
		missing *core.MissingFieldsError
		input   *core.InputError
		tooBig  *http.MaxBytesError
	)

	switch {
	case errors.As(err, &tooBig), errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &missing), errors.As(err, &input):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrSessionNotFound),
		errors.Is(err, core.ErrMappingNotFound),
		errors.Is(err, core.ErrUnknownCatalog),
		errors.Is(err, core.ErrSheetNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrDuplicateMapping),
		errors.Is(err, core.ErrInvalidStep):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyLoads),
		errors.Is(err, core.ErrTooManySessions):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, core.ErrInvalidWorkbook),
		errors.Is(err, core.ErrNoSheets),
		errors.Is(err, core.ErrFieldBound),
		errors.Is(err, core.ErrCatalogFull),
		errors.Is(err, core.ErrUnknownField),
		errors.Is(err, core.ErrBindingIndex),
		errors.Is(err, core.ErrInvalidRow),
		errors.Is(err, core.ErrCellBound),
		errors.Is(err, core.ErrNoBindings),
		errors.Is(err, errNoFile):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// invalidInput builds a single-field input error.
func invalidInput(field, message string) error {
	return &core.InputError{Errors: []core.ValidationError{{Field: field, Message: message}}}
}

// writeJSON encodes v with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus encodes v with the given status. Encoding errors are only
// logged since the header is already sent.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(context.Background()).Error("json encode error", "error", err)
	}
}

// decodeJSON reads a JSON body into v and runs struct validation.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return err
		}
		return invalidInput("body", "must be valid JSON: "+err.Error())
	}
	return core.ValidateInput(v)
}
