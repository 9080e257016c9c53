package web

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/JonMunkholm/sheetmap/internal/core"
	"github.com/go-chi/chi/v5"
)

// Default and maximum rows per sheet page.
const (
	defaultPageRows = 100
	maxPageRows     = 1000
)

// ModeRequest answers the header question.
type ModeRequest struct {
	HasHeader *bool `json:"hasHeader" validate:"required"`
}

// ClickRequest is a click on one sheet cell.
type ClickRequest struct {
	Sheet  string `json:"sheet" validate:"required"`
	Row    *int   `json:"row" validate:"required,gte=0"`
	Column *int   `json:"column" validate:"required,gte=0"`
}

// RowStartRequest sets the first data row for all bindings. A null row
// keeps each binding's own row.
type RowStartRequest struct {
	Row *int `json:"row" validate:"omitempty,gte=0"`
}

// BindingRequest changes the field and/or start row of one binding.
type BindingRequest struct {
	Field *string `json:"field" validate:"omitempty,min=1"`
	Row   *int    `json:"row" validate:"omitempty,gte=0"`
}

// CommitRequest saves the session mapping. Sessions editing a saved mapping
// may leave every field empty to keep the stored values.
type CommitRequest struct {
	Name             string `json:"name" validate:"max=200"`
	TemplateFileName string `json:"templateFileName" validate:"max=255"`
	Department       *int   `json:"departmentId" validate:"omitempty,oneof=0 1 2"`
}

// handleStartSession accepts a multipart upload with "file" and either
// "catalog" for a new mapping or "mapping", the ID of a saved mapping to edit.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	file, header, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer file.Close()

	var info *core.SessionInfo
	if mappingID := r.FormValue("mapping"); mappingID != "" {
		info, err = s.service.EditSession(r.Context(), mappingID, header.Filename, file)
	} else {
		catalog := r.FormValue("catalog")
		if catalog == "" {
			s.respondError(w, r, invalidInput("catalog", "is required"))
			return
		}
		info, err = s.service.StartSession(r.Context(), catalog, header.Filename, file)
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, info)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.Session(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, info)
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.service.CloseSession(chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSessionSheet returns a page of raw cells: ?offset=&limit=.
func (s *Server) handleSessionSheet(w http.ResponseWriter, r *http.Request) {
	sheet, err := url.PathUnescape(chi.URLParam(r, "sheet"))
	if err != nil {
		s.respondError(w, r, invalidInput("sheet", "is not a valid sheet name"))
		return
	}

	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		s.respondError(w, r, invalidInput("offset", "must be a non-negative integer"))
		return
	}
	limit, err := queryInt(r, "limit", defaultPageRows)
	if err != nil || limit <= 0 {
		s.respondError(w, r, invalidInput("limit", "must be a positive integer"))
		return
	}
	if limit > maxPageRows {
		limit = maxPageRows
	}

	page, err := s.service.SessionSheet(chi.URLParam(r, "id"), sheet, offset, limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, page)
}

func (s *Server) handleChooseMode(w http.ResponseWriter, r *http.Request) {
	var req ModeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondSession(w, r)(s.service.ChooseMode(chi.URLParam(r, "id"), *req.HasHeader))
}

func (s *Server) handleClickCell(w http.ResponseWriter, r *http.Request) {
	var req ClickRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := s.service.ClickCell(chi.URLParam(r, "id"), core.CellPosition{
		Sheet:  req.Sheet,
		Row:    *req.Row,
		Column: *req.Column,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (s *Server) handleConfirmSelection(w http.ResponseWriter, r *http.Request) {
	s.respondSession(w, r)(s.service.ConfirmSelection(chi.URLParam(r, "id")))
}

func (s *Server) handleSetRowStart(w http.ResponseWriter, r *http.Request) {
	var req RowStartRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondSession(w, r)(s.service.SetRowStart(chi.URLParam(r, "id"), req.Row))
}

func (s *Server) handleUpdateBinding(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		s.respondError(w, r, invalidInput("index", "must be a non-negative integer"))
		return
	}

	var req BindingRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if req.Field == nil && req.Row == nil {
		s.respondError(w, r, invalidInput("body", "field or row is required"))
		return
	}
	s.respondSession(w, r)(s.service.UpdateBinding(chi.URLParam(r, "id"), index, req.Field, req.Row))
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	resp, err := s.service.Preview(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, resp)
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	s.respondSession(w, r)(s.service.ResetSession(chi.URLParam(r, "id")))
}

func (s *Server) handleCommitSession(w http.ResponseWriter, r *http.Request) {
	var req CommitRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondSession(w, r)(s.service.CommitSession(r.Context(), chi.URLParam(r, "id"), core.CommitOptions{
		Name:             req.Name,
		TemplateFileName: req.TemplateFileName,
		Department:       req.Department,
	}))
}

// handleExportSession downloads the session extraction: ?format=json|xlsx|csv.
func (s *Server) handleExportSession(w http.ResponseWriter, r *http.Request) {
	result, c, err := s.service.ExportSession(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeResult(w, r, result, c)
}

// respondSession writes a session state or the error that replaced it.
func (s *Server) respondSession(w http.ResponseWriter, r *http.Request) func(*core.SessionInfo, error) {
	return func(info *core.SessionInfo, err error) {
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, info)
	}
}

// queryInt reads an integer query parameter, returning def when absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
