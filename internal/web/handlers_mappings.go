package web

import (
	"net/http"
	"strconv"

	"github.com/JonMunkholm/sheetmap/internal/core"
	"github.com/go-chi/chi/v5"
)

// MappingRequest creates or replaces a saved mapping. CatalogKey is ignored
// on update.
type MappingRequest struct {
	Name             string               `json:"name" validate:"required,max=200"`
	CatalogKey       string               `json:"catalogKey"`
	Department       int                  `json:"departmentId" validate:"oneof=0 1 2"`
	TemplateFileName string               `json:"templateFileName" validate:"max=255"`
	HeaderMode       bool                 `json:"headerMode"`
	Details          []core.MappingDetail `json:"details" validate:"required,min=1,dive"`
}

func (req MappingRequest) mapping() core.SavedMapping {
	return core.SavedMapping{
		Name:             req.Name,
		CatalogKey:       req.CatalogKey,
		Department:       req.Department,
		TemplateFileName: req.TemplateFileName,
		HeaderMode:       req.HeaderMode,
		Details:          req.Details,
	}
}

// ExtractResponse pairs an extraction with the mapping that produced it.
type ExtractResponse struct {
	Mapping core.SavedMapping     `json:"mapping"`
	Preview *core.PreviewResponse `json:"preview"`
}

// parseDepartment reads a department filter. Empty means every department.
func parseDepartment(v string) (int, error) {
	if v == "" {
		return core.DepartmentAll, nil
	}
	d, err := strconv.Atoi(v)
	if err != nil || d < core.DepartmentAll || d > core.DepartmentB {
		return 0, invalidInput("departmentId", "must be one of 0 1 2")
	}
	return d, nil
}

// handleListMappings lists saved mappings, optionally narrowed by ?catalog=
// and ?department=.
func (s *Server) handleListMappings(w http.ResponseWriter, r *http.Request) {
	dept, err := parseDepartment(r.URL.Query().Get("department"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	list, err := s.service.ListMappings(r.Context(), core.MappingFilter{
		CatalogKey: r.URL.Query().Get("catalog"),
		Department: dept,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, list)
}

func (s *Server) handleCreateMapping(w http.ResponseWriter, r *http.Request) {
	var req MappingRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	saved, err := s.service.SaveMapping(r.Context(), req.mapping())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, saved)
}

func (s *Server) handleGetMapping(w http.ResponseWriter, r *http.Request) {
	m, err := s.service.GetMapping(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, m)
}

func (s *Server) handleUpdateMapping(w http.ResponseWriter, r *http.Request) {
	var req MappingRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	updated, err := s.service.UpdateMapping(r.Context(), chi.URLParam(r, "id"), req.mapping())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, updated)
}

func (s *Server) handleDeleteMapping(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteMapping(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMatchMappings scores a catalog's saved mappings against an uploaded
// workbook. Multipart fields: "file", "catalog" and optional "department".
func (s *Server) handleMatchMappings(w http.ResponseWriter, r *http.Request) {
	wb, err := s.loadUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	catalog := r.FormValue("catalog")
	if catalog == "" {
		s.respondError(w, r, invalidInput("catalog", "is required"))
		return
	}

	dept, err := parseDepartment(r.FormValue("department"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	matches, err := s.service.MatchMappings(r.Context(), catalog, dept, wb)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, matches)
}

// handleExtractWithMapping applies a saved mapping to an uploaded workbook.
// JSON responses carry a preview summary; ?format=xlsx|csv downloads the
// records instead.
func (s *Server) handleExtractWithMapping(w http.ResponseWriter, r *http.Request) {
	wb, err := s.loadUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	result, saved, err := s.service.ExtractWithMapping(r.Context(), chi.URLParam(r, "id"), wb)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if format := r.URL.Query().Get("format"); format != "" && format != "json" {
		c, err := s.service.Catalog(saved.CatalogKey)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		s.writeResult(w, r, result, c)
		return
	}

	writeJSON(w, ExtractResponse{
		Mapping: saved,
		Preview: core.BuildPreview(result, 0),
	})
}
