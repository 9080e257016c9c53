package web

import (
	"context"
	"net/http"
	"time"

	"github.com/JonMunkholm/sheetmap/internal/core"
	"github.com/go-chi/chi/v5"
)

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Sessions int                    `json:"sessions"`
	Loads    core.LoadLimiterStatus `json:"loads"`
	Catalogs int                    `json:"catalogs"`
	Database string                 `json:"database"`
}

// handleHealth reports liveness, and database reachability when one is used.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			writeJSONStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "unreachable"})
			return
		}
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	db := "memory"
	if s.db != nil {
		db = "postgres"
	}
	writeJSON(w, StatusResponse{
		Sessions: s.service.SessionCount(),
		Loads:    s.service.LimiterStatus(),
		Catalogs: core.CatalogCount(),
		Database: db,
	})
}

// handleListCatalogs returns all catalogs, or one group with ?group=.
func (s *Server) handleListCatalogs(w http.ResponseWriter, r *http.Request) {
	if group := r.URL.Query().Get("group"); group != "" {
		writeJSON(w, s.service.ListCatalogsByGroup()[group])
		return
	}
	writeJSON(w, s.service.ListCatalogs())
}

func (s *Server) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	c, err := s.service.Catalog(chi.URLParam(r, "key"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, c)
}
