package web

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/JonMunkholm/sheetmap/internal/core"
	"github.com/JonMunkholm/sheetmap/internal/workbook"
)

// multipartMemory is how much of a multipart form is held in memory before
// spilling to temp files.
const multipartMemory = 32 << 20

// formOverhead leaves room for the non-file form fields.
const formOverhead = 1 << 20

// readUpload parses a multipart form and returns its "file" part. The caller
// closes the file.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Workbook.MaxFileSize+formOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
			return nil, nil, fmt.Errorf("%w: %w", core.ErrFileTooLarge, err)
		}
		return nil, nil, invalidInput("file", "must be sent as multipart/form-data")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, errNoFile
	}
	if header.Size > s.cfg.Workbook.MaxFileSize {
		file.Close()
		return nil, nil, fmt.Errorf("%w: %d bytes", core.ErrFileTooLarge, header.Size)
	}
	if header.Size == 0 {
		file.Close()
		return nil, nil, fmt.Errorf("%w: empty file", core.ErrInvalidWorkbook)
	}
	return file, header, nil
}

// loadUpload reads the uploaded workbook through the service's load limiter.
func (s *Server) loadUpload(w http.ResponseWriter, r *http.Request) (*core.Workbook, error) {
	file, _, err := s.readUpload(w, r)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return s.service.LoadWorkbook(r.Context(), file)
}

// writeResult sends an extraction result in the format named by ?format=.
func (s *Server) writeResult(w http.ResponseWriter, r *http.Request, result *core.ExtractionResult, c *core.Catalog) {
	format, err := workbook.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.respondError(w, r, invalidInput("format", "must be one of json, xlsx, csv"))
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	if format != workbook.FormatJSON {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", c.Key+"-export"+format.Extension()))
	}
	if err := workbook.Write(w, format, result, c); err != nil {
		s.respondError(w, r, err)
	}
}
