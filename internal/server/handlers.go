package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gongdo-labs/deungdae/internal/extract"
	"github.com/gongdo-labs/deungdae/internal/store"
)

// maxUploadBytes bounds the whole multipart form, not just the PDF.
const maxUploadBytes = 64 << 20

// POST /api/{side}/ingest
//
// Multipart form with a "pdf" part, a "yaml" part, or both. The document ID
// comes from the "document_id" field when present, otherwise from the first
// uploaded filename's stem.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	st := s.storeFor(chi.URLParam(r, "side"))
	if st == nil {
		writeError(w, http.StatusNotFound, "unknown ingest target")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "expected a multipart form")
		return
	}

	pdfData, pdfName, err := formFileBytes(r, "pdf")
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading pdf upload failed")
		return
	}
	yamlData, yamlName, err := formFileBytes(r, "yaml")
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading yaml upload failed")
		return
	}
	if pdfData == nil && yamlData == nil {
		writeError(w, http.StatusBadRequest, "at least one of 'pdf' or 'yaml' is required")
		return
	}

	documentID := r.FormValue("document_id")
	if documentID == "" {
		documentID = stem(pdfName)
	}
	if documentID == "" {
		documentID = stem(yamlName)
	}
	if documentID == "" {
		writeError(w, http.StatusBadRequest, "document_id could not be derived")
		return
	}

	result, err := s.engine.ProcessDocument(documentID, pdfData, yamlData)
	if err != nil {
		s.logger.Error("processing document", "document_id", documentID, "error", err)
		writeError(w, extractStatus(err), "document processing failed: "+err.Error())
		return
	}

	studentID, err := st.SaveDocument(ctx, result)
	if err != nil {
		s.logger.Error("saving document", "document_id", documentID, "error", err)
		writeError(w, http.StatusInternalServerError, "saving records failed")
		return
	}

	s.logger.Info("document ingested",
		"document_id", documentID,
		"student_id", studentID,
		"records", len(result.Records),
		"unmatched", len(result.UnmatchedMetadata),
		"diagnostics", len(result.Diagnostics))

	writeJSON(w, http.StatusOK, map[string]any{
		"document_id": documentID,
		"student_id":  studentID,
		"records":     len(result.Records),
		"unmatched":   len(result.UnmatchedMetadata),
		"diagnostics": result.Diagnostics,
	})
}

// GET /api/{side}/students
func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	st := s.storeFor(chi.URLParam(r, "side"))
	if st == nil {
		writeError(w, http.StatusNotFound, "unknown store")
		return
	}

	students, err := st.ListStudents(r.Context())
	if err != nil {
		s.logger.Error("listing students", "error", err)
		writeError(w, http.StatusInternalServerError, "listing students failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"students": students})
}

// GET /api/{side}/students/{id}
func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	st := s.storeFor(chi.URLParam(r, "side"))
	if st == nil {
		writeError(w, http.StatusNotFound, "unknown store")
		return
	}
	id := chi.URLParam(r, "id")

	student, err := st.GetStudent(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "student not found")
		return
	}
	if err != nil {
		s.logger.Error("loading student", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "loading student failed")
		return
	}

	records, err := st.ListRecords(r.Context(), id)
	if err != nil {
		s.logger.Error("loading records", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "loading records failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"student": student,
		"records": records,
	})
}

// DELETE /api/{side}/students/{id}
func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	st := s.storeFor(chi.URLParam(r, "side"))
	if st == nil {
		writeError(w, http.StatusNotFound, "unknown store")
		return
	}
	id := chi.URLParam(r, "id")

	err := st.DeleteStudent(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "student not found")
		return
	}
	if err != nil {
		s.logger.Error("deleting student", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "deleting student failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// formFileBytes reads one named upload fully into memory. A missing part is
// not an error; it returns nil bytes.
func formFileBytes(r *http.Request, field string) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return nil, "", err
	}
	return data, header.Filename, nil
}

// stem returns the filename without directories or extension; the ingest
// flows pair a PDF and its metadata file by this value.
func stem(name string) string {
	if name == "" {
		return ""
	}
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// extractStatus maps engine errors to response codes: inputs that were
// received but cannot be processed are unprocessable, everything else is an
// internal failure.
func extractStatus(err error) int {
	switch {
	case errors.Is(err, extract.ErrUnreadableDocument),
		errors.Is(err, extract.ErrNoExtractableText),
		errors.Is(err, extract.ErrMalformedMetadata):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
