package report

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/zombor/daily-sales/internal/extraction"
)

// maxFormSize caps capture uploads; high-resolution phone photos and voice notes fit well below it
const maxFormSize = int64(50 << 20)

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// jsonError writes {"error": message} with CORS headers set
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	writeJSON(w, code, map[string]string{"error": message})
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidChanges), errors.Is(err, extraction.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, extraction.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrNoItems):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// serviceError logs unexpected failures and writes the mapped status
func serviceError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		jsonError(w, "Internal server error", code)
		return
	}
	jsonError(w, err.Error(), code)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleNewReport starts a new report session
func (s *Server) handleNewReport(w http.ResponseWriter, r *http.Request) {
	var h Header
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&h); err != nil && !errors.Is(err, io.EOF) {
			jsonError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	state, err := s.service.NewReport(h)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

// handleListReports returns all saved reports
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.service.ListReports()
	if err != nil {
		serviceError(w, r, err)
		return
	}
	if reports == nil {
		reports = []*DailyReport{}
	}
	writeJSON(w, http.StatusOK, reports)
}

// handleGetReport returns the editing state of a report
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetReport(r.PathValue("id"))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleUpdateReport applies a partial change set
func (s *Server) handleUpdateReport(w http.ResponseWriter, r *http.Request) {
	var c Changes
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	state, err := s.service.UpdateReport(r.PathValue("id"), c)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func itemIndex(r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	return index, err == nil
}

// handleEditItem applies a manual edit to one item
func (s *Server) handleEditItem(w http.ResponseWriter, r *http.Request) {
	index, ok := itemIndex(r)
	if !ok {
		jsonError(w, "Item index must be a number", http.StatusBadRequest)
		return
	}
	var edit ItemEdit
	if err := json.NewDecoder(r.Body).Decode(&edit); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	state, err := s.service.EditItem(r.PathValue("id"), index, edit)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleRemoveItem deletes one item
func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	index, ok := itemIndex(r)
	if !ok {
		jsonError(w, "Item index must be a number", http.StatusBadRequest)
		return
	}

	state, err := s.service.RemoveItem(r.PathValue("id"), index)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.Undo(r.PathValue("id"))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.Redo(r.PathValue("id"))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleCaptureFiles extracts items from one or more uploaded files.
// Every multipart part named "file" is captured; "source" defaults to upload.
func (s *Server) handleCaptureFiles(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			jsonError(w, "Upload is too large. Maximum size is 50MB.", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "Invalid upload. Please try again.", http.StatusBadRequest)
		return
	}

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		jsonError(w, "No file was selected. Please choose a file to upload.", http.StatusBadRequest)
		return
	}

	uploads := make([]Upload, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			slog.Error("Error opening uploaded file", "error", err, "filename", header.Filename)
			jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			slog.Error("Error reading file data", "error", err, "filename", header.Filename)
			jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
			return
		}

		contentType := header.Header.Get("Content-Type")
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = http.DetectContentType(data)
		}
		uploads = append(uploads, Upload{
			Filename:    header.Filename,
			ContentType: contentType,
			Data:        data,
		})
	}

	source := Source(r.FormValue("source"))
	if source == "" {
		source = SourceUpload
	}

	state, err := s.service.CaptureFiles(r.Context(), r.PathValue("id"), source, uploads)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleCaptureText extracts items from pasted text or a dictation transcript
func (s *Server) handleCaptureText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Source Source `json:"source"`
		Text   string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Source == "" {
		req.Source = SourceManual
	}

	state, err := s.service.CaptureText(r.Context(), r.PathValue("id"), req.Source, req.Text)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleSaveReport persists the current state
func (s *Server) handleSaveReport(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.SaveReport(r.PathValue("id"))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleShareMessage returns the share text as plain text
func (s *Server) handleShareMessage(w http.ResponseWriter, r *http.Request) {
	message, err := s.service.ShareMessage(r.PathValue("id"))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, message)
}

// handleCloseReport discards unsaved edits
func (s *Server) handleCloseReport(w http.ResponseWriter, r *http.Request) {
	s.service.CloseReport(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteReport deletes a report and its attachments
func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteReport(r.Context(), r.PathValue("id")); err != nil {
		serviceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetAttachment streams a stored capture file
func (s *Server) handleGetAttachment(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetAttachment(r.Context(), r.PathValue("key"))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.Warn("Attachment lookup failed", "key", r.PathValue("key"), "error", err)
		}
		jsonError(w, "Attachment not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}
