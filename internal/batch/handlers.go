package batch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/zombor/fitparse/internal/workout"
)

// maxFormSize caps an upload at 100MB; screen recordings run large
var maxFormSize = int64(100 << 20)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// jsonError writes a JSON error body with CORS headers set
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleCreateBatch accepts a multipart upload of one or more files and
// starts a batch run. Files with unsupported types are excluded and reported
// back by name; they do not abort the valid ones.
func (s *Server) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			errorMsg = "Upload is too large. Maximum size is 100MB. Try a shorter recording."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		jsonError(w, "No files were selected. Please choose PDF or video files to upload.", http.StatusBadRequest)
		return
	}

	var files []File
	var accepted, rejected []string
	for _, header := range headers {
		contentType := normalizeContentType(header.Filename, header.Header.Get("Content-Type"))
		if !typeAllowed(contentType) {
			slog.Warn("Rejecting unsupported file", "file", header.Filename, "content_type", contentType)
			rejected = append(rejected, header.Filename)
			continue
		}

		f, err := header.Open()
		if err != nil {
			slog.Error("Error opening uploaded file", "file", header.Filename, "error", err)
			jsonError(w, fmt.Sprintf("Error reading %s. Please try again.", header.Filename), http.StatusInternalServerError)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			slog.Error("Error reading uploaded file", "file", header.Filename, "error", err)
			jsonError(w, fmt.Sprintf("Error reading %s. Please try again.", header.Filename), http.StatusInternalServerError)
			return
		}

		files = append(files, File{Name: header.Filename, ContentType: contentType, Data: data})
		accepted = append(accepted, header.Filename)
	}

	if len(files) == 0 {
		jsonError(w, "Some files were skipped. Please upload PDF or Video (MP4) files only.", http.StatusBadRequest)
		return
	}

	if err := s.service.Start(files); err != nil {
		if errors.Is(err, ErrBatchInProgress) {
			jsonError(w, err.Error(), http.StatusConflict)
			return
		}
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(map[string][]string{
		"accepted": accepted,
		"rejected": rejected,
	}); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleState returns the current session state for polling
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.service.Snapshot()); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleReset returns the session to its empty initial state
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.service.Reset()
	setCORSHeaders(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleExport serves the extracted dataset as a CSV download
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	state := s.service.Snapshot()
	if len(state.Data) == 0 {
		corsError(w, "No extracted data to export", http.StatusNotFound)
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", workout.CSVContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", workout.ExportFilename(time.Now())))
	if _, err := w.Write([]byte(workout.ExportCSV(state.Data))); err != nil {
		slog.Error("Error writing export", "error", err)
	}
}

// handleStaticCSS serves the CSS file
func (s *Server) handleStaticCSS(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/css")
	w.Write(appCSS)
}

// handleStaticJS serves the JavaScript file
func (s *Server) handleStaticJS(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Write(appJS)
}
