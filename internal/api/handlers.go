package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"nmsweep/internal/cleanup"
	"nmsweep/internal/database"
	"nmsweep/internal/fsops"
	"nmsweep/internal/scan"
	"nmsweep/internal/service"
)

// Backend is the subset of the service the API exposes
type Backend interface {
	ScanForNodeModules(ctx context.Context, path string) (*scan.Summary, error)
	DeleteFolders(ctx context.Context, paths []string) (*cleanup.DeleteSummary, error)
	FolderSize(ctx context.Context, path string) (int64, error)
	RecentDeletions(limit int) ([]database.DeletionRecord, error)
}

// ErrorResponse represents an error message
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ScanRequest is the body of POST /api/v1/scan
type ScanRequest struct {
	Path string `json:"path"`
}

// DeleteRequest is the body of POST /api/v1/delete
type DeleteRequest struct {
	Paths []string `json:"paths"`
}

// SizeResponse is the body returned by GET /api/v1/size
type SizeResponse struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

type handlers struct {
	backend Backend
	logger  zerolog.Logger
}

// HealthHandler returns server health status
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		return
	}
	respondJSON(w, map[string]string{"status": "healthy"}, http.StatusOK)
}

func (h *handlers) scan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if !decodeBody(w, r, &req) {
		return
	}

	summary, err := h.backend.ScanForNodeModules(r.Context(), req.Path)
	if err != nil {
		h.respondFailure(w, "scan failed", err)
		return
	}
	respondJSON(w, summary, http.StatusOK)
}

func (h *handlers) delete(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	summary, err := h.backend.DeleteFolders(r.Context(), req.Paths)
	if err != nil {
		// Some folders may already be gone; report what happened.
		h.logger.Warn().Err(err).Msg("delete batch interrupted")
	}
	if summary == nil {
		h.respondFailure(w, "delete failed", err)
		return
	}
	respondJSON(w, summary, http.StatusOK)
}

func (h *handlers) size(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		respondError(w, "path query parameter is required", http.StatusBadRequest)
		return
	}

	size, err := h.backend.FolderSize(r.Context(), path)
	if err != nil {
		h.respondFailure(w, "size failed", err)
		return
	}
	respondJSON(w, SizeResponse{Path: path, Size: size}, http.StatusOK)
}

func (h *handlers) history(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	records, err := h.backend.RecentDeletions(limit)
	if err != nil {
		h.respondFailure(w, "history failed", err)
		return
	}
	respondJSON(w, records, http.StatusOK)
}

func (h *handlers) respondFailure(w http.ResponseWriter, what string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Msg(what)
	}
	respondError(w, err.Error(), status)
}

// statusFor maps an error kind onto an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrHistoryDisabled):
		return http.StatusNotFound
	case errors.Is(err, fsops.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, fsops.ErrNotFound), errors.Is(err, fsops.ErrStaleTarget):
		return http.StatusNotFound
	case errors.Is(err, fsops.ErrAccess):
		return http.StatusForbidden
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		respondError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, ErrorResponse{
		Error:   http.StatusText(status),
		Code:    status,
		Message: message,
	}, status)
}
