package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/askdesk/internal/domain"
)

// ---------------------------------------------------------------------------
// Request helpers
// ---------------------------------------------------------------------------

// readJSON decodes a JSON request body with a size limit.
func readJSON[T any](w http.ResponseWriter, r *http.Request, bodyLimit int64) (T, bool) {
	return decodeBody[T](w, r, bodyLimit, false)
}

// readOptionalJSON is readJSON for endpoints where the body may be absent.
// An empty body, chunked or not, yields the zero value.
func readOptionalJSON[T any](w http.ResponseWriter, r *http.Request, bodyLimit int64) (T, bool) {
	return decodeBody[T](w, r, bodyLimit, true)
}

func decodeBody[T any](w http.ResponseWriter, r *http.Request, bodyLimit int64, allowEmpty bool) (T, bool) {
	var v T
	if r.Body == nil {
		if allowEmpty {
			return v, true
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return v, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	err := json.NewDecoder(r.Body).Decode(&v)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return v, true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
	} else {
		writeError(w, http.StatusBadRequest, "invalid request body")
	}
	return v, false
}

// urlParam is a short alias for chi.URLParam.
func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeDomainError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	var race *domain.ThreadRaceError
	switch {
	case errors.As(err, &race), errors.Is(err, domain.ErrConflict):
		slog.WarnContext(r.Context(), "request conflicted", "error", err)
		writeError(w, http.StatusConflict, "resource was modified by another request")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, notFoundMsg)
	case errors.Is(err, domain.ErrValidation):
		msg := err.Error()
		if i := strings.LastIndex(msg, ": "+domain.ErrValidation.Error()); i > 0 {
			msg = msg[:i]
		}
		writeError(w, http.StatusBadRequest, msg)
	case errors.Is(err, domain.ErrStorageUnavailable):
		slog.ErrorContext(r.Context(), "storage unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
	default:
		writeInternalError(w, r, err)
	}
}

// writeInternalError logs the actual error server-side and returns a generic message to the client.
func writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}
