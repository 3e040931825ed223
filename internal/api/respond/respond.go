// Package respond writes JSON bodies and the flat {"error": "..."} shape
// used by every route.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorBody is the JSON structure for error responses
type ErrorBody struct {
	Error string `json:"error"`
}

// OK is the body of endpoints that only acknowledge success
var OK = map[string]bool{"ok": true}

// JSON writes data with the given status
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// Error logs the failure and writes {"error": message}. Client errors are
// logged at warn, server errors at error with the cause attached.
func Error(w http.ResponseWriter, r *http.Request, status int, message string, cause error) {
	attrs := []any{
		"status", status,
		"message", message,
		"method", r.Method,
		"path", r.URL.Path,
	}
	if cause != nil {
		attrs = append(attrs, "error", cause.Error())
	}
	if id := w.Header().Get("X-Request-ID"); id != "" {
		attrs = append(attrs, "request_id", id)
	}

	if status >= 500 {
		slog.ErrorContext(r.Context(), "api error", attrs...)
	} else {
		slog.WarnContext(r.Context(), "api error", attrs...)
	}

	JSON(w, status, ErrorBody{Error: message})
}

// BadRequest writes a 400 with message
func BadRequest(w http.ResponseWriter, r *http.Request, message string, cause error) {
	Error(w, r, http.StatusBadRequest, message, cause)
}

// InvalidBody is the 400 every validation failure maps to
func InvalidBody(w http.ResponseWriter, r *http.Request, cause error) {
	Error(w, r, http.StatusBadRequest, "Invalid body", cause)
}

// NotFound writes a 404 with message
func NotFound(w http.ResponseWriter, r *http.Request, message string) {
	Error(w, r, http.StatusNotFound, message, nil)
}

// Unauthorized writes a 401 with message
func Unauthorized(w http.ResponseWriter, r *http.Request, message string, cause error) {
	Error(w, r, http.StatusUnauthorized, message, cause)
}

// Conflict writes a 409 with message
func Conflict(w http.ResponseWriter, r *http.Request, message string) {
	Error(w, r, http.StatusConflict, message, nil)
}

// Internal writes a 500 with message, logging cause
func Internal(w http.ResponseWriter, r *http.Request, message string, cause error) {
	Error(w, r, http.StatusInternalServerError, message, cause)
}
