// Package http provides the HTTP handlers and routing of the storefront API
// and the admin back-office.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/fasogadget/internal/models"
	"go.uber.org/zap"
)

// maxFormBytes bounds urlencoded and JSON bodies.
const maxFormBytes = 1 << 20

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusOf maps a domain error to an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, models.ErrMalformedRequest):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrAuthFailure):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrNotConnected):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a plain-text error. Server errors are logged and their
// details are not sent to the client.
func fail(w http.ResponseWriter, log *zap.Logger, msg string, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		log.Error(msg, zap.Error(err))
		http.Error(w, "internal error", status)
		return
	}
	http.Error(w, err.Error(), status)
}

// failJSON is fail for JSON endpoints.
func failJSON(w http.ResponseWriter, log *zap.Logger, msg string, err error) {
	status := statusOf(err)
	text := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error(msg, zap.Error(err))
		text = "internal error"
	}
	writeJSON(w, status, map[string]any{"success": false, "error": text})
}

// nopLogger returns log, or a no-op logger when log is nil.
func nopLogger(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
