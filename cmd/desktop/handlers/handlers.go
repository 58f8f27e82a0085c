// Package handlers provides the REST API surface of the desktop shell.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/inkpad-app/inkpad/internal/apperrors"
)

// writeJSON serializes v as the response body.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the error kind onto an HTTP status.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperrors.Is(err, apperrors.ErrNotFound):
		status = http.StatusNotFound
	case apperrors.Is(err, apperrors.ErrInvalidEntity),
		apperrors.Is(err, apperrors.ErrImportFailed):
		status = http.StatusBadRequest
	case apperrors.Is(err, apperrors.ErrQuotaExceeded):
		status = http.StatusInsufficientStorage
	case apperrors.Is(err, apperrors.ErrTimeout):
		status = http.StatusGatewayTimeout
	case apperrors.Is(err, apperrors.ErrBackendUnavailable):
		status = http.StatusServiceUnavailable
	}

	body := map[string]string{
		"error": err.Error(),
		"code":  string(apperrors.CodeOf(err)),
	}
	writeJSON(w, status, body)
}

// methodNotAllowed rejects requests with an unsupported method.
func methodNotAllowed(w http.ResponseWriter) {
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}
