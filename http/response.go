package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sagarc03/davgate"
)

// authRealm is advertised in WWW-Authenticate on every 401.
const authRealm = `Basic realm="WebDAV"`

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes the status for err with a short message. Internal
// detail is logged, never sent to the client.
func HandleError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError

	switch {
	case errors.Is(err, davgate.ErrNotFound):
		slog.Debug("request error", "error", err)
		WriteError(w, http.StatusNotFound, "not_found", "Resource not found")
	case errors.Is(err, davgate.ErrBucketUnresolved):
		slog.Debug("request error", "error", err)
		WriteError(w, http.StatusNotFound, "not_found", "Bucket not found")
	case errors.Is(err, davgate.ErrInvalidInput):
		slog.Debug("request error", "error", err)
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request")
	case errors.As(err, &tooLarge):
		WriteError(w, http.StatusRequestEntityTooLarge, "too_large", "Request body too large")
	case errors.Is(err, davgate.ErrCollectionConflict):
		slog.Debug("request error", "error", err)
		WriteError(w, http.StatusConflict, "conflict", "Parent collection does not exist")
	case errors.Is(err, davgate.ErrAlreadyExists), errors.Is(err, davgate.ErrMethodNotAllowed):
		slog.Debug("request error", "error", err)
		w.WriteHeader(http.StatusMethodNotAllowed)
	case errors.Is(err, davgate.ErrOverwriteDenied):
		WriteError(w, http.StatusPreconditionFailed, "precondition_failed", "Destination exists")
	case errors.Is(err, davgate.ErrPreconditionFailed):
		WriteError(w, http.StatusPreconditionFailed, "precondition_failed", "Precondition failed")
	case errors.Is(err, davgate.ErrAuthMissing):
		w.Header().Set("WWW-Authenticate", authRealm)
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Authorization required")
	case errors.Is(err, davgate.ErrAuthInvalid):
		w.Header().Set("WWW-Authenticate", authRealm)
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Invalid credentials")
	case errors.Is(err, davgate.ErrAuthBanned):
		WriteError(w, http.StatusForbidden, "banned", "Too many login attempts")
	case errors.Is(err, davgate.ErrAuthDisabled):
		WriteError(w, http.StatusForbidden, "disabled", "WebDAV is not enabled")
	case errors.Is(err, davgate.ErrStoreUnavailable):
		slog.Error("request error", "error", err)
		WriteError(w, http.StatusServiceUnavailable, "unavailable", "Storage unavailable")
	default:
		slog.Error("request error", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

// writeBanned answers a locked-out identity, telling it when to retry.
func writeBanned(w http.ResponseWriter, remaining time.Duration) {
	secs := int64((remaining + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	HandleError(w, davgate.ErrAuthBanned)
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
