package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/biopass-web/internal/application/facecapture"
	"github.com/biopass-web/internal/domain"
	"github.com/biopass-web/internal/infrastructure/backend"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// AuthEnvelope wraps login/signup responses.
type AuthEnvelope struct {
	Bearer   string          `json:"Bearer,omitempty"`
	ClientID string          `json:"client_id,omitempty"`
	User     *domain.Account `json:"user,omitempty"`
	Message  string          `json:"message,omitempty"`
}

// PasswordsEnvelope wraps a credential list.
type PasswordsEnvelope struct {
	Passwords []domain.CredentialEntry `json:"passwords"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg, ErrorCode: status})
}

// writeServiceError maps a service error onto a status code. Remote
// failures carry the backend's own message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	var remote *backend.RemoteError
	if errors.As(err, &remote) {
		msg = remote.Message
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	writeError(w, status, msg)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrTokenExpired), errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrCameraAccessDenied), errors.Is(err, domain.ErrLocked), errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidOtpFormat), errors.Is(err, domain.ErrNoFace),
		errors.Is(err, domain.ErrBadRequest), errors.Is(err, facecapture.ErrBadFrame):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrConflict),
		errors.Is(err, facecapture.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRemoteCallFailed):
		return http.StatusBadGateway
	case errors.Is(err, facecapture.ErrDetectorUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
}
