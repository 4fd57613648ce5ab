package handler

import (
	"net/http"

	"github.com/biopass-web/internal/application/vault"
	"github.com/biopass-web/internal/domain"
	"github.com/biopass-web/internal/transport/http/middleware"
)

// PasswordHandler serves the gated credential list.
type PasswordHandler struct {
	svc *vault.Service
}

func NewPasswordHandler(svc *vault.Service) *PasswordHandler { return &PasswordHandler{svc: svc} }

func (h *PasswordHandler) List(w http.ResponseWriter, r *http.Request) {
	clientID := middleware.ClientID(r.Context())
	if clientID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	entries, err := h.svc.FetchIfUnlocked(r.Context(), clientID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PasswordsEnvelope{Passwords: entries})
}

func (h *PasswordHandler) Add(w http.ResponseWriter, r *http.Request) {
	clientID := middleware.ClientID(r.Context())
	if clientID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var entry domain.CredentialEntry
	if err := decodeJSON(w, r, &entry); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.Add(r.Context(), clientID, entry); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageEnvelope{Message: "password added"})
}
