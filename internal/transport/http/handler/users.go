package handler

import (
	"net/http"

	"github.com/biopass-web/internal/application/user"
	"github.com/biopass-web/internal/domain"
)

// UserHandler handles account creation.
type UserHandler struct {
	svc user.Service
}

func NewUserHandler(svc user.Service) *UserHandler { return &UserHandler{svc: svc} }

func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req domain.SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.svc.Signup(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	env := AuthEnvelope{
		Bearer:   result.Bearer,
		ClientID: result.ClientID,
		User:     result.Account,
		Message:  "account created",
	}
	if result.Bearer == "" {
		env.Message = "account created, please log in"
	}
	writeJSON(w, http.StatusCreated, env)
}
