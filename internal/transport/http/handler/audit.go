package handler

import (
	"net/http"
	"strconv"

	"github.com/biopass-web/internal/application/audit"
	"github.com/biopass-web/internal/domain"
	"github.com/biopass-web/internal/transport/http/middleware"
)

// AuditHandler lists the caller's recorded actions.
type AuditHandler struct {
	svc *audit.Service
}

func NewAuditHandler(svc *audit.Service) *AuditHandler { return &AuditHandler{svc: svc} }

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	clientID := middleware.ClientID(r.Context())
	if clientID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := h.svc.List(r.Context(), clientID, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Events []domain.AuditEvent `json:"events"`
	}{events})
}
