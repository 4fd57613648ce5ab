package handler

import (
	"net/http"

	"github.com/biopass-web/internal/application/face"
	"github.com/biopass-web/internal/application/facecapture"
	"github.com/biopass-web/internal/transport/http/middleware"
)

// FaceHandler handles face template status and enrollment.
type FaceHandler struct {
	svc face.Service
}

func NewFaceHandler(svc face.Service) *FaceHandler { return &FaceHandler{svc: svc} }

func (h *FaceHandler) Status(w http.ResponseWriter, r *http.Request) {
	clientID := middleware.ClientID(r.Context())
	if clientID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	registered, err := h.svc.Status(r.Context(), clientID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"registered": registered})
}

// Enroll accepts a multipart form with the face image in field "image".
func (h *FaceHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	clientID := middleware.ClientID(r.Context())
	if clientID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := r.ParseMultipartForm(facecapture.MaxFrameBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	f, _, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing image field")
		return
	}
	defer f.Close()

	if err := h.svc.Enroll(r.Context(), clientID, f); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageEnvelope{Message: "face registered"})
}
