package handler

import (
	"net/http"

	"github.com/biopass-web/internal/application/facecapture"
	"github.com/biopass-web/internal/application/stepup"
	"github.com/biopass-web/internal/transport/http/middleware"
)

type frameCounter interface {
	IncrementFramesReceived()
}

// StepUpHandler drives the caller's step-up verification session.
type StepUpHandler struct {
	sessions *stepup.Manager
	frames   frameCounter
}

func NewStepUpHandler(sessions *stepup.Manager, frames frameCounter) *StepUpHandler {
	return &StepUpHandler{sessions: sessions, frames: frames}
}

// session resolves the caller's step-up session, writing 401 when the
// request carries no client id.
func (h *StepUpHandler) session(w http.ResponseWriter, r *http.Request) (*stepup.Session, bool) {
	clientID := middleware.ClientID(r.Context())
	if clientID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	return h.sessions.Session(r.Context(), clientID), true
}

func (h *StepUpHandler) State(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

func (h *StepUpHandler) Reset(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Reset()
	writeJSON(w, http.StatusOK, s.State())
}

func (h *StepUpHandler) StartCapture(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var body struct {
		CameraPermission string `json:"camera_permission"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.SetCameraPermission(body.CameraPermission == "granted")
	if err := s.StartFaceCapture(r.Context()); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

// PushFrame accepts one raw PNG or JPEG camera frame.
func (h *StepUpHandler) PushFrame(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	img, err := facecapture.DecodeFrame(http.MaxBytesReader(w, r.Body, facecapture.MaxFrameBytes))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.frames.IncrementFramesReceived()
	present, err := s.PushFrame(img)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"present": present})
}

func (h *StepUpHandler) Capture(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.CaptureFace(r.Context()); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

func (h *StepUpHandler) CancelCapture(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.CancelCapture(); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

func (h *StepUpHandler) SubmitFace(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.SubmitFace(r.Context()); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

func (h *StepUpHandler) Retry(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Retry(r.Context()); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

func (h *StepUpHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	email, err := s.SendOTP(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message string `json:"message"`
		Email   string `json:"email"`
	}{"otp sent", email})
}

// VerifyOTP unlocks the session and returns the credential list.
func (h *StepUpHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var body struct {
		OTP string `json:"otp"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	entries, err := s.SubmitOTP(r.Context(), body.OTP)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PasswordsEnvelope{Passwords: entries})
}
