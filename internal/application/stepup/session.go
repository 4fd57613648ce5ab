// Package stepup implements the step-up verification session: face capture,
// remote face match, OTP send and verify, and the resulting unlocked state.
//
// Face and OTP are independent gates tracked as FaceOK and OTPOK. A session
// is unlocked once OTPOK is set. Remote calls are made without holding the
// session lock; their results are applied only if the session was not reset
// in the meantime.
package stepup

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/biopass-web/internal/domain"
	"github.com/biopass-web/internal/pkg/validate"
)

var (
	// ErrStaleAttempt is returned for capture results of an attempt that is no longer current.
	ErrStaleAttempt = fmt.Errorf("capture attempt is no longer current: %w", domain.ErrInvalidTransition)
	// ErrBusy is returned while another remote call for the session is in flight.
	ErrBusy = fmt.Errorf("another step is in progress: %w", domain.ErrInvalidTransition)
	// ErrSessionReset is returned when the session was reset while a call was in flight.
	ErrSessionReset = fmt.Errorf("session was reset: %w", domain.ErrInvalidTransition)
)

// State is a point-in-time view of a session.
type State struct {
	Stage     domain.Stage `json:"stage"`
	FaceOK    bool         `json:"face_ok"`
	OTPOK     bool         `json:"otp_ok"`
	Attempt   uint64       `json:"attempt"`
	HasImage  bool         `json:"has_image"`
	Present   bool         `json:"face_present"`
	LastError string       `json:"last_error,omitempty"`
}

// Session is one client's verification state machine.
type Session struct {
	clientID string
	capture  Capturer
	frames   FrameSink
	remote   Remote
	cache    CredentialCache
	diag     Diagnostics
	audit    Recorder
	metrics  Observer
	onExpire func(*Session)

	mu      sync.Mutex
	stage   domain.Stage
	faceOK  bool
	otpOK   bool
	attempt uint64
	epoch   uint64
	busy    bool
	image   []byte
	otp     string
	lastErr error
}

func (s *Session) ClientID() string { return s.clientID }

// restore applies a fresh cached face verification unless the session has
// moved on since it was created.
func (s *Session) restore(ctx context.Context) {
	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()

	if !s.cache.Read(ctx) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch || s.stage != domain.StageIdle {
		return
	}
	s.faceOK = true
	s.stage = domain.StageFaceVerified
	slog.Debug("restored cached face verification", "client_id", s.clientID)
}

func (s *Session) State() State {
	s.mu.Lock()
	st := State{
		Stage:    s.stage,
		FaceOK:   s.faceOK,
		OTPOK:    s.otpOK,
		Attempt:  s.attempt,
		HasImage: len(s.image) > 0,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	capturing := s.stage == domain.StageCapturingFace
	s.mu.Unlock()
	if capturing {
		st.Present = s.capture.Present()
	}
	return st
}

// Unlocked reports whether OTP verification succeeded in this session.
func (s *Session) Unlocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.otpOK
}

// SetCameraPermission records the outcome of the browser permission prompt.
func (s *Session) SetCameraPermission(granted bool) {
	s.frames.SetPermission(granted)
}

// PushFrame feeds a camera frame and reports the latest presence result.
func (s *Session) PushFrame(img image.Image) (bool, error) {
	if err := s.frames.PushFrame(img); err != nil {
		return false, err
	}
	return s.capture.Present(), nil
}

// StartFaceCapture opens the camera for a new capture attempt. Starting again
// from FaceVerified re-verifies and overwrites the cached result.
func (s *Session) StartFaceCapture(ctx context.Context) error {
	return s.openCapture(ctx, domain.StageIdle, domain.StageCapturingFace, domain.StageFaceVerified)
}

// Retry discards the failed image and reopens capture.
func (s *Session) Retry(ctx context.Context) error {
	return s.openCapture(ctx, domain.StageFaceFailed)
}

func (s *Session) openCapture(ctx context.Context, from ...domain.Stage) error {
	s.mu.Lock()
	if err := s.beginLocked(from...); err != nil {
		s.mu.Unlock()
		return err
	}
	epoch := s.epoch
	s.mu.Unlock()

	attempt, err := s.capture.Open(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		if err == nil {
			s.capture.Cancel()
		}
		return ErrSessionReset
	}
	s.busy = false
	if err != nil {
		s.lastErr = err
		return fmt.Errorf("open camera: %w", err)
	}
	s.attempt = attempt
	s.image = nil
	s.lastErr = nil
	s.setStageLocked(domain.StageCapturingFace)
	return nil
}

// CaptureFace takes a still from the controller and applies it to the
// session. With no face present the stage is unchanged.
func (s *Session) CaptureFace(ctx context.Context) error {
	s.mu.Lock()
	if s.stage != domain.StageCapturingFace {
		stage := s.stage
		s.mu.Unlock()
		return fmt.Errorf("capture from %s: %w", stage, domain.ErrInvalidTransition)
	}
	s.mu.Unlock()

	c, err := s.capture.Capture(ctx)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		return err
	}
	return s.CaptureSucceeded(c.Attempt, c.Image)
}

// CaptureSucceeded applies a capture artifact. Results tagged with an
// attempt other than the current one are discarded.
func (s *Session) CaptureSucceeded(attempt uint64, img []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != domain.StageCapturingFace || attempt != s.attempt {
		s.metrics.StaleCapture()
		slog.Debug("discarding stale capture", "client_id", s.clientID, "attempt", attempt, "current", s.attempt)
		return ErrStaleAttempt
	}
	s.image = img
	s.lastErr = nil
	s.setStageLocked(domain.StageFaceCaptured)
	return nil
}

// CancelCapture stops the camera and returns to Idle.
func (s *Session) CancelCapture() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != domain.StageCapturingFace {
		return fmt.Errorf("cancel capture from %s: %w", s.stage, domain.ErrInvalidTransition)
	}
	s.capture.Cancel()
	s.setStageLocked(domain.StageIdle)
	return nil
}

// SubmitFace sends the captured image for remote matching.
func (s *Session) SubmitFace(ctx context.Context) error {
	s.mu.Lock()
	if err := s.beginLocked(domain.StageFaceCaptured); err != nil {
		s.mu.Unlock()
		return err
	}
	img, epoch := s.image, s.epoch
	s.setStageLocked(domain.StageVerifyingFace)
	s.mu.Unlock()

	err := s.remote.VerifyFace(ctx, s.clientID, img)

	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return ErrSessionReset
	}
	s.busy = false
	if errors.Is(err, domain.ErrTokenExpired) {
		s.expireLocked()
		s.mu.Unlock()
		s.expired(ctx)
		return err
	}
	if err != nil {
		s.faceOK = false
		s.lastErr = err
		s.setStageLocked(domain.StageFaceFailed)
		s.mu.Unlock()

		s.cache.Write(ctx, false)
		s.metrics.FaceMatch(false)
		s.audit.Record(ctx, s.clientID, domain.AuditFaceMatchFailed, err.Error())
		s.retain(ctx, img)
		return err
	}
	s.faceOK = true
	s.image = nil
	s.lastErr = nil
	s.setStageLocked(domain.StageFaceVerified)
	s.mu.Unlock()

	s.cache.Write(ctx, true)
	s.metrics.FaceMatch(true)
	s.audit.Record(ctx, s.clientID, domain.AuditFaceMatchSucceeded, "")
	return nil
}

// SendOTP asks the backend to email a code. Calling it again from OtpSent
// sends a new code.
func (s *Session) SendOTP(ctx context.Context) (string, error) {
	s.mu.Lock()
	if err := s.beginLocked(domain.StageIdle, domain.StageFaceVerified, domain.StageOtpSent); err != nil {
		s.mu.Unlock()
		return "", err
	}
	epoch := s.epoch
	s.mu.Unlock()

	email, err := s.remote.SendOTP(ctx, s.clientID)

	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return "", ErrSessionReset
	}
	s.busy = false
	if errors.Is(err, domain.ErrTokenExpired) {
		s.expireLocked()
		s.mu.Unlock()
		s.expired(ctx)
		return "", err
	}
	if err != nil {
		s.lastErr = err
		s.mu.Unlock()
		return "", err
	}
	s.lastErr = nil
	s.setStageLocked(domain.StageOtpSent)
	s.mu.Unlock()

	s.audit.Record(ctx, s.clientID, domain.AuditOTPSent, email)
	return email, nil
}

// SubmitOTP verifies a 6-digit code. A malformed code is rejected without
// contacting the backend. On success the session is unlocked and the
// credential list returned by the backend is passed through.
func (s *Session) SubmitOTP(ctx context.Context, code string) ([]domain.CredentialEntry, error) {
	if !validate.IsOTP(code) {
		s.mu.Lock()
		s.lastErr = domain.ErrInvalidOtpFormat
		s.mu.Unlock()
		return nil, domain.ErrInvalidOtpFormat
	}

	s.mu.Lock()
	if err := s.beginLocked(domain.StageOtpSent); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	epoch := s.epoch
	s.otp = code
	s.setStageLocked(domain.StageVerifyingOtp)
	s.mu.Unlock()

	entries, err := s.remote.VerifyOTP(ctx, s.clientID, code)

	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return nil, ErrSessionReset
	}
	s.busy = false
	s.otp = ""
	if errors.Is(err, domain.ErrTokenExpired) {
		s.expireLocked()
		s.mu.Unlock()
		s.expired(ctx)
		return nil, err
	}
	if err != nil {
		s.lastErr = err
		s.setStageLocked(domain.StageOtpSent)
		s.mu.Unlock()

		s.metrics.OTPVerification(false)
		s.audit.Record(ctx, s.clientID, domain.AuditOTPFailed, err.Error())
		return nil, err
	}
	s.otpOK = true
	s.lastErr = nil
	s.setStageLocked(domain.StageUnlocked)
	s.mu.Unlock()

	s.metrics.OTPVerification(true)
	s.audit.Record(ctx, s.clientID, domain.AuditOTPVerified, "")
	if entries == nil {
		entries = []domain.CredentialEntry{}
	}
	return entries, nil
}

// Reset discards all session state and returns to Idle. The cached
// credential is left as is.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.capture.Cancel()
	s.epoch++
	s.busy = false
	s.faceOK = false
	s.otpOK = false
	s.image = nil
	s.otp = ""
	s.lastErr = nil
	s.setStageLocked(domain.StageIdle)
}

func (s *Session) expireLocked() {
	slog.Info("backend token expired, resetting step-up session", "client_id", s.clientID)
	s.resetLocked()
	s.lastErr = domain.ErrTokenExpired
}

// expired runs after the lock is released: the expiry is audited and the
// session is detached from its manager.
func (s *Session) expired(ctx context.Context) {
	s.audit.Record(ctx, s.clientID, domain.AuditTokenExpired, "")
	if s.onExpire != nil {
		s.onExpire(s)
	}
}

// beginLocked checks the current stage and claims the session for one remote step.
func (s *Session) beginLocked(from ...domain.Stage) error {
	if s.busy {
		return ErrBusy
	}
	for _, st := range from {
		if s.stage == st {
			s.busy = true
			return nil
		}
	}
	return fmt.Errorf("not allowed from %s: %w", s.stage, domain.ErrInvalidTransition)
}

func (s *Session) setStageLocked(to domain.Stage) {
	if s.stage == to {
		return
	}
	s.metrics.Transition(s.stage, to)
	s.stage = to
}

func (s *Session) retain(ctx context.Context, img []byte) {
	if s.diag == nil || len(img) == 0 {
		return
	}
	if err := s.diag.SaveFailedMatch(ctx, s.clientID, img); err != nil {
		slog.Warn("saving failed match image", "client_id", s.clientID, "err", err)
	}
}
