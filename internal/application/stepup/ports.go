package stepup

import (
	"context"
	"image"

	"github.com/biopass-web/internal/application/facecapture"
	"github.com/biopass-web/internal/domain"
)

// Remote is the backend surface the session drives.
type Remote interface {
	VerifyFace(ctx context.Context, clientID string, png []byte) error
	// SendOTP returns the address the code was sent to.
	SendOTP(ctx context.Context, clientID string) (string, error)
	// VerifyOTP returns the protected credential list on success.
	VerifyOTP(ctx context.Context, clientID, code string) ([]domain.CredentialEntry, error)
}

// Capturer is the face capture controller as seen by a session.
type Capturer interface {
	Open(ctx context.Context) (uint64, error)
	Capture(ctx context.Context) (*facecapture.Capture, error)
	Cancel()
	Present() bool
}

// FrameSink receives camera state and frames from the browser.
type FrameSink interface {
	SetPermission(granted bool)
	PushFrame(img image.Image) error
}

// CredentialCache is the per-client face verification cache.
type CredentialCache interface {
	Read(ctx context.Context) bool
	Write(ctx context.Context, verified bool)
}

// Diagnostics retains images of failed face matches.
type Diagnostics interface {
	SaveFailedMatch(ctx context.Context, clientID string, png []byte) error
}

// Recorder writes best-effort audit events.
type Recorder interface {
	Record(ctx context.Context, clientID, action, detail string)
}

// Observer receives step-up telemetry.
type Observer interface {
	Transition(from, to domain.Stage)
	FaceMatch(ok bool)
	OTPVerification(ok bool)
	StaleCapture()
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, string, string, string) {}

type nopObserver struct{}

func (nopObserver) Transition(domain.Stage, domain.Stage) {}
func (nopObserver) FaceMatch(bool)                        {}
func (nopObserver) OTPVerification(bool)                  {}
func (nopObserver) StaleCapture()                         {}
