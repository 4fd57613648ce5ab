package facecapture

import (
	"context"
	"image"

	"github.com/biopass-web/internal/domain"
)

// Camera acquires a live frame stream.
type Camera interface {
	// Open fails with domain.ErrCameraAccessDenied when permission is refused.
	Open(ctx context.Context) (Stream, error)
}

// Stream yields the most recent frame until closed.
type Stream interface {
	Frame(ctx context.Context) (image.Image, error)
	Close() error
}

// Detector runs one face-detection pass. A nil box with a nil error means no face.
type Detector interface {
	Detect(ctx context.Context, frame image.Image) (*domain.FaceBox, error)
}

// Preparer is implemented by detectors that need a warm-up before the camera opens.
type Preparer interface {
	Prepare(ctx context.Context) error
}
