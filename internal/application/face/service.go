// Package face manages the account's enrolled face template.
package face

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"io"

	"github.com/biopass-web/internal/application/facecapture"
	"github.com/biopass-web/internal/domain"
)

type Service interface {
	Status(ctx context.Context, clientID string) (bool, error)
	Enroll(ctx context.Context, clientID string, r io.Reader) error
}

type backend interface {
	FaceRegistered(ctx context.Context, clientID string) (bool, error)
	UploadFace(ctx context.Context, clientID string, png []byte) error
}

type recorder interface {
	Record(ctx context.Context, clientID, action, detail string)
}

type service struct {
	backend backend
	audit   recorder
}

func NewService(backend backend, audit recorder) Service {
	return &service{backend: backend, audit: audit}
}

func (s *service) Status(ctx context.Context, clientID string) (bool, error) {
	return s.backend.FaceRegistered(ctx, clientID)
}

// Enroll accepts a PNG or JPEG upload and registers it as face.png.
func (s *service) Enroll(ctx context.Context, clientID string, r io.Reader) error {
	img, err := facecapture.DecodeFrame(r)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBadRequest, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	if err := s.backend.UploadFace(ctx, clientID, buf.Bytes()); err != nil {
		return err
	}
	s.audit.Record(ctx, clientID, domain.AuditFaceEnrolled, "")
	return nil
}
