package facecapture

import (
	"context"
	"errors"
	"image"
	"sync"

	"github.com/biopass-web/internal/domain"
)

// ErrNoFrame is returned by a stream that has not received a frame yet.
var ErrNoFrame = errors.New("no frame received")

// BrowserCamera is a Camera whose frames are pushed by the browser. The
// browser reports the outcome of its own permission prompt before opening.
type BrowserCamera struct {
	mu      sync.Mutex
	granted bool
	current *browserStream
}

func NewBrowserCamera() *BrowserCamera {
	return &BrowserCamera{}
}

// SetPermission records whether the browser granted camera access.
func (b *BrowserCamera) SetPermission(granted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.granted = granted
}

func (b *BrowserCamera) Open(_ context.Context) (Stream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.granted {
		return nil, domain.ErrCameraAccessDenied
	}
	s := &browserStream{owner: b}
	b.current = s
	return s, nil
}

// PushFrame hands the latest frame to the open stream.
func (b *BrowserCamera) PushFrame(img image.Image) error {
	b.mu.Lock()
	s := b.current
	b.mu.Unlock()
	if s == nil {
		return ErrNotOpen
	}
	return s.push(img)
}

func (b *BrowserCamera) release(s *browserStream) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == s {
		b.current = nil
	}
}

type browserStream struct {
	owner *BrowserCamera

	mu     sync.Mutex
	frame  image.Image
	closed bool
}

func (s *browserStream) push(img image.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrNotOpen
	}
	s.frame = img
	return nil
}

func (s *browserStream) Frame(_ context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrNotOpen
	}
	if s.frame == nil {
		return nil, ErrNoFrame
	}
	return s.frame, nil
}

func (s *browserStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.frame = nil
	s.mu.Unlock()
	s.owner.release(s)
	return nil
}
