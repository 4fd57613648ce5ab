package facecapture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/biopass-web/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeStream struct {
	mu     sync.Mutex
	frame  image.Image
	closed int
}

func (s *fakeStream) Frame(_ context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frame == nil {
		return nil, ErrNoFrame
	}
	return s.frame, nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *fakeStream) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeCamera struct {
	mu      sync.Mutex
	err     error
	streams []*fakeStream
	frame   image.Image
}

func (c *fakeCamera) Open(_ context.Context) (Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	s := &fakeStream{frame: c.frame}
	c.streams = append(c.streams, s)
	return s, nil
}

type fakeDetector struct {
	mu  sync.Mutex
	box *domain.FaceBox
	err error
}

func (d *fakeDetector) set(box *domain.FaceBox, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.box, d.err = box, err
}

func (d *fakeDetector) Detect(_ context.Context, _ image.Image) (*domain.FaceBox, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.box, d.err
}

func solidFrame(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	return img
}

// newTestController disables the background poll so tests drive PollPresence.
func newTestController() (*Controller, *fakeCamera, *fakeDetector) {
	cam := &fakeCamera{frame: solidFrame(200, 100)}
	det := &fakeDetector{}
	return NewController(cam, det, Options{PollInterval: time.Hour, Padding: 0.2}), cam, det
}

// --- tests ---

func TestOpen_AttemptNumbersIncrease(t *testing.T) {
	c, cam, _ := newTestController()

	a1, err := c.Open(context.Background())
	require.NoError(t, err)
	a2, err := c.Open(context.Background())
	require.NoError(t, err)

	assert.Greater(t, a2, a1)
	assert.Equal(t, 1, cam.streams[0].closeCount(), "reopen must stop the previous stream")
	c.Cancel()
}

func TestOpen_PermissionDenied(t *testing.T) {
	c, cam, _ := newTestController()
	cam.err = domain.ErrCameraAccessDenied

	_, err := c.Open(context.Background())

	assert.ErrorIs(t, err, domain.ErrCameraAccessDenied)
	assert.False(t, c.IsOpen())
}

func TestPollPresence_TracksLatestResult(t *testing.T) {
	c, _, det := newTestController()
	_, err := c.Open(context.Background())
	require.NoError(t, err)
	defer c.Cancel()

	c.PollPresence(context.Background())
	assert.False(t, c.Present())

	det.set(&domain.FaceBox{X: 50, Y: 20, Width: 40, Height: 40, Score: 0.9}, nil)
	c.PollPresence(context.Background())
	assert.True(t, c.Present())

	det.set(nil, nil)
	c.PollPresence(context.Background())
	assert.False(t, c.Present())
}

func TestPollPresence_DetectorErrorMeansNoFace(t *testing.T) {
	c, _, det := newTestController()
	_, err := c.Open(context.Background())
	require.NoError(t, err)
	defer c.Cancel()

	det.set(&domain.FaceBox{X: 1, Y: 1, Width: 10, Height: 10}, nil)
	c.PollPresence(context.Background())
	require.True(t, c.Present())

	det.set(nil, errors.New("detector down"))
	c.PollPresence(context.Background())
	assert.False(t, c.Present())
}

func TestCapture_NoFace(t *testing.T) {
	c, cam, _ := newTestController()
	_, err := c.Open(context.Background())
	require.NoError(t, err)
	defer c.Cancel()

	c.PollPresence(context.Background())
	_, err = c.Capture(context.Background())

	assert.ErrorIs(t, err, domain.ErrNoFace)
	assert.True(t, c.IsOpen(), "a failed capture keeps the stream")
	assert.Equal(t, 0, cam.streams[0].closeCount())
}

func TestCapture_NotOpen(t *testing.T) {
	c, _, _ := newTestController()

	_, err := c.Capture(context.Background())

	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestCapture_CropsAndStopsStream(t *testing.T) {
	c, cam, det := newTestController()
	attempt, err := c.Open(context.Background())
	require.NoError(t, err)
	det.set(&domain.FaceBox{X: 50, Y: 20, Width: 40, Height: 40, Score: 0.9}, nil)
	c.PollPresence(context.Background())

	got, err := c.Capture(context.Background())

	require.NoError(t, err)
	assert.Equal(t, attempt, got.Attempt)
	img, err := png.Decode(bytes.NewReader(got.Image))
	require.NoError(t, err)
	// 40px box + 8px padding each side.
	assert.Equal(t, 56, img.Bounds().Dx())
	assert.Equal(t, 56, img.Bounds().Dy())
	assert.False(t, c.IsOpen())
	assert.False(t, c.Present())
	assert.Equal(t, 1, cam.streams[0].closeCount())
}

func TestNewController_ZeroOptionsUseDefaults(t *testing.T) {
	cam := &fakeCamera{frame: solidFrame(200, 100)}
	det := &fakeDetector{}
	c := NewController(cam, det, Options{PollInterval: time.Hour})
	_, err := c.Open(context.Background())
	require.NoError(t, err)
	det.set(&domain.FaceBox{X: 50, Y: 20, Width: 40, Height: 40, Score: 0.9}, nil)
	c.PollPresence(context.Background())

	got, err := c.Capture(context.Background())

	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(got.Image))
	require.NoError(t, err)
	assert.Equal(t, 56, img.Bounds().Dx(), "default padding applied")
	assert.Equal(t, DefaultPollInterval, NewController(cam, det, Options{}).opts.PollInterval)
}

func TestCancel_Idempotent(t *testing.T) {
	c, cam, _ := newTestController()
	_, err := c.Open(context.Background())
	require.NoError(t, err)

	c.Cancel()
	c.Cancel()

	assert.False(t, c.IsOpen())
	assert.Equal(t, 1, cam.streams[0].closeCount())
}

func TestCancel_WithoutOpen(t *testing.T) {
	c, _, _ := newTestController()
	assert.NotPanics(t, c.Cancel)
}

func TestBackgroundPoll_DetectsFace(t *testing.T) {
	cam := &fakeCamera{frame: solidFrame(64, 64)}
	det := &fakeDetector{box: &domain.FaceBox{X: 10, Y: 10, Width: 20, Height: 20, Score: 0.8}}
	c := NewController(cam, det, Options{PollInterval: 5 * time.Millisecond})

	_, err := c.Open(context.Background())
	require.NoError(t, err)
	defer c.Cancel()

	assert.Eventually(t, c.Present, time.Second, 5*time.Millisecond)
}

func TestBackgroundPoll_StopsOnCancel(t *testing.T) {
	cam := &fakeCamera{frame: solidFrame(64, 64)}
	det := &fakeDetector{box: &domain.FaceBox{X: 10, Y: 10, Width: 20, Height: 20}}
	c := NewController(cam, det, Options{PollInterval: 5 * time.Millisecond})
	_, err := c.Open(context.Background())
	require.NoError(t, err)
	require.Eventually(t, c.Present, time.Second, 5*time.Millisecond)

	c.Cancel()
	time.Sleep(20 * time.Millisecond)

	assert.False(t, c.Present(), "no poll may record after cancel")
}
