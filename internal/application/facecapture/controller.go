// Package facecapture owns the camera stream during a capture attempt: it
// polls for face presence on a fixed interval and produces one cropped PNG
// of the detected face on demand.
package facecapture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/biopass-web/internal/domain"
)

const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultPadding      = 0.2
)

var (
	// ErrNotOpen is returned by Capture when no stream is open.
	ErrNotOpen = fmt.Errorf("camera is not open: %w", domain.ErrInvalidTransition)
	// ErrSuperseded is returned by Open when a Cancel or newer Open won the race.
	ErrSuperseded = errors.New("capture attempt superseded")
	// ErrDetectorUnavailable wraps detector warm-up failures.
	ErrDetectorUnavailable = errors.New("face detector unavailable")
)

type Options struct {
	PollInterval time.Duration
	Padding      float64
}

// Capture is the artifact of a successful capture, tagged with its attempt.
type Capture struct {
	Attempt uint64
	Image   []byte // PNG
	Box     domain.FaceBox
}

// Controller is exclusively responsible for one camera stream at a time.
type Controller struct {
	camera   Camera
	detector Detector
	opts     Options

	mu       sync.Mutex
	attempt  uint64
	stream   Stream
	present  bool
	box      *domain.FaceBox
	frame    image.Image
	stopPoll context.CancelFunc
	pollDone chan struct{}
}

func NewController(camera Camera, detector Detector, opts Options) *Controller {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Padding <= 0 {
		opts.Padding = DefaultPadding
	}
	return &Controller{camera: camera, detector: detector, opts: opts}
}

// Open starts a new capture attempt and returns its sequence number. Any
// stream left over from an earlier attempt is stopped first.
func (c *Controller) Open(ctx context.Context) (uint64, error) {
	if p, ok := c.detector.(Preparer); ok {
		if err := p.Prepare(ctx); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrDetectorUnavailable, err)
		}
	}

	c.mu.Lock()
	done := c.stopLocked()
	c.attempt++
	attempt := c.attempt
	c.mu.Unlock()
	wait(done)

	stream, err := c.camera.Open(ctx)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	if c.attempt != attempt {
		c.mu.Unlock()
		_ = stream.Close()
		return 0, ErrSuperseded
	}
	pollCtx, cancel := context.WithCancel(context.Background())
	c.stream = stream
	c.stopPoll = cancel
	c.pollDone = make(chan struct{})
	go c.poll(pollCtx, attempt, stream, c.pollDone)
	c.mu.Unlock()

	slog.Debug("camera opened", "attempt", attempt)
	return attempt, nil
}

// PollPresence runs one detection pass over the current frame.
func (c *Controller) PollPresence(ctx context.Context) {
	c.mu.Lock()
	stream, attempt := c.stream, c.attempt
	c.mu.Unlock()
	if stream == nil {
		return
	}
	c.pollOnce(ctx, attempt, stream)
}

// Present reports the outcome of the latest presence check.
func (c *Controller) Present() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.present
}

// Attempt returns the current attempt sequence number.
func (c *Controller) Attempt() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt
}

// IsOpen reports whether a stream is currently held.
func (c *Controller) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream != nil
}

// Capture crops the frame of the latest positive presence check and stops
// the stream. It fails with domain.ErrNoFace if the latest check found no face.
func (c *Controller) Capture(_ context.Context) (*Capture, error) {
	c.mu.Lock()
	if c.stream == nil {
		c.mu.Unlock()
		return nil, ErrNotOpen
	}
	if !c.present || c.box == nil || c.frame == nil {
		c.mu.Unlock()
		return nil, domain.ErrNoFace
	}
	box, frame, attempt := *c.box, c.frame, c.attempt
	img, err := CropPNG(frame, box, c.opts.Padding)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	done := c.stopLocked()
	c.mu.Unlock()
	wait(done)

	slog.Debug("face captured", "attempt", attempt, "bytes", len(img))
	return &Capture{Attempt: attempt, Image: img, Box: box}, nil
}

// Cancel stops the stream and the poll, and invalidates an Open still in
// flight. Safe to call when already stopped.
func (c *Controller) Cancel() {
	c.mu.Lock()
	done := c.stopLocked()
	c.attempt++
	c.mu.Unlock()
	wait(done)
}

// stopLocked releases the stream and cancels the poll. The caller must wait
// on the returned channel after unlocking so the poll goroutine can exit.
func (c *Controller) stopLocked() chan struct{} {
	if c.stream == nil {
		return nil
	}
	c.stopPoll()
	if err := c.stream.Close(); err != nil {
		slog.Warn("closing camera stream", "attempt", c.attempt, "err", err)
	}
	done := c.pollDone
	c.stream = nil
	c.stopPoll = nil
	c.pollDone = nil
	c.present = false
	c.box = nil
	c.frame = nil
	return done
}

func (c *Controller) poll(ctx context.Context, attempt uint64, stream Stream, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.pollOnce(ctx, attempt, stream)
		}
	}
}

// pollOnce is single-shot: any failure simply records "no face" for this tick.
func (c *Controller) pollOnce(ctx context.Context, attempt uint64, stream Stream) {
	frame, err := stream.Frame(ctx)
	if err != nil {
		c.record(attempt, stream, nil, nil)
		return
	}
	box, err := c.detector.Detect(ctx, frame)
	if err != nil {
		slog.Debug("face detection pass failed", "attempt", attempt, "err", err)
		box = nil
	}
	c.record(attempt, stream, frame, box)
}

func (c *Controller) record(attempt uint64, stream Stream, frame image.Image, box *domain.FaceBox) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attempt != attempt || c.stream != stream {
		return
	}
	c.present = box != nil
	c.box = box
	if box != nil {
		c.frame = frame
	} else {
		c.frame = nil
	}
}

func wait(done chan struct{}) {
	if done != nil {
		<-done
	}
}
