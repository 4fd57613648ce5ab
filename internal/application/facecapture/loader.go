package facecapture

import (
	"context"
	"image"
	"log/slog"
	"sync"

	"github.com/biopass-web/internal/domain"
	"golang.org/x/sync/singleflight"
)

// ModelWarmer loads detection models on the detector side.
type ModelWarmer interface {
	LoadModels(ctx context.Context) error
}

// ModelLoader loads models at most once. Concurrent callers share one
// in-flight load. Success is cached for the process lifetime; a failure is
// cached until Reset.
type ModelLoader struct {
	warmer ModelWarmer
	group  singleflight.Group

	mu     sync.Mutex
	loaded bool
	err    error
}

func NewModelLoader(warmer ModelWarmer) *ModelLoader {
	return &ModelLoader{warmer: warmer}
}

func (l *ModelLoader) Ensure(ctx context.Context) error {
	l.mu.Lock()
	loaded, cached := l.loaded, l.err
	l.mu.Unlock()
	if loaded {
		return nil
	}
	if cached != nil {
		return cached
	}

	_, err, _ := l.group.Do("models", func() (any, error) {
		err := l.warmer.LoadModels(context.WithoutCancel(ctx))
		l.mu.Lock()
		if err == nil {
			l.loaded = true
		} else {
			l.err = err
		}
		l.mu.Unlock()
		if err != nil {
			slog.Error("loading face detection models", "err", err)
		} else {
			slog.Info("face detection models loaded")
		}
		return nil, err
	})
	return err
}

// Reset clears a cached failure so the next Ensure retries.
func (l *ModelLoader) Reset() {
	l.mu.Lock()
	l.err = nil
	l.mu.Unlock()
}

func (l *ModelLoader) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

// LoadingDetector gates a Detector behind a ModelLoader.
type LoadingDetector struct {
	Loader   *ModelLoader
	Detector Detector
}

// Prepare is called on every user-initiated camera open; it retries a
// previously failed load.
func (d LoadingDetector) Prepare(ctx context.Context) error {
	d.Loader.Reset()
	return d.Loader.Ensure(ctx)
}

func (d LoadingDetector) Detect(ctx context.Context, frame image.Image) (*domain.FaceBox, error) {
	if err := d.Loader.Ensure(ctx); err != nil {
		return nil, err
	}
	return d.Detector.Detect(ctx, frame)
}
