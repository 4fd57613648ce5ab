package facecapture

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/biopass-web/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingWarmer struct {
	calls atomic.Int32
	err   error
	delay time.Duration
}

func (w *countingWarmer) LoadModels(_ context.Context) error {
	w.calls.Add(1)
	time.Sleep(w.delay)
	return w.err
}

func TestModelLoader_LoadsOnceConcurrently(t *testing.T) {
	w := &countingWarmer{delay: 20 * time.Millisecond}
	l := NewModelLoader(w)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Ensure(context.Background()))
		}()
	}
	wg.Wait()
	require.NoError(t, l.Ensure(context.Background()))

	assert.Equal(t, int32(1), w.calls.Load())
	assert.True(t, l.Loaded())
}

func TestModelLoader_FailureCachedUntilReset(t *testing.T) {
	w := &countingWarmer{err: errors.New("models missing")}
	l := NewModelLoader(w)

	require.Error(t, l.Ensure(context.Background()))
	require.Error(t, l.Ensure(context.Background()))
	assert.Equal(t, int32(1), w.calls.Load())

	w.err = nil
	l.Reset()
	require.NoError(t, l.Ensure(context.Background()))
	assert.Equal(t, int32(2), w.calls.Load())
}

func TestLoadingDetector_PrepareRetriesAndOpenFails(t *testing.T) {
	w := &countingWarmer{err: errors.New("models missing")}
	det := LoadingDetector{Loader: NewModelLoader(w), Detector: &fakeDetector{}}
	c := NewController(&fakeCamera{frame: solidFrame(8, 8)}, det, Options{PollInterval: time.Hour})

	_, err := c.Open(context.Background())
	assert.ErrorIs(t, err, ErrDetectorUnavailable)

	w.err = nil
	_, err = c.Open(context.Background())
	require.NoError(t, err)
	c.Cancel()
	assert.Equal(t, int32(2), w.calls.Load())
}

func TestLoadingDetector_DetectWaitsForModels(t *testing.T) {
	w := &countingWarmer{}
	box := &domain.FaceBox{X: 1, Y: 1, Width: 2, Height: 2}
	det := LoadingDetector{Loader: NewModelLoader(w), Detector: &fakeDetector{box: box}}

	got, err := det.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)))

	require.NoError(t, err)
	assert.Equal(t, box, got)
	assert.Equal(t, int32(1), w.calls.Load())
}
