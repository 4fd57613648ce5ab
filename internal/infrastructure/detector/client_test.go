package detector

import (
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, detections []detection) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models":
			w.WriteHeader(http.StatusOK)
		case "/detect":
			assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
			_, err := png.Decode(r.Body)
			assert.NoError(t, err)
			_ = json.NewEncoder(w).Encode(detectResponse{Detections: detections})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func frame() image.Image { return image.NewRGBA(image.Rect(0, 0, 16, 16)) }

func TestDetect_PicksBestAboveThreshold(t *testing.T) {
	srv := newServer(t, []detection{
		{X: 1, Y: 1, Width: 4, Height: 4, Score: 0.6},
		{X: 2, Y: 2, Width: 5, Height: 5, Score: 0.9},
		{X: 3, Y: 3, Width: 6, Height: 6, Score: 0.3},
	})
	c := NewClient(Config{BaseURL: srv.URL})

	box, err := c.Detect(context.Background(), frame())

	require.NoError(t, err)
	require.NotNil(t, box)
	assert.InDelta(t, 0.9, box.Score, 1e-9)
	assert.InDelta(t, 5, box.Width, 1e-9)
}

func TestDetect_BelowThresholdIsNoFace(t *testing.T) {
	srv := newServer(t, []detection{{X: 1, Y: 1, Width: 4, Height: 4, Score: 0.49}})
	c := NewClient(Config{BaseURL: srv.URL})

	box, err := c.Detect(context.Background(), frame())

	require.NoError(t, err)
	assert.Nil(t, box)
}

func TestDetect_ExactThresholdCounts(t *testing.T) {
	srv := newServer(t, []detection{{X: 1, Y: 1, Width: 4, Height: 4, Score: 0.5}})
	c := NewClient(Config{BaseURL: srv.URL})

	box, err := c.Detect(context.Background(), frame())

	require.NoError(t, err)
	assert.NotNil(t, box)
}

func TestDetect_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}).Detect(context.Background(), frame())

	assert.ErrorContains(t, err, "503")
}

func TestLoadModels(t *testing.T) {
	srv := newServer(t, nil)
	assert.NoError(t, NewClient(Config{BaseURL: srv.URL}).LoadModels(context.Background()))
	assert.Error(t, NewClient(Config{BaseURL: srv.URL + "/missing"}).LoadModels(context.Background()))
}
