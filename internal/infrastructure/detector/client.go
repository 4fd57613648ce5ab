// Package detector is the HTTP client for the face-detection service.
package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"time"

	"github.com/biopass-web/internal/domain"
)

// DefaultThreshold is the minimum detection score counted as a face.
const DefaultThreshold = 0.5

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	BaseURL    string
	Threshold  float64
	Timeout    time.Duration
	HTTPClient HTTPDoer
}

type Client struct {
	baseURL   string
	threshold float64
	http      HTTPDoer
}

func NewClient(cfg Config) *Client {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	doer := cfg.HTTPClient
	if doer == nil {
		doer = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{baseURL: cfg.BaseURL, threshold: cfg.Threshold, http: doer}
}

type detection struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Score  float64 `json:"score"`
}

type detectResponse struct {
	Detections []detection `json:"detections"`
}

// LoadModels asks the service to load its detection models.
func (c *Client) LoadModels(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("load models: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("load models: detector returned %d", resp.StatusCode)
	}
	return nil
}

// Detect returns the highest-scoring face at or above the threshold, or nil.
func (c *Client) Detect(ctx context.Context, frame image.Image) (*domain.FaceBox, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "image/png")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("detect: detector returned %d", resp.StatusCode)
	}

	var out detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode detections: %w", err)
	}
	return c.best(out.Detections), nil
}

func (c *Client) best(ds []detection) *domain.FaceBox {
	var top *detection
	for i := range ds {
		d := &ds[i]
		if d.Score < c.threshold || d.Width <= 0 || d.Height <= 0 {
			continue
		}
		if top == nil || d.Score > top.Score {
			top = d
		}
	}
	if top == nil {
		return nil
	}
	return &domain.FaceBox{X: top.X, Y: top.Y, Width: top.Width, Height: top.Height, Score: top.Score}
}
