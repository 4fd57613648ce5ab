package facecapture

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"math"

	"github.com/biopass-web/internal/domain"
)

// PaddedRect expands box by padding (a fraction of its size) on every side
// and clamps the result to bounds.
func PaddedRect(box domain.FaceBox, padding float64, bounds image.Rectangle) image.Rectangle {
	padX := box.Width * padding
	padY := box.Height * padding
	r := image.Rect(
		bounds.Min.X+int(math.Floor(box.X-padX)),
		bounds.Min.Y+int(math.Floor(box.Y-padY)),
		bounds.Min.X+int(math.Ceil(box.X+box.Width+padX)),
		bounds.Min.Y+int(math.Ceil(box.Y+box.Height+padY)),
	)
	return r.Intersect(bounds)
}

// CropPNG crops frame to the padded face box and encodes it as PNG.
func CropPNG(frame image.Image, box domain.FaceBox, padding float64) ([]byte, error) {
	r := PaddedRect(box, padding, frame.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("face box outside frame: %w", domain.ErrNoFace)
	}

	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), frame, r.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
