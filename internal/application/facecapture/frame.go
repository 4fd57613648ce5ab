package facecapture

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
)

// MaxFrameBytes bounds a single uploaded frame.
const MaxFrameBytes = 8 << 20

var ErrBadFrame = errors.New("invalid frame")

// DecodeFrame decodes a PNG or JPEG frame read from r.
func DecodeFrame(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(io.LimitReader(r, MaxFrameBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	return img, nil
}
