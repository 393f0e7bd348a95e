// Package encode turns rendered tile images into bytes on disk and back.
// Tiles carry straight (non-premultiplied) alpha, so callers hand in
// *image.NRGBA and both formats preserve channel values exactly when
// encoding losslessly.
package encode

import (
	"fmt"
	"image"
)

// Encoder encodes an image into tile bytes.
type Encoder interface {
	// Encode encodes an image to bytes in the tile format.
	Encode(img image.Image) ([]byte, error)

	// Format returns the format name (e.g. "png", "webp").
	Format() string

	// FileExtension returns the appropriate file extension.
	FileExtension() string
}

// NewEncoder creates an encoder for the given format and quality. Quality
// applies to webp only; values <= 0 select the default, and 100 switches
// to lossless.
func NewEncoder(format string, quality int) (Encoder, error) {
	switch format {
	case "png":
		return &PNGEncoder{}, nil
	case "webp":
		return newWebPEncoder(quality), nil
	default:
		return nil, fmt.Errorf("unsupported tile format: %q (supported: png, webp)", format)
	}
}
