package encode

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/gen2brain/webp"
)

// DecodeImage decodes tile bytes in the given format back to an image.
// Supported formats: "png", "webp".
func DecodeImage(data []byte, format string) (image.Image, error) {
	r := bytes.NewReader(data)
	switch format {
	case "png":
		return png.Decode(r)
	case "webp":
		return webp.Decode(r)
	default:
		return nil, fmt.Errorf("unsupported decode format: %q", format)
	}
}

// FormatForExtension maps a tile file extension to its decode format name.
func FormatForExtension(ext string) (string, bool) {
	switch ext {
	case ".png":
		return "png", true
	case ".webp":
		return "webp", true
	default:
		return "", false
	}
}
