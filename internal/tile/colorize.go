package tile

import (
	"image"

	"github.com/wangchao9240/CLISAPP-fullstack/internal/ramp"
)

// Colorize renders a filled value grid through the ramp into a pooled
// image. Missing pixels stay fully transparent. Returns nil when every
// pixel is transparent; the caller owns the image otherwise and releases
// it with PutNRGBA.
func Colorize(vals []float32, rm *ramp.Ramp, size int) *image.NRGBA {
	img := GetNRGBA(size, size)
	pix := img.Pix
	visible := false

	for i, v := range vals {
		if missing(v) {
			continue
		}
		c := rm.At(float64(v))
		if c.A == 0 {
			continue
		}
		off := i * 4
		pix[off+0] = c.R
		pix[off+1] = c.G
		pix[off+2] = c.B
		pix[off+3] = c.A
		visible = true
	}

	if !visible {
		PutNRGBA(img)
		return nil
	}
	return img
}
