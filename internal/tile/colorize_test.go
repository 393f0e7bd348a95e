package tile

import (
	"image/color"
	"math"
	"testing"

	"github.com/wangchao9240/CLISAPP-fullstack/internal/ramp"
)

func TestColorize(t *testing.T) {
	rm := ramp.PM25.DefaultRamp()
	nan := float32(math.NaN())

	vals := []float32{
		20, 0,
		nan, 20,
	}
	img := Colorize(vals, rm, 2)
	if img == nil {
		t.Fatal("Colorize returned nil for a grid with data")
	}
	defer PutNRGBA(img)

	// 20 µg/m³ sits in the yellow-to-orange segment of the default scale.
	want := color.NRGBA{R: 255, G: 201, B: 0, A: 200}
	for _, idx := range []int{0, 3} {
		off := idx * 4
		got := color.NRGBA{R: img.Pix[off], G: img.Pix[off+1], B: img.Pix[off+2], A: img.Pix[off+3]}
		if got != want {
			t.Errorf("pixel %d = %v, want %v", idx, got, want)
		}
	}
	for _, idx := range []int{1, 2} {
		if a := img.Pix[idx*4+3]; a != 0 {
			t.Errorf("missing pixel %d has alpha %d, want fully transparent", idx, a)
		}
	}
}

func TestColorize_AllMissingReturnsNil(t *testing.T) {
	vals := []float32{0, 0, float32(math.NaN()), 0}
	if img := Colorize(vals, ramp.PM25.DefaultRamp(), 2); img != nil {
		PutNRGBA(img)
		t.Fatal("Colorize returned an image for an all-missing grid")
	}
}

func TestColorize_PooledImageStartsClean(t *testing.T) {
	rm := ramp.PM25.DefaultRamp()

	// Fill a pooled image completely, release it, then colorize a sparse
	// grid. Stale pixels from the previous tenant must not show through.
	full := Colorize([]float32{20, 20, 20, 20}, rm, 2)
	if full == nil {
		t.Fatal("Colorize returned nil")
	}
	PutNRGBA(full)

	sparse := Colorize([]float32{20, 0, 0, 0}, rm, 2)
	if sparse == nil {
		t.Fatal("Colorize returned nil")
	}
	defer PutNRGBA(sparse)

	for _, idx := range []int{1, 2, 3} {
		off := idx * 4
		for c := 0; c < 4; c++ {
			if sparse.Pix[off+c] != 0 {
				t.Fatalf("pixel %d channel %d = %d, want 0 after pool reuse", idx, c, sparse.Pix[off+c])
			}
		}
	}
}
