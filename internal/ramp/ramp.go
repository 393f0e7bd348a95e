package ramp

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// DefaultAlpha is the opacity applied to every ramp color. Tiles are drawn
// over a basemap, so rendered pixels stay slightly translucent.
const DefaultAlpha = 200

// Ramp is a piecewise-linear color scale over strictly increasing
// breakpoints. Values below the first breakpoint clamp to the first color,
// values at or above the last breakpoint take the last color exactly.
type Ramp struct {
	breaks []float64
	colors []color.NRGBA
}

// New builds a ramp. Breakpoints and colors must pair up, with at least two
// of each, and breakpoints must be strictly increasing.
func New(breaks []float64, colors []color.NRGBA) (*Ramp, error) {
	if len(breaks) != len(colors) {
		return nil, fmt.Errorf("ramp: %d breakpoints for %d colors", len(breaks), len(colors))
	}
	if len(breaks) < 2 {
		return nil, fmt.Errorf("ramp: need at least 2 breakpoints, got %d", len(breaks))
	}
	for i := 1; i < len(breaks); i++ {
		if !(breaks[i] > breaks[i-1]) {
			return nil, fmt.Errorf("ramp: breakpoints not strictly increasing at index %d (%v <= %v)",
				i, breaks[i], breaks[i-1])
		}
	}
	return &Ramp{breaks: append([]float64(nil), breaks...), colors: append([]color.NRGBA(nil), colors...)}, nil
}

// WithBreakpoints returns a ramp with the same colors over new breakpoints.
func (r *Ramp) WithBreakpoints(breaks []float64) (*Ramp, error) {
	return New(breaks, r.colors)
}

// Breakpoints returns a copy of the ramp's breakpoints.
func (r *Ramp) Breakpoints() []float64 {
	return append([]float64(nil), r.breaks...)
}

// Classes returns the number of breakpoint/color pairs.
func (r *Ramp) Classes() int {
	return len(r.breaks)
}

// At maps a value to its ramp color. Within a segment each channel is
// interpolated independently and truncated to 8 bits.
func (r *Ramp) At(v float64) color.NRGBA {
	if math.IsNaN(v) {
		return color.NRGBA{}
	}
	last := len(r.breaks) - 1
	if v >= r.breaks[last] {
		return r.colors[last]
	}
	seg := last - 1
	for i := 0; i < last; i++ {
		if v < r.breaks[i+1] {
			seg = i
			break
		}
	}
	lower, upper := r.breaks[seg], r.breaks[seg+1]
	span := upper - lower
	t := 0.0
	if span > 0 {
		t = (v - lower) / span
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
	}
	c0, c1 := r.colors[seg], r.colors[seg+1]
	return color.NRGBA{
		R: lerpChannel(t, c0.R, c1.R),
		G: lerpChannel(t, c0.G, c1.G),
		B: lerpChannel(t, c0.B, c1.B),
		A: lerpChannel(t, c0.A, c1.A),
	}
}

func lerpChannel(t float64, a, b uint8) uint8 {
	x := (1 - t) * float64(a)
	y := t * float64(b)
	return uint8(x + y)
}

// ParseHex parses a "#rrggbb" color, attaching the given alpha.
func ParseHex(s string, alpha uint8) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: alpha}, nil
}
