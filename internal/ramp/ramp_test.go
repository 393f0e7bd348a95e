package ramp

import (
	"image/color"
	"math"
	"testing"
)

func TestRampAt_PM25(t *testing.T) {
	r := PM25.DefaultRamp()

	tests := []struct {
		name string
		v    float64
		want color.NRGBA
	}{
		{"below first clamps to first color", -5, color.NRGBA{0, 255, 0, 200}},
		{"first breakpoint", 0, color.NRGBA{0, 255, 0, 200}},
		{"interpolated mid segment", 20, color.NRGBA{255, 201, 0, 200}},
		{"second breakpoint exact", 12, color.NRGBA{255, 255, 0, 200}},
		{"last breakpoint", 150, color.NRGBA{128, 0, 128, 200}},
		{"above last clamps to last color", 900, color.NRGBA{128, 0, 128, 200}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.At(tt.v)
			if got != tt.want {
				t.Errorf("At(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestRampAt_BreakpointColorsExact(t *testing.T) {
	// Evaluating exactly at a breakpoint must return that breakpoint's
	// color with no interpolation drift.
	for _, l := range Layers() {
		r := l.DefaultRamp()
		breaks := r.Breakpoints()
		for i, b := range breaks {
			got := r.At(b)
			want := r.colors[i]
			if got != want {
				t.Errorf("%s: At(breakpoint %d = %v) = %v, want %v", l, i, b, got, want)
			}
		}
	}
}

func TestRampAt_ChannelsWithinSegmentEndpoints(t *testing.T) {
	r := Precipitation.DefaultRamp()
	breaks := r.Breakpoints()
	for i := 0; i < len(breaks)-1; i++ {
		lo, hi := breaks[i], breaks[i+1]
		mid := lo + (hi-lo)/3
		c := r.At(mid)
		c0, c1 := r.colors[i], r.colors[i+1]
		checkBetween := func(name string, v, a, b uint8) {
			min, max := a, b
			if min > max {
				min, max = max, min
			}
			if v < min || v > max {
				t.Errorf("segment %d %s: At(%v).%s = %d outside [%d, %d]", i, name, mid, name, v, min, max)
			}
		}
		checkBetween("R", c.R, c0.R, c1.R)
		checkBetween("G", c.G, c0.G, c1.G)
		checkBetween("B", c.B, c0.B, c1.B)
	}
}

func TestRampAt_Truncates(t *testing.T) {
	r, err := New([]float64{0, 255}, []color.NRGBA{
		{0, 0, 0, 200},
		{255, 255, 255, 200},
	})
	if err != nil {
		t.Fatal(err)
	}

	// t = 127.9/255 gives channel 127.9, which truncates to 127.
	if got := r.At(127.9).R; got != 127 {
		t.Errorf("At(127.9).R = %d, want 127 (truncated)", got)
	}
	if got := r.At(0.9).R; got != 0 {
		t.Errorf("At(0.9).R = %d, want 0 (truncated)", got)
	}
}

func TestRampAt_NaN(t *testing.T) {
	r := UV.DefaultRamp()
	if got := r.At(math.NaN()); got != (color.NRGBA{}) {
		t.Errorf("At(NaN) = %v, want zero color", got)
	}
}

func TestNew_Validation(t *testing.T) {
	c := []color.NRGBA{{}, {}, {}}

	if _, err := New([]float64{0, 1}, c); err == nil {
		t.Error("mismatched breakpoint/color lengths accepted")
	}
	if _, err := New([]float64{0}, c[:1]); err == nil {
		t.Error("single breakpoint accepted")
	}
	if _, err := New([]float64{0, 5, 5}, c); err == nil {
		t.Error("non-increasing breakpoints accepted")
	}
	if _, err := New([]float64{0, 5, 4}, c); err == nil {
		t.Error("decreasing breakpoints accepted")
	}
	if _, err := New([]float64{0, 5, 10}, c); err != nil {
		t.Errorf("valid ramp rejected: %v", err)
	}
}

func TestWithBreakpoints(t *testing.T) {
	r := PM25.DefaultRamp()
	cal, err := r.WithBreakpoints([]float64{0, 5, 10, 15, 20})
	if err != nil {
		t.Fatal(err)
	}

	// Colors carry over: the last calibrated breakpoint maps to the same
	// color as the original ramp's last breakpoint.
	if got, want := cal.At(20), r.At(150); got != want {
		t.Errorf("calibrated last color = %v, want %v", got, want)
	}
	if got, want := cal.At(0), r.At(0); got != want {
		t.Errorf("calibrated first color = %v, want %v", got, want)
	}

	if _, err := r.WithBreakpoints([]float64{0, 1}); err == nil {
		t.Error("breakpoint count mismatch accepted")
	}
}

func TestDefaultRamps_Alpha(t *testing.T) {
	for _, l := range Layers() {
		for i, c := range l.DefaultRamp().colors {
			if c.A != DefaultAlpha {
				t.Errorf("%s color %d alpha = %d, want %d", l, i, c.A, DefaultAlpha)
			}
		}
	}
}

func TestParseHex(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{"#ff6600", color.NRGBA{255, 102, 0, 200}, false},
		{"00008b", color.NRGBA{0, 0, 139, 200}, false},
		{"#8B4513", color.NRGBA{139, 69, 19, 200}, false},
		{"#fff", color.NRGBA{}, true},
		{"#zzzzzz", color.NRGBA{}, true},
		{"", color.NRGBA{}, true},
	}

	for _, tt := range tests {
		got, err := ParseHex(tt.in, 200)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseHex(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseHex(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
