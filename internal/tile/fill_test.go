package tile

import (
	"math"
	"math/rand"
	"testing"
)

func TestMissing(t *testing.T) {
	nan := float32(math.NaN())
	cases := []struct {
		v    float32
		want bool
	}{
		{0, true},
		{nan, true},
		{0.0001, false},
		{-3.5, false},
		{20, false},
	}
	for _, tc := range cases {
		if got := missing(tc.v); got != tc.want {
			t.Errorf("missing(%v) = %v, want %v", tc.v, got, tc.want)
		}
	}
}

func TestValidRatio(t *testing.T) {
	nan := float32(math.NaN())
	cases := []struct {
		name string
		vals []float32
		want float64
	}{
		{"empty", nil, 0},
		{"all valid", []float32{1, 2, 3, 4}, 1},
		{"half", []float32{1, 0, nan, 2}, 0.5},
		{"none", []float32{0, 0, nan, 0}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := validRatio(tc.vals); got != tc.want {
				t.Errorf("validRatio = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFillMissing_NeighborPriority(t *testing.T) {
	// Center has all four neighbors; the one above wins. Corners fall
	// through to their first available direction.
	vals := []float32{
		0, 2, 0,
		4, 0, 6,
		0, 8, 0,
	}
	fillMissing(vals, 3, 3)

	want := []float32{
		4, 2, 6,
		4, 2, 6,
		4, 8, 6,
	}
	for i := range want {
		if vals[i] != want[i] {
			t.Errorf("vals[%d] = %v, want %v", i, vals[i], want[i])
		}
	}
}

func TestFillMissing_ReadsOriginalValues(t *testing.T) {
	// The second gap's left neighbor is itself a gap that gets filled
	// during the pass. It must not propagate: neighbors are judged on
	// their original values.
	vals := []float32{5, 0, 0}
	fillMissing(vals, 3, 1)

	if vals[1] != 5 {
		t.Errorf("vals[1] = %v, want 5", vals[1])
	}
	if vals[2] != 0 {
		t.Errorf("vals[2] = %v, want 0 (no originally valid neighbor)", vals[2])
	}
}

func TestFillMissing_NaNNeighborUnusable(t *testing.T) {
	nan := float32(math.NaN())
	vals := []float32{nan, 0, 7}
	fillMissing(vals, 3, 1)

	if !isNaN32(vals[0]) {
		t.Errorf("vals[0] = %v, want NaN preserved", vals[0])
	}
	if vals[1] != 7 {
		t.Errorf("vals[1] = %v, want 7 (right neighbor, NaN left is not data)", vals[1])
	}
}

func TestFillMissing_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const w, h = 16, 16
	a := make([]float32, w*h)
	for i := range a {
		switch rng.Intn(4) {
		case 0:
			a[i] = 0
		case 1:
			a[i] = float32(math.NaN())
		default:
			a[i] = rng.Float32()*50 + 1
		}
	}
	b := make([]float32, len(a))
	copy(b, a)

	fillMissing(a, w, h)
	fillMissing(b, w, h)

	for i := range a {
		if a[i] != b[i] && !(isNaN32(a[i]) && isNaN32(b[i])) {
			t.Fatalf("pixel %d diverged: %v vs %v", i, a[i], b[i])
		}
	}
}
