package ramp

import (
	"math"
	"testing"
)

func TestRoundUpNice(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{-3, 1},
		{0, 1},
		{0.004, 10},
		{1.0, 10},
		{10, 10},
		{10.1, 20},
		{87, 90},
		{100, 100},
		{101, 120},
		{130, 150},
		{250, 250},
		{999, 1000},
		{1000, 1000},
		{1001, 2000},
		{1500, 2000},
		{12345, 20000},
	}

	for _, tt := range tests {
		if got := roundUpNice(tt.in); got != tt.want {
			t.Errorf("roundUpNice(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCalibrate(t *testing.T) {
	tests := []struct {
		name    string
		dataMax float64
		want    []float64
	}{
		{"uniform twenty", 20, []float64{0, 5, 10, 15, 20}},
		{"small positive", 3.7, []float64{0, 2.5, 5, 7.5, 10}},
		{"mid range", 87, []float64{0, 22.5, 45, 67.5, 90}},
		{"above hundred", 101, []float64{0, 30, 60, 90, 120}},
		{"beyond ladder", 1500, []float64{0, 500, 1000, 1500, 2000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calibrate(tt.dataMax, 5)
			if len(got) != len(tt.want) {
				t.Fatalf("Calibrate(%v, 5) = %v, want %v", tt.dataMax, got, tt.want)
			}
			for i := range got {
				if math.Abs(got[i]-tt.want[i]) > 1e-9 {
					t.Errorf("Calibrate(%v, 5)[%d] = %v, want %v", tt.dataMax, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestCalibrate_DegenerateMaxima(t *testing.T) {
	// All-zero, negative, NaN, and Inf maxima all collapse to the same
	// floor ceiling so a valid scale always comes out.
	want := Calibrate(0, 5)
	for _, v := range []float64{-5, math.NaN(), math.Inf(1), math.Inf(-1)} {
		got := Calibrate(v, 5)
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("Calibrate(%v, 5) = %v, want %v", v, got, want)
				break
			}
		}
	}
	if want[len(want)-1] != 10 {
		t.Errorf("degenerate ceiling = %v, want 10", want[len(want)-1])
	}
}

func TestCalibrate_StrictlyIncreasing(t *testing.T) {
	for _, classes := range []int{2, 5, 100, 3000} {
		breaks := Calibrate(10, classes)
		if len(breaks) != classes {
			t.Fatalf("classes=%d: got %d breakpoints", classes, len(breaks))
		}
		for i := 1; i < len(breaks); i++ {
			if breaks[i] <= breaks[i-1] {
				t.Fatalf("classes=%d: breaks[%d]=%v <= breaks[%d]=%v",
					classes, i, breaks[i], i-1, breaks[i-1])
			}
		}
	}
}

func TestCalibrate_TooFewClasses(t *testing.T) {
	if got := Calibrate(50, 1); got != nil {
		t.Errorf("Calibrate(50, 1) = %v, want nil", got)
	}
	if got := Calibrate(50, 0); got != nil {
		t.Errorf("Calibrate(50, 0) = %v, want nil", got)
	}
}
