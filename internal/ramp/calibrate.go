package ramp

import "math"

// niceLadder holds the rounding targets for dynamic threshold ceilings.
// Values beyond the ladder fall back to ceiling at one significant digit.
var niceLadder = []float64{
	10, 20, 30, 40, 50, 60, 70, 80, 90, 100,
	120, 150, 200, 250, 300, 400, 500, 600, 700, 800, 900, 1000,
}

func roundUpNice(v float64) float64 {
	if v <= 0 {
		return 1.0
	}
	for _, step := range niceLadder {
		if v <= step {
			return step
		}
	}
	order := math.Pow(10, math.Floor(math.Log10(v)))
	return math.Ceil(v/order) * order
}

// Calibrate derives evenly spaced breakpoints from an observed data maximum:
// the maximum is rounded up to a nice ceiling, split into classes from zero,
// rounded to two decimals, and bumped where rounding collapsed a step. The
// returned slice is what both rendering and metadata must use. Returns nil
// when there are too few classes to calibrate.
func Calibrate(dataMax float64, classes int) []float64 {
	if classes < 2 {
		return nil
	}
	max := dataMax
	if !isFinite(max) || max <= 0 {
		max = 1.0
	}
	max = roundUpNice(max)

	breaks := make([]float64, classes)
	for i := range breaks {
		t := float64(i) / float64(classes-1)
		breaks[i] = math.Round(max*t*100) / 100
	}
	for i := 1; i < len(breaks); i++ {
		if breaks[i] <= breaks[i-1] {
			breaks[i] = breaks[i-1] + 0.01
		}
	}
	return breaks
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
