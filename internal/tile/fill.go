package tile

// missing reports whether a sample carries no usable data. Zero counts as
// missing: the upstream datasets write zero where they have no reading,
// and true zero readings are indistinguishable from gaps.
func missing(v float32) bool {
	return v == 0 || isNaN32(v)
}

// validRatio returns the fraction of pixels carrying data.
func validRatio(vals []float32) float64 {
	if len(vals) == 0 {
		return 0
	}
	valid := 0
	for _, v := range vals {
		if !missing(v) {
			valid++
		}
	}
	return float64(valid) / float64(len(vals))
}

// fillMissing replaces each missing pixel with its first valid 4-neighbor,
// preferring up, then down, then left, then right. Neighbors are read from
// a snapshot taken before any replacement, so the pass is deterministic
// and a pixel with no valid neighbor stays missing.
func fillMissing(vals []float32, w, h int) {
	snap := make([]float32, len(vals))
	for i, v := range vals {
		if isNaN32(v) {
			snap[i] = 0
		} else {
			snap[i] = v
		}
	}

	for y := 0; y < h; y++ {
		row := y * w
		for x := 0; x < w; x++ {
			idx := row + x
			if !missing(vals[idx]) {
				continue
			}
			switch {
			case y > 0 && snap[idx-w] != 0:
				vals[idx] = snap[idx-w]
			case y < h-1 && snap[idx+w] != 0:
				vals[idx] = snap[idx+w]
			case x > 0 && snap[idx-1] != 0:
				vals[idx] = snap[idx-1]
			case x < w-1 && snap[idx+1] != 0:
				vals[idx] = snap[idx+1]
			}
		}
	}
}
