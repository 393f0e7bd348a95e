// Package ramp defines the climate layers, their piecewise-linear color
// ramps, and the dynamic threshold calibration used for rendering.
package ramp

import (
	"fmt"
	"image/color"
	"strings"
)

// Layer identifies one of the rendered climate variables.
type Layer int

const (
	PM25 Layer = iota
	Precipitation
	UV
	Humidity
	Temperature
)

var layerNames = [...]string{"pm25", "precipitation", "uv", "humidity", "temperature"}
var layerUnits = [...]string{"µg/m³", "mm", "UVI", "%", "°C"}

// ParseLayer resolves a layer name. Unknown names are an error: layers form
// a closed set and misspellings must fail before any tiles are written.
func ParseLayer(name string) (Layer, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, ln := range layerNames {
		if n == ln {
			return Layer(i), nil
		}
	}
	return 0, fmt.Errorf("unknown layer %q (valid: %s)", name, strings.Join(layerNames[:], ", "))
}

// Layers returns all layers in rendering order.
func Layers() []Layer {
	return []Layer{PM25, Precipitation, UV, Humidity, Temperature}
}

func (l Layer) String() string {
	if l < 0 || int(l) >= len(layerNames) {
		return fmt.Sprintf("layer(%d)", int(l))
	}
	return layerNames[l]
}

// Units returns the display unit of the layer's values.
func (l Layer) Units() string {
	if l < 0 || int(l) >= len(layerUnits) {
		return ""
	}
	return layerUnits[l]
}

// Dynamic reports whether the layer's thresholds are recalibrated from the
// observed data range by default. Only PM2.5 and precipitation are; the
// remaining layers use fixed climatological scales.
func (l Layer) Dynamic() bool {
	return l == PM25 || l == Precipitation
}

// DefaultRamp returns the layer's built-in color ramp.
func (l Layer) DefaultRamp() *Ramp {
	return defaultRamps[l]
}

var defaultRamps = map[Layer]*Ramp{
	PM25:          mustRamp([]float64{0, 12, 35, 55, 150}, "#00ff00", "#ffff00", "#ff6600", "#ff0000", "#800080"),
	Precipitation: mustRamp([]float64{0, 0.5, 2, 10, 50}, "#ffffff", "#87ceeb", "#4169e1", "#0000ff", "#00008b"),
	UV:            mustRamp([]float64{0, 3, 6, 8, 11}, "#289500", "#f7e400", "#f85900", "#d8001d", "#6b49c8"),
	Humidity:      mustRamp([]float64{0, 30, 50, 70, 90}, "#8b4513", "#daa520", "#ffd700", "#87ceeb", "#4169e1"),
	Temperature:   mustRamp([]float64{0, 10, 20, 30, 40}, "#0000ff", "#87ceeb", "#ffff00", "#ff6600", "#ff0000"),
}

func mustRamp(breaks []float64, hex ...string) *Ramp {
	colors := make([]color.NRGBA, len(hex))
	for i, h := range hex {
		c, err := ParseHex(h, DefaultAlpha)
		if err != nil {
			panic(err)
		}
		colors[i] = c
	}
	r, err := New(breaks, colors)
	if err != nil {
		panic(err)
	}
	return r
}
