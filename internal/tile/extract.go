package tile

import (
	"math"

	"github.com/wangchao9240/CLISAPP-fullstack/internal/coord"
	"github.com/wangchao9240/CLISAPP-fullstack/internal/geotiff"
)

// Extract reads the value grid for one tile from a geographic raster. The
// tile's bounding box maps to a fractional pixel window through the
// raster's geotransform; when that window is exactly a size x size pixel
// block the crop is returned directly, otherwise the window is resampled
// bilinearly onto the output grid. Grid positions outside the raster are
// NaN. A tile whose box does not intersect the raster at all yields
// (nil, nil).
func Extract(rd *geotiff.Reader, z, x, y, size int) ([]float32, error) {
	geo := rd.GeoInfo()
	b := coord.TileBounds(z, x, y)
	w, h := rd.Width(), rd.Height()

	// Fractional pixel window of the tile box, in edge coordinates.
	left := (b.MinLon - geo.OriginX) / geo.PixelSizeX
	right := (b.MaxLon - geo.OriginX) / geo.PixelSizeX
	top := (geo.OriginY - b.MaxLat) / geo.PixelSizeY
	bottom := (geo.OriginY - b.MinLat) / geo.PixelSizeY

	if right <= 0 || left >= float64(w) || bottom <= 0 || top >= float64(h) {
		return nil, nil
	}

	if col, row, ok := alignedCrop(left, top, right, bottom, size, w, h); ok {
		return rd.ReadWindow(col, row, size, size)
	}

	// Fetch the covering source window once; every bilinear neighbor of
	// an in-raster output position falls inside it.
	sx0 := max(0, int(math.Floor(left))-1)
	sy0 := max(0, int(math.Floor(top))-1)
	sx1 := min(w-1, int(math.Ceil(right))+1)
	sy1 := min(h-1, int(math.Ceil(bottom))+1)
	sw := sx1 - sx0 + 1
	sh := sy1 - sy0 + 1
	win, err := rd.ReadWindow(sx0, sy0, sw, sh)
	if err != nil {
		return nil, err
	}

	// Output pixel centers in source pixel-center coordinates: linear in
	// lon and lat, so one pass per axis.
	fxs := make([]float64, size)
	fys := make([]float64, size)
	xStep := (right - left) / float64(size)
	yStep := (bottom - top) / float64(size)
	for i := 0; i < size; i++ {
		fxs[i] = left + (float64(i)+0.5)*xStep - 0.5
		fys[i] = top + (float64(i)+0.5)*yStep - 0.5
	}

	nan := float32(math.NaN())
	grid := make([]float32, size*size)
	for j := 0; j < size; j++ {
		fy := fys[j]
		rowOut := grid[j*size : (j+1)*size]
		if fy < -0.5 || fy > float64(h)-0.5 {
			for i := range rowOut {
				rowOut[i] = nan
			}
			continue
		}
		for i := 0; i < size; i++ {
			fx := fxs[i]
			if fx < -0.5 || fx > float64(w)-0.5 {
				rowOut[i] = nan
				continue
			}
			rowOut[i] = sampleBilinear(win, fx, fy, w, h, sx0, sy0, sw)
		}
	}
	return grid, nil
}

// alignedCrop reports whether the fractional window is an exact size x size
// pixel block inside the raster, returning its top-left pixel.
func alignedCrop(left, top, right, bottom float64, size, w, h int) (col, row int, ok bool) {
	const eps = 1e-6
	if math.Abs(left-math.Round(left)) > eps || math.Abs(top-math.Round(top)) > eps {
		return 0, 0, false
	}
	if math.Abs(right-left-float64(size)) > eps || math.Abs(bottom-top-float64(size)) > eps {
		return 0, 0, false
	}
	col = int(math.Round(left))
	row = int(math.Round(top))
	if col < 0 || row < 0 || col+size > w || row+size > h {
		return 0, 0, false
	}
	return col, row, true
}

// sampleBilinear interpolates the four neighbors of (fx, fy). A NaN
// neighbor would poison the blend, so those positions fall back to the
// nearest source pixel.
func sampleBilinear(win []float32, fx, fy float64, w, h, sx0, sy0, sw int) float32 {
	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	dx := fx - float64(x0)
	dy := fy - float64(y0)

	cx0 := min(max(x0, 0), w-1)
	cy0 := min(max(y0, 0), h-1)
	cx1 := min(max(x0+1, 0), w-1)
	cy1 := min(max(y0+1, 0), h-1)

	v00 := win[(cy0-sy0)*sw+(cx0-sx0)]
	v10 := win[(cy0-sy0)*sw+(cx1-sx0)]
	v01 := win[(cy1-sy0)*sw+(cx0-sx0)]
	v11 := win[(cy1-sy0)*sw+(cx1-sx0)]

	if isNaN32(v00) || isNaN32(v10) || isNaN32(v01) || isNaN32(v11) {
		nx := min(max(int(math.Floor(fx+0.5)), 0), w-1)
		ny := min(max(int(math.Floor(fy+0.5)), 0), h-1)
		return win[(ny-sy0)*sw+(nx-sx0)]
	}

	top := float64(v00)*(1-dx) + float64(v10)*dx
	bot := float64(v01)*(1-dx) + float64(v11)*dx
	return float32(top*(1-dy) + bot*dy)
}

func isNaN32(v float32) bool {
	return v != v
}
