package main

import (
	"fmt"
	"os"

	"github.com/wangchao9240/CLISAPP-fullstack/internal/coord"
	"github.com/wangchao9240/CLISAPP-fullstack/internal/geotiff"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: rasterinfo <file.tif>\n")
		os.Exit(1)
	}

	r, err := geotiff.Open(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer r.Close()

	fmt.Printf("File: %s\n", os.Args[1])
	fmt.Printf("EPSG: %d\n", r.EPSG())
	fmt.Printf("Size: %d x %d\n", r.Width(), r.Height())
	fmt.Printf("Sample type: %s\n", r.SampleTypeName())
	fmt.Printf("Compression: %s\n", r.CompressionName())
	fmt.Printf("Block layout: %s\n", r.BlockLayout())
	if r.NumOverviews() > 0 {
		fmt.Printf("Overviews: %d (ignored, full resolution only)\n", r.NumOverviews())
	}
	if nodata, ok := r.NoData(); ok {
		fmt.Printf("NoData: %g\n", nodata)
	}

	geo := r.GeoInfo()
	fmt.Printf("Origin: X=%f, Y=%f\n", geo.OriginX, geo.OriginY)
	fmt.Printf("Pixel size: %g x %g\n", geo.PixelSizeX, geo.PixelSizeY)

	minX, minY, maxX, maxY := r.BoundsInCRS()
	fmt.Printf("Bounds (CRS): X=[%f, %f], Y=[%f, %f]\n", minX, maxX, minY, maxY)
	b := r.Bounds()
	fmt.Printf("Bounds (WGS84): lon [%.6f, %.6f], lat [%.6f, %.6f]\n",
		b.MinLon, b.MaxLon, b.MinLat, b.MaxLat)

	groundMeters := coord.PixelSizeInGroundMeters(geo.PixelSizeX, r.EPSG(), b.CenterLat())
	fmt.Printf("Ground pixel size: %.1f m (at center latitude)\n", groundMeters)
	fmt.Printf("Suggested max zoom: %d\n",
		coord.MaxZoomForResolution(groundMeters, b.CenterLat(), coord.DefaultTileSize))

	if minV, maxV, ok := r.ValueRange(); ok {
		fmt.Printf("Value range: %g – %g\n", minV, maxV)
	} else {
		fmt.Printf("Value range: no finite samples\n")
	}

	sampleValues(r, 5)
}

// sampleValues prints a few values along the raster diagonal.
func sampleValues(r *geotiff.Reader, count int) {
	stepX := r.Width() / (count + 1)
	stepY := r.Height() / (count + 1)
	if stepX < 1 {
		stepX = 1
	}
	if stepY < 1 {
		stepY = 1
	}
	fmt.Printf("Sample values (diagonal):\n")
	for i := 0; i < count; i++ {
		x := (i + 1) * stepX
		y := (i + 1) * stepY
		if x >= r.Width() || y >= r.Height() {
			break
		}
		vals, err := r.ReadWindow(x, y, 1, 1)
		if err != nil {
			fmt.Printf("  (%d,%d): ERROR: %v\n", x, y, err)
			continue
		}
		v := vals[0]
		if v != v {
			fmt.Printf("  (%d,%d): nodata\n", x, y)
		} else {
			fmt.Printf("  (%d,%d): %g\n", x, y, v)
		}
	}
}
