// Package tile renders climate rasters into slippy-map tile pyramids. The
// pipeline per tile is extract, gap-fill, colorize, encode, write; a
// bounded worker pool runs it across each zoom level's tile rectangle.
package tile

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/wangchao9240/CLISAPP-fullstack/internal/coord"
	"github.com/wangchao9240/CLISAPP-fullstack/internal/encode"
	"github.com/wangchao9240/CLISAPP-fullstack/internal/geotiff"
	"github.com/wangchao9240/CLISAPP-fullstack/internal/ramp"
)

// Generation defaults.
const (
	DefaultMinZoom     = 6
	DefaultMaxZoom     = 13
	DefaultWorkers     = 4
	DefaultMinCoverage = 0.02
)

// DefaultRegion is the Queensland bounding box rendered when no region is
// configured.
var DefaultRegion = coord.Bounds{MinLon: 138, MaxLon: 154, MinLat: -29, MaxLat: -10}

// Config holds tile generation configuration. Zero values select the
// documented defaults.
type Config struct {
	Source     string     // path to the source raster
	OutputRoot string     // pyramid root; metadata lands in {root}/{layer}; "" disables metadata
	Layer      ramp.Layer // rendered layer, selects ramp and calibration policy
	Region     coord.Bounds
	MinZoom    int
	MaxZoom    int
	TileSize   int
	Workers    int
	Verbose    bool

	// MinCoverage rejects tiles whose valid-data fraction before filling
	// is below this ratio.
	MinCoverage float64

	// UseLegacyThresholds pins the layer's fixed default breakpoints,
	// disabling dynamic calibration and any override.
	UseLegacyThresholds bool

	// ThresholdOverride supplies explicit breakpoints. Ignored when
	// UseLegacyThresholds is set.
	ThresholdOverride []float64

	Encoder encode.Encoder
	Cache   *geotiff.BlockCache
}

// ZoomCount records tiles written at one zoom level.
type ZoomCount struct {
	Zoom  int
	Tiles int64
}

// Stats holds generation statistics.
type Stats struct {
	TileCount    int64
	SkippedTiles int64
	FailedTiles  int64
	TotalBytes   int64
	PerZoom      []ZoomCount

	DataMin    float64
	DataMax    float64
	Thresholds []float64
}

// tileJob identifies a single tile to render.
type tileJob struct {
	X, Y int
}

// Generate renders the full pyramid for one raster and writes tiles via
// the TileWriter. Zoom levels run strictly sequentially; tiles within a
// zoom are rendered by a fixed-size worker pool. Per-tile problems are
// skipped; only configuration and run-level failures return an error.
func Generate(cfg Config, writer TileWriter) (Stats, error) {
	if cfg.Source == "" {
		return Stats{}, fmt.Errorf("no source raster")
	}
	if cfg.MinZoom == 0 && cfg.MaxZoom == 0 {
		cfg.MinZoom, cfg.MaxZoom = DefaultMinZoom, DefaultMaxZoom
	}
	if cfg.MinZoom < 0 || cfg.MaxZoom > 30 || cfg.MinZoom > cfg.MaxZoom {
		return Stats{}, fmt.Errorf("invalid zoom range %d-%d", cfg.MinZoom, cfg.MaxZoom)
	}
	if cfg.TileSize <= 0 {
		cfg.TileSize = coord.DefaultTileSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.MinCoverage <= 0 {
		cfg.MinCoverage = DefaultMinCoverage
	}
	if cfg.Region.IsEmpty() {
		cfg.Region = DefaultRegion
	}
	if cfg.Encoder == nil {
		enc, err := encode.NewEncoder("png", 0)
		if err != nil {
			return Stats{}, err
		}
		cfg.Encoder = enc
	}
	if cfg.Cache == nil {
		// One cache shared by every per-tile reader handle. ~64 blocks
		// per worker covers a zoom row's working set.
		size := cfg.Workers * 64
		if size < 256 {
			size = 256
		}
		cache, err := geotiff.NewBlockCache(size)
		if err != nil {
			return Stats{}, err
		}
		cfg.Cache = cache
	}
	if cfg.OutputRoot != "" {
		if err := os.MkdirAll(cfg.OutputRoot, 0o755); err != nil {
			return Stats{}, fmt.Errorf("output directory: %w", err)
		}
	}

	// One preflight open validates the raster and fixes the value range
	// and thresholds for the whole run.
	pre, err := geotiff.Open(cfg.Source, geotiff.WithBlockCache(cfg.Cache))
	if err != nil {
		return Stats{}, err
	}
	if pre.EPSG() != 4326 {
		epsg := pre.EPSG()
		pre.Close()
		return Stats{}, fmt.Errorf("%s: raster must be geographic (EPSG:4326), got EPSG:%d", cfg.Source, epsg)
	}
	rasterBounds := pre.Bounds()
	dataMin, dataMax, hasData := pre.ValueRange()
	pre.Close()

	rm, err := resolveRamp(cfg.Layer, dataMax, hasData, cfg.UseLegacyThresholds, cfg.ThresholdOverride)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		DataMin:    dataMin,
		DataMax:    dataMax,
		Thresholds: rm.Breakpoints(),
	}

	region := rasterBounds.Intersect(cfg.Region)
	if region.IsEmpty() {
		if cfg.Verbose {
			log.Printf("Raster %s does not intersect the render region, nothing to do", cfg.Source)
		}
		return stats, nil
	}

	var tileCount, skipCount, failCount, totalBytes atomic.Int64

	for z := cfg.MinZoom; z <= cfg.MaxZoom; z++ {
		minX, minY, maxX, maxY := coord.TileRange(region, z)

		// One-tile margin against seams, clamped to the zoom's index range.
		n := 1 << z
		minX = max(minX-1, 0)
		minY = max(minY-1, 0)
		maxX = min(maxX+1, n-1)
		maxY = min(maxY+1, n-1)

		total := int64(maxX-minX+1) * int64(maxY-minY+1)
		writtenBefore := tileCount.Load()

		var progressOut io.Writer
		if cfg.Verbose {
			progressOut = os.Stderr
		}
		pb := newProgressBar(progressOut, fmt.Sprintf("Zoom %2d", z), total)

		jobs := make(chan tileJob, cfg.Workers*2)
		var wg sync.WaitGroup

		for w := 0; w < cfg.Workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for job := range jobs {
					written, nbytes, err := renderOne(cfg, rm, z, job.X, job.Y, writer)
					switch {
					case err != nil:
						failCount.Add(1)
						if cfg.Verbose {
							log.Printf("tile %d/%d/%d: %v", z, job.X, job.Y, err)
						}
						pb.Skip()
					case !written:
						skipCount.Add(1)
						pb.Skip()
					default:
						tileCount.Add(1)
						totalBytes.Add(int64(nbytes))
						pb.Increment()
					}
				}
			}()
		}

		for y := minY; y <= maxY; y++ {
			for x := minX; x <= maxX; x++ {
				jobs <- tileJob{X: x, Y: y}
			}
		}
		close(jobs)
		wg.Wait()
		pb.Finish()

		zoomTiles := tileCount.Load() - writtenBefore
		stats.PerZoom = append(stats.PerZoom, ZoomCount{Zoom: z, Tiles: zoomTiles})
		if cfg.Verbose {
			log.Printf("Zoom %d (%.0f m/px): %d of %d tiles written (%d total)",
				z, coord.ResolutionAtLat(region.CenterLat(), z), zoomTiles, total, tileCount.Load())
		}
	}

	stats.TileCount = tileCount.Load()
	stats.SkippedTiles = skipCount.Load()
	stats.FailedTiles = failCount.Load()
	stats.TotalBytes = totalBytes.Load()

	if stats.TileCount > 0 && cfg.OutputRoot != "" {
		md := Metadata{
			Layer:               cfg.Layer.String(),
			DataMin:             dataMin,
			DataMax:             dataMax,
			Thresholds:          rm.Breakpoints(),
			UseLegacyThresholds: cfg.UseLegacyThresholds,
		}
		layerDir := filepath.Join(cfg.OutputRoot, cfg.Layer.String())
		if err := WriteMetadata(layerDir, md); err != nil {
			return stats, err
		}
	}

	return stats, nil
}

// renderOne runs the per-tile pipeline. It opens its own raster handle;
// decoded blocks are shared through the cache. Returns written=false for
// the soft-skip outcomes: no intersection, insufficient coverage, fully
// transparent.
func renderOne(cfg Config, rm *ramp.Ramp, z, x, y int, writer TileWriter) (written bool, nbytes int, err error) {
	rd, err := geotiff.Open(cfg.Source, geotiff.WithBlockCache(cfg.Cache))
	if err != nil {
		return false, 0, err
	}
	grid, err := Extract(rd, z, x, y, cfg.TileSize)
	rd.Close()
	if err != nil {
		return false, 0, err
	}
	if grid == nil {
		return false, 0, nil
	}

	ratio := validRatio(grid)
	if ratio == 0 || ratio < cfg.MinCoverage {
		return false, 0, nil
	}
	fillMissing(grid, cfg.TileSize, cfg.TileSize)

	img := Colorize(grid, rm, cfg.TileSize)
	if img == nil {
		return false, 0, nil
	}
	data, err := cfg.Encoder.Encode(img)
	PutNRGBA(img)
	if err != nil {
		return false, 0, fmt.Errorf("encoding: %w", err)
	}

	if err := writer.WriteTile(z, x, y, data); err != nil {
		return false, 0, err
	}
	return true, len(data), nil
}

// resolveRamp picks the active breakpoints: an explicit override wins
// unless legacy is forced, dynamic layers calibrate from the data maximum,
// and everything else keeps the layer defaults.
func resolveRamp(layer ramp.Layer, dataMax float64, hasData, legacy bool, override []float64) (*ramp.Ramp, error) {
	base := layer.DefaultRamp()
	switch {
	case legacy:
		return base, nil
	case len(override) > 0:
		rm, err := base.WithBreakpoints(override)
		if err != nil {
			return nil, fmt.Errorf("threshold override: %w", err)
		}
		return rm, nil
	case layer.Dynamic() && hasData:
		breaks := ramp.Calibrate(dataMax, base.Classes())
		rm, err := base.WithBreakpoints(breaks)
		if err != nil {
			return nil, fmt.Errorf("calibrated thresholds: %w", err)
		}
		return rm, nil
	default:
		return base, nil
	}
}
