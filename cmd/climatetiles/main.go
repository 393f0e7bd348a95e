package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/wangchao9240/CLISAPP-fullstack/internal/coord"
	"github.com/wangchao9240/CLISAPP-fullstack/internal/encode"
	"github.com/wangchao9240/CLISAPP-fullstack/internal/geotiff"
	"github.com/wangchao9240/CLISAPP-fullstack/internal/ramp"
	"github.com/wangchao9240/CLISAPP-fullstack/internal/tile"
	"github.com/wangchao9240/CLISAPP-fullstack/internal/upsample"
)

// Set via -ldflags at build time.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	var (
		layerName    string
		format       string
		quality      int
		minZoom      int
		maxZoom      int
		workers      int
		minCoverage  float64
		legacy       bool
		thresholds   string
		bounds       string
		upsampleFrom int
		cacheBlocks  int
		verbose      bool
		showVersion  bool
		cpuProfile   string
		memProfile   string
	)

	flag.StringVar(&layerName, "layer", "pm25", "Climate layer: pm25, precipitation, uv, humidity, temperature")
	flag.StringVar(&format, "format", "png", "Tile encoding: png, webp")
	flag.IntVar(&quality, "quality", 85, "WebP quality 1-100 (100 = lossless)")
	flag.IntVar(&minZoom, "min-zoom", tile.DefaultMinZoom, "Minimum zoom level")
	flag.IntVar(&maxZoom, "max-zoom", tile.DefaultMaxZoom, "Maximum zoom level")
	flag.IntVar(&workers, "workers", tile.DefaultWorkers, "Number of parallel workers")
	flag.Float64Var(&minCoverage, "min-coverage", tile.DefaultMinCoverage, "Minimum valid-data fraction per tile")
	flag.BoolVar(&legacy, "legacy-thresholds", false, "Use the layer's fixed thresholds instead of calibrating")
	flag.StringVar(&thresholds, "thresholds", "", "Explicit breakpoints, comma-separated (overrides calibration)")
	flag.StringVar(&bounds, "bounds", "", "Render region as minLon,minLat,maxLon,maxLat (default: Queensland)")
	flag.IntVar(&upsampleFrom, "upsample-from", 0, "Render from source up to this zoom, then replicate tiles to max-zoom (0 = render all zooms)")
	flag.IntVar(&cacheBlocks, "cache-blocks", 0, "Raster block cache size in blocks (0 = auto)")
	flag.BoolVar(&verbose, "verbose", false, "Verbose progress output")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.StringVar(&cpuProfile, "cpuprofile", "", "Write CPU profile to file")
	flag.StringVar(&memProfile, "memprofile", "", "Write memory profile to file")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: climatetiles [flags] <input.tif> <output-root>\n\n")
		fmt.Fprintf(os.Stderr, "Render a climate raster into an XYZ tile pyramid.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("climatetiles %s (commit %s, built %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// CPU profiling.
	if cpuProfile != "" {
		f, err := os.Create(cpuProfile)
		if err != nil {
			log.Fatalf("Creating CPU profile: %v", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatalf("Starting CPU profile: %v", err)
		}
		defer pprof.StopCPUProfile()
		if verbose {
			log.Printf("CPU profiling enabled → %s", cpuProfile)
		}
	}

	// Memory profile (written at exit).
	if memProfile != "" {
		defer func() {
			f, err := os.Create(memProfile)
			if err != nil {
				log.Fatalf("Creating memory profile: %v", err)
			}
			defer f.Close()
			runtime.GC() // get up-to-date statistics
			if err := pprof.WriteHeapProfile(f); err != nil {
				log.Fatalf("Writing memory profile: %v", err)
			}
			if verbose {
				log.Printf("Memory profile written → %s", memProfile)
			}
		}()
	}

	args := flag.Args()
	if len(args) != 2 {
		flag.Usage()
		os.Exit(1)
	}
	inputPath, outputRoot := args[0], args[1]

	layer, err := ramp.ParseLayer(layerName)
	if err != nil {
		log.Fatalf("Layer: %v", err)
	}

	enc, err := encode.NewEncoder(format, quality)
	if err != nil {
		log.Fatalf("Encoder: %v", err)
	}

	region := tile.DefaultRegion
	if bounds != "" {
		region, err = parseBounds(bounds)
		if err != nil {
			log.Fatalf("Bounds: %v", err)
		}
	}

	var override []float64
	if thresholds != "" {
		override, err = parseFloats(thresholds)
		if err != nil {
			log.Fatalf("Thresholds: %v", err)
		}
	}

	var cache *geotiff.BlockCache
	if cacheBlocks > 0 {
		cache, err = geotiff.NewBlockCache(cacheBlocks)
		if err != nil {
			log.Fatalf("Block cache: %v", err)
		}
	}

	// Above renderMax, tiles are replicated from their parents instead of
	// rendered from the raster.
	renderMax := maxZoom
	if upsampleFrom != 0 {
		if upsampleFrom < minZoom || upsampleFrom > maxZoom {
			log.Fatalf("Upsample from: zoom %d not in range %d-%d", upsampleFrom, minZoom, maxZoom)
		}
		renderMax = upsampleFrom
	}

	// Print settings summary.
	fmt.Printf("climatetiles %s (commit %s, built %s)\n", version, commit, buildDate)
	fmt.Printf("  %-14s %s (%s)\n", "Layer:", layer, layer.Units())
	if format == "webp" {
		fmt.Printf("  %-14s %s (quality: %d)\n", "Format:", format, quality)
	} else {
		fmt.Printf("  %-14s %s\n", "Format:", format)
	}
	if renderMax < maxZoom {
		fmt.Printf("  %-14s %d – %d (replicate above %d)\n", "Zoom:", minZoom, maxZoom, renderMax)
	} else {
		fmt.Printf("  %-14s %d – %d\n", "Zoom:", minZoom, maxZoom)
	}
	fmt.Printf("  %-14s %d\n", "Workers:", workers)
	fmt.Printf("  %-14s %.1f%%\n", "Min coverage:", minCoverage*100)
	switch {
	case legacy:
		fmt.Printf("  %-14s fixed (legacy)\n", "Thresholds:")
	case len(override) > 0:
		fmt.Printf("  %-14s %v (override)\n", "Thresholds:", override)
	case layer.Dynamic():
		fmt.Printf("  %-14s calibrated from data\n", "Thresholds:")
	default:
		fmt.Printf("  %-14s fixed scale\n", "Thresholds:")
	}
	fmt.Printf("  %-14s lon [%.3f, %.3f], lat [%.3f, %.3f]\n", "Region:",
		region.MinLon, region.MaxLon, region.MinLat, region.MaxLat)
	fmt.Printf("  %-14s %s\n", "Input:", inputPath)
	fmt.Printf("  %-14s %s\n", "Output:", outputRoot)

	cfg := tile.Config{
		Source:              inputPath,
		OutputRoot:          outputRoot,
		Layer:               layer,
		Region:              region,
		MinZoom:             minZoom,
		MaxZoom:             renderMax,
		Workers:             workers,
		MinCoverage:         minCoverage,
		UseLegacyThresholds: legacy,
		ThresholdOverride:   override,
		Encoder:             enc,
		Cache:               cache,
		Verbose:             verbose,
	}
	store := tile.NewFSStore(outputRoot, layer.String(), enc.FileExtension())

	start := time.Now()
	stats, err := tile.Generate(cfg, store)
	if err != nil {
		log.Fatalf("Tile generation: %v", err)
	}

	if verbose {
		log.Printf("Thresholds: %v %s", stats.Thresholds, layer.Units())
		log.Printf("Data range: %.2f – %.2f %s", stats.DataMin, stats.DataMax, layer.Units())
		if stats.FailedTiles > 0 {
			log.Printf("WARNING: %d tile(s) failed and were skipped", stats.FailedTiles)
		}
	}

	// Extend the pyramid past renderMax by parent replication.
	var replicated int
	if stats.TileCount > 0 && renderMax < maxZoom {
		replicated, err = upsample.Run(upsample.Config{
			Root:    outputRoot,
			Layers:  []string{layer.String()},
			MinZoom: renderMax,
			MaxZoom: maxZoom,
			Workers: workers,
			Verbose: verbose,
		})
		if err != nil {
			log.Fatalf("Upsampling: %v", err)
		}
	}

	elapsed := time.Since(start).Round(time.Millisecond)
	if stats.TileCount == 0 {
		fmt.Printf("Done: no tiles produced (raster outside region or no data), %v\n", elapsed)
		return
	}

	size := stats.TotalBytes
	if replicated > 0 {
		if zs, err := tile.PyramidStats(outputRoot, layer.String()); err == nil {
			size = 0
			for _, z := range zs {
				size += z.Bytes
			}
		}
		fmt.Printf("Done: %d tiles (%d replicated, %d skipped), %s, %v → %s\n",
			stats.TileCount+int64(replicated), replicated, stats.SkippedTiles,
			humanSize(size), elapsed, store.LayerDir())
		return
	}
	fmt.Printf("Done: %d tiles (%d skipped), %s, %v → %s\n",
		stats.TileCount, stats.SkippedTiles, humanSize(size), elapsed, store.LayerDir())
}

// parseBounds parses "minLon,minLat,maxLon,maxLat".
func parseBounds(s string) (coord.Bounds, error) {
	vals, err := parseFloats(s)
	if err != nil {
		return coord.Bounds{}, err
	}
	if len(vals) != 4 {
		return coord.Bounds{}, fmt.Errorf("need 4 values, got %d", len(vals))
	}
	b := coord.Bounds{MinLon: vals[0], MinLat: vals[1], MaxLon: vals[2], MaxLat: vals[3]}
	if b.IsEmpty() {
		return coord.Bounds{}, fmt.Errorf("empty region %q", s)
	}
	return b, nil
}

// parseFloats parses a comma-separated float list.
func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	vals := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", p)
		}
		vals = append(vals, v)
	}
	return vals, nil
}

func humanSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
