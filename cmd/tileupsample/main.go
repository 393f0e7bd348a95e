package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

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
		layerList   string
		minZoom     int
		maxZoom     int
		workers     int
		verbose     bool
		showVersion bool
	)

	flag.StringVar(&layerList, "layers", "", "Layers to process, comma-separated (default: all found)")
	flag.IntVar(&minZoom, "min-zoom", tile.DefaultMaxZoom, "First zoom level read as parents")
	flag.IntVar(&maxZoom, "max-zoom", tile.DefaultMaxZoom+2, "Last zoom level written")
	flag.IntVar(&workers, "workers", upsample.DefaultWorkers, "Number of parallel workers")
	flag.BoolVar(&verbose, "verbose", false, "Verbose progress output")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tileupsample [flags] <output-root>\n\n")
		fmt.Fprintf(os.Stderr, "Extend tile pyramids to deeper zoom levels by replicating each\n")
		fmt.Fprintf(os.Stderr, "parent tile into its four children.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("tileupsample %s (commit %s, built %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) != 1 {
		flag.Usage()
		os.Exit(1)
	}
	root := args[0]

	var layers []string
	if layerList != "" {
		for _, name := range strings.Split(layerList, ",") {
			layers = append(layers, strings.TrimSpace(name))
		}
	}

	fmt.Printf("tileupsample %s (commit %s, built %s)\n", version, commit, buildDate)
	if len(layers) > 0 {
		fmt.Printf("  %-14s %s\n", "Layers:", strings.Join(layers, ", "))
	} else {
		fmt.Printf("  %-14s all found\n", "Layers:")
	}
	fmt.Printf("  %-14s %d – %d\n", "Zoom:", minZoom, maxZoom)
	fmt.Printf("  %-14s %d\n", "Workers:", workers)
	fmt.Printf("  %-14s %s\n", "Root:", root)

	start := time.Now()
	created, err := upsample.Run(upsample.Config{
		Root:    root,
		Layers:  layers,
		MinZoom: minZoom,
		MaxZoom: maxZoom,
		Workers: workers,
		Verbose: verbose,
	})
	if err != nil {
		log.Fatalf("Upsampling: %v", err)
	}

	elapsed := time.Since(start).Round(time.Millisecond)
	fmt.Printf("Done: %d child tiles, %v → %s\n", created, elapsed, root)
}
