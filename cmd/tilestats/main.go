package main

import (
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/wangchao9240/CLISAPP-fullstack/internal/encode"
	"github.com/wangchao9240/CLISAPP-fullstack/internal/ramp"
	"github.com/wangchao9240/CLISAPP-fullstack/internal/tile"
)

func main() {
	validate := flag.Bool("validate", false, "Decode every tile and report corrupt files")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tilestats [flags] <output-root> [layer ...]\n\n")
		fmt.Fprintf(os.Stderr, "Summarize a rendered tile pyramid per zoom level.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}
	root := args[0]

	var layers []string
	if len(args) > 1 {
		for _, name := range args[1:] {
			if _, err := ramp.ParseLayer(name); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			layers = append(layers, name)
		}
	} else {
		for _, l := range ramp.Layers() {
			if _, err := os.Stat(filepath.Join(root, l.String())); err == nil {
				layers = append(layers, l.String())
			}
		}
	}
	if len(layers) == 0 {
		fmt.Printf("No layer directories under %s\n", root)
		return
	}

	invalid := 0
	for i, name := range layers {
		if i > 0 {
			fmt.Println()
		}
		bad, err := printLayer(root, name, *validate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", name, err)
			os.Exit(1)
		}
		invalid += bad
	}
	if invalid > 0 {
		fmt.Fprintf(os.Stderr, "Error: %d corrupt tile(s)\n", invalid)
		os.Exit(1)
	}
}

func printLayer(root, name string, validate bool) (int, error) {
	layer, _ := ramp.ParseLayer(name)
	fmt.Printf("Layer: %s (%s)\n", name, layer.Units())

	md, err := tile.ReadMetadata(filepath.Join(root, name))
	switch {
	case os.IsNotExist(err):
		fmt.Printf("  No metadata.json\n")
	case err != nil:
		return 0, err
	default:
		fmt.Printf("  Generated:  %s\n", md.GeneratedAt)
		fmt.Printf("  Data range: %.2f – %.2f %s\n", md.DataMin, md.DataMax, layer.Units())
		if md.UseLegacyThresholds {
			fmt.Printf("  Thresholds: %v (fixed)\n", md.Thresholds)
		} else {
			fmt.Printf("  Thresholds: %v\n", md.Thresholds)
		}
	}

	stats, err := tile.PyramidStats(root, name)
	if err != nil {
		return 0, err
	}
	if len(stats) == 0 {
		fmt.Printf("  No tiles\n")
		return 0, nil
	}

	fmt.Printf("  %4s  %7s  %9s  %-13s  %s\n", "Zoom", "Tiles", "Size", "X range", "Y range")
	var totalTiles int
	var totalBytes int64
	for _, zs := range stats {
		fmt.Printf("  %4d  %7d  %9s  %5d – %-5d  %5d – %-5d\n",
			zs.Zoom, zs.Tiles, humanSize(zs.Bytes), zs.MinX, zs.MaxX, zs.MinY, zs.MaxY)
		totalTiles += zs.Tiles
		totalBytes += zs.Bytes
	}
	fmt.Printf("  Total: %d tiles, %s\n", totalTiles, humanSize(totalBytes))

	if !validate {
		return 0, nil
	}
	bad, err := validateTiles(filepath.Join(root, name))
	if err != nil {
		return bad, err
	}
	if bad == 0 {
		fmt.Printf("  Validated: %d tiles decode cleanly\n", totalTiles)
	} else {
		fmt.Printf("  Validated: %d of %d tiles corrupt\n", bad, totalTiles)
	}
	return bad, nil
}

// validateTiles decodes every tile under a layer directory, printing each
// file that fails.
func validateTiles(layerDir string) (int, error) {
	bad := 0
	err := filepath.WalkDir(layerDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		format, ok := encode.FormatForExtension(filepath.Ext(path))
		if !ok {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if _, err := encode.DecodeImage(data, format); err != nil {
			rel, _ := filepath.Rel(layerDir, path)
			fmt.Printf("  INVALID %s: %v\n", rel, err)
			bad++
		}
		return nil
	})
	return bad, err
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
