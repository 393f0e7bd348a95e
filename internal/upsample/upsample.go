// Package upsample extends rendered tile pyramids to deeper zoom levels by
// pixel replication. Each parent tile is copied unmodified into its four
// children, one zoom at a time, so a pyramid generated to zoom N serves
// zoom N+k without touching the source raster. The result is blocky at
// high zoom, which is the accepted trade-off for skipping re-rendering.
package upsample

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/wangchao9240/CLISAPP-fullstack/internal/ramp"
)

// DefaultWorkers bounds concurrent tile copies within one zoom level.
const DefaultWorkers = 4

// Config holds upsampling configuration.
type Config struct {
	Root    string   // pyramid root directory
	Layers  []string // layers to process; empty discovers layer directories under Root
	MinZoom int      // first zoom read as parents
	MaxZoom int      // last zoom written as children
	Workers int
	Verbose bool
}

// Run replicates tiles from MinZoom down to MaxZoom for every configured
// layer and returns the number of child tiles written. Re-running is safe:
// existing children are overwritten with identical bytes. A layer with no
// tiles at a parent zoom contributes nothing.
func Run(cfg Config) (int, error) {
	if cfg.MinZoom < 0 || cfg.MaxZoom < cfg.MinZoom {
		return 0, fmt.Errorf("invalid zoom range %d-%d", cfg.MinZoom, cfg.MaxZoom)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}

	layers := cfg.Layers
	if len(layers) == 0 {
		var err error
		layers, err = discoverLayers(cfg.Root)
		if err != nil {
			return 0, err
		}
	} else {
		for _, name := range layers {
			if _, err := ramp.ParseLayer(name); err != nil {
				return 0, err
			}
		}
	}

	total := 0
	for _, layer := range layers {
		n, err := upsampleLayer(cfg, layer)
		if err != nil {
			return total, fmt.Errorf("layer %s: %w", layer, err)
		}
		total += n
	}
	return total, nil
}

// discoverLayers lists subdirectories of root whose names are known layers.
func discoverLayers(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var layers []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := ramp.ParseLayer(e.Name()); err == nil {
			layers = append(layers, e.Name())
		}
	}
	return layers, nil
}

// upsampleLayer runs the replication cascade for one layer. Zoom levels are
// strictly sequential: children written at z+1 become parents for z+2.
func upsampleLayer(cfg Config, layer string) (int, error) {
	layerDir := filepath.Join(cfg.Root, layer)
	var written atomic.Int64

	for z := cfg.MinZoom; z < cfg.MaxZoom; z++ {
		parents, err := listTiles(filepath.Join(layerDir, strconv.Itoa(z)))
		if err != nil {
			return int(written.Load()), err
		}
		if len(parents) == 0 {
			continue
		}

		before := written.Load()
		var g errgroup.Group
		g.SetLimit(cfg.Workers)
		for _, p := range parents {
			g.Go(func() error {
				n, err := replicate(layerDir, z, p)
				written.Add(int64(n))
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return int(written.Load()), err
		}

		if cfg.Verbose {
			log.Printf("%s: zoom %d -> %d: %d parents, %d children",
				layer, z, z+1, len(parents), written.Load()-before)
		}
	}
	return int(written.Load()), nil
}

// tileRef locates one tile file within a zoom directory.
type tileRef struct {
	x, y int
	ext  string
}

// listTiles enumerates tile files under one zoom directory. A missing
// directory is an empty zoom, not an error.
func listTiles(zoomDir string) ([]tileRef, error) {
	xEntries, err := os.ReadDir(zoomDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var tiles []tileRef
	for _, xe := range xEntries {
		if !xe.IsDir() {
			continue
		}
		x, ok := parseIndex(xe.Name())
		if !ok {
			continue
		}
		yEntries, err := os.ReadDir(filepath.Join(zoomDir, xe.Name()))
		if err != nil {
			return nil, err
		}
		for _, ye := range yEntries {
			if ye.IsDir() {
				continue
			}
			ext := filepath.Ext(ye.Name())
			if ext != ".png" && ext != ".webp" {
				continue
			}
			y, ok := parseIndex(strings.TrimSuffix(ye.Name(), ext))
			if !ok {
				continue
			}
			tiles = append(tiles, tileRef{x: x, y: y, ext: ext})
		}
	}
	return tiles, nil
}

// replicate copies one parent tile into its four children at the next zoom.
func replicate(layerDir string, z int, p tileRef) (int, error) {
	src := filepath.Join(layerDir, strconv.Itoa(z), strconv.Itoa(p.x), strconv.Itoa(p.y)+p.ext)
	data, err := os.ReadFile(src)
	if err != nil {
		return 0, err
	}

	childZ := strconv.Itoa(z + 1)
	n := 0
	for dx := 0; dx < 2; dx++ {
		dir := filepath.Join(layerDir, childZ, strconv.Itoa(2*p.x+dx))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return n, err
		}
		for dy := 0; dy < 2; dy++ {
			dst := filepath.Join(dir, strconv.Itoa(2*p.y+dy)+p.ext)
			if err := os.WriteFile(dst, data, 0o644); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

// parseIndex parses a non-negative decimal directory or file name.
func parseIndex(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
