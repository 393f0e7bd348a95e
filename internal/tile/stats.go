package tile

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ZoomStat summarizes one zoom level of a written pyramid.
type ZoomStat struct {
	Zoom  int
	Tiles int
	Bytes int64
	MinX  int
	MaxX  int
	MinY  int
	MaxY  int
}

// PyramidStats walks a layer's tile tree and reports per-zoom counts,
// sizes, and index extents, sorted by zoom. A missing layer directory
// yields an empty slice, not an error.
func PyramidStats(root, layer string) ([]ZoomStat, error) {
	layerDir := filepath.Join(root, layer)
	zoomEntries, err := os.ReadDir(layerDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var stats []ZoomStat
	for _, ze := range zoomEntries {
		if !ze.IsDir() {
			continue
		}
		z, ok := parseIndex(ze.Name())
		if !ok {
			continue
		}

		st := ZoomStat{Zoom: z, MinX: -1, MinY: -1}
		xEntries, err := os.ReadDir(filepath.Join(layerDir, ze.Name()))
		if err != nil {
			return nil, err
		}
		for _, xe := range xEntries {
			if !xe.IsDir() {
				continue
			}
			x, ok := parseIndex(xe.Name())
			if !ok {
				continue
			}
			yEntries, err := os.ReadDir(filepath.Join(layerDir, ze.Name(), xe.Name()))
			if err != nil {
				return nil, err
			}
			for _, ye := range yEntries {
				if ye.IsDir() {
					continue
				}
				name := ye.Name()
				ext := filepath.Ext(name)
				y, ok := parseIndex(strings.TrimSuffix(name, ext))
				if !ok || (ext != ".png" && ext != ".webp") {
					continue
				}
				info, err := ye.Info()
				if err != nil {
					return nil, err
				}
				st.Tiles++
				st.Bytes += info.Size()
				if st.MinX < 0 || x < st.MinX {
					st.MinX = x
				}
				if x > st.MaxX {
					st.MaxX = x
				}
				if st.MinY < 0 || y < st.MinY {
					st.MinY = y
				}
				if y > st.MaxY {
					st.MaxY = y
				}
			}
		}
		if st.Tiles > 0 {
			stats = append(stats, st)
		}
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].Zoom < stats[j].Zoom })
	return stats, nil
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
