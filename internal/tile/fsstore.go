package tile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
)

// TileWriter is the interface for writing rendered tiles.
type TileWriter interface {
	WriteTile(z, x, y int, data []byte) error
}

// FSStore writes tiles into a {root}/{layer}/{z}/{x}/{y}{ext} tree, the
// layout tile servers consume directly. Directories are created on first
// write, so a run that produces no tiles leaves no trace on disk. Safe for
// concurrent use: every tile has a distinct path.
type FSStore struct {
	root  string
	layer string
	ext   string

	tiles atomic.Int64
	bytes atomic.Int64
}

// NewFSStore creates a store for one layer. ext must include the leading
// dot (".png").
func NewFSStore(root, layer, ext string) *FSStore {
	return &FSStore{root: root, layer: layer, ext: ext}
}

// WriteTile writes one tile, creating parent directories as needed.
func (s *FSStore) WriteTile(z, x, y int, data []byte) error {
	dir := filepath.Join(s.root, s.layer, strconv.Itoa(z), strconv.Itoa(x))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating tile directory: %w", err)
	}
	path := filepath.Join(dir, strconv.Itoa(y)+s.ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing tile: %w", err)
	}
	s.tiles.Add(1)
	s.bytes.Add(int64(len(data)))
	return nil
}

// TilePath returns the path a tile would be written to.
func (s *FSStore) TilePath(z, x, y int) string {
	return filepath.Join(s.root, s.layer, strconv.Itoa(z), strconv.Itoa(x), strconv.Itoa(y)+s.ext)
}

// LayerDir returns the layer's root directory.
func (s *FSStore) LayerDir() string {
	return filepath.Join(s.root, s.layer)
}

// Written returns the number of tiles and bytes written so far.
func (s *FSStore) Written() (tiles, bytes int64) {
	return s.tiles.Load(), s.bytes.Load()
}
