package geotiff

import (
	"context"

	"github.com/maypok86/otter/v2"
)

// blockKey identifies a decoded block within a specific file.
type blockKey struct {
	path  string
	index int
}

// BlockCache holds decoded pixel blocks so that readers opened repeatedly
// on the same file, as the tile workers do, decompress each block once.
// Concurrent requests for the same block coalesce into a single decode.
type BlockCache struct {
	cache *otter.Cache[blockKey, []float32]
}

// NewBlockCache creates a cache bounded to the given number of decoded
// blocks. A non-positive size selects a default suited to small climate
// rasters.
func NewBlockCache(maxBlocks int) (*BlockCache, error) {
	if maxBlocks <= 0 {
		maxBlocks = 256
	}
	c, err := otter.New(&otter.Options[blockKey, []float32]{
		MaximumSize: maxBlocks,
	})
	if err != nil {
		return nil, err
	}
	return &BlockCache{cache: c}, nil
}

func (bc *BlockCache) get(ctx context.Context, key blockKey, load func(context.Context, blockKey) ([]float32, error)) ([]float32, error) {
	return bc.cache.Get(ctx, key, otter.LoaderFunc[blockKey, []float32](load))
}
