package tile

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// Metadata describes one layer's generated pyramid. Written next to the
// tiles as metadata.json and read back by status tooling, so the key names
// are part of the on-disk contract.
type Metadata struct {
	Layer               string    `json:"layer"`
	DataMin             float64   `json:"data_min"`
	DataMax             float64   `json:"data_max"`
	Thresholds          []float64 `json:"thresholds"`
	GeneratedAt         string    `json:"generated_at"`
	UseLegacyThresholds bool      `json:"use_legacy_thresholds"`
}

// MetadataFile is the file name within a layer directory.
const MetadataFile = "metadata.json"

// WriteMetadata replaces the layer's metadata file. Ranges are rounded to
// two decimals and the timestamp is UTC.
func WriteMetadata(layerDir string, md Metadata) error {
	md.DataMin = round2(md.DataMin)
	md.DataMax = round2(md.DataMax)
	if md.GeneratedAt == "" {
		md.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	}

	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(layerDir, 0o755); err != nil {
		return fmt.Errorf("creating layer directory: %w", err)
	}
	path := filepath.Join(layerDir, MetadataFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	return nil
}

// ReadMetadata loads a layer's metadata file.
func ReadMetadata(layerDir string) (Metadata, error) {
	data, err := os.ReadFile(filepath.Join(layerDir, MetadataFile))
	if err != nil {
		return Metadata{}, err
	}
	var md Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return Metadata{}, fmt.Errorf("decoding metadata: %w", err)
	}
	return md, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
