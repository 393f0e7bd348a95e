package tile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMetadataRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pm25")
	in := Metadata{
		Layer:      "pm25",
		DataMin:    0.4567,
		DataMax:    87.333,
		Thresholds: []float64{0, 22.5, 45, 67.5, 90},
	}
	if err := WriteMetadata(dir, in); err != nil {
		t.Fatalf("WriteMetadata: %v", err)
	}

	out, err := ReadMetadata(dir)
	if err != nil {
		t.Fatalf("ReadMetadata: %v", err)
	}
	if out.Layer != "pm25" {
		t.Errorf("Layer = %q", out.Layer)
	}
	if out.DataMin != 0.46 || out.DataMax != 87.33 {
		t.Errorf("range = (%v, %v), want (0.46, 87.33) after rounding", out.DataMin, out.DataMax)
	}
	if len(out.Thresholds) != 5 || out.Thresholds[1] != 22.5 {
		t.Errorf("Thresholds = %v", out.Thresholds)
	}
	if out.UseLegacyThresholds {
		t.Error("UseLegacyThresholds = true, want false")
	}
	if _, err := time.Parse(time.RFC3339, out.GeneratedAt); err != nil {
		t.Errorf("GeneratedAt %q is not RFC3339: %v", out.GeneratedAt, err)
	}
}

func TestMetadataFileKeys(t *testing.T) {
	// The key names are read by the serving side; changing them breaks
	// deployed consumers.
	dir := filepath.Join(t.TempDir(), "uv")
	md := Metadata{Layer: "uv", Thresholds: []float64{0, 3, 6, 8, 11}, UseLegacyThresholds: true}
	if err := WriteMetadata(dir, md); err != nil {
		t.Fatalf("WriteMetadata: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		t.Fatalf("reading metadata file: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"layer", "data_min", "data_max", "thresholds", "generated_at", "use_legacy_thresholds"} {
		if _, ok := m[key]; !ok {
			t.Errorf("key %q missing from metadata file", key)
		}
	}
	if raw[len(raw)-1] != '\n' {
		t.Error("metadata file does not end with a newline")
	}
}
