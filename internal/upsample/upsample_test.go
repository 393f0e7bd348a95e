package upsample

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func writeTile(t *testing.T, root, layer string, z, x, y int, ext string, data []byte) {
	t.Helper()
	dir := filepath.Join(root, layer, strconv.Itoa(z), strconv.Itoa(x))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, strconv.Itoa(y)+ext), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func readTile(t *testing.T, root, layer string, z, x, y int, ext string) []byte {
	t.Helper()
	path := filepath.Join(root, layer, strconv.Itoa(z), strconv.Itoa(x), strconv.Itoa(y)+ext)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading child tile: %v", err)
	}
	return data
}

func TestRun_ReplicatesAcrossZooms(t *testing.T) {
	root := t.TempDir()
	parent := []byte("tile-bytes")
	writeTile(t, root, "pm25", 8, 231, 140, ".png", parent)

	created, err := Run(Config{Root: root, Layers: []string{"pm25"}, MinZoom: 8, MaxZoom: 10, Workers: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// 4 children at zoom 9, then 16 grandchildren at zoom 10.
	if created != 20 {
		t.Fatalf("created = %d, want 20", created)
	}

	for _, c := range [][2]int{{462, 280}, {463, 280}, {462, 281}, {463, 281}} {
		got := readTile(t, root, "pm25", 9, c[0], c[1], ".png")
		if !bytes.Equal(got, parent) {
			t.Errorf("child 9/%d/%d differs from parent", c[0], c[1])
		}
	}
	if got := readTile(t, root, "pm25", 10, 925, 561, ".png"); !bytes.Equal(got, parent) {
		t.Error("grandchild 10/925/561 differs from parent")
	}
}

func TestRun_Idempotent(t *testing.T) {
	root := t.TempDir()
	writeTile(t, root, "pm25", 8, 231, 140, ".png", []byte("v1"))

	first, err := Run(Config{Root: root, Layers: []string{"pm25"}, MinZoom: 8, MaxZoom: 9})
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	second, err := Run(Config{Root: root, Layers: []string{"pm25"}, MinZoom: 8, MaxZoom: 9})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if first != 4 || second != 4 {
		t.Errorf("created = %d then %d, want 4 both times", first, second)
	}
	if got := readTile(t, root, "pm25", 9, 462, 280, ".png"); string(got) != "v1" {
		t.Errorf("child content %q after re-run", got)
	}
}

func TestRun_DiscoversLayers(t *testing.T) {
	root := t.TempDir()
	writeTile(t, root, "pm25", 8, 10, 20, ".png", []byte("a"))
	writeTile(t, root, "uv", 8, 10, 20, ".webp", []byte("b"))
	if err := os.MkdirAll(filepath.Join(root, "scratch"), 0o755); err != nil {
		t.Fatal(err)
	}

	created, err := Run(Config{Root: root, MinZoom: 8, MaxZoom: 9})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if created != 8 {
		t.Fatalf("created = %d, want 8 across two discovered layers", created)
	}

	// Children keep the parent's encoding.
	if got := readTile(t, root, "uv", 9, 21, 41, ".webp"); string(got) != "b" {
		t.Errorf("webp child content %q", got)
	}
	if _, err := os.Stat(filepath.Join(root, "scratch", "9")); !os.IsNotExist(err) {
		t.Error("non-layer directory was upsampled")
	}
}

func TestRun_MissingParentZoom(t *testing.T) {
	root := t.TempDir()
	writeTile(t, root, "pm25", 9, 462, 280, ".png", []byte("x"))

	created, err := Run(Config{Root: root, Layers: []string{"pm25"}, MinZoom: 7, MaxZoom: 9})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Zooms 7 and 8 hold no parents; nothing cascades into 9.
	if created != 0 {
		t.Fatalf("created = %d, want 0", created)
	}
}

func TestRun_Validation(t *testing.T) {
	if _, err := Run(Config{Root: t.TempDir(), MinZoom: 9, MaxZoom: 8}); err == nil {
		t.Error("inverted zoom range accepted")
	}
	if _, err := Run(Config{Root: t.TempDir(), Layers: []string{"bogus"}, MinZoom: 8, MaxZoom: 9}); err == nil {
		t.Error("unknown layer accepted")
	}
}
