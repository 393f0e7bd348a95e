package tile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFSStore_WriteTile(t *testing.T) {
	root := t.TempDir()
	store := NewFSStore(root, "pm25", ".png")

	if err := store.WriteTile(8, 231, 140, []byte("abc")); err != nil {
		t.Fatalf("WriteTile: %v", err)
	}
	if err := store.WriteTile(8, 232, 140, []byte("defgh")); err != nil {
		t.Fatalf("WriteTile: %v", err)
	}

	want := filepath.Join(root, "pm25", "8", "231", "140.png")
	if got := store.TilePath(8, 231, 140); got != want {
		t.Errorf("TilePath = %q, want %q", got, want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("reading tile: %v", err)
	}
	if string(data) != "abc" {
		t.Errorf("tile content = %q, want %q", data, "abc")
	}

	tiles, bytes := store.Written()
	if tiles != 2 || bytes != 8 {
		t.Errorf("Written() = (%d, %d), want (2, 8)", tiles, bytes)
	}
}

func TestFSStore_NoWritesLeavesNoDirectories(t *testing.T) {
	root := t.TempDir()
	store := NewFSStore(root, "uv", ".png")

	if _, err := os.Stat(store.LayerDir()); !os.IsNotExist(err) {
		t.Fatalf("layer directory exists before any write (stat err: %v)", err)
	}
}
