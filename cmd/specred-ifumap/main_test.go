package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/eso-vlt/vimos-specred/internal/fsutil"
	"github.com/eso-vlt/vimos-specred/internal/specred/fitsio"
	"github.com/eso-vlt/vimos-specred/internal/specred/image"
)

func writeMapFITS(t *testing.T, path string) {
	t.Helper()
	img := image.New(8, 8)
	for i := range img.Data {
		img.Data[i] = float64(i)
	}
	f, err := fitsio.Open(fsutil.OSFileSystem{}, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	image.WriteFITS(f, img)
	if err := f.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func TestRunRendersHeatMapPNG(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "map.fits")
	outPath := filepath.Join(dir, "map.png")
	writeMapFITS(t, inPath)

	if code := run([]string{"-in", inPath, "-out", outPath}); code != 0 {
		t.Fatalf("run() = %d, want 0", code)
	}
	info, err := os.Stat(outPath)
	if err != nil {
		t.Fatalf("expected output file: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("output PNG is empty")
	}
}

func TestRunRequiresInAndOut(t *testing.T) {
	if code := run(nil); code != 2 {
		t.Fatalf("run() = %d, want 2", code)
	}
}
