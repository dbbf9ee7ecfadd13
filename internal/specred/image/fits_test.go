package image

import (
	"testing"

	"github.com/eso-vlt/vimos-specred/internal/fsutil"
	"github.com/eso-vlt/vimos-specred/internal/specred"
	"github.com/eso-vlt/vimos-specred/internal/specred/fitsio"
)

func TestWriteFITSThenReadFITSRoundTrips(t *testing.T) {
	img := New(3, 2)
	for i := range img.Data {
		img.Data[i] = float64(i)
	}
	img.Descriptors.Put(specred.NewDouble("EXPTIME", 120.0, ""))

	f, err := fitsio.Open(fsutil.NewMemoryFileSystem(), "frame.fits")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	WriteFITS(f, img)

	got, err := ReadFITS(f)
	if err != nil {
		t.Fatalf("ReadFITS: %v", err)
	}
	if got.NX != 3 || got.NY != 2 {
		t.Fatalf("dims = %dx%d, want 3x2", got.NX, got.NY)
	}
	for i := range img.Data {
		if got.Data[i] != img.Data[i] {
			t.Fatalf("Data[%d] = %v, want %v", i, got.Data[i], img.Data[i])
		}
	}
	d, err := got.Descriptors.Get("EXPTIME")
	if err != nil {
		t.Fatalf("Get EXPTIME: %v", err)
	}
	v, err := d.Double()
	if err != nil || v != 120.0 {
		t.Fatalf("EXPTIME = %v (err=%v), want 120.0", v, err)
	}
}
