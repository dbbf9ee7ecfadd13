package fitsio

import (
	"testing"

	"github.com/eso-vlt/vimos-specred/internal/fsutil"
)

func TestPrimaryImageRoundTrip(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	f, err := Open(fs, "/out/product.fits")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	f.Primary = &Image{
		Header: []Card{{Key: "TELESCOP", Value: "VLT"}},
		Naxis:  []int{2, 2},
		Data:   []float64{1, 2, 3, 4},
	}
	if err := f.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	f2, err := Open(fs, "/out/product.fits")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if len(f2.Primary.Data) != 4 {
		t.Fatalf("got %d pixels, want 4", len(f2.Primary.Data))
	}
	for i, want := range []float64{1, 2, 3, 4} {
		if f2.Primary.Data[i] != want {
			t.Errorf("pixel %d = %v, want %v", i, f2.Primary.Data[i], want)
		}
	}
	var found bool
	for _, c := range f2.Primary.Header {
		if c.Key == "TELESCOP" && c.Value == "VLT" {
			found = true
		}
	}
	if !found {
		t.Error("TELESCOP descriptor not round-tripped")
	}
}

func TestBinTableRoundTrip(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	f, _ := Open(fs, "/out/ext.fits")
	f.Primary = &Image{Naxis: []int{0, 0}}
	tbl := &BinTable{
		Extname: "EXT",
		Header:  []Card{{Key: "ESO PRO CATG", Value: "EXTRACT_TABLE"}},
		Columns: []ColumnSpec{
			{Name: "SLIT", Form: "1J"},
			{Name: "CCDX", Form: "1D"},
			{Name: "NAME", Form: "8A"},
		},
		NRows: 2,
		Data: map[string][]any{
			"SLIT": {int32(1), int32(2)},
			"CCDX": {100.5, 200.25},
			"NAME": {"slit-one", "slit-two"},
		},
	}
	f.SetExtension(tbl)
	if err := f.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	f2, err := Open(fs, "/out/ext.fits")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, ok := f2.Extension("EXT")
	if !ok {
		t.Fatal("EXT extension not found after round trip")
	}
	if got.NRows != 2 {
		t.Fatalf("NRows = %d, want 2", got.NRows)
	}
	if got.Data["SLIT"][1].(int32) != 2 {
		t.Errorf("SLIT[1] = %v, want 2", got.Data["SLIT"][1])
	}
	if got.Data["CCDX"][0].(float64) != 100.5 {
		t.Errorf("CCDX[0] = %v, want 100.5", got.Data["CCDX"][0])
	}
	if got.Data["NAME"][0].(string) != "slit-one" {
		t.Errorf("NAME[0] = %q, want slit-one", got.Data["NAME"][0])
	}
}

func TestSetExtensionDeletesExisting(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	f, _ := Open(fs, "/out/a.fits")
	f.Primary = &Image{Naxis: []int{0, 0}}
	f.SetExtension(&BinTable{Extname: "WIN", Columns: []ColumnSpec{{Name: "N", Form: "1J"}}, NRows: 1, Data: map[string][]any{"N": {int32(1)}}})
	f.SetExtension(&BinTable{Extname: "WIN", Columns: []ColumnSpec{{Name: "N", Form: "1J"}}, NRows: 1, Data: map[string][]any{"N": {int32(9)}}})

	if len(f.ExtensionNames()) != 1 {
		t.Fatalf("expected 1 extension after overwrite, got %d", len(f.ExtensionNames()))
	}
	tbl, _ := f.Extension("WIN")
	if tbl.Data["N"][0].(int32) != 9 {
		t.Errorf("expected overwritten value 9, got %v", tbl.Data["N"][0])
	}
}

func TestIsStructuralKeyword(t *testing.T) {
	for _, k := range []string{"NAXIS", "NAXIS1", "TFIELDS", "TTYPE1", "TFORM2", "TUNIT1", "EXTNAME"} {
		if !IsStructuralKeyword(k) {
			t.Errorf("%q should be structural", k)
		}
	}
	if IsStructuralKeyword("ESO PRO CATG") {
		t.Error("ESO PRO CATG should not be structural")
	}
}

func TestMD5Signature(t *testing.T) {
	a := MD5Signature([]byte("hello"))
	b := MD5Signature([]byte("hello"))
	c := MD5Signature([]byte("world"))
	if a != b {
		t.Error("MD5Signature not deterministic")
	}
	if a == c {
		t.Error("MD5Signature collided for different input")
	}
}
