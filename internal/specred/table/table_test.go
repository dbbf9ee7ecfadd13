package table

import (
	"testing"

	"github.com/eso-vlt/vimos-specred/internal/fsutil"
	"github.com/eso-vlt/vimos-specred/internal/specred"
)

func buildSampleTable(t *testing.T) *Table {
	t.Helper()
	tbl := New("EXT")
	if err := tbl.Descriptors.Append(specred.NewInt("ESO PRO SLITS", 2, "slit count")); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Descriptors.Append(specred.NewDouble("ESO PRO WLEN START", 4000.0, "")); err != nil {
		t.Fatal(err)
	}
	slitCol := specred.NewIntColumn("SLIT", 2)
	slitCol.SetInt(0, 1)
	slitCol.SetInt(1, 2)
	xCol := specred.NewDoubleColumn("CCDX", 2)
	xCol.SetDouble(0, 100.25)
	xCol.SetDouble(1, 200.75)
	nameCol := specred.NewStringColumn("LABEL", 2)
	nameCol.SetString(0, "slit-one")
	nameCol.SetString(1, "slit-two-longer")
	if err := tbl.Columns.Append(slitCol); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Columns.Append(xCol); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Columns.Append(nameCol); err != nil {
		t.Fatal(err)
	}
	return tbl
}

func TestTableWriteReadRoundTrip(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	tbl := buildSampleTable(t)

	if err := Write(fs, "/product/ext.fits", tbl); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(fs, "/product/ext.fits", "EXT")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if got.Columns.NRows() != 2 {
		t.Fatalf("NRows = %d, want 2", got.Columns.NRows())
	}
	xCol, err := got.Columns.Get("CCDX")
	if err != nil {
		t.Fatal(err)
	}
	v, _ := xCol.GetDouble(1)
	if v != 200.75 {
		t.Errorf("CCDX[1] = %v, want 200.75", v)
	}
	labelCol, err := got.Columns.Get("LABEL")
	if err != nil {
		t.Fatal(err)
	}
	s, _ := labelCol.GetString(1)
	if s != "slit-two-longer" {
		t.Errorf("LABEL[1] = %q, want slit-two-longer", s)
	}

	d, err := got.Descriptors.Get("ESO PRO WLEN START")
	if err != nil {
		t.Fatal(err)
	}
	dv, _ := d.Double()
	if dv != 4000.0 {
		t.Errorf("ESO PRO WLEN START = %v, want 4000", dv)
	}
}

func TestTableValidateRejectsTagMismatch(t *testing.T) {
	tbl := New("EXT")
	tbl.Descriptors.Put(specred.NewString("TABLE", "WIN", ""))
	if err := tbl.Validate(); err == nil {
		t.Fatal("expected validation error for mismatched TABLE descriptor")
	}
}

func TestTableRewriteDeletesExistingExtension(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	tbl := buildSampleTable(t)
	if err := Write(fs, "/product/ext.fits", tbl); err != nil {
		t.Fatal(err)
	}

	tbl2 := New("EXT")
	col := specred.NewIntColumn("SLIT", 1)
	col.SetInt(0, 99)
	tbl2.Columns.Append(col) //nolint:errcheck

	if err := Write(fs, "/product/ext.fits", tbl2); err != nil {
		t.Fatal(err)
	}

	got, err := Read(fs, "/product/ext.fits", "EXT")
	if err != nil {
		t.Fatal(err)
	}
	if got.Columns.NRows() != 1 {
		t.Fatalf("expected overwritten table with 1 row, got %d", got.Columns.NRows())
	}
}
