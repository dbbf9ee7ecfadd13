package caltab

import (
	"testing"

	"github.com/eso-vlt/vimos-specred/internal/fsutil"
	"github.com/eso-vlt/vimos-specred/internal/specred/polynomial"
	"github.com/eso-vlt/vimos-specred/internal/specred/table"
)

func TestCCDTableRoundTrip(t *testing.T) {
	c := NewCCDTable(1024.5, 3.2)
	if err := c.AddBadPixelRegion(Rect{10, 10, 20, 20}); err != nil {
		t.Fatal(err)
	}
	if err := c.AddBadPixelRegion(Rect{100, 100, 105, 108}); err != nil {
		t.Fatal(err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	fs := fsutil.NewMemoryFileSystem()
	if err := table.Write(fs, "ccd.fits", c.Table); err != nil {
		t.Fatalf("Write: %v", err)
	}
	raw, err := table.Read(fs, "ccd.fits", TagCCD)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	got := &CCDTable{raw}
	if err := got.Validate(); err != nil {
		t.Fatalf("Validate after round-trip: %v", err)
	}
	bias, err := got.BiasLevel()
	if err != nil {
		t.Fatal(err)
	}
	if bias != 1024.5 {
		t.Fatalf("BiasLevel = %v, want 1024.5", bias)
	}
	regions, err := got.BadPixelRegions()
	if err != nil {
		t.Fatal(err)
	}
	if len(regions) != 2 || regions[1] != (Rect{100, 100, 105, 108}) {
		t.Fatalf("BadPixelRegions = %+v", regions)
	}
}

func TestExtractionTableSlitRoundTrip(t *testing.T) {
	e := NewExtractionTable()
	invDisp, _ := polynomial.New(1)
	invDisp.SetCoeff([]int{0}, 4000)
	invDisp.SetCoeff([]int{1}, 2.5)
	curv, _ := polynomial.New(1)
	curv.SetCoeff([]int{0}, 0.1)

	if err := e.AddSlit(ExtractionSlit{
		Slit: 1, IFUSlit: 2, IFUFibre: 3,
		CCDX: []float64{10, 11, 12}, CCDY: []float64{0, 1, 2},
		InvDisp: invDisp, Curvature: curv, PeakX: 123.5,
	}); err != nil {
		t.Fatalf("AddSlit: %v", err)
	}
	if err := e.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if e.NSlits() != 1 {
		t.Fatalf("NSlits = %d, want 1", e.NSlits())
	}
	got, err := e.Slit(0)
	if err != nil {
		t.Fatal(err)
	}
	if got.Slit != 1 || got.IFUSlit != 2 || got.IFUFibre != 3 || got.PeakX != 123.5 {
		t.Fatalf("Slit round-trip mismatch: %+v", got)
	}
	if len(got.CCDX) != 3 || got.CCDX[2] != 12 {
		t.Fatalf("CCDX mismatch: %v", got.CCDX)
	}
	v, err := got.InvDisp.Eval1D(2)
	if err != nil {
		t.Fatal(err)
	}
	if v != 4005 {
		t.Fatalf("InvDisp.Eval1D(2) = %v, want 4005", v)
	}
}

func TestWindowTableObjectSpanValidation(t *testing.T) {
	w := NewWindowTable()
	w.AddSlit(WindowSlit{
		SlitNumber: 1, SpecStart: 100, SpecEnd: 200,
		Objects: []WindowObject{{ObjStart: 0, ObjEnd: 100, ID: 1, Position: 50, Width: 5}},
	})
	if err := w.Flatten(); err != nil {
		t.Fatal(err)
	}
	if err := w.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	bad := NewWindowTable()
	bad.AddSlit(WindowSlit{
		SlitNumber: 1, SpecStart: 100, SpecEnd: 200,
		Objects: []WindowObject{{ObjStart: 0, ObjEnd: 150, ID: 1}},
	})
	if err := bad.Flatten(); err != nil {
		t.Fatal(err)
	}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected span-out-of-range error")
	}
}

func TestIFUTableTotalsAndRoundTrip(t *testing.T) {
	ifu := NewIFUTable(1, 10, 10)
	idx := 0
	for slit := 0; slit < SlitsPerQuadrant; slit++ {
		for seq := 0; seq < FibresPerSlit; seq++ {
			trans := 0.9
			if seq%50 == 0 {
				trans = DeadFibreTransmission
			}
			if err := ifu.SetFibre(idx, IFUFibre{
				Slit: slit, SeqInSlit: seq, L: seq % 20, M: seq / 20,
				X: float64(idx), Y: float64(slit), Transmission: trans,
				FWHM: 2.1, SigmaY: 0.9, Group: seq % 8,
			}); err != nil {
				t.Fatal(err)
			}
			idx++
		}
	}
	if err := ifu.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	good, dead := ifu.Totals()
	if good+dead != FibresPerQuadrant {
		t.Fatalf("good+dead = %d, want %d", good+dead, FibresPerQuadrant)
	}
	perSlit := make(map[int]int)
	for idx := 0; idx < FibresPerQuadrant; idx++ {
		fib, err := ifu.Fibre(idx)
		if err != nil {
			t.Fatal(err)
		}
		perSlit[fib.Slit]++
	}
	for slit := 0; slit < SlitsPerQuadrant; slit++ {
		if perSlit[slit] != FibresPerSlit {
			t.Fatalf("slit %d has %d fibres, want %d", slit, perSlit[slit], FibresPerSlit)
		}
	}

	ifu.SetSkyGroupCount(8)
	if err := ifu.Flatten(); err != nil {
		t.Fatal(err)
	}

	fs := fsutil.NewMemoryFileSystem()
	if err := table.Write(fs, "ifu.fits", ifu.Table); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := table.Read(fs, "ifu.fits", TagIFU); err != nil {
		t.Fatalf("Read: %v", err)
	}
}

func TestPhotometricTableStars(t *testing.T) {
	p := NewPhotometricTable(25.1, 0.15, -0.02, 0.01, 0.03)
	p.AddStar(StarZeropoint{Image: "img001", StarID: 1, Zeropoint: 25.05})
	p.AddStar(StarZeropoint{Image: "img001", StarID: 2, Zeropoint: 25.12})
	if err := p.Flatten(); err != nil {
		t.Fatal(err)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(p.Stars()) != 2 {
		t.Fatalf("Stars() len = %d, want 2", len(p.Stars()))
	}
	magZero, _, _, _, rms, err := p.Coefficients()
	if err != nil {
		t.Fatal(err)
	}
	if magZero != 25.1 || rms != 0.03 {
		t.Fatalf("Coefficients mismatch: magZero=%v rms=%v", magZero, rms)
	}
}

func TestStandardFluxTableInterpolation(t *testing.T) {
	s := NewStandardFluxTable()
	s.AddPoint(4000, 1.0, 50)
	s.AddPoint(5000, 2.0, 50)
	s.AddPoint(6000, 4.0, 50)
	if err := s.Flatten(); err != nil {
		t.Fatal(err)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	v, err := s.FluxAt(4500)
	if err != nil {
		t.Fatal(err)
	}
	if v != 1.5 {
		t.Fatalf("FluxAt(4500) = %v, want 1.5", v)
	}
	v, err = s.FluxAt(3000) // below range: clamps to first
	if err != nil {
		t.Fatal(err)
	}
	if v != 1.0 {
		t.Fatalf("FluxAt(3000) = %v, want 1.0 (clamped)", v)
	}
}

func TestStarTableRows(t *testing.T) {
	s := NewStarTable(1.2, 25.0)
	s.AddStar(StarRow{Number: 1, XImage: 100, YImage: 200, XWorld: 10.5, YWorld: -5.5, Mag: 18.2})
	if err := s.Flatten(); err != nil {
		t.Fatal(err)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(s.Stars()) != 1 {
		t.Fatalf("Stars() len = %d, want 1", len(s.Stars()))
	}
}

func TestIDSTablePolynomialRoundTrip(t *testing.T) {
	p, _ := polynomial.New(2)
	p.SetCoeff([]int{1, 0}, 2.5)
	p.SetCoeff([]int{0, 2}, -0.3)

	ids := NewIDSTable()
	ids.SetPolynomial(p)
	if err := ids.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	fs := fsutil.NewMemoryFileSystem()
	if err := table.Write(fs, "ids.fits", ids.Table); err != nil {
		t.Fatalf("Write: %v", err)
	}
	rawTbl, err := table.Read(fs, "ids.fits", TagIDS)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	got := &IDSTable{rawTbl}
	recovered, err := got.Polynomial()
	if err != nil {
		t.Fatalf("Polynomial: %v", err)
	}
	if !polynomial.Compare(p, recovered, 1e-9) {
		t.Fatalf("recovered polynomial does not match original")
	}
}
