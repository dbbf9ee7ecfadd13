package mos

import (
	"math"
	"testing"

	"github.com/eso-vlt/vimos-specred/internal/specred/caltab"
)

func buildStandardFlux(t *testing.T) *caltab.StandardFluxTable {
	t.Helper()
	s := caltab.NewStandardFluxTable()
	s.AddPoint(4000, 1.0, 10)
	s.AddPoint(5000, 1.0, 10)
	s.AddPoint(6000, 1.0, 10)
	return s
}

func TestCalPhotRecoversZeroPointForFlatStandard(t *testing.T) {
	std := buildStandardFlux(t)
	wave := []float64{4000, 5000, 6000}
	spectrum := []float64{100, 100, 100}
	zp, err := CalPhot(spectrum, wave, std)
	if err != nil {
		t.Fatalf("CalPhot: %v", err)
	}
	// catalogue flux integrates to 1.0*10*3 = 30, measured to 300: the
	// zero-point should be the magnitude offset between those totals.
	want := -2.5 * (math.Log10(30) - math.Log10(300))
	almostEqual(t, zp, want, 1e-9, "zero-point")
}

func TestCalPhotRejectsMismatchedLengths(t *testing.T) {
	std := buildStandardFlux(t)
	_, err := CalPhot([]float64{1, 2}, []float64{4000, 5000, 6000}, std)
	if err == nil {
		t.Fatal("expected error for mismatched spectrum/wave lengths")
	}
}

func TestCalPhotCallbackAppendsStarRow(t *testing.T) {
	std := buildStandardFlux(t)
	photTab := caltab.NewPhotometricTable(0, 0, 0, 0, 0)
	cb := CalPhotCallback([]float64{4000, 5000, 6000}, std, photTab, "std.fits", 1)
	if err := cb([]float64{100, 100, 100}, 1); err != nil {
		t.Fatalf("callback: %v", err)
	}
	stars := photTab.Stars()
	if len(stars) != 1 || stars[0].StarID != 1 || stars[0].Image != "std.fits" {
		t.Fatalf("unexpected star rows: %+v", stars)
	}
}
