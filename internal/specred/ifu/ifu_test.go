package ifu

import (
	"testing"

	"github.com/eso-vlt/vimos-specred/internal/config"
	"github.com/eso-vlt/vimos-specred/internal/specred/caltab"
	"github.com/eso-vlt/vimos-specred/internal/specred/image"
	"github.com/eso-vlt/vimos-specred/internal/specred/polynomial"
)

func buildQuadrant(t *testing.T) *caltab.IFUTable {
	t.Helper()
	ifuTab := caltab.NewIFUTable(1, 0, 1)
	idx := 0
	for slit := 1; slit <= caltab.SlitsPerQuadrant; slit++ {
		fibres := ComputeSlit(slit, SlitGeometry{
			StartL: 0, StartM: slit, FibreLStep: 1, ModuleMStep: 0,
			StartX: 0, FibreXStep: 2.0, Y: float64(slit), ModuleXGap: 5.0,
		})
		for _, f := range fibres {
			if err := ifuTab.SetFibre(idx, f); err != nil {
				t.Fatal(err)
			}
			idx++
		}
	}
	return ifuTab
}

func TestComputeSlitEnumeratesFourHundredFibres(t *testing.T) {
	fibres := ComputeSlit(1, SlitGeometry{
		StartL: 0, StartM: 1, FibreLStep: 1, ModuleMStep: 1,
		StartX: 0, FibreXStep: 1, Y: 10, ModuleXGap: 3,
	})
	if len(fibres) != caltab.FibresPerSlit {
		t.Fatalf("len = %d, want %d", len(fibres), caltab.FibresPerSlit)
	}
	seen := make(map[int]bool)
	for _, f := range fibres {
		if f.SeqInSlit < 1 || f.SeqInSlit > caltab.FibresPerSlit {
			t.Fatalf("SeqInSlit out of range: %d", f.SeqInSlit)
		}
		seen[f.SeqInSlit] = true
	}
	if len(seen) != caltab.FibresPerSlit {
		t.Fatalf("got %d distinct SeqInSlit values, want %d", len(seen), caltab.FibresPerSlit)
	}
	// line 0 steps L upward, line 1 (within the same module) steps it
	// downward from the same starting L.
	if fibres[1].L <= fibres[0].L {
		t.Fatalf("expected line 0 to step L upward: fibres[0].L=%d fibres[1].L=%d", fibres[0].L, fibres[1].L)
	}
	if fibres[fibresPerLine+1].L >= fibres[fibresPerLine].L {
		t.Fatalf("expected line 1 to step L downward: fibres[%d].L=%d fibres[%d].L=%d",
			fibresPerLine, fibres[fibresPerLine].L, fibresPerLine+1, fibres[fibresPerLine+1].L)
	}
}

func TestBuildQuadrantTotals(t *testing.T) {
	ifuTab := buildQuadrant(t)
	if err := ifuTab.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	good, dead := ifuTab.Totals()
	if good+dead != caltab.FibresPerQuadrant {
		t.Fatalf("good+dead = %d, want %d", good+dead, caltab.FibresPerQuadrant)
	}
	if dead != 0 {
		t.Fatalf("expected no dead fibres from ComputeSlit, got %d", dead)
	}
}

func TestDeriveWindowTableMatchesIFUFibres(t *testing.T) {
	ifuTab := buildQuadrant(t)
	ext := caltab.NewExtractionTable()
	p, _ := polynomial.New(1)
	p.SetCoeff([]int{0}, 4000)
	p.SetCoeff([]int{1}, 1)
	if err := ext.AddSlit(caltab.ExtractionSlit{
		Slit: 1, IFUSlit: 1, IFUFibre: 1,
		CCDX: []float64{10, 11, 12}, CCDY: []float64{0, 1, 2},
		InvDisp: p, PeakX: 11,
	}); err != nil {
		t.Fatal(err)
	}
	win, err := DeriveWindowTable(ext, ifuTab, 0, 100)
	if err != nil {
		t.Fatalf("DeriveWindowTable: %v", err)
	}
	if win.NSlits() != 1 {
		t.Fatalf("NSlits = %d, want 1", win.NSlits())
	}
	s, err := win.Slit(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Objects) != 1 || s.Objects[0].ObjEnd != 100 {
		t.Fatalf("window slit mismatch: %+v", s)
	}
	if s.Objects[0].SkyX != 11 {
		t.Fatalf("SkyX = %v, want mid-point CCDX 11", s.Objects[0].SkyX)
	}
}

func TestFloodFillGroupsConnectedRegion(t *testing.T) {
	img := image.New(5, 5)
	for _, p := range [][2]int{{1, 1}, {1, 2}, {2, 1}, {2, 2}} {
		if err := img.Set(p[0], p[1], 10); err != nil {
			t.Fatal(err)
		}
	}
	if err := img.Set(4, 4, 10); err != nil {
		t.Fatal(err)
	}
	regions := FloodFill(img, 5)
	if len(regions) != 2 {
		t.Fatalf("len(regions) = %d, want 2", len(regions))
	}
	var big *PixelRegion
	for _, r := range regions {
		if r.Contains(1, 1) {
			big = r
		}
	}
	if big == nil {
		t.Fatal("expected a region containing (1,1)")
	}
	if big.TotalIntensity() != 40 {
		t.Fatalf("TotalIntensity = %v, want 40", big.TotalIntensity())
	}
}

func TestImage2DAndCube3DPlaceAtLM(t *testing.T) {
	objs := []Object{
		{L: 1, M: 1, Spectrum: []float64{1, 2, 3, 4}},
		{L: 80, M: 80, Spectrum: []float64{5, 5, 5, 5}},
	}
	img, err := Image2D(objs, 0, 3)
	if err != nil {
		t.Fatal(err)
	}
	v, _ := img.At(0, 0)
	if v != 10 {
		t.Fatalf("Image2D(0,0) = %v, want 10", v)
	}
	v, _ = img.At(79, 79)
	if v != 20 {
		t.Fatalf("Image2D(79,79) = %v, want 20", v)
	}

	cube, err := Cube3DFrom(objs, 4)
	if err != nil {
		t.Fatal(err)
	}
	if cube.Data[0][0][2] != 3 {
		t.Fatalf("cube[0][0][2] = %v, want 3", cube.Data[0][0][2])
	}
}

func TestSkyCombinesBelowThresholdFibresIntoGroup(t *testing.T) {
	ifuTab := buildQuadrant(t)
	spectra := make([][]float64, caltab.FibresPerQuadrant)
	for idx := 0; idx < caltab.FibresPerQuadrant; idx++ {
		fib, err := ifuTab.Fibre(idx)
		if err != nil {
			t.Fatal(err)
		}
		fib.Group = 1
		fib.SigmaY = 2.0
		if err := ifuTab.SetFibre(idx, fib); err != nil {
			t.Fatal(err)
		}
		spectra[idx] = []float64{1, 2, 3}
	}
	// make one fibre an outlier so it should be excluded from the sky combine.
	spectra[0] = []float64{1000, 2000, 3000}

	out := image.New(3, caltab.FibresPerQuadrant)
	if err := Sky(out, ifuTab, spectra, SkyMedian); err != nil {
		t.Fatalf("Sky: %v", err)
	}
	v, err := out.At(0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if v != 1 {
		t.Fatalf("sky value at pixel 0 = %v, want 1 (outlier excluded)", v)
	}
}

// buildTransmissionSpectra returns a FibresPerQuadrant x 20 spectra set
// with a sky-line peak at pixel 10, scaled by fibre index (mod 3) and by
// scale, so fibres differ in measured flux and separate images in a set
// can carry different flux levels for GetTransmission to average.
func buildTransmissionSpectra(scale float64) [][]float64 {
	spectra := make([][]float64, caltab.FibresPerQuadrant)
	for idx := 0; idx < caltab.FibresPerQuadrant; idx++ {
		spectra[idx] = make([]float64, 20)
		for i := range spectra[idx] {
			spectra[idx][i] = 1
		}
		spectra[idx][10] = scale * (10 + float64(idx%3))
	}
	return spectra
}

func TestGetTransmissionAndApplyTransmissionRoundTrip(t *testing.T) {
	ifuTab := buildQuadrant(t)
	// two images in the set, at different flux scales, so GetTransmission
	// must average across them rather than process only the first.
	spectraSets := [][][]float64{buildTransmissionSpectra(1.0), buildTransmissionSpectra(1.5)}
	spectra := spectraSets[0]
	refL, refM, err := ifuTab.RefFibre()
	if err != nil {
		t.Fatal(err)
	}
	_ = refL
	_ = refM

	if err := GetTransmission(ifuTab, spectraSets, TransmissionParams{SkyLines: []float64{10}, Window: 3}); err != nil {
		t.Fatalf("GetTransmission: %v", err)
	}
	good, dead := ifuTab.Totals()
	if good+dead != caltab.FibresPerQuadrant {
		t.Fatalf("good+dead = %d, want %d", good+dead, caltab.FibresPerQuadrant)
	}

	img := image.New(20, caltab.FibresPerQuadrant)
	for idx := 0; idx < caltab.FibresPerQuadrant; idx++ {
		for x, v := range spectra[idx] {
			if err := img.Set(x, idx, v); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := ApplyTransmission(img, ifuTab, 1.0); err != nil {
		t.Fatalf("ApplyTransmission: %v", err)
	}
}

func TestComputePSFAssignsGroupsInRange(t *testing.T) {
	ifuTab := buildQuadrant(t)
	spectra := make([][]float64, caltab.FibresPerQuadrant)
	for idx := 0; idx < caltab.FibresPerQuadrant; idx++ {
		spectra[idx] = make([]float64, 30)
		sigma := 1.0 + float64(idx%5)*0.5
		for x := 0; x < 30; x++ {
			dx := float64(x - 15)
			spectra[idx][x] = 100 * gaussianValue(dx, sigma)
		}
	}
	cfg := config.EmptyRecipeConfig()
	if err := ComputePSF(ifuTab, spectra, PSFParams{SkyLines: []float64{15}, Window: 6}, cfg); err != nil {
		t.Fatalf("ComputePSF: %v", err)
	}
	nIntervals := cfg.GetIFUNIntervals()
	for idx := 0; idx < caltab.FibresPerQuadrant; idx++ {
		fib, err := ifuTab.Fibre(idx)
		if err != nil {
			t.Fatal(err)
		}
		if fib.Group < 1 || fib.Group > nIntervals {
			t.Fatalf("fibre %d group = %d, want in [1,%d]", idx, fib.Group, nIntervals)
		}
	}
}

func gaussianValue(dx, sigma float64) float64 {
	return evalGaussian(dx, 0, sigma, 1)
}
