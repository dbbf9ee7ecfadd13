package ifu

import (
	"math"

	"github.com/eso-vlt/vimos-specred/internal/specred/caltab"
	"github.com/eso-vlt/vimos-specred/internal/specred/image"
	"github.com/eso-vlt/vimos-specred/internal/specred/kind"
)

// QuadrantsPerIFU is the number of quadrants making up the full IFU
// field (§3.4): 4 quadrants of caltab.FibresPerQuadrant fibres each,
// 6400 fibres total.
const QuadrantsPerIFU = 4

// CalPhotParams configures ifu_cal_phot's flood-fill-corrected
// reference-fibre calibration (§4.4.9).
type CalPhotParams struct {
	IntFrac  float64 // flood-fill threshold fraction of the peak, default 0.05
	FitOrder int
}

// CalPhotResult reports the peak fibre and the correction applied before
// calibration.
type CalPhotResult struct {
	PeakQuadrant      int
	PeakIdx           int
	RefTotIntensity   float64
	Fraction          float64
	CorrectedSpectrum []float64
}

// CalPhot integrates every one of the 6400 fibres' spectra across all 4
// quadrants, identifies the brightest as reference, flood-fills the
// combined 80x80 integrated-flux image at intFrac*peak to recover light
// spread into neighbouring fibres, and corrects the reference spectrum
// before handing off to the MOS spectro-photometric fit (ifu_cal_phot,
// §4.4.9). ifuTabs and spectraSets must each hold QuadrantsPerIFU
// entries, one per quadrant, sharing the same (L,M) 80x80 field. fitPhot
// stands in for the legacy VmSpCalPhot call (mos.CalPhot), injected
// rather than imported directly to avoid a cycle between ifu and mos.
func CalPhot(ifuTabs []*caltab.IFUTable, spectraSets [][][]float64, p CalPhotParams,
	fitPhot func(spectrum []float64, fitOrder int) error) (*CalPhotResult, error) {
	if len(ifuTabs) != QuadrantsPerIFU || len(spectraSets) != QuadrantsPerIFU {
		return nil, kind.New(kind.Incompatible, "expected %d quadrants, got %d tables and %d spectra sets",
			QuadrantsPerIFU, len(ifuTabs), len(spectraSets))
	}
	for q, spectra := range spectraSets {
		if len(spectra) != caltab.FibresPerQuadrant {
			return nil, kind.New(kind.Incompatible, "quadrant %d: expected %d fibre spectra, got %d", q, caltab.FibresPerQuadrant, len(spectra))
		}
	}
	intFrac := p.IntFrac
	if intFrac <= 0 {
		intFrac = 0.05
	}

	integrated := make([][]float64, QuadrantsPerIFU)
	peakQuad, peakIdx := 0, 0
	peakVal := math.Inf(-1)
	for q, spectra := range spectraSets {
		integrated[q] = make([]float64, caltab.FibresPerQuadrant)
		for i, s := range spectra {
			v := sumSpectrum(s)
			integrated[q][i] = v
			if v > peakVal {
				peakVal, peakQuad, peakIdx = v, q, i
			}
		}
	}
	peakFib, err := ifuTabs[peakQuad].Fibre(peakIdx)
	if err != nil {
		return nil, err
	}

	img := image.New(reconstructionSize, reconstructionSize)
	for q, ifuTab := range ifuTabs {
		for idx := 0; idx < caltab.FibresPerQuadrant; idx++ {
			fib, err := ifuTab.Fibre(idx)
			if err != nil {
				return nil, err
			}
			if fib.Transmission == caltab.DeadFibreTransmission {
				continue
			}
			if err := img.Set(fib.L-1, fib.M-1, integrated[q][idx]); err != nil {
				continue
			}
		}
	}

	threshold := intFrac * peakVal
	regions := FloodFill(img, threshold)
	var refRegion *PixelRegion
	for _, r := range regions {
		if r.Contains(peakFib.L-1, peakFib.M-1) {
			refRegion = r
			break
		}
	}
	if refRegion == nil {
		return nil, kind.New(kind.DataNotFound, "no flood-fill region contains the reference fibre")
	}
	refTotIntensity := refRegion.TotalIntensity()
	fraction := refTotIntensity / peakVal

	peakSpectrum := spectraSets[peakQuad][peakIdx]
	corrected := make([]float64, len(peakSpectrum))
	for i, v := range peakSpectrum {
		corrected[i] = v * fraction
	}

	if fitPhot != nil {
		if err := fitPhot(corrected, p.FitOrder); err != nil {
			return nil, err
		}
	}

	return &CalPhotResult{
		PeakQuadrant:      peakQuad,
		PeakIdx:           peakIdx,
		RefTotIntensity:   refTotIntensity,
		Fraction:          fraction,
		CorrectedSpectrum: corrected,
	}, nil
}
