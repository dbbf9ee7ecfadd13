package ifu

import (
	"github.com/eso-vlt/vimos-specred/internal/specred/caltab"
	"github.com/eso-vlt/vimos-specred/internal/specred/image"
	"github.com/eso-vlt/vimos-specred/internal/specred/kind"
)

// SkyMode selects how per-pixel sky values are combined across the
// below-threshold fibres of a PSF group (§4.4.7 step 3).
type SkyMode int

const (
	SkyMedian SkyMode = iota
	SkyAverage
)

// Sky computes and writes a per-PSF-group sky spectrum into out,
// replicated into every good fibre's row of its group (ifu_sky, §4.4.7).
// spectra holds one row per fibre flat index; out must have the same
// number of rows.
func Sky(out *image.Image, ifuTab *caltab.IFUTable, spectra [][]float64, mode SkyMode) error {
	if len(spectra) != caltab.FibresPerQuadrant || out.NY != caltab.FibresPerQuadrant {
		return kind.New(kind.Incompatible, "sky requires %d fibre rows", caltab.FibresPerQuadrant)
	}

	// Sky is scoped to every pseudo-slit and every PSF group within it
	// (§4.4.7): fibres from different slits never share a sky computation
	// even if ComputePSF happened to assign them the same group number.
	type slitGroup struct {
		slit  int
		group int
	}
	groups := make(map[slitGroup][]int)
	for idx := 0; idx < caltab.FibresPerQuadrant; idx++ {
		fib, err := ifuTab.Fibre(idx)
		if err != nil {
			return err
		}
		if fib.Transmission == caltab.DeadFibreTransmission {
			continue
		}
		key := slitGroup{slit: fib.Slit, group: fib.Group}
		groups[key] = append(groups[key], idx)
	}

	specLen := out.NX
	for _, members := range groups {
		if len(members) == 0 {
			continue
		}
		integrated := make([]float64, len(members))
		var sigmaSum float64
		for i, idx := range members {
			integrated[i] = sumSpectrum(spectra[idx])
			fib, err := ifuTab.Fibre(idx)
			if err != nil {
				return err
			}
			sigmaSum += fib.SigmaY
		}
		sigma := sigmaSum / float64(len(members))
		if sigma <= 0 {
			sigma = 1
		}
		binSize := sigma / 10
		peakFlux := histogramPeak(integrated, binSize)
		threshold := 1.1 * (peakFlux + binSize/2)

		var below []int
		for i, idx := range members {
			if integrated[i] < threshold {
				below = append(below, idx)
			}
		}
		if len(below) == 0 {
			below = members
		}

		skySpec := make([]float64, specLen)
		vals := make([]float64, len(below))
		for px := 0; px < specLen; px++ {
			for i, idx := range below {
				vals[i] = spectra[idx][px]
			}
			if mode == SkyAverage {
				skySpec[px] = meanOf(vals)
			} else {
				skySpec[px] = medianOf(vals)
			}
		}

		for _, idx := range members {
			for px := 0; px < specLen; px++ {
				if err := out.Set(px, idx, skySpec[px]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
