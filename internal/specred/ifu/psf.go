package ifu

import (
	"math"
	"sort"

	"github.com/eso-vlt/vimos-specred/internal/config"
	"github.com/eso-vlt/vimos-specred/internal/specred/caltab"
	"github.com/eso-vlt/vimos-specred/internal/specred/kind"
)

// PSFParams configures ifu_compute_psf's Gaussian sky-line sigma
// measurement (§4.4.4).
type PSFParams struct {
	SkyLines []float64 // line centres, in the spectrum's own pixel coordinate
	Window   int       // half-width of the fit window around each line, default 6
}

type sigmaEntry struct {
	idx   int
	sigma float64
}

// ComputePSF classifies every good fibre into one of
// cfg.GetIFUNIntervals() quantile groups by measured sky-line sigma,
// writing Group and SigmaY into every fibre and persisting the group
// count into ifuTab (ifu_compute_psf, §4.4.4). spectra holds one row
// per fibre flat index.
func ComputePSF(ifuTab *caltab.IFUTable, spectra [][]float64, p PSFParams, cfg *config.RecipeConfig) error {
	if len(spectra) != caltab.FibresPerQuadrant {
		return kind.New(kind.Incompatible, "expected %d fibre spectra, got %d", caltab.FibresPerQuadrant, len(spectra))
	}
	window := p.Window
	if window == 0 {
		window = 6
	}

	entriesBySlit := make(map[int][]sigmaEntry, caltab.SlitsPerQuadrant)
	for idx := 0; idx < caltab.FibresPerQuadrant; idx++ {
		fib, err := ifuTab.Fibre(idx)
		if err != nil {
			return err
		}
		if fib.Transmission == caltab.DeadFibreTransmission {
			fib.Group = -1
			if err := ifuTab.SetFibre(idx, fib); err != nil {
				return err
			}
			continue
		}
		sigma := measureLineSigmas(spectra[idx], p.SkyLines, window)
		fib.SigmaY = sigma
		if err := ifuTab.SetFibre(idx, fib); err != nil {
			return err
		}
		entriesBySlit[fib.Slit] = append(entriesBySlit[fib.Slit], sigmaEntry{idx: idx, sigma: sigma})
	}

	// Quantile classification is scoped to each pseudo-slit independently
	// (§4.4.4): a fibre's group reflects its sigma rank among its own
	// slit's good fibres, not the whole quadrant.
	nIntervals := cfg.GetIFUNIntervals()
	for _, entries := range entriesBySlit {
		sort.Slice(entries, func(i, j int) bool { return entries[i].sigma < entries[j].sigma })
		n := len(entries)
		for rank, e := range entries {
			group := 1 + (rank*nIntervals)/maxInt(n, 1)
			if group > nIntervals {
				group = nIntervals
			}
			fib, err := ifuTab.Fibre(e.idx)
			if err != nil {
				return err
			}
			fib.Group = group
			if err := ifuTab.SetFibre(e.idx, fib); err != nil {
				return err
			}
		}
	}
	ifuTab.SetSkyGroupCount(nIntervals)
	return nil
}

// measureLineSigmas fits a Gaussian around each configured sky line and
// returns the median of the per-line sigmas, or the single sigma if only
// one line is configured (§4.4.4 steps 1-2).
func measureLineSigmas(spectrum []float64, lines []float64, window int) float64 {
	var sigmas []float64
	for _, line := range lines {
		c := int(math.Round(line))
		lo, hi := c-window, c+window
		if lo < 0 {
			lo = 0
		}
		if hi >= len(spectrum) {
			hi = len(spectrum) - 1
		}
		if lo > hi {
			continue
		}
		fit := fitGaussianWindow(lo, spectrum[lo:hi+1])
		if fit.Sigma > 0 {
			sigmas = append(sigmas, fit.Sigma)
		}
	}
	return medianOf(sigmas)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
