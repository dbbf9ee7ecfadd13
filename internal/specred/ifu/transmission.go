package ifu

import (
	"math"

	"github.com/eso-vlt/vimos-specred/internal/specred/caltab"
	"github.com/eso-vlt/vimos-specred/internal/specred/image"
	"github.com/eso-vlt/vimos-specred/internal/specred/kind"
	"github.com/eso-vlt/vimos-specred/internal/units"
)

// TransmissionParams configures ifu_get_transmission's sky-line flux
// measurement (§4.4.5). SkyLines are expressed in SkyLineUnit and
// converted to the canonical Angstrom pixel-wavelength space before any
// Gaussian fit, at this single explicit point, per the Å/nm open
// question decision (see internal/units).
type TransmissionParams struct {
	SkyLines    []float64
	SkyLineUnit string
	Window      int
	RefTrans    float64
}

// GetTransmission measures each good fibre's relative transmission
// against the reference fibre recorded in ifuTab's REFL/REFM descriptors
// (ifu_get_transmission, §4.4.5). spectraSets holds one entry per image
// in the set, each itself one flux-calibrated, wavelength-sampled row
// per fibre flat index; every fibre's flux is measured in every image
// and averaged before the ratio against the reference fibre is taken.
// Dead fibres are left untouched.
func GetTransmission(ifuTab *caltab.IFUTable, spectraSets [][][]float64, p TransmissionParams) error {
	if len(spectraSets) == 0 {
		return kind.New(kind.IllegalInput, "ifu_get_transmission requires at least one image")
	}
	for i, spectra := range spectraSets {
		if len(spectra) != caltab.FibresPerQuadrant {
			return kind.New(kind.Incompatible, "image %d: expected %d fibre spectra, got %d", i, caltab.FibresPerQuadrant, len(spectra))
		}
	}
	window := p.Window
	if window == 0 {
		window = 6
	}
	refTrans := p.RefTrans
	if refTrans == 0 {
		refTrans = 1.0
	}
	unit := p.SkyLineUnit
	if unit == "" {
		unit = units.Angstrom
	}
	lines := make([]float64, len(p.SkyLines))
	for i, l := range p.SkyLines {
		a, err := units.ToAngstrom(l, unit)
		if err != nil {
			return err
		}
		lines[i] = a
	}

	refL, refM, err := ifuTab.RefFibre()
	if err != nil {
		return err
	}
	refIdx := -1
	for idx := 0; idx < caltab.FibresPerQuadrant; idx++ {
		fib, err := ifuTab.Fibre(idx)
		if err != nil {
			return err
		}
		if fib.L == refL && fib.M == refM {
			refIdx = idx
			break
		}
	}
	if refIdx < 0 {
		return kind.New(kind.DataNotFound, "reference fibre (L=%d,M=%d) not found", refL, refM)
	}
	refFlux := averageLineFlux(spectraSets, refIdx, lines, window)

	for idx := 0; idx < caltab.FibresPerQuadrant; idx++ {
		fib, err := ifuTab.Fibre(idx)
		if err != nil {
			return err
		}
		if fib.Transmission == caltab.DeadFibreTransmission {
			continue
		}
		flux := averageLineFlux(spectraSets, idx, lines, window)
		if refFlux == 0 {
			fib.Transmission = 0
		} else {
			fib.Transmission = refTrans * flux / refFlux
		}
		if err := ifuTab.SetFibre(idx, fib); err != nil {
			return err
		}
	}
	return nil
}

// averageLineFlux returns fibre idx's mean sky-line flux across every
// image in the set (§4.4.5: "for every fibre in every image of the set").
func averageLineFlux(spectraSets [][][]float64, idx int, lines []float64, window int) float64 {
	var sum float64
	for _, spectra := range spectraSets {
		sum += meanLineFlux(spectra[idx], lines, window)
	}
	return sum / float64(len(spectraSets))
}

func meanLineFlux(spectrum []float64, lines []float64, window int) float64 {
	var sum float64
	var n int
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
		sum += fit.Flux
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// ApplyTransmission rescales each fibre's row of packed-spectrum image
// img by refTrans/fiberTrans, zeroing dead fibres (ifu_apply_transmission,
// §4.4.6). Row y of img corresponds to fibre flat index y.
func ApplyTransmission(img *image.Image, ifuTab *caltab.IFUTable, refTrans float64) error {
	if img.NY != caltab.FibresPerQuadrant {
		return kind.New(kind.Incompatible, "image has %d rows, want %d fibre rows", img.NY, caltab.FibresPerQuadrant)
	}
	good, dead := 0, 0
	for idx := 0; idx < caltab.FibresPerQuadrant; idx++ {
		fib, err := ifuTab.Fibre(idx)
		if err != nil {
			return err
		}
		if fib.Transmission == caltab.DeadFibreTransmission {
			dead++
			for x := 0; x < img.NX; x++ {
				if err := img.Set(x, idx, 0); err != nil {
					return err
				}
			}
			continue
		}
		good++
		scale := 1.0
		if fib.Transmission != 0 {
			scale = refTrans / fib.Transmission
		}
		for x := 0; x < img.NX; x++ {
			v, err := img.At(x, idx)
			if err != nil {
				return err
			}
			if err := img.Set(x, idx, v*scale); err != nil {
				return err
			}
		}
	}
	if good+dead != caltab.FibresPerQuadrant {
		return kind.New(kind.Incompatible, "good(%d)+dead(%d) != %d", good, dead, caltab.FibresPerQuadrant)
	}
	return nil
}
