package mos

import (
	"math"

	"github.com/eso-vlt/vimos-specred/internal/specred/caltab"
	"github.com/eso-vlt/vimos-specred/internal/specred/kind"
)

// CalPhot is the MOS-side spectro-photometric calibration step: it
// integrates a standard star's measured spectrum and compares it
// against the catalogue flux tabulated in std, sampled bin by bin at
// each entry of wave, to recover the photometric zero-point this
// exposure implies (VmSpCalPhot's MOS path, §4.4.9/§D.3).
func CalPhot(spectrum, wave []float64, std *caltab.StandardFluxTable) (zeroPoint float64, err error) {
	if len(spectrum) != len(wave) {
		return 0, kind.New(kind.Incompatible, "spectrum has %d samples, wave has %d", len(spectrum), len(wave))
	}
	var measuredFlux, catalogueFlux float64
	for i, w := range wave {
		bin, err := std.BinWidthAt(w)
		if err != nil {
			return 0, err
		}
		flux, err := std.FluxAt(w)
		if err != nil {
			return 0, err
		}
		catalogueFlux += flux * bin
		measuredFlux += spectrum[i]
	}
	if measuredFlux <= 0 || catalogueFlux <= 0 {
		return 0, kind.New(kind.IllegalInput, "non-positive integrated flux: measured=%v catalogue=%v", measuredFlux, catalogueFlux)
	}
	instMag := -2.5 * math.Log10(measuredFlux)
	catMag := -2.5 * math.Log10(catalogueFlux)
	return catMag - instMag, nil
}

// CalPhotCallback adapts CalPhot to the func(spectrum []float64, fitOrder
// int) error signature ifu.CalPhot expects from its injected fitPhot
// hook, so the IFU reference-fibre flux recovered by flood-fill can be
// handed straight to this MOS calibration without an import cycle
// between ifu and mos. fitOrder is accepted only to satisfy that shared
// signature; this flux-ratio step has no polynomial fit of its own.
func CalPhotCallback(wave []float64, std *caltab.StandardFluxTable, photTab *caltab.PhotometricTable, imageName string, starID int) func(spectrum []float64, fitOrder int) error {
	return func(spectrum []float64, fitOrder int) error {
		zp, err := CalPhot(spectrum, wave, std)
		if err != nil {
			return err
		}
		photTab.AddStar(caltab.StarZeropoint{Image: imageName, StarID: starID, Zeropoint: zp})
		return nil
	}
}
