package caltab

import (
	"sort"

	"github.com/eso-vlt/vimos-specred/internal/specred"
	"github.com/eso-vlt/vimos-specred/internal/specred/kind"
	"github.com/eso-vlt/vimos-specred/internal/specred/table"
)

// TagStandardFlux is the Standard-Flux table's EXTNAME (VM_SPHOT in the
// original implementation).
const TagStandardFlux table.TableTag = "SPH"

// StandardFluxTable tabulates a catalogue standard star's flux as a
// function of wavelength (§3.4).
type StandardFluxTable struct {
	*table.Table
	wave, flux, bin []float64
}

// NewStandardFluxTable constructs an empty Standard-Flux table.
func NewStandardFluxTable() *StandardFluxTable {
	return &StandardFluxTable{Table: table.New(TagStandardFlux)}
}

// Validate checks the table has at least one tabulated point and that
// WAVE is monotonically increasing, which FluxAt's interpolation
// requires.
func (s *StandardFluxTable) Validate() error {
	if err := s.Table.Validate(); err != nil {
		return err
	}
	if len(s.wave) == 0 {
		return kind.New(kind.DataNotFound, "standard-flux table has no tabulated points")
	}
	for i := 1; i < len(s.wave); i++ {
		if s.wave[i] <= s.wave[i-1] {
			return kind.New(kind.IllegalInput, "standard-flux WAVE is not strictly increasing at index %d", i)
		}
	}
	return nil
}

// AddPoint appends one (wave, flux, bin) row; wave must be added in
// increasing order.
func (s *StandardFluxTable) AddPoint(wave, flux, bin float64) {
	s.wave = append(s.wave, wave)
	s.flux = append(s.flux, flux)
	s.bin = append(s.bin, bin)
}

// FluxAt linearly interpolates the tabulated flux at an arbitrary
// observed wavelength (§D.3), clamping to the endpoint value outside
// the tabulated range.
func (s *StandardFluxTable) FluxAt(wave float64) (float64, error) {
	if len(s.wave) == 0 {
		return 0, kind.New(kind.DataNotFound, "standard-flux table has no tabulated points")
	}
	i := sort.SearchFloat64s(s.wave, wave)
	if i == 0 {
		return s.flux[0], nil
	}
	if i >= len(s.wave) {
		return s.flux[len(s.flux)-1], nil
	}
	x0, x1 := s.wave[i-1], s.wave[i]
	y0, y1 := s.flux[i-1], s.flux[i]
	frac := (wave - x0) / (x1 - x0)
	return y0 + frac*(y1-y0), nil
}

// BinWidthAt returns the tabulated bin width nearest wave (§D.3), used
// by the spectro-photometric calibration to integrate observed flux
// over the same bin the catalogue value represents.
func (s *StandardFluxTable) BinWidthAt(wave float64) (float64, error) {
	if len(s.wave) == 0 {
		return 0, kind.New(kind.DataNotFound, "standard-flux table has no tabulated points")
	}
	i := sort.SearchFloat64s(s.wave, wave)
	if i == 0 {
		return s.bin[0], nil
	}
	if i >= len(s.wave) {
		return s.bin[len(s.bin)-1], nil
	}
	if wave-s.wave[i-1] <= s.wave[i]-wave {
		return s.bin[i-1], nil
	}
	return s.bin[i], nil
}

// Flatten materialises the tabulated points into WAVE/FLUX/BIN columns.
func (s *StandardFluxTable) Flatten() error {
	s.Columns = specred.NewColumnList()
	n := len(s.wave)
	wave := specred.NewDoubleColumn("WAVE", n)
	flux := specred.NewDoubleColumn("FLUX", n)
	bin := specred.NewDoubleColumn("BIN", n)
	for i := range s.wave {
		wave.SetDouble(i, s.wave[i]) //nolint:errcheck
		flux.SetDouble(i, s.flux[i]) //nolint:errcheck
		bin.SetDouble(i, s.bin[i])   //nolint:errcheck
	}
	for _, c := range []*specred.Column{wave, flux, bin} {
		if err := s.Columns.Append(c); err != nil {
			return err
		}
	}
	return nil
}
