package mos

import (
	"math"

	"github.com/eso-vlt/vimos-specred/internal/specred/caltab"
	"github.com/eso-vlt/vimos-specred/internal/specred/kind"
	"github.com/eso-vlt/vimos-specred/internal/specred/polynomial"
)

// StarObservation is one star's catalogue/measured magnitude pair within
// an exposure, including the catalogue colour index used by the colour
// term fit (§4.6).
type StarObservation struct {
	StarID  int
	CatMag  float64 // catalogue magnitude in the fitted filter
	Colour  float64 // catalogue colour index (filter1 - filter2)
	InstMag float64 // measured instrumental magnitude
}

// Exposure is one star-match table: the airmass at which it was taken
// and its matched star observations (§4.6).
type Exposure struct {
	Image   string
	Airmass float64
	Stars   []StarObservation
}

// FitParams selects which of vmimcalphot's four fit modes runs and
// configures its degree and failure policy (§4.6).
type FitParams struct {
	ComputeExtinction bool
	ComputeColorTerm  bool
	FitOrder          int
	StrictMode        bool
}

// FitZeropoint runs vmimcalphot: it reads per-exposure airmass and
// per-star catalogue/measured magnitudes, selects one of four fit modes
// from (computeExtinction, computeColorTerm), downgrades (or fails, in
// strict mode) a mode whose sample is too small, and returns an enriched
// photometric table carrying the fitted coefficients and one row per
// star.
func FitZeropoint(exposures []Exposure, p FitParams) (*caltab.PhotometricTable, error) {
	nExp := len(exposures)
	nStars := 0
	for _, e := range exposures {
		nStars += len(e.Stars)
	}
	if nExp == 0 {
		return nil, kind.New(kind.DataNotFound, "vmimcalphot requires at least one exposure")
	}

	computeExtinction := p.ComputeExtinction
	if computeExtinction && nExp < 4 {
		if p.StrictMode {
			return nil, kind.New(kind.IllegalInput, "extinction fit requires >= 4 exposures, got %d", nExp)
		}
		computeExtinction = false
	}
	computeColorTerm := p.ComputeColorTerm
	if computeColorTerm && nStars < 4 {
		if p.StrictMode {
			return nil, kind.New(kind.IllegalInput, "colour term fit requires >= 4 stars, got %d", nStars)
		}
		computeColorTerm = false
	}

	fitOrder := p.FitOrder
	if fitOrder < 1 {
		fitOrder = 1
	}

	type sample struct {
		image   string
		starID  int
		airmass float64
		colour  float64
		magDiff float64
	}
	var samples []sample
	for _, e := range exposures {
		for _, s := range e.Stars {
			samples = append(samples, sample{
				image: e.Image, starID: s.StarID,
				airmass: e.Airmass, colour: s.Colour,
				magDiff: s.CatMag - s.InstMag,
			})
		}
	}
	if len(samples) == 0 {
		return nil, kind.New(kind.DataNotFound, "no matched stars across exposures")
	}

	// extinction is reported as the positive coefficient k of
	// magDiff = zero - k*airmass + colourTerm*colour, so the fitted airmass
	// slope is negated.
	// colour carries the PhotometricTable's COLOUR descriptor, kept
	// separate from the fitted colourTerm coefficient; none of the four
	// modes solves for it, so it stays 0.
	var zero, extinction, colour, colourTerm, rms float64
	var err error

	switch {
	case computeExtinction && computeColorTerm:
		xy := make([][2]float64, len(samples))
		z := make([]float64, len(samples))
		for i, s := range samples {
			xy[i] = [2]float64{s.airmass, s.colour}
			z[i] = s.magDiff
		}
		var fit *polynomial.FitResult
		fit, err = polynomial.Fit2D(xy, z, fitOrder, fitOrder, true)
		if err != nil {
			return nil, err
		}
		zero, _ = fit.Poly.GetCoeff([]int{0, 0})
		airmassSlope, _ := fit.Poly.GetCoeff([]int{1, 0})
		extinction = -airmassSlope
		colourTerm, _ = fit.Poly.GetCoeff([]int{0, 1})
		rms = fit.MeanSquareResidual

	case computeExtinction:
		x := make([]float64, len(samples))
		y := make([]float64, len(samples))
		for i, s := range samples {
			x[i] = s.airmass
			y[i] = s.magDiff
		}
		var fit *polynomial.FitResult
		fit, err = polynomial.Fit1D(x, y, 0, fitOrder)
		if err != nil {
			return nil, err
		}
		zero, _ = fit.Poly.GetCoeff([]int{0})
		airmassSlope, _ := fit.Poly.GetCoeff([]int{1})
		extinction = -airmassSlope
		rms = fit.MeanSquareResidual

	case computeColorTerm:
		x := make([]float64, len(samples))
		y := make([]float64, len(samples))
		for i, s := range samples {
			x[i] = s.colour
			y[i] = s.magDiff
		}
		var fit *polynomial.FitResult
		fit, err = polynomial.Fit1D(x, y, 0, fitOrder)
		if err != nil {
			return nil, err
		}
		zero, _ = fit.Poly.GetCoeff([]int{0})
		colourTerm, _ = fit.Poly.GetCoeff([]int{1})
		rms = fit.MeanSquareResidual

	default:
		vals := make([]float64, len(samples))
		for i, s := range samples {
			vals[i] = s.magDiff
		}
		var scale float64
		zero, scale = biweight(vals, 6.0)
		rms = scale
	}

	t := caltab.NewPhotometricTable(zero, extinction, colour, colourTerm, rms)
	for _, s := range samples {
		starZero := s.magDiff + extinction*s.airmass - colourTerm*s.colour
		t.AddStar(caltab.StarZeropoint{Image: s.image, StarID: s.starID, Zeropoint: starZero})
	}
	return t, nil
}

// ApplyColorTerm corrects an instrumental magnitude with a previously
// fitted colour term, used when useColorTerm is set but the term itself
// is not being refit in this run (§4.6).
func ApplyColorTerm(instMag, colourIndex, colourTerm float64) float64 {
	return instMag + colourTerm*colourIndex
}

// biweight computes the Tukey biweight robust location and scale of x
// (the xbiwt estimator), used by vmimcalphot's mode 0 when neither
// extinction nor colour term is fitted. tuning is the outlier cutoff in
// units of the median absolute deviation (6.0 in the legacy
// implementation).
func biweight(x []float64, tuning float64) (location, scale float64) {
	med := medianOf(x)
	dev := make([]float64, len(x))
	for i, v := range x {
		dev[i] = absf(v - med)
	}
	mad := medianOf(dev)
	if mad == 0 {
		return med, 0
	}

	var num, den float64
	for _, v := range x {
		u := (v - med) / (tuning * mad)
		if absf(u) >= 1 {
			continue
		}
		w := 1 - u*u
		num += w * w * (v - med)
		den += w * w * (1 - 5*u*u)
	}
	location = med
	if den != 0 {
		location = med + num/den
	}

	var sNum float64
	var sDen float64
	n := float64(len(x))
	for _, v := range x {
		u := (v - med) / (tuning * mad)
		if absf(u) >= 1 {
			sDen++
			continue
		}
		sNum += (v - location) * (v - location) * (1 - u*u) * (1 - u*u) * (1 - u*u) * (1 - u*u)
		sDen += (1 - u*u) * (1 - 5*u*u)
	}
	if sDen <= 1 || n <= 1 {
		scale = mad * 1.4826
		return
	}
	scale = (n * sNum) / (sDen * (sDen - 1))
	if scale < 0 {
		scale = mad * 1.4826
	} else {
		scale = math.Sqrt(scale)
	}
	return
}
