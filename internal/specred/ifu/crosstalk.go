package ifu

import (
	"math"

	"github.com/eso-vlt/vimos-specred/internal/specred/caltab"
	"github.com/eso-vlt/vimos-specred/internal/specred/image"
	"github.com/eso-vlt/vimos-specred/internal/specred/kind"
)

// CrosstalkParams configures ifu_crosstalk's module-profile deconvolution
// (§4.4.3).
type CrosstalkParams struct {
	WLenStart, WLenEnd float64
	HowManyFibs        int // neighbour-fibre radius subtracted, default 2
	NumRows            int // pixel window used to estimate each fibre's peak, default 3
}

// fibreCut is one fibre's cross-dispersion placement at a single row,
// built from the extraction trace (§4.4.3 step 2).
type fibreCut struct {
	peakX, firstX, fwhm float64
	dead                bool
}

// Crosstalk removes inter-fibre light bleed from a packed pseudoslit
// image by iterated Gaussian module-profile fitting with cosmic
// rejection (ifu_crosstalk, §4.4.3). in is the raw pseudoslit image
// (X=CCD column, Y=cross-dispersion row); ext supplies each fibre's
// inverse-dispersion/curvature solution and FWHM, fib the pseudoslit's
// 400 fibre records in the slit's enumeration order.
func Crosstalk(in *image.Image, ext *caltab.ExtractionTable, fib []caltab.IFUFibre, p CrosstalkParams) (*image.Image, error) {
	if len(fib) != caltab.FibresPerSlit {
		return nil, kind.New(kind.Incompatible, "crosstalk requires %d fibres, got %d", caltab.FibresPerSlit, len(fib))
	}
	howMany := p.HowManyFibs
	if howMany == 0 {
		howMany = 2
	}
	numRows := p.NumRows
	if numRows == 0 {
		numRows = 3
	}

	out := image.New(in.NX, in.NY)
	yMin, yMax, err := crosstalkYRange(ext, fib, p.WLenStart, p.WLenEnd)
	if err != nil {
		return nil, err
	}

	for y := yMin; y <= yMax; y++ {
		cuts, err := cutsAtRow(ext, fib, y, numRows)
		if err != nil {
			return nil, err
		}
		observed := make([]float64, in.NX)
		for x := 0; x < in.NX; x++ {
			v, err := in.At(x, y)
			if err != nil {
				return nil, err
			}
			observed[x] = v
		}

		profile := moduleProfile(in.NX, cuts, nil)
		peaks := firstPassMedians(observed, cuts, numRows, profile)
		scaled := moduleProfile(in.NX, cuts, peaks)
		cleaned := rejectCosmics(observed, scaled)
		peaks = firstPassMedians(cleaned, cuts, numRows, scaled)

		crosstalkMap := make([][]float64, len(cuts))
		for i, c := range cuts {
			if c.dead {
				continue
			}
			crosstalkMap[i] = gaussianRow(in.NX, c.peakX, c.fwhm/2.355, peaks[i])
		}

		for i, c := range cuts {
			if c.dead {
				continue
			}
			x0 := int(math.Round(c.firstX))
			for dx := 0; dx < numRows; dx++ {
				x := x0 + dx
				if x < 0 || x >= in.NX {
					continue
				}
				v := cleaned[x]
				for n := 1; n <= howMany; n++ {
					if i-n >= 0 && !cuts[i-n].dead {
						v -= crosstalkMap[i-n][x]
					}
					if i+n < len(cuts) && !cuts[i+n].dead {
						v -= crosstalkMap[i+n][x]
					}
				}
				if v < 0 {
					v = 0
				}
				if err := out.Set(x, y, v); err != nil {
					return nil, err
				}
			}
		}
	}
	return out, nil
}

func crosstalkYRange(ext *caltab.ExtractionTable, fib []caltab.IFUFibre, wStart, wEnd float64) (int, int, error) {
	yMin, yMax := math.MaxInt32, math.MinInt32
	for _, f := range fib {
		s, ok := findExtractionSlit(ext, f.Slit, f.SeqInSlit)
		if !ok || s.InvDisp == nil {
			continue
		}
		for _, y := range s.CCDY {
			wl, err := s.InvDisp.Eval1D(y)
			if err != nil || wl < wStart || wl > wEnd {
				continue
			}
			yi := int(math.Round(y))
			if yi < yMin {
				yMin = yi
			}
			if yi > yMax {
				yMax = yi
			}
		}
	}
	if yMin > yMax {
		return 0, 0, kind.New(kind.DataNotFound, "no cross-dispersion rows found in wavelength range [%v,%v]", wStart, wEnd)
	}
	return yMin, yMax, nil
}

func findExtractionSlit(ext *caltab.ExtractionTable, slitNumber, seqInSlit int) (caltab.ExtractionSlit, bool) {
	for i := 0; i < ext.NSlits(); i++ {
		s, err := ext.Slit(i)
		if err != nil {
			continue
		}
		if s.IFUSlit == slitNumber && s.IFUFibre == seqInSlit {
			return s, true
		}
	}
	return caltab.ExtractionSlit{}, false
}

func cutsAtRow(ext *caltab.ExtractionTable, fib []caltab.IFUFibre, y, numRows int) ([]fibreCut, error) {
	cuts := make([]fibreCut, len(fib))
	for i, f := range fib {
		if f.Transmission == caltab.DeadFibreTransmission {
			cuts[i] = fibreCut{dead: true}
			continue
		}
		s, ok := findExtractionSlit(ext, f.Slit, f.SeqInSlit)
		if !ok {
			cuts[i] = fibreCut{dead: true}
			continue
		}
		px := interpAt(s.CCDX, s.CCDY, float64(y))
		cuts[i] = fibreCut{peakX: px, firstX: px - float64(numRows)/2, fwhm: f.FWHM}
	}
	return cuts, nil
}

// interpAt linearly interpolates values at ys==y, clamping outside range.
func interpAt(values, ys []float64, y float64) float64 {
	n := len(ys)
	if n == 0 {
		return 0
	}
	if y <= ys[0] {
		return values[0]
	}
	if y >= ys[n-1] {
		return values[n-1]
	}
	for i := 1; i < n; i++ {
		if y <= ys[i] {
			frac := (y - ys[i-1]) / (ys[i] - ys[i-1])
			return values[i-1] + frac*(values[i]-values[i-1])
		}
	}
	return values[n-1]
}

// moduleProfile sums Gaussians centred on each fibre's peak X, sigma from
// FWHM/2.355, truncated to +-10 sigma, scaled by amplitudes if given
// (§4.4.3 steps a and c).
func moduleProfile(nx int, cuts []fibreCut, amplitudes []float64) []float64 {
	profile := make([]float64, nx)
	for i, c := range cuts {
		if c.dead {
			continue
		}
		amp := 1.0
		if amplitudes != nil {
			amp = amplitudes[i]
		}
		sigma := c.fwhm / 2.355
		addGaussianInto(profile, c.peakX, sigma, amp)
	}
	return profile
}

func gaussianRow(nx int, centre, sigma, amplitude float64) []float64 {
	row := make([]float64, nx)
	addGaussianInto(row, centre, sigma, amplitude)
	return row
}

func addGaussianInto(row []float64, centre, sigma, amplitude float64) {
	if sigma <= 0 {
		return
	}
	lo := int(math.Floor(centre - 10*sigma))
	hi := int(math.Ceil(centre + 10*sigma))
	if lo < 0 {
		lo = 0
	}
	if hi >= len(row) {
		hi = len(row) - 1
	}
	for x := lo; x <= hi; x++ {
		row[x] += evalGaussian(float64(x), centre, sigma, amplitude)
	}
}

// firstPassMedians normalises observed by profile and takes the median
// of numRows pixels centred at each fibre's start as its peak estimate
// (§4.4.3 steps b and e).
func firstPassMedians(observed []float64, cuts []fibreCut, numRows int, profile []float64) []float64 {
	peaks := make([]float64, len(cuts))
	for i, c := range cuts {
		if c.dead {
			continue
		}
		x0 := int(math.Round(c.firstX))
		var vals []float64
		for dx := 0; dx < numRows; dx++ {
			x := x0 + dx
			if x < 0 || x >= len(observed) {
				continue
			}
			norm := observed[x]
			if profile[x] > 0 {
				norm = observed[x] / profile[x]
			}
			vals = append(vals, norm)
		}
		peaks[i] = medianOf(vals)
	}
	return peaks
}

// rejectCosmics replaces observed samples departing from the scaled
// profile by more than 5*sqrt(profile) with the profile value
// (§4.4.3 step d).
func rejectCosmics(observed, scaled []float64) []float64 {
	cleaned := make([]float64, len(observed))
	for x, v := range observed {
		p := scaled[x]
		thresh := 5 * math.Sqrt(absf(p))
		if absf(v-p) > thresh {
			cleaned[x] = p
		} else {
			cleaned[x] = v
		}
	}
	return cleaned
}
