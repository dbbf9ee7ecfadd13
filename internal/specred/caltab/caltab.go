// Package caltab implements the specialised calibration-table family
// (§3.4): CCD, Extraction, Window, Object, IFU, Photometric,
// Standard-Flux, Star, IDS. Each type wraps an internal/specred/table
// kernel, adding its own constructor (sets the type tag, allocates
// required columns), validator (required columns/descriptors present),
// and typed accessors over the generic column/descriptor storage.
package caltab

import (
	"fmt"

	"github.com/eso-vlt/vimos-specred/internal/specred"
	"github.com/eso-vlt/vimos-specred/internal/specred/kind"
	"github.com/eso-vlt/vimos-specred/internal/specred/polynomial"
)

// Rect is an inclusive pixel rectangle, used for CCD bad-pixel regions.
type Rect struct {
	X0, Y0, X1, Y1 int
}

// encodePolynomial stores p's dimension, term count, and one
// exponent/coefficient card per scalar value under prefix, so a
// polynomial can ride along inside a table's flat descriptor list
// (§D.1: the IDS table's polynomial round-trip, generalised here for
// any per-row polynomial field such as the Extraction table's per-Y
// inverse-dispersion and curvature solutions). Each value gets its own
// header card rather than a single packed array card, so a wavelength
// solution with many terms cannot silently truncate against FITS's
// 80-byte card width.
func encodePolynomial(prefix string, p *polynomial.Polynomial, into *specred.DescriptorList) {
	dim := p.Dim
	i := 0
	p.Terms(func(e []int, c float64) {
		for j, v := range e {
			into.Put(specred.NewInt(expKey(prefix, i, j), int32(v), ""))
		}
		into.Put(specred.NewDouble(coefKey(prefix, i), c, ""))
		i++
	})
	into.Put(specred.NewInt(prefix+"_DIM", int32(dim), "polynomial dimension"))
	into.Put(specred.NewInt(prefix+"_NT", int32(i), "polynomial term count"))
}

// decodePolynomial is the inverse of encodePolynomial.
func decodePolynomial(prefix string, from *specred.DescriptorList) (*polynomial.Polynomial, error) {
	dimD, err := from.Get(prefix + "_DIM")
	if err != nil {
		return nil, kind.Wrap(kind.DataNotFound, err, "decoding polynomial %q", prefix)
	}
	dim, err := dimD.Int()
	if err != nil {
		return nil, err
	}
	ntD, err := from.Get(prefix + "_NT")
	if err != nil {
		return nil, err
	}
	nt, err := ntD.Int()
	if err != nil {
		return nil, err
	}
	p, err := polynomial.New(int(dim))
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(nt); i++ {
		pows := make([]int, dim)
		for j := 0; j < int(dim); j++ {
			d, err := from.Get(expKey(prefix, i, j))
			if err != nil {
				return nil, err
			}
			v, err := d.Int()
			if err != nil {
				return nil, err
			}
			pows[j] = int(v)
		}
		cd, err := from.Get(coefKey(prefix, i))
		if err != nil {
			return nil, err
		}
		c, err := cd.Double()
		if err != nil {
			return nil, err
		}
		if err := p.SetCoeff(pows, c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func expKey(prefix string, term, dim int) string {
	return fmt.Sprintf("%s_E%d_%d", prefix, term, dim)
}

func coefKey(prefix string, term int) string {
	return fmt.Sprintf("%s_C%d", prefix, term)
}

func rectKey(prefix string, i int, suffix string) string {
	return fmt.Sprintf("%s%d_%s", prefix, i, suffix)
}
