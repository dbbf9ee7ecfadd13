// Package mos implements the MOS long-slit fringe correction and
// photometric zeropoint/extinction/colour-term fitting kernel (§4.5,
// §4.6).
package mos

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
