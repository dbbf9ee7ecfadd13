// Package qc implements the quality-control utilities shared by every
// recipe: consistent-illumination frame selection, the bias/dark level
// sanity check, the PAF (pipeline ASCII parameter file) writer and its
// QC.PAF mirror, and a diagnostic HTML trend report (§4.7).
package qc

import "math"

func absf(v float64) float64 { return math.Abs(v) }
