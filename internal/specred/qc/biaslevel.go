package qc

import (
	"github.com/eso-vlt/vimos-specred/internal/monitoring"
	"github.com/eso-vlt/vimos-specred/internal/specred/image"
	"github.com/eso-vlt/vimos-specred/internal/specred/kind"
)

// BiasLevelCheck compares a frame's observed level against a nominal
// value (read from a master frame's own level or a CCD table entry)
// and flags it as out of tolerance if |median-nominal| exceeds
// maxDeviation times the frame's average deviation.
type BiasLevelCheck struct {
	Median    float64
	Nominal   float64
	Tolerance float64
	Deviation float64
	Ok        bool
}

// CheckBiasLevel implements the bias/dark level sanity check (§4.7):
// the frame's median is compared against nominal, with a tolerance of
// maxDev times the frame's average deviation around that median. When
// warnOnly is false, a failing check is returned as an error rather
// than silently as Ok=false, matching GetWarnOnly's strict/lenient
// split; when warnOnly is true, a failing check is logged through
// monitoring.Logf and returned with Ok=false.
func CheckBiasLevel(frame *image.Image, nominal, maxDev float64, warnOnly bool) (*BiasLevelCheck, error) {
	if frame == nil {
		return nil, kind.New(kind.NullInput, "bias level check requires a frame")
	}
	median := frame.Median()
	deviation := frame.AverageDeviation(median)
	tolerance := maxDev * deviation
	result := &BiasLevelCheck{
		Median:    median,
		Nominal:   nominal,
		Tolerance: tolerance,
		Deviation: deviation,
		Ok:        absf(median-nominal) <= tolerance,
	}
	if !result.Ok && !warnOnly {
		return result, kind.New(kind.IllegalInput,
			"bias level %v deviates from nominal %v by more than %v (tolerance %v)",
			median, nominal, absf(median-nominal), tolerance)
	}
	if !result.Ok {
		monitoring.Logf("[qc] bias level %v deviates from nominal %v by %v (tolerance %v)",
			median, nominal, absf(median-nominal), tolerance)
	}
	return result, nil
}
