package ifu

import "github.com/eso-vlt/vimos-specred/internal/specred/caltab"

// fibre layout constants for one pseudo-slit: 5 modules of 4 lines of
// 20 fibres each (§4.4.1).
const (
	modulesPerSlit = 5
	linesPerModule = 4
	fibresPerLine  = 20
)

// SlitGeometry parametrises one IFU pseudo-slit's fibre layout
// (compute_ifu_slit, §4.4.1).
type SlitGeometry struct {
	StartL, StartM int
	FibreLStep     int
	ModuleMStep    int
	StartX         float64
	FibreXStep     float64
	Y              float64
	ModuleXGap     float64
}

// ComputeSlit enumerates slitNumber's 400 fibres in module/line/fibre
// order, alternating the L step's direction between lines within a
// module (compute_ifu_slit, §4.4.1). Fibres are numbered 1..400 via
// SeqInSlit.
func ComputeSlit(slitNumber int, g SlitGeometry) [caltab.FibresPerSlit]caltab.IFUFibre {
	var fibres [caltab.FibresPerSlit]caltab.IFUFibre
	seq := 0
	x := g.StartX
	for mod := 0; mod < modulesPerSlit; mod++ {
		m := g.StartM + mod*g.ModuleMStep
		for line := 0; line < linesPerModule; line++ {
			direction := 1
			if line%2 == 1 {
				direction = -1
			}
			l := g.StartL
			for i := 0; i < fibresPerLine; i++ {
				fibres[seq] = caltab.IFUFibre{
					Slit:         slitNumber,
					SeqInSlit:    seq + 1,
					L:            l,
					M:            m,
					X:            x,
					Y:            g.Y,
					Transmission: 1.0,
					Group:        -1,
				}
				l += direction * g.FibreLStep
				x += g.FibreXStep
				seq++
			}
		}
		x += g.ModuleXGap
	}
	return fibres
}
