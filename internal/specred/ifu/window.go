package ifu

import (
	"github.com/eso-vlt/vimos-specred/internal/specred/caltab"
	"github.com/eso-vlt/vimos-specred/internal/specred/kind"
)

// DeriveWindowTable builds the window table for a quadrant's IFU
// pseudo-slits from the matching extraction-table rows (ifu_window_table,
// §4.4.2): each extraction slit whose (IFU-slit, IFU-fibre) matches a
// fibre recorded in ifuTab emits one window-slit with a single object
// spanning the whole fibre, positioned at the mid-point, carrying the
// mask (X,Y) sampled from the extraction trace at that row.
func DeriveWindowTable(ext *caltab.ExtractionTable, ifuTab *caltab.IFUTable, specStart, specEnd int) (*caltab.WindowTable, error) {
	if specEnd <= specStart {
		return nil, kind.New(kind.IllegalInput, "specEnd %d must exceed specStart %d", specEnd, specStart)
	}
	win := caltab.NewWindowTable()
	span := specEnd - specStart

	for i := 0; i < ext.NSlits(); i++ {
		slit, err := ext.Slit(i)
		if err != nil {
			return nil, err
		}
		if !fibreRecorded(ifuTab, slit.IFUSlit, slit.IFUFibre) {
			continue
		}
		var maskX, maskY float64
		if n := len(slit.CCDY); n > 0 {
			mid := n / 2
			maskX, maskY = slit.CCDX[mid], slit.CCDY[mid]
		}
		win.AddSlit(caltab.WindowSlit{
			SlitNumber: slit.Slit,
			IFUSlit:    slit.IFUSlit,
			IFUFibre:   slit.IFUFibre,
			SpecStart:  specStart,
			SpecEnd:    specEnd,
			Objects: []caltab.WindowObject{{
				ObjStart: 0,
				ObjEnd:   span,
				ID:       1,
				Position: float64(span) / 2,
				Width:    float64(span),
				Profile:  make([]float64, span+1),
				SkyX:     maskX,
				SkyY:     maskY,
				HasSky:   true,
			}},
		})
	}
	return win, nil
}

func fibreRecorded(t *caltab.IFUTable, slit, seqInSlit int) bool {
	for idx := 0; idx < caltab.FibresPerQuadrant; idx++ {
		f, err := t.Fibre(idx)
		if err != nil {
			continue
		}
		if f.Slit == slit && f.SeqInSlit == seqInSlit {
			return true
		}
	}
	return false
}
