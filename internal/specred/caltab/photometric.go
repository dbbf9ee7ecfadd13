package caltab

import (
	"github.com/eso-vlt/vimos-specred/internal/specred"
	"github.com/eso-vlt/vimos-specred/internal/specred/table"
)

// TagPhotometric is the Photometric table's EXTNAME (VM_IPC in the
// original implementation).
const TagPhotometric table.TableTag = "IPC"

// StarZeropoint is one per-star row of the Photometric table (§D.2a).
type StarZeropoint struct {
	Image      string
	StarID     int
	Zeropoint  float64
}

// PhotometricTable carries the fitted zeropoint/extinction/colour
// coefficients, their RMS, and per-star zeropoint rows (§3.4, §D.2a).
type PhotometricTable struct {
	*table.Table
	stars []StarZeropoint
}

// NewPhotometricTable constructs a Photometric table with the fitted
// coefficients and their RMS.
func NewPhotometricTable(magZero, extinction, colour, colourTerm, rms float64) *PhotometricTable {
	t := table.New(TagPhotometric)
	t.Descriptors.Put(specred.NewDouble("MAGZERO", magZero, "photometric zeropoint"))
	t.Descriptors.Put(specred.NewDouble("EXTINCT", extinction, "extinction coefficient"))
	t.Descriptors.Put(specred.NewDouble("COLOUR", colour, "colour coefficient"))
	t.Descriptors.Put(specred.NewDouble("COLOURTERM", colourTerm, "colour term coefficient"))
	t.Descriptors.Put(specred.NewDouble("RMS", rms, "fit RMS"))
	return &PhotometricTable{Table: t}
}

// Validate checks the Photometric table's required descriptors.
func (p *PhotometricTable) Validate() error {
	if err := p.Table.Validate(); err != nil {
		return err
	}
	return p.RequireDescriptors("MAGZERO", "EXTINCT", "COLOUR", "COLOURTERM", "RMS")
}

// Coefficients returns (magZero, extinction, colour, colourTerm, rms).
func (p *PhotometricTable) Coefficients() (magZero, extinction, colour, colourTerm, rms float64, err error) {
	get := func(name string) (float64, error) {
		d, err := p.Descriptors.Get(name)
		if err != nil {
			return 0, err
		}
		return d.Double()
	}
	if magZero, err = get("MAGZERO"); err != nil {
		return
	}
	if extinction, err = get("EXTINCT"); err != nil {
		return
	}
	if colour, err = get("COLOUR"); err != nil {
		return
	}
	if colourTerm, err = get("COLOURTERM"); err != nil {
		return
	}
	rms, err = get("RMS")
	return
}

// AddStar appends a per-star zeropoint row (§D.2a).
func (p *PhotometricTable) AddStar(s StarZeropoint) {
	p.stars = append(p.stars, s)
}

// Stars returns the per-star zeropoint rows.
func (p *PhotometricTable) Stars() []StarZeropoint {
	return append([]StarZeropoint(nil), p.stars...)
}

// Flatten materialises the per-star rows into the table's flat column
// store for serialisation.
func (p *PhotometricTable) Flatten() error {
	p.Columns = specred.NewColumnList()
	n := len(p.stars)
	image := specred.NewStringColumn("IMAGE", n)
	starID := specred.NewIntColumn("STARID", n)
	zp := specred.NewDoubleColumn("ZEROPOINT", n)
	for i, s := range p.stars {
		image.SetString(i, s.Image)       //nolint:errcheck
		starID.SetInt(i, int32(s.StarID)) //nolint:errcheck
		zp.SetDouble(i, s.Zeropoint)       //nolint:errcheck
	}
	for _, c := range []*specred.Column{image, starID, zp} {
		if err := p.Columns.Append(c); err != nil {
			return err
		}
	}
	return nil
}
