package caltab

import (
	"github.com/eso-vlt/vimos-specred/internal/specred"
	"github.com/eso-vlt/vimos-specred/internal/specred/table"
)

// TagStar is the Star table's EXTNAME.
const TagStar table.TableTag = "STAR"

// StarRow is one detected-star row (§3.4).
type StarRow struct {
	Number              int
	XImage, YImage      float64
	XWorld, YWorld      float64
	Mag                 float64
}

// StarTable is the detected-star catalogue with per-frame airmass and
// zeropoint descriptors (§3.4).
type StarTable struct {
	*table.Table
	rows []StarRow
}

// NewStarTable constructs an empty Star table.
func NewStarTable(airmass, magZero float64) *StarTable {
	t := table.New(TagStar)
	t.Descriptors.Put(specred.NewDouble("AIRMASS", airmass, "airmass"))
	t.Descriptors.Put(specred.NewDouble("MAGZERO", magZero, "photometric zeropoint"))
	return &StarTable{Table: t}
}

// Validate checks the Star table's required descriptors.
func (s *StarTable) Validate() error {
	if err := s.Table.Validate(); err != nil {
		return err
	}
	return s.RequireDescriptors("AIRMASS", "MAGZERO")
}

// AddStar appends a detected-star row.
func (s *StarTable) AddStar(r StarRow) {
	s.rows = append(s.rows, r)
}

// Stars returns the detected-star rows.
func (s *StarTable) Stars() []StarRow {
	return append([]StarRow(nil), s.rows...)
}

// Flatten materialises the detected-star rows into the table's flat
// column store.
func (s *StarTable) Flatten() error {
	s.Columns = specred.NewColumnList()
	n := len(s.rows)
	number := specred.NewIntColumn("NUMBER", n)
	ximg := specred.NewDoubleColumn("X_IMAGE", n)
	yimg := specred.NewDoubleColumn("Y_IMAGE", n)
	xworld := specred.NewDoubleColumn("X_WORLD", n)
	yworld := specred.NewDoubleColumn("Y_WORLD", n)
	mag := specred.NewDoubleColumn("MAG", n)
	for i, r := range s.rows {
		number.SetInt(i, int32(r.Number)) //nolint:errcheck
		ximg.SetDouble(i, r.XImage)        //nolint:errcheck
		yimg.SetDouble(i, r.YImage)        //nolint:errcheck
		xworld.SetDouble(i, r.XWorld)      //nolint:errcheck
		yworld.SetDouble(i, r.YWorld)      //nolint:errcheck
		mag.SetDouble(i, r.Mag)            //nolint:errcheck
	}
	for _, c := range []*specred.Column{number, ximg, yimg, xworld, yworld, mag} {
		if err := s.Columns.Append(c); err != nil {
			return err
		}
	}
	return nil
}
