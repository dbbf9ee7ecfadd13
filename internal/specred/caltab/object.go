package caltab

import (
	"github.com/eso-vlt/vimos-specred/internal/specred"
	"github.com/eso-vlt/vimos-specred/internal/specred/table"
)

// TagObject is the Object table's EXTNAME.
const TagObject table.TableTag = "OBJ"

// ObjectTable is a flat list of extracted-object rows: slit/fibre ids,
// row index into the packed-spectrum image, mask coordinates, sky
// coordinates (§3.4).
type ObjectTable struct {
	*table.Table
}

// NewObjectTable constructs an empty Object table with its required
// columns allocated for n rows.
func NewObjectTable(n int) *ObjectTable {
	t := table.New(TagObject)
	t.Columns.Append(specred.NewIntColumn("SLIT", n))     //nolint:errcheck
	t.Columns.Append(specred.NewIntColumn("FIBRE", n))    //nolint:errcheck
	t.Columns.Append(specred.NewIntColumn("ROW", n))      //nolint:errcheck
	t.Columns.Append(specred.NewDoubleColumn("MASKX", n)) //nolint:errcheck
	t.Columns.Append(specred.NewDoubleColumn("MASKY", n)) //nolint:errcheck
	t.Columns.Append(specred.NewDoubleColumn("SKYX", n))  //nolint:errcheck
	t.Columns.Append(specred.NewDoubleColumn("SKYY", n))  //nolint:errcheck
	return &ObjectTable{t}
}

// Validate checks the Object table's required columns.
func (o *ObjectTable) Validate() error {
	if err := o.Table.Validate(); err != nil {
		return err
	}
	return o.RequireColumns("SLIT", "FIBRE", "ROW", "MASKX", "MASKY", "SKYX", "SKYY")
}

// SetRow writes one object row.
func (o *ObjectTable) SetRow(row, slit, fibre, imgRow int, maskX, maskY, skyX, skyY float64) error {
	for name, v := range map[string]int32{"SLIT": int32(slit), "FIBRE": int32(fibre), "ROW": int32(imgRow)} {
		c, err := o.Columns.Get(name)
		if err != nil {
			return err
		}
		if err := c.SetInt(row, v); err != nil {
			return err
		}
	}
	for name, v := range map[string]float64{"MASKX": maskX, "MASKY": maskY, "SKYX": skyX, "SKYY": skyY} {
		c, err := o.Columns.Get(name)
		if err != nil {
			return err
		}
		if err := c.SetDouble(row, v); err != nil {
			return err
		}
	}
	return nil
}
