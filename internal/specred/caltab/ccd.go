package caltab

import (
	"fmt"

	"github.com/eso-vlt/vimos-specred/internal/specred"
	"github.com/eso-vlt/vimos-specred/internal/specred/table"
)

// TagCCD is the CCD table's EXTNAME.
const TagCCD table.TableTag = "CCD"

// CCDTable is the static detector description: nominal dark/bias level
// and bad-pixel regions (§3.4, §D.2).
type CCDTable struct {
	*table.Table
}

// NewCCDTable constructs an empty CCD table with the given nominal
// levels.
func NewCCDTable(biasLevel, darkLevel float64) *CCDTable {
	t := table.New(TagCCD)
	t.Descriptors.Put(specred.NewDouble("BIASLEVEL", biasLevel, "nominal bias level (ADU)"))
	t.Descriptors.Put(specred.NewDouble("DARKLEVEL", darkLevel, "nominal dark level (ADU)"))
	t.Descriptors.Put(specred.NewInt("NBADREG", 0, "number of bad-pixel regions"))
	return &CCDTable{t}
}

// Validate checks the CCD table's required descriptors.
func (c *CCDTable) Validate() error {
	if err := c.Table.Validate(); err != nil {
		return err
	}
	return c.RequireDescriptors("BIASLEVEL", "DARKLEVEL", "NBADREG")
}

// BiasLevel returns the nominal bias level.
func (c *CCDTable) BiasLevel() (float64, error) {
	d, err := c.Descriptors.Get("BIASLEVEL")
	if err != nil {
		return 0, err
	}
	return d.Double()
}

// DarkLevel returns the nominal dark level.
func (c *CCDTable) DarkLevel() (float64, error) {
	d, err := c.Descriptors.Get("DARKLEVEL")
	if err != nil {
		return 0, err
	}
	return d.Double()
}

// AddBadPixelRegion appends one inclusive bad-pixel rectangle.
func (c *CCDTable) AddBadPixelRegion(r Rect) error {
	nD, err := c.Descriptors.Get("NBADREG")
	if err != nil {
		return err
	}
	n, err := nD.Int()
	if err != nil {
		return err
	}
	c.Descriptors.Put(specred.NewInt(rectKey("BADREG", int(n), "X0"), int32(r.X0), ""))
	c.Descriptors.Put(specred.NewInt(rectKey("BADREG", int(n), "Y0"), int32(r.Y0), ""))
	c.Descriptors.Put(specred.NewInt(rectKey("BADREG", int(n), "X1"), int32(r.X1), ""))
	c.Descriptors.Put(specred.NewInt(rectKey("BADREG", int(n), "Y1"), int32(r.Y1), ""))
	c.Descriptors.Put(specred.NewInt("NBADREG", n+1, "number of bad-pixel regions"))
	return nil
}

// BadPixelRegions returns every stored bad-pixel rectangle (§D.2).
func (c *CCDTable) BadPixelRegions() ([]Rect, error) {
	nD, err := c.Descriptors.Get("NBADREG")
	if err != nil {
		return nil, err
	}
	n, err := nD.Int()
	if err != nil {
		return nil, err
	}
	out := make([]Rect, 0, n)
	for i := 0; i < int(n); i++ {
		x0, err := c.intDesc(rectKey("BADREG", i, "X0"))
		if err != nil {
			return nil, err
		}
		y0, err := c.intDesc(rectKey("BADREG", i, "Y0"))
		if err != nil {
			return nil, err
		}
		x1, err := c.intDesc(rectKey("BADREG", i, "X1"))
		if err != nil {
			return nil, err
		}
		y1, err := c.intDesc(rectKey("BADREG", i, "Y1"))
		if err != nil {
			return nil, err
		}
		out = append(out, Rect{x0, y0, x1, y1})
	}
	return out, nil
}

func (c *CCDTable) intDesc(name string) (int, error) {
	d, err := c.Descriptors.Get(name)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	v, err := d.Int()
	return int(v), err
}
