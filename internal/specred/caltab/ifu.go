package caltab

import (
	"github.com/eso-vlt/vimos-specred/internal/specred"
	"github.com/eso-vlt/vimos-specred/internal/specred/kind"
	"github.com/eso-vlt/vimos-specred/internal/specred/table"
)

// TagIFU is the IFU table's EXTNAME.
const TagIFU table.TableTag = "IFU"

// SlitsPerQuadrant and FibresPerSlit are the IFU's fixed geometry
// (§3.4, §4.4.1): each quadrant is 4 slits of 400 fibres, 1600 fibres
// total per quadrant.
const (
	SlitsPerQuadrant = 4
	FibresPerSlit    = 400
	FibresPerQuadrant = SlitsPerQuadrant * FibresPerSlit
)

// DeadFibreTransmission marks a dead fibre (§3.4).
const DeadFibreTransmission = -1.0

// IFUFibre is one micro-lens channel of the table (§3.4).
type IFUFibre struct {
	Slit           int
	SeqInSlit      int
	L, M           int
	X, Y           float64
	Transmission   float64
	FWHM, SigmaY   float64
	Group          int
}

// IFUTable is the quadrant->slit->fibre tree, flattened into one row per
// fibre for storage (§3.4).
type IFUTable struct {
	*table.Table
	fibres [FibresPerQuadrant]IFUFibre
	filled int
}

// NewIFUTable constructs an empty IFU table for the given quadrant,
// with RefL/RefM recorded as required by §4.4.6's sky reference fibre.
func NewIFUTable(quadrant, refL, refM int) *IFUTable {
	t := table.New(TagIFU)
	t.Descriptors.Put(specred.NewInt("QUAD", int32(quadrant), "quadrant number"))
	t.Descriptors.Put(specred.NewInt("REFL", int32(refL), "sky reference fibre L"))
	t.Descriptors.Put(specred.NewInt("REFM", int32(refM), "sky reference fibre M"))
	t.Descriptors.Put(specred.NewInt("SKYGROUP", 0, "ESO PRO SKYGROUP: number of PSF groups"))
	return &IFUTable{Table: t}
}

// Validate checks the IFU table's required descriptors and that every
// fibre slot has been filled.
func (f *IFUTable) Validate() error {
	if err := f.Table.Validate(); err != nil {
		return err
	}
	if err := f.RequireDescriptors("QUAD", "REFL", "REFM", "SKYGROUP"); err != nil {
		return err
	}
	if f.filled != FibresPerQuadrant {
		return kind.New(kind.Incompatible, "IFU table has %d fibres filled, want %d", f.filled, FibresPerQuadrant)
	}
	return nil
}

// SetFibre writes the fibre at flat index idx (slit*FibresPerSlit + seq,
// 0-based).
func (f *IFUTable) SetFibre(idx int, fib IFUFibre) error {
	if idx < 0 || idx >= FibresPerQuadrant {
		return kind.New(kind.OutOfRange, "fibre index %d out of range [0,%d)", idx, FibresPerQuadrant)
	}
	if f.fibres[idx] == (IFUFibre{}) {
		f.filled++
	}
	f.fibres[idx] = fib
	return nil
}

// Fibre returns the fibre at flat index idx.
func (f *IFUTable) Fibre(idx int) (IFUFibre, error) {
	if idx < 0 || idx >= FibresPerQuadrant {
		return IFUFibre{}, kind.New(kind.OutOfRange, "fibre index %d out of range [0,%d)", idx, FibresPerQuadrant)
	}
	return f.fibres[idx], nil
}

// Quadrant returns the table's quadrant number.
func (f *IFUTable) Quadrant() (int, error) {
	d, err := f.Descriptors.Get("QUAD")
	if err != nil {
		return 0, err
	}
	v, err := d.Int()
	return int(v), err
}

// RefFibre returns the sky reference fibre's (L,M).
func (f *IFUTable) RefFibre() (int, int, error) {
	ld, err := f.Descriptors.Get("REFL")
	if err != nil {
		return 0, 0, err
	}
	md, err := f.Descriptors.Get("REFM")
	if err != nil {
		return 0, 0, err
	}
	l, err := ld.Int()
	if err != nil {
		return 0, 0, err
	}
	m, err := md.Int()
	if err != nil {
		return 0, 0, err
	}
	return int(l), int(m), nil
}

// SetSkyGroupCount persists ESO PRO SKYGROUP (§4.4.6 step 5).
func (f *IFUTable) SetSkyGroupCount(n int) {
	f.Descriptors.Put(specred.NewInt("SKYGROUP", int32(n), "ESO PRO SKYGROUP: number of PSF groups"))
}

// Totals reports good/dead fibre counts across the quadrant, for the
// §5 invariant good+dead == FibresPerQuadrant.
func (f *IFUTable) Totals() (good, dead int) {
	for _, fib := range f.fibres {
		if fib.Transmission == DeadFibreTransmission {
			dead++
		} else {
			good++
		}
	}
	return
}

// Flatten materialises the fibre array into the table's flat column
// store for serialisation.
func (f *IFUTable) Flatten() error {
	f.Columns = specred.NewColumnList()
	n := FibresPerQuadrant
	slit := specred.NewIntColumn("SLIT", n)
	seq := specred.NewIntColumn("SEQ", n)
	lcol := specred.NewIntColumn("L", n)
	mcol := specred.NewIntColumn("M", n)
	xcol := specred.NewDoubleColumn("X", n)
	ycol := specred.NewDoubleColumn("Y", n)
	trans := specred.NewDoubleColumn("TRANS", n)
	fwhm := specred.NewDoubleColumn("FWHM", n)
	sigy := specred.NewDoubleColumn("SIGMAY", n)
	group := specred.NewIntColumn("GROUP", n)

	for i, fib := range f.fibres {
		slit.SetInt(i, int32(fib.Slit))         //nolint:errcheck
		seq.SetInt(i, int32(fib.SeqInSlit))      //nolint:errcheck
		lcol.SetInt(i, int32(fib.L))             //nolint:errcheck
		mcol.SetInt(i, int32(fib.M))             //nolint:errcheck
		xcol.SetDouble(i, fib.X)                 //nolint:errcheck
		ycol.SetDouble(i, fib.Y)                 //nolint:errcheck
		trans.SetDouble(i, fib.Transmission)     //nolint:errcheck
		fwhm.SetDouble(i, fib.FWHM)               //nolint:errcheck
		sigy.SetDouble(i, fib.SigmaY)             //nolint:errcheck
		group.SetInt(i, int32(fib.Group))        //nolint:errcheck
	}
	for _, c := range []*specred.Column{slit, seq, lcol, mcol, xcol, ycol, trans, fwhm, sigy, group} {
		if err := f.Columns.Append(c); err != nil {
			return err
		}
	}
	return nil
}
