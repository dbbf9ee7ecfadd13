package caltab

import (
	"github.com/eso-vlt/vimos-specred/internal/specred"
	"github.com/eso-vlt/vimos-specred/internal/specred/polynomial"
	"github.com/eso-vlt/vimos-specred/internal/specred/table"
)

// TagExtraction is the Extraction table's EXTNAME.
const TagExtraction table.TableTag = "EXT"

// ExtractionSlit is one slit row of the Extraction table: per-Y pixel
// positions, the inverse-dispersion and curvature solutions, and (for
// IFU) the fibre-peak X (§3.4).
type ExtractionSlit struct {
	Slit       int
	IFUSlit    int
	IFUFibre   int
	CCDX, CCDY []float64
	InvDisp    *polynomial.Polynomial
	Curvature  *polynomial.Polynomial
	PeakX      float64
}

// ExtractionTable is the per-slit wavelength solution and spatial
// curvature table (§3.4).
type ExtractionTable struct {
	*table.Table
}

// NewExtractionTable constructs an empty Extraction table.
func NewExtractionTable() *ExtractionTable {
	t := table.New(TagExtraction)
	t.Columns.Append(specred.NewIntColumn("SLIT", 0))     //nolint:errcheck
	t.Columns.Append(specred.NewIntColumn("IFUSLIT", 0))  //nolint:errcheck
	t.Columns.Append(specred.NewIntColumn("IFUFIBRE", 0)) //nolint:errcheck
	t.Columns.Append(specred.NewDoubleColumn("PEAKX", 0)) //nolint:errcheck
	return &ExtractionTable{t}
}

// Validate checks the Extraction table's required columns.
func (e *ExtractionTable) Validate() error {
	if err := e.Table.Validate(); err != nil {
		return err
	}
	return e.RequireColumns("SLIT", "IFUSLIT", "IFUFIBRE", "PEAKX")
}

// AddSlit appends one slit row, storing its per-Y arrays and polynomials
// as row-indexed descriptors alongside the flat scalar columns.
func (e *ExtractionTable) AddSlit(s ExtractionSlit) error {
	row := e.Columns.NRows()
	if err := e.growColumn("SLIT", int32(s.Slit)); err != nil {
		return err
	}
	if err := e.growColumn("IFUSLIT", int32(s.IFUSlit)); err != nil {
		return err
	}
	if err := e.growColumn("IFUFIBRE", int32(s.IFUFibre)); err != nil {
		return err
	}
	if err := e.growDoubleColumn("PEAKX", s.PeakX); err != nil {
		return err
	}

	xs := make([]float32, len(s.CCDX))
	for i, v := range s.CCDX {
		xs[i] = float32(v)
	}
	ys := make([]float32, len(s.CCDY))
	for i, v := range s.CCDY {
		ys[i] = float32(v)
	}
	e.Descriptors.Put(specred.NewFloatArray(rowKey(row, "CCDX"), xs, "per-Y CCD x positions"))
	e.Descriptors.Put(specred.NewFloatArray(rowKey(row, "CCDY"), ys, "per-Y CCD y positions"))
	if s.InvDisp != nil {
		encodePolynomial(rowKey(row, "INVDISP"), s.InvDisp, e.Descriptors)
	}
	if s.Curvature != nil {
		encodePolynomial(rowKey(row, "CURV"), s.Curvature, e.Descriptors)
	}
	return nil
}

// NSlits returns the number of slit rows.
func (e *ExtractionTable) NSlits() int { return e.Columns.NRows() }

// Slit reconstructs the i-th slit row.
func (e *ExtractionTable) Slit(i int) (ExtractionSlit, error) {
	slit, err := e.intCell("SLIT", i)
	if err != nil {
		return ExtractionSlit{}, err
	}
	ifuSlit, err := e.intCell("IFUSLIT", i)
	if err != nil {
		return ExtractionSlit{}, err
	}
	ifuFibre, err := e.intCell("IFUFIBRE", i)
	if err != nil {
		return ExtractionSlit{}, err
	}
	peakCol, err := e.Columns.Get("PEAKX")
	if err != nil {
		return ExtractionSlit{}, err
	}
	peakX, err := peakCol.GetDouble(i)
	if err != nil {
		return ExtractionSlit{}, err
	}

	xD, err := e.Descriptors.Get(rowKey(i, "CCDX"))
	if err != nil {
		return ExtractionSlit{}, err
	}
	xs, err := xD.FloatArray()
	if err != nil {
		return ExtractionSlit{}, err
	}
	yD, err := e.Descriptors.Get(rowKey(i, "CCDY"))
	if err != nil {
		return ExtractionSlit{}, err
	}
	ys, err := yD.FloatArray()
	if err != nil {
		return ExtractionSlit{}, err
	}
	ccdX := make([]float64, len(xs))
	for j, v := range xs {
		ccdX[j] = float64(v)
	}
	ccdY := make([]float64, len(ys))
	for j, v := range ys {
		ccdY[j] = float64(v)
	}

	var invDisp, curv *polynomial.Polynomial
	if e.Descriptors.Has(rowKey(i, "INVDISP") + "_DIM") {
		invDisp, err = decodePolynomial(rowKey(i, "INVDISP"), e.Descriptors)
		if err != nil {
			return ExtractionSlit{}, err
		}
	}
	if e.Descriptors.Has(rowKey(i, "CURV") + "_DIM") {
		curv, err = decodePolynomial(rowKey(i, "CURV"), e.Descriptors)
		if err != nil {
			return ExtractionSlit{}, err
		}
	}

	return ExtractionSlit{
		Slit: slit, IFUSlit: ifuSlit, IFUFibre: ifuFibre,
		CCDX: ccdX, CCDY: ccdY, InvDisp: invDisp, Curvature: curv, PeakX: peakX,
	}, nil
}

func rowKey(row int, field string) string {
	return rectKey(field, row, "R")
}

func (e *ExtractionTable) intCell(col string, row int) (int, error) {
	c, err := e.Columns.Get(col)
	if err != nil {
		return 0, err
	}
	v, err := c.GetInt(row)
	return int(v), err
}

func (e *ExtractionTable) growColumn(name string, v int32) error {
	c, err := e.Columns.Get(name)
	if err != nil {
		return err
	}
	return appendInt(c, v)
}

func (e *ExtractionTable) growDoubleColumn(name string, v float64) error {
	c, err := e.Columns.Get(name)
	if err != nil {
		return err
	}
	return appendDouble(c, v)
}

// appendInt and appendDouble grow a column by one element and set it,
// since specred.Column is fixed-length at construction; the caltab
// layer owns row-by-row growth for tables built incrementally.
func appendInt(c *specred.Column, v int32) error {
	grown := specred.NewIntColumn(c.Name, c.Len()+1)
	for i := 0; i < c.Len(); i++ {
		old, err := c.GetInt(i)
		if err != nil {
			return err
		}
		if err := grown.SetInt(i, old); err != nil {
			return err
		}
	}
	if err := grown.SetInt(c.Len(), v); err != nil {
		return err
	}
	*c = *grown
	return nil
}

func appendDouble(c *specred.Column, v float64) error {
	grown := specred.NewDoubleColumn(c.Name, c.Len()+1)
	for i := 0; i < c.Len(); i++ {
		old, err := c.GetDouble(i)
		if err != nil {
			return err
		}
		if err := grown.SetDouble(i, old); err != nil {
			return err
		}
	}
	if err := grown.SetDouble(c.Len(), v); err != nil {
		return err
	}
	*c = *grown
	return nil
}
