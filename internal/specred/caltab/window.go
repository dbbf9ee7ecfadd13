package caltab

import (
	"github.com/eso-vlt/vimos-specred/internal/specred"
	"github.com/eso-vlt/vimos-specred/internal/specred/kind"
	"github.com/eso-vlt/vimos-specred/internal/specred/table"
)

// TagWindow is the Window table's EXTNAME.
const TagWindow table.TableTag = "WIN"

// WindowObject is one object owned by a window slit (§3.4).
type WindowObject struct {
	ObjStart, ObjEnd int
	ID               int
	Position, Width  float64
	Profile          []float64
	SkyX, SkyY       float64
	HasSky           bool
}

// WindowSlit is one slit of the Window table, owning an ordered sequence
// of objects (§3.4).
type WindowSlit struct {
	SlitNumber             int
	IFUSlit, IFUFibre      int
	FibreTransmission      float64
	SpecStart, SpecEnd     int
	SpecLong               bool
	Objects                []WindowObject
}

// WindowTable is the tree-shaped slit->object table derived from
// extraction (§3.4, §4.4.2).
type WindowTable struct {
	*table.Table
	slits []WindowSlit
}

// NewWindowTable constructs an empty Window table.
func NewWindowTable() *WindowTable {
	t := table.New(TagWindow)
	return &WindowTable{Table: t}
}

// Validate checks the Window table's invariants: every object's span
// must lie within [0, specEnd-specStart].
func (w *WindowTable) Validate() error {
	if err := w.Table.Validate(); err != nil {
		return err
	}
	for _, s := range w.slits {
		span := s.SpecEnd - s.SpecStart
		for _, o := range s.Objects {
			if o.ObjStart < 0 || o.ObjEnd > span || o.ObjStart > o.ObjEnd {
				return kind.New(kind.OutOfRange, "slit %d object %d span [%d,%d] outside [0,%d]",
					s.SlitNumber, o.ID, o.ObjStart, o.ObjEnd, span)
			}
		}
	}
	return nil
}

// AddSlit appends a slit (with its already-populated objects) to the
// table.
func (w *WindowTable) AddSlit(s WindowSlit) {
	w.slits = append(w.slits, s)
}

// NSlits returns the number of slits.
func (w *WindowTable) NSlits() int { return len(w.slits) }

// Slit returns the i-th slit.
func (w *WindowTable) Slit(i int) (WindowSlit, error) {
	if i < 0 || i >= len(w.slits) {
		return WindowSlit{}, kind.New(kind.OutOfRange, "slit index %d out of range [0,%d)", i, len(w.slits))
	}
	return w.slits[i], nil
}

// Flatten materialises the tree-shaped slit/object sequence into the
// table's flat column store (one row per object, carrying its owning
// slit's fields), for serialisation via internal/specred/table.
func (w *WindowTable) Flatten() error {
	w.Columns = specred.NewColumnList()
	n := 0
	for _, s := range w.slits {
		n += len(s.Objects)
	}
	slitNo := specred.NewIntColumn("SLIT", n)
	ifuSlit := specred.NewIntColumn("IFUSLIT", n)
	ifuFibre := specred.NewIntColumn("IFUFIBRE", n)
	fibreTrans := specred.NewDoubleColumn("FIBRETRANS", n)
	specStart := specred.NewIntColumn("SPECSTART", n)
	specEnd := specred.NewIntColumn("SPECEND", n)
	specLong := specred.NewIntColumn("SPECLONG", n)
	objStart := specred.NewIntColumn("OBJSTART", n)
	objEnd := specred.NewIntColumn("OBJEND", n)
	objID := specred.NewIntColumn("OBJID", n)
	position := specred.NewDoubleColumn("POSITION", n)
	width := specred.NewDoubleColumn("WIDTH", n)

	row := 0
	for _, s := range w.slits {
		for _, o := range s.Objects {
			slitNo.SetInt(row, int32(s.SlitNumber))       //nolint:errcheck
			ifuSlit.SetInt(row, int32(s.IFUSlit))         //nolint:errcheck
			ifuFibre.SetInt(row, int32(s.IFUFibre))       //nolint:errcheck
			fibreTrans.SetDouble(row, s.FibreTransmission) //nolint:errcheck
			specStart.SetInt(row, int32(s.SpecStart))     //nolint:errcheck
			specEnd.SetInt(row, int32(s.SpecEnd))         //nolint:errcheck
			sl := int32(0)
			if s.SpecLong {
				sl = 1
			}
			specLong.SetInt(row, sl)             //nolint:errcheck
			objStart.SetInt(row, int32(o.ObjStart)) //nolint:errcheck
			objEnd.SetInt(row, int32(o.ObjEnd))     //nolint:errcheck
			objID.SetInt(row, int32(o.ID))         //nolint:errcheck
			position.SetDouble(row, o.Position)    //nolint:errcheck
			width.SetDouble(row, o.Width)           //nolint:errcheck
			row++
		}
	}
	for _, c := range []*specred.Column{slitNo, ifuSlit, ifuFibre, fibreTrans, specStart, specEnd, specLong, objStart, objEnd, objID, position, width} {
		if err := w.Columns.Append(c); err != nil {
			return err
		}
	}
	return nil
}

// Unflatten rebuilds the tree-shaped slit/object sequence from the
// table's flat column store, the inverse of Flatten, needed after
// table.Read loads a Window table back from a FITS binary-table
// extension (§6.1's round-trip guarantee).
func (w *WindowTable) Unflatten() error {
	cols := []string{"SLIT", "IFUSLIT", "IFUFIBRE", "FIBRETRANS", "SPECSTART", "SPECEND", "SPECLONG", "OBJSTART", "OBJEND", "OBJID", "POSITION", "WIDTH"}
	for _, name := range cols {
		if _, err := w.Columns.Get(name); err != nil {
			return err
		}
	}
	slitNo, _ := w.Columns.Get("SLIT")
	ifuSlit, _ := w.Columns.Get("IFUSLIT")
	ifuFibre, _ := w.Columns.Get("IFUFIBRE")
	fibreTrans, _ := w.Columns.Get("FIBRETRANS")
	specStart, _ := w.Columns.Get("SPECSTART")
	specEnd, _ := w.Columns.Get("SPECEND")
	specLong, _ := w.Columns.Get("SPECLONG")
	objStart, _ := w.Columns.Get("OBJSTART")
	objEnd, _ := w.Columns.Get("OBJEND")
	objID, _ := w.Columns.Get("OBJID")
	position, _ := w.Columns.Get("POSITION")
	width, _ := w.Columns.Get("WIDTH")

	w.slits = nil
	var current *WindowSlit
	for row := 0; row < slitNo.Len(); row++ {
		n, err := slitNo.GetInt(row)
		if err != nil {
			return err
		}
		if current == nil || current.SlitNumber != int(n) {
			is, _ := ifuSlit.GetInt(row)
			ifib, _ := ifuFibre.GetInt(row)
			ft, _ := fibreTrans.GetDouble(row)
			ss, _ := specStart.GetInt(row)
			se, _ := specEnd.GetInt(row)
			sl, _ := specLong.GetInt(row)
			w.slits = append(w.slits, WindowSlit{
				SlitNumber:        int(n),
				IFUSlit:           int(is),
				IFUFibre:          int(ifib),
				FibreTransmission: ft,
				SpecStart:         int(ss),
				SpecEnd:           int(se),
				SpecLong:          sl != 0,
			})
			current = &w.slits[len(w.slits)-1]
		}
		os, _ := objStart.GetInt(row)
		oe, _ := objEnd.GetInt(row)
		oid, _ := objID.GetInt(row)
		pos, _ := position.GetDouble(row)
		wd, _ := width.GetDouble(row)
		current.Objects = append(current.Objects, WindowObject{
			ObjStart: int(os),
			ObjEnd:   int(oe),
			ID:       int(oid),
			Position: pos,
			Width:    wd,
		})
	}
	return nil
}
