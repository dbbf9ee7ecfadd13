// Package table implements the L1 table kernel: a named collection of
// descriptors and equal-length columns that serialises to a FITS binary
// extension via internal/specred/fitsio.
package table

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/eso-vlt/vimos-specred/internal/fsutil"
	"github.com/eso-vlt/vimos-specred/internal/specred"
	"github.com/eso-vlt/vimos-specred/internal/specred/fitsio"
	"github.com/eso-vlt/vimos-specred/internal/specred/kind"
)

// TableTag is a type-tag name identifying a specialised table family
// (EXT, WIN, OBJ, IFU, IPC, SPH, STAR, IDS, CCD).
type TableTag string

// Table is the type-tag name, an ordered descriptor list, and an ordered
// column list of equal length (§3.3); FITS serialisation goes through
// Write and Read.
type Table struct {
	Tag         TableTag
	Descriptors *specred.DescriptorList
	Columns     *specred.ColumnList
}

// New constructs an empty table with the given type-tag, pre-setting the
// TABLE descriptor to tag as required by invariant (b) of §3.3.
func New(tag TableTag) *Table {
	t := &Table{Tag: tag, Descriptors: specred.NewDescriptorList(), Columns: specred.NewColumnList()}
	t.Descriptors.Put(specred.NewString("TABLE", string(tag), "table type tag"))
	return t
}

// Validate checks invariant (a): all columns share the same length, and
// that the TABLE descriptor matches the tag (invariant (b)). Callers of
// specialised tables additionally check their own required-column set.
func (t *Table) Validate() error {
	d, err := t.Descriptors.Get("TABLE")
	if err != nil {
		return kind.New(kind.IllegalInput, "table missing TABLE descriptor")
	}
	tag, err := d.String()
	if err != nil {
		return err
	}
	if tag != string(t.Tag) {
		return kind.New(kind.Incompatible, "TABLE descriptor %q does not match tag %q", tag, t.Tag)
	}
	n := t.Columns.NRows()
	for i := 0; i < t.Columns.Len(); i++ {
		c, _ := t.Columns.At(i)
		if c.Len() != n {
			return kind.New(kind.Incompatible, "column %q has length %d, table length %d", c.Name, c.Len(), n)
		}
	}
	return nil
}

// RequireColumns fails DataNotFound if any of names is absent, used by
// specialised-table validators to enforce their required-column set.
func (t *Table) RequireColumns(names ...string) error {
	for _, n := range names {
		if _, err := t.Columns.Get(n); err != nil {
			return kind.New(kind.DataNotFound, "required column %q absent in %s table", n, t.Tag)
		}
	}
	return nil
}

// RequireDescriptors fails DataNotFound if any of names is absent.
func (t *Table) RequireDescriptors(names ...string) error {
	for _, n := range names {
		if !t.Descriptors.Has(n) {
			return kind.New(kind.DataNotFound, "required descriptor %q absent in %s table", n, t.Tag)
		}
	}
	return nil
}

// columnForm maps a specred.ColType to a FITS TFORM code, given a
// fixed string width for ColString/ColChar columns.
func columnForm(c *specred.Column, stringWidth int) string {
	switch c.Type {
	case specred.ColInt:
		return "1J"
	case specred.ColFloat:
		return "1E"
	case specred.ColDouble:
		return "1D"
	case specred.ColChar:
		return "1A"
	case specred.ColString:
		return fmt.Sprintf("%dA", stringWidth)
	}
	return "1J"
}

// defaultStringWidth scans a string column for its longest value, so the
// written TFORM is wide enough to round-trip every row.
func defaultStringWidth(c *specred.Column) int {
	width := 1
	for i := 0; i < c.Len(); i++ {
		s, _ := c.GetString(i)
		if len(s) > width {
			width = len(s)
		}
	}
	return width
}

// Write serialises t as a binary-table extension named by its tag into
// the FITS file at path. Per §4.1: if a same-named extension exists it is
// deleted first; descriptors are purged of structural keywords before
// write so the serialiser does not duplicate keywords it derives from the
// column sequence.
func Write(fs fsutil.FileSystem, path string, t *Table) error {
	if err := t.Validate(); err != nil {
		return err
	}
	f, err := fitsio.Open(fs, path)
	if err != nil {
		return err
	}

	cards := make([]fitsio.Card, 0, t.Descriptors.Len())
	for i := 0; i < t.Descriptors.Len(); i++ {
		d, _ := t.Descriptors.At(i)
		if fitsio.IsStructuralKeyword(d.Name) {
			continue
		}
		cards = append(cards, descriptorToCard(d))
	}

	cols := make([]fitsio.ColumnSpec, 0, t.Columns.Len())
	data := make(map[string][]any, t.Columns.Len())
	nrows := t.Columns.NRows()
	for i := 0; i < t.Columns.Len(); i++ {
		c, _ := t.Columns.At(i)
		width := 1
		if c.Type == specred.ColString {
			width = defaultStringWidth(c)
		}
		cols = append(cols, fitsio.ColumnSpec{Name: c.Name, Form: columnForm(c, width)})
		vals := make([]any, nrows)
		for row := 0; row < nrows; row++ {
			switch c.Type {
			case specred.ColInt:
				v, _ := c.GetInt(row)
				vals[row] = v
			case specred.ColFloat:
				v, _ := c.GetFloat(row)
				vals[row] = v
			case specred.ColDouble:
				v, _ := c.GetDouble(row)
				vals[row] = v
			case specred.ColString, specred.ColChar:
				v, _ := c.GetString(row)
				vals[row] = v
			}
		}
		data[c.Name] = vals
	}

	f.SetExtension(&fitsio.BinTable{
		Extname: string(t.Tag),
		Header:  cards,
		Columns: cols,
		NRows:   nrows,
		Data:    data,
	})
	return f.Save()
}

// Read positions the FITS file at the named binary extension (the
// table's tag), reconstructs descriptors (excluding structural keywords)
// and typed columns, and validates the result.
func Read(fs fsutil.FileSystem, path string, tag TableTag) (*Table, error) {
	f, err := fitsio.Open(fs, path)
	if err != nil {
		return nil, err
	}
	bt, ok := f.Extension(string(tag))
	if !ok {
		return nil, kind.New(kind.FileIO, "extension %s not found in %s", tag, path)
	}

	t := New(tag)
	for _, c := range bt.Header {
		t.Descriptors.Put(cardToDescriptor(c))
	}
	t.Descriptors.Put(specred.NewString("TABLE", string(tag), "table type tag"))

	for _, col := range bt.Columns {
		name := matchColumnName(bt, col.Name)
		rows := bt.Data[col.Name]
		switch code := col.Form[len(col.Form)-1]; code {
		case 'J':
			out := specred.NewIntColumn(name, len(rows))
			for i, v := range rows {
				out.SetInt(i, v.(int32)) //nolint:errcheck
			}
			if err := t.Columns.Append(out); err != nil {
				return nil, err
			}
		case 'D':
			out := specred.NewDoubleColumn(name, len(rows))
			for i, v := range rows {
				out.SetDouble(i, v.(float64)) //nolint:errcheck
			}
			if err := t.Columns.Append(out); err != nil {
				return nil, err
			}
		case 'E':
			out := specred.NewFloatColumn(name, len(rows))
			for i, v := range rows {
				out.SetFloat(i, v.(float32)) //nolint:errcheck
			}
			if err := t.Columns.Append(out); err != nil {
				return nil, err
			}
		case 'A':
			out := specred.NewStringColumn(name, len(rows))
			for i, v := range rows {
				out.SetString(i, v.(string)) //nolint:errcheck
			}
			if err := t.Columns.Append(out); err != nil {
				return nil, err
			}
		default:
			return nil, kind.New(kind.Unsupported, "column %q has unsupported TFORM %q", col.Name, col.Form)
		}
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// matchColumnName returns the requested name matched case-insensitively
// against the extension's declared TTYPE names, preserving the stored
// case (§4.1: "match column names (case-insensitive)").
func matchColumnName(bt *fitsio.BinTable, name string) string {
	for _, c := range bt.Columns {
		if strings.EqualFold(c.Name, name) {
			return c.Name
		}
	}
	return name
}

// Array-valued descriptors have no native FITS header card representation
// (a card value is one scalar); they are encoded as a single string card
// whose value carries a type tag and a comma-separated element list
// (e.g. "ARR:D:1,2.5,3"), decoded back into the matching array type on
// read. Scalar descriptors map directly onto the card's native value
// types.
const arrayCardPrefix = "ARR:"

func encodeArrayCard(tag string, elems []string) string {
	return arrayCardPrefix + tag + ":" + strings.Join(elems, ",")
}

func descriptorToCard(d *specred.Descriptor) fitsio.Card {
	switch d.Type {
	case specred.DescBool:
		v, _ := d.Bool()
		return fitsio.Card{Key: d.Name, Value: v, Comment: d.Comment}
	case specred.DescInt:
		v, _ := d.Int()
		return fitsio.Card{Key: d.Name, Value: int(v), Comment: d.Comment}
	case specred.DescFloat:
		v, _ := d.Float()
		return fitsio.Card{Key: d.Name, Value: float64(v), Comment: d.Comment}
	case specred.DescDouble:
		v, _ := d.Double()
		return fitsio.Card{Key: d.Name, Value: v, Comment: d.Comment}
	case specred.DescIntArray:
		arr, _ := d.IntArray()
		elems := make([]string, len(arr))
		for i, v := range arr {
			elems[i] = strconv.FormatInt(int64(v), 10)
		}
		return fitsio.Card{Key: d.Name, Value: encodeArrayCard("I", elems), Comment: d.Comment}
	case specred.DescFloatArray:
		arr, _ := d.FloatArray()
		elems := make([]string, len(arr))
		for i, v := range arr {
			elems[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
		}
		return fitsio.Card{Key: d.Name, Value: encodeArrayCard("F", elems), Comment: d.Comment}
	case specred.DescDoubleArray:
		arr, _ := d.DoubleArray()
		elems := make([]string, len(arr))
		for i, v := range arr {
			elems[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		return fitsio.Card{Key: d.Name, Value: encodeArrayCard("D", elems), Comment: d.Comment}
	default:
		v, _ := d.String()
		return fitsio.Card{Key: d.Name, Value: v, Comment: d.Comment}
	}
}

func cardToDescriptor(c fitsio.Card) specred.Descriptor {
	if s, ok := c.Value.(string); ok && strings.HasPrefix(s, arrayCardPrefix) {
		if d, ok := decodeArrayCard(c.Key, s, c.Comment); ok {
			return d
		}
	}
	switch v := c.Value.(type) {
	case bool:
		return specred.NewBool(c.Key, v, c.Comment)
	case int:
		return specred.NewInt(c.Key, int32(v), c.Comment)
	case float64:
		return specred.NewDouble(c.Key, v, c.Comment)
	case string:
		return specred.NewString(c.Key, v, c.Comment)
	default:
		return specred.NewString(c.Key, fmt.Sprintf("%v", v), c.Comment)
	}
}

func decodeArrayCard(key, s, comment string) (specred.Descriptor, bool) {
	rest := strings.TrimPrefix(s, arrayCardPrefix)
	parts := strings.SplitN(rest, ":", 2)
	if len(parts) != 2 {
		return specred.Descriptor{}, false
	}
	tag, body := parts[0], parts[1]
	var elems []string
	if body != "" {
		elems = strings.Split(body, ",")
	}
	switch tag {
	case "I":
		out := make([]int32, len(elems))
		for i, e := range elems {
			v, err := strconv.ParseInt(e, 10, 32)
			if err != nil {
				return specred.Descriptor{}, false
			}
			out[i] = int32(v)
		}
		return specred.NewIntArray(key, out, comment), true
	case "F":
		out := make([]float32, len(elems))
		for i, e := range elems {
			v, err := strconv.ParseFloat(e, 32)
			if err != nil {
				return specred.Descriptor{}, false
			}
			out[i] = float32(v)
		}
		return specred.NewFloatArray(key, out, comment), true
	case "D":
		out := make([]float64, len(elems))
		for i, e := range elems {
			v, err := strconv.ParseFloat(e, 64)
			if err != nil {
				return specred.Descriptor{}, false
			}
			out[i] = v
		}
		return specred.NewDoubleArray(key, out, comment), true
	default:
		return specred.Descriptor{}, false
	}
}
