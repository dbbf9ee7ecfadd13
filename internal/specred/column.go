package specred

import "github.com/eso-vlt/vimos-specred/internal/specred/kind"

// ColType is the closed set of column element types.
type ColType int

const (
	ColInt ColType = iota
	ColFloat
	ColDouble
	ColChar
	ColString
)

// Column is a named homogeneous vector of fixed length, of one scalar
// type. String columns own their elements; numeric columns own a
// contiguous buffer.
type Column struct {
	Name string
	Type ColType

	ints     []int32
	floats   []float32
	doubles  []float64
	chars    []byte
	strs     []string
}

// NewIntColumn allocates a column of n zeroed int32 values.
func NewIntColumn(name string, n int) *Column {
	return &Column{Name: name, Type: ColInt, ints: make([]int32, n)}
}

// NewFloatColumn allocates a column of n zeroed float32 values.
func NewFloatColumn(name string, n int) *Column {
	return &Column{Name: name, Type: ColFloat, floats: make([]float32, n)}
}

// NewDoubleColumn allocates a column of n zeroed float64 values.
func NewDoubleColumn(name string, n int) *Column {
	return &Column{Name: name, Type: ColDouble, doubles: make([]float64, n)}
}

// NewCharColumn allocates a column of n zeroed single-byte values.
func NewCharColumn(name string, n int) *Column {
	return &Column{Name: name, Type: ColChar, chars: make([]byte, n)}
}

// NewStringColumn allocates a column of n empty strings.
func NewStringColumn(name string, n int) *Column {
	return &Column{Name: name, Type: ColString, strs: make([]string, n)}
}

// Len returns the number of rows in the column.
func (c *Column) Len() int {
	switch c.Type {
	case ColInt:
		return len(c.ints)
	case ColFloat:
		return len(c.floats)
	case ColDouble:
		return len(c.doubles)
	case ColChar:
		return len(c.chars)
	case ColString:
		return len(c.strs)
	}
	return 0
}

func (c *Column) checkRow(row int) error {
	if row < 0 || row >= c.Len() {
		return kind.New(kind.OutOfRange, "column %q: row %d out of range [0,%d)", c.Name, row, c.Len())
	}
	return nil
}

func (c *Column) GetInt(row int) (int32, error) {
	if c.Type != ColInt {
		return 0, kind.New(kind.InvalidType, "column %q is not int", c.Name)
	}
	if err := c.checkRow(row); err != nil {
		return 0, err
	}
	return c.ints[row], nil
}

func (c *Column) SetInt(row int, v int32) error {
	if c.Type != ColInt {
		return kind.New(kind.InvalidType, "column %q is not int", c.Name)
	}
	if err := c.checkRow(row); err != nil {
		return err
	}
	c.ints[row] = v
	return nil
}

func (c *Column) GetFloat(row int) (float32, error) {
	if c.Type != ColFloat {
		return 0, kind.New(kind.InvalidType, "column %q is not float", c.Name)
	}
	if err := c.checkRow(row); err != nil {
		return 0, err
	}
	return c.floats[row], nil
}

func (c *Column) SetFloat(row int, v float32) error {
	if c.Type != ColFloat {
		return kind.New(kind.InvalidType, "column %q is not float", c.Name)
	}
	if err := c.checkRow(row); err != nil {
		return err
	}
	c.floats[row] = v
	return nil
}

func (c *Column) GetDouble(row int) (float64, error) {
	if c.Type != ColDouble {
		return 0, kind.New(kind.InvalidType, "column %q is not double", c.Name)
	}
	if err := c.checkRow(row); err != nil {
		return 0, err
	}
	return c.doubles[row], nil
}

func (c *Column) SetDouble(row int, v float64) error {
	if c.Type != ColDouble {
		return kind.New(kind.InvalidType, "column %q is not double", c.Name)
	}
	if err := c.checkRow(row); err != nil {
		return err
	}
	c.doubles[row] = v
	return nil
}

func (c *Column) GetString(row int) (string, error) {
	if c.Type != ColString {
		return "", kind.New(kind.InvalidType, "column %q is not string", c.Name)
	}
	if err := c.checkRow(row); err != nil {
		return "", err
	}
	return c.strs[row], nil
}

// SetString writes v by row. Setting a string value owns the stored copy
// (Go strings are already immutable, so the copy is implicit).
func (c *Column) SetString(row int, v string) error {
	if c.Type != ColString {
		return kind.New(kind.InvalidType, "column %q is not string", c.Name)
	}
	if err := c.checkRow(row); err != nil {
		return err
	}
	c.strs[row] = v
	return nil
}

// Doubles returns the underlying float64 slice for bulk access (e.g. by
// the polynomial fitter or image statistics). Returns nil for non-double
// columns.
func (c *Column) Doubles() []float64 {
	if c.Type != ColDouble {
		return nil
	}
	return c.doubles
}

// ColumnList is a named, ordered, equal-length sequence of columns.
type ColumnList struct {
	items []*Column
	index map[string]int
}

// NewColumnList returns an empty column list.
func NewColumnList() *ColumnList {
	return &ColumnList{index: make(map[string]int)}
}

// Len returns the number of columns.
func (l *ColumnList) Len() int { return len(l.items) }

// NRows returns the row count shared by all columns, or 0 if empty.
func (l *ColumnList) NRows() int {
	if len(l.items) == 0 {
		return 0
	}
	return l.items[0].Len()
}

// Names returns column names in insertion order.
func (l *ColumnList) Names() []string {
	out := make([]string, len(l.items))
	for i, c := range l.items {
		out[i] = c.Name
	}
	return out
}

// At returns the column at position i in insertion order.
func (l *ColumnList) At(i int) (*Column, error) {
	if i < 0 || i >= len(l.items) {
		return nil, kind.New(kind.OutOfRange, "column index %d out of range [0,%d)", i, len(l.items))
	}
	return l.items[i], nil
}

// Get returns the column with the given name.
func (l *ColumnList) Get(name string) (*Column, error) {
	i, ok := l.index[name]
	if !ok {
		return nil, kind.New(kind.DataNotFound, "column %q not found", name)
	}
	return l.items[i], nil
}

// Append adds c to the table, enforcing the column-length invariant
// against any columns already present.
func (l *ColumnList) Append(c *Column) error {
	if _, ok := l.index[c.Name]; ok {
		return kind.New(kind.IllegalInput, "column %q already exists", c.Name)
	}
	if len(l.items) > 0 && c.Len() != l.items[0].Len() {
		return kind.New(kind.Incompatible, "column %q has length %d, table has length %d", c.Name, c.Len(), l.items[0].Len())
	}
	l.index[c.Name] = len(l.items)
	l.items = append(l.items, c)
	return nil
}

// Remove deletes the named column. It is a no-op if absent.
func (l *ColumnList) Remove(name string) {
	i, ok := l.index[name]
	if !ok {
		return
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	delete(l.index, name)
	for j := i; j < len(l.items); j++ {
		l.index[l.items[j].Name] = j
	}
}
