// Package specred holds the shared L0 primitives of the data-reduction
// engine: the descriptor store, the column store, and the keyword-alias
// translator that every higher layer (table kernel, image carrier,
// calibration tables) builds on.
package specred

import (
	"regexp"

	"github.com/eso-vlt/vimos-specred/internal/specred/kind"
)

// DescType is the closed set of descriptor value types.
type DescType int

const (
	DescBool DescType = iota
	DescInt
	DescFloat
	DescDouble
	DescString
	DescIntArray
	DescFloatArray
	DescDoubleArray
)

// Descriptor is a named typed value with an optional comment. Descriptors
// form an ordered sequence within a header; names are unique within that
// sequence and order is preserved across a write/read round trip.
type Descriptor struct {
	Name    string
	Type    DescType
	Comment string

	boolVal    bool
	intVal     int32
	floatVal   float32
	doubleVal  float64
	stringVal  string
	intArray   []int32
	floatArray []float32
	doubleArr  []float64
}

func newScalar(name string, t DescType, comment string) Descriptor {
	return Descriptor{Name: name, Type: t, Comment: comment}
}

// NewBool constructs a boolean descriptor.
func NewBool(name string, v bool, comment string) Descriptor {
	d := newScalar(name, DescBool, comment)
	d.boolVal = v
	return d
}

// NewInt constructs a 32-bit integer descriptor.
func NewInt(name string, v int32, comment string) Descriptor {
	d := newScalar(name, DescInt, comment)
	d.intVal = v
	return d
}

// NewFloat constructs a 32-bit float descriptor.
func NewFloat(name string, v float32, comment string) Descriptor {
	d := newScalar(name, DescFloat, comment)
	d.floatVal = v
	return d
}

// NewDouble constructs a 64-bit double descriptor.
func NewDouble(name string, v float64, comment string) Descriptor {
	d := newScalar(name, DescDouble, comment)
	d.doubleVal = v
	return d
}

// NewString constructs a UTF-8 text descriptor.
func NewString(name string, v string, comment string) Descriptor {
	d := newScalar(name, DescString, comment)
	d.stringVal = v
	return d
}

// NewIntArray constructs a fixed-length int array descriptor.
func NewIntArray(name string, v []int32, comment string) Descriptor {
	d := newScalar(name, DescIntArray, comment)
	d.intArray = append([]int32(nil), v...)
	return d
}

// NewFloatArray constructs a fixed-length float32 array descriptor.
func NewFloatArray(name string, v []float32, comment string) Descriptor {
	d := newScalar(name, DescFloatArray, comment)
	d.floatArray = append([]float32(nil), v...)
	return d
}

// NewDoubleArray constructs a fixed-length float64 array descriptor.
func NewDoubleArray(name string, v []float64, comment string) Descriptor {
	d := newScalar(name, DescDoubleArray, comment)
	d.doubleArr = append([]float64(nil), v...)
	return d
}

func typeMismatch(name string, want, got DescType) error {
	return kind.New(kind.InvalidType, "descriptor %q: expected type %d, got %d", name, want, got)
}

func (d *Descriptor) Bool() (bool, error) {
	if d.Type != DescBool {
		return false, typeMismatch(d.Name, DescBool, d.Type)
	}
	return d.boolVal, nil
}

func (d *Descriptor) Int() (int32, error) {
	if d.Type != DescInt {
		return 0, typeMismatch(d.Name, DescInt, d.Type)
	}
	return d.intVal, nil
}

func (d *Descriptor) Float() (float32, error) {
	if d.Type != DescFloat {
		return 0, typeMismatch(d.Name, DescFloat, d.Type)
	}
	return d.floatVal, nil
}

func (d *Descriptor) Double() (float64, error) {
	if d.Type != DescDouble {
		return 0, typeMismatch(d.Name, DescDouble, d.Type)
	}
	return d.doubleVal, nil
}

func (d *Descriptor) String() (string, error) {
	if d.Type != DescString {
		return "", typeMismatch(d.Name, DescString, d.Type)
	}
	return d.stringVal, nil
}

func (d *Descriptor) IntArray() ([]int32, error) {
	if d.Type != DescIntArray {
		return nil, typeMismatch(d.Name, DescIntArray, d.Type)
	}
	return append([]int32(nil), d.intArray...), nil
}

func (d *Descriptor) FloatArray() ([]float32, error) {
	if d.Type != DescFloatArray {
		return nil, typeMismatch(d.Name, DescFloatArray, d.Type)
	}
	return append([]float32(nil), d.floatArray...), nil
}

func (d *Descriptor) DoubleArray() ([]float64, error) {
	if d.Type != DescDoubleArray {
		return nil, typeMismatch(d.Name, DescDoubleArray, d.Type)
	}
	return append([]float64(nil), d.doubleArr...), nil
}

// DescriptorList is an ordered, name-unique sequence of descriptors.
// Insertion order is preserved; lookups are by name.
type DescriptorList struct {
	items []Descriptor
	index map[string]int
}

// NewDescriptorList returns an empty descriptor list.
func NewDescriptorList() *DescriptorList {
	return &DescriptorList{index: make(map[string]int)}
}

// Len returns the number of descriptors in the list.
func (l *DescriptorList) Len() int { return len(l.items) }

// At returns the descriptor at position i in insertion order.
func (l *DescriptorList) At(i int) (*Descriptor, error) {
	if i < 0 || i >= len(l.items) {
		return nil, kind.New(kind.OutOfRange, "descriptor index %d out of range [0,%d)", i, len(l.items))
	}
	return &l.items[i], nil
}

// Names returns descriptor names in insertion order.
func (l *DescriptorList) Names() []string {
	out := make([]string, len(l.items))
	for i, d := range l.items {
		out[i] = d.Name
	}
	return out
}

// Get returns the descriptor with the given name, failing DataNotFound if
// absent.
func (l *DescriptorList) Get(name string) (*Descriptor, error) {
	i, ok := l.index[name]
	if !ok {
		return nil, kind.New(kind.DataNotFound, "descriptor %q not found", name)
	}
	return &l.items[i], nil
}

// Has reports whether a descriptor with the given name exists.
func (l *DescriptorList) Has(name string) bool {
	_, ok := l.index[name]
	return ok
}

// Append adds d to the end of the list. It fails IllegalInput if a
// descriptor with the same name already exists (use Put to overwrite).
func (l *DescriptorList) Append(d Descriptor) error {
	if _, ok := l.index[d.Name]; ok {
		return kind.New(kind.IllegalInput, "descriptor %q already exists", d.Name)
	}
	l.index[d.Name] = len(l.items)
	l.items = append(l.items, d)
	return nil
}

// Put writes d by name, overwriting an existing descriptor of the same
// name in place (preserving its position) or appending if absent.
func (l *DescriptorList) Put(d Descriptor) {
	if i, ok := l.index[d.Name]; ok {
		l.items[i] = d
		return
	}
	l.index[d.Name] = len(l.items)
	l.items = append(l.items, d)
}

// InsertBefore inserts d immediately before the descriptor named ref. If
// ref is absent, d is appended.
func (l *DescriptorList) InsertBefore(ref string, d Descriptor) error {
	return l.insertAt(ref, d, 0)
}

// InsertAfter inserts d immediately after the descriptor named ref. If ref
// is absent, d is appended.
func (l *DescriptorList) InsertAfter(ref string, d Descriptor) error {
	return l.insertAt(ref, d, 1)
}

func (l *DescriptorList) insertAt(ref string, d Descriptor, offset int) error {
	if _, ok := l.index[d.Name]; ok {
		return kind.New(kind.IllegalInput, "descriptor %q already exists", d.Name)
	}
	pos := len(l.items)
	if i, ok := l.index[ref]; ok {
		pos = i + offset
	}
	l.items = append(l.items, Descriptor{})
	copy(l.items[pos+1:], l.items[pos:])
	l.items[pos] = d
	l.reindex()
	return nil
}

func (l *DescriptorList) reindex() {
	for i := range l.items {
		l.index[l.items[i].Name] = i
	}
}

// Delete removes the named descriptor. It is a no-op if absent.
func (l *DescriptorList) Delete(name string) {
	i, ok := l.index[name]
	if !ok {
		return
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	delete(l.index, name)
	l.reindex()
}

// DeleteMatching removes every descriptor whose name matches the given
// regular expression (e.g. "^ESO .*" or "^TFORM.*").
func (l *DescriptorList) DeleteMatching(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return kind.New(kind.IllegalInput, "invalid regex %q: %v", pattern, err)
	}
	kept := l.items[:0:0]
	for _, d := range l.items {
		if !re.MatchString(d.Name) {
			kept = append(kept, d)
		}
	}
	l.items = kept
	l.index = make(map[string]int)
	l.reindex()
	return nil
}

// Copy returns a deep, independent copy of the list, preserving order.
func (l *DescriptorList) Copy() *DescriptorList {
	out := NewDescriptorList()
	for _, d := range l.items {
		out.Append(d) //nolint:errcheck // names are unique by construction
	}
	return out
}

// CopyInto copies all descriptors of l into dst, preserving order,
// overwriting any same-named descriptor already present in dst.
func (l *DescriptorList) CopyInto(dst *DescriptorList) {
	for _, d := range l.items {
		dst.Put(d)
	}
}

// CopySelected copies every descriptor whose name matches pattern into
// dst, preserving order.
func (l *DescriptorList) CopySelected(dst *DescriptorList, pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return kind.New(kind.IllegalInput, "invalid regex %q: %v", pattern, err)
	}
	for _, d := range l.items {
		if re.MatchString(d.Name) {
			dst.Put(d)
		}
	}
	return nil
}
