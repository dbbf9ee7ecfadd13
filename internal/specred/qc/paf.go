package qc

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/eso-vlt/vimos-specred/internal/specred/kind"
)

// ParamType is the closed set of value types a PAF parameter can hold.
type ParamType int

const (
	ParamInt ParamType = iota
	ParamDouble
	ParamString
)

// valueColumn is the zero-based column at which every parameter's value
// is right-aligned to start, matching the pipeline ASCII parameter
// file's fixed layout.
const valueColumn = 29

// Param is one typed key/value pair destined for a PAF.
type Param struct {
	Key     string
	Type    ParamType
	Int     int64
	Double  float64
	String  string
	Comment string
}

// NewIntParam constructs an integer parameter.
func NewIntParam(key string, v int64, comment string) Param {
	return Param{Key: key, Type: ParamInt, Int: v, Comment: comment}
}

// NewDoubleParam constructs a double parameter.
func NewDoubleParam(key string, v float64, comment string) Param {
	return Param{Key: key, Type: ParamDouble, Double: v, Comment: comment}
}

// NewStringParam constructs a string parameter.
func NewStringParam(key string, v string, comment string) Param {
	return Param{Key: key, Type: ParamString, String: v, Comment: comment}
}

// PAF is an ordered, append-only sequence of Params destined for a
// pipeline ASCII parameter file.
type PAF struct {
	Params []Param
}

// NewPAF returns an empty PAF.
func NewPAF() *PAF { return &PAF{} }

// Add appends p.
func (p *PAF) Add(param Param) { p.Params = append(p.Params, param) }

// AddInt, AddDouble, and AddString are Add shorthands for each value type.
func (p *PAF) AddInt(key string, v int64, comment string) {
	p.Add(NewIntParam(key, v, comment))
}
func (p *PAF) AddDouble(key string, v float64, comment string) {
	p.Add(NewDoubleParam(key, v, comment))
}
func (p *PAF) AddString(key string, v string, comment string) {
	p.Add(NewStringParam(key, v, comment))
}

// formatValue renders a parameter's value the way the pipeline ASCII
// parameter file expects it: quoted strings, plain decimal integers,
// and a precision-preserving scientific-notation double (14 digits after
// the decimal point, matching the FITS card writer's own float formatting).
func formatValue(p Param) string {
	switch p.Type {
	case ParamInt:
		return strconv.FormatInt(p.Int, 10)
	case ParamDouble:
		return strconv.FormatFloat(p.Double, 'E', 14, 64)
	case ParamString:
		return `"` + p.String + `"`
	default:
		return ""
	}
}

// formatLine renders one key/value pair with the value right-aligned
// starting at valueColumn, followed by an optional trailing comment.
func formatLine(p Param) string {
	var b strings.Builder
	b.WriteString(p.Key)
	if pad := valueColumn - len(p.Key); pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	} else {
		b.WriteString(" ")
	}
	b.WriteString(formatValue(p))
	b.WriteString(";")
	if p.Comment != "" {
		b.WriteString("  # ")
		b.WriteString(p.Comment)
	}
	return b.String()
}

// WriteTo serialises the PAF to w, one parameter per line.
func (p *PAF) WriteTo(w io.Writer) error {
	for _, param := range p.Params {
		if _, err := fmt.Fprintln(w, formatLine(param)); err != nil {
			return kind.Wrap(kind.FileIO, err, "writing PAF parameter %q", param.Key)
		}
	}
	return nil
}

// Get returns the named parameter, or ok=false.
func (p *PAF) Get(key string) (Param, bool) {
	for _, param := range p.Params {
		if param.Key == key {
			return param, true
		}
	}
	return Param{}, false
}

// Group is a scoped handle onto a PAF, modelling pilQcGroupStart /
// pilQcGroupEnd as an explicit builder rather than a process-wide
// singleton: every Add* call after End returns an error instead of
// silently reopening the buffer.
type Group struct {
	paf    *PAF
	closed bool
}

// Start opens a new scoped group appending to p.
func (p *PAF) Start() *Group { return &Group{paf: p} }

func (g *Group) add(param Param) error {
	if g.closed {
		return kind.New(kind.IllegalInput, "QC group %q already ended", param.Key)
	}
	g.paf.Add(param)
	return nil
}

// AddInt, AddDouble, and AddString append to the group's PAF while open.
func (g *Group) AddInt(key string, v int64, comment string) error {
	return g.add(NewIntParam(key, v, comment))
}
func (g *Group) AddDouble(key string, v float64, comment string) error {
	return g.add(NewDoubleParam(key, v, comment))
}
func (g *Group) AddString(key string, v string, comment string) error {
	return g.add(NewStringParam(key, v, comment))
}

// End closes the group; further Add* calls fail.
func (g *Group) End() { g.closed = true }
