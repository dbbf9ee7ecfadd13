// Package fitsio is the concrete FITS I/O backend adapter: spec.md treats
// "a library exposing open/close/header/column primitives and MD5
// signatures" as an external collaborator, contract only. This package
// supplies that contract and one real, minimal implementation so the
// table kernel and image carrier can round-trip through actual FITS-shaped
// bytes in tests, grounded in the card/block layout of the FITS 3.0
// standard (80-byte cards, 2880-byte blocks) the way the pack's read-only
// siravan-fits reader models it, extended here with write support.
package fitsio

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/eso-vlt/vimos-specred/internal/fsutil"
	"github.com/eso-vlt/vimos-specred/internal/specred/kind"
)

const (
	cardSize  = 80
	blockSize = 2880
)

// Card is one header keyword/value/comment triple. Value holds one of
// bool, int64, float64, or string.
type Card struct {
	Key     string
	Value   interface{}
	Comment string
}

// ColumnSpec describes one binary-table field: its TTYPE name and TFORM
// repeat-and-code string (e.g. "1J" int32, "1D" float64, "1E" float32,
// "20A" fixed 20-byte string, "1L" logical).
type ColumnSpec struct {
	Name string
	Form string
}

// BinTable is the in-memory representation of one binary-table extension.
type BinTable struct {
	Extname string
	Header  []Card
	Columns []ColumnSpec
	NRows   int
	// Data holds one entry per column name; the concrete slice type
	// matches the column's TFORM code ([]int32, []float64, []float32,
	// []string, or []bool).
	Data map[string][]any
}

// Image is the in-memory representation of the primary HDU: a 2-D (or
// N-D) float64 pixel buffer with its header.
type Image struct {
	Header []Card
	Naxis  []int
	Data   []float64
}

// File is an open FITS-shaped file: one primary image plus zero or more
// named binary-table extensions, held entirely in memory between
// ReadFile/WriteFile calls (matching the teacher's pattern of a thin
// struct wrapping backing storage, here fsutil.FileSystem instead of
// *sql.DB).
type File struct {
	fs      fsutil.FileSystem
	path    string
	Primary *Image
	exts    map[string]*BinTable
	order   []string
}

// Open reads path through fs and returns the parsed File. A non-existent
// file yields a fresh, empty File (matching the table kernel's need to
// "open for update" a product that may not exist yet).
func Open(fs fsutil.FileSystem, path string) (*File, error) {
	f := &File{fs: fs, path: path, exts: make(map[string]*BinTable)}
	if !fs.Exists(path) {
		return f, nil
	}
	raw, err := fs.ReadFile(path)
	if err != nil {
		return nil, kind.Wrap(kind.FileIO, err, "reading %s", path)
	}
	if err := f.parse(raw); err != nil {
		return nil, err
	}
	return f, nil
}

// Close is a no-op; File holds no OS handle beyond the FileSystem seam.
// Kept so callers can scope acquisition/release symmetrically, matching
// the engine's "every resource has an owning destructor" convention even
// though there is nothing left to release here.
func (f *File) Close() error { return nil }

// Extension returns the named binary-table extension, or ok=false.
func (f *File) Extension(name string) (*BinTable, bool) {
	t, ok := f.exts[strings.ToUpper(name)]
	return t, ok
}

// SetExtension deletes any existing extension of the same name, then
// installs tbl, matching the table-kernel write contract of §4.1: "if
// same-named extension exists, delete it; create a new binary-table
// extension."
func (f *File) SetExtension(tbl *BinTable) {
	key := strings.ToUpper(tbl.Extname)
	if _, ok := f.exts[key]; !ok {
		f.order = append(f.order, key)
	}
	f.exts[key] = tbl
}

// DeleteExtension removes the named extension if present.
func (f *File) DeleteExtension(name string) {
	key := strings.ToUpper(name)
	if _, ok := f.exts[key]; !ok {
		return
	}
	delete(f.exts, key)
	for i, n := range f.order {
		if n == key {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}

// ExtensionNames returns extension names in the order they were
// installed (insertion order, not alphabetical).
func (f *File) ExtensionNames() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// Save serialises the File back to its path via fs.
func (f *File) Save() error {
	buf := f.encode()
	if err := f.fs.WriteFile(f.path, buf, 0o644); err != nil {
		return kind.Wrap(kind.FileIO, err, "writing %s", f.path)
	}
	return nil
}

// MD5Signature returns the hex MD5 digest of data, the pipeline-library
// signature written into product headers as DATAMD5 (§4.8).
func MD5Signature(data []byte) string {
	sum := md5.Sum(data)
	return fmt.Sprintf("%x", sum)
}

// Encode serialises f to its FITS-shaped byte representation without
// writing it to the filesystem, so a caller can compute MD5Signature
// over the exact bytes Save would write before the signature itself is
// stamped into the header (§4.8's DATAMD5).
func (f *File) Encode() []byte {
	return f.encode()
}

// structuralPrefixes name the keywords purged from a table's in-memory header before write
// so the serialiser does not duplicate keywords it derives itself from
// the column sequence (§4.1).
var structuralPrefixes = []string{"NAXIS", "TFIELDS", "TTYPE", "TFORM", "TUNIT", "COUNT"}

// IsStructuralKeyword reports whether key is one of the FITS structural
// keywords the table kernel manages itself (NAXIS*, TFIELDS, TTYPE*,
// TFORM*, TUNIT*, *COUNT) and therefore excludes from the descriptor list
// populated on read, or purges before write.
func IsStructuralKeyword(key string) bool {
	for _, p := range structuralPrefixes {
		if strings.HasPrefix(key, p) || strings.HasSuffix(key, p) {
			return true
		}
	}
	switch key {
	case "SIMPLE", "BITPIX", "XTENSION", "PCOUNT", "GCOUNT", "EXTNAME", "EXTEND", "END":
		return true
	}
	return false
}

// --- encoding ---

func (f *File) encode() []byte {
	var buf bytes.Buffer

	prim := f.Primary
	if prim == nil {
		prim = &Image{Naxis: []int{0, 0}}
	}
	writePrimaryHeader(&buf, prim)
	writeFloat64Data(&buf, prim.Data)

	for _, name := range f.order {
		tbl := f.exts[name]
		writeBinTableHDU(&buf, tbl)
	}
	return buf.Bytes()
}

func writeCard(buf *bytes.Buffer, c Card) {
	line := formatCard(c)
	buf.WriteString(line)
}

// hierarchPrefix marks keywords longer than the FITS 8-character limit,
// following the ESO HIERARCH convention used throughout VLT instrument
// headers ("ESO PRO WLEN START", "ESO INS LAMP1 NAME", and similar).
const hierarchPrefix = "HIERARCH"

func formatCard(c Card) string {
	var valStr string
	switch v := c.Value.(type) {
	case bool:
		if v {
			valStr = "T"
		} else {
			valStr = "F"
		}
	case int:
		valStr = strconv.Itoa(v)
	case int32:
		valStr = strconv.FormatInt(int64(v), 10)
	case int64:
		valStr = strconv.FormatInt(v, 10)
	case float64:
		valStr = strconv.FormatFloat(v, 'E', 14, 64)
	case float32:
		valStr = strconv.FormatFloat(float64(v), 'E', 14, 64)
	case string:
		valStr = "'" + v + "'"
	case nil:
		valStr = ""
	default:
		valStr = fmt.Sprintf("%v", v)
	}

	var line string
	if len(c.Key) > 8 {
		line = fmt.Sprintf("%s %s = %s", hierarchPrefix, c.Key, valStr)
	} else {
		line = fmt.Sprintf("%-8s= %20s", c.Key, valStr)
	}
	if c.Comment != "" {
		line += " / " + c.Comment
	}
	if len(line) > cardSize {
		line = line[:cardSize]
	}
	for len(line) < cardSize {
		line += " "
	}
	return line
}

func padToBlock(buf *bytes.Buffer, start int) {
	n := buf.Len() - start
	rem := n % blockSize
	if rem == 0 {
		return
	}
	buf.Write(bytes.Repeat([]byte{' '}, blockSize-rem))
}

func writePrimaryHeader(buf *bytes.Buffer, img *Image) {
	start := buf.Len()
	writeCard(buf, Card{Key: "SIMPLE", Value: true})
	writeCard(buf, Card{Key: "BITPIX", Value: -64})
	writeCard(buf, Card{Key: "NAXIS", Value: len(img.Naxis)})
	for i, n := range img.Naxis {
		writeCard(buf, Card{Key: fmt.Sprintf("NAXIS%d", i+1), Value: n})
	}
	for _, c := range img.Header {
		if IsStructuralKeyword(c.Key) {
			continue
		}
		writeCard(buf, c)
	}
	writeCard(buf, Card{Key: "END"})
	padHeaderBlock(buf, start)
}

func padHeaderBlock(buf *bytes.Buffer, start int) {
	n := buf.Len() - start
	rem := n % blockSize
	if rem == 0 {
		return
	}
	buf.Write(bytes.Repeat([]byte{' '}, blockSize-rem))
}

func writeFloat64Data(buf *bytes.Buffer, data []float64) {
	start := buf.Len()
	for _, v := range data {
		binary.Write(buf, binary.BigEndian, v) //nolint:errcheck // bytes.Buffer never errors
	}
	if len(data) > 0 {
		padToBlock(buf, start)
	}
}

func writeBinTableHDU(buf *bytes.Buffer, tbl *BinTable) {
	start := buf.Len()
	rowBytes := 0
	for _, col := range tbl.Columns {
		rowBytes += formWidth(col.Form)
	}
	writeCard(buf, Card{Key: "XTENSION", Value: "BINTABLE"})
	writeCard(buf, Card{Key: "BITPIX", Value: 8})
	writeCard(buf, Card{Key: "NAXIS", Value: 2})
	writeCard(buf, Card{Key: "NAXIS1", Value: rowBytes})
	writeCard(buf, Card{Key: "NAXIS2", Value: tbl.NRows})
	writeCard(buf, Card{Key: "PCOUNT", Value: 0})
	writeCard(buf, Card{Key: "GCOUNT", Value: 1})
	writeCard(buf, Card{Key: "TFIELDS", Value: len(tbl.Columns)})
	for i, col := range tbl.Columns {
		writeCard(buf, Card{Key: fmt.Sprintf("TTYPE%d", i+1), Value: col.Name})
		writeCard(buf, Card{Key: fmt.Sprintf("TFORM%d", i+1), Value: col.Form})
	}
	writeCard(buf, Card{Key: "EXTNAME", Value: tbl.Extname})
	for _, c := range tbl.Header {
		if IsStructuralKeyword(c.Key) {
			continue
		}
		writeCard(buf, c)
	}
	writeCard(buf, Card{Key: "END"})
	padHeaderBlock(buf, start)

	dataStart := buf.Len()
	for row := 0; row < tbl.NRows; row++ {
		for _, col := range tbl.Columns {
			writeCell(buf, col, tbl.Data[col.Name], row)
		}
	}
	if tbl.NRows > 0 && len(tbl.Columns) > 0 {
		padToBlock(buf, dataStart)
	}
}

func formWidth(form string) int {
	code := form[len(form)-1]
	n := 1
	if len(form) > 1 {
		if v, err := strconv.Atoi(form[:len(form)-1]); err == nil {
			n = v
		}
	}
	switch code {
	case 'J':
		return 4 * n
	case 'D':
		return 8 * n
	case 'E':
		return 4 * n
	case 'L':
		return 1 * n
	case 'A':
		return n
	default:
		return n
	}
}

func writeCell(buf *bytes.Buffer, col ColumnSpec, data []any, row int) {
	code := col.Form[len(col.Form)-1]
	switch code {
	case 'J':
		v, _ := data[row].(int32)
		binary.Write(buf, binary.BigEndian, v) //nolint:errcheck
	case 'D':
		v, _ := data[row].(float64)
		binary.Write(buf, binary.BigEndian, v) //nolint:errcheck
	case 'E':
		v, _ := data[row].(float32)
		binary.Write(buf, binary.BigEndian, v) //nolint:errcheck
	case 'L':
		v, _ := data[row].(bool)
		if v {
			buf.WriteByte('T')
		} else {
			buf.WriteByte('F')
		}
	case 'A':
		width := formWidth(col.Form)
		s, _ := data[row].(string)
		b := make([]byte, width)
		for i := range b {
			b[i] = ' '
		}
		copy(b, s)
		buf.Write(b)
	}
}

// --- parsing ---

func (f *File) parse(raw []byte) error {
	pos := 0
	// primary header
	hdr, next, err := parseHeader(raw, pos)
	if err != nil {
		return err
	}
	pos = next
	naxis := intCard(hdr, "NAXIS")
	dims := make([]int, 0, naxis)
	total := 1
	for i := 1; i <= naxis; i++ {
		n := intCard(hdr, fmt.Sprintf("NAXIS%d", i))
		dims = append(dims, n)
		total *= n
	}
	data := make([]float64, 0, total)
	if total > 0 {
		nbytes := total * 8
		if pos+nbytes > len(raw) {
			return kind.New(kind.FileIO, "truncated primary data")
		}
		for i := 0; i < total; i++ {
			v := binary.BigEndian.Uint64(raw[pos+i*8 : pos+i*8+8])
			data = append(data, float64frombits(v))
		}
		pos += blockAlign(nbytes)
	}
	f.Primary = &Image{Header: filterNonStructural(hdr), Naxis: dims, Data: data}

	for pos < len(raw) {
		if isAllBlank(raw[pos:min(pos+blockSize, len(raw))]) {
			break
		}
		hdr, next, err := parseHeader(raw, pos)
		if err != nil {
			return err
		}
		pos = next
		nfields := intCard(hdr, "TFIELDS")
		nrows := intCard(hdr, "NAXIS2")
		cols := make([]ColumnSpec, 0, nfields)
		for i := 1; i <= nfields; i++ {
			name := strCard(hdr, fmt.Sprintf("TTYPE%d", i))
			form := strCard(hdr, fmt.Sprintf("TFORM%d", i))
			cols = append(cols, ColumnSpec{Name: name, Form: form})
		}
		rowBytes := 0
		for _, c := range cols {
			rowBytes += formWidth(c.Form)
		}
		data := make(map[string][]any, len(cols))
		for _, c := range cols {
			data[c.Name] = make([]any, nrows)
		}
		for row := 0; row < nrows; row++ {
			base := pos + row*rowBytes
			off := 0
			for _, c := range cols {
				w := formWidth(c.Form)
				data[c.Name][row] = readCell(c, raw[base+off:base+off+w])
				off += w
			}
		}
		pos += blockAlign(rowBytes * nrows)

		extname := strCard(hdr, "EXTNAME")
		tbl := &BinTable{
			Extname: extname,
			Header:  filterNonStructural(hdr),
			Columns: cols,
			NRows:   nrows,
			Data:    data,
		}
		f.SetExtension(tbl)
	}
	return nil
}

func readCell(col ColumnSpec, b []byte) any {
	code := col.Form[len(col.Form)-1]
	switch code {
	case 'J':
		return int32(binary.BigEndian.Uint32(b))
	case 'D':
		return float64frombits(binary.BigEndian.Uint64(b))
	case 'E':
		return float32frombits(binary.BigEndian.Uint32(b))
	case 'L':
		return len(b) > 0 && b[0] == 'T'
	case 'A':
		return strings.TrimRight(string(b), " ")
	default:
		return nil
	}
}

func float64frombits(u uint64) float64 {
	return math.Float64frombits(u)
}
func float32frombits(u uint32) float32 {
	return math.Float32frombits(u)
}

func blockAlign(n int) int {
	rem := n % blockSize
	if rem == 0 {
		return n
	}
	return n + (blockSize - rem)
}

func isAllBlank(b []byte) bool {
	for _, c := range b {
		if c != ' ' && c != 0 {
			return false
		}
	}
	return true
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func parseHeader(raw []byte, pos int) ([]Card, int, error) {
	var cards []Card
	for {
		if pos+cardSize > len(raw) {
			return nil, 0, kind.New(kind.FileIO, "truncated header")
		}
		line := string(raw[pos : pos+cardSize])
		pos += cardSize
		key := strings.TrimSpace(line[:8])
		if key == "END" {
			break
		}
		if key == "" {
			continue
		}

		var rest string
		if key == hierarchPrefix {
			body := strings.TrimSpace(line[8:])
			eq := strings.Index(body, "=")
			if eq < 0 {
				continue
			}
			key = strings.TrimSpace(body[:eq])
			rest = body[eq+1:]
		} else {
			rest = strings.TrimPrefix(line[8:], "=")
		}

		var comment string
		if idx := strings.Index(rest, "/"); idx >= 0 {
			comment = strings.TrimSpace(rest[idx+1:])
			rest = rest[:idx]
		}
		valStr := strings.TrimSpace(rest)
		cards = append(cards, Card{Key: key, Value: parseCardValue(valStr), Comment: comment})
	}
	pos = blockAlignFrom(pos)
	return cards, pos, nil
}

func blockAlignFrom(pos int) int {
	rem := pos % blockSize
	if rem == 0 {
		return pos
	}
	return pos + (blockSize - rem)
}

func parseCardValue(s string) any {
	if strings.HasPrefix(s, "'") && strings.HasSuffix(s, "'") && len(s) >= 2 {
		return strings.TrimSpace(s[1 : len(s)-1])
	}
	if s == "T" {
		return true
	}
	if s == "F" {
		return false
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func intCard(cards []Card, key string) int {
	for _, c := range cards {
		if c.Key == key {
			switch v := c.Value.(type) {
			case int:
				return v
			case float64:
				return int(v)
			}
		}
	}
	return 0
}

func strCard(cards []Card, key string) string {
	for _, c := range cards {
		if c.Key == key {
			if s, ok := c.Value.(string); ok {
				return s
			}
		}
	}
	return ""
}

func filterNonStructural(cards []Card) []Card {
	out := make([]Card, 0, len(cards))
	for _, c := range cards {
		if IsStructuralKeyword(c.Key) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// SortedExtensionNames returns extension names alphabetically, useful for
// deterministic diagnostic listings.
func (f *File) SortedExtensionNames() []string {
	out := f.ExtensionNames()
	sort.Strings(out)
	return out
}
