// Package nastran implements the bulk data of Nastran input files (.nas,
// .bdf, .fem).
//
// GRID cards become points and element cards become cells; the property
// id of every element is kept as the "nastran:ref" cell data. Cards may
// use free field (comma separated), small field (8 columns) or large
// field (16 columns, name ending in "*") format, with continuation
// lines. Every other card is skipped.
//
// Options:
//   - "point_format", "cell_format": "free", "fixed-small" or
//     "fixed-large" (defaults "fixed-large" and "fixed-small")
package nastran

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/formats/internal/textio"
	"github.com/matzehuels/meshio/pkg/mesh"
)

// Backend is the Nastran backend.
var Backend = &formats.Backend{
	Name: "nastran",
	Extensions: map[string]string{
		".nas": "nastran",
		".bdf": "nastran",
		".fem": "nastran",
	},
	Readers: []string{"nastran"},
	Writers: map[string]formats.Params{"nastran": {}},
	Read:    Read,
	Write:   Write,
}

// RefKey is the cell data holding element property ids.
const RefKey = "nastran:ref"

// Element cards and the cell types they hold, by increasing node count.
var readTypes = map[string][]string{
	"CBAR":   {"line"},
	"CBEAM":  {"line"},
	"CROD":   {"line"},
	"CTRIA3": {"triangle"},
	"CTRIAR": {"triangle"},
	"CTRIA6": {"triangle6"},
	"CQUAD4": {"quad"},
	"CQUADR": {"quad"},
	"CSHEAR": {"quad"},
	"CQUAD8": {"quad8"},
	"CQUAD9": {"quad9"},
	"CTETRA": {"tetra", "tetra10"},
	"CPYRAM": {"pyramid", "pyramid13"},
	"CPYRA":  {"pyramid", "pyramid13"},
	"CPENTA": {"wedge", "wedge15"},
	"CHEXA":  {"hexahedron", "hexahedron20"},
}

var writeTypes = map[string]string{
	"line":         "CROD",
	"triangle":     "CTRIA3",
	"triangle6":    "CTRIA6",
	"quad":         "CQUAD4",
	"quad8":        "CQUAD8",
	"quad9":        "CQUAD9",
	"tetra":        "CTETRA",
	"tetra10":      "CTETRA",
	"pyramid":      "CPYRAM",
	"pyramid13":    "CPYRAM",
	"wedge":        "CPENTA",
	"wedge15":      "CPENTA",
	"hexahedron":   "CHEXA",
	"hexahedron20": "CHEXA",
}

// Read reads a Nastran bulk data file.
func Read(src formats.Source) (*mesh.Mesh, error) {
	return textio.ReadSource(src, Decode)
}

// card is one logical card with its continuation lines merged.
type card struct {
	name   string
	fields []string
	line   int
}

// splitLine splits a physical line into its leading field and data
// fields. cont reports a continuation line.
func splitLine(line string) (name string, fields []string, cont bool) {
	if strings.Contains(line, ",") {
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		name, fields = parts[0], parts[1:]
		if n := len(fields); n > 0 && isMarker(fields[n-1]) {
			fields = fields[:n-1]
		}
		return name, fields, isContinuation(name)
	}

	name = strings.TrimSpace(column(line, 0, 8))
	width := 8
	if strings.HasSuffix(name, "*") || strings.HasPrefix(name, "*") {
		width = 16
	}
	for start := 8; start < 72; start += width {
		fields = append(fields, strings.TrimSpace(column(line, start, start+width)))
	}
	return name, fields, isContinuation(name)
}

// isMarker reports whether a trailing free field announces a
// continuation rather than holding a signed number.
func isMarker(f string) bool {
	if f == "" || !isContinuation(f) {
		return false
	}
	_, err := ParseFloat(f)
	return err != nil
}

func isContinuation(name string) bool {
	return name == "" || name[0] == '+' || name[0] == '*'
}

// column returns line[start:end], clipped to the line length.
func column(line string, start, end int) string {
	if start >= len(line) {
		return ""
	}
	return line[start:min(end, len(line))]
}

type decoder struct {
	points   [][]float64
	pointIdx map[int]int
	blocks   textio.Blocks
	refs     map[string][]float64
	pending  []elementRef
}

type elementRef struct {
	cellType string
	eid      int
	nodes    []int
	line     int
}

// Decode parses a Nastran stream.
func Decode(r io.Reader) (*mesh.Mesh, error) {
	tr := textio.NewReader(r)
	d := &decoder{pointIdx: map[int]int{}, refs: map[string][]float64{}}
	var cur *card
	flush := func() error {
		if cur == nil {
			return nil
		}
		err := d.apply(cur)
		cur = nil
		return err
	}
	for {
		line, err := tr.Line()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, tr.Wrap(err, "read line")
		}
		if i := strings.IndexByte(line, '$'); i >= 0 {
			line = line[:i]
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		upper := strings.ToUpper(strings.TrimSpace(line))
		if strings.HasPrefix(upper, "BEGIN") {
			cur = nil
			continue
		}
		if upper == "ENDDATA" {
			break
		}
		name, fields, cont := splitLine(line)
		if cont {
			// Indented case control lines have no card to continue.
			if cur != nil {
				cur.fields = append(cur.fields, fields...)
			}
			continue
		}
		if err := flush(); err != nil {
			return nil, err
		}
		cur = &card{name: strings.ToUpper(strings.TrimSuffix(name, "*")), fields: fields, line: tr.LineNo()}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return d.mesh()
}

func (d *decoder) apply(c *card) error {
	if c.name == "GRID" {
		return d.grid(c)
	}
	types, ok := readTypes[c.name]
	if !ok {
		return nil
	}
	if len(c.fields) < 2 {
		return textio.Invalid("nastran: line %d: %s card without nodes", c.line, c.name)
	}
	eid, err := strconv.Atoi(c.fields[0])
	if err != nil {
		return textio.Invalid("nastran: line %d: invalid element id %q", c.line, c.fields[0])
	}
	pid := eid
	if c.fields[1] != "" {
		if pid, err = strconv.Atoi(c.fields[1]); err != nil {
			return textio.Invalid("nastran: line %d: invalid property id %q", c.line, c.fields[1])
		}
	}
	var ids []int
	for _, f := range c.fields[2:] {
		if f == "" {
			continue
		}
		v, err := strconv.Atoi(f)
		if err != nil {
			break // orientation vectors and angles follow the nodes
		}
		ids = append(ids, v)
	}
	cellType := ""
	for _, t := range types {
		if n, _ := mesh.NodesPerCell(t); n <= len(ids) {
			cellType = t
		}
	}
	if cellType == "" {
		return textio.Invalid("nastran: line %d: %s %d has %d nodes", c.line, c.name, eid, len(ids))
	}
	n, _ := mesh.NodesPerCell(cellType)
	d.pending = append(d.pending, elementRef{cellType: cellType, eid: eid, nodes: ids[:n], line: c.line})
	d.refs[cellType] = append(d.refs[cellType], float64(pid))
	return nil
}

func (d *decoder) grid(c *card) error {
	if len(c.fields) < 5 {
		return textio.Invalid("nastran: line %d: GRID card needs an id and 3 coordinates", c.line)
	}
	id, err := strconv.Atoi(c.fields[0])
	if err != nil {
		return textio.Invalid("nastran: line %d: invalid GRID id %q", c.line, c.fields[0])
	}
	if cp := c.fields[1]; cp != "" && cp != "0" {
		return textio.Unsupported("nastran: GRID %d uses coordinate system %s", id, cp)
	}
	p := make([]float64, 3)
	for k := range p {
		s := c.fields[2+k]
		if s == "" {
			continue
		}
		if p[k], err = ParseFloat(s); err != nil {
			return textio.Invalid("nastran: line %d: invalid coordinate %q", c.line, s)
		}
	}
	if _, dup := d.pointIdx[id]; dup {
		return textio.Invalid("nastran: line %d: duplicate GRID %d", c.line, id)
	}
	d.pointIdx[id] = len(d.points)
	d.points = append(d.points, p)
	return nil
}

// mesh resolves node ids once all GRID cards are known; bulk data cards
// may come in any order.
func (d *decoder) mesh() (*mesh.Mesh, error) {
	for _, e := range d.pending {
		row := make([]int, len(e.nodes))
		for i, id := range e.nodes {
			idx, ok := d.pointIdx[id]
			if !ok {
				return nil, textio.Invalid("nastran: line %d: element %d references unknown GRID %d", e.line, e.eid, id)
			}
			row[i] = idx
		}
		d.blocks.Add(e.cellType, row)
	}
	cells := d.blocks.Cells()
	var opts []mesh.Option
	if len(cells) > 0 {
		refs := make([][][]float64, len(cells))
		for i, b := range cells {
			refs[i] = make([][]float64, b.Len())
			for j, v := range d.refs[b.Type] {
				refs[i][j] = []float64{v}
			}
		}
		opts = append(opts, mesh.WithCellData(map[string][][][]float64{RefKey: refs}))
	}
	return mesh.New(d.points, cells, opts...)
}

// ParseFloat parses a Nastran real, accepting the implicit exponent form
// "1.5-3" next to regular notation.
func ParseFloat(s string) (float64, error) {
	v, err := textio.ParseFloat(s)
	if err == nil {
		return v, nil
	}
	for i := len(s) - 1; i > 0; i-- {
		if (s[i] == '+' || s[i] == '-') && !strings.ContainsRune("eEdD", rune(s[i-1])) {
			return textio.ParseFloat(s[:i] + "e" + s[i:])
		}
	}
	return 0, err
}

// Write writes m as Nastran bulk data.
func Write(dst formats.Destination, m *mesh.Mesh, _ formats.Params, opts formats.Options) error {
	pf := opts.String("point_format", "fixed-large")
	cf := opts.String("cell_format", "fixed-small")
	for _, f := range []string{pf, cf} {
		if _, ok := fieldWidths[f]; !ok {
			return textio.Unsupported("nastran field format %q is not supported", f)
		}
	}
	return textio.WriteDestination(dst, func(w io.Writer) error {
		return Encode(w, m, pf, cf)
	})
}

// fieldWidths maps field formats to their column width; 0 is free field.
var fieldWidths = map[string]int{
	"free":        0,
	"fixed-small": 8,
	"fixed-large": 16,
}

// Encode writes m to w, GRID cards in pointFormat and element cards in
// cellFormat. Ids start at 1; element ids run across blocks.
func Encode(w io.Writer, m *mesh.Mesh, pointFormat, cellFormat string) error {
	for _, b := range m.Cells {
		if _, ok := writeTypes[b.Type]; !ok {
			return textio.Unsupported("nastran cannot store %s cells", b.Type)
		}
	}
	pw, ok := fieldWidths[pointFormat]
	if !ok {
		return textio.Unsupported("nastran field format %q is not supported", pointFormat)
	}
	cw, ok := fieldWidths[cellFormat]
	if !ok {
		return textio.Unsupported("nastran field format %q is not supported", cellFormat)
	}

	tw := textio.NewWriter(w)
	tw.Line("$ Nastran file written by meshio")
	tw.Line("BEGIN BULK")
	for i, p := range m.Points3D() {
		writeCard(tw, pw, "GRID", []string{
			strconv.Itoa(i + 1), "",
			FormatFloat(p[0], pw), FormatFloat(p[1], pw), FormatFloat(p[2], pw),
		})
	}
	refs := m.CellData[RefKey]
	eid := 1
	for bi, b := range m.Cells {
		for ci, row := range b.Data {
			pid := 1
			if refs != nil && len(refs[bi][ci]) > 0 {
				pid = int(refs[bi][ci][0])
			}
			fields := []string{strconv.Itoa(eid), strconv.Itoa(pid)}
			for _, v := range row {
				fields = append(fields, strconv.Itoa(v+1))
			}
			writeCard(tw, cw, writeTypes[b.Type], fields)
			eid++
		}
	}
	tw.Line("ENDDATA")
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write nastran: %w", err)
	}
	return nil
}

// writeCard writes a card with as many continuation lines as its fields
// need. width is the column width, 0 for free field.
func writeCard(tw *textio.Writer, width int, name string, fields []string) {
	perLine := 8
	if width == 16 {
		perLine = 4
		name += "*"
	}
	var b strings.Builder
	for start := 0; start < len(fields) || start == 0; start += perLine {
		chunk := fields[start:min(start+perLine, len(fields))]
		more := start+perLine < len(fields)
		b.Reset()
		marker := "+"
		if width == 16 {
			marker = "*"
		}
		lead := name
		if start > 0 {
			lead = marker
		}
		if width == 0 {
			b.WriteString(lead)
			for _, f := range chunk {
				b.WriteString("," + f)
			}
			if more {
				b.WriteString("," + marker)
			}
		} else {
			fmt.Fprintf(&b, "%-8s", lead)
			for _, f := range chunk {
				fmt.Fprintf(&b, "%*s", width, f)
			}
			if more {
				b.WriteString(marker)
			}
		}
		tw.Line(strings.TrimRight(b.String(), " "))
	}
}

// FormatFloat formats v as a Nastran real of at most width characters
// (0 for no limit). Reals always carry a decimal point; exponents use
// the compact "1.5-3" form when space is short.
func FormatFloat(v float64, width int) string {
	s := withPoint(strings.ToUpper(textio.FormatFloat(v)))
	if width == 0 || len(s) <= width {
		return s
	}
	for prec := width; prec > 0; prec-- {
		s = compact(withPoint(strconv.FormatFloat(v, 'G', prec, 64)))
		if len(s) <= width {
			return s
		}
	}
	return s
}

// withPoint inserts the decimal point Nastran requires in reals.
func withPoint(s string) string {
	mant, exp, hasExp := strings.Cut(s, "E")
	if !strings.Contains(mant, ".") {
		mant += "."
	}
	if hasExp {
		return mant + "E" + exp
	}
	return mant
}

// compact turns "1.5E-05" into "1.5-5".
func compact(s string) string {
	mant, exp, ok := strings.Cut(s, "E")
	if !ok {
		return s
	}
	sign := "+"
	if exp != "" && (exp[0] == '+' || exp[0] == '-') {
		sign, exp = exp[:1], exp[1:]
	}
	exp = strings.TrimLeft(exp, "0")
	if exp == "" {
		return mant
	}
	return mant + sign + exp
}
