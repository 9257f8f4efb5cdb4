// Package wkt implements surface meshes as Well-Known Text geometries.
//
// TIN, TRIANGLE, POLYGON and MULTIPOLYGON geometries are read; each
// polygon's exterior ring becomes one cell and points are deduplicated by
// coordinates. Meshes of triangles are written as a TIN, anything else
// as a MULTIPOLYGON.
package wkt

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/formats/internal/textio"
	"github.com/matzehuels/meshio/pkg/mesh"
)

// Backend is the WKT backend.
var Backend = &formats.Backend{
	Name:       "wkt",
	Extensions: map[string]string{".wkt": "wkt"},
	Readers:    []string{"wkt"},
	Writers:    map[string]formats.Params{"wkt": {}},
	Read:       Read,
	Write:      Write,
}

// Read reads a WKT file.
func Read(src formats.Source) (*mesh.Mesh, error) {
	return textio.ReadSource(src, Decode)
}

type lexer struct {
	toks []string
	pos  int
}

func lex(s string) *lexer {
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for _, c := range s {
		switch {
		case c == '(' || c == ')' || c == ',':
			flush()
			toks = append(toks, string(c))
		case unicode.IsSpace(c):
			flush()
		default:
			cur.WriteRune(c)
		}
	}
	flush()
	return &lexer{toks: toks}
}

func (l *lexer) peek() string {
	if l.pos < len(l.toks) {
		return l.toks[l.pos]
	}
	return ""
}

func (l *lexer) next() string {
	t := l.peek()
	if l.pos < len(l.toks) {
		l.pos++
	}
	return t
}

func (l *lexer) expect(want string) error {
	if got := l.next(); got != want {
		return textio.Invalid("wkt: expected %q, got %q", want, got)
	}
	return nil
}

// list parses "( item, item, ... )".
func (l *lexer) list(item func() error) error {
	if err := l.expect("("); err != nil {
		return err
	}
	for {
		if err := item(); err != nil {
			return err
		}
		switch t := l.next(); t {
		case ",":
		case ")":
			return nil
		default:
			return textio.Invalid("wkt: expected \",\" or \")\", got %q", t)
		}
	}
}

type decoder struct {
	lx     *lexer
	points [][]float64
	index  map[string]int
	blocks textio.Blocks
}

// Decode parses a WKT stream holding one geometry.
func Decode(r io.Reader) (*mesh.Mesh, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	d := &decoder{lx: lex(string(raw)), index: map[string]int{}}
	kind := strings.ToUpper(d.lx.next())
	// Dimension markers.
	if m := strings.ToUpper(d.lx.peek()); m == "Z" || m == "M" || m == "ZM" {
		d.lx.next()
	}
	if strings.EqualFold(d.lx.peek(), "EMPTY") {
		d.lx.next()
	} else {
		switch kind {
		case "TRIANGLE", "POLYGON":
			err = d.polygon()
		case "TIN", "MULTIPOLYGON", "POLYHEDRALSURFACE":
			err = d.lx.list(d.polygon)
		case "":
			err = textio.Invalid("wkt: empty input")
		default:
			err = textio.Unsupported("wkt: geometry %s is not supported", kind)
		}
		if err != nil {
			return nil, err
		}
	}
	if t := d.lx.peek(); t != "" {
		return nil, textio.Invalid("wkt: unexpected %q after geometry", t)
	}
	return mesh.New(d.points, d.blocks.Cells())
}

// polygon parses "((ring), (hole)...)". Holes are not representable.
func (d *decoder) polygon() error {
	rings := 0
	return d.lx.list(func() error {
		rings++
		if rings > 1 {
			return textio.Unsupported("wkt: polygons with holes are not supported")
		}
		var ring []int
		if err := d.lx.list(func() error {
			idx, err := d.point()
			ring = append(ring, idx)
			return err
		}); err != nil {
			return err
		}
		if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
			ring = ring[:len(ring)-1]
		}
		if len(ring) < 3 {
			return textio.Invalid("wkt: ring with %d distinct corners", len(ring))
		}
		d.blocks.Add(polygonType(len(ring)), ring)
		return nil
	})
}

// point parses whitespace-separated coordinates and returns the point's
// index, adding it on first sight.
func (d *decoder) point() (int, error) {
	var p []float64
	for {
		t := d.lx.peek()
		if t == "," || t == ")" || t == "(" || t == "" {
			break
		}
		d.lx.next()
		v, err := textio.ParseFloat(t)
		if err != nil {
			return 0, textio.Invalid("wkt: invalid coordinate %q", t)
		}
		p = append(p, v)
	}
	if len(p) < 2 {
		return 0, textio.Invalid("wkt: point with %d coordinates", len(p))
	}
	if len(d.points) > 0 && len(p) != len(d.points[0]) {
		return 0, textio.Invalid("wkt: mixed %dD and %dD points", len(d.points[0]), len(p))
	}
	key := fmt.Sprint(p)
	if idx, ok := d.index[key]; ok {
		return idx, nil
	}
	d.index[key] = len(d.points)
	d.points = append(d.points, p)
	return len(d.points) - 1, nil
}

func polygonType(n int) string {
	switch n {
	case 3:
		return "triangle"
	case 4:
		return "quad"
	}
	return fmt.Sprintf("polygon%d", n)
}

// Write writes m as WKT.
func Write(dst formats.Destination, m *mesh.Mesh, _ formats.Params, _ formats.Options) error {
	return textio.WriteDestination(dst, func(w io.Writer) error {
		return Encode(w, m)
	})
}

// Encode writes m to w. Only polygonal cells can be stored.
func Encode(w io.Writer, m *mesh.Mesh) error {
	kind := "TIN"
	for _, b := range m.Cells {
		if b.Type != "triangle" && b.Type != "quad" && !strings.HasPrefix(b.Type, "polygon") {
			return textio.Unsupported("wkt cannot store %s cells", b.Type)
		}
		if b.Type != "triangle" {
			kind = "MULTIPOLYGON"
		}
	}
	if len(m.Points) > 0 && m.Dim() != 2 && m.Dim() != 3 {
		return textio.Unsupported("wkt cannot store %dD points", m.Dim())
	}
	var sb strings.Builder
	sb.WriteString(kind)
	if m.Dim() == 3 {
		sb.WriteString(" Z")
	}
	if m.NumCells() == 0 {
		sb.WriteString(" EMPTY\n")
	} else {
		sb.WriteString(" (")
		first := true
		for _, b := range m.Cells {
			for _, row := range b.Data {
				if !first {
					sb.WriteString(", ")
				}
				first = false
				sb.WriteString("((")
				// Rings repeat their first corner.
				for k := 0; k <= len(row); k++ {
					if k > 0 {
						sb.WriteString(", ")
					}
					for c, v := range m.Points[row[k%len(row)]] {
						if c > 0 {
							sb.WriteByte(' ')
						}
						sb.WriteString(textio.FormatFloat(v))
					}
				}
				sb.WriteString("))")
			}
		}
		sb.WriteString(")\n")
	}
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("write wkt: %w", err)
	}
	return nil
}
