package ansys

import (
	"encoding/binary"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/formats/internal/textio"
	"github.com/matzehuels/meshio/pkg/mesh"
)

// Read reads a Fluent mesh file. ASCII and binary sections may be mixed.
func Read(src formats.Source) (*mesh.Mesh, error) {
	return textio.ReadSource(src, Decode)
}

type decoder struct {
	tr     *textio.Reader
	dim    int
	points [][]float64
	blocks textio.Blocks
	closed int // closing parentheses seen in the current ASCII body
}

// Decode parses a Fluent mesh stream.
func Decode(r io.Reader) (*mesh.Mesh, error) {
	d := &decoder{tr: textio.NewReader(r), dim: 3}
	for {
		line, err := d.tr.NextLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, d.tr.Wrap(err, "read line")
		}
		if !strings.HasPrefix(line, "(") {
			continue
		}
		index := sectionIndex(line)
		switch index {
		case "2":
			h, err := d.header(line)
			if err != nil {
				return nil, err
			}
			if len(h) < 1 || h[0] < 1 || h[0] > 3 {
				return nil, d.tr.Errorf("invalid dimension section %q", line)
			}
			d.dim = h[0]
		case "10", "2010", "3010":
			err = d.nodes(line, index)
		case "12", "2012", "3012":
			err = d.cells(line, index)
		case "13", "2013", "3013":
			err = d.faces(line, index)
		default:
			err = d.skip(line)
		}
		if err != nil {
			return nil, err
		}
	}

	cells := d.blocks.Cells()
	if err := textio.CheckIndices(cells, len(d.points)); err != nil {
		return nil, err
	}
	return mesh.New(d.points, cells)
}

// sectionIndex returns the leading number of a section line.
func sectionIndex(line string) string {
	s := strings.TrimPrefix(line, "(")
	end := strings.IndexAny(s, " (\t")
	if end < 0 {
		return strings.TrimRight(s, ")")
	}
	return s[:end]
}

// header parses the hex fields of the first nested parenthesis group, or
// of the section itself for flat sections like "(2 3)".
func (d *decoder) header(line string) ([]int, error) {
	s := strings.TrimPrefix(line, "(")
	s = s[len(sectionIndex(line)):]
	if open := strings.Index(s, "("); open >= 0 {
		closeAt := strings.Index(s[open:], ")")
		if closeAt < 0 {
			return nil, d.tr.Errorf("unterminated section header %q", line)
		}
		s = s[open+1 : open+closeAt]
	} else {
		s = strings.TrimRight(strings.TrimSpace(s), ")")
	}
	var out []int
	for _, f := range strings.Fields(s) {
		v, err := strconv.ParseInt(f, 16, 64)
		if err != nil {
			return nil, d.tr.Errorf("invalid header field %q", f)
		}
		out = append(out, int(v))
	}
	return out, nil
}

// balance returns the paren depth of s outside of quoted strings.
func balance(s string) int {
	depth := 0
	quoted := false
	for _, c := range s {
		switch {
		case c == '"':
			quoted = !quoted
		case quoted:
		case c == '(':
			depth++
		case c == ')':
			depth--
		}
	}
	return depth
}

// skip consumes an unhandled section.
func (d *decoder) skip(line string) error {
	depth := balance(line)
	for depth > 0 {
		next, err := d.tr.Line()
		if err != nil {
			return d.tr.Wrap(err, "unterminated section")
		}
		depth += balance(next)
	}
	return nil
}

// hasBody reports whether a section line opens a data body; balanced
// lines are mere declarations.
func hasBody(line string) bool { return balance(line) > 0 }

func (d *decoder) nodes(line, index string) error {
	h, err := d.header(line)
	if err != nil {
		return err
	}
	if !hasBody(line) {
		return nil
	}
	if len(h) < 4 {
		return d.tr.Errorf("invalid node section header %q", line)
	}
	first, last := h[1], h[2]
	nd := d.dim
	if len(h) > 4 {
		nd = h[4]
	}
	if first-1 != len(d.points) || last < first-1 {
		return d.tr.Errorf("node zone %x-%x does not continue at %x", first, last, len(d.points)+1)
	}
	if nd != 2 && nd != 3 {
		return d.tr.Errorf("invalid node dimension %d", nd)
	}
	count := last - first + 1
	if count > math.MaxInt/8/nd {
		return d.tr.Errorf("node zone %x-%x is too large", first, last)
	}
	var vals []float64
	if index == "10" {
		d.closed = 0
		vals = make([]float64, 0, textio.Capacity(count*nd))
		for range count * nd {
			tok, err := d.token()
			if err != nil {
				return err
			}
			v, err := textio.ParseFloat(tok)
			if err != nil {
				return d.tr.Errorf("invalid coordinate %q", tok)
			}
			vals = append(vals, v)
		}
		if err := d.closeASCII(); err != nil {
			return err
		}
	} else {
		size := 4
		if index == "3010" {
			size = 8
		}
		buf, err := textio.ReadBytes(d.tr.Binary(), count*nd, size)
		if err != nil {
			return d.tr.Wrap(err, "node data")
		}
		vals = make([]float64, count*nd)
		for i := range vals {
			if size == 8 {
				vals[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
			} else {
				vals[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:])))
			}
		}
		if err := d.closeBinary(); err != nil {
			return err
		}
	}
	for i := 0; i < count; i++ {
		d.points = append(d.points, vals[i*nd:(i+1)*nd])
	}
	return nil
}

func (d *decoder) cells(line, index string) error {
	h, err := d.header(line)
	if err != nil {
		return err
	}
	if !hasBody(line) {
		return nil
	}
	if len(h) < 5 {
		return d.tr.Errorf("invalid cell section header %q", line)
	}
	count := h[2] - h[1] + 1
	elem := h[4]
	next, finish := d.ints(index)

	switch elem {
	case elementMixed:
		// A mixed zone body lists element types only.
		for i := 0; i < count; i++ {
			if _, err := next(); err != nil {
				return err
			}
		}
		return finish()
	case elementPolyhedral:
		return textio.Unsupported("ansys: polyhedral cell zones are not supported")
	}
	cellType, ok := elementTypes[elem]
	if !ok {
		return textio.Unsupported("ansys: element type %d is not supported", elem)
	}
	nodes, _ := mesh.NodesPerCell(cellType)
	for i := 0; i < count; i++ {
		row := make([]int, nodes)
		for k := range row {
			v, err := next()
			if err != nil {
				return err
			}
			row[k] = v - 1
		}
		d.blocks.Add(cellType, row)
	}
	return finish()
}

func (d *decoder) faces(line, index string) error {
	h, err := d.header(line)
	if err != nil {
		return err
	}
	if !hasBody(line) {
		return nil
	}
	if len(h) < 5 {
		return d.tr.Errorf("invalid face section header %q", line)
	}
	count := h[2] - h[1] + 1
	kind := h[4]
	next, finish := d.ints(index)
	for i := 0; i < count; i++ {
		n := kind
		if kind == 0 || kind == 5 {
			if n, err = next(); err != nil {
				return err
			}
		}
		if n < 2 {
			return d.tr.Errorf("face with %d nodes", n)
		}
		row := make([]int, 0, textio.Capacity(n))
		for range n {
			v, err := next()
			if err != nil {
				return err
			}
			row = append(row, v-1)
		}
		// Adjacent cells.
		for k := 0; k < 2; k++ {
			if _, err := next(); err != nil {
				return err
			}
		}
		d.blocks.Add(faceType(n), row)
	}
	return finish()
}

// ints returns a reader over the integers of a section body and the
// function that consumes the body's end.
func (d *decoder) ints(index string) (func() (int, error), func() error) {
	if !strings.HasPrefix(index, "20") && !strings.HasPrefix(index, "30") {
		d.closed = 0
		next := func() (int, error) {
			tok, err := d.token()
			if err != nil {
				return 0, err
			}
			v, err := strconv.ParseInt(tok, 16, 64)
			if err != nil {
				return 0, d.tr.Errorf("invalid hex integer %q", tok)
			}
			return int(v), nil
		}
		return next, d.closeASCII
	}
	size := 4
	if strings.HasPrefix(index, "30") {
		size = 8
	}
	br := d.tr.Binary()
	buf := make([]byte, size)
	next := func() (int, error) {
		if _, err := io.ReadFull(br, buf); err != nil {
			return 0, d.tr.Wrap(err, "binary section %s", index)
		}
		if size == 8 {
			return int(int64(binary.LittleEndian.Uint64(buf))), nil
		}
		return int(int32(binary.LittleEndian.Uint32(buf))), nil
	}
	return next, d.closeBinary
}

// token returns the next ASCII body token with closing parentheses
// stripped and counted.
func (d *decoder) token() (string, error) {
	tok, err := d.tr.Token()
	if err != nil {
		return "", d.tr.Wrap(err, "section body")
	}
	if d.closed > 0 {
		return "", d.tr.Errorf("section body ends early")
	}
	trimmed := strings.TrimRight(tok, ")")
	d.closed += len(tok) - len(trimmed)
	if trimmed == "" {
		return "", d.tr.Errorf("section body ends early")
	}
	return trimmed, nil
}

// closeASCII consumes the "))" that ends an ASCII body.
func (d *decoder) closeASCII() error {
	for d.closed < 2 {
		tok, err := d.tr.Token()
		if err != nil {
			return d.tr.Wrap(err, "section end")
		}
		if strings.Trim(tok, ")") != "" {
			return d.tr.Errorf("unexpected %q after section body", tok)
		}
		d.closed += len(tok)
	}
	return nil
}

// closeBinary consumes the rest of a binary body up to its end marker.
func (d *decoder) closeBinary() error {
	for {
		line, err := d.tr.Line()
		if err != nil {
			return d.tr.Wrap(err, "binary section end")
		}
		if strings.Contains(line, ")") {
			return nil
		}
	}
}
