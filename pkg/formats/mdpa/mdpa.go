// Package mdpa implements the Kratos Multiphysics model part format
// (.mdpa).
//
// Nodes become points. Elements and Conditions blocks become cells, with
// the cell type taken from the Kratos name ("Tetrahedra3D4",
// "SurfaceCondition3D3N", ...) and the property id kept as the
// "mdpa:property" cell data. NodalData blocks become point data; nodes a
// block does not list are NaN. Every other block is skipped.
package mdpa

import (
	"fmt"
	"io"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/formats/internal/textio"
	"github.com/matzehuels/meshio/pkg/mesh"
)

// Backend is the Kratos backend.
var Backend = &formats.Backend{
	Name:       "mdpa",
	Extensions: map[string]string{".mdpa": "mdpa"},
	Readers:    []string{"mdpa"},
	Writers:    map[string]formats.Params{"mdpa": {}},
	Read:       Read,
	Write:      Write,
}

// PropertyKey is the cell data holding property ids.
const PropertyKey = "mdpa:property"

var nameRe = regexp.MustCompile(`(\d)D(\d+)N?$`)

// CellType derives the cell type from a Kratos element or condition
// name.
func CellType(name string) (string, bool) {
	sub := nameRe.FindStringSubmatch(name)
	if sub == nil {
		return "", false
	}
	dim, _ := strconv.Atoi(sub[1])
	nodes, _ := strconv.Atoi(sub[2])
	surface := dim == 2
	for _, k := range []string{"Quadrilateral", "Triangle", "Surface", "Face"} {
		surface = surface || strings.Contains(name, k)
	}
	switch nodes {
	case 1:
		return "vertex", true
	case 2:
		return "line", true
	case 3:
		if strings.Contains(name, "Line") {
			return "line3", true
		}
		return "triangle", true
	case 4:
		if surface {
			return "quad", true
		}
		return "tetra", true
	case 5:
		return "pyramid", true
	case 6:
		if surface {
			return "triangle6", true
		}
		return "wedge", true
	case 8:
		if surface {
			return "quad8", true
		}
		return "hexahedron", true
	case 9:
		return "quad9", true
	case 10:
		return "tetra10", true
	case 13:
		return "pyramid13", true
	case 15:
		return "wedge15", true
	case 20:
		return "hexahedron20", true
	case 27:
		return "hexahedron27", true
	}
	return "", false
}

var kratosNames = map[string]string{
	"vertex":       "Point3D1N",
	"line":         "Line3D2",
	"line3":        "Line3D3",
	"triangle":     "Triangle3D3",
	"triangle6":    "Triangle3D6",
	"quad":         "Quadrilateral3D4",
	"quad8":        "Quadrilateral3D8",
	"quad9":        "Quadrilateral3D9",
	"tetra":        "Tetrahedra3D4",
	"tetra10":      "Tetrahedra3D10",
	"pyramid":      "Pyramid3D5",
	"pyramid13":    "Pyramid3D13",
	"wedge":        "Prism3D6",
	"wedge15":      "Prism3D15",
	"hexahedron":   "Hexahedra3D8",
	"hexahedron20": "Hexahedra3D20",
	"hexahedron27": "Hexahedra3D27",
}

// Read reads a Kratos model part.
func Read(src formats.Source) (*mesh.Mesh, error) {
	return textio.ReadSource(src, Decode)
}

type decoder struct {
	tr        *textio.Reader
	points    [][]float64
	pointIdx  map[int]int
	blocks    textio.Blocks
	props     map[string][]float64
	nodal     map[string]map[int][]float64
	nodalKeys []string
}

// Decode parses a Kratos model part stream.
func Decode(r io.Reader) (*mesh.Mesh, error) {
	d := &decoder{
		tr:       textio.NewReader(r),
		pointIdx: map[int]int{},
		props:    map[string][]float64{},
		nodal:    map[string]map[int][]float64{},
	}
	for {
		fields, err := d.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if fields[0] != "Begin" || len(fields) < 2 {
			return nil, d.tr.Errorf("expected a Begin line, got %q", strings.Join(fields, " "))
		}
		switch fields[1] {
		case "Nodes":
			err = d.nodes()
		case "Elements", "Conditions":
			if len(fields) < 3 {
				return nil, d.tr.Errorf("%s block without a name", fields[1])
			}
			err = d.cells(fields[1], fields[2])
		case "NodalData":
			if len(fields) < 3 {
				return nil, d.tr.Errorf("NodalData block without a variable")
			}
			err = d.nodalData(fields[2])
		default:
			err = d.skip(fields[1])
		}
		if err != nil {
			return nil, err
		}
	}
	return d.mesh()
}

// next returns the fields of the next line that has any, dropping "//"
// comments.
func (d *decoder) next() ([]string, error) {
	for {
		line, err := d.tr.Line()
		if err != nil {
			return nil, err
		}
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}
		if fields := strings.Fields(line); len(fields) > 0 {
			return fields, nil
		}
	}
}

// rows calls fn for every line up to "End block".
func (d *decoder) rows(block string, fn func([]string) error) error {
	for {
		fields, err := d.next()
		if err != nil {
			return d.tr.Wrap(err, "unterminated %s block", block)
		}
		if fields[0] == "End" {
			if len(fields) < 2 || fields[1] != block {
				return d.tr.Errorf("expected End %s", block)
			}
			return nil
		}
		if err := fn(fields); err != nil {
			return err
		}
	}
}

func (d *decoder) nodes() error {
	return d.rows("Nodes", func(f []string) error {
		if len(f) != 4 {
			return d.tr.Errorf("node needs an id and 3 coordinates")
		}
		id, err := strconv.Atoi(f[0])
		if err != nil {
			return d.tr.Errorf("invalid node id %q", f[0])
		}
		p := make([]float64, 3)
		for k := range p {
			if p[k], err = textio.ParseFloat(f[1+k]); err != nil {
				return d.tr.Errorf("invalid coordinate %q", f[1+k])
			}
		}
		if _, dup := d.pointIdx[id]; dup {
			return d.tr.Errorf("duplicate node %d", id)
		}
		d.pointIdx[id] = len(d.points)
		d.points = append(d.points, p)
		return nil
	})
}

func (d *decoder) cells(block, name string) error {
	cellType, ok := CellType(name)
	if !ok {
		return textio.Unsupported("mdpa element type %q is not supported", name)
	}
	n, _ := mesh.NodesPerCell(cellType)
	return d.rows(block, func(f []string) error {
		if len(f) != n+2 {
			return d.tr.Errorf("%s row has %d fields, want %d", name, len(f), n+2)
		}
		prop, err := strconv.Atoi(f[1])
		if err != nil {
			return d.tr.Errorf("invalid property id %q", f[1])
		}
		row := make([]int, n)
		for i, s := range f[2:] {
			id, err := strconv.Atoi(s)
			if err != nil {
				return d.tr.Errorf("invalid node id %q", s)
			}
			idx, ok := d.pointIdx[id]
			if !ok {
				return d.tr.Errorf("%s %s references unknown node %d", name, f[0], id)
			}
			row[i] = idx
		}
		d.blocks.Add(cellType, row)
		d.props[cellType] = append(d.props[cellType], float64(prop))
		return nil
	})
}

func (d *decoder) nodalData(name string) error {
	values, ok := d.nodal[name]
	if !ok {
		values = map[int][]float64{}
		d.nodal[name] = values
		d.nodalKeys = append(d.nodalKeys, name)
	}
	return d.rows("NodalData", func(f []string) error {
		if len(f) < 3 {
			return d.tr.Errorf("nodal value needs a node, a fixity flag and a value")
		}
		id, err := strconv.Atoi(f[0])
		if err != nil {
			return d.tr.Errorf("invalid node id %q", f[0])
		}
		v, err := parseValue(strings.Join(f[2:], ""))
		if err != nil {
			return d.tr.Errorf("%v", err)
		}
		values[id] = v
		return nil
	})
}

// parseValue parses a scalar or a "[n](a,b,...)" vector.
func parseValue(s string) ([]float64, error) {
	if !strings.HasPrefix(s, "[") {
		v, err := textio.ParseFloat(s)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q", s)
		}
		return []float64{v}, nil
	}
	size, list, ok := strings.Cut(s[1:], "]")
	n, err := strconv.Atoi(size)
	if !ok || err != nil || !strings.HasPrefix(list, "(") || !strings.HasSuffix(list, ")") {
		return nil, fmt.Errorf("invalid vector %q", s)
	}
	parts := strings.Split(list[1:len(list)-1], ",")
	if len(parts) != n {
		return nil, fmt.Errorf("vector %q has %d components, want %d", s, len(parts), n)
	}
	out := make([]float64, n)
	for i, p := range parts {
		if out[i], err = textio.ParseFloat(p); err != nil {
			return nil, fmt.Errorf("invalid vector component %q", p)
		}
	}
	return out, nil
}

// skip consumes a block the mesh model has no place for, including
// nested blocks.
func (d *decoder) skip(block string) error {
	depth := 1
	for depth > 0 {
		fields, err := d.next()
		if err != nil {
			return d.tr.Wrap(err, "unterminated %s block", block)
		}
		switch fields[0] {
		case "Begin":
			depth++
		case "End":
			depth--
		}
	}
	return nil
}

func (d *decoder) mesh() (*mesh.Mesh, error) {
	cells := d.blocks.Cells()
	var opts []mesh.Option
	if len(cells) > 0 {
		props := make([][][]float64, len(cells))
		for i, b := range cells {
			props[i] = make([][]float64, b.Len())
			for j, v := range d.props[b.Type] {
				props[i][j] = []float64{v}
			}
		}
		opts = append(opts, mesh.WithCellData(map[string][][][]float64{PropertyKey: props}))
	}
	if len(d.nodal) > 0 {
		pd := make(map[string][][]float64, len(d.nodal))
		for _, name := range d.nodalKeys {
			width := 0
			for _, v := range d.nodal[name] {
				width = max(width, len(v))
			}
			if width == 0 {
				continue
			}
			rows := make([][]float64, len(d.points))
			for i := range rows {
				rows[i] = slices.Repeat([]float64{math.NaN()}, width)
			}
			for id, v := range d.nodal[name] {
				idx, ok := d.pointIdx[id]
				if !ok {
					return nil, textio.Invalid("mdpa: NodalData %s references unknown node %d", name, id)
				}
				copy(rows[idx], v)
			}
			pd[name] = rows
		}
		opts = append(opts, mesh.WithPointData(pd))
	}
	return mesh.New(d.points, cells, opts...)
}

// Write writes m as a Kratos model part.
func Write(dst formats.Destination, m *mesh.Mesh, _ formats.Params, _ formats.Options) error {
	return textio.WriteDestination(dst, func(w io.Writer) error {
		return Encode(w, m)
	})
}

// Encode writes m to w. Cells of the highest topological dimension are
// written as Elements and the rest as Conditions, each numbered from 1.
func Encode(w io.Writer, m *mesh.Mesh) error {
	top := 0
	for _, b := range m.Cells {
		if _, ok := kratosNames[b.Type]; !ok {
			return textio.Unsupported("mdpa cannot store %s cells", b.Type)
		}
		top = max(top, mesh.TopologicalDim(b.Type))
	}

	tw := textio.NewWriter(w)
	tw.Line("Begin ModelPartData")
	tw.Line("End ModelPartData")
	tw.Line("")
	tw.Line("Begin Properties 0")
	tw.Line("End Properties")
	tw.Line("")
	tw.Line("Begin Nodes")
	for i, p := range m.Points3D() {
		tw.Printf("%d %s %s %s\n", i+1,
			textio.FormatFloat(p[0]), textio.FormatFloat(p[1]), textio.FormatFloat(p[2]))
	}
	tw.Line("End Nodes")

	props := m.CellData[PropertyKey]
	for _, block := range []string{"Elements", "Conditions"} {
		id := 1
		for bi, b := range m.Cells {
			if (mesh.TopologicalDim(b.Type) == top) != (block == "Elements") {
				continue
			}
			tw.Line("")
			tw.Printf("Begin %s %s\n", block, kratosNames[b.Type])
			for ci, row := range b.Data {
				prop := 0
				if props != nil && len(props[bi][ci]) > 0 {
					prop = int(props[bi][ci][0])
				}
				tw.Printf("%d %d", id, prop)
				for _, v := range row {
					tw.Printf(" %d", v+1)
				}
				tw.Line("")
				id++
			}
			tw.Printf("End %s\n", block)
		}
	}

	names := make([]string, 0, len(m.PointData))
	for name := range m.PointData {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		tw.Line("")
		tw.Printf("Begin NodalData %s\n", name)
		for i, v := range m.PointData[name] {
			if len(v) == 1 {
				tw.Printf("%d 0 %s\n", i+1, textio.FormatFloat(v[0]))
				continue
			}
			parts := make([]string, len(v))
			for k, x := range v {
				parts[k] = textio.FormatFloat(x)
			}
			tw.Printf("%d 0 [%d](%s)\n", i+1, len(v), strings.Join(parts, ","))
		}
		tw.Line("End NodalData")
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write mdpa: %w", err)
	}
	return nil
}
