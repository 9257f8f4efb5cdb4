// Package abaqus implements the mesh part of Abaqus input files (.inp).
//
// Nodes, elements, node sets and element sets are read; every other
// keyword block is skipped. Sets become point and cell sets.
package abaqus

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/formats/internal/textio"
	"github.com/matzehuels/meshio/pkg/mesh"
)

// Backend is the Abaqus backend.
var Backend = &formats.Backend{
	Name:       "abaqus",
	Extensions: map[string]string{".inp": "abaqus"},
	Readers:    []string{"abaqus"},
	Writers:    map[string]formats.Params{"abaqus": {}},
	Read:       Read,
	Write:      Write,
}

// Element names read from files, without hybrid or reduced-integration
// suffixes beyond those listed.
var readTypes = map[string]string{
	"T2D2":   "line",
	"T3D2":   "line",
	"B21":    "line",
	"B31":    "line",
	"T3D3":   "line3",
	"B22":    "line3",
	"B32":    "line3",
	"CPS3":   "triangle",
	"CPE3":   "triangle",
	"CAX3":   "triangle",
	"S3":     "triangle",
	"S3R":    "triangle",
	"M3D3":   "triangle",
	"R3D3":   "triangle",
	"DC2D3":  "triangle",
	"CPS6":   "triangle6",
	"CPE6":   "triangle6",
	"STRI65": "triangle6",
	"DC2D6":  "triangle6",
	"CPS4":   "quad",
	"CPS4R":  "quad",
	"CPE4":   "quad",
	"CPE4R":  "quad",
	"CAX4":   "quad",
	"S4":     "quad",
	"S4R":    "quad",
	"M3D4":   "quad",
	"R3D4":   "quad",
	"DC2D4":  "quad",
	"CPS8":   "quad8",
	"CPS8R":  "quad8",
	"CPE8":   "quad8",
	"CPE8R":  "quad8",
	"S8R":    "quad8",
	"DC2D8":  "quad8",
	"C3D4":   "tetra",
	"DC3D4":  "tetra",
	"C3D10":  "tetra10",
	"DC3D10": "tetra10",
	"C3D5":   "pyramid",
	"C3D6":   "wedge",
	"DC3D6":  "wedge",
	"C3D15":  "wedge15",
	"C3D8":   "hexahedron",
	"C3D8R":  "hexahedron",
	"C3D8I":  "hexahedron",
	"DC3D8":  "hexahedron",
	"C3D20":  "hexahedron20",
	"C3D20R": "hexahedron20",
}

// Element names used when writing.
var writeTypes = map[string]string{
	"line":         "T3D2",
	"line3":        "T3D3",
	"triangle":     "CPS3",
	"triangle6":    "CPS6",
	"quad":         "CPS4",
	"quad8":        "CPS8",
	"tetra":        "C3D4",
	"tetra10":      "C3D10",
	"pyramid":      "C3D5",
	"wedge":        "C3D6",
	"wedge15":      "C3D15",
	"hexahedron":   "C3D8",
	"hexahedron20": "C3D20",
}

// Sets are written with at most this many members per line.
const perLine = 16

// Read reads an Abaqus input file.
func Read(src formats.Source) (*mesh.Mesh, error) {
	return textio.ReadSource(src, Decode)
}

// keywordLine splits "*KEYWORD, A=b, C" into the upper-case keyword and
// its parameters. Parameter names are upper-cased; values keep their case.
func keywordLine(line string) (string, map[string]string) {
	parts := strings.Split(strings.TrimPrefix(line, "*"), ",")
	params := make(map[string]string, len(parts)-1)
	for _, p := range parts[1:] {
		k, v, _ := strings.Cut(p, "=")
		params[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return strings.ToUpper(strings.TrimSpace(parts[0])), params
}

func splitData(line string) []string {
	var out []string
	for _, f := range strings.Split(line, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

type cellRef struct{ block, row int }

type decoder struct {
	tr       *textio.Reader
	points   [][]float64
	pointIdx map[int]int
	blocks   textio.Blocks
	elemIdx  map[int]cellRef
	nsets    map[string][]int
	esets    map[string][]int
}

// Decode parses an Abaqus input stream.
func Decode(r io.Reader) (*mesh.Mesh, error) {
	d := &decoder{
		tr:       textio.NewReader(r),
		pointIdx: map[int]int{},
		elemIdx:  map[int]cellRef{},
		nsets:    map[string][]int{},
		esets:    map[string][]int{},
	}
	var (
		keyword  string
		params   map[string]string
		elemType string
		nodes    int
		pending  []string
	)
	for {
		line, err := d.tr.NextLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, d.tr.Wrap(err, "read line")
		}
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "**") {
			continue
		}
		if strings.HasPrefix(line, "*") {
			if len(pending) > 0 {
				return nil, d.tr.Errorf("incomplete element %v", pending)
			}
			keyword, params = keywordLine(line)
			switch keyword {
			case "ELEMENT":
				name := strings.ToUpper(params["TYPE"])
				t, ok := readTypes[name]
				if !ok {
					return nil, textio.Unsupported("abaqus element type %q is not supported", name)
				}
				elemType = t
				nodes, _ = mesh.NodesPerCell(t)
			case "NSET", "ELSET":
				if params[keyword] == "" {
					return nil, d.tr.Errorf("*%s without %s name", keyword, keyword)
				}
			case "INCLUDE":
				return nil, textio.Unsupported("abaqus *INCLUDE is not supported")
			}
			continue
		}

		f := splitData(line)
		switch keyword {
		case "NODE":
			if err := d.node(f); err != nil {
				return nil, err
			}
		case "ELEMENT":
			// Long elements continue on the following lines.
			pending = append(pending, f...)
			if len(pending) < nodes+1 {
				continue
			}
			if err := d.element(pending, elemType, params["ELSET"]); err != nil {
				return nil, err
			}
			pending = pending[:0]
		case "NSET", "ELSET":
			ids, err := d.members(f, params)
			if err != nil {
				return nil, err
			}
			name := params[keyword]
			if keyword == "NSET" {
				d.nsets[name] = append(d.nsets[name], ids...)
			} else {
				d.esets[name] = append(d.esets[name], ids...)
			}
		}
	}
	if len(pending) > 0 {
		return nil, textio.Invalid("abaqus: incomplete element at end of file")
	}
	return d.mesh()
}

func (d *decoder) node(f []string) error {
	if len(f) < 2 {
		return d.tr.Errorf("invalid node line")
	}
	id, err := strconv.Atoi(f[0])
	if err != nil {
		return d.tr.Errorf("invalid node id %q", f[0])
	}
	p := make([]float64, len(f)-1)
	for i, s := range f[1:] {
		if p[i], err = textio.ParseFloat(s); err != nil {
			return d.tr.Errorf("invalid coordinate %q", s)
		}
	}
	if _, dup := d.pointIdx[id]; dup {
		return d.tr.Errorf("duplicate node %d", id)
	}
	d.pointIdx[id] = len(d.points)
	d.points = append(d.points, p)
	return nil
}

func (d *decoder) element(f []string, cellType, elset string) error {
	ids := make([]int, len(f))
	for i, s := range f {
		v, err := strconv.Atoi(s)
		if err != nil {
			return d.tr.Errorf("invalid integer %q", s)
		}
		ids[i] = v
	}
	row := make([]int, len(ids)-1)
	for i, id := range ids[1:] {
		idx, ok := d.pointIdx[id]
		if !ok {
			return d.tr.Errorf("element %d references unknown node %d", ids[0], id)
		}
		row[i] = idx
	}
	n := d.blocks.Add(cellType, row)
	d.elemIdx[ids[0]] = cellRef{d.blocks.Index(cellType), n}
	if elset != "" {
		d.esets[elset] = append(d.esets[elset], ids[0])
	}
	return nil
}

// members parses one line of set members, expanding "start, end, step"
// lines of GENERATE sets.
func (d *decoder) members(f []string, params map[string]string) ([]int, error) {
	ids := make([]int, len(f))
	for i, s := range f {
		v, err := strconv.Atoi(s)
		if err != nil {
			return nil, d.tr.Errorf("invalid set member %q", s)
		}
		ids[i] = v
	}
	if _, gen := params["GENERATE"]; !gen {
		return ids, nil
	}
	if len(ids) < 2 || len(ids) > 3 {
		return nil, d.tr.Errorf("GENERATE needs start, end and an optional step")
	}
	step := 1
	if len(ids) == 3 {
		step = ids[2]
	}
	if step <= 0 {
		return nil, d.tr.Errorf("invalid GENERATE step %d", step)
	}
	var out []int
	for v := ids[0]; v <= ids[1]; v += step {
		out = append(out, v)
	}
	return out, nil
}

func (d *decoder) mesh() (*mesh.Mesh, error) {
	cells := d.blocks.Cells()
	var opts []mesh.Option
	if len(d.nsets) > 0 {
		sets := make(map[string][]int, len(d.nsets))
		for name, ids := range d.nsets {
			idx := make([]int, len(ids))
			for i, id := range ids {
				v, ok := d.pointIdx[id]
				if !ok {
					return nil, textio.Invalid("abaqus: node set %s references unknown node %d", name, id)
				}
				idx[i] = v
			}
			sets[name] = idx
		}
		opts = append(opts, mesh.WithPointSets(sets))
	}
	if len(d.esets) > 0 {
		sets := make(map[string][][]int, len(d.esets))
		for name, ids := range d.esets {
			per := make([][]int, len(cells))
			for _, id := range ids {
				ref, ok := d.elemIdx[id]
				if !ok {
					return nil, textio.Invalid("abaqus: element set %s references unknown element %d", name, id)
				}
				per[ref.block] = append(per[ref.block], ref.row)
			}
			sets[name] = per
		}
		opts = append(opts, mesh.WithCellSets(sets))
	}
	return mesh.New(d.points, cells, opts...)
}

// Write writes m as an Abaqus input file.
func Write(dst formats.Destination, m *mesh.Mesh, _ formats.Params, _ formats.Options) error {
	return textio.WriteDestination(dst, func(w io.Writer) error {
		return Encode(w, m)
	})
}

// Encode writes m to w. Node and element numbers start at 1; element
// numbers run across blocks in block order.
func Encode(w io.Writer, m *mesh.Mesh) error {
	for _, b := range m.Cells {
		if _, ok := writeTypes[b.Type]; !ok {
			return textio.Unsupported("abaqus cannot store %s cells", b.Type)
		}
	}
	tw := textio.NewWriter(w)
	tw.Line("*HEADING")
	tw.Line("Abaqus DataFile Version 6.14")
	tw.Line("written by meshio")
	tw.Line("*NODE")
	row := make([]float64, 0, 4)
	for i, p := range m.Points {
		row = append(row[:0], float64(i+1))
		row = append(row, p...)
		tw.Floats(row, ", ")
	}

	offsets := make([]int, len(m.Cells))
	id := 1
	for bi, b := range m.Cells {
		offsets[bi] = id
		tw.Printf("*ELEMENT, TYPE=%s\n", writeTypes[b.Type])
		out := make([]int, 0, b.Width()+1)
		for _, cell := range b.Data {
			out = append(out[:0], id)
			for _, v := range cell {
				out = append(out, v+1)
			}
			tw.Ints(out, 0, ", ")
			id++
		}
	}

	for _, name := range sortedKeys(m.PointSets) {
		tw.Printf("*NSET, NSET=%s\n", name)
		writeMembers(tw, m.PointSets[name], 1)
	}
	for _, name := range sortedKeys(m.CellSets) {
		var ids []int
		for bi, rows := range m.CellSets[name] {
			for _, r := range rows {
				ids = append(ids, offsets[bi]+r)
			}
		}
		tw.Printf("*ELSET, ELSET=%s\n", name)
		writeMembers(tw, ids, 0)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write abaqus: %w", err)
	}
	return nil
}

func writeMembers(tw *textio.Writer, ids []int, offset int) {
	for start := 0; start < len(ids); start += perLine {
		tw.Ints(ids[start:min(start+perLine, len(ids))], offset, ", ")
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
