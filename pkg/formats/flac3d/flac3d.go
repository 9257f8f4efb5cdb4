// Package flac3d implements the ASCII FLAC3D grid format (.f3grid).
//
// Gridpoints ("G") become points, zones ("Z") volume cells and faces
// ("F") surface cells. ZGROUP and FGROUP sections become cell sets.
// FLAC3D numbers the corners of bricks, wedges and pyramids differently
// from the mesh model; rows are reordered on the way in and out.
package flac3d

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/formats/internal/textio"
	"github.com/matzehuels/meshio/pkg/mesh"
)

// Backend is the FLAC3D backend.
var Backend = &formats.Backend{
	Name:       "flac3d",
	Extensions: map[string]string{".f3grid": "flac3d"},
	Readers:    []string{"flac3d"},
	Writers:    map[string]formats.Params{"flac3d": {}},
	Read:       Read,
	Write:      Write,
}

var zoneTypes = map[string]string{
	"B8": "hexahedron",
	"W6": "wedge",
	"P5": "pyramid",
	"T4": "tetra",
}

var faceTypes = map[string]string{
	"Q4": "quad",
	"T3": "triangle",
}

// toMesh[t][i] is the file position of the i-th mesh corner.
var toMesh = map[string][]int{
	"hexahedron": {0, 1, 4, 2, 3, 6, 7, 5},
	"pyramid":    {0, 1, 4, 2, 3},
	"wedge":      {0, 1, 3, 2, 4, 5},
}

// toFile[t][j] is the mesh corner written at file position j.
var toFile = map[string][]int{
	"hexahedron": {0, 1, 3, 4, 2, 7, 5, 6},
	"pyramid":    {0, 1, 3, 4, 2},
	"wedge":      {0, 1, 3, 2, 4, 5},
}

// Read reads a FLAC3D grid.
func Read(src formats.Source) (*mesh.Mesh, error) {
	return textio.ReadSource(src, Decode)
}

// cellRef locates a zone or face in the collected blocks.
type cellRef struct {
	cellType string
	row      int
}

type decoder struct {
	tr       *textio.Reader
	points   [][]float64
	pointIdx map[int]int
	blocks   textio.Blocks
	zones    map[int]cellRef
	faces    map[int]cellRef
	sets     map[string][]cellRef
	setOrder []string
}

// Decode parses a FLAC3D grid stream.
func Decode(r io.Reader) (*mesh.Mesh, error) {
	d := &decoder{
		tr:       textio.NewReader(r),
		pointIdx: map[int]int{},
		zones:    map[int]cellRef{},
		faces:    map[int]cellRef{},
		sets:     map[string][]cellRef{},
	}
	// group collects the ids following a ZGROUP or FGROUP line.
	var group string
	var groupIDs map[int]cellRef
	for {
		line, err := d.tr.Line()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, d.tr.Wrap(err, "read line")
		}
		if strings.ContainsRune(line, 0) {
			return nil, textio.Unsupported("flac3d binary grids are not supported")
		}
		if i := strings.IndexByte(line, '*'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch key := strings.ToUpper(fields[0]); key {
		case "G":
			group = ""
			if err := d.gridpoint(fields[1:]); err != nil {
				return nil, err
			}
		case "Z":
			group = ""
			if err := d.cell(fields[1:], zoneTypes, d.zones); err != nil {
				return nil, err
			}
		case "F":
			group = ""
			if err := d.cell(fields[1:], faceTypes, d.faces); err != nil {
				return nil, err
			}
		case "ZGROUP", "FGROUP":
			name, err := groupName(strings.TrimSpace(line)[len(key):])
			if err != nil {
				return nil, d.tr.Errorf("%v", err)
			}
			group, groupIDs = name, d.zones
			if key == "FGROUP" {
				groupIDs = d.faces
			}
			if _, ok := d.sets[group]; !ok {
				d.setOrder = append(d.setOrder, group)
				d.sets[group] = nil
			}
		default:
			if group == "" {
				return nil, d.tr.Errorf("unexpected record %q", fields[0])
			}
			for _, f := range fields {
				id, err := strconv.Atoi(f)
				if err != nil {
					return nil, d.tr.Errorf("invalid group member %q", f)
				}
				ref, ok := groupIDs[id]
				if !ok {
					return nil, d.tr.Errorf("group %s references unknown id %d", group, id)
				}
				d.sets[group] = append(d.sets[group], ref)
			}
		}
	}
	return d.mesh()
}

func (d *decoder) gridpoint(fields []string) error {
	if len(fields) != 4 {
		return d.tr.Errorf("gridpoint needs an id and 3 coordinates")
	}
	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return d.tr.Errorf("invalid gridpoint id %q", fields[0])
	}
	p := make([]float64, 3)
	for k := range p {
		if p[k], err = textio.ParseFloat(fields[1+k]); err != nil {
			return d.tr.Errorf("invalid coordinate %q", fields[1+k])
		}
	}
	if _, dup := d.pointIdx[id]; dup {
		return d.tr.Errorf("duplicate gridpoint %d", id)
	}
	d.pointIdx[id] = len(d.points)
	d.points = append(d.points, p)
	return nil
}

func (d *decoder) cell(fields []string, types map[string]string, ids map[int]cellRef) error {
	if len(fields) < 2 {
		return d.tr.Errorf("record needs a shape and an id")
	}
	cellType, ok := types[strings.ToUpper(fields[0])]
	if !ok {
		return textio.Unsupported("flac3d shape %q is not supported", fields[0])
	}
	id, err := strconv.Atoi(fields[1])
	if err != nil {
		return d.tr.Errorf("invalid id %q", fields[1])
	}
	n, _ := mesh.NodesPerCell(cellType)
	if len(fields) != n+2 {
		return d.tr.Errorf("%s %d has %d nodes, want %d", fields[0], id, len(fields)-2, n)
	}
	file := make([]int, n)
	for i, f := range fields[2:] {
		gp, err := strconv.Atoi(f)
		if err != nil {
			return d.tr.Errorf("invalid gridpoint id %q", f)
		}
		idx, ok := d.pointIdx[gp]
		if !ok {
			return d.tr.Errorf("%s %d references unknown gridpoint %d", fields[0], id, gp)
		}
		file[i] = idx
	}
	row := file
	if order, ok := toMesh[cellType]; ok {
		row = make([]int, n)
		for i, j := range order {
			row[i] = file[j]
		}
	}
	if _, dup := ids[id]; dup {
		return d.tr.Errorf("duplicate id %d", id)
	}
	ids[id] = cellRef{cellType: cellType, row: d.blocks.Add(cellType, row)}
	return nil
}

// groupName parses the quoted (or bare) name after a group keyword and
// drops a trailing SLOT clause.
func groupName(s string) (string, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `"`) || strings.HasPrefix(s, "'") {
		end := strings.IndexByte(s[1:], s[0])
		if end < 0 {
			return "", fmt.Errorf("unterminated group name %s", s)
		}
		return s[1 : end+1], nil
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return "", fmt.Errorf("group without a name")
	}
	return fields[0], nil
}

func (d *decoder) mesh() (*mesh.Mesh, error) {
	cells := d.blocks.Cells()
	var opts []mesh.Option
	if len(d.sets) > 0 {
		sets := make(map[string][][]int, len(d.sets))
		for _, name := range d.setOrder {
			lists := make([][]int, len(cells))
			for _, ref := range d.sets[name] {
				bi := d.blocks.Index(ref.cellType)
				lists[bi] = append(lists[bi], ref.row)
			}
			sets[name] = lists
		}
		opts = append(opts, mesh.WithCellSets(sets))
	}
	return mesh.New(d.points, cells, opts...)
}

// Write writes m as an ASCII FLAC3D grid.
func Write(dst formats.Destination, m *mesh.Mesh, p formats.Params, _ formats.Options) error {
	if p.Binary {
		return textio.Unsupported("flac3d binary grids are not supported")
	}
	return textio.WriteDestination(dst, func(w io.Writer) error {
		return Encode(w, m)
	})
}

var shapeNames = map[string]string{
	"hexahedron": "B8",
	"wedge":      "W6",
	"pyramid":    "P5",
	"tetra":      "T4",
	"quad":       "Q4",
	"triangle":   "T3",
}

// Encode writes m to w. Volume cells are numbered as zones and surface
// cells as faces, each from 1 and across blocks.
func Encode(w io.Writer, m *mesh.Mesh) error {
	for _, b := range m.Cells {
		if _, ok := shapeNames[b.Type]; !ok {
			return textio.Unsupported("flac3d cannot store %s cells", b.Type)
		}
	}
	tw := textio.NewWriter(w)
	tw.Line("* FLAC3D grid produced by meshio")
	tw.Line("* GRIDPOINTS")
	for i, p := range m.Points3D() {
		tw.Printf("G %d %s %s %s\n", i+1,
			textio.FormatFloat(p[0]), textio.FormatFloat(p[1]), textio.FormatFloat(p[2]))
	}

	// ids[bi][ci] is the zone or face id of a cell.
	ids := make([][]int, len(m.Cells))
	for _, pass := range []struct {
		title string
		tag   string
		dim3  bool
	}{{"* ZONES", "Z", true}, {"* FACES", "F", false}} {
		next := 1
		for bi, b := range m.Cells {
			if (mesh.TopologicalDim(b.Type) == 3) != pass.dim3 {
				continue
			}
			if next == 1 {
				tw.Line(pass.title)
			}
			ids[bi] = make([]int, b.Len())
			order := toFile[b.Type]
			for ci, row := range b.Data {
				tw.Printf("%s %s %d", pass.tag, shapeNames[b.Type], next)
				for j := range row {
					k := j
					if order != nil {
						k = order[j]
					}
					tw.Printf(" %d", row[k]+1)
				}
				tw.Line("")
				ids[bi][ci] = next
				next++
			}
		}
	}

	names := make([]string, 0, len(m.CellSets))
	for name := range m.CellSets {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		for _, pass := range []struct {
			key  string
			dim3 bool
		}{{"ZGROUP", true}, {"FGROUP", false}} {
			var members []int
			for bi, rows := range m.CellSets[name] {
				if (mesh.TopologicalDim(m.Cells[bi].Type) == 3) != pass.dim3 {
					continue
				}
				for _, ci := range rows {
					members = append(members, ids[bi][ci])
				}
			}
			if len(members) == 0 {
				continue
			}
			tw.Printf("%s %q SLOT 1\n", pass.key, name)
			for start := 0; start < len(members); start += perLine {
				tw.Ints(members[start:min(start+perLine, len(members))], 0, " ")
			}
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write flac3d: %w", err)
	}
	return nil
}

// perLine is the number of group members per line.
const perLine = 10
