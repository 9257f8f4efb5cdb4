// Package obj implements the Wavefront OBJ format.
//
// Only geometry is supported: vertices ("v"), texture coordinates ("vt"),
// normals ("vn"), faces ("f") and polylines with two nodes ("l"). Texture
// coordinates and normals are exposed as the point data arrays "obj:vt"
// and "obj:vn" when there is one per vertex. Groups ("g") become the cell
// data array "obj:group_ids".
package obj

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/formats/internal/textio"
	"github.com/matzehuels/meshio/pkg/mesh"
)

// Backend is the OBJ backend.
var Backend = &formats.Backend{
	Name:       "obj",
	Extensions: map[string]string{".obj": "obj"},
	Readers:    []string{"obj"},
	Writers:    map[string]formats.Params{"obj": {}},
	Read:       Read,
	Write:      Write,
}

const (
	texcoordKey = "obj:vt"
	normalKey   = "obj:vn"
	groupKey    = "obj:group_ids"
)

// Read reads an OBJ file.
func Read(src formats.Source) (*mesh.Mesh, error) {
	return textio.ReadSource(src, Decode)
}

// Decode parses an OBJ stream.
func Decode(r io.Reader) (*mesh.Mesh, error) {
	tr := textio.NewReader(r)
	var (
		points, texcoords, normals [][]float64
		blocks                     textio.Blocks
		groups                     [][]float64
		group                      = -1
		hasGroups                  bool
	)

	for {
		line, err := tr.Line()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, tr.Wrap(err, "read line")
		}
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "v", "vt", "vn":
			vals, err := parseFloats(fields[1:])
			if err != nil {
				return nil, tr.Errorf("%s: %v", fields[0], err)
			}
			switch fields[0] {
			case "v":
				if len(vals) == 4 {
					vals = vals[:3]
				}
				points = append(points, vals)
			case "vt":
				texcoords = append(texcoords, vals)
			default:
				normals = append(normals, vals)
			}
		case "f", "l":
			row := make([]int, 0, len(fields)-1)
			for _, f := range fields[1:] {
				idx, err := vertexIndex(f, len(points))
				if err != nil {
					return nil, tr.Errorf("%s: %v", fields[0], err)
				}
				row = append(row, idx)
			}
			cellType := faceType(len(row))
			if fields[0] == "l" {
				if len(row) != 2 {
					return nil, textio.Unsupported("obj polylines with %d nodes are not supported", len(row))
				}
				cellType = "line"
			}
			if len(row) < 2 || (fields[0] == "f" && len(row) < 3) {
				return nil, tr.Errorf("%s element with %d nodes", fields[0], len(row))
			}
			i := blocks.Index(cellType)
			blocks.Add(cellType, row)
			if i < 0 {
				groups = append(groups, nil)
				i = len(groups) - 1
			}
			groups[i] = append(groups[i], float64(group))
		case "g":
			group++
			hasGroups = true
		case "o", "s", "usemtl", "mtllib", "vp":
		default:
			return nil, tr.Errorf("unknown keyword %q", fields[0])
		}
	}

	cells := blocks.Cells()
	if err := textio.CheckIndices(cells, len(points)); err != nil {
		return nil, err
	}
	pd := map[string][][]float64{}
	if len(texcoords) > 0 && len(texcoords) == len(points) {
		pd[texcoordKey] = texcoords
	}
	if len(normals) > 0 && len(normals) == len(points) {
		pd[normalKey] = normals
	}
	var opts []mesh.Option
	if len(pd) > 0 {
		opts = append(opts, mesh.WithPointData(pd))
	}
	if hasGroups {
		cd := make([][][]float64, len(groups))
		for i, g := range groups {
			cd[i] = make([][]float64, len(g))
			for j, v := range g {
				cd[i][j] = []float64{v}
			}
		}
		opts = append(opts, mesh.WithCellData(map[string][][][]float64{groupKey: cd}))
	}
	return mesh.New(points, cells, opts...)
}

// vertexIndex parses "i", "i/t", "i//n" or "i/t/n" and returns the zero
// based vertex index. Negative indices count back from the last vertex.
func vertexIndex(s string, numPoints int) (int, error) {
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q", s)
	}
	switch {
	case n > 0:
		return n - 1, nil
	case n < 0:
		return numPoints + n, nil
	}
	return 0, fmt.Errorf("index 0 is not valid")
}

func faceType(n int) string {
	switch n {
	case 3:
		return "triangle"
	case 4:
		return "quad"
	}
	return "polygon" + strconv.Itoa(n)
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := textio.ParseFloat(f)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", f)
		}
		out[i] = v
	}
	return out, nil
}

// Write writes m as OBJ. Only line, triangle, quad and polygonN blocks
// can be written.
func Write(dst formats.Destination, m *mesh.Mesh, _ formats.Params, _ formats.Options) error {
	return textio.WriteDestination(dst, func(w io.Writer) error {
		return Encode(w, m)
	})
}

// Encode writes m to w.
func Encode(w io.Writer, m *mesh.Mesh) error {
	for _, b := range m.Cells {
		if !writable(b.Type) {
			return textio.Unsupported("obj cannot store %s cells", b.Type)
		}
	}

	tw := textio.NewWriter(w)
	tw.Line("# written by meshio")
	for _, p := range m.Points {
		tw.Printf("v ")
		tw.Floats(p, " ")
	}
	vt, hasVT := m.PointData[texcoordKey]
	for _, t := range vt {
		tw.Printf("vt ")
		tw.Floats(t, " ")
	}
	vn, hasVN := m.PointData[normalKey]
	for _, n := range vn {
		tw.Printf("vn ")
		tw.Floats(n, " ")
	}

	groups := m.CellData[groupKey]
	current := -1.0
	for bi, b := range m.Cells {
		key := "f"
		if b.Type == "line" {
			key = "l"
		}
		for ri, row := range b.Data {
			if groups != nil && len(groups[bi][ri]) > 0 && groups[bi][ri][0] != current {
				current = groups[bi][ri][0]
				tw.Printf("g group%d\n", int(current))
			}
			tw.Printf("%s", key)
			for _, idx := range row {
				switch {
				case hasVT && hasVN:
					tw.Printf(" %d/%d/%d", idx+1, idx+1, idx+1)
				case hasVT:
					tw.Printf(" %d/%d", idx+1, idx+1)
				case hasVN:
					tw.Printf(" %d//%d", idx+1, idx+1)
				default:
					tw.Printf(" %d", idx+1)
				}
			}
			tw.Line("")
		}
	}
	return tw.Flush()
}

func writable(cellType string) bool {
	switch cellType {
	case "line", "triangle", "quad":
		return true
	}
	n, ok := mesh.NodesPerCell(cellType)
	return ok && strings.HasPrefix(cellType, "polygon") && n >= 3
}
