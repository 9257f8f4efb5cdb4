// Package medit implements the ASCII Medit/INRIA mesh format (.mesh).
//
// Vertex and element references are exposed as the point and cell data
// array "medit:ref".
package medit

import (
	"io"

	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/formats/internal/textio"
	"github.com/matzehuels/meshio/pkg/mesh"
)

// Backend is the Medit backend.
var Backend = &formats.Backend{
	Name:       "medit",
	Extensions: map[string]string{".mesh": "medit"},
	Readers:    []string{"medit"},
	Writers:    map[string]formats.Params{"medit": {}},
	Read:       Read,
	Write:      Write,
}

const refKey = "medit:ref"

type keyword struct {
	name     string
	cellType string
	nodes    int
}

var keywords = []keyword{
	{"Edges", "line", 2},
	{"Triangles", "triangle", 3},
	{"Quadrilaterals", "quad", 4},
	{"Tetrahedra", "tetra", 4},
	{"Prisms", "wedge", 6},
	{"Pyramids", "pyramid", 5},
	{"Hexahedra", "hexahedron", 8},
	{"EdgesP2", "line3", 3},
	{"TrianglesP2", "triangle6", 6},
	{"QuadrilateralsQ2", "quad9", 9},
	{"TetrahedraP2", "tetra10", 10},
	{"HexahedraQ2", "hexahedron27", 27},
}

// Sections that are skipped, with their integer and float values per item.
// A float count of -1 means "one per dimension".
var skipped = map[string][2]int{
	"Corners":           {1, 0},
	"Ridges":            {1, 0},
	"RequiredVertices":  {1, 0},
	"RequiredEdges":     {1, 0},
	"RequiredTriangles": {1, 0},
	"Normals":           {0, -1},
	"NormalAtVertices":  {2, 0},
	"Tangents":          {0, -1},
	"TangentAtVertices": {2, 0},
}

func byName(name string) (keyword, bool) {
	for _, k := range keywords {
		if k.name == name {
			return k, true
		}
	}
	return keyword{}, false
}

func byCellType(cellType string) (keyword, bool) {
	for _, k := range keywords {
		if k.cellType == cellType {
			return k, true
		}
	}
	return keyword{}, false
}

// Read reads a Medit file.
func Read(src formats.Source) (*mesh.Mesh, error) {
	return textio.ReadSource(src, Decode)
}

// Decode parses a Medit stream.
func Decode(r io.Reader) (*mesh.Mesh, error) {
	tr := textio.NewReader(r)
	tr.SetComment("#")

	dim := 0
	var (
		points    [][]float64
		pointRefs [][]float64
		cells     []mesh.CellBlock
		cellRefs  [][][]float64
	)
	for {
		tok, err := tr.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, tr.Wrap(err, "read keyword")
		}
		switch tok {
		case "MeshVersionFormatted":
			v, err := tr.Int()
			if err != nil {
				return nil, err
			}
			if v < 1 || v > 3 {
				return nil, textio.Unsupported("medit version %d is not supported", v)
			}
		case "Dimension":
			if dim, err = tr.Int(); err != nil {
				return nil, err
			}
			if dim != 2 && dim != 3 {
				return nil, tr.Errorf("invalid dimension %d", dim)
			}
		case "Vertices":
			if dim == 0 {
				return nil, tr.Errorf("Vertices before Dimension")
			}
			n, err := tr.Count("vertex")
			if err != nil {
				return nil, err
			}
			points = make([][]float64, 0, textio.Capacity(n))
			pointRefs = make([][]float64, 0, textio.Capacity(n))
			for range n {
				p, err := tr.Floats(dim)
				if err != nil {
					return nil, err
				}
				ref, err := tr.Float()
				if err != nil {
					return nil, err
				}
				points = append(points, p)
				pointRefs = append(pointRefs, []float64{ref})
			}
		case "End":
			return build(points, pointRefs, cells, cellRefs)
		default:
			if k, ok := byName(tok); ok {
				n, err := tr.Count(tok)
				if err != nil {
					return nil, err
				}
				data := make([][]int, 0, textio.Capacity(n))
				refs := make([][]float64, 0, textio.Capacity(n))
				for range n {
					row, err := tr.Ints(k.nodes + 1)
					if err != nil {
						return nil, err
					}
					for j := range row[:k.nodes] {
						row[j]--
					}
					data = append(data, row[:k.nodes])
					refs = append(refs, []float64{float64(row[k.nodes])})
				}
				cells = append(cells, mesh.CellBlock{Type: k.cellType, Data: data})
				cellRefs = append(cellRefs, refs)
				continue
			}
			if s, ok := skipped[tok]; ok {
				n, err := tr.Count(tok)
				if err != nil {
					return nil, err
				}
				floats := s[1]
				if floats < 0 {
					floats = dim
				}
				for i := 0; i < n; i++ {
					if _, err := tr.Floats(s[0] + floats); err != nil {
						return nil, err
					}
				}
				continue
			}
			return nil, textio.Unsupported("medit keyword %q is not supported", tok)
		}
	}
	return build(points, pointRefs, cells, cellRefs)
}

func build(points, pointRefs [][]float64, cells []mesh.CellBlock, cellRefs [][][]float64) (*mesh.Mesh, error) {
	if err := textio.CheckIndices(cells, len(points)); err != nil {
		return nil, err
	}
	var opts []mesh.Option
	if len(points) > 0 {
		opts = append(opts, mesh.WithPointData(map[string][][]float64{refKey: pointRefs}))
	}
	if len(cells) > 0 {
		opts = append(opts, mesh.WithCellData(map[string][][][]float64{refKey: cellRefs}))
	}
	return mesh.New(points, cells, opts...)
}

// Write writes m as a Medit file. References are taken from the
// "medit:ref" arrays when present and default to 0.
func Write(dst formats.Destination, m *mesh.Mesh, _ formats.Params, _ formats.Options) error {
	return textio.WriteDestination(dst, func(w io.Writer) error {
		return Encode(w, m)
	})
}

// Encode writes m to w.
func Encode(w io.Writer, m *mesh.Mesh) error {
	dim := m.Dim()
	if len(m.Points) > 0 && dim != 2 && dim != 3 {
		return textio.Unsupported("medit supports 2D and 3D points, got %dD", dim)
	}
	if dim == 0 {
		dim = 3
	}
	for _, b := range m.Cells {
		if _, ok := byCellType(b.Type); !ok {
			return textio.Unsupported("medit cannot store %s cells", b.Type)
		}
	}

	tw := textio.NewWriter(w)
	tw.Line("MeshVersionFormatted 1")
	tw.Line("# written by meshio")
	tw.Printf("Dimension %d\n", dim)
	tw.Printf("\nVertices\n%d\n", len(m.Points))
	prefs := m.PointData[refKey]
	row := make([]float64, 0, dim+1)
	for i, p := range m.Points {
		row = append(row[:0], p...)
		row = append(row, ref(prefs, i))
		tw.Floats(row, " ")
	}

	crefs := m.CellData[refKey]
	for bi, b := range m.Cells {
		k, _ := byCellType(b.Type)
		tw.Printf("\n%s\n%d\n", k.name, b.Len())
		var refs [][]float64
		if crefs != nil {
			refs = crefs[bi]
		}
		out := make([]int, k.nodes+1)
		for i, cell := range b.Data {
			for j, v := range cell {
				out[j] = v + 1
			}
			out[k.nodes] = int(ref(refs, i))
			tw.Ints(out, 0, " ")
		}
	}
	tw.Line("\nEnd")
	return tw.Flush()
}

func ref(refs [][]float64, i int) float64 {
	if i < len(refs) && len(refs[i]) > 0 {
		return refs[i][0]
	}
	return 0
}
