// Package stl implements the STL stereolithography format in ASCII and
// binary encoding.
//
// STL stores independent triangles; the reader merges coincident
// vertices so the resulting mesh is connected. The writer accepts
// triangle blocks only and computes facet normals from the vertices.
package stl

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"strings"

	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/formats/internal/textio"
	"github.com/matzehuels/meshio/pkg/mesh"
)

// Backend is the STL backend.
var Backend = &formats.Backend{
	Name:       "stl",
	Extensions: map[string]string{".stl": "stl-binary"},
	Readers:    []string{"stl", "stl-ascii", "stl-binary"},
	Writers: map[string]formats.Params{
		"stl-ascii":  {Binary: false},
		"stl-binary": {Binary: true},
	},
	Read:  Read,
	Write: Write,
}

const (
	headerSize = 80
	facetSize  = 50
)

// Read reads an STL file in either encoding.
func Read(src formats.Source) (*mesh.Mesh, error) {
	return textio.ReadSource(src, Decode)
}

// Decode parses an STL stream. The encoding is recognized from the size
// of the data: a binary file is exactly 84 bytes plus 50 per facet.
func Decode(r io.Reader) (*mesh.Mesh, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) >= headerSize+4 {
		n := binary.LittleEndian.Uint32(data[headerSize:])
		if uint64(len(data)) == headerSize+4+facetSize*uint64(n) {
			return decodeBinary(data[headerSize+4:], int(n))
		}
	}
	if bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("solid")) {
		return decodeASCII(bytes.NewReader(data))
	}
	return nil, textio.Invalid("not an STL file")
}

type merger struct {
	index  map[[3]float64]int
	points [][]float64
}

func (m *merger) add(p [3]float64) int {
	if m.index == nil {
		m.index = make(map[[3]float64]int)
	}
	if i, ok := m.index[p]; ok {
		return i
	}
	i := len(m.points)
	m.index[p] = i
	m.points = append(m.points, []float64{p[0], p[1], p[2]})
	return i
}

func (m *merger) mesh(tris [][]int) (*mesh.Mesh, error) {
	var cells []mesh.CellBlock
	if len(tris) > 0 {
		cells = []mesh.CellBlock{{Type: "triangle", Data: tris}}
	}
	return mesh.New(m.points, cells)
}

func decodeBinary(data []byte, n int) (*mesh.Mesh, error) {
	var pm merger
	tris := make([][]int, n)
	le := binary.LittleEndian
	for i := 0; i < n; i++ {
		f := data[i*facetSize:]
		row := make([]int, 3)
		for v := 0; v < 3; v++ {
			off := 12 + 12*v // skip the normal
			var p [3]float64
			for c := 0; c < 3; c++ {
				p[c] = float64(math.Float32frombits(le.Uint32(f[off+4*c:])))
			}
			row[v] = pm.add(p)
		}
		tris[i] = row
	}
	return pm.mesh(tris)
}

func decodeASCII(r io.Reader) (*mesh.Mesh, error) {
	tr := textio.NewReader(r)
	if _, err := tr.Line(); err != nil { // solid <name>
		return nil, tr.Wrap(err, "missing solid header")
	}
	var (
		pm   merger
		tris [][]int
		row  []int
	)
	for {
		tok, err := tr.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, tr.Wrap(err, "read keyword")
		}
		switch strings.ToLower(tok) {
		case "facet", "outer", "endsolid", "solid":
			tr.Rest()
		case "vertex":
			vals, err := tr.Floats(3)
			if err != nil {
				return nil, err
			}
			row = append(row, pm.add([3]float64{vals[0], vals[1], vals[2]}))
		case "endloop":
		case "endfacet":
			if len(row) != 3 {
				return nil, tr.Errorf("facet with %d vertices", len(row))
			}
			tris = append(tris, row)
			row = nil
		default:
			return nil, tr.Errorf("unexpected keyword %q", tok)
		}
	}
	if row != nil {
		return nil, tr.Errorf("unterminated facet")
	}
	return pm.mesh(tris)
}

// Write writes the triangle blocks of m.
func Write(dst formats.Destination, m *mesh.Mesh, p formats.Params, _ formats.Options) error {
	return textio.WriteDestination(dst, func(w io.Writer) error {
		return Encode(w, m, p.Binary)
	})
}

// Encode writes m to w.
func Encode(w io.Writer, m *mesh.Mesh, binaryMode bool) error {
	var tris [][]int
	for _, b := range m.Cells {
		if b.Type != "triangle" {
			return textio.Unsupported("stl can only store triangles, got %s", b.Type)
		}
		tris = append(tris, b.Data...)
	}
	pts := m.Points3D()

	tw := textio.NewWriter(w)
	if binaryMode {
		var header [headerSize]byte
		copy(header[:], "written by meshio")
		tw.Raw(header[:])
		tw.Binary(binary.LittleEndian, uint32(len(tris)))
		var facet [12]float32
		for _, t := range tris {
			a, b, c := pts[t[0]], pts[t[1]], pts[t[2]]
			n := normal(a, b, c)
			for i, v := range [4][3]float64{n, a, b, c} {
				for j := range v {
					facet[3*i+j] = float32(v[j])
				}
			}
			tw.Binary(binary.LittleEndian, facet)
			tw.Binary(binary.LittleEndian, uint16(0))
		}
		return tw.Flush()
	}

	tw.Line("solid meshio")
	for _, t := range tris {
		a, b, c := pts[t[0]], pts[t[1]], pts[t[2]]
		n := normal(a, b, c)
		tw.Printf("facet normal %s %s %s\n", textio.FormatFloat(n[0]), textio.FormatFloat(n[1]), textio.FormatFloat(n[2]))
		tw.Line(" outer loop")
		for _, v := range [3][3]float64{a, b, c} {
			tw.Printf("  vertex ")
			tw.Floats(v[:], " ")
		}
		tw.Line(" endloop")
		tw.Line("endfacet")
	}
	tw.Line("endsolid meshio")
	return tw.Flush()
}

func normal(a, b, c [3]float64) [3]float64 {
	u := [3]float64{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
	v := [3]float64{c[0] - a[0], c[1] - a[1], c[2] - a[2]}
	n := [3]float64{u[1]*v[2] - u[2]*v[1], u[2]*v[0] - u[0]*v[2], u[0]*v[1] - u[1]*v[0]}
	l := math.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
	if l == 0 {
		return [3]float64{}
	}
	return [3]float64{n[0] / l, n[1] / l, n[2] / l}
}
