// Package off implements the Object File Format (OFF) for polygonal
// surfaces.
package off

import (
	"io"
	"strconv"
	"strings"

	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/formats/internal/textio"
	"github.com/matzehuels/meshio/pkg/mesh"
)

// Backend is the OFF backend.
var Backend = &formats.Backend{
	Name:       "off",
	Extensions: map[string]string{".off": "off"},
	Readers:    []string{"off"},
	Writers:    map[string]formats.Params{"off": {}},
	Read:       Read,
	Write:      Write,
}

// Read reads an OFF file.
func Read(src formats.Source) (*mesh.Mesh, error) {
	return textio.ReadSource(src, Decode)
}

// Decode parses an OFF stream. Per-face colors after the vertex indices
// are ignored.
func Decode(r io.Reader) (*mesh.Mesh, error) {
	tr := textio.NewReader(r)
	tr.SetComment("#")

	head, err := tr.Token()
	if err != nil {
		return nil, tr.Wrap(err, "missing header")
	}
	if head != "OFF" {
		return nil, tr.Errorf("not an OFF file: %q", head)
	}
	nv, err := tr.Count("vertex")
	if err != nil {
		return nil, err
	}
	nf, err := tr.Count("face")
	if err != nil {
		return nil, err
	}
	if _, err := tr.Count("edge"); err != nil {
		return nil, err
	}

	points := make([][]float64, 0, textio.Capacity(nv))
	for range nv {
		p, err := tr.Floats(3)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}

	var blocks textio.Blocks
	for i := 0; i < nf; i++ {
		k, err := tr.Int()
		if err != nil {
			return nil, err
		}
		if k < 3 {
			return nil, tr.Errorf("face %d has %d vertices", i, k)
		}
		row, err := tr.Ints(k)
		if err != nil {
			return nil, err
		}
		tr.Rest() // optional color
		blocks.Add(faceType(k), row)
	}

	cells := blocks.Cells()
	if err := textio.CheckIndices(cells, len(points)); err != nil {
		return nil, err
	}
	return mesh.New(points, cells)
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

// Write writes the surface cells of m as OFF.
func Write(dst formats.Destination, m *mesh.Mesh, _ formats.Params, _ formats.Options) error {
	return textio.WriteDestination(dst, func(w io.Writer) error {
		return Encode(w, m)
	})
}

// Encode writes m to w. Only triangle, quad and polygonN blocks are
// accepted.
func Encode(w io.Writer, m *mesh.Mesh) error {
	nf := 0
	for _, b := range m.Cells {
		if b.Type != "triangle" && b.Type != "quad" && !strings.HasPrefix(b.Type, "polygon") {
			return textio.Unsupported("off cannot store %s cells", b.Type)
		}
		nf += b.Len()
	}

	tw := textio.NewWriter(w)
	tw.Line("OFF")
	tw.Line("# written by meshio")
	tw.Printf("%d %d 0\n", len(m.Points), nf)
	for _, p := range m.Points3D() {
		tw.Floats(p[:], " ")
	}
	for _, b := range m.Cells {
		for _, row := range b.Data {
			tw.Printf("%d ", len(row))
			tw.Ints(row, 0, " ")
		}
	}
	return tw.Flush()
}
