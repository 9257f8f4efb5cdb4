// Package neuroglancer implements the Neuroglancer precomputed
// single-resolution triangle mesh.
//
// The file is little-endian: a uint32 vertex count, float32 xyz
// coordinates, then uint32 triangle corners up to the end of the stream.
// The format has no extension, so it is addressed by identifier.
package neuroglancer

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/formats/internal/textio"
	"github.com/matzehuels/meshio/pkg/mesh"
)

// Backend is the Neuroglancer backend.
var Backend = &formats.Backend{
	Name:    "neuroglancer",
	Readers: []string{"neuroglancer"},
	Writers: map[string]formats.Params{"neuroglancer": {}},
	Read:    Read,
	Write:   Write,
}

// Read reads a Neuroglancer precomputed mesh.
func Read(src formats.Source) (*mesh.Mesh, error) {
	return textio.ReadSource(src, Decode)
}

// Decode parses a Neuroglancer stream.
func Decode(r io.Reader) (*mesh.Mesh, error) {
	br := bufio.NewReader(r)
	var n uint32
	if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
		return nil, textio.Invalid("neuroglancer: vertex count: %v", err)
	}
	raw, err := textio.ReadBytes(br, int(n), 12)
	if err != nil {
		return nil, textio.Invalid("neuroglancer: %d vertices: %v", n, err)
	}
	points := make([][]float64, n)
	for i := range points {
		p := make([]float64, 3)
		for k := range p {
			p[k] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[12*i+4*k:])))
		}
		points[i] = p
	}

	rest, err := io.ReadAll(br)
	if err != nil {
		return nil, textio.Invalid("neuroglancer: triangles: %v", err)
	}
	if len(rest)%12 != 0 {
		return nil, textio.Invalid("neuroglancer: %d trailing bytes do not form triangles", len(rest))
	}
	tris := make([][]int, len(rest)/12)
	for i := range tris {
		tris[i] = make([]int, 3)
		for k := range tris[i] {
			tris[i][k] = int(binary.LittleEndian.Uint32(rest[12*i+4*k:]))
		}
	}
	cells := []mesh.CellBlock{{Type: "triangle", Data: tris}}
	if err := textio.CheckIndices(cells, len(points)); err != nil {
		return nil, err
	}
	return mesh.New(points, cells)
}

// Write writes m as a Neuroglancer precomputed mesh.
func Write(dst formats.Destination, m *mesh.Mesh, _ formats.Params, _ formats.Options) error {
	return textio.WriteDestination(dst, func(w io.Writer) error {
		return Encode(w, m)
	})
}

// Encode writes m to w. Only 3D points and triangle cells can be stored.
func Encode(w io.Writer, m *mesh.Mesh) error {
	if len(m.Points) > 0 && m.Dim() != 3 {
		return textio.Unsupported("neuroglancer needs 3D points, got %dD", m.Dim())
	}
	for _, b := range m.Cells {
		if b.Type != "triangle" {
			return textio.Unsupported("neuroglancer cannot store %s cells", b.Type)
		}
	}
	tw := textio.NewWriter(w)
	tw.Binary(binary.LittleEndian, uint32(len(m.Points)))
	coords := make([]float32, 0, 3*len(m.Points))
	for _, p := range m.Points {
		for _, v := range p {
			if math.Abs(v) > math.MaxFloat32 {
				return textio.Unsupported("neuroglancer: coordinate %g overflows float32", v)
			}
			coords = append(coords, float32(v))
		}
	}
	tw.Binary(binary.LittleEndian, coords)
	for _, b := range m.Cells {
		for _, row := range b.Data {
			tw.Binary(binary.LittleEndian, []uint32{uint32(row[0]), uint32(row[1]), uint32(row[2])})
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write neuroglancer: %w", err)
	}
	return nil
}
