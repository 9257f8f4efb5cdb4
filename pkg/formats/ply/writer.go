package ply

import (
	"encoding/binary"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/formats/internal/textio"
	"github.com/matzehuels/meshio/pkg/mesh"
)

// Write writes m as PLY. p.Binary selects little-endian binary encoding.
func Write(dst formats.Destination, m *mesh.Mesh, p formats.Params, _ formats.Options) error {
	return textio.WriteDestination(dst, func(w io.Writer) error {
		return Encode(w, m, p.Binary)
	})
}

type column struct {
	name string
	get  func(i int) float64
}

// Encode writes m to w. Multi-component point data arrays are split into
// one property per component, suffixed "_0", "_1", ...
func Encode(w io.Writer, m *mesh.Mesh, binaryMode bool) error {
	nfaces := 0
	for _, b := range m.Cells {
		if b.Type != "triangle" && b.Type != "quad" && !strings.HasPrefix(b.Type, "polygon") {
			return textio.Unsupported("ply cannot store %s cells", b.Type)
		}
		if b.Width() > 255 {
			return textio.Unsupported("ply faces are limited to 255 vertices")
		}
		nfaces += b.Len()
	}

	dim := m.Dim()
	if dim < 2 && len(m.Points) > 0 {
		return textio.Unsupported("ply needs at least two coordinates per point")
	}
	naxes := min(dim, 3)
	if len(m.Points) == 0 {
		naxes = 3
	}
	var vcols []column
	for c, axis := range []string{"x", "y", "z"}[:naxes] {
		vcols = append(vcols, column{axis, func(i int) float64 { return m.Points[i][c] }})
	}
	for _, name := range sortedKeys(m.PointData) {
		data := m.PointData[name]
		comps := 1
		if len(data) > 0 {
			comps = len(data[0])
		}
		for c := 0; c < comps; c++ {
			col := name
			if comps > 1 {
				col = name + "_" + strconv.Itoa(c)
			}
			vcols = append(vcols, column{col, func(i int) float64 { return data[i][c] }})
		}
	}

	// Cell data is flattened in block order to match the face order.
	var fcols []column
	for _, name := range sortedKeys(m.CellData) {
		var flat []float64
		scalar := true
		for _, block := range m.CellData[name] {
			for _, row := range block {
				if len(row) != 1 {
					scalar = false
				}
				if len(row) > 0 {
					flat = append(flat, row[0])
				}
			}
		}
		if !scalar {
			continue
		}
		fcols = append(fcols, column{name, func(i int) float64 { return flat[i] }})
	}

	tw := textio.NewWriter(w)
	tw.Line("ply")
	if binaryMode {
		tw.Line("format binary_little_endian 1.0")
	} else {
		tw.Line("format ascii 1.0")
	}
	tw.Line("comment written by meshio")
	tw.Printf("element vertex %d\n", len(m.Points))
	for _, c := range vcols {
		tw.Printf("property double %s\n", c.name)
	}
	if nfaces > 0 {
		tw.Printf("element face %d\n", nfaces)
		tw.Line("property list uchar int vertex_indices")
		for _, c := range fcols {
			tw.Printf("property double %s\n", c.name)
		}
	}
	tw.Line("end_header")

	row := make([]float64, len(vcols))
	for i := range m.Points {
		for j, c := range vcols {
			row[j] = c.get(i)
		}
		if binaryMode {
			tw.Binary(binary.LittleEndian, row)
		} else {
			tw.Floats(row, " ")
		}
	}

	face := 0
	for _, b := range m.Cells {
		for _, cell := range b.Data {
			if binaryMode {
				tw.Binary(binary.LittleEndian, uint8(len(cell)))
				idx := make([]int32, len(cell))
				for k, v := range cell {
					idx[k] = int32(v)
				}
				tw.Binary(binary.LittleEndian, idx)
				for _, c := range fcols {
					tw.Binary(binary.LittleEndian, c.get(face))
				}
			} else {
				tw.Printf("%d ", len(cell))
				if len(fcols) == 0 {
					tw.Ints(cell, 0, " ")
				} else {
					for k, v := range cell {
						if k > 0 {
							tw.Printf(" ")
						}
						tw.Printf("%d", v)
					}
					for _, c := range fcols {
						tw.Printf(" %s", textio.FormatFloat(c.get(face)))
					}
					tw.Line("")
				}
			}
			face++
		}
	}
	return tw.Flush()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
