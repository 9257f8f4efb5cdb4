package ansys

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/formats/internal/textio"
	"github.com/matzehuels/meshio/pkg/mesh"
)

// Write writes m as a Fluent mesh file; p.Binary selects binary bodies.
func Write(dst formats.Destination, m *mesh.Mesh, p formats.Params, _ formats.Options) error {
	return textio.WriteDestination(dst, func(w io.Writer) error {
		return Encode(w, m, p.Binary)
	})
}

// Encode writes m to w. Cells are stored with their connectivity in cell
// sections, one zone per block.
func Encode(w io.Writer, m *mesh.Mesh, binaryMode bool) error {
	for _, b := range m.Cells {
		if _, ok := elementNumbers[b.Type]; !ok {
			return textio.Unsupported("ansys cannot store %s cells", b.Type)
		}
	}
	dim := m.Dim()
	if len(m.Points) > 0 && dim != 2 && dim != 3 {
		return textio.Unsupported("ansys cannot store %dD points", dim)
	}
	if dim == 0 {
		dim = 3
	}

	tw := textio.NewWriter(w)
	tw.Line(`(1 "written by meshio")`)
	tw.Printf("(2 %d)\n", dim)
	tw.Printf("(10 (0 1 %x 0))\n", len(m.Points))
	tw.Printf("(12 (0 1 %x 0))\n", m.NumCells())

	key := "10"
	if binaryMode {
		key = "3010"
	}
	if len(m.Points) > 0 {
		tw.Printf("(%s (1 1 %x 1 %x)(\n", key, len(m.Points), dim)
		if binaryMode {
			buf := make([]byte, 8)
			for _, p := range m.Points {
				for _, v := range p {
					binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
					tw.Raw(buf)
				}
			}
			tw.Printf("\n)End of Binary Section %s)\n", key)
		} else {
			for _, p := range m.Points {
				tw.Floats(p, " ")
			}
			tw.Line("))")
		}
	}

	key = "12"
	if binaryMode {
		key = "2012"
	}
	first := 1
	for i, b := range m.Cells {
		if b.Len() == 0 {
			continue
		}
		last := first + b.Len() - 1
		tw.Printf("(%s (%x %x %x 1 %x)(\n", key, i+2, first, last, elementNumbers[b.Type])
		if binaryMode {
			buf := make([]byte, 4)
			for _, row := range b.Data {
				for _, v := range row {
					binary.LittleEndian.PutUint32(buf, uint32(int32(v+1)))
					tw.Raw(buf)
				}
			}
			tw.Printf("\n)End of Binary Section %s)\n", key)
		} else {
			for _, row := range b.Data {
				tw.Line(hexRow(row))
			}
			tw.Line("))")
		}
		first = last + 1
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write ansys: %w", err)
	}
	return nil
}

// hexRow formats 0-based node indices as 1-based hex numbers.
func hexRow(row []int) string {
	b := make([]byte, 0, 4*len(row))
	for i, v := range row {
		if i > 0 {
			b = append(b, ' ')
		}
		b = fmt.Appendf(b, "%x", v+1)
	}
	return string(b)
}
