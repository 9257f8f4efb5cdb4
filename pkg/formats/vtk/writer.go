package vtk

import (
	"encoding/binary"
	"io"
	"sort"
	"strings"

	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/formats/internal/textio"
	"github.com/matzehuels/meshio/pkg/mesh"
)

// Write writes m as a legacy VTK unstructured grid. p.Binary selects the
// encoding. The only option is "title" (header comment line).
func Write(dst formats.Destination, m *mesh.Mesh, p formats.Params, opts formats.Options) error {
	return textio.WriteDestination(dst, func(w io.Writer) error {
		return Encode(w, m, p.Binary, opts.String("title", "written by meshio"))
	})
}

// Encode writes m to w.
func Encode(w io.Writer, m *mesh.Mesh, binaryMode bool, title string) error {
	types := make([]int, len(m.Cells))
	for i, b := range m.Cells {
		id, ok := CellTypeID(b.Type)
		if !ok {
			return textio.Unsupported("vtk has no cell type for %q", b.Type)
		}
		types[i] = id
	}
	if err := checkNames(m); err != nil {
		return err
	}

	e := &encoder{w: textio.NewWriter(w), binary: binaryMode}
	e.w.Line("# vtk DataFile Version 4.2")
	e.w.Line(strings.ReplaceAll(title, "\n", " "))
	if binaryMode {
		e.w.Line("BINARY")
	} else {
		e.w.Line("ASCII")
	}
	e.w.Line("DATASET UNSTRUCTURED_GRID")

	if len(m.FieldData) > 0 {
		names := sortedNames(m.FieldData)
		e.w.Printf("FIELD FieldData %d\n", len(names))
		for _, name := range names {
			vals := m.FieldData[name]
			e.w.Printf("%s %d 1 double\n", name, len(vals))
			e.floats(vals, len(vals))
		}
	}

	pts := m.Points3D()
	e.w.Printf("POINTS %d double\n", len(pts))
	flat := make([]float64, 0, 3*len(pts))
	for _, p := range pts {
		flat = append(flat, p[0], p[1], p[2])
	}
	e.floats(flat, 3)

	ncells := m.NumCells()
	size := 0
	for _, b := range m.Cells {
		for _, row := range b.Data {
			size += len(row) + 1
		}
	}
	e.w.Printf("CELLS %d %d\n", ncells, size)
	conn := make([]int, 0, size)
	for _, b := range m.Cells {
		for _, row := range b.Data {
			conn = append(conn, len(row))
			conn = append(conn, row...)
		}
	}
	e.cellRows(m, conn)

	e.w.Printf("CELL_TYPES %d\n", ncells)
	ct := make([]int, 0, ncells)
	for i, b := range m.Cells {
		for range b.Data {
			ct = append(ct, types[i])
		}
	}
	e.ints(ct, 1)

	if len(m.PointData) > 0 {
		e.w.Printf("POINT_DATA %d\n", len(m.Points))
		names := sortedNames(m.PointData)
		e.w.Printf("FIELD FieldData %d\n", len(names))
		for _, name := range names {
			e.array(name, m.PointData[name])
		}
	}

	if len(m.CellData) > 0 {
		e.w.Printf("CELL_DATA %d\n", ncells)
		names := sortedNames(m.CellData)
		e.w.Printf("FIELD FieldData %d\n", len(names))
		for _, name := range names {
			var rows [][]float64
			for _, block := range m.CellData[name] {
				rows = append(rows, block...)
			}
			e.array(name, rows)
		}
	}
	return e.w.Flush()
}

type encoder struct {
	w      *textio.Writer
	binary bool
}

func (e *encoder) array(name string, rows [][]float64) {
	comps := 1
	if len(rows) > 0 {
		comps = len(rows[0])
	}
	e.w.Printf("%s %d %d double\n", name, comps, len(rows))
	flat := make([]float64, 0, comps*len(rows))
	for _, r := range rows {
		flat = append(flat, r...)
	}
	e.floats(flat, comps)
}

// floats writes vals, perRow values per text line in ASCII mode.
func (e *encoder) floats(vals []float64, perRow int) {
	if e.binary {
		e.w.Binary(binary.BigEndian, vals)
		e.w.Line("")
		return
	}
	if perRow <= 0 {
		perRow = 1
	}
	for i := 0; i < len(vals); i += perRow {
		e.w.Floats(vals[i:min(i+perRow, len(vals))], " ")
	}
}

func (e *encoder) ints(vals []int, perRow int) {
	if e.binary {
		buf := make([]int32, len(vals))
		for i, v := range vals {
			buf[i] = int32(v)
		}
		e.w.Binary(binary.BigEndian, buf)
		e.w.Line("")
		return
	}
	for i := 0; i < len(vals); i += perRow {
		e.w.Ints(vals[i:min(i+perRow, len(vals))], 0, " ")
	}
}

// cellRows writes the legacy "k i1 ... ik" connectivity, one cell per line
// in ASCII mode.
func (e *encoder) cellRows(m *mesh.Mesh, conn []int) {
	if e.binary {
		e.ints(conn, 0)
		return
	}
	i := 0
	for _, b := range m.Cells {
		for _, row := range b.Data {
			n := len(row) + 1
			e.w.Ints(conn[i:i+n], 0, " ")
			i += n
		}
	}
}

func checkNames(m *mesh.Mesh) error {
	var names []string
	for name := range m.PointData {
		names = append(names, name)
	}
	for name := range m.CellData {
		names = append(names, name)
	}
	for name := range m.FieldData {
		names = append(names, name)
	}
	for _, name := range names {
		if name == "" || strings.ContainsAny(name, " \t\n") {
			return textio.Unsupported("vtk array names cannot be empty or contain whitespace: %q", name)
		}
	}
	return nil
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
