package gmsh

import (
	"encoding/binary"
	"io"
	"sort"

	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/formats/internal/textio"
	"github.com/matzehuels/meshio/pkg/mesh"
)

// Write writes m as Gmsh. p.Version selects MSH 2.2 ("2") or 4.1 ("4");
// p.Binary selects binary encoding.
func Write(dst formats.Destination, m *mesh.Mesh, p formats.Params, _ formats.Options) error {
	return textio.WriteDestination(dst, func(w io.Writer) error {
		return Encode(w, m, p.Version, p.Binary)
	})
}

type encoder struct {
	tw      *textio.Writer
	m       *mesh.Mesh
	binary  bool
	offsets []int // first element tag of each block
}

// Binary files are written little-endian.
var byteOrder = binary.LittleEndian

// Encode writes m to w. An empty version means "4".
func Encode(w io.Writer, m *mesh.Mesh, version string, binaryMode bool) error {
	for _, b := range m.Cells {
		if _, ok := typeNumbers[b.Type]; !ok {
			return textio.Unsupported("gmsh cannot store %s cells", b.Type)
		}
	}
	e := &encoder{tw: textio.NewWriter(w), m: m, binary: binaryMode}
	tag := 1
	for _, b := range m.Cells {
		e.offsets = append(e.offsets, tag)
		tag += b.Len()
	}

	switch version {
	case "2":
		e.format("2.2")
		e.physicalNames()
		e.nodes2()
		e.elements2()
	case "4", "":
		e.format("4.1")
		e.physicalNames()
		runs := e.runs()
		e.entities(runs)
		e.nodes4(runs)
		e.elements4(runs)
	default:
		return textio.Unsupported("gmsh version %q is not supported", version)
	}
	e.nodeData()
	e.elementData()
	return e.tw.Flush()
}

func (e *encoder) section(name string, body func()) {
	e.tw.Line("$" + name)
	body()
	if e.binary {
		e.tw.Line("")
	}
	e.tw.Line("$End" + name)
}

func (e *encoder) format(version string) {
	e.tw.Line("$MeshFormat")
	if e.binary {
		e.tw.Line(version + " 1 8")
		e.tw.Binary(byteOrder, int32(1))
		e.tw.Line("")
	} else {
		e.tw.Line(version + " 0 8")
	}
	e.tw.Line("$EndMeshFormat")
}

// physicalNames writes field data entries of the form [tag, dim].
func (e *encoder) physicalNames() {
	var names []string
	for _, name := range sortedKeys(e.m.FieldData) {
		if len(e.m.FieldData[name]) == 2 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return
	}
	e.tw.Line("$PhysicalNames")
	e.tw.Printf("%d\n", len(names))
	for _, name := range names {
		v := e.m.FieldData[name]
		e.tw.Printf("%d %d \"%s\"\n", int(v[1]), int(v[0]), name)
	}
	e.tw.Line("$EndPhysicalNames")
}

// tag returns the element tag stored in cell data key for cell i of
// block b, or 0.
func (e *encoder) tag(key string, b, i int) int {
	data, ok := e.m.CellData[key]
	if !ok || len(data[b][i]) == 0 {
		return 0
	}
	return int(data[b][i][0])
}

func (e *encoder) nodes2() {
	e.section("Nodes", func() {
		e.tw.Printf("%d\n", len(e.m.Points))
		for i, p := range e.m.Points3D() {
			if e.binary {
				e.tw.Binary(byteOrder, int32(i+1))
				e.tw.Binary(byteOrder, p)
				continue
			}
			e.tw.Printf("%d ", i+1)
			e.tw.Floats(p[:], " ")
		}
	})
}

func (e *encoder) elements2() {
	e.section("Elements", func() {
		e.tw.Printf("%d\n", e.m.NumCells())
		for b, block := range e.m.Cells {
			num := typeNumbers[block.Type]
			if e.binary && block.Len() > 0 {
				e.tw.Binary(byteOrder, []int32{int32(num), int32(block.Len()), 2})
			}
			row := make([]int, 0, 5+block.Width())
			for i, cell := range block.Data {
				id := e.offsets[b] + i
				phys, geom := e.tag(PhysicalKey, b, i), e.tag(GeometricalKey, b, i)
				if e.binary {
					row = append(row[:0], id, phys, geom)
					for _, n := range cell {
						row = append(row, n+1)
					}
					e.tw.Binary(byteOrder, int32s(row))
					continue
				}
				row = append(row[:0], id, num, 2, phys, geom)
				for _, n := range cell {
					row = append(row, n+1)
				}
				e.tw.Ints(row, 0, " ")
			}
		}
	})
}

// run is a stretch of consecutive cells of one block sharing a
// geometrical tag. MSH 4 stores elements per entity, and splitting
// blocks into runs keeps the element order intact.
type run struct {
	block      int
	start, end int
	dim, tag   int
}

func (e *encoder) runs() []run {
	var out []run
	for b, block := range e.m.Cells {
		dim := max(mesh.TopologicalDim(block.Type), 0)
		for i := range block.Data {
			tag := e.tag(GeometricalKey, b, i)
			if n := len(out); n > 0 && out[n-1].block == b && out[n-1].tag == tag {
				out[n-1].end = i + 1
				continue
			}
			out = append(out, run{block: b, start: i, end: i + 1, dim: dim, tag: tag})
		}
	}
	return out
}

type entity struct {
	dim, tag int
	physical []int
}

func (e *encoder) entities(runs []run) {
	if len(runs) == 0 {
		return
	}
	var list []*entity
	index := map[[2]int]*entity{}
	for _, r := range runs {
		key := [2]int{r.dim, r.tag}
		ent, ok := index[key]
		if !ok {
			ent = &entity{dim: r.dim, tag: r.tag}
			index[key] = ent
			list = append(list, ent)
		}
		for i := r.start; i < r.end; i++ {
			p := e.tag(PhysicalKey, r.block, i)
			if p != 0 && !contains(ent.physical, p) {
				ent.physical = append(ent.physical, p)
			}
		}
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].dim < list[j].dim })
	var counts [4]int
	for _, ent := range list {
		counts[ent.dim]++
	}

	e.section("Entities", func() {
		if e.binary {
			e.tw.Binary(byteOrder, []uint64{uint64(counts[0]), uint64(counts[1]), uint64(counts[2]), uint64(counts[3])})
		} else {
			e.tw.Printf("%d %d %d %d\n", counts[0], counts[1], counts[2], counts[3])
		}
		for _, ent := range list {
			box := 6
			if ent.dim == 0 {
				box = 3
			}
			if e.binary {
				e.tw.Binary(byteOrder, int32(ent.tag))
				e.tw.Binary(byteOrder, make([]float64, box))
				e.tw.Binary(byteOrder, uint64(len(ent.physical)))
				e.tw.Binary(byteOrder, int32s(ent.physical))
				if ent.dim > 0 {
					e.tw.Binary(byteOrder, uint64(0))
				}
				continue
			}
			row := []int{ent.tag}
			row = append(row, make([]int, box)...)
			row = append(row, len(ent.physical))
			row = append(row, ent.physical...)
			if ent.dim > 0 {
				row = append(row, 0)
			}
			e.tw.Ints(row, 0, " ")
		}
	})
}

func (e *encoder) nodes4(runs []run) {
	n := len(e.m.Points)
	dim := 0
	for _, r := range runs {
		dim = max(dim, r.dim)
	}
	e.section("Nodes", func() {
		if n == 0 {
			e.header(0, 0, 0, 0)
			return
		}
		e.header(1, n, 1, n)
		if e.binary {
			e.tw.Binary(byteOrder, []int32{int32(dim), 1, 0})
			e.tw.Binary(byteOrder, uint64(n))
			tags := make([]uint64, n)
			for i := range tags {
				tags[i] = uint64(i + 1)
			}
			e.tw.Binary(byteOrder, tags)
			e.tw.Binary(byteOrder, e.m.Points3D())
			return
		}
		e.tw.Printf("%d 1 0 %d\n", dim, n)
		for i := 1; i <= n; i++ {
			e.tw.Printf("%d\n", i)
		}
		for _, p := range e.m.Points3D() {
			e.tw.Floats(p[:], " ")
		}
	})
}

func (e *encoder) elements4(runs []run) {
	total := e.m.NumCells()
	e.section("Elements", func() {
		if total == 0 {
			e.header(0, 0, 0, 0)
			return
		}
		e.header(len(runs), total, 1, total)
		for _, r := range runs {
			block := e.m.Cells[r.block]
			num := typeNumbers[block.Type]
			count := r.end - r.start
			if e.binary {
				e.tw.Binary(byteOrder, []int32{int32(r.dim), int32(r.tag), int32(num)})
				e.tw.Binary(byteOrder, uint64(count))
			} else {
				e.tw.Printf("%d %d %d %d\n", r.dim, r.tag, num, count)
			}
			row := make([]int, 0, 1+block.Width())
			for i := r.start; i < r.end; i++ {
				row = append(row[:0], e.offsets[r.block]+i)
				for _, n := range block.Data[i] {
					row = append(row, n+1)
				}
				if e.binary {
					e.tw.Binary(byteOrder, uint64s(row))
				} else {
					e.tw.Ints(row, 0, " ")
				}
			}
		}
	})
}

// header writes a four-number MSH 4 section header.
func (e *encoder) header(a, b, c, d int) {
	if e.binary {
		e.tw.Binary(byteOrder, []uint64{uint64(a), uint64(b), uint64(c), uint64(d)})
		return
	}
	e.tw.Printf("%d %d %d %d\n", a, b, c, d)
}

func (e *encoder) data(section, name string, rows [][]float64, tags func(i int) int) {
	comps := 0
	if len(rows) > 0 {
		comps = len(rows[0])
	}
	e.tw.Line("$" + section)
	e.tw.Printf("1\n\"%s\"\n1\n0.0\n3\n0\n%d\n%d\n", name, comps, len(rows))
	for i, row := range rows {
		if e.binary {
			e.tw.Binary(byteOrder, int32(tags(i)))
			e.tw.Binary(byteOrder, row)
			continue
		}
		e.tw.Printf("%d ", tags(i))
		e.tw.Floats(row, " ")
	}
	if e.binary {
		e.tw.Line("")
	}
	e.tw.Line("$End" + section)
}

func (e *encoder) nodeData() {
	for _, name := range sortedKeys(e.m.PointData) {
		e.data("NodeData", name, e.m.PointData[name], func(i int) int { return i + 1 })
	}
}

func (e *encoder) elementData() {
	for _, name := range sortedKeys(e.m.CellData) {
		if name == PhysicalKey || name == GeometricalKey {
			continue
		}
		var rows [][]float64
		var tags []int
		for b, block := range e.m.CellData[name] {
			for i, row := range block {
				rows = append(rows, row)
				tags = append(tags, e.offsets[b]+i)
			}
		}
		e.data("ElementData", name, rows, func(i int) int { return tags[i] })
	}
}

func int32s(v []int) []int32 {
	out := make([]int32, len(v))
	for i, x := range v {
		out[i] = int32(x)
	}
	return out
}

func uint64s(v []int) []uint64 {
	out := make([]uint64, len(v))
	for i, x := range v {
		out[i] = uint64(x)
	}
	return out
}

func contains(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
