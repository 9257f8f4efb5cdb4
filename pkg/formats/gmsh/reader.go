package gmsh

import (
	"encoding/binary"
	"io"
	"strings"

	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/formats/internal/textio"
	"github.com/matzehuels/meshio/pkg/mesh"
)

// Read reads a Gmsh file of any supported version and encoding.
func Read(src formats.Source) (*mesh.Mesh, error) {
	return textio.ReadSource(src, Decode)
}

type cellRef struct{ block, row int }

// dataArray is a $NodeData or $ElementData array keyed by node or
// element tag.
type dataArray struct {
	comps int
	rows  map[int][]float64
}

type decoder struct {
	tr       *textio.Reader
	version  int // 2 or 4
	binary   bool
	dataSize int
	order    binary.ByteOrder

	points   [][]float64
	nodeIdx  map[int]int
	blocks   textio.Blocks
	tags     [][][2]float64 // per block and cell: physical, geometrical
	elemIdx  map[int]cellRef
	entities map[[2]int]int // (dim, tag) -> first physical tag
	names    map[string][]float64
	nodeData map[string]*dataArray
	elemData map[string]*dataArray
}

// Decode parses a Gmsh stream. Unknown sections are skipped.
func Decode(r io.Reader) (*mesh.Mesh, error) {
	d := &decoder{
		tr:       textio.NewReader(r),
		order:    binary.LittleEndian,
		nodeIdx:  map[int]int{},
		elemIdx:  map[int]cellRef{},
		entities: map[[2]int]int{},
		nodeData: map[string]*dataArray{},
		elemData: map[string]*dataArray{},
	}
	for {
		tok, err := d.tr.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, d.tr.Wrap(err, "read section")
		}
		if !strings.HasPrefix(tok, "$") {
			return nil, d.tr.Errorf("expected a section, got %q", tok)
		}
		name := tok[1:]
		if d.version == 0 && name != "MeshFormat" {
			return nil, d.tr.Errorf("$%s before $MeshFormat", name)
		}
		switch name {
		case "MeshFormat":
			err = d.readFormat()
		case "PhysicalNames":
			err = d.readPhysicalNames()
		case "Entities":
			if d.version == 4 {
				err = d.readEntities()
			} else {
				err = d.skip(name)
			}
		case "Nodes":
			if d.version == 4 {
				err = d.readNodes4()
			} else {
				err = d.readNodes2()
			}
		case "Elements":
			if d.version == 4 {
				err = d.readElements4()
			} else {
				err = d.readElements2()
			}
		case "NodeData":
			err = d.readData(d.nodeData)
		case "ElementData":
			err = d.readData(d.elemData)
		default:
			if err := d.skip(name); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := d.expectEnd(name); err != nil {
			return nil, err
		}
	}
	if d.version == 0 {
		return nil, textio.Invalid("missing $MeshFormat")
	}
	return d.mesh()
}

func (d *decoder) expectEnd(name string) error {
	tok, err := d.tr.Token()
	if err != nil {
		return d.tr.Wrap(err, "expected $End%s", name)
	}
	if tok != "$End"+name {
		return d.tr.Errorf("expected $End%s, got %q", name, tok)
	}
	return nil
}

func (d *decoder) skip(name string) error {
	for {
		tok, err := d.tr.Token()
		if err != nil {
			return d.tr.Wrap(err, "unterminated $%s", name)
		}
		if tok == "$End"+name {
			return nil
		}
	}
}

// values returns a reader for the section body. In binary files the body
// starts on the line after the last consumed token.
func (d *decoder) values() values {
	if !d.binary {
		return asciiValues{d.tr}
	}
	return &binaryValues{br: d.tr.Binary(), order: d.order, dataSize: d.dataSize}
}

func (d *decoder) readFormat() error {
	ver, err := d.tr.Token()
	if err != nil {
		return d.tr.Wrap(err, "read version")
	}
	head, err := d.tr.Ints(2)
	if err != nil {
		return err
	}
	switch {
	case ver == "2" || strings.HasPrefix(ver, "2."):
		d.version = 2
	case ver == "4.1":
		d.version = 4
	default:
		return textio.Unsupported("gmsh version %s is not supported", ver)
	}
	d.binary = head[0] == 1
	d.dataSize = head[1]
	if d.dataSize != 8 && (d.version == 2 || d.dataSize != 4) {
		return textio.Unsupported("gmsh data size %d is not supported", d.dataSize)
	}
	if !d.binary {
		return nil
	}
	var one [4]byte
	if _, err := io.ReadFull(d.tr.Binary(), one[:]); err != nil {
		return textio.Invalid("read endianness marker: %v", err)
	}
	switch {
	case binary.LittleEndian.Uint32(one[:]) == 1:
		d.order = binary.LittleEndian
	case binary.BigEndian.Uint32(one[:]) == 1:
		d.order = binary.BigEndian
	default:
		return textio.Invalid("invalid endianness marker % x", one)
	}
	return nil
}

func (d *decoder) readPhysicalNames() error {
	n, err := d.tr.Count("physical name")
	if err != nil {
		return err
	}
	if d.names == nil {
		d.names = make(map[string][]float64)
	}
	for i := 0; i < n; i++ {
		head, err := d.tr.Ints(2)
		if err != nil {
			return err
		}
		rest := d.tr.Rest()
		if len(rest) == 0 {
			return d.tr.Errorf("physical name without a name")
		}
		name := strings.Trim(strings.Join(rest, " "), `"`)
		d.names[name] = []float64{float64(head[1]), float64(head[0])}
	}
	return nil
}

func (d *decoder) addNode(tag int, p []float64) {
	d.nodeIdx[tag] = len(d.points)
	d.points = append(d.points, p)
}

func (d *decoder) addCell(et elementType, tag int, nodes []int, physical, geometrical int) error {
	row := make([]int, len(nodes))
	for i, n := range nodes {
		idx, ok := d.nodeIdx[n]
		if !ok {
			return textio.Invalid("element %d references unknown node %d", tag, n)
		}
		row[i] = idx
	}
	r := d.blocks.Add(et.cellType, row)
	b := d.blocks.Index(et.cellType)
	for len(d.tags) <= b {
		d.tags = append(d.tags, nil)
	}
	d.tags[b] = append(d.tags[b], [2]float64{float64(physical), float64(geometrical)})
	d.elemIdx[tag] = cellRef{b, r}
	return nil
}

func lookupType(num int) (elementType, error) {
	et, ok := elementTypes[num]
	if !ok {
		return elementType{}, textio.Unsupported("gmsh element type %d is not supported", num)
	}
	return et, nil
}

func (d *decoder) readNodes2() error {
	n, err := d.tr.Int()
	if err != nil {
		return err
	}
	v := d.values()
	for i := 0; i < n; i++ {
		tag, err := v.integer()
		if err != nil {
			return err
		}
		p := make([]float64, 3)
		for c := range p {
			if p[c], err = v.float(); err != nil {
				return err
			}
		}
		d.addNode(tag, p)
	}
	return nil
}

func (d *decoder) readElements2() error {
	n, err := d.tr.Int()
	if err != nil {
		return err
	}
	v := d.values()
	if !d.binary {
		for i := 0; i < n; i++ {
			head, err := readN(3, v.integer)
			if err != nil {
				return err
			}
			if err := d.readElement2(v, head[0], head[1], head[2]); err != nil {
				return err
			}
		}
		return nil
	}
	// Binary elements come in blocks of equal type and tag count.
	for read := 0; read < n; {
		head, err := readN(3, v.integer)
		if err != nil {
			return err
		}
		if head[1] <= 0 {
			return textio.Invalid("binary element block of %d elements", head[1])
		}
		for j := 0; j < head[1]; j++ {
			tag, err := v.integer()
			if err != nil {
				return err
			}
			if err := d.readElement2(v, tag, head[0], head[2]); err != nil {
				return err
			}
		}
		read += head[1]
	}
	return nil
}

func (d *decoder) readElement2(v values, tag, typ, ntags int) error {
	et, err := lookupType(typ)
	if err != nil {
		return err
	}
	tags, err := readN(ntags, v.integer)
	if err != nil {
		return err
	}
	nodes, err := readN(et.nodes, v.integer)
	if err != nil {
		return err
	}
	var physical, geometrical int
	if len(tags) > 0 {
		physical = tags[0]
	}
	if len(tags) > 1 {
		geometrical = tags[1]
	}
	return d.addCell(et, tag, nodes, physical, geometrical)
}

func (d *decoder) readEntities() error {
	v := d.values()
	counts, err := readN(4, v.size)
	if err != nil {
		return err
	}
	for dim, n := range counts {
		for i := 0; i < n; i++ {
			tag, err := v.integer()
			if err != nil {
				return err
			}
			box := 6
			if dim == 0 {
				box = 3
			}
			for j := 0; j < box; j++ {
				if _, err := v.float(); err != nil {
					return err
				}
			}
			nphys, err := v.size()
			if err != nil {
				return err
			}
			phys, err := readN(nphys, v.integer)
			if err != nil {
				return err
			}
			if dim > 0 {
				nbound, err := v.size()
				if err != nil {
					return err
				}
				if _, err := readN(nbound, v.integer); err != nil {
					return err
				}
			}
			if len(phys) > 0 {
				d.entities[[2]int{dim, tag}] = phys[0]
			}
		}
	}
	return nil
}

func (d *decoder) readNodes4() error {
	v := d.values()
	head, err := readN(4, v.size)
	if err != nil {
		return err
	}
	for b := 0; b < head[0]; b++ {
		block, err := readN(3, v.integer)
		if err != nil {
			return err
		}
		n, err := v.size()
		if err != nil {
			return err
		}
		tags, err := readN(n, v.size)
		if err != nil {
			return err
		}
		extra := 0
		if block[2] == 1 {
			if block[0] < 0 || block[0] > 3 {
				return textio.Invalid("node block of entity dimension %d", block[0])
			}
			extra = block[0]
		}
		for _, tag := range tags {
			p := make([]float64, 3+extra)
			for c := range p {
				if p[c], err = v.float(); err != nil {
					return err
				}
			}
			d.addNode(tag, p[:3])
		}
	}
	return nil
}

func (d *decoder) readElements4() error {
	v := d.values()
	head, err := readN(4, v.size)
	if err != nil {
		return err
	}
	for b := 0; b < head[0]; b++ {
		block, err := readN(3, v.integer)
		if err != nil {
			return err
		}
		n, err := v.size()
		if err != nil {
			return err
		}
		et, err := lookupType(block[2])
		if err != nil {
			return err
		}
		physical := d.entities[[2]int{block[0], block[1]}]
		for j := 0; j < n; j++ {
			row, err := readN(1+et.nodes, v.size)
			if err != nil {
				return err
			}
			if err := d.addCell(et, row[0], row[1:], physical, block[1]); err != nil {
				return err
			}
		}
	}
	return nil
}

// readData reads a $NodeData or $ElementData section. Only the last
// time step of an array name is kept.
func (d *decoder) readData(into map[string]*dataArray) error {
	nstr, err := d.tr.Int()
	if err != nil {
		return err
	}
	var name string
	for i := 0; i < nstr; i++ {
		s, err := d.tr.NextLine()
		if err != nil {
			return d.tr.Wrap(err, "read string tag")
		}
		if i == 0 {
			name = strings.Trim(s, `"`)
		}
	}
	if name == "" {
		return d.tr.Errorf("data section without a name")
	}
	nreal, err := d.tr.Int()
	if err != nil {
		return err
	}
	if _, err := d.tr.Floats(nreal); err != nil {
		return err
	}
	nint, err := d.tr.Int()
	if err != nil {
		return err
	}
	itags, err := d.tr.Ints(nint)
	if err != nil {
		return err
	}
	if len(itags) < 3 {
		return d.tr.Errorf("data section %q needs 3 integer tags, got %d", name, len(itags))
	}
	if itags[1] < 1 || itags[1] > 9 {
		return d.tr.Errorf("data section %q has %d components", name, itags[1])
	}
	arr := &dataArray{comps: itags[1], rows: make(map[int][]float64)}
	v := d.values()
	for i := 0; i < itags[2]; i++ {
		tag, err := v.integer()
		if err != nil {
			return err
		}
		row := make([]float64, arr.comps)
		for c := range row {
			if row[c], err = v.float(); err != nil {
				return err
			}
		}
		arr.rows[tag] = row
	}
	into[name] = arr
	return nil
}

func (d *decoder) mesh() (*mesh.Mesh, error) {
	cells := d.blocks.Cells()
	var opts []mesh.Option
	if len(cells) > 0 {
		physical := make([][][]float64, len(cells))
		geometrical := make([][][]float64, len(cells))
		for b, rows := range d.tags {
			physical[b] = make([][]float64, len(rows))
			geometrical[b] = make([][]float64, len(rows))
			for i, t := range rows {
				physical[b][i] = []float64{t[0]}
				geometrical[b][i] = []float64{t[1]}
			}
		}
		cellData := map[string][][][]float64{
			PhysicalKey:    physical,
			GeometricalKey: geometrical,
		}
		for name, arr := range d.elemData {
			per := make([][][]float64, len(cells))
			for b, c := range cells {
				per[b] = zeros(c.Len(), arr.comps)
			}
			for tag, row := range arr.rows {
				ref, ok := d.elemIdx[tag]
				if !ok {
					return nil, textio.Invalid("element data %q references unknown element %d", name, tag)
				}
				per[ref.block][ref.row] = row
			}
			cellData[name] = per
		}
		opts = append(opts, mesh.WithCellData(cellData))
	}
	if len(d.nodeData) > 0 {
		pointData := make(map[string][][]float64, len(d.nodeData))
		for name, arr := range d.nodeData {
			rows := zeros(len(d.points), arr.comps)
			for tag, row := range arr.rows {
				idx, ok := d.nodeIdx[tag]
				if !ok {
					return nil, textio.Invalid("node data %q references unknown node %d", name, tag)
				}
				rows[idx] = row
			}
			pointData[name] = rows
		}
		opts = append(opts, mesh.WithPointData(pointData))
	}
	if len(d.names) > 0 {
		opts = append(opts, mesh.WithFieldData(d.names))
	}
	return mesh.New(d.points, cells, opts...)
}

func zeros(n, comps int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, comps)
	}
	return out
}
