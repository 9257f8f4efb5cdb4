package vtk

import (
	"encoding/binary"
	"io"
	"math"
	"strings"

	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/formats/internal/textio"
	"github.com/matzehuels/meshio/pkg/mesh"
)

// Read reads a legacy VTK unstructured grid.
func Read(src formats.Source) (*mesh.Mesh, error) {
	return textio.ReadSource(src, func(r io.Reader) (*mesh.Mesh, error) {
		return Decode(r)
	})
}

type dataType struct {
	size  int
	kind  byte // 'i' signed, 'u' unsigned, 'f' float
	label string
}

var dataTypes = map[string]dataType{
	"unsigned_char":  {1, 'u', "unsigned_char"},
	"char":           {1, 'i', "char"},
	"unsigned_short": {2, 'u', "unsigned_short"},
	"short":          {2, 'i', "short"},
	"unsigned_int":   {4, 'u', "unsigned_int"},
	"int":            {4, 'i', "int"},
	"unsigned_long":  {8, 'u', "unsigned_long"},
	"long":           {8, 'i', "long"},
	"float":          {4, 'f', "float"},
	"double":         {8, 'f', "double"},
	"vtktypeint32":   {4, 'i', "vtktypeint32"},
	"vtktypeuint32":  {4, 'u', "vtktypeuint32"},
	"vtktypeint64":   {8, 'i', "vtktypeint64"},
	"vtktypeuint64":  {8, 'u', "vtktypeuint64"},
	"vtkidtype":      {8, 'i', "vtkidtype"},
}

type section int

const (
	sectionDataset section = iota
	sectionPoint
	sectionCell
)

type decoder struct {
	tr      *textio.Reader
	binary  bool
	version string

	points    [][]float64
	offsets   []int
	conn      []int
	types     []int
	section   section
	pointData map[string][][]float64
	cellData  map[string][]float64
	cellComps map[string]int
	fieldData map[string][]float64
}

// Decode parses a legacy VTK stream.
func Decode(r io.Reader) (*mesh.Mesh, error) {
	tr := textio.NewReader(r)
	head, err := tr.Line()
	if err != nil {
		return nil, tr.Wrap(err, "missing header")
	}
	if !strings.HasPrefix(head, "# vtk DataFile Version") {
		return nil, tr.Errorf("not a legacy VTK file: %q", head)
	}
	d := &decoder{
		tr:        tr,
		version:   strings.TrimSpace(strings.TrimPrefix(head, "# vtk DataFile Version")),
		pointData: make(map[string][][]float64),
		cellData:  make(map[string][]float64),
		cellComps: make(map[string]int),
		fieldData: make(map[string][]float64),
	}
	if _, err := tr.Line(); err != nil { // title
		return nil, tr.Wrap(err, "missing title")
	}
	mode, err := tr.NextLine()
	if err != nil {
		return nil, tr.Wrap(err, "missing encoding")
	}
	switch strings.ToUpper(mode) {
	case "ASCII":
	case "BINARY":
		d.binary = true
	default:
		return nil, tr.Errorf("unknown encoding %q", mode)
	}

	for {
		tok, err := tr.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, tr.Wrap(err, "read keyword")
		}
		if err := d.keyword(strings.ToUpper(tok)); err != nil {
			return nil, err
		}
	}
	return d.mesh()
}

func (d *decoder) keyword(kw string) error {
	tr := d.tr
	switch kw {
	case "DATASET":
		kind, err := tr.Token()
		if err != nil {
			return tr.Wrap(err, "read dataset type")
		}
		if strings.ToUpper(kind) != "UNSTRUCTURED_GRID" {
			return textio.Unsupported("vtk dataset type %s is not supported", kind)
		}
	case "POINTS":
		n, dt, err := d.countAndType()
		if err != nil {
			return err
		}
		total, err := d.product(n, 3)
		if err != nil {
			return err
		}
		vals, err := d.values(total, dt)
		if err != nil {
			return err
		}
		d.points = rows(vals, 3)
	case "CELLS":
		n, err := tr.Int()
		if err != nil {
			return err
		}
		size, err := tr.Int()
		if err != nil {
			return err
		}
		tr.Rest()
		if strings.HasPrefix(d.version, "5") {
			return d.cells51(n, size)
		}
		vals, err := d.values(size, dataTypes["int"])
		if err != nil {
			return err
		}
		if err := d.splitLegacy(n, toInts(vals)); err != nil {
			return err
		}
	case "CELL_TYPES":
		n, err := tr.Int()
		if err != nil {
			return err
		}
		tr.Rest()
		vals, err := d.values(n, dataTypes["int"])
		if err != nil {
			return err
		}
		d.types = toInts(vals)
	case "POINT_DATA":
		if _, err := tr.Int(); err != nil {
			return err
		}
		tr.Rest()
		d.section = sectionPoint
	case "CELL_DATA":
		if _, err := tr.Int(); err != nil {
			return err
		}
		tr.Rest()
		d.section = sectionCell
	case "FIELD":
		return d.field()
	case "SCALARS":
		return d.scalars()
	case "VECTORS", "NORMALS":
		name, err := tr.Token()
		if err != nil {
			return tr.Wrap(err, "read %s name", kw)
		}
		dt, err := d.dataType()
		if err != nil {
			return err
		}
		tr.Rest()
		return d.array(name, 3, dt)
	case "METADATA":
		for {
			s, err := tr.Line()
			if err != nil || strings.TrimSpace(s) == "" {
				return nil
			}
		}
	default:
		return tr.Errorf("unexpected keyword %q", kw)
	}
	return nil
}

// cells51 reads the OFFSETS/CONNECTIVITY pair of format 5.x, whose CELLS
// line announces the offsets and connectivity lengths.
func (d *decoder) cells51(numOffsets, numConn int) error {
	tr := d.tr
	for _, want := range []string{"OFFSETS", "CONNECTIVITY"} {
		tok, err := tr.Token()
		if err != nil {
			return tr.Wrap(err, "expected %s", want)
		}
		if strings.ToUpper(tok) != want {
			return tr.Errorf("expected %s, got %q", want, tok)
		}
		dt, err := d.dataType()
		if err != nil {
			return err
		}
		tr.Rest()
		n := numOffsets
		if want == "CONNECTIVITY" {
			n = numConn
		}
		vals, err := d.values(n, dt)
		if err != nil {
			return err
		}
		if want == "OFFSETS" {
			d.offsets = toInts(vals)
		} else {
			d.conn = toInts(vals)
		}
	}
	for i := 1; i < len(d.offsets); i++ {
		if d.offsets[i] < d.offsets[i-1] || d.offsets[i] > len(d.conn) {
			return tr.Errorf("invalid cell offset %d", d.offsets[i])
		}
	}
	return nil
}

// splitLegacy turns the "k i1 ... ik" rows of format 4.x into offsets
// and connectivity.
func (d *decoder) splitLegacy(n int, legacy []int) error {
	d.offsets = make([]int, 0, textio.Capacity(n)+1)
	d.offsets = append(d.offsets, 0)
	d.conn = make([]int, 0, len(legacy))
	for i, c := 0, 0; c < n; c++ {
		if i >= len(legacy) {
			return d.tr.Errorf("CELLS section ends after %d of %d cells", c, n)
		}
		k := legacy[i]
		if k < 0 || i+1+k > len(legacy) {
			return d.tr.Errorf("cell %d has invalid node count %d", c, k)
		}
		d.conn = append(d.conn, legacy[i+1:i+1+k]...)
		d.offsets = append(d.offsets, len(d.conn))
		i += 1 + k
	}
	return nil
}

func (d *decoder) field() error {
	tr := d.tr
	if _, err := tr.Token(); err != nil { // field name
		return tr.Wrap(err, "read FIELD name")
	}
	k, err := tr.Int()
	if err != nil {
		return err
	}
	tr.Rest()
	for i := 0; i < k; i++ {
		name, err := tr.Token()
		if err != nil {
			return tr.Wrap(err, "read FIELD array")
		}
		comps, err := tr.Count("component")
		if err != nil {
			return err
		}
		if comps == 0 {
			return tr.Errorf("FIELD array %q has no components", name)
		}
		tuples, err := tr.Count("tuple")
		if err != nil {
			return err
		}
		dt, err := d.dataType()
		if err != nil {
			return err
		}
		tr.Rest()
		if d.section == sectionDataset {
			total, err := d.product(comps, tuples)
			if err != nil {
				return err
			}
			vals, err := d.values(total, dt)
			if err != nil {
				return err
			}
			d.fieldData[name] = vals
			continue
		}
		if err := d.array(name, comps, dt); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) scalars() error {
	tr := d.tr
	name, err := tr.Token()
	if err != nil {
		return tr.Wrap(err, "read SCALARS name")
	}
	dt, err := d.dataType()
	if err != nil {
		return err
	}
	comps := 1
	if rest := tr.Rest(); len(rest) > 0 {
		if comps, err = atoi(rest[0]); err != nil || comps < 1 {
			return tr.Errorf("invalid component count %q", rest[0])
		}
	}
	tok, err := tr.Token()
	if err != nil {
		return tr.Wrap(err, "expected LOOKUP_TABLE")
	}
	if strings.ToUpper(tok) != "LOOKUP_TABLE" {
		return tr.Errorf("expected LOOKUP_TABLE, got %q", tok)
	}
	tr.Rest()
	return d.array(name, comps, dt)
}

func (d *decoder) array(name string, comps int, dt dataType) error {
	var n int
	switch d.section {
	case sectionPoint:
		n = len(d.points)
	case sectionCell:
		n = len(d.types)
	default:
		return d.tr.Errorf("data array %q outside POINT_DATA or CELL_DATA", name)
	}
	total, err := d.product(n, comps)
	if err != nil {
		return err
	}
	vals, err := d.values(total, dt)
	if err != nil {
		return err
	}
	if d.section == sectionPoint {
		d.pointData[name] = rows(vals, comps)
	} else {
		d.cellData[name] = vals
		d.cellComps[name] = comps
	}
	return nil
}

// product multiplies two counts from the file, failing on overflow.
func (d *decoder) product(a, b int) (int, error) {
	if a < 0 || b < 0 {
		return 0, d.tr.Errorf("negative count %d x %d", a, b)
	}
	if a != 0 && b > math.MaxInt/a {
		return 0, d.tr.Errorf("count %d x %d is too large", a, b)
	}
	return a * b, nil
}

func (d *decoder) countAndType() (int, dataType, error) {
	n, err := d.tr.Count("point")
	if err != nil {
		return 0, dataType{}, err
	}
	dt, err := d.dataType()
	if err != nil {
		return 0, dataType{}, err
	}
	d.tr.Rest()
	return n, dt, nil
}

func (d *decoder) dataType() (dataType, error) {
	tok, err := d.tr.Token()
	if err != nil {
		return dataType{}, d.tr.Wrap(err, "expected data type")
	}
	dt, ok := dataTypes[strings.ToLower(tok)]
	if !ok {
		return dataType{}, textio.Unsupported("vtk data type %q is not supported", tok)
	}
	return dt, nil
}

func (d *decoder) values(n int, dt dataType) ([]float64, error) {
	if !d.binary {
		return d.tr.Floats(n)
	}
	buf, err := textio.ReadBytes(d.tr.Binary(), n, dt.size)
	if err != nil {
		return nil, d.tr.Wrap(err, "read %d binary %s values", n, dt.label)
	}
	return decodeBigEndian(buf, n, dt), nil
}

func decodeBigEndian(buf []byte, n int, dt dataType) []float64 {
	out := make([]float64, n)
	be := binary.BigEndian
	for i := range out {
		b := buf[i*dt.size:]
		switch {
		case dt.kind == 'f' && dt.size == 8:
			out[i] = math.Float64frombits(be.Uint64(b))
		case dt.kind == 'f':
			out[i] = float64(math.Float32frombits(be.Uint32(b)))
		case dt.size == 1 && dt.kind == 'i':
			out[i] = float64(int8(b[0]))
		case dt.size == 1:
			out[i] = float64(b[0])
		case dt.size == 2 && dt.kind == 'i':
			out[i] = float64(int16(be.Uint16(b)))
		case dt.size == 2:
			out[i] = float64(be.Uint16(b))
		case dt.size == 4 && dt.kind == 'i':
			out[i] = float64(int32(be.Uint32(b)))
		case dt.size == 4:
			out[i] = float64(be.Uint32(b))
		case dt.kind == 'i':
			out[i] = float64(int64(be.Uint64(b)))
		default:
			out[i] = float64(be.Uint64(b))
		}
	}
	return out
}

func (d *decoder) mesh() (*mesh.Mesh, error) {
	ncells := len(d.offsets) - 1
	if ncells < 0 {
		ncells = 0
	}
	if len(d.types) != ncells {
		return nil, textio.Invalid("vtk file has %d cells but %d cell types", ncells, len(d.types))
	}

	var blocks textio.Blocks
	type loc struct{ block, row int }
	where := make([]loc, ncells)
	for c := 0; c < ncells; c++ {
		row := d.conn[d.offsets[c]:d.offsets[c+1]]
		name, ok := CellTypeName(d.types[c], len(row))
		if !ok {
			return nil, textio.Unsupported("vtk cell type %d is not supported", d.types[c])
		}
		r := blocks.Add(name, append([]int(nil), row...))
		where[c] = loc{blocks.Index(name), r}
	}
	cells := blocks.Cells()
	if err := textio.CheckIndices(cells, len(d.points)); err != nil {
		return nil, err
	}

	var opts []mesh.Option
	if len(d.pointData) > 0 {
		opts = append(opts, mesh.WithPointData(d.pointData))
	}
	if len(d.cellData) > 0 {
		cd := make(map[string][][][]float64, len(d.cellData))
		for name, vals := range d.cellData {
			comps := d.cellComps[name]
			perBlock := make([][][]float64, len(cells))
			for i, b := range cells {
				perBlock[i] = make([][]float64, b.Len())
			}
			for c, l := range where {
				perBlock[l.block][l.row] = vals[c*comps : (c+1)*comps]
			}
			cd[name] = perBlock
		}
		opts = append(opts, mesh.WithCellData(cd))
	}
	if len(d.fieldData) > 0 {
		opts = append(opts, mesh.WithFieldData(d.fieldData))
	}
	return mesh.New(d.points, cells, opts...)
}

func rows(vals []float64, width int) [][]float64 {
	if width <= 0 {
		return nil
	}
	out := make([][]float64, len(vals)/width)
	for i := range out {
		out[i] = vals[i*width : (i+1)*width]
	}
	return out
}

func toInts(vals []float64) []int {
	out := make([]int, len(vals))
	for i, v := range vals {
		out[i] = int(v)
	}
	return out
}

func atoi(s string) (int, error) {
	f, err := textio.ParseFloat(s)
	return int(f), err
}
