package xdmf

import (
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/matzehuels/meshio/pkg/errors"
	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/formats/internal/textio"
	"github.com/matzehuels/meshio/pkg/mesh"
)

type xdmfFile struct {
	XMLName xml.Name `xml:"Xdmf"`
	Domain  struct {
		Info  []information `xml:"Information"`
		Grids []grid        `xml:"Grid"`
	} `xml:"Domain"`
}

type grid struct {
	Name       string        `xml:"Name,attr"`
	GridType   string        `xml:"GridType,attr"`
	Grids      []grid        `xml:"Grid"`
	Geometry   *geometry     `xml:"Geometry"`
	Topology   *topology     `xml:"Topology"`
	Attributes []attribute   `xml:"Attribute"`
	Info       []information `xml:"Information"`
}

type geometry struct {
	GeometryType string     `xml:"GeometryType,attr"`
	Type         string     `xml:"Type,attr"`
	Items        []dataItem `xml:"DataItem"`
}

type topology struct {
	TopologyType     string     `xml:"TopologyType,attr"`
	Type             string     `xml:"Type,attr"`
	NumberOfElements string     `xml:"NumberOfElements,attr"`
	NodesPerElement  string     `xml:"NodesPerElement,attr"`
	Items            []dataItem `xml:"DataItem"`
}

type attribute struct {
	Name   string     `xml:"Name,attr"`
	Center string     `xml:"Center,attr"`
	Items  []dataItem `xml:"DataItem"`
}

type information struct {
	Name  string `xml:"Name,attr"`
	Value string `xml:"Value,attr"`
}

type dataItem struct {
	DataType   string `xml:"DataType,attr"`
	NumberType string `xml:"NumberType,attr"`
	Precision  string `xml:"Precision,attr"`
	Dimensions string `xml:"Dimensions,attr"`
	Format     string `xml:"Format,attr"`
	Endian     string `xml:"Endian,attr"`
	Text       string `xml:",chardata"`
}

// Opener resolves a heavy-data file name found in a DataItem.
type Opener func(name string) (io.ReadCloser, error)

// Read reads an XDMF file. Binary heavy data is resolved relative to the
// directory of the source path, so buffers can only hold inline data.
func Read(src formats.Source) (*mesh.Mesh, error) {
	open := Opener(func(name string) (io.ReadCloser, error) {
		return nil, errors.New(errors.ErrCodeBufferUnsupported, "xdmf heavy data %s cannot be resolved from a buffer", name)
	})
	if !src.IsBuffer() {
		dir := filepath.Dir(src.Path())
		open = func(name string) (io.ReadCloser, error) {
			if !filepath.IsAbs(name) {
				name = filepath.Join(dir, name)
			}
			return os.Open(name)
		}
	}
	return textio.ReadSource(src, func(r io.Reader) (*mesh.Mesh, error) {
		return Decode(r, open)
	})
}

// Decode parses an XDMF document. The first uniform grid is read; for
// collections that is the first child grid.
func Decode(r io.Reader, open Opener) (*mesh.Mesh, error) {
	var f xdmfFile
	if err := xml.NewDecoder(r).Decode(&f); err != nil {
		return nil, textio.Invalid("xdmf: %v", err)
	}
	if len(f.Domain.Grids) == 0 {
		return nil, textio.Invalid("xdmf: no grid in domain")
	}
	g := f.Domain.Grids[0]
	for strings.EqualFold(g.GridType, "Collection") {
		if len(g.Grids) == 0 {
			return nil, textio.Invalid("xdmf: empty grid collection %q", g.Name)
		}
		g = g.Grids[0]
	}
	if g.GridType != "" && !strings.EqualFold(g.GridType, "Uniform") {
		return nil, textio.Unsupported("xdmf: grid type %q is not supported", g.GridType)
	}

	d := &decoder{open: open}
	points, err := d.points(g.Geometry)
	if err != nil {
		return nil, err
	}
	var (
		blocks textio.Blocks
		where  [][2]int
	)
	if g.Topology != nil {
		if where, err = d.cells(g.Topology, &blocks); err != nil {
			return nil, err
		}
	}
	cells := blocks.Cells()
	if err := textio.CheckIndices(cells, len(points)); err != nil {
		return nil, err
	}

	var (
		pointData = map[string][][]float64{}
		cellData  = map[string][][][]float64{}
		fieldData = map[string][]float64{}
	)
	for _, a := range g.Attributes {
		if len(a.Items) != 1 {
			return nil, textio.Invalid("xdmf: attribute %q needs one data item", a.Name)
		}
		rows, err := d.rows(a.Items[0])
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(a.Center) {
		case "", "node":
			pointData[a.Name] = rows
		case "cell":
			if len(rows) != len(where) {
				return nil, textio.Invalid("xdmf: cell attribute %q has %d rows, expected %d", a.Name, len(rows), len(where))
			}
			per := make([][][]float64, len(cells))
			for i, b := range cells {
				per[i] = make([][]float64, b.Len())
			}
			for c, w := range where {
				per[w[0]][w[1]] = rows[c]
			}
			cellData[a.Name] = per
		case "grid":
			var flat []float64
			for _, row := range rows {
				flat = append(flat, row...)
			}
			fieldData[a.Name] = flat
		default:
			return nil, textio.Unsupported("xdmf: attribute center %q is not supported", a.Center)
		}
	}
	for _, info := range append(f.Domain.Info, g.Info...) {
		vals, err := parseFloats(info.Value)
		if err != nil {
			return nil, textio.Invalid("xdmf: information %q: %v", info.Name, err)
		}
		fieldData[info.Name] = vals
	}

	var opts []mesh.Option
	if len(pointData) > 0 {
		opts = append(opts, mesh.WithPointData(pointData))
	}
	if len(cellData) > 0 {
		opts = append(opts, mesh.WithCellData(cellData))
	}
	if len(fieldData) > 0 {
		opts = append(opts, mesh.WithFieldData(fieldData))
	}
	return mesh.New(points, cells, opts...)
}

type decoder struct {
	open Opener
}

func (d *decoder) points(g *geometry) ([][]float64, error) {
	if g == nil {
		return nil, textio.Invalid("xdmf: grid has no geometry")
	}
	kind := g.GeometryType
	if kind == "" {
		kind = g.Type
	}
	var width int
	switch strings.ToUpper(kind) {
	case "", "XYZ":
		width = 3
	case "XY":
		width = 2
	default:
		return nil, textio.Unsupported("xdmf: geometry type %q is not supported", kind)
	}
	if len(g.Items) != 1 {
		return nil, textio.Invalid("xdmf: geometry needs one data item")
	}
	vals, _, err := d.values(g.Items[0])
	if err != nil {
		return nil, err
	}
	if len(vals)%width != 0 {
		return nil, textio.Invalid("xdmf: %d coordinates do not form %dD points", len(vals), width)
	}
	points := make([][]float64, len(vals)/width)
	for i := range points {
		points[i] = vals[i*width : (i+1)*width]
	}
	return points, nil
}

// cells adds the topology's cells to blocks and returns, for every cell in
// file order, its block and row.
func (d *decoder) cells(t *topology, blocks *textio.Blocks) ([][2]int, error) {
	kind := t.TopologyType
	if kind == "" {
		kind = t.Type
	}
	if len(t.Items) != 1 {
		return nil, textio.Invalid("xdmf: topology needs one data item")
	}
	vals, dims, err := d.values(t.Items[0])
	if err != nil {
		return nil, err
	}
	ints := make([]int, len(vals))
	for i, v := range vals {
		ints[i] = int(v)
	}

	var where [][2]int
	add := func(cellType string, row []int) {
		n := blocks.Add(cellType, row)
		where = append(where, [2]int{blocks.Index(cellType), n})
	}

	lower := strings.ToLower(kind)
	if lower == "mixed" {
		for i := 0; i < len(ints); {
			id := ints[i]
			i++
			var cellType string
			n := 0
			switch id {
			case mixedPolyvertex, mixedPolyline, mixedPolygon:
				if i >= len(ints) {
					return nil, textio.Invalid("xdmf: truncated mixed topology")
				}
				n = ints[i]
				i++
				if cellType, err = familyType(id, n); err != nil {
					return nil, err
				}
			default:
				var ok bool
				if cellType, ok = byMixedID[id]; !ok {
					return nil, textio.Unsupported("xdmf: mixed cell id %d is not supported", id)
				}
				n, _ = mesh.NodesPerCell(cellType)
			}
			if i+n > len(ints) {
				return nil, textio.Invalid("xdmf: truncated mixed topology")
			}
			add(cellType, ints[i:i+n])
			i += n
		}
		return where, nil
	}

	var (
		cellType string
		width    int
	)
	switch lower {
	case "polyvertex", "polyline", "polygon":
		width, err = nodesPerElement(t, dims)
		if err != nil {
			return nil, err
		}
		id := map[string]int{"polyvertex": mixedPolyvertex, "polyline": mixedPolyline, "polygon": mixedPolygon}[lower]
		if cellType, err = familyType(id, width); err != nil {
			return nil, err
		}
	default:
		var ok bool
		if cellType, ok = byTopologyName[lower]; !ok {
			return nil, textio.Unsupported("xdmf: topology type %q is not supported", kind)
		}
		width, _ = mesh.NodesPerCell(cellType)
	}
	if width == 0 || len(ints)%width != 0 {
		return nil, textio.Invalid("xdmf: %d connectivity values do not form %s cells", len(ints), cellType)
	}
	for i := 0; i < len(ints); i += width {
		add(cellType, ints[i:i+width])
	}
	return where, nil
}

func nodesPerElement(t *topology, dims []int) (int, error) {
	if t.NodesPerElement != "" {
		n, err := strconv.Atoi(strings.TrimSpace(t.NodesPerElement))
		if err != nil {
			return 0, textio.Invalid("xdmf: invalid NodesPerElement %q", t.NodesPerElement)
		}
		return n, nil
	}
	if len(dims) == 2 {
		return dims[1], nil
	}
	return 0, textio.Invalid("xdmf: topology needs NodesPerElement")
}

// familyType names the cell type of a node-counted family member.
func familyType(id, n int) (string, error) {
	switch {
	case id == mixedPolyvertex && n == 1:
		return "vertex", nil
	case id == mixedPolyline && n == 2:
		return "line", nil
	case id == mixedPolygon && n == 3:
		return "triangle", nil
	case id == mixedPolygon && n == 4:
		return "quad", nil
	case id == mixedPolygon && n > 4:
		return fmt.Sprintf("polygon%d", n), nil
	}
	return "", textio.Unsupported("xdmf: cell family %d with %d nodes is not supported", id, n)
}

func (d *decoder) rows(item dataItem) ([][]float64, error) {
	vals, dims, err := d.values(item)
	if err != nil {
		return nil, err
	}
	comps := 1
	for _, k := range dims[min(1, len(dims)):] {
		comps *= k
	}
	if comps == 0 || len(vals)%comps != 0 {
		return nil, textio.Invalid("xdmf: %d values do not match dimensions %q", len(vals), item.Dimensions)
	}
	out := make([][]float64, len(vals)/comps)
	for i := range out {
		out[i] = vals[i*comps : (i+1)*comps]
	}
	return out, nil
}

// values returns the flat contents of a data item and its dimensions.
func (d *decoder) values(item dataItem) ([]float64, []int, error) {
	var dims []int
	for _, f := range strings.Fields(item.Dimensions) {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return nil, nil, textio.Invalid("xdmf: invalid dimensions %q", item.Dimensions)
		}
		dims = append(dims, n)
	}

	switch strings.ToUpper(item.Format) {
	case "", "XML":
		vals, err := parseFloats(item.Text)
		if err != nil {
			return nil, nil, textio.Invalid("xdmf: %v", err)
		}
		return vals, dims, nil
	case "BINARY":
		vals, err := d.binary(item)
		return vals, dims, err
	case "HDF":
		return nil, nil, textio.Unsupported("xdmf: HDF5 heavy data is not supported")
	}
	return nil, nil, textio.Unsupported("xdmf: data format %q is not supported", item.Format)
}

func (d *decoder) binary(item dataItem) ([]float64, error) {
	name := strings.TrimSpace(item.Text)
	rc, err := d.open(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.WrapRead(errors.ErrCodeInvalidFormat, err, "xdmf: reading %s", name)
	}

	kind := item.DataType
	if kind == "" {
		kind = item.NumberType
	}
	if kind == "" {
		kind = "Float"
	}
	size := 4
	switch strings.ToLower(kind) {
	case "char", "uchar":
		size = 1
	}
	if item.Precision != "" {
		if size, err = strconv.Atoi(item.Precision); err != nil {
			return nil, textio.Invalid("xdmf: invalid precision %q", item.Precision)
		}
	}
	var order binary.ByteOrder = binary.LittleEndian
	if strings.EqualFold(item.Endian, "Big") {
		order = binary.BigEndian
	}
	if size != 1 && size != 2 && size != 4 && size != 8 {
		return nil, textio.Unsupported("xdmf: precision %d is not supported", size)
	}
	if len(raw)%size != 0 {
		return nil, textio.Invalid("xdmf: %s holds a partial value", name)
	}

	float := strings.EqualFold(kind, "Float")
	signed := strings.EqualFold(kind, "Int") || strings.EqualFold(kind, "Char")
	out := make([]float64, len(raw)/size)
	for i := range out {
		p := raw[i*size:]
		switch {
		case size == 8 && float:
			out[i] = math.Float64frombits(order.Uint64(p))
		case size == 4 && float:
			out[i] = float64(math.Float32frombits(order.Uint32(p)))
		case size == 8 && signed:
			out[i] = float64(int64(order.Uint64(p)))
		case size == 8:
			out[i] = float64(order.Uint64(p))
		case size == 4 && signed:
			out[i] = float64(int32(order.Uint32(p)))
		case size == 4:
			out[i] = float64(order.Uint32(p))
		case size == 2 && signed:
			out[i] = float64(int16(order.Uint16(p)))
		case size == 2:
			out[i] = float64(order.Uint16(p))
		case signed:
			out[i] = float64(int8(p[0]))
		default:
			out[i] = float64(p[0])
		}
	}
	return out, nil
}

func parseFloats(s string) ([]float64, error) {
	fields := strings.Fields(s)
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := textio.ParseFloat(f)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", f)
		}
		out[i] = v
	}
	return out, nil
}
