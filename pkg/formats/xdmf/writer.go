package xdmf

import (
	"bytes"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/matzehuels/meshio/pkg/errors"
	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/formats/internal/textio"
	"github.com/matzehuels/meshio/pkg/mesh"
)

// Sink stores a binary heavy-data array and returns the name the
// DataItem refers to it by.
type Sink func(data []byte) (string, error)

// Write writes m as XDMF. Binary heavy data goes to "<stem>_<k>.bin"
// files next to the destination, which therefore must be a path.
func Write(dst formats.Destination, m *mesh.Mesh, p formats.Params, _ formats.Options) error {
	var sink Sink
	switch strings.ToUpper(p.DataFormat) {
	case "", "XML":
	case "BINARY":
		if dst.IsBuffer() {
			return errors.New(errors.ErrCodeBufferUnsupported, "xdmf binary heavy data needs a file path")
		}
		sink = fileSink(dst.Path())
	case "HDF":
		return textio.Unsupported("xdmf: HDF5 heavy data is not supported")
	default:
		return textio.Unsupported("xdmf: data format %q is not supported", p.DataFormat)
	}
	return textio.WriteDestination(dst, func(w io.Writer) error {
		return Encode(w, m, sink)
	})
}

func fileSink(path string) Sink {
	dir := filepath.Dir(path)
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	k := 0
	return func(data []byte) (string, error) {
		name := fmt.Sprintf("%s_%d.bin", stem, k)
		k++
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return "", err
		}
		return name, nil
	}
}

type encoder struct {
	tw   *textio.Writer
	sink Sink
	err  error
}

// Encode writes m to w. A nil sink writes heavy data inline as XML text.
func Encode(w io.Writer, m *mesh.Mesh, sink Sink) error {
	e := &encoder{tw: textio.NewWriter(w), sink: sink}
	e.tw.Line(`<?xml version="1.0"?>`)
	e.tw.Line(`<Xdmf Version="3.0">`)
	e.tw.Line("<Domain>")
	e.tw.Line(`<Grid Name="Grid" GridType="Uniform">`)

	dim := m.Dim()
	geom, width := "XYZ", 3
	if dim == 2 {
		geom, width = "XY", 2
	}
	coords := make([]float64, 0, width*len(m.Points))
	for _, p := range m.Points {
		row := make([]float64, width)
		copy(row, p)
		coords = append(coords, row...)
	}
	e.tw.Printf("<Geometry GeometryType=%q>\n", geom)
	e.item("Float", 8, []int{len(m.Points), width}, coords)
	e.tw.Line("</Geometry>")

	if err := e.topology(m.Cells); err != nil {
		return err
	}

	for _, name := range sortedKeys(m.PointData) {
		e.attribute(name, "Node", m.PointData[name])
	}
	for _, name := range sortedKeys(m.CellData) {
		var rows [][]float64
		for _, block := range m.CellData[name] {
			rows = append(rows, block...)
		}
		e.attribute(name, "Cell", rows)
	}
	for _, name := range sortedKeys(m.FieldData) {
		var b strings.Builder
		for i, v := range m.FieldData[name] {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(textio.FormatFloat(v))
		}
		e.tw.Printf("<Information Name=\"%s\" Value=\"%s\"/>\n", escape(name), b.String())
	}

	e.tw.Line("</Grid>")
	e.tw.Line("</Domain>")
	e.tw.Line("</Xdmf>")
	if e.err != nil {
		return e.err
	}
	return e.tw.Flush()
}

func (e *encoder) topology(blocks []mesh.CellBlock) error {
	var nonEmpty []mesh.CellBlock
	total := 0
	for _, b := range blocks {
		if b.Len() > 0 {
			nonEmpty = append(nonEmpty, b)
			total += b.Len()
		}
	}
	if len(nonEmpty) == 0 {
		return nil
	}

	if len(nonEmpty) == 1 {
		b := nonEmpty[0]
		name, npe, err := singleTopology(b)
		if err != nil {
			return err
		}
		head := fmt.Sprintf("<Topology TopologyType=%q NumberOfElements=\"%d\"", name, b.Len())
		if npe > 0 {
			head += fmt.Sprintf(" NodesPerElement=\"%d\"", npe)
		}
		e.tw.Line(head + ">")
		conn := make([]float64, 0, b.Len()*b.Width())
		for _, row := range b.Data {
			for _, v := range row {
				conn = append(conn, float64(v))
			}
		}
		e.item("Int", 8, []int{b.Len(), b.Width()}, conn)
		e.tw.Line("</Topology>")
		return nil
	}

	var conn []float64
	for _, b := range nonEmpty {
		id, counted, err := mixedID(b)
		if err != nil {
			return err
		}
		for _, row := range b.Data {
			conn = append(conn, float64(id))
			if counted {
				conn = append(conn, float64(len(row)))
			}
			for _, v := range row {
				conn = append(conn, float64(v))
			}
		}
	}
	e.tw.Printf("<Topology TopologyType=\"Mixed\" NumberOfElements=\"%d\">\n", total)
	e.item("Int", 8, []int{len(conn)}, conn)
	e.tw.Line("</Topology>")
	return nil
}

// singleTopology returns the topology name of a block and, for the
// node-counted families, its nodes per element.
func singleTopology(b mesh.CellBlock) (string, int, error) {
	switch {
	case b.Type == "vertex":
		return "Polyvertex", 1, nil
	case b.Type == "line":
		return "Polyline", 2, nil
	case strings.HasPrefix(b.Type, "polygon"):
		return "Polygon", b.Width(), nil
	}
	t, ok := topologies[b.Type]
	if !ok {
		return "", 0, textio.Unsupported("xdmf cannot store %s cells", b.Type)
	}
	return t.name, 0, nil
}

// mixedID returns the Mixed id of a block and whether rows carry a node
// count.
func mixedID(b mesh.CellBlock) (int, bool, error) {
	switch {
	case b.Type == "vertex":
		return mixedPolyvertex, true, nil
	case b.Type == "line":
		return mixedPolyline, true, nil
	case strings.HasPrefix(b.Type, "polygon"):
		return mixedPolygon, true, nil
	}
	t, ok := topologies[b.Type]
	if !ok {
		return 0, false, textio.Unsupported("xdmf cannot store %s cells", b.Type)
	}
	return t.mixed, false, nil
}

func attributeType(comps int) string {
	switch comps {
	case 1:
		return "Scalar"
	case 3:
		return "Vector"
	case 9:
		return "Tensor"
	}
	return "Matrix"
}

func (e *encoder) attribute(name, center string, rows [][]float64) {
	comps := 1
	if len(rows) > 0 {
		comps = len(rows[0])
	}
	flat := make([]float64, 0, comps*len(rows))
	for _, r := range rows {
		flat = append(flat, r...)
	}
	e.tw.Printf("<Attribute Name=\"%s\" AttributeType=%q Center=%q>\n", escape(name), attributeType(comps), center)
	dims := []int{len(rows)}
	if comps > 1 {
		dims = append(dims, comps)
	}
	e.item("Float", 8, dims, flat)
	e.tw.Line("</Attribute>")
}

func (e *encoder) item(kind string, precision int, dims []int, vals []float64) {
	ds := make([]string, len(dims))
	for i, d := range dims {
		ds[i] = strconv.Itoa(d)
	}
	format := "XML"
	if e.sink != nil {
		format = "Binary"
	}
	head := fmt.Sprintf("<DataItem DataType=%q Precision=\"%d\" Dimensions=%q Format=%q", kind, precision, strings.Join(ds, " "), format)
	if e.sink == nil {
		e.tw.Line(head + ">")
		if len(vals) > 0 {
			e.tw.Floats(vals, " ")
		}
		e.tw.Line("</DataItem>")
		return
	}

	var buf bytes.Buffer
	if kind == "Int" {
		for _, v := range vals {
			_ = binary.Write(&buf, binary.LittleEndian, int64(v))
		}
	} else {
		_ = binary.Write(&buf, binary.LittleEndian, vals)
	}
	name, err := e.sink(buf.Bytes())
	if err != nil {
		if e.err == nil {
			e.err = errors.WrapWrite(errors.ErrCodeBackend, err, "xdmf: writing heavy data")
		}
		return
	}
	e.tw.Line(head + ` Endian="Little">` + escape(name) + "</DataItem>")
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
