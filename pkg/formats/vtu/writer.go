package vtu

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"

	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/formats/internal/textio"
	"github.com/matzehuels/meshio/pkg/formats/vtk"
	"github.com/matzehuels/meshio/pkg/mesh"
)

// Write writes m as VTU. p.Binary selects inline base64 arrays; the
// "compression" option ("zlib" or "none") applies to binary output.
func Write(dst formats.Destination, m *mesh.Mesh, p formats.Params, opts formats.Options) error {
	compression := opts.String("compression", "zlib")
	if compression != "zlib" && compression != "none" {
		return textio.Unsupported("vtu: compression %q is not supported", compression)
	}
	return textio.WriteDestination(dst, func(w io.Writer) error {
		return Encode(w, m, p.Binary, p.Binary && compression == "zlib")
	})
}

type encoder struct {
	tw       *textio.Writer
	binary   bool
	compress bool
	err      error
}

// Encode writes m to w.
func Encode(w io.Writer, m *mesh.Mesh, binaryMode, compress bool) error {
	types := make([]float64, 0, m.NumCells())
	offsets := make([]float64, 0, m.NumCells())
	var conn []float64
	for _, b := range m.Cells {
		id, ok := vtk.CellTypeID(b.Type)
		if !ok {
			return textio.Unsupported("vtu cannot store %s cells", b.Type)
		}
		for _, cell := range b.Data {
			for _, v := range cell {
				conn = append(conn, float64(v))
			}
			offsets = append(offsets, float64(len(conn)))
			types = append(types, float64(id))
		}
	}

	e := &encoder{tw: textio.NewWriter(w), binary: binaryMode, compress: compress}
	e.tw.Line(`<?xml version="1.0"?>`)
	head := `<VTKFile type="UnstructuredGrid" version="1.0" byte_order="LittleEndian" header_type="UInt64"`
	if compress {
		head += ` compressor="` + zlibCompressor + `"`
	}
	e.tw.Line(head + ">")
	e.tw.Line("<UnstructuredGrid>")

	if len(m.FieldData) > 0 {
		e.tw.Line("<FieldData>")
		for _, name := range sortedKeys(m.FieldData) {
			vals := m.FieldData[name]
			e.array("Float64", name, 0, len(vals), vals)
		}
		e.tw.Line("</FieldData>")
	}

	e.tw.Printf("<Piece NumberOfPoints=\"%d\" NumberOfCells=\"%d\">\n", len(m.Points), m.NumCells())
	pts := m.Points3D()
	flat := make([]float64, 0, 3*len(pts))
	for _, p := range pts {
		flat = append(flat, p[:]...)
	}
	e.tw.Line("<Points>")
	e.array("Float64", "", 3, 0, flat)
	e.tw.Line("</Points>")

	e.tw.Line("<Cells>")
	e.array("Int64", "connectivity", 0, 0, conn)
	e.array("Int64", "offsets", 0, 0, offsets)
	e.array("UInt8", "types", 0, 0, types)
	e.tw.Line("</Cells>")

	if len(m.PointData) > 0 {
		e.tw.Line("<PointData>")
		for _, name := range sortedKeys(m.PointData) {
			e.rows(name, m.PointData[name])
		}
		e.tw.Line("</PointData>")
	}
	if len(m.CellData) > 0 {
		e.tw.Line("<CellData>")
		for _, name := range sortedKeys(m.CellData) {
			var rows [][]float64
			for _, block := range m.CellData[name] {
				rows = append(rows, block...)
			}
			e.rows(name, rows)
		}
		e.tw.Line("</CellData>")
	}

	e.tw.Line("</Piece>")
	e.tw.Line("</UnstructuredGrid>")
	e.tw.Line("</VTKFile>")
	if e.err != nil {
		return e.err
	}
	return e.tw.Flush()
}

func (e *encoder) rows(name string, rows [][]float64) {
	comps := 1
	if len(rows) > 0 {
		comps = len(rows[0])
	}
	flat := make([]float64, 0, comps*len(rows))
	for _, r := range rows {
		flat = append(flat, r...)
	}
	e.array("Float64", name, comps, 0, flat)
}

func (e *encoder) array(typ, name string, comps, tuples int, vals []float64) {
	var b strings.Builder
	b.WriteString(`<DataArray type="` + typ + `"`)
	if name != "" {
		b.WriteString(` Name="`)
		xml.EscapeText(&b, []byte(name))
		b.WriteString(`"`)
	}
	if comps > 0 {
		b.WriteString(` NumberOfComponents="` + strconv.Itoa(comps) + `"`)
	}
	if tuples > 0 {
		b.WriteString(` NumberOfTuples="` + strconv.Itoa(tuples) + `"`)
	}
	if e.binary {
		b.WriteString(` format="binary">`)
	} else {
		b.WriteString(` format="ascii">`)
	}
	e.tw.Line(b.String())

	if !e.binary {
		if len(vals) > 0 {
			e.tw.Floats(vals, " ")
		}
	} else {
		text, err := e.encodeBinary(pack(typ, vals))
		if err != nil && e.err == nil {
			e.err = err
		}
		e.tw.Line(text)
	}
	e.tw.Line("</DataArray>")
}

// pack converts vals to the raw little-endian bytes of typ.
func pack(typ string, vals []float64) []byte {
	var buf bytes.Buffer
	switch typ {
	case "UInt8":
		for _, v := range vals {
			buf.WriteByte(uint8(v))
		}
	case "Int64":
		for _, v := range vals {
			_ = binary.Write(&buf, binary.LittleEndian, int64(v))
		}
	default:
		_ = binary.Write(&buf, binary.LittleEndian, vals)
	}
	return buf.Bytes()
}

func header(vals ...int) []byte {
	out := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(out[8*i:], uint64(v))
	}
	return out
}

func (e *encoder) encodeBinary(raw []byte) (string, error) {
	enc := base64.StdEncoding
	if !e.compress {
		return enc.EncodeToString(append(header(len(raw)), raw...)), nil
	}
	var (
		sizes      []int
		compressed bytes.Buffer
	)
	for start := 0; start < len(raw); start += blockSize {
		end := min(start+blockSize, len(raw))
		before := compressed.Len()
		zw := zlib.NewWriter(&compressed)
		if _, err := zw.Write(raw[start:end]); err != nil {
			return "", err
		}
		if err := zw.Close(); err != nil {
			return "", err
		}
		sizes = append(sizes, compressed.Len()-before)
	}
	last := blockSize
	if r := len(raw) % blockSize; r != 0 || len(raw) == 0 {
		last = r
	}
	head := append([]int{len(sizes), blockSize, last}, sizes...)
	return enc.EncodeToString(header(head...)) + enc.EncodeToString(compressed.Bytes()), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
