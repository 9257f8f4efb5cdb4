package vtu

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"io"
	"strings"

	"github.com/klauspost/compress/zlib"

	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/formats/internal/textio"
	"github.com/matzehuels/meshio/pkg/formats/vtk"
	"github.com/matzehuels/meshio/pkg/mesh"
)

type vtkFile struct {
	XMLName    xml.Name `xml:"VTKFile"`
	Type       string   `xml:"type,attr"`
	ByteOrder  string   `xml:"byte_order,attr"`
	HeaderType string   `xml:"header_type,attr"`
	Compressor string   `xml:"compressor,attr"`
	Grid       *struct {
		FieldData []dataArray `xml:"FieldData>DataArray"`
		Pieces    []piece     `xml:"Piece"`
	} `xml:"UnstructuredGrid"`
}

type piece struct {
	NumberOfPoints int         `xml:"NumberOfPoints,attr"`
	NumberOfCells  int         `xml:"NumberOfCells,attr"`
	Points         []dataArray `xml:"Points>DataArray"`
	Cells          []dataArray `xml:"Cells>DataArray"`
	PointData      []dataArray `xml:"PointData>DataArray"`
	CellData       []dataArray `xml:"CellData>DataArray"`
}

type dataArray struct {
	Type       string `xml:"type,attr"`
	Name       string `xml:"Name,attr"`
	Components int    `xml:"NumberOfComponents,attr"`
	Format     string `xml:"format,attr"`
	Text       string `xml:",chardata"`
}

// Read reads a VTU file.
func Read(src formats.Source) (*mesh.Mesh, error) {
	return textio.ReadSource(src, Decode)
}

type decoder struct {
	order      binary.ByteOrder
	headerSize int
	compressed bool
}

// Decode parses a VTU stream. Multiple pieces are merged into one mesh.
func Decode(r io.Reader) (*mesh.Mesh, error) {
	var f vtkFile
	if err := xml.NewDecoder(r).Decode(&f); err != nil {
		return nil, textio.Invalid("vtu: %v", err)
	}
	if f.Type != "UnstructuredGrid" || f.Grid == nil {
		return nil, textio.Unsupported("vtu: VTKFile type %q is not supported", f.Type)
	}
	d := &decoder{order: binary.LittleEndian, headerSize: 4}
	if f.ByteOrder == "BigEndian" {
		d.order = binary.BigEndian
	}
	switch f.HeaderType {
	case "", "UInt32":
	case "UInt64":
		d.headerSize = 8
	default:
		return nil, textio.Unsupported("vtu: header type %q is not supported", f.HeaderType)
	}
	switch f.Compressor {
	case "":
	case zlibCompressor:
		d.compressed = true
	default:
		return nil, textio.Unsupported("vtu: compressor %q is not supported", f.Compressor)
	}

	var (
		points    [][]float64
		blocks    textio.Blocks
		where     [][2]int
		pointData = map[string][][]float64{}
		cellVals  = map[string][][]float64{}
	)
	for pi, p := range f.Grid.Pieces {
		offset := len(points)
		if len(p.Points) != 1 {
			return nil, textio.Invalid("vtu: piece %d needs one points array", pi)
		}
		pts, err := d.rows(p.Points[0])
		if err != nil {
			return nil, err
		}
		if len(pts) != p.NumberOfPoints {
			return nil, textio.Invalid("vtu: piece %d has %d points, expected %d", pi, len(pts), p.NumberOfPoints)
		}
		points = append(points, pts...)

		arrays := map[string][]float64{}
		for _, a := range p.Cells {
			vals, err := d.values(a)
			if err != nil {
				return nil, err
			}
			arrays[a.Name] = vals
		}
		conn, offsets, types := arrays["connectivity"], arrays["offsets"], arrays["types"]
		if len(offsets) != p.NumberOfCells || len(types) != p.NumberOfCells {
			return nil, textio.Invalid("vtu: piece %d cell arrays do not match %d cells", pi, p.NumberOfCells)
		}
		start := 0
		for c := range types {
			end := int(offsets[c])
			if end < start || end > len(conn) {
				return nil, textio.Invalid("vtu: invalid cell offset %d", end)
			}
			row := make([]int, end-start)
			for k := range row {
				row[k] = int(conn[start+k]) + offset
			}
			name, ok := vtk.CellTypeName(int(types[c]), len(row))
			if !ok {
				return nil, textio.Unsupported("vtu: VTK cell type %d is not supported", int(types[c]))
			}
			n := blocks.Add(name, row)
			where = append(where, [2]int{blocks.Index(name), n})
			start = end
		}

		for _, a := range p.PointData {
			rows, err := d.rows(a)
			if err != nil {
				return nil, err
			}
			pointData[a.Name] = append(pointData[a.Name], rows...)
		}
		for _, a := range p.CellData {
			rows, err := d.rows(a)
			if err != nil {
				return nil, err
			}
			cellVals[a.Name] = append(cellVals[a.Name], rows...)
		}
	}

	cells := blocks.Cells()
	if err := textio.CheckIndices(cells, len(points)); err != nil {
		return nil, err
	}
	var opts []mesh.Option
	if len(pointData) > 0 {
		opts = append(opts, mesh.WithPointData(pointData))
	}
	if len(cellVals) > 0 {
		cd := make(map[string][][][]float64, len(cellVals))
		for name, rows := range cellVals {
			if len(rows) != len(where) {
				return nil, textio.Invalid("vtu: cell data %q has %d rows, expected %d", name, len(rows), len(where))
			}
			per := make([][][]float64, len(cells))
			for i, b := range cells {
				per[i] = make([][]float64, b.Len())
			}
			for c, w := range where {
				per[w[0]][w[1]] = rows[c]
			}
			cd[name] = per
		}
		opts = append(opts, mesh.WithCellData(cd))
	}
	if len(f.Grid.FieldData) > 0 {
		fd := make(map[string][]float64, len(f.Grid.FieldData))
		for _, a := range f.Grid.FieldData {
			vals, err := d.values(a)
			if err != nil {
				return nil, err
			}
			fd[a.Name] = vals
		}
		opts = append(opts, mesh.WithFieldData(fd))
	}
	return mesh.New(points, cells, opts...)
}

func (d *decoder) rows(a dataArray) ([][]float64, error) {
	vals, err := d.values(a)
	if err != nil {
		return nil, err
	}
	comps := max(a.Components, 1)
	if len(vals)%comps != 0 {
		return nil, textio.Invalid("vtu: array %q has %d values, not a multiple of %d", a.Name, len(vals), comps)
	}
	out := make([][]float64, len(vals)/comps)
	for i := range out {
		out[i] = vals[i*comps : (i+1)*comps]
	}
	return out, nil
}

func (d *decoder) values(a dataArray) ([]float64, error) {
	st, ok := scalarTypes[a.Type]
	if !ok {
		return nil, textio.Unsupported("vtu: data type %q is not supported", a.Type)
	}
	switch a.Format {
	case "ascii":
		fields := strings.Fields(a.Text)
		out := make([]float64, len(fields))
		for i, s := range fields {
			v, err := textio.ParseFloat(s)
			if err != nil {
				return nil, textio.Invalid("vtu: array %q: invalid number %q", a.Name, s)
			}
			out[i] = v
		}
		return out, nil
	case "binary":
		raw, err := d.decodeBinary(strings.Join(strings.Fields(a.Text), ""))
		if err != nil {
			return nil, textio.Invalid("vtu: array %q: %v", a.Name, err)
		}
		if len(raw)%st.size != 0 {
			return nil, textio.Invalid("vtu: array %q has a partial value", a.Name)
		}
		out := make([]float64, len(raw)/st.size)
		for i := range out {
			out[i] = st.decode(raw[i*st.size:], d.order)
		}
		return out, nil
	}
	return nil, textio.Unsupported("vtu: data format %q is not supported", a.Format)
}

func b64len(n int) int { return (n + 2) / 3 * 4 }

func (d *decoder) header(p []byte, i int) int {
	if d.headerSize == 8 {
		return int(d.order.Uint64(p[i*8:]))
	}
	return int(d.order.Uint32(p[i*4:]))
}

// decodeBinary decodes an inline base64 payload to raw bytes.
func (d *decoder) decodeBinary(text string) ([]byte, error) {
	enc := base64.StdEncoding
	if !d.compressed {
		buf, err := enc.DecodeString(text)
		if err != nil {
			return nil, err
		}
		if len(buf) < d.headerSize {
			return nil, io.ErrUnexpectedEOF
		}
		n := d.header(buf, 0)
		if n < 0 || n > len(buf)-d.headerSize {
			return nil, io.ErrUnexpectedEOF
		}
		return buf[d.headerSize : d.headerSize+n], nil
	}

	// The compressed header [nblocks, blocksize, lastsize, sizes...] is
	// encoded separately from the blocks.
	l := b64len(3 * d.headerSize)
	if len(text) < l {
		return nil, io.ErrUnexpectedEOF
	}
	head, err := enc.DecodeString(text[:l])
	if err != nil {
		return nil, err
	}
	nblocks := d.header(head, 0)
	if nblocks < 0 || nblocks > len(text) {
		return nil, textio.Invalid("vtu: invalid block count %d", nblocks)
	}
	l = b64len((3 + nblocks) * d.headerSize)
	if len(text) < l {
		return nil, io.ErrUnexpectedEOF
	}
	if head, err = enc.DecodeString(text[:l]); err != nil {
		return nil, err
	}
	data, err := enc.DecodeString(text[l:])
	if err != nil {
		return nil, err
	}
	// A block never inflates beyond the announced block size.
	maxBlock := d.header(head, 1)
	if maxBlock < 0 {
		return nil, textio.Invalid("vtu: invalid block size %d", maxBlock)
	}
	var out bytes.Buffer
	pos := 0
	for b := 0; b < nblocks; b++ {
		size := d.header(head, 3+b)
		if size < 0 || size > len(data)-pos {
			return nil, io.ErrUnexpectedEOF
		}
		zr, err := zlib.NewReader(bytes.NewReader(data[pos : pos+size]))
		if err != nil {
			return nil, err
		}
		n, err := io.Copy(&out, io.LimitReader(zr, int64(maxBlock)+1))
		zr.Close()
		if err != nil {
			return nil, err
		}
		if n > int64(maxBlock) {
			return nil, textio.Invalid("vtu: block %d inflates beyond %d bytes", b, maxBlock)
		}
		pos += size
	}
	return out.Bytes(), nil
}
