package ply

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/formats/internal/textio"
	"github.com/matzehuels/meshio/pkg/mesh"
)

// Read reads a PLY file.
func Read(src formats.Source) (*mesh.Mesh, error) {
	return textio.ReadSource(src, Decode)
}

type header struct {
	encoding string // "ascii", "binary_little_endian", "binary_big_endian"
	elements []element
}

func readHeader(tr *textio.Reader) (*header, error) {
	magic, err := tr.Line()
	if err != nil {
		return nil, tr.Wrap(err, "missing magic")
	}
	if strings.TrimSpace(magic) != "ply" {
		return nil, tr.Errorf("not a PLY file: %q", magic)
	}
	h := &header{}
	for {
		line, err := tr.Line()
		if err != nil {
			return nil, tr.Wrap(err, "header ends without end_header")
		}
		f := strings.Fields(line)
		if len(f) == 0 {
			continue
		}
		switch f[0] {
		case "format":
			if len(f) < 2 {
				return nil, tr.Errorf("incomplete format line")
			}
			switch f[1] {
			case "ascii", "binary_little_endian", "binary_big_endian":
				h.encoding = f[1]
			default:
				return nil, tr.Errorf("unknown encoding %q", f[1])
			}
		case "comment", "obj_info":
		case "element":
			if len(f) != 3 {
				return nil, tr.Errorf("invalid element line %q", line)
			}
			n, err := strconv.Atoi(f[2])
			if err != nil || n < 0 {
				return nil, tr.Errorf("invalid element count %q", f[2])
			}
			h.elements = append(h.elements, element{name: f[1], count: n})
		case "property":
			if len(h.elements) == 0 {
				return nil, tr.Errorf("property before element")
			}
			p, err := parseProperty(f[1:])
			if err != nil {
				return nil, tr.Errorf("%v", err)
			}
			el := &h.elements[len(h.elements)-1]
			el.props = append(el.props, p)
		case "end_header":
			if h.encoding == "" {
				return nil, tr.Errorf("missing format line")
			}
			return h, nil
		default:
			return nil, tr.Errorf("unexpected header line %q", line)
		}
	}
}

func parseProperty(f []string) (property, error) {
	if len(f) == 4 && f[0] == "list" {
		ct, ok1 := lookupScalar(f[1])
		it, ok2 := lookupScalar(f[2])
		if !ok1 || !ok2 {
			return property{}, textio.Invalid("invalid list property types %q %q", f[1], f[2])
		}
		return property{name: f[3], typ: it, list: true, countType: ct}, nil
	}
	if len(f) != 2 {
		return property{}, textio.Invalid("invalid property %q", strings.Join(f, " "))
	}
	t, ok := lookupScalar(f[0])
	if !ok {
		return property{}, textio.Invalid("unknown property type %q", f[0])
	}
	return property{name: f[1], typ: t}, nil
}

// valueReader reads property values in one encoding.
type valueReader interface {
	scalar(t scalarType) (float64, error)
}

type asciiValues struct{ tr *textio.Reader }

func (a asciiValues) scalar(scalarType) (float64, error) { return a.tr.Float() }

type binaryValues struct {
	br    *bufio.Reader
	order binary.ByteOrder
	buf   [8]byte
}

func (b *binaryValues) scalar(t scalarType) (float64, error) {
	p := b.buf[:t.size]
	if _, err := io.ReadFull(b.br, p); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, textio.Invalid("read %s value: %v", t.name, err)
	}
	switch t.size {
	case 1:
		if t.kind == 'i' {
			return float64(int8(p[0])), nil
		}
		return float64(p[0]), nil
	case 2:
		v := b.order.Uint16(p)
		if t.kind == 'i' {
			return float64(int16(v)), nil
		}
		return float64(v), nil
	case 4:
		v := b.order.Uint32(p)
		switch t.kind {
		case 'f':
			return float64(math.Float32frombits(v)), nil
		case 'i':
			return float64(int32(v)), nil
		}
		return float64(v), nil
	}
	return math.Float64frombits(b.order.Uint64(p)), nil
}

// Decode parses a PLY stream.
func Decode(r io.Reader) (*mesh.Mesh, error) {
	tr := textio.NewReader(r)
	h, err := readHeader(tr)
	if err != nil {
		return nil, err
	}
	var vr valueReader
	switch h.encoding {
	case "ascii":
		vr = asciiValues{tr}
	case "binary_little_endian":
		vr = &binaryValues{br: tr.Binary(), order: binary.LittleEndian}
	default:
		vr = &binaryValues{br: tr.Binary(), order: binary.BigEndian}
	}

	var (
		points    [][]float64
		pointData = map[string][][]float64{}
		blocks    textio.Blocks
		faceVals  = map[string][]float64{}
		where     [][2]int
	)
	for _, el := range h.elements {
		var xyz [3]int
		for i := range xyz {
			xyz[i] = -1
		}
		faceList := -1
		for i, p := range el.props {
			switch {
			case el.name == "vertex" && p.name == "x":
				xyz[0] = i
			case el.name == "vertex" && p.name == "y":
				xyz[1] = i
			case el.name == "vertex" && p.name == "z":
				xyz[2] = i
			case el.name == "face" && p.list && (p.name == "vertex_indices" || p.name == "vertex_index"):
				faceList = i
			}
		}
		if el.name == "vertex" && (xyz[0] < 0 || xyz[1] < 0) {
			return nil, textio.Invalid("vertex element lacks x or y")
		}

		scalars := make([]float64, len(el.props))
		for row := 0; row < el.count; row++ {
			var list []int
			for i, p := range el.props {
				if !p.list {
					v, err := vr.scalar(p.typ)
					if err != nil {
						return nil, err
					}
					scalars[i] = v
					continue
				}
				n, err := vr.scalar(p.countType)
				if err != nil {
					return nil, err
				}
				if n < 0 || n != math.Trunc(n) {
					return nil, textio.Invalid("invalid list length %g for %s", n, p.name)
				}
				vals := make([]int, 0, textio.Capacity(int(n)))
				for range int(n) {
					v, err := vr.scalar(p.typ)
					if err != nil {
						return nil, err
					}
					vals = append(vals, int(v))
				}
				if i == faceList {
					list = vals
				}
			}

			switch el.name {
			case "vertex":
				pt := []float64{scalars[xyz[0]], scalars[xyz[1]]}
				if xyz[2] >= 0 {
					pt = append(pt, scalars[xyz[2]])
				}
				points = append(points, pt)
				for i, p := range el.props {
					if i == xyz[0] || i == xyz[1] || i == xyz[2] || p.list {
						continue
					}
					pointData[p.name] = append(pointData[p.name], []float64{scalars[i]})
				}
			case "face":
				if faceList < 0 {
					return nil, textio.Invalid("face element has no vertex_indices list")
				}
				if len(list) < 3 {
					return nil, textio.Invalid("face %d has %d vertices", row, len(list))
				}
				t := faceType(len(list))
				r := blocks.Add(t, list)
				where = append(where, [2]int{blocks.Index(t), r})
				for i, p := range el.props {
					if !p.list {
						faceVals[p.name] = append(faceVals[p.name], scalars[i])
					}
				}
			}
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
	if len(faceVals) > 0 {
		cd := make(map[string][][][]float64, len(faceVals))
		for name, vals := range faceVals {
			per := make([][][]float64, len(cells))
			for i, b := range cells {
				per[i] = make([][]float64, b.Len())
			}
			for c, w := range where {
				per[w[0]][w[1]] = []float64{vals[c]}
			}
			cd[name] = per
		}
		opts = append(opts, mesh.WithCellData(cd))
	}
	return mesh.New(points, cells, opts...)
}

func faceType(n int) string {
	switch n {
	case 3:
		return "triangle"
	case 4:
		return "quad"
	}
	return "polygon" + strconv.Itoa(n)
}
