// Package tetgen implements the TetGen .node/.ele file pair.
//
// The pair is addressed through either file; the sibling with the same
// stem is derived from it. Because two physical files are involved the
// backend is multi-file and never reads or writes buffers.
package tetgen

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/meshio/pkg/errors"
	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/formats/internal/textio"
	"github.com/matzehuels/meshio/pkg/mesh"
)

// Backend is the TetGen backend.
var Backend = &formats.Backend{
	Name:       "tetgen",
	Extensions: map[string]string{".node": "tetgen", ".ele": "tetgen"},
	MultiFile:  true,
	Readers:    []string{"tetgen"},
	Writers:    map[string]formats.Params{"tetgen": {}},
	Read:       Read,
	Write:      Write,
}

// Marker and attribute array names.
const (
	refKey     = "tetgen:ref"
	attrPrefix = "tetgen:attr"
)

// Paths returns the .node and .ele paths for a path naming either file.
func Paths(path string) (node, ele string, err error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".node" && ext != ".ele" {
		return "", "", textio.Unsupported("tetgen path %s must end in .node or .ele", path)
	}
	stem := strings.TrimSuffix(path, filepath.Ext(path))
	return stem + ".node", stem + ".ele", nil
}

// Read reads the .node/.ele pair named by src.
func Read(src formats.Source) (*mesh.Mesh, error) {
	if src.IsBuffer() {
		return nil, errors.New(errors.ErrCodeBufferUnsupported, "tetgen needs a file path")
	}
	nodePath, elePath, err := Paths(src.Path())
	if err != nil {
		return nil, err
	}
	nf, err := os.Open(nodePath)
	if err != nil {
		return nil, err
	}
	defer nf.Close()
	ef, err := os.Open(elePath)
	if err != nil {
		return nil, err
	}
	defer ef.Close()
	return Decode(nf, ef)
}

// Decode parses a node stream and an element stream. The index base (0
// or 1) is taken from the first node number.
func Decode(node, ele io.Reader) (*mesh.Mesh, error) {
	tr := textio.NewReader(node)
	tr.SetComment("#")
	head, err := tr.Ints(4)
	if err != nil {
		return nil, fmt.Errorf("node header: %w", err)
	}
	n, dim, nattr, nmark := head[0], head[1], head[2], head[3]
	if n < 0 || nattr < 0 || nmark < 0 {
		return nil, tr.Errorf("invalid node header %v", head)
	}
	if dim != 3 {
		return nil, textio.Unsupported("tetgen nodes must be 3D, got %dD", dim)
	}
	points := make([][]float64, 0, textio.Capacity(n))
	// Attribute rows are read per node and split into arrays afterwards,
	// so memory follows the data rather than the header.
	attrRows := make([][]float64, 0, textio.Capacity(n))
	var marks [][]float64
	if nmark > 0 {
		marks = make([][]float64, 0, textio.Capacity(n))
	}
	base := 0
	for i := range n {
		id, err := tr.Int()
		if err != nil {
			return nil, err
		}
		if i == 0 {
			base = id
		}
		p, err := tr.Floats(3)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
		if nattr > 0 {
			row, err := tr.Floats(nattr)
			if err != nil {
				return nil, err
			}
			attrRows = append(attrRows, row)
		}
		if marks != nil {
			v, err := tr.Float()
			if err != nil {
				return nil, err
			}
			marks = append(marks, []float64{v})
		}
	}

	tr = textio.NewReader(ele)
	tr.SetComment("#")
	head, err = tr.Ints(3)
	if err != nil {
		return nil, fmt.Errorf("ele header: %w", err)
	}
	ncells, nodes, nregion := head[0], head[1], head[2]
	if ncells < 0 || nregion < 0 {
		return nil, tr.Errorf("invalid element header %v", head)
	}
	var cellType string
	switch nodes {
	case 4:
		cellType = "tetra"
	case 10:
		cellType = "tetra10"
	default:
		return nil, textio.Unsupported("tetgen elements with %d nodes are not supported", nodes)
	}
	data := make([][]int, 0, textio.Capacity(ncells))
	var regions [][]float64
	if nregion > 0 {
		regions = make([][]float64, 0, textio.Capacity(ncells))
	}
	for range ncells {
		if _, err := tr.Int(); err != nil {
			return nil, err
		}
		row, err := tr.Ints(nodes)
		if err != nil {
			return nil, err
		}
		for j := range row {
			row[j] -= base
		}
		data = append(data, row)
		if regions != nil {
			v, err := tr.Float()
			if err != nil {
				return nil, err
			}
			regions = append(regions, []float64{v})
		}
	}

	var cells []mesh.CellBlock
	if ncells > 0 {
		cells = []mesh.CellBlock{{Type: cellType, Data: data}}
	}
	if err := textio.CheckIndices(cells, n); err != nil {
		return nil, err
	}
	var opts []mesh.Option
	if len(attrRows) > 0 || marks != nil {
		pd := make(map[string][][]float64)
		if len(attrRows) > 0 {
			for a := range nattr {
				col := make([][]float64, len(attrRows))
				for i, row := range attrRows {
					col[i] = []float64{row[a]}
				}
				pd[fmt.Sprintf("%s%d", attrPrefix, a)] = col
			}
		}
		if marks != nil {
			pd[refKey] = marks
		}
		opts = append(opts, mesh.WithPointData(pd))
	}
	if regions != nil && len(cells) > 0 {
		opts = append(opts, mesh.WithCellData(map[string][][][]float64{refKey: {regions}}))
	}
	return mesh.New(points, cells, opts...)
}

// Write writes m as the .node/.ele pair named by dst. Only tetrahedral
// cells are written; other blocks are rejected.
func Write(dst formats.Destination, m *mesh.Mesh, _ formats.Params, _ formats.Options) error {
	if dst.IsBuffer() {
		return errors.New(errors.ErrCodeBufferUnsupported, "tetgen needs a file path")
	}
	nodePath, elePath, err := Paths(dst.Path())
	if err != nil {
		return err
	}
	if err := textio.WriteDestination(formats.ToPath(nodePath), func(w io.Writer) error {
		return EncodeNodes(w, m)
	}); err != nil {
		return err
	}
	return textio.WriteDestination(formats.ToPath(elePath), func(w io.Writer) error {
		return EncodeElements(w, m)
	})
}

// EncodeNodes writes the .node part of m. Point arrays named
// "tetgen:attrN" are written as attributes and "tetgen:ref" as the
// boundary marker.
func EncodeNodes(w io.Writer, m *mesh.Mesh) error {
	if len(m.Points) > 0 && m.Dim() != 3 {
		return textio.Unsupported("tetgen needs 3D points, got %dD", m.Dim())
	}
	var attrs [][][]float64
	for a := 0; ; a++ {
		v, ok := m.PointData[fmt.Sprintf("%s%d", attrPrefix, a)]
		if !ok {
			break
		}
		attrs = append(attrs, v)
	}
	marks, hasMarks := m.PointData[refKey]

	tw := textio.NewWriter(w)
	tw.Line("# written by meshio")
	tw.Printf("%d 3 %d %d\n", len(m.Points), len(attrs), boolInt(hasMarks))
	row := make([]float64, 0, 4+len(attrs)+1)
	for i, p := range m.Points {
		row = append(row[:0], float64(i))
		row = append(row, p...)
		for _, a := range attrs {
			row = append(row, a[i][0])
		}
		if hasMarks {
			row = append(row, marks[i][0])
		}
		tw.Floats(row, " ")
	}
	return tw.Flush()
}

// EncodeElements writes the .ele part of m. The cell array "tetgen:ref"
// is written as the region attribute.
func EncodeElements(w io.Writer, m *mesh.Mesh) error {
	var (
		block mesh.CellBlock
		bi    = -1
	)
	for i, b := range m.Cells {
		if b.Type != "tetra" && b.Type != "tetra10" {
			return textio.Unsupported("tetgen cannot store %s cells", b.Type)
		}
		if bi >= 0 {
			return textio.Unsupported("tetgen stores a single element block")
		}
		block, bi = b, i
	}
	nodes := 4
	if block.Type == "tetra10" {
		nodes = 10
	}
	var regions [][]float64
	if cd, ok := m.CellData[refKey]; ok && bi >= 0 {
		regions = cd[bi]
	}

	tw := textio.NewWriter(w)
	tw.Line("# written by meshio")
	tw.Printf("%d %d %d\n", block.Len(), nodes, boolInt(regions != nil))
	row := make([]int, 0, nodes+2)
	for i, cell := range block.Data {
		row = append(row[:0], i)
		row = append(row, cell...)
		if regions != nil {
			row = append(row, int(regions[i][0]))
		}
		tw.Ints(row, 0, " ")
	}
	return tw.Flush()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
