// Package permas implements the PERMAS .post/.dato structure format,
// optionally gzip-compressed.
//
// Compressed input is recognized by the gzip magic bytes. Output is
// compressed when the destination path ends in ".gz" or the "compress"
// option is set.
package permas

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/matzehuels/meshio/pkg/errors"
	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/formats/internal/textio"
	"github.com/matzehuels/meshio/pkg/mesh"
)

// Backend is the PERMAS backend.
var Backend = &formats.Backend{
	Name: "permas",
	Extensions: map[string]string{
		".post":    "permas",
		".post.gz": "permas",
		".dato":    "permas",
		".dato.gz": "permas",
	},
	Readers: []string{"permas"},
	Writers: map[string]formats.Params{"permas": {}},
	Read:    Read,
	Write:   Write,
}

// Element names read from files. Several names share a cell type.
var readTypes = map[string]string{
	"PLOT1":    "vertex",
	"PLOTL2":   "line",
	"FLA2":     "line",
	"BECOS":    "line",
	"BECOC":    "line",
	"BETAC":    "line",
	"BECOP":    "line",
	"BETOP":    "line",
	"BEAM2":    "line",
	"FSCPIPE2": "line",
	"PLOTL3":   "line3",
	"FLA3":     "line3",
	"PLOTA3":   "triangle",
	"SHELL3":   "triangle",
	"TRIA3":    "triangle",
	"TRIA3K":   "triangle",
	"TRIA3S":   "triangle",
	"TRIMS3":   "triangle",
	"LOADA6":   "triangle6",
	"TRIA6":    "triangle6",
	"TRIMS6":   "triangle6",
	"LOADA4":   "quad",
	"PLOTA4":   "quad",
	"QUAD4":    "quad",
	"QUAD4S":   "quad",
	"QUAMS4":   "quad",
	"SHELL4":   "quad",
	"PLOTA8":   "quad8",
	"LOADA8":   "quad8",
	"QUAMS8":   "quad8",
	"PLOTA9":   "quad9",
	"LOADA9":   "quad9",
	"QUAMS9":   "quad9",
	"TET4":     "tetra",
	"TET10":    "tetra10",
	"PYRA5":    "pyramid",
	"PENTA6":   "wedge",
	"PENTA15":  "wedge15",
	"HEXE8":    "hexahedron",
	"HEXEFL8":  "hexahedron",
	"HEXE20":   "hexahedron20",
	"HEXE27":   "hexahedron27",
}

// Element names used when writing.
var writeTypes = map[string]string{
	"vertex":       "PLOT1",
	"line":         "PLOTL2",
	"line3":        "PLOTL3",
	"triangle":     "TRIA3",
	"triangle6":    "TRIA6",
	"quad":         "QUAD4",
	"quad8":        "QUAMS8",
	"quad9":        "QUAMS9",
	"tetra":        "TET4",
	"tetra10":      "TET10",
	"pyramid":      "PYRA5",
	"wedge":        "PENTA6",
	"wedge15":      "PENTA15",
	"hexahedron":   "HEXE8",
	"hexahedron20": "HEXE20",
	"hexahedron27": "HEXE27",
}

// Read reads a PERMAS file, decompressing it if needed.
func Read(src formats.Source) (*mesh.Mesh, error) {
	return textio.ReadSource(src, func(r io.Reader) (*mesh.Mesh, error) {
		br := bufio.NewReader(r)
		if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
			zr, err := gzip.NewReader(br)
			if err != nil {
				return nil, textio.Invalid("gzip: %v", err)
			}
			defer zr.Close()
			return Decode(zr)
		}
		return Decode(br)
	})
}

// keyword returns the value of "KEY = value" in a $-line.
func keyword(line, key string) string {
	f := strings.Fields(strings.ReplaceAll(line, "=", " = "))
	for i := 0; i+2 < len(f); i++ {
		if strings.EqualFold(f[i], key) && f[i+1] == "=" {
			return f[i+2]
		}
	}
	return ""
}

type cellRef struct{ block, row int }

type rawCell struct {
	typ string
	ids []int // element number followed by node numbers
}

// Decode parses an uncompressed PERMAS stream.
func Decode(r io.Reader) (*mesh.Mesh, error) {
	tr := textio.NewReader(r)

	var (
		points   [][]float64
		pointIdx = map[int]int{}
		rawCells []rawCell
		blocks   textio.Blocks
		elemIdx  = map[int]cellRef{}
		rawNSets = map[string][]int{}
		rawESets = map[string][]int{}
		section  string
		elemType string
		setName  string
		pending  []string
	)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		ids := make([]int, len(pending))
		for i, s := range pending {
			v, err := strconv.Atoi(s)
			if err != nil {
				return tr.Errorf("invalid integer %q", s)
			}
			ids[i] = v
		}
		pending = pending[:0]
		rawCells = append(rawCells, rawCell{elemType, ids})
		return nil
	}
	for {
		line, err := tr.NextLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, tr.Wrap(err, "read line")
		}
		if strings.HasPrefix(line, "!") {
			continue
		}
		if strings.HasPrefix(line, "$") {
			if err := flush(); err != nil {
				return nil, err
			}
			head := strings.ToUpper(strings.Fields(line)[0])
			section = head
			switch head {
			case "$ELEMENT":
				name := strings.ToUpper(keyword(line, "TYPE"))
				t, ok := readTypes[name]
				if !ok {
					return nil, textio.Unsupported("permas element type %q is not supported", name)
				}
				elemType = t
			case "$NSET", "$ESET":
				setName = keyword(line, "NAME")
				if setName == "" {
					return nil, tr.Errorf("%s without NAME", head)
				}
			case "$FIN":
				section = ""
			}
			continue
		}

		f := strings.Fields(line)
		switch section {
		case "$COOR":
			if len(f) < 2 {
				return nil, tr.Errorf("invalid node line %q", line)
			}
			id, err := strconv.Atoi(f[0])
			if err != nil {
				return nil, tr.Errorf("invalid node id %q", f[0])
			}
			p := make([]float64, len(f)-1)
			for i, s := range f[1:] {
				if p[i], err = textio.ParseFloat(s); err != nil {
					return nil, tr.Errorf("invalid coordinate %q", s)
				}
			}
			pointIdx[id] = len(points)
			points = append(points, p)
		case "$ELEMENT":
			cont := f[len(f)-1] == "&"
			if cont {
				f = f[:len(f)-1]
			}
			pending = append(pending, f...)
			if !cont {
				if err := flush(); err != nil {
					return nil, err
				}
			}
		case "$NSET", "$ESET":
			for _, s := range f {
				v, err := strconv.Atoi(s)
				if err != nil {
					return nil, tr.Errorf("invalid set member %q", s)
				}
				if section == "$NSET" {
					rawNSets[setName] = append(rawNSets[setName], v)
				} else {
					rawESets[setName] = append(rawESets[setName], v)
				}
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	for _, c := range rawCells {
		if len(c.ids) < 2 {
			return nil, textio.Invalid("element without nodes")
		}
		row := make([]int, len(c.ids)-1)
		for i, id := range c.ids[1:] {
			idx, ok := pointIdx[id]
			if !ok {
				return nil, textio.Invalid("element %d references unknown node %d", c.ids[0], id)
			}
			row[i] = idx
		}
		n := blocks.Add(c.typ, row)
		elemIdx[c.ids[0]] = cellRef{blocks.Index(c.typ), n}
	}
	cells := blocks.Cells()

	var opts []mesh.Option
	if len(rawNSets) > 0 {
		sets := make(map[string][]int, len(rawNSets))
		for name, ids := range rawNSets {
			idx := make([]int, len(ids))
			for i, id := range ids {
				v, ok := pointIdx[id]
				if !ok {
					return nil, textio.Invalid("node set %s references unknown node %d", name, id)
				}
				idx[i] = v
			}
			sets[name] = idx
		}
		opts = append(opts, mesh.WithPointSets(sets))
	}
	if len(rawESets) > 0 {
		sets := make(map[string][][]int, len(rawESets))
		for name, ids := range rawESets {
			per := make([][]int, len(cells))
			for _, id := range ids {
				ref, ok := elemIdx[id]
				if !ok {
					return nil, textio.Invalid("element set %s references unknown element %d", name, id)
				}
				per[ref.block] = append(per[ref.block], ref.row)
			}
			sets[name] = per
		}
		opts = append(opts, mesh.WithCellSets(sets))
	}
	return mesh.New(points, cells, opts...)
}

// Write writes m as a PERMAS file.
func Write(dst formats.Destination, m *mesh.Mesh, _ formats.Params, opts formats.Options) error {
	compress, err := opts.Bool("compress", strings.HasSuffix(strings.ToLower(dst.Path()), ".gz"))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "permas options")
	}
	return textio.WriteDestination(dst, func(w io.Writer) error {
		if !compress {
			return Encode(w, m)
		}
		zw := gzip.NewWriter(w)
		if err := Encode(zw, m); err != nil {
			return err
		}
		return zw.Close()
	})
}

// Encode writes m to w uncompressed. Node and element numbers start at 1;
// element numbers run across blocks in block order.
func Encode(w io.Writer, m *mesh.Mesh) error {
	for _, b := range m.Cells {
		if _, ok := writeTypes[b.Type]; !ok {
			return textio.Unsupported("permas cannot store %s cells", b.Type)
		}
	}
	tw := textio.NewWriter(w)
	tw.Line("!")
	tw.Line("! File written by meshio")
	tw.Line("!")
	tw.Line("$ENTER COMPONENT NAME = DFLT_COMP")
	tw.Line("!")
	tw.Line("    $STRUCTURE")
	tw.Line("!")
	tw.Line("        $COOR")
	row := make([]float64, 0, 4)
	for i, p := range m.Points {
		row = append(row[:0], float64(i+1))
		row = append(row, p...)
		tw.Floats(row, " ")
	}

	offsets := make([]int, len(m.Cells))
	id := 1
	for bi, b := range m.Cells {
		offsets[bi] = id
		name := writeTypes[b.Type]
		tw.Line("!")
		tw.Printf("        $ELEMENT TYPE = %s ESET = %s\n", name, name)
		out := make([]int, 0, b.Width()+1)
		for _, cell := range b.Data {
			out = append(out[:0], id)
			for _, v := range cell {
				out = append(out, v+1)
			}
			tw.Ints(out, 0, " ")
			id++
		}
	}

	for _, name := range sortedKeys(m.PointSets) {
		tw.Line("!")
		tw.Printf("        $NSET NAME = %s\n", name)
		tw.Ints(m.PointSets[name], 1, " ")
	}
	for _, name := range sortedKeys(m.CellSets) {
		var ids []int
		for bi, rows := range m.CellSets[name] {
			for _, r := range rows {
				ids = append(ids, offsets[bi]+r)
			}
		}
		tw.Line("!")
		tw.Printf("        $ESET NAME = %s\n", name)
		tw.Ints(ids, 0, " ")
	}

	tw.Line("!")
	tw.Line("    $END STRUCTURE")
	tw.Line("!")
	tw.Line("$EXIT COMPONENT")
	tw.Line("!")
	tw.Line("$FIN")
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write permas: %w", err)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
