// Package dolfin implements the legacy DOLFIN XML mesh format.
//
// A DOLFIN mesh holds a single cell type: intervals, triangles or
// tetrahedra. Mesh functions stored in separate files are not read.
package dolfin

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/formats/internal/textio"
	"github.com/matzehuels/meshio/pkg/mesh"
)

// Backend is the DOLFIN XML backend.
var Backend = &formats.Backend{
	Name:       "dolfin",
	Extensions: map[string]string{".xml": "dolfin-xml"},
	Readers:    []string{"dolfin-xml"},
	Writers:    map[string]formats.Params{"dolfin-xml": {}},
	Read:       Read,
	Write:      Write,
}

// DOLFIN cell names and their cell types.
var cellTypes = map[string]string{
	"interval":    "line",
	"triangle":    "triangle",
	"tetrahedron": "tetra",
}

var coordNames = []string{"x", "y", "z"}

// Read reads a DOLFIN XML file.
func Read(src formats.Source) (*mesh.Mesh, error) {
	return textio.ReadSource(src, Decode)
}

// Decode parses a DOLFIN XML stream.
func Decode(r io.Reader) (*mesh.Mesh, error) {
	dec := xml.NewDecoder(r)
	var (
		dim      int
		dolfinTy string
		cellType string
		nodes    int
		points   [][]float64
		cells    [][]int
		seenMesh bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, textio.Invalid("dolfin: %v", err)
		}
		el, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		attrs := make(map[string]string, len(el.Attr))
		for _, a := range el.Attr {
			attrs[a.Name.Local] = a.Value
		}

		switch el.Name.Local {
		case "mesh":
			seenMesh = true
			dolfinTy = attrs["celltype"]
			if cellType, ok = cellTypes[dolfinTy]; !ok {
				return nil, textio.Unsupported("dolfin: cell type %q is not supported", dolfinTy)
			}
			nodes, _ = mesh.NodesPerCell(cellType)
			if dim, err = strconv.Atoi(attrs["dim"]); err != nil || dim < 1 || dim > 3 {
				return nil, textio.Invalid("dolfin: invalid mesh dimension %q", attrs["dim"])
			}
		case "vertex":
			if !seenMesh {
				return nil, textio.Invalid("dolfin: vertex outside of mesh")
			}
			idx, err := index(attrs, len(points))
			if err != nil {
				return nil, err
			}
			p := make([]float64, dim)
			for k := range p {
				if p[k], err = textio.ParseFloat(attrs[coordNames[k]]); err != nil {
					return nil, textio.Invalid("dolfin: vertex %d: invalid %s coordinate %q", idx, coordNames[k], attrs[coordNames[k]])
				}
			}
			points = append(points, p)
		default:
			if !seenMesh || el.Name.Local != dolfinTy {
				continue
			}
			idx, err := index(attrs, len(cells))
			if err != nil {
				return nil, err
			}
			row := make([]int, nodes)
			for k := range row {
				key := "v" + strconv.Itoa(k)
				if row[k], err = strconv.Atoi(attrs[key]); err != nil {
					return nil, textio.Invalid("dolfin: cell %d: invalid %s %q", idx, key, attrs[key])
				}
			}
			cells = append(cells, row)
		}
	}
	if !seenMesh {
		return nil, textio.Invalid("dolfin: no mesh element")
	}
	blocks := []mesh.CellBlock{{Type: cellType, Data: cells}}
	if err := textio.CheckIndices(blocks, len(points)); err != nil {
		return nil, err
	}
	return mesh.New(points, blocks)
}

// index checks that an element's index attribute continues the sequence.
func index(attrs map[string]string, want int) (int, error) {
	s, ok := attrs["index"]
	if !ok {
		return want, nil
	}
	idx, err := strconv.Atoi(s)
	if err != nil || idx != want {
		return 0, textio.Invalid("dolfin: index %q out of sequence, expected %d", s, want)
	}
	return idx, nil
}

// Write writes m as DOLFIN XML.
func Write(dst formats.Destination, m *mesh.Mesh, _ formats.Params, _ formats.Options) error {
	return textio.WriteDestination(dst, func(w io.Writer) error {
		return Encode(w, m)
	})
}

// Encode writes m to w. The mesh must hold exactly one non-empty block of
// a DOLFIN cell type.
func Encode(w io.Writer, m *mesh.Mesh) error {
	var block *mesh.CellBlock
	for i := range m.Cells {
		if m.Cells[i].Len() == 0 {
			continue
		}
		if block != nil {
			return textio.Unsupported("dolfin meshes hold one cell type, got %s and %s", block.Type, m.Cells[i].Type)
		}
		block = &m.Cells[i]
	}
	if block == nil {
		return textio.Unsupported("dolfin meshes need cells")
	}
	var dolfinTy string
	for name, t := range cellTypes {
		if t == block.Type {
			dolfinTy = name
		}
	}
	if dolfinTy == "" {
		return textio.Unsupported("dolfin cannot store %s cells", block.Type)
	}
	dim := m.Dim()
	if dim < 1 || dim > 3 {
		return textio.Unsupported("dolfin cannot store %dD points", dim)
	}

	tw := textio.NewWriter(w)
	tw.Line(`<?xml version="1.0"?>`)
	tw.Line(`<dolfin xmlns:dolfin="https://fenicsproject.org">`)
	tw.Printf("  <mesh celltype=%q dim=\"%d\">\n", dolfinTy, dim)
	tw.Printf("    <vertices size=\"%d\">\n", len(m.Points))
	var b strings.Builder
	for i, p := range m.Points {
		b.Reset()
		fmt.Fprintf(&b, "      <vertex index=\"%d\"", i)
		for k := 0; k < dim; k++ {
			fmt.Fprintf(&b, " %s=\"%s\"", coordNames[k], textio.FormatFloat(p[k]))
		}
		b.WriteString("/>")
		tw.Line(b.String())
	}
	tw.Line("    </vertices>")
	tw.Printf("    <cells size=\"%d\">\n", block.Len())
	for i, row := range block.Data {
		b.Reset()
		fmt.Fprintf(&b, "      <%s index=\"%d\"", dolfinTy, i)
		for k, v := range row {
			fmt.Fprintf(&b, " v%d=\"%d\"", k, v)
		}
		b.WriteString("/>")
		tw.Line(b.String())
	}
	tw.Line("    </cells>")
	tw.Line("  </mesh>")
	tw.Line("</dolfin>")
	return tw.Flush()
}
