// Package vtk implements the legacy VTK file format (version 4.2,
// UNSTRUCTURED_GRID) in ASCII and binary encoding.
//
// The reader detects the encoding from the header, so "vtk-ascii" and
// "vtk-binary" read the same way. Point and cell data are written as FIELD
// arrays, mesh-global field data as a dataset-level FIELD block. Binary
// payloads are big-endian as the format requires.
package vtk

import (
	"strconv"
	"strings"

	"github.com/matzehuels/meshio/pkg/formats"
)

// Backend is the legacy VTK backend.
var Backend = &formats.Backend{
	Name:       "vtk",
	Extensions: map[string]string{".vtk": "vtk-binary"},
	Readers:    []string{"vtk-ascii", "vtk-binary"},
	Writers: map[string]formats.Params{
		"vtk":        {Binary: true},
		"vtk-ascii":  {Binary: false},
		"vtk-binary": {Binary: true},
	},
	Read:  Read,
	Write: Write,
}

// VTK cell type ids by cell-type key.
var cellTypeIDs = map[string]int{
	"vertex":       1,
	"line":         3,
	"triangle":     5,
	"polygon":      7,
	"quad":         9,
	"tetra":        10,
	"hexahedron":   12,
	"wedge":        13,
	"pyramid":      14,
	"line3":        21,
	"triangle6":    22,
	"quad8":        23,
	"tetra10":      24,
	"hexahedron20": 25,
	"wedge15":      26,
	"pyramid13":    27,
	"quad9":        28,
	"hexahedron27": 29,
	"wedge18":      32,
	"hexahedron24": 33,
	"triangle7":    34,
	"line4":        35,
}

var cellTypeNames = func() map[int]string {
	m := make(map[int]string, len(cellTypeIDs))
	for name, id := range cellTypeIDs {
		m[id] = name
	}
	return m
}()

const polygonID = 7

// CellTypeID returns the VTK id for a cell-type key. "polygonN" keys map
// to the generic polygon id.
func CellTypeID(cellType string) (int, bool) {
	if id, ok := cellTypeIDs[cellType]; ok {
		return id, true
	}
	if strings.HasPrefix(cellType, "polygon") {
		return polygonID, true
	}
	return 0, false
}

// CellTypeName returns the cell-type key for a VTK id and a cell of n
// nodes. Generic polygons become "polygonN".
func CellTypeName(id, n int) (string, bool) {
	if id == polygonID {
		return polygonName(n), true
	}
	name, ok := cellTypeNames[id]
	return name, ok
}

func polygonName(n int) string {
	switch n {
	case 3:
		return "triangle"
	case 4:
		return "quad"
	}
	return "polygon" + strconv.Itoa(n)
}
