// Package ansys implements the ANSYS Fluent mesh format (.msh).
//
// Files are organized as parenthesized sections whose first number is
// the section index: 10 for nodes, 12 for cells and 13 for faces. Binary
// sections carry a 20 (single precision or int32) or 30 (double or
// int64) prefix. Counts and indices are hexadecimal. Faces are read as
// line, triangle, quad or polygon cells; cell sections carry connectivity
// only in files written by this package.
//
// The format shares the .msh extension with gmsh, which owns it for
// inference, so ansys files are addressed by identifier.
package ansys

import (
	"strconv"

	"github.com/matzehuels/meshio/pkg/formats"
)

// Backend is the ANSYS Fluent backend.
var Backend = &formats.Backend{
	Name:    "ansys",
	Readers: []string{"ansys", "ansys-ascii", "ansys-binary"},
	Writers: map[string]formats.Params{
		"ansys-ascii":  {Binary: false},
		"ansys-binary": {Binary: true},
	},
	Read:  Read,
	Write: Write,
}

// Fluent element types of cell sections.
var elementTypes = map[int]string{
	1: "triangle",
	2: "tetra",
	3: "quad",
	4: "hexahedron",
	5: "pyramid",
	6: "wedge",
}

const (
	elementMixed      = 0
	elementPolyhedral = 7
)

var elementNumbers = func() map[string]int {
	out := make(map[string]int, len(elementTypes))
	for n, t := range elementTypes {
		out[t] = n
	}
	return out
}()

// faceType names the cell type of a face with n nodes.
func faceType(n int) string {
	switch n {
	case 2:
		return "line"
	case 3:
		return "triangle"
	case 4:
		return "quad"
	}
	return "polygon" + strconv.Itoa(n)
}
