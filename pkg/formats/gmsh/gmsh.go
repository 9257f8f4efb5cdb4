// Package gmsh implements the Gmsh MSH format, versions 2.2 and 4.1, in
// ASCII and binary encoding.
//
// The reader detects version and encoding from the $MeshFormat section,
// so every read identifier resolves to the same reader. Writers are
// selected by the Version ("2" or "4") and Binary parameters of the
// write identifier.
//
// Mapping to the mesh model:
//   - nodes become 3D points
//   - physical and geometrical element tags become the cell data arrays
//     "gmsh:physical" and "gmsh:geometrical"
//   - $PhysicalNames entries become field data name -> [tag, dim]
//   - $NodeData and $ElementData become point and cell data
package gmsh

import (
	"github.com/matzehuels/meshio/pkg/formats"
)

// Backend is the Gmsh backend.
var Backend = &formats.Backend{
	Name:       "gmsh",
	Extensions: map[string]string{".msh": "gmsh4-binary"},
	Readers: []string{
		"gmsh", "gmsh-ascii", "gmsh-binary",
		"gmsh2", "gmsh2-ascii", "gmsh2-binary",
		"gmsh4", "gmsh4-ascii", "gmsh4-binary",
	},
	Writers: map[string]formats.Params{
		"gmsh2-ascii":  {Version: "2", Binary: false},
		"gmsh2-binary": {Version: "2", Binary: true},
		"gmsh4-ascii":  {Version: "4", Binary: false},
		"gmsh4-binary": {Version: "4", Binary: true},
	},
	Read:  Read,
	Write: Write,
}

// Cell data arrays carrying element tags.
const (
	PhysicalKey    = "gmsh:physical"
	GeometricalKey = "gmsh:geometrical"
)

type elementType struct {
	cellType string
	nodes    int
}

// elementTypes maps gmsh element type numbers to cell types. Node
// orderings agree with the mesh model for every listed type.
var elementTypes = map[int]elementType{
	1:  {"line", 2},
	2:  {"triangle", 3},
	3:  {"quad", 4},
	4:  {"tetra", 4},
	5:  {"hexahedron", 8},
	6:  {"wedge", 6},
	7:  {"pyramid", 5},
	8:  {"line3", 3},
	9:  {"triangle6", 6},
	10: {"quad9", 9},
	11: {"tetra10", 10},
	12: {"hexahedron27", 27},
	13: {"wedge18", 18},
	14: {"pyramid14", 14},
	15: {"vertex", 1},
	16: {"quad8", 8},
	17: {"hexahedron20", 20},
	18: {"wedge15", 15},
	19: {"pyramid13", 13},
	21: {"triangle10", 10},
	23: {"triangle15", 15},
	26: {"line4", 4},
	27: {"line5", 5},
	28: {"line6", 6},
	29: {"tetra20", 20},
	30: {"tetra35", 35},
	31: {"tetra56", 56},
	36: {"quad16", 16},
	37: {"quad25", 25},
	38: {"quad36", 36},
	92: {"hexahedron64", 64},
	93: {"hexahedron125", 125},
}

var typeNumbers = func() map[string]int {
	out := make(map[string]int, len(elementTypes))
	for num, t := range elementTypes {
		out[t.cellType] = num
	}
	return out
}()
