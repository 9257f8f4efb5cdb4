// Package xdmf implements XDMF (versions 2 and 3) uniform unstructured
// grids.
//
// Heavy data is stored inline as XML text or in raw little-endian
// sidecar files next to the .xdmf file ("Binary"). HDF5 heavy data is
// not supported. The data format is chosen by the DataFormat parameter
// of the write identifier; the plain "xdmf" identifiers write inline XML.
package xdmf

import (
	"strings"

	"github.com/matzehuels/meshio/pkg/formats"
)

// Backend is the XDMF backend.
var Backend = &formats.Backend{
	Name:       "xdmf",
	Extensions: map[string]string{".xdmf": "xdmf", ".xmf": "xdmf"},
	Readers:    []string{"xdmf"},
	Writers: map[string]formats.Params{
		"xdmf":         {},
		"xdmf-binary":  {DataFormat: "Binary"},
		"xdmf-hdf":     {DataFormat: "HDF"},
		"xdmf-xml":     {DataFormat: "XML"},
		"xdmf3":        {},
		"xdmf3-binary": {DataFormat: "Binary"},
		"xdmf3-hdf":    {DataFormat: "HDF"},
		"xdmf3-xml":    {DataFormat: "XML"},
	},
	Read:  Read,
	Write: Write,
}

type topologyType struct {
	name  string // XDMF topology name
	mixed int    // id in Mixed topologies
}

// Cell types with a fixed node count. Polyvertex, Polyline and Polygon
// are handled separately because they carry a node count.
var topologies = map[string]topologyType{
	"triangle":     {"Triangle", 4},
	"quad":         {"Quadrilateral", 5},
	"tetra":        {"Tetrahedron", 6},
	"pyramid":      {"Pyramid", 7},
	"wedge":        {"Wedge", 8},
	"hexahedron":   {"Hexahedron", 9},
	"line3":        {"Edge_3", 34},
	"quad9":        {"Quadrilateral_9", 35},
	"triangle6":    {"Triangle_6", 36},
	"quad8":        {"Quadrilateral_8", 37},
	"tetra10":      {"Tetrahedron_10", 38},
	"pyramid13":    {"Pyramid_13", 39},
	"wedge15":      {"Wedge_15", 40},
	"wedge18":      {"Wedge_18", 41},
	"hexahedron20": {"Hexahedron_20", 48},
	"hexahedron24": {"Hexahedron_24", 49},
	"hexahedron27": {"Hexahedron_27", 50},
}

// Mixed ids of the node-counted families.
const (
	mixedPolyvertex = 1
	mixedPolyline   = 2
	mixedPolygon    = 3
)

var (
	byTopologyName = map[string]string{} // lowercase name -> cell type
	byMixedID      = map[int]string{}
)

func init() {
	for cellType, t := range topologies {
		byTopologyName[strings.ToLower(t.name)] = cellType
		byMixedID[t.mixed] = cellType
	}
}
