// Package ply implements the Stanford polygon file format (PLY) in ASCII
// and binary (little and big endian) encoding.
//
// Vertex properties other than x, y and z become point data; list
// properties of the face element become triangle, quad or polygonN
// cells. Scalar face properties become cell data. Other elements are
// parsed and dropped.
package ply

import (
	"github.com/matzehuels/meshio/pkg/formats"
)

// Backend is the PLY backend.
var Backend = &formats.Backend{
	Name:       "ply",
	Extensions: map[string]string{".ply": "ply-binary"},
	Readers:    []string{"ply", "ply-ascii", "ply-binary"},
	Writers: map[string]formats.Params{
		"ply-ascii":  {Binary: false},
		"ply-binary": {Binary: true},
	},
	Read:  Read,
	Write: Write,
}

type scalarType struct {
	name  string
	size  int
	kind  byte // 'i', 'u', 'f'
	alias string
}

var scalarTypes = []scalarType{
	{"char", 1, 'i', "int8"},
	{"uchar", 1, 'u', "uint8"},
	{"short", 2, 'i', "int16"},
	{"ushort", 2, 'u', "uint16"},
	{"int", 4, 'i', "int32"},
	{"uint", 4, 'u', "uint32"},
	{"float", 4, 'f', "float32"},
	{"double", 8, 'f', "float64"},
}

func lookupScalar(name string) (scalarType, bool) {
	for _, t := range scalarTypes {
		if t.name == name || t.alias == name {
			return t, true
		}
	}
	return scalarType{}, false
}

type property struct {
	name      string
	typ       scalarType
	list      bool
	countType scalarType
}

type element struct {
	name  string
	count int
	props []property
}
