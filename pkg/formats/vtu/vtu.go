// Package vtu implements the VTK XML unstructured grid format (.vtu).
//
// Data arrays are read in ascii or inline binary (base64) form, with or
// without zlib compression; appended raw data is not supported. Binary
// output is zlib-compressed unless the "compression" option is "none".
package vtu

import (
	"encoding/binary"
	"math"

	"github.com/matzehuels/meshio/pkg/formats"
)

// Backend is the VTU backend.
var Backend = &formats.Backend{
	Name:       "vtu",
	Extensions: map[string]string{".vtu": "vtu-binary"},
	Readers:    []string{"vtu-ascii", "vtu-binary"},
	Writers: map[string]formats.Params{
		"vtu":        {Binary: true},
		"vtu-ascii":  {Binary: false},
		"vtu-binary": {Binary: true},
	},
	Read:  Read,
	Write: Write,
}

const zlibCompressor = "vtkZLibDataCompressor"

// blockSize is the uncompressed size of a zlib block.
const blockSize = 32768

type scalar struct {
	size int
	kind byte // 'i', 'u', 'f'
}

var scalarTypes = map[string]scalar{
	"Int8":    {1, 'i'},
	"UInt8":   {1, 'u'},
	"Int16":   {2, 'i'},
	"UInt16":  {2, 'u'},
	"Int32":   {4, 'i'},
	"UInt32":  {4, 'u'},
	"Int64":   {8, 'i'},
	"UInt64":  {8, 'u'},
	"Float32": {4, 'f'},
	"Float64": {8, 'f'},
}

func (s scalar) decode(p []byte, order binary.ByteOrder) float64 {
	switch s.size {
	case 1:
		if s.kind == 'i' {
			return float64(int8(p[0]))
		}
		return float64(p[0])
	case 2:
		v := order.Uint16(p)
		if s.kind == 'i' {
			return float64(int16(v))
		}
		return float64(v)
	case 4:
		v := order.Uint32(p)
		switch s.kind {
		case 'f':
			return float64(math.Float32frombits(v))
		case 'i':
			return float64(int32(v))
		}
		return float64(v)
	}
	v := order.Uint64(p)
	switch s.kind {
	case 'f':
		return math.Float64frombits(v)
	case 'i':
		return float64(int64(v))
	}
	return float64(v)
}
