// Package container registers the formats stored inside HDF5 or netCDF
// containers: Exodus, MED, MOAB and CGNS.
//
// Their identifiers and extensions resolve like any other format so that
// inference and listings are complete, but reading and writing fail with
// UNSUPPORTED: the module carries no HDF5 or netCDF decoder.
package container

import (
	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/formats/internal/textio"
	"github.com/matzehuels/meshio/pkg/mesh"
)

// Exodus is the Exodus II backend (netCDF).
var Exodus = backend("exodus", "netCDF", ".e", ".exo", ".ex2")

// MED is the Salome MED backend (HDF5).
var MED = backend("med", "HDF5", ".med")

// MOAB is the MOAB native backend (HDF5).
var MOAB = backend("moab", "HDF5", ".h5m")

// CGNS is the CGNS backend (HDF5).
var CGNS = backend("cgns", "HDF5", ".cgns")

// All lists the container backends.
var All = []*formats.Backend{CGNS, Exodus, MED, MOAB}

func backend(name, kind string, exts ...string) *formats.Backend {
	b := &formats.Backend{
		Name:       name,
		Extensions: make(map[string]string, len(exts)),
		Readers:    []string{name},
		Writers:    map[string]formats.Params{name: {}},
	}
	for _, ext := range exts {
		b.Extensions[ext] = name
	}
	b.Read = func(formats.Source) (*mesh.Mesh, error) {
		return nil, textio.Unsupported("%s files are %s containers, which are not supported", name, kind)
	}
	b.Write = func(formats.Destination, *mesh.Mesh, formats.Params, formats.Options) error {
		return textio.Unsupported("%s files are %s containers, which are not supported", name, kind)
	}
	return b
}
