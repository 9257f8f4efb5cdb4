// Package backends assembles the built-in format backends into the
// default registry.
package backends

import (
	"sync"

	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/formats/abaqus"
	"github.com/matzehuels/meshio/pkg/formats/ansys"
	"github.com/matzehuels/meshio/pkg/formats/container"
	"github.com/matzehuels/meshio/pkg/formats/dolfin"
	"github.com/matzehuels/meshio/pkg/formats/flac3d"
	"github.com/matzehuels/meshio/pkg/formats/gmsh"
	"github.com/matzehuels/meshio/pkg/formats/mdpa"
	"github.com/matzehuels/meshio/pkg/formats/medit"
	"github.com/matzehuels/meshio/pkg/formats/nastran"
	"github.com/matzehuels/meshio/pkg/formats/neuroglancer"
	"github.com/matzehuels/meshio/pkg/formats/obj"
	"github.com/matzehuels/meshio/pkg/formats/off"
	"github.com/matzehuels/meshio/pkg/formats/openfoam"
	"github.com/matzehuels/meshio/pkg/formats/permas"
	"github.com/matzehuels/meshio/pkg/formats/ply"
	"github.com/matzehuels/meshio/pkg/formats/stl"
	"github.com/matzehuels/meshio/pkg/formats/svg"
	"github.com/matzehuels/meshio/pkg/formats/tetgen"
	"github.com/matzehuels/meshio/pkg/formats/vtk"
	"github.com/matzehuels/meshio/pkg/formats/vtu"
	"github.com/matzehuels/meshio/pkg/formats/wkt"
	"github.com/matzehuels/meshio/pkg/formats/xdmf"
)

// All lists every built-in backend. The container formats resolve but
// fail with UNSUPPORTED on use.
var All = []*formats.Backend{
	abaqus.Backend,
	ansys.Backend,
	container.CGNS,
	dolfin.Backend,
	container.Exodus,
	flac3d.Backend,
	gmsh.Backend,
	mdpa.Backend,
	container.MED,
	medit.Backend,
	container.MOAB,
	nastran.Backend,
	neuroglancer.Backend,
	obj.Backend,
	off.Backend,
	openfoam.Backend,
	permas.Backend,
	ply.Backend,
	stl.Backend,
	svg.Backend,
	tetgen.Backend,
	vtk.Backend,
	vtu.Backend,
	wkt.Backend,
	xdmf.Backend,
}

var defaultRegistry = sync.OnceValue(func() *formats.Registry {
	return formats.New(All...)
})

// Default returns the registry of all built-in backends. It is built on
// first use and shared afterwards.
func Default() *formats.Registry { return defaultRegistry() }
