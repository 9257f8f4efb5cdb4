package backends

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/meshio/pkg/errors"
	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/mesh"
)

func TestDefaultInfer(t *testing.T) {
	r := Default()
	tests := map[string]string{
		"part.inp":          "abaqus",
		"part.xml":          "dolfin-xml",
		"part.msh":          "gmsh4-binary",
		"part.mesh":         "medit",
		"part.obj":          "obj",
		"part.off":          "off",
		"part.dato":         "permas",
		"part.dato.gz":      "permas",
		"part.post.gz":      "permas",
		"part.ply":          "ply-binary",
		"part.stl":          "stl-binary",
		"part.svg":          "svg",
		"part.node":         "tetgen",
		"part.ele":          "tetgen",
		"part.vtk":          "vtk-binary",
		"part.vtu":          "vtu-binary",
		"part.wkt":          "wkt",
		"part.xdmf":         "xdmf",
		"part.XMF":          "xdmf",
		"out/v1.2/part.stl": "stl-binary",
		"part.nas":          "nastran",
		"part.bdf":          "nastran",
		"part.fem":          "nastran",
		"part.f3grid":       "flac3d",
		"part.mdpa":         "mdpa",
		"part.e":            "exodus",
		"part.exo":          "exodus",
		"part.ex2":          "exodus",
		"part.med":          "med",
		"part.h5m":          "moab",
		"part.cgns":         "cgns",
	}
	for path, want := range tests {
		got, err := r.Infer(path)
		if err != nil {
			t.Errorf("Infer(%q) error: %v", path, err)
			continue
		}
		if got != want {
			t.Errorf("Infer(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestDefaultInferIgnoresCase(t *testing.T) {
	r := Default()
	for path, want := range map[string]string{
		"mesh.VTK":     "vtk-binary",
		"mesh.Vtu":     "vtu-binary",
		"MESH.NAS":     "nastran",
		"part.DATO.GZ": "permas",
	} {
		got, err := r.Infer(path)
		if err != nil || got != want {
			t.Errorf("Infer(%q) = %q, %v; want %q", path, got, err, want)
		}
	}
}

func TestDefaultIdentifiers(t *testing.T) {
	r := Default()
	if r != Default() {
		t.Error("Default() built a second registry")
	}
	for _, id := range r.ReadFormats() {
		if _, err := r.LookupReader(id); err != nil {
			t.Errorf("LookupReader(%q) error: %v", id, err)
		}
	}
	for _, id := range r.WriteFormats() {
		if _, err := r.LookupWriter(id); err != nil {
			t.Errorf("LookupWriter(%q) error: %v", id, err)
		}
	}
	if len(r.Backends()) != len(All) {
		t.Errorf("Backends() = %d, want %d", len(r.Backends()), len(All))
	}

	for _, id := range []string{"nastran", "flac3d", "mdpa", "exodus", "med", "moab", "cgns"} {
		if _, err := r.LookupReader(id); err != nil {
			t.Errorf("LookupReader(%q) error: %v", id, err)
		}
		if _, err := r.LookupWriter(id); err != nil {
			t.Errorf("LookupWriter(%q) error: %v", id, err)
		}
	}

	var multi []string
	for _, id := range r.WriteFormats() {
		if r.IsMultiFile(id) {
			multi = append(multi, id)
		}
	}
	if diff := cmp.Diff([]string{"openfoam", "tetgen"}, multi); diff != "" {
		t.Errorf("multi-file writers mismatch (-want +got):\n%s", diff)
	}
}

func TestContainerFormatsUnsupported(t *testing.T) {
	r := Default()
	m := &mesh.Mesh{Points: [][]float64{{0, 0, 0}}}
	for _, id := range []string{"exodus", "med", "moab", "cgns"} {
		w, err := r.LookupWriter(id)
		if err != nil {
			t.Fatalf("LookupWriter(%q) error: %v", id, err)
		}
		if err := w.Write(formats.ToWriter(nil), m, nil); !errors.Is(err, errors.ErrCodeUnsupported) {
			t.Errorf("%s Write() error = %v, want %s", id, err, errors.ErrCodeUnsupported)
		}
	}
}
