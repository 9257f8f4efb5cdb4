package formats

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/meshio/pkg/errors"
	"github.com/matzehuels/meshio/pkg/mesh"
)

func stubBackend(name string, readers []string, writers map[string]Params, exts map[string]string) *Backend {
	b := &Backend{Name: name, Readers: readers, Writers: writers, Extensions: exts}
	if len(readers) > 0 {
		b.Read = func(Source) (*mesh.Mesh, error) { return &mesh.Mesh{}, nil }
	}
	if len(writers) > 0 {
		b.Write = func(Destination, *mesh.Mesh, Params, Options) error { return nil }
	}
	return b
}

func testRegistry() *Registry {
	return New(
		stubBackend("gmsh",
			[]string{"gmsh", "gmsh4-binary"},
			map[string]Params{
				"gmsh2-ascii":  {Version: "2"},
				"gmsh4-binary": {Version: "4", Binary: true},
			},
			map[string]string{".msh": "gmsh4-binary"}),
		stubBackend("permas",
			[]string{"permas"},
			map[string]Params{"permas": {}},
			map[string]string{".dato": "permas", ".dato.gz": "permas"}),
		stubBackend("svg", nil, map[string]Params{"svg": {}}, map[string]string{".svg": "svg"}),
	)
}

func TestRegistryLookup(t *testing.T) {
	r := testRegistry()

	e, err := r.LookupReader("gmsh")
	if err != nil {
		t.Fatalf("LookupReader(gmsh) error: %v", err)
	}
	if e.Backend.Name != "gmsh" || e.Format != "gmsh" {
		t.Errorf("LookupReader(gmsh) = %+v", e)
	}

	w, err := r.LookupWriter("gmsh4-binary")
	if err != nil {
		t.Fatalf("LookupWriter(gmsh4-binary) error: %v", err)
	}
	if diff := cmp.Diff(Params{Version: "4", Binary: true}, w.Params); diff != "" {
		t.Errorf("LookupWriter(gmsh4-binary) params mismatch (-want +got):\n%s", diff)
	}

	if _, err := r.LookupReader("svg"); !errors.Is(err, errors.ErrCodeUnknownFormat) {
		t.Errorf("LookupReader(svg) error = %v, want UNKNOWN_FORMAT for write-only format", err)
	}
}

func TestRegistryUnknownFormatListsChoices(t *testing.T) {
	r := testRegistry()

	_, err := r.LookupWriter("nope")
	if !errors.Is(err, errors.ErrCodeUnknownFormat) {
		t.Fatalf("LookupWriter(nope) error = %v", err)
	}
	msg := err.Error()
	want := "[gmsh2-ascii gmsh4-binary permas svg]"
	if !strings.Contains(msg, want) {
		t.Errorf("error %q does not list sorted write formats %s", msg, want)
	}

	_, err = r.LookupReader("nope")
	if !strings.Contains(err.Error(), "[gmsh gmsh4-binary permas]") {
		t.Errorf("error %q does not list sorted read formats", err)
	}
}

func TestRegistryFormatsSorted(t *testing.T) {
	r := testRegistry()
	if diff := cmp.Diff([]string{"gmsh", "gmsh4-binary", "permas"}, r.ReadFormats()); diff != "" {
		t.Errorf("ReadFormats() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"gmsh2-ascii", "gmsh4-binary", "permas", "svg"}, r.WriteFormats()); diff != "" {
		t.Errorf("WriteFormats() mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistryExtensionsIsCopy(t *testing.T) {
	r := testRegistry()
	exts := r.Extensions()
	exts[".msh"] = "changed"
	if got, _ := r.Infer("a.msh"); got != "gmsh4-binary" {
		t.Errorf("mutating Extensions() result changed the registry: Infer = %q", got)
	}
}

func TestRegistryMultiFile(t *testing.T) {
	tet := stubBackend("tetgen", []string{"tetgen"}, map[string]Params{"tetgen": {}}, nil)
	tet.MultiFile = true
	r := New(tet, stubBackend("obj", []string{"obj"}, nil, nil))

	if !r.IsMultiFile("tetgen") {
		t.Error("IsMultiFile(tetgen) = false")
	}
	if r.IsMultiFile("obj") {
		t.Error("IsMultiFile(obj) = true")
	}
	if b, ok := r.Backend("tetgen"); !ok || b != tet {
		t.Error("Backend(tetgen) did not return the registered backend")
	}
	if len(r.Backends()) != 2 {
		t.Errorf("Backends() len = %d, want 2", len(r.Backends()))
	}
}

func TestRegistryPanicsOnConflicts(t *testing.T) {
	tests := []struct {
		name     string
		backends []*Backend
	}{
		{
			name: "duplicate read id",
			backends: []*Backend{
				stubBackend("a", []string{"x"}, nil, nil),
				stubBackend("b", []string{"x"}, nil, nil),
			},
		},
		{
			name: "duplicate write id",
			backends: []*Backend{
				stubBackend("a", nil, map[string]Params{"x": {}}, nil),
				stubBackend("b", nil, map[string]Params{"x": {}}, nil),
			},
		},
		{
			name: "duplicate extension",
			backends: []*Backend{
				stubBackend("a", []string{"a"}, nil, map[string]string{".m": "a"}),
				stubBackend("b", []string{"b"}, nil, map[string]string{".m": "b"}),
			},
		},
		{
			name:     "uppercase extension",
			backends: []*Backend{stubBackend("a", []string{"a"}, nil, map[string]string{".M": "a"})},
		},
		{
			name:     "extension to foreign format",
			backends: []*Backend{stubBackend("a", []string{"a"}, nil, map[string]string{".m": "b"})},
		},
		{
			name:     "whitespace in id",
			backends: []*Backend{stubBackend("a", []string{"a b"}, nil, nil)},
		},
		{
			name:     "readers without func",
			backends: []*Backend{{Name: "a", Readers: []string{"a"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("New() did not panic")
				}
			}()
			New(tt.backends...)
		})
	}
}

func TestOptions(t *testing.T) {
	opts := Options{"binary": "true", "n": 3, "f": "1.5", "name": "x", "bad": []int{1}}

	if b, err := opts.Bool("binary", false); err != nil || !b {
		t.Errorf("Bool(binary) = %v, %v", b, err)
	}
	if b, err := opts.Bool("missing", true); err != nil || !b {
		t.Errorf("Bool(missing) = %v, %v", b, err)
	}
	if n, err := opts.Int("n", 0); err != nil || n != 3 {
		t.Errorf("Int(n) = %v, %v", n, err)
	}
	if f, err := opts.Float("f", 0); err != nil || f != 1.5 {
		t.Errorf("Float(f) = %v, %v", f, err)
	}
	if s := opts.String("name", ""); s != "x" {
		t.Errorf("String(name) = %q", s)
	}
	if _, err := opts.Bool("bad", false); err == nil {
		t.Error("Bool(bad) error = nil")
	}
}
