package stl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/meshio/pkg/errors"
	"github.com/matzehuels/meshio/pkg/mesh"
)

func square() *mesh.Mesh {
	return &mesh.Mesh{
		Points: [][]float64{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0.5}},
		Cells:  []mesh.CellBlock{{Type: "triangle", Data: [][]int{{0, 1, 2}, {0, 2, 3}}}},
	}
}

func TestRoundTrip(t *testing.T) {
	for _, binaryMode := range []bool{false, true} {
		var buf bytes.Buffer
		if err := Encode(&buf, square(), binaryMode); err != nil {
			t.Fatalf("Encode(binary=%v) error: %v", binaryMode, err)
		}
		if binaryMode && buf.Len() != 84+2*50 {
			t.Errorf("binary size = %d, want %d", buf.Len(), 84+2*50)
		}
		out, err := Decode(&buf)
		if err != nil {
			t.Fatalf("Decode(binary=%v) error: %v", binaryMode, err)
		}
		if diff := cmp.Diff(square(), out); diff != "" {
			t.Errorf("round trip (binary=%v) mismatch (-want +got):\n%s", binaryMode, diff)
		}
	}
}

func TestDecodeASCII(t *testing.T) {
	input := `solid part
  facet normal 0 0 1
    outer loop
      vertex 0 0 0
      vertex 1 0 0
      vertex 0 1 0
    endloop
  endfacet
  facet normal 0 0 1
    outer loop
      vertex 1 0 0
      vertex 1 1 0
      vertex 0 1 0
    endloop
  endfacet
endsolid part
`
	m, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if len(m.Points) != 4 {
		t.Errorf("coincident vertices not merged: %d points", len(m.Points))
	}
	want := [][]int{{0, 1, 2}, {1, 3, 2}}
	if diff := cmp.Diff(want, m.Cells[0].Data); diff != "" {
		t.Errorf("triangles mismatch (-want +got):\n%s", diff)
	}
}

func TestErrors(t *testing.T) {
	if _, err := Decode(strings.NewReader("hello")); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("Decode(garbage) error = %v", err)
	}
	bad := "solid x\nfacet normal 0 0 1\nouter loop\nvertex 0 0 0\nendloop\nendfacet\nendsolid\n"
	if _, err := Decode(strings.NewReader(bad)); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("Decode(short facet) error = %v", err)
	}
	m := &mesh.Mesh{Points: [][]float64{{0, 0, 0}}, Cells: []mesh.CellBlock{{Type: "quad", Data: [][]int{{0, 0, 0, 0}}}}}
	if err := Encode(&bytes.Buffer{}, m, false); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("Encode(quad) error = %v", err)
	}
}
