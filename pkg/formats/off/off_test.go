package off

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/meshio/pkg/errors"
	"github.com/matzehuels/meshio/pkg/mesh"
)

func TestDecode(t *testing.T) {
	input := `OFF
# a square and a triangle
5 2 0
0 0 0
1 0 0
1 1 0
0 1 0
2 0 0
4 0 1 2 3
3 1 4 2 255 0 0
`
	m, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	want := []mesh.CellBlock{
		{Type: "quad", Data: [][]int{{0, 1, 2, 3}}},
		{Type: "triangle", Data: [][]int{{1, 4, 2}}},
	}
	if diff := cmp.Diff(want, m.Cells); diff != "" {
		t.Errorf("cells mismatch (-want +got):\n%s", diff)
	}
	if len(m.Points) != 5 {
		t.Errorf("len(Points) = %d, want 5", len(m.Points))
	}
}

func TestRoundTrip(t *testing.T) {
	in := &mesh.Mesh{
		Points: [][]float64{{0, 0, 0}, {1, 0, 0}, {1, 1, 0.25}, {0, 1, 0}, {0.5, 2, 0}},
		Cells: []mesh.CellBlock{
			{Type: "triangle", Data: [][]int{{0, 1, 2}}},
			{Type: "polygon5", Data: [][]int{{0, 1, 2, 4, 3}}},
		},
	}
	var buf bytes.Buffer
	if err := Encode(&buf, in); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	out, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestErrors(t *testing.T) {
	if _, err := Decode(strings.NewReader("PLY\n")); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("Decode(not off) error = %v", err)
	}
	if _, err := Decode(strings.NewReader("OFF\n1 1 0\n0 0 0\n3 0 1 2\n")); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("Decode(bad index) error = %v", err)
	}
	for _, input := range []string{
		"OFF\n-1 0 0\n",
		"OFF\n0 -4 0\n",
		"OFF\n1000000000 1 0\n0 0 0\n",
		"OFF\n3 1000000000 0\n0 0 0\n1 0 0\n0 1 0\n3 0 1 2\n",
		"OFF\n3 1 0\n0 0 0\n1 0 0\n0 1 0\n-3 0 1 2\n",
	} {
		if _, err := Decode(strings.NewReader(input)); !errors.Is(err, errors.ErrCodeInvalidFormat) {
			t.Errorf("Decode(%q) error = %v, want INVALID_FORMAT", input, err)
		}
	}
	m := &mesh.Mesh{Cells: []mesh.CellBlock{{Type: "line", Data: [][]int{{0, 1}}}}}
	if err := Encode(&bytes.Buffer{}, m); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("Encode(line) error = %v", err)
	}
}
