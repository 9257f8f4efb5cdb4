package obj

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/meshio/pkg/errors"
	"github.com/matzehuels/meshio/pkg/mesh"
)

func TestDecode(t *testing.T) {
	input := `# cube face
mtllib cube.mtl
o face
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
v 0.5 0.5 1.0 1.0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vt 0.5 0.5
g bottom
usemtl red
f 1/1 2/2 3/3 4/4
g top
f -5 -4 -1
f 2//1 3//1 5//1
l 1 5
`
	m, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	want := []mesh.CellBlock{
		{Type: "quad", Data: [][]int{{0, 1, 2, 3}}},
		{Type: "triangle", Data: [][]int{{0, 1, 4}, {1, 2, 4}}},
		{Type: "line", Data: [][]int{{0, 4}}},
	}
	if diff := cmp.Diff(want, m.Cells); diff != "" {
		t.Errorf("cells mismatch (-want +got):\n%s", diff)
	}
	if got := m.Points[4]; len(got) != 3 {
		t.Errorf("homogeneous coordinate not dropped: %v", got)
	}
	if len(m.PointData[texcoordKey]) != 5 {
		t.Errorf("texture coordinates not attached: %v", m.PointData)
	}
	groups := [][][]float64{{{0}}, {{1}, {1}}, {{1}}}
	if diff := cmp.Diff(groups, m.CellData[groupKey]); diff != "" {
		t.Errorf("group ids mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTrip(t *testing.T) {
	in, err := mesh.New(
		[][]float64{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}, {2, 0.5, 0}},
		[]mesh.CellBlock{
			{Type: "triangle", Data: [][]int{{1, 4, 2}}},
			{Type: "quad", Data: [][]int{{0, 1, 2, 3}}},
			{Type: "polygon5", Data: [][]int{{0, 1, 4, 2, 3}}},
		},
		mesh.WithPointData(map[string][][]float64{
			normalKey: {{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, in); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if !strings.Contains(buf.String(), "f 2//2 5//5 3//3") {
		t.Errorf("faces do not reference normals:\n%s", buf.String())
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
	tests := []struct {
		name  string
		input string
		code  errors.Code
	}{
		{"bad vertex", "v 0 x 0\n", errors.ErrCodeInvalidFormat},
		{"zero index", "v 0 0 0\nf 0 1 1\n", errors.ErrCodeInvalidFormat},
		{"out of range", "v 0 0 0\nf 1 2 3\n", errors.ErrCodeInvalidFormat},
		{"unknown keyword", "bogus 1\n", errors.ErrCodeInvalidFormat},
		{"long polyline", "v 0 0 0\nv 1 0 0\nv 2 0 0\nl 1 2 3\n", errors.ErrCodeUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			if !errors.Is(err, tt.code) {
				t.Errorf("Decode() error = %v, want %s", err, tt.code)
			}
		})
	}

	m := &mesh.Mesh{Points: [][]float64{{0, 0, 0}}, Cells: []mesh.CellBlock{{Type: "tetra", Data: [][]int{{0, 0, 0, 0}}}}}
	if err := Encode(&bytes.Buffer{}, m); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("Encode(tetra) error = %v, want UNSUPPORTED", err)
	}
}
