package abaqus

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/meshio/pkg/errors"
	"github.com/matzehuels/meshio/pkg/mesh"
)

func TestDecode(t *testing.T) {
	input := `*HEADING
test model
** a comment
*NODE
10, 0.0, 0.0, 0.0
20, 1.0, 0.0, 0.0
30, 1.0, 1.0, 0.0
40, 0.0, 1.0, 0.0
50, 0.0, 0.0, 1.0
*ELEMENT, TYPE=S4R, ELSET=shell
1, 10, 20, 30, 40
*Element, type=C3D4
2, 10, 20,
   40, 50
*NSET, NSET=base, GENERATE
10, 40, 10
*ELSET, ELSET=all
1, 2
*MATERIAL, NAME=steel
*ELASTIC
210000, 0.3
`
	m, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	want := &mesh.Mesh{
		Points: [][]float64{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}, {0, 0, 1}},
		Cells: []mesh.CellBlock{
			{Type: "quad", Data: [][]int{{0, 1, 2, 3}}},
			{Type: "tetra", Data: [][]int{{0, 1, 3, 4}}},
		},
		PointSets: map[string][]int{"base": {0, 1, 2, 3}},
		CellSets: map[string][][]int{
			"shell": {{0}, nil},
			"all":   {{0}, {0}},
		},
	}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTrip(t *testing.T) {
	want := &mesh.Mesh{
		Points: [][]float64{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 1}},
		Cells: []mesh.CellBlock{
			{Type: "triangle", Data: [][]int{{0, 1, 2}, {0, 2, 3}}},
			{Type: "tetra", Data: [][]int{{0, 1, 2, 4}}},
			{Type: "line", Data: [][]int{{4, 5}}},
		},
		PointSets: map[string][]int{"top": {4, 5}},
		CellSets:  map[string][][]int{"mixed": {{1}, nil, {0}}},
	}
	var buf bytes.Buffer
	if err := Encode(&buf, want); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLongSetsWrap(t *testing.T) {
	m := &mesh.Mesh{Points: make([][]float64, 40), PointSets: map[string][]int{"many": make([]int, 40)}}
	for i := range m.Points {
		m.Points[i] = []float64{float64(i), 0}
		m.PointSets["many"][i] = i
	}
	var buf bytes.Buffer
	if err := Encode(&buf, m); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	for _, line := range strings.Split(buf.String(), "\n") {
		if n := strings.Count(line, ","); n >= perLine {
			t.Errorf("line has %d separators: %q", n, line)
		}
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if diff := cmp.Diff(m.PointSets, got.PointSets); diff != "" {
		t.Errorf("point sets mismatch (-want +got):\n%s", diff)
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  errors.Code
	}{
		{"unknown element", "*NODE\n1, 0, 0\n*ELEMENT, TYPE=XYZ9\n", errors.ErrCodeUnsupported},
		{"unknown node", "*NODE\n1, 0, 0\n*ELEMENT, TYPE=T3D2\n1, 1, 2\n", errors.ErrCodeInvalidFormat},
		{"bad coordinate", "*NODE\n1, 0, x\n", errors.ErrCodeInvalidFormat},
		{"truncated element", "*NODE\n1, 0, 0\n*ELEMENT, TYPE=C3D4\n1, 1, 1\n", errors.ErrCodeInvalidFormat},
		{"unknown set member", "*NODE\n1, 0, 0\n*NSET, NSET=a\n7\n", errors.ErrCodeInvalidFormat},
		{"include", "*INCLUDE, INPUT=other.inp\n", errors.ErrCodeUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(tt.input)); !errors.Is(err, tt.code) {
				t.Errorf("Decode() error = %v, want %s", err, tt.code)
			}
		})
	}

	m := &mesh.Mesh{Points: [][]float64{{0, 0}}, Cells: []mesh.CellBlock{{Type: "vertex", Data: [][]int{{0}}}}}
	if err := Encode(&bytes.Buffer{}, m); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("Encode(vertex) error = %v", err)
	}
}
