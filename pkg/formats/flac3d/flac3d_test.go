package flac3d

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/meshio/pkg/errors"
	"github.com/matzehuels/meshio/pkg/mesh"
)

func TestDecode(t *testing.T) {
	input := `* FLAC3D grid
* GRIDPOINTS
G 1 0 0 0
G 2 1 0 0
G 3 0 1 0
G 4 1 1 0
G 5 0 0 1
G 6 1 0 1
G 7 0 1 1
G 8 1 1 1
* ZONES
Z B8 1 1 2 3 5 4 7 6 8
Z T4 2 1 2 3 5
* FACES
F Q4 1 1 2 4 3
ZGROUP "soil" SLOT 1
1 2
FGROUP "top" SLOT 1
1
`
	m, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	want := &mesh.Mesh{
		Points: [][]float64{
			{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0},
			{0, 0, 1}, {1, 0, 1}, {0, 1, 1}, {1, 1, 1},
		},
		Cells: []mesh.CellBlock{
			{Type: "hexahedron", Data: [][]int{{0, 1, 3, 2, 4, 5, 7, 6}}},
			{Type: "tetra", Data: [][]int{{0, 1, 2, 4}}},
			{Type: "quad", Data: [][]int{{0, 1, 3, 2}}},
		},
		CellSets: map[string][][]int{
			"soil": {{0}, {0}, nil},
			"top":  {nil, nil, {0}},
		},
	}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTrip(t *testing.T) {
	want := &mesh.Mesh{
		Points: [][]float64{
			{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0},
			{0, 0, 1}, {1, 0, 1}, {0, 1, 1}, {1, 1, 1.5},
		},
		Cells: []mesh.CellBlock{
			{Type: "hexahedron", Data: [][]int{{0, 1, 3, 2, 4, 5, 7, 6}}},
			{Type: "wedge", Data: [][]int{{0, 1, 2, 4, 5, 6}}},
			{Type: "pyramid", Data: [][]int{{0, 1, 3, 2, 7}}},
			{Type: "tetra", Data: [][]int{{0, 1, 2, 4}, {1, 3, 2, 7}}},
			{Type: "triangle", Data: [][]int{{4, 5, 6}}},
		},
		CellSets: map[string][][]int{
			"mixed": {{0}, nil, nil, {1}, {0}},
			"rock":  {nil, {0}, {0}, nil, nil},
		},
	}
	var buf bytes.Buffer
	if err := Encode(&buf, want); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if !strings.Contains(buf.String(), "Z B8 1 1 2 3 5 4 7 6 8\n") {
		t.Errorf("brick not written in FLAC3D corner order:\n%s", buf.String())
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestGroupName(t *testing.T) {
	tests := map[string]string{
		` "soil layer" SLOT 1`: "soil layer",
		` 'rock' SLOT Default`: "rock",
		` bare`:                "bare",
	}
	for in, want := range tests {
		got, err := groupName(in)
		if err != nil || got != want {
			t.Errorf("groupName(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	for _, in := range []string{` "open`, ` `} {
		if _, err := groupName(in); err == nil {
			t.Errorf("groupName(%q) succeeded", in)
		}
	}
}

func TestErrors(t *testing.T) {
	grid := "G 1 0 0 0\nG 2 1 0 0\nG 3 0 1 0\nG 4 0 0 1\n"
	tests := []struct {
		name  string
		input string
		code  errors.Code
	}{
		{"degenerate brick", grid + "Z B7 1 1 2 3 4 1 2 3\n", errors.ErrCodeUnsupported},
		{"unknown gridpoint", grid + "Z T4 1 1 2 3 9\n", errors.ErrCodeInvalidFormat},
		{"node count", grid + "Z T4 1 1 2 3\n", errors.ErrCodeInvalidFormat},
		{"duplicate zone", grid + "Z T4 1 1 2 3 4\nZ T4 1 1 2 3 4\n", errors.ErrCodeInvalidFormat},
		{"bad coordinate", "G 1 0 x 0\n", errors.ErrCodeInvalidFormat},
		{"unexpected record", grid + "X 1 2\n", errors.ErrCodeInvalidFormat},
		{"unknown member", grid + "Z T4 1 1 2 3 4\nZGROUP \"a\"\n7\n", errors.ErrCodeInvalidFormat},
		{"binary", "\x00\x01\x02\n", errors.ErrCodeUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(tt.input)); !errors.Is(err, tt.code) {
				t.Errorf("Decode() error = %v, want %s", err, tt.code)
			}
		})
	}

	m := &mesh.Mesh{Points: [][]float64{{0, 0}, {1, 0}}, Cells: []mesh.CellBlock{{Type: "line", Data: [][]int{{0, 1}}}}}
	if err := Encode(&bytes.Buffer{}, m); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("Encode(line) error = %v", err)
	}
}
