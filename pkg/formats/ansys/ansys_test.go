package ansys

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/meshio/pkg/errors"
	"github.com/matzehuels/meshio/pkg/mesh"
)

func sample() *mesh.Mesh {
	return &mesh.Mesh{
		Points: [][]float64{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}, {0, 0, 1}, {0.25, 0.5, 2}},
		Cells: []mesh.CellBlock{
			{Type: "tetra", Data: [][]int{{0, 1, 2, 4}, {0, 2, 3, 4}}},
			{Type: "pyramid", Data: [][]int{{0, 1, 2, 3, 5}}},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	for _, binaryMode := range []bool{false, true} {
		name := "ascii"
		if binaryMode {
			name = "binary"
		}
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, sample(), binaryMode); err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			out, err := Decode(&buf)
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if diff := cmp.Diff(sample(), out); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeFaces(t *testing.T) {
	input := `(0 "Fluent (2D) mesh")
(2 2)
(10 (0 1 4 0 2))
(12 (0 1 1 0))
(13 (0 1 5 0))
(10 (1 1 4 1 2)(
0.0 0.0
1.0 0.0
1.0 1.0
0.0 1.0))
(12 (2 1 1 1 3))
(13 (3 1 4 3 2)(
1 2 1 0
2 3 1 0
3 4 1 0
4 1 1 0
))
(13 (4 5 5 2 0)(
3 1 2 3 1 0
))
(45 (3 wall boundary)())
`
	m, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	want := &mesh.Mesh{
		Points: [][]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}},
		Cells: []mesh.CellBlock{
			{Type: "line", Data: [][]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}}},
			{Type: "triangle", Data: [][]int{{0, 1, 2}}},
		},
	}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  errors.Code
	}{
		{"bad dimension", "(2 7)\n", errors.ErrCodeInvalidFormat},
		{"polyhedral", "(12 (2 1 1 1 7)(\n1\n))\n", errors.ErrCodeUnsupported},
		{"short body", "(10 (1 1 2 1 2)(\n0 0 1))\n", errors.ErrCodeInvalidFormat},
		{"bad hex", "(10 (1 1 1 1 2)(\n0 0))\n(12 (2 1 1 1 1)(\n1 zz 1))\n", errors.ErrCodeInvalidFormat},
		{"bad node dimension", "(10 (1 1 1 1 9)(\n0 0))\n", errors.ErrCodeInvalidFormat},
		{"oversized binary nodes", "(3010 (1 1 ffffffff 1 3)(\n", errors.ErrCodeInvalidFormat},
		{"unterminated", "(0 \"comment\"\n", errors.ErrCodeInvalidFormat},
		{"bad reference", "(10 (1 1 1 1 2)(\n0 0))\n(13 (3 1 1 2 2)(\n1 9 1 0))\n", errors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(tt.input)); !errors.Is(err, tt.code) {
				t.Errorf("Decode() error = %v, want %s", err, tt.code)
			}
		})
	}

	m := &mesh.Mesh{Points: [][]float64{{0, 0, 0}, {1, 0, 0}}, Cells: []mesh.CellBlock{{Type: "line", Data: [][]int{{0, 1}}}}}
	if err := Encode(&bytes.Buffer{}, m, false); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("Encode(line) error = %v", err)
	}
}
