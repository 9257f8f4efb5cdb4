package ply

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
		Points: [][]float64{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}, {2, 0.5, 0.25}},
		Cells: []mesh.CellBlock{
			{Type: "triangle", Data: [][]int{{1, 4, 2}}},
			{Type: "quad", Data: [][]int{{0, 1, 2, 3}}},
			{Type: "polygon5", Data: [][]int{{0, 1, 4, 2, 3}}},
		},
		PointData: map[string][][]float64{"temperature": {{1}, {2}, {3}, {4}, {5}}},
		CellData:  map[string][][][]float64{"quality": {{{0.5}}, {{0.75}}, {{1}}}},
	}
}

func TestRoundTrip(t *testing.T) {
	for _, binaryMode := range []bool{false, true} {
		var buf bytes.Buffer
		if err := Encode(&buf, sample(), binaryMode); err != nil {
			t.Fatalf("Encode(binary=%v) error: %v", binaryMode, err)
		}
		out, err := Decode(&buf)
		if err != nil {
			t.Fatalf("Decode(binary=%v) error: %v", binaryMode, err)
		}
		if diff := cmp.Diff(sample(), out); diff != "" {
			t.Errorf("round trip (binary=%v) mismatch (-want +got):\n%s", binaryMode, diff)
		}
	}
}

func TestPlanarPoints(t *testing.T) {
	in := &mesh.Mesh{
		Points: [][]float64{{0, 0}, {1, 0}, {0, 1}},
		Cells:  []mesh.CellBlock{{Type: "triangle", Data: [][]int{{0, 1, 2}}}},
	}
	var buf bytes.Buffer
	if err := Encode(&buf, in, false); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if strings.Contains(buf.String(), "property double z") {
		t.Error("planar mesh written with a z property")
	}
	out, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeSkipsOtherElements(t *testing.T) {
	input := `ply
format ascii 1.0
comment made by hand
element vertex 3
property float x
property float y
property float z
property uchar red
element face 1
property list uchar int vertex_index
element edge 1
property int vertex1
property int vertex2
end_header
0 0 0 255
1 0 0 0
0 1 0 12
3 0 1 2
0 1
`
	m, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if diff := cmp.Diff([][]float64{{255}, {0}, {12}}, m.PointData["red"]); diff != "" {
		t.Errorf("point data mismatch (-want +got):\n%s", diff)
	}
	if len(m.Cells) != 1 || m.Cells[0].Type != "triangle" {
		t.Errorf("cells = %+v", m.Cells)
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"magic", "plx\n"},
		{"no end_header", "ply\nformat ascii 1.0\n"},
		{"bad type", "ply\nformat ascii 1.0\nelement vertex 1\nproperty quad x\nend_header\n"},
		{"negative list length", "ply\nformat ascii 1.0\nelement vertex 0\nelement face 1\nproperty list int int vertex_indices\nend_header\n-3 0 1 2\n"},
		{"oversized list length", "ply\nformat ascii 1.0\nelement vertex 0\nelement face 1\nproperty list uint int vertex_indices\nend_header\n2000000000 0 1 2\n"},
		{"truncated binary", "ply\nformat binary_little_endian 1.0\nelement vertex 1\nproperty double x\nproperty double y\nend_header\n\x00\x00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(tt.input)); !errors.Is(err, errors.ErrCodeInvalidFormat) {
				t.Errorf("Decode() error = %v, want INVALID_FORMAT", err)
			}
		})
	}
}
