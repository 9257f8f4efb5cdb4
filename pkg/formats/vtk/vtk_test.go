package vtk

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/meshio/pkg/errors"
	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/mesh"
)

func sampleMesh(t *testing.T) *mesh.Mesh {
	t.Helper()
	m, err := mesh.New(
		[][]float64{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}, {0.5, 0.5, 1}},
		[]mesh.CellBlock{
			{Type: "triangle", Data: [][]int{{0, 1, 2}, {0, 2, 3}}},
			{Type: "tetra", Data: [][]int{{0, 1, 2, 4}}},
			{Type: "polygon5", Data: [][]int{{0, 1, 2, 3, 4}}},
		},
		mesh.WithPointData(map[string][][]float64{
			"temperature": {{1}, {2}, {3}, {4}, {5.5}},
			"velocity":    {{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 1}, {0.25, 0.5, 0.75}},
		}),
		mesh.WithCellData(map[string][][][]float64{
			"material": {{{1}, {2}}, {{3}}, {{4}}},
		}),
		mesh.WithFieldData(map[string][]float64{"time": {0.125}}),
	)
	if err != nil {
		t.Fatalf("mesh.New() error: %v", err)
	}
	return m
}

func TestRoundTrip(t *testing.T) {
	for _, binaryMode := range []bool{false, true} {
		name := "ascii"
		if binaryMode {
			name = "binary"
		}
		t.Run(name, func(t *testing.T) {
			in := sampleMesh(t)
			var buf bytes.Buffer
			if err := Encode(&buf, in, binaryMode, "test"); err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			out, err := Decode(&buf)
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if diff := cmp.Diff(in, out); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWritePadsPlanarPoints(t *testing.T) {
	m := &mesh.Mesh{
		Points: [][]float64{{0, 0}, {1, 0}, {0, 1}},
		Cells:  []mesh.CellBlock{{Type: "triangle", Data: [][]int{{0, 1, 2}}}},
	}
	var buf bytes.Buffer
	if err := Write(formats.ToWriter(&buf), m, formats.Params{}, nil); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	text := buf.String()
	for _, want := range []string{"ASCII", "POINTS 3 double\n0 0 0\n1 0 0\n0 1 0\n", "CELLS 1 4\n3 0 1 2\n", "CELL_TYPES 1\n5\n"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

// Generic polygon blocks may mix row widths; the CELLS size must count
// every row.
func TestWriteMixedPolygons(t *testing.T) {
	m := &mesh.Mesh{
		Points: [][]float64{{0, 0, 0}, {1, 0, 0}, {2, 1, 0}, {1, 2, 0}, {0, 1, 0}, {-1, 1, 0}},
		Cells: []mesh.CellBlock{
			{Type: "polygon", Data: [][]int{{0, 1, 2, 3, 4}, {0, 1, 2, 3, 4, 5}}},
		},
	}
	for _, binaryMode := range []bool{false, true} {
		var buf bytes.Buffer
		if err := Encode(&buf, m, binaryMode, "polygons"); err != nil {
			t.Fatalf("Encode(binary=%v) error: %v", binaryMode, err)
		}
		if !strings.Contains(buf.String(), "CELLS 2 13\n") {
			t.Errorf("Encode(binary=%v) wrote the wrong CELLS header:\n%q", binaryMode, buf.String())
		}
		got, err := Decode(&buf)
		if err != nil {
			t.Fatalf("Decode(binary=%v) error: %v", binaryMode, err)
		}
		want := []mesh.CellBlock{
			{Type: "polygon5", Data: [][]int{{0, 1, 2, 3, 4}}},
			{Type: "polygon6", Data: [][]int{{0, 1, 2, 3, 4, 5}}},
		}
		if diff := cmp.Diff(want, got.Cells); diff != "" {
			t.Errorf("cells mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestDecodeScalarsAndVectors(t *testing.T) {
	input := `# vtk DataFile Version 3.0
legacy sample
ASCII

DATASET UNSTRUCTURED_GRID
POINTS 4 float
0 0 0  1 0 0
1 1 0  0 1 0
CELLS 2 8
3 0 1 2
3 0 2 3
CELL_TYPES 2
5
5
POINT_DATA 4
SCALARS pressure float 1
LOOKUP_TABLE default
0.5 1.5 2.5 3.5
VECTORS flow double
1 0 0 0 1 0 0 0 1 1 1 1
CELL_DATA 2
SCALARS region int
LOOKUP_TABLE default
7 8
`
	m, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	want := &mesh.Mesh{
		Points: [][]float64{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		Cells:  []mesh.CellBlock{{Type: "triangle", Data: [][]int{{0, 1, 2}, {0, 2, 3}}}},
		PointData: map[string][][]float64{
			"pressure": {{0.5}, {1.5}, {2.5}, {3.5}},
			"flow":     {{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 1}},
		},
		CellData: map[string][][][]float64{"region": {{{7}, {8}}}},
	}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeVersion51(t *testing.T) {
	input := `# vtk DataFile Version 5.1
vtk output
ASCII
DATASET UNSTRUCTURED_GRID
POINTS 4 float
0 0 0 1 0 0 1 1 0 0 1 0
METADATA
INFORMATION 0

CELLS 3 7
OFFSETS vtktypeint64
0 3 7
CONNECTIVITY vtktypeint64
0 1 2
0 1 2 3
CELL_TYPES 2
5
9
`
	m, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	want := []mesh.CellBlock{
		{Type: "triangle", Data: [][]int{{0, 1, 2}}},
		{Type: "quad", Data: [][]int{{0, 1, 2, 3}}},
	}
	if diff := cmp.Diff(want, m.Cells); diff != "" {
		t.Errorf("cells mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  errors.Code
	}{
		{"not vtk", "hello\n", errors.ErrCodeInvalidFormat},
		{"bad encoding", "# vtk DataFile Version 4.2\nt\nHEX\n", errors.ErrCodeInvalidFormat},
		{"structured grid", "# vtk DataFile Version 4.2\nt\nASCII\nDATASET STRUCTURED_POINTS\n", errors.ErrCodeUnsupported},
		{"truncated points", "# vtk DataFile Version 4.2\nt\nASCII\nDATASET UNSTRUCTURED_GRID\nPOINTS 2 double\n0 0 0\n", errors.ErrCodeInvalidFormat},
		{"bad index", "# vtk DataFile Version 4.2\nt\nASCII\nDATASET UNSTRUCTURED_GRID\nPOINTS 1 double\n0 0 0\nCELLS 1 3\n2 0 5\nCELL_TYPES 1\n3\n", errors.ErrCodeInvalidFormat},
		{"negative points", "# vtk DataFile Version 4.2\nt\nASCII\nDATASET UNSTRUCTURED_GRID\nPOINTS -2 double\n", errors.ErrCodeInvalidFormat},
		{"oversized binary points", "# vtk DataFile Version 4.2\nt\nBINARY\nDATASET UNSTRUCTURED_GRID\nPOINTS 1000000000000 double\n", errors.ErrCodeInvalidFormat},
		{"overflowing points", "# vtk DataFile Version 4.2\nt\nBINARY\nDATASET UNSTRUCTURED_GRID\nPOINTS 9223372036854775807 double\n", errors.ErrCodeInvalidFormat},
		{"zero components", "# vtk DataFile Version 4.2\nt\nASCII\nDATASET UNSTRUCTURED_GRID\nPOINTS 1 double\n0 0 0\nCELLS 0 0\nCELL_TYPES 0\nPOINT_DATA 1\nSCALARS s double 0\nLOOKUP_TABLE default\n1\n", errors.ErrCodeInvalidFormat},
		{"negative field tuples", "# vtk DataFile Version 4.2\nt\nASCII\nDATASET UNSTRUCTURED_GRID\nFIELD f 1\na 1 -7 double\n", errors.ErrCodeInvalidFormat},
		{"unknown cell type", "# vtk DataFile Version 4.2\nt\nASCII\nDATASET UNSTRUCTURED_GRID\nPOINTS 1 double\n0 0 0\nCELLS 1 2\n1 0\nCELL_TYPES 1\n99\n", errors.ErrCodeUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			if !errors.Is(err, tt.code) {
				t.Errorf("Decode() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestEncodeRejects(t *testing.T) {
	m := &mesh.Mesh{
		Points: [][]float64{{0, 0, 0}},
		Cells:  []mesh.CellBlock{{Type: "custom_xyz", Data: [][]int{{0}}}},
	}
	if err := Encode(&bytes.Buffer{}, m, false, ""); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("Encode(custom cell) error = %v, want UNSUPPORTED", err)
	}

	m = &mesh.Mesh{
		Points:    [][]float64{{0, 0, 0}},
		PointData: map[string][][]float64{"bad name": {{1}}},
	}
	if err := Encode(&bytes.Buffer{}, m, false, ""); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("Encode(bad name) error = %v, want UNSUPPORTED", err)
	}
}

func TestCellTypeName(t *testing.T) {
	tests := []struct {
		id, n int
		want  string
	}{
		{5, 3, "triangle"},
		{7, 3, "triangle"},
		{7, 6, "polygon6"},
		{24, 10, "tetra10"},
	}
	for _, tt := range tests {
		if got, ok := CellTypeName(tt.id, tt.n); !ok || got != tt.want {
			t.Errorf("CellTypeName(%d, %d) = %q, %v, want %q", tt.id, tt.n, got, ok, tt.want)
		}
	}
}
