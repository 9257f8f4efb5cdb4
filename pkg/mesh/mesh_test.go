package mesh

import (
	"strings"
	"testing"

	"github.com/matzehuels/meshio/pkg/errors"
)

func triangleMesh() *Mesh {
	return &Mesh{
		Points: [][]float64{{0, 0}, {1, 0}, {0, 1}},
		Cells:  []CellBlock{{Type: "triangle", Data: [][]int{{0, 1, 2}}}},
	}
}

func TestNew(t *testing.T) {
	points := [][]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	cells := []CellBlock{
		{Type: "tetra", Data: [][]int{{0, 1, 2, 3}}},
		{Type: "triangle", Data: [][]int{{0, 1, 2}, {0, 1, 3}}},
	}

	m, err := New(points, cells,
		WithPointData(map[string][][]float64{"T": {{1}, {2}, {3}, {4}}}),
		WithCellData(map[string][][][]float64{"id": {{{7}}, {{8}, {9}}}}),
		WithFieldData(map[string][]float64{"time": {0.5}}),
		WithPointSets(map[string][]int{"corner": {0}}),
		WithCellSets(map[string][][]int{"all": {{0}, {0, 1}}}),
	)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if m.Dim() != 3 {
		t.Errorf("Dim() = %d, want 3", m.Dim())
	}
	if m.NumCells() != 3 {
		t.Errorf("NumCells() = %d, want 3", m.NumCells())
	}
	if got := strings.Join(m.CellTypes(), ","); got != "tetra,triangle" {
		t.Errorf("CellTypes() = %q, want insertion order", got)
	}
	if b, ok := m.Block("triangle"); !ok || b.Len() != 2 || b.Width() != 3 {
		t.Errorf("Block(triangle) = %+v, %v", b, ok)
	}
	if _, ok := m.Block("quad"); ok {
		t.Error("Block(quad) found a block that does not exist")
	}
}

func TestNewRejects(t *testing.T) {
	points := [][]float64{{0, 0}, {1, 0}, {0, 1}}
	tri := CellBlock{Type: "triangle", Data: [][]int{{0, 1, 2}}}

	tests := []struct {
		name   string
		points [][]float64
		cells  []CellBlock
		opts   []Option
		want   string
	}{
		{
			name:   "duplicate cell type",
			points: points,
			cells:  []CellBlock{tri, tri},
			want:   "duplicate cell block",
		},
		{
			name:   "mixed dimensionality",
			points: [][]float64{{0, 0}, {1, 0, 0}},
			want:   "components",
		},
		{
			name:   "short point data",
			points: points,
			cells:  []CellBlock{tri},
			opts:   []Option{WithPointData(map[string][][]float64{"u": {{1}, {2}}})},
			want:   "point data",
		},
		{
			name:   "cell data block count",
			points: points,
			cells:  []CellBlock{tri},
			opts:   []Option{WithCellData(map[string][][][]float64{"c": {}})},
			want:   "one per cell block",
		},
		{
			name:   "cell data row count",
			points: points,
			cells:  []CellBlock{tri},
			opts:   []Option{WithCellData(map[string][][][]float64{"c": {{{1}, {2}}}})},
			want:   "has 2 rows",
		},
		{
			name:   "cell set block count",
			points: points,
			cells:  []CellBlock{tri},
			opts:   []Option{WithCellSets(map[string][][]int{"s": {{0}, {0}}})},
			want:   "cell set",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.points, tt.cells, tt.opts...)
			if err == nil {
				t.Fatal("New() error = nil, want error")
			}
			if !errors.Is(err, errors.ErrCodeInvalidMesh) {
				t.Errorf("New() code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidMesh)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("New() error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestValidateCells(t *testing.T) {
	tests := []struct {
		name    string
		block   CellBlock
		wantErr bool
	}{
		{"triangle width 3", CellBlock{Type: "triangle", Data: [][]int{{0, 1, 2}}}, false},
		{"triangle width 4", CellBlock{Type: "triangle", Data: [][]int{{0, 1, 2, 3}}}, true},
		{"polygon5 width 5", CellBlock{Type: "polygon5", Data: [][]int{{0, 1, 2, 3, 4}}}, false},
		{"polygon5 width 6", CellBlock{Type: "polygon5", Data: [][]int{{0, 1, 2, 3, 4, 5}}}, true},
		{"custom key width 2", CellBlock{Type: "custom_xyz", Data: [][]int{{0, 1}}}, false},
		{"custom key width 9", CellBlock{Type: "custom_xyz", Data: [][]int{{0, 1, 2, 3, 4, 5, 6, 7, 8}}}, false},
		{"tetra10", CellBlock{Type: "tetra10", Data: [][]int{{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}}}, false},
		{"ragged rows", CellBlock{Type: "quad", Data: [][]int{{0, 1, 2, 3}, {0, 1, 2}}}, true},
		{"empty block", CellBlock{Type: "hexahedron"}, false},
		{"polygon without size", CellBlock{Type: "polygon", Data: [][]int{{0, 1, 2, 3, 4, 5, 6}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Cells: []CellBlock{tt.block}}
			err := ValidateCells(m)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateCells() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrCodeInvalidCells) {
				t.Errorf("ValidateCells() code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidCells)
			}
		})
	}
}

func TestValidateCellsDoesNotMutate(t *testing.T) {
	m := triangleMesh()
	before := m.String()
	if err := ValidateCells(m); err != nil {
		t.Fatalf("ValidateCells() error: %v", err)
	}
	if after := m.String(); after != before {
		t.Errorf("mesh changed: %s -> %s", before, after)
	}
}

func TestNodesPerCell(t *testing.T) {
	tests := []struct {
		cellType string
		want     int
		ok       bool
	}{
		{"vertex", 1, true},
		{"line3", 3, true},
		{"quad8", 8, true},
		{"hexahedron27", 27, true},
		{"polygon12", 12, true},
		{"polygon0", 0, false},
		{"polygonX", 0, false},
		{"custom", 0, false},
	}
	for _, tt := range tests {
		got, ok := NodesPerCell(tt.cellType)
		if got != tt.want || ok != tt.ok {
			t.Errorf("NodesPerCell(%q) = %d, %v, want %d, %v", tt.cellType, got, ok, tt.want, tt.ok)
		}
	}
}

func TestTopologicalDim(t *testing.T) {
	tests := map[string]int{
		"vertex":       0,
		"line":         1,
		"line4":        1,
		"triangle6":    2,
		"polygon7":     2,
		"quad":         2,
		"tetra10":      3,
		"hexahedron20": 3,
		"custom":       -1,
	}
	for cellType, want := range tests {
		if got := TopologicalDim(cellType); got != want {
			t.Errorf("TopologicalDim(%q) = %d, want %d", cellType, got, want)
		}
	}
}

func TestPoints3D(t *testing.T) {
	m := triangleMesh()
	pts := m.Points3D()
	if len(pts) != 3 {
		t.Fatalf("len(Points3D()) = %d, want 3", len(pts))
	}
	if pts[1] != [3]float64{1, 0, 0} {
		t.Errorf("Points3D()[1] = %v, want [1 0 0]", pts[1])
	}
}
