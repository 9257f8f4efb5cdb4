// Package mesh defines the in-memory mesh shared by every format backend.
//
// A [Mesh] holds geometry (points), topology (cell blocks) and attached
// data. Readers produce it, writers consume it, and the dispatcher only
// ever reads it: nothing in this module mutates a Mesh it did not build.
//
// Cell blocks are kept in a slice rather than a map because their order
// is the write order for order-sensitive formats. Cell-type keys are
// unique within one Mesh; [New] enforces that together with the data
// alignment rules.
package mesh

import (
	"fmt"

	"github.com/matzehuels/meshio/pkg/errors"
)

// CellBlock is a named group of same-shape connectivity rows.
type CellBlock struct {
	Type string  // cell-type key, e.g. "triangle", "tetra", "polygon5"
	Data [][]int // node indices into Mesh.Points, one row per cell
}

// Len returns the number of cells in the block.
func (b CellBlock) Len() int { return len(b.Data) }

// Width returns the row width of the block, or 0 for an empty block.
func (b CellBlock) Width() int {
	if len(b.Data) == 0 {
		return 0
	}
	return len(b.Data[0])
}

// Mesh is the universal exchange value between backends and the dispatcher.
type Mesh struct {
	Points    [][]float64              // coordinates, fixed dimensionality
	Cells     []CellBlock              // ordered cell blocks, unique types
	PointData map[string][][]float64   // name -> rows aligned with Points
	CellData  map[string][][][]float64 // name -> one array per cell block
	FieldData map[string][]float64     // name -> mesh-global values
	PointSets map[string][]int         // name -> point indices
	CellSets  map[string][][]int       // name -> per-block cell indices
}

// Option configures optional Mesh attributes in [New].
type Option func(*Mesh)

// WithPointData attaches per-point arrays.
func WithPointData(data map[string][][]float64) Option {
	return func(m *Mesh) { m.PointData = data }
}

// WithCellData attaches per-cell arrays, one per cell block.
func WithCellData(data map[string][][][]float64) Option {
	return func(m *Mesh) { m.CellData = data }
}

// WithFieldData attaches mesh-global arrays.
func WithFieldData(data map[string][]float64) Option {
	return func(m *Mesh) { m.FieldData = data }
}

// WithPointSets attaches named point index sets.
func WithPointSets(sets map[string][]int) Option {
	return func(m *Mesh) { m.PointSets = sets }
}

// WithCellSets attaches named cell index sets, one list per cell block.
func WithCellSets(sets map[string][][]int) Option {
	return func(m *Mesh) { m.CellSets = sets }
}

// New builds a Mesh from raw arrays and checks its structural invariants.
//
// New returns an INVALID_MESH error if:
//   - points have inconsistent dimensionality
//   - two cell blocks share a type key
//   - a point_data array does not have one row per point
//   - a cell_data entry does not have one array per block with matching
//     row counts
//   - a cell set does not have one index list per block
//
// Cell row widths are not checked here; that is the job of [ValidateCells],
// which runs on the write path.
func New(points [][]float64, cells []CellBlock, opts ...Option) (*Mesh, error) {
	m := &Mesh{Points: points, Cells: cells}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.Check(); err != nil {
		return nil, err
	}
	return m, nil
}

// Check verifies the structural invariants documented on [New].
func (m *Mesh) Check() error {
	dim := m.Dim()
	for i, p := range m.Points {
		if len(p) != dim {
			return errors.New(errors.ErrCodeInvalidMesh,
				"point %d has %d components, expected %d", i, len(p), dim)
		}
	}

	seen := make(map[string]bool, len(m.Cells))
	for _, b := range m.Cells {
		if seen[b.Type] {
			return errors.New(errors.ErrCodeInvalidMesh, "duplicate cell block %q", b.Type)
		}
		seen[b.Type] = true
	}

	for name, data := range m.PointData {
		if len(data) != len(m.Points) {
			return errors.New(errors.ErrCodeInvalidMesh,
				"point data %q has %d rows, expected %d", name, len(data), len(m.Points))
		}
	}

	for name, blocks := range m.CellData {
		if len(blocks) != len(m.Cells) {
			return errors.New(errors.ErrCodeInvalidMesh,
				"cell data %q has %d arrays, expected one per cell block (%d)", name, len(blocks), len(m.Cells))
		}
		for i, data := range blocks {
			if len(data) != m.Cells[i].Len() {
				return errors.New(errors.ErrCodeInvalidMesh,
					"cell data %q block %d (%s) has %d rows, expected %d",
					name, i, m.Cells[i].Type, len(data), m.Cells[i].Len())
			}
		}
	}

	for name, blocks := range m.CellSets {
		if len(blocks) != len(m.Cells) {
			return errors.New(errors.ErrCodeInvalidMesh,
				"cell set %q has %d lists, expected one per cell block (%d)", name, len(blocks), len(m.Cells))
		}
	}

	return nil
}

// Dim returns the dimensionality of the points (0 for an empty mesh).
func (m *Mesh) Dim() int {
	if len(m.Points) == 0 {
		return 0
	}
	return len(m.Points[0])
}

// NumCells returns the total number of cells across all blocks.
func (m *Mesh) NumCells() int {
	n := 0
	for _, b := range m.Cells {
		n += b.Len()
	}
	return n
}

// CellTypes returns the block types in write order.
func (m *Mesh) CellTypes() []string {
	types := make([]string, len(m.Cells))
	for i, b := range m.Cells {
		types[i] = b.Type
	}
	return types
}

// Block returns the cell block with the given type.
func (m *Mesh) Block(cellType string) (CellBlock, bool) {
	for _, b := range m.Cells {
		if b.Type == cellType {
			return b, true
		}
	}
	return CellBlock{}, false
}

// Points3D returns the points padded (or truncated) to three components.
// Writers for formats that always store 3D coordinates use it.
func (m *Mesh) Points3D() [][3]float64 {
	out := make([][3]float64, len(m.Points))
	for i, p := range m.Points {
		copy(out[i][:], p)
	}
	return out
}

// String returns a short human-readable summary.
func (m *Mesh) String() string {
	s := fmt.Sprintf("<mesh: %d points (dim %d)", len(m.Points), m.Dim())
	for _, b := range m.Cells {
		s += fmt.Sprintf(", %s: %d", b.Type, b.Len())
	}
	return s + ">"
}
