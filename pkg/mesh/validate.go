package mesh

import (
	"strconv"
	"strings"

	"github.com/matzehuels/meshio/pkg/errors"
)

const polygonPrefix = "polygon"

// polygonSize parses the N of a "polygonN" key. Keys that carry the prefix
// but no positive integer suffix are not part of the family.
func polygonSize(cellType string) (int, bool) {
	if !strings.HasPrefix(cellType, polygonPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(cellType[len(polygonPrefix):])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// ValidateCells checks every cell block's row width against its type:
//   - "polygonN" blocks must have width N
//   - types in [NumNodesPerCell] must have the tabulated width
//   - any other type is accepted as is
//
// Unknown keys are skipped on purpose: backends and callers may use
// their own cell-type extensions that cannot be judged here.
// ValidateCells never modifies m.
func ValidateCells(m *Mesh) error {
	for _, b := range m.Cells {
		want, ok := NodesPerCell(b.Type)
		if !ok {
			continue
		}
		for i, row := range b.Data {
			if len(row) != want {
				return errors.New(errors.ErrCodeInvalidCells,
					"cell block %q row %d has %d nodes, expected %d", b.Type, i, len(row), want)
			}
		}
	}
	return nil
}
