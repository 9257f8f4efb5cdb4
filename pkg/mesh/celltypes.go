package mesh

// NumNodesPerCell maps a cell-type key to the number of nodes per cell.
// Keys outside this table (and outside the polygonN family) are allowed
// in a Mesh but are not shape-checked.
var NumNodesPerCell = map[string]int{
	"vertex": 1,

	"line":   2,
	"line3":  3,
	"line4":  4,
	"line5":  5,
	"line6":  6,
	"line7":  7,
	"line8":  8,
	"line9":  9,
	"line10": 10,
	"line11": 11,

	"triangle":   3,
	"triangle6":  6,
	"triangle7":  7,
	"triangle10": 10,
	"triangle15": 15,
	"triangle21": 21,
	"triangle28": 28,
	"triangle36": 36,
	"triangle45": 45,
	"triangle55": 55,
	"triangle66": 66,

	"quad":    4,
	"quad8":   8,
	"quad9":   9,
	"quad16":  16,
	"quad25":  25,
	"quad36":  36,
	"quad49":  49,
	"quad64":  64,
	"quad81":  81,
	"quad100": 100,
	"quad121": 121,

	"tetra":    4,
	"tetra10":  10,
	"tetra20":  20,
	"tetra35":  35,
	"tetra56":  56,
	"tetra84":  84,
	"tetra120": 120,
	"tetra165": 165,
	"tetra220": 220,
	"tetra286": 286,

	"hexahedron":     8,
	"hexahedron20":   20,
	"hexahedron24":   24,
	"hexahedron27":   27,
	"hexahedron64":   64,
	"hexahedron125":  125,
	"hexahedron216":  216,
	"hexahedron343":  343,
	"hexahedron512":  512,
	"hexahedron729":  729,
	"hexahedron1000": 1000,
	"hexahedron1331": 1331,

	"wedge":    6,
	"wedge12":  12,
	"wedge15":  15,
	"wedge18":  18,
	"wedge40":  40,
	"wedge75":  75,
	"wedge126": 126,
	"wedge196": 196,
	"wedge288": 288,
	"wedge405": 405,
	"wedge550": 550,
	"wedge726": 726,

	"pyramid":   5,
	"pyramid13": 13,
	"pyramid14": 14,
}

// NodesPerCell returns the expected node count for cellType.
// For "polygonN" keys it returns N.
func NodesPerCell(cellType string) (int, bool) {
	if n, ok := polygonSize(cellType); ok {
		return n, true
	}
	n, ok := NumNodesPerCell[cellType]
	return n, ok
}

// TopologicalDim returns the topological dimension of a known cell type,
// or -1 for keys the table does not describe.
func TopologicalDim(cellType string) int {
	if _, ok := polygonSize(cellType); ok {
		return 2
	}
	base := trimDigits(cellType)
	switch base {
	case "vertex":
		return 0
	case "line":
		return 1
	case "triangle", "quad", "polygon":
		return 2
	case "tetra", "hexahedron", "wedge", "pyramid":
		return 3
	}
	return -1
}

func trimDigits(s string) string {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	return s[:i]
}
