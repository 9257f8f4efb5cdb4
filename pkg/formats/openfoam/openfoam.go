// Package openfoam writes OpenFOAM polyMesh directories.
//
// The destination path names the polyMesh directory, which is created and
// must not exist yet. Volume cells (tetrahedra, pyramids, wedges and
// hexahedra) are decomposed into faces; a face shared by two cells is
// internal, all others go to a single "defaultPatch" boundary. Lower
// dimensional cells are ignored. The backend is write-only.
package openfoam

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/matzehuels/meshio/pkg/errors"
	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/formats/internal/textio"
	"github.com/matzehuels/meshio/pkg/mesh"
)

// Backend is the OpenFOAM backend.
var Backend = &formats.Backend{
	Name:      "openfoam",
	MultiFile: true,
	Writers:   map[string]formats.Params{"openfoam": {}},
	Write:     Write,
}

// Local corner orders of each face, oriented outwards.
var cellFaces = map[string][][]int{
	"tetra": {
		{0, 2, 1}, {1, 2, 3}, {0, 1, 3}, {0, 3, 2},
	},
	"pyramid": {
		{0, 3, 2, 1}, {0, 1, 4}, {1, 2, 4}, {2, 3, 4}, {0, 4, 3},
	},
	"wedge": {
		{0, 2, 1}, {3, 4, 5}, {0, 1, 4, 3}, {1, 2, 5, 4}, {2, 0, 3, 5},
	},
	"hexahedron": {
		{0, 3, 2, 1}, {4, 5, 6, 7}, {0, 1, 5, 4}, {1, 2, 6, 5}, {2, 3, 7, 6}, {3, 0, 4, 7},
	},
}

const patchName = "defaultPatch"

// Face is a polyMesh face: its corners as seen from the owner cell, the
// owner and, for internal faces, the neighbour (-1 otherwise).
type Face struct {
	Points    []int
	Owner     int
	Neighbour int
}

// Faces decomposes the volume cells of m into faces. Internal faces come
// first, ordered by owner and neighbour; boundary faces follow in the
// order they were found. It returns the faces and the internal count.
func Faces(m *mesh.Mesh) ([]Face, int, error) {
	var (
		faces []Face
		index = map[string]int{}
		cell  = 0
	)
	for _, b := range m.Cells {
		orders, ok := cellFaces[b.Type]
		if !ok {
			if mesh.TopologicalDim(b.Type) == 3 {
				return nil, 0, textio.Unsupported("openfoam cannot store %s cells", b.Type)
			}
			continue
		}
		for _, row := range b.Data {
			for _, order := range orders {
				pts := make([]int, len(order))
				for k, j := range order {
					pts[k] = row[j]
				}
				key := faceKey(pts)
				if i, ok := index[key]; ok {
					if faces[i].Neighbour >= 0 {
						return nil, 0, errors.New(errors.ErrCodeInvalidMesh, "openfoam: face %v is shared by more than two cells", pts)
					}
					faces[i].Neighbour = cell
					continue
				}
				index[key] = len(faces)
				faces = append(faces, Face{Points: pts, Owner: cell, Neighbour: -1})
			}
			cell++
		}
	}

	var internal, boundary []Face
	for _, f := range faces {
		if f.Neighbour >= 0 {
			internal = append(internal, f)
		} else {
			boundary = append(boundary, f)
		}
	}
	sort.SliceStable(internal, func(i, j int) bool {
		if internal[i].Owner != internal[j].Owner {
			return internal[i].Owner < internal[j].Owner
		}
		return internal[i].Neighbour < internal[j].Neighbour
	})
	return append(internal, boundary...), len(internal), nil
}

// faceKey identifies a face by its corner set.
func faceKey(pts []int) string {
	sorted := slices.Clone(pts)
	slices.Sort(sorted)
	return joinInts(sorted)
}

// Write writes m as a polyMesh directory at dst.
func Write(dst formats.Destination, m *mesh.Mesh, _ formats.Params, _ formats.Options) error {
	if dst.IsBuffer() {
		return errors.New(errors.ErrCodeBufferUnsupported, "openfoam writes a directory and needs a path")
	}
	faces, numInternal, err := Faces(m)
	if err != nil {
		return err
	}
	dir := dst.Path()
	if err := os.Mkdir(dir, 0o755); err != nil {
		if os.IsExist(err) {
			return errors.New(errors.ErrCodeInvalidPath, "openfoam: %s already exists", dir)
		}
		return err
	}

	files := []struct {
		class, object string
		body          func(tw *textio.Writer)
	}{
		{"vectorField", "points", func(tw *textio.Writer) {
			pts := m.Points3D()
			tw.Printf("%d\n(\n", len(pts))
			for _, p := range pts {
				tw.Printf("(%s %s %s)\n", textio.FormatFloat(p[0]), textio.FormatFloat(p[1]), textio.FormatFloat(p[2]))
			}
			tw.Line(")")
		}},
		{"faceList", "faces", func(tw *textio.Writer) {
			tw.Printf("%d\n(\n", len(faces))
			for _, f := range faces {
				tw.Printf("%d(%s)\n", len(f.Points), joinInts(f.Points))
			}
			tw.Line(")")
		}},
		{"labelList", "owner", func(tw *textio.Writer) {
			tw.Printf("%d\n(\n", len(faces))
			for _, f := range faces {
				tw.Line(strconv.Itoa(f.Owner))
			}
			tw.Line(")")
		}},
		{"labelList", "neighbour", func(tw *textio.Writer) {
			tw.Printf("%d\n(\n", numInternal)
			for _, f := range faces[:numInternal] {
				tw.Line(strconv.Itoa(f.Neighbour))
			}
			tw.Line(")")
		}},
		{"polyBoundaryMesh", "boundary", func(tw *textio.Writer) {
			tw.Line("1")
			tw.Line("(")
			tw.Line("    " + patchName)
			tw.Line("    {")
			tw.Line("        type            patch;")
			tw.Line("        physicalType    patch;")
			tw.Printf("        nFaces          %d;\n", len(faces)-numInternal)
			tw.Printf("        startFace       %d;\n", numInternal)
			tw.Line("    }")
			tw.Line(")")
		}},
	}
	for _, f := range files {
		err := textio.WriteDestination(formats.ToPath(filepath.Join(dir, f.object)), func(w io.Writer) error {
			tw := textio.NewWriter(w)
			writeHeader(tw, f.class, f.object)
			f.body(tw)
			tw.Line("")
			tw.Line("// ************************************************************************* //")
			return tw.Flush()
		})
		if err != nil {
			return fmt.Errorf("write openfoam %s: %w", f.object, err)
		}
	}
	return nil
}

func writeHeader(tw *textio.Writer, class, object string) {
	tw.Line("/*--------------------------------*- C++ -*----------------------------------*\\")
	tw.Line("  written by meshio")
	tw.Line("\\*---------------------------------------------------------------------------*/")
	tw.Line("FoamFile")
	tw.Line("{")
	tw.Line("    version     2.0;")
	tw.Line("    format      ascii;")
	tw.Printf("    class       %s;\n", class)
	tw.Line(`    location    "constant/polyMesh";`)
	tw.Printf("    object      %s;\n", object)
	tw.Line("}")
	tw.Line("// * * * * * * * * * * * * * * * * * * * * * * * * * * * * * * * * * * * * * //")
	tw.Line("")
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, " ")
}
