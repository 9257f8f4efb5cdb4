package xdmf

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/meshio/pkg/errors"
	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/mesh"
)

func sample() *mesh.Mesh {
	return &mesh.Mesh{
		Points: [][]float64{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}, {0, 0, 1}},
		Cells: []mesh.CellBlock{
			{Type: "tetra", Data: [][]int{{0, 1, 2, 4}}},
			{Type: "triangle", Data: [][]int{{0, 1, 3}, {1, 2, 3}}},
			{Type: "line", Data: [][]int{{0, 4}}},
		},
		PointData: map[string][][]float64{
			"u": {{1, 0, 0}, {0, 1, 0}, {1, 1, 0}, {0, 0, 0}, {2, 2, 2}},
		},
		CellData: map[string][][][]float64{
			"id": {{{7}}, {{8}, {9}}, {{10}}},
		},
		FieldData: map[string][]float64{"time": {0.25}, "range": {-1, 1}},
	}
}

func noFiles(string) (io.ReadCloser, error) {
	return nil, os.ErrNotExist
}

func TestRoundTripXML(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, sample(), nil); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if !strings.Contains(buf.String(), `TopologyType="Mixed"`) {
		t.Errorf("expected a mixed topology:\n%s", buf.String())
	}
	out, err := Decode(&buf, noFiles)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if diff := cmp.Diff(sample(), out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTripSingleTopology(t *testing.T) {
	tests := []struct {
		name  string
		block mesh.CellBlock
		topo  string
	}{
		{"triangle", mesh.CellBlock{Type: "triangle", Data: [][]int{{0, 1, 2}, {0, 2, 3}}}, "Triangle"},
		{"polygon", mesh.CellBlock{Type: "polygon5", Data: [][]int{{0, 1, 2, 3, 4}}}, "Polygon"},
		{"vertex", mesh.CellBlock{Type: "vertex", Data: [][]int{{0}, {4}}}, "Polyvertex"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mesh.Mesh{
				Points: [][]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0.5, 1.5}},
				Cells:  []mesh.CellBlock{tt.block},
			}
			var buf bytes.Buffer
			if err := Encode(&buf, m, nil); err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			if !strings.Contains(buf.String(), `TopologyType="`+tt.topo+`"`) {
				t.Errorf("expected topology %s:\n%s", tt.topo, buf.String())
			}
			if !strings.Contains(buf.String(), `GeometryType="XY"`) {
				t.Errorf("expected 2D geometry")
			}
			out, err := Decode(&buf, noFiles)
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if diff := cmp.Diff(m, out); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRoundTripBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mesh.xdmf")
	if err := Write(formats.ToPath(path), sample(), formats.Params{DataFormat: "Binary"}, nil); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(path), "mesh_0.bin")); err != nil {
		t.Errorf("expected heavy data file: %v", err)
	}
	out, err := Read(formats.FromPath(path))
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if diff := cmp.Diff(sample(), out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeVersion2(t *testing.T) {
	input := `<?xml version="1.0"?>
<Xdmf Version="2.0">
  <Domain>
    <Grid Name="series" GridType="Collection">
      <Grid Name="step0">
        <Topology Type="Quadrilateral" NumberOfElements="1">
          <DataItem NumberType="Int" Dimensions="1 4" Format="XML">0 1 2 3</DataItem>
        </Topology>
        <Geometry Type="XYZ">
          <DataItem NumberType="Float" Precision="4" Dimensions="4 3" Format="XML">
            0 0 0 1 0 0 1 1 0 0 1 0
          </DataItem>
        </Geometry>
        <Attribute Name="p" Center="Cell">
          <DataItem Dimensions="1" Format="XML">3.5</DataItem>
        </Attribute>
      </Grid>
    </Grid>
  </Domain>
</Xdmf>
`
	m, err := Decode(strings.NewReader(input), noFiles)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	want := []mesh.CellBlock{{Type: "quad", Data: [][]int{{0, 1, 2, 3}}}}
	if diff := cmp.Diff(want, m.Cells); diff != "" {
		t.Errorf("cells mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][][]float64{{{3.5}}}, m.CellData["p"]); diff != "" {
		t.Errorf("cell data mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteRejects(t *testing.T) {
	tests := []struct {
		name string
		p    formats.Params
		code errors.Code
	}{
		{"hdf", formats.Params{DataFormat: "HDF"}, errors.ErrCodeUnsupported},
		{"binary buffer", formats.Params{DataFormat: "Binary"}, errors.ErrCodeBufferUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Write(formats.ToWriter(&bytes.Buffer{}), sample(), tt.p, nil)
			if !errors.Is(err, tt.code) {
				t.Errorf("Write() error = %v, want %s", err, tt.code)
			}
		})
	}

	m := &mesh.Mesh{Points: [][]float64{{0, 0, 0}}, Cells: []mesh.CellBlock{{Type: "blob", Data: [][]int{{0}}}}}
	if err := Encode(&bytes.Buffer{}, m, nil); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("Encode(blob) error = %v", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	grid := func(topology string) string {
		return `<Xdmf><Domain><Grid><Geometry GeometryType="XY"><DataItem Dimensions="2 2">0 0 1 1</DataItem></Geometry>` +
			topology + `</Grid></Domain></Xdmf>`
	}
	tests := []struct {
		name  string
		input string
		code  errors.Code
	}{
		{"not xml", "hello", errors.ErrCodeInvalidFormat},
		{"no grid", `<Xdmf><Domain/></Xdmf>`, errors.ErrCodeInvalidFormat},
		{"hdf", `<Xdmf><Domain><Grid><Geometry><DataItem Format="HDF">mesh.h5:/points</DataItem></Geometry></Grid></Domain></Xdmf>`, errors.ErrCodeUnsupported},
		{"unknown topology", grid(`<Topology TopologyType="Blob"><DataItem>0 1</DataItem></Topology>`), errors.ErrCodeUnsupported},
		{"unknown mixed id", grid(`<Topology TopologyType="Mixed"><DataItem>99 0 1</DataItem></Topology>`), errors.ErrCodeUnsupported},
		{"truncated mixed", grid(`<Topology TopologyType="Mixed"><DataItem>4 0 1</DataItem></Topology>`), errors.ErrCodeInvalidFormat},
		{"bad index", grid(`<Topology TopologyType="Polyline" NodesPerElement="2"><DataItem>0 5</DataItem></Topology>`), errors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(tt.input), noFiles); !errors.Is(err, tt.code) {
				t.Errorf("Decode() error = %v, want %s", err, tt.code)
			}
		})
	}

	input := `<Xdmf><Domain><Grid><Geometry><DataItem Format="Binary">points.bin</DataItem></Geometry></Grid></Domain></Xdmf>`
	_, err := Read(formats.FromReader(strings.NewReader(input)))
	if !errors.Is(err, errors.ErrCodeBufferUnsupported) {
		t.Errorf("Read(buffer with heavy data) error = %v", err)
	}
}
