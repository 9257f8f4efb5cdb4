package neuroglancer

import (
	"bytes"
	"encoding/binary"
	"math"
	"runtime"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/meshio/pkg/errors"
	"github.com/matzehuels/meshio/pkg/mesh"
)

func TestRoundTrip(t *testing.T) {
	want := &mesh.Mesh{
		Points: [][]float64{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0.5}},
		Cells:  []mesh.CellBlock{{Type: "triangle", Data: [][]int{{0, 1, 2}, {0, 2, 3}}}},
	}
	var buf bytes.Buffer
	if err := Encode(&buf, want); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if got := buf.Len(); got != 4+4*12+2*12 {
		t.Errorf("encoded size = %d", got)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeErrors(t *testing.T) {
	header := func(n uint32) []byte {
		return binary.LittleEndian.AppendUint32(nil, n)
	}
	oneVertex := slices.Concat(header(1), make([]byte, 12))
	tests := []struct {
		name  string
		input []byte
	}{
		{"empty", nil},
		{"short vertices", slices.Concat(header(2), make([]byte, 12))},
		{"partial triangle", slices.Concat(oneVertex, make([]byte, 5))},
		{"bad index", slices.Concat(oneVertex, header(0), header(0), header(3))},
		{"oversized count", header(50_000_000)},
		{"maximal count", header(math.MaxUint32)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(bytes.NewReader(tt.input)); !errors.Is(err, errors.ErrCodeInvalidFormat) {
				t.Errorf("Decode() error = %v, want INVALID_FORMAT", err)
			}
		})
	}
}

func TestDecodeHeaderDoesNotReserveMemory(t *testing.T) {
	input := binary.LittleEndian.AppendUint32(nil, 50_000_000)
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	if _, err := Decode(bytes.NewReader(input)); err == nil {
		t.Fatal("Decode() succeeded on a truncated file")
	}
	runtime.ReadMemStats(&after)
	if grown := after.TotalAlloc - before.TotalAlloc; grown > 16<<20 {
		t.Errorf("Decode() allocated %d bytes for a %d-byte input", grown, len(input))
	}
}

func TestEncodeRejects(t *testing.T) {
	tests := []struct {
		name string
		m    *mesh.Mesh
	}{
		{"2D", &mesh.Mesh{Points: [][]float64{{0, 0}}}},
		{"quad", &mesh.Mesh{
			Points: [][]float64{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
			Cells:  []mesh.CellBlock{{Type: "quad", Data: [][]int{{0, 1, 2, 3}}}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Encode(&bytes.Buffer{}, tt.m); !errors.Is(err, errors.ErrCodeUnsupported) {
				t.Errorf("Encode() error = %v, want UNSUPPORTED", err)
			}
		})
	}
}
