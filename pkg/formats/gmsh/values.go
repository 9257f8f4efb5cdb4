package gmsh

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"github.com/matzehuels/meshio/pkg/formats/internal/textio"
)

// values reads the scalar kinds of a section body in either encoding.
// In binary files an integer is 4 bytes and size a size_t of the
// file's data size.
type values interface {
	integer() (int, error)
	size() (int, error)
	float() (float64, error)
}

type asciiValues struct{ tr *textio.Reader }

func (a asciiValues) integer() (int, error)   { return a.tr.Int() }
func (a asciiValues) size() (int, error)      { return a.tr.Int() }
func (a asciiValues) float() (float64, error) { return a.tr.Float() }

type binaryValues struct {
	br       *bufio.Reader
	order    binary.ByteOrder
	dataSize int
	buf      [8]byte
}

func (b *binaryValues) read(n int) ([]byte, error) {
	p := b.buf[:n]
	if _, err := io.ReadFull(b.br, p); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, textio.Invalid("binary section: %v", err)
	}
	return p, nil
}

func (b *binaryValues) integer() (int, error) {
	p, err := b.read(4)
	if err != nil {
		return 0, err
	}
	return int(int32(b.order.Uint32(p))), nil
}

func (b *binaryValues) size() (int, error) {
	if b.dataSize == 4 {
		p, err := b.read(4)
		if err != nil {
			return 0, err
		}
		return int(b.order.Uint32(p)), nil
	}
	p, err := b.read(8)
	if err != nil {
		return 0, err
	}
	return int(b.order.Uint64(p)), nil
}

func (b *binaryValues) float() (float64, error) {
	p, err := b.read(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(b.order.Uint64(p)), nil
}

// readN calls read n times. n usually comes from the file, so the
// result grows with the values actually read.
func readN(n int, read func() (int, error)) ([]int, error) {
	if n < 0 {
		return nil, textio.Invalid("negative count %d", n)
	}
	out := make([]int, 0, textio.Capacity(n))
	for range n {
		x, err := read()
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, nil
}
