package textio

import (
	"bytes"
	"io"
	"math"

	"github.com/matzehuels/meshio/pkg/errors"
	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/mesh"
)

// ReadSource opens src, hands the stream to fn and closes it again.
func ReadSource(src formats.Source, fn func(io.Reader) (*mesh.Mesh, error)) (*mesh.Mesh, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return fn(rc)
}

// WriteDestination creates dst, hands the stream to fn and closes it.
// A close failure is reported when fn succeeded.
func WriteDestination(dst formats.Destination, fn func(io.Writer) error) (err error) {
	wc, err := dst.Create()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := wc.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(wc)
}

// Blocks collects cells row by row into type-keyed blocks, keeping the
// order in which types first appear.
type Blocks struct {
	order []string
	data  map[string][][]int
}

// Add appends row to the block of cellType and returns the row index
// within that block.
func (b *Blocks) Add(cellType string, row []int) int {
	if b.data == nil {
		b.data = make(map[string][][]int)
	}
	rows, ok := b.data[cellType]
	if !ok {
		b.order = append(b.order, cellType)
	}
	b.data[cellType] = append(rows, row)
	return len(rows)
}

// Index returns the position of the cellType block in [Blocks.Cells].
func (b *Blocks) Index(cellType string) int {
	for i, t := range b.order {
		if t == cellType {
			return i
		}
	}
	return -1
}

// Len returns the number of blocks.
func (b *Blocks) Len() int { return len(b.order) }

// Cells returns the collected blocks.
func (b *Blocks) Cells() []mesh.CellBlock {
	out := make([]mesh.CellBlock, len(b.order))
	for i, t := range b.order {
		out[i] = mesh.CellBlock{Type: t, Data: b.data[t]}
	}
	return out
}

// maxPrealloc bounds the capacity reserved for a count taken from a file.
// Larger inputs grow by append as their data actually arrives.
const maxPrealloc = 1 << 16

// Capacity returns how many items to reserve for n items announced by a
// file header. Counts are untrusted until the data has been read.
func Capacity(n int) int {
	return min(max(n, 0), maxPrealloc)
}

// ReadBytes reads n items of size bytes each from r. The buffer grows with
// the data read, so a count announced by a header cannot reserve memory
// the stream does not back. A short stream yields io.ErrUnexpectedEOF.
func ReadBytes(r io.Reader, n, size int) ([]byte, error) {
	if n < 0 || size <= 0 || n > math.MaxInt/size {
		return nil, Invalid("invalid item count %d", n)
	}
	var buf bytes.Buffer
	buf.Grow(Capacity(n) * size)
	if _, err := io.CopyN(&buf, r, int64(n)*int64(size)); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unsupported returns an UNSUPPORTED error for a feature a backend lacks.
func Unsupported(format string, args ...any) error {
	return errors.New(errors.ErrCodeUnsupported, format, args...)
}

// Invalid returns an INVALID_FORMAT error for malformed input.
func Invalid(format string, args ...any) error {
	return errors.New(errors.ErrCodeInvalidFormat, format, args...)
}

// CheckIndices verifies that every cell references an existing point.
func CheckIndices(cells []mesh.CellBlock, numPoints int) error {
	for _, b := range cells {
		for i, row := range b.Data {
			for _, idx := range row {
				if idx < 0 || idx >= numPoints {
					return Invalid("%s cell %d references point %d, mesh has %d points", b.Type, i, idx, numPoints)
				}
			}
		}
	}
	return nil
}
