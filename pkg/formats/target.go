package formats

import (
	"io"
	"os"
)

// Source is where a mesh is read from: a filesystem path or an in-memory
// stream. Buffers carry no file name, so they never take part in format
// inference.
type Source struct {
	path string
	r    io.Reader
}

// FromPath returns a Source reading the file at path.
func FromPath(path string) Source { return Source{path: path} }

// FromReader returns a Source reading from r.
func FromReader(r io.Reader) Source { return Source{r: r} }

// Path returns the source path, or "" for buffers.
func (s Source) Path() string { return s.path }

// IsBuffer reports whether the source is an in-memory stream.
func (s Source) IsBuffer() bool { return s.r != nil }

// Open returns a stream over the source. For buffers the returned closer
// does not close the underlying reader.
func (s Source) Open() (io.ReadCloser, error) {
	if s.r != nil {
		return io.NopCloser(s.r), nil
	}
	return os.Open(s.path)
}

// String identifies the source in diagnostics.
func (s Source) String() string {
	if s.r != nil {
		return "<buffer>"
	}
	return s.path
}

// Destination is where a mesh is written to: a filesystem path or an
// in-memory stream.
type Destination struct {
	path string
	w    io.Writer
}

// ToPath returns a Destination writing the file at path.
func ToPath(path string) Destination { return Destination{path: path} }

// ToWriter returns a Destination writing to w.
func ToWriter(w io.Writer) Destination { return Destination{w: w} }

// Path returns the destination path, or "" for buffers.
func (d Destination) Path() string { return d.path }

// IsBuffer reports whether the destination is an in-memory stream.
func (d Destination) IsBuffer() bool { return d.w != nil }

// Create returns a stream over the destination, truncating an existing
// file. For buffers the returned closer does not close the underlying writer.
func (d Destination) Create() (io.WriteCloser, error) {
	if d.w != nil {
		return nopWriteCloser{d.w}, nil
	}
	return os.Create(d.path)
}

// String identifies the destination in diagnostics.
func (d Destination) String() string {
	if d.w != nil {
		return "<buffer>"
	}
	return d.path
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
