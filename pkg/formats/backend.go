package formats

import (
	"fmt"
	"strconv"

	"github.com/matzehuels/meshio/pkg/mesh"
)

// Params are the fixed parameters an alias entry bakes into a writer call.
// They select a variant of a multi-mode backend; callers never set them
// directly, they pick an identifier instead.
type Params struct {
	Binary     bool   // binary instead of ASCII encoding
	Version    string // file format version token, e.g. "2" or "4" for gmsh
	DataFormat string // data encoding mode, e.g. "XML", "Binary", "HDF" for xdmf
}

// Options are backend-specific keyword options, forwarded verbatim from
// the caller to the writer.
type Options map[string]any

// ReadFunc is the backend reader contract.
type ReadFunc func(src Source) (*mesh.Mesh, error)

// WriteFunc is the backend writer contract.
type WriteFunc func(dst Destination, m *mesh.Mesh, p Params, opts Options) error

// Backend describes one physical file format and the identifiers it serves.
//
// A backend may support reading, writing, or both. Several identifiers can
// resolve to the same backend; write identifiers carry the [Params] that
// distinguish the variants (an alias group).
type Backend struct {
	Name       string            // backend name, e.g. "gmsh"
	Extensions map[string]string // lowercase dotted suffix -> identifier
	MultiFile  bool              // needs several physical files; no buffer I/O
	Readers    []string          // identifiers resolved to Read
	Writers    map[string]Params // identifiers resolved to Write, with fixed params
	Read       ReadFunc
	Write      WriteFunc
}

// CanRead reports whether the backend has a reader.
func (b *Backend) CanRead() bool { return b.Read != nil && len(b.Readers) > 0 }

// CanWrite reports whether the backend has a writer.
func (b *Backend) CanWrite() bool { return b.Write != nil && len(b.Writers) > 0 }

// ReadEntry is a resolved read-table entry.
type ReadEntry struct {
	Format  string
	Backend *Backend
}

// Read invokes the backend reader.
func (e ReadEntry) Read(src Source) (*mesh.Mesh, error) {
	return e.Backend.Read(src)
}

// WriteEntry is a resolved write-table entry: a backend plus the fixed
// parameters of the identifier that selected it.
type WriteEntry struct {
	Format  string
	Backend *Backend
	Params  Params
}

// Write invokes the backend writer with the entry's fixed parameters.
func (e WriteEntry) Write(dst Destination, m *mesh.Mesh, opts Options) error {
	return e.Backend.Write(dst, m, e.Params, opts)
}

// Bool returns the boolean option key, or def if it is absent.
// String values ("true", "1", ...) are accepted so that options coming
// from the command line or a query string work unchanged.
func (o Options) Bool(key string, def bool) (bool, error) {
	v, ok := o[key]
	if !ok {
		return def, nil
	}
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(x)
		if err != nil {
			return def, fmt.Errorf("option %s: %w", key, err)
		}
		return b, nil
	}
	return def, fmt.Errorf("option %s: expected bool, got %T", key, v)
}

// Int returns the integer option key, or def if it is absent.
func (o Options) Int(key string, def int) (int, error) {
	v, ok := o[key]
	if !ok {
		return def, nil
	}
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		return int(x), nil
	case string:
		n, err := strconv.Atoi(x)
		if err != nil {
			return def, fmt.Errorf("option %s: %w", key, err)
		}
		return n, nil
	}
	return def, fmt.Errorf("option %s: expected integer, got %T", key, v)
}

// Float returns the float option key, or def if it is absent.
func (o Options) Float(key string, def float64) (float64, error) {
	v, ok := o[key]
	if !ok {
		return def, nil
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return def, fmt.Errorf("option %s: %w", key, err)
		}
		return f, nil
	}
	return def, fmt.Errorf("option %s: expected number, got %T", key, v)
}

// String returns the string option key, or def if it is absent.
func (o Options) String(key, def string) string {
	v, ok := o[key]
	if !ok {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
