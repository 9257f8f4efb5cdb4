// Package formats holds the format registry: the lookup tables that map
// format identifiers and file extensions onto backends.
//
// A [Registry] is built once from a list of [Backend] descriptors and is
// read-only afterwards, so it can be shared by any number of goroutines.
// Read and write identifiers live in separate tables because a backend may
// support only one direction, and because alias groups are registered per
// direction: the writer side of "gmsh4-binary" carries fixed parameters
// the reader side does not need.
//
// The concrete backends live in sub-packages; backends.Default assembles
// them into the registry the dispatcher uses.
package formats

import (
	"fmt"
	"slices"
	"sort"

	"github.com/matzehuels/meshio/pkg/errors"
)

// Registry maps format identifiers to backend entries.
type Registry struct {
	backends   []*Backend
	readers    map[string]ReadEntry
	writers    map[string]WriteEntry
	extensions map[string]string
	multiFile  map[string]bool
}

// New builds a registry from the given backends.
//
// New panics if two backends claim the same read identifier, write
// identifier or extension, or if an identifier or extension is malformed.
// Registries are assembled from static descriptors, so a conflict is a
// programming error rather than a runtime condition.
func New(backends ...*Backend) *Registry {
	r := &Registry{
		readers:    make(map[string]ReadEntry),
		writers:    make(map[string]WriteEntry),
		extensions: make(map[string]string),
		multiFile:  make(map[string]bool),
	}
	for _, b := range backends {
		r.register(b)
	}
	return r
}

func (r *Registry) register(b *Backend) {
	if b == nil || b.Name == "" {
		panic("formats: backend without a name")
	}
	if len(b.Readers) > 0 && b.Read == nil {
		panic(fmt.Sprintf("formats: backend %s lists readers but has no Read func", b.Name))
	}
	if len(b.Writers) > 0 && b.Write == nil {
		panic(fmt.Sprintf("formats: backend %s lists writers but has no Write func", b.Name))
	}

	for _, id := range b.Readers {
		mustValidID(b, id)
		if prev, ok := r.readers[id]; ok {
			panic(fmt.Sprintf("formats: read format %q registered by %s and %s", id, prev.Backend.Name, b.Name))
		}
		r.readers[id] = ReadEntry{Format: id, Backend: b}
		if b.MultiFile {
			r.multiFile[id] = true
		}
	}
	for id, p := range b.Writers {
		mustValidID(b, id)
		if prev, ok := r.writers[id]; ok {
			panic(fmt.Sprintf("formats: write format %q registered by %s and %s", id, prev.Backend.Name, b.Name))
		}
		r.writers[id] = WriteEntry{Format: id, Backend: b, Params: p}
		if b.MultiFile {
			r.multiFile[id] = true
		}
	}
	for ext, id := range b.Extensions {
		if err := errors.ValidateExtension(ext); err != nil {
			panic(fmt.Sprintf("formats: backend %s: %v", b.Name, err))
		}
		if prev, ok := r.extensions[ext]; ok {
			panic(fmt.Sprintf("formats: extension %s mapped to %q and %q", ext, prev, id))
		}
		if !slices.Contains(b.Readers, id) {
			if _, ok := b.Writers[id]; !ok {
				panic(fmt.Sprintf("formats: backend %s maps %s to foreign format %q", b.Name, ext, id))
			}
		}
		r.extensions[ext] = id
	}
	r.backends = append(r.backends, b)
}

func mustValidID(b *Backend, id string) {
	if err := errors.ValidateFormatID(id); err != nil {
		panic(fmt.Sprintf("formats: backend %s: %v", b.Name, err))
	}
}

// LookupReader resolves a read identifier. Unknown identifiers yield an
// UNKNOWN_FORMAT error listing every read identifier.
func (r *Registry) LookupReader(id string) (ReadEntry, error) {
	e, ok := r.readers[id]
	if !ok {
		return ReadEntry{}, errors.New(errors.ErrCodeUnknownFormat,
			"unknown read format %q, known formats: %v", id, r.ReadFormats())
	}
	return e, nil
}

// LookupWriter resolves a write identifier. Unknown identifiers yield an
// UNKNOWN_FORMAT error listing every write identifier.
func (r *Registry) LookupWriter(id string) (WriteEntry, error) {
	e, ok := r.writers[id]
	if !ok {
		return WriteEntry{}, errors.New(errors.ErrCodeUnknownFormat,
			"unknown format %q, pick one of %v", id, r.WriteFormats())
	}
	return e, nil
}

// ReadFormats returns the sorted read identifiers.
func (r *Registry) ReadFormats() []string { return sortedKeys(r.readers) }

// WriteFormats returns the sorted write identifiers.
func (r *Registry) WriteFormats() []string { return sortedKeys(r.writers) }

// Extensions returns a copy of the extension table.
func (r *Registry) Extensions() map[string]string {
	out := make(map[string]string, len(r.extensions))
	for k, v := range r.extensions {
		out[k] = v
	}
	return out
}

// IsMultiFile reports whether id belongs to a backend that spreads one
// mesh across several files. Such formats cannot use buffers.
func (r *Registry) IsMultiFile(id string) bool { return r.multiFile[id] }

// Backends returns the registered backends in registration order.
func (r *Registry) Backends() []*Backend {
	return slices.Clone(r.backends)
}

// Backend returns the backend with the given name.
func (r *Registry) Backend(name string) (*Backend, bool) {
	for _, b := range r.backends {
		if b.Name == name {
			return b, true
		}
	}
	return nil, false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
