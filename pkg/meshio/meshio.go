// Package meshio is the read/write entry point for mesh files.
//
// A [Dispatcher] resolves a format identifier for a source or destination
// (explicitly given or inferred from the file extension), looks it up in a
// [formats.Registry], validates meshes on the write path and hands control
// to the backend. The package-level functions use a dispatcher over the
// default registry with every built-in backend.
//
// # Reading
//
//	m, err := meshio.ReadFile("part.vtk", "")           // inferred
//	m, err := meshio.Read(formats.FromReader(r), "obj")  // buffers need a format
//
// # Writing
//
//	err := meshio.WriteFile("part.msh", m, "gmsh2-ascii", nil)
//	err := meshio.WritePointsCells(formats.ToPath("tri.vtk"), points, cells, "vtk-ascii", nil)
//
// Every error returned here is an [errors.Error] tagged with the read or
// write direction; see [errors.IsRead] and [errors.IsWrite].
package meshio

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/meshio/pkg/errors"
	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/formats/backends"
	"github.com/matzehuels/meshio/pkg/mesh"
	"github.com/matzehuels/meshio/pkg/observability"
)

// Dispatcher routes reads and writes to registry backends.
// It holds no mutable state and is safe for concurrent use.
type Dispatcher struct {
	registry *formats.Registry
	logger   *log.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger for dispatch traces (debug level).
func WithLogger(l *log.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// New returns a dispatcher over r.
func New(r *formats.Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{registry: r, logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the registry the dispatcher resolves against.
func (d *Dispatcher) Registry() *formats.Registry { return d.registry }

// Read reads a mesh from src.
//
// Buffers require an explicit format and cannot use multi-file formats.
// Paths must exist; the check happens before the format is resolved. An
// empty format on a path is inferred from its extension. The backend's
// mesh is returned unchanged.
func (d *Dispatcher) Read(src formats.Source, format string) (*mesh.Mesh, error) {
	if src.IsBuffer() {
		if err := d.checkBuffer(errors.OpRead, format); err != nil {
			return nil, err
		}
	} else {
		path := src.Path()
		if path == "" {
			return nil, errors.NewRead(errors.ErrCodeInvalidUsage, "no source given")
		}
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return nil, errors.NewRead(errors.ErrCodeFileNotFound, "file %s not found", path)
			}
			return nil, errors.WrapRead(errors.ErrCodeInvalidPath, err, "stat %s", path)
		}
		if format == "" {
			id, err := d.registry.Infer(path)
			if err != nil {
				return nil, errors.WithOp(errors.OpRead, errors.ErrCodeUnknownExtension, err)
			}
			d.logger.Debug("inferred format", "path", path, "format", id)
			format = id
		}
	}

	entry, err := d.registry.LookupReader(format)
	if err != nil {
		return nil, errors.NewRead(errors.ErrCodeUnknownFormat,
			"unknown file format %q of %s, known formats: %v", format, src, d.registry.ReadFormats())
	}

	d.logger.Debug("read", "source", src, "format", format, "backend", entry.Backend.Name)
	start := time.Now()
	m, err := entry.Read(src)
	observability.IO().OnRead(context.Background(), format, time.Since(start), err)
	if err != nil {
		return nil, errors.WrapRead(errors.ErrCodeBackend, err, "read %s as %s", src, format)
	}
	return m, nil
}

// Write writes m to dst.
//
// Format resolution follows [Dispatcher.Read], except that a destination
// path need not exist. Before the writer runs, cell blocks are checked with
// [mesh.ValidateCells]. opts are passed to the writer verbatim, next to
// the fixed parameters of the resolved identifier.
func (d *Dispatcher) Write(dst formats.Destination, m *mesh.Mesh, format string, opts formats.Options) error {
	if m == nil {
		return errors.NewWrite(errors.ErrCodeInvalidUsage, "no mesh given")
	}
	if dst.IsBuffer() {
		if err := d.checkBuffer(errors.OpWrite, format); err != nil {
			return err
		}
	} else {
		path := dst.Path()
		if path == "" {
			return errors.NewWrite(errors.ErrCodeInvalidUsage, "no destination given")
		}
		if format == "" {
			id, err := d.registry.Infer(path)
			if err != nil {
				return errors.WithOp(errors.OpWrite, errors.ErrCodeUnknownExtension, err)
			}
			d.logger.Debug("inferred format", "path", path, "format", id)
			format = id
		}
	}

	entry, err := d.registry.LookupWriter(format)
	if err != nil {
		return errors.WithOp(errors.OpWrite, errors.ErrCodeUnknownFormat, err)
	}

	if err := mesh.ValidateCells(m); err != nil {
		return errors.WithOp(errors.OpWrite, errors.ErrCodeInvalidCells, err)
	}

	d.logger.Debug("write", "destination", dst, "format", format, "backend", entry.Backend.Name,
		"points", len(m.Points), "cells", m.NumCells())
	start := time.Now()
	err = entry.Write(dst, m, opts)
	observability.IO().OnWrite(context.Background(), format, time.Since(start), err)
	if err != nil {
		return errors.WrapWrite(errors.ErrCodeBackend, err, "write %s as %s", dst, format)
	}
	return nil
}

// WritePointsCells builds a mesh from raw arrays and writes it.
// Construction failures are reported as write errors.
func (d *Dispatcher) WritePointsCells(dst formats.Destination, points [][]float64, cells []mesh.CellBlock,
	format string, opts formats.Options, meshOpts ...mesh.Option) error {
	m, err := mesh.New(points, cells, meshOpts...)
	if err != nil {
		return errors.WithOp(errors.OpWrite, errors.ErrCodeInvalidMesh, err)
	}
	return d.Write(dst, m, format, opts)
}

// Convert reads src and writes the result to dst. It returns the mesh that
// was read.
func (d *Dispatcher) Convert(src formats.Source, dst formats.Destination, inFormat, outFormat string,
	opts formats.Options) (*mesh.Mesh, error) {
	m, err := d.Read(src, inFormat)
	if err != nil {
		return nil, err
	}
	if err := d.Write(dst, m, outFormat, opts); err != nil {
		return nil, err
	}
	return m, nil
}

// ReadFormats returns the sorted read identifiers.
func (d *Dispatcher) ReadFormats() []string { return d.registry.ReadFormats() }

// WriteFormats returns the sorted write identifiers.
func (d *Dispatcher) WriteFormats() []string { return d.registry.WriteFormats() }

func (d *Dispatcher) checkBuffer(op errors.Op, format string) error {
	if format == "" {
		return &errors.Error{Op: op, Code: errors.ErrCodeInvalidUsage,
			Message: "file format must be given if buffer is used"}
	}
	if d.registry.IsMultiFile(format) {
		return &errors.Error{Op: op, Code: errors.ErrCodeBufferUnsupported,
			Message: format + " format is spread across multiple files, so it cannot be used with a buffer"}
	}
	return nil
}

// =============================================================================
// Default dispatcher
// =============================================================================

var defaultDispatcher = sync.OnceValue(func() *Dispatcher {
	return New(backends.Default())
})

// Default returns the dispatcher over the built-in backends.
func Default() *Dispatcher { return defaultDispatcher() }

// Read reads a mesh with the default dispatcher.
func Read(src formats.Source, format string) (*mesh.Mesh, error) {
	return Default().Read(src, format)
}

// ReadFile reads the mesh file at path. An empty format is inferred.
func ReadFile(path, format string) (*mesh.Mesh, error) {
	return Default().Read(formats.FromPath(path), format)
}

// Write writes a mesh with the default dispatcher.
func Write(dst formats.Destination, m *mesh.Mesh, format string, opts formats.Options) error {
	return Default().Write(dst, m, format, opts)
}

// WriteFile writes m to the file at path. An empty format is inferred.
func WriteFile(path string, m *mesh.Mesh, format string, opts formats.Options) error {
	return Default().Write(formats.ToPath(path), m, format, opts)
}

// WritePointsCells builds a mesh and writes it with the default dispatcher.
func WritePointsCells(dst formats.Destination, points [][]float64, cells []mesh.CellBlock,
	format string, opts formats.Options, meshOpts ...mesh.Option) error {
	return Default().WritePointsCells(dst, points, cells, format, opts, meshOpts...)
}

// Convert converts between files or buffers with the default dispatcher.
func Convert(src formats.Source, dst formats.Destination, inFormat, outFormat string,
	opts formats.Options) (*mesh.Mesh, error) {
	return Default().Convert(src, dst, inFormat, outFormat, opts)
}

// ReadFormats returns the sorted read identifiers of the built-in backends.
func ReadFormats() []string { return Default().ReadFormats() }

// WriteFormats returns the sorted write identifiers of the built-in backends.
func WriteFormats() []string { return Default().WriteFormats() }
