// Package svg renders the x-y projection of a mesh as an SVG image.
//
// The backend is write-only. Every cell becomes one closed path; vertex
// cells are skipped. The y axis is flipped so the image shows the mesh
// the right way up.
//
// Options:
//   - "image_width": width of the image in user units (default: the x
//     extent of the mesh)
//   - "stroke_width": line width relative to the mesh (default 1% of the
//     larger extent)
//   - "fill", "stroke": CSS colors (default "none" and "black")
package svg

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/matzehuels/meshio/pkg/errors"
	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/formats/internal/textio"
	"github.com/matzehuels/meshio/pkg/mesh"
)

// Backend is the SVG backend.
var Backend = &formats.Backend{
	Name:       "svg",
	Extensions: map[string]string{".svg": "svg"},
	Writers:    map[string]formats.Params{"svg": {}},
	Write:      Write,
}

// Style configures the rendering.
type Style struct {
	ImageWidth  float64 // 0 keeps mesh units
	StrokeWidth float64 // 0 picks 1% of the larger extent
	Fill        string
	Stroke      string
}

// Write writes the projection of m as SVG.
func Write(dst formats.Destination, m *mesh.Mesh, _ formats.Params, opts formats.Options) error {
	style := Style{Fill: opts.String("fill", "none"), Stroke: opts.String("stroke", "black")}
	var err error
	if style.ImageWidth, err = opts.Float("image_width", 0); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "svg options")
	}
	if style.StrokeWidth, err = opts.Float("stroke_width", 0); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "svg options")
	}
	return textio.WriteDestination(dst, func(w io.Writer) error {
		return Encode(w, m, style)
	})
}

// Encode writes the projection of m to w.
func Encode(w io.Writer, m *mesh.Mesh, style Style) error {
	if len(m.Points) > 0 && m.Dim() < 2 {
		return textio.Unsupported("svg needs at least 2D points, got %dD", m.Dim())
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range m.Points {
		minX, maxX = math.Min(minX, p[0]), math.Max(maxX, p[0])
		minY, maxY = math.Min(minY, p[1]), math.Max(maxY, p[1])
	}
	if len(m.Points) == 0 {
		minX, minY, maxX, maxY = 0, 0, 0, 0
	}
	width, height := maxX-minX, maxY-minY

	scale := 1.0
	if style.ImageWidth > 0 && width > 0 {
		scale = style.ImageWidth / width
	}
	stroke := style.StrokeWidth
	if stroke <= 0 {
		stroke = 0.01 * math.Max(width, height)
	}
	x := func(v float64) float64 { return (v - minX) * scale }
	y := func(v float64) float64 { return (maxY - v) * scale }

	tw := textio.NewWriter(w)
	tw.Line(`<?xml version="1.0" encoding="UTF-8"?>`)
	tw.Printf(`<svg xmlns="http://www.w3.org/2000/svg" version="1.1" viewBox="0 0 %s %s">`+"\n",
		textio.FormatFloat(width*scale), textio.FormatFloat(height*scale))
	tw.Printf("<style>path {fill: %s; stroke: %s; stroke-width: %s; stroke-linejoin: bevel}</style>\n",
		escape(style.Fill), escape(style.Stroke), textio.FormatFloat(stroke*scale))
	var d strings.Builder
	for _, b := range m.Cells {
		if mesh.TopologicalDim(b.Type) == 0 {
			continue
		}
		for _, row := range b.Data {
			d.Reset()
			for k, idx := range row {
				if k == 0 {
					d.WriteString("M ")
				} else {
					d.WriteString(" L ")
				}
				p := m.Points[idx]
				d.WriteString(textio.FormatFloat(x(p[0])) + " " + textio.FormatFloat(y(p[1])))
			}
			d.WriteString(" Z")
			tw.Printf("<path d=%q/>\n", d.String())
		}
	}
	tw.Line("</svg>")
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
