package textio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
)

// Writer is a buffered writer with a sticky error. After the first
// failure every call is a no-op and [Writer.Flush] reports the error.
type Writer struct {
	bw  *bufio.Writer
	err error
	buf []byte
}

// NewWriter returns a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriterSize(w, 64*1024)}
}

// Printf writes a formatted string.
func (w *Writer) Printf(format string, args ...any) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.bw, format, args...)
}

// Line writes s followed by a newline.
func (w *Writer) Line(s string) {
	if w.err != nil {
		return
	}
	if _, w.err = w.bw.WriteString(s); w.err == nil {
		w.err = w.bw.WriteByte('\n')
	}
}

// Floats writes the values separated by sep and ends the line.
func (w *Writer) Floats(vals []float64, sep string) {
	if w.err != nil {
		return
	}
	w.buf = w.buf[:0]
	for i, v := range vals {
		if i > 0 {
			w.buf = append(w.buf, sep...)
		}
		w.buf = strconv.AppendFloat(w.buf, v, 'g', -1, 64)
	}
	w.buf = append(w.buf, '\n')
	_, w.err = w.bw.Write(w.buf)
}

// Ints writes the values plus offset separated by sep and ends the line.
func (w *Writer) Ints(vals []int, offset int, sep string) {
	if w.err != nil {
		return
	}
	w.buf = w.buf[:0]
	for i, v := range vals {
		if i > 0 {
			w.buf = append(w.buf, sep...)
		}
		w.buf = strconv.AppendInt(w.buf, int64(v+offset), 10)
	}
	w.buf = append(w.buf, '\n')
	_, w.err = w.bw.Write(w.buf)
}

// Binary writes data in the given byte order.
func (w *Writer) Binary(order binary.ByteOrder, data any) {
	if w.err != nil {
		return
	}
	w.err = binary.Write(w.bw, order, data)
}

// Raw writes p unchanged.
func (w *Writer) Raw(p []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.bw.Write(p)
}

// Err returns the first error encountered.
func (w *Writer) Err() error { return w.err }

// Flush flushes buffered output and returns the first error encountered.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	w.err = w.bw.Flush()
	return w.err
}

// FormatFloat formats f in the shortest form that parses back exactly.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
