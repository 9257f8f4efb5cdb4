// Package textio holds the line and token plumbing shared by the ASCII
// mesh backends.
//
// [Reader] mixes whitespace-token reads with whole-line reads over one
// buffered stream and keeps track of the line number for diagnostics.
// Binary payloads embedded in otherwise textual formats (legacy VTK,
// gmsh binary) are read through [Reader.Binary], which starts at the
// beginning of the line after the last consumed token.
//
// [Writer] is the output counterpart: a buffered writer with a sticky
// error, so backends can emit a file without checking every call.
package textio

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/matzehuels/meshio/pkg/errors"
)

// Reader is a line-aware tokenizer.
type Reader struct {
	br      *bufio.Reader
	line    int
	pending []string
	comment string
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReaderSize(r, 64*1024)
	}
	return &Reader{br: br}
}

// SetComment makes token reads skip everything after prefix on a line.
// Whole-line reads are not affected.
func (r *Reader) SetComment(prefix string) { r.comment = prefix }

// LineNo returns the number of the last line read (1-based).
func (r *Reader) LineNo() int { return r.line }

// Line returns the next line without its line terminator. Tokens left
// over from the current line are discarded. At the end of input it
// returns io.EOF.
func (r *Reader) Line() (string, error) {
	r.pending = nil
	s, err := r.br.ReadString('\n')
	if err != nil {
		if err == io.EOF && s != "" {
			r.line++
			return strings.TrimRight(s, "\r\n"), nil
		}
		return "", err
	}
	r.line++
	return strings.TrimRight(s, "\r\n"), nil
}

// NextLine returns the next line that is not blank, trimmed of
// surrounding whitespace.
func (r *Reader) NextLine() (string, error) {
	for {
		s, err := r.Line()
		if err != nil {
			return "", err
		}
		if s = strings.TrimSpace(s); s != "" {
			return s, nil
		}
	}
}

// Expect reads the next non-blank line and fails unless it equals want.
func (r *Reader) Expect(want string) error {
	s, err := r.NextLine()
	if err != nil {
		return r.Wrap(err, "expected %q", want)
	}
	if s != want {
		return r.Errorf("expected %q, got %q", want, s)
	}
	return nil
}

// Token returns the next whitespace-separated token, crossing lines as
// needed. At the end of input it returns io.EOF.
func (r *Reader) Token() (string, error) {
	for len(r.pending) == 0 {
		s, err := r.br.ReadString('\n')
		if err != nil && (err != io.EOF || s == "") {
			return "", err
		}
		r.line++
		if r.comment != "" {
			if i := strings.Index(s, r.comment); i >= 0 {
				s = s[:i]
			}
		}
		r.pending = strings.Fields(s)
	}
	tok := r.pending[0]
	r.pending = r.pending[1:]
	return tok, nil
}

// Rest returns the unread tokens of the current line and moves on.
func (r *Reader) Rest() []string {
	rest := r.pending
	r.pending = nil
	return rest
}

// Int reads the next token as an integer.
func (r *Reader) Int() (int, error) {
	tok, err := r.Token()
	if err != nil {
		return 0, r.Wrap(err, "expected integer")
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, r.Errorf("invalid integer %q", tok)
	}
	return n, nil
}

// Float reads the next token as a float.
func (r *Reader) Float() (float64, error) {
	tok, err := r.Token()
	if err != nil {
		return 0, r.Wrap(err, "expected number")
	}
	f, err := ParseFloat(tok)
	if err != nil {
		return 0, r.Errorf("invalid number %q", tok)
	}
	return f, nil
}

// Count reads the next token as an item count. Negative counts are
// rejected; what names the counted items in the error.
func (r *Reader) Count(what string) (int, error) {
	n, err := r.Int()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, r.Errorf("negative %s count %d", what, n)
	}
	return n, nil
}

// Ints reads n integers.
func (r *Reader) Ints(n int) ([]int, error) {
	if n < 0 {
		return nil, r.Errorf("negative integer count %d", n)
	}
	out := make([]int, 0, Capacity(n))
	for range n {
		v, err := r.Int()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Floats reads n floats.
func (r *Reader) Floats(n int) ([]float64, error) {
	if n < 0 {
		return nil, r.Errorf("negative number count %d", n)
	}
	out := make([]float64, 0, Capacity(n))
	for range n {
		v, err := r.Float()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Binary returns the underlying stream, positioned at the start of the
// line after the last consumed line. Pending tokens are discarded.
func (r *Reader) Binary() *bufio.Reader {
	r.pending = nil
	return r.br
}

// Errorf returns an INVALID_FORMAT error tagged with the current line.
func (r *Reader) Errorf(format string, args ...any) error {
	return errors.New(errors.ErrCodeInvalidFormat, "line %d: %s", r.line, sprintf(format, args...))
}

// Wrap wraps err as an INVALID_FORMAT error tagged with the current line.
// A bare io.EOF becomes io.ErrUnexpectedEOF.
func (r *Reader) Wrap(err error, format string, args ...any) error {
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return errors.Wrap(errors.ErrCodeInvalidFormat, err, "line %d: %s", r.line, sprintf(format, args...))
}

// ParseFloat parses a float, accepting Fortran-style "D" exponents.
func ParseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && strings.ContainsAny(s, "dD") {
		return strconv.ParseFloat(strings.NewReplacer("d", "e", "D", "e").Replace(s), 64)
	}
	return f, err
}
