package formats

import (
	"path/filepath"
	"strings"

	"github.com/matzehuels/meshio/pkg/errors"
)

// Suffixes returns the dotted suffixes of the file name in path, left to
// right: "a/mesh.dato.gz" gives [".dato", ".gz"]. Leading dots of the name
// do not start a suffix, and a name ending in "." has none.
func Suffixes(path string) []string {
	name := filepath.Base(path)
	if name == "." || name == string(filepath.Separator) || strings.HasSuffix(name, ".") {
		return nil
	}
	name = strings.TrimLeft(name, ".")
	parts := strings.Split(name, ".")
	if len(parts) < 2 {
		return nil
	}
	out := make([]string, 0, len(parts)-1)
	for _, p := range parts[1:] {
		out = append(out, "."+p)
	}
	return out
}

// Infer deduces the format identifier from the suffix chain of path.
//
// Suffixes are accumulated from the right ("gz", then ".dato.gz", ...).
// Every accumulated suffix found in the extension table replaces the
// current match and the walk goes on, so the longest compound suffix that
// is registered wins over its shorter tails. Matching is case-insensitive.
// If nothing matches, the UNKNOWN_EXTENSION error carries the full
// accumulated suffix.
func (r *Registry) Infer(path string) (string, error) {
	suffixes := Suffixes(path)
	var ext, match string
	for i := len(suffixes) - 1; i >= 0; i-- {
		ext = suffixes[i] + ext
		if id, ok := r.extensions[strings.ToLower(ext)]; ok {
			match = id
		}
	}
	if match == "" {
		return "", errors.New(errors.ErrCodeUnknownExtension,
			"could not deduce file format from extension %q of %s", ext, path)
	}
	return match, nil
}
