package errors

import (
	"strings"
	"unicode"
)

// ValidateFormatID validates a format identifier before it is registered.
//
// Identifiers are opaque, case-sensitive tokens, but they end up in error
// messages, CLI flags and URLs, so the rules are conservative:
//   - No empty identifiers
//   - No whitespace or control characters
//   - No path separators
//   - Maximum length of 64 characters
func ValidateFormatID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "format identifier cannot be empty")
	}

	if len(id) > 64 {
		return New(ErrCodeInvalidInput, "format identifier too long (max 64 characters)")
	}

	for _, r := range id {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "format identifier %q contains whitespace or control characters", id)
		}
	}

	if strings.ContainsAny(id, "/\\") {
		return New(ErrCodeInvalidInput, "format identifier %q cannot contain path separators", id)
	}

	return nil
}

// ValidateExtension validates an entry of the extension table.
// Extensions are lowercase dotted suffixes such as ".vtk" or ".dato.gz".
func ValidateExtension(ext string) error {
	if len(ext) < 2 || ext[0] != '.' {
		return New(ErrCodeInvalidInput, "extension %q must start with a dot", ext)
	}

	if strings.ToLower(ext) != ext {
		return New(ErrCodeInvalidInput, "extension %q must be lowercase", ext)
	}

	if strings.ContainsAny(ext, "/\\ ") {
		return New(ErrCodeInvalidInput, "extension %q contains invalid characters", ext)
	}

	if strings.Contains(ext, "..") || strings.HasSuffix(ext, ".") {
		return New(ErrCodeInvalidInput, "extension %q has an empty suffix component", ext)
	}

	return nil
}

// ValidatePath validates a client-supplied file name (for example the
// name of an upload) for safety.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}
