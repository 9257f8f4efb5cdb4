package errors

import (
	"testing"
)

func TestValidateFormatID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "obj", false},
		{"valid alias", "gmsh4-binary", false},
		{"valid underscore", "dolfin_xml", false},
		{"valid mixed case", "VTK", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 80)), true},
		{"space", "vtk binary", true},
		{"tab", "vtk\tbinary", true},
		{"slash", "vtk/binary", true},
		{"backslash", "vtk\\binary", true},
		{"control char", "vtk\x01", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFormatID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFormatID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateExtension(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", ".vtk", false},
		{"valid compound", ".dato.gz", false},
		{"valid single letter", ".e", false},

		{"empty", "", true},
		{"dot only", ".", true},
		{"no leading dot", "vtk", true},
		{"uppercase", ".VTK", true},
		{"empty component", ".dato..gz", true},
		{"trailing dot", ".vtk.", true},
		{"separator", ".a/b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateExtension(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateExtension(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "mesh.vtk", false},
		{"valid nested", "cases/run1/mesh.msh", false},
		{"valid with dots", "v1.2.3/mesh.dato.gz", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 600)), true},
		{"absolute path", "/etc/passwd", true},
		{"path traversal", "../../../etc/passwd", true},
		{"path traversal middle", "foo/../bar", true},
		{"null byte", "foo\x00bar", true},
		{"backslash", "foo\\bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidPath) {
				t.Errorf("ValidatePath(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []Code{
		ErrCodeInvalidInput,
		ErrCodeInvalidUsage,
		ErrCodeInvalidFormat,
		ErrCodeInvalidPath,
		ErrCodeInvalidCells,
		ErrCodeInvalidMesh,
		ErrCodeUnknownFormat,
		ErrCodeUnknownExtension,
		ErrCodeNotFound,
		ErrCodeFileNotFound,
		ErrCodeBackend,
		ErrCodeBufferUnsupported,
		ErrCodeUnsupported,
		ErrCodeInternal,
	}

	seen := make(map[Code]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %s", code)
		}
		seen[code] = true
	}
}
