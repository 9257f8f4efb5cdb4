package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidInput, "test message: %s", "value")

	if err.Code != ErrCodeInvalidInput {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidInput)
	}

	if err.Message != "test message: value" {
		t.Errorf("Message = %v, want %v", err.Message, "test message: value")
	}

	expected := "INVALID_INPUT: test message: value"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestNewReadWrite(t *testing.T) {
	r := NewRead(ErrCodeFileNotFound, "file %s not found", "a.vtk")
	if r.Op != OpRead {
		t.Errorf("Op = %v, want %v", r.Op, OpRead)
	}
	if got, want := r.Error(), "read FILE_NOT_FOUND: file a.vtk not found"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	w := NewWrite(ErrCodeInvalidCells, "bad block")
	if w.Op != OpWrite {
		t.Errorf("Op = %v, want %v", w.Op, OpWrite)
	}
	if !IsWrite(w) || IsRead(w) {
		t.Error("write error classified incorrectly")
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeBackend, cause, "failed to decode")

	if err.Code != ErrCodeBackend {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeBackend)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	unwrapped := errors.Unwrap(err)
	if unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeInvalidInput, "test"),
			code:     ErrCodeInvalidInput,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeInvalidInput, "test"),
			code:     ErrCodeBackend,
			expected: false,
		},
		{
			name:     "outer code of wrapped error",
			err:      Wrap(ErrCodeBackend, New(ErrCodeInvalidFormat, "inner"), "outer"),
			code:     ErrCodeBackend,
			expected: true,
		},
		{
			name:     "inner code of wrapped error",
			err:      Wrap(ErrCodeBackend, New(ErrCodeInvalidFormat, "inner"), "outer"),
			code:     ErrCodeInvalidFormat,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidInput,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidInput,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestWithOp(t *testing.T) {
	t.Run("tags op-less error", func(t *testing.T) {
		orig := New(ErrCodeUnknownExtension, "no match for '.foo'")
		err := WithOp(OpRead, ErrCodeBackend, orig)
		if !IsRead(err) {
			t.Fatalf("IsRead(%v) = false", err)
		}
		if GetCode(err) != ErrCodeUnknownExtension {
			t.Errorf("GetCode() = %v, want %v", GetCode(err), ErrCodeUnknownExtension)
		}
		if orig.Op != "" {
			t.Error("WithOp mutated the original error")
		}
	})

	t.Run("wraps plain error", func(t *testing.T) {
		err := WithOp(OpWrite, ErrCodeBackend, errors.New("disk full"))
		if !IsWrite(err) || !Is(err, ErrCodeBackend) {
			t.Errorf("unexpected classification of %v", err)
		}
		if !strings.Contains(err.Error(), "disk full") {
			t.Errorf("Error() = %q, want cause text", err.Error())
		}
	})

	t.Run("nil stays nil", func(t *testing.T) {
		if WithOp(OpRead, ErrCodeBackend, nil) != nil {
			t.Error("WithOp(nil) != nil")
		}
	})
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeUnknownFormat, "test"),
			expected: ErrCodeUnknownFormat,
		},
		{
			name:     "plain error",
			err:      errors.New("plain"),
			expected: "",
		},
		{
			name:     "nil",
			err:      nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "Error type",
			err:      NewRead(ErrCodeInvalidInput, "friendly message"),
			expected: "friendly message",
		},
		{
			name:     "plain error",
			err:      errors.New("plain error"),
			expected: "plain error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}
