package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestIndexNotFoundError(t *testing.T) {
	indexName := "test-index"
	err := NewIndexNotFoundError(indexName)

	// Test error message
	expectedMsg := "index named 'test-index' not found"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}

	// Test Is() method
	if !errors.Is(err, ErrIndexNotFound) {
		t.Error("Expected error to match ErrIndexNotFound sentinel")
	}

	// Test that it doesn't match other sentinels
	if errors.Is(err, ErrDocumentNotFound) {
		t.Error("Error should not match ErrDocumentNotFound")
	}
}

func TestDocumentNotFoundError(t *testing.T) {
	err := NewDocumentNotFoundError("doc123")
	if err.Error() != "document with ID 'doc123' not found" {
		t.Errorf("Unexpected message '%s'", err.Error())
	}

	err2 := NewDocumentNotFoundError("doc123", "movies")
	if err2.Error() != "document with ID 'doc123' not found in index 'movies'" {
		t.Errorf("Unexpected message '%s'", err2.Error())
	}

	if !errors.Is(err2, ErrDocumentNotFound) {
		t.Error("Expected error with index to match ErrDocumentNotFound sentinel")
	}
}

func TestFieldResolutionError(t *testing.T) {
	err := NewFieldResolutionError("movies", 0, "director")

	expectedMsg := "[movies][0] No field mapping can be found for the field with name [director]"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}
	if !errors.Is(err, ErrFieldResolution) {
		t.Error("Expected error to match ErrFieldResolution sentinel")
	}
}

func TestFieldTypeErrors(t *testing.T) {
	unknown := NewUnknownFieldTypeError("no-such-type")
	if unknown.Error() != "No mapper found for type [no-such-type]" {
		t.Errorf("Unexpected message '%s'", unknown.Error())
	}
	if !errors.Is(unknown, ErrUnknownFieldType) || errors.Is(unknown, ErrInvalidFieldType) {
		t.Error("UnknownFieldTypeError should only match ErrUnknownFieldType")
	}

	invalid := NewInvalidFieldTypeError("object")
	if invalid.Error() != "Mapper for type [object] must be a leaf field" {
		t.Errorf("Unexpected message '%s'", invalid.Error())
	}
	if !errors.Is(invalid, ErrInvalidFieldType) {
		t.Error("Expected error to match ErrInvalidFieldType sentinel")
	}
}

func TestQueryCompilationErrorKeepsCause(t *testing.T) {
	cause := NewFrozenContextError()
	err := NewQueryCompilationError("movies", 2, cause)

	expectedMsg := "[movies][2] failed to create query: features that prevent cachability are disabled on this context"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}
	if !errors.Is(err, ErrQueryCompilation) {
		t.Error("Expected error to match ErrQueryCompilation sentinel")
	}
	if !errors.Is(err, ErrFrozenContext) {
		t.Error("Expected wrapped cause to stay visible through errors.Is")
	}

	var frozen *FrozenContextError
	if !errors.As(err, &frozen) {
		t.Error("Expected to be able to unwrap to FrozenContextError")
	}
}

func TestRewriteLoopError(t *testing.T) {
	err := NewRewriteLoopError("terms", 16)
	if err.Error() != "query [terms] did not reach a fixed point after 16 rewrite steps" {
		t.Errorf("Unexpected message '%s'", err.Error())
	}
	if !errors.Is(fmt.Errorf("compile: %w", err), ErrRewriteLoop) {
		t.Error("Expected wrapped error to match ErrRewriteLoop")
	}
}

func TestParsingError(t *testing.T) {
	err := NewParsingError("range", "unknown key [%s]", "gtx")
	if err.Error() != "[range] unknown key [gtx]" {
		t.Errorf("Unexpected message '%s'", err.Error())
	}
	if !errors.Is(err, ErrParsing) {
		t.Error("Expected error to match ErrParsing sentinel")
	}
}

func TestErrorChaining(t *testing.T) {
	// Test that our custom errors can be wrapped and unwrapped
	originalErr := NewIndexNotFoundError("test-index")
	wrappedErr := errors.Join(originalErr, errors.New("additional context"))

	// Should still be able to detect the original error
	if !errors.Is(wrappedErr, ErrIndexNotFound) {
		t.Error("Expected wrapped error to still match ErrIndexNotFound sentinel")
	}

	var indexErr *IndexNotFoundError
	if !errors.As(wrappedErr, &indexErr) {
		t.Error("Expected to be able to unwrap to IndexNotFoundError")
	}

	if indexErr.IndexName != "test-index" {
		t.Errorf("Expected index name 'test-index', got '%s'", indexErr.IndexName)
	}
}
