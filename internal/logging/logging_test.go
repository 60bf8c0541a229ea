package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	t.Run("nil returns discard", func(t *testing.T) {
		logger := Default(nil)
		if logger == nil {
			t.Fatal("Default(nil) returned nil")
		}
		if logger.Enabled(context.Background(), slog.LevelError) {
			t.Error("Default(nil) should return a discard logger")
		}
	})

	t.Run("non-nil is returned as is", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
		if Default(logger) != logger {
			t.Error("Default should return the provided logger")
		}
	})
}

func TestDeprecationLoggerReportsEachKeyOnce(t *testing.T) {
	var buf bytes.Buffer
	dep := NewDeprecationLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	if !dep.Deprecate("unmapped_type_string", "use keyword") {
		t.Fatal("first deprecation should be written")
	}
	if dep.Deprecate("unmapped_type_string", "use keyword") {
		t.Error("repeated deprecation key should be suppressed")
	}
	if !dep.Deprecate("other_key", "something else") {
		t.Error("a different key should be written")
	}

	out := buf.String()
	if strings.Count(out, "deprecation_key=unmapped_type_string") != 1 {
		t.Errorf("expected one record for the key, got:\n%s", out)
	}
	if !strings.Contains(out, "level=WARN") {
		t.Errorf("expected WARN level, got:\n%s", out)
	}
}
