package memoryerr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorMessagesCarryContext(t *testing.T) {
	tests := []struct {
		err  *Error
		kind Kind
		want string
	}{
		{InvalidMemoryType("bogus"), KindInvalidMemoryType, "bogus"},
		{InvalidConfidence(1.5), KindInvalidConfidence, "1.5"},
		{InvalidInput("title", "must not be empty"), KindInvalidInput, "title"},
		{NotFound("abc-123"), KindNotFound, "abc-123"},
	}

	for _, tt := range tests {
		if tt.err.Kind != tt.kind {
			t.Errorf("expected kind %v, got %v", tt.kind, tt.err.Kind)
		}
		if !strings.Contains(tt.err.Error(), tt.want) {
			t.Errorf("message %q missing %q", tt.err.Error(), tt.want)
		}
	}
}

func TestWrappingPreservesCause(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := DatabaseError("save memory", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}
	if !strings.Contains(err.Error(), "disk I/O error") {
		t.Errorf("message should include cause: %q", err.Error())
	}
}

func TestAsExtractsThroughWrapping(t *testing.T) {
	inner := MigrationError("run migrations", errors.New("bad schema"))
	wrapped := fmt.Errorf("startup: %w", inner)

	e, ok := As(wrapped)
	if !ok {
		t.Fatal("As failed through fmt.Errorf wrapping")
	}
	if e.Kind != KindMigrationError {
		t.Errorf("expected KindMigrationError, got %v", e.Kind)
	}
}

func TestIsMatchesByKind(t *testing.T) {
	a := InvalidInput("title", "empty")
	b := InvalidInput("content", "empty")
	if !errors.Is(a, b) {
		t.Error("two errors of the same kind should match via errors.Is")
	}
	if errors.Is(a, NotFound("x")) {
		t.Error("different kinds must not match")
	}
}

func TestKindStrings(t *testing.T) {
	kinds := map[Kind]string{
		KindInvalidMemoryType:  "invalid_memory_type",
		KindInvalidConfidence:  "invalid_confidence",
		KindInvalidInput:       "invalid_input",
		KindNotFound:           "not_found",
		KindDatabaseError:      "database_error",
		KindMigrationError:     "migration_error",
		KindSerializationError: "serialization_error",
		KindFileSystemError:    "filesystem_error",
		KindConfigurationError: "configuration_error",
	}
	for k, want := range kinds {
		if k.String() != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, k.String(), want)
		}
	}
}
