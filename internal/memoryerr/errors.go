// Package memoryerr defines the kind-tagged error taxonomy shared across
// the storage engine, use cases, and MCP adapter.
package memoryerr

import (
	"errors"
	"fmt"
)

// Kind identifies which of the nine error variants an Error carries.
type Kind int

const (
	// KindInvalidMemoryType means a memory_type was not one of the
	// project's configured types.
	KindInvalidMemoryType Kind = iota
	// KindInvalidConfidence means a confidence value fell outside [0,1].
	KindInvalidConfidence
	// KindInvalidInput means a field failed validation other than type
	// or confidence (e.g. an empty title or content).
	KindInvalidInput
	// KindNotFound means a lookup by id found no (non-deleted) row.
	KindNotFound
	// KindDatabaseError wraps a failure from the storage engine.
	KindDatabaseError
	// KindMigrationError wraps a failure while running schema migrations.
	KindMigrationError
	// KindSerializationError wraps a failure encoding or decoding data.
	KindSerializationError
	// KindFileSystemError wraps a failure touching the filesystem
	// (opening the database file, creating its parent directory, ...).
	KindFileSystemError
	// KindConfigurationError wraps a failure loading or validating
	// project configuration.
	KindConfigurationError
)

func (k Kind) String() string {
	switch k {
	case KindInvalidMemoryType:
		return "invalid_memory_type"
	case KindInvalidConfidence:
		return "invalid_confidence"
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindDatabaseError:
		return "database_error"
	case KindMigrationError:
		return "migration_error"
	case KindSerializationError:
		return "serialization_error"
	case KindFileSystemError:
		return "filesystem_error"
	case KindConfigurationError:
		return "configuration_error"
	default:
		return "unknown"
	}
}

// Error is the single kind-tagged sum type used across the stack. Every
// failure the core produces is one of these nine kinds.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind, so
// errors.Is(err, memoryerr.NotFound("")) matches any not-found error
// regardless of its message. Any other target type never matches.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newErr(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// InvalidMemoryType reports that name is not one of the configured memory
// types.
func InvalidMemoryType(name string) *Error {
	return newErr(KindInvalidMemoryType, fmt.Sprintf("unknown memory type %q", name), nil)
}

// InvalidConfidence reports that value does not lie in [0,1].
func InvalidConfidence(value float64) *Error {
	return newErr(KindInvalidConfidence, fmt.Sprintf("confidence %v out of range [0,1]", value), nil)
}

// InvalidInput reports a validation failure against a specific field.
func InvalidInput(field, reason string) *Error {
	return newErr(KindInvalidInput, fmt.Sprintf("%s: %s", field, reason), nil)
}

// NotFound reports that no memory exists with the given id.
func NotFound(id string) *Error {
	return newErr(KindNotFound, fmt.Sprintf("memory not found: %s", id), nil)
}

// DatabaseError wraps a storage-engine failure.
func DatabaseError(context string, err error) *Error {
	return newErr(KindDatabaseError, context, err)
}

// MigrationError wraps a schema-migration failure.
func MigrationError(context string, err error) *Error {
	return newErr(KindMigrationError, context, err)
}

// SerializationError wraps an encode/decode failure.
func SerializationError(context string, err error) *Error {
	return newErr(KindSerializationError, context, err)
}

// FileSystemError wraps a filesystem failure.
func FileSystemError(context string, err error) *Error {
	return newErr(KindFileSystemError, context, err)
}

// ConfigurationError wraps a configuration load/validate failure.
func ConfigurationError(context string, err error) *Error {
	return newErr(KindConfigurationError, context, err)
}

// As extracts a *Error from err, following the standard library's
// errors.As conventions.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
