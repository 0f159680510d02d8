package strata

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned when no codec matches a file extension
	// or content.
	ErrUnsupportedFormat = errors.New("unsupported configuration format")

	// ErrKindMismatch is returned when a source supplies a value whose kind
	// does not match the field's descriptor.
	ErrKindMismatch = errors.New("value kind mismatch")

	// ErrUnknownField is returned when a source supplies a field name the
	// schema does not declare.
	ErrUnknownField = errors.New("unknown configuration field")
)

// IOError reports a failed file operation. It wraps the underlying cause.
type IOError struct {
	Op   string // "read", "write", "rename", "lock"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("config io: %s %q: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// DecodeError reports malformed file content for the chosen format.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("config decode %q: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncryptionError reports a key or authentication failure in the encryption
// adapter.
type EncryptionError struct {
	Op  string // "seal" or "open"
	Err error
}

func (e *EncryptionError) Error() string {
	return fmt.Sprintf("config encryption: %s: %v", e.Op, e.Err)
}

func (e *EncryptionError) Unwrap() error { return e.Err }

// EnvParseError reports an environment variable whose value could not be
// parsed into the field's kind. Raw is masked for sensitive fields.
type EnvParseError struct {
	Key   string // environment variable name
	Raw   string // offending value, "[redacted]" when the field is sensitive
	Field string // configuration field the variable maps to
	Err   error
}

func (e *EnvParseError) Error() string {
	return fmt.Sprintf("env %s=%s (field %q): %v", e.Key, e.Raw, e.Field, e.Err)
}

func (e *EnvParseError) Unwrap() error { return e.Err }

// MissingFieldsError reports every required field left unresolved after all
// sources were applied, not just the first one.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Fields, ", "))
}

// Violation is one failed validation rule.
type Violation struct {
	Field  string
	Reason string
}

func (v Violation) String() string {
	if v.Field == "" {
		return v.Reason
	}
	return v.Field + ": " + v.Reason
}

// ValidationError aggregates all rule violations found in a resolved
// configuration, ordered by schema declaration.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("config validation failed (%d): %s", len(e.Violations), strings.Join(parts, "; "))
}
