package strata

import (
	"fmt"
	"strings"
	"time"
)

// Resolve combines partials in increasing precedence order into one fully
// populated Effective. For every field each partial supplies, the later
// partial wins unconditionally; precedence is per field, never per object.
// Fields no partial supplied are filled from their descriptor default.
// Required fields still missing afterwards fail together in one
// MissingFieldsError.
//
// Resolve is pure: identical partials in identical order always produce an
// identical Effective.
func Resolve(reg *Registry, partials ...Partial) (*Effective, error) {
	merged := make(map[string]Entry, reg.Len())

	for _, p := range partials {
		for name, entry := range p.entries {
			d, known := reg.Field(name)
			if !known {
				return nil, fmt.Errorf("%s source: field %q: %w", p.source, name, ErrUnknownField)
			}
			if entry.Value.Kind() != d.Kind {
				return nil, fmt.Errorf("%s source: field %q: %w: got %s, want %s",
					p.source, name, ErrKindMismatch, entry.Value.Kind(), d.Kind)
			}
			merged[name] = entry
		}
	}

	var missing []string
	for _, d := range reg.Fields() {
		if _, supplied := merged[d.Name]; supplied {
			continue
		}
		if d.Default == nil {
			missing = append(missing, d.Name)
			continue
		}
		merged[d.Name] = Entry{Value: *d.Default, Source: SourceDefault}
	}
	if len(missing) > 0 {
		return nil, &MissingFieldsError{Fields: missing}
	}

	return &Effective{reg: reg, entries: merged}, nil
}

// Effective is the fully populated, resolved configuration. It is immutable:
// obtaining updated values requires a new resolution cycle.
type Effective struct {
	reg     *Registry
	entries map[string]Entry
}

// Registry returns the schema the configuration was resolved against.
func (e *Effective) Registry() *Registry { return e.reg }

// Value returns the resolved value for a field.
func (e *Effective) Value(name string) (Value, bool) {
	entry, ok := e.entries[name]
	return entry.Value, ok
}

// Provenance returns the source a field's value came from, for diagnostics.
func (e *Effective) Provenance(name string) (Source, bool) {
	entry, ok := e.entries[name]
	return entry.Source, ok
}

// String returns a field's value rendered as a string.
func (e *Effective) String(name string) (string, error) {
	v, err := e.lookup(name)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// Int64 returns a field's value as int64, converting compatible kinds.
func (e *Effective) Int64(name string) (int64, error) {
	v, err := e.lookup(name)
	if err != nil {
		return 0, err
	}
	return v.AsInt64()
}

// Bool returns a field's value as bool, converting compatible kinds.
func (e *Effective) Bool(name string) (bool, error) {
	v, err := e.lookup(name)
	if err != nil {
		return false, err
	}
	return v.AsBool()
}

// Float64 returns a field's value as float64, converting compatible kinds.
func (e *Effective) Float64(name string) (float64, error) {
	v, err := e.lookup(name)
	if err != nil {
		return 0, err
	}
	return v.AsFloat64()
}

// Duration returns a field's value as a time.Duration.
func (e *Effective) Duration(name string) (time.Duration, error) {
	v, err := e.lookup(name)
	if err != nil {
		return 0, err
	}
	return v.AsDuration()
}

// Strings returns a field's value as a string list.
func (e *Effective) Strings(name string) ([]string, error) {
	v, err := e.lookup(name)
	if err != nil {
		return nil, err
	}
	return v.AsStrings()
}

func (e *Effective) lookup(name string) (Value, error) {
	entry, ok := e.entries[name]
	if !ok {
		return Value{}, fmt.Errorf("field %q: %w", name, ErrUnknownField)
	}
	return entry.Value, nil
}

// Format renders the whole configuration with per-field provenance, masking
// sensitive values. Intended for troubleshooting output.
func (e *Effective) Format() string {
	var b strings.Builder
	for _, d := range e.reg.Fields() {
		entry := e.entries[d.Name]
		shown := entry.Value.String()
		if d.Sensitive {
			shown = "[redacted]"
		}
		fmt.Fprintf(&b, "%s = %s  (%s)\n", d.Name, shown, entry.Source)
	}
	return b.String()
}
