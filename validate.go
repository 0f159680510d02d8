package strata

import (
	"errors"
	"fmt"
)

// CrossFieldFunc is a caller-supplied check over the whole resolved
// configuration, for semantic rules spanning more than one field. Returning
// a *ValidationError contributes its violations individually; any other
// error becomes a single violation.
type CrossFieldFunc func(e *Effective) error

// Validate runs the schema's structural checks (kind, enum membership,
// numeric range) and then the supplied cross-field checks. It collects every
// violation before failing, so the caller sees all problems in one pass.
// Validate has no side effects on the configuration.
func Validate(e *Effective, checks ...CrossFieldFunc) error {
	var violations []Violation

	for _, d := range e.reg.Fields() {
		entry, ok := e.entries[d.Name]
		if !ok {
			violations = append(violations, Violation{Field: d.Name, Reason: "unresolved"})
			continue
		}
		violations = append(violations, structuralViolations(d, entry.Value)...)
	}

	for _, check := range checks {
		if check == nil {
			continue
		}
		err := check(e)
		if err == nil {
			continue
		}
		var nested *ValidationError
		if errors.As(err, &nested) {
			violations = append(violations, nested.Violations...)
		} else {
			violations = append(violations, Violation{Reason: err.Error()})
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

func structuralViolations(d FieldDescriptor, v Value) []Violation {
	var out []Violation

	if v.Kind() != d.Kind {
		out = append(out, Violation{
			Field:  d.Name,
			Reason: fmt.Sprintf("kind mismatch: got %s, want %s", v.Kind(), d.Kind),
		})
		return out
	}

	if d.Kind == KindEnum && !containsSymbol(d.Enum, v.String()) {
		shown := v.String()
		if d.Sensitive {
			shown = "[redacted]"
		}
		out = append(out, Violation{
			Field:  d.Name,
			Reason: fmt.Sprintf("value %q not among allowed symbols %v", shown, d.Enum),
		})
	}

	if d.Min != nil || d.Max != nil {
		if n, err := numericValue(v); err == nil {
			if d.Min != nil && n < *d.Min {
				out = append(out, Violation{
					Field:  d.Name,
					Reason: fmt.Sprintf("value %v below minimum %v", n, *d.Min),
				})
			}
			if d.Max != nil && n > *d.Max {
				out = append(out, Violation{
					Field:  d.Name,
					Reason: fmt.Sprintf("value %v above maximum %v", n, *d.Max),
				})
			}
		}
	}

	return out
}

// numericValue maps a value onto the number line for range checks.
// Durations are measured in nanoseconds.
func numericValue(v Value) (float64, error) {
	switch v.Kind() {
	case KindInt, KindDuration:
		n, err := v.AsInt64()
		return float64(n), err
	case KindFloat:
		return v.AsFloat64()
	}
	return 0, fmt.Errorf("%s value has no numeric interpretation", v.Kind())
}
