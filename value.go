package strata

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the semantic type of a configuration value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindDuration
	KindStrings // flat list of strings
	KindEnum    // string restricted to a descriptor's symbol set
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindDuration:
		return "duration"
	case KindStrings:
		return "strings"
	case KindEnum:
		return "enum"
	default:
		return "invalid"
	}
}

// Value is a sum-typed container for a configuration value. Exactly one
// variant is populated, selected by Kind. Sources produce Values so the
// resolver can type-check at merge time rather than at final validation.
type Value struct {
	kind Kind
	b    bool
	n    int64 // integer, or duration in nanoseconds
	f    float64
	s    string // string or enum symbol
	list []string
}

// Bool returns a boolean Value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Int returns an integer Value.
func Int(v int64) Value { return Value{kind: KindInt, n: v} }

// Float returns a floating-point Value.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// String returns a string Value.
func String(v string) Value { return Value{kind: KindString, s: v} }

// Duration returns a duration Value.
func Duration(v time.Duration) Value { return Value{kind: KindDuration, n: int64(v)} }

// Strings returns a string-list Value. The slice is copied.
func Strings(v ...string) Value {
	list := make([]string, len(v))
	copy(list, v)
	return Value{kind: KindStrings, list: list}
}

// Enum returns an enum Value holding the given symbol. Membership in the
// descriptor's symbol set is checked when the value meets its schema.
func Enum(symbol string) Value { return Value{kind: KindEnum, s: symbol} }

// Kind reports the populated variant.
func (v Value) Kind() Kind { return v.kind }

// IsZero reports whether the Value is the uninitialized zero Value.
func (v Value) IsZero() bool { return v.kind == KindInvalid }

// AsBool returns the boolean variant, converting from integers (0 = false)
// when necessary.
func (v Value) AsBool() (bool, error) {
	switch v.kind {
	case KindBool:
		return v.b, nil
	case KindInt:
		return v.n != 0, nil
	}
	return false, fmt.Errorf("cannot convert %s value to bool", v.kind)
}

// AsInt64 returns the integer variant, truncating floats and widening bools
// when necessary.
func (v Value) AsInt64() (int64, error) {
	switch v.kind {
	case KindInt:
		return v.n, nil
	case KindFloat:
		return int64(v.f), nil
	case KindBool:
		if v.b {
			return 1, nil
		}
		return 0, nil
	case KindDuration:
		return v.n, nil
	}
	return 0, fmt.Errorf("cannot convert %s value to int64", v.kind)
}

// AsFloat64 returns the floating-point variant, widening integers when
// necessary.
func (v Value) AsFloat64() (float64, error) {
	switch v.kind {
	case KindFloat:
		return v.f, nil
	case KindInt:
		return float64(v.n), nil
	}
	return 0, fmt.Errorf("cannot convert %s value to float64", v.kind)
}

// AsDuration returns the duration variant, parsing strings like "1m30s" when
// necessary.
func (v Value) AsDuration() (time.Duration, error) {
	switch v.kind {
	case KindDuration:
		return time.Duration(v.n), nil
	case KindString:
		return time.ParseDuration(v.s)
	case KindInt:
		return time.Duration(v.n), nil
	}
	return 0, fmt.Errorf("cannot convert %s value to duration", v.kind)
}

// AsStrings returns the string-list variant. A scalar string yields a
// one-element list.
func (v Value) AsStrings() ([]string, error) {
	switch v.kind {
	case KindStrings:
		out := make([]string, len(v.list))
		copy(out, v.list)
		return out, nil
	case KindString, KindEnum:
		return []string{v.s}, nil
	}
	return nil, fmt.Errorf("cannot convert %s value to string list", v.kind)
}

// String renders the value for display. For string and enum variants this is
// the value itself; other variants use their canonical text form.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.n, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString, KindEnum:
		return v.s
	case KindDuration:
		return time.Duration(v.n).String()
	case KindStrings:
		return strings.Join(v.list, ",")
	default:
		return "<invalid>"
	}
}

// Interface returns the underlying value as a plain Go type, suitable for
// codecs and struct decoding. Durations are returned in their text form so
// decode hooks can re-parse them into time.Duration targets.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.n
	case KindFloat:
		return v.f
	case KindString, KindEnum:
		return v.s
	case KindDuration:
		return time.Duration(v.n).String()
	case KindStrings:
		out := make([]string, len(v.list))
		copy(out, v.list)
		return out
	default:
		return nil
	}
}

// Equal reports whether two Values hold the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == o.b
	case KindInt, KindDuration:
		return v.n == o.n
	case KindFloat:
		return v.f == o.f
	case KindString, KindEnum:
		return v.s == o.s
	case KindStrings:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// ParseValue parses a raw string (typically an environment variable) into a
// Value of the requested kind.
func ParseValue(kind Kind, raw string) (Value, error) {
	switch kind {
	case KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return Value{}, fmt.Errorf("invalid bool %q", raw)
		}
		return Bool(b), nil
	case KindInt:
		// Base 0 allows hex/octal notation (0xFF, 0o17).
		n, err := strconv.ParseInt(raw, 0, 64)
		if err != nil {
			return Value{}, fmt.Errorf("invalid integer %q", raw)
		}
		return Int(n), nil
	case KindFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Value{}, fmt.Errorf("invalid float %q", raw)
		}
		return Float(f), nil
	case KindString:
		return String(raw), nil
	case KindEnum:
		return Enum(raw), nil
	case KindDuration:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Value{}, fmt.Errorf("invalid duration %q", raw)
		}
		return Duration(d), nil
	case KindStrings:
		if raw == "" {
			return Strings(), nil
		}
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return Strings(parts...), nil
	}
	return Value{}, fmt.Errorf("cannot parse into %s kind", kind)
}

// CoerceValue converts a decoded document value (the loose types format
// decoders produce) into a Value of the requested kind.
func CoerceValue(kind Kind, raw any) (Value, error) {
	switch kind {
	case KindBool:
		if b, ok := raw.(bool); ok {
			return Bool(b), nil
		}
	case KindInt:
		switch n := raw.(type) {
		case int:
			return Int(int64(n)), nil
		case int64:
			return Int(n), nil
		case uint64:
			return Int(int64(n)), nil
		case float64:
			if n == float64(int64(n)) {
				return Int(int64(n)), nil
			}
			return Value{}, fmt.Errorf("non-integral number %v for int field", n)
		}
	case KindFloat:
		switch n := raw.(type) {
		case float64:
			return Float(n), nil
		case float32:
			return Float(float64(n)), nil
		case int:
			return Float(float64(n)), nil
		case int64:
			return Float(float64(n)), nil
		}
	case KindString:
		if s, ok := raw.(string); ok {
			return String(s), nil
		}
	case KindEnum:
		if s, ok := raw.(string); ok {
			return Enum(s), nil
		}
	case KindDuration:
		switch d := raw.(type) {
		case string:
			parsed, err := time.ParseDuration(d)
			if err != nil {
				return Value{}, fmt.Errorf("invalid duration %q", d)
			}
			return Duration(parsed), nil
		case int64:
			return Duration(time.Duration(d)), nil
		case int:
			return Duration(time.Duration(d)), nil
		}
	case KindStrings:
		switch list := raw.(type) {
		case []string:
			return Strings(list...), nil
		case []any:
			out := make([]string, 0, len(list))
			for _, item := range list {
				switch s := item.(type) {
				case string:
					out = append(out, s)
				case bool, int, int64, uint64, float64:
					out = append(out, fmt.Sprint(s))
				default:
					return Value{}, fmt.Errorf("list element %v (%T) is not a string", item, item)
				}
			}
			return Strings(out...), nil
		case string:
			return ParseValue(KindStrings, list)
		}
	}
	return Value{}, fmt.Errorf("%w: got %T, want %s", ErrKindMismatch, raw, kind)
}
