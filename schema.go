package strata

import (
	"fmt"
	"strings"
)

// FieldDescriptor is the static description of one configuration field.
// Descriptors are immutable once a Registry has been constructed from them.
type FieldDescriptor struct {
	// Name is the unique dot-separated key (e.g. "server.port"). Dots
	// express nesting; codecs render them as tables or nested mappings.
	Name string

	// Kind is the field's semantic type.
	Kind Kind

	// Default is the compiled-in value, or nil when the field is required
	// and has no default.
	Default *Value

	// Doc is the human-readable description written into materialized files.
	Doc string

	// EnvKey is the environment variable name (before any prefix) the field
	// may be supplied through. Empty means the environment never supplies it.
	EnvKey string

	// CLI reports whether command-line overrides may supply this field.
	CLI bool

	// Sensitive hints that the value must be masked in display and error
	// output.
	Sensitive bool

	// Enum lists the allowed symbols for KindEnum fields.
	Enum []string

	// Min and Max bound numeric kinds (int, float, duration in nanoseconds)
	// when non-nil.
	Min, Max *float64
}

// Required reports whether the field has no default and must be supplied by
// at least one source.
func (d FieldDescriptor) Required() bool { return d.Default == nil }

// Registry is the ordered, immutable collection of field descriptors a
// configuration is resolved against. Construct it once at startup; it is
// read-only afterwards and safe to share between goroutines.
type Registry struct {
	fields []FieldDescriptor
	byName map[string]int
	byEnv  map[string]int
}

// NewRegistry builds a Registry from descriptors in declaration order. It
// fails at construction, not at resolution time, when two fields collide on
// Name or EnvKey, when one field's name is a dot-prefix of another's (a path
// cannot be both a value and a section), when a name is not a valid
// dot-separated key, or when a default does not fit its descriptor.
func NewRegistry(fields ...FieldDescriptor) (*Registry, error) {
	r := &Registry{
		fields: make([]FieldDescriptor, 0, len(fields)),
		byName: make(map[string]int, len(fields)),
		byEnv:  make(map[string]int),
	}
	sections := make(map[string]string) // intermediate path -> field that claims it
	for _, d := range fields {
		if err := validateDescriptor(d); err != nil {
			return nil, err
		}
		if _, dup := r.byName[d.Name]; dup {
			return nil, fmt.Errorf("duplicate field name %q", d.Name)
		}
		if owner, taken := sections[d.Name]; taken {
			return nil, fmt.Errorf("field %q is a section prefix of %q", d.Name, owner)
		}
		for prefix := d.Name; ; {
			i := strings.LastIndexByte(prefix, '.')
			if i < 0 {
				break
			}
			prefix = prefix[:i]
			if _, claimed := r.byName[prefix]; claimed {
				return nil, fmt.Errorf("field %q is a section prefix of %q", prefix, d.Name)
			}
			sections[prefix] = d.Name
		}
		if d.EnvKey != "" {
			if prev, dup := r.byEnv[d.EnvKey]; dup {
				return nil, fmt.Errorf("env key %q claimed by both %q and %q",
					d.EnvKey, r.fields[prev].Name, d.Name)
			}
			r.byEnv[d.EnvKey] = len(r.fields)
		}
		r.byName[d.Name] = len(r.fields)
		r.fields = append(r.fields, d)
	}
	return r, nil
}

// MustRegistry is like NewRegistry but panics on error. Intended for static
// registration tables built at program initialization.
func MustRegistry(fields ...FieldDescriptor) *Registry {
	r, err := NewRegistry(fields...)
	if err != nil {
		panic(fmt.Sprintf("strata: invalid schema: %v", err))
	}
	return r
}

func validateDescriptor(d FieldDescriptor) error {
	if d.Name == "" {
		return fmt.Errorf("field name cannot be empty")
	}
	for _, segment := range strings.Split(d.Name, ".") {
		if !isValidKeySegment(segment) {
			return fmt.Errorf("invalid segment %q in field name %q", segment, d.Name)
		}
	}
	if d.Kind == KindInvalid {
		return fmt.Errorf("field %q has no kind", d.Name)
	}
	if d.Kind == KindEnum && len(d.Enum) == 0 {
		return fmt.Errorf("enum field %q declares no symbols", d.Name)
	}
	if d.Kind != KindEnum && len(d.Enum) > 0 {
		return fmt.Errorf("field %q declares enum symbols but is %s", d.Name, d.Kind)
	}
	if d.Min != nil && d.Max != nil && *d.Min > *d.Max {
		return fmt.Errorf("field %q: min %v exceeds max %v", d.Name, *d.Min, *d.Max)
	}
	if d.Default != nil {
		if d.Default.Kind() != d.Kind {
			return fmt.Errorf("field %q: default is %s, descriptor is %s",
				d.Name, d.Default.Kind(), d.Kind)
		}
		if d.Kind == KindEnum && !containsSymbol(d.Enum, d.Default.String()) {
			return fmt.Errorf("field %q: default %q not among enum symbols %v",
				d.Name, d.Default.String(), d.Enum)
		}
	}
	return nil
}

// Field returns the descriptor for name.
func (r *Registry) Field(name string) (FieldDescriptor, bool) {
	i, ok := r.byName[name]
	if !ok {
		return FieldDescriptor{}, false
	}
	return r.fields[i], true
}

// FieldByEnv returns the descriptor claiming the given environment key.
func (r *Registry) FieldByEnv(envKey string) (FieldDescriptor, bool) {
	i, ok := r.byEnv[envKey]
	if !ok {
		return FieldDescriptor{}, false
	}
	return r.fields[i], true
}

// Fields returns the descriptors in declaration order. The returned slice is
// a copy.
func (r *Registry) Fields() []FieldDescriptor {
	out := make([]FieldDescriptor, len(r.fields))
	copy(out, r.fields)
	return out
}

// Len returns the number of declared fields.
func (r *Registry) Len() int { return len(r.fields) }

// Section returns the sub-registry of fields nested under prefix, with the
// prefix stripped from their names. Fields named exactly prefix are excluded;
// a nested object is the set of fields beneath it.
func (r *Registry) Section(prefix string) (*Registry, error) {
	cut := prefix + "."
	var sub []FieldDescriptor
	for _, d := range r.fields {
		if strings.HasPrefix(d.Name, cut) {
			nested := d
			nested.Name = strings.TrimPrefix(d.Name, cut)
			sub = append(sub, nested)
		}
	}
	return NewRegistry(sub...)
}

// AutoEnv returns a copy of the registry in which every field lacking an
// EnvKey gets one derived from its name: dots become underscores and the
// result is uppercased ("server.port" becomes "SERVER_PORT"). Fields with
// explicit keys keep them unchanged. EnvSource prepends its prefix to every
// key at lookup time.
func (r *Registry) AutoEnv() (*Registry, error) {
	fields := r.Fields()
	for i, d := range fields {
		if d.EnvKey == "" {
			fields[i].EnvKey = strings.ToUpper(strings.ReplaceAll(d.Name, ".", "_"))
		}
	}
	return NewRegistry(fields...)
}

// coerceField converts a loose decoded value into a typed Value for the
// descriptor, enforcing enum membership alongside the kind.
func coerceField(d FieldDescriptor, raw any) (Value, error) {
	v, err := CoerceValue(d.Kind, raw)
	if err != nil {
		return Value{}, err
	}
	if d.Kind == KindEnum && !containsSymbol(d.Enum, v.String()) {
		return Value{}, fmt.Errorf("value %q not among enum symbols %v", v.String(), d.Enum)
	}
	return v, nil
}

func containsSymbol(symbols []string, s string) bool {
	for _, sym := range symbols {
		if sym == s {
			return true
		}
	}
	return false
}
