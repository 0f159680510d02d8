package strata

import (
	"errors"
	"fmt"
	"os"
	"sort"
)

// Source tags the provenance of a configuration value.
type Source string

const (
	// SourceDefault marks values filled from descriptor defaults.
	SourceDefault Source = "default"
	// SourceFile marks values loaded from the configuration file.
	SourceFile Source = "file"
	// SourceEnv marks values loaded from environment variables.
	SourceEnv Source = "env"
	// SourceCLI marks values supplied by command-line overrides.
	SourceCLI Source = "cli"
)

// Entry is one field's value together with its provenance.
type Entry struct {
	Value  Value
	Source Source
}

// Partial is a sparse field-to-entry mapping produced by one source adapter.
// Partials are ephemeral: they exist only between collection and merge.
type Partial struct {
	source  Source
	entries map[string]Entry
}

// NewPartial returns an empty partial for the given source.
func NewPartial(source Source) Partial {
	return Partial{source: source, entries: make(map[string]Entry)}
}

// Source returns the provenance tag all entries of this partial carry.
func (p Partial) Source() Source { return p.source }

// Len returns the number of supplied fields.
func (p Partial) Len() int { return len(p.entries) }

// Get returns the entry for a field, if the source supplied one.
func (p Partial) Get(name string) (Entry, bool) {
	e, ok := p.entries[name]
	return e, ok
}

// Names returns the supplied field names in lexical order.
func (p Partial) Names() []string {
	names := make([]string, 0, len(p.entries))
	for name := range p.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p Partial) set(name string, v Value) {
	p.entries[name] = Entry{Value: v, Source: p.source}
}

// Collector produces a partial configuration from one source. FileSource,
// EnvSource, and CLISource implement it.
type Collector interface {
	Collect(reg *Registry) (Partial, error)
}

// FileSource reads the persisted configuration file through a codec and an
// optional encryption adapter. An absent file yields an empty partial; the
// materializer, not the source, is responsible for creating files.
type FileSource struct {
	Path   string
	Codec  Codec
	Sealer Sealer
}

// Collect decodes the file and maps every schema field present in it,
// coerced to the field's kind. Schema-foreign entries are ignored here; they
// matter only to the materializer.
func (s FileSource) Collect(reg *Registry) (Partial, error) {
	partial := NewPartial(SourceFile)

	flat, _, err := readDocument(s.Path, s.Codec, s.Sealer)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return partial, nil
		}
		return Partial{}, err
	}

	for _, d := range reg.Fields() {
		raw, present := flat[d.Name]
		if !present {
			continue
		}
		v, err := coerceField(d, raw)
		if err != nil {
			return Partial{}, &DecodeError{
				Path: s.Path,
				Err:  fmt.Errorf("field %q: %w", d.Name, err),
			}
		}
		partial.set(d.Name, v)
	}
	return partial, nil
}

// EnvSource reads fields from process environment variables. Only fields
// with an EnvKey participate; absent variables are skipped, malformed values
// fail with EnvParseError naming the variable.
type EnvSource struct {
	// Prefix is prepended to every field's EnvKey ("MYAPP_" + "PORT").
	Prefix string

	// Lookup overrides os.LookupEnv, mainly for tests.
	Lookup func(key string) (string, bool)
}

// Collect parses every present environment variable into its field's kind.
// All malformed variables are reported together.
func (s EnvSource) Collect(reg *Registry) (Partial, error) {
	lookup := s.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	partial := NewPartial(SourceEnv)
	var parseErrors []error

	for _, d := range reg.Fields() {
		if d.EnvKey == "" {
			continue
		}
		key := s.Prefix + d.EnvKey
		raw, present := lookup(key)
		if !present {
			continue
		}
		v, err := ParseValue(d.Kind, raw)
		if err == nil && d.Kind == KindEnum && !containsSymbol(d.Enum, v.String()) {
			err = fmt.Errorf("value not among enum symbols %v", d.Enum)
		}
		if err != nil {
			shown := raw
			if d.Sensitive {
				shown = "[redacted]"
			}
			parseErrors = append(parseErrors, &EnvParseError{
				Key:   key,
				Raw:   shown,
				Field: d.Name,
				Err:   err,
			})
			continue
		}
		partial.set(d.Name, v)
	}

	if len(parseErrors) > 0 {
		return Partial{}, errors.Join(parseErrors...)
	}
	return partial, nil
}

// Overrides is the already-typed override structure an external command-line
// parser hands in. It is ordered by insertion for deterministic diagnostics.
type Overrides struct {
	names  []string
	values map[string]Value
}

// NewOverrides returns an empty override set.
func NewOverrides() *Overrides {
	return &Overrides{values: make(map[string]Value)}
}

// Set records a typed override for a field. Later calls for the same field
// replace the earlier value.
func (o *Overrides) Set(name string, v Value) *Overrides {
	if _, seen := o.values[name]; !seen {
		o.names = append(o.names, name)
	}
	o.values[name] = v
	return o
}

// Len returns the number of overridden fields.
func (o *Overrides) Len() int {
	if o == nil {
		return 0
	}
	return len(o.values)
}

// CLISource adapts externally-parsed overrides into a partial. The external
// parser owns tokenization; this adapter only maps typed values onto fields
// marked CLI-overridable.
type CLISource struct {
	Overrides *Overrides
}

// Collect maps the overrides onto the schema. Overriding an unknown field or
// one not marked CLI-overridable is a contract violation by the external
// parser and is rejected here; all violations are reported together.
func (s CLISource) Collect(reg *Registry) (Partial, error) {
	partial := NewPartial(SourceCLI)
	if s.Overrides == nil {
		return partial, nil
	}

	var contractErrors []error
	for _, name := range s.Overrides.names {
		d, known := reg.Field(name)
		if !known {
			contractErrors = append(contractErrors, fmt.Errorf("override %q: %w", name, ErrUnknownField))
			continue
		}
		if !d.CLI {
			contractErrors = append(contractErrors, fmt.Errorf("override %q: field is not command-line overridable", name))
			continue
		}
		v, err := coerceField(d, s.Overrides.values[name].Interface())
		if err != nil {
			contractErrors = append(contractErrors, fmt.Errorf("override %q: %w", name, err))
			continue
		}
		partial.set(name, v)
	}

	if len(contractErrors) > 0 {
		return Partial{}, errors.Join(contractErrors...)
	}
	return partial, nil
}
