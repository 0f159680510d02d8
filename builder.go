package strata

import "fmt"

// Builder provides a fluent interface for assembling a resolution cycle.
type Builder struct {
	reg     *Registry
	autoEnv bool
	opts    Options
	err     error
}

// NewBuilder creates a new configuration builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithSchema sets an explicitly constructed registry.
func (b *Builder) WithSchema(reg *Registry) *Builder {
	b.reg = reg
	return b
}

// WithDefaults derives the schema from a struct carrying default values; see
// DescribeStruct for the tag set. Environment keys are derived automatically
// for fields that do not declare one.
func (b *Builder) WithDefaults(defaults any) *Builder {
	reg, err := DescribeStruct(defaults)
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("failed to describe defaults: %w", err)
		return b
	}
	b.reg = reg
	b.autoEnv = true
	return b
}

// WithFile sets the configuration file path.
func (b *Builder) WithFile(path string) *Builder {
	b.opts.Path = path
	return b
}

// WithCodec overrides extension-based codec selection.
func (b *Builder) WithCodec(codec Codec) *Builder {
	b.opts.Codec = codec
	return b
}

// WithEncryption wraps file reads and writes with the sealer.
func (b *Builder) WithEncryption(sealer Sealer) *Builder {
	b.opts.Sealer = sealer
	return b
}

// WithEnvPrefix sets the environment variable prefix.
func (b *Builder) WithEnvPrefix(prefix string) *Builder {
	b.opts.EnvPrefix = prefix
	return b
}

// WithEnvLookup overrides how environment variables are read.
func (b *Builder) WithEnvLookup(lookup func(string) (string, bool)) *Builder {
	b.opts.EnvLookup = lookup
	return b
}

// WithOverrides sets the externally-parsed command-line overrides.
func (b *Builder) WithOverrides(overrides *Overrides) *Builder {
	b.opts.Overrides = overrides
	return b
}

// WithValidator adds a cross-field validation function. Multiple validators
// run in the order they were added.
func (b *Builder) WithValidator(fn CrossFieldFunc) *Builder {
	if fn != nil {
		b.opts.Validators = append(b.opts.Validators, fn)
	}
	return b
}

// WithoutMaterialization disables file creation and migration for this load.
func (b *Builder) WithoutMaterialization() *Builder {
	b.opts.SkipMaterialize = true
	return b
}

// Load runs the resolution cycle with everything the builder accumulated.
func (b *Builder) Load() (*Effective, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.reg == nil {
		return nil, fmt.Errorf("no schema: call WithSchema or WithDefaults first")
	}
	reg := b.reg
	if b.autoEnv {
		var err error
		if reg, err = reg.AutoEnv(); err != nil {
			return nil, err
		}
	}
	return Load(reg, b.opts)
}

// MustLoad is like Load but panics on error.
func (b *Builder) MustLoad() *Effective {
	eff, err := b.Load()
	if err != nil {
		panic(fmt.Sprintf("config load failed: %v", err))
	}
	return eff
}

// LoadAndScan loads and then decodes the effective configuration into the
// provided struct pointer.
func (b *Builder) LoadAndScan(target any) error {
	eff, err := b.Load()
	if err != nil {
		return err
	}
	if err := eff.Scan(target); err != nil {
		return fmt.Errorf("failed to scan effective config into target: %w", err)
	}
	return nil
}
