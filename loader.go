package strata

import "fmt"

// Options configures one resolution cycle.
type Options struct {
	// Path is the configuration file location. Empty skips the file layer
	// and materialization entirely.
	Path string

	// Codec overrides extension-based codec selection for Path.
	Codec Codec

	// Sealer, when set, transparently encrypts and decrypts the file.
	Sealer Sealer

	// EnvPrefix is prepended to every field's environment key.
	EnvPrefix string

	// EnvLookup overrides os.LookupEnv, mainly for tests.
	EnvLookup func(key string) (string, bool)

	// Overrides carries the externally-parsed command-line values.
	Overrides *Overrides

	// Validators are cross-field checks run after structural validation.
	Validators []CrossFieldFunc

	// SkipMaterialize leaves the file untouched: absent files simply
	// contribute nothing and no migration is attempted.
	SkipMaterialize bool
}

// Load runs one full resolution cycle: materialize the file, collect the
// partial configurations from file, environment, and CLI overrides, merge
// them by fixed precedence (defaults < file < env < CLI), validate, and
// return the effective configuration. It either returns a fully valid
// Effective or an error carrying the complete list of problems; there is no
// partial success.
func Load(reg *Registry, opts Options) (*Effective, error) {
	var partials []Partial

	if opts.Path != "" {
		codec := opts.Codec
		if codec == nil {
			var err error
			if codec, err = CodecForPath(opts.Path); err != nil {
				return nil, err
			}
		}

		if !opts.SkipMaterialize {
			if _, err := EnsureCurrent(reg, opts.Path, codec, opts.Sealer); err != nil {
				return nil, err
			}
		}

		filePartial, err := FileSource{Path: opts.Path, Codec: codec, Sealer: opts.Sealer}.Collect(reg)
		if err != nil {
			return nil, err
		}
		partials = append(partials, filePartial)
	}

	envPartial, err := EnvSource{Prefix: opts.EnvPrefix, Lookup: opts.EnvLookup}.Collect(reg)
	if err != nil {
		return nil, err
	}
	partials = append(partials, envPartial)

	if opts.Overrides.Len() > 0 {
		cliPartial, err := CLISource{Overrides: opts.Overrides}.Collect(reg)
		if err != nil {
			return nil, err
		}
		partials = append(partials, cliPartial)
	}

	eff, err := Resolve(reg, partials...)
	if err != nil {
		return nil, err
	}
	if err := Validate(eff, opts.Validators...); err != nil {
		return nil, err
	}
	return eff, nil
}

// Quick resolves a configuration in one call from a defaults struct, an
// environment prefix, and a file path, with environment keys derived from
// field names. This is the recommended entry point for most applications.
func Quick(defaults any, envPrefix, path string) (*Effective, error) {
	reg, err := DescribeStruct(defaults)
	if err != nil {
		return nil, fmt.Errorf("failed to describe defaults: %w", err)
	}
	reg, err = reg.AutoEnv()
	if err != nil {
		return nil, err
	}
	return Load(reg, Options{Path: path, EnvPrefix: envPrefix})
}

// MustQuick is like Quick but panics on error.
func MustQuick(defaults any, envPrefix, path string) *Effective {
	eff, err := Quick(defaults, envPrefix, path)
	if err != nil {
		panic(fmt.Sprintf("config initialization failed: %v", err))
	}
	return eff
}
