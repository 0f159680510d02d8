// Package strata resolves a single effective configuration from layered
// sources: compiled-in defaults, a persisted configuration file, environment
// variables, and externally-parsed command-line overrides.
//
// Features:
//   - Fixed, per-field precedence: defaults < file < environment < CLI
//   - Schema registry describing every field (kind, default, docs, env key)
//   - Sum-typed values, so sources are type-checked at merge time
//   - File materialization: missing files are created with defaults and
//     inline documentation, stale files are migrated forward non-destructively
//   - Pluggable serialization formats (TOML, YAML, JSON built in)
//   - Optional transparent file encryption behind a two-method capability
//   - Structural and caller-supplied cross-field validation, all violations
//     reported at once
//
// Quick Start:
//
//	type AppConfig struct {
//	    Server struct {
//	        Host string `conf:"host" doc:"Interface the server binds to." env:"HOST"`
//	        Port int    `conf:"port" doc:"TCP port the server listens on." env:"PORT"`
//	    } `conf:"server"`
//	    LogLevel string `conf:"log_level" doc:"Minimum level to log." enum:"debug,info,warn,error"`
//	}
//
//	defaults := AppConfig{}
//	defaults.Server.Host = "localhost"
//	defaults.Server.Port = 8080
//	defaults.LogLevel = "info"
//
//	eff, err := strata.NewBuilder().
//	    WithDefaults(defaults).
//	    WithEnvPrefix("MYAPP_").
//	    WithFile("myapp.toml").
//	    Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	port, _ := eff.Int64("server.port")
//
// Precedence (highest to lowest):
//  1. Command-line overrides (supplied pre-parsed via Overrides)
//  2. Environment variables (MYAPP_SERVER_PORT=9090)
//  3. Configuration file (myapp.toml)
//  4. Registered default values
//
// Resolution is a single synchronous pipeline. The Registry is immutable and
// safe to share between goroutines; each Load call produces an independent,
// immutable Effective value. Concurrent loads against the same file path are
// serialized with an advisory file lock around the create/migrate sequence.
package strata
