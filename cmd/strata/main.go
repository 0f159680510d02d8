// Command strata demonstrates layered configuration resolution: it owns the
// command-line parsing (the library only accepts typed overrides), loads the
// effective configuration, and exposes the file maintenance operations.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/strataconf/strata"
)

// demoConfig is the sample schema the tool resolves against.
type demoConfig struct {
	Server struct {
		Host string `conf:"host" doc:"Interface the server binds to."`
		Port int    `conf:"port" doc:"TCP port the server listens on." min:"1" max:"65535"`
	} `conf:"server"`
	LogLevel string        `conf:"log_level" doc:"Minimum level to log." enum:"debug,info,warn,error"`
	Timeout  time.Duration `conf:"timeout" doc:"Per-request timeout."`
	APIKey   string        `conf:"api_key" doc:"Upstream API key." sensitive:"true"`
	Tags     []string      `conf:"tags" doc:"Labels attached to every request." cli:"false"`
}

func defaults() demoConfig {
	var c demoConfig
	c.Server.Host = "localhost"
	c.Server.Port = 8080
	c.LogLevel = "info"
	c.Timeout = 30 * time.Second
	c.Tags = []string{"strata"}
	return c
}

type appFlags struct {
	configPath string
	envPrefix  string
	passphrase string
	sets       []string
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	flags := &appFlags{}

	root := &cobra.Command{
		Use:           "strata",
		Short:         "Resolve and maintain a layered configuration file",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "strata.toml", "configuration file path")
	root.PersistentFlags().StringVar(&flags.envPrefix, "env-prefix", "STRATA_", "environment variable prefix")
	root.PersistentFlags().StringVar(&flags.passphrase, "passphrase", "", "encrypt/decrypt the file with this passphrase")
	root.PersistentFlags().StringArrayVar(&flags.sets, "set", nil, "override a field, e.g. --set server.port=9090 (repeatable)")

	root.AddCommand(
		showCommand(flags),
		initCommand(flags),
		pruneCommand(flags),
		writeEffectiveCommand(flags),
	)

	if err := root.Execute(); err != nil {
		slog.Error("command failed", "error", err.Error())
		os.Exit(1)
	}
}

func registry() (*strata.Registry, error) {
	reg, err := strata.DescribeStruct(defaults())
	if err != nil {
		return nil, err
	}
	return reg.AutoEnv()
}

func sealer(flags *appFlags) (strata.Sealer, error) {
	if flags.passphrase == "" {
		return nil, nil
	}
	return strata.NewAESSealer(flags.passphrase)
}

// overrides types the raw --set tokens against the schema. This tool, not
// the library, owns string parsing of command-line input.
func overrides(reg *strata.Registry, sets []string) (*strata.Overrides, error) {
	if len(sets) == 0 {
		return nil, nil
	}
	ov := strata.NewOverrides()
	for _, set := range sets {
		name, raw, found := strings.Cut(set, "=")
		if !found {
			return nil, fmt.Errorf("--set %q: expected field=value", set)
		}
		d, known := reg.Field(name)
		if !known {
			return nil, fmt.Errorf("--set %q: unknown field", name)
		}
		v, err := strata.ParseValue(d.Kind, raw)
		if err != nil {
			return nil, fmt.Errorf("--set %s: %w", name, err)
		}
		ov.Set(name, v)
	}
	return ov, nil
}

func load(flags *appFlags) (*strata.Effective, error) {
	reg, err := registry()
	if err != nil {
		return nil, err
	}
	s, err := sealer(flags)
	if err != nil {
		return nil, err
	}
	ov, err := overrides(reg, flags.sets)
	if err != nil {
		return nil, err
	}
	return strata.Load(reg, strata.Options{
		Path:      flags.configPath,
		Sealer:    s,
		EnvPrefix: flags.envPrefix,
		Overrides: ov,
	})
}

func showCommand(flags *appFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Resolve and print the effective configuration with provenance",
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, err := load(flags)
			if err != nil {
				return err
			}
			fmt.Print(eff.Format())
			return nil
		},
	}
}

func initCommand(flags *appFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration file or migrate it to the current schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry()
			if err != nil {
				return err
			}
			s, err := sealer(flags)
			if err != nil {
				return err
			}
			state, err := strata.EnsureCurrent(reg, flags.configPath, nil, s)
			if err != nil {
				return err
			}
			slog.Info("materialized configuration file",
				"path", state.Path,
				"disposition", state.Disposition.String(),
				"added", state.Added,
			)
			return nil
		},
	}
}

func pruneCommand(flags *appFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove entries the current schema no longer declares",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry()
			if err != nil {
				return err
			}
			s, err := sealer(flags)
			if err != nil {
				return err
			}
			state, err := strata.Prune(reg, flags.configPath, nil, s)
			if err != nil {
				return err
			}
			slog.Info("pruned configuration file",
				"path", state.Path,
				"disposition", state.Disposition.String(),
			)
			return nil
		},
	}
}

func writeEffectiveCommand(flags *appFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "write-effective",
		Short: "Rewrite the file with the resolved configuration (backs up the old file)",
		Long: "Resolves the effective configuration from all sources and persists it " +
			"to the configuration file. The previous file is renamed with a trailing " +
			"tilde first. Values overridden by environment or --set become the " +
			"persisted values.",
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, err := load(flags)
			if err != nil {
				return err
			}
			s, err := sealer(flags)
			if err != nil {
				return err
			}
			if err := strata.WriteEffective(eff, flags.configPath, nil, s); err != nil {
				return err
			}
			slog.Info("wrote effective configuration", "path", flags.configPath)
			return nil
		},
	}
}
