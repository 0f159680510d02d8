package strata_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/strataconf/strata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type demoServer struct {
	Host string `conf:"host" doc:"interface to bind"`
	Port int    `conf:"port" doc:"listen port" min:"1" max:"65535"`
}

type demoSettings struct {
	Server   demoServer    `conf:"server"`
	LogLevel string        `conf:"log_level" enum:"debug,info,warn,error"`
	Timeout  time.Duration `conf:"timeout"`
	APIKey   string        `conf:"api_key" env:"API_KEY" required:"true" sensitive:"true"`
}

func demoDefaults() demoSettings {
	return demoSettings{
		Server:   demoServer{Host: "localhost", Port: 8080},
		LogLevel: "info",
		Timeout:  30 * time.Second,
	}
}

func TestLoadEndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.toml")
	content := "[server]\nport = 8080\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	reg, err := strata.DescribeStruct(demoDefaults())
	require.NoError(t, err)
	reg, err = reg.AutoEnv()
	require.NoError(t, err)

	env := map[string]string{
		"DEMO_SERVER_PORT": "9090",
		"DEMO_API_KEY":     "from-env",
	}

	eff, err := strata.Load(reg, strata.Options{
		Path:      path,
		EnvPrefix: "DEMO_",
		EnvLookup: func(k string) (string, bool) { v, ok := env[k]; return v, ok },
		Overrides: strata.NewOverrides().Set("server.port", strata.Int(7070)),
	})
	require.NoError(t, err)

	// file 8080 < env 9090 < cli 7070
	port, err := eff.Int64("server.port")
	require.NoError(t, err)
	assert.Equal(t, int64(7070), port)

	src, _ := eff.Provenance("server.port")
	assert.Equal(t, strata.SourceCLI, src)

	host, err := eff.String("server.host")
	require.NoError(t, err)
	assert.Equal(t, "localhost", host)
	src, _ = eff.Provenance("server.host")
	assert.Equal(t, strata.SourceDefault, src)

	key, err := eff.String("api_key")
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)

	timeout, err := eff.Duration("timeout")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, timeout)
}

func TestLoadMaterializesAbsentFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.toml")

	reg, err := strata.DescribeStruct(demoDefaults())
	require.NoError(t, err)

	_, err = strata.Load(reg, strata.Options{
		Path:      path,
		EnvLookup: func(string) (string, bool) { return "", false },
		Overrides: strata.NewOverrides().Set("api_key", strata.String("k")),
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `host = "localhost"`)
	assert.NotContains(t, string(data), "api_key =", "required field never written with an invented value")
}

func TestLoadSkipMaterialize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.toml")

	reg, err := strata.DescribeStruct(demoDefaults())
	require.NoError(t, err)

	_, err = strata.Load(reg, strata.Options{
		Path:            path,
		SkipMaterialize: true,
		EnvLookup:       func(string) (string, bool) { return "", false },
		Overrides:       strata.NewOverrides().Set("api_key", strata.String("k")),
	})
	require.NoError(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "absent file must stay absent")
}

func TestLoadReportsMissingRequired(t *testing.T) {
	reg, err := strata.DescribeStruct(demoDefaults())
	require.NoError(t, err)

	_, err = strata.Load(reg, strata.Options{
		EnvLookup: func(string) (string, bool) { return "", false },
	})
	require.Error(t, err)

	var missing *strata.MissingFieldsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"api_key"}, missing.Fields)
}

func TestLoadRunsValidation(t *testing.T) {
	reg, err := strata.DescribeStruct(demoDefaults())
	require.NoError(t, err)

	env := map[string]string{}
	_, err = strata.Load(reg, strata.Options{
		EnvLookup: func(k string) (string, bool) { v, ok := env[k]; return v, ok },
		Overrides: strata.NewOverrides().
			Set("api_key", strata.String("k")).
			Set("server.port", strata.Int(99999)),
	})
	require.Error(t, err)

	var verr *strata.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "server.port", verr.Violations[0].Field)
}

func TestLoadCrossFieldValidators(t *testing.T) {
	reg, err := strata.DescribeStruct(demoDefaults())
	require.NoError(t, err)

	fastNeedsWarn := func(e *strata.Effective) error {
		timeout, _ := e.Duration("timeout")
		level, _ := e.String("log_level")
		if timeout < time.Second && level == "debug" {
			return errors.New("debug logging too slow for sub-second timeouts")
		}
		return nil
	}

	_, err = strata.Load(reg, strata.Options{
		EnvLookup: func(string) (string, bool) { return "", false },
		Overrides: strata.NewOverrides().
			Set("api_key", strata.String("k")).
			Set("timeout", strata.Duration(100*time.Millisecond)).
			Set("log_level", strata.Enum("debug")),
		Validators: []strata.CrossFieldFunc{fastNeedsWarn},
	})
	require.Error(t, err)

	var verr *strata.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), "too slow")
}

func TestQuick(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.toml")
	t.Setenv("QUICKTEST_API_KEY", "env-key")
	t.Setenv("QUICKTEST_LOG_LEVEL", "warn")

	eff, err := strata.Quick(demoDefaults(), "QUICKTEST_", path)
	require.NoError(t, err)

	key, err := eff.String("api_key")
	require.NoError(t, err)
	assert.Equal(t, "env-key", key)

	level, err := eff.String("log_level")
	require.NoError(t, err)
	assert.Equal(t, "warn", level)

	// Quick materializes the file as a side effect.
	assert.FileExists(t, path)
}
