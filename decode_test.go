package strata_test

import (
	"testing"
	"time"

	"github.com/strataconf/strata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadDemo(t *testing.T) *strata.Effective {
	t.Helper()
	eff, err := strata.NewBuilder().
		WithDefaults(demoDefaults()).
		WithEnvLookup(func(string) (string, bool) { return "", false }).
		WithOverrides(strata.NewOverrides().
			Set("api_key", strata.String("k")).
			Set("server.port", strata.Int(9999))).
		Load()
	require.NoError(t, err)
	return eff
}

func TestScan(t *testing.T) {
	eff := loadDemo(t)

	var settings demoSettings
	require.NoError(t, eff.Scan(&settings))

	assert.Equal(t, "localhost", settings.Server.Host)
	assert.Equal(t, 9999, settings.Server.Port)
	assert.Equal(t, "info", settings.LogLevel)
	assert.Equal(t, 30*time.Second, settings.Timeout)
	assert.Equal(t, "k", settings.APIKey)
}

func TestScanSection(t *testing.T) {
	eff := loadDemo(t)

	var server demoServer
	require.NoError(t, eff.ScanSection("server", &server))
	assert.Equal(t, "localhost", server.Host)
	assert.Equal(t, 9999, server.Port)
}

func TestScanSectionMissingPathIsNoOp(t *testing.T) {
	eff := loadDemo(t)

	server := demoServer{Host: "stale", Port: 1}
	require.NoError(t, eff.ScanSection("no.such.section", &server))
	assert.Equal(t, demoServer{Host: "stale", Port: 1}, server)
}

func TestScanSectionRejectsLeafPath(t *testing.T) {
	eff := loadDemo(t)

	var server demoServer
	err := eff.ScanSection("server.port", &server)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-section")
}

func TestScanRejectsNonPointer(t *testing.T) {
	eff := loadDemo(t)

	var settings demoSettings
	assert.Error(t, eff.Scan(settings))
	assert.Error(t, eff.Scan(nil))
}
