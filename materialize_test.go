package strata_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/strataconf/strata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func materializeRegistry(t *testing.T) *strata.Registry {
	t.Helper()
	host := strata.String("localhost")
	port := strata.Int(8080)
	timeout := strata.Duration(30 * time.Second)
	reg, err := strata.NewRegistry(
		strata.FieldDescriptor{Name: "server.host", Kind: strata.KindString, Default: &host, Doc: "interface to bind"},
		strata.FieldDescriptor{Name: "server.port", Kind: strata.KindInt, Default: &port, Doc: "listen port", CLI: true},
		strata.FieldDescriptor{Name: "timeout", Kind: strata.KindDuration, Default: &timeout},
		strata.FieldDescriptor{Name: "api_key", Kind: strata.KindString, Doc: "upstream credential", CLI: true},
	)
	require.NoError(t, err)
	return reg
}

func TestEnsureCurrentCreates(t *testing.T) {
	reg := materializeRegistry(t)
	path := filepath.Join(t.TempDir(), "app.toml")

	state, err := strata.EnsureCurrent(reg, path, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, strata.DispositionCreated, state.Disposition)
	assert.Equal(t, []string{"server.host", "server.port", "timeout"}, state.Added)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	// Defaults with their docs, in declaration order.
	assert.Contains(t, out, "# interface to bind")
	assert.Contains(t, out, `host = "localhost"`)
	assert.Contains(t, out, "port = 8080")

	// A required field with no default is never written with an invented
	// value; it is listed in the header instead.
	assert.NotContains(t, out, "api_key =")
	assert.Contains(t, out, "api_key (required, no default)")
}

func TestEnsureCurrentUntouched(t *testing.T) {
	reg := materializeRegistry(t)
	path := filepath.Join(t.TempDir(), "app.toml")

	_, err := strata.EnsureCurrent(reg, path, nil, nil)
	require.NoError(t, err)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	state, err := strata.EnsureCurrent(reg, path, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, strata.DispositionUntouched, state.Disposition)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "a current file must be left byte-identical")
}

func TestEnsureCurrentMigrates(t *testing.T) {
	reg := materializeRegistry(t)
	path := filepath.Join(t.TempDir(), "app.toml")

	// A file from an older schema: user changed the port, timeout does not
	// exist yet, and one entry is schema-foreign.
	seed := "legacy_flag = \"keepme\"\n\n[server]\nhost = \"example.com\"\nport = 9000\n"
	require.NoError(t, os.WriteFile(path, []byte(seed), 0644))

	state, err := strata.EnsureCurrent(reg, path, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, strata.DispositionMigrated, state.Disposition)
	assert.Equal(t, []string{"timeout"}, state.Added)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, `host = "example.com"`, "user value replaced during migration")
	assert.Contains(t, out, "port = 9000")
	assert.Contains(t, out, `timeout = "30s"`, "missing field not appended")
	assert.Contains(t, out, `legacy_flag = "keepme"`, "schema-foreign entry dropped without prune")

	// The migrated file is current; a rerun changes nothing.
	state, err = strata.EnsureCurrent(reg, path, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, strata.DispositionUntouched, state.Disposition)
}

func TestEnsureCurrentPreservesArrayOfTables(t *testing.T) {
	reg := materializeRegistry(t)
	path := filepath.Join(t.TempDir(), "app.toml")

	// A legacy file carrying a schema-foreign array of tables; migration must
	// carry it through, not fail on it.
	seed := "[[listeners]]\naddr = \"0.0.0.0\"\nport = 8081\n\n" +
		"[[listeners]]\naddr = \"::1\"\nport = 8082\n\n" +
		"[server]\nhost = \"example.com\"\n"
	require.NoError(t, os.WriteFile(path, []byte(seed), 0644))

	state, err := strata.EnsureCurrent(reg, path, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, strata.DispositionMigrated, state.Disposition)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	flat, err := strata.TOMLCodec{}.Decode(data)
	require.NoError(t, err, "migrated file must stay parseable")

	var listeners []map[string]any
	switch raw := flat["listeners"].(type) {
	case []map[string]any:
		listeners = raw
	case []any:
		for _, item := range raw {
			table, ok := item.(map[string]any)
			require.True(t, ok, "array element is %T, not a table", item)
			listeners = append(listeners, table)
		}
	default:
		t.Fatalf("array of tables lost in migration: %#v", flat["listeners"])
	}
	require.Len(t, listeners, 2)
	assert.Equal(t, int64(8081), listeners[0]["port"])
	assert.Equal(t, "::1", listeners[1]["addr"])
}

func TestPrune(t *testing.T) {
	reg := materializeRegistry(t)
	path := filepath.Join(t.TempDir(), "app.toml")

	seed := "legacy_flag = \"old\"\n\n[server]\nhost = \"example.com\"\nport = 9000\ntimeout = 1\n"
	require.NoError(t, os.WriteFile(path, []byte(seed), 0644))

	state, err := strata.Prune(reg, path, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, strata.DispositionPruned, state.Disposition)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.NotContains(t, out, "legacy_flag")
	assert.Contains(t, out, `host = "example.com"`, "user value survives prune")

	flat, err := strata.TOMLCodec{}.Decode(data)
	require.NoError(t, err)
	assert.NotContains(t, flat, "server.timeout", "nested foreign entry removed")
	assert.Contains(t, flat, "timeout", "schema field keeps its default")

	// Nothing foreign left: prune becomes a no-op.
	state, err = strata.Prune(reg, path, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, strata.DispositionUntouched, state.Disposition)
}

func TestEnsureCurrentEncrypted(t *testing.T) {
	reg := materializeRegistry(t)
	path := filepath.Join(t.TempDir(), "app.toml")

	sealer, err := strata.NewAESSealer("swordfish")
	require.NoError(t, err)

	state, err := strata.EnsureCurrent(reg, path, nil, sealer)
	require.NoError(t, err)
	assert.Equal(t, strata.DispositionCreated, state.Disposition)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "localhost", "file must not hold plaintext")

	// The same sealer reads it back and finds it current.
	state, err = strata.EnsureCurrent(reg, path, nil, sealer)
	require.NoError(t, err)
	assert.Equal(t, strata.DispositionUntouched, state.Disposition)

	// A different passphrase cannot open it.
	other, err := strata.NewAESSealer("not swordfish")
	require.NoError(t, err)
	_, err = strata.EnsureCurrent(reg, path, nil, other)
	require.Error(t, err)
	var eerr *strata.EncryptionError
	assert.ErrorAs(t, err, &eerr)
}

func TestWriteEffective(t *testing.T) {
	reg := materializeRegistry(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "app.toml")

	seed := "legacy_flag = true\n\n[server]\nport = 9000\n"
	require.NoError(t, os.WriteFile(path, []byte(seed), 0644))

	eff, err := strata.Load(reg, strata.Options{
		Path: path,
		Overrides: strata.NewOverrides().
			Set("server.port", strata.Int(7070)).
			Set("api_key", strata.String("cli-key")),
	})
	require.NoError(t, err)

	// Load migrated the seeded file already; that migrated file is what the
	// tilde backup must preserve.
	migrated, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, strata.WriteEffective(eff, path, nil, nil))

	backup, err := os.ReadFile(path + "~")
	require.NoError(t, err)
	assert.Equal(t, string(migrated), string(backup), "previous file preserved as tilde backup")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "port = 7070", "override persisted as the effective value")
	assert.Contains(t, out, `api_key = "cli-key"`)
	assert.Contains(t, out, "legacy_flag = true", "schema-foreign entry carried over")
	assert.Contains(t, out, "# listen port", "docs rewritten with the file")
}

func TestWriteEffectiveStaleBackup(t *testing.T) {
	reg := materializeRegistry(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "app.toml")

	// A tilde file left behind by an earlier run; there is no current file,
	// so this cycle backs nothing up and must not claim otherwise.
	stale := "port = 1\n"
	require.NoError(t, os.WriteFile(path+"~", []byte(stale), 0644))

	eff, err := strata.Load(reg, strata.Options{
		SkipMaterialize: true,
		Overrides:       strata.NewOverrides().Set("api_key", strata.String("k")),
	})
	require.NoError(t, err)

	require.NoError(t, strata.WriteEffective(eff, path, nil, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "backed up", "no backup happened this cycle")

	leftover, err := os.ReadFile(path + "~")
	require.NoError(t, err)
	assert.Equal(t, stale, string(leftover), "stale backup left alone")
}

func TestEnsureCurrentSelectsCodecByExtension(t *testing.T) {
	reg := materializeRegistry(t)
	dir := t.TempDir()

	for _, name := range []string{"app.yaml", "app.json"} {
		path := filepath.Join(dir, name)
		state, err := strata.EnsureCurrent(reg, path, nil, nil)
		require.NoError(t, err, name)
		assert.Equal(t, strata.DispositionCreated, state.Disposition, name)

		codec, err := strata.CodecForPath(path)
		require.NoError(t, err)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		flat, err := codec.Decode(data)
		require.NoError(t, err, name)
		assert.Contains(t, flat, "server.host", name)
	}

	_, err := strata.EnsureCurrent(reg, filepath.Join(dir, "app.ini"), nil, nil)
	assert.ErrorIs(t, err, strata.ErrUnsupportedFormat)
}
