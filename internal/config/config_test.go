package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/komodo-io/komodo-core/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresSecretPassphrase(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadAppliesDefaultsWithOnlySecretPassphrase(t *testing.T) {
	t.Setenv("KOMODO_SECRET_PASSPHRASE", "test-passphrase")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "0.0.0.0:9120", cfg.ListenAddress)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir = "/var/lib/komodo"
listen_address = "127.0.0.1:8080"
secret_passphrase = "from-file"
log_level = "debug"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/komodo", cfg.DataDir)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddress)
	assert.Equal(t, "from-file", cfg.SecretPassphrase)
	assert.Equal(t, logging.DebugLevel, cfg.LoggingLevel())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir = "/var/lib/komodo"
secret_passphrase = "from-file"
`), 0o600))

	t.Setenv("KOMODO_DATA_DIR", "/env/data")
	t.Setenv("KOMODO_SECRET_PASSPHRASE", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/env/data", cfg.DataDir)
	assert.Equal(t, "from-env", cfg.SecretPassphrase)
}

func TestLoadMissingFileFallsBackToDefaultsPlusEnv(t *testing.T) {
	t.Setenv("KOMODO_SECRET_PASSPHRASE", "test-passphrase")

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	assert.Equal(t, "data", cfg.DataDir)
}

func TestLoadParsesRegistryAccountsFromEnv(t *testing.T) {
	t.Setenv("KOMODO_SECRET_PASSPHRASE", "test-passphrase")
	t.Setenv("KOMODO_REGISTRY_ACCOUNTS", "docker.io|myorg|tok-1,ghcr.io|other|tok-2")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Len(t, cfg.RegistryAccounts, 2)
	assert.Equal(t, "docker.io", cfg.RegistryAccounts[0].Domain)
	assert.Equal(t, "tok-2", cfg.RegistryAccounts[1].Token)

	accounts := cfg.Accounts()
	require.Len(t, accounts, 2)
	assert.Equal(t, "myorg", accounts[0].Account)
}

func TestLoadSkipsMalformedRegistryAccountEntry(t *testing.T) {
	t.Setenv("KOMODO_SECRET_PASSPHRASE", "test-passphrase")
	t.Setenv("KOMODO_REGISTRY_ACCOUNTS", "malformed-entry,docker.io|myorg|tok-1")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Len(t, cfg.RegistryAccounts, 1)
	assert.Equal(t, "docker.io", cfg.RegistryAccounts[0].Domain)
}

func TestLoggingLevelDefaultsToInfoForUnrecognizedValue(t *testing.T) {
	cfg := Config{LogLevel: "trace"}
	assert.Equal(t, logging.InfoLevel, cfg.LoggingLevel())
}
