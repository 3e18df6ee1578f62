package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Server.HTTPAddr)
	require.Equal(t, DriverMemory, cfg.Store.Driver)
	require.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	require.Equal(t, "clientdesk", cfg.Auth.Issuer)
	require.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
}

func TestLoadFileThenEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clientdesk.yaml")
	content := []byte(`
server:
  http_addr: ":9000"
  rate_burst: 5
store:
  driver: sqlite
  dsn: "file:clientdesk.db"
auth:
  secret: "file-secret-file-secret"
  token_ttl: 2m
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("CLIENTDESK_SERVER_HTTP_ADDR", ":9100")
	t.Setenv("CLIENTDESK_AUTH_TOKEN_TTL", "90m")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9100", cfg.Server.HTTPAddr)
	require.Equal(t, 5, cfg.Server.RateBurst)
	require.Equal(t, DriverSQLite, cfg.Store.Driver)
	require.Equal(t, "file:clientdesk.db", cfg.Store.DSN)
	require.Equal(t, 90*time.Minute, cfg.Auth.TokenTTL)
	require.Equal(t, "file-secret-file-secret", cfg.Auth.Secret)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.ErrorContains(t, cfg.Validate(), "auth.secret is required")

	cfg.Auth.Secret = "0123456789abcdef"
	require.NoError(t, cfg.Validate())

	cfg.Store.Driver = DriverPostgres
	require.ErrorContains(t, cfg.Validate(), "store.dsn is required")

	cfg.Store.Driver = "mongo"
	require.ErrorContains(t, cfg.Validate(), "unknown store.driver")
}
