package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
mode: release
database:
  host: db.internal
  user: library
auth:
  jwt_secret: s3cret
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ModeRelease, cfg.Mode)
	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, 3306, cfg.DB.Port)
	assert.Equal(t, "library", cfg.DB.DBName)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 5, cfg.Auth.MaxFailedLogins)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadParsesDurations(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: s3cret
  token_ttl: 48h
  lockout_window: 5m
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 48*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 5*time.Minute, cfg.Auth.LockoutWindow)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: from-file
`)
	t.Setenv("LIBRARY_JWT_SECRET", "from-env")
	t.Setenv("LIBRARY_DB_PORT", "3307")
	t.Setenv("LIBRARY_DB_PASSWORD", "pw")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, 3307, cfg.DB.Port)
	assert.Equal(t, "pw", cfg.DB.Password)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"missing secret": `mode: dev`,
		"bad mode": `
mode: staging
auth:
  jwt_secret: x`,
		"zero max failed logins": `
auth:
  jwt_secret: x
  max_failed_logins: 0`,
		"negative max failed logins": `
auth:
  jwt_secret: x
  max_failed_logins: -3`,
		"zero lockout window": `
auth:
  jwt_secret: x
  lockout_window: 0s`,
		"cert without key": `
server:
  cert: server.crt
auth:
  jwt_secret: x`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
