package config

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "http://localhost:8000/api/v1", cfg.Upstream.BaseURL)
	assert.Equal(t, "dashsid", cfg.Session.Cookie.Name)
	assert.Equal(t, "Lax", cfg.Session.Cookie.SameSite)
	assert.Equal(t, "memory", cfg.Vault.Backend)
	assert.Equal(t, "memory", cfg.Cache.Kind)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 30*time.Second, Duration(cfg.Upstream.Timeout))
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
upstream:
  base_url: "https://api.clinic.example/v1"
  timeout: "10s"
session:
  cookie:
    name: "sid"
    secure: true
vault:
  backend: "file"
  file:
    dir: "/var/lib/dash/sessions"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "https://api.clinic.example/v1", cfg.Upstream.BaseURL)
	assert.Equal(t, "sid", cfg.Session.Cookie.Name)
	assert.True(t, cfg.Session.Cookie.Secure)
	assert.Equal(t, "file", cfg.Vault.Backend)
	assert.Equal(t, "/var/lib/dash/sessions", cfg.Vault.File.Dir)
	// untouched sections keep their defaults
	assert.Equal(t, "memory", cfg.Cache.Kind)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":7070")
	t.Setenv("UPSTREAM_BASE_URL", "http://inference:8000/api/v1")
	t.Setenv("VAULT_BACKEND", "Redis")
	t.Setenv("VAULT_REDIS_ADDR", "redis:6379")
	t.Setenv("VAULT_REDIS_DB", "2")
	t.Setenv("SESSION_COOKIE_SECURE", "true")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "http://inference:8000/api/v1", cfg.Upstream.BaseURL)
	assert.Equal(t, "redis", cfg.Vault.Backend)
	assert.Equal(t, "redis:6379", cfg.Vault.Redis.Addr)
	assert.Equal(t, 2, cfg.Vault.Redis.DB)
	assert.True(t, cfg.Session.Cookie.Secure)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_ProdRequiresPassphrase(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("VAULT_BACKEND", "file")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vault.passphrase")

	t.Setenv("VAULT_PASSPHRASE", "correct horse battery staple")
	_, err = Load("")
	assert.NoError(t, err)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("UPSTREAM_TIMEOUT", "soon")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestSameSiteMode(t *testing.T) {
	assert.Equal(t, http.SameSiteStrictMode, SameSiteMode("Strict"))
	assert.Equal(t, http.SameSiteNoneMode, SameSiteMode("none"))
	assert.Equal(t, http.SameSiteLaxMode, SameSiteMode("Lax"))
	assert.Equal(t, http.SameSiteLaxMode, SameSiteMode(""))
	assert.Equal(t, http.SameSiteLaxMode, SameSiteMode("bogus"))
}
