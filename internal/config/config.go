// Package config loads the gateway configuration: YAML file first, then
// environment overrides on top. Every knob has a sane development default so
// an empty file boots a working gateway against localhost.
package config

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Upstream struct {
		BaseURL   string `yaml:"base_url"`
		Timeout   string `yaml:"timeout"`
		UserAgent string `yaml:"user_agent"`
	} `yaml:"upstream"`

	Session struct {
		Cookie struct {
			Name     string `yaml:"name"`
			Domain   string `yaml:"domain"`
			SameSite string `yaml:"samesite"`
			Secure   bool   `yaml:"secure"`
			TTL      string `yaml:"ttl"`
		} `yaml:"cookie"`
		// Idle managers are evicted from memory; their vault records survive.
		SweepInterval string `yaml:"sweep_interval"`
		MaxIdle       string `yaml:"max_idle"`
	} `yaml:"session"`

	Vault struct {
		// memory | file | redis | postgres
		Backend string `yaml:"backend"`
		// Passphrase seals token material at rest. Empty disables sealing
		// (memory backend only).
		Passphrase string `yaml:"passphrase"`
		File       struct {
			Dir string `yaml:"dir"`
		} `yaml:"file"`
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
			TTL    string `yaml:"ttl"`
		} `yaml:"redis"`
		Postgres struct {
			DSN      string `yaml:"dsn"`
			MaxConns int    `yaml:"max_conns"`
		} `yaml:"postgres"`
	} `yaml:"vault"`

	RateLimit struct {
		Login struct {
			// Max hits per client IP per window. Negative disables throttling.
			Max    int    `yaml:"max"`
			Window string `yaml:"window"`
			// redis_addr switches the limiter to a shared Redis window;
			// empty keeps counters in process memory.
			RedisAddr string `yaml:"redis_addr"`
			RedisDB   int    `yaml:"redis_db"`
		} `yaml:"login"`
	} `yaml:"ratelimit"`

	Cache struct {
		// memory | redis
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load reads path (optional: "" skips the file) and applies env overrides.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = "http://localhost:8000/api/v1"
	}
	if c.Upstream.Timeout == "" {
		c.Upstream.Timeout = "30s"
	}
	if c.Session.Cookie.Name == "" {
		c.Session.Cookie.Name = "dashsid"
	}
	if c.Session.Cookie.SameSite == "" {
		c.Session.Cookie.SameSite = "Lax"
	}
	if c.Session.Cookie.TTL == "" {
		c.Session.Cookie.TTL = "720h" // 30d, matches the refresh token window
	}
	if c.Session.SweepInterval == "" {
		c.Session.SweepInterval = "5m"
	}
	if c.Session.MaxIdle == "" {
		c.Session.MaxIdle = "1h"
	}
	if c.Vault.Backend == "" {
		c.Vault.Backend = "memory"
	}
	if c.Vault.File.Dir == "" {
		c.Vault.File.Dir = "./data/sessions"
	}
	if c.Vault.Redis.Prefix == "" {
		c.Vault.Redis.Prefix = "dashsess"
	}
	if c.Vault.Redis.TTL == "" {
		c.Vault.Redis.TTL = "720h"
	}
	if c.Vault.Postgres.MaxConns == 0 {
		c.Vault.Postgres.MaxConns = 4
	}
	if c.RateLimit.Login.Max == 0 {
		c.RateLimit.Login.Max = 10
	}
	if c.RateLimit.Login.Window == "" {
		c.RateLimit.Login.Window = "1m"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "2m"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	c.applyEnvOverrides()

	// Production never runs with unsealed tokens outside memory.
	if strings.EqualFold(c.App.Env, "prod") && c.Vault.Backend != "memory" && c.Vault.Passphrase == "" {
		return nil, fmt.Errorf("config: vault.passphrase is required in prod with backend %q", c.Vault.Backend)
	}

	// validate duration strings
	for _, d := range []string{
		c.Upstream.Timeout, c.Session.Cookie.TTL, c.Session.SweepInterval,
		c.Session.MaxIdle, c.Vault.Redis.TTL, c.Cache.Memory.DefaultTTL,
		c.RateLimit.Login.Window,
	} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			return nil, fmt.Errorf("config: invalid duration %q: %w", d, err)
		}
	}

	return &c, nil
}

// Duration parses a config duration string that Load already validated.
func Duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// ---- env helpers ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides layers environment variables over the YAML values.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvCSV("SERVER_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}

	// UPSTREAM
	if v, ok := getEnvStr("UPSTREAM_BASE_URL"); ok {
		c.Upstream.BaseURL = v
	}
	if v, ok := getEnvStr("UPSTREAM_TIMEOUT"); ok {
		c.Upstream.Timeout = v
	}

	// SESSION
	if v, ok := getEnvStr("SESSION_COOKIE_NAME"); ok {
		c.Session.Cookie.Name = v
	}
	if v, ok := getEnvStr("SESSION_COOKIE_DOMAIN"); ok {
		c.Session.Cookie.Domain = v
	}
	if v, ok := getEnvStr("SESSION_COOKIE_SAMESITE"); ok {
		c.Session.Cookie.SameSite = v
	}
	if v, ok := getEnvBool("SESSION_COOKIE_SECURE"); ok {
		c.Session.Cookie.Secure = v
	}
	if v, ok := getEnvStr("SESSION_COOKIE_TTL"); ok {
		c.Session.Cookie.TTL = v
	}
	if v, ok := getEnvStr("SESSION_SWEEP_INTERVAL"); ok {
		c.Session.SweepInterval = v
	}
	if v, ok := getEnvStr("SESSION_MAX_IDLE"); ok {
		c.Session.MaxIdle = v
	}

	// VAULT
	if v, ok := getEnvStr("VAULT_BACKEND"); ok {
		c.Vault.Backend = strings.ToLower(v)
	}
	if v, ok := getEnvStr("VAULT_PASSPHRASE"); ok {
		c.Vault.Passphrase = v
	}
	if v, ok := getEnvStr("VAULT_FILE_DIR"); ok {
		c.Vault.File.Dir = v
	}
	if v, ok := getEnvStr("VAULT_REDIS_ADDR"); ok {
		c.Vault.Redis.Addr = v
	}
	if v, ok := getEnvInt("VAULT_REDIS_DB"); ok {
		c.Vault.Redis.DB = v
	}
	if v, ok := getEnvStr("VAULT_REDIS_PREFIX"); ok {
		c.Vault.Redis.Prefix = v
	}
	if v, ok := getEnvStr("VAULT_REDIS_TTL"); ok {
		c.Vault.Redis.TTL = v
	}
	if v, ok := getEnvStr("VAULT_POSTGRES_DSN"); ok {
		c.Vault.Postgres.DSN = v
	}
	if v, ok := getEnvInt("VAULT_POSTGRES_MAX_CONNS"); ok {
		c.Vault.Postgres.MaxConns = v
	}

	// RATELIMIT
	if v, ok := getEnvInt("RATELIMIT_LOGIN_MAX"); ok {
		c.RateLimit.Login.Max = v
	}
	if v, ok := getEnvStr("RATELIMIT_LOGIN_WINDOW"); ok {
		c.RateLimit.Login.Window = v
	}
	if v, ok := getEnvStr("RATELIMIT_REDIS_ADDR"); ok {
		c.RateLimit.Login.RedisAddr = v
	}
	if v, ok := getEnvInt("RATELIMIT_REDIS_DB"); ok {
		c.RateLimit.Login.RedisDB = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = strings.ToLower(v)
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}
	if v, ok := getEnvStr("CACHE_MEMORY_DEFAULT_TTL"); ok {
		c.Cache.Memory.DefaultTTL = v
	}

	// LOG
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}
}

// SameSiteMode maps the configured samesite string onto its http constant.
func SameSiteMode(s string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
