// Command dashboard runs the glaucoma dashboard gateway: the HTTP service
// that owns browser sessions, resolves roles and proxies the clinical
// backend.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	rdb "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/oculab/glaucoma-dashboard/internal/cache"
	"github.com/oculab/glaucoma-dashboard/internal/config"
	"github.com/oculab/glaucoma-dashboard/internal/httpapi"
	mw "github.com/oculab/glaucoma-dashboard/internal/httpapi/middlewares"
	"github.com/oculab/glaucoma-dashboard/internal/metrics"
	"github.com/oculab/glaucoma-dashboard/internal/observability/logger"
	"github.com/oculab/glaucoma-dashboard/internal/rate"
	"github.com/oculab/glaucoma-dashboard/internal/session"
	"github.com/oculab/glaucoma-dashboard/internal/session/vault"
	"github.com/oculab/glaucoma-dashboard/internal/upstream"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	var cfgPath string

	root := &cobra.Command{
		Use:     "dashboard",
		Short:   "Glaucoma dashboard gateway",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cfgPath)
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", envOr("CONFIG_PATH", ""), "path to config.yaml (optional)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func serve(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "glaucoma-dashboard",
		Version:     version,
	})
	defer func() { _ = logger.Sync() }()

	if err := metrics.Register(nil); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := buildVault(ctx, cfg)
	if err != nil {
		return fmt.Errorf("session vault: %w", err)
	}

	client := upstream.New(upstream.Config{
		BaseURL:   cfg.Upstream.BaseURL,
		Timeout:   config.Duration(cfg.Upstream.Timeout),
		UserAgent: cfg.Upstream.UserAgent,
	})

	registry := session.NewRegistry(client, store)
	go registry.Sweep(ctx,
		config.Duration(cfg.Session.SweepInterval),
		config.Duration(cfg.Session.MaxIdle))

	handler := httpapi.NewRouter(httpapi.RouterDeps{
		Upstream:     client,
		Sessions:     registry,
		Cache:          buildCache(cfg),
		LoginLimiter:   buildLoginLimiter(cfg),
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
		Cookie: mw.CookieConfig{
			Name:     cfg.Session.Cookie.Name,
			Domain:   cfg.Session.Cookie.Domain,
			Secure:   cfg.Session.Cookie.Secure,
			SameSite: config.SameSiteMode(cfg.Session.Cookie.SameSite),
			TTL:      config.Duration(cfg.Session.Cookie.TTL),
		},
		Version: version,
	})

	logger.L().Info("gateway starting",
		logger.String("env", cfg.App.Env),
		logger.String("upstream", cfg.Upstream.BaseURL),
		logger.String("vault", cfg.Vault.Backend),
	)
	return httpapi.Serve(ctx, cfg.Server.Addr, handler)
}

func buildVault(ctx context.Context, cfg *config.Config) (vault.Store, error) {
	var store vault.Store
	var err error
	switch cfg.Vault.Backend {
	case "memory":
		store = vault.NewMemory()
	case "file":
		store, err = vault.NewFile(cfg.Vault.File.Dir)
	case "redis":
		store = vault.NewRedis(vault.RedisOptions{
			Addr:   cfg.Vault.Redis.Addr,
			DB:     cfg.Vault.Redis.DB,
			Prefix: cfg.Vault.Redis.Prefix,
			TTL:    config.Duration(cfg.Vault.Redis.TTL),
		})
	case "postgres":
		store, err = vault.NewPostgres(ctx, cfg.Vault.Postgres.DSN, int32(cfg.Vault.Postgres.MaxConns))
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Vault.Backend)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Vault.Passphrase != "" {
		codec, err := vault.NewCodec(cfg.Vault.Passphrase)
		if err != nil {
			return nil, err
		}
		store = vault.Encrypted(store, codec)
	}
	return store, nil
}

func buildLoginLimiter(cfg *config.Config) rate.Limiter {
	rl := cfg.RateLimit.Login
	// Zero can only arrive via env override (config.Load defaults 0 to 10);
	// a max-0 limiter would reject every login, so treat it as disabled too.
	if rl.Max <= 0 {
		return nil
	}
	window := config.Duration(rl.Window)
	if rl.RedisAddr != "" {
		client := rdb.NewClient(&rdb.Options{Addr: rl.RedisAddr, DB: rl.RedisDB})
		return rate.NewRedisLimiter(client, "rl:login:", rl.Max, window)
	}
	return rate.NewMemoryLimiter(rl.Max, window)
}

func buildCache(cfg *config.Config) cache.Cache {
	if cfg.Cache.Kind == "redis" {
		return cache.NewRedis(cfg.Cache.Redis.Addr, cfg.Cache.Redis.DB, cfg.Cache.Redis.Prefix)
	}
	return cache.NewMemory(config.Duration(cfg.Cache.Memory.DefaultTTL))
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
