package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/wirus-app/wirus-auth/internal/auth"
	"github.com/wirus-app/wirus-auth/internal/cache"
	memcache "github.com/wirus-app/wirus-auth/internal/cache/memory"
	rediscache "github.com/wirus-app/wirus-auth/internal/cache/redis"
	"github.com/wirus-app/wirus-auth/internal/config"
	httpserver "github.com/wirus-app/wirus-auth/internal/http"
	"github.com/wirus-app/wirus-auth/internal/http/router"
	"github.com/wirus-app/wirus-auth/internal/identity"
	"github.com/wirus-app/wirus-auth/internal/metrics"
	"github.com/wirus-app/wirus-auth/internal/observability/logger"
	"github.com/wirus-app/wirus-auth/internal/scope"
	"github.com/wirus-app/wirus-auth/internal/store"
	memstore "github.com/wirus-app/wirus-auth/internal/store/memory"
	pgstore "github.com/wirus-app/wirus-auth/internal/store/pg"
	"github.com/wirus-app/wirus-auth/internal/token"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "wirus-auth:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	var configPath string
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "wirus-auth",
	})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	keys, err := token.LoadKeyPair(cfg.Keys.Private, cfg.Keys.Public)
	if err != nil {
		return fmt.Errorf("loading key pair: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() { _ = st.Close() }()

	var keyCache cache.Cache
	switch cfg.Cache.Kind {
	case "redis":
		rc := rediscache.New(cfg.Cache.Redis.Addr, cfg.Cache.Redis.DB, cfg.Cache.Redis.Prefix)
		defer func() { _ = rc.Close() }()
		keyCache = rc
	default:
		keyCache = memcache.New(cfg.MemoryCacheTTL())
	}

	if err := metrics.Register(nil); err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	registry := scope.Default()
	issuer := token.NewIssuer(token.AppIssuer, keys)
	tokens := token.NewVerifier(token.AppIssuer, keys.Public)
	resolver := token.NewKeyResolver(keyCache, cfg.KeyTTL())
	idClient := identity.NewClient(cfg.Identity.Endpoint)

	verifier := &auth.Verifier{
		Store:    st,
		Identity: idClient,
		Tokens:   tokens,
		Registry: registry,
	}
	svc := auth.NewService(st, verifier, issuer, tokens, resolver, registry)

	handler := router.New(router.Deps{
		Auth:        svc,
		Store:       st,
		Registry:    registry,
		PublicPEM:   keys.PublicPEM,
		CORSOrigins: cfg.Server.CORSAllowedOrigins,
	})

	log.Info("starting",
		logger.String("env", cfg.App.Env),
		logger.String("addr", cfg.Server.Addr),
		logger.String("storage", cfg.Storage.Driver),
		logger.String("cache", cfg.Cache.Kind),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Serve(gctx, cfg.Server.Addr, handler)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		st, err := pgstore.New(ctx, cfg.Storage.DSN, pgstore.Config{
			MaxConns:        cfg.Storage.Postgres.MaxConns,
			ConnMaxLifetime: cfg.PGConnMaxLifetime(),
		})
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, err
		}
		return st, nil
	default:
		return memstore.New(), nil
	}
}
