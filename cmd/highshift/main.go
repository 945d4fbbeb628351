package main

import (
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/highshift/highshift/internal/auth"
	"github.com/highshift/highshift/internal/cache"
	"github.com/highshift/highshift/internal/config"
	"github.com/highshift/highshift/internal/http/handlers"
	"github.com/highshift/highshift/internal/http/router"
	"github.com/highshift/highshift/internal/http/services/connect"
	"github.com/highshift/highshift/internal/http/services/keys"
	"github.com/highshift/highshift/internal/http/services/publish"
	"github.com/highshift/highshift/internal/http/services/schedule"
	"github.com/highshift/highshift/internal/oauthstate"
	"github.com/highshift/highshift/internal/observability/logger"
	"github.com/highshift/highshift/internal/platform"
	"github.com/highshift/highshift/internal/platform/facebook"
	"github.com/highshift/highshift/internal/platform/instagram"
	"github.com/highshift/highshift/internal/platform/linkedin"
	"github.com/highshift/highshift/internal/platform/threads"
	"github.com/highshift/highshift/internal/platform/twitter"
	"github.com/highshift/highshift/internal/security/apikey"
	"github.com/highshift/highshift/internal/store"
	"github.com/highshift/highshift/internal/vault"
)

const version = "0.3.0"

func main() {
	var (
		flagConfigPath = flag.String("config", "", "path to config.yaml (fallback: $CONFIG_PATH)")
		flagEnvFile    = flag.String("env-file", ".env", "path to .env (loaded when present)")
	)
	flag.Parse()

	if *flagEnvFile != "" {
		_ = godotenv.Load(*flagEnvFile)
	}

	cfgPath := *flagConfigPath
	if cfgPath == "" {
		cfgPath = os.Getenv("CONFIG_PATH")
	}
	if cfgPath == "" && fileExists("configs/config.yaml") {
		cfgPath = "configs/config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.L().Fatal("config", logger.Err(err))
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       os.Getenv("LOG_LEVEL"),
		ServiceName: "highshift",
		Version:     version,
	})
	defer func() { _ = logger.Sync() }()
	log := logger.Named("main")

	// Token encryption key is loaded lazily inside secretbox; fail fast
	// here instead of on the first linked account.
	if kb64 := strings.TrimSpace(cfg.Security.TokenEncryptionKey); kb64 == "" {
		log.Fatal("TOKEN_ENCRYPTION_KEY not set; generate one with: hsctl keygen")
	} else if k, err := base64.StdEncoding.DecodeString(kb64); err != nil || len(k) != 32 {
		log.Fatal("TOKEN_ENCRYPTION_KEY must be base64 of 32 bytes")
	}

	ctx := context.Background()

	repo, err := store.New(ctx, store.Config{
		Driver:          cfg.Storage.Driver,
		DSN:             cfg.Storage.DSN,
		MaxConns:        int32(cfg.Storage.Postgres.MaxConns),
		MinConns:        int32(cfg.Storage.Postgres.MinConns),
		ConnMaxLifetime: cfg.ConnMaxLifetime(),
	})
	if err != nil {
		log.Fatal("store", logger.Err(err))
	}
	defer func() { _ = repo.Close() }()

	cacheClient, err := cache.New(cache.Config{
		Kind:     cfg.Cache.Kind,
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		Prefix:   cfg.Cache.Redis.Prefix,
	})
	if err != nil {
		log.Fatal("cache", logger.Err(err))
	}
	defer func() { _ = cacheClient.Close() }()

	registry := buildRegistry(cfg, log)

	indexer := apikey.NewIndexer([]byte(cfg.Security.APIKeyIndexSecret))
	resolver := auth.NewLookupResolver(repo, indexer)
	tokens := vault.New(vault.Deps{Repo: repo, Registry: registry})

	connectSvc := connect.NewService(connect.Deps{
		Registry:    registry,
		States:      oauthstate.New(cacheClient),
		Resolver:    resolver,
		Repo:        repo,
		Signer:      connect.NewStateSigner([]byte(cfg.Security.StateSigningSecret), oauthstate.TTL),
		Indexer:     indexer,
		RedirectURI: cfg.RedirectURI,
	})
	publishSvc := publish.NewService(publish.Deps{
		Repo:        repo,
		Registry:    registry,
		Vault:       tokens,
		Timeout:     cfg.PublishTimeout(),
		Concurrency: cfg.Publish.Concurrency,
	})
	scheduleSvc := schedule.NewService(schedule.Deps{Repo: repo})
	keysSvc := keys.NewService(keys.Deps{Repo: repo, Indexer: indexer})

	dispatcher := schedule.NewDispatcher(schedule.DispatcherDeps{
		Repo:      repo,
		Publisher: publishSvc,
		Interval:  cfg.SchedulerInterval(),
	})

	handler := router.New(router.Deps{
		Connect:    &handlers.Connect{Service: connectSvc},
		Publish:    &handlers.Publish{Service: publishSvc},
		Schedule:   &handlers.Schedule{Service: scheduleSvc},
		Accounts:   &handlers.Accounts{Repo: repo},
		Keys:       &handlers.Keys{Service: keysSvc},
		Cron:       &handlers.Cron{Dispatcher: dispatcher},
		Health:     &handlers.Health{Repo: repo, Cache: cacheClient},
		Resolver:   resolver,
		CronSecret: cfg.Security.CronSecret,
	})

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Scheduler.Mode == "poll" {
		go dispatcher.Run(runCtx)
	} else {
		log.Info("in-process scheduler disabled", logger.String("mode", cfg.Scheduler.Mode))
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	log.Info("service up",
		logger.String("addr", cfg.Server.Addr),
		logger.String("storage", cfg.Storage.Driver),
		logger.String("cache", cfg.Cache.Kind),
		zap.Strings("providers", registry.Names()),
	)

	select {
	case <-runCtx.Done():
		log.Info("shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			log.Error("shutdown", logger.Err(err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http", logger.Err(err))
		}
	}
}

// buildRegistry wires one adapter per enabled provider. Providers with
// missing credentials are skipped so a partial deployment still boots.
func buildRegistry(cfg *config.Config, log *zap.Logger) *platform.Registry {
	var adapters []platform.Adapter

	// Shared across adapters. Connect and refresh calls run outside the
	// publish deadline, so the client itself bounds them.
	httpClient := &http.Client{Timeout: 10 * time.Second}

	add := func(name string, p config.Provider, build func(p config.Provider) platform.Adapter) {
		if !p.Enabled {
			return
		}
		if p.ClientID == "" || p.ClientSecret == "" {
			log.Warn("provider enabled without credentials, skipping", logger.Platform(name))
			return
		}
		adapters = append(adapters, build(p))
	}

	add("twitter", cfg.Providers.Twitter, func(p config.Provider) platform.Adapter {
		return twitter.New(twitter.Config{ClientID: p.ClientID, ClientSecret: p.ClientSecret, Scopes: p.Scopes, HTTPClient: httpClient})
	})
	add("linkedin", cfg.Providers.LinkedIn, func(p config.Provider) platform.Adapter {
		return linkedin.New(linkedin.Config{ClientID: p.ClientID, ClientSecret: p.ClientSecret, Scopes: p.Scopes, HTTPClient: httpClient})
	})
	add("facebook", cfg.Providers.Facebook, func(p config.Provider) platform.Adapter {
		return facebook.New(facebook.Config{ClientID: p.ClientID, ClientSecret: p.ClientSecret, Scopes: p.Scopes, HTTPClient: httpClient})
	})
	add("instagram", cfg.Providers.Instagram, func(p config.Provider) platform.Adapter {
		return instagram.New(instagram.Config{ClientID: p.ClientID, ClientSecret: p.ClientSecret, Scopes: p.Scopes, HTTPClient: httpClient})
	})
	add("threads", cfg.Providers.Threads, func(p config.Provider) platform.Adapter {
		return threads.New(threads.Config{ClientID: p.ClientID, ClientSecret: p.ClientSecret, Scopes: p.Scopes, HTTPClient: httpClient})
	})

	return platform.NewRegistry(adapters...)
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
