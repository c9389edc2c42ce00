// SPDX-License-Identifier: MIT

// Command portald runs the streaming portal daemon: the HTTP API, the auth
// session manager, the video catalog and the per-viewer player controllers.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/lumeotv/portald/internal/analytics"
	"github.com/lumeotv/portald/internal/api"
	"github.com/lumeotv/portald/internal/backend"
	"github.com/lumeotv/portald/internal/catalog"
	"github.com/lumeotv/portald/internal/config"
	"github.com/lumeotv/portald/internal/health"
	"github.com/lumeotv/portald/internal/log"
	"github.com/lumeotv/portald/internal/player"
	"github.com/lumeotv/portald/internal/playerstore"
	"github.com/lumeotv/portald/internal/session"
	"github.com/lumeotv/portald/internal/telemetry"
	"github.com/lumeotv/portald/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		os.Exit(0)
	}

	// Safe logger defaults until the config is loaded.
	log.Configure(log.Config{
		Level:   "info",
		Service: "portald",
		Version: version.Version,
	})
	logger := log.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Auto-load ${PORTALD_DATA}/config.yaml when no explicit path is given.
	effectiveConfigPath := strings.TrimSpace(*configPath)
	if effectiveConfigPath == "" {
		dataDir := strings.TrimSpace(config.ParseString("PORTALD_DATA", "/tmp/portald"))
		autoPath := filepath.Join(dataDir, "config.yaml")
		if _, err := os.Stat(autoPath); err == nil {
			effectiveConfigPath = autoPath
		}
	}

	loader := config.NewLoader(effectiveConfigPath, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(log.FieldEvent, "config.load_failed").
			Str("config_path", effectiveConfigPath).
			Msg("failed to load configuration")
	}

	log.Configure(log.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})

	if effectiveConfigPath != "" {
		logger.Info().
			Str(log.FieldEvent, "config.loaded").
			Str("source", "file").
			Str("path", effectiveConfigPath).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str(log.FieldEvent, "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Fatal().
			Err(err).
			Str(log.FieldEvent, "startup.check_failed").
			Msg("startup checks failed, verify configuration and permissions")
	}

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("daemon exited with error")
	}
	logger.Info().Msg("shutdown complete")
}

func run(ctx context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("daemon")

	tracing, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    cfg.TracingService,
		ServiceVersion: cfg.Version,
		Exporter:       cfg.TracingExporter,
		Endpoint:       cfg.TracingEndpoint,
		SampleRate:     cfg.TracingSampleRate,
	})
	if err != nil {
		return fmt.Errorf("set up tracing: %w", err)
	}
	defer func() {
		if err := tracing.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown incomplete")
		}
	}()
	if cfg.TracingService != "" {
		logger.Info().
			Str("service", cfg.TracingService).
			Str("exporter", cfg.TracingExporter).
			Str("endpoint", cfg.TracingEndpoint).
			Msg("tracing enabled")
	}

	client := backend.New(cfg.Backend)

	store, err := catalog.NewStore(filepath.Join(cfg.DataDir, "catalog.db"))
	if err != nil {
		return fmt.Errorf("open catalog store: %w", err)
	}
	defer store.Close()

	cache, err := buildCache(cfg.Catalog)
	if err != nil {
		return fmt.Errorf("build catalog cache: %w", err)
	}
	svc := catalog.NewService(store, cache, cfg.Catalog.CacheTTL)

	if cfg.Catalog.SeedPath != "" {
		n, err := svc.ImportSeed(ctx, cfg.Catalog.SeedPath)
		if err != nil {
			logger.Warn().Err(err).Str("path", cfg.Catalog.SeedPath).Msg("seed import failed, starting with current catalog")
		} else {
			logger.Info().Int("videos", n).Str("path", cfg.Catalog.SeedPath).Msg("catalog seed imported")
		}
	}

	snapshots, err := playerstore.Open(cfg.Player.SnapshotDir)
	if err != nil {
		return fmt.Errorf("open player snapshot store: %w", err)
	}
	defer snapshots.Close()

	hub := api.NewHub()
	sessions := session.NewManager(client, hub)
	sessions.Bootstrap(ctx)

	analyticsSvc := analytics.NewService(client, sessions)

	registry := player.NewRegistry(player.RegistryOptions{
		Catalog:   svc,
		Users:     sessions,
		Sink:      analyticsSvc,
		Snapshots: snapshots,
		Threshold: cfg.Player.VisibilityThreshold,
	})
	defer registry.Close()

	healthMgr := health.NewManager(cfg.Version)
	healthMgr.RegisterChecker(health.NewBackendChecker(client))
	healthMgr.RegisterChecker(health.NewCatalogChecker(svc))
	healthMgr.RegisterChecker(health.NewSeedFileChecker(cfg.Catalog.SeedPath))

	server := api.NewServer(cfg, api.Deps{
		Sessions:  sessions,
		Players:   registry,
		Catalog:   svc,
		Analytics: analyticsSvc,
		Health:    healthMgr,
		Hub:       hub,
	})

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("API server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	var metricsSrv *http.Server
	if cfg.MetricsEnabled && cfg.MetricsAddr != cfg.ListenAddr {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics server listening")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		sessions.Run(ctx)
		return nil
	})

	if cfg.Catalog.WatchSeed && cfg.Catalog.SeedPath != "" {
		watcher, err := catalog.NewSeedWatcher(svc, cfg.Catalog.SeedPath)
		if err != nil {
			logger.Warn().Err(err).Msg("seed watcher unavailable, continuing without reload")
		} else {
			g.Go(func() error {
				watcher.Run(ctx)
				return nil
			})
		}
	}

	// Shutdown driver: wait for signal, then stop the listeners.
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("api server shutdown incomplete")
		}
		if metricsSrv != nil {
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
				logger.Warn().Err(err).Msg("metrics server shutdown incomplete")
			}
		}
		return ctx.Err()
	})

	return g.Wait()
}

func buildCache(cfg config.CatalogConfig) (catalog.Cache, error) {
	switch cfg.CacheBackend {
	case "redis":
		rc, err := catalog.NewRedisCache(catalog.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		return rc, nil
	default:
		return catalog.NewMemoryCache(time.Minute), nil
	}
}
