package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cywf/tle-fetcher/internal/api"
	"github.com/cywf/tle-fetcher/internal/auth"
	"github.com/cywf/tle-fetcher/internal/db"
	"github.com/cywf/tle-fetcher/internal/metrics"
	"github.com/cywf/tle-fetcher/internal/propagation"
	"github.com/cywf/tle-fetcher/internal/tle"
)

func main() {
	// Optional .env file; real environment variables win.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	addr := os.Getenv("TLEFETCHER_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	tleCfg := loadTLEConfig(logger)
	store := tle.NewStore()
	tleCache := tle.NewCache(tleCfg.CacheDir, tleCfg.MaxFiles)

	var catalog *db.Client
	if dsn := os.Getenv("TLEFETCHER_POSTGRES_DSN"); dsn != "" {
		catalog, err = db.New(dsn)
		if err != nil {
			logger.Error("opening postgres catalog", "error", err)
			os.Exit(1)
		}
		defer catalog.Close()
		if err := catalog.EnsureSchema(context.Background()); err != nil {
			logger.Error("ensuring catalog schema", "error", err)
			os.Exit(1)
		}
		logger.Info("postgres catalog enabled")
	}

	// Attempt to load cached TLE data on startup.
	if data, ts, err := tleCache.LoadLatest(); err != nil {
		logger.Info("no TLE cache found, starting without TLE data", "error", err)
	} else {
		entries, err := tle.Parse(bytes.NewReader(data), logger)
		if err != nil {
			logger.Warn("failed to parse cached TLE data", "error", err)
		} else if len(entries) > 0 {
			store.Set(tle.NewDataset("cache", ts, entries))
			metrics.SetDatasetCount(len(entries))
			logger.Info("loaded TLE data from cache", "count", len(entries), "cached_at", ts.Format(time.RFC3339))
		}
	}

	workers := loadWorkers(logger)
	pool := propagation.NewWorkerPool(workers, logger)

	apiCfg := api.Config{TrustProxy: loadBool(logger, "TLEFETCHER_TRUST_PROXY", false)}
	srv := api.NewServer(addr, logger, authCfg, apiCfg, store, pool)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Fetch a fresh catalog when enabled and the cache is stale or missing.
	// AgeSeconds is -1 when nothing loaded from cache.
	if age := store.AgeSeconds(); tleCfg.EnableFetch && (age < 0 || age > tleCfg.MaxAge.Seconds()) {
		go refreshDataset(ctx, logger, store, tleCache, catalog, tleCfg)
	}

	// Keep the dataset age gauge current.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if age := store.AgeSeconds(); age >= 0 {
					metrics.SetDatasetAge(age)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info("starting server", "addr", addr, "auth_enabled", authCfg.Enabled, "tle_fetch_enabled", tleCfg.EnableFetch)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// refreshDataset fetches, parses, caches, and optionally persists a catalog.
func refreshDataset(ctx context.Context, logger *slog.Logger, store *tle.Store, cache *tle.Cache, catalog *db.Client, cfg tleConfig) {
	store.Lock()
	defer store.Unlock()

	fetcher := tle.NewFetcher(cfg.SourceURL)
	data, err := fetcher.Fetch(ctx)
	if err != nil {
		metrics.RecordFetch("error")
		logger.Warn("TLE fetch failed", "source", fetcher.SourceURL(), "error", err)
		return
	}
	metrics.RecordFetch("ok")

	entries, err := tle.Parse(bytes.NewReader(data), logger)
	if err != nil || len(entries) == 0 {
		logger.Warn("fetched TLE data unusable", "error", err, "count", len(entries))
		return
	}

	now := time.Now().UTC()
	ds := tle.NewDataset(fetcher.SourceURL(), now, entries)
	store.Set(ds)
	metrics.SetDatasetCount(len(entries))

	if err := cache.Write(data, now); err != nil {
		logger.Warn("writing TLE cache failed", "error", err)
	}

	if catalog != nil {
		stored, err := catalog.RecordDataset(ctx, ds)
		if err != nil {
			logger.Warn("recording dataset to postgres", "stored", stored, "error", err)
		} else {
			logger.Info("dataset recorded to postgres", "stored", stored)
		}
	}

	logger.Info("TLE dataset refreshed", "count", len(entries), "source", fetcher.SourceURL())
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	if v := os.Getenv("TLEFETCHER_AUTH_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, errors.New("TLEFETCHER_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("TLEFETCHER_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("TLEFETCHER_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

type tleConfig struct {
	EnableFetch bool
	SourceURL   string
	CacheDir    string
	MaxFiles    int
	MaxAge      time.Duration
}

func loadTLEConfig(logger *slog.Logger) tleConfig {
	cfg := tleConfig{
		EnableFetch: true,
		CacheDir:    "/tmp/tlefetcher/tle",
		MaxFiles:    5,
		MaxAge:      24 * time.Hour,
	}

	if v := os.Getenv("TLEFETCHER_ENABLE_FETCH"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid TLEFETCHER_ENABLE_FETCH value, defaulting to false", "value", v)
			cfg.EnableFetch = false
		} else {
			cfg.EnableFetch = enabled
		}
	}

	if v := os.Getenv("TLEFETCHER_SOURCE_URL"); v != "" {
		cfg.SourceURL = v
	}

	if v := os.Getenv("TLEFETCHER_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}

	if v := os.Getenv("TLEFETCHER_CACHE_MAX_FILES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid TLEFETCHER_CACHE_MAX_FILES value, using default", "value", v, "default", cfg.MaxFiles)
		} else {
			cfg.MaxFiles = n
		}
	}

	if v := os.Getenv("TLEFETCHER_TLE_MAX_AGE"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil || seconds < 1 {
			logger.Warn("invalid TLEFETCHER_TLE_MAX_AGE value, defaulting to 86400", "value", v)
		} else {
			cfg.MaxAge = time.Duration(seconds) * time.Second
		}
	}

	logger.Info("TLE config",
		"source_url", cfg.SourceURL,
		"cache_dir", cfg.CacheDir,
		"max_age_seconds", cfg.MaxAge.Seconds(),
	)

	return cfg
}

func loadWorkers(logger *slog.Logger) int {
	workers := runtime.NumCPU()
	if v := os.Getenv("TLEFETCHER_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid TLEFETCHER_WORKERS value, using default", "value", v, "default", workers)
		} else {
			workers = n
		}
	}
	return workers
}

func loadBool(logger *slog.Logger, key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logger.Warn("invalid boolean value, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}
