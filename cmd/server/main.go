package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/dsimport/internal/client"
	"github.com/JonMunkholm/dsimport/internal/config"
	"github.com/JonMunkholm/dsimport/internal/core"
	"github.com/JonMunkholm/dsimport/internal/datasets"
	"github.com/JonMunkholm/dsimport/internal/history"
	"github.com/JonMunkholm/dsimport/internal/logging"
	"github.com/JonMunkholm/dsimport/internal/settings"
	"github.com/JonMunkholm/dsimport/internal/web"
	"github.com/JonMunkholm/dsimport/internal/wizard"
)

// sweepInterval is how often idle wizard sessions are dropped.
const sweepInterval = time.Minute

func main() {
	// Overload lets a local .env win over inherited variables.
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	if err := run(cfg); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := client.New(client.Options{
		BaseURL:   cfg.Backend.URL,
		APIKey:    cfg.Backend.APIKey,
		ProjectID: cfg.Backend.ProjectID,
		Timeout:   cfg.Backend.Timeout,
	})
	if err != nil {
		return err
	}

	runs, closeHistory, err := openHistory(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeHistory()

	prefStore, closePrefs, err := openPreferences(cfg.Settings)
	if err != nil {
		return err
	}
	defer closePrefs()

	prefs, err := settings.New(ctx, prefStore)
	if err != nil {
		return err
	}

	importer := core.NewImporter(backend, core.WithRetryPolicy(core.RetryPolicy{
		MaxRetries:   cfg.Import.MaxRetries,
		InitialDelay: cfg.Import.InitialBackoff,
	}))
	svc := datasets.NewService(datasets.Config{
		Backend:   backend,
		ProjectID: cfg.Backend.ProjectID,
		History:   runs,
		Limiter:   core.NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime),
		Importer:  importer,
		Defaults: datasets.ImportDefaults{
			MaxPayloadSize:     cfg.Import.MaxPayloadSize,
			DelayBetweenChunks: cfg.Import.DelayBetweenChunks,
		},
	})
	sessions := wizard.NewManager(cfg.Import.PreviewRows, cfg.Import.MaxPayloadSize, cfg.Import.SessionTTL)

	// Imports run on their own context so a shutdown signal lets the
	// current chunk finish; they are cancelled only if draining times out.
	importCtx, cancelImports := context.WithCancel(context.Background())
	defer cancelImports()

	server := web.NewServer(cfg, web.Deps{
		Sessions:    sessions,
		Datasets:    svc,
		Settings:    prefs,
		Presets:     settings.NewPresets(prefStore),
		BaseContext: importCtx,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		return sessions.Run(gctx, sweepInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := svc.Limiter().Status(); status.Active > 0 {
			slog.Info("waiting for imports to finish", "active", status.Active)
			if err := svc.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("imports did not finish in time, cancelling", "error", err)
				cancelImports()
			}
		}
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("server stopped")
	return nil
}

// openHistory uses Postgres when DATABASE_URL is set and memory otherwise.
func openHistory(ctx context.Context, cfg config.DatabaseConfig) (history.Store, func(), error) {
	if cfg.URL == "" {
		slog.Info("no database configured, keeping import history in memory")
		return history.NewMemoryStore(), func() {}, nil
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, nil, err
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	store := history.NewPostgresStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	slog.Info("connected to database", "database", poolConfig.ConnConfig.Database)
	return store, pool.Close, nil
}

// preferenceStore persists both preferences and mapping presets.
type preferenceStore interface {
	settings.Store
	settings.PresetStore
}

// openPreferences uses a bbolt file when SETTINGS_PATH is set.
func openPreferences(cfg config.SettingsConfig) (preferenceStore, func(), error) {
	if cfg.Path == "" {
		return &settings.MemoryStore{}, func() {}, nil
	}
	store, err := settings.OpenBoltStore(cfg.Path)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := store.Close(); err != nil {
			slog.Warn("closing preferences store", "error", err)
		}
	}, nil
}
