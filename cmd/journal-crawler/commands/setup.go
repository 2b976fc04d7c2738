package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/helixir/journal-crawler/internal/config"
	"github.com/helixir/journal-crawler/internal/database"
	"github.com/helixir/journal-crawler/internal/observability"
	"github.com/helixir/journal-crawler/internal/repository"
	httpserver "github.com/helixir/journal-crawler/internal/server/http"
)

// metricsNamespace prefixes every exported metric.
const metricsNamespace = "journalcrawler"

// loadConfig reads the configuration and, when credsPath is set, merges the
// credentials file over the database settings.
func loadConfig(credsPath string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if credsPath == "" {
		return cfg, nil
	}

	creds, err := config.LoadCredentials(credsPath)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	if err := cfg.ApplyCredentials(creds); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, component string) zerolog.Logger {
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	return logger.With().Str("component", component).Logger()
}

// openDatabase connects to PostgreSQL and applies pending migrations when
// migration_auto_run is set.
func openDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*database.DB, error) {
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info().Msg("database connection established")

	if !cfg.Database.MigrationAutoRun {
		return db, nil
	}

	migrator, err := database.NewMigrator(db, cfg.Database.MigrationPath, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()
	if err := migrator.Up(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

// newRegistry returns a registry carrying the Go runtime and process collectors.
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// newStatusServer wires the status server to the database-backed repositories.
func newStatusServer(cfg *config.Config, db *database.DB, reg *prometheus.Registry, logger zerolog.Logger) *httpserver.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return httpserver.NewServer(httpserver.Config{
		Address:      cfg.Server.Address(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
		MetricsPath:  metricsPath,
	}, httpserver.Dependencies{
		Articles: repository.NewPgArticleRepository(db),
		Authors:  repository.NewPgAuthorRepository(db),
		Words:    repository.NewPgWordCountRepository(db),
		Health:   db,
		Gatherer: reg,
	}, logger)
}

// startStatusServer serves in the background. The channel receives the error if
// the server stops on its own; stop shuts it down within shutdownTimeout.
func startStatusServer(srv *httpserver.Server, shutdownTimeout time.Duration, logger zerolog.Logger) (errs <-chan error, stop func()) {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("HTTP server error")
			errCh <- err
		}
	}()

	return errCh, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("HTTP server shutdown error")
		}
	}
}
