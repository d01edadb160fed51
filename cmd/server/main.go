// Command server runs the deep research HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Amn-7/open-deep-research/internal/config"
	"github.com/Amn-7/open-deep-research/internal/database"
	"github.com/Amn-7/open-deep-research/internal/events"
	"github.com/Amn-7/open-deep-research/internal/observability"
	"github.com/Amn-7/open-deep-research/internal/repository"
	httpserver "github.com/Amn-7/open-deep-research/internal/server/http"
	"github.com/Amn-7/open-deep-research/internal/storage"
	"github.com/Amn-7/open-deep-research/internal/temporal"
	"github.com/Amn-7/open-deep-research/internal/temporal/workflows"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	}).With().Str("component", "server").Logger()
	logger.Info().Msg("open-deep-research server starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if cfg.Database.MigrationAutoRun {
		if err := applyMigrations(db, cfg, logger); err != nil {
			return err
		}
	}

	sessionRepo := repository.NewPgSessionRepository(db)
	documentRepo := repository.NewPgDocumentRepository(db)
	resultRepo := repository.NewPgResultRepository(db)

	store, err := storage.NewFileStore(cfg.Storage.Root, cfg.Storage.MaxUploadBytes)
	if err != nil {
		return fmt.Errorf("create file store: %w", err)
	}

	var publisher events.Publisher
	if cfg.Kafka.Enabled {
		publisher = events.NewKafkaPublisher(events.Config{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchTimeout: cfg.Kafka.BatchTimeout,
		}, logger)
		defer func() {
			if closeErr := publisher.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close event publisher")
			}
		}()
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka publisher enabled")
	}

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics("deepresearch")
	}

	temporalClient, err := temporal.NewClient(temporal.ClientConfig{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	}, observability.NewTemporalLogger(logger))
	if err != nil {
		return fmt.Errorf("connect to temporal: %w", err)
	}
	logger.Info().
		Str("host_port", cfg.Temporal.HostPort).
		Str("namespace", cfg.Temporal.Namespace).
		Msg("temporal client connected")

	workflowClient := temporal.NewResearchWorkflowClient(temporalClient, cfg.Temporal.TaskQueue)
	defer workflowClient.Close()

	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxUploadBytes:  cfg.Storage.MaxUploadBytes,
		WaitWindow:      cfg.Research.WaitWindow,
		RequeueDelay:    cfg.Research.RequeueDelay,
	}

	httpSrv := httpserver.NewServer(
		httpCfg,
		workflowClient,
		workflows.ResearchWorkflow,
		workflows.DocumentWorkflow,
		sessionRepo,
		documentRepo,
		resultRepo,
		store,
		db,
		publisher,
		metrics,
		logger,
	)

	metricsServer := newMetricsServer(cfg)

	errCh := make(chan error, 2)

	go func() {
		logger.Info().Str("address", httpCfg.Address).Msg("HTTP API listening")
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			logger.Info().Str("address", metricsServer.Addr).Msg("metrics listening")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("open-deep-research shutdown complete")
	return nil
}

// applyMigrations brings the schema current before the server accepts
// traffic. Only runs when database.migration_auto_run is set.
func applyMigrations(db *database.DB, cfg *config.Config, logger zerolog.Logger) error {
	migrator, err := database.NewMigrator(db, cfg.Database.MigrationPath, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	if err := migrator.Up(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// newMetricsServer builds the Prometheus listener, or returns nil when
// metrics are disabled.
func newMetricsServer(cfg *config.Config) *http.Server {
	if !cfg.Metrics.Enabled {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, promhttp.Handler())
	return &http.Server{
		Addr:         cfg.Server.MetricsAddress(),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
