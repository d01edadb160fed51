// Package main provides the entry point for the deep research Temporal worker.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Amn-7/open-deep-research/internal/config"
	"github.com/Amn-7/open-deep-research/internal/database"
	"github.com/Amn-7/open-deep-research/internal/events"
	"github.com/Amn-7/open-deep-research/internal/generation"
	"github.com/Amn-7/open-deep-research/internal/observability"
	"github.com/Amn-7/open-deep-research/internal/repository"
	"github.com/Amn-7/open-deep-research/internal/storage"
	"github.com/Amn-7/open-deep-research/internal/temporal"
	"github.com/Amn-7/open-deep-research/internal/temporal/activities"
	"github.com/Amn-7/open-deep-research/internal/temporal/workflows"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "worker").Logger()
	logger.Info().Msg("open-deep-research worker starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL.
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	// Create repositories.
	sessionRepo := repository.NewPgSessionRepository(db)
	documentRepo := repository.NewPgDocumentRepository(db)
	resultRepo := repository.NewPgResultRepository(db)

	// Create the uploaded-document store.
	store, err := storage.NewFileStore(cfg.Storage.Root, cfg.Storage.MaxUploadBytes)
	if err != nil {
		return fmt.Errorf("create file store: %w", err)
	}

	// Create the generation capability client.
	generator, err := generation.NewGenerator(generation.FactoryConfig{
		Provider:       cfg.Generation.Provider,
		Temperature:    cfg.Generation.Temperature,
		Timeout:        cfg.Generation.Timeout,
		MaxRetries:     cfg.Generation.MaxRetries,
		RateLimitRPS:   cfg.Generation.RateLimitRPS,
		RateLimitBurst: cfg.Generation.RateLimitBurst,
		OpenAI: generation.OpenAIConfig{
			APIKey:  cfg.Generation.OpenAI.APIKey,
			Model:   cfg.Generation.OpenAI.Model,
			BaseURL: cfg.Generation.OpenAI.BaseURL,
		},
		Anthropic: generation.AnthropicConfig{
			APIKey:  cfg.Generation.Anthropic.APIKey,
			Model:   cfg.Generation.Anthropic.Model,
			BaseURL: cfg.Generation.Anthropic.BaseURL,
		},
	})
	if err != nil {
		return fmt.Errorf("create generator: %w", err)
	}

	// Create the lifecycle event publisher if configured.
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

	// Set up metrics if configured.
	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics("deepresearch")
	}

	// Create Temporal client.
	temporalClient, err := temporal.NewClient(temporal.ClientConfig{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	}, observability.NewTemporalLogger(logger))
	if err != nil {
		return fmt.Errorf("connect to temporal: %w", err)
	}
	defer temporalClient.Close()
	logger.Info().
		Str("host_port", cfg.Temporal.HostPort).
		Str("namespace", cfg.Temporal.Namespace).
		Msg("temporal client connected")

	// Create WorkerManager.
	workerConfig := temporal.DefaultWorkerConfig(cfg.Temporal.TaskQueue)
	manager, err := temporal.NewWorkerManager(temporalClient, workerConfig)
	if err != nil {
		return fmt.Errorf("create worker manager: %w", err)
	}

	// Register workflows.
	manager.RegisterWorkflow(workflows.ResearchWorkflow)
	manager.RegisterWorkflow(workflows.DocumentWorkflow)

	// Create and register all activity structs.
	sessionActivities := activities.NewSessionActivities(db, sessionRepo, documentRepo, resultRepo, publisher, metrics)
	generationActivities := activities.NewGenerationActivities(generator, cfg.Research, metrics)
	documentActivities := activities.NewDocumentActivities(documentRepo, store, generator, cfg.Research, publisher, metrics)

	manager.RegisterActivity(sessionActivities)
	manager.RegisterActivity(generationActivities)
	manager.RegisterActivity(documentActivities)

	logger.Info().
		Str("task_queue", cfg.Temporal.TaskQueue).
		Msg("starting temporal worker")

	// Start the worker and block until context is cancelled.
	if err := manager.Start(ctx); err != nil {
		if ctx.Err() != nil {
			logger.Info().Msg("worker stopped via signal")
			return nil
		}
		return fmt.Errorf("worker error: %w", err)
	}

	return nil
}
