// Command migrate manages the research service's database schema from the
// command line.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/Amn-7/open-deep-research/internal/config"
	"github.com/Amn-7/open-deep-research/internal/database"
	"github.com/Amn-7/open-deep-research/internal/observability"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	up := flag.Bool("up", false, "Apply all pending migrations")
	down := flag.Bool("down", false, "Roll back all migrations")
	steps := flag.Int("steps", 0, "Apply N migrations (negative rolls back)")
	version := flag.Bool("version", false, "Print the current schema version")
	force := flag.Int("force", -1, "Overwrite the recorded schema version")
	path := flag.String("path", "", "Migrations directory (defaults to config)")
	flag.Parse()

	actions := 0
	for _, set := range []bool{*up, *down, *steps != 0, *version, *force >= 0} {
		if set {
			actions++
		}
	}
	if actions != 1 {
		flag.Usage()
		return fmt.Errorf("specify exactly one of -up, -down, -steps N, -version, -force V")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}).With().Str("component", "migrate").Logger()

	migrationDir := cfg.Database.MigrationPath
	if *path != "" {
		migrationDir = *path
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db, migrationDir, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("close migrator")
		}
	}()

	switch {
	case *up:
		err = migrator.Up()
	case *down:
		err = migrator.Down()
	case *steps != 0:
		err = migrator.Steps(*steps)
	case *force >= 0:
		err = migrator.Force(*force)
	}
	if err != nil {
		return err
	}

	reportVersion(migrator, logger)
	return nil
}

// reportVersion logs the schema version the database is now at. A fresh
// database has no version yet; that is reported, not treated as a failure.
func reportVersion(migrator *database.Migrator, logger zerolog.Logger) {
	v, dirty, err := migrator.Version()
	if err != nil {
		logger.Warn().Err(err).Msg("schema version unavailable")
		return
	}
	logger.Info().Uint("version", v).Bool("dirty", dirty).Msg("schema version")
}
