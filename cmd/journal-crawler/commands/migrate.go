package commands

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/helixir/journal-crawler/internal/database"
)

type migrateFlags struct {
	up      bool
	down    bool
	steps   int
	version bool
	force   int
	path    string
}

func newMigrateCmd() *cobra.Command {
	var flags migrateFlags
	cmd := &cobra.Command{
		Use:   "migrate --up | --down | --steps N | --version | --force V",
		Short: "Applies or inspects the database schema migrations.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flags.validate(); err != nil {
				return err
			}
			return runMigrate(cmd, &flags)
		},
	}
	cmd.Flags().BoolVar(&flags.up, "up", false, "Run all pending migrations")
	cmd.Flags().BoolVar(&flags.down, "down", false, "Roll back all migrations")
	cmd.Flags().IntVar(&flags.steps, "steps", 0, "Run N migration steps (positive=up, negative=down)")
	cmd.Flags().BoolVar(&flags.version, "version", false, "Print the current migration version")
	cmd.Flags().IntVar(&flags.force, "force", -1, "Force set migration version (use to recover from failed migrations)")
	cmd.Flags().StringVar(&flags.path, "path", "", "Override the migrations directory path")
	return cmd
}

// validate checks that exactly one action is specified.
func (f *migrateFlags) validate() error {
	actionCount := 0
	for _, set := range []bool{f.up, f.down, f.steps != 0, f.version, f.force >= 0} {
		if set {
			actionCount++
		}
	}

	if actionCount == 0 {
		return fmt.Errorf("no action specified: use one of --up, --down, --steps N, --version, --force V")
	}
	if actionCount > 1 {
		return fmt.Errorf("specify only one action at a time")
	}
	return nil
}

func runMigrate(cmd *cobra.Command, flags *migrateFlags) error {
	cfg, err := loadConfig(dbConfigPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, "migrate")

	// Allow CLI flag to override migration path.
	migrationDir := cfg.Database.MigrationPath
	if flags.path != "" {
		migrationDir = flags.path
	}

	db, err := database.New(cmd.Context(), &cfg.Database, logger)
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
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	switch {
	case flags.up:
		logger.Info().Msg("running all pending migrations")
		if err := migrator.Up(); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}

	case flags.down:
		logger.Warn().Msg("rolling back all migrations")
		if err := migrator.Down(); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}

	case flags.steps != 0:
		logger.Info().Int("steps", flags.steps).Msg("running migration steps")
		if err := migrator.Steps(flags.steps); err != nil {
			return fmt.Errorf("migrate steps: %w", err)
		}

	case flags.force >= 0:
		logger.Warn().Int("version", flags.force).Msg("forcing migration version")
		if err := migrator.Force(flags.force); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
	}

	printVersion(migrator, logger)
	return nil
}

// printVersion logs the current migration version.
func printVersion(migrator *database.Migrator, logger zerolog.Logger) {
	status, err := migrator.Status()
	if err != nil {
		logger.Warn().Err(err).Msg("could not determine migration version")
		return
	}
	if !status.Applied {
		logger.Info().Msg("no migrations applied")
		return
	}
	logger.Info().
		Uint("version", status.Version).
		Bool("dirty", status.Dirty).
		Msg("current migration version")
}
