package commands

import (
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serves health probes, metrics and the stored articles over HTTP.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(dbConfigPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			logger := newLogger(cfg, "server")

			db, err := openDatabase(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			errs, stop := startStatusServer(newStatusServer(cfg, db, newRegistry(), logger), cfg.Server.ShutdownTimeout, logger)
			defer stop()

			select {
			case <-ctx.Done():
				logger.Info().Msg("shutting down")
				return nil
			case err := <-errs:
				return err
			}
		},
	}
}
