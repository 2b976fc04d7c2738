// Package commands holds the journal-crawler cobra commands.
package commands

import (
	"context"

	"github.com/spf13/cobra"
)

// dbConfigPath is the credentials file shared by every command.
var dbConfigPath string

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "journal-crawler",
		Short:         "journal-crawler scrapes article metadata from journal listings into PostgreSQL.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&dbConfigPath, "db-config", "", "Path to the database credentials file (JSON or JSON5).")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newServeCmd())
	return cmd
}

// ExecuteContext runs the root command. The caller prints the error and exits.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
