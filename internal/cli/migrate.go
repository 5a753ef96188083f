package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"planner/internal/storage/sqlite"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rootOpts.Config
			logger, err := newLogger(cmd, cfg)
			if err != nil {
				return err
			}
			store, err := sqlite.Open(cmd.Context(), cfg.DBPath, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			version, err := store.SchemaVersion(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s at schema version %d\n", cfg.DBPath, version)
			return nil
		},
	}
}
