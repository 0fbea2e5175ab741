package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/competitive-scan/internal/bootstrap"
	"github.com/jonesrussell/competitive-scan/internal/database"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			core, err := bootstrap.Open(cmd.Context(), cfgFile)
			if err != nil {
				return err
			}
			defer func() { _ = core.Close() }()

			return database.MigrateDown(core.DB, steps, core.Logger)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				core, err := bootstrap.Open(cmd.Context(), cfgFile)
				if err != nil {
					return err
				}
				defer func() { _ = core.Close() }()

				return database.RunMigrations(core.DB, core.Logger)
			},
		},
		down,
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, _ []string) error {
				core, err := bootstrap.Open(cmd.Context(), cfgFile)
				if err != nil {
					return err
				}
				defer func() { _ = core.Close() }()

				version, dirty, err := database.MigrationVersion(core.DB)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
				return nil
			},
		},
	)

	return cmd
}
