package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/saludplena/claims-engine/internal/config"
	"github.com/saludplena/claims-engine/internal/infrastructure/database/postgres"
)

// NewMigrateCmd creates the "migrate" command group for managing the
// PostgreSQL schema.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}

	cmd.AddCommand(
		newMigrateUpCmd(),
		newMigrateDownCmd(),
		newMigrateStatusCmd(),
		newMigrateForceCmd(),
	)
	return cmd
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if err := postgres.RunMigrations(databaseURL(cc.Config), cc.Config.Database.MigrationPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newMigrateDownCmd() *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if steps < 1 {
				return fmt.Errorf("steps must be >= 1, got %d", steps)
			}
			if err := postgres.RollbackMigration(databaseURL(cc.Config), cc.Config.Database.MigrationPath, steps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", steps)
			return nil
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	return cmd
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			version, dirty, err := postgres.MigrationStatus(databaseURL(cc.Config), cc.Config.Database.MigrationPath)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]interface{}{
				"version": version,
				"dirty":   dirty,
			})
		},
	}
}

func newMigrateForceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "force <version>",
		Short: "Force the schema version after a failed migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			if err := postgres.ForceMigrationVersion(databaseURL(cc.Config), cc.Config.Database.MigrationPath, version); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version forced to %d\n", version)
			return nil
		},
	}
}

// databaseURL builds the migration DSN from the application config.
func databaseURL(cfg *config.Config) string {
	return postgres.BuildDSN(postgres.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.DBName,
		Username: cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
	})
}
