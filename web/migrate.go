package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/devilmonastery/bnetsso/internal/infrastructure/database/postgres"
	"github.com/devilmonastery/bnetsso/migrations"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPostgres(opts, func(conn *postgres.Connection) error {
				if err := conn.MigrateDown(migrations.FS, steps); err != nil {
					return err
				}
				slog.Info("migrations rolled back", "steps", steps)
				return nil
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withPostgres(opts, func(conn *postgres.Connection) error {
					if err := conn.RunMigrations(migrations.FS); err != nil {
						return err
					}
					slog.Info("migrations applied")
					return nil
				})
			},
		},
		down,
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withPostgres(opts, func(conn *postgres.Connection) error {
					version, dirty, err := conn.MigrationVersion(migrations.FS)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %v)\n", version, dirty)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "Force the migration version (use to fix dirty migration state)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				version, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				return withPostgres(opts, func(conn *postgres.Connection) error {
					if err := conn.ForceMigrationVersion(migrations.FS, version); err != nil {
						return err
					}
					slog.Info("migration version forced", "version", version)
					return nil
				})
			},
		},
	)

	return cmd
}

// withPostgres runs fn against a single connection attempt
func withPostgres(opts *rootOptions, fn func(*postgres.Connection) error) error {
	conn, err := postgres.NewConnection(opts.cfg.Database.Postgres.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}
	defer conn.Close()
	return fn(conn)
}
