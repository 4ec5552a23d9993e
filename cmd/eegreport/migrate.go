package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/eeg.report/internal/db"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				database, err := db.OpenDB(a.databasePath())
				if err != nil {
					return err
				}
				defer database.Close()
				if err := database.MigrateUp(); err != nil {
					return err
				}
				return printVersion(cmd, database)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				database, err := db.OpenDB(a.databasePath())
				if err != nil {
					return err
				}
				defer database.Close()
				if err := database.MigrateDown(); err != nil {
					return err
				}
				return printVersion(cmd, database)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current and latest schema versions",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				database, err := db.OpenDB(a.databasePath())
				if err != nil {
					return err
				}
				defer database.Close()
				return printVersion(cmd, database)
			},
		},
	)
	return cmd
}

func printVersion(cmd *cobra.Command, database *db.DB) error {
	current, dirty, err := database.MigrateVersion()
	if err != nil {
		return err
	}
	latest, err := db.LatestMigrationVersion()
	if err != nil {
		return err
	}
	state := "clean"
	if dirty {
		state = "dirty"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d of %d (%s)\n", current, latest, state)
	return nil
}
