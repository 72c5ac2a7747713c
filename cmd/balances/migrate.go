package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/balance-snapshots/internal/storage"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

This command ensures your local database has all the required
tables and indexes for the application to function properly.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")
	dbPath := databasePath()
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	slog.Info("Starting database migration", "database", dbPath, "status_only", status)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	current, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	if status {
		fmt.Fprintf(out, "Database:        %s\n", dbPath)
		fmt.Fprintf(out, "Current version: %d\n", current)
		fmt.Fprintf(out, "Latest version:  %d\n", storage.ExpectedSchemaVersion)
		if current < storage.ExpectedSchemaVersion {
			fmt.Fprintf(out, "%d migration(s) pending\n", storage.ExpectedSchemaVersion-current)
		}
		return nil
	}

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Fprintf(out, "✅ Database at schema version %d (was %d)\n", storage.ExpectedSchemaVersion, current)
	return nil
}
