package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS accounts (
					id TEXT PRIMARY KEY,
					owner_id TEXT NOT NULL,
					name TEXT NOT NULL,
					is_visible BOOLEAN DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_accounts_owner ON accounts(owner_id)`,

				// date is ISO text so that ORDER BY date is chronological.
				`CREATE TABLE IF NOT EXISTS balance_snapshots (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					account_id TEXT NOT NULL,
					date TEXT NOT NULL,
					balance TEXT NOT NULL,
					source TEXT NOT NULL,
					note TEXT,
					recorded_by TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
				)`,

				`CREATE TABLE IF NOT EXISTS income_entries (
					id TEXT PRIMARY KEY,
					account_id TEXT NOT NULL,
					amount TEXT NOT NULL,
					received_date TEXT NOT NULL,
					description TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
				)`,
				`CREATE INDEX idx_income_entries_account_date ON income_entries(account_id, received_date)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Enforce one snapshot per account and day",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				// Keep the newest row when older databases hold same-day duplicates.
				`DELETE FROM balance_snapshots
				 WHERE id NOT IN (
					SELECT MAX(id) FROM balance_snapshots GROUP BY account_id, date
				 )`,
				// Doubles as the ordered index for latest-by-date lookups.
				`CREATE UNIQUE INDEX idx_balance_snapshots_account_date ON balance_snapshots(account_id, date)`,
				`CREATE INDEX idx_balance_snapshots_account_source_date ON balance_snapshots(account_id, source, date)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Add automation preferences",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS automation_preferences (
					user_id TEXT PRIMARY KEY,
					enabled BOOLEAN NOT NULL DEFAULT 0,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)
			`)
			if err != nil {
				return fmt.Errorf("failed to create automation_preferences table: %w", err)
			}
			return nil
		},
	},
	{
		Version:     4,
		Description: "Add backup metadata table",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS backup_metadata (
					id TEXT PRIMARY KEY,
					created_at DATETIME NOT NULL,
					description TEXT,
					file_size INTEGER,
					row_counts TEXT,
					schema_version INTEGER,
					is_auto BOOLEAN DEFAULT 0
				)`,
				`CREATE INDEX idx_backup_metadata_created_at ON backup_metadata(created_at)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
}

// SchemaVersion returns the schema version recorded in the database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
