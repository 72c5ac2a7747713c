package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/balance-snapshots/internal/common"
	"github.com/Veraticus/balance-snapshots/internal/config"
	"github.com/Veraticus/balance-snapshots/internal/date"
	"github.com/Veraticus/balance-snapshots/internal/engine"
	"github.com/Veraticus/balance-snapshots/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// databasePath returns the configured database path with ~ and $VARS expanded.
func databasePath() string {
	return config.DatabasePath(viper.GetViper())
}

// initStorage opens the database and brings its schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(databasePath())
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// newBackupManager creates a backup manager honoring backup.keep_auto.
func newBackupManager(store *storage.SQLiteStorage) (*storage.BackupManager, error) {
	manager, err := store.NewBackupManager()
	if err != nil {
		return nil, fmt.Errorf("failed to create backup manager: %w", err)
	}
	manager.SetAutoRetention(viper.GetInt(config.KeyBackupKeepAuto))
	return manager, nil
}

func newEngine(store *storage.SQLiteStorage) *engine.Engine {
	return engine.New(store)
}

// actorID returns the user recorded as the author of changes.
func actorID() (string, error) {
	actor := viper.GetString(config.KeyUserID)
	if actor == "" {
		actor = os.Getenv("USER")
	}
	if actor == "" {
		return "", common.NewUserError("No user set: pass --as or set user.id in the config", common.ErrMissingConfig)
	}
	return actor, nil
}

func retryOptions(maxAttempts int) common.RetryOptions {
	if maxAttempts <= 0 {
		maxAttempts = viper.GetInt(config.KeyRetryMaxAttempts)
	}
	return common.RetryOptions{
		MaxAttempts:  maxAttempts,
		InitialDelay: viper.GetDuration(config.KeyRetryInitialDelay),
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

func currency() string {
	return strings.ToUpper(viper.GetString(config.KeyCurrency))
}

// parseDay parses a YYYY-MM-DD flag value; empty means today.
func parseDay(value string) (date.Date, error) {
	if value == "" {
		return date.Today(), nil
	}
	d, err := date.Parse(value)
	if err != nil {
		return date.Date{}, common.NewUserError(fmt.Sprintf("Invalid date %q, expected YYYY-MM-DD", value), err)
	}
	return d, nil
}

// parseDecimal parses an amount; empty means zero.
func parseDecimal(value, name string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, common.NewUserError(fmt.Sprintf("Invalid %s %q", name, value), fmt.Errorf("%w: %w", common.ErrValidation, err))
	}
	return d, nil
}

// friendly turns engine error kinds into messages for the terminal.
func friendly(err error, subject string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrNotFound):
		return common.NewUserError(fmt.Sprintf("%s: not found", subject), err)
	case errors.Is(err, common.ErrValidation):
		return common.NewUserError(fmt.Sprintf("%s: invalid input", subject), err)
	default:
		return err
	}
}

func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func formatRelativeTime(t time.Time) string {
	duration := time.Since(t)

	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		minutes := int(duration.Minutes())
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	case duration < 24*time.Hour:
		hours := int(duration.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case duration < 7*24*time.Hour:
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "yesterday"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02 15:04")
	}
}
