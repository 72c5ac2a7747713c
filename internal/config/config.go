// Package config holds configuration keys, their defaults, and path helpers.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Configuration keys. Environment variables use the BALANCES_ prefix with
// dots replaced by underscores, e.g. BALANCES_DATABASE_PATH.
const (
	KeyDatabasePath       = "database.path"
	KeyUserID             = "user.id"
	KeyCurrency           = "display.currency"
	KeyLogLevel           = "logging.level"
	KeyLogFormat          = "logging.format"
	KeyRetryMaxAttempts   = "reconcile.retry.max_attempts"
	KeyRetryInitialDelay  = "reconcile.retry.initial_delay"
	KeyBackupKeepAuto     = "backup.keep_auto"
	DefaultDatabasePath   = "$HOME/.local/share/balances/balances.db"
	DefaultConfigDirName  = "balances"
	DefaultAutoRetention  = 5
	DefaultRetryAttempts  = 3
	DefaultRetryDelayText = "200ms"
)

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDatabasePath, DefaultDatabasePath)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
	v.SetDefault(KeyCurrency, "USD")
	v.SetDefault(KeyRetryMaxAttempts, DefaultRetryAttempts)
	v.SetDefault(KeyRetryInitialDelay, DefaultRetryDelayText)
	v.SetDefault(KeyBackupKeepAuto, DefaultAutoRetention)
}

// Dir returns the directory searched for config.yaml.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", DefaultConfigDirName), nil
}

// DatabasePath returns the configured database path, expanded.
func DatabasePath(v *viper.Viper) string {
	return ExpandPath(v.GetString(KeyDatabasePath))
}

// ExpandPath expands a leading ~ and any $VAR references in path.
func ExpandPath(path string) string {
	switch {
	case path == "":
		return path
	case path == "~" || strings.HasPrefix(path, "~/"):
		if home, err := os.UserHomeDir(); err == nil {
			path = home + path[1:]
		}
	}
	return os.ExpandEnv(path)
}
