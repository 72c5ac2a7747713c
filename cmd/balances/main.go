package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Veraticus/balance-snapshots/internal/common"
	"github.com/Veraticus/balance-snapshots/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "balances",
		Short: "💰 Per-account balance history with income reconciliation",
		Long: `balances keeps a point-in-time balance history for each account.

Manual readings are the ground truth. Income received after the latest
reading is layered on top automatically, and edits to which account paid
for a charge are turned into balance adjustments.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return initConfig(cfgFile)
		},
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/balances/config.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "console", "log format (console, json)")
	flags.String("db", "", "database path (default: $HOME/.local/share/balances/balances.db)")
	flags.String("as", "", "user id recorded as the actor of changes (default: $USER)")
	flags.String("currency", "", "currency used to display balances (default: USD)")

	// Bind flags to viper
	_ = viper.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	_ = viper.BindPFlag(config.KeyLogFormat, flags.Lookup("log-format"))
	_ = viper.BindPFlag(config.KeyDatabasePath, flags.Lookup("db"))
	_ = viper.BindPFlag(config.KeyUserID, flags.Lookup("as"))
	_ = viper.BindPFlag(config.KeyCurrency, flags.Lookup("currency"))

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(accountsCmd())
	rootCmd.AddCommand(automationCmd())
	rootCmd.AddCommand(snapshotCmd())
	rootCmd.AddCommand(incomeCmd())
	rootCmd.AddCommand(chargeCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(backupCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	err := newRootCmd().ExecuteContext(ctx)
	cancel()

	if err != nil {
		var userErr *common.UserError
		if errors.As(err, &userErr) {
			fmt.Fprintln(os.Stderr, userErr.UserMessage)
			slog.Debug("Command failed", "error", userErr.Err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func initConfig(cfgFile string) error {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := config.Dir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		viper.AddConfigPath(dir)
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// BALANCES_DATABASE_PATH, BALANCES_LOGGING_LEVEL, ...
	viper.SetEnvPrefix("BALANCES")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	level, err := common.ParseLevel(viper.GetString(config.KeyLogLevel))
	if err != nil {
		return err
	}
	if err := common.SetupLogger(level, viper.GetString(config.KeyLogFormat)); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "balances %s\n", version)
		},
	}
}
