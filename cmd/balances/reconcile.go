package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/balance-snapshots/internal/cli"
	"github.com/Veraticus/balance-snapshots/internal/common"
	"github.com/Veraticus/balance-snapshots/internal/engine"
	"github.com/spf13/cobra"
)

func reconcileCmd() *cobra.Command {
	var all, noBackup bool
	var retries int

	cmd := &cobra.Command{
		Use:   "reconcile [account-id]",
		Short: "Rebuild income-derived snapshots",
		Long: `Rebuild an account's income-derived snapshots from its latest manual
reading and the income received after it. The rebuild is atomic and
idempotent, so it is always safe to run again.

With --all every account is rebuilt; an automatic backup is taken first.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return fmt.Errorf("pass an account id or --all, not both")
			}
			if !all && len(args) != 1 {
				return fmt.Errorf("pass an account id or --all")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			actor, err := actorID()
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			eng := newEngine(store)
			opts := retryOptions(retries)
			out := cmd.OutOrStdout()

			if !all {
				result, err := reconcileWithRetry(ctx, eng, args[0], actor, opts)
				if err != nil {
					return friendly(err, "account "+args[0])
				}
				printResult(cmd, result)
				return nil
			}

			if !noBackup {
				manager, err := newBackupManager(store)
				if err != nil {
					return err
				}
				info, err := manager.AutoBackup(ctx, "reconcile")
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s Backup %s taken\n", cli.InfoIcon, cli.InfoStyle.Render(info.ID))
			}

			accounts, err := store.ListAccounts(ctx)
			if err != nil {
				return err
			}

			handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
			ctx = handler.HandleInterrupts(ctx, "balances reconcile --all")

			bar := cli.NewProgressBar(cmd.ErrOrStderr(), len(accounts), "Reconciling accounts...")
			var derived int
			for _, account := range accounts {
				if ctx.Err() != nil {
					break
				}
				result, err := reconcileWithRetry(ctx, eng, account.ID, actor, opts)
				if err != nil {
					if handler.WasInterrupted() {
						break
					}
					common.LogError(err, "Reconcile stopped", common.Fields{
						"account_id": account.ID,
						"derived":    derived,
					})
					return fmt.Errorf("failed to reconcile %s (%s): %w", account.Name, account.ID, err)
				}
				derived += result.Derived
				if err := bar.Add(1); err != nil {
					slog.Warn("Failed to update progress bar", "error", err)
				}
			}

			if handler.WasInterrupted() {
				return common.NewUserError("Reconciliation interrupted", context.Canceled)
			}

			fmt.Fprintf(out, "%s Reconciled %d accounts, %d derived snapshots\n",
				cli.SuccessStyle.Render(cli.SuccessIcon), len(accounts), derived)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Reconcile every account")
	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "Skip the automatic backup before --all")
	cmd.Flags().IntVar(&retries, "retries", 0, "Attempts per account on persistence failures (default reconcile.retry.max_attempts)")

	return cmd
}

func reconcileWithRetry(ctx context.Context, eng *engine.Engine, accountID, actor string, opts common.RetryOptions) (*engine.ReconcileResult, error) {
	var result *engine.ReconcileResult
	err := common.WithRetry(ctx, func() error {
		var err error
		result, err = eng.ReconcileWithResult(ctx, accountID, actor)
		return err
	}, opts)
	return result, err
}

func printResult(cmd *cobra.Command, result *engine.ReconcileResult) {
	out := cmd.OutOrStdout()
	if !result.HasCheckpoint {
		fmt.Fprintln(out, cli.FormatWarning("No manual reading yet; nothing to build on."))
		return
	}
	fmt.Fprintf(out, "%s Rebuilt %d derived snapshots from the %s reading\n",
		cli.SuccessStyle.Render(cli.SuccessIcon), result.Derived, result.CheckpointDate)
}
