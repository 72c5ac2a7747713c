package main

import (
	"fmt"

	"github.com/Veraticus/balance-snapshots/internal/cli"
	"github.com/Veraticus/balance-snapshots/internal/model"
	"github.com/spf13/cobra"
)

func snapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Record and inspect balance snapshots",
	}

	cmd.AddCommand(setSnapshotCmd())
	cmd.AddCommand(listSnapshotsCmd())
	cmd.AddCommand(deleteSnapshotCmd())

	return cmd
}

func setSnapshotCmd() *cobra.Command {
	var on, note string

	cmd := &cobra.Command{
		Use:   "set <account-id> <balance>",
		Short: "Record a manual balance reading",
		Long: `Record a manual balance reading. A reading replaces any snapshot the
account already has on that day. If the owner has automation on, income
received after the reading is layered on top of it.`,
		Example: `  balances snapshot set 3f2504e0-4f89-41d3-9a0c-0305e82c3301 1000 --date 2024-01-10`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			accountID := args[0]

			balance, err := parseDecimal(args[1], "balance")
			if err != nil {
				return err
			}
			day, err := parseDay(on)
			if err != nil {
				return err
			}
			actor, err := actorID()
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if _, err := store.GetAccount(ctx, accountID); err != nil {
				return friendly(err, "account "+accountID)
			}

			snapshot := &model.BalanceSnapshot{
				AccountID:  accountID,
				Date:       day,
				Balance:    balance,
				Source:     model.SourceManual,
				Note:       note,
				RecordedBy: actor,
			}
			if err := store.UpsertSnapshot(ctx, snapshot); err != nil {
				return err
			}

			if err := newEngine(store).ReconcileIfAutomated(ctx, actor, accountID); err != nil {
				return friendly(err, "reconcile")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Recorded %s on %s\n",
				cli.SuccessStyle.Render(cli.SuccessIcon),
				cli.FormatAmount(balance, currency()),
				day)
			return nil
		},
	}

	cmd.Flags().StringVar(&on, "date", "", "Reading date, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&note, "note", "", "Note stored with the reading")

	return cmd
}

func listSnapshotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <account-id>",
		Short: "Show an account's balance history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			account, err := store.GetAccount(ctx, args[0])
			if err != nil {
				return friendly(err, "account "+args[0])
			}

			snapshots, err := store.ListSnapshots(ctx, account.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatTitle(account.Name))
			if len(snapshots) == 0 {
				fmt.Fprintln(out, cli.SubtleStyle.Render("No snapshots yet."))
				return nil
			}

			rows := make([][]string, 0, len(snapshots))
			for _, snap := range snapshots {
				rows = append(rows, []string{
					snap.Date.String(),
					string(snap.Source),
					cli.FormatAmount(snap.Balance, currency()),
					snap.RecordedBy,
					snap.Note,
				})
			}
			fmt.Fprintln(out, cli.RenderTable([]string{"Date", "Source", "Balance", "By", "Note"}, rows, 2))
			return nil
		},
	}
}

func deleteSnapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <account-id> <date>",
		Short: "Delete the snapshot recorded on a day",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			accountID := args[0]

			day, err := parseDay(args[1])
			if err != nil {
				return err
			}
			actor, err := actorID()
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteSnapshot(ctx, accountID, day); err != nil {
				return friendly(err, fmt.Sprintf("snapshot on %s", day))
			}

			if err := newEngine(store).ReconcileIfAutomated(ctx, actor, accountID); err != nil {
				return friendly(err, "reconcile")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted snapshot on %s\n", cli.SuccessStyle.Render(cli.SuccessIcon), day)
			return nil
		},
	}
}
