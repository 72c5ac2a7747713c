package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Veraticus/balance-snapshots/internal/cli"
	"github.com/Veraticus/balance-snapshots/internal/model"
	"github.com/Veraticus/balance-snapshots/internal/ofx"
	"github.com/spf13/cobra"
)

func incomeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "income",
		Short: "Record income received into accounts",
		Long: `Record income received into accounts. Every change triggers a rebuild of
the account's income-derived snapshots when its owner has automation on.`,
	}

	cmd.AddCommand(addIncomeCmd())
	cmd.AddCommand(editIncomeCmd())
	cmd.AddCommand(deleteIncomeCmd())
	cmd.AddCommand(listIncomeCmd())
	cmd.AddCommand(importIncomeCmd())

	return cmd
}

func addIncomeCmd() *cobra.Command {
	var on, description string

	cmd := &cobra.Command{
		Use:   "add <account-id> <amount>",
		Short: "Record an income entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			accountID := args[0]

			amount, err := parseDecimal(args[1], "amount")
			if err != nil {
				return err
			}
			if err := model.ValidateAmount(amount); err != nil {
				return friendly(err, "amount")
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

			entry := &model.IncomeEntry{
				ID:           model.NewIncomeID(),
				AccountID:    accountID,
				Amount:       amount,
				ReceivedDate: day,
				Description:  description,
			}
			if err := store.SaveIncomeEntry(ctx, entry); err != nil {
				return err
			}

			if err := newEngine(store).OnIncomeChanged(ctx, actor, accountID); err != nil {
				return friendly(err, "reconcile")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Recorded %s received %s\n",
				cli.SuccessStyle.Render(cli.SuccessIcon),
				cli.FormatAmount(amount, currency()),
				day)
			fmt.Fprintln(cmd.OutOrStdout(), entry.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&on, "date", "", "Date received, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&description, "description", "", "What the income was")

	return cmd
}

func editIncomeCmd() *cobra.Command {
	var accountID, amountStr, on, description string

	cmd := &cobra.Command{
		Use:   "edit <income-id>",
		Short: "Change an income entry",
		Long: `Change an income entry. Moving an entry to another account rebuilds
both accounts.`,
		Args: cobra.ExactArgs(1),
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

			entry, err := store.GetIncomeEntry(ctx, args[0])
			if err != nil {
				return friendly(err, "income "+args[0])
			}
			previousAccount := entry.AccountID

			if cmd.Flags().Changed("account") {
				if _, err := store.GetAccount(ctx, accountID); err != nil {
					return friendly(err, "account "+accountID)
				}
				entry.AccountID = accountID
			}
			if cmd.Flags().Changed("amount") {
				amount, err := parseDecimal(amountStr, "amount")
				if err != nil {
					return err
				}
				if err := model.ValidateAmount(amount); err != nil {
					return friendly(err, "amount")
				}
				entry.Amount = amount
			}
			if cmd.Flags().Changed("date") {
				day, err := parseDay(on)
				if err != nil {
					return err
				}
				entry.ReceivedDate = day
			}
			if cmd.Flags().Changed("description") {
				entry.Description = description
			}

			if err := store.SaveIncomeEntry(ctx, entry); err != nil {
				return err
			}

			if err := newEngine(store).OnIncomeChanged(ctx, actor, previousAccount, entry.AccountID); err != nil {
				return friendly(err, "reconcile")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Updated income %s\n", cli.SuccessStyle.Render(cli.SuccessIcon), entry.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Move the entry to this account")
	cmd.Flags().StringVar(&amountStr, "amount", "", "New amount")
	cmd.Flags().StringVar(&on, "date", "", "New date received, YYYY-MM-DD")
	cmd.Flags().StringVar(&description, "description", "", "New description")

	return cmd
}

func deleteIncomeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <income-id>",
		Short: "Delete an income entry",
		Args:  cobra.ExactArgs(1),
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

			entry, err := store.GetIncomeEntry(ctx, args[0])
			if err != nil {
				return friendly(err, "income "+args[0])
			}
			if err := store.DeleteIncomeEntry(ctx, entry.ID); err != nil {
				return err
			}

			if err := newEngine(store).OnIncomeChanged(ctx, actor, entry.AccountID); err != nil {
				return friendly(err, "reconcile")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted income %s\n", cli.SuccessStyle.Render(cli.SuccessIcon), entry.ID)
			return nil
		},
	}
}

func listIncomeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <account-id>",
		Short: "List an account's income",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			entries, err := store.ListIncome(ctx, args[0])
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("No income recorded."))
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.ReceivedDate.String(),
					cli.FormatAmount(entry.Amount, currency()),
					entry.Description,
					entry.ID,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTable([]string{"Received", "Amount", "Description", "ID"}, rows, 1))
			return nil
		},
	}
}

func importIncomeCmd() *cobra.Command {
	var accountID, statementAccount string
	var withBalance bool

	cmd := &cobra.Command{
		Use:   "import <file.ofx>",
		Short: "Import credits from an OFX/QFX bank statement as income",
		Long: `Import the credits of an OFX/QFX bank statement as income entries.
Re-importing the same statement updates the entries instead of
duplicating them. With --with-balance the statement's ledger balance is
also recorded as a manual reading.`,
		Example: `  balances income import ~/Downloads/checking.qfx --account 3f2504e0-4f89-41d3-9a0c-0305e82c3301`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			actor, err := actorID()
			if err != nil {
				return err
			}

			// #nosec G304 - user-supplied statement path
			file, err := os.Open(filepath.Clean(args[0]))
			if err != nil {
				return fmt.Errorf("failed to open statement: %w", err)
			}
			defer func() { _ = file.Close() }()

			statements, err := ofx.NewParser().ParseFile(ctx, file)
			if err != nil {
				return err
			}
			statement, err := ofx.SelectStatement(statements, statementAccount)
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

			// One transaction so a bad file leaves nothing behind.
			tx, err := store.BeginTx(ctx)
			if err != nil {
				return err
			}
			for _, credit := range statement.Credits {
				entry := credit.IncomeEntry(accountID)
				if err := tx.SaveIncomeEntry(ctx, &entry); err != nil {
					_ = tx.Rollback()
					return err
				}
			}
			if withBalance && statement.HasBalance {
				reading := &model.BalanceSnapshot{
					AccountID:  accountID,
					Date:       statement.AsOf,
					Balance:    statement.LedgerBalance,
					Source:     model.SourceManual,
					Note:       "Ledger balance from " + filepath.Base(args[0]),
					RecordedBy: actor,
				}
				if err := tx.UpsertSnapshot(ctx, reading); err != nil {
					_ = tx.Rollback()
					return err
				}
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("failed to commit import: %w", err)
			}

			if err := newEngine(store).OnIncomeChanged(ctx, actor, accountID); err != nil {
				return friendly(err, "reconcile")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Imported %d income entries from statement %s\n",
				cli.SuccessStyle.Render(cli.SuccessIcon),
				len(statement.Credits),
				statement.AccountNumber)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account receiving the income (required)")
	cmd.Flags().StringVar(&statementAccount, "statement-account", "", "Bank account number to import when the file holds several statements")
	cmd.Flags().BoolVar(&withBalance, "with-balance", false, "Also record the ledger balance as a manual reading")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}
