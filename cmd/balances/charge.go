package main

import (
	"fmt"
	"sort"

	"github.com/Veraticus/balance-snapshots/internal/cli"
	"github.com/Veraticus/balance-snapshots/internal/common"
	"github.com/Veraticus/balance-snapshots/internal/model"
	"github.com/spf13/cobra"
)

func chargeCmd() *cobra.Command {
	var oldPaidBy, newPaidBy, oldAmountStr, newAmountStr, note string

	cmd := &cobra.Command{
		Use:   "charge",
		Short: "Adjust balances after a transaction's charge changed",
		Long: `Adjust account balances after a transaction was created, edited or
deleted. The old charge is refunded to the account that paid it and the new
charge is taken from the account paying it now. Paid-by values that are not
account ids (older free-text labels) are ignored.`,
		Example: `  # Moved a $40 charge from account A to account B
  balances charge --old-paid-by A --old-amount 40 --new-paid-by B --new-amount 40

  # Deleted a $25 charge
  balances charge --old-paid-by A --old-amount 25`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			oldAmount, err := parseDecimal(oldAmountStr, "old amount")
			if err != nil {
				return err
			}
			newAmount, err := parseDecimal(newAmountStr, "new amount")
			if err != nil {
				return err
			}
			if newPaidBy != "" {
				if err := model.ValidateAmount(newAmount); err != nil {
					return friendly(err, "new amount")
				}
			}
			if oldPaidBy == "" && newPaidBy == "" {
				return common.NewUserError("Nothing to do: pass --old-paid-by and/or --new-paid-by", common.ErrValidation)
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

			change := model.ChargeChange{
				OldPaidBy: oldPaidBy,
				NewPaidBy: newPaidBy,
				OldAmount: oldAmount,
				NewAmount: newAmount,
			}
			deltas, err := newEngine(store).ApplyChargeChange(ctx, actor, change, note)
			if err != nil {
				return friendly(err, "charge")
			}

			out := cmd.OutOrStdout()
			if len(deltas) == 0 {
				fmt.Fprintln(out, cli.SubtleStyle.Render("No account balances affected."))
				return nil
			}

			accountIDs := make([]string, 0, len(deltas))
			for accountID := range deltas {
				accountIDs = append(accountIDs, accountID)
			}
			sort.Strings(accountIDs)

			rows := make([][]string, 0, len(accountIDs))
			for _, accountID := range accountIDs {
				rows = append(rows, []string{accountID, cli.FormatAmount(deltas[accountID], currency())})
			}
			fmt.Fprintln(out, cli.RenderTable([]string{"Account", "Adjustment"}, rows, 1))
			return nil
		},
	}

	cmd.Flags().StringVar(&oldPaidBy, "old-paid-by", "", "Account that paid before the change")
	cmd.Flags().StringVar(&newPaidBy, "new-paid-by", "", "Account that pays after the change (empty for a deletion)")
	cmd.Flags().StringVar(&oldAmountStr, "old-amount", "", "Amount before the change")
	cmd.Flags().StringVar(&newAmountStr, "new-amount", "", "Amount after the change")
	cmd.Flags().StringVar(&note, "note", "Balance adjusted for transaction change", "Note stored with the adjustment")

	return cmd
}
