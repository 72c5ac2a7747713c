package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/Veraticus/balance-snapshots/internal/cli"
	"github.com/Veraticus/balance-snapshots/internal/common"
	"github.com/Veraticus/balance-snapshots/internal/model"
	"github.com/spf13/cobra"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage tracked accounts",
	}

	cmd.AddCommand(addAccountCmd())
	cmd.AddCommand(listAccountsCmd())

	return cmd
}

func addAccountCmd() *cobra.Command {
	var owner string
	var hidden bool

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if owner == "" {
				actor, err := actorID()
				if err != nil {
					return err
				}
				owner = actor
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			account := &model.Account{
				ID:      model.NewAccountID(),
				OwnerID: owner,
				Name:    args[0],
				Visible: !hidden,
			}
			if err := store.CreateAccount(ctx, account); err != nil {
				return friendly(err, "account")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Created account %s\n",
				cli.SuccessStyle.Render(cli.SuccessIcon),
				cli.InfoStyle.Render(account.Name))
			fmt.Fprintln(cmd.OutOrStdout(), account.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owning user (defaults to the acting user)")
	cmd.Flags().BoolVar(&hidden, "hidden", false, "Hide the account from shared views")

	return cmd
}

func listAccountsCmd() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts with their latest balance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var accounts []model.Account
			if owner != "" {
				accounts, err = store.ListAccountsByOwner(ctx, owner)
			} else {
				accounts, err = store.ListAccounts(ctx)
			}
			if err != nil {
				return err
			}

			if len(accounts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("No accounts found."))
				return nil
			}

			rows := make([][]string, 0, len(accounts))
			for _, account := range accounts {
				balance, asOf := "-", "-"
				latest, err := store.GetLatestSnapshot(ctx, account.ID)
				switch {
				case err == nil:
					balance = cli.FormatAmount(latest.Balance, currency())
					asOf = latest.Date.String()
				case !errors.Is(err, common.ErrNotFound):
					return err
				}

				rows = append(rows, []string{
					account.ID,
					account.Name,
					account.OwnerID,
					strconv.FormatBool(account.Visible),
					asOf,
					balance,
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTable(
				[]string{"ID", "Name", "Owner", "Visible", "As of", "Balance"},
				rows,
				5,
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Only list accounts owned by this user")

	return cmd
}
