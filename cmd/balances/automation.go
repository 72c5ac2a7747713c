package main

import (
	"fmt"
	"strings"

	"github.com/Veraticus/balance-snapshots/internal/cli"
	"github.com/Veraticus/balance-snapshots/internal/common"
	"github.com/spf13/cobra"
)

func automationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "automation",
		Short: "Control automatic balance adjustment from income",
		Long: `When automation is on for a user, every income change and every charge
adjustment made by that user rebuilds the income-derived part of their
accounts' balance history.`,
	}

	cmd.AddCommand(setAutomationCmd())
	cmd.AddCommand(showAutomationCmd())

	return cmd
}

func setAutomationCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "set <user> on|off",
		Short:     "Turn automation on or off for a user",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			userID := args[0]

			var enabled bool
			switch strings.ToLower(args[1]) {
			case "on":
				enabled = true
			case "off":
				enabled = false
			default:
				return common.NewUserError(fmt.Sprintf("Expected on or off, got %q", args[1]), common.ErrValidation)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.SetAutomationPreference(ctx, userID, enabled); err != nil {
				return err
			}

			if !enabled {
				fmt.Fprintf(cmd.OutOrStdout(), "%s Automation off for %s\n", cli.SuccessStyle.Render(cli.SuccessIcon), userID)
				return nil
			}

			// Bring existing accounts in line right away.
			progress := cli.ProgressFunc(cmd.ErrOrStderr(), "Reconciling accounts...")
			if err := newEngine(store).ReconcileOwned(ctx, userID, progress); err != nil {
				return friendly(err, "reconcile")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Automation on for %s\n", cli.SuccessStyle.Render(cli.SuccessIcon), userID)
			return nil
		},
	}
}

func showAutomationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <user>",
		Short: "Show a user's automation setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			pref, err := store.GetAutomationPreference(ctx, args[0])
			if err != nil {
				return err
			}

			state := "off"
			if pref.Enabled {
				state = "on"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], state)
			return nil
		},
	}
}
