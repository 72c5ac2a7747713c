package main

import (
	"fmt"

	"github.com/Veraticus/balance-snapshots/internal/cli"
	"github.com/spf13/cobra"
)

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage database backups",
		Long: `Create, list, restore, and delete database backups.

Backups let you save the current state of your balances before a risky
change and go back to it if needed. "reconcile --all" takes one
automatically.`,
		Example: `  # Back up before importing a year of statements
  balances backup create --tag pre-2024-import

  # List all backups
  balances backup list

  # Restore from a backup
  balances backup restore pre-2024-import`,
	}

	cmd.AddCommand(createBackupCmd())
	cmd.AddCommand(listBackupsCmd())
	cmd.AddCommand(restoreBackupCmd())
	cmd.AddCommand(deleteBackupCmd())

	return cmd
}

func createBackupCmd() *cobra.Command {
	var tag, description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new backup",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			manager, err := newBackupManager(store)
			if err != nil {
				return err
			}

			info, err := manager.Create(ctx, tag, description)
			if err != nil {
				return fmt.Errorf("failed to create backup: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Created backup %s (%s)\n",
				cli.SuccessStyle.Render(cli.SuccessIcon),
				cli.InfoStyle.Render(info.ID),
				formatFileSize(info.FileSize))
			if info.Description != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  Description: %s\n", info.Description)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Backup tag/name (auto-generated if not provided)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Description of the backup")

	return cmd
}

func listBackupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all backups",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			manager, err := newBackupManager(store)
			if err != nil {
				return err
			}

			backups, err := manager.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list backups: %w", err)
			}

			if len(backups) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("No backups found."))
				return nil
			}

			rows := make([][]string, 0, len(backups))
			for _, b := range backups {
				kind := "manual"
				if b.IsAuto {
					kind = "auto"
				}
				rows = append(rows, []string{
					b.ID,
					formatRelativeTime(b.CreatedAt),
					formatFileSize(b.FileSize),
					fmt.Sprintf("%d", b.Accounts),
					fmt.Sprintf("%d", b.Snapshots),
					fmt.Sprintf("%d", b.IncomeEntries),
					kind,
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTable(
				[]string{"Name", "Created", "Size", "Accounts", "Snapshots", "Income", "Type"},
				rows,
				3, 4, 5,
			))
			return nil
		},
	}
}

func restoreBackupCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "restore <backup-id>",
		Short: "Restore database from a backup",
		Long:  `Replace the current database with a backup.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			backupID := args[0]
			out := cmd.OutOrStdout()

			if !force {
				fmt.Fprintf(out, "%s This will replace your current database with backup %s.\n",
					cli.WarningStyle.Render(cli.WarningIcon),
					cli.InfoStyle.Render(backupID))

				ok, err := cli.Confirm(ctx, cli.NewNonBlockingReader(cmd.InOrStdin()), out, "Continue?")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, cli.SubtleStyle.Render("Restore cancelled."))
					return nil
				}
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			manager, err := newBackupManager(store)
			if err != nil {
				_ = store.Close()
				return err
			}

			// Restore closes the store's database handle itself.
			if err := manager.Restore(ctx, backupID); err != nil {
				return fmt.Errorf("failed to restore backup: %w", err)
			}

			fmt.Fprintf(out, "%s Restored from backup %s\n",
				cli.SuccessStyle.Render(cli.SuccessIcon),
				cli.InfoStyle.Render(backupID))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

func deleteBackupCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <backup-id>",
		Short: "Delete a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			backupID := args[0]
			out := cmd.OutOrStdout()

			if !force {
				ok, err := cli.Confirm(ctx, cli.NewNonBlockingReader(cmd.InOrStdin()), out,
					fmt.Sprintf("Permanently delete backup %s?", backupID))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, cli.SubtleStyle.Render("Deletion cancelled."))
					return nil
				}
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			manager, err := newBackupManager(store)
			if err != nil {
				return err
			}
			if err := manager.Delete(ctx, backupID); err != nil {
				return fmt.Errorf("failed to delete backup: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted backup %s\n",
				cli.SuccessStyle.Render(cli.SuccessIcon),
				cli.InfoStyle.Render(backupID))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

