package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func backupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export or import the whole ledger as JSON",
	}
	cmd.AddCommand(exportBackupCmd(a))
	cmd.AddCommand(importBackupCmd(a))
	return cmd
}

func exportBackupCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a backup file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if output == "-" {
				return b.Backup.Export(cmd.Context(), cmd.OutOrStdout())
			}
			if output == "" {
				output = b.Backup.Filename()
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			if err := b.Backup.Export(cmd.Context(), f); err != nil {
				f.Close()
				return fmt.Errorf("failed to export backup: %w", err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Backup written to "+output))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, - for stdout (default: finance_backup_<date>.json)")
	return cmd
}

func importBackupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the ledger with the contents of a backup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()

			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := b.Backup.Import(cmd.Context(), f); err != nil {
				return fmt.Errorf("failed to import backup: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Backup imported from "+args[0]))
			return nil
		},
	}
}

func resetCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all data and restore the default categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("reset deletes every transaction, budget and rule; pass --yes to confirm")
			}
			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := b.Backup.ResetAll(cmd.Context()); err != nil {
				return fmt.Errorf("failed to reset: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), WarningStyle.Render("Ledger reset to defaults"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}
