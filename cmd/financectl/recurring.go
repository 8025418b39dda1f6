package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func reconcileCmd(a *app) *cobra.Command {
	var pf periodFlags
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Bring a year's generated transactions in line with the recurring rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := pf.period(time.Now())
			if err != nil {
				return err
			}
			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			changed, err := b.Recurring.ReconcileYear(cmd.Context(), p.Year)
			if err != nil {
				return fmt.Errorf("failed to reconcile %d: %w", p.Year, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render(fmt.Sprintf("Reconciled %d: %d change(s)", p.Year, changed)))
			return nil
		},
	}
	pf.register(cmd, false)
	return cmd
}

func generateCmd(a *app) *cobra.Command {
	var pf periodFlags
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one month of recurring transactions",
		Long: `Creates at most one transaction per active rule for the month, skipping rules
already generated for it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := pf.period(time.Now())
			if err != nil {
				return err
			}
			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			created, err := b.Recurring.GenerateForMonth(cmd.Context(), p.Year, p.Month)
			if err != nil {
				return fmt.Errorf("failed to generate %s: %w", p, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render(fmt.Sprintf("Generated %d transaction(s) for %s", created, p)))
			return nil
		},
	}
	pf.register(cmd, true)
	return cmd
}

func deleteGeneratedCmd(a *app) *cobra.Command {
	var (
		pf          periodFlags
		ruleID      string
		description string
	)
	cmd := &cobra.Command{
		Use:   "delete-generated",
		Short: "Delete the transactions a recurring rule produced in a year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if ruleID == "" && description == "" {
				return errors.New("either --rule or --description is required")
			}
			p, err := pf.period(time.Now())
			if err != nil {
				return err
			}
			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}

			var removed int
			if ruleID != "" {
				removed, err = b.Recurring.DeleteGeneratedByRule(cmd.Context(), p.Year, ruleID)
			} else {
				removed, err = b.Recurring.DeleteGenerated(cmd.Context(), p.Year, description)
			}
			if err != nil {
				return fmt.Errorf("failed to delete generated transactions: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render(fmt.Sprintf("Deleted %d transaction(s) from %d", removed, p.Year)))
			return nil
		},
	}
	pf.register(cmd, false)
	cmd.Flags().StringVar(&ruleID, "rule", "", "ID of the rule whose transactions to delete")
	cmd.Flags().StringVar(&description, "description", "", "rule description, for transactions without an origin")
	return cmd
}
