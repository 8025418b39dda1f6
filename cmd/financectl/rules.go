package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"finance/internal/core"
)

func rulesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage recurring rules",
	}
	cmd.AddCommand(listRulesCmd(a))
	cmd.AddCommand(addRuleCmd(a))
	cmd.AddCommand(pauseRuleCmd(a))
	cmd.AddCommand(deleteRuleCmd(a))
	return cmd
}

func listRulesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recurring rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			rules, err := b.Ledger.Rules(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get rules: %w", err)
			}
			if len(rules) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), SubtleStyle.Render("No recurring rules."))
				return nil
			}
			names, err := categoryNames(cmd, b)
			if err != nil {
				return err
			}

			t := newTable(cmd.OutOrStdout(), "ID", "Type", "Amount", "Category", "Day", "Active", "Description")
			for _, r := range rules {
				t.row(r.ID, r.Type, r.Amount, names.lookup(r.CategoryID), r.DayOfMonth, r.Active, r.Description)
			}
			return t.flush()
		},
	}
}

func addRuleCmd(a *app) *cobra.Command {
	var (
		kind        string
		amount      string
		categoryID  string
		description string
		day         int
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a recurring rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cents, err := core.ParseDecimalToCents(amount)
			if err != nil {
				return fmt.Errorf("invalid --amount %q: %w", amount, err)
			}
			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			created, err := b.Ledger.AddRule(cmd.Context(), core.RecurringRule{
				Type:        core.TransactionType(kind),
				Amount:      core.Cents(cents),
				CategoryID:  categoryID,
				Description: description,
				DayOfMonth:  day,
				Active:      true,
			})
			if err != nil {
				return fmt.Errorf("failed to add rule: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Added rule "+created.ID))
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "type", string(core.Expense), "income or expense")
	cmd.Flags().StringVar(&amount, "amount", "", "amount, e.g. 12.50")
	cmd.Flags().StringVar(&categoryID, "category", "", "category ID")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().IntVar(&day, "day", 1, "day of month 1-31, clamped to short months")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func pauseRuleCmd(a *app) *cobra.Command {
	var resume bool
	cmd := &cobra.Command{
		Use:   "pause <id>",
		Short: "Pause a recurring rule, or resume it with --resume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			r, err := b.Ledger.SetRuleActive(cmd.Context(), args[0], resume)
			if err != nil {
				return fmt.Errorf("failed to update rule: %w", err)
			}
			state := "paused"
			if r.Active {
				state = "resumed"
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render(fmt.Sprintf("Rule %s %s", r.ID, state)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&resume, "resume", false, "resume instead of pausing")
	return cmd
}

func deleteRuleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a recurring rule, keeping the transactions it generated",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := b.Ledger.DeleteRule(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete rule: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Deleted rule "+args[0]))
			return nil
		},
	}
}
