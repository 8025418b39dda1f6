package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"finance/internal/core"
)

func categoriesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage categories",
	}
	cmd.AddCommand(listCategoriesCmd(a))
	cmd.AddCommand(addCategoryCmd(a))
	cmd.AddCommand(deleteCategoryCmd(a))
	return cmd
}

func listCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			cats, err := b.Ledger.Categories(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}
			if len(cats) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), SubtleStyle.Render("No categories found. Use 'financectl categories add' to create one."))
				return nil
			}

			t := newTable(cmd.OutOrStdout(), "ID", "Name", "Color", "Icon")
			for _, c := range cats {
				t.row(c.ID, c.Name, c.Color, c.Icon)
			}
			return t.flush()
		},
	}
}

func addCategoryCmd(a *app) *cobra.Command {
	var color, icon string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			created, err := b.Ledger.AddCategory(cmd.Context(), core.Category{Name: args[0], Color: color, Icon: icon})
			if err != nil {
				return fmt.Errorf("failed to add category: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render(fmt.Sprintf("Added category %q (%s)", created.Name, created.ID)))
			return nil
		},
	}
	cmd.Flags().StringVar(&color, "color", "#808080", "hex color (#rrggbb)")
	cmd.Flags().StringVar(&icon, "icon", "", "icon name")
	return cmd
}

func deleteCategoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a category that no transaction or budget uses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := b.Ledger.DeleteCategory(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete category: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Deleted category "+args[0]))
			return nil
		},
	}
}
