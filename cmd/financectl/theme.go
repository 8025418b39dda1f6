package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func themeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [light|dark|toggle]",
		Short:     "Show or change the stored theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"light", "dark", "toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var theme string
			switch {
			case len(args) == 0:
				theme, err = b.Preferences.Theme(ctx)
			case args[0] == "toggle":
				theme, err = b.Preferences.ToggleTheme(ctx)
			default:
				theme = args[0]
				err = b.Preferences.SetTheme(ctx, theme)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), theme)
			return nil
		},
	}
}
