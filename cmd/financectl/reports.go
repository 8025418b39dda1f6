package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"finance/internal/backend"
	"finance/internal/core"
	"finance/internal/sheets"
)

// periodFlags resolves --year and --month, defaulting to the current month.
type periodFlags struct {
	year  int
	month int
}

func (p *periodFlags) register(cmd *cobra.Command, withMonth bool) {
	cmd.Flags().IntVar(&p.year, "year", 0, "year (default: current year)")
	if withMonth {
		cmd.Flags().IntVar(&p.month, "month", 0, "month 1-12 (default: current month)")
	}
}

func (p *periodFlags) period(now time.Time) (core.Period, error) {
	out := core.Period{Year: p.year, Month: time.Month(p.month)}
	if out.Year == 0 {
		out.Year = now.Year()
	}
	if out.Month == 0 {
		out.Month = now.Month()
	}
	if err := out.Validate(); err != nil {
		return core.Period{}, err
	}
	return out, nil
}

func summaryCmd(a *app) *cobra.Command {
	var pf periodFlags
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show the monthly summary",
		Long:  `Totals, balance, variation against the previous month and the top expense categories.`,
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
			s, err := b.Summary.MonthlySummary(cmd.Context(), p.Year, p.Month)
			if err != nil {
				return fmt.Errorf("failed to compute summary: %w", err)
			}
			names, err := categoryNames(cmd, b)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, TitleStyle.Render("Summary "+p.String()))
			fmt.Fprintf(out, "Incomes:          %s\n", s.TotalIncomes)
			fmt.Fprintf(out, "Expenses:         %s\n", s.TotalExpenses)
			fmt.Fprintf(out, "Balance:          %s\n", s.Balance)
			fmt.Fprintf(out, "Previous balance: %s\n", s.PreviousBalance)
			fmt.Fprintf(out, "Variation:        %.1f%%\n", s.Variation)

			if len(s.TopCategories) == 0 {
				fmt.Fprintln(out, SubtleStyle.Render("No expenses this month."))
				return nil
			}
			fmt.Fprintln(out)
			t := newTable(out, "Category", "Amount", "Share")
			for _, c := range s.TopCategories {
				t.row(names.lookup(c.CategoryID), c.Amount, fmt.Sprintf("%.1f%%", c.Percentage))
			}
			return t.flush()
		},
	}
	pf.register(cmd, true)
	return cmd
}

func seriesCmd(a *app) *cobra.Command {
	var pf periodFlags
	cmd := &cobra.Command{
		Use:   "series",
		Short: "Show incomes and expenses for every month of a year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := pf.period(time.Now())
			if err != nil {
				return err
			}
			report, err := yearReport(cmd, a, p.Year)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), TitleStyle.Render(fmt.Sprintf("Series %d", p.Year)))
			return printReport(cmd, report)
		},
	}
	pf.register(cmd, false)
	return cmd
}

func exportSheetCmd(a *app) *cobra.Command {
	var pf periodFlags
	cmd := &cobra.Command{
		Use:   "export-sheet",
		Short: "Write the yearly report to the configured spreadsheet",
		Long: `Builds the yearly report and writes it to the Google spreadsheet. Without a
configured spreadsheet the report is printed instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := pf.period(time.Now())
			if err != nil {
				return err
			}
			report, err := yearReport(cmd, a, p.Year)
			if err != nil {
				return err
			}

			if !a.cfg.SheetsEnabled() {
				fmt.Fprintln(cmd.OutOrStdout(), WarningStyle.Render("No spreadsheet configured, printing the report."))
				return printReport(cmd, report)
			}

			backendCfg, err := backend.FromAppConfig(a.cfg)
			if err != nil {
				return err
			}
			writer, err := backend.NewFactory(a.logger.Logger).ReportWriter(cmd.Context(), backendCfg)
			if err != nil {
				return err
			}
			if err := writer.WriteYearReport(cmd.Context(), report); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render(fmt.Sprintf("Report %d written to spreadsheet %s", p.Year, a.cfg.GoogleSpreadsheetID)))
			return nil
		},
	}
	pf.register(cmd, false)
	return cmd
}

func yearReport(cmd *cobra.Command, a *app, year int) (sheets.YearReport, error) {
	b, err := a.open(cmd.Context())
	if err != nil {
		return sheets.YearReport{}, err
	}
	series, err := b.Summary.YearlySeries(cmd.Context(), year)
	if err != nil {
		return sheets.YearReport{}, fmt.Errorf("failed to compute series: %w", err)
	}
	return sheets.BuildYearReport(year, series), nil
}

func printReport(cmd *cobra.Command, r sheets.YearReport) error {
	t := newTable(cmd.OutOrStdout(), "Month", "Incomes", "Expenses", "Balance")
	for _, row := range r.Months {
		t.row(row.Label, row.Incomes, row.Expenses, row.Balance)
	}
	t.row(r.Total.Label, r.Total.Incomes, r.Total.Expenses, r.Total.Balance)
	return t.flush()
}

type nameIndex map[string]string

func (n nameIndex) lookup(id string) string {
	if name, ok := n[id]; ok {
		return name
	}
	return id
}

func categoryNames(cmd *cobra.Command, b *backend.Backend) (nameIndex, error) {
	cats, err := b.Ledger.Categories(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	out := make(nameIndex, len(cats))
	for _, c := range cats {
		out[c.ID] = c.Name
	}
	return out, nil
}
