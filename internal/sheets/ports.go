package sheets

import (
	"context"
	"time"

	"finance/internal/core"
)

// Ports for outbound adapters.
type (
	// ReportWriter publishes a yearly report, replacing any previous copy.
	ReportWriter interface {
		WriteYearReport(ctx context.Context, r YearReport) error
	}
)

// ReportRow is one line of a yearly report. Amounts are in currency units.
type ReportRow struct {
	Label    string
	Incomes  core.Money
	Expenses core.Money
	Balance  core.Money
}

// YearReport has one row per calendar month plus a totals row.
type YearReport struct {
	Year   int
	Months [12]ReportRow
	Total  ReportRow
}

// ReportHeader is the first row written to the sheet.
var ReportHeader = []any{"Month", "Incomes", "Expenses", "Balance"}

// BuildYearReport turns a yearly series into report rows.
func BuildYearReport(year int, series core.YearSeries) YearReport {
	r := YearReport{Year: year, Total: ReportRow{Label: "Total"}}
	for i, mt := range series {
		row := ReportRow{
			Label:    time.Month(i + 1).String(),
			Incomes:  mt.Incomes,
			Expenses: mt.Expenses,
			Balance:  mt.Incomes.Sub(mt.Expenses),
		}
		r.Months[i] = row
		r.Total.Incomes = r.Total.Incomes.Add(row.Incomes)
		r.Total.Expenses = r.Total.Expenses.Add(row.Expenses)
	}
	r.Total.Balance = r.Total.Incomes.Sub(r.Total.Expenses)
	return r
}

// Values renders the report as sheet cells: header, twelve months, total.
func (r YearReport) Values() [][]any {
	out := make([][]any, 0, 14)
	out = append(out, ReportHeader)
	for _, row := range r.Months {
		out = append(out, row.cells())
	}
	return append(out, r.Total.cells())
}

func (row ReportRow) cells() []any {
	return []any{row.Label, row.Incomes.String(), row.Expenses.String(), row.Balance.String()}
}
