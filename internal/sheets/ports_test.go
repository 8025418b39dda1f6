package sheets

import (
	"testing"

	"finance/internal/core"
)

func TestBuildYearReport(t *testing.T) {
	var series core.YearSeries
	series[0] = core.MonthTotals{Incomes: core.Cents(300000), Expenses: core.Cents(150000)}
	series[11] = core.MonthTotals{Incomes: core.Cents(0), Expenses: core.Cents(2550)}

	r := BuildYearReport(2024, series)

	if r.Months[0].Label != "January" || r.Months[11].Label != "December" {
		t.Fatalf("unexpected labels %q, %q", r.Months[0].Label, r.Months[11].Label)
	}
	if r.Months[11].Balance.Cents != -2550 {
		t.Errorf("December balance = %d, want -2550", r.Months[11].Balance.Cents)
	}
	if r.Total.Incomes.Cents != 300000 || r.Total.Expenses.Cents != 152550 || r.Total.Balance.Cents != 147450 {
		t.Errorf("unexpected totals %+v", r.Total)
	}

	values := r.Values()
	if len(values) != 14 {
		t.Fatalf("len(Values()) = %d, want 14", len(values))
	}
	if got := values[1]; got[0] != "January" || got[1] != "3000.00" || got[3] != "1500.00" {
		t.Errorf("January row = %v", got)
	}
	if got := values[13]; got[0] != "Total" || got[3] != "1474.50" {
		t.Errorf("total row = %v", got)
	}
}
