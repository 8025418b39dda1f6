package core

// CategoryShare is the spend of one category inside a month.
type CategoryShare struct {
	CategoryID string  `json:"categoryId"`
	Amount     Money   `json:"amount"`
	Percentage float64 `json:"percentage"`
}

// MonthlySummary is the dashboard overview for a single month.
type MonthlySummary struct {
	TotalIncomes    Money           `json:"totalIncomes"`
	TotalExpenses   Money           `json:"totalExpenses"`
	Balance         Money           `json:"balance"`
	PreviousBalance Money           `json:"previousBalance"`
	Variation       float64         `json:"variation"` // percentage
	TopCategories   []CategoryShare `json:"topCategories"`
}

// MonthTotals holds the summed incomes and expenses of one month.
type MonthTotals struct {
	Incomes  Money `json:"incomes"`
	Expenses Money `json:"expenses"`
}

// YearSeries has one bucket per calendar month, index 0 is January.
type YearSeries [12]MonthTotals

// BudgetStatus compares a budget with what was actually spent.
type BudgetStatus struct {
	Budget    Budget `json:"budget"`
	Spent     Money  `json:"spent"`
	Remaining Money  `json:"remaining"`
}
