package core

import (
	"testing"
	"time"
)

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Date:       NewDate(2025, 1, 1),
		Type:       Expense,
		Amount:     Cents(100),
		CategoryID: "food",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	zero := good
	zero.Amount = Cents(0)
	if err := zero.Validate(); err != nil {
		t.Fatalf("zero amount should be accepted, got %v", err)
	}

	bads := []Transaction{
		{Date: Date{}, Type: Expense, Amount: Cents(1), CategoryID: "c"},
		{Date: NewDate(2025, 1, 1), Type: "transfer", Amount: Cents(1), CategoryID: "c"},
		{Date: NewDate(2025, 1, 1), Type: Income, Amount: Cents(-1), CategoryID: "c"},
		{Date: NewDate(2025, 1, 1), Type: Income, Amount: Cents(1), CategoryID: " "},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestCategoryValidate(t *testing.T) {
	cases := []struct {
		c  Category
		ok bool
	}{
		{Category{Name: "Food", Color: "#ef4444"}, true},
		{Category{Name: "", Color: "#ef4444"}, false},
		{Category{Name: "Food", Color: "red"}, false},
		{Category{Name: "Food", Color: "#ef44"}, false},
	}
	for i, tc := range cases {
		err := tc.c.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestRecurringRuleValidate(t *testing.T) {
	rule := RecurringRule{Type: Expense, Amount: Cents(150000), CategoryID: "rent", DayOfMonth: 31, Active: true}
	if err := rule.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	for _, day := range []int{0, 32, -1} {
		rule.DayOfMonth = day
		if err := rule.Validate(); err != ErrInvalidDayOfMonth {
			t.Fatalf("day %d: expected ErrInvalidDayOfMonth, got %v", day, err)
		}
	}
}

func TestRecurringRuleDateInClampsToMonthEnd(t *testing.T) {
	rule := RecurringRule{DayOfMonth: 31}
	cases := []struct {
		p    Period
		want string
	}{
		{Period{2024, time.February}, "2024-02-29"},
		{Period{2023, time.February}, "2023-02-28"},
		{Period{2024, time.April}, "2024-04-30"},
		{Period{2024, time.January}, "2024-01-31"},
	}
	for _, tc := range cases {
		if got := rule.DateIn(tc.p).String(); got != tc.want {
			t.Fatalf("%s: got %s, want %s", tc.p, got, tc.want)
		}
	}
}

func TestRecurringDescription(t *testing.T) {
	if got := RecurringDescription("Rent"); got != "[RECURRING] Rent" {
		t.Fatalf("got %q", got)
	}
	if got := RecurringDescription(""); got != "[RECURRING]" {
		t.Fatalf("empty description should be trimmed, got %q", got)
	}
}

func TestTransactionPatchApply(t *testing.T) {
	tx := Transaction{Amount: Cents(100), CategoryID: "a", Description: "x"}
	amount := Cents(250)
	paid := true
	got := TransactionPatch{Amount: &amount, Paid: &paid}.Apply(tx)
	if got.Amount.Cents != 250 || !got.Paid || got.CategoryID != "a" || got.Description != "x" {
		t.Fatalf("unexpected patch result: %+v", got)
	}
	if !(TransactionPatch{}).Empty() {
		t.Fatalf("zero patch should be empty")
	}
}

func TestBudgetValidate(t *testing.T) {
	good := Budget{Year: 2024, Month: 12, CategoryID: "food", Amount: Cents(100)}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid budget rejected: %v", err)
	}

	tests := []struct {
		name string
		b    Budget
		want error
	}{
		{"year zero", Budget{Year: 0, Month: 1, CategoryID: "food", Amount: Cents(1)}, ErrInvalidYear},
		{"year too large", Budget{Year: 10000, Month: 1, CategoryID: "food", Amount: Cents(1)}, ErrInvalidYear},
		{"month zero", Budget{Year: 2024, Month: 0, CategoryID: "food", Amount: Cents(1)}, ErrInvalidMonth},
		{"no category", Budget{Year: 2024, Month: 1, Amount: Cents(1)}, ErrEmptyCategory},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.b.Validate(); err != tc.want {
				t.Errorf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}
