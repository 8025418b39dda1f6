package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"finance/internal/cache"
	"finance/internal/core"
)

// LedgerReader is the read side of the transaction store used by the
// aggregation engine.
type LedgerReader interface {
	TransactionsInPeriod(ctx context.Context, p core.Period) ([]core.Transaction, error)
	TransactionsInYear(ctx context.Context, year int) ([]core.Transaction, error)
	BudgetsForMonth(ctx context.Context, p core.Period) ([]core.Budget, error)
	ExpenseTotalsByCategory(ctx context.Context, p core.Period) (map[string]core.Money, error)
}

// LedgerVersioner is implemented by stores that expose a counter bumped on
// every transaction write, whichever process made it.
type LedgerVersioner interface {
	LedgerVersion(ctx context.Context) (int64, error)
}

// SummaryService computes monthly summaries, yearly series and budget status.
type SummaryService struct {
	store   LedgerReader
	version LedgerVersioner
	cache   cache.Cache[core.MonthlySummary]
}

// NewSummaryService creates the aggregation engine. summaries may be nil to
// disable memoisation. When store is a LedgerVersioner, cached summaries are
// keyed on the ledger version so writes from other processes (the worker,
// financectl) are never hidden by the cache.
func NewSummaryService(store LedgerReader, summaries cache.Cache[core.MonthlySummary]) *SummaryService {
	s := &SummaryService{store: store, cache: summaries}
	if v, ok := store.(LedgerVersioner); ok {
		s.version = v
	}
	return s
}

// cacheKey returns the key for p, or false when the summary must not be
// cached.
func (s *SummaryService) cacheKey(ctx context.Context, p core.Period) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	if s.version == nil {
		return p.String(), true
	}
	v, err := s.version.LedgerVersion(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Ledger version unavailable, bypassing summary cache", "error", err)
		return "", false
	}
	return fmt.Sprintf("%s@%d", p, v), true
}

// MonthlySummary returns totals, balance, variation and top categories for
// the given month, compared against the month before it.
func (s *SummaryService) MonthlySummary(ctx context.Context, year int, month time.Month) (core.MonthlySummary, error) {
	p := core.Period{Year: year, Month: month}
	if err := p.Validate(); err != nil {
		return core.MonthlySummary{}, err
	}

	key, cacheable := s.cacheKey(ctx, p)
	if cacheable {
		if cached, ok := s.cache.Get(key); ok {
			return cached, nil
		}
	}

	var current, previous []core.Transaction
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs, err := s.store.TransactionsInPeriod(gctx, p)
		if err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
		current = txs
		return nil
	})
	g.Go(func() error {
		prev := p.Prev()
		txs, err := s.store.TransactionsInPeriod(gctx, prev)
		if err != nil {
			return fmt.Errorf("load %s: %w", prev, err)
		}
		previous = txs
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.MonthlySummary{}, err
	}

	summary := Summarize(current, previous)
	if cacheable {
		s.cache.Set(key, summary)
	}
	return summary, nil
}

// YearlySeries returns incomes and expenses per calendar month of year.
func (s *SummaryService) YearlySeries(ctx context.Context, year int) (core.YearSeries, error) {
	txs, err := s.store.TransactionsInYear(ctx, year)
	if err != nil {
		return core.YearSeries{}, fmt.Errorf("load year %d: %w", year, err)
	}
	return BucketByMonth(txs), nil
}

// BudgetStatus pairs every budget of the month with the expenses recorded
// against its category.
func (s *SummaryService) BudgetStatus(ctx context.Context, year int, month time.Month) ([]core.BudgetStatus, error) {
	p := core.Period{Year: year, Month: month}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	budgets, err := s.store.BudgetsForMonth(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("load budgets: %w", err)
	}
	spent, err := s.store.ExpenseTotalsByCategory(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("load expense totals: %w", err)
	}

	out := make([]core.BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		used := spent[b.CategoryID]
		out = append(out, core.BudgetStatus{
			Budget:    b,
			Spent:     used,
			Remaining: b.Amount.Sub(used),
		})
	}
	return out, nil
}

// Invalidate drops memoised summaries. Called after every ledger write.
func (s *SummaryService) Invalidate() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

// Summarize builds a monthly summary from the transactions of a month and of
// the month before it.
func Summarize(current, previous []core.Transaction) core.MonthlySummary {
	cur := totals(current)
	prev := totals(previous)

	summary := core.MonthlySummary{
		TotalIncomes:    cur.Incomes,
		TotalExpenses:   cur.Expenses,
		Balance:         cur.Incomes.Sub(cur.Expenses),
		PreviousBalance: prev.Incomes.Sub(prev.Expenses),
		TopCategories:   topCategories(current, cur.Expenses),
	}
	if prev.Expenses.Cents > 0 {
		diff := float64(cur.Expenses.Cents - prev.Expenses.Cents)
		summary.Variation = diff / float64(prev.Expenses.Cents) * 100
	}
	return summary
}

// BucketByMonth sums incomes and expenses into twelve monthly buckets,
// January first. Transactions are bucketed by month only, so callers pass a
// single year's worth.
func BucketByMonth(txs []core.Transaction) core.YearSeries {
	var series core.YearSeries
	for _, t := range txs {
		i := int(t.Date.Month()) - 1
		if i < 0 || i > 11 {
			continue
		}
		switch t.Type {
		case core.Income:
			series[i].Incomes = series[i].Incomes.Add(t.Amount)
		case core.Expense:
			series[i].Expenses = series[i].Expenses.Add(t.Amount)
		}
	}
	return series
}

func totals(txs []core.Transaction) core.MonthTotals {
	var mt core.MonthTotals
	for _, t := range txs {
		switch t.Type {
		case core.Income:
			mt.Incomes = mt.Incomes.Add(t.Amount)
		case core.Expense:
			mt.Expenses = mt.Expenses.Add(t.Amount)
		}
	}
	return mt
}

func topCategories(txs []core.Transaction, totalExpenses core.Money) []core.CategoryShare {
	byCategory := make(map[string]core.Money)
	for _, t := range txs {
		if t.Type != core.Expense {
			continue
		}
		byCategory[t.CategoryID] = byCategory[t.CategoryID].Add(t.Amount)
	}

	shares := make([]core.CategoryShare, 0, len(byCategory))
	for id, amount := range byCategory {
		share := core.CategoryShare{CategoryID: id, Amount: amount}
		if totalExpenses.Cents > 0 {
			share.Percentage = float64(amount.Cents) / float64(totalExpenses.Cents) * 100
		}
		shares = append(shares, share)
	}

	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Amount.Cents != shares[j].Amount.Cents {
			return shares[i].Amount.Cents > shares[j].Amount.Cents
		}
		return shares[i].CategoryID < shares[j].CategoryID
	})
	return shares
}
