package storage

import (
	"context"
	"fmt"

	"finance/internal/core"
)

const budgetColumns = "id, year, month, category_id, amount_cents"

func (r *SQLiteRepository) queryBudgets(ctx context.Context, query string, args ...any) ([]core.Budget, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.Year, &b.Month, &b.CategoryID, &b.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// BudgetsForMonth returns the budgets planned for p.
func (r *SQLiteRepository) BudgetsForMonth(ctx context.Context, p core.Period) ([]core.Budget, error) {
	return r.queryBudgets(ctx,
		"SELECT "+budgetColumns+" FROM budgets WHERE year = ? AND month = ? ORDER BY category_id",
		p.Year, int(p.Month))
}

func (r *SQLiteRepository) AllBudgets(ctx context.Context) ([]core.Budget, error) {
	return r.queryBudgets(ctx, "SELECT "+budgetColumns+" FROM budgets ORDER BY year, month, category_id")
}

// UpsertBudget stores the planned amount for (year, month, category). The
// insert-or-update is a single statement, so two writers cannot create
// duplicate rows for the same triple.
func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	b.ID = r.ensureID(b.ID)
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO budgets (`+budgetColumns+`) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (year, month, category_id) DO UPDATE SET amount_cents = excluded.amount_cents
		RETURNING id`,
		b.ID, b.Year, b.Month, b.CategoryID, b.Amount.Cents).Scan(&b.ID)
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}
	return b, nil
}

// AddBudgets upserts all budgets in one transaction.
func (r *SQLiteRepository) AddBudgets(ctx context.Context, budgets []core.Budget) error {
	return r.WithTx(ctx, func(tx *SQLiteRepository) error {
		for _, b := range budgets {
			if _, err := tx.UpsertBudget(ctx, b); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, "DELETE FROM budgets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("budget %s: %w", id, core.ErrNotFound)
	}
	return nil
}
