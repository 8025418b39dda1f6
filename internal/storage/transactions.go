package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"finance/internal/core"
)

const transactionColumns = "id, date, type, amount_cents, category_id, description, tags, paid, origin_rule_id, origin_period, created_at, updated_at"

func scanTransaction(s interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		t    core.Transaction
		date string
		typ  string
		tags string
		paid int
	)
	err := s.Scan(&t.ID, &date, &typ, &t.Amount.Cents, &t.CategoryID, &t.Description,
		&tags, &paid, &t.OriginRuleID, &t.OriginPeriod, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	if t.Date, err = core.ParseDate(date); err != nil {
		return t, fmt.Errorf("transaction %s: %w", t.ID, err)
	}
	t.Type = core.TransactionType(typ)
	t.Paid = paid != 0
	if tags != "" && tags != "[]" {
		if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
			return t, fmt.Errorf("decode tags of %s: %w", t.ID, err)
		}
	}
	return t, nil
}

func encodeTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// AddTransaction inserts t. Missing ID and timestamps are filled in.
func (r *SQLiteRepository) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = r.ensureID(t.ID)
	now := r.nowMillis()
	if t.CreatedAt == 0 {
		t.CreatedAt = now
	}
	if t.UpdatedAt == 0 {
		t.UpdatedAt = now
	}
	tags, err := encodeTags(t.Tags)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("encode tags: %w", err)
	}

	_, err = r.q.ExecContext(ctx,
		"INSERT INTO transactions ("+transactionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		t.ID, t.Date.String(), string(t.Type), t.Amount.Cents, t.CategoryID, t.Description,
		tags, boolToInt(t.Paid), t.OriginRuleID, t.OriginPeriod, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return t, nil
}

// AddTransactions inserts all transactions in one transaction.
func (r *SQLiteRepository) AddTransactions(ctx context.Context, txs []core.Transaction) error {
	return r.WithTx(ctx, func(tx *SQLiteRepository) error {
		for _, t := range txs {
			if _, err := tx.AddTransaction(ctx, t); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// UpdateTransaction merges patch into the stored transaction and bumps its
// update timestamp. An empty patch leaves the row untouched.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, id string, patch core.TransactionPatch) (core.Transaction, error) {
	var updated core.Transaction
	err := r.WithTx(ctx, func(tx *SQLiteRepository) error {
		current, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		updated = current
		if patch.Empty() {
			return nil
		}
		updated = patch.Apply(current)
		if err := updated.Validate(); err != nil {
			return err
		}
		updated.UpdatedAt = tx.nowMillis()

		tags, err := encodeTags(updated.Tags)
		if err != nil {
			return fmt.Errorf("encode tags: %w", err)
		}
		_, err = tx.q.ExecContext(ctx, `
			UPDATE transactions
			SET date = ?, type = ?, amount_cents = ?, category_id = ?, description = ?, tags = ?,
			    paid = ?, origin_rule_id = ?, origin_period = ?, updated_at = ?
			WHERE id = ?`,
			updated.Date.String(), string(updated.Type), updated.Amount.Cents, updated.CategoryID,
			updated.Description, tags, boolToInt(updated.Paid), updated.OriginRuleID,
			updated.OriginPeriod, updated.UpdatedAt, id)
		if err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		return nil
	})
	return updated, err
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// DeleteTransactions removes the given IDs in one statement and returns how
// many rows were deleted.
func (r *SQLiteRepository) DeleteTransactions(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	res, err := r.q.ExecContext(ctx,
		"DELETE FROM transactions WHERE id IN ("+placeholders(len(ids))+")", args...)
	if err != nil {
		return 0, fmt.Errorf("bulk delete transactions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// TransactionsBetween returns transactions dated within [from, to], both
// inclusive, newest first.
func (r *SQLiteRepository) TransactionsBetween(ctx context.Context, from, to core.Date) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE date BETWEEN ? AND ? ORDER BY date DESC, created_at DESC, id",
		from.String(), to.String())
}

func (r *SQLiteRepository) TransactionsInPeriod(ctx context.Context, p core.Period) ([]core.Transaction, error) {
	return r.TransactionsBetween(ctx, p.Start(), p.End())
}

func (r *SQLiteRepository) TransactionsInYear(ctx context.Context, year int) ([]core.Transaction, error) {
	return r.TransactionsBetween(ctx, core.NewDate(year, 1, 1), core.NewDate(year, 12, 31))
}

// AllTransactions returns every stored transaction ordered by date.
func (r *SQLiteRepository) AllTransactions(ctx context.Context) ([]core.Transaction, error) {
	return r.queryTransactions(ctx, "SELECT "+transactionColumns+" FROM transactions ORDER BY date, created_at, id")
}

// ListTransactions returns the month's transactions narrowed by the filter's
// category and a case-insensitive description search.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	var (
		where = []string{"date BETWEEN ? AND ?"}
		args  = []any{f.Period.Start().String(), f.Period.End().String()}
	)
	if id := strings.TrimSpace(f.CategoryID); id != "" {
		where = append(where, "category_id = ?")
		args = append(args, id)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		where = append(where, `description LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(search)+"%")
	}
	return r.queryTransactions(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE "+strings.Join(where, " AND ")+
			" ORDER BY date DESC, created_at DESC, id",
		args...)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ExpenseTotalsByCategory sums expense amounts per category within p.
func (r *SQLiteRepository) ExpenseTotalsByCategory(ctx context.Context, p core.Period) (map[string]core.Money, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT category_id, SUM(amount_cents)
		FROM transactions
		WHERE type = 'expense' AND date BETWEEN ? AND ?
		GROUP BY category_id`,
		p.Start().String(), p.End().String())
	if err != nil {
		return nil, fmt.Errorf("sum expenses by category: %w", err)
	}
	defer rows.Close()

	out := make(map[string]core.Money)
	for rows.Next() {
		var (
			id    string
			cents int64
		)
		if err := rows.Scan(&id, &cents); err != nil {
			return nil, fmt.Errorf("scan category sum: %w", err)
		}
		out[id] = core.Cents(cents)
	}
	return out, rows.Err()
}

// LedgerVersion returns a counter that triggers bump on every transaction
// insert, update and delete, including writes made by other processes.
func (r *SQLiteRepository) LedgerVersion(ctx context.Context) (int64, error) {
	var v int64
	if err := r.q.QueryRowContext(ctx, "SELECT version FROM ledger_version WHERE id = 1").Scan(&v); err != nil {
		return 0, fmt.Errorf("read ledger version: %w", err)
	}
	return v, nil
}
