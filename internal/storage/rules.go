package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"finance/internal/core"
	applog "finance/internal/log"
)

const ruleColumns = "id, type, amount_cents, category_id, description, day_of_month, active, last_generated_for"

func scanRule(s interface{ Scan(...any) error }) (core.RecurringRule, error) {
	var (
		rule   core.RecurringRule
		typ    string
		active int
	)
	err := s.Scan(&rule.ID, &typ, &rule.Amount.Cents, &rule.CategoryID, &rule.Description,
		&rule.DayOfMonth, &active, &rule.LastGeneratedFor)
	rule.Type = core.TransactionType(typ)
	rule.Active = active != 0
	return rule, err
}

func (r *SQLiteRepository) queryRules(ctx context.Context, query string, args ...any) ([]core.RecurringRule, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recurring rules: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring rule: %w", err)
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListRules(ctx context.Context) ([]core.RecurringRule, error) {
	return r.queryRules(ctx, "SELECT "+ruleColumns+" FROM recurring_rules ORDER BY day_of_month, description, id")
}

// ActiveRules returns the rules that generate transactions.
func (r *SQLiteRepository) ActiveRules(ctx context.Context) ([]core.RecurringRule, error) {
	return r.queryRules(ctx, "SELECT "+ruleColumns+" FROM recurring_rules WHERE active = 1 ORDER BY day_of_month, description, id")
}

func (r *SQLiteRepository) GetRule(ctx context.Context, id string) (core.RecurringRule, error) {
	rule, err := scanRule(r.q.QueryRowContext(ctx, "SELECT "+ruleColumns+" FROM recurring_rules WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringRule{}, fmt.Errorf("recurring rule %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.RecurringRule{}, fmt.Errorf("get recurring rule: %w", err)
	}
	return rule, nil
}

func (r *SQLiteRepository) AddRule(ctx context.Context, rule core.RecurringRule) (core.RecurringRule, error) {
	rule.ID = r.ensureID(rule.ID)
	_, err := r.q.ExecContext(ctx,
		"INSERT INTO recurring_rules ("+ruleColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		rule.ID, string(rule.Type), rule.Amount.Cents, rule.CategoryID, rule.Description,
		rule.DayOfMonth, boolToInt(rule.Active), rule.LastGeneratedFor)
	if err != nil {
		return core.RecurringRule{}, fmt.Errorf("create recurring rule: %w", err)
	}
	return rule, nil
}

// AddRules inserts all rules in one transaction.
func (r *SQLiteRepository) AddRules(ctx context.Context, rules []core.RecurringRule) error {
	return r.WithTx(ctx, func(tx *SQLiteRepository) error {
		for _, rule := range rules {
			if _, err := tx.AddRule(ctx, rule); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) UpdateRule(ctx context.Context, id string, patch core.RulePatch) (core.RecurringRule, error) {
	var updated core.RecurringRule
	err := r.WithTx(ctx, func(tx *SQLiteRepository) error {
		current, err := tx.GetRule(ctx, id)
		if err != nil {
			return err
		}
		updated = patch.Apply(current)
		if patch.Empty() {
			return nil
		}
		if err := updated.Validate(); err != nil {
			return err
		}
		_, err = tx.q.ExecContext(ctx, `
			UPDATE recurring_rules
			SET type = ?, amount_cents = ?, category_id = ?, description = ?, day_of_month = ?,
			    active = ?, last_generated_for = ?
			WHERE id = ?`,
			string(updated.Type), updated.Amount.Cents, updated.CategoryID, updated.Description,
			updated.DayOfMonth, boolToInt(updated.Active), updated.LastGeneratedFor, id)
		if err != nil {
			return fmt.Errorf("update recurring rule: %w", err)
		}
		return nil
	})
	return updated, err
}

// DeleteRule removes a rule. Transactions it generated stay in place with
// their origin rule reference cleared.
func (r *SQLiteRepository) DeleteRule(ctx context.Context, id string) error {
	return r.WithTx(ctx, func(tx *SQLiteRepository) error {
		res, err := tx.q.ExecContext(ctx, "DELETE FROM recurring_rules WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("delete recurring rule: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("recurring rule %s: %w", id, core.ErrNotFound)
		}

		res, err = tx.q.ExecContext(ctx,
			"UPDATE transactions SET origin_rule_id = '', origin_period = '' WHERE origin_rule_id = ?", id)
		if err != nil {
			return fmt.Errorf("detach generated transactions: %w", err)
		}
		detached, _ := res.RowsAffected()
		slog.InfoContext(ctx, "Recurring rule deleted",
			applog.FieldComponent, applog.ComponentStorage,
			applog.FieldOperation, applog.OpDelete,
			applog.FieldRuleID, id,
			"detached_transactions", detached)
		return nil
	})
}
