package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finance/internal/amqp"
	"finance/internal/core"
	applog "finance/internal/log"
	"finance/internal/storage"
)

// RecurringEngine expands active recurring rules into transactions.
type RecurringEngine struct {
	store  *storage.SQLiteRepository
	notify *Notifier
}

func NewRecurringEngine(store *storage.SQLiteRepository, notify *Notifier) *RecurringEngine {
	return &RecurringEngine{store: store, notify: notify}
}

// ReconcileYear makes every active rule own exactly one transaction in each
// month of year. Missing entries are created, drifted ones are rewritten from
// the rule. It returns the number of created or updated transactions, so a
// second run without rule changes returns 0.
func (e *RecurringEngine) ReconcileYear(ctx context.Context, year int) (int, error) {
	changes := 0
	err := e.store.WithTx(ctx, func(tx *storage.SQLiteRepository) error {
		rules, err := tx.ActiveRules(ctx)
		if err != nil {
			return fmt.Errorf("load active rules: %w", err)
		}
		existing, err := tx.TransactionsInYear(ctx, year)
		if err != nil {
			return fmt.Errorf("load transactions of %d: %w", year, err)
		}

		idx := newGeneratedIndex(existing)
		for _, rule := range rules {
			for _, p := range core.MonthsOf(year) {
				want := generatedFor(rule, p)

				current, ok := idx.claim(rule.ID, p, want.Description)
				if !ok {
					if _, err := tx.AddTransaction(ctx, want); err != nil {
						return fmt.Errorf("create %s for rule %s: %w", p, rule.ID, err)
					}
					changes++
					continue
				}

				patch := driftPatch(current, want)
				if patch.Empty() {
					continue
				}
				if _, err := tx.UpdateTransaction(ctx, current.ID, patch); err != nil {
					return fmt.Errorf("update %s for rule %s: %w", p, rule.ID, err)
				}
				changes++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Recurring reconciliation complete",
		applog.FieldComponent, applog.ComponentRecurring, applog.FieldYear, year, applog.FieldChanged, changes)
	if changes > 0 {
		e.notify.Changed(ctx, amqp.EntityTransaction, amqp.OpUpdated, "", fmt.Sprintf("%04d", year))
	}
	return changes, nil
}

// GenerateForMonth is the marker-based variant: each active rule produces at
// most one transaction per month, and the rule remembers the last month it
// generated for. Rules that already own a transaction for the month are only
// stamped.
func (e *RecurringEngine) GenerateForMonth(ctx context.Context, year int, month time.Month) (int, error) {
	p := core.Period{Year: year, Month: month}
	if err := p.Validate(); err != nil {
		return 0, err
	}

	created := 0
	err := e.store.WithTx(ctx, func(tx *storage.SQLiteRepository) error {
		rules, err := tx.ActiveRules(ctx)
		if err != nil {
			return fmt.Errorf("load active rules: %w", err)
		}
		existing, err := tx.TransactionsInPeriod(ctx, p)
		if err != nil {
			return fmt.Errorf("load transactions of %s: %w", p, err)
		}
		idx := newGeneratedIndex(existing)

		marker := p.String()
		for _, rule := range rules {
			if rule.LastGeneratedFor == marker {
				continue
			}
			if _, ok := idx.byOrigin[originKey(rule.ID, p)]; !ok {
				if _, err := tx.AddTransaction(ctx, generatedFor(rule, p)); err != nil {
					return fmt.Errorf("create %s for rule %s: %w", p, rule.ID, err)
				}
				created++
			}
			if _, err := tx.UpdateRule(ctx, rule.ID, core.RulePatch{LastGeneratedFor: &marker}); err != nil {
				return fmt.Errorf("stamp rule %s: %w", rule.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Recurring generation complete",
		applog.FieldComponent, applog.ComponentRecurring,
		applog.FieldOperation, applog.OpGenerate,
		applog.FieldPeriod, p.String(),
		"created", created)
	if created > 0 {
		e.notify.Changed(ctx, amqp.EntityTransaction, amqp.OpCreated, "", p.String())
	}
	return created, nil
}

// DeleteGenerated removes every transaction of year whose description is the
// generated description of ruleDescription. It returns the number removed.
func (e *RecurringEngine) DeleteGenerated(ctx context.Context, year int, ruleDescription string) (int, error) {
	target := core.RecurringDescription(ruleDescription)
	return e.deleteMatching(ctx, year, func(t core.Transaction) bool {
		return t.Description == target
	})
}

// DeleteGeneratedByRule removes the transactions of year that rule ruleID
// produced.
func (e *RecurringEngine) DeleteGeneratedByRule(ctx context.Context, year int, ruleID string) (int, error) {
	if ruleID == "" {
		return 0, nil
	}
	return e.deleteMatching(ctx, year, func(t core.Transaction) bool {
		return t.OriginRuleID == ruleID
	})
}

func (e *RecurringEngine) deleteMatching(ctx context.Context, year int, match func(core.Transaction) bool) (int, error) {
	var removed int
	err := e.store.WithTx(ctx, func(tx *storage.SQLiteRepository) error {
		txs, err := tx.TransactionsInYear(ctx, year)
		if err != nil {
			return fmt.Errorf("load transactions of %d: %w", year, err)
		}
		var ids []string
		for _, t := range txs {
			if match(t) {
				ids = append(ids, t.ID)
			}
		}
		removed, err = tx.DeleteTransactions(ctx, ids)
		return err
	})
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		slog.InfoContext(ctx, "Generated transactions deleted",
			applog.FieldComponent, applog.ComponentRecurring,
			applog.FieldOperation, applog.OpDelete,
			applog.FieldYear, year,
			"count", removed)
		e.notify.Changed(ctx, amqp.EntityTransaction, amqp.OpDeleted, "", fmt.Sprintf("%04d", year))
	}
	return removed, nil
}

// generatedFor is the transaction rule should own in p.
func generatedFor(rule core.RecurringRule, p core.Period) core.Transaction {
	return core.Transaction{
		Date:         rule.DateIn(p),
		Type:         rule.Type,
		Amount:       rule.Amount,
		CategoryID:   rule.CategoryID,
		Description:  rule.GeneratedDescription(),
		OriginRuleID: rule.ID,
		OriginPeriod: p.String(),
	}
}

// driftPatch returns the fields of current that differ from want. Paid,
// tags and creation time belong to the user and are never touched.
func driftPatch(current, want core.Transaction) core.TransactionPatch {
	var patch core.TransactionPatch
	if !current.Date.Equal(want.Date.Time) {
		patch.Date = &want.Date
	}
	if current.Type != want.Type {
		patch.Type = &want.Type
	}
	if current.Amount != want.Amount {
		patch.Amount = &want.Amount
	}
	if current.CategoryID != want.CategoryID {
		patch.CategoryID = &want.CategoryID
	}
	if current.Description != want.Description {
		patch.Description = &want.Description
	}
	if current.OriginRuleID != want.OriginRuleID {
		patch.OriginRuleID = &want.OriginRuleID
	}
	if current.OriginPeriod != want.OriginPeriod {
		patch.OriginPeriod = &want.OriginPeriod
	}
	return patch
}

func originKey(ruleID string, p core.Period) string {
	return ruleID + "|" + p.String()
}

// generatedIndex finds the transaction a rule owns in a month: first by its
// origin stamp, then by falling back to an unstamped entry with the generated
// description dated inside the month. Each unstamped entry is handed out at
// most once.
type generatedIndex struct {
	byOrigin map[string]core.Transaction
	legacy   map[string][]core.Transaction
}

func newGeneratedIndex(txs []core.Transaction) *generatedIndex {
	idx := &generatedIndex{
		byOrigin: make(map[string]core.Transaction),
		legacy:   make(map[string][]core.Transaction),
	}
	for _, t := range txs {
		switch {
		case t.OriginRuleID != "":
			p, err := core.ParsePeriod(t.OriginPeriod)
			if err != nil {
				continue
			}
			key := originKey(t.OriginRuleID, p)
			if _, dup := idx.byOrigin[key]; !dup {
				idx.byOrigin[key] = t
			}
		case t.Description != "":
			key := t.Description + "|" + t.Date.Period().String()
			idx.legacy[key] = append(idx.legacy[key], t)
		}
	}
	return idx
}

func (idx *generatedIndex) claim(ruleID string, p core.Period, description string) (core.Transaction, bool) {
	if t, ok := idx.byOrigin[originKey(ruleID, p)]; ok {
		return t, true
	}
	key := description + "|" + p.String()
	candidates := idx.legacy[key]
	if len(candidates) == 0 {
		return core.Transaction{}, false
	}
	t := candidates[0]
	idx.legacy[key] = candidates[1:]
	idx.byOrigin[originKey(ruleID, p)] = t
	return t, true
}
