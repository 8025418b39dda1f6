package services

import (
	"context"
	"fmt"
	"time"

	"finance/internal/amqp"
	"finance/internal/core"
	"finance/internal/storage"
)

// LedgerService validates and applies user writes to categories,
// transactions, budgets and recurring rules, then notifies listeners.
type LedgerService struct {
	store  *storage.SQLiteRepository
	notify *Notifier
	now    func() time.Time
}

func NewLedgerService(store *storage.SQLiteRepository, notify *Notifier) *LedgerService {
	return &LedgerService{store: store, notify: notify, now: time.Now}
}

// Categories

func (s *LedgerService) Categories(ctx context.Context) ([]core.Category, error) {
	return s.store.ListCategories(ctx)
}

func (s *LedgerService) AddCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	created, err := s.store.AddCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}
	s.notify.Changed(ctx, amqp.EntityCategory, amqp.OpCreated, created.ID, "")
	return created, nil
}

func (s *LedgerService) UpdateCategory(ctx context.Context, id string, patch core.CategoryPatch) (core.Category, error) {
	updated, err := s.store.UpdateCategory(ctx, id, patch)
	if err != nil {
		return core.Category{}, err
	}
	s.notify.Changed(ctx, amqp.EntityCategory, amqp.OpUpdated, id, "")
	return updated, nil
}

func (s *LedgerService) DeleteCategory(ctx context.Context, id string) error {
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.notify.Changed(ctx, amqp.EntityCategory, amqp.OpDeleted, id, "")
	return nil
}

// Transactions

func (s *LedgerService) Transactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	if err := f.Period.Validate(); err != nil {
		return nil, err
	}
	return s.store.ListTransactions(ctx, f)
}

func (s *LedgerService) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	created, err := s.store.AddTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.notify.Changed(ctx, amqp.EntityTransaction, amqp.OpCreated, created.ID, created.Date.Period().String())
	return created, nil
}

func (s *LedgerService) UpdateTransaction(ctx context.Context, id string, patch core.TransactionPatch) (core.Transaction, error) {
	updated, err := s.store.UpdateTransaction(ctx, id, patch)
	if err != nil {
		return core.Transaction{}, err
	}
	s.notify.Changed(ctx, amqp.EntityTransaction, amqp.OpUpdated, id, updated.Date.Period().String())
	return updated, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	s.notify.Changed(ctx, amqp.EntityTransaction, amqp.OpDeleted, id, "")
	return nil
}

// DeleteTransactions removes ids in one batch and returns how many existed.
func (s *LedgerService) DeleteTransactions(ctx context.Context, ids []string) (int, error) {
	n, err := s.store.DeleteTransactions(ctx, ids)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.notify.Changed(ctx, amqp.EntityTransaction, amqp.OpDeleted, "", "")
	}
	return n, nil
}

// Budgets

func (s *LedgerService) Budgets(ctx context.Context, p core.Period) ([]core.Budget, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return s.store.BudgetsForMonth(ctx, p)
}

// SetBudget creates the budget for (year, month, category) or replaces its
// amount.
func (s *LedgerService) SetBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	saved, err := s.store.UpsertBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	s.notify.Changed(ctx, amqp.EntityBudget, amqp.OpUpdated, saved.ID, saved.Period().String())
	return saved, nil
}

func (s *LedgerService) DeleteBudget(ctx context.Context, id string) error {
	if err := s.store.DeleteBudget(ctx, id); err != nil {
		return err
	}
	s.notify.Changed(ctx, amqp.EntityBudget, amqp.OpDeleted, id, "")
	return nil
}

// Recurring rules. Every rule change asks the worker to reconcile the
// current year so generated entries follow the rule.

func (s *LedgerService) Rules(ctx context.Context) ([]core.RecurringRule, error) {
	return s.store.ListRules(ctx)
}

func (s *LedgerService) AddRule(ctx context.Context, r core.RecurringRule) (core.RecurringRule, error) {
	if err := r.Validate(); err != nil {
		return core.RecurringRule{}, err
	}
	created, err := s.store.AddRule(ctx, r)
	if err != nil {
		return core.RecurringRule{}, fmt.Errorf("save recurring rule: %w", err)
	}
	s.ruleChanged(ctx, amqp.OpCreated, created.ID)
	return created, nil
}

func (s *LedgerService) UpdateRule(ctx context.Context, id string, patch core.RulePatch) (core.RecurringRule, error) {
	updated, err := s.store.UpdateRule(ctx, id, patch)
	if err != nil {
		return core.RecurringRule{}, err
	}
	s.ruleChanged(ctx, amqp.OpUpdated, id)
	return updated, nil
}

// SetRuleActive pauses or resumes a rule.
func (s *LedgerService) SetRuleActive(ctx context.Context, id string, active bool) (core.RecurringRule, error) {
	return s.UpdateRule(ctx, id, core.RulePatch{Active: &active})
}

// DeleteRule removes the rule. Transactions it generated stay but lose their
// origin reference.
func (s *LedgerService) DeleteRule(ctx context.Context, id string) error {
	if err := s.store.DeleteRule(ctx, id); err != nil {
		return err
	}
	s.ruleChanged(ctx, amqp.OpDeleted, id)
	return nil
}

func (s *LedgerService) ruleChanged(ctx context.Context, op, id string) {
	s.notify.Changed(ctx, amqp.EntityRule, op, id, "")
	if op != amqp.OpDeleted {
		s.notify.RequestReconcile(ctx, s.now().Year())
	}
}
