package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finance/internal/amqp"
	"finance/internal/core"
)

func TestLedgerService_AddTransaction(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	pub := &recordingPublisher{}
	inv := &countingInvalidator{}
	svc := NewLedgerService(store, NewNotifier(pub, inv))

	_, err := svc.AddTransaction(ctx, core.Transaction{Date: core.NewDate(2024, 3, 1), Type: "transfer", CategoryID: "food"})
	assert.ErrorIs(t, err, core.ErrInvalidType)
	assert.Empty(t, pub.events)
	assert.Zero(t, inv.calls)

	created, err := svc.AddTransaction(ctx, expense(core.NewDate(2024, 3, 1), 1250, "food"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.NotZero(t, created.CreatedAt)

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, amqp.EntityTransaction, ev.Entity)
	assert.Equal(t, amqp.OpCreated, ev.Op)
	assert.Equal(t, created.ID, ev.ID)
	assert.Equal(t, "2024-03", ev.Period)
	assert.Equal(t, 1, inv.calls)

	txs, err := svc.Transactions(ctx, core.TransactionFilter{Period: core.Period{Year: 2024, Month: time.March}})
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestLedgerService_PublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewLedgerService(store, NewNotifier(pub, nil))

	_, err := svc.AddCategory(ctx, core.Category{Name: "Books", Color: "#abcdef"})
	require.NoError(t, err)
	assert.Len(t, pub.events, 1)
}

func TestLedgerService_WithoutNotifier(t *testing.T) {
	ctx := context.Background()
	svc := NewLedgerService(newTestStore(t), nil)

	_, err := svc.AddCategory(ctx, core.Category{Name: "Books", Color: "#abcdef"})
	require.NoError(t, err)
}

func TestLedgerService_Categories(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewLedgerService(store, NewNotifier(nil, nil))

	_, err := svc.AddCategory(ctx, core.Category{Name: "", Color: "#abcdef"})
	assert.ErrorIs(t, err, core.ErrEmptyName)

	cat, err := svc.AddCategory(ctx, core.Category{Name: "Food", Color: "#ef4444"})
	require.NoError(t, err)

	_, err = svc.AddTransaction(ctx, expense(core.NewDate(2024, 1, 1), 100, cat.ID))
	require.NoError(t, err)
	assert.ErrorIs(t, svc.DeleteCategory(ctx, cat.ID), core.ErrCategoryInUse)
	assert.ErrorIs(t, svc.DeleteCategory(ctx, "missing"), core.ErrNotFound)

	color := "#000000"
	updated, err := svc.UpdateCategory(ctx, cat.ID, core.CategoryPatch{Color: &color})
	require.NoError(t, err)
	assert.Equal(t, "#000000", updated.Color)
}

func TestLedgerService_Budgets(t *testing.T) {
	ctx := context.Background()
	svc := NewLedgerService(newTestStore(t), nil)

	_, err := svc.SetBudget(ctx, core.Budget{Year: 2024, Month: 13, CategoryID: "food"})
	assert.ErrorIs(t, err, core.ErrInvalidMonth)

	first, err := svc.SetBudget(ctx, core.Budget{Year: 2024, Month: 4, CategoryID: "food", Amount: core.Cents(100)})
	require.NoError(t, err)
	second, err := svc.SetBudget(ctx, core.Budget{Year: 2024, Month: 4, CategoryID: "food", Amount: core.Cents(200)})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	budgets, err := svc.Budgets(ctx, core.Period{Year: 2024, Month: time.April})
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.Equal(t, int64(200), budgets[0].Amount.Cents)

	require.NoError(t, svc.DeleteBudget(ctx, first.ID))
}

func TestLedgerService_RuleChangesRequestReconcile(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	pub := &recordingPublisher{}
	svc := NewLedgerService(store, NewNotifier(pub, nil))
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }

	_, err := svc.AddRule(ctx, core.RecurringRule{Type: core.Expense, CategoryID: "rent", DayOfMonth: 0})
	assert.ErrorIs(t, err, core.ErrInvalidDayOfMonth)

	rule, err := svc.AddRule(ctx, rentRule())
	require.NoError(t, err)
	paused, err := svc.SetRuleActive(ctx, rule.ID, false)
	require.NoError(t, err)
	assert.False(t, paused.Active)
	require.NoError(t, svc.DeleteRule(ctx, rule.ID))

	require.Len(t, pub.reconciles, 2, "create and update request a reconcile, delete does not")
	assert.Equal(t, 2025, pub.reconciles[0].Year)
	require.Len(t, pub.events, 3)
	assert.Equal(t, amqp.OpDeleted, pub.events[2].Op)

	rules, err := svc.Rules(ctx)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestLedgerService_TransactionUpdatesAndDeletes(t *testing.T) {
	ctx := context.Background()
	svc := NewLedgerService(newTestStore(t), nil)

	a, err := svc.AddTransaction(ctx, expense(core.NewDate(2024, 1, 1), 100, "food"))
	require.NoError(t, err)
	b, err := svc.AddTransaction(ctx, expense(core.NewDate(2024, 1, 2), 100, "food"))
	require.NoError(t, err)
	c, err := svc.AddTransaction(ctx, expense(core.NewDate(2024, 1, 3), 100, "food"))
	require.NoError(t, err)

	negative := core.Cents(-1)
	_, err = svc.UpdateTransaction(ctx, a.ID, core.TransactionPatch{Amount: &negative})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	desc := "groceries"
	updated, err := svc.UpdateTransaction(ctx, a.ID, core.TransactionPatch{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "groceries", updated.Description)

	require.NoError(t, svc.DeleteTransaction(ctx, a.ID))
	assert.ErrorIs(t, svc.DeleteTransaction(ctx, a.ID), core.ErrNotFound)

	n, err := svc.DeleteTransactions(ctx, []string{b.ID, c.ID, "missing"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
