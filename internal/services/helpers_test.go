package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"finance/internal/amqp"
	"finance/internal/core"
	"finance/internal/storage"
)

func newTestStore(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "finance.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func expense(date core.Date, cents int64, category string) core.Transaction {
	return core.Transaction{Date: date, Type: core.Expense, Amount: core.Cents(cents), CategoryID: category}
}

func income(date core.Date, cents int64, category string) core.Transaction {
	return core.Transaction{Date: date, Type: core.Income, Amount: core.Cents(cents), CategoryID: category}
}

// recordingPublisher captures published messages.
type recordingPublisher struct {
	mu         sync.Mutex
	events     []*amqp.LedgerEvent
	reconciles []*amqp.ReconcileRequest
	err        error
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, ev *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) PublishReconcileRequest(_ context.Context, req *amqp.ReconcileRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reconciles = append(p.reconciles, req)
	return p.err
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate() { c.calls++ }
