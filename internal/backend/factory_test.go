package backend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finance/internal/amqp"
	"finance/internal/config"
	"finance/internal/core"
	"finance/internal/sheets/memory"
	"finance/internal/storage"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		SQLiteDBPath:     filepath.Join(t.TempDir(), "finance.db"),
		SummaryCacheSize: 8,
		SummaryCacheTTL:  time.Minute,
		Reports:          MemoryReports,
	}
}

func quietFactory() *Factory {
	return NewFactory(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	app := &config.Config{
		SQLiteDBPath:     "/tmp/x.db",
		AMQPExchange:     "finance",
		SummaryCacheSize: 4,
		SummaryCacheTTL:  time.Minute,
	}
	cfg, err := FromAppConfig(app)
	require.NoError(t, err)
	assert.Equal(t, MemoryReports, cfg.Reports)

	app.GoogleSpreadsheetID = "sheet"
	cfg, err = FromAppConfig(app)
	require.NoError(t, err)
	assert.Equal(t, SheetsReports, cfg.Reports)
	assert.Equal(t, "sheet", cfg.GoogleSpreadsheetID)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"missing db", func(c *Config) { c.SQLiteDBPath = "" }, false},
		{"amqp without exchange", func(c *Config) { c.AMQPURL = "amqp://localhost" }, false},
		{"unknown target", func(c *Config) { c.Reports = "ftp" }, false},
		{"sheets without id", func(c *Config) { c.Reports = SheetsReports }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(&cfg)
			if tt.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestCreateLocalOnly(t *testing.T) {
	ctx := context.Background()
	b, err := quietFactory().Create(ctx, testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	assert.Nil(t, b.AMQP)

	cats, err := b.Ledger.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, len(storage.DefaultCategories), "empty database is seeded")

	// Writes go through the notifier and purge cached summaries.
	_, err = b.Summary.MonthlySummary(ctx, 2024, time.May)
	require.NoError(t, err)
	assert.Equal(t, 1, b.Summaries.Size())

	_, err = b.Ledger.AddTransaction(ctx, core.Transaction{
		Date: core.NewDate(2024, 5, 2), Type: core.Expense, Amount: core.Cents(100), CategoryID: cats[0].ID,
	})
	require.NoError(t, err)
	assert.Zero(t, b.Summaries.Size())
}

func TestCreateContinuesWhenBrokerIsDown(t *testing.T) {
	f := quietFactory()
	f.dialAMQP = func(string, string) (*amqp.Client, error) { return nil, errors.New("connection refused") }

	cfg := testConfig(t)
	cfg.AMQPURL = "amqp://localhost:5672/"
	cfg.AMQPExchange = "finance"

	b, err := f.Create(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	assert.Nil(t, b.AMQP)
	_, err = b.Ledger.AddCategory(context.Background(), core.Category{Name: "Pets", Color: "#000000"})
	assert.NoError(t, err, "writes work without a broker")
}

func TestCreateRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.SQLiteDBPath = ""
	_, err := quietFactory().Create(context.Background(), cfg)
	assert.Error(t, err)
}

func TestReportWriter(t *testing.T) {
	f := quietFactory()

	w, err := f.ReportWriter(context.Background(), testConfig(t))
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, w)

	cfg := testConfig(t)
	cfg.Reports = "ftp"
	_, err = f.ReportWriter(context.Background(), cfg)
	assert.Error(t, err)
}

func TestCreateLocalOnlyReconcilesOnRuleChange(t *testing.T) {
	ctx := context.Background()
	b, err := quietFactory().Create(ctx, testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	cats, err := b.Ledger.Categories(ctx)
	require.NoError(t, err)

	rule, err := b.Ledger.AddRule(ctx, core.RecurringRule{
		Type: core.Expense, Amount: core.Cents(50000), CategoryID: cats[0].ID,
		Description: "Rent", DayOfMonth: 1, Active: true,
	})
	require.NoError(t, err)

	txs, err := b.Store.TransactionsInYear(ctx, time.Now().Year())
	require.NoError(t, err)
	assert.Len(t, txs, 12, "one generated transaction per month of the current year")
	for _, tx := range txs {
		assert.Equal(t, rule.ID, tx.OriginRuleID)
	}
}

func TestSummaryCacheSeesWritesFromAnotherBackend(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	api, err := quietFactory().Create(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { api.Close() })
	worker, err := quietFactory().Create(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { worker.Close() })

	before, err := api.Summary.MonthlySummary(ctx, 2024, time.March)
	require.NoError(t, err)
	require.Zero(t, before.TotalExpenses.Cents)

	cats, err := worker.Ledger.Categories(ctx)
	require.NoError(t, err)
	_, err = worker.Store.AddRule(ctx, core.RecurringRule{
		Type: core.Expense, Amount: core.Cents(150000), CategoryID: cats[0].ID,
		Description: "Rent", DayOfMonth: 1, Active: true,
	})
	require.NoError(t, err)
	changed, err := worker.Recurring.ReconcileYear(ctx, 2024)
	require.NoError(t, err)
	require.Equal(t, 12, changed)

	after, err := api.Summary.MonthlySummary(ctx, 2024, time.March)
	require.NoError(t, err)
	assert.Equal(t, int64(150000), after.TotalExpenses.Cents)
}
