package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finance/internal/amqp"
	"finance/internal/cache"
	"finance/internal/core"
	"finance/internal/services"
	"finance/internal/sheets"
	gsheet "finance/internal/sheets/google"
	"finance/internal/sheets/memory"
	"finance/internal/storage"
)

// Backend is the assembled application: the store, the summary cache, the
// optional message bus and the services built on top of them.
type Backend struct {
	Store     *storage.SQLiteRepository
	Summaries *cache.LRUCache[core.MonthlySummary]
	// AMQP is nil when no broker is configured or reachable.
	AMQP     *amqp.Client
	Notifier *services.Notifier

	Summary     *services.SummaryService
	Ledger      *services.LedgerService
	Recurring   *services.RecurringEngine
	Backup      *services.BackupService
	Preferences *services.Preferences
}

// Close releases the broker connection and the database.
func (b *Backend) Close() error {
	var errs []error
	if b.AMQP != nil {
		errs = append(errs, b.AMQP.Close())
	}
	if b.Store != nil {
		errs = append(errs, b.Store.Close())
	}
	return errors.Join(errs...)
}

// Factory assembles backends from configuration.
type Factory struct {
	logger *slog.Logger
	// dialAMQP is replaced in tests.
	dialAMQP func(url, exchange string) (*amqp.Client, error)
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{
		logger: logger,
		dialAMQP: func(url, exchange string) (*amqp.Client, error) {
			return amqp.NewClient(url, exchange)
		},
	}
}

// Create opens the store, seeds default categories into an empty database
// and wires the services. An unreachable broker is logged and the backend
// continues in local-only mode.
func (f *Factory) Create(ctx context.Context, cfg Config) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	if err := store.SeedCategories(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("seed categories: %w", err)
	}

	b := &Backend{
		Store:     store,
		Summaries: cache.NewLRUCache[core.MonthlySummary](cfg.SummaryCacheSize, cfg.SummaryCacheTTL),
	}

	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := f.dialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing in local-only mode", "error", err)
		} else {
			b.AMQP = client
			publisher = client
			f.logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange)
		}
	}

	b.Summary = services.NewSummaryService(store, b.Summaries)
	b.Notifier = services.NewNotifier(publisher, b.Summary)
	b.Ledger = services.NewLedgerService(store, b.Notifier)
	b.Recurring = services.NewRecurringEngine(store, b.Notifier)
	if publisher == nil {
		// no worker will hear reconcile requests
		b.Notifier.SetLocalReconciler(b.Recurring)
	}
	b.Backup = services.NewBackupService(store, b.Notifier)
	b.Preferences = services.NewPreferences(store)

	f.logger.Info("Initialized SQLite backend",
		"db_path", cfg.SQLiteDBPath,
		"amqp_enabled", b.AMQP != nil)

	return b, nil
}

// ReportWriter returns the writer yearly reports go to. The memory writer is
// returned when no spreadsheet is configured.
func (f *Factory) ReportWriter(ctx context.Context, cfg Config) (sheets.ReportWriter, error) {
	switch cfg.Reports {
	case SheetsReports:
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetBase:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.Info("Initialized Google Sheets report writer", "spreadsheet_id", cfg.GoogleSpreadsheetID)
		return client, nil
	case MemoryReports:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported report target: %s", cfg.Reports)
	}
}
