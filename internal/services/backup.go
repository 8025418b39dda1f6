package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"finance/internal/amqp"
	"finance/internal/core"
	applog "finance/internal/log"
	"finance/internal/storage"
)

// BackupVersion is written into every export. Documents below version 2
// come from the browser app: numeric ids and budget months counted 0-11.
const BackupVersion = 2

// referenceFields hold record ids and may be JSON numbers in legacy backups.
var referenceFields = []string{"id", "categoryId", "originRuleId"}

// Snapshot is the JSON document produced by Export and read by Import.
type Snapshot struct {
	Transactions   []core.Transaction   `json:"transactions"`
	Categories     []core.Category      `json:"categories"`
	Budgets        []core.Budget        `json:"budgets"`
	RecurringRules []core.RecurringRule `json:"recurringRules"`
	ExportedAt     string               `json:"exportedAt"`
	Version        int                  `json:"version"`
}

// BackupService exports, imports and resets the whole store.
type BackupService struct {
	store  *storage.SQLiteRepository
	notify *Notifier
	now    func() time.Time
}

func NewBackupService(store *storage.SQLiteRepository, notify *Notifier) *BackupService {
	return &BackupService{store: store, notify: notify, now: time.Now}
}

// Filename suggests a name for an export taken now.
func (s *BackupService) Filename() string {
	return "finance_backup_" + s.now().UTC().Format("2006-01-02") + ".json"
}

// Snapshot reads every table inside one transaction.
func (s *BackupService) Snapshot(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{
		ExportedAt: s.now().UTC().Format(time.RFC3339),
		Version:    BackupVersion,
	}
	err := s.store.WithTx(ctx, func(tx *storage.SQLiteRepository) error {
		var err error
		if snap.Transactions, err = tx.AllTransactions(ctx); err != nil {
			return fmt.Errorf("read transactions: %w", err)
		}
		if snap.Categories, err = tx.ListCategories(ctx); err != nil {
			return fmt.Errorf("read categories: %w", err)
		}
		if snap.Budgets, err = tx.AllBudgets(ctx); err != nil {
			return fmt.Errorf("read budgets: %w", err)
		}
		if snap.RecurringRules, err = tx.ListRules(ctx); err != nil {
			return fmt.Errorf("read recurring rules: %w", err)
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}

	// empty tables export as [] rather than null
	if snap.Transactions == nil {
		snap.Transactions = []core.Transaction{}
	}
	if snap.Categories == nil {
		snap.Categories = []core.Category{}
	}
	if snap.Budgets == nil {
		snap.Budgets = []core.Budget{}
	}
	if snap.RecurringRules == nil {
		snap.RecurringRules = []core.RecurringRule{}
	}
	return snap, nil
}

// Export writes the snapshot as indented JSON.
func (s *BackupService) Export(ctx context.Context, w io.Writer) error {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	slog.InfoContext(ctx, "Backup exported",
		applog.FieldComponent, applog.ComponentLedger,
		applog.FieldOperation, applog.OpExport,
		"transactions", len(snap.Transactions),
		"categories", len(snap.Categories),
		"budgets", len(snap.Budgets),
		"rules", len(snap.RecurringRules))
	return nil
}

// Import replaces the whole store with the backup read from r. Documents
// without categories or transactions are rejected with core.ErrInvalidBackup
// and leave the store untouched.
func (s *BackupService) Import(ctx context.Context, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	snap, err := decodeSnapshot(data)
	if err != nil {
		return err
	}

	err = s.store.WithTx(ctx, func(tx *storage.SQLiteRepository) error {
		if err := tx.Reset(ctx); err != nil {
			return err
		}
		if err := tx.AddCategories(ctx, snap.Categories); err != nil {
			return fmt.Errorf("restore categories: %w", err)
		}
		if err := tx.AddTransactions(ctx, snap.Transactions); err != nil {
			return fmt.Errorf("restore transactions: %w", err)
		}
		if err := tx.AddBudgets(ctx, snap.Budgets); err != nil {
			return fmt.Errorf("restore budgets: %w", err)
		}
		if err := tx.AddRules(ctx, snap.RecurringRules); err != nil {
			return fmt.Errorf("restore recurring rules: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Backup imported",
		applog.FieldComponent, applog.ComponentLedger,
		applog.FieldOperation, applog.OpImport,
		"version", snap.Version,
		"transactions", len(snap.Transactions),
		"categories", len(snap.Categories),
		"budgets", len(snap.Budgets),
		"rules", len(snap.RecurringRules))
	s.notify.Changed(ctx, amqp.EntityLedger, amqp.OpImported, "", "")
	return nil
}

func decodeSnapshot(data []byte) (Snapshot, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", core.ErrInvalidBackup, err)
	}
	for _, required := range []string{"categories", "transactions"} {
		raw, ok := keys[required]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return Snapshot{}, fmt.Errorf("%w: missing %q", core.ErrInvalidBackup, required)
		}
	}

	var version int
	if raw, ok := keys["version"]; ok {
		// unparsable versions count as legacy
		_ = json.Unmarshal(raw, &version)
	}
	legacy := version < BackupVersion

	for _, table := range []string{"categories", "transactions", "budgets", "recurringRules"} {
		raw, ok := keys[table]
		if !ok {
			continue
		}
		normalized, err := normalizeRecords(raw, legacy && table == "budgets")
		if err != nil {
			return Snapshot{}, fmt.Errorf("%w: %s: %v", core.ErrInvalidBackup, table, err)
		}
		keys[table] = normalized
	}
	delete(keys, "version")

	rebuilt, err := json.Marshal(keys)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", core.ErrInvalidBackup, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(rebuilt, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", core.ErrInvalidBackup, err)
	}
	snap.Version = version
	for i, c := range snap.Categories {
		if err := c.Validate(); err != nil {
			return Snapshot{}, fmt.Errorf("%w: category %d: %v", core.ErrInvalidBackup, i, err)
		}
	}
	for i, t := range snap.Transactions {
		if err := t.Validate(); err != nil {
			return Snapshot{}, fmt.Errorf("%w: transaction %d: %v", core.ErrInvalidBackup, i, err)
		}
	}
	for i, b := range snap.Budgets {
		if err := b.Validate(); err != nil {
			return Snapshot{}, fmt.Errorf("%w: budget %d: %v", core.ErrInvalidBackup, i, err)
		}
	}
	for i, rule := range snap.RecurringRules {
		if err := rule.Validate(); err != nil {
			return Snapshot{}, fmt.Errorf("%w: recurring rule %d: %v", core.ErrInvalidBackup, i, err)
		}
	}
	return snap, nil
}

// normalizeRecords turns numeric reference ids into strings and, for legacy
// budgets, shifts 0-11 months to 1-12.
func normalizeRecords(raw json.RawMessage, shiftMonth bool) (json.RawMessage, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return raw, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, err
	}

	for i, rec := range records {
		for _, field := range referenceFields {
			if n, ok := rec[field].(json.Number); ok {
				rec[field] = n.String()
			}
		}
		if shiftMonth {
			n, ok := rec["month"].(json.Number)
			if !ok {
				return nil, fmt.Errorf("record %d: month is not a number", i)
			}
			m, err := n.Int64()
			if err != nil {
				return nil, fmt.Errorf("record %d: month: %w", i, err)
			}
			rec["month"] = m + 1
		}
	}
	return json.Marshal(records)
}

// ResetAll wipes the store and seeds the default categories.
func (s *BackupService) ResetAll(ctx context.Context) error {
	err := s.store.WithTx(ctx, func(tx *storage.SQLiteRepository) error {
		if err := tx.Reset(ctx); err != nil {
			return err
		}
		return tx.SeedCategories(ctx)
	})
	if err != nil {
		return err
	}
	s.notify.Changed(ctx, amqp.EntityLedger, amqp.OpReset, "", "")
	return nil
}
