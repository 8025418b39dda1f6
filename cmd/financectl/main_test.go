package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finance/internal/storage"
)

func setupLedger(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "finance.db")
	t.Setenv("SQLITE_DB_PATH", dbPath)
	t.Setenv("AMQP_URL", "")
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")
	return dbPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := &app{}
	root := newRootCmd(a)

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	a.close()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, "financectl %s", strings.Join(args, " "))
	return out
}

func categoryID(t *testing.T, dbPath, name string) string {
	t.Helper()
	store, err := storage.NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	defer store.Close()

	// a fresh database only gets its defaults once the backend starts
	require.NoError(t, store.SeedCategories(context.Background()))
	cats, err := store.ListCategories(context.Background())
	require.NoError(t, err)
	for _, c := range cats {
		if c.Name == name {
			return c.ID
		}
	}
	t.Fatalf("category %q not found", name)
	return ""
}

func TestCategories(t *testing.T) {
	dbPath := setupLedger(t)

	out := mustRun(t, "categories", "list")
	assert.Contains(t, out, "Food")
	assert.Contains(t, out, "Salary")

	out = mustRun(t, "categories", "add", "Books", "--color", "#112233")
	assert.Contains(t, out, `Added category "Books"`)

	id := categoryID(t, dbPath, "Books")
	mustRun(t, "categories", "delete", id)

	out = mustRun(t, "categories", "list")
	assert.NotContains(t, out, "Books")

	_, err := run(t, "categories", "add", "Bad", "--color", "red")
	assert.Error(t, err)
}

func TestRulesReconcileAndReports(t *testing.T) {
	dbPath := setupLedger(t)
	housing := categoryID(t, dbPath, "Housing")

	out := mustRun(t, "rules", "add", "--amount", "500", "--category", housing, "--description", "Rent", "--day", "31")
	assert.Contains(t, out, "Added rule")

	out = mustRun(t, "rules", "list")
	assert.Contains(t, out, "Rent")
	assert.Contains(t, out, "Housing")
	assert.Contains(t, out, "500.00")

	out = mustRun(t, "reconcile", "--year", "2024")
	assert.Contains(t, out, "Reconciled 2024: 12 change(s)")

	out = mustRun(t, "reconcile", "--year", "2024")
	assert.Contains(t, out, "Reconciled 2024: 0 change(s)", "reconcile is idempotent")

	out = mustRun(t, "series", "--year", "2024")
	assert.Contains(t, out, "February")
	assert.Contains(t, out, "6000.00", "yearly expense total")

	out = mustRun(t, "summary", "--year", "2024", "--month", "3")
	assert.Contains(t, out, "Summary 2024-03")
	assert.Contains(t, out, "500.00")
	assert.Contains(t, out, "Housing")
	assert.Contains(t, out, "100.0%")

	out = mustRun(t, "delete-generated", "--year", "2024", "--description", "Rent")
	assert.Contains(t, out, "Deleted 12 transaction(s) from 2024")
}

func TestPauseAndDeleteRule(t *testing.T) {
	dbPath := setupLedger(t)
	food := categoryID(t, dbPath, "Food")

	mustRun(t, "rules", "add", "--amount", "9.99", "--category", food, "--description", "Streaming")

	store, err := storage.NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	rules, err := store.ListRules(context.Background())
	require.NoError(t, err)
	store.Close()
	require.Len(t, rules, 1)
	id := rules[0].ID

	out := mustRun(t, "rules", "pause", id)
	assert.Contains(t, out, "paused")

	out = mustRun(t, "rules", "pause", id, "--resume")
	assert.Contains(t, out, "resumed")

	mustRun(t, "rules", "delete", id)
	out = mustRun(t, "rules", "list")
	assert.Contains(t, out, "No recurring rules.")
}

func TestGenerate(t *testing.T) {
	dbPath := setupLedger(t)
	salary := categoryID(t, dbPath, "Salary")
	mustRun(t, "rules", "add", "--type", "income", "--amount", "2000", "--category", salary, "--description", "Pay")

	out := mustRun(t, "generate", "--year", "2023", "--month", "2")
	assert.Contains(t, out, "Generated 1 transaction(s) for 2023-02")

	out = mustRun(t, "generate", "--year", "2023", "--month", "2")
	assert.Contains(t, out, "Generated 0 transaction(s) for 2023-02")
}

func TestBackupRoundTripAndReset(t *testing.T) {
	setupLedger(t)
	mustRun(t, "categories", "add", "Books")

	file := filepath.Join(t.TempDir(), "backup.json")
	out := mustRun(t, "backup", "export", "-o", file)
	assert.Contains(t, out, "Backup written to "+file)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Books"`)

	_, err = run(t, "reset")
	assert.ErrorContains(t, err, "--yes")

	mustRun(t, "reset", "--yes")
	out = mustRun(t, "categories", "list")
	assert.NotContains(t, out, "Books")

	mustRun(t, "backup", "import", file)
	out = mustRun(t, "categories", "list")
	assert.Contains(t, out, "Books")
}

func TestBackupImportRejectsInvalidFile(t *testing.T) {
	setupLedger(t)
	file := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"budgets": []}`), 0o644))

	_, err := run(t, "backup", "import", file)
	assert.ErrorContains(t, err, "invalid backup")
}

func TestTheme(t *testing.T) {
	setupLedger(t)

	assert.Equal(t, "light\n", mustRun(t, "theme"))
	assert.Equal(t, "dark\n", mustRun(t, "theme", "toggle"))
	assert.Equal(t, "dark\n", mustRun(t, "theme"))
	assert.Equal(t, "light\n", mustRun(t, "theme", "light"))

	_, err := run(t, "theme", "blue")
	assert.Error(t, err)
}

func TestExportSheetWithoutSpreadsheetPrints(t *testing.T) {
	setupLedger(t)

	out := mustRun(t, "export-sheet", "--year", "2024")
	assert.Contains(t, out, "No spreadsheet configured")
	assert.Contains(t, out, "December")
	assert.Contains(t, out, "Total")
}

func TestValidation(t *testing.T) {
	setupLedger(t)

	_, err := run(t, "summary", "--month", "13")
	assert.Error(t, err)

	_, err = run(t, "delete-generated")
	assert.ErrorContains(t, err, "--rule or --description")

	_, err = run(t, "rules", "add", "--amount", "-5", "--category", "x")
	assert.ErrorContains(t, err, "invalid --amount")
}
