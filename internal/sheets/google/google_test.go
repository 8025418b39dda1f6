package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gsheet "google.golang.org/api/sheets/v4"

	ports "finance/internal/sheets"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "  "})
	if err == nil || err.Error() != "missing spreadsheet ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := New(context.Background(), Config{SpreadsheetID: "sheet"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}

func TestCredentials(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key.json")
	if err := os.WriteFile(keyFile, []byte(`{"type":"service_account"}`), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		cfg     Config
		env     string
		want    string
		wantErr bool
	}{
		{name: "inline wins", cfg: Config{CredentialsJSON: `{"a":1}`, CredentialsFile: keyFile}, want: `{"a":1}`},
		{name: "file", cfg: Config{CredentialsFile: keyFile}, want: `{"type":"service_account"}`},
		{name: "env fallback", env: keyFile, want: `{"type":"service_account"}`},
		{name: "missing file", cfg: Config{CredentialsFile: filepath.Join(dir, "nope.json")}, wantErr: true},
		{name: "nothing", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", tt.env)
			got, err := credentials(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("credentials() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("credentials() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Report", 2024, "2024 Report"},
		{"  Report  ", 2025, "2025 Report"},
		{"2023 Report", 2024, "2023 Report"},
		{"", 2024, ""},
		{"1800 Report", 2024, "2024 1800 Report"},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}

func TestHasSheet(t *testing.T) {
	ss := &gsheet.Spreadsheet{Sheets: []*gsheet.Sheet{
		{Properties: &gsheet.SheetProperties{Title: "2023 Report"}},
		{Properties: nil},
		{Properties: &gsheet.SheetProperties{Title: "2024 Report"}},
	}}
	if !hasSheet(ss, "2024 Report") {
		t.Error("expected 2024 Report to be found")
	}
	if hasSheet(ss, "2025 Report") || hasSheet(nil, "2024 Report") {
		t.Error("unexpected match")
	}
}

func TestWriteYearReport_Uninitialized(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetBase: "Report"}
	if err := c.WriteYearReport(context.Background(), ports.YearReport{Year: 2024}); err == nil {
		t.Fatal("expected error with nil service")
	}
}
