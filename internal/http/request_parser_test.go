package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"finance/internal/core"
)

func TestParseMonthParams(t *testing.T) {
	now := time.Date(2024, time.May, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		query   url.Values
		want    MonthParams
		wantErr error
	}{
		{
			name:  "defaults to current month",
			query: url.Values{},
			want:  MonthParams{Year: 2024, Month: 5},
		},
		{
			name:  "explicit year and month",
			query: url.Values{"year": {"2023"}, "month": {"12"}},
			want:  MonthParams{Year: 2023, Month: 12},
		},
		{
			name:  "period wins",
			query: url.Values{"period": {"2022-02"}, "month": {"7"}},
			want:  MonthParams{Year: 2022, Month: 2},
		},
		{
			name:    "month out of range",
			query:   url.Values{"month": {"13"}},
			wantErr: core.ErrInvalidMonth,
		},
		{
			name:    "non numeric month",
			query:   url.Values{"month": {"may"}},
			wantErr: core.ErrInvalidMonth,
		},
		{
			name:    "bad period",
			query:   url.Values{"period": {"2024/05"}},
			wantErr: core.ErrInvalidMonth,
		},
		{
			name:    "bad year",
			query:   url.Values{"year": {"20x4"}},
			wantErr: errBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMonthParams(tt.query, now)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		var c core.Category
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Food","color":"#ffffff"}`))
		if err := DecodeJSON(httptest.NewRecorder(), r, &c); err != nil {
			t.Fatalf("DecodeJSON() error = %v", err)
		}
		if c.Name != "Food" {
			t.Errorf("Name = %q", c.Name)
		}
	})

	t.Run("typed field error keeps its sentinel", func(t *testing.T) {
		var tx core.Transaction
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":"12.50"}`))
		err := DecodeJSON(httptest.NewRecorder(), r, &tx)
		if !errors.Is(err, core.ErrInvalidAmount) {
			t.Errorf("error = %v, want ErrInvalidAmount", err)
		}
	})

	t.Run("syntax error", func(t *testing.T) {
		var c core.Category
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
		if err := DecodeJSON(httptest.NewRecorder(), r, &c); !errors.Is(err, errBadRequest) {
			t.Errorf("error = %v, want errBadRequest", err)
		}
	})
}

func TestSanitizeInput(t *testing.T) {
	tests := map[string]string{
		"  hello  ":         "hello",
		"tab\tkept":         "tab\tkept",
		"bell\x07removed":   "bellremoved",
		"null\x00byte":      "nullbyte",
		"\n multi\nline \n": "multi\nline",
	}
	for in, want := range tests {
		if got := sanitizeInput(in); got != want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", in, got, want)
		}
	}
}
