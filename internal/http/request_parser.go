// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for parsing and validating request data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finance/internal/core"
)

// maxBodyBytes bounds JSON request bodies. Backups are the largest payloads.
const maxBodyBytes = 10 << 20

var errBadRequest = errors.New("bad request")

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// Period converts the params to a calendar month.
func (p MonthParams) Period() core.Period {
	return core.NewPeriod(p.Year, p.Month)
}

// ParseMonthParams extracts year and month from query parameters, using the
// current date as defaults. A "period" parameter in YYYY-MM form wins over
// separate year and month values.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}

	if v := strings.TrimSpace(query.Get("period")); v != "" {
		p, err := core.ParsePeriod(v)
		if err != nil {
			return MonthParams{}, err
		}
		return MonthParams{Year: p.Year, Month: int(p.Month)}, nil
	}

	year, err := ParseYearParam(query, now)
	if err != nil {
		return MonthParams{}, err
	}
	params.Year = year

	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return MonthParams{}, fmt.Errorf("%w: %q", core.ErrInvalidMonth, v)
		}
		params.Month = m
	}

	return params, nil
}

// ParseYearParam extracts the "year" query parameter, defaulting to the
// current year.
func ParseYearParam(query url.Values, now time.Time) (int, error) {
	v := strings.TrimSpace(query.Get("year"))
	if v == "" {
		return now.Year(), nil
	}
	y, err := strconv.Atoi(v)
	if err != nil || y < 1 || y > 9999 {
		return 0, fmt.Errorf("%w: invalid year %q", errBadRequest, v)
	}
	return y, nil
}

// DecodeJSON reads a JSON request body into v.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty request body", errBadRequest)
		}
		// Typed decode errors carry their own sentinel (amount, date).
		for _, target := range validationErrors {
			if errors.Is(err, target) {
				return err
			}
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// Request payloads. Pointer fields are optional in PATCH bodies.

type categoryPatchRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
	Icon  *string `json:"icon"`
}

func (r categoryPatchRequest) patch() core.CategoryPatch {
	return core.CategoryPatch{
		Name:  sanitizePtr(r.Name),
		Color: r.Color,
		Icon:  r.Icon,
	}
}

type transactionPatchRequest struct {
	Date        *core.Date            `json:"date"`
	Type        *core.TransactionType `json:"type"`
	Amount      *core.Money           `json:"amount"`
	CategoryID  *string               `json:"categoryId"`
	Description *string               `json:"description"`
	Tags        *[]string             `json:"tags"`
	Paid        *bool                 `json:"paid"`
}

func (r transactionPatchRequest) patch() core.TransactionPatch {
	return core.TransactionPatch{
		Date:        r.Date,
		Type:        r.Type,
		Amount:      r.Amount,
		CategoryID:  r.CategoryID,
		Description: sanitizePtr(r.Description),
		Tags:        r.Tags,
		Paid:        r.Paid,
	}
}

type rulePatchRequest struct {
	Type        *core.TransactionType `json:"type"`
	Amount      *core.Money           `json:"amount"`
	CategoryID  *string               `json:"categoryId"`
	Description *string               `json:"description"`
	DayOfMonth  *int                  `json:"dayOfMonth"`
	Active      *bool                 `json:"active"`
}

func (r rulePatchRequest) patch() core.RulePatch {
	return core.RulePatch{
		Type:        r.Type,
		Amount:      r.Amount,
		CategoryID:  r.CategoryID,
		Description: sanitizePtr(r.Description),
		DayOfMonth:  r.DayOfMonth,
		Active:      r.Active,
	}
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

type themeRequest struct {
	Theme string `json:"theme"`
}

func sanitizePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := sanitizeInput(*s)
	return &v
}
