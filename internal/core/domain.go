package core

import (
	"errors"
	"regexp"
	"strings"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// RecurringPrefix marks transactions produced from a recurring rule.
const RecurringPrefix = "[RECURRING]"

type (
	TransactionType string

	Category struct {
		ID    string `json:"id,omitempty"`
		Name  string `json:"name"`
		Color string `json:"color"`
		Icon  string `json:"icon,omitempty"`
	}

	Transaction struct {
		ID          string          `json:"id,omitempty"`
		Date        Date            `json:"date"`
		Type        TransactionType `json:"type"`
		Amount      Money           `json:"amount"`
		CategoryID  string          `json:"categoryId"`
		Description string          `json:"description,omitempty"`
		Tags        []string        `json:"tags,omitempty"`
		Paid        bool            `json:"paid,omitempty"`
		// OriginRuleID and OriginPeriod are set on transactions generated
		// from a recurring rule.
		OriginRuleID string `json:"originRuleId,omitempty"`
		OriginPeriod string `json:"originPeriod,omitempty"`
		CreatedAt    int64  `json:"createdAt"`
		UpdatedAt    int64  `json:"updatedAt"`
	}

	Budget struct {
		ID         string `json:"id,omitempty"`
		Year       int    `json:"year"`
		Month      int    `json:"month"` // 1-12
		CategoryID string `json:"categoryId"`
		Amount     Money  `json:"amount"`
	}

	RecurringRule struct {
		ID               string          `json:"id,omitempty"`
		Type             TransactionType `json:"type"`
		Amount           Money           `json:"amount"`
		CategoryID       string          `json:"categoryId"`
		Description      string          `json:"description,omitempty"`
		DayOfMonth       int             `json:"dayOfMonth"`
		Active           bool            `json:"active"`
		LastGeneratedFor string          `json:"lastGeneratedFor,omitempty"` // YYYY-MM
	}

	// TransactionFilter narrows a month listing. Empty fields match everything.
	TransactionFilter struct {
		Period     Period
		Search     string
		CategoryID string
	}
)

var (
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyCategory      = errors.New("empty category")
	ErrEmptyName          = errors.New("empty name")
	ErrInvalidColor       = errors.New("invalid color")
	ErrInvalidDayOfMonth  = errors.New("invalid day of month")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidYear        = errors.New("invalid year")
	ErrInvalidDate        = errors.New("invalid date")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidType
	}
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !hexColor.MatchString(c.Color) {
		return ErrInvalidColor
	}
	return nil
}

func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if len(t.Description) > 200 {
		return ErrDescriptionTooLong
	}
	return nil
}

// Generated reports whether the transaction was produced by a recurring rule.
func (t Transaction) Generated() bool {
	return t.OriginRuleID != "" || strings.HasPrefix(t.Description, RecurringPrefix)
}

func (b Budget) Validate() error {
	if b.Year < 1 || b.Year > 9999 {
		return ErrInvalidYear
	}
	if b.Month < 1 || b.Month > 12 {
		return ErrInvalidMonth
	}
	if strings.TrimSpace(b.CategoryID) == "" {
		return ErrEmptyCategory
	}
	return b.Amount.Validate()
}

// Period returns the calendar month the budget applies to.
func (b Budget) Period() Period {
	return NewPeriod(b.Year, b.Month)
}

func (r RecurringRule) Validate() error {
	if err := r.Type.Validate(); err != nil {
		return err
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if r.DayOfMonth < 1 || r.DayOfMonth > 31 {
		return ErrInvalidDayOfMonth
	}
	if len(r.Description) > 200 {
		return ErrDescriptionTooLong
	}
	return nil
}

// GeneratedDescription is the description carried by transactions generated
// from the rule.
func (r RecurringRule) GeneratedDescription() string {
	return RecurringDescription(r.Description)
}

// DateIn returns the rule's occurrence inside p, clamping the day of month to
// the last day of short months.
func (r RecurringRule) DateIn(p Period) Date {
	day := r.DayOfMonth
	if last := p.LastDay(); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return NewDate(p.Year, int(p.Month), day)
}

// RecurringDescription builds the marker description for a rule description.
func RecurringDescription(desc string) string {
	return strings.TrimSpace(RecurringPrefix + " " + desc)
}
