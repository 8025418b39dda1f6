package core

// Patches carry partial updates. Nil fields are left untouched.
type (
	CategoryPatch struct {
		Name  *string
		Color *string
		Icon  *string
	}

	TransactionPatch struct {
		Date        *Date
		Type        *TransactionType
		Amount      *Money
		CategoryID  *string
		Description *string
		Tags        *[]string
		Paid        *bool
		// origin fields are written by the recurring engine only
		OriginRuleID *string
		OriginPeriod *string
	}

	RulePatch struct {
		Type             *TransactionType
		Amount           *Money
		CategoryID       *string
		Description      *string
		DayOfMonth       *int
		Active           *bool
		LastGeneratedFor *string
	}
)

func (p CategoryPatch) Empty() bool {
	return p.Name == nil && p.Color == nil && p.Icon == nil
}

// Apply returns c with the patch applied.
func (p CategoryPatch) Apply(c Category) Category {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
	if p.Icon != nil {
		c.Icon = *p.Icon
	}
	return c
}

func (p TransactionPatch) Empty() bool {
	return p.Date == nil && p.Type == nil && p.Amount == nil && p.CategoryID == nil &&
		p.Description == nil && p.Tags == nil && p.Paid == nil &&
		p.OriginRuleID == nil && p.OriginPeriod == nil
}

func (p TransactionPatch) Apply(t Transaction) Transaction {
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.CategoryID != nil {
		t.CategoryID = *p.CategoryID
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Tags != nil {
		t.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.Paid != nil {
		t.Paid = *p.Paid
	}
	if p.OriginRuleID != nil {
		t.OriginRuleID = *p.OriginRuleID
	}
	if p.OriginPeriod != nil {
		t.OriginPeriod = *p.OriginPeriod
	}
	return t
}

func (p RulePatch) Empty() bool {
	return p.Type == nil && p.Amount == nil && p.CategoryID == nil && p.Description == nil &&
		p.DayOfMonth == nil && p.Active == nil && p.LastGeneratedFor == nil
}

func (p RulePatch) Apply(r RecurringRule) RecurringRule {
	if p.Type != nil {
		r.Type = *p.Type
	}
	if p.Amount != nil {
		r.Amount = *p.Amount
	}
	if p.CategoryID != nil {
		r.CategoryID = *p.CategoryID
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.DayOfMonth != nil {
		r.DayOfMonth = *p.DayOfMonth
	}
	if p.Active != nil {
		r.Active = *p.Active
	}
	if p.LastGeneratedFor != nil {
		r.LastGeneratedFor = *p.LastGeneratedFor
	}
	return r
}
