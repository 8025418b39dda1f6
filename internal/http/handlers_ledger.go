package http

import (
	"net/http"
	"strings"

	"finance/internal/core"
)

// Categories

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.svc.Ledger.Categories(r.Context())
	if err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Body(cats).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var c core.Category
	if err := DecodeJSON(w, r, &c); err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	c.ID = ""
	c.Name = sanitizeInput(c.Name)

	created, err := s.svc.Ledger.AddCategory(r.Context(), c)
	if err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(created).Write(w)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryPatchRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	updated, err := s.svc.Ledger.UpdateCategory(r.Context(), r.PathValue("id"), req.patch())
	if err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Body(updated).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ledger.DeleteCategory(r.Context(), r.PathValue("id")); err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// Transactions

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params, err := ParseMonthParams(q, s.now())
	if err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	txs, err := s.svc.Ledger.Transactions(r.Context(), core.TransactionFilter{
		Period:     params.Period(),
		Search:     sanitizeInput(q.Get("search")),
		CategoryID: strings.TrimSpace(q.Get("category")),
	})
	if err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Body(txs).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var t core.Transaction
	if err := DecodeJSON(w, r, &t); err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	// Identity, timestamps and origin are server-owned.
	t.ID, t.OriginRuleID, t.OriginPeriod = "", "", ""
	t.CreatedAt, t.UpdatedAt = 0, 0
	t.Description = sanitizeInput(t.Description)

	created, err := s.svc.Ledger.AddTransaction(r.Context(), t)
	if err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(created).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionPatchRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	updated, err := s.svc.Ledger.UpdateTransaction(r.Context(), r.PathValue("id"), req.patch())
	if err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Body(updated).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ledger.DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleBulkDeleteTransactions(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	n, err := s.svc.Ledger.DeleteTransactions(r.Context(), req.IDs)
	if err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Body(map[string]int{"deleted": n}).Write(w)
}

// Budgets

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	budgets, err := s.svc.Ledger.Budgets(r.Context(), params.Period())
	if err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Body(budgets).Write(w)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var b core.Budget
	if err := DecodeJSON(w, r, &b); err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	b.ID = ""
	saved, err := s.svc.Ledger.SetBudget(r.Context(), b)
	if err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Body(saved).Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ledger.DeleteBudget(r.Context(), r.PathValue("id")); err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// Recurring rules

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.svc.Ledger.Rules(r.Context())
	if err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Body(rules).Write(w)
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	// Rules are active unless the body says otherwise.
	rule := core.RecurringRule{Active: true}
	if err := DecodeJSON(w, r, &rule); err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	rule.ID, rule.LastGeneratedFor = "", ""
	rule.Description = sanitizeInput(rule.Description)

	created, err := s.svc.Ledger.AddRule(r.Context(), rule)
	if err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(created).Write(w)
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	var req rulePatchRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	updated, err := s.svc.Ledger.UpdateRule(r.Context(), r.PathValue("id"), req.patch())
	if err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Body(updated).Write(w)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ledger.DeleteRule(r.Context(), r.PathValue("id")); err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
