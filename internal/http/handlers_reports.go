package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"finance/internal/core"
	applog "finance/internal/log"
)

type seriesResponse struct {
	Year   int             `json:"year"`
	Months core.YearSeries `json:"months"`
}

type recurringResponse struct {
	Year    int `json:"year"`
	Month   int `json:"month,omitempty"`
	Changed int `json:"changed"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	summary, err := s.svc.Summary.MonthlySummary(r.Context(), params.Year, time.Month(params.Month))
	if err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Body(summary).Write(w)
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	year, err := ParseYearParam(r.URL.Query(), s.now())
	if err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	series, err := s.svc.Summary.YearlySeries(r.Context(), year)
	if err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Body(seriesResponse{Year: year, Months: series}).Write(w)
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	status, err := s.svc.Summary.BudgetStatus(r.Context(), params.Year, time.Month(params.Month))
	if err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Body(status).Write(w)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	year, err := ParseYearParam(r.URL.Query(), s.now())
	if err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	start := time.Now()
	changed, err := s.svc.Recurring.ReconcileYear(r.Context(), year)
	if err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	applog.NewStructuredLogger(s.logger).LogReconciled(r.Context(), year, changed, time.Since(start))
	NewJSONResponse().Body(recurringResponse{Year: year, Changed: changed}).Write(w)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	created, err := s.svc.Recurring.GenerateForMonth(r.Context(), params.Year, time.Month(params.Month))
	if err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().
		Body(recurringResponse{Year: params.Year, Month: params.Month, Changed: created}).
		Write(w)
}

// handleDeleteGenerated removes a year's generated entries for one rule,
// selected by ruleId or by the rule description.
func (s *Server) handleDeleteGenerated(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, err := ParseYearParam(q, s.now())
	if err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}

	var deleted int
	switch ruleID, desc := strings.TrimSpace(q.Get("ruleId")), q.Get("description"); {
	case ruleID != "":
		deleted, err = s.svc.Recurring.DeleteGeneratedByRule(r.Context(), year, ruleID)
	case q.Has("description"):
		deleted, err = s.svc.Recurring.DeleteGenerated(r.Context(), year, desc)
	default:
		err = fmt.Errorf("%w: ruleId or description is required", errBadRequest)
	}
	if err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Body(recurringResponse{Year: year, Changed: deleted}).Write(w)
}
