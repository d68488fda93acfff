package http

import (
	"net/http"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/report"
)

func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	items, err := s.ledger.ListExpenses(r.Context(), "")
	if err != nil {
		s.events.LogError(r.Context(), "Failed to list expenses", err, applog.OpReport, nil)
		writeError(w, http.StatusInternalServerError, "could not load expenses")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"months": report.AvailableMonths(items)})
}

// handleMonthReport returns every figure for one month. ?by=category groups
// by top-level category instead of subcategory.
func (s *Server) handleMonthReport(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	by := report.BySubcategory
	if !s.opts.EnableSubcategories || r.URL.Query().Get("by") == "category" {
		by = report.ByCategory
	}

	ctx := r.Context()
	expenses, err := s.ledger.ListExpenses(ctx, month)
	if err != nil {
		s.events.LogError(ctx, "Failed to list expenses", err, applog.OpReport, applog.NewFields().WithMonth(month.String()))
		writeError(w, http.StatusInternalServerError, "could not load expenses")
		return
	}
	var credits []core.Credit
	if s.opts.EnableCredits {
		credits, err = s.ledger.ListCredits(ctx, month)
		if err != nil {
			s.events.LogError(ctx, "Failed to list credits", err, applog.OpReport, applog.NewFields().WithMonth(month.String()))
			writeError(w, http.StatusInternalServerError, "could not load credits")
			return
		}
	}

	writeJSON(w, http.StatusOK, report.BuildMonthReport(expenses, credits, month, by))
}

func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	items, err := s.ledger.ListExpenses(r.Context(), "")
	if err != nil {
		s.events.LogError(r.Context(), "Failed to list expenses", err, applog.OpReport, nil)
		writeError(w, http.StatusInternalServerError, "could not load expenses")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"months": report.MonthlyComparison(items)})
}
