package http

import (
	"net/http"
	"strconv"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/report"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := s.ledger.ListExpenses(r.Context(), month)
	if err != nil {
		s.events.LogError(r.Context(), "Failed to list expenses", err, applog.OpList, applog.NewFields().WithMonth(month.String()))
		writeError(w, http.StatusInternalServerError, "could not load expenses")
		return
	}

	resp := map[string]any{"expenses": toExpenseJSON(items)}
	if month != "" {
		resp["month"] = month
		resp["total"] = core.FormatAmount(report.MonthlyTotal(items, month))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	e, verr := parseExpense(req, s.opts.EnableSubcategories)
	if verr != nil {
		writeValidationError(w, verr)
		return
	}

	id, err := s.ledger.AddExpense(r.Context(), e)
	if err != nil {
		s.events.LogError(r.Context(), "Failed to add expense", err, applog.OpCreate, nil)
		writeError(w, http.StatusInternalServerError, "could not save expense")
		return
	}
	e.ID = id
	s.events.LogExpenseAdded(r.Context(), id, e.Date.String(), e.Amount.String(), e.Category, e.Subcategory)

	w.Header().Set("Location", "/expenses/"+formatID(id))
	writeJSON(w, http.StatusCreated, toExpenseJSON([]core.Expense{e})[0])
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ok, err := s.ledger.DeleteExpense(r.Context(), id)
	if err != nil {
		s.events.LogError(r.Context(), "Failed to delete expense", err, applog.OpDelete, applog.LogFields{applog.FieldExpenseID: id})
		writeError(w, http.StatusInternalServerError, "could not delete expense")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "expense not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteExpenseByFields removes one expense identified by its visible
// fields, for clients that listed expenses without ids.
func (s *Server) handleDeleteExpenseByFields(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, verr := parseExpenseMatch(req)
	if verr != nil {
		writeValidationError(w, verr)
		return
	}
	ok, err := s.ledger.DeleteExpenseByFields(r.Context(), m)
	if err != nil {
		s.events.LogError(r.Context(), "Failed to delete expense by fields", err, applog.OpDelete, nil)
		writeError(w, http.StatusInternalServerError, "could not delete expense")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no matching expense")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleClearExpenses deletes every expense. The request must carry
// ?confirm=true.
func (s *Server) handleClearExpenses(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		writeError(w, http.StatusBadRequest, "clearing all expenses requires confirm=true")
		return
	}
	n, err := s.ledger.ClearExpenses(r.Context())
	if err != nil {
		s.events.LogError(r.Context(), "Failed to clear expenses", err, applog.OpClear, nil)
		writeError(w, http.StatusInternalServerError, "could not clear expenses")
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Expenses cleared", applog.FieldCount, n)
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
