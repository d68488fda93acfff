package http

import (
	"net/http"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/report"
)

func (s *Server) handleListCredits(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := s.ledger.ListCredits(r.Context(), month)
	if err != nil {
		s.events.LogError(r.Context(), "Failed to list credits", err, applog.OpList, applog.NewFields().WithMonth(month.String()))
		writeError(w, http.StatusInternalServerError, "could not load credits")
		return
	}

	resp := map[string]any{"credits": toCreditJSON(items)}
	if month != "" {
		resp["month"] = month
		resp["total"] = core.FormatAmount(report.CreditTotal(items, month))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddCredit(w http.ResponseWriter, r *http.Request) {
	var req creditRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, verr := parseCredit(req)
	if verr != nil {
		writeValidationError(w, verr)
		return
	}

	id, err := s.ledger.AddCredit(r.Context(), c)
	if err != nil {
		s.events.LogError(r.Context(), "Failed to add credit", err, applog.OpCreate, nil)
		writeError(w, http.StatusInternalServerError, "could not save credit")
		return
	}
	c.ID = id
	s.events.LogCreditAdded(r.Context(), id, c.Date.String(), c.Amount.String())
	writeJSON(w, http.StatusCreated, toCreditJSON([]core.Credit{c})[0])
}
