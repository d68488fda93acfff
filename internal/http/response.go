package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"expensetracker/internal/core"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type expenseJSON struct {
	ID          int64      `json:"id"`
	Date        string     `json:"date"`
	Category    string     `json:"category"`
	Subcategory string     `json:"subcategory"`
	Description string     `json:"description"`
	Amount      string     `json:"amount"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

type creditJSON struct {
	ID          int64      `json:"id"`
	Date        string     `json:"date"`
	Description string     `json:"description"`
	Amount      string     `json:"amount"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

func toExpenseJSON(items []core.Expense) []expenseJSON {
	out := make([]expenseJSON, 0, len(items))
	for _, e := range items {
		out = append(out, expenseJSON{
			ID:          e.ID,
			Date:        e.Date.String(),
			Category:    e.Category,
			Subcategory: e.Subcategory,
			Description: e.Description,
			Amount:      core.FormatAmount(e.Amount),
			CreatedAt:   timestamp(e.CreatedAt),
		})
	}
	return out
}

func toCreditJSON(items []core.Credit) []creditJSON {
	out := make([]creditJSON, 0, len(items))
	for _, c := range items {
		out = append(out, creditJSON{
			ID:          c.ID,
			Date:        c.Date.String(),
			Description: c.Description,
			Amount:      core.FormatAmount(c.Amount),
			CreatedAt:   timestamp(c.CreatedAt),
		})
	}
	return out
}

// timestamp omits times the caller never learned, such as on a fresh insert.
func timestamp(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeValidationError(w http.ResponseWriter, verr *validationError) {
	writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: verr.Error(), Field: verr.Field})
}
