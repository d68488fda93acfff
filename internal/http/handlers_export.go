package http

import (
	"bytes"
	"net/http"
	"strconv"

	"expensetracker/internal/export"
	applog "expensetracker/internal/log"
)

// handleExportCSV downloads one month of expenses as CSV.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := s.ledger.ListExpenses(r.Context(), month)
	if err != nil {
		s.events.LogError(r.Context(), "Failed to list expenses", err, applog.OpExport, applog.NewFields().WithMonth(month.String()))
		writeError(w, http.StatusInternalServerError, "could not load expenses")
		return
	}

	// Buffer so a write error can still become a 500.
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, items); err != nil {
		s.events.LogError(r.Context(), "Failed to write CSV", err, applog.OpExport, applog.NewFields().WithMonth(month.String()))
		writeError(w, http.StatusInternalServerError, "could not export expenses")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(month)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// handleExportSheets copies one month of expenses to the configured spreadsheet.
func (s *Server) handleExportSheets(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "google sheets export not configured")
		return
	}
	month, err := parseMonthPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := s.ledger.ListExpenses(r.Context(), month)
	if err != nil {
		s.events.LogError(r.Context(), "Failed to list expenses", err, applog.OpExport, applog.NewFields().WithMonth(month.String()))
		writeError(w, http.StatusInternalServerError, "could not load expenses")
		return
	}

	rows, err := s.exporter.ExportMonth(r.Context(), month, items)
	if err != nil {
		s.events.LogError(r.Context(), "Sheets export failed", err, applog.OpExport, applog.NewFields().WithMonth(month.String()))
		writeError(w, http.StatusBadGateway, "google sheets export failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sheet": s.exporter.SheetTitle(month),
		"rows":  rows,
	})
}
