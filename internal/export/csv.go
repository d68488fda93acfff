// Package export writes expense listings for use outside the tracker.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"expensetracker/internal/core"
)

// Header is the column order shared by every export target.
var Header = []string{"date", "category", "subcategory", "description", "amount"}

// FileName is the download name for a month's CSV.
func FileName(month core.MonthKey) string {
	return fmt.Sprintf("expenses_%s.csv", month)
}

// Rows returns the header followed by one row per expense, newest date
// first. Amounts have two decimals.
func Rows(expenses []core.Expense) [][]string {
	sorted := append([]core.Expense(nil), expenses...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date.Time) {
			return sorted[i].Date.After(sorted[j].Date.Time)
		}
		return sorted[i].ID > sorted[j].ID
	})

	rows := make([][]string, 0, len(sorted)+1)
	rows = append(rows, append([]string(nil), Header...))
	for _, e := range sorted {
		rows = append(rows, []string{
			e.Date.String(),
			e.Category,
			e.Subcategory,
			e.Description,
			core.FormatAmount(e.Amount),
		})
	}
	return rows
}

func WriteCSV(w io.Writer, expenses []core.Expense) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(Rows(expenses)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
