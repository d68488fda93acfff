package report

import (
	"sort"

	"expensetracker/internal/core"

	"github.com/shopspring/decimal"
)

type DayTotal struct {
	Day    int             `json:"day"`
	Amount decimal.Decimal `json:"amount"`
}

// MonthReport gathers every figure shown for one month.
type MonthReport struct {
	Month        core.MonthKey            `json:"month"`
	Total        decimal.Decimal          `json:"total"`
	Count        int                      `json:"count"`
	AverageDaily decimal.Decimal          `json:"average_daily"`
	Top          *core.CategoryAmount     `json:"top,omitempty"`
	Credits      decimal.Decimal          `json:"credits"`
	Balance      decimal.Decimal          `json:"balance"`
	Daily        []DayTotal               `json:"daily"`
	Categories   []core.CategoryAmount    `json:"categories"`
	Breakdown    map[string]CategoryStats `json:"breakdown"`
	Stats        Stats                    `json:"stats"`
}

// BuildMonthReport computes the month's figures. Subcategories drive the
// top label and category list unless by says otherwise.
func BuildMonthReport(expenses []core.Expense, credits []core.Credit, month core.MonthKey, by GroupBy) MonthReport {
	stats := Summarize(expenses, month)
	r := MonthReport{
		Month:        month,
		Total:        stats.Total,
		Count:        stats.Count,
		AverageDaily: decimal.Zero,
		Credits:      CreditTotal(credits, month),
		Balance:      Balance(expenses, credits, month),
		Categories:   SortedCategoryTotals(expenses, month, by),
		Breakdown:    CategoryBreakdown(expenses, month),
		Stats:        stats,
	}
	if avg, err := AverageDaily(expenses, month); err == nil {
		r.AverageDaily = avg
	}
	if top, err := Top(expenses, month, by); err == nil {
		r.Top = &top
	}

	series := DailySeries(expenses, month)
	r.Daily = make([]DayTotal, 0, len(series))
	for day, amount := range series {
		r.Daily = append(r.Daily, DayTotal{Day: day, Amount: amount})
	}
	sort.Slice(r.Daily, func(i, j int) bool { return r.Daily[i].Day < r.Daily[j].Day })
	return r
}
