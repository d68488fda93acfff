// Package report aggregates expenses and credits into monthly figures.
// Every function is pure and leaves its input untouched.
package report

import (
	"errors"
	"sort"

	"expensetracker/internal/core"

	"github.com/shopspring/decimal"
)

// ErrNoRecords is returned by aggregations that have no value for an
// empty month.
var ErrNoRecords = errors.New("no records for month")

// divPrecision is the number of decimal places kept by means.
const divPrecision = 16

type GroupBy int

const (
	BySubcategory GroupBy = iota
	ByCategory
)

func (g GroupBy) label(e core.Expense) string {
	if g == ByCategory {
		return e.Category
	}
	return e.Subcategory
}

type Stats struct {
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
	// Mean, Max and Min are zero when Count is zero.
	Mean decimal.Decimal `json:"mean"`
	Max  decimal.Decimal `json:"max"`
	Min  decimal.Decimal `json:"min"`
}

type CategoryStats struct {
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
	Mean  decimal.Decimal `json:"mean"`
}

// GroupByMonth partitions expenses by the month of their date, keeping
// input order within each month.
func GroupByMonth(expenses []core.Expense) map[core.MonthKey][]core.Expense {
	out := make(map[core.MonthKey][]core.Expense)
	for _, e := range expenses {
		m := e.Date.Month()
		out[m] = append(out[m], e)
	}
	return out
}

// AvailableMonths returns the distinct months, newest first.
func AvailableMonths(expenses []core.Expense) []core.MonthKey {
	seen := make(map[core.MonthKey]struct{})
	var out []core.MonthKey
	for _, e := range expenses {
		m := e.Date.Month()
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out
}

func inMonth(expenses []core.Expense, month core.MonthKey) []core.Expense {
	var out []core.Expense
	for _, e := range expenses {
		if e.Date.Month() == month {
			out = append(out, e)
		}
	}
	return out
}

func sum(expenses []core.Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

func MonthlyTotal(expenses []core.Expense, month core.MonthKey) decimal.Decimal {
	return sum(inMonth(expenses, month))
}

// DailySeries sums the month's expenses per day of month. Days without
// expenses are absent.
func DailySeries(expenses []core.Expense, month core.MonthKey) map[int]decimal.Decimal {
	out := make(map[int]decimal.Decimal)
	for _, e := range inMonth(expenses, month) {
		day := e.Date.Day()
		out[day] = out[day].Add(e.Amount)
	}
	return out
}

// AverageDaily is the mean of the daily totals over the days that have at
// least one expense.
func AverageDaily(expenses []core.Expense, month core.MonthKey) (decimal.Decimal, error) {
	series := DailySeries(expenses, month)
	if len(series) == 0 {
		return decimal.Zero, ErrNoRecords
	}
	total := decimal.Zero
	for _, v := range series {
		total = total.Add(v)
	}
	return total.DivRound(decimal.NewFromInt(int64(len(series))), divPrecision), nil
}

func CategoryTotals(expenses []core.Expense, month core.MonthKey, by GroupBy) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, e := range inMonth(expenses, month) {
		label := by.label(e)
		out[label] = out[label].Add(e.Amount)
	}
	return out
}

// Top returns the label with the largest total. Ties go to the label that
// appears first in the input.
func Top(expenses []core.Expense, month core.MonthKey, by GroupBy) (core.CategoryAmount, error) {
	totals := make(map[string]decimal.Decimal)
	var order []string
	for _, e := range inMonth(expenses, month) {
		label := by.label(e)
		if _, ok := totals[label]; !ok {
			order = append(order, label)
		}
		totals[label] = totals[label].Add(e.Amount)
	}
	if len(order) == 0 {
		return core.CategoryAmount{}, ErrNoRecords
	}
	best := core.CategoryAmount{Name: order[0], Amount: totals[order[0]]}
	for _, label := range order[1:] {
		if totals[label].GreaterThan(best.Amount) {
			best = core.CategoryAmount{Name: label, Amount: totals[label]}
		}
	}
	return best, nil
}

// SortedCategoryTotals lists CategoryTotals by amount descending, then
// label ascending.
func SortedCategoryTotals(expenses []core.Expense, month core.MonthKey, by GroupBy) []core.CategoryAmount {
	totals := CategoryTotals(expenses, month, by)
	out := make([]core.CategoryAmount, 0, len(totals))
	for name, amount := range totals {
		out = append(out, core.CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func CreditTotal(credits []core.Credit, month core.MonthKey) decimal.Decimal {
	total := decimal.Zero
	for _, c := range credits {
		if c.Date.Month() == month {
			total = total.Add(c.Amount)
		}
	}
	return total
}

// Balance is the month's credits minus its expenses.
func Balance(expenses []core.Expense, credits []core.Credit, month core.MonthKey) decimal.Decimal {
	return CreditTotal(credits, month).Sub(MonthlyTotal(expenses, month))
}

func Summarize(expenses []core.Expense, month core.MonthKey) Stats {
	items := inMonth(expenses, month)
	if len(items) == 0 {
		return Stats{Total: decimal.Zero, Mean: decimal.Zero, Max: decimal.Zero, Min: decimal.Zero}
	}
	s := Stats{Total: decimal.Zero, Count: len(items), Max: items[0].Amount, Min: items[0].Amount}
	for _, e := range items {
		s.Total = s.Total.Add(e.Amount)
		s.Max = decimal.Max(s.Max, e.Amount)
		s.Min = decimal.Min(s.Min, e.Amount)
	}
	s.Mean = s.Total.DivRound(decimal.NewFromInt(int64(s.Count)), divPrecision)
	return s
}

// CategoryBreakdown reports total, count and mean per top-level category.
func CategoryBreakdown(expenses []core.Expense, month core.MonthKey) map[string]CategoryStats {
	out := make(map[string]CategoryStats)
	for _, e := range inMonth(expenses, month) {
		cs := out[e.Category]
		cs.Total = cs.Total.Add(e.Amount)
		cs.Count++
		out[e.Category] = cs
	}
	for name, cs := range out {
		cs.Mean = cs.Total.DivRound(decimal.NewFromInt(int64(cs.Count)), divPrecision)
		out[name] = cs
	}
	return out
}

// MonthlyComparison returns the total of every month present, oldest first.
func MonthlyComparison(expenses []core.Expense) []core.MonthTotal {
	groups := GroupByMonth(expenses)
	out := make([]core.MonthTotal, 0, len(groups))
	for month, items := range groups {
		out = append(out, core.MonthTotal{Month: month, Total: sum(items)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}
