package report

import (
	"errors"
	"testing"

	"expensetracker/internal/core"

	"github.com/shopspring/decimal"
)

func exp(y, m, d int, cat, sub, amount string) core.Expense {
	return core.Expense{
		Date:        core.NewDate(y, m, d),
		Category:    cat,
		Subcategory: sub,
		Description: "x",
		Amount:      decimal.RequireFromString(amount),
	}
}

func cred(y, m, d int, amount string) core.Credit {
	return core.Credit{Date: core.NewDate(y, m, d), Description: "c", Amount: decimal.RequireFromString(amount)}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s: expected %s, got %s", name, want, got)
	}
}

func TestPensAndSoapExample(t *testing.T) {
	expenses := []core.Expense{
		exp(2024, 3, 5, core.CategoryPurchases, "PUR-OFF", "150.0"),
		exp(2024, 3, 20, core.CategoryPurchases, "PUR-OFF", "50.0"),
	}
	month := core.MonthKey("2024-03")

	assertDec(t, "total", MonthlyTotal(expenses, month), "200")

	avg, err := AverageDaily(expenses, month)
	if err != nil {
		t.Fatalf("average: %v", err)
	}
	assertDec(t, "average daily", avg, "100")

	top, err := Top(expenses, month, BySubcategory)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if top.Name != "PUR-OFF" {
		t.Fatalf("expected PUR-OFF, got %s", top.Name)
	}
	assertDec(t, "top amount", top.Amount, "200")
}

func TestAverageDailyUsesDaysWithData(t *testing.T) {
	expenses := []core.Expense{
		exp(2024, 3, 1, "A", "a", "10"),
		exp(2024, 3, 1, "A", "a", "20"),
		exp(2024, 3, 2, "A", "a", "30"),
		exp(2024, 4, 2, "A", "a", "1000"),
	}
	avg, err := AverageDaily(expenses, "2024-03")
	if err != nil {
		t.Fatalf("average: %v", err)
	}
	assertDec(t, "average", avg, "30")

	series := DailySeries(expenses, "2024-03")
	if len(series) != 2 {
		t.Fatalf("expected sparse series of 2 days, got %v", series)
	}
	assertDec(t, "day 1", series[1], "30")

	if _, err := AverageDaily(expenses, "2024-05"); !errors.Is(err, ErrNoRecords) {
		t.Fatalf("expected ErrNoRecords, got %v", err)
	}
}

func TestGroupingAndMonths(t *testing.T) {
	expenses := []core.Expense{
		exp(2024, 1, 31, "A", "a", "1"),
		exp(2023, 12, 1, "A", "a", "2"),
		exp(2024, 11, 5, "A", "a", "3"),
		exp(2024, 1, 2, "A", "a", "4"),
	}
	groups := GroupByMonth(expenses)
	if len(groups) != 3 || len(groups["2024-01"]) != 2 {
		t.Fatalf("unexpected groups: %v", groups)
	}
	if groups["2024-01"][0].Date.Day() != 31 {
		t.Fatal("input order should be kept within a month")
	}

	months := AvailableMonths(expenses)
	want := []core.MonthKey{"2024-11", "2024-01", "2023-12"}
	if len(months) != len(want) {
		t.Fatalf("expected %v, got %v", want, months)
	}
	for i := range want {
		if months[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, months)
		}
	}

	cmp := MonthlyComparison(expenses)
	if len(cmp) != 3 || cmp[0].Month != "2023-12" || cmp[2].Month != "2024-11" {
		t.Fatalf("comparison should be ascending: %v", cmp)
	}
	assertDec(t, "jan", cmp[1].Total, "5")
}

func TestCategoryTotalsPartitionMonthlyTotal(t *testing.T) {
	expenses := []core.Expense{
		exp(2024, 3, 1, core.CategoryPurchases, "PUR-OFF", "10.10"),
		exp(2024, 3, 2, core.CategoryPurchases, "PUR-HK", "5.05"),
		exp(2024, 3, 3, core.CategoryStaff, "SAL-INT", "100"),
		exp(2024, 3, 3, core.CategoryStaff, "SAL-INT", "0.01"),
		exp(2024, 2, 3, core.CategoryStaff, "SAL-EXT", "999"),
	}
	month := core.MonthKey("2024-03")
	total := MonthlyTotal(expenses, month)

	for _, by := range []GroupBy{BySubcategory, ByCategory} {
		sum := decimal.Zero
		for _, v := range CategoryTotals(expenses, month, by) {
			sum = sum.Add(v)
		}
		if !sum.Equal(total) {
			t.Fatalf("group %d: parts sum to %s, total %s", by, sum, total)
		}
	}

	byCat := CategoryTotals(expenses, month, ByCategory)
	assertDec(t, "staff", byCat[core.CategoryStaff], "100.01")
	if _, ok := byCat["SAL-EXT"]; ok {
		t.Fatal("category grouping must not use subcategories")
	}

	sorted := SortedCategoryTotals(expenses, month, BySubcategory)
	if len(sorted) != 3 || sorted[0].Name != "SAL-INT" || sorted[2].Name != "PUR-HK" {
		t.Fatalf("unexpected order: %v", sorted)
	}
}

func TestTopTieGoesToFirstSeen(t *testing.T) {
	expenses := []core.Expense{
		exp(2024, 3, 1, "A", "second", "5"),
		exp(2024, 3, 1, "A", "first", "10"),
		exp(2024, 3, 2, "A", "second", "5"),
	}
	top, err := Top(expenses, "2024-03", BySubcategory)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if top.Name != "second" {
		t.Fatalf("expected first-seen label on tie, got %s", top.Name)
	}

	if _, err := Top(expenses, "2024-04", BySubcategory); !errors.Is(err, ErrNoRecords) {
		t.Fatalf("expected ErrNoRecords, got %v", err)
	}
}

func TestBalance(t *testing.T) {
	expenses := []core.Expense{exp(2024, 3, 5, "A", "a", "200")}
	credits := []core.Credit{cred(2024, 3, 10, "500"), cred(2024, 4, 1, "1")}

	cases := []struct {
		name     string
		expenses []core.Expense
		credits  []core.Credit
		want     string
	}{
		{"both", expenses, credits, "300"},
		{"no credits", expenses, nil, "-200"},
		{"no expenses", nil, credits, "500"},
		{"neither", nil, nil, "0"},
	}
	for _, tc := range cases {
		assertDec(t, tc.name, Balance(tc.expenses, tc.credits, "2024-03"), tc.want)
	}
	assertDec(t, "credit total", CreditTotal(credits, "2024-03"), "500")
}

func TestSummarizeAndBreakdown(t *testing.T) {
	expenses := []core.Expense{
		exp(2024, 3, 1, core.CategoryPurchases, "PUR-OFF", "10"),
		exp(2024, 3, 2, core.CategoryPurchases, "PUR-HK", "20"),
		exp(2024, 3, 3, core.CategoryStaff, "SAL-INT", "60"),
	}
	s := Summarize(expenses, "2024-03")
	if s.Count != 3 {
		t.Fatalf("expected count 3, got %d", s.Count)
	}
	assertDec(t, "total", s.Total, "90")
	assertDec(t, "mean", s.Mean, "30")
	assertDec(t, "max", s.Max, "60")
	assertDec(t, "min", s.Min, "10")

	if empty := Summarize(expenses, "2024-04"); empty.Count != 0 || !empty.Total.IsZero() {
		t.Fatalf("unexpected empty stats: %+v", empty)
	}

	b := CategoryBreakdown(expenses, "2024-03")
	purchases := b[core.CategoryPurchases]
	if purchases.Count != 2 {
		t.Fatalf("expected 2 purchases, got %d", purchases.Count)
	}
	assertDec(t, "purchases total", purchases.Total, "30")
	assertDec(t, "purchases mean", purchases.Mean, "15")

	thirds := CategoryBreakdown([]core.Expense{
		exp(2024, 3, 1, "A", "a", "1"),
		exp(2024, 3, 1, "A", "a", "0"),
		exp(2024, 3, 1, "A", "a", "0"),
	}, "2024-03")
	assertDec(t, "third", thirds["A"].Mean, "0.3333333333333333")
}

func TestBuildMonthReport(t *testing.T) {
	expenses := []core.Expense{
		exp(2024, 3, 20, core.CategoryPurchases, "PUR-OFF", "50"),
		exp(2024, 3, 5, core.CategoryPurchases, "PUR-OFF", "150"),
	}
	credits := []core.Credit{cred(2024, 3, 10, "500")}

	r := BuildMonthReport(expenses, credits, "2024-03", BySubcategory)
	assertDec(t, "total", r.Total, "200")
	assertDec(t, "average", r.AverageDaily, "100")
	assertDec(t, "balance", r.Balance, "300")
	if r.Top == nil || r.Top.Name != "PUR-OFF" {
		t.Fatalf("unexpected top: %+v", r.Top)
	}
	if len(r.Daily) != 2 || r.Daily[0].Day != 5 || r.Daily[1].Day != 20 {
		t.Fatalf("daily series should be ordered by day: %+v", r.Daily)
	}

	empty := BuildMonthReport(expenses, credits, "2025-01", BySubcategory)
	if empty.Top != nil || empty.Count != 0 || !empty.AverageDaily.IsZero() {
		t.Fatalf("unexpected empty report: %+v", empty)
	}
}
