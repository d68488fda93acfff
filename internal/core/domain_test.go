package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want Date
		ok   bool
	}{
		{"2024-03-05", NewDate(2024, 3, 5), true},
		{"2024-03-05T18:30:00", NewDate(2024, 3, 5), true},
		{"2024-03-05 18:30:00", NewDate(2024, 3, 5), true},
		{"2024-03-05T23:30:00+05:30", NewDate(2024, 3, 5), true},
		{"05/03/2024", Date{}, false},
		{"", Date{}, false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(tc.want.Time) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.want, got, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q expected ErrInvalidDate, got %v", tc.in, err)
		}
	}
}

func TestDateJSON(t *testing.T) {
	var target struct {
		Date Date `json:"date"`
	}
	if err := json.Unmarshal([]byte(`{"date":"2024-03-20T10:00:00"}`), &target); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if target.Date.String() != "2024-03-20" {
		t.Fatalf("expected 2024-03-20, got %s", target.Date)
	}
	out, err := json.Marshal(target)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"date":"2024-03-20"}` {
		t.Fatalf("unexpected json %s", out)
	}
}

func TestMonthKeys(t *testing.T) {
	if got := MonthOf(NewDate(2024, 3, 31)); got != "2024-03" {
		t.Fatalf("expected 2024-03, got %s", got)
	}
	if got, err := ParseMonthKey("2024-11"); err != nil || got != "2024-11" {
		t.Fatalf("expected 2024-11, got %s (err=%v)", got, err)
	}
	for _, bad := range []string{"2024-13", "2024", "March", ""} {
		if _, err := ParseMonthKey(bad); !errors.Is(err, ErrInvalidMonth) {
			t.Fatalf("%q expected ErrInvalidMonth, got %v", bad, err)
		}
	}
}

func TestCredentialMatches(t *testing.T) {
	def := DefaultCredential()
	if !def.Matches("admin", "password") {
		t.Fatal("default credential should accept admin/password")
	}
	if def.Matches("admin", "Password") || def.Matches("Admin", "password") {
		t.Fatal("default credential comparison must be exact")
	}

	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	c := Credential{UserID: "alice", PasswordHash: hash}
	if !c.Matches("alice", "s3cret") {
		t.Fatal("expected alice/s3cret to match")
	}
	if c.Matches("alice", "password") || c.Matches("admin", "s3cret") {
		t.Fatal("unexpected match")
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Date:        NewDate(2025, 1, 1),
		Category:    CategoryPurchases,
		Subcategory: "PUR-OFF",
		Description: "Pens",
		Amount:      decimal.RequireFromString("1.50"),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Expense{
		{Date: Date{Time: time.Time{}}, Description: "a", Amount: decimal.NewFromInt(1)}, // zero date
		{Date: NewDate(2025, 1, 1), Description: " ", Amount: decimal.NewFromInt(1)},
		{Date: NewDate(2025, 1, 1), Description: "a", Amount: decimal.Zero},
		{Date: NewDate(2025, 1, 1), Description: "a", Amount: decimal.NewFromInt(-5)},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestExpenseMatchTolerance(t *testing.T) {
	stored := Expense{
		Date:        NewDate(2024, 3, 5),
		Category:    CategoryPurchases,
		Subcategory: "PUR-OFF",
		Description: "Pens",
		Amount:      decimal.RequireFromString("100.00"),
	}
	match := func(amount string) bool {
		return ExpenseMatch{
			Date:        stored.Date,
			Category:    stored.Category,
			Subcategory: stored.Subcategory,
			Description: stored.Description,
			Amount:      decimal.RequireFromString(amount),
		}.Matches(stored)
	}

	cases := map[string]bool{
		"100":     true,
		"99.995":  true,
		"100.009": true,
		"100.01":  false, // exactly the tolerance does not match
		"99.99":   false,
		"101":     false,
	}
	for amount, want := range cases {
		if got := match(amount); got != want {
			t.Fatalf("amount %s: expected %v, got %v", amount, want, got)
		}
	}

	other := ExpenseMatch{Date: stored.Date, Category: stored.Category, Subcategory: "PUR-HK", Description: "Pens", Amount: stored.Amount}
	if other.Matches(stored) {
		t.Fatal("different subcategory must not match")
	}
}

func TestValidatePair(t *testing.T) {
	if err := ValidatePair(CategoryStaff, "SAL-INT"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := ValidatePair(CategoryStaff, ""); err != nil {
		t.Fatalf("empty subcategory should be accepted, got %v", err)
	}
	if err := ValidatePair(CategoryStaff, "PUR-OFF"); !errors.Is(err, ErrUnknownSubcategory) {
		t.Fatalf("expected ErrUnknownSubcategory, got %v", err)
	}
	if err := ValidatePair("Groceries", ""); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
	if len(Categories()) != 4 {
		t.Fatalf("expected 4 categories, got %d", len(Categories()))
	}
}
