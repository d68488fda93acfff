package jsonfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"expensetracker/internal/core"

	"github.com/shopspring/decimal"
)

func mustWrite(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func mustOpen(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

func TestOpenEmptyDir(t *testing.T) {
	ctx := context.Background()
	s := mustOpen(t, filepath.Join(t.TempDir(), "data"))

	cred, err := s.GetCredential(ctx)
	if err != nil || !cred.Default || !cred.Matches("admin", "password") {
		t.Fatalf("expected default credential, got %+v err=%v", cred, err)
	}
	if has, _ := s.HasCredential(ctx); has {
		t.Fatal("empty store should not report a credential")
	}
	items, err := s.ListExpenses(ctx)
	if err != nil || len(items) != 0 {
		t.Fatalf("expected no expenses, got %v err=%v", items, err)
	}
}

func TestOpenLegacyFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	mustWrite(t, dir, ExpensesFile, `[
		{"date": "2024-03-05", "category": "Purchases", "description": "Pens", "amount": 12.5},
		{"date": "2024-03-06", "amount": 3}
	]`)
	mustWrite(t, dir, CreditsFile, `[{"date": "2024-03-10", "description": "Refund", "amount": 500}]`)
	mustWrite(t, dir, CredentialsFile, `{"userid": "alice", "password": "s3cret"}`)

	s := mustOpen(t, dir)

	items, _ := s.ListExpenses(ctx)
	if len(items) != 2 {
		t.Fatalf("expected 2 expenses, got %d", len(items))
	}
	if items[0].ID != 2 || items[1].ID != 1 {
		t.Fatalf("expected ids assigned in file order, got %d,%d", items[0].ID, items[1].ID)
	}
	if items[1].Subcategory != "Purchases" {
		t.Fatalf("subcategory should default to category, got %q", items[1].Subcategory)
	}
	if items[0].Category != core.DefaultCategory || items[0].Description != "" {
		t.Fatalf("unexpected defaults: %+v", items[0])
	}

	cred, _ := s.GetCredential(ctx)
	if !cred.Matches("alice", "s3cret") {
		t.Fatal("legacy credential should still authenticate")
	}
	raw, err := os.ReadFile(filepath.Join(dir, CredentialsFile))
	if err != nil {
		t.Fatalf("read credentials: %v", err)
	}
	if strings.Contains(string(raw), "s3cret") {
		t.Fatalf("cleartext password left on disk: %s", raw)
	}

	// The rehashed file keeps working across reopen.
	s = mustOpen(t, dir)
	if cred, _ := s.GetCredential(ctx); !cred.Matches("alice", "s3cret") {
		t.Fatal("credential lost on reopen")
	}
}

func TestOpenMalformed(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, dir, ExpensesFile, `{not json`)
	if _, err := Open(dir); err == nil {
		t.Fatal("expected error for malformed expenses file")
	}
}

func TestAddDeleteAndPersist(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := mustOpen(t, dir)

	date := core.NewDate(2024, 3, 5)
	add := func(desc, amount string) int64 {
		id, err := s.AddExpense(ctx, core.Expense{
			Date:        date,
			Category:    core.CategoryPurchases,
			Subcategory: "PUR-OFF",
			Description: desc,
			Amount:      decimal.RequireFromString(amount),
		})
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		return id
	}
	first := add("Pens", "100")
	second := add("Pens", "100")
	third := add("Paper", "7.25")
	if !(first < second && second < third) {
		t.Fatalf("ids not monotonic: %d %d %d", first, second, third)
	}

	ok, err := s.DeleteExpenseByFields(ctx, core.ExpenseMatch{
		Date:        date,
		Category:    core.CategoryPurchases,
		Subcategory: "PUR-OFF",
		Description: "Pens",
		Amount:      decimal.RequireFromString("100.009"),
	})
	if err != nil || !ok {
		t.Fatalf("expected match, got ok=%v err=%v", ok, err)
	}

	if ok, _ := s.DeleteExpense(ctx, 999); ok {
		t.Fatal("unknown id should report false")
	}

	s = mustOpen(t, dir)
	items, _ := s.ListExpenses(ctx)
	if len(items) != 2 {
		t.Fatalf("expected 2 after reopen, got %d", len(items))
	}
	if items[0].ID != third || items[1].ID != second {
		t.Fatalf("expected lowest matching id removed, got %+v", items)
	}
	if !items[0].Amount.Equal(decimal.RequireFromString("7.25")) {
		t.Fatalf("amount round trip: %s", items[0].Amount)
	}

	// The newest id survived, so the next one follows it.
	if id := add("Ink", "1"); id <= third {
		t.Fatalf("expected id > %d, got %d", third, id)
	}

	n, err := s.ClearExpenses(ctx)
	if err != nil || n != 3 {
		t.Fatalf("clear: n=%d err=%v", n, err)
	}
	raw, _ := os.ReadFile(filepath.Join(dir, ExpensesFile))
	var recs []json.RawMessage
	if err := json.Unmarshal(raw, &recs); err != nil || len(recs) != 0 {
		t.Fatalf("expected empty array on disk, got %s", raw)
	}
}

func TestCreditsAndImports(t *testing.T) {
	ctx := context.Background()
	s := mustOpen(t, t.TempDir())

	n, err := s.ImportCredits(ctx, []core.Credit{
		{Date: core.NewDate(2024, 3, 1), Description: "a", Amount: decimal.NewFromInt(1)},
		{Date: core.NewDate(2024, 4, 1), Description: "b", Amount: decimal.NewFromInt(2)},
	})
	if err != nil || n != 2 {
		t.Fatalf("import credits: n=%d err=%v", n, err)
	}
	if _, err := s.AddCredit(ctx, core.Credit{Date: core.NewDate(2024, 2, 1), Description: "c", Amount: decimal.NewFromInt(3)}); err != nil {
		t.Fatalf("add credit: %v", err)
	}

	credits, _ := s.ListCredits(ctx)
	if len(credits) != 3 || credits[0].Description != "b" || credits[2].Description != "c" {
		t.Fatalf("unexpected credits order: %+v", credits)
	}
	if count, _ := s.CountCredits(ctx); count != 3 {
		t.Fatalf("expected 3 credits, got %d", count)
	}

	if err := s.SetCredential(ctx, "bob", "pw"); err != nil {
		t.Fatalf("set credential: %v", err)
	}
	if has, _ := s.HasCredential(ctx); !has {
		t.Fatal("expected credential after set")
	}
}

func TestIdsNeverReused(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := mustOpen(t, dir)

	add := func(s *Store) int64 {
		t.Helper()
		id, err := s.AddExpense(ctx, core.Expense{
			Date:        core.NewDate(2024, 3, 5),
			Category:    core.CategoryPurchases,
			Subcategory: "PUR-OFF",
			Description: "Pens",
			Amount:      decimal.NewFromInt(1),
		})
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		return id
	}

	add(s)
	newest := add(s)
	if ok, err := s.DeleteExpense(ctx, newest); err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}

	s = mustOpen(t, dir)
	next := add(s)
	if next <= newest {
		t.Fatalf("id %d reused after deleting %d", next, newest)
	}

	if _, err := s.ClearExpenses(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	s = mustOpen(t, dir)
	if id := add(s); id <= next {
		t.Fatalf("id %d reused after clearing up to %d", id, next)
	}

	credit := core.Credit{Date: core.NewDate(2024, 3, 1), Description: "refund", Amount: decimal.NewFromInt(5)}
	first, err := s.AddCredit(ctx, credit)
	if err != nil {
		t.Fatalf("add credit: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, SequenceFile))
	if err != nil {
		t.Fatalf("read sequences: %v", err)
	}
	var seq sequences
	if err := json.Unmarshal(raw, &seq); err != nil {
		t.Fatalf("decode sequences: %v", err)
	}
	if seq.LastCreditID != first || seq.LastExpenseID <= next {
		t.Fatalf("unexpected sequences on disk: %+v", seq)
	}
}

func TestLegacyRecordsNumberedAfterSequence(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, dir, SequenceFile, `{"last_expense_id": 7, "last_credit_id": 0}`)
	mustWrite(t, dir, ExpensesFile, `[{"date":"2024-03-05","category":"Purchases","subcategory":"PUR-OFF","description":"Pens","amount":1.5}]`)

	s := mustOpen(t, dir)
	items, _ := s.ListExpenses(context.Background())
	if len(items) != 1 || items[0].ID != 8 {
		t.Fatalf("expected legacy record numbered 8, got %+v", items)
	}
}
