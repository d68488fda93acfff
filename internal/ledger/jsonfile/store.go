// Package jsonfile keeps the ledger in the flat JSON files the tracker
// originally used, extended with record ids and timestamps.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/ledger"
	"expensetracker/internal/legacy"

	"github.com/natefinch/atomic"
)

const (
	CredentialsFile = "credentials.json"
	ExpensesFile    = "expenses.json"
	CreditsFile     = "credits.json"
	// SequenceFile holds the id high-water marks. Ids are never reused,
	// even after the records holding them are deleted.
	SequenceFile = "ledger.json"
)

type sequences struct {
	LastExpenseID int64 `json:"last_expense_id"`
	LastCreditID  int64 `json:"last_credit_id"`
}

var _ ledger.Store = (*Store)(nil)

type Store struct {
	dir string

	mu       sync.Mutex
	cred     *core.Credential
	expenses []core.Expense
	credits  []core.Credit
	lastExp  int64
	lastCred int64
}

// Open loads the three files from dir, creating dir if needed. Missing
// files are empty lists. Records without an id are numbered after the
// highest id ever assigned, in file order.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	s := &Store{dir: dir}

	seq, err := s.loadSequences()
	if err != nil {
		return nil, err
	}

	if err := s.loadCredential(); err != nil {
		return nil, err
	}

	expenses, err := legacy.ReadExpenses(s.path(ExpensesFile))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	s.expenses = expenses
	s.lastExp = assignIDs(seq.LastExpenseID, len(s.expenses), func(i int) *int64 { return &s.expenses[i].ID })

	credits, err := legacy.ReadCredits(s.path(CreditsFile))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load credits: %w", err)
	}
	s.credits = credits
	s.lastCred = assignIDs(seq.LastCreditID, len(s.credits), func(i int) *int64 { return &s.credits[i].ID })

	return s, nil
}

func (s *Store) Close() error { return nil }

func (s *Store) loadSequences() (sequences, error) {
	var seq sequences
	data, err := os.ReadFile(s.path(SequenceFile))
	if errors.Is(err, fs.ErrNotExist) {
		return seq, nil
	}
	if err != nil {
		return seq, fmt.Errorf("load sequences: %w", err)
	}
	if err := json.Unmarshal(data, &seq); err != nil {
		return seq, fmt.Errorf("decode %s: %w", SequenceFile, err)
	}
	return seq, nil
}

// reserveIDs persists the new high-water marks before any record carries
// them. A failed data write afterwards leaves a gap, never a reused id.
func (s *Store) reserveIDs(lastExp, lastCred int64) error {
	if err := s.writeJSON(SequenceFile, sequences{LastExpenseID: lastExp, LastCreditID: lastCred}); err != nil {
		return fmt.Errorf("reserve ids: %w", err)
	}
	s.lastExp, s.lastCred = lastExp, lastCred
	return nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// loadCredential reads credentials.json. A file that still holds a
// cleartext password is rewritten with its hash.
func (s *Store) loadCredential() error {
	rec, err := legacy.ReadCredential(s.path(CredentialsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}

	if rec.PasswordHash != "" {
		userid, _ := rec.Identity()
		cred := core.Credential{UserID: userid, PasswordHash: rec.PasswordHash}
		if t, err := time.Parse(time.RFC3339Nano, rec.UpdatedAt); err == nil {
			cred.UpdatedAt = t
		}
		s.cred = &cred
		return nil
	}

	userid, password := rec.Identity()
	if err := s.storeCredential(userid, password); err != nil {
		return fmt.Errorf("rehash legacy credential: %w", err)
	}
	slog.Info("Legacy cleartext credential replaced with hash", "path", s.path(CredentialsFile))
	return nil
}

func (s *Store) GetCredential(_ context.Context) (core.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cred == nil {
		return core.DefaultCredential(), nil
	}
	return *s.cred, nil
}

func (s *Store) SetCredential(ctx context.Context, userid, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storeCredential(userid, password); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Credential updated", "userid", userid)
	return nil
}

func (s *Store) storeCredential(userid, password string) error {
	hash, err := core.HashPassword(password)
	if err != nil {
		return err
	}
	cred := core.Credential{UserID: userid, PasswordHash: hash, UpdatedAt: time.Now().UTC()}
	rec := legacy.CredentialRecord{
		UserID:       &cred.UserID,
		PasswordHash: cred.PasswordHash,
		UpdatedAt:    cred.UpdatedAt.Format(time.RFC3339Nano),
	}
	if err := s.writeJSON(CredentialsFile, rec); err != nil {
		return fmt.Errorf("set credential: %w", err)
	}
	s.cred = &cred
	return nil
}

func (s *Store) HasCredential(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cred != nil, nil
}

func (s *Store) ListExpenses(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	out := append([]core.Expense{}, s.expenses...)
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) AddExpense(ctx context.Context, e core.Expense) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = s.lastExp + 1
	e.CreatedAt = time.Now().UTC()
	if err := s.reserveIDs(e.ID, s.lastCred); err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}
	next := append(append([]core.Expense{}, s.expenses...), e)
	if err := s.saveExpenses(next); err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to JSON file",
		"id", e.ID,
		"date", e.Date.String(),
		"category", e.Category,
		"subcategory", e.Subcategory,
		"amount", e.Amount.String())
	return e.ID, nil
}

func (s *Store) DeleteExpense(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.expenses {
		if e.ID != id {
			continue
		}
		if err := s.removeExpenseAt(i); err != nil {
			return false, fmt.Errorf("delete expense %d: %w", id, err)
		}
		slog.InfoContext(ctx, "Expense deleted", "id", id)
		return true, nil
	}
	return false, nil
}

// DeleteExpenseByFields removes the matching expense with the lowest id.
func (s *Store) DeleteExpenseByFields(ctx context.Context, m core.ExpenseMatch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, e := range s.expenses {
		if m.Matches(e) && (idx < 0 || e.ID < s.expenses[idx].ID) {
			idx = i
		}
	}
	if idx < 0 {
		return false, nil
	}
	id := s.expenses[idx].ID
	if err := s.removeExpenseAt(idx); err != nil {
		return false, fmt.Errorf("delete expense by fields: %w", err)
	}
	slog.InfoContext(ctx, "Expense deleted by fields", "id", id)
	return true, nil
}

func (s *Store) removeExpenseAt(i int) error {
	next := make([]core.Expense, 0, len(s.expenses)-1)
	next = append(next, s.expenses[:i]...)
	next = append(next, s.expenses[i+1:]...)
	return s.saveExpenses(next)
}

func (s *Store) ClearExpenses(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.expenses))
	if err := s.saveExpenses([]core.Expense{}); err != nil {
		return 0, fmt.Errorf("clear expenses: %w", err)
	}
	slog.InfoContext(ctx, "Expenses cleared", "count", n)
	return n, nil
}

func (s *Store) CountExpenses(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.expenses)), nil
}

func (s *Store) ListCredits(_ context.Context) ([]core.Credit, error) {
	s.mu.Lock()
	out := append([]core.Credit{}, s.credits...)
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) AddCredit(ctx context.Context, c core.Credit) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = s.lastCred + 1
	c.CreatedAt = time.Now().UTC()
	if err := s.reserveIDs(s.lastExp, c.ID); err != nil {
		return 0, fmt.Errorf("create credit: %w", err)
	}
	next := append(append([]core.Credit{}, s.credits...), c)
	if err := s.saveCredits(next); err != nil {
		return 0, fmt.Errorf("create credit: %w", err)
	}

	slog.InfoContext(ctx, "Credit saved to JSON file", "id", c.ID, "date", c.Date.String(), "amount", c.Amount.String())
	return c.ID, nil
}

func (s *Store) CountCredits(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.credits)), nil
}

func (s *Store) ImportCredential(ctx context.Context, userid, password string) error {
	return s.SetCredential(ctx, userid, password)
}

func (s *Store) ImportExpenses(ctx context.Context, items []core.Expense) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	next := append(make([]core.Expense, 0, len(s.expenses)+len(items)), s.expenses...)
	last := s.lastExp
	for _, e := range items {
		last++
		e.ID = last
		e.CreatedAt = now
		next = append(next, e)
	}
	if err := s.reserveIDs(last, s.lastCred); err != nil {
		return 0, fmt.Errorf("import expenses: %w", err)
	}
	if err := s.saveExpenses(next); err != nil {
		return 0, fmt.Errorf("import expenses: %w", err)
	}
	slog.InfoContext(ctx, "Expenses imported", "count", len(items))
	return len(items), nil
}

func (s *Store) ImportCredits(ctx context.Context, items []core.Credit) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	next := append(make([]core.Credit, 0, len(s.credits)+len(items)), s.credits...)
	last := s.lastCred
	for _, c := range items {
		last++
		c.ID = last
		c.CreatedAt = now
		next = append(next, c)
	}
	if err := s.reserveIDs(s.lastExp, last); err != nil {
		return 0, fmt.Errorf("import credits: %w", err)
	}
	if err := s.saveCredits(next); err != nil {
		return 0, fmt.Errorf("import credits: %w", err)
	}
	slog.InfoContext(ctx, "Credits imported", "count", len(items))
	return len(items), nil
}

// saveExpenses persists items and, only once the file is written, makes
// them the current state.
func (s *Store) saveExpenses(items []core.Expense) error {
	recs := make([]legacy.ExpenseRecord, len(items))
	for i, e := range items {
		recs[i] = legacy.ExpenseRecordOf(e)
	}
	if err := s.writeJSON(ExpensesFile, recs); err != nil {
		return err
	}
	s.expenses = items
	return nil
}

func (s *Store) saveCredits(items []core.Credit) error {
	recs := make([]legacy.CreditRecord, len(items))
	for i, c := range items {
		recs[i] = legacy.CreditRecordOf(c)
	}
	if err := s.writeJSON(CreditsFile, recs); err != nil {
		return err
	}
	s.credits = items
	return nil
}

func (s *Store) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := atomic.WriteFile(s.path(name), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// assignIDs numbers records whose id is zero after the larger of floor
// and the highest id present, and returns the new high-water mark.
func assignIDs(floor int64, n int, id func(i int) *int64) int64 {
	last := floor
	for i := 0; i < n; i++ {
		if v := *id(i); v > last {
			last = v
		}
	}
	for i := 0; i < n; i++ {
		if p := id(i); *p == 0 {
			last++
			*p = last
		}
	}
	return last
}
