package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"expensetracker/internal/core"
	"expensetracker/internal/ledger"

	_ "modernc.org/sqlite"
)

var _ ledger.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping is used by the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) GetCredential(ctx context.Context) (core.Credential, error) {
	row, err := r.queries.GetCredential(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DefaultCredential(), nil
	}
	if err != nil {
		return core.Credential{}, fmt.Errorf("get credential: %w", err)
	}
	cred := core.Credential{UserID: row.UserID, PasswordHash: row.PasswordHash}
	if t, err := parseTime(row.UpdatedAt); err == nil {
		cred.UpdatedAt = t
	}
	return cred, nil
}

func (r *SQLiteRepository) SetCredential(ctx context.Context, userid, password string) error {
	hash, err := core.HashPassword(password)
	if err != nil {
		return err
	}
	if err := r.queries.UpsertCredential(ctx, userid, hash); err != nil {
		return fmt.Errorf("set credential: %w", err)
	}
	slog.InfoContext(ctx, "Credential updated", "userid", userid)
	return nil
}

func (r *SQLiteRepository) HasCredential(ctx context.Context) (bool, error) {
	n, err := r.queries.CountCredentials(ctx)
	if err != nil {
		return false, fmt.Errorf("count credentials: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.queries.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	expenses := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		e, err := expenseFromRow(row)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, nil
}

func (r *SQLiteRepository) AddExpense(ctx context.Context, e core.Expense) (int64, error) {
	id, err := r.queries.CreateExpense(ctx, expenseParams(e))
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", id,
		"date", e.Date.String(),
		"category", e.Category,
		"subcategory", e.Subcategory,
		"amount", e.Amount.String())

	return id, nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) (bool, error) {
	n, err := r.queries.DeleteExpense(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete expense %d: %w", id, err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Expense deleted", "id", id)
	}
	return n > 0, nil
}

// DeleteExpenseByFields removes the oldest expense matching m. Candidates
// are narrowed in SQL on the exact text fields; the amount tolerance is
// applied on the decimal values.
func (r *SQLiteRepository) DeleteExpenseByFields(ctx context.Context, m core.ExpenseMatch) (bool, error) {
	deleted := false
	err := r.withTx(ctx, func(q *Queries) error {
		rows, err := q.FindExpensesByFields(ctx, FindExpensesByFieldsParams{
			Date:        m.Date.String(),
			Category:    m.Category,
			Subcategory: m.Subcategory,
			Description: m.Description,
		})
		if err != nil {
			return fmt.Errorf("find expenses: %w", err)
		}
		for _, row := range rows {
			e, err := expenseFromRow(row)
			if err != nil {
				return err
			}
			if !m.Matches(e) {
				continue
			}
			n, err := q.DeleteExpense(ctx, e.ID)
			if err != nil {
				return fmt.Errorf("delete expense %d: %w", e.ID, err)
			}
			deleted = n > 0
			slog.InfoContext(ctx, "Expense deleted by fields", "id", e.ID)
			return nil
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete expense by fields: %w", err)
	}
	return deleted, nil
}

func (r *SQLiteRepository) ClearExpenses(ctx context.Context) (int64, error) {
	n, err := r.queries.DeleteAllExpenses(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear expenses: %w", err)
	}
	slog.InfoContext(ctx, "Expenses cleared", "count", n)
	return n, nil
}

func (r *SQLiteRepository) CountExpenses(ctx context.Context) (int64, error) {
	n, err := r.queries.CountExpenses(ctx)
	if err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) ListCredits(ctx context.Context) ([]core.Credit, error) {
	rows, err := r.queries.ListCredits(ctx)
	if err != nil {
		return nil, fmt.Errorf("list credits: %w", err)
	}
	credits := make([]core.Credit, 0, len(rows))
	for _, row := range rows {
		date, err := core.ParseDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("credit %d: %w", row.ID, err)
		}
		c := core.Credit{ID: row.ID, Date: date, Description: row.Description, Amount: row.Amount}
		if t, err := parseTime(row.CreatedAt); err == nil {
			c.CreatedAt = t
		}
		credits = append(credits, c)
	}
	return credits, nil
}

func (r *SQLiteRepository) AddCredit(ctx context.Context, c core.Credit) (int64, error) {
	id, err := r.queries.CreateCredit(ctx, CreateCreditParams{
		Date:        c.Date.String(),
		Description: c.Description,
		Amount:      c.Amount,
	})
	if err != nil {
		return 0, fmt.Errorf("create credit: %w", err)
	}
	slog.InfoContext(ctx, "Credit saved to SQLite", "id", id, "date", c.Date.String(), "amount", c.Amount.String())
	return id, nil
}

func (r *SQLiteRepository) CountCredits(ctx context.Context) (int64, error) {
	n, err := r.queries.CountCredits(ctx)
	if err != nil {
		return 0, fmt.Errorf("count credits: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) ImportCredential(ctx context.Context, userid, password string) error {
	return r.SetCredential(ctx, userid, password)
}

func (r *SQLiteRepository) ImportExpenses(ctx context.Context, items []core.Expense) (int, error) {
	err := r.withTx(ctx, func(q *Queries) error {
		for i, e := range items {
			if _, err := q.CreateExpense(ctx, expenseParams(e)); err != nil {
				return fmt.Errorf("import expense %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "Expenses imported", "count", len(items))
	return len(items), nil
}

func (r *SQLiteRepository) ImportCredits(ctx context.Context, items []core.Credit) (int, error) {
	err := r.withTx(ctx, func(q *Queries) error {
		for i, c := range items {
			if _, err := q.CreateCredit(ctx, CreateCreditParams{
				Date:        c.Date.String(),
				Description: c.Description,
				Amount:      c.Amount,
			}); err != nil {
				return fmt.Errorf("import credit %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "Credits imported", "count", len(items))
	return len(items), nil
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func expenseParams(e core.Expense) CreateExpenseParams {
	return CreateExpenseParams{
		Date:        e.Date.String(),
		Category:    e.Category,
		Subcategory: e.Subcategory,
		Description: e.Description,
		Amount:      e.Amount,
	}
}

func expenseFromRow(row ExpenseRow) (core.Expense, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d: %w", row.ID, err)
	}
	e := core.Expense{
		ID:          row.ID,
		Date:        date,
		Category:    row.Category,
		Subcategory: row.Subcategory,
		Description: row.Description,
		Amount:      row.Amount,
	}
	if t, err := parseTime(row.CreatedAt); err == nil {
		e.CreatedAt = t
	}
	return e, nil
}
