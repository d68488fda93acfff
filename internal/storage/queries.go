package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Row types mirror the table columns.
type (
	CredentialRow struct {
		UserID       string
		PasswordHash string
		UpdatedAt    string
	}

	ExpenseRow struct {
		ID          int64
		Date        string
		Category    string
		Subcategory string
		Description string
		Amount      decimal.Decimal
		CreatedAt   string
	}

	CreditRow struct {
		ID          int64
		Date        string
		Description string
		Amount      decimal.Decimal
		CreatedAt   string
	}

	CreateExpenseParams struct {
		Date        string
		Category    string
		Subcategory string
		Description string
		Amount      decimal.Decimal
	}

	CreateCreditParams struct {
		Date        string
		Description string
		Amount      decimal.Decimal
	}

	FindExpensesByFieldsParams struct {
		Date        string
		Category    string
		Subcategory string
		Description string
	}
)

const getCredential = `SELECT userid, password_hash, updated_at FROM credentials WHERE id = 1`

func (q *Queries) GetCredential(ctx context.Context) (CredentialRow, error) {
	var row CredentialRow
	err := q.db.QueryRowContext(ctx, getCredential).Scan(&row.UserID, &row.PasswordHash, &row.UpdatedAt)
	return row, err
}

const upsertCredential = `
INSERT INTO credentials (id, userid, password_hash, updated_at)
VALUES (1, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(id) DO UPDATE SET
    userid = excluded.userid,
    password_hash = excluded.password_hash,
    updated_at = CURRENT_TIMESTAMP`

func (q *Queries) UpsertCredential(ctx context.Context, userid, passwordHash string) error {
	_, err := q.db.ExecContext(ctx, upsertCredential, userid, passwordHash)
	return err
}

const countCredentials = `SELECT COUNT(*) FROM credentials`

func (q *Queries) CountCredentials(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countCredentials).Scan(&n)
	return n, err
}

const createExpense = `
INSERT INTO expenses (date, category, subcategory, description, amount)
VALUES (?, ?, ?, ?, ?)
RETURNING id`

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createExpense,
		arg.Date, arg.Category, arg.Subcategory, arg.Description, arg.Amount.InexactFloat64(),
	).Scan(&id)
	return id, err
}

const listExpenses = `
SELECT id, date, category, subcategory, description, amount, created_at
FROM expenses
ORDER BY date DESC, id DESC`

func (q *Queries) ListExpenses(ctx context.Context) ([]ExpenseRow, error) {
	return q.queryExpenses(ctx, listExpenses)
}

const findExpensesByFields = `
SELECT id, date, category, subcategory, description, amount, created_at
FROM expenses
WHERE date = ? AND category = ? AND subcategory = ? AND description = ?
ORDER BY id ASC`

func (q *Queries) FindExpensesByFields(ctx context.Context, arg FindExpensesByFieldsParams) ([]ExpenseRow, error) {
	return q.queryExpenses(ctx, findExpensesByFields, arg.Date, arg.Category, arg.Subcategory, arg.Description)
}

func (q *Queries) queryExpenses(ctx context.Context, query string, args ...interface{}) ([]ExpenseRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ExpenseRow
	for rows.Next() {
		var i ExpenseRow
		if err := rows.Scan(&i.ID, &i.Date, &i.Category, &i.Subcategory, &i.Description, &i.Amount, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteExpense = `DELETE FROM expenses WHERE id = ?`

func (q *Queries) DeleteExpense(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpense, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteAllExpenses = `DELETE FROM expenses`

func (q *Queries) DeleteAllExpenses(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteAllExpenses)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const countExpenses = `SELECT COUNT(*) FROM expenses`

func (q *Queries) CountExpenses(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countExpenses).Scan(&n)
	return n, err
}

const createCredit = `
INSERT INTO credits (date, description, amount)
VALUES (?, ?, ?)
RETURNING id`

func (q *Queries) CreateCredit(ctx context.Context, arg CreateCreditParams) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createCredit, arg.Date, arg.Description, arg.Amount.InexactFloat64()).Scan(&id)
	return id, err
}

const listCredits = `
SELECT id, date, description, amount, created_at
FROM credits
ORDER BY date DESC, id DESC`

func (q *Queries) ListCredits(ctx context.Context) ([]CreditRow, error) {
	rows, err := q.db.QueryContext(ctx, listCredits)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CreditRow
	for rows.Next() {
		var i CreditRow
		if err := rows.Scan(&i.ID, &i.Date, &i.Description, &i.Amount, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countCredits = `SELECT COUNT(*) FROM credits`

func (q *Queries) CountCredits(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countCredits).Scan(&n)
	return n, err
}

// parseTime accepts the layouts SQLite and the driver produce for
// CURRENT_TIMESTAMP columns.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04:05",
		time.RFC3339,
		time.RFC3339Nano,
	}
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
