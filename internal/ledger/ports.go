// Package ledger defines the record store ports shared by the SQLite and
// flat-file adapters.
package ledger

import (
	"context"

	"expensetracker/internal/core"
)

// Ports for record store adapters.
type (
	// CredentialStore holds at most one credential.
	CredentialStore interface {
		// GetCredential returns the stored credential or core.DefaultCredential.
		GetCredential(ctx context.Context) (core.Credential, error)
		// SetCredential updates the stored credential or creates it.
		SetCredential(ctx context.Context, userid, password string) error
		HasCredential(ctx context.Context) (bool, error)
	}

	ExpenseStore interface {
		// ListExpenses returns all expenses, newest date first.
		ListExpenses(ctx context.Context) ([]core.Expense, error)
		// AddExpense stores e and returns its assigned id. e.ID is ignored.
		AddExpense(ctx context.Context, e core.Expense) (int64, error)
		// DeleteExpense reports whether a record with id existed.
		DeleteExpense(ctx context.Context, id int64) (bool, error)
		// DeleteExpenseByFields removes at most one matching record.
		DeleteExpenseByFields(ctx context.Context, m core.ExpenseMatch) (bool, error)
		// ClearExpenses removes every expense and returns how many there were.
		ClearExpenses(ctx context.Context) (int64, error)
		CountExpenses(ctx context.Context) (int64, error)
	}

	// CreditStore is append-only.
	CreditStore interface {
		ListCredits(ctx context.Context) ([]core.Credit, error)
		AddCredit(ctx context.Context, c core.Credit) (int64, error)
		CountCredits(ctx context.Context) (int64, error)
	}

	// Importer loads one record kind in a single all-or-nothing write.
	Importer interface {
		ImportCredential(ctx context.Context, userid, password string) error
		ImportExpenses(ctx context.Context, items []core.Expense) (int, error)
		ImportCredits(ctx context.Context, items []core.Credit) (int, error)
	}

	Store interface {
		CredentialStore
		ExpenseStore
		CreditStore
		Importer
		Close() error
	}
)
