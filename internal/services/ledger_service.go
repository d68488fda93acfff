package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/ledger"
)

// Publisher announces ledger changes. *amqp.Client satisfies it.
type Publisher interface {
	Publish(ctx context.Context, ev *amqp.LedgerEvent) error
	Close() error
}

// LedgerService orchestrates record store writes and event publishing.
// The store is authoritative: a failed publish is logged and never fails
// the operation.
type LedgerService struct {
	store     ledger.Store
	publisher Publisher
}

// NewLedgerService wires store and an optional publisher (nil disables events).
func NewLedgerService(store ledger.Store, publisher Publisher) *LedgerService {
	return &LedgerService{store: store, publisher: publisher}
}

func (s *LedgerService) Store() ledger.Store { return s.store }

// Authenticate checks userid and password against the effective credential.
func (s *LedgerService) Authenticate(ctx context.Context, userid, password string) (bool, error) {
	cred, err := s.store.GetCredential(ctx)
	if err != nil {
		return false, fmt.Errorf("get credential: %w", err)
	}
	return cred.Matches(userid, password), nil
}

func (s *LedgerService) SetCredential(ctx context.Context, userid, password string) error {
	if err := s.store.SetCredential(ctx, userid, password); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventCredentialUpdate, 0))
	return nil
}

// ListExpenses returns all expenses, or only those of month when it is set.
func (s *LedgerService) ListExpenses(ctx context.Context, month core.MonthKey) ([]core.Expense, error) {
	items, err := s.store.ListExpenses(ctx)
	if err != nil {
		return nil, err
	}
	if month == "" {
		return items, nil
	}
	out := items[:0:0]
	for _, e := range items {
		if e.Date.Month() == month {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *LedgerService) AddExpense(ctx context.Context, e core.Expense) (int64, error) {
	id, err := s.store.AddExpense(ctx, e)
	if err != nil {
		return 0, err
	}
	ev := amqp.NewLedgerEvent(amqp.EventExpenseAdded, id)
	ev.Date = e.Date.String()
	ev.Amount = e.Amount.String()
	s.publish(ctx, ev)
	return id, nil
}

func (s *LedgerService) DeleteExpense(ctx context.Context, id int64) (bool, error) {
	ok, err := s.store.DeleteExpense(ctx, id)
	if err != nil || !ok {
		return ok, err
	}
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventExpenseDeleted, id))
	return true, nil
}

func (s *LedgerService) DeleteExpenseByFields(ctx context.Context, m core.ExpenseMatch) (bool, error) {
	ok, err := s.store.DeleteExpenseByFields(ctx, m)
	if err != nil || !ok {
		return ok, err
	}
	ev := amqp.NewLedgerEvent(amqp.EventExpenseDeleted, 0)
	ev.Date = m.Date.String()
	ev.Amount = m.Amount.String()
	s.publish(ctx, ev)
	return true, nil
}

func (s *LedgerService) ClearExpenses(ctx context.Context) (int64, error) {
	n, err := s.store.ClearExpenses(ctx)
	if err != nil {
		return 0, err
	}
	ev := amqp.NewLedgerEvent(amqp.EventExpensesCleared, 0)
	ev.Count = n
	s.publish(ctx, ev)
	return n, nil
}

// ListCredits returns all credits, or only those of month when it is set.
func (s *LedgerService) ListCredits(ctx context.Context, month core.MonthKey) ([]core.Credit, error) {
	items, err := s.store.ListCredits(ctx)
	if err != nil {
		return nil, err
	}
	if month == "" {
		return items, nil
	}
	out := items[:0:0]
	for _, c := range items {
		if c.Date.Month() == month {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *LedgerService) AddCredit(ctx context.Context, c core.Credit) (int64, error) {
	id, err := s.store.AddCredit(ctx, c)
	if err != nil {
		return 0, err
	}
	ev := amqp.NewLedgerEvent(amqp.EventCreditAdded, id)
	ev.Date = c.Date.String()
	ev.Amount = c.Amount.String()
	s.publish(ctx, ev)
	return id, nil
}

func (s *LedgerService) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		slog.WarnContext(ctx, "Failed to publish ledger event", "type", ev.Type, "id", ev.ID, "error", err)
	}
}

// Close closes both storage and AMQP connections
func (s *LedgerService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close ledger service: %w", err)
	}
	return nil
}
