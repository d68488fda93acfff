package amqp

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventExpenseAdded     EventType = "expense.added"
	EventExpenseDeleted   EventType = "expense.deleted"
	EventExpensesCleared  EventType = "expenses.cleared"
	EventCreditAdded      EventType = "credit.added"
	EventCredentialUpdate EventType = "credential.updated"
)

// LedgerEvent announces a committed change to the ledger. Amount is the
// decimal string of the record's amount, when there is one.
type LedgerEvent struct {
	Type      EventType `json:"type"`
	ID        int64     `json:"id,omitempty"`
	Date      string    `json:"date,omitempty"`
	Amount    string    `json:"amount,omitempty"`
	Count     int64     `json:"count,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEvent(typ EventType, id int64) *LedgerEvent {
	return &LedgerEvent{
		Type:      typ,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
