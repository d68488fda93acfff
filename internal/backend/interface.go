package backend

import (
	"context"

	"expensetracker/internal/ledger"
	"expensetracker/internal/legacy"
	"expensetracker/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the ledger service, its store and an optional
// cleanup function
type BackendResult struct {
	Service *services.LedgerService
	Store   ledger.Store
	// Migration is set when a legacy import ran during startup.
	Migration *legacy.Report
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Directory of the JSON files, which are also the legacy migration sources
	DataDirectory  string
	MigrateOnStart bool

	// Ledger events (optional)
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	JSONBackend   BackendType = "json"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, JSONBackend:
		return true
	default:
		return false
	}
}
