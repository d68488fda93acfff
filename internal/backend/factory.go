package backend

import (
	"context"
	"fmt"
	"log/slog"

	"expensetracker/internal/amqp"
	"expensetracker/internal/ledger/jsonfile"
	"expensetracker/internal/legacy"
	"expensetracker/internal/services"
	"expensetracker/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(ctx, config)
	case JSONBackend:
		result, err = f.createJSONBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	publisher := f.createPublisher(config)
	result.Service = services.NewLedgerService(result.Store, publisher)
	result.Cleanup = result.Service.Close
	return result, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	result := &BackendResult{Store: repo}

	if config.MigrateOnStart {
		report, err := f.migrateLegacy(ctx, repo, config.DataDirectory)
		if err != nil {
			repo.Close()
			return nil, err
		}
		result.Migration = &report
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"migrate_on_start", config.MigrateOnStart)
	return result, nil
}

func (f *DefaultFactory) createJSONBackend(config Config) (*BackendResult, error) {
	// Opening rewrites legacy records in place, so keep the originals first.
	if _, err := legacy.Backup(legacy.SourcesIn(config.DataDirectory)); err != nil {
		return nil, fmt.Errorf("backup legacy files: %w", err)
	}
	store, err := jsonfile.Open(config.DataDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSON store: %w", err)
	}

	f.logger.Info("Initialized JSON backend", "data_directory", config.DataDirectory)
	return &BackendResult{Store: store}, nil
}

func (f *DefaultFactory) migrateLegacy(ctx context.Context, store legacy.Target, dir string) (legacy.Report, error) {
	src := legacy.SourcesIn(dir)
	if _, err := legacy.Backup(src); err != nil {
		return legacy.Report{}, fmt.Errorf("backup legacy files: %w", err)
	}
	report, err := legacy.Migrate(ctx, store, src)
	if err != nil {
		return report, fmt.Errorf("migrate legacy files: %w", err)
	}
	f.logger.Info("Legacy migration finished", "data_directory", dir, "imported", report.Imported())
	return report, nil
}

// createPublisher returns nil when events are disabled or the broker is
// unreachable; the ledger works without it.
func (f *DefaultFactory) createPublisher(config Config) services.Publisher {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPRoutingKey)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without ledger events", "error", err)
		return nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"routing_key", config.AMQPRoutingKey)
	return client
}
