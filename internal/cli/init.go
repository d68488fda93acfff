// Package cli provides common CLI initialization utilities shared by
// cmd/tracker, cmd/migrate-legacy and cmd/export.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"expensetracker/internal/backend"
	"expensetracker/internal/config"
	applog "expensetracker/internal/log"
)

// SetupLogger initializes structured logging from LOG_LEVEL and LOG_FORMAT.
// Returns the configured logger and sets it as the default logger.
func SetupLogger(cfg *config.Config) *applog.Logger {
	level, err := applog.ParseLevel(cfg.LogLevel)
	logger := applog.New(applog.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: applog.ComponentApp,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)
	if err != nil {
		logger.Warn("Unknown log level, using info", "level", cfg.LogLevel)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig() (*config.Config, *applog.Logger) {
	cfg := config.Load()
	logger := SetupLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// InitBackend creates the record store and ledger service for cfg.
// Returns the result or exits the process on failure.
func InitBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config) *backend.BackendResult {
	result, err := NewBackend(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return result
}

// NewBackend is InitBackend without the exit.
func NewBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", bcfg.Type, err)
	}
	return result, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// RunCleanup runs cleanup, logging instead of failing, and bounded by timeout.
func RunCleanup(logger *applog.Logger, timeout time.Duration, cleanup func() error) {
	if cleanup == nil {
		return
	}
	done := make(chan error, 1)
	go func() { done <- cleanup() }()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("Cleanup failed", applog.FieldError, err)
			return
		}
		logger.Info("Shutdown complete")
	case <-time.After(timeout):
		logger.Warn("Shutdown timeout reached")
	}
}

// Fatal logs err and exits with status 1.
func Fatal(logger *applog.Logger, msg string, err error) {
	logger.Error(msg, applog.FieldError, err)
	os.Exit(1)
}
