package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	"expensetracker/internal/export/sheets"
	apphttp "expensetracker/internal/http"
	applog "expensetracker/internal/log"
	"expensetracker/internal/session"
)

const (
	shutdownTimeout = 30 * time.Second
	sessionCleanup  = 10 * time.Minute
	maxSessions     = 100
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backend := cli.InitBackend(ctx, logger, cfg)

	sessions := session.NewRegistry(maxSessions, cfg.SessionTTL)
	srv := apphttp.NewServer(":"+cfg.Port, backend.Service, sessions, newSheetsExporter(ctx, logger, cfg), apphttp.Options{
		EnableCredits:       cfg.EnableCredits,
		EnableSubcategories: cfg.EnableSubcategories,
		LoginRatePerMinute:  cfg.LoginRatePerMinute,
		SecureCookies:       cfg.SecureCookies,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting expense tracker server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"credits", cfg.EnableCredits,
			"subcategories", cfg.EnableSubcategories)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sessions.Run(gctx, sessionCleanup)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		return nil
	})

	err := g.Wait()
	cli.RunCleanup(logger, shutdownTimeout, backend.Cleanup)
	if err != nil {
		cli.Fatal(logger, "Server error", err)
	}
	logger.Info("Server stopped gracefully")
}

// newSheetsExporter returns nil unless a spreadsheet and credentials are set.
func newSheetsExporter(ctx context.Context, logger *applog.Logger, cfg *config.Config) apphttp.SheetsExporter {
	if !cfg.SheetsExportEnabled() {
		return nil
	}
	exporter, err := sheets.New(ctx, sheets.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
		SheetPrefix:        cfg.GoogleExportSheetPrefix,
	})
	if err != nil {
		logger.Warn("Google Sheets export disabled", applog.FieldError, err)
		return nil
	}
	logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return exporter
}
