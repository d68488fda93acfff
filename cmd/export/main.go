// Command export writes one month of expenses as CSV.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"expensetracker/internal/cli"
	"expensetracker/internal/core"
	"expensetracker/internal/export"
	applog "expensetracker/internal/log"
	"expensetracker/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()

	monthFlag := flag.String("month", string(core.CurrentMonth()), "month to export, YYYY-MM")
	out := flag.String("out", "", "output file; \"-\" for stdout, empty for expenses_<month>.csv")
	flag.Parse()

	month, err := core.ParseMonthKey(*monthFlag)
	if err != nil {
		cli.Fatal(logger, "Invalid month", err)
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backend := cli.InitBackend(ctx, logger, cfg)

	path := *out
	if path == "" {
		path = export.FileName(month)
	}
	n, err := run(ctx, backend.Service, month, path)
	if closeErr := backend.Cleanup(); closeErr != nil {
		logger.Error("Failed to close store", applog.FieldError, closeErr)
	}
	if err != nil {
		cli.Fatal(logger, "Export failed", err)
	}
	logger.Info("Exported expenses", applog.FieldMonth, month, applog.FieldCount, n, "path", path)
}

func run(ctx context.Context, ledger *services.LedgerService, month core.MonthKey, path string) (int, error) {
	items, err := ledger.ListExpenses(ctx, month)
	if err != nil {
		return 0, fmt.Errorf("list expenses for %s: %w", month, err)
	}
	if path == "-" {
		return len(items), export.WriteCSV(os.Stdout, items)
	}
	if err := writeFile(path, items); err != nil {
		return 0, err
	}
	return len(items), nil
}

// writeFile reports a failed close, since a full disk may only show there.
func writeFile(path string, items []core.Expense) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()
	return export.WriteCSV(f, items)
}
