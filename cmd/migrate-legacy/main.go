// Command migrate-legacy imports the legacy JSON files into the configured
// record store and prints the per-kind report.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	"expensetracker/internal/legacy"
	applog "expensetracker/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()

	dir := flag.String("dir", cfg.DataDir, "directory holding credentials.json, expenses.json and credits.json")
	noBackup := flag.Bool("no-backup", false, "skip copying each source to <name>.backup")
	flag.Parse()

	if cfg.DataBackend == config.BackendJSON {
		cli.Fatal(logger, "Nothing to migrate", fmt.Errorf("the json backend reads the legacy files directly"))
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	// The migration runs here with the chosen flags, not at open.
	cfg.MigrateOnStart = false
	backend := cli.InitBackend(ctx, logger, cfg)

	report, err := run(ctx, backend.Store, *dir, !*noBackup)
	if closeErr := backend.Cleanup(); closeErr != nil {
		logger.Error("Failed to close store", applog.FieldError, closeErr)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(printable(report)); encErr != nil {
		logger.Error("Failed to print report", applog.FieldError, encErr)
	}
	if err != nil {
		cli.Fatal(logger, "Legacy migration failed", err)
	}
	logger.Info("Legacy migration complete", "imported", report.Imported())
}

func run(ctx context.Context, store legacy.Target, dir string, backup bool) (legacy.Report, error) {
	src := legacy.SourcesIn(dir)
	if backup {
		if _, err := legacy.Backup(src); err != nil {
			return legacy.Report{}, err
		}
	}
	return legacy.Migrate(ctx, store, src)
}

type resultLine struct {
	Kind   legacy.Kind   `json:"kind"`
	Status legacy.Status `json:"status"`
	Count  int           `json:"count"`
	Error  string        `json:"error,omitempty"`
}

func printable(r legacy.Report) []resultLine {
	out := make([]resultLine, 0, len(r.Results))
	for _, res := range r.Results {
		line := resultLine{Kind: res.Kind, Status: res.Status, Count: res.Count}
		if res.Err != nil {
			line.Error = res.Err.Error()
		}
		out = append(out, line)
	}
	return out
}
