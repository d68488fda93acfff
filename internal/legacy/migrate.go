// Package legacy imports the flat JSON files that predate the record store.
package legacy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"expensetracker/internal/ledger"
)

type Kind string

const (
	KindCredentials Kind = "credentials"
	KindExpenses    Kind = "expenses"
	KindCredits     Kind = "credits"
)

type Status string

const (
	StatusImported         Status = "imported"
	StatusSkippedPopulated Status = "skipped_populated"
	StatusSkippedMissing   Status = "skipped_missing"
	StatusFailed           Status = "failed"
)

// Sources are the legacy file locations. An empty path counts as missing.
type Sources struct {
	CredentialsPath string
	ExpensesPath    string
	CreditsPath     string
}

// SourcesIn returns the legacy file names inside dir.
func SourcesIn(dir string) Sources {
	return Sources{
		CredentialsPath: filepath.Join(dir, "credentials.json"),
		ExpensesPath:    filepath.Join(dir, "expenses.json"),
		CreditsPath:     filepath.Join(dir, "credits.json"),
	}
}

func (s Sources) paths() []string {
	return []string{s.ExpensesPath, s.CreditsPath, s.CredentialsPath}
}

type KindResult struct {
	Kind   Kind   `json:"kind"`
	Status Status `json:"status"`
	Count  int    `json:"count"`
	Err    error  `json:"-"`
}

type Report struct {
	Results []KindResult `json:"results"`
}

// Result returns the outcome for kind.
func (r Report) Result(kind Kind) (KindResult, bool) {
	for _, res := range r.Results {
		if res.Kind == kind {
			return res, true
		}
	}
	return KindResult{}, false
}

// Imported is the total number of records written.
func (r Report) Imported() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == StatusImported {
			n += res.Count
		}
	}
	return n
}

// Target is the part of a record store the migration needs.
type Target interface {
	HasCredential(ctx context.Context) (bool, error)
	CountExpenses(ctx context.Context) (int64, error)
	CountCredits(ctx context.Context) (int64, error)
	ledger.Importer
}

// errSourceMissing marks a legacy file that does not exist.
var errSourceMissing = errors.New("source missing")

// Migrate imports each record kind whose store side is empty and whose
// source file exists. A source that cannot be decoded is reported and
// skipped; a failure writing to the store stops the migration and is
// returned together with the partial report.
func Migrate(ctx context.Context, store Target, src Sources) (Report, error) {
	var report Report

	steps := []struct {
		kind  Kind
		count func(context.Context) (int64, error)
		load  func() (func(context.Context) (int, error), error)
	}{
		{KindCredentials, credentialCount(store), func() (func(context.Context) (int, error), error) {
			rec, err := readSource(src.CredentialsPath, ReadCredential)
			if err != nil {
				return nil, err
			}
			userid, password := rec.Identity()
			return func(ctx context.Context) (int, error) {
				return 1, store.ImportCredential(ctx, userid, password)
			}, nil
		}},
		{KindExpenses, store.CountExpenses, func() (func(context.Context) (int, error), error) {
			items, err := readSource(src.ExpensesPath, ReadExpenses)
			if err != nil {
				return nil, err
			}
			return func(ctx context.Context) (int, error) { return store.ImportExpenses(ctx, items) }, nil
		}},
		{KindCredits, store.CountCredits, func() (func(context.Context) (int, error), error) {
			items, err := readSource(src.CreditsPath, ReadCredits)
			if err != nil {
				return nil, err
			}
			return func(ctx context.Context) (int, error) { return store.ImportCredits(ctx, items) }, nil
		}},
	}

	for _, step := range steps {
		res := KindResult{Kind: step.kind}

		existing, err := step.count(ctx)
		if err != nil {
			return report, fmt.Errorf("count %s: %w", step.kind, err)
		}
		if existing > 0 {
			res.Status = StatusSkippedPopulated
			report.Results = append(report.Results, res)
			slog.DebugContext(ctx, "Legacy import skipped, store already populated", "kind", step.kind, "existing", existing)
			continue
		}

		write, err := step.load()
		switch {
		case errors.Is(err, errSourceMissing):
			res.Status = StatusSkippedMissing
			report.Results = append(report.Results, res)
			continue
		case err != nil:
			res.Status = StatusFailed
			res.Err = err
			report.Results = append(report.Results, res)
			slog.WarnContext(ctx, "Could not migrate legacy source", "kind", step.kind, "error", err)
			continue
		}

		n, err := write(ctx)
		if err != nil {
			res.Status = StatusFailed
			res.Err = err
			report.Results = append(report.Results, res)
			return report, fmt.Errorf("import %s: %w", step.kind, err)
		}
		res.Status = StatusImported
		res.Count = n
		report.Results = append(report.Results, res)
		slog.InfoContext(ctx, "Migrated legacy records", "kind", step.kind, "count", n)
	}

	return report, nil
}

func credentialCount(store Target) func(context.Context) (int64, error) {
	return func(ctx context.Context) (int64, error) {
		has, err := store.HasCredential(ctx)
		if has {
			return 1, err
		}
		return 0, err
	}
}

func readSource[T any](path string, read func(string) (T, error)) (T, error) {
	var zero T
	if path == "" {
		return zero, errSourceMissing
	}
	v, err := read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return zero, errSourceMissing
	}
	return v, err
}

// Backup copies each existing source to "<name>.backup" unless that
// backup already exists. It returns the backups it created.
func Backup(src Sources) ([]string, error) {
	var created []string
	for _, path := range src.paths() {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		dst := path + ".backup"
		if _, err := os.Stat(dst); err == nil {
			continue
		}
		if err := copyFile(path, dst); err != nil {
			return created, fmt.Errorf("backup %s: %w", path, err)
		}
		slog.Info("Created backup", "path", dst)
		created = append(created, dst)
	}
	return created, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
