// Package sheets copies a month of expenses into a Google Spreadsheet tab.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"expensetracker/internal/core"
	"expensetracker/internal/export"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// ErrNotConfigured is returned when no spreadsheet or credentials are set.
var ErrNotConfigured = errors.New("google sheets export not configured")

type Config struct {
	SpreadsheetID      string
	ServiceAccountJSON string
	ServiceAccountFile string
	SheetPrefix        string
}

// spreadsheet is the subset of the Sheets API the exporter drives.
type spreadsheet interface {
	SheetTitles(ctx context.Context) ([]string, error)
	AddSheet(ctx context.Context, title string) error
	Clear(ctx context.Context, rng string) error
	Write(ctx context.Context, rng string, rows [][]interface{}) error
}

type Exporter struct {
	api    spreadsheet
	prefix string
}

// New creates an Exporter backed by the Sheets API using service account
// credentials from cfg.
func New(ctx context.Context, cfg Config) (*Exporter, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, ErrNotConfigured
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newExporter(&serviceAPI{svc: svc, spreadsheetID: cfg.SpreadsheetID}, cfg.SheetPrefix), nil
}

func newExporter(api spreadsheet, prefix string) *Exporter {
	if strings.TrimSpace(prefix) == "" {
		prefix = "Expenses"
	}
	return &Exporter{api: api, prefix: prefix}
}

// SheetTitle is the tab a month is exported to.
func (e *Exporter) SheetTitle(month core.MonthKey) string {
	return fmt.Sprintf("%s %s", e.prefix, month)
}

// ExportMonth replaces the contents of the month's tab with the given
// expenses, creating the tab if needed. It returns the number of rows
// written, excluding the header.
func (e *Exporter) ExportMonth(ctx context.Context, month core.MonthKey, expenses []core.Expense) (int, error) {
	title := e.SheetTitle(month)

	titles, err := e.api.SheetTitles(ctx)
	if err != nil {
		return 0, fmt.Errorf("list sheets: %w", err)
	}
	if !contains(titles, title) {
		if err := e.api.AddSheet(ctx, title); err != nil {
			return 0, fmt.Errorf("add sheet %q: %w", title, err)
		}
		slog.InfoContext(ctx, "Created export sheet", "sheet", title)
	}

	rng := fmt.Sprintf("'%s'!A:E", title)
	if err := e.api.Clear(ctx, rng); err != nil {
		return 0, fmt.Errorf("clear %s: %w", rng, err)
	}

	rows := export.Rows(expenses)
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		values[i] = make([]interface{}, len(row))
		for j, cell := range row {
			values[i][j] = cell
		}
	}
	if err := e.api.Write(ctx, fmt.Sprintf("'%s'!A1", title), values); err != nil {
		return 0, fmt.Errorf("write %s: %w", title, err)
	}

	slog.InfoContext(ctx, "Exported month to Google Sheets", "sheet", title, "rows", len(expenses))
	return len(expenses), nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Inline JSON wins over the file; GOOGLE_APPLICATION_CREDENTIALS is the fallback.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(cfg.ServiceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, fmt.Errorf("%w: missing service account credentials", ErrNotConfigured)
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "credentials_size", len(credentialsJSON))
	return service, nil
}

type serviceAPI struct {
	svc           *gsheet.Service
	spreadsheetID string
}

func (s *serviceAPI) SheetTitles(ctx context.Context) ([]string, error) {
	resp, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(resp.Sheets))
	for _, sh := range resp.Sheets {
		if sh.Properties != nil {
			titles = append(titles, sh.Properties.Title)
		}
	}
	return titles, nil
}

func (s *serviceAPI) AddSheet(ctx context.Context, title string) error {
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}},
	}
	_, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
	return err
}

func (s *serviceAPI) Clear(ctx context.Context, rng string) error {
	_, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (s *serviceAPI) Write(ctx context.Context, rng string, rows [][]interface{}) error {
	vr := &gsheet.ValueRange{Values: rows}
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	return err
}
