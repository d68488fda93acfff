package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLogger_JSONFormatCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentStorage, Output: &buf})

	logger.Info("Expense added", FieldExpenseID, int64(7))
	logger.Debug("dropped below level")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected a single JSON record, got %q: %v", buf.String(), err)
	}
	if rec[FieldComponent] != ComponentStorage {
		t.Errorf("component = %v, want %s", rec[FieldComponent], ComponentStorage)
	}
	if rec[FieldExpenseID] != float64(7) {
		t.Errorf("expense_id = %v, want 7", rec[FieldExpenseID])
	}
}

func TestLogger_WithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf}).WithComponent(ComponentHTTP)
	if logger.Component() != ComponentHTTP {
		t.Fatalf("Component() = %s, want %s", logger.Component(), ComponentHTTP)
	}
	logger.Warn("slow request")
	if strings.Count(buf.String(), "component=") != 1 {
		t.Errorf("component should be logged once: %q", buf.String())
	}
}

func TestMiddleware_FromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Component: ComponentHTTP})

	var got *Logger
	h := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string { return "req_1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = FromContext(r.Context())
			got.Info("inside")
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got == nil || got.Component() != ComponentHTTP {
		t.Fatalf("expected the injected logger, got %+v", got)
	}
	if !strings.Contains(buf.String(), "request_id=req_1") {
		t.Errorf("request id missing from %q", buf.String())
	}

	if FromContext(context.Background()).Component() != "unknown" {
		t.Error("FromContext without a logger should fall back to the default")
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Output: &buf, Format: "json"}))
	ctx := context.Background()

	sl.LogExpenseAdded(ctx, 3, "2024-03-05", "150.00", "Purchases", "PUR-OFF")
	sl.LogError(ctx, "Failed to list expenses", errors.New("disk full"), OpList, NewFields().WithMonth("2024-03"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 records, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec[FieldError] != "disk full" || rec[FieldOperation] != OpList || rec[FieldMonth] != "2024-03" {
		t.Errorf("unexpected error record %v", rec)
	}
	if rec["level"] != "ERROR" {
		t.Errorf("level = %v, want ERROR", rec["level"])
	}
}
