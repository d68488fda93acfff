// Package http exposes the ledger and its monthly reports as a JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/middleware/trace"
	"expensetracker/internal/services"
	"expensetracker/internal/session"
)

// SheetsExporter copies a month of expenses to a spreadsheet tab.
// *sheets.Exporter satisfies it.
type SheetsExporter interface {
	ExportMonth(ctx context.Context, month core.MonthKey, expenses []core.Expense) (int, error)
	SheetTitle(month core.MonthKey) string
}

// Options switch optional features of the API.
type Options struct {
	EnableCredits       bool
	EnableSubcategories bool
	LoginRatePerMinute  int
	// SecureCookies marks the session cookie Secure; set it behind TLS.
	SecureCookies bool
}

type Server struct {
	http.Server
	ledger   *services.LedgerService
	sessions *session.Registry
	exporter SheetsExporter
	opts     Options

	detector     *security.Detector
	loginLimiter *ratelimit.Limiter
	tracer       *trace.Middleware
	logger       *applog.Logger
	events       *applog.StructuredLogger

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
// exporter may be nil when the Sheets export is not configured.
func NewServer(addr string, ledger *services.LedgerService, sessions *session.Registry, exporter SheetsExporter, opts Options) *Server {
	logger := applog.FromContext(context.Background()).WithComponent(applog.ComponentHTTP)
	detector := security.NewDetector()

	s := &Server{
		ledger:       ledger,
		sessions:     sessions,
		exporter:     exporter,
		opts:         opts,
		detector:     detector,
		loginLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.LoginRatePerMinute}),
		tracer:       trace.NewMiddleware(detector.ExtractClientIP),
		logger:       logger,
		events:       applog.NewStructuredLogger(logger),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = applog.RequestIDMiddleware(trace.RequestID)(handler)
	handler = applog.Middleware(logger)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = detector.Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /taxonomy", s.handleTaxonomy)

	mux.Handle("POST /login", s.loginLimiter.Middleware(s.detector.ExtractClientIP, rateLimited)(http.HandlerFunc(s.handleLogin)))
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("GET /session", s.requireSession(s.handleSession))
	mux.HandleFunc("PUT /credentials", s.requireSession(s.handleSetCredential))

	mux.HandleFunc("GET /expenses", s.requireSession(s.handleListExpenses))
	mux.HandleFunc("POST /expenses", s.requireSession(s.handleAddExpense))
	mux.HandleFunc("DELETE /expenses/{id}", s.requireSession(s.handleDeleteExpense))
	mux.HandleFunc("POST /expenses/delete-by-fields", s.requireSession(s.handleDeleteExpenseByFields))
	mux.HandleFunc("DELETE /expenses", s.requireSession(s.handleClearExpenses))

	if s.opts.EnableCredits {
		mux.HandleFunc("GET /credits", s.requireSession(s.handleListCredits))
		mux.HandleFunc("POST /credits", s.requireSession(s.handleAddCredit))
	}

	mux.HandleFunc("GET /months", s.requireSession(s.handleMonths))
	mux.HandleFunc("GET /reports/comparison", s.requireSession(s.handleComparison))
	mux.HandleFunc("GET /reports/{month}", s.requireSession(s.handleMonthReport))

	mux.HandleFunc("GET /export/{month}", s.requireSession(s.handleExportCSV))
	mux.HandleFunc("POST /export/{month}/sheets", s.requireSession(s.handleExportSheets))
}

// Shutdown stops background work and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.loginLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady checks that the record store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if _, err := s.ledger.Store().CountExpenses(ctx); err != nil {
		slog.WarnContext(ctx, "Readiness check failed", "error", err)
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleTaxonomy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"categories":            core.Taxonomy(),
		"subcategories_enabled": s.opts.EnableSubcategories,
		"credits_enabled":       s.opts.EnableCredits,
	})
}

func rateLimited(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusTooManyRequests, "too many login attempts, try again later")
}
