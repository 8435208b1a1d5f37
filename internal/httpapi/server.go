// Package httpapi wires the HTTP surface of the accounting service.
// It keeps handlers thin, delegating business rules to the service layer.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/plazapos/contable/internal/service/bank"
	"github.com/plazapos/contable/internal/service/drawer"
	"github.com/plazapos/contable/internal/service/reports"
	"github.com/plazapos/contable/internal/service/tree"
)

// Options tunes per-route middleware. Zero values fall back to defaults.
type Options struct {
	// ReportRateLimit caps requests per ReportRateWindow per client IP on
	// the report endpoints.
	ReportRateLimit  int
	ReportRateWindow time.Duration
}

// Server wires handlers and middleware using Chi.
type Server struct {
	treeSvc   tree.Service
	reportSvc reports.Service
	drawerSvc drawer.Service
	bankSvc   bank.Service
	store     Store
	log       *slog.Logger
	rt        *chi.Mux
	now       func() time.Time
}

// New constructs the HTTP server with routes and middleware.
// The logger is used by request/response logging and panic recovery.
func New(store Store, logger *slog.Logger, opts Options) *Server {
	if opts.ReportRateLimit <= 0 {
		opts.ReportRateLimit = 30
	}
	if opts.ReportRateWindow <= 0 {
		opts.ReportRateWindow = time.Minute
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)

	s := &Server{
		treeSvc:   tree.New(store, store),
		reportSvc: reports.New(store),
		drawerSvc: drawer.New(store, store),
		bankSvc:   bank.New(store, store),
		store:     store,
		log:       logger,
		rt:        r,
		now:       time.Now,
	}
	s.routes(opts)
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public endpoints and attaches per-route middleware.
func (s *Server) routes(opts Options) {
	// Chart of accounts
	s.rt.With(s.validatePostAccount()).Post("/v1/accounts", s.postAccount)
	s.rt.Get("/v1/accounts", s.listAccounts)
	s.rt.Get("/v1/accounts/{id}", s.getAccount)
	s.rt.Get("/v1/accounts/{id}/subtree-total", s.getSubtreeTotal)
	s.rt.With(s.validatePatchAccount()).Patch("/v1/accounts/{id}", s.patchAccount)

	// Reports are heavier than the rest of the API, so they carry a
	// per-client rate limit.
	s.rt.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(opts.ReportRateLimit, opts.ReportRateWindow))
		r.Get("/v1/reports/balance-sheet", s.getBalanceSheet)
		r.Get("/v1/reports/income-statement", s.getIncomeStatement)
		r.Get("/v1/reports/totals", s.getTotalByType)
	})

	// Cash drawer sessions
	s.rt.With(s.validateOpenSession()).Post("/v1/drawer/sessions", s.openSession)
	s.rt.Get("/v1/drawer/sessions/{id}", s.getSession)
	s.rt.With(s.validateRecordSale()).Post("/v1/drawer/sessions/{id}/sales", s.recordSale)
	s.rt.With(s.validateCloseSession()).Post("/v1/drawer/sessions/{id}/close", s.closeSession)

	// Bank accounts and reconciliation
	s.rt.With(s.validatePostBankAccount()).Post("/v1/bank-accounts", s.postBankAccount)
	s.rt.Get("/v1/bank-accounts/{id}", s.getBankAccount)
	s.rt.Get("/v1/bank-accounts/{id}/movements", s.listMovements)
	s.rt.With(s.validateImportMovements()).Post("/v1/bank-accounts/{id}/movements/import", s.importMovements)
	s.rt.With(s.validateReconcile()).Post("/v1/bank-accounts/{id}/reconcile", s.reconcile)

	// Operational endpoints (unversioned)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Method(http.MethodGet, "/metrics", metricsHandler())
}
