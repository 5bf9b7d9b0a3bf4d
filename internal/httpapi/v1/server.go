// Package v1 wires the HTTP surface of voucherdesk: the books API (ledgers,
// vouchers, balances) and the journal-form API. Handlers stay thin and
// delegate business rules to the service layer and the journal desk.
package v1

import (
    "context"
    "log/slog"
    "net/http"
    "time"

    chi "github.com/go-chi/chi/v5"
    chimw "github.com/go-chi/chi/v5/middleware"

    "github.com/tinoosan/voucherdesk/internal/journal"
    "github.com/tinoosan/voucherdesk/internal/service/account"
    "github.com/tinoosan/voucherdesk/internal/service/voucher"
)

// ReadyChecker is implemented by stores that can report connectivity.
type ReadyChecker interface {
    Ping(ctx context.Context) error
}

// Server wires handlers and middleware using Chi.
type Server struct {
    accounts account.Service
    vouchers voucher.Service
    desk     *journal.Desk
    ready    ReadyChecker
    log      *slog.Logger
    rt       *chi.Mux
}

// New constructs the HTTP server with routes and middleware. ready may be nil.
// Auth is enforced only when auth.Secret is set.
func New(accounts account.Service, vouchers voucher.Service, desk *journal.Desk, ready ReadyChecker, auth AuthConfig, logger *slog.Logger) *Server {
    if logger == nil { logger = slog.Default() }
    r := chi.NewRouter()
    r.Use(chimw.RequestID)
    r.Use(requestLogger(logger))
    r.Use(recoverer(logger))
    r.Use(metricsMiddleware)
    if mw := authJWT(auth); mw != nil {
        r.Use(mw)
    }

    s := &Server{
        accounts: accounts,
        vouchers: vouchers,
        desk:     desk,
        ready:    ready,
        log:      logger,
        rt:       r,
    }
    s.routes()
    return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// SweepSessions closes journal forms idle for longer than maxIdle.
func (s *Server) SweepSessions(maxIdle time.Duration) int {
    n := s.desk.Sweep(maxIdle)
    openSessions.Set(float64(s.desk.Len()))
    return n
}

func (s *Server) routes() {
    // Books: ledgers
    s.rt.Route("/v1/companies/{companyID}", func(r chi.Router) {
        r.Use(s.companyScope)
        r.Get("/ledgers", s.listLedgers)
        r.With(s.validatePostLedger).Post("/ledgers", s.postLedger)
        r.Get("/ledgers/{id}", s.getLedger)
        r.Patch("/ledgers/{id}", s.updateLedger)
        r.Delete("/ledgers/{id}", s.deactivateLedger)
        r.With(s.validateAsOf).Get("/ledgers/{id}/balance", s.getLedgerBalance)
        r.With(s.validateAsOf).Get("/trial-balance", s.trialBalance)
        r.Get("/voucher-types/{type}/next-number", s.nextVoucherNumber)
        r.Get("/vouchers", s.listVouchers)
        r.Get("/vouchers/{id}", s.getVoucher)
    })
    // Books: vouchers
    s.rt.With(s.validatePostVoucher).Post("/v1/vouchers", s.postVoucher)

    // Journal forms
    s.rt.Route("/v1/journal-forms", func(r chi.Router) {
        r.Post("/", s.openJournalForm)
        r.Route("/{formID}", func(r chi.Router) {
            r.Use(s.loadJournalForm)
            r.Get("/", s.getJournalForm)
            r.Delete("/", s.closeJournalForm)
            r.Post("/entries", s.addJournalEntry)
            r.Patch("/entries/{index}", s.updateJournalEntry)
            r.Delete("/entries/{index}", s.removeJournalEntry)
            r.Patch("/header", s.updateJournalHeader)
            r.Post("/validate", s.validateJournalForm)
            r.Post("/submit", s.submitJournalForm)
            r.Post("/reset", s.resetJournalForm)
            r.Get("/notifications", s.journalNotifications)
        })
    })

    // Dictionary
    s.rt.Get("/v1/dictionary/ledger-categories", s.getLedgerCategories)
    s.rt.Get("/v1/dictionary/voucher-types", s.getVoucherTypes)

    // Health (unversioned)
    s.rt.Get("/healthz", s.healthz)
    s.rt.Get("/readyz", s.readyz)
    s.rt.Handle("/metrics", metricsHandler())
}
