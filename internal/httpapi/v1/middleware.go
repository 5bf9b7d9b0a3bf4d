package v1

import (
    "context"
    "errors"
    "net/http"
    "runtime/debug"
    "strings"
    "time"

    chi "github.com/go-chi/chi/v5"
    chimw "github.com/go-chi/chi/v5/middleware"
    "github.com/google/uuid"
    "log/slog"

    "github.com/tinoosan/voucherdesk/internal/errs"
    "github.com/tinoosan/voucherdesk/internal/journal"
    "github.com/tinoosan/voucherdesk/internal/ledger"
    "github.com/tinoosan/voucherdesk/internal/meta"
    "github.com/tinoosan/voucherdesk/internal/service/account"
)

type ctxKey string

const (
    ctxKeyCompany     ctxKey = "company"
    ctxKeyPostLedger  ctxKey = "validatedPostLedger"
    ctxKeyPostVoucher ctxKey = "validatedPostVoucher"
    ctxKeyAsOf        ctxKey = "validatedAsOf"
    ctxKeyJournalForm ctxKey = "journalForm"
)

// requestLogger logs basic request info at INFO.
func requestLogger(l *slog.Logger) func(next http.Handler) http.Handler {
    return func(next http.Handler) http.Handler {
        return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
            ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
            start := time.Now()
            reqID := chimw.GetReqID(r.Context())
            l.Info("request started", "req_id", reqID, "method", r.Method, "path", r.URL.Path)

            next.ServeHTTP(ww, r)

            l.Info("request complete",
                "req_id", reqID,
                "status", ww.Status(),
                "bytes", ww.BytesWritten(),
                "duration", time.Since(start).String(),
            )
        })
    }
}

// recoverer logs panics as ERROR and returns 500.
func recoverer(l *slog.Logger) func(next http.Handler) http.Handler {
    return func(next http.Handler) http.Handler {
        return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
            defer func() {
                if rec := recover(); rec != nil {
                    l.Error("panic", "req_id", chimw.GetReqID(r.Context()), "err", rec, "stack", string(debug.Stack()))
                    internalError(w)
                }
            }()
            next.ServeHTTP(w, r)
        })
    }
}

// companyScope parses {companyID} and checks it against the token's
// company_id claim, if any.
func (s *Server) companyScope(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        companyID, err := uuid.Parse(chi.URLParam(r, "companyID"))
        if err != nil || companyID == uuid.Nil {
            badRequest(w, "invalid company id")
            return
        }
        if !companyAllowed(r, companyID.String()) {
            forbidden(w, "company not allowed for token")
            return
        }
        ctx := context.WithValue(r.Context(), ctxKeyCompany, companyID)
        next.ServeHTTP(w, r.WithContext(ctx))
    })
}

func companyFrom(r *http.Request) uuid.UUID {
    id, _ := r.Context().Value(ctxKeyCompany).(uuid.UUID)
    return id
}

// validatePostLedger parses the POST /ledgers body and runs the create rules
// before the handler sees it.
func (s *Server) validatePostLedger(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        var req postLedgerRequest
        if !decodeJSON(w, r, &req) { return }
        a := ledger.Account{
            CompanyID: companyFrom(r),
            Name:      req.Name,
            Category:  req.Category,
            Currency:  req.Currency,
            Details:   meta.New(req.Details),
        }
        if err := s.accounts.ValidateCreate(a); err != nil {
            writeAccountErr(w, err)
            return
        }
        ctx := context.WithValue(r.Context(), ctxKeyPostLedger, a)
        next.ServeHTTP(w, r.WithContext(ctx))
    })
}

// validatePostVoucher decodes the create-voucher payload and checks the
// company against the token. Business rules run in the service.
func (s *Server) validatePostVoucher(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        var p ledger.CreateVoucherPayload
        if !decodeJSON(w, r, &p) { return }
        if !companyAllowed(r, strings.TrimSpace(p.CompanyID)) {
            forbidden(w, "company not allowed for token")
            return
        }
        ctx := context.WithValue(r.Context(), ctxKeyPostVoucher, p)
        next.ServeHTTP(w, r.WithContext(ctx))
    })
}

// validateAsOf parses the optional as_of query (YYYY-MM-DD or RFC3339).
func (s *Server) validateAsOf(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        var asOf *time.Time
        if raw := strings.TrimSpace(r.URL.Query().Get("as_of")); raw != "" {
            t, err := time.Parse(time.DateOnly, raw)
            if err != nil {
                t, err = time.Parse(time.RFC3339, raw)
            }
            if err != nil {
                badRequest(w, "invalid as_of")
                return
            }
            t = t.UTC()
            asOf = &t
        }
        ctx := context.WithValue(r.Context(), ctxKeyAsOf, asOf)
        next.ServeHTTP(w, r.WithContext(ctx))
    })
}

// loadJournalForm resolves {formID} to an open session owned by the
// token's company.
func (s *Server) loadJournalForm(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        id, err := uuid.Parse(chi.URLParam(r, "formID"))
        if err != nil {
            badRequest(w, "invalid form id")
            return
        }
        sess, err := s.desk.Get(id)
        if err != nil {
            notFound(w)
            return
        }
        if !companyAllowed(r, sess.CompanyID) {
            // do not reveal other companies' forms
            notFound(w)
            return
        }
        ctx := context.WithValue(r.Context(), ctxKeyJournalForm, sess)
        next.ServeHTTP(w, r.WithContext(ctx))
    })
}

func journalFormFrom(r *http.Request) *journal.Session {
    sess, _ := r.Context().Value(ctxKeyJournalForm).(*journal.Session)
    return sess
}

// writeAccountErr maps known account errors; anything else is a bad request
// carrying the rule's message.
func writeAccountErr(w http.ResponseWriter, err error) {
    if isKnownErr(err) {
        writeServiceErr(w, err)
        return
    }
    badRequest(w, err.Error())
}

func isKnownErr(err error) bool {
    for _, target := range []error{errs.ErrNotFound, errs.ErrConflict, errs.ErrForbidden, errs.ErrInvalid,
        errs.ErrUnprocessable, errs.ErrSystemAccount, errs.ErrImmutable, account.ErrNameExists} {
        if errors.Is(err, target) { return true }
    }
    return false
}
