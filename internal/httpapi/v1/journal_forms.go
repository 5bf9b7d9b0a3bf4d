package v1

import (
    "errors"
    "net/http"
    "strconv"
    "strings"

    chi "github.com/go-chi/chi/v5"

    "github.com/tinoosan/voucherdesk/internal/errs"
    "github.com/tinoosan/voucherdesk/internal/journal"
)

const msgSubmitFailed = "Failed to create journal entry"

// openJournalForm handles POST /v1/journal-forms.
func (s *Server) openJournalForm(w http.ResponseWriter, r *http.Request) {
    var req openJournalFormRequest
    if !decodeJSON(w, r, &req) { return }
    companyID := strings.TrimSpace(req.CompanyID)
    if companyID == "" {
        badRequest(w, "company_id is required")
        return
    }
    if !companyAllowed(r, companyID) {
        forbidden(w, "company not allowed for token")
        return
    }
    sess, err := s.desk.Open(r.Context(), companyID)
    if err != nil {
        if errors.Is(err, errs.ErrInvalid) {
            badRequest(w, "invalid company_id")
            return
        }
        writeErr(w, http.StatusBadGateway, "could not load ledgers", "remote_error")
        return
    }
    openSessions.Set(float64(s.desk.Len()))
    toJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) getJournalForm(w http.ResponseWriter, r *http.Request) {
    toJSON(w, http.StatusOK, journalFormFrom(r).Snapshot())
}

func (s *Server) closeJournalForm(w http.ResponseWriter, r *http.Request) {
    if err := s.desk.Close(journalFormFrom(r).ID); err != nil {
        notFound(w)
        return
    }
    openSessions.Set(float64(s.desk.Len()))
    w.WriteHeader(http.StatusNoContent)
}

func entryIndexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
    i, err := strconv.Atoi(chi.URLParam(r, "index"))
    if err != nil || i < 0 {
        badRequest(w, "invalid entry index")
        return 0, false
    }
    return i, true
}

// writeFormResult answers a form mutation: the snapshot on success, or the
// error with the snapshot left untouched.
func writeFormResult(w http.ResponseWriter, status int, snap journal.Snapshot, err error) {
    switch {
    case err == nil:
        toJSON(w, status, snap)
    case errors.Is(err, errs.ErrInFlight):
        conflict(w, "a submit is in progress", "in_flight")
    case errors.Is(err, errs.ErrClosed):
        conflict(w, "form is closed; reset it to start a new voucher", "closed")
    case errors.Is(err, errs.ErrTooFewEntries):
        unprocessable(w, journal.MsgTooFewEntries, "too_few_entries")
    case errors.Is(err, errs.ErrInvalid):
        badRequest(w, "invalid entry update")
    default:
        internalError(w)
    }
}

func (s *Server) addJournalEntry(w http.ResponseWriter, r *http.Request) {
    snap, err := journalFormFrom(r).AddEntry()
    writeFormResult(w, http.StatusCreated, snap, err)
}

func (s *Server) updateJournalEntry(w http.ResponseWriter, r *http.Request) {
    i, ok := entryIndexParam(w, r)
    if !ok { return }
    var patch journal.EntryPatch
    if !decodeJSON(w, r, &patch) { return }
    snap, err := journalFormFrom(r).UpdateEntry(i, patch)
    writeFormResult(w, http.StatusOK, snap, err)
}

func (s *Server) removeJournalEntry(w http.ResponseWriter, r *http.Request) {
    i, ok := entryIndexParam(w, r)
    if !ok { return }
    snap, err := journalFormFrom(r).RemoveEntry(i)
    writeFormResult(w, http.StatusOK, snap, err)
}

func (s *Server) updateJournalHeader(w http.ResponseWriter, r *http.Request) {
    var patch journal.HeaderPatch
    if !decodeJSON(w, r, &patch) { return }
    snap, err := journalFormFrom(r).UpdateHeader(patch)
    writeFormResult(w, http.StatusOK, snap, err)
}

func (s *Server) validateJournalForm(w http.ResponseWriter, r *http.Request) {
    fields := journalFormFrom(r).Validate()
    toJSON(w, http.StatusOK, validateJournalFormResponse{Valid: len(fields) == 0, Errors: fields})
}

// submitJournalForm handles POST /journal-forms/{formID}/submit.
func (s *Server) submitJournalForm(w http.ResponseWriter, r *http.Request) {
    sess := journalFormFrom(r)
    payload, err := sess.Submit(r.Context())
    var vErr *journal.ValidationError
    switch {
    case err == nil:
        journalSubmissions.WithLabelValues("success").Inc()
        toJSON(w, http.StatusCreated, submitJournalFormResponse{Voucher: payload, Form: sess.Snapshot()})
    case errors.As(err, &vErr):
        journalSubmissions.WithLabelValues("invalid").Inc()
        toJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "Please fix the errors in the form", Code: "validation_error", Fields: vErr.Fields})
    case errors.Is(err, errs.ErrInFlight):
        journalSubmissions.WithLabelValues("in_flight").Inc()
        conflict(w, "a submit is in progress", "in_flight")
    case errors.Is(err, errs.ErrClosed):
        journalSubmissions.WithLabelValues("closed").Inc()
        conflict(w, "form is closed; reset it to start a new voucher", "closed")
    default:
        journalSubmissions.WithLabelValues("remote_error").Inc()
        msg := msgSubmitFailed
        var m journal.Messager
        if errors.As(err, &m) && m.UserMessage() != "" {
            msg = m.UserMessage()
        }
        writeErr(w, http.StatusBadGateway, msg, "remote_error")
    }
}

func (s *Server) resetJournalForm(w http.ResponseWriter, r *http.Request) {
    snap, err := journalFormFrom(r).Reset(r.Context())
    writeFormResult(w, http.StatusOK, snap, err)
}

func (s *Server) journalNotifications(w http.ResponseWriter, r *http.Request) {
    items := journalFormFrom(r).Notifications()
    if items == nil { items = []journal.Notification{} }
    toJSON(w, http.StatusOK, notificationsResponse{Items: items})
}
