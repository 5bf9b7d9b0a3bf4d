package v1

import (
    "net/http"

    chi "github.com/go-chi/chi/v5"
    "github.com/google/uuid"

    "github.com/tinoosan/voucherdesk/internal/ledger"
    "github.com/tinoosan/voucherdesk/internal/meta"
)

func ledgerIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
    id, err := uuid.Parse(chi.URLParam(r, "id"))
    if err != nil {
        badRequest(w, "invalid ledger id")
        return uuid.Nil, false
    }
    return id, true
}

// listLedgers handles GET /companies/{companyID}/ledgers. Inactive ledgers
// are included unless active=true.
func (s *Server) listLedgers(w http.ResponseWriter, r *http.Request) {
    accs, err := s.accounts.List(r.Context(), companyFrom(r))
    if err != nil {
        writeServiceErr(w, err)
        return
    }
    onlyActive := r.URL.Query().Get("active") == "true"
    out := listLedgersResponse{Items: make([]ledgerResponse, 0, len(accs))}
    for _, a := range accs {
        if onlyActive && !a.Active { continue }
        out.Items = append(out.Items, toLedgerResponse(a))
    }
    toJSON(w, http.StatusOK, out)
}

func (s *Server) postLedger(w http.ResponseWriter, r *http.Request) {
    in, _ := r.Context().Value(ctxKeyPostLedger).(ledger.Account)
    created, err := s.accounts.Create(r.Context(), in)
    if err != nil {
        writeAccountErr(w, err)
        return
    }
    toJSON(w, http.StatusCreated, toLedgerResponse(created))
}

func (s *Server) getLedger(w http.ResponseWriter, r *http.Request) {
    id, ok := ledgerIDParam(w, r)
    if !ok { return }
    acc, err := s.accounts.Get(r.Context(), companyFrom(r), id)
    if err != nil {
        writeServiceErr(w, err)
        return
    }
    toJSON(w, http.StatusOK, toLedgerResponse(acc))
}

// updateLedger handles PATCH /ledgers/{id}. Only the name and details change;
// details are merged and an empty value removes a field.
func (s *Server) updateLedger(w http.ResponseWriter, r *http.Request) {
    id, ok := ledgerIDParam(w, r)
    if !ok { return }
    var payload patchLedgerRequest
    if !decodeJSON(w, r, &payload) { return }
    acc, err := s.accounts.Get(r.Context(), companyFrom(r), id)
    if err != nil {
        writeServiceErr(w, err)
        return
    }
    if payload.Name != nil { acc.Name = *payload.Name }
    if payload.Details != nil {
        if acc.Details == nil { acc.Details = meta.Metadata{} }
        acc.Details.Merge(payload.Details)
    }
    acc, err = s.accounts.Update(r.Context(), acc)
    if err != nil {
        writeAccountErr(w, err)
        return
    }
    toJSON(w, http.StatusOK, toLedgerResponse(acc))
}

// deactivateLedger handles DELETE /ledgers/{id} by soft-deactivating (active=false).
func (s *Server) deactivateLedger(w http.ResponseWriter, r *http.Request) {
    id, ok := ledgerIDParam(w, r)
    if !ok { return }
    if err := s.accounts.Deactivate(r.Context(), companyFrom(r), id); err != nil {
        writeServiceErr(w, err)
        return
    }
    w.WriteHeader(http.StatusNoContent)
}
