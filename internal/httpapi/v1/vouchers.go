package v1

import (
    "errors"
    "net/http"
    "sort"
    "strings"
    "time"

    chi "github.com/go-chi/chi/v5"
    "github.com/google/uuid"
    "github.com/govalues/money"

    "github.com/tinoosan/voucherdesk/internal/errs"
    "github.com/tinoosan/voucherdesk/internal/ledger"
)

// postVoucher handles POST /v1/vouchers. A repeated Idempotency-Key returns
// the voucher created the first time with 200 instead of 201.
func (s *Server) postVoucher(w http.ResponseWriter, r *http.Request) {
    p, _ := r.Context().Value(ctxKeyPostVoucher).(ledger.CreateVoucherPayload)
    key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
    v, replayed, err := s.vouchers.Create(r.Context(), p, key)
    if err != nil {
        if errors.Is(err, errs.ErrConflict) {
            conflict(w, "voucher number already used", "duplicate_voucher_number")
            return
        }
        writeServiceErr(w, err)
        return
    }
    if replayed {
        toJSON(w, http.StatusOK, toVoucherResponse(v))
        return
    }
    vouchersCreated.WithLabelValues(string(v.Type)).Inc()
    toJSON(w, http.StatusCreated, toVoucherResponse(v))
}

// listVouchers handles GET /companies/{companyID}/vouchers?voucher_type=
func (s *Server) listVouchers(w http.ResponseWriter, r *http.Request) {
    var vt ledger.VoucherType
    if raw := strings.TrimSpace(r.URL.Query().Get("voucher_type")); raw != "" {
        def, ok := ledger.LookupVoucherType(raw)
        if !ok {
            badRequest(w, "invalid voucher_type")
            return
        }
        vt = def.Type
    }
    list, err := s.vouchers.List(r.Context(), companyFrom(r), vt)
    if err != nil {
        writeServiceErr(w, err)
        return
    }
    out := listVouchersResponse{Items: make([]voucherResponse, 0, len(list))}
    for _, v := range list { out.Items = append(out.Items, toVoucherResponse(v)) }
    toJSON(w, http.StatusOK, out)
}

func (s *Server) getVoucher(w http.ResponseWriter, r *http.Request) {
    id, err := uuid.Parse(chi.URLParam(r, "id"))
    if err != nil {
        badRequest(w, "invalid voucher id")
        return
    }
    v, err := s.vouchers.Get(r.Context(), companyFrom(r), id)
    if err != nil {
        writeServiceErr(w, err)
        return
    }
    toJSON(w, http.StatusOK, toVoucherResponse(v))
}

// nextVoucherNumber peeks the number the next voucher of {type} would get.
func (s *Server) nextVoucherNumber(w http.ResponseWriter, r *http.Request) {
    def, ok := ledger.LookupVoucherType(chi.URLParam(r, "type"))
    if !ok {
        badRequest(w, "invalid voucher type")
        return
    }
    num, err := s.vouchers.NextNumber(r.Context(), companyFrom(r), def.Type)
    if err != nil {
        writeServiceErr(w, err)
        return
    }
    toJSON(w, http.StatusOK, nextNumberResponse{VoucherType: def.Type, VoucherNumber: num})
}

func asOfFrom(r *http.Request) (*time.Time, *string) {
    asOf, _ := r.Context().Value(ctxKeyAsOf).(*time.Time)
    if asOf == nil { return nil, nil }
    s := asOf.Format(time.DateOnly)
    return asOf, &s
}

func (s *Server) getLedgerBalance(w http.ResponseWriter, r *http.Request) {
    id, ok := ledgerIDParam(w, r)
    if !ok { return }
    asOf, asOfStr := asOfFrom(r)
    bal, err := s.vouchers.AccountBalance(r.Context(), companyFrom(r), id, asOf)
    if err != nil {
        writeServiceErr(w, err)
        return
    }
    units, _ := bal.MinorUnits()
    toJSON(w, http.StatusOK, balanceResponse{
        LedgerID:     id,
        Currency:     bal.Curr().Code(),
        Balance:      ledger.Format(bal),
        BalanceMinor: units,
        AsOf:         asOfStr,
    })
}

// trialBalance lists every ledger with postings, debit or credit by the sign
// of its net, ordered by name.
func (s *Server) trialBalance(w http.ResponseWriter, r *http.Request) {
    companyID := companyFrom(r)
    asOf, asOfStr := asOfFrom(r)
    nets, err := s.vouchers.TrialBalance(r.Context(), companyID, asOf)
    if err != nil {
        writeServiceErr(w, err)
        return
    }
    accs, err := s.accounts.List(r.Context(), companyID)
    if err != nil {
        writeServiceErr(w, err)
        return
    }
    resp := trialBalanceResponse{CompanyID: companyID, AsOf: asOfStr, Accounts: []trialBalanceLine{}}
    var totalDr, totalCr int64
    currency := ""
    for _, a := range accs {
        net, ok := nets[a.ID]
        if !ok { continue }
        units, _ := net.MinorUnits()
        line := trialBalanceLine{LedgerID: a.ID, Name: a.Name, Category: a.Category, Currency: a.Currency}
        zero := ledger.Zero(a.Currency)
        if units >= 0 {
            line.DebitMinor = units
            line.Debit, line.Credit = ledger.Format(net), ledger.Format(zero)
            totalDr += units
        } else {
            line.CreditMinor = -units
            line.Debit, line.Credit = ledger.Format(zero), ledger.Format(net.Neg())
            totalCr += -units
        }
        currency = a.Currency
        resp.Accounts = append(resp.Accounts, line)
    }
    sort.SliceStable(resp.Accounts, func(i, j int) bool {
        return strings.ToLower(resp.Accounts[i].Name) < strings.ToLower(resp.Accounts[j].Name)
    })
    if currency == "" { currency = "INR" }
    resp.TotalDebit = formatMinor(currency, totalDr)
    resp.TotalCredit = formatMinor(currency, totalCr)
    toJSON(w, http.StatusOK, resp)
}

func formatMinor(currency string, units int64) string {
    a, err := money.NewAmountFromMinorUnits(currency, units)
    if err != nil { return "0" }
    return ledger.Format(a)
}
