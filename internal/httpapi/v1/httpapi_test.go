package v1

import (
    "bytes"
    "context"
    "crypto/hmac"
    "crypto/sha256"
    "encoding/base64"
    "encoding/json"
    "errors"
    "io"
    "log/slog"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/google/uuid"

    "github.com/tinoosan/voucherdesk/internal/books"
    "github.com/tinoosan/voucherdesk/internal/events"
    "github.com/tinoosan/voucherdesk/internal/journal"
    "github.com/tinoosan/voucherdesk/internal/ledger"
    "github.com/tinoosan/voucherdesk/internal/service/account"
    "github.com/tinoosan/voucherdesk/internal/service/voucher"
    "github.com/tinoosan/voucherdesk/internal/storage/memory"
)

func testLogger() *slog.Logger {
    return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type errResp struct {
    Error  string            `json:"error"`
    Code   string            `json:"code"`
    Fields map[string]string `json:"fields"`
}

type fixture struct {
    h       http.Handler
    srv     *Server
    rec     *events.Recorder
    company uuid.UUID
    cash    ledger.Account
    capital ledger.Account
}

func setupWithAuth(t *testing.T, auth AuthConfig) fixture {
    t.Helper()
    ctx := context.Background()
    store := memory.New()
    logger := testLogger()
    accounts := account.New(store, store, "INR", logger)
    rec := &events.Recorder{}
    vouchers := voucher.New(store, store, voucher.Options{Currency: "INR", Publisher: rec, Logger: logger})
    desk := journal.NewDesk(&books.Local{Accounts: accounts, Vouchers: vouchers}, journal.DefaultPolicy(), logger)

    company := uuid.New()
    defaults, err := accounts.EnsureDefaults(ctx, company)
    if err != nil {
        t.Fatalf("defaults: %v", err)
    }
    capital, err := accounts.Create(ctx, ledger.Account{CompanyID: company, Name: "Capital", Category: ledger.CategoryCapitalAccount})
    if err != nil {
        t.Fatalf("capital: %v", err)
    }
    srv := New(accounts, vouchers, desk, store, auth, logger)
    f := fixture{h: srv.Handler(), srv: srv, rec: rec, company: company, capital: capital}
    for _, a := range defaults {
        if a.Name == "Cash" {
            f.cash = a
        }
    }
    return f
}

func setup(t *testing.T) fixture { return setupWithAuth(t, AuthConfig{}) }

func do(t *testing.T, h http.Handler, method, path string, body any, hdr map[string]string) *httptest.ResponseRecorder {
    t.Helper()
    var rdr io.Reader
    if body != nil {
        b, err := json.Marshal(body)
        if err != nil {
            t.Fatalf("marshal: %v", err)
        }
        rdr = bytes.NewReader(b)
    }
    req := httptest.NewRequest(method, path, rdr)
    if body != nil {
        req.Header.Set("Content-Type", "application/json")
    }
    for k, v := range hdr {
        req.Header.Set(k, v)
    }
    rec := httptest.NewRecorder()
    h.ServeHTTP(rec, req)
    return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
    t.Helper()
    if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
        t.Fatalf("decode %q: %v", rec.Body.String(), err)
    }
}

func (f fixture) companyPath(suffix string) string {
    return "/v1/companies/" + f.company.String() + suffix
}

func (f fixture) voucherBody(number string, debit, credit string) map[string]any {
    return map[string]any{
        "voucher_type":    "Journal",
        "voucher_type_id": "vt_journal",
        "date":            "2024-01-15",
        "voucher_number":  number,
        "company_id":      f.company.String(),
        "payment_mode":    "Cash",
        "total":           json.Number(debit),
        "accounting": []map[string]any{
            {"ledger": "Cash", "ledger_id": f.cash.ID.String(), "amount": json.Number(debit), "order_index": 0},
            {"ledger": "Capital", "ledger_id": f.capital.ID.String(), "amount": json.Number("-" + credit), "order_index": 1},
        },
    }
}

func TestLedgers_CreateListUpdateDeactivate(t *testing.T) {
    f := setup(t)

    // bank accounts need their bank fields
    rec := do(t, f.h, http.MethodPost, f.companyPath("/ledgers"), map[string]any{"name": "HDFC", "category": "bank_accounts"}, nil)
    if rec.Code != http.StatusUnprocessableEntity {
        t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
    }
    var er errResp
    decode(t, rec, &er)
    if er.Code != "validation_error" || er.Fields["account_number"] == "" {
        t.Fatalf("unexpected error body: %+v", er)
    }

    rec = do(t, f.h, http.MethodPost, f.companyPath("/ledgers"), map[string]any{"name": "Rent", "category": "Indirect Expenses"}, nil)
    if rec.Code != http.StatusCreated {
        t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
    }
    var created ledgerResponse
    decode(t, rec, &created)
    if created.Category != ledger.CategoryIndirectExpenses || created.Currency != "INR" || !created.Active {
        t.Fatalf("unexpected ledger: %+v", created)
    }

    rec = do(t, f.h, http.MethodPost, f.companyPath("/ledgers"), map[string]any{"name": "rent", "category": "indirect_expenses"}, nil)
    if rec.Code != http.StatusConflict {
        t.Fatalf("expected 409 for duplicate name, got %d", rec.Code)
    }
    rec = do(t, f.h, http.MethodPost, f.companyPath("/ledgers"), map[string]any{"name": "Other Sales", "category": "sales_accounts"}, nil)
    if rec.Code != http.StatusBadRequest {
        t.Fatalf("expected 400 for reserved category, got %d", rec.Code)
    }

    rec = do(t, f.h, http.MethodGet, f.companyPath("/ledgers"), nil, nil)
    var list listLedgersResponse
    decode(t, rec, &list)
    if len(list.Items) != 5 {
        t.Fatalf("expected 5 ledgers, got %d", len(list.Items))
    }

    rec = do(t, f.h, http.MethodPatch, f.companyPath("/ledgers/"+created.ID.String()), map[string]any{"name": "Office Rent"}, nil)
    if rec.Code != http.StatusOK {
        t.Fatalf("patch: %d %s", rec.Code, rec.Body.String())
    }
    var upd ledgerResponse
    decode(t, rec, &upd)
    if upd.Name != "Office Rent" {
        t.Fatalf("name not updated: %+v", upd)
    }

    var salesID string
    for _, it := range list.Items {
        if it.Name == "Sales" {
            salesID = it.ID.String()
        }
    }
    if rec := do(t, f.h, http.MethodDelete, f.companyPath("/ledgers/"+salesID), nil, nil); rec.Code != http.StatusForbidden {
        t.Fatalf("expected 403 for system ledger, got %d", rec.Code)
    }
    if rec := do(t, f.h, http.MethodDelete, f.companyPath("/ledgers/"+created.ID.String()), nil, nil); rec.Code != http.StatusNoContent {
        t.Fatalf("expected 204, got %d", rec.Code)
    }
    rec = do(t, f.h, http.MethodGet, f.companyPath("/ledgers/"+created.ID.String()), nil, nil)
    var got ledgerResponse
    decode(t, rec, &got)
    if got.Active {
        t.Fatalf("ledger still active")
    }
    if rec := do(t, f.h, http.MethodGet, f.companyPath("/ledgers/"+uuid.New().String()), nil, nil); rec.Code != http.StatusNotFound {
        t.Fatalf("expected 404, got %d", rec.Code)
    }
}

func TestVouchers_CreateIdempotentAndNumbering(t *testing.T) {
    f := setup(t)

    rec := do(t, f.h, http.MethodGet, f.companyPath("/voucher-types/Journal/next-number"), nil, nil)
    var next nextNumberResponse
    decode(t, rec, &next)
    if next.VoucherNumber != "JV-0001" {
        t.Fatalf("next number = %q", next.VoucherNumber)
    }

    hdr := map[string]string{"Idempotency-Key": "form-1:3"}
    rec = do(t, f.h, http.MethodPost, "/v1/vouchers", f.voucherBody("", "500.00", "500.00"), hdr)
    if rec.Code != http.StatusCreated {
        t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
    }
    var first voucherResponse
    decode(t, rec, &first)
    if first.VoucherNumber != "JV-0001" || first.Total != "500.00" || len(first.Lines) != 2 {
        t.Fatalf("unexpected voucher: %+v", first)
    }
    if first.Lines[1].AmountMinor != -50000 {
        t.Fatalf("credit line = %d", first.Lines[1].AmountMinor)
    }

    rec = do(t, f.h, http.MethodPost, "/v1/vouchers", f.voucherBody("", "500.00", "500.00"), hdr)
    if rec.Code != http.StatusOK {
        t.Fatalf("expected 200 on replay, got %d", rec.Code)
    }
    var replay voucherResponse
    decode(t, rec, &replay)
    if replay.ID != first.ID {
        t.Fatalf("replay created a new voucher")
    }
    if len(f.rec.Events) != 1 {
        t.Fatalf("expected 1 event, got %d", len(f.rec.Events))
    }

    rec = do(t, f.h, http.MethodPost, "/v1/vouchers", f.voucherBody("JV-0001", "10", "10"), nil)
    if rec.Code != http.StatusConflict {
        t.Fatalf("expected 409 for duplicate number, got %d", rec.Code)
    }
    var er errResp
    decode(t, rec, &er)
    if er.Code != "duplicate_voucher_number" {
        t.Fatalf("code = %q", er.Code)
    }

    rec = do(t, f.h, http.MethodPost, "/v1/vouchers", f.voucherBody("", "100", "90"), nil)
    if rec.Code != http.StatusUnprocessableEntity {
        t.Fatalf("expected 422 for unbalanced, got %d", rec.Code)
    }
    decode(t, rec, &er)
    if er.Code != voucher.CodeUnbalanced {
        t.Fatalf("code = %q", er.Code)
    }

    rec = do(t, f.h, http.MethodGet, f.companyPath("/vouchers?voucher_type=journal"), nil, nil)
    var list listVouchersResponse
    decode(t, rec, &list)
    if len(list.Items) != 1 {
        t.Fatalf("expected 1 voucher, got %d", len(list.Items))
    }
    if rec := do(t, f.h, http.MethodGet, f.companyPath("/vouchers/"+first.ID.String()), nil, nil); rec.Code != http.StatusOK {
        t.Fatalf("get voucher: %d", rec.Code)
    }
}

func TestBalances(t *testing.T) {
    f := setup(t)
    if rec := do(t, f.h, http.MethodPost, "/v1/vouchers", f.voucherBody("", "250.50", "250.50"), nil); rec.Code != http.StatusCreated {
        t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
    }

    rec := do(t, f.h, http.MethodGet, f.companyPath("/ledgers/"+f.cash.ID.String()+"/balance"), nil, nil)
    var bal balanceResponse
    decode(t, rec, &bal)
    if bal.Balance != "250.50" || bal.BalanceMinor != 25050 {
        t.Fatalf("unexpected balance: %+v", bal)
    }
    rec = do(t, f.h, http.MethodGet, f.companyPath("/ledgers/"+f.cash.ID.String()+"/balance?as_of=2024-01-01"), nil, nil)
    decode(t, rec, &bal)
    if bal.BalanceMinor != 0 {
        t.Fatalf("as_of balance = %d", bal.BalanceMinor)
    }
    if rec := do(t, f.h, http.MethodGet, f.companyPath("/trial-balance?as_of=yesterday"), nil, nil); rec.Code != http.StatusBadRequest {
        t.Fatalf("expected 400 for bad as_of, got %d", rec.Code)
    }

    rec = do(t, f.h, http.MethodGet, f.companyPath("/trial-balance"), nil, nil)
    var tb trialBalanceResponse
    decode(t, rec, &tb)
    if len(tb.Accounts) != 2 || tb.TotalDebit != "250.50" || tb.TotalDebit != tb.TotalCredit {
        t.Fatalf("unexpected trial balance: %+v", tb)
    }
    if tb.Accounts[0].Name != "Capital" || tb.Accounts[0].CreditMinor != 25050 {
        t.Fatalf("capital line: %+v", tb.Accounts[0])
    }
}

func TestDictionaryAndHealth(t *testing.T) {
    f := setup(t)
    rec := do(t, f.h, http.MethodGet, "/v1/dictionary/ledger-categories", nil, nil)
    var cats struct {
        Items []struct {
            Code     string `json:"code"`
            Reserved bool   `json:"reserved"`
        } `json:"items"`
    }
    decode(t, rec, &cats)
    for _, c := range cats.Items {
        if c.Reserved {
            t.Fatalf("reserved category %s listed by default", c.Code)
        }
    }
    rec = do(t, f.h, http.MethodGet, "/v1/dictionary/voucher-types", nil, nil)
    if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte(`"vt_journal"`)) {
        t.Fatalf("voucher types: %d %s", rec.Code, rec.Body.String())
    }
    for _, p := range []string{"/healthz", "/readyz", "/metrics"} {
        if rec := do(t, f.h, http.MethodGet, p, nil, nil); rec.Code != http.StatusOK {
            t.Fatalf("%s: %d", p, rec.Code)
        }
    }
}

func TestRequireJSON(t *testing.T) {
    f := setup(t)
    req := httptest.NewRequest(http.MethodPost, f.companyPath("/ledgers"), bytes.NewReader([]byte(`{"name":"X"}`)))
    req.Header.Set("Content-Type", "text/plain")
    rec := httptest.NewRecorder()
    f.h.ServeHTTP(rec, req)
    if rec.Code != http.StatusUnsupportedMediaType {
        t.Fatalf("expected 415, got %d", rec.Code)
    }
    if rec := do(t, f.h, http.MethodGet, "/v1/companies/not-a-uuid/ledgers", nil, nil); rec.Code != http.StatusBadRequest {
        t.Fatalf("expected 400 for bad company id, got %d", rec.Code)
    }
}

func signHS256(t *testing.T, secret string, claims map[string]any) string {
    t.Helper()
    enc := base64.RawURLEncoding
    hdr := enc.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
    body, _ := json.Marshal(claims)
    payload := enc.EncodeToString(body)
    mac := hmac.New(sha256.New, []byte(secret))
    mac.Write([]byte(hdr + "." + payload))
    return hdr + "." + payload + "." + enc.EncodeToString(mac.Sum(nil))
}

func TestAuth_CompanyClaim(t *testing.T) {
    f := setupWithAuth(t, AuthConfig{Secret: "s3cret", Issuer: "voucherdesk"})

    rec := do(t, f.h, http.MethodGet, f.companyPath("/ledgers"), nil, nil)
    if rec.Code != http.StatusUnauthorized {
        t.Fatalf("expected 401 without token, got %d", rec.Code)
    }
    var body errorResponse
    decode(t, rec, &body)
    if body.Code != "token_missing" || rec.Header().Get("WWW-Authenticate") == "" {
        t.Fatalf("missing token response: %+v %v", body, rec.Header())
    }
    if rec := do(t, f.h, http.MethodGet, "/healthz", nil, nil); rec.Code != http.StatusOK {
        t.Fatalf("healthz should stay open, got %d", rec.Code)
    }
    if rec := do(t, f.h, http.MethodGet, "/v1/dictionary/voucher-types", nil, nil); rec.Code != http.StatusOK {
        t.Fatalf("dictionary should stay open, got %d", rec.Code)
    }

    wrongIss := signHS256(t, "s3cret", map[string]any{"iss": "other"})
    if rec := do(t, f.h, http.MethodGet, f.companyPath("/ledgers"), nil, map[string]string{"Authorization": "Bearer " + wrongIss}); rec.Code != http.StatusUnauthorized {
        t.Fatalf("expected 401 for wrong issuer, got %d", rec.Code)
    }
    badSig := signHS256(t, "nope", map[string]any{"iss": "voucherdesk"})
    if rec := do(t, f.h, http.MethodGet, f.companyPath("/ledgers"), nil, map[string]string{"Authorization": "Bearer " + badSig}); rec.Code != http.StatusUnauthorized {
        t.Fatalf("expected 401 for bad signature, got %d", rec.Code)
    }

    other := signHS256(t, "s3cret", map[string]any{"iss": "voucherdesk", "company_id": uuid.New().String()})
    auth := map[string]string{"Authorization": "Bearer " + other}
    if rec := do(t, f.h, http.MethodGet, f.companyPath("/ledgers"), nil, auth); rec.Code != http.StatusForbidden {
        t.Fatalf("expected 403 for other company, got %d", rec.Code)
    }
    if rec := do(t, f.h, http.MethodPost, "/v1/vouchers", f.voucherBody("", "1", "1"), auth); rec.Code != http.StatusForbidden {
        t.Fatalf("expected 403 posting for other company, got %d", rec.Code)
    }

    own := signHS256(t, "s3cret", map[string]any{"iss": "voucherdesk", "company_id": f.company.String()})
    if rec := do(t, f.h, http.MethodGet, f.companyPath("/ledgers"), nil, map[string]string{"Authorization": "Bearer " + own}); rec.Code != http.StatusOK {
        t.Fatalf("expected 200 for own company, got %d", rec.Code)
    }
}

func TestTokenVerifierRefusals(t *testing.T) {
    v, ok := newTokenVerifier(AuthConfig{Secret: "s3cret", Issuer: "voucherdesk", Audience: "desk"})
    if !ok {
        t.Fatalf("verifier should be enabled")
    }
    now := time.Unix(1_700_000_000, 0)
    v.now = func() time.Time { return now }
    company := uuid.New()

    tests := []struct {
        name   string
        token  string
        err    error
        code   string
    }{
        {"malformed", "a.b", errTokenMalformed, "token_invalid"},
        {"signature", signHS256(t, "other", map[string]any{"iss": "voucherdesk", "aud": "desk"}), errTokenSignature, "token_invalid"},
        {"expired", signHS256(t, "s3cret", map[string]any{"iss": "voucherdesk", "aud": "desk", "exp": now.Unix()}), errTokenExpired, "token_expired"},
        {"not yet", signHS256(t, "s3cret", map[string]any{"iss": "voucherdesk", "aud": "desk", "nbf": now.Unix() + 60}), errTokenNotYet, "token_not_yet_valid"},
        {"audience", signHS256(t, "s3cret", map[string]any{"iss": "voucherdesk", "aud": []string{"ops", "billing"}}), errTokenAudience, "token_invalid"},
        {"company", signHS256(t, "s3cret", map[string]any{"iss": "voucherdesk", "aud": "desk", "company_id": "acme"}), errTokenCompany, "token_invalid"},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            _, err := v.verify(tt.token)
            if !errors.Is(err, tt.err) {
                t.Fatalf("err = %v, want %v", err, tt.err)
            }
            if got := tokenErrCode(err); got != tt.code {
                t.Fatalf("code = %q, want %q", got, tt.code)
            }
        })
    }

    tok := signHS256(t, "s3cret", map[string]any{
        "iss": "voucherdesk", "aud": []string{"ops", "DESK"}, "exp": now.Unix() + 60,
        "company_id": strings.ToUpper(company.String()),
    })
    claims, err := v.verify(tok)
    if err != nil {
        t.Fatalf("verify: %v", err)
    }
    if claims.CompanyID != company.String() {
        t.Fatalf("company id not canonical: %q", claims.CompanyID)
    }
}
