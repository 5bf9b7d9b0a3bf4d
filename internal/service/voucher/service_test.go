package voucher_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tinoosan/voucherdesk/internal/errs"
	"github.com/tinoosan/voucherdesk/internal/events"
	"github.com/tinoosan/voucherdesk/internal/ledger"
	"github.com/tinoosan/voucherdesk/internal/service/account"
	"github.com/tinoosan/voucherdesk/internal/service/voucher"
	"github.com/tinoosan/voucherdesk/internal/storage/memory"
)

type fixture struct {
	svc     voucher.Service
	rec     *events.Recorder
	company uuid.UUID
	cash    ledger.Account
	capital ledger.Account
	sales   ledger.Account
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	accounts := account.New(store, store, "INR", logger)
	company := uuid.New()
	defaults, err := accounts.EnsureDefaults(ctx, company)
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	capital, err := accounts.Create(ctx, ledger.Account{CompanyID: company, Name: "Capital", Category: ledger.CategoryCapitalAccount})
	if err != nil {
		t.Fatalf("capital: %v", err)
	}
	rec := &events.Recorder{}
	f := fixture{
		svc:     voucher.New(store, store, voucher.Options{Currency: "INR", Publisher: rec, Logger: logger}),
		rec:     rec,
		company: company,
		capital: capital,
	}
	for _, a := range defaults {
		switch a.Name {
		case "Cash":
			f.cash = a
		case "Sales":
			f.sales = a
		}
	}
	return f
}

func amt(s string) ledger.Amount { return ledger.NewAmount(decimal.RequireFromString(s)) }

func (f fixture) payload(number string, lines ...ledger.AccountingItem) ledger.CreateVoucherPayload {
	total := decimal.Zero
	for _, l := range lines {
		if l.Amount.IsPositive() {
			total = total.Add(l.Amount.Decimal)
		}
	}
	return ledger.CreateVoucherPayload{
		VoucherType:   ledger.VoucherTypeJournal,
		VoucherTypeID: "vt_journal",
		Date:          "2024-01-01",
		VoucherNumber: number,
		CompanyID:     f.company.String(),
		PaymentMode:   ledger.PaymentModeCash,
		Total:         ledger.NewAmount(total),
		Accounting:    lines,
		Items:         []ledger.VoucherItem{},
	}
}

func line(a ledger.Account, amount string, i int) ledger.AccountingItem {
	return ledger.AccountingItem{Ledger: a.Name, LedgerID: a.ID.String(), Amount: amt(amount), OrderIndex: i}
}

func TestNumberingFollowsCounter(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	n, err := f.svc.NextNumber(ctx, f.company, ledger.VoucherTypeJournal)
	if err != nil || n != "JV-0001" {
		t.Fatalf("next = %q, %v", n, err)
	}
	if again, _ := f.svc.NextNumber(ctx, f.company, ledger.VoucherTypeJournal); again != "JV-0001" {
		t.Fatalf("peeking must not consume numbers, got %q", again)
	}

	v, _, err := f.svc.Create(ctx, f.payload(n, line(f.cash, "500", 0), line(f.capital, "-500", 1)), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if v.Number != "JV-0001" {
		t.Fatalf("number = %q", v.Number)
	}
	v, _, err = f.svc.Create(ctx, f.payload("", line(f.cash, "10", 0), line(f.capital, "-10", 1)), "")
	if err != nil || v.Number != "JV-0002" {
		t.Fatalf("blank number should be allocated: %q %v", v.Number, err)
	}
	if n, _ := f.svc.NextNumber(ctx, f.company, ledger.VoucherTypeJournal); n != "JV-0003" {
		t.Fatalf("next = %q", n)
	}
	if n, _ := f.svc.NextNumber(ctx, f.company, ledger.VoucherTypePayment); n != "PV-0001" {
		t.Fatalf("counters are per type, got %q", n)
	}
	if n, _ := f.svc.NextNumber(ctx, uuid.New(), ledger.VoucherTypeJournal); n != "JV-0001" {
		t.Fatalf("counters are per company, got %q", n)
	}
	if _, err := f.svc.NextNumber(ctx, f.company, "Memo"); !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("expected ErrInvalid for unknown type, got %v", err)
	}

	if _, _, err := f.svc.Create(ctx, f.payload("JV-0001", line(f.cash, "1", 0), line(f.capital, "-1", 1)), ""); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected ErrConflict for a reused number, got %v", err)
	}
	if len(f.rec.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(f.rec.Events))
	}
	ev := f.rec.Events[0].Event.(events.VoucherCreated)
	if f.rec.Events[0].Topic != events.TopicVoucherCreated || ev.Total != "500.00" || ev.VoucherNumber != "JV-0001" {
		t.Fatalf("unexpected event: %+v", f.rec.Events[0])
	}
}

func TestValidatePayloadRefusals(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	tests := []struct {
		name string
		mod  func(p *ledger.CreateVoucherPayload)
		code string
	}{
		{"unbalanced", func(p *ledger.CreateVoucherPayload) { p.Accounting[1].Amount = amt("-499") }, voucher.CodeUnbalanced},
		{"one line", func(p *ledger.CreateVoucherPayload) { p.Accounting = p.Accounting[:1] }, voucher.CodeTooFewLines},
		{"zero line", func(p *ledger.CreateVoucherPayload) { p.Accounting[0].Amount = amt("0") }, voucher.CodeInvalidAmount},
		{"unknown ledger", func(p *ledger.CreateVoucherPayload) { p.Accounting[0].LedgerID = ""; p.Accounting[0].Ledger = "Nope" }, voucher.CodeUnknownLedger},
		{"bad type", func(p *ledger.CreateVoucherPayload) { p.VoucherType = "Memo" }, voucher.CodeInvalidVoucherType},
		{"type id mismatch", func(p *ledger.CreateVoucherPayload) { p.VoucherTypeID = "vt_sales" }, voucher.CodeInvalidVoucherType},
		{"bad date", func(p *ledger.CreateVoucherPayload) { p.Date = "01/01/2024" }, voucher.CodeInvalidDate},
		{"bad company", func(p *ledger.CreateVoucherPayload) { p.CompanyID = "acme" }, voucher.CodeInvalidCompany},
		{"bad mode", func(p *ledger.CreateVoucherPayload) { p.PaymentMode = "Cheque" }, voucher.CodeInvalidPaymentMode},
		{"total", func(p *ledger.CreateVoucherPayload) { p.Total = amt("400") }, voucher.CodeTotalMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := f.payload("", line(f.cash, "500", 0), line(f.capital, "-500", 1))
			tt.mod(&p)
			_, err := f.svc.ValidatePayload(ctx, p)
			var verr *voucher.ValidationError
			if !errors.As(err, &verr) || verr.Code != tt.code {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
			if !errors.Is(err, errs.ErrUnprocessable) {
				t.Fatalf("refusals must match ErrUnprocessable")
			}
		})
	}

	_, err := f.svc.ValidatePayload(ctx, func() ledger.CreateVoucherPayload {
		p := f.payload("", line(f.cash, "5", 0), line(f.capital, "-4", 1))
		return p
	}())
	if !errors.Is(err, errs.ErrUnbalanced) {
		t.Fatalf("unbalanced refusal should match ErrUnbalanced, got %v", err)
	}
}

func TestValidatePayloadRefusesAmountsBeyondMinorUnits(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	huge := f.payload("", line(f.cash, "100000000000000000000", 0), line(f.capital, "-100000000000000000000", 1))
	_, err := f.svc.ValidatePayload(ctx, huge)
	var verr *voucher.ValidationError
	if !errors.As(err, &verr) || verr.Code != voucher.CodeInvalidAmount || verr.Message != "Line 1: amount is too large" {
		t.Fatalf("expected too large on line 1, got %v", err)
	}

	// each line fits, the debit side does not
	var lines []ledger.AccountingItem
	for i := 0; i < 11; i++ {
		lines = append(lines, line(f.cash, "9000000000000000", i))
	}
	for i := 11; i < 22; i++ {
		lines = append(lines, line(f.capital, "-9000000000000000", i))
	}
	_, err = f.svc.ValidatePayload(ctx, f.payload("", lines...))
	if !errors.As(err, &verr) || verr.Code != voucher.CodeInvalidAmount {
		t.Fatalf("expected invalid_amount for overflowing sum, got %v", err)
	}

	p := f.payload("", line(f.cash, "500", 0), line(f.capital, "-500", 1))
	p.Total = amt("1e40")
	_, err = f.svc.ValidatePayload(ctx, p)
	if !errors.As(err, &verr) || verr.Code != voucher.CodeInvalidAmount {
		t.Fatalf("expected invalid_amount for total, got %v", err)
	}

	vs, err := f.svc.List(ctx, f.company, "")
	if err != nil || len(vs) != 0 {
		t.Fatalf("nothing should be stored: %d, %v", len(vs), err)
	}
}

func TestValidatePayloadResolvesByNameAndOrders(t *testing.T) {
	f := setup(t)
	p := f.payload("", line(f.capital, "-100", 1), line(f.cash, "100", 0))
	p.Accounting[0].LedgerID = ""
	p.Accounting[0].Ledger = " capital "
	v, err := f.svc.ValidatePayload(context.Background(), p)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if v.Lines[0].AccountID != f.cash.ID || v.Lines[1].AccountID != f.capital.ID {
		t.Fatalf("lines should follow order_index: %+v", v.Lines)
	}
	if v.Lines[1].AccountName != "Capital" {
		t.Fatalf("stored name should be the ledger's own: %q", v.Lines[1].AccountName)
	}
}

func TestCreateIsIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.payload("", line(f.cash, "250.50", 0), line(f.sales, "-250.50", 1))
	first, replayed, err := f.svc.Create(ctx, p, "form-1:3")
	if err != nil || replayed {
		t.Fatalf("create: %v replayed=%v", err, replayed)
	}
	second, replayed, err := f.svc.Create(ctx, p, "form-1:3")
	if err != nil || !replayed || second.ID != first.ID {
		t.Fatalf("replay should return the first voucher: %v %v", err, replayed)
	}
	list, _ := f.svc.List(ctx, f.company, "")
	if len(list) != 1 || len(f.rec.Events) != 1 {
		t.Fatalf("expected one voucher and one event, got %d/%d", len(list), len(f.rec.Events))
	}
	if got, err := f.svc.Get(ctx, f.company, first.ID); err != nil || got.Number != first.Number {
		t.Fatalf("get: %v", err)
	}
	if _, err := f.svc.Get(ctx, uuid.New(), first.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("vouchers are company scoped, got %v", err)
	}
	if only, _ := f.svc.List(ctx, f.company, ledger.VoucherTypePayment); len(only) != 0 {
		t.Fatalf("type filter broken")
	}
}

func TestBalances(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p1 := f.payload("", line(f.cash, "500", 0), line(f.capital, "-500", 1))
	p2 := f.payload("", line(f.cash, "120.25", 0), line(f.sales, "-120.25", 1))
	p2.Date = "2024-02-01"
	for _, p := range []ledger.CreateVoucherPayload{p1, p2} {
		if _, _, err := f.svc.Create(ctx, p, ""); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	bal, err := f.svc.AccountBalance(ctx, f.company, f.cash.ID, nil)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if units, _ := bal.MinorUnits(); units != 62025 {
		t.Fatalf("cash = %d", units)
	}
	asOf := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	bal, _ = f.svc.AccountBalance(ctx, f.company, f.cash.ID, &asOf)
	if units, _ := bal.MinorUnits(); units != 50000 {
		t.Fatalf("cash as of = %d", units)
	}
	tb, err := f.svc.TrialBalance(ctx, f.company, nil)
	if err != nil {
		t.Fatalf("trial balance: %v", err)
	}
	var sum int64
	for _, a := range tb {
		u, _ := a.MinorUnits()
		sum += u
	}
	if len(tb) != 3 || sum != 0 {
		t.Fatalf("trial balance should net to zero over 3 accounts: %d %d", len(tb), sum)
	}
	if _, err := f.svc.AccountBalance(ctx, f.company, uuid.New(), nil); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
