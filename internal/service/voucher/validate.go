package voucher

import (
    "context"
    "errors"
    "math"
    "sort"
    "strconv"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/tinoosan/voucherdesk/internal/errs"
    "github.com/tinoosan/voucherdesk/internal/ledger"
)

// Refusal codes.
const (
    CodeInvalidCompany     = "invalid_company"
    CodeInvalidVoucherType = "invalid_voucher_type"
    CodeInvalidDate        = "invalid_date"
    CodeInvalidPaymentMode = "invalid_payment_mode"
    CodeTooFewLines        = "too_few_lines"
    CodeInvalidAmount      = "invalid_amount"
    CodeUnknownLedger      = "unknown_ledger"
    CodeInactiveLedger     = "inactive_ledger"
    CodeCurrencyMismatch   = "currency_mismatch"
    CodeUnbalanced         = "unbalanced_voucher"
    CodeTotalMismatch      = "total_mismatch"
)

// ValidationError explains why a payload was refused. Message is written for
// the person who filled the form.
type ValidationError struct {
    Code    string
    Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Unwrap lets callers match the refusal with errs.ErrUnprocessable, or with
// errs.ErrUnbalanced for an unbalanced voucher.
func (e *ValidationError) Unwrap() []error {
    if e.Code == CodeUnbalanced {
        return []error{errs.ErrUnprocessable, errs.ErrUnbalanced}
    }
    return []error{errs.ErrUnprocessable}
}

func refuse(code, msg string) error { return &ValidationError{Code: code, Message: msg} }

func lineRefuse(i int, code, msg string) error {
    return refuse(code, "Line "+strconv.Itoa(i+1)+": "+msg)
}

// addUnits adds minor units, reporting false on int64 overflow.
func addUnits(a, b int64) (int64, bool) {
    if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
        return 0, false
    }
    return a + b, true
}

// ValidatePayload checks p against the company's books and converts it into
// a voucher ready to persist. The returned voucher has no IDs yet.
func (s *service) ValidatePayload(ctx context.Context, p ledger.CreateVoucherPayload) (ledger.Voucher, error) {
    companyID, err := uuid.Parse(strings.TrimSpace(p.CompanyID))
    if err != nil || companyID == uuid.Nil {
        return ledger.Voucher{}, refuse(CodeInvalidCompany, "Company is required")
    }
    def, ok := ledger.LookupVoucherType(string(p.VoucherType))
    if !ok {
        return ledger.Voucher{}, refuse(CodeInvalidVoucherType, "Unknown voucher type")
    }
    if p.VoucherTypeID != "" && p.VoucherTypeID != def.ID {
        return ledger.Voucher{}, refuse(CodeInvalidVoucherType, "Voucher type id does not match voucher type")
    }
    date, err := time.Parse(time.DateOnly, strings.TrimSpace(p.Date))
    if err != nil {
        return ledger.Voucher{}, refuse(CodeInvalidDate, "Date must be YYYY-MM-DD")
    }
    mode := p.PaymentMode
    if mode == "" {
        mode = ledger.PaymentModeCash
    }
    if !mode.Valid() {
        return ledger.Voucher{}, refuse(CodeInvalidPaymentMode, "Unknown payment mode")
    }
    if len(p.Accounting) < 2 {
        return ledger.Voucher{}, refuse(CodeTooFewLines, "At least 2 accounting lines are required")
    }

    accounts, err := s.repo.ListAccounts(ctx, companyID)
    if err != nil {
        return ledger.Voucher{}, err
    }
    byID := make(map[uuid.UUID]ledger.Account, len(accounts))
    byName := make(map[string]ledger.Account, len(accounts))
    for _, a := range accounts {
        byID[a.ID] = a
        byName[strings.ToLower(strings.TrimSpace(a.Name))] = a
    }

    lines := make([]ledger.AccountingLine, 0, len(p.Accounting))
    var sum, debits int64
    for i, item := range p.Accounting {
        acc, ok := resolveAccount(item, byID, byName)
        if !ok {
            return ledger.Voucher{}, lineRefuse(i, CodeUnknownLedger, "unknown ledger "+strconv.Quote(item.Ledger))
        }
        if !acc.Active {
            return ledger.Voucher{}, lineRefuse(i, CodeInactiveLedger, "ledger "+strconv.Quote(acc.Name)+" is inactive")
        }
        if !strings.EqualFold(acc.Currency, s.curr) {
            return ledger.Voucher{}, lineRefuse(i, CodeCurrencyMismatch, "ledger currency does not match voucher currency")
        }
        amt, err := ledger.ToMoney(s.curr, item.Amount.Decimal)
        if errors.Is(err, ledger.ErrAmountRange) {
            return ledger.Voucher{}, lineRefuse(i, CodeInvalidAmount, "amount is too large")
        }
        if err != nil {
            return ledger.Voucher{}, lineRefuse(i, CodeInvalidAmount, "amount is invalid")
        }
        units, _ := amt.MinorUnits()
        if units == 0 {
            return ledger.Voucher{}, lineRefuse(i, CodeInvalidAmount, "amount must not be zero")
        }
        if sum, ok = addUnits(sum, units); !ok {
            return ledger.Voucher{}, lineRefuse(i, CodeInvalidAmount, "amount is too large")
        }
        if units > 0 {
            if debits, ok = addUnits(debits, units); !ok {
                return ledger.Voucher{}, lineRefuse(i, CodeInvalidAmount, "amount is too large")
            }
        }
        lines = append(lines, ledger.AccountingLine{
            AccountID:   acc.ID,
            AccountName: acc.Name,
            Amount:      amt,
            OrderIndex:  item.OrderIndex,
        })
    }
    if sum != 0 {
        return ledger.Voucher{}, refuse(CodeUnbalanced, `Total "To" amount must equal total "From" amount`)
    }
    total, err := ledger.ToMoney(s.curr, p.Total.Decimal)
    if errors.Is(err, ledger.ErrAmountRange) {
        return ledger.Voucher{}, refuse(CodeInvalidAmount, "Total is too large")
    }
    if err != nil {
        return ledger.Voucher{}, refuse(CodeTotalMismatch, "Total is invalid")
    }
    if units, _ := total.MinorUnits(); units != debits {
        return ledger.Voucher{}, refuse(CodeTotalMismatch, "Total must equal the debit side")
    }
    sortLines(lines)

    v := ledger.Voucher{
        CompanyID:   companyID,
        Type:        def.Type,
        TypeID:      def.ID,
        Date:        date,
        Number:      strings.TrimSpace(p.VoucherNumber),
        PartyName:   strings.TrimSpace(p.PartyName),
        Narration:   p.Narration,
        PaymentMode: mode,
        Currency:    s.curr,
        Total:       total,
        Lines:       lines,
    }
    if party, err := uuid.Parse(p.PartyNameID); err == nil {
        v.PartyID = party
    }
    return v, nil
}

// resolveAccount prefers the ledger id and falls back to the name.
func resolveAccount(item ledger.AccountingItem, byID map[uuid.UUID]ledger.Account, byName map[string]ledger.Account) (ledger.Account, bool) {
    if id, err := uuid.Parse(strings.TrimSpace(item.LedgerID)); err == nil {
        a, ok := byID[id]
        return a, ok
    }
    a, ok := byName[strings.ToLower(strings.TrimSpace(item.Ledger))]
    return a, ok
}

func sortLines(lines []ledger.AccountingLine) {
    sort.SliceStable(lines, func(i, j int) bool { return lines[i].OrderIndex < lines[j].OrderIndex })
}

// UserMessage exposes Message to the journal form.
func (e *ValidationError) UserMessage() string { return e.Message }
