package journal

import (
    "strings"
    "time"

    "github.com/shopspring/decimal"

    "github.com/tinoosan/voucherdesk/internal/ledger"
)

// Target identifies where the voucher is posted.
type Target struct {
    CompanyID string
}

// Assemble turns a valid form into the create-voucher payload. "To" lines
// are posted positive and "From" lines negative, so a balanced form has a
// signed sum of zero. An invalid form yields a *ValidationError.
func Assemble(f Form, t Target, p Policy) (ledger.CreateVoucherPayload, error) {
    if fields := ComputeErrors(f, p); len(fields) > 0 {
        return ledger.CreateVoucherPayload{}, &ValidationError{Fields: fields}
    }
    date, _ := ParseDate(f.Header.Date)
    bal := ComputeBalance(f.Entries)
    total := ledger.NewAmount(bal.To)
    zero := ledger.NewAmount(decimal.Zero)

    lines := make([]ledger.AccountingItem, 0, len(f.Entries))
    for i, e := range f.Entries {
        amt := parseAmount(e.Amount)
        if e.Direction == DirectionFrom {
            amt = amt.Neg()
        }
        lines = append(lines, ledger.AccountingItem{
            Ledger:     strings.TrimSpace(e.Name),
            LedgerID:   e.ID,
            Amount:     ledger.NewAmount(amt),
            OrderIndex: i,
        })
    }
    jv, _ := ledger.LookupVoucherType(string(ledger.VoucherTypeJournal))
    mode := f.Header.PaymentMethod
    if mode == "" {
        mode = ledger.PaymentModeCash
    }
    return ledger.CreateVoucherPayload{
        VoucherType:      jv.Type,
        VoucherTypeID:    jv.ID,
        Date:             date.Format(time.DateOnly),
        VoucherNumber:    f.Header.TransactionNumber,
        PartyName:        lines[0].Ledger,
        PartyNameID:      lines[0].LedgerID,
        Narration:        f.Header.Notes,
        CompanyID:        t.CompanyID,
        PaymentMode:      mode,
        PaidAmount:       total,
        Total:            total,
        TotalAmount:      total,
        GrandTotal:       total,
        Discount:         zero,
        TotalTax:         zero,
        AdditionalCharge: zero,
        Roundoff:         zero,
        Accounting:       lines,
        Items:            []ledger.VoucherItem{},
    }, nil
}
